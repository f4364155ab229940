package membership

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"github.com/vocdoni/rui-backend/circuits"
	"github.com/vocdoni/rui-backend/util"
)

// Witness holds every input of the circuit. Secret is private material: it is
// never logged nor persisted and the witness must be dropped once proved.
type Witness struct {
	Secret  *big.Int
	Members [MaxMembers]*big.Int
	Message *big.Int
	Scope   *big.Int

	// derived public values
	Nullifier *big.Int
	GroupHash *big.Int
}

// ParseScalar parses a base 10 string into a scalar field element. Only
// digits are accepted (no sign, prefix or separators) and the value must be
// lower than the field modulus.
func ParseScalar(s string) (*big.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty string", ErrMalformedScalar)
	}
	// errors never quote the input, it may be a secret
	for i, r := range s {
		if r < '0' || r > '9' {
			return nil, fmt.Errorf("%w: non decimal character at position %d", ErrMalformedScalar, i)
		}
	}
	x, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%w: not a base 10 integer", ErrMalformedScalar)
	}
	if !util.InField(x) {
		return nil, fmt.Errorf("%w: value exceeds the field modulus", ErrMalformedScalar)
	}
	return x, nil
}

// NewWitness builds the circuit witness from the decimal encoded secret,
// message and scope and the group member slots, which are used in the order
// provided. Nil slots are taken as zero.
func NewWitness(secret string, members [MaxMembers]*big.Int, message, scope string) (*Witness, error) {
	w := &Witness{}
	var err error
	if w.Secret, err = ParseScalar(secret); err != nil {
		return nil, fmt.Errorf("secret: %w", err)
	}
	for i, m := range members {
		if m == nil {
			m = big.NewInt(0)
		}
		if !util.InField(m) {
			return nil, fmt.Errorf("member %d: %w: value exceeds the field modulus", i, ErrMalformedScalar)
		}
		w.Members[i] = m
	}
	if w.Message, err = ParseScalar(message); err != nil {
		return nil, fmt.Errorf("message: %w", err)
	}
	if w.Scope, err = ParseScalar(scope); err != nil {
		return nil, fmt.Errorf("scope: %w", err)
	}
	w.Nullifier = Nullifier(w.Scope, w.Secret)
	w.GroupHash = GroupHash(w.Members)
	return w, nil
}

// IsMember reports whether the identity commitment of the secret is in any
// of the slots.
func (w *Witness) IsMember() bool {
	commitment := IdentityCommitment(w.Secret)
	for _, m := range w.Members {
		if m.Cmp(commitment) == 0 {
			return true
		}
	}
	return false
}

// PublicInputs returns the public inputs in the order the circuit declares
// them.
func (w *Witness) PublicInputs() []*big.Int {
	return []*big.Int{w.GroupHash, w.Nullifier, w.Message, w.Scope}
}

// Assignment returns the circuit assignment of the witness.
func (w *Witness) Assignment() *Circuit {
	c := &Circuit{
		Secret:    w.Secret,
		GroupHash: w.GroupHash,
		Nullifier: w.Nullifier,
		Message:   w.Message,
		Scope:     w.Scope,
	}
	for i, m := range w.Members {
		c.Members[i] = m
	}
	return c
}

// IdentityCommitment returns the commitment registered in a group for the
// secret provided.
func IdentityCommitment(secret *big.Int) *big.Int {
	return hash(secret)
}

// Nullifier returns the nullifier of the secret for the given scope.
func Nullifier(scope, secret *big.Int) *big.Int {
	return hash(scope, secret)
}

// GroupHash returns the hash of the member slots.
func GroupHash(members [MaxMembers]*big.Int) *big.Int {
	return hash(members[:]...)
}

// hash is the native twin of the in-circuit MiMC hash. Inputs must be field
// elements.
func hash(inputs ...*big.Int) *big.Int {
	h := mimc.NewMiMC()
	for _, x := range inputs {
		if x == nil {
			x = big.NewInt(0)
		}
		// padded to the block size, big endian
		buf := make([]byte, circuits.SerializedFieldSize)
		x.FillBytes(buf)
		if _, err := h.Write(buf); err != nil {
			// only out of field inputs fail, which callers already reject
			panic(fmt.Sprintf("mimc: %v", err))
		}
	}
	return new(big.Int).SetBytes(h.Sum(nil))
}
