// Package membership implements the anonymous group membership circuit and
// the Groth16 engine that proves and verifies it over BN254.
//
// A member is registered by its identity commitment, MiMC(secret). The
// circuit proves knowledge of a secret whose commitment is one of the group
// slots, binds a message and a scope to the proof and exposes a nullifier,
// MiMC(scope, secret), so the same secret cannot answer twice in a scope
// without being noticed. The group itself is public through its hash.
package membership

import (
	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"
)

// MaxMembers is the fixed number of member slots of the circuit.
const MaxMembers = 50

// Curve is the curve the circuit is compiled and proved with.
var Curve = ecc.BN254

// Circuit is the gnark definition of the membership proof. Public inputs are
// serialized in declaration order: GroupHash, Nullifier, Message, Scope.
type Circuit struct {
	Secret  frontend.Variable
	Members [MaxMembers]frontend.Variable

	GroupHash frontend.Variable `gnark:",public"`
	Nullifier frontend.Variable `gnark:",public"`
	Message   frontend.Variable `gnark:",public"`
	Scope     frontend.Variable `gnark:",public"`
}

func (c *Circuit) Define(api frontend.API) error {
	commitment, err := mimcHash(api, c.Secret)
	if err != nil {
		return err
	}
	// the commitment must be one of the slots: the product of the
	// differences is zero
	product := frontend.Variable(1)
	for i := range c.Members {
		product = api.Mul(product, api.Sub(c.Members[i], commitment))
	}
	api.AssertIsEqual(product, 0)

	nullifier, err := mimcHash(api, c.Scope, c.Secret)
	if err != nil {
		return err
	}
	api.AssertIsEqual(c.Nullifier, nullifier)

	groupHash, err := mimcHash(api, c.Members[:]...)
	if err != nil {
		return err
	}
	api.AssertIsEqual(c.GroupHash, groupHash)

	// square the message so it takes part in a constraint and is bound to
	// the proof
	api.Mul(c.Message, c.Message)
	return nil
}

func mimcHash(api frontend.API, data ...frontend.Variable) (frontend.Variable, error) {
	h, err := mimc.NewMiMC(api)
	if err != nil {
		return 0, err
	}
	h.Write(data...)
	return h.Sum(), nil
}
