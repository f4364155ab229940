// Package keystore reads the Sui CLI keystore, a JSON array of base64
// encoded private keys each prefixed with its signature scheme flag, and
// signs transactions with them.
package keystore

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/vocdoni/rui-backend/sui"
	"golang.org/x/crypto/blake2b"
)

// Scheme is the signature scheme flag of a key.
type Scheme byte

const (
	Ed25519   Scheme = 0x00
	Secp256k1 Scheme = 0x01
)

func (s Scheme) String() string {
	switch s {
	case Ed25519:
		return "ed25519"
	case Secp256k1:
		return "secp256k1"
	}
	return fmt.Sprintf("scheme(%d)", byte(s))
}

// privateKeySize is the size of the keystore private keys, without flag.
const privateKeySize = 32

// ErrUnsupportedScheme is returned for keys of schemes other than ed25519
// and secp256k1.
var ErrUnsupportedScheme = errors.New("unsupported signature scheme")

// Signer signs transactions with a single key. It implements sui.Signer.
type Signer struct {
	scheme  Scheme
	ed      ed25519.PrivateKey
	k1      *ecdsa.PrivateKey
	pubKey  []byte
	address sui.Address
}

var _ sui.Signer = (*Signer)(nil)

// NewSigner returns the signer of the raw 32 byte private key.
func NewSigner(scheme Scheme, privKey []byte) (*Signer, error) {
	if len(privKey) != privateKeySize {
		return nil, fmt.Errorf("invalid private key size %d", len(privKey))
	}
	s := &Signer{scheme: scheme}
	switch scheme {
	case Ed25519:
		s.ed = ed25519.NewKeyFromSeed(privKey)
		s.pubKey = s.ed.Public().(ed25519.PublicKey)
	case Secp256k1:
		k1, err := crypto.ToECDSA(privKey)
		if err != nil {
			return nil, fmt.Errorf("invalid secp256k1 key: %w", err)
		}
		s.k1 = k1
		s.pubKey = crypto.CompressPubkey(&k1.PublicKey)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, scheme)
	}
	s.address = DeriveAddress(scheme, s.pubKey)
	return s, nil
}

// Generate returns a signer with a new random key.
func Generate(scheme Scheme) (*Signer, error) {
	switch scheme {
	case Ed25519:
		seed := make([]byte, privateKeySize)
		if _, err := rand.Read(seed); err != nil {
			return nil, err
		}
		return NewSigner(scheme, seed)
	case Secp256k1:
		k1, err := crypto.GenerateKey()
		if err != nil {
			return nil, err
		}
		return NewSigner(scheme, crypto.FromECDSA(k1))
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, scheme)
}

// DeriveAddress returns the address of a public key: the blake2b hash of the
// scheme flag followed by the public key.
func DeriveAddress(scheme Scheme, pubKey []byte) sui.Address {
	return blake2b.Sum256(append([]byte{byte(scheme)}, pubKey...))
}

// Scheme returns the signature scheme of the key.
func (s *Signer) Scheme() Scheme {
	return s.scheme
}

// PublicKey returns the public key, compressed for secp256k1.
func (s *Signer) PublicKey() []byte {
	return append([]byte{}, s.pubKey...)
}

// Address returns the address of the key.
func (s *Signer) Address() sui.Address {
	return s.address
}

// Sign signs a 32 byte intent digest and returns the raw 64 byte signature.
func (s *Signer) Sign(digest [32]byte) ([]byte, error) {
	switch s.scheme {
	case Ed25519:
		return ed25519.Sign(s.ed, digest[:]), nil
	case Secp256k1:
		// secp256k1 signatures are over the sha256 of the message
		hash := sha256.Sum256(digest[:])
		sig, err := crypto.Sign(hash[:], s.k1)
		if err != nil {
			return nil, err
		}
		// drop the recovery id
		return sig[:64], nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, s.scheme)
}

// SignTransaction signs the transaction bytes and returns the base64
// serialized signature: flag || signature || public key.
func (s *Signer) SignTransaction(txBytes []byte) (string, error) {
	sig, err := s.Sign(sui.SigningDigest(txBytes))
	if err != nil {
		return "", err
	}
	serialized := make([]byte, 0, 1+len(sig)+len(s.pubKey))
	serialized = append(serialized, byte(s.scheme))
	serialized = append(serialized, sig...)
	serialized = append(serialized, s.pubKey...)
	return base64.StdEncoding.EncodeToString(serialized), nil
}

// Verify checks a raw signature of the digest with the public key of the
// signer.
func (s *Signer) Verify(digest [32]byte, sig []byte) bool {
	switch s.scheme {
	case Ed25519:
		return ed25519.Verify(s.ed.Public().(ed25519.PublicKey), digest[:], sig)
	case Secp256k1:
		hash := sha256.Sum256(digest[:])
		return crypto.VerifySignature(s.pubKey, hash[:], sig)
	}
	return false
}

// encoded returns the keystore encoding of the key.
func (s *Signer) encoded() string {
	var priv []byte
	switch s.scheme {
	case Ed25519:
		priv = s.ed.Seed()
	case Secp256k1:
		priv = crypto.FromECDSA(s.k1)
	}
	return base64.StdEncoding.EncodeToString(append([]byte{byte(s.scheme)}, priv...))
}

// Keystore is the ordered list of keys of a keystore file.
type Keystore struct {
	signers []*Signer
}

// Parse decodes the content of a keystore file.
func Parse(data []byte) (*Keystore, error) {
	var entries []string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("invalid keystore: %w", err)
	}
	ks := &Keystore{}
	for i, entry := range entries {
		raw, err := base64.StdEncoding.DecodeString(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid keystore entry %d: %w", i, err)
		}
		if len(raw) != 1+privateKeySize {
			return nil, fmt.Errorf("invalid keystore entry %d: %d bytes", i, len(raw))
		}
		signer, err := NewSigner(Scheme(raw[0]), raw[1:])
		if err != nil {
			return nil, fmt.Errorf("invalid keystore entry %d: %w", i, err)
		}
		ks.signers = append(ks.signers, signer)
	}
	return ks, nil
}

// Load reads and parses a keystore file.
func Load(path string) (*Keystore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read keystore: %w", err)
	}
	return Parse(data)
}

// Encode returns the keystore file content of the signers.
func Encode(signers ...*Signer) ([]byte, error) {
	entries := make([]string, 0, len(signers))
	for _, s := range signers {
		entries = append(entries, s.encoded())
	}
	return json.MarshalIndent(entries, "", "  ")
}

// Signers returns the keys in file order.
func (ks *Keystore) Signers() []*Signer {
	return ks.signers
}

// Addresses returns the addresses of the keys in file order.
func (ks *Keystore) Addresses() []sui.Address {
	addrs := make([]sui.Address, 0, len(ks.signers))
	for _, s := range ks.signers {
		addrs = append(addrs, s.address)
	}
	return addrs
}

// First returns the first key of the keystore, the one the backend signs
// with.
func (ks *Keystore) First() (*Signer, error) {
	if len(ks.signers) == 0 {
		return nil, fmt.Errorf("empty keystore")
	}
	return ks.signers[0], nil
}

// Signer returns the key of the address provided.
func (ks *Keystore) Signer(addr sui.Address) (*Signer, error) {
	for _, s := range ks.signers {
		if s.address == addr {
			return s, nil
		}
	}
	return nil, fmt.Errorf("no key for address %s", addr)
}
