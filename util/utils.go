package util

import (
	"crypto/rand"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
)

// RandomBytes generates a random byte slice of length n.
func RandomBytes(n int) []byte {
	b := make([]byte, n)
	_, err := rand.Read(b)
	if err != nil {
		panic(err)
	}
	return b
}

// RandomFieldElement returns a random element of the BN254 scalar field.
func RandomFieldElement() *big.Int {
	num, err := rand.Int(rand.Reader, ecc.BN254.ScalarField())
	if err != nil {
		panic(err)
	}
	return num
}

// TrimHex trims the '0x' prefix from a hex string.
func TrimHex(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// InField reports whether iv is a canonical element of the BN254 scalar
// field, that is 0 <= iv < r.
func InField(iv *big.Int) bool {
	return iv.Sign() >= 0 && iv.Cmp(ecc.BN254.ScalarField()) < 0
}
