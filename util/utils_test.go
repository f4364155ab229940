package util

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	qt "github.com/frankban/quicktest"
)

func TestTrimHex(t *testing.T) {
	c := qt.New(t)
	c.Assert(TrimHex("0xabc"), qt.Equals, "abc")
	c.Assert(TrimHex("0Xabc"), qt.Equals, "abc")
	c.Assert(TrimHex("abc"), qt.Equals, "abc")
	c.Assert(TrimHex("0"), qt.Equals, "0")
}

func TestInField(t *testing.T) {
	c := qt.New(t)
	r := ecc.BN254.ScalarField()
	c.Assert(InField(big.NewInt(0)), qt.IsTrue)
	c.Assert(InField(new(big.Int).Sub(r, big.NewInt(1))), qt.IsTrue)
	c.Assert(InField(r), qt.IsFalse)
	c.Assert(InField(big.NewInt(-1)), qt.IsFalse)
	for range 10 {
		c.Assert(InField(RandomFieldElement()), qt.IsTrue)
	}
}
