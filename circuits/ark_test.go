package circuits

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254"
	qt "github.com/frankban/quicktest"
)

func TestArkG1(t *testing.T) {
	c := qt.New(t)
	_, _, g1, _ := bn254.Generators()

	// the generator is (1, 2) and 2 is the smallest of y and -y
	enc := ArkG1(&g1)
	expected := make([]byte, ArkG1Size)
	expected[0] = 1
	c.Assert(enc, qt.DeepEquals, expected)

	var neg bn254.G1Affine
	neg.Neg(&g1)
	encNeg := ArkG1(&neg)
	expected[ArkG1Size-1] = arkFlagNegative
	c.Assert(encNeg, qt.DeepEquals, expected)

	for _, p := range []bn254.G1Affine{g1, neg, randomG1(7), randomG1(1 << 40)} {
		decoded, err := ArkG1FromBytes(ArkG1(&p))
		c.Assert(err, qt.IsNil)
		c.Assert(decoded.Equal(&p), qt.IsTrue)
	}

	var inf bn254.G1Affine
	encInf := ArkG1(&inf)
	c.Assert(encInf[ArkG1Size-1], qt.Equals, arkFlagInfinity)
	decoded, err := ArkG1FromBytes(encInf)
	c.Assert(err, qt.IsNil)
	c.Assert(decoded.IsInfinity(), qt.IsTrue)

	_, err = ArkG1FromBytes(enc[:31])
	c.Assert(err, qt.IsNotNil)
	bad := append([]byte{}, enc...)
	bad[ArkG1Size-1] |= arkFlagMask
	_, err = ArkG1FromBytes(bad)
	c.Assert(err, qt.IsNotNil)
	bad = append([]byte{}, encInf...)
	bad[0] = 1
	_, err = ArkG1FromBytes(bad)
	c.Assert(err, qt.IsNotNil)
}

func TestArkG2(t *testing.T) {
	c := qt.New(t)
	_, _, _, g2 := bn254.Generators()
	var neg bn254.G2Affine
	neg.Neg(&g2)

	for _, p := range []bn254.G2Affine{g2, neg, randomG2(3), randomG2(1 << 50)} {
		enc := ArkG2(&p)
		c.Assert(enc, qt.HasLen, ArkG2Size)
		decoded, err := ArkG2FromBytes(enc)
		c.Assert(err, qt.IsNil)
		c.Assert(decoded.Equal(&p), qt.IsTrue)
	}
	// a point and its negation only differ in the flag
	encPos, encNeg := ArkG2(&g2), ArkG2(&neg)
	c.Assert(encPos[:ArkG2Size-1], qt.DeepEquals, encNeg[:ArkG2Size-1])
	c.Assert(encPos[ArkG2Size-1]^encNeg[ArkG2Size-1], qt.Equals, arkFlagNegative)
	// x.A0 comes first, little endian
	a0 := g2.X.A0.Bytes()
	c.Assert(encPos[0], qt.Equals, a0[31])

	var inf bn254.G2Affine
	decoded, err := ArkG2FromBytes(ArkG2(&inf))
	c.Assert(err, qt.IsNil)
	c.Assert(decoded.IsInfinity(), qt.IsTrue)
}

func TestArkScalars(t *testing.T) {
	c := qt.New(t)
	one := ArkScalar(big.NewInt(1))
	c.Assert(one, qt.HasLen, SerializedFieldSize)
	c.Assert(one[0], qt.Equals, byte(1))

	inputs := []*big.Int{big.NewInt(0), big.NewInt(42), new(big.Int).Sub(ecc.BN254.ScalarField(), big.NewInt(1))}
	enc := ArkPublicInputs(inputs)
	c.Assert(enc, qt.HasLen, len(inputs)*SerializedFieldSize)
	decoded, err := ArkPublicInputsFromBytes(enc)
	c.Assert(err, qt.IsNil)
	c.Assert(decoded, qt.HasLen, len(inputs))
	for i := range inputs {
		c.Assert(decoded[i].Cmp(inputs[i]), qt.Equals, 0)
	}

	_, err = ArkScalarFromBytes(ArkScalar(ecc.BN254.ScalarField()))
	c.Assert(err, qt.IsNotNil)
	_, err = ArkPublicInputsFromBytes(enc[:40])
	c.Assert(err, qt.IsNotNil)
}

func TestArkVerifyingKeyMalformed(t *testing.T) {
	c := qt.New(t)
	_, err := ArkVerifyingKeyFromBytes(make([]byte, 10))
	c.Assert(err, qt.IsNotNil)
	_, err = ArkProofFromBytes(make([]byte, ArkProofSize-1))
	c.Assert(err, qt.IsNotNil)
}

func randomG1(k int64) bn254.G1Affine {
	var p bn254.G1Affine
	p.ScalarMultiplicationBase(big.NewInt(k))
	return p
}

func randomG2(k int64) bn254.G2Affine {
	var p bn254.G2Affine
	p.ScalarMultiplicationBase(big.NewInt(k))
	return p
}
