package circuits

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254"
	groth16_bn254 "github.com/consensys/gnark/backend/groth16/bn254"
	"github.com/vocdoni/arbo"
)

// Sizes of the arkworks canonical compressed encoding of BN254 elements, the
// format consumed by the Sui groth16 Move module.
const (
	ArkG1Size    = 32
	ArkG2Size    = 64
	ArkProofSize = 2*ArkG1Size + ArkG2Size
)

const (
	// arkworks keeps the flags in the two most significant bits of the last
	// (little endian) byte.
	arkFlagMask     byte = 0b11 << 6
	arkFlagInfinity byte = 0b01 << 6
	// set when y is the lexicographically largest of y and -y
	arkFlagNegative byte = 0b10 << 6

	// gnark keeps them in the first (big endian) byte.
	gnarkCompressedSmallest byte = 0b10 << 6
	gnarkCompressedLargest  byte = 0b11 << 6
)

// ArkG1 encodes a G1 point as the little endian x coordinate with the
// arkworks flags.
func ArkG1(p *bn254.G1Affine) []byte {
	out := make([]byte, ArkG1Size)
	if p.IsInfinity() {
		out[ArkG1Size-1] = arkFlagInfinity
		return out
	}
	x := p.X.Bytes()
	copy(out, reversed(x[:]))
	if p.Y.LexicographicallyLargest() {
		out[ArkG1Size-1] |= arkFlagNegative
	}
	return out
}

// ArkG1FromBytes decodes a G1 point encoded by ArkG1. The point is checked to
// be on the curve.
func ArkG1FromBytes(b []byte) (bn254.G1Affine, error) {
	var p bn254.G1Affine
	if len(b) != ArkG1Size {
		return p, fmt.Errorf("invalid G1 length %d, expected %d", len(b), ArkG1Size)
	}
	be := reversed(b)
	flags := be[0] & arkFlagMask
	be[0] &^= arkFlagMask
	gnarkFlag, infinity, err := gnarkFlags(flags, be)
	if err != nil {
		return p, err
	}
	if infinity {
		return p, nil
	}
	be[0] |= gnarkFlag
	if _, err := p.SetBytes(be); err != nil {
		return p, fmt.Errorf("invalid G1 point: %w", err)
	}
	return p, nil
}

// ArkG2 encodes a G2 point as x.A0 || x.A1, both little endian, with the
// arkworks flags in the last byte.
func ArkG2(p *bn254.G2Affine) []byte {
	out := make([]byte, ArkG2Size)
	if p.IsInfinity() {
		out[ArkG2Size-1] = arkFlagInfinity
		return out
	}
	a0, a1 := p.X.A0.Bytes(), p.X.A1.Bytes()
	copy(out[:32], reversed(a0[:]))
	copy(out[32:], reversed(a1[:]))
	if p.Y.LexicographicallyLargest() {
		out[ArkG2Size-1] |= arkFlagNegative
	}
	return out
}

// ArkG2FromBytes decodes a G2 point encoded by ArkG2. The point is checked to
// be on the curve and in the prime order subgroup.
func ArkG2FromBytes(b []byte) (bn254.G2Affine, error) {
	var p bn254.G2Affine
	if len(b) != ArkG2Size {
		return p, fmt.Errorf("invalid G2 length %d, expected %d", len(b), ArkG2Size)
	}
	// gnark layout is A1 || A0, big endian
	be := append(reversed(b[32:]), reversed(b[:32])...)
	flags := be[0] & arkFlagMask
	be[0] &^= arkFlagMask
	gnarkFlag, infinity, err := gnarkFlags(flags, be)
	if err != nil {
		return p, err
	}
	if infinity {
		return p, nil
	}
	be[0] |= gnarkFlag
	if _, err := p.SetBytes(be); err != nil {
		return p, fmt.Errorf("invalid G2 point: %w", err)
	}
	return p, nil
}

// ArkScalar encodes a scalar field element as 32 little endian bytes.
func ArkScalar(x *big.Int) []byte {
	return arbo.BigIntToBytes(SerializedFieldSize, x)
}

// ArkScalarFromBytes decodes a scalar encoded by ArkScalar, rejecting values
// outside of the BN254 scalar field.
func ArkScalarFromBytes(b []byte) (*big.Int, error) {
	if len(b) != SerializedFieldSize {
		return nil, fmt.Errorf("invalid scalar length %d, expected %d", len(b), SerializedFieldSize)
	}
	x := arbo.BytesToBigInt(b)
	if x.Cmp(ecc.BN254.ScalarField()) >= 0 {
		return nil, fmt.Errorf("scalar %s out of field", x)
	}
	return x, nil
}

// ArkPublicInputs concatenates the encoded public inputs, without any length
// prefix.
func ArkPublicInputs(inputs []*big.Int) []byte {
	out := make([]byte, 0, len(inputs)*SerializedFieldSize)
	for _, x := range inputs {
		out = append(out, ArkScalar(x)...)
	}
	return out
}

// ArkPublicInputsFromBytes splits and decodes a concatenation of scalars.
func ArkPublicInputsFromBytes(b []byte) ([]*big.Int, error) {
	if len(b)%SerializedFieldSize != 0 {
		return nil, fmt.Errorf("invalid public inputs length %d", len(b))
	}
	inputs := make([]*big.Int, 0, len(b)/SerializedFieldSize)
	for i := 0; i < len(b); i += SerializedFieldSize {
		x, err := ArkScalarFromBytes(b[i : i+SerializedFieldSize])
		if err != nil {
			return nil, fmt.Errorf("public input %d: %w", i/SerializedFieldSize, err)
		}
		inputs = append(inputs, x)
	}
	return inputs, nil
}

// ArkProof encodes a proof as A || B || C.
func ArkProof(proof *groth16_bn254.Proof) ([]byte, error) {
	if len(proof.Commitments) > 0 {
		return nil, fmt.Errorf("proofs with commitments are not supported")
	}
	out := make([]byte, 0, ArkProofSize)
	out = append(out, ArkG1(&proof.Ar)...)
	out = append(out, ArkG2(&proof.Bs)...)
	out = append(out, ArkG1(&proof.Krs)...)
	return out, nil
}

// ArkProofFromBytes decodes a proof encoded by ArkProof.
func ArkProofFromBytes(b []byte) (*groth16_bn254.Proof, error) {
	if len(b) != ArkProofSize {
		return nil, fmt.Errorf("invalid proof length %d, expected %d", len(b), ArkProofSize)
	}
	var err error
	proof := &groth16_bn254.Proof{}
	if proof.Ar, err = ArkG1FromBytes(b[:ArkG1Size]); err != nil {
		return nil, fmt.Errorf("proof A: %w", err)
	}
	if proof.Bs, err = ArkG2FromBytes(b[ArkG1Size : ArkG1Size+ArkG2Size]); err != nil {
		return nil, fmt.Errorf("proof B: %w", err)
	}
	if proof.Krs, err = ArkG1FromBytes(b[ArkG1Size+ArkG2Size:]); err != nil {
		return nil, fmt.Errorf("proof C: %w", err)
	}
	return proof, nil
}

// ArkVerifyingKey encodes a verifying key as alpha(G1) beta(G2) gamma(G2)
// delta(G2) followed by the u64 little endian count of IC points and the
// points themselves.
func ArkVerifyingKey(vk *groth16_bn254.VerifyingKey) ([]byte, error) {
	if len(vk.CommitmentKeys) > 0 {
		return nil, fmt.Errorf("verifying keys with commitments are not supported")
	}
	buf := bytes.Buffer{}
	buf.Write(ArkG1(&vk.G1.Alpha))
	buf.Write(ArkG2(&vk.G2.Beta))
	buf.Write(ArkG2(&vk.G2.Gamma))
	buf.Write(ArkG2(&vk.G2.Delta))
	buf.Write(binary.LittleEndian.AppendUint64(nil, uint64(len(vk.G1.K))))
	for i := range vk.G1.K {
		buf.Write(ArkG1(&vk.G1.K[i]))
	}
	return buf.Bytes(), nil
}

// ArkVerifyingKeyFromBytes decodes a verifying key encoded by
// ArkVerifyingKey. The returned key is precomputed and ready to verify.
func ArkVerifyingKeyFromBytes(b []byte) (*groth16_bn254.VerifyingKey, error) {
	const header = ArkG1Size + 3*ArkG2Size + 8
	if len(b) < header {
		return nil, fmt.Errorf("verifying key too short: %d bytes", len(b))
	}
	var err error
	vk := &groth16_bn254.VerifyingKey{}
	offset := 0
	next := func(n int) []byte {
		s := b[offset : offset+n]
		offset += n
		return s
	}
	if vk.G1.Alpha, err = ArkG1FromBytes(next(ArkG1Size)); err != nil {
		return nil, fmt.Errorf("vk alpha: %w", err)
	}
	if vk.G2.Beta, err = ArkG2FromBytes(next(ArkG2Size)); err != nil {
		return nil, fmt.Errorf("vk beta: %w", err)
	}
	if vk.G2.Gamma, err = ArkG2FromBytes(next(ArkG2Size)); err != nil {
		return nil, fmt.Errorf("vk gamma: %w", err)
	}
	if vk.G2.Delta, err = ArkG2FromBytes(next(ArkG2Size)); err != nil {
		return nil, fmt.Errorf("vk delta: %w", err)
	}
	count := binary.LittleEndian.Uint64(next(8))
	if uint64(len(b)-offset) != count*ArkG1Size {
		return nil, fmt.Errorf("vk declares %d IC points but has %d bytes left", count, len(b)-offset)
	}
	vk.G1.K = make([]bn254.G1Affine, count)
	for i := range vk.G1.K {
		if vk.G1.K[i], err = ArkG1FromBytes(next(ArkG1Size)); err != nil {
			return nil, fmt.Errorf("vk IC %d: %w", i, err)
		}
	}
	if err := vk.Precompute(); err != nil {
		return nil, fmt.Errorf("vk precompute: %w", err)
	}
	return vk, nil
}

func gnarkFlags(arkFlags byte, be []byte) (flag byte, infinity bool, err error) {
	switch arkFlags {
	case arkFlagInfinity:
		for _, v := range be {
			if v != 0 {
				return 0, false, fmt.Errorf("infinity flag set on a non zero point")
			}
		}
		return 0, true, nil
	case arkFlagNegative:
		return gnarkCompressedLargest, false, nil
	case 0:
		return gnarkCompressedSmallest, false, nil
	default:
		return 0, false, fmt.Errorf("invalid point flags %08b", arkFlags)
	}
}

func reversed(b []byte) []byte {
	out := make([]byte, len(b))
	for i := range b {
		out[len(b)-1-i] = b[i]
	}
	return out
}
