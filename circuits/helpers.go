package circuits

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
)

// BigIntArrayToN pads the big.Int array to n elements, if needed,
// with zeros.
func BigIntArrayToN(arr []*big.Int, n int) []*big.Int {
	bigArr := make([]*big.Int, n)
	for i := 0; i < n; i++ {
		if i < len(arr) {
			bigArr[i] = arr[i]
		} else {
			bigArr[i] = big.NewInt(0)
		}
	}
	return bigArr
}

// SerializeConstraintSystem returns the binary encoding of the constraint
// system.
func SerializeConstraintSystem(cs constraint.ConstraintSystem) ([]byte, error) {
	buf := bytes.Buffer{}
	if _, err := cs.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("error encoding constraint system: %w", err)
	}
	return buf.Bytes(), nil
}

// SerializeProvingKey returns the raw binary encoding of the proving key.
func SerializeProvingKey(pk groth16.ProvingKey) ([]byte, error) {
	buf := bytes.Buffer{}
	if _, err := pk.WriteRawTo(&buf); err != nil {
		return nil, fmt.Errorf("error encoding proving key: %w", err)
	}
	return buf.Bytes(), nil
}

// SerializeVerifyingKey returns the raw binary encoding of the verifying key.
func SerializeVerifyingKey(vk groth16.VerifyingKey) ([]byte, error) {
	buf := bytes.Buffer{}
	if _, err := vk.WriteRawTo(&buf); err != nil {
		return nil, fmt.Errorf("error encoding verifying key: %w", err)
	}
	return buf.Bytes(), nil
}

// DeserializeConstraintSystem decodes a BN254 constraint system encoded by
// SerializeConstraintSystem.
func DeserializeConstraintSystem(data []byte) (constraint.ConstraintSystem, error) {
	cs := groth16.NewCS(ecc.BN254)
	if _, err := cs.ReadFrom(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("error decoding constraint system: %w", err)
	}
	return cs, nil
}

// DeserializeProvingKey decodes a BN254 proving key.
func DeserializeProvingKey(data []byte) (groth16.ProvingKey, error) {
	pk := groth16.NewProvingKey(ecc.BN254)
	if _, err := pk.UnsafeReadFrom(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("error decoding proving key: %w", err)
	}
	return pk, nil
}

// DeserializeVerifyingKey decodes a BN254 verifying key.
func DeserializeVerifyingKey(data []byte) (groth16.VerifyingKey, error) {
	vk := groth16.NewVerifyingKey(ecc.BN254)
	if _, err := vk.UnsafeReadFrom(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("error decoding verifying key: %w", err)
	}
	return vk, nil
}
