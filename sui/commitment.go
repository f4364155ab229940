package sui

import (
	"fmt"
	"math/big"

	"github.com/vocdoni/rui-backend/circuits"
	"github.com/vocdoni/rui-backend/util"
)

// CommitmentEncoding is how identity commitments are stored in the
// vector<u8> member field of a group.
type CommitmentEncoding string

const (
	// CommitmentDecimal stores the ASCII decimal digits of the commitment.
	CommitmentDecimal CommitmentEncoding = "decimal"
	// CommitmentBytes stores the big endian bytes of the commitment.
	CommitmentBytes CommitmentEncoding = "bytes"
)

// ParseCommitmentEncoding validates the encoding name. An empty name is the
// decimal encoding.
func ParseCommitmentEncoding(s string) (CommitmentEncoding, error) {
	switch CommitmentEncoding(s) {
	case "", CommitmentDecimal:
		return CommitmentDecimal, nil
	case CommitmentBytes:
		return CommitmentBytes, nil
	}
	return "", fmt.Errorf("unknown commitment encoding %q", s)
}

// EncodeCommitment returns the member field value of the commitment.
func (e CommitmentEncoding) EncodeCommitment(commitment *big.Int) []byte {
	if e == CommitmentBytes {
		buf := make([]byte, circuits.SerializedFieldSize)
		return commitment.FillBytes(buf)
	}
	return []byte(commitment.String())
}

// DecodeCommitment parses a member field value. An empty value is zero. Byte
// values shorter than a field element are zero extended.
func (e CommitmentEncoding) DecodeCommitment(raw []byte) (*big.Int, error) {
	x := new(big.Int)
	switch e {
	case CommitmentBytes:
		if len(raw) > circuits.SerializedFieldSize {
			return nil, fmt.Errorf("%w: commitment of %d bytes", ErrDecode, len(raw))
		}
		x.SetBytes(raw)
	default:
		for _, b := range raw {
			if b < '0' || b > '9' {
				return nil, fmt.Errorf("%w: commitment is not decimal", ErrDecode)
			}
		}
		if len(raw) > 0 {
			x.SetString(string(raw), 10)
		}
	}
	if !util.InField(x) {
		return nil, fmt.Errorf("%w: commitment exceeds the field modulus", ErrDecode)
	}
	return x, nil
}
