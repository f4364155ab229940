package storage

import (
	"github.com/google/uuid"
	"github.com/vocdoni/rui-backend/types"
)

// ReceiptKind is the operation that produced a receipt.
type ReceiptKind string

const (
	KindAddMember ReceiptKind = "addMember"
	KindAddAnswer ReceiptKind = "addAnswer"
)

// Receipt is the journal entry of a submission request.
type Receipt struct {
	RequestID uuid.UUID   `json:"requestId" cbor:"requestId"`
	Kind      ReceiptKind `json:"kind" cbor:"kind"`
	// Digest is empty if the transaction was never accepted by the node.
	Digest         string `json:"digest,omitempty" cbor:"digest,omitempty"`
	Call           string `json:"call,omitempty" cbor:"call,omitempty"`
	Status         string `json:"status,omitempty" cbor:"status,omitempty"`
	GasUsed        int64  `json:"gasUsed,omitempty" cbor:"gasUsed,omitempty"`
	DigestVerified bool   `json:"digestVerified" cbor:"digestVerified"`
	// GroupVersion is the version of the group object the proof was built
	// against.
	GroupVersion uint64         `json:"groupVersion,omitempty" cbor:"groupVersion,omitempty"`
	Commitment   *types.BigInt  `json:"commitment,omitempty" cbor:"commitment,omitempty"`
	Nullifier    *types.BigInt  `json:"nullifier,omitempty" cbor:"nullifier,omitempty"`
	Question     string         `json:"question,omitempty" cbor:"question,omitempty"`
	GroupHash    types.HexBytes `json:"groupHash,omitempty" cbor:"groupHash,omitempty"`
	Error        string         `json:"error,omitempty" cbor:"error,omitempty"`
	// Time is the unix time of the receipt.
	Time int64 `json:"time" cbor:"time"`
}

// Succeeded reports whether the transaction was executed successfully.
func (r *Receipt) Succeeded() bool {
	return r.Error == "" && r.Status == "success"
}
