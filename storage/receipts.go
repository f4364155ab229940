package storage

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SetReceipt stores or replaces the receipt of a request. The digest index is
// updated when the receipt has a digest. The time is set if missing.
func (s *Storage) SetReceipt(r *Receipt) error {
	if r == nil {
		return fmt.Errorf("nil receipt")
	}
	if r.RequestID == uuid.Nil {
		return fmt.Errorf("receipt without request id")
	}
	if r.Time == 0 {
		r.Time = time.Now().Unix()
	}
	entries := []artifactEntry{{prefix: receiptPrefix, key: r.RequestID[:], value: r}}
	if r.Digest != "" {
		entries = append(entries, artifactEntry{prefix: digestPrefix, key: []byte(r.Digest), value: r.RequestID})
	}
	return s.setArtifacts(entries...)
}

// Receipt returns the receipt of a request, or ErrNotFound.
func (s *Storage) Receipt(requestID uuid.UUID) (*Receipt, error) {
	r := &Receipt{}
	if err := s.getArtifact(receiptPrefix, requestID[:], r); err != nil {
		return nil, err
	}
	return r, nil
}

// ReceiptByDigest returns the receipt of the transaction digest, or
// ErrNotFound.
func (s *Storage) ReceiptByDigest(digest string) (*Receipt, error) {
	if digest == "" {
		return nil, ErrNotFound
	}
	var requestID uuid.UUID
	if err := s.getArtifact(digestPrefix, []byte(digest), &requestID); err != nil {
		return nil, err
	}
	return s.Receipt(requestID)
}

// Receipts returns all the receipts, ordered by request id.
func (s *Storage) Receipts() ([]*Receipt, error) {
	var (
		receipts  []*Receipt
		decodeErr error
	)
	if err := s.iterateArtifacts(receiptPrefix, func(_, v []byte) bool {
		r := &Receipt{}
		if decodeErr = decodeArtifact(v, r); decodeErr != nil {
			return false
		}
		receipts = append(receipts, r)
		return true
	}); err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode receipt: %w", decodeErr)
	}
	return receipts, nil
}
