package storage

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

// Artifact encoding/decoding
func encodeArtifact(a any) ([]byte, error) {
	encOpts := cbor.CoreDetEncOptions()
	em, err := encOpts.EncMode()
	if err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	return em.Marshal(a)
}

func decodeArtifact(data []byte, out any) error {
	return cbor.Unmarshal(data, out)
}

// setArtifacts encodes and stores the artifacts under the key of each
// prefix, in a single transaction.
func (s *Storage) setArtifacts(entries ...artifactEntry) error {
	wTx := s.db.WriteTx()
	defer wTx.Discard()
	for _, e := range entries {
		data, err := encodeArtifact(e.value)
		if err != nil {
			return err
		}
		if err := prefixeddb.NewPrefixedWriteTx(wTx, e.prefix).Set(e.key, data); err != nil {
			return fmt.Errorf("set artifact: %w", err)
		}
	}
	return wTx.Commit()
}

type artifactEntry struct {
	prefix []byte
	key    []byte
	value  any
}

// getArtifact decodes the artifact stored at prefix+key into out. It returns
// ErrNotFound if there is none.
func (s *Storage) getArtifact(prefix, key []byte, out any) error {
	data, err := prefixeddb.NewPrefixedReader(s.db, prefix).Get(key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("get artifact: %w", err)
	}
	return decodeArtifact(data, out)
}

// iterateArtifacts calls fn with the raw value of every artifact of the
// prefix until it returns false.
func (s *Storage) iterateArtifacts(prefix []byte, fn func(key, value []byte) bool) error {
	return prefixeddb.NewPrefixedReader(s.db, prefix).Iterate(nil, fn)
}
