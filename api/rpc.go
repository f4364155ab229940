package api

import (
	"context"

	"github.com/vocdoni/rui-backend/log"
	"github.com/vocdoni/rui-backend/storage"
	"github.com/vocdoni/rui-backend/types"
)

// ruiService holds the methods of the rui namespace. The go-ethereum rpc
// server exposes each exported method lowerCamel cased.
type ruiService struct {
	api *API
}

// AddMember registers an identity commitment in the group and returns the
// transaction digest.
func (s *ruiService) AddMember(ctx context.Context, req AddMemberRequest) (string, error) {
	digest, err := s.api.board.AddMember(ctx, req.IdentityCommitment)
	return digest, toAPIError(err)
}

// AddAnswer submits an anonymous answer and returns the transaction digest.
func (s *ruiService) AddAnswer(ctx context.Context, req AddAnswerRequest) (string, error) {
	digest, err := s.api.board.AddAnswer(ctx, req.toBoard())
	return digest, toAPIError(err)
}

// Receipt returns the journaled receipt of a transaction digest.
func (s *ruiService) Receipt(_ context.Context, digest string) (*storage.Receipt, error) {
	r, err := s.api.board.Receipt(digest)
	if err != nil {
		return nil, toAPIError(err)
	}
	return r, nil
}

// VerifyingKey returns the ark encoded verifying key of the circuit.
func (s *ruiService) VerifyingKey(ctx context.Context) (types.HexBytes, error) {
	if s.api.keys == nil {
		return nil, ErrVerifyingKeyMissing
	}
	vk, err := s.api.keys.VerifyingKey(ctx)
	if err != nil {
		log.Warnw("cannot load verifying key", "error", err.Error())
		return nil, ErrVerifyingKeyMissing.WithErr(err)
	}
	return vk, nil
}
