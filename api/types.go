package api

import (
	"github.com/vocdoni/rui-backend/board"
)

// AddMemberRequest is the parameter of rui_addMember.
type AddMemberRequest struct {
	// IdentityCommitment is the decimal commitment of the new member.
	IdentityCommitment string `json:"identityCommitment"`
}

// AddAnswerRequest is the parameter of rui_addAnswer. The secret, message
// and scope are base 10 scalars.
type AddAnswerRequest struct {
	SecretBytes  string `json:"secretBytes"`
	MessageBytes string `json:"messageBytes"`
	ScopeBytes   string `json:"scopeBytes"`
	QuestionID   string `json:"questionId"`
	Answer       string `json:"answer"`
}

func (r *AddAnswerRequest) toBoard() *board.AnswerRequest {
	return &board.AnswerRequest{
		Secret:     r.SecretBytes,
		Message:    r.MessageBytes,
		Scope:      r.ScopeBytes,
		QuestionID: r.QuestionID,
		Answer:     r.Answer,
	}
}
