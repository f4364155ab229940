package board

import "fmt"

// AnswerMode selects the shape of the add_answer call of the deployment.
type AnswerMode string

const (
	// AnswerGated answers carry a membership proof:
	// add_answer(verifying_key, proof, public_inputs, question, answer).
	AnswerGated AnswerMode = "gated"
	// AnswerUngated answers are submitted without proof:
	// add_answer(question, answer).
	AnswerUngated AnswerMode = "ungated"
)

// ParseAnswerMode validates the mode name. An empty name is the gated mode.
func ParseAnswerMode(s string) (AnswerMode, error) {
	switch AnswerMode(s) {
	case "", AnswerGated:
		return AnswerGated, nil
	case AnswerUngated:
		return AnswerUngated, nil
	}
	return "", fmt.Errorf("unknown answer mode %q", s)
}
