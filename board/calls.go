package board

import (
	"github.com/vocdoni/rui-backend/circuits/membership"
	"github.com/vocdoni/rui-backend/sui"
)

// Move entry points of the deployment. Arguments are positional and must
// follow the declared parameter order of each function.
const (
	SemaphoreModule   = "semaphore"
	AddMemberFunction = "add_member"
	BoardModule       = "board"
	AddAnswerFunction = "add_answer"
)

// AddMemberCall returns semaphore::add_member(group, identity_commitment).
func AddMemberCall(pkg sui.ObjectID, group sui.CallArg, commitment []byte) *sui.MoveCall {
	return sui.NewMoveCall(pkg, SemaphoreModule, AddMemberFunction,
		group,
		sui.PureArg(sui.PureBytes(commitment)),
	)
}

// AddAnswerCall returns
// board::add_answer(verifying_key, proof, public_inputs, question, answer).
func AddAnswerCall(pkg sui.ObjectID, proof *membership.Artifacts, question sui.CallArg, answer string) *sui.MoveCall {
	return sui.NewMoveCall(pkg, BoardModule, AddAnswerFunction,
		sui.PureArg(sui.PureBytes(proof.VerifyingKey)),
		sui.PureArg(sui.PureBytes(proof.Proof)),
		sui.PureArg(sui.PureBytes(proof.PublicInputs)),
		question,
		sui.PureArg(sui.PureString(answer)),
	)
}

// UngatedAnswerCall returns board::add_answer(question, answer).
func UngatedAnswerCall(pkg sui.ObjectID, question sui.CallArg, answer string) *sui.MoveCall {
	return sui.NewMoveCall(pkg, BoardModule, AddAnswerFunction,
		question,
		sui.PureArg(sui.PureString(answer)),
	)
}
