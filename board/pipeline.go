// Package board runs the requests of the anonymous board: it registers
// identity commitments in the group and submits answers, gated by a
// membership proof built against the current group state.
package board

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/vocdoni/rui-backend/circuits"
	"github.com/vocdoni/rui-backend/circuits/membership"
	"github.com/vocdoni/rui-backend/log"
	"github.com/vocdoni/rui-backend/storage"
	"github.com/vocdoni/rui-backend/sui"
	"github.com/vocdoni/rui-backend/types"
)

// Ledger is the subset of sui.Client used by the pipeline.
type Ledger interface {
	Group(ctx context.Context, id sui.ObjectID) (*sui.Group, error)
	ObjectArg(ctx context.Context, id sui.ObjectID, mutable bool) (sui.CallArg, error)
	Execute(ctx context.Context, call *sui.MoveCall) (*sui.Receipt, error)
	CommitmentEncoding() sui.CommitmentEncoding
}

// Config holds the deployment the pipeline submits to.
type Config struct {
	Package    sui.ObjectID
	Group      sui.ObjectID
	AnswerMode AnswerMode
}

// AnswerRequest is an anonymous answer. Secret, Message and Scope are base 10
// scalars; the secret never leaves the process.
type AnswerRequest struct {
	Secret     string
	Message    string
	Scope      string
	QuestionID string
	Answer     string
}

// Pipeline executes the board requests. Each request runs its stages in
// order (group read, witness, proof, assembly, submission) and is attempted
// once.
type Pipeline struct {
	ledger  Ledger
	prover  membership.Prover
	journal *storage.Storage
	cfg     Config
}

// NewPipeline returns a pipeline. The prover is only used in gated mode and
// the journal may be nil.
func NewPipeline(ledger Ledger, prover membership.Prover, journal *storage.Storage, cfg Config) *Pipeline {
	if cfg.AnswerMode == "" {
		cfg.AnswerMode = AnswerGated
	}
	return &Pipeline{ledger: ledger, prover: prover, journal: journal, cfg: cfg}
}

// AnswerMode returns the configured answer mode.
func (p *Pipeline) AnswerMode() AnswerMode {
	return p.cfg.AnswerMode
}

// AddMember registers the decimal identity commitment in the group and
// returns the transaction digest.
func (p *Pipeline) AddMember(ctx context.Context, commitment string) (digest string, err error) {
	defer func() { observeRequest(string(storage.KindAddMember), err) }()
	x, err := membership.ParseScalar(commitment)
	if err != nil {
		return "", fmt.Errorf("identity commitment: %w", err)
	}
	entry := &storage.Receipt{
		RequestID:  uuid.New(),
		Kind:       storage.KindAddMember,
		Commitment: new(types.BigInt).SetBigInt(x),
	}
	receipt, err := p.addMember(ctx, x, entry)
	p.record(entry, receipt, err)
	if err != nil {
		return "", err
	}
	return receipt.Digest, nil
}

func (p *Pipeline) addMember(ctx context.Context, commitment *big.Int, entry *storage.Receipt) (*sui.Receipt, error) {
	group, err := p.ledger.Group(ctx, p.cfg.Group)
	if err != nil {
		return nil, err
	}
	entry.GroupVersion = group.Object.Version
	if group.Size >= membership.MaxMembers {
		return nil, fmt.Errorf("%w: the group already has %d members", sui.ErrCapacityExceeded, group.Size)
	}
	groupArg, err := group.Arg(true)
	if err != nil {
		return nil, err
	}
	call := AddMemberCall(p.cfg.Package, groupArg, p.ledger.CommitmentEncoding().EncodeCommitment(commitment))
	log.Debugw("adding member", "requestId", entry.RequestID.String(), "group", p.cfg.Group.String())
	return p.ledger.Execute(ctx, call)
}

// AddAnswer submits the answer to the question and returns the transaction
// digest. In gated mode the answer carries a proof that the secret belongs
// to the group.
func (p *Pipeline) AddAnswer(ctx context.Context, req *AnswerRequest) (digest string, err error) {
	defer func() { observeRequest(string(storage.KindAddAnswer), err) }()
	question, err := sui.ParseAddress(req.QuestionID)
	if err != nil {
		return "", fmt.Errorf("%w: question id: %v", ErrInvalidRequest, err)
	}
	entry := &storage.Receipt{
		RequestID: uuid.New(),
		Kind:      storage.KindAddAnswer,
		Question:  question.String(),
	}
	var proof *membership.Artifacts
	if p.cfg.AnswerMode == AnswerGated {
		if proof, err = p.prove(ctx, req, entry); err != nil {
			// requests refused before reaching the ledger are not journaled
			if errors.Is(err, membership.ErrMalformedScalar) || errors.Is(err, membership.ErrNotMember) {
				return "", err
			}
			p.record(entry, nil, err)
			return "", err
		}
	}
	receipt, err := p.addAnswer(ctx, question, proof, req.Answer)
	p.record(entry, receipt, err)
	if err != nil {
		return "", err
	}
	return receipt.Digest, nil
}

// prove builds the witness from the current group state and proves it.
func (p *Pipeline) prove(ctx context.Context, req *AnswerRequest, entry *storage.Receipt) (*membership.Artifacts, error) {
	group, err := p.ledger.Group(ctx, p.cfg.Group)
	if err != nil {
		return nil, err
	}
	entry.GroupVersion = group.Object.Version
	w, err := membership.NewWitness(req.Secret, group.Members, req.Message, req.Scope)
	if err != nil {
		return nil, err
	}
	if !w.IsMember() {
		return nil, membership.ErrNotMember
	}
	entry.Nullifier = new(types.BigInt).SetBigInt(w.Nullifier)
	entry.GroupHash = w.GroupHash.FillBytes(make(types.HexBytes, circuits.SerializedFieldSize))

	start := time.Now()
	proof, err := p.prover.Prove(ctx, w)
	proofDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	log.Debugw("membership proof generated", "requestId", entry.RequestID.String(),
		"groupVersion", group.Object.Version, "took", time.Since(start).String())
	return proof, nil
}

func (p *Pipeline) addAnswer(ctx context.Context, question sui.ObjectID, proof *membership.Artifacts, answer string) (*sui.Receipt, error) {
	questionArg, err := p.ledger.ObjectArg(ctx, question, true)
	if err != nil {
		return nil, err
	}
	call := UngatedAnswerCall(p.cfg.Package, questionArg, answer)
	if proof != nil {
		call = AddAnswerCall(p.cfg.Package, proof, questionArg, answer)
	}
	return p.ledger.Execute(ctx, call)
}

// Receipt returns the journaled receipt of a transaction digest.
func (p *Pipeline) Receipt(digest string) (*storage.Receipt, error) {
	if p.journal == nil {
		return nil, storage.ErrNotFound
	}
	return p.journal.ReceiptByDigest(digest)
}

// record writes the outcome of the request to the journal. Journal failures
// are logged and do not fail the request, the ledger already has its result.
func (p *Pipeline) record(entry *storage.Receipt, receipt *sui.Receipt, err error) {
	if receipt != nil {
		entry.Digest = receipt.Digest
		entry.Call = receipt.Call
		entry.Status = receipt.Status
		entry.GasUsed = receipt.GasUsed
		entry.DigestVerified = receipt.DigestVerified
		gasUsedTotal.Add(float64(max(receipt.GasUsed, 0)))
	}
	if err != nil {
		entry.Error = err.Error()
		log.Warnw("request failed", "requestId", entry.RequestID.String(), "kind", string(entry.Kind), "error", err.Error())
	} else {
		log.Infow("request executed", "requestId", entry.RequestID.String(), "kind", string(entry.Kind), "digest", entry.Digest)
	}
	if p.journal == nil {
		return
	}
	if jerr := p.journal.SetReceipt(entry); jerr != nil {
		log.Errorw(jerr, "cannot journal receipt", "requestId", entry.RequestID.String())
	}
}
