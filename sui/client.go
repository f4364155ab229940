// Package sui talks to a Sui full node through its JSON-RPC API: it reads
// the group object, selects the gas coin, assembles programmable
// transactions with a single move call and submits them signed.
package sui

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/vocdoni/rui-backend/circuits"
	"github.com/vocdoni/rui-backend/circuits/membership"
	"github.com/vocdoni/rui-backend/log"
)

const (
	// DefaultGasBudget is the gas budget of the transactions when none is
	// configured.
	DefaultGasBudget = 5_000_000
	// DefaultQueryTimeout bounds every call to the node.
	DefaultQueryTimeout = 30 * time.Second
	// membersField is the field of the group object holding the members.
	membersField = "members"
	// commitmentField is the field of a member holding its commitment.
	commitmentField = "identity_commitment"
)

// Caller performs JSON-RPC calls. It is implemented by rpc.Client.
type Caller interface {
	// Call may retry the call on another endpoint.
	Call(ctx context.Context, result any, method string, args ...any) error
	// CallOnce performs the call a single time.
	CallOnce(ctx context.Context, result any, method string, args ...any) error
}

// Config holds the Client settings.
type Config struct {
	// GasBudget of every transaction, DefaultGasBudget if zero.
	GasBudget uint64
	// GasPrice of every transaction. If zero the reference gas price of the
	// network is used.
	GasPrice uint64
	// CommitmentEncoding of the group members.
	CommitmentEncoding CommitmentEncoding
	// QueryTimeout of every node call, DefaultQueryTimeout if zero.
	QueryTimeout time.Duration
}

// Client reads from and writes to the ledger through a node.
type Client struct {
	rpc    Caller
	signer Signer
	cfg    Config
}

// NewClient returns a client using the caller and signer provided. The
// signer may be nil for read only clients.
func NewClient(rpc Caller, signer Signer, cfg Config) *Client {
	if cfg.GasBudget == 0 {
		cfg.GasBudget = DefaultGasBudget
	}
	if cfg.QueryTimeout == 0 {
		cfg.QueryTimeout = DefaultQueryTimeout
	}
	if cfg.CommitmentEncoding == "" {
		cfg.CommitmentEncoding = CommitmentDecimal
	}
	return &Client{rpc: rpc, signer: signer, cfg: cfg}
}

// Sender returns the address signing the transactions.
func (c *Client) Sender() (Address, error) {
	if c.signer == nil {
		return Address{}, fmt.Errorf("%w: no signer configured", ErrSigning)
	}
	return c.signer.Address(), nil
}

// CommitmentEncoding returns the encoding of the group members.
func (c *Client) CommitmentEncoding() CommitmentEncoding {
	return c.cfg.CommitmentEncoding
}

// Object fetches the current version of an object with its type, owner and
// content.
func (c *Client) Object(ctx context.Context, id ObjectID) (*ObjectData, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.QueryTimeout)
	defer cancel()
	var res ObjectResponse
	opts := ObjectDataOptions{ShowType: true, ShowOwner: true, ShowContent: true}
	if err := c.rpc.Call(ctx, &res, methodGetObject, id, opts); err != nil {
		return nil, fmt.Errorf("%w: object %s: %v", ErrLedgerQuery, id, err)
	}
	if res.Error != nil {
		return nil, fmt.Errorf("%w: object %s: %s", ErrLedgerQuery, id, res.Error.Code)
	}
	if res.Data == nil {
		return nil, fmt.Errorf("%w: object %s not found", ErrLedgerQuery, id)
	}
	return res.Data, nil
}

// ObjectArg returns the call argument of the object: by reference if owned
// or immutable, by initial shared version if shared.
func (c *Client) ObjectArg(ctx context.Context, id ObjectID, mutable bool) (CallArg, error) {
	obj, err := c.Object(ctx, id)
	if err != nil {
		return CallArg{}, err
	}
	return objectCallArg(obj, mutable)
}

func objectCallArg(obj *ObjectData, mutable bool) (CallArg, error) {
	if obj.Owner == nil {
		return CallArg{}, fmt.Errorf("%w: object %s without owner", ErrDecode, obj.ObjectID)
	}
	if obj.Owner.Kind == OwnerShared {
		return SharedObjectArg(obj.ObjectID, obj.Owner.InitialSharedVersion, mutable), nil
	}
	return OwnedObjectArg(obj.Ref()), nil
}

// Group is the decoded state of a group object.
type Group struct {
	Object *ObjectData
	// Members holds the member commitments in ledger order, zero padded.
	Members [membership.MaxMembers]*big.Int
	// Size is the number of real members.
	Size int
}

// Arg returns the group as a call argument.
func (g *Group) Arg(mutable bool) (CallArg, error) {
	return objectCallArg(g.Object, mutable)
}

// Group fetches the group object and decodes its members. A group with more
// members than the circuit slots is refused with ErrCapacityExceeded.
func (c *Client) Group(ctx context.Context, id ObjectID) (*Group, error) {
	obj, err := c.Object(ctx, id)
	if err != nil {
		return nil, err
	}
	commitments, err := decodeMembers(obj, c.cfg.CommitmentEncoding)
	if err != nil {
		return nil, err
	}
	if len(commitments) > membership.MaxMembers {
		return nil, fmt.Errorf("%w: %d members, %d slots", ErrCapacityExceeded, len(commitments), membership.MaxMembers)
	}
	group := &Group{Object: obj, Size: len(commitments)}
	copy(group.Members[:], circuits.BigIntArrayToN(commitments, membership.MaxMembers))
	log.Debugw("group fetched", "id", id.String(), "version", obj.Version, "members", group.Size)
	return group, nil
}

func decodeMembers(obj *ObjectData, enc CommitmentEncoding) ([]*big.Int, error) {
	if obj.Content == nil || obj.Content.Fields == nil {
		return nil, fmt.Errorf("%w: object %s has no content", ErrDecode, obj.ObjectID)
	}
	rawMembers, ok := obj.Content.Fields[membersField]
	if !ok {
		return nil, fmt.Errorf("%w: object %s has no %s field", ErrDecode, obj.ObjectID, membersField)
	}
	if isNull(rawMembers) {
		return nil, fmt.Errorf("%w: %s is null", ErrDecode, membersField)
	}
	var members []json.RawMessage
	if err := json.Unmarshal(rawMembers, &members); err != nil {
		return nil, fmt.Errorf("%w: %s is not a vector: %v", ErrDecode, membersField, err)
	}
	commitments := make([]*big.Int, 0, len(members))
	for i, raw := range members {
		value, err := memberCommitment(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: member %d: %v", ErrDecode, i, err)
		}
		commitment, err := enc.DecodeCommitment(value)
		if err != nil {
			return nil, fmt.Errorf("member %d: %w", i, err)
		}
		commitments = append(commitments, commitment)
	}
	return commitments, nil
}

// isNull reports whether the raw value is the JSON null, which decodes into
// an empty slice without error.
func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// memberCommitment extracts the commitment bytes of a member struct, which
// the node returns either as {"type": .., "fields": {..}} or flattened.
func memberCommitment(raw json.RawMessage) ([]byte, error) {
	var member struct {
		Fields             map[string]json.RawMessage `json:"fields"`
		IdentityCommitment json.RawMessage            `json:"identity_commitment"`
	}
	if err := json.Unmarshal(raw, &member); err != nil {
		return nil, fmt.Errorf("member is not a struct: %v", err)
	}
	value := member.IdentityCommitment
	if member.Fields != nil {
		value = member.Fields[commitmentField]
	}
	if value == nil {
		return nil, fmt.Errorf("no %s field", commitmentField)
	}
	if isNull(value) {
		return nil, fmt.Errorf("%s is null", commitmentField)
	}
	// vector<u8> is shown as an array of numbers, a base64 string is accepted too
	var numbers []int
	if err := json.Unmarshal(value, &numbers); err != nil {
		var b64 string
		if json.Unmarshal(value, &b64) != nil {
			return nil, fmt.Errorf("%s is not a byte vector: %v", commitmentField, err)
		}
		return base64.StdEncoding.DecodeString(b64)
	}
	out := make([]byte, len(numbers))
	for i, n := range numbers {
		if n < 0 || n > 255 {
			return nil, fmt.Errorf("%s has a non byte value %d", commitmentField, n)
		}
		out[i] = byte(n)
	}
	return out, nil
}

// GasCoin returns the first gas coin owned by the address, in the order the
// node lists the owned objects. The balance is not checked.
func (c *Client) GasCoin(ctx context.Context, owner Address) (ObjectRef, error) {
	query := ObjectResponseQuery{Options: &ObjectDataOptions{ShowType: true}}
	var cursor *string
	for {
		page, err := c.ownedObjects(ctx, owner, query, cursor)
		if err != nil {
			return ObjectRef{}, err
		}
		for _, item := range page.Data {
			if item.Data != nil && item.Data.Type == GasCoinType {
				return item.Data.Ref(), nil
			}
		}
		if !page.HasNextPage || page.NextCursor == nil {
			return ObjectRef{}, fmt.Errorf("%w: %s", ErrNoFeeResource, owner)
		}
		cursor = page.NextCursor
	}
}

func (c *Client) ownedObjects(ctx context.Context, owner Address, query ObjectResponseQuery, cursor *string) (*ObjectsPage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.QueryTimeout)
	defer cancel()
	page := &ObjectsPage{}
	if err := c.rpc.Call(ctx, page, methodGetOwnedObjects, owner, query, cursor, defaultOwnedObjectsPageSize); err != nil {
		return nil, fmt.Errorf("%w: owned objects of %s: %v", ErrLedgerQuery, owner, err)
	}
	return page, nil
}

// ReferenceGasPrice returns the reference gas price of the current epoch.
func (c *Client) ReferenceGasPrice(ctx context.Context) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.QueryTimeout)
	defer cancel()
	var raw json.RawMessage
	if err := c.rpc.Call(ctx, &raw, methodGetReferenceGasPrice); err != nil {
		return 0, fmt.Errorf("%w: reference gas price: %v", ErrLedgerQuery, err)
	}
	price, err := parseUint(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: reference gas price %s", ErrDecode, raw)
	}
	return price, nil
}

// Assemble builds the unsigned transaction of the move call: the sender is
// the signer, gas is paid with its first gas coin at the configured or
// reference price.
func (c *Client) Assemble(ctx context.Context, call *MoveCall) (*TransactionData, error) {
	sender, err := c.Sender()
	if err != nil {
		return nil, err
	}
	coin, err := c.GasCoin(ctx, sender)
	if err != nil {
		return nil, err
	}
	price := c.cfg.GasPrice
	if price == 0 {
		if price, err = c.ReferenceGasPrice(ctx); err != nil {
			return nil, err
		}
	}
	return &TransactionData{
		Sender: sender,
		Call:   call,
		Gas: GasData{
			Payment: []ObjectRef{coin},
			Owner:   sender,
			Price:   price,
			Budget:  c.cfg.GasBudget,
		},
	}, nil
}

// Receipt is the outcome of a submitted transaction.
type Receipt struct {
	Digest string `json:"digest"`
	// Call is module::function of the transaction.
	Call   string `json:"call"`
	Status string `json:"status"`
	// GasUsed is computation plus storage cost minus the storage rebate.
	GasUsed int64 `json:"gasUsed"`
	// DigestVerified tells if the node digest matches the one computed
	// locally from the transaction bytes.
	DigestVerified bool `json:"digestVerified"`
}

// Submit signs the transaction and executes it, waiting for local execution
// on the node. It is attempted once: a rejection or a failed execution
// returns ErrSubmission.
func (c *Client) Submit(ctx context.Context, tx *TransactionData) (*Receipt, error) {
	if c.signer == nil {
		return nil, fmt.Errorf("%w: no signer configured", ErrSigning)
	}
	txBytes, err := tx.Bytes()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAssembly, err)
	}
	signature, err := c.signer.SignTransaction(txBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigning, err)
	}
	localDigest := TransactionDigest(txBytes).String()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.QueryTimeout)
	defer cancel()
	var res TransactionBlockResponse
	if err := c.rpc.CallOnce(ctx, &res, methodExecuteTransaction,
		base64.StdEncoding.EncodeToString(txBytes),
		[]string{signature},
		TransactionBlockResponseOptions{ShowEffects: true},
		waitForLocalExecution,
	); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSubmission, err)
	}
	receipt := &Receipt{
		Digest:         res.Digest,
		Call:           tx.Call.Name(),
		DigestVerified: res.Digest == localDigest,
	}
	if !receipt.DigestVerified {
		log.Warnw("node returned a different transaction digest", "node", res.Digest, "local", localDigest)
	}
	if res.Effects == nil {
		return nil, fmt.Errorf("%w: no effects for transaction %s", ErrSubmission, res.Digest)
	}
	receipt.Status = res.Effects.Status.Status
	receipt.GasUsed = res.Effects.GasUsed.net()
	if receipt.Status != executionStatusSuccess {
		return receipt, fmt.Errorf("%w: transaction %s: %s %s", ErrSubmission, res.Digest,
			res.Effects.Status.Status, res.Effects.Status.Error)
	}
	log.Infow("transaction executed", "digest", res.Digest, "call", receipt.Call, "gasUsed", receipt.GasUsed)
	return receipt, nil
}

// Execute assembles, signs and submits the move call.
func (c *Client) Execute(ctx context.Context, call *MoveCall) (*Receipt, error) {
	tx, err := c.Assemble(ctx, call)
	if err != nil {
		return nil, err
	}
	return c.Submit(ctx, tx)
}

func (g GasCostSummary) net() int64 {
	parse := func(s string) int64 {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0
		}
		return v
	}
	return parse(g.ComputationCost) + parse(g.StorageCost) - parse(g.StorageRebate)
}

// IsRetryable reports whether a request failing with err may succeed if
// repeated as a whole.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLedgerQuery)
}
