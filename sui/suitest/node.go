// Package suitest provides an in memory Sui JSON-RPC node for tests. It
// serves the subset of the sui and suix namespaces the backend uses, checks
// the signatures of the executed transactions and records them.
package suitest

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/vocdoni/rui-backend/sui"
	"github.com/vocdoni/rui-backend/sui/keystore"
	"github.com/vocdoni/rui-backend/util"
)

// DefaultChainID is the chain identifier served by new nodes.
const DefaultChainID = "4c78adac"

// ExecutedTransaction is a transaction received by the node.
type ExecutedTransaction struct {
	TxBytes    []byte
	Signatures []string
	Digest     string
}

// Node is the in memory node.
type Node struct {
	mu       sync.Mutex
	chainID  string
	gasPrice uint64
	pageSize int
	objects  map[sui.ObjectID]*sui.ObjectData
	owned    map[sui.Address][]sui.ObjectID
	executed []ExecutedTransaction
	reject   string
	fail     string
	onExec   func(txBytes []byte) error

	rpc    *gethrpc.Server
	server *httptest.Server
}

// NewNode starts a node on a local http server. It is stopped when the test
// ends.
func NewNode(tb testing.TB) *Node {
	n := &Node{
		chainID:  DefaultChainID,
		gasPrice: 1000,
		pageSize: 50,
		objects:  make(map[sui.ObjectID]*sui.ObjectData),
		owned:    make(map[sui.Address][]sui.ObjectID),
		rpc:      gethrpc.NewServer(),
	}
	if err := n.rpc.RegisterName("sui", &suiService{n}); err != nil {
		tb.Fatal(err)
	}
	if err := n.rpc.RegisterName("suix", &suixService{n}); err != nil {
		tb.Fatal(err)
	}
	n.server = httptest.NewServer(n.rpc)
	tb.Cleanup(func() {
		n.server.Close()
		n.rpc.Stop()
	})
	return n
}

// URL returns the JSON-RPC endpoint of the node.
func (n *Node) URL() string {
	return n.server.URL
}

// ChainID returns the chain identifier of the node.
func (n *Node) ChainID() string {
	return n.chainID
}

// SetGasPrice sets the reference gas price.
func (n *Node) SetGasPrice(price uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.gasPrice = price
}

// SetPageSize sets the maximum number of owned objects per page.
func (n *Node) SetPageSize(size int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pageSize = size
}

// RejectNext makes the next transaction execution fail with a JSON-RPC error.
func (n *Node) RejectNext(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reject = msg
}

// FailNext makes the next transaction execute with a failure status.
func (n *Node) FailNext(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.fail = msg
}

// OnExecute sets a hook called with the bytes of every valid transaction.
// A hook error rejects the transaction.
func (n *Node) OnExecute(fn func(txBytes []byte) error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onExec = fn
}

// Executed returns the transactions executed so far.
func (n *Node) Executed() []ExecutedTransaction {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]ExecutedTransaction{}, n.executed...)
}

// AddObject stores an object. Address owned objects are listed as owned by
// their owner.
func (n *Node) AddObject(obj *sui.ObjectData) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.objects[obj.ObjectID]; !ok && obj.Owner != nil && obj.Owner.Kind == sui.OwnerAddress {
		n.owned[obj.Owner.Address] = append(n.owned[obj.Owner.Address], obj.ObjectID)
	}
	n.objects[obj.ObjectID] = obj
}

// AddOwnedObject creates an object of the type provided owned by the address.
func (n *Node) AddOwnedObject(owner sui.Address, typ string) sui.ObjectRef {
	obj := &sui.ObjectData{
		ObjectID: RandomID(),
		Version:  1,
		Digest:   randomDigest(),
		Type:     typ,
		Owner:    &sui.Owner{Kind: sui.OwnerAddress, Address: owner},
	}
	n.AddObject(obj)
	return obj.Ref()
}

// AddGasCoin creates a gas coin owned by the address.
func (n *Node) AddGasCoin(owner sui.Address) sui.ObjectRef {
	return n.AddOwnedObject(owner, sui.GasCoinType)
}

// Member is a group member as stored on the ledger.
type Member struct {
	Commitment []byte
	// Flat members are serialized without the type/fields wrapper.
	Flat bool
}

// SetGroup creates or replaces a group object with the members provided,
// bumping its version.
func (n *Node) SetGroup(id sui.ObjectID, owner sui.Owner, pkg sui.ObjectID, members ...Member) {
	items := make([]any, 0, len(members))
	for _, m := range members {
		// vector<u8> is listed as numbers
		numbers := make([]int, len(m.Commitment))
		for i, b := range m.Commitment {
			numbers[i] = int(b)
		}
		fields := map[string]any{"identity_commitment": numbers}
		if m.Flat {
			items = append(items, fields)
			continue
		}
		items = append(items, map[string]any{
			"type":   pkg.String() + "::semaphore::Member",
			"fields": fields,
		})
	}
	membersJSON, err := json.Marshal(items)
	if err != nil {
		panic(err)
	}
	idJSON, _ := json.Marshal(map[string]any{"id": id.String()})
	n.SetObjectFields(id, owner, pkg.String()+"::semaphore::Group", map[string]json.RawMessage{
		"id":      idJSON,
		"members": membersJSON,
	})
}

// SetObjectFields creates or replaces a move object with raw fields.
func (n *Node) SetObjectFields(id sui.ObjectID, owner sui.Owner, typ string, fields map[string]json.RawMessage) {
	n.mu.Lock()
	version := uint64(1)
	if prev, ok := n.objects[id]; ok {
		version = prev.Version + 1
	}
	n.mu.Unlock()
	n.AddObject(&sui.ObjectData{
		ObjectID: id,
		Version:  version,
		Digest:   randomDigest(),
		Type:     typ,
		Owner:    &owner,
		Content: &sui.MoveObject{
			DataType: "moveObject",
			Type:     typ,
			Fields:   fields,
		},
	})
}

// RandomID returns a random object id.
func RandomID() sui.ObjectID {
	var id sui.ObjectID
	copy(id[:], util.RandomBytes(sui.AddressLength))
	return id
}

func randomDigest() sui.Digest {
	var d sui.Digest
	copy(d[:], util.RandomBytes(len(d)))
	return d
}

type suiService struct {
	n *Node
}

func (s *suiService) GetChainIdentifier() string {
	return s.n.chainID
}

func (s *suiService) GetObject(id sui.ObjectID, opts *sui.ObjectDataOptions) (*sui.ObjectResponse, error) {
	s.n.mu.Lock()
	defer s.n.mu.Unlock()
	obj, ok := s.n.objects[id]
	if !ok {
		return &sui.ObjectResponse{Error: &sui.ObjectResponseError{Code: "notExists", ObjectID: id.String()}}, nil
	}
	return &sui.ObjectResponse{Data: filterObject(obj, opts)}, nil
}

func (s *suiService) ExecuteTransactionBlock(txB64 string, signatures []string,
	opts *sui.TransactionBlockResponseOptions, requestType *string,
) (*sui.TransactionBlockResponse, error) {
	s.n.mu.Lock()
	defer s.n.mu.Unlock()
	if s.n.reject != "" {
		msg := s.n.reject
		s.n.reject = ""
		return nil, errors.New(msg)
	}
	txBytes, err := base64.StdEncoding.DecodeString(txB64)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction bytes: %w", err)
	}
	if len(signatures) != 1 {
		return nil, fmt.Errorf("expected one signature, got %d", len(signatures))
	}
	if err := verifySignature(txBytes, signatures[0]); err != nil {
		return nil, err
	}
	if s.n.onExec != nil {
		if err := s.n.onExec(txBytes); err != nil {
			return nil, err
		}
	}
	digest := sui.TransactionDigest(txBytes).String()
	s.n.executed = append(s.n.executed, ExecutedTransaction{
		TxBytes:    txBytes,
		Signatures: signatures,
		Digest:     digest,
	})
	res := &sui.TransactionBlockResponse{Digest: digest}
	if opts != nil && opts.ShowEffects {
		status := sui.ExecutionStatus{Status: "success"}
		if s.n.fail != "" {
			status = sui.ExecutionStatus{Status: "failure", Error: s.n.fail}
			s.n.fail = ""
		}
		res.Effects = &sui.TransactionEffects{
			Status: status,
			GasUsed: sui.GasCostSummary{
				ComputationCost:         strconv.FormatUint(s.n.gasPrice, 10),
				StorageCost:             "2000",
				StorageRebate:           "500",
				NonRefundableStorageFee: "5",
			},
		}
	}
	return res, nil
}

type suixService struct {
	n *Node
}

func (s *suixService) GetReferenceGasPrice() string {
	s.n.mu.Lock()
	defer s.n.mu.Unlock()
	return strconv.FormatUint(s.n.gasPrice, 10)
}

func (s *suixService) GetOwnedObjects(owner sui.Address, query *sui.ObjectResponseQuery,
	cursor *string, limit *int,
) (*sui.ObjectsPage, error) {
	s.n.mu.Lock()
	defer s.n.mu.Unlock()
	size := s.n.pageSize
	if limit != nil && *limit < size {
		size = *limit
	}
	start := 0
	if cursor != nil {
		var err error
		if start, err = strconv.Atoi(*cursor); err != nil {
			return nil, fmt.Errorf("invalid cursor %q", *cursor)
		}
	}
	var opts *sui.ObjectDataOptions
	if query != nil {
		opts = query.Options
	}
	ids := s.n.owned[owner]
	page := &sui.ObjectsPage{Data: []sui.ObjectResponse{}}
	end := min(start+size, len(ids))
	for _, id := range ids[min(start, end):end] {
		page.Data = append(page.Data, sui.ObjectResponse{Data: filterObject(s.n.objects[id], opts)})
	}
	if end < len(ids) {
		next := strconv.Itoa(end)
		page.NextCursor = &next
		page.HasNextPage = true
	}
	return page, nil
}

func filterObject(obj *sui.ObjectData, opts *sui.ObjectDataOptions) *sui.ObjectData {
	out := &sui.ObjectData{ObjectID: obj.ObjectID, Version: obj.Version, Digest: obj.Digest}
	if opts == nil {
		return out
	}
	if opts.ShowType {
		out.Type = obj.Type
	}
	if opts.ShowOwner {
		out.Owner = obj.Owner
	}
	if opts.ShowContent {
		out.Content = obj.Content
	}
	return out
}

// verifySignature checks a serialized ed25519 or secp256k1 signature of the
// transaction and that it was made by the sender.
func verifySignature(txBytes []byte, signature string) error {
	raw, err := base64.StdEncoding.DecodeString(signature)
	if err != nil || len(raw) < 65 {
		return fmt.Errorf("invalid signature encoding")
	}
	digest := sui.SigningDigest(txBytes)
	flag, sig, pubKey := raw[0], raw[1:65], raw[65:]
	switch flag {
	case 0x00:
		if len(pubKey) != ed25519.PublicKeySize || !ed25519.Verify(pubKey, digest[:], sig) {
			return fmt.Errorf("invalid ed25519 signature")
		}
	case 0x01:
		hash := sha256.Sum256(digest[:])
		if len(pubKey) != 33 || !crypto.VerifySignature(pubKey, hash[:], sig) {
			return fmt.Errorf("invalid secp256k1 signature")
		}
	default:
		return fmt.Errorf("unsupported signature flag %d", flag)
	}
	// the node does not decode the transaction, the sender address must be
	// present in its bytes
	sender := keystore.DeriveAddress(keystore.Scheme(flag), pubKey)
	if !bytes.Contains(txBytes, sender[:]) {
		return fmt.Errorf("signature is not from the transaction sender")
	}
	return nil
}
