package api_test

import (
	"context"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/rui-backend/api"
	"github.com/vocdoni/rui-backend/api/client"
	"github.com/vocdoni/rui-backend/board"
	"github.com/vocdoni/rui-backend/circuits/membership"
	"github.com/vocdoni/rui-backend/storage"
	"github.com/vocdoni/rui-backend/sui"
	"github.com/vocdoni/rui-backend/sui/keystore"
	"github.com/vocdoni/rui-backend/sui/rpc"
	"github.com/vocdoni/rui-backend/sui/suitest"
	"github.com/vocdoni/rui-backend/types"
)

var testPackage = sui.MustParseAddress("0xb0a4d")

type fakeProver struct{}

func (fakeProver) Prove(context.Context, *membership.Witness) (*membership.Artifacts, error) {
	return &membership.Artifacts{
		VerifyingKey: types.HexBytes{0x01},
		Proof:        types.HexBytes{0x02},
		PublicInputs: types.HexBytes{0x03},
	}, nil
}

type fakeKeys struct{}

func (fakeKeys) VerifyingKey(context.Context) (types.HexBytes, error) {
	return types.HexBytes{0xca, 0xfe}, nil
}

type testAPI struct {
	node     *suitest.Node
	api      *api.API
	client   *client.Client
	question sui.ObjectID
}

func newTestAPI(t *testing.T, keys api.VerifyingKeySource, members ...*big.Int) *testAPI {
	c := qt.New(t)
	node := suitest.NewNode(t)
	pool := rpc.NewPool()
	t.Cleanup(pool.Close)
	chainID, err := pool.AddEndpoint(node.URL())
	c.Assert(err, qt.IsNil)
	rpcClient, err := pool.Client(chainID)
	c.Assert(err, qt.IsNil)
	signer, err := keystore.Generate(keystore.Ed25519)
	c.Assert(err, qt.IsNil)
	node.AddGasCoin(signer.Address())

	group := suitest.RandomID()
	entries := make([]suitest.Member, len(members))
	for i, x := range members {
		entries[i] = suitest.Member{Commitment: sui.CommitmentDecimal.EncodeCommitment(x)}
	}
	node.SetGroup(group, sui.Owner{Kind: sui.OwnerShared, InitialSharedVersion: 1}, testPackage, entries...)
	question := node.AddOwnedObject(signer.Address(), testPackage.String()+"::board::Question").ObjectID

	journal, err := storage.Open("")
	c.Assert(err, qt.IsNil)
	t.Cleanup(func() { _ = journal.Close() })

	pipeline := board.NewPipeline(sui.NewClient(rpcClient, signer, sui.Config{}), fakeProver{}, journal, board.Config{
		Package: testPackage,
		Group:   group,
	})
	a, err := api.New(&api.APIConfig{Address: "127.0.0.1:0", Board: pipeline, Keys: keys})
	c.Assert(err, qt.IsNil)
	c.Assert(a.Start(), qt.IsNil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.Stop(ctx)
		a.Close()
	})

	cli, err := client.New(context.Background(), "http://"+a.Addr())
	c.Assert(err, qt.IsNil)
	t.Cleanup(cli.Close)
	return &testAPI{node: node, api: a, client: cli, question: question}
}

func TestAddMemberRPC(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	ta := newTestAPI(t, nil, big.NewInt(1))

	digest, err := ta.client.AddMember(ctx, "98765")
	c.Assert(err, qt.IsNil)
	executed := ta.node.Executed()
	c.Assert(executed, qt.HasLen, 1)
	c.Assert(digest, qt.Equals, executed[0].Digest)

	receipt, err := ta.client.Receipt(ctx, digest)
	c.Assert(err, qt.IsNil)
	c.Assert(receipt.Kind, qt.Equals, storage.KindAddMember)
	c.Assert(receipt.Commitment.String(), qt.Equals, "98765")
	c.Assert(receipt.Succeeded(), qt.IsTrue)
	c.Assert(receipt.DigestVerified, qt.IsTrue)

	_, err = ta.client.AddMember(ctx, "not a number")
	c.Assert(client.ErrorCode(err), qt.Equals, api.ErrMalformedScalar.Code)
	c.Assert(ta.node.Executed(), qt.HasLen, 1)
}

func TestAddAnswerRPC(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	secret := big.NewInt(424242)
	ta := newTestAPI(t, nil, big.NewInt(5), membership.IdentityCommitment(secret))

	req := &api.AddAnswerRequest{
		SecretBytes:  secret.String(),
		MessageBytes: "1",
		ScopeBytes:   "7",
		QuestionID:   ta.question.String(),
		Answer:       "yes",
	}
	digest, err := ta.client.AddAnswer(ctx, req)
	c.Assert(err, qt.IsNil)
	c.Assert(ta.node.Executed(), qt.HasLen, 1)

	receipt, err := ta.client.Receipt(ctx, digest)
	c.Assert(err, qt.IsNil)
	c.Assert(receipt.Kind, qt.Equals, storage.KindAddAnswer)
	c.Assert(receipt.Question, qt.Equals, ta.question.String())
	c.Assert(receipt.Nullifier.MathBigInt().Cmp(membership.Nullifier(big.NewInt(7), secret)), qt.Equals, 0)

	// the error message never carries the secret
	outsider := *req
	outsider.SecretBytes = "1111"
	_, err = ta.client.AddAnswer(ctx, &outsider)
	c.Assert(client.ErrorCode(err), qt.Equals, api.ErrNotMember.Code)
	c.Assert(strings.Contains(err.Error(), "1111"), qt.IsFalse)

	invalid := *req
	invalid.QuestionID = "question-1"
	_, err = ta.client.AddAnswer(ctx, &invalid)
	c.Assert(client.ErrorCode(err), qt.Equals, api.ErrInvalidQuestion.Code)

	ta.node.RejectNext("object is locked")
	_, err = ta.client.AddAnswer(ctx, req)
	c.Assert(client.ErrorCode(err), qt.Equals, api.ErrSubmission.Code)
	c.Assert(ta.node.Executed(), qt.HasLen, 1)
}

func TestReceiptRPCNotFound(t *testing.T) {
	c := qt.New(t)
	ta := newTestAPI(t, nil)
	_, err := ta.client.Receipt(context.Background(), "8Cz5JxUKCJUeXxbhwqSnLojjsrGzJqPuTDCbqfzsXaqm")
	c.Assert(client.ErrorCode(err), qt.Equals, api.ErrReceiptNotFound.Code)
}

func TestVerifyingKeyRPC(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	ta := newTestAPI(t, nil)
	_, err := ta.client.VerifyingKey(ctx)
	c.Assert(client.ErrorCode(err), qt.Equals, api.ErrVerifyingKeyMissing.Code)

	ta = newTestAPI(t, fakeKeys{})
	vk, err := ta.client.VerifyingKey(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(vk, qt.DeepEquals, types.HexBytes{0xca, 0xfe})

	// per request keys are never shared
	ta = newTestAPI(t, membership.NewEngine(membership.PerRequestSetup()))
	_, err = ta.client.VerifyingKey(ctx)
	c.Assert(client.ErrorCode(err), qt.Equals, api.ErrVerifyingKeyMissing.Code)
}

func TestRouter(t *testing.T) {
	c := qt.New(t)
	ta := newTestAPI(t, nil)
	router := ta.api.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, api.PingEndpoint, nil))
	c.Assert(rec.Code, qt.Equals, http.StatusOK)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, api.MetricsEndpoint, nil))
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Assert(rec.Body.String(), qt.Contains, "rui_board_gas_used_total")

	// preflight requests only allow POST with a JSON content type
	req := httptest.NewRequest(http.MethodOptions, api.RPCEndpoint, nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	c.Assert(rec.Header().Get("Access-Control-Allow-Origin"), qt.Equals, "*")
	c.Assert(rec.Header().Get("Access-Control-Allow-Methods"), qt.Equals, http.MethodPost)

	req = httptest.NewRequest(http.MethodOptions, api.RPCEndpoint, nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodDelete)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	c.Assert(rec.Header().Get("Access-Control-Allow-Origin"), qt.Equals, "")
}

func TestRouterErrors(t *testing.T) {
	c := qt.New(t)
	router := newTestAPI(t, nil).api.Router()

	serve := func(method, path, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(rec, req)
		return rec
	}

	rec := serve(http.MethodPost, api.RPCEndpoint, "{")
	c.Assert(rec.Code, qt.Equals, http.StatusBadRequest)
	c.Assert(rec.Body.String(), qt.Contains, `"code":40004`)

	rec = serve(http.MethodPost, api.RPCEndpoint, `{"jsonrpc":"2.0","id":1,"method":"rui_receipt","params":["`+strings.Repeat("a", 1<<20)+`"]}`)
	c.Assert(rec.Code, qt.Equals, http.StatusBadRequest)
	c.Assert(rec.Body.String(), qt.Contains, "body exceeds")

	// a valid body still reaches the JSON-RPC server
	rec = serve(http.MethodPost, api.RPCEndpoint, `{"jsonrpc":"2.0","id":1,"method":"rui_receipt","params":["missing"]}`)
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Assert(rec.Body.String(), qt.Contains, `"code":40014`)

	rec = serve(http.MethodGet, "/unknown", "")
	c.Assert(rec.Code, qt.Equals, http.StatusNotFound)
	c.Assert(rec.Body.String(), qt.Contains, `"code":40001`)
	c.Assert(rec.Header().Get("Content-Type"), qt.Equals, "application/json")

	rec = serve(http.MethodGet, api.RPCEndpoint, "")
	c.Assert(rec.Code, qt.Equals, http.StatusMethodNotAllowed)
	c.Assert(rec.Body.String(), qt.Contains, `"code":40016`)
}

func TestNewInvalid(t *testing.T) {
	c := qt.New(t)
	_, err := api.New(nil)
	c.Assert(err, qt.ErrorMatches, "missing API configuration")
	_, err = api.New(&api.APIConfig{})
	c.Assert(err, qt.ErrorMatches, "missing board instance")
}
