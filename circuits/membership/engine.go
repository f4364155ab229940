package membership

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend/groth16"
	groth16_bn254 "github.com/consensys/gnark/backend/groth16/bn254"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/vocdoni/rui-backend/circuits"
	"github.com/vocdoni/rui-backend/log"
	"github.com/vocdoni/rui-backend/types"
)

// Keys groups the compiled circuit and its Groth16 key pair.
type Keys struct {
	CCS constraint.ConstraintSystem
	PK  groth16.ProvingKey
	VK  groth16.VerifyingKey
}

// Artifacts is the output of a proof, in the arkworks compressed encoding.
type Artifacts struct {
	VerifyingKey types.HexBytes `json:"verifyingKey"`
	Proof        types.HexBytes `json:"proof"`
	PublicInputs types.HexBytes `json:"publicInputs"`
}

// Verify decodes the artifacts and checks the proof.
func (a *Artifacts) Verify() error {
	vk, err := circuits.ArkVerifyingKeyFromBytes(a.VerifyingKey)
	if err != nil {
		return err
	}
	proof, err := circuits.ArkProofFromBytes(a.Proof)
	if err != nil {
		return err
	}
	inputs, err := circuits.ArkPublicInputsFromBytes(a.PublicInputs)
	if err != nil {
		return err
	}
	vector := make(fr.Vector, len(inputs))
	for i, x := range inputs {
		vector[i].SetBigInt(x)
	}
	return groth16_bn254.Verify(proof, vk, vector)
}

// Setup compiles the membership circuit.
func Setup() (constraint.ConstraintSystem, error) {
	ccs, err := frontend.Compile(Curve.ScalarField(), r1cs.NewBuilder, &Circuit{},
		frontend.IgnoreUnconstrainedInputs())
	if err != nil {
		return nil, fmt.Errorf("failed to compile membership circuit: %w", err)
	}
	return ccs, nil
}

// KeyGen runs the Groth16 setup for the compiled circuit. The randomness is
// local, so the keys are only as trusted as this process.
func KeyGen(ccs constraint.ConstraintSystem) (*Keys, error) {
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, fmt.Errorf("failed to generate membership keys: %w", err)
	}
	return &Keys{CCS: ccs, PK: pk, VK: vk}, nil
}

// LocalKeys compiles the circuit and generates a fresh key pair.
func LocalKeys() (*Keys, error) {
	ccs, err := Setup()
	if err != nil {
		return nil, err
	}
	return KeyGen(ccs)
}

// Option configures an Engine.
type Option func(*Engine)

// PerRequestSetup makes the engine compile the circuit and generate new keys
// for every proof. Proofs made this way can only be checked against the
// verifying key they carry.
func PerRequestSetup() Option {
	return func(e *Engine) { e.perRequest = true }
}

// WithArtifacts makes the engine load the constraint system and the keys
// from the hash checked artifact cache instead of generating them.
func WithArtifacts(a *circuits.CircuitArtifacts) Option {
	return func(e *Engine) { e.artifacts = a }
}

// WithKeys sets the keys of the engine.
func WithKeys(k *Keys) Option {
	return func(e *Engine) { e.keys = k }
}

// Engine proves and verifies membership witnesses. By default the keys are
// produced once, on first use, and shared by every proof.
type Engine struct {
	perRequest bool
	artifacts  *circuits.CircuitArtifacts

	mu   sync.Mutex
	keys *Keys
}

// NewEngine returns an engine configured with the options provided.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Keys returns the shared keys of the engine, loading or generating them on
// the first call. Concurrent callers wait for the first one; a failure is not
// cached, so the next call tries again.
func (e *Engine) Keys(ctx context.Context) (*Keys, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.keys != nil {
		return e.keys, nil
	}
	start := time.Now()
	var keys *Keys
	var err error
	if e.artifacts != nil {
		keys, err = loadKeys(ctx, e.artifacts)
	} else {
		log.Warnw("generating local membership keys, they are not suitable for production")
		keys, err = LocalKeys()
	}
	if err != nil {
		return nil, err
	}
	log.Infow("membership keys ready",
		"constraints", keys.CCS.GetNbConstraints(),
		"took", time.Since(start).String())
	e.keys = keys
	return keys, nil
}

// VerifyingKey returns the arkworks encoding of the shared verifying key. In
// per request mode every proof carries its own key and ErrNoSharedKeys is
// returned.
func (e *Engine) VerifyingKey(ctx context.Context) (types.HexBytes, error) {
	if e.perRequest {
		return nil, ErrNoSharedKeys
	}
	keys, err := e.Keys(ctx)
	if err != nil {
		return nil, err
	}
	vk, ok := keys.VK.(*groth16_bn254.VerifyingKey)
	if !ok {
		return nil, fmt.Errorf("unexpected verifying key type %T", keys.VK)
	}
	return circuits.ArkVerifyingKey(vk)
}

// Prove generates the proof of the witness, checks it against the verifying
// key and returns the serialized artifacts. An unverified proof is never
// returned.
func (e *Engine) Prove(ctx context.Context, w *Witness) (*Artifacts, error) {
	if !w.IsMember() {
		return nil, ErrNotMember
	}
	var keys *Keys
	var err error
	if e.perRequest {
		keys, err = LocalKeys()
	} else {
		keys, err = e.Keys(ctx)
	}
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	fullWitness, err := frontend.NewWitness(w.Assignment(), Curve.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("failed to create witness: %w", err)
	}
	proof, err := groth16.Prove(keys.CCS, keys.PK, fullWitness)
	if err != nil {
		return nil, fmt.Errorf("failed to generate proof: %w", err)
	}
	publicWitness, err := fullWitness.Public()
	if err != nil {
		return nil, fmt.Errorf("failed to get public witness: %w", err)
	}
	vector, ok := publicWitness.Vector().(fr.Vector)
	if !ok {
		return nil, fmt.Errorf("unexpected public witness type %T", publicWitness.Vector())
	}
	if err := matchPublicInputs(vector, w.PublicInputs()); err != nil {
		log.Errorw(err, "membership circuit produced a different public witness")
		return nil, err
	}
	if err := groth16.Verify(proof, keys.VK, publicWitness); err != nil {
		log.Errorw(err, "membership proof does not verify")
		return nil, fmt.Errorf("%w: %v", ErrProofIntegrity, err)
	}
	log.Debugw("membership proof generated", "took", time.Since(start).String())
	return serialize(keys.VK, proof, w.PublicInputs())
}

func matchPublicInputs(vector fr.Vector, expected []*big.Int) error {
	if len(vector) != len(expected) {
		return fmt.Errorf("%w: %d public values, expected %d", ErrWitnessMismatch, len(vector), len(expected))
	}
	for i := range vector {
		if vector[i].BigInt(new(big.Int)).Cmp(expected[i]) != 0 {
			return fmt.Errorf("%w: public value %d", ErrWitnessMismatch, i)
		}
	}
	return nil
}

func serialize(vk groth16.VerifyingKey, proof groth16.Proof, inputs []*big.Int) (*Artifacts, error) {
	bn254VK, ok := vk.(*groth16_bn254.VerifyingKey)
	if !ok {
		return nil, fmt.Errorf("unexpected verifying key type %T", vk)
	}
	bn254Proof, ok := proof.(*groth16_bn254.Proof)
	if !ok {
		return nil, fmt.Errorf("unexpected proof type %T", proof)
	}
	vkBytes, err := circuits.ArkVerifyingKey(bn254VK)
	if err != nil {
		return nil, err
	}
	proofBytes, err := circuits.ArkProof(bn254Proof)
	if err != nil {
		return nil, err
	}
	return &Artifacts{
		VerifyingKey: vkBytes,
		Proof:        proofBytes,
		PublicInputs: circuits.ArkPublicInputs(inputs),
	}, nil
}

func loadKeys(ctx context.Context, a *circuits.CircuitArtifacts) (*Keys, error) {
	if err := a.LoadAll(ctx); err != nil {
		return nil, fmt.Errorf("failed to load membership artifacts: %w", err)
	}
	ccs, err := circuits.DeserializeConstraintSystem(a.CircuitDefinition())
	if err != nil {
		return nil, err
	}
	pk, err := circuits.DeserializeProvingKey(a.ProvingKey())
	if err != nil {
		return nil, err
	}
	vk, err := circuits.DeserializeVerifyingKey(a.VerifyingKey())
	if err != nil {
		return nil, err
	}
	return &Keys{CCS: ccs, PK: pk, VK: vk}, nil
}

// Artifacts returns the keys serialized as cacheable circuit artifacts.
func (k *Keys) Artifacts() (*circuits.CircuitArtifacts, error) {
	ccs, err := circuits.SerializeConstraintSystem(k.CCS)
	if err != nil {
		return nil, err
	}
	pk, err := circuits.SerializeProvingKey(k.PK)
	if err != nil {
		return nil, err
	}
	vk, err := circuits.SerializeVerifyingKey(k.VK)
	if err != nil {
		return nil, err
	}
	return circuits.NewCircuitArtifacts(
		&circuits.Artifact{Content: ccs},
		&circuits.Artifact{Content: pk},
		&circuits.Artifact{Content: vk},
	), nil
}
