package membership

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	groth16_bn254 "github.com/consensys/gnark/backend/groth16/bn254"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/rui-backend/circuits"
)

// testEngine shares its keys between the tests of the package.
var testEngine = NewEngine()

func TestEngineProveAndVerify(t *testing.T) {
	c := qt.New(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	w := testWitness(c, 4)
	artifacts, err := testEngine.Prove(ctx, w)
	c.Assert(err, qt.IsNil)
	c.Assert(artifacts.Verify(), qt.IsNil)
	c.Assert(artifacts.Proof, qt.HasLen, circuits.ArkProofSize)
	c.Assert(artifacts.PublicInputs, qt.HasLen, 4*circuits.SerializedFieldSize)
	// alpha, beta, gamma, delta, count and one IC point per public input
	// plus the constant one
	c.Assert(artifacts.VerifyingKey, qt.HasLen, circuits.ArkG1Size+3*circuits.ArkG2Size+8+5*circuits.ArkG1Size)

	// public inputs decode back to the witness values in declaration order
	inputs, err := circuits.ArkPublicInputsFromBytes(artifacts.PublicInputs)
	c.Assert(err, qt.IsNil)
	for i, expected := range w.PublicInputs() {
		c.Assert(inputs[i].Cmp(expected), qt.Equals, 0)
	}

	// the verifying key is the shared one
	vk, err := testEngine.VerifyingKey(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert([]byte(artifacts.VerifyingKey), qt.DeepEquals, []byte(vk))

	// same inputs, different proof, both valid
	again, err := testEngine.Prove(ctx, w)
	c.Assert(err, qt.IsNil)
	c.Assert(again.Verify(), qt.IsNil)
	c.Assert(bytes.Equal(again.Proof, artifacts.Proof), qt.IsFalse)

	// tampered public inputs do not verify
	tampered := *artifacts
	tampered.PublicInputs = append([]byte{}, artifacts.PublicInputs...)
	tampered.PublicInputs[2*circuits.SerializedFieldSize] ^= 1
	c.Assert(tampered.Verify(), qt.IsNotNil)
}

func TestEngineVerifyingKeyRoundTrip(t *testing.T) {
	c := qt.New(t)
	keys, err := testEngine.Keys(context.Background())
	c.Assert(err, qt.IsNil)
	vk := keys.VK.(*groth16_bn254.VerifyingKey)

	enc, err := circuits.ArkVerifyingKey(vk)
	c.Assert(err, qt.IsNil)
	decoded, err := circuits.ArkVerifyingKeyFromBytes(enc)
	c.Assert(err, qt.IsNil)
	c.Assert(decoded.G1.Alpha.Equal(&vk.G1.Alpha), qt.IsTrue)
	c.Assert(decoded.G2.Beta.Equal(&vk.G2.Beta), qt.IsTrue)
	c.Assert(decoded.G2.Gamma.Equal(&vk.G2.Gamma), qt.IsTrue)
	c.Assert(decoded.G2.Delta.Equal(&vk.G2.Delta), qt.IsTrue)
	c.Assert(decoded.G1.K, qt.HasLen, len(vk.G1.K))
	for i := range vk.G1.K {
		c.Assert(decoded.G1.K[i].Equal(&vk.G1.K[i]), qt.IsTrue)
	}
	// trailing garbage is refused
	_, err = circuits.ArkVerifyingKeyFromBytes(append(enc, 0))
	c.Assert(err, qt.IsNotNil)
}

func TestEngineNotMember(t *testing.T) {
	c := qt.New(t)
	w, err := NewWitness("12345", [MaxMembers]*big.Int{big.NewInt(1)}, "1", "1")
	c.Assert(err, qt.IsNil)
	_, err = testEngine.Prove(context.Background(), w)
	c.Assert(errors.Is(err, ErrNotMember), qt.IsTrue)
}

func TestEngineKeysFromArtifacts(t *testing.T) {
	c := qt.New(t)
	circuits.BaseDir = t.TempDir()
	ctx := context.Background()

	keys, err := testEngine.Keys(ctx)
	c.Assert(err, qt.IsNil)
	artifacts, err := keys.Artifacts()
	c.Assert(err, qt.IsNil)
	c.Assert(artifacts.StoreAll(), qt.IsNil)

	// a new engine only knowing the hashes loads the same keys from the cache
	cached := circuits.NewCircuitArtifacts(
		&circuits.Artifact{Hash: artifactHash(c, artifacts.CircuitDefinition())},
		&circuits.Artifact{Hash: artifactHash(c, artifacts.ProvingKey())},
		&circuits.Artifact{Hash: artifactHash(c, artifacts.VerifyingKey())},
	)
	engine := NewEngine(WithArtifacts(cached))
	vk, err := engine.VerifyingKey(ctx)
	c.Assert(err, qt.IsNil)
	expected, err := testEngine.VerifyingKey(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert([]byte(vk), qt.DeepEquals, []byte(expected))

	proof, err := engine.Prove(ctx, testWitness(c, 10))
	c.Assert(err, qt.IsNil)
	c.Assert(proof.Verify(), qt.IsNil)

	// a missing artifact fails and is retried on the next call
	missing := NewEngine(WithArtifacts(circuits.NewCircuitArtifacts(
		&circuits.Artifact{Hash: []byte("missing")}, nil, nil)))
	_, err = missing.Keys(ctx)
	c.Assert(err, qt.IsNotNil)
	_, err = missing.Keys(ctx)
	c.Assert(err, qt.IsNotNil)
}

func TestEnginePerRequestNoSharedKey(t *testing.T) {
	c := qt.New(t)
	engine := NewEngine(PerRequestSetup())
	vk, err := engine.VerifyingKey(context.Background())
	c.Assert(err, qt.ErrorIs, ErrNoSharedKeys)
	c.Assert(vk, qt.IsNil)
	// no shared keys were generated on the way
	c.Assert(engine.keys, qt.IsNil)
}

func TestEnginePerRequestSetup(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping per request setup in short mode")
	}
	c := qt.New(t)
	engine := NewEngine(PerRequestSetup())
	w := testWitness(c, 4)
	first, err := engine.Prove(context.Background(), w)
	c.Assert(err, qt.IsNil)
	c.Assert(first.Verify(), qt.IsNil)
	second, err := engine.Prove(context.Background(), w)
	c.Assert(err, qt.IsNil)
	c.Assert(second.Verify(), qt.IsNil)
	// every proof comes with its own keys
	c.Assert(bytes.Equal(first.VerifyingKey, second.VerifyingKey), qt.IsFalse)
}

func artifactHash(c *qt.C, content []byte) []byte {
	a := &circuits.Artifact{Content: content}
	c.Assert(a.Store(), qt.IsNil)
	return a.Hash
}
