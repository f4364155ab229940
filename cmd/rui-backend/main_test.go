package main

import (
	"bytes"
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/rui-backend/circuits/membership"
	"github.com/vocdoni/rui-backend/config"
)

func TestCommitmentCmd(t *testing.T) {
	c := qt.New(t)
	var out bytes.Buffer
	cmd := newCommitmentCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"12345"})
	c.Assert(cmd.Execute(), qt.IsNil)
	c.Assert(out.String(), qt.Equals, membership.IdentityCommitment(big.NewInt(12345)).String()+"\n")

	cmd = newCommitmentCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"12a45"})
	c.Assert(cmd.Execute(), qt.ErrorIs, membership.ErrMalformedScalar)
}

func TestNewEngine(t *testing.T) {
	c := qt.New(t)
	cfg := config.Default()
	engine, err := newEngine(cfg)
	c.Assert(err, qt.IsNil)
	c.Assert(engine, qt.IsNotNil)

	cfg.Prover.CircuitHash = "abcd"
	_, err = newEngine(cfg)
	c.Assert(err, qt.ErrorMatches, "prover circuit hash must be 32 hex encoded bytes")
}
