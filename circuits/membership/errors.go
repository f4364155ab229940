package membership

import "errors"

var (
	// ErrMalformedScalar is returned when an input is not a base 10 integer
	// in the scalar field.
	ErrMalformedScalar = errors.New("malformed scalar")
	// ErrNotMember is returned when the commitment of the secret is not in
	// any slot of the group.
	ErrNotMember = errors.New("secret is not a member of the group")
	// ErrWitnessMismatch means the public witness computed for the proof
	// differs from the public inputs of the request. It is a bug, never a
	// user error.
	ErrWitnessMismatch = errors.New("public witness mismatch")
	// ErrProofIntegrity means a freshly generated proof did not verify.
	ErrProofIntegrity = errors.New("generated proof does not verify")
	// ErrNoSharedKeys is returned for the verifying key of an engine that
	// sets up fresh keys for every proof.
	ErrNoSharedKeys = errors.New("engine has no shared keys")
	// ErrPoolStopped is returned by ProverPool when it is not running.
	ErrPoolStopped = errors.New("prover pool stopped")
)
