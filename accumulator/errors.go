package accumulator

import "errors"

var (
	// ErrInvalidPrincipal is returned when an operation is attempted with
	// the null identity as caller.
	ErrInvalidPrincipal = errors.New("invalid principal: null identity")

	// ErrInvalidProof is returned when the backend rejects the proof
	// accompanying an encrypted delta. The operation leaves no state change.
	ErrInvalidProof = errors.New("invalid delta proof")

	// ErrBackendFailure is returned when the homomorphic backend or the
	// store fails before the accumulator entry was advanced. The operation
	// leaves no state change.
	ErrBackendFailure = errors.New("homomorphic backend failure")

	// ErrConsistencyHazard is returned when the accumulator entry was
	// advanced but a subsequent access grant could not be issued. State has
	// moved forward and the principal may be unable to decrypt it; this is
	// surfaced distinctly so operators can re-issue the grant.
	ErrConsistencyHazard = errors.New("consistency hazard: entry advanced without decryption grant")
)
