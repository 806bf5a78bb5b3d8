// Package accumulator implements the confidential running-total state
// machine. Each principal owns a single encrypted 32-bit total, advanced by
// externally encrypted deltas combined through a homomorphic backend; the
// service never sees cleartext. Arithmetic wraps modulo 2^32 and no bounds
// are enforced: driving a total below zero is representable only as its
// modular complement, which callers must account for when interpreting
// decrypted values.
package accumulator

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/sealedsum/sealedsum/hebackend"
)

// Audit event names emitted by the service. Events carry the encrypted delta
// handle, never cleartext.
const (
	EventIncrement = "accumulator.increment"
	EventDecrement = "accumulator.decrement"
)

// Sink receives audit events. Emit must never block and never fail the
// calling operation.
type Sink interface {
	Emit(event string, principal common.Address, handle hebackend.Handle)
}

// Service is the public contract surface of the accumulator. Operations are
// serialized by an internal mutex, so each one is atomic with respect to
// every other; a failure before the store write leaves no state change.
type Service struct {
	mu       sync.Mutex
	store    *Store
	backend  hebackend.Backend
	sink     Sink
	protocol string
}

// New creates an accumulator service. The protocol identifier scopes delta
// proofs to this deployment and must be stable for its whole lifetime.
func New(store *Store, backend hebackend.Backend, sink Sink, protocol string) *Service {
	return &Service{
		store:    store,
		backend:  backend,
		sink:     sink,
		protocol: protocol,
	}
}

// ProtocolID returns the deployment's protocol identifier.
func (s *Service) ProtocolID() string { return s.protocol }

// Backend returns the homomorphic backend the service operates on.
func (s *Service) Backend() hebackend.Backend { return s.backend }

// Increment adds the externally encrypted delta to the caller's total and
// returns the new handle. The caller and the service both receive a
// decryption grant on it.
func (s *Service) Increment(caller common.Address, external, proof []byte) (hebackend.Handle, error) {
	return s.apply(caller, external, proof, EventIncrement)
}

// Decrement subtracts the externally encrypted delta from the caller's total
// and returns the new handle. There is no underflow check: decrementing past
// zero wraps modulo 2^32.
func (s *Service) Decrement(caller common.Address, external, proof []byte) (hebackend.Handle, error) {
	return s.apply(caller, external, proof, EventDecrement)
}

// Read returns the caller's current handle, or the canonical zero handle if
// the caller never wrote. Reading does not confer decryption rights: without
// a prior grant the returned handle cannot be opened.
func (s *Service) Read(caller common.Address) (hebackend.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, err := s.store.Read(caller)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendFailure, err)
	}
	return h, nil
}

func (s *Service) apply(caller common.Address, external, proof []byte, event string) (hebackend.Handle, error) {
	if caller == (common.Address{}) {
		return nil, ErrInvalidPrincipal
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delta, err := s.backend.VerifyInput(external, proof, caller, []byte(s.protocol))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	if s.sink != nil {
		s.sink.Emit(event, caller, delta)
	}

	current, err := s.store.Read(caller)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendFailure, err)
	}
	var updated hebackend.Handle
	switch event {
	case EventIncrement:
		updated, err = s.backend.Add(current, delta)
	case EventDecrement:
		updated, err = s.backend.Sub(current, delta)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendFailure, err)
	}
	if err := s.store.Write(caller, updated); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendFailure, err)
	}
	// From here on the entry has advanced: a grant failure cannot be rolled
	// back and must be surfaced as a consistency hazard.
	if err := s.backend.GrantSelf(updated); err != nil {
		return nil, fmt.Errorf("%w: self grant: %v", ErrConsistencyHazard, err)
	}
	if err := s.backend.GrantTo(updated, caller); err != nil {
		return nil, fmt.Errorf("%w: caller grant: %v", ErrConsistencyHazard, err)
	}
	return updated, nil
}
