package accumulator

import (
	"errors"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/arbo/memdb"

	"github.com/ethereum/go-ethereum/common"

	"github.com/sealedsum/sealedsum/crypto/ethereum"
	"github.com/sealedsum/sealedsum/hebackend"
	elgamalbackend "github.com/sealedsum/sealedsum/hebackend/elgamal"
)

const testProtocol = "sealedsum/elgamal-bjj/v1/test"

type recordedEvent struct {
	name      string
	principal common.Address
	handle    hebackend.Handle
}

type recordingSink struct {
	events []recordedEvent
}

func (r *recordingSink) Emit(event string, principal common.Address, handle hebackend.Handle) {
	r.events = append(r.events, recordedEvent{event, principal, handle})
}

type fixture struct {
	backend *elgamalbackend.Backend
	service *Service
	sink    *recordingSink
}

func newFixture(t *testing.T) *fixture {
	c := qt.New(t)
	kv := memdb.New()
	backend, err := elgamalbackend.New(kv)
	c.Assert(err, qt.IsNil)
	sink := &recordingSink{}
	return &fixture{
		backend: backend,
		service: New(NewStore(kv, backend), backend, sink, testProtocol),
		sink:    sink,
	}
}

func newSigner(t *testing.T) *ethereum.SignKeys {
	s := ethereum.NewSignKeys()
	qt.Assert(t, s.Generate(), qt.IsNil)
	return s
}

// delta encrypts value for the fixture's deployment and proves it for signer.
func (f *fixture) delta(t *testing.T, signer *ethereum.SignKeys, value uint32) (external, proof []byte) {
	c := qt.New(t)
	external, err := elgamalbackend.EncryptDelta(f.backend.PublicKey(), value)
	c.Assert(err, qt.IsNil)
	proof, err = hebackend.ProveInput(signer, external, []byte(testProtocol))
	c.Assert(err, qt.IsNil)
	return external, proof
}

// open decrypts the principal's current total through the backend.
func (f *fixture) open(t *testing.T, principal common.Address) uint32 {
	c := qt.New(t)
	h, err := f.service.Read(principal)
	c.Assert(err, qt.IsNil)
	v, err := f.backend.Decrypt(h, principal)
	c.Assert(err, qt.IsNil)
	return v
}

func TestReadNeverWrittenIsZero(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t)
	signer := newSigner(t)

	h, err := f.service.Read(signer.Address())
	c.Assert(err, qt.IsNil)

	// read confers no decryption rights by itself
	_, err = f.backend.Decrypt(h, signer.Address())
	c.Assert(err, qt.ErrorIs, hebackend.ErrNotAuthorized)

	// an authorized party sees zero
	c.Assert(f.backend.GrantTo(h, signer.Address()), qt.IsNil)
	v, err := f.backend.Decrypt(h, signer.Address())
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.Equals, uint32(0))
}

func TestIncrementDecrementScenario(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t)
	signer := newSigner(t)

	// +5, then -3 => 2
	external, proof := f.delta(t, signer, 5)
	_, err := f.service.Increment(signer.Address(), external, proof)
	c.Assert(err, qt.IsNil)

	external, proof = f.delta(t, signer, 3)
	_, err = f.service.Decrement(signer.Address(), external, proof)
	c.Assert(err, qt.IsNil)

	c.Assert(f.open(t, signer.Address()), qt.Equals, uint32(2))
}

func TestDecrementWrapsWithNoPriorEntry(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t)
	signer := newSigner(t)

	external, proof := f.delta(t, signer, 5)
	_, err := f.service.Decrement(signer.Address(), external, proof)
	c.Assert(err, qt.IsNil)

	// 0 - 5 mod 2^32
	c.Assert(f.open(t, signer.Address()), qt.Equals, uint32(4294967291))
}

func TestSignedFold(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t)
	signer := newSigner(t)

	ops := []struct {
		value     uint32
		increment bool
	}{
		{10, true}, {4, false}, {1, true}, {20, false}, {100, true},
	}
	var expected uint32
	for _, op := range ops {
		external, proof := f.delta(t, signer, op.value)
		var err error
		if op.increment {
			_, err = f.service.Increment(signer.Address(), external, proof)
			expected += op.value
		} else {
			_, err = f.service.Decrement(signer.Address(), external, proof)
			expected -= op.value
		}
		c.Assert(err, qt.IsNil)
	}
	c.Assert(f.open(t, signer.Address()), qt.Equals, expected)
}

func TestPrincipalsAreIsolated(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t)
	alice := newSigner(t)
	bob := newSigner(t)

	external, proof := f.delta(t, alice, 10)
	_, err := f.service.Increment(alice.Address(), external, proof)
	c.Assert(err, qt.IsNil)

	external, proof = f.delta(t, bob, 20)
	_, err = f.service.Increment(bob.Address(), external, proof)
	c.Assert(err, qt.IsNil)

	c.Assert(f.open(t, alice.Address()), qt.Equals, uint32(10))
	c.Assert(f.open(t, bob.Address()), qt.Equals, uint32(20))
}

func TestNullPrincipalRejected(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t)
	signer := newSigner(t)

	external, proof := f.delta(t, signer, 1)
	_, err := f.service.Increment(common.Address{}, external, proof)
	c.Assert(err, qt.ErrorIs, ErrInvalidPrincipal)
	_, err = f.service.Decrement(common.Address{}, external, proof)
	c.Assert(err, qt.ErrorIs, ErrInvalidPrincipal)

	// no entry was created for anyone
	has, err := f.service.store.Has(common.Address{})
	c.Assert(err, qt.IsNil)
	c.Assert(has, qt.IsFalse)
	has, err = f.service.store.Has(signer.Address())
	c.Assert(err, qt.IsNil)
	c.Assert(has, qt.IsFalse)
	c.Assert(f.sink.events, qt.HasLen, 0)
}

func TestInvalidProofRejected(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t)
	signer := newSigner(t)
	other := newSigner(t)

	external, _ := f.delta(t, signer, 7)
	// proof produced by a different key
	proof, err := hebackend.ProveInput(other, external, []byte(testProtocol))
	c.Assert(err, qt.IsNil)

	_, err = f.service.Increment(signer.Address(), external, proof)
	c.Assert(err, qt.ErrorIs, ErrInvalidProof)

	has, err := f.service.store.Has(signer.Address())
	c.Assert(err, qt.IsNil)
	c.Assert(has, qt.IsFalse)
	c.Assert(f.sink.events, qt.HasLen, 0)
}

// grantFailBackend wraps a working backend with an access ledger that is down
// for grant issuance.
type grantFailBackend struct {
	hebackend.Backend
	failSelf bool
	failTo   bool
}

func (g *grantFailBackend) GrantSelf(h hebackend.Handle) error {
	if g.failSelf {
		return errors.New("ledger unavailable")
	}
	return g.Backend.GrantSelf(h)
}

func (g *grantFailBackend) GrantTo(h hebackend.Handle, party common.Address) error {
	if g.failTo {
		return errors.New("ledger unavailable")
	}
	return g.Backend.GrantTo(h, party)
}

func TestGrantFailureIsConsistencyHazard(t *testing.T) {
	for name, failing := range map[string]*grantFailBackend{
		"self":   {failSelf: true},
		"caller": {failTo: true},
	} {
		t.Run(name, func(t *testing.T) {
			c := qt.New(t)
			kv := memdb.New()
			backend, err := elgamalbackend.New(kv)
			c.Assert(err, qt.IsNil)
			failing.Backend = backend
			store := NewStore(kv, failing)
			service := New(store, failing, nil, testProtocol)
			signer := newSigner(t)

			external, err := elgamalbackend.EncryptDelta(backend.PublicKey(), 5)
			c.Assert(err, qt.IsNil)
			proof, err := hebackend.ProveInput(signer, external, []byte(testProtocol))
			c.Assert(err, qt.IsNil)

			_, err = service.Increment(signer.Address(), external, proof)
			c.Assert(err, qt.ErrorIs, ErrConsistencyHazard)

			// the entry had already advanced when the grant failed
			has, err := store.Has(signer.Address())
			c.Assert(err, qt.IsNil)
			c.Assert(has, qt.IsTrue)
			h, err := store.Read(signer.Address())
			c.Assert(err, qt.IsNil)
			zero, err := backend.Zero()
			c.Assert(err, qt.IsNil)
			c.Assert(h.Equal(zero), qt.IsFalse)
		})
	}
}

func TestGrantsIssuedOnSuccess(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t)
	signer := newSigner(t)

	external, proof := f.delta(t, signer, 9)
	updated, err := f.service.Increment(signer.Address(), external, proof)
	c.Assert(err, qt.IsNil)

	ok, err := f.backend.CanDecrypt(updated, signer.Address())
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)
	ok, err = f.backend.HasSelfGrant(updated)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)
}

func TestAuditEventsCarryEncryptedDelta(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t)
	signer := newSigner(t)

	external, proof := f.delta(t, signer, 5)
	updated, err := f.service.Increment(signer.Address(), external, proof)
	c.Assert(err, qt.IsNil)

	c.Assert(f.sink.events, qt.HasLen, 1)
	ev := f.sink.events[0]
	c.Assert(ev.name, qt.Equals, EventIncrement)
	c.Assert(ev.principal, qt.Equals, signer.Address())
	// the event carries the delta handle, not the resulting total
	c.Assert(ev.handle.Equal(updated), qt.IsFalse)
}

func TestEveryOperationReturnsFreshHandle(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t)
	signer := newSigner(t)

	external, proof := f.delta(t, signer, 1)
	h1, err := f.service.Increment(signer.Address(), external, proof)
	c.Assert(err, qt.IsNil)

	external, proof = f.delta(t, signer, 1)
	h2, err := f.service.Increment(signer.Address(), external, proof)
	c.Assert(err, qt.IsNil)
	c.Assert(h1.Equal(h2), qt.IsFalse)
}

func TestProtocolID(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t)
	c.Assert(f.service.ProtocolID(), qt.Equals, testProtocol)
}
