package elgamal

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/arbo/memdb"

	"github.com/sealedsum/sealedsum/crypto/ethereum"
	"github.com/sealedsum/sealedsum/hebackend"
)

const testContext = "sealedsum/test/elgamal"

func newTestBackend(t *testing.T) *Backend {
	b, err := New(memdb.New())
	qt.Assert(t, err, qt.IsNil)
	return b
}

func newTestSigner(t *testing.T) *ethereum.SignKeys {
	s := ethereum.NewSignKeys()
	qt.Assert(t, s.Generate(), qt.IsNil)
	return s
}

// submit encrypts value, proves it for the signer and admits it into the
// backend, returning the handle.
func submit(t *testing.T, b *Backend, signer *ethereum.SignKeys, value uint32) hebackend.Handle {
	c := qt.New(t)
	external, err := EncryptDelta(b.PublicKey(), value)
	c.Assert(err, qt.IsNil)
	proof, err := hebackend.ProveInput(signer, external, []byte(testContext))
	c.Assert(err, qt.IsNil)
	h, err := b.VerifyInput(external, proof, signer.Address(), []byte(testContext))
	c.Assert(err, qt.IsNil)
	return h
}

func TestZeroHandleIsCanonical(t *testing.T) {
	c := qt.New(t)
	b := newTestBackend(t)

	z1, err := b.Zero()
	c.Assert(err, qt.IsNil)
	z2, err := b.Zero()
	c.Assert(err, qt.IsNil)
	c.Assert(z1.Equal(z2), qt.IsTrue)
}

func TestAddSubDecrypt(t *testing.T) {
	c := qt.New(t)
	b := newTestBackend(t)
	signer := newTestSigner(t)

	five := submit(t, b, signer, 5)
	three := submit(t, b, signer, 3)

	sum, err := b.Add(five, three)
	c.Assert(err, qt.IsNil)
	c.Assert(sum.Equal(five), qt.IsFalse) // fresh handle, operands untouched
	c.Assert(b.GrantTo(sum, signer.Address()), qt.IsNil)

	v, err := b.Decrypt(sum, signer.Address())
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.Equals, uint32(8))

	diff, err := b.Sub(five, three)
	c.Assert(err, qt.IsNil)
	c.Assert(b.GrantTo(diff, signer.Address()), qt.IsNil)

	v, err = b.Decrypt(diff, signer.Address())
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.Equals, uint32(2))
}

func TestSubWrapsBelowZero(t *testing.T) {
	c := qt.New(t)
	b := newTestBackend(t)
	signer := newTestSigner(t)

	zero, err := b.Zero()
	c.Assert(err, qt.IsNil)
	five := submit(t, b, signer, 5)

	under, err := b.Sub(zero, five)
	c.Assert(err, qt.IsNil)
	c.Assert(b.GrantTo(under, signer.Address()), qt.IsNil)

	v, err := b.Decrypt(under, signer.Address())
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.Equals, uint32(4294967291)) // 0 - 5 mod 2^32
}

func TestVerifyInputRejectsWrongSigner(t *testing.T) {
	c := qt.New(t)
	b := newTestBackend(t)
	signer := newTestSigner(t)
	other := newTestSigner(t)

	external, err := EncryptDelta(b.PublicKey(), 7)
	c.Assert(err, qt.IsNil)
	proof, err := hebackend.ProveInput(signer, external, []byte(testContext))
	c.Assert(err, qt.IsNil)

	// proof presented by a different caller
	_, err = b.VerifyInput(external, proof, other.Address(), []byte(testContext))
	c.Assert(err, qt.ErrorIs, hebackend.ErrVerification)

	// proof bound to a different deployment context
	_, err = b.VerifyInput(external, proof, signer.Address(), []byte("another deployment"))
	c.Assert(err, qt.ErrorIs, hebackend.ErrVerification)

	// garbage ciphertext
	_, err = b.VerifyInput([]byte("not a ciphertext"), proof, signer.Address(), []byte(testContext))
	c.Assert(err, qt.ErrorIs, hebackend.ErrVerification)
}

func TestDecryptRequiresGrant(t *testing.T) {
	c := qt.New(t)
	b := newTestBackend(t)
	signer := newTestSigner(t)

	h := submit(t, b, signer, 42)
	_, err := b.Decrypt(h, signer.Address())
	c.Assert(err, qt.ErrorIs, hebackend.ErrNotAuthorized)

	c.Assert(b.GrantTo(h, signer.Address()), qt.IsNil)
	v, err := b.Decrypt(h, signer.Address())
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.Equals, uint32(42))
}

func TestGrantIdempotence(t *testing.T) {
	c := qt.New(t)
	b := newTestBackend(t)
	signer := newTestSigner(t)

	h := submit(t, b, signer, 1)
	c.Assert(b.GrantTo(h, signer.Address()), qt.IsNil)
	c.Assert(b.GrantTo(h, signer.Address()), qt.IsNil)
	c.Assert(b.GrantSelf(h), qt.IsNil)
	c.Assert(b.GrantSelf(h), qt.IsNil)

	ok, err := b.CanDecrypt(h, signer.Address())
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)
	ok, err = b.HasSelfGrant(h)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)
}

func TestUnknownHandle(t *testing.T) {
	c := qt.New(t)
	b := newTestBackend(t)

	bogus := hebackend.Handle(make([]byte, 32))
	_, err := b.Add(bogus, bogus)
	c.Assert(err, qt.ErrorIs, hebackend.ErrUnknownHandle)
}
