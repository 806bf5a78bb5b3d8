// Package paillier implements the hebackend contracts on top of the Paillier
// cryptosystem. Addition of ciphertexts is AddCipher; subtraction multiplies
// by the modular inverse of the subtrahend. Because the plaintext space is
// far larger than 2^32, wraparound is applied when opening a handle by
// reducing the signed representative modulo 2^32.
//
// The scheme key pair is held in memory and regenerated on every start, so
// handles from a previous run can no longer be opened. This backend is meant
// for tests and development deployments.
package paillier

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	paillier "github.com/roasbeef/go-go-gadget-paillier"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"

	"github.com/sealedsum/sealedsum/crypto/ethereum"
	"github.com/sealedsum/sealedsum/hebackend"
	"github.com/sealedsum/sealedsum/log"
	"github.com/sealedsum/sealedsum/types"
)

const (
	// Scheme is the identifier of this backend.
	Scheme = "paillier"

	// DefaultKeySize is the modulus size in bits.
	DefaultKeySize = 2048
)

var handlePrefix = []byte("h/")

var deltaModulus = new(big.Int).Lsh(big.NewInt(1), types.DeltaBits)

// Backend is a Paillier homomorphic backend over a KV database.
type Backend struct {
	db     db.Database
	ledger *hebackend.Ledger
	key    *paillier.PrivateKey

	mu   sync.Mutex
	zero hebackend.Handle
}

// New opens a Paillier backend on the given database with a fresh key pair.
func New(d db.Database) (*Backend, error) {
	key, err := paillier.GenerateKey(rand.Reader, DefaultKeySize)
	if err != nil {
		return nil, fmt.Errorf("cannot generate paillier key pair: %w", err)
	}
	log.Infow("generated paillier backend key pair", "bits", DefaultKeySize)
	return &Backend{
		db:     d,
		ledger: hebackend.NewLedger(d),
		key:    key,
	}, nil
}

// Scheme returns the scheme identifier of the backend.
func (b *Backend) Scheme() string { return Scheme }

// PublicKey returns the scheme public key, needed by clients to encrypt
// deltas for this deployment.
func (b *Backend) PublicKey() *paillier.PublicKey { return &b.key.PublicKey }

// nSquared returns the ciphertext modulus n^2.
func (b *Backend) nSquared() *big.Int {
	n := b.key.PublicKey.N
	return new(big.Int).Mul(n, n)
}

// handleFor derives the handle of a ciphertext from its sha256 hash.
func handleFor(ct []byte) hebackend.Handle {
	h := sha256.Sum256(ct)
	return h[:]
}

func (b *Backend) storeCiphertext(ct []byte) (hebackend.Handle, error) {
	h := handleFor(ct)
	wTx := prefixeddb.NewPrefixedWriteTx(b.db.WriteTx(), handlePrefix)
	defer wTx.Discard()
	if err := wTx.Set(h, ct); err != nil {
		return nil, err
	}
	if err := wTx.Commit(); err != nil {
		return nil, err
	}
	return h, nil
}

func (b *Backend) loadCiphertext(h hebackend.Handle) ([]byte, error) {
	rTx := prefixeddb.NewPrefixedReader(b.db, handlePrefix)
	data, err := rTx.Get(h)
	if errors.Is(err, db.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", hebackend.ErrUnknownHandle, h.String())
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Zero returns the canonical encrypted-zero handle. The ciphertext is
// generated once per backend instance with fresh randomness and cached in
// memory, matching the lifetime of the ephemeral key.
func (b *Backend) Zero() (hebackend.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.zero != nil {
		return b.zero, nil
	}
	ct, err := paillier.Encrypt(&b.key.PublicKey, big.NewInt(0).Bytes())
	if err != nil {
		return nil, fmt.Errorf("encrypt zero: %w", err)
	}
	h, err := b.storeCiphertext(ct)
	if err != nil {
		return nil, err
	}
	b.zero = h
	return h, nil
}

// Add returns a handle to the encrypted sum of a and b.
func (b *Backend) Add(x, y hebackend.Handle) (hebackend.Handle, error) {
	cx, err := b.loadCiphertext(x)
	if err != nil {
		return nil, err
	}
	cy, err := b.loadCiphertext(y)
	if err != nil {
		return nil, err
	}
	return b.storeCiphertext(paillier.AddCipher(&b.key.PublicKey, cx, cy))
}

// Sub returns a handle to the encrypted difference of a and b, computed as
// the product of a with the modular inverse of b.
func (b *Backend) Sub(x, y hebackend.Handle) (hebackend.Handle, error) {
	cx, err := b.loadCiphertext(x)
	if err != nil {
		return nil, err
	}
	cy, err := b.loadCiphertext(y)
	if err != nil {
		return nil, err
	}
	nSq := b.nSquared()
	inv := new(big.Int).ModInverse(new(big.Int).SetBytes(cy), nSq)
	if inv == nil {
		return nil, fmt.Errorf("ciphertext not invertible modulo n^2")
	}
	diff := new(big.Int).Mul(new(big.Int).SetBytes(cx), inv)
	diff.Mod(diff, nSq)
	return b.storeCiphertext(diff.Bytes())
}

// VerifyInput checks that the proof is the caller's signature over the
// external encoding bound to this deployment, validates the ciphertext range,
// and registers the ciphertext, returning its handle.
func (b *Backend) VerifyInput(external, proof []byte, caller common.Address, context []byte) (hebackend.Handle, error) {
	c := new(big.Int).SetBytes(external)
	if c.Sign() <= 0 || c.Cmp(b.nSquared()) >= 0 {
		return nil, fmt.Errorf("%w: ciphertext out of range", hebackend.ErrVerification)
	}
	digest := hebackend.InputDigest(external, caller, context)
	signer, err := ethereum.AddrFromSignature(digest, proof)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", hebackend.ErrVerification, err)
	}
	if !bytes.Equal(signer.Bytes(), caller.Bytes()) {
		return nil, fmt.Errorf("%w: proof signed by %s, not by caller %s",
			hebackend.ErrVerification, signer.Hex(), caller.Hex())
	}
	return b.storeCiphertext(external)
}

// GrantSelf records a grant for the service itself on the handle.
func (b *Backend) GrantSelf(h hebackend.Handle) error { return b.ledger.GrantSelf(h) }

// GrantTo records a grant for the given party on the handle.
func (b *Backend) GrantTo(h hebackend.Handle, party common.Address) error {
	return b.ledger.GrantTo(h, party)
}

// CanDecrypt reports whether the party holds a grant on the handle.
func (b *Backend) CanDecrypt(h hebackend.Handle, party common.Address) (bool, error) {
	return b.ledger.CanDecrypt(h, party)
}

// HasSelfGrant reports whether the service holds a grant on the handle.
func (b *Backend) HasSelfGrant(h hebackend.Handle) (bool, error) {
	return b.ledger.HasSelfGrant(h)
}

// Decrypt opens the handle for a party holding a grant. Plaintexts above n/2
// are taken as negative representatives before reducing modulo 2^32, so a
// total driven below zero reads back as its modular complement.
func (b *Backend) Decrypt(h hebackend.Handle, party common.Address) (uint32, error) {
	ok, err := b.ledger.CanDecrypt(h, party)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, hebackend.ErrNotAuthorized
	}
	ct, err := b.loadCiphertext(h)
	if err != nil {
		return 0, err
	}
	plain, err := paillier.Decrypt(b.key, ct)
	if err != nil {
		return 0, fmt.Errorf("paillier decryption failed: %w", err)
	}
	m := new(big.Int).SetBytes(plain)
	half := new(big.Int).Rsh(b.key.PublicKey.N, 1)
	if m.Cmp(half) > 0 {
		m.Sub(m, b.key.PublicKey.N)
	}
	m.Mod(m, deltaModulus) // big.Int Mod is Euclidean, result is non-negative
	return uint32(m.Uint64()), nil
}

// EncryptDelta encrypts a 32-bit delta under the given public key, producing
// the external encoding a caller submits to the accumulator.
func EncryptDelta(pub *paillier.PublicKey, value uint32) ([]byte, error) {
	return paillier.Encrypt(pub, new(big.Int).SetUint64(uint64(value)).Bytes())
}
