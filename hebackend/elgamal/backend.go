// Package elgamal implements the hebackend contracts on top of additively
// homomorphic ElGamal over BabyJubJub. Ciphertexts live in a KV handle table
// keyed by the poseidon hash of their coordinates; arithmetic loads the
// operands, combines the curve points and stores the result under a fresh
// handle. The scheme key pair is generated on first start and persisted, so a
// deployment keeps decrypting its own history.
package elgamal

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/iden3/go-iden3-crypto/poseidon"
	"github.com/vocdoni/arbo"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"

	"github.com/sealedsum/sealedsum/crypto/ecc"
	"github.com/sealedsum/sealedsum/crypto/ecc/bjj"
	"github.com/sealedsum/sealedsum/crypto/elgamal"
	"github.com/sealedsum/sealedsum/crypto/ethereum"
	"github.com/sealedsum/sealedsum/hebackend"
	"github.com/sealedsum/sealedsum/log"
)

const (
	// Scheme is the identifier of this backend.
	Scheme = "elgamal-bjj"

	// DefaultWindow bounds the discrete-log search on decryption. Totals
	// whose distance from zero exceeds the window are still well defined
	// ciphertexts, they just cannot be opened by this backend.
	DefaultWindow = uint64(1) << 20
)

var (
	handlePrefix = []byte("h/")
	keyPrefix    = []byte("k/")

	dbKeyPublic  = []byte("pub")
	dbKeyPrivate = []byte("priv")
	dbKeyZero    = []byte("zero")
)

// Backend is an ElGamal homomorphic backend over a KV database.
type Backend struct {
	db     db.Database
	ledger *hebackend.Ledger
	pub    ecc.Point
	priv   *big.Int
	window uint64
}

// New opens an ElGamal backend on the given database, loading the scheme key
// pair or generating and persisting a fresh one.
func New(d db.Database) (*Backend, error) {
	b := &Backend{
		db:     d,
		ledger: hebackend.NewLedger(d),
		window: DefaultWindow,
	}
	if err := b.loadOrGenerateKeys(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Backend) loadOrGenerateKeys() error {
	rTx := prefixeddb.NewPrefixedReader(b.db, keyPrefix)
	pubData, err := rTx.Get(dbKeyPublic)
	switch {
	case err == nil:
		privData, err := rTx.Get(dbKeyPrivate)
		if err != nil {
			return fmt.Errorf("cannot load private key: %w", err)
		}
		b.pub = bjj.New()
		if err := b.pub.Unmarshal(pubData); err != nil {
			return fmt.Errorf("cannot unmarshal public key: %w", err)
		}
		b.priv = new(big.Int).SetBytes(privData)
		return nil
	case errors.Is(err, db.ErrKeyNotFound):
		pub, priv, err := elgamal.GenerateKey(bjj.New())
		if err != nil {
			return fmt.Errorf("cannot generate key pair: %w", err)
		}
		wTx := prefixeddb.NewPrefixedWriteTx(b.db.WriteTx(), keyPrefix)
		defer wTx.Discard()
		if err := wTx.Set(dbKeyPublic, pub.Marshal()); err != nil {
			return err
		}
		if err := wTx.Set(dbKeyPrivate, priv.Bytes()); err != nil {
			return err
		}
		if err := wTx.Commit(); err != nil {
			return err
		}
		b.pub = pub
		b.priv = priv
		log.Infow("generated elgamal backend key pair", "scheme", Scheme)
		return nil
	default:
		return fmt.Errorf("cannot load public key: %w", err)
	}
}

// Scheme returns the scheme identifier of the backend.
func (b *Backend) Scheme() string { return Scheme }

// PublicKey returns the scheme public key, needed by clients to encrypt
// deltas for this deployment.
func (b *Backend) PublicKey() ecc.Point { return b.pub }

// handleFor derives the handle of a ciphertext from the poseidon hash of its
// four coordinates.
func handleFor(ct *elgamal.Ciphertext) (hebackend.Handle, error) {
	c1x, c1y := ct.C1.Point()
	c2x, c2y := ct.C2.Point()
	h, err := poseidon.Hash([]*big.Int{c1x, c1y, c2x, c2y})
	if err != nil {
		return nil, fmt.Errorf("cannot hash ciphertext: %w", err)
	}
	return arbo.BigIntToBytes(32, h), nil
}

// storeCiphertext persists the ciphertext in the handle table and returns its
// handle. Storing the same ciphertext twice yields the same handle.
func (b *Backend) storeCiphertext(ct *elgamal.Ciphertext) (hebackend.Handle, error) {
	h, err := handleFor(ct)
	if err != nil {
		return nil, err
	}
	wTx := prefixeddb.NewPrefixedWriteTx(b.db.WriteTx(), handlePrefix)
	defer wTx.Discard()
	if err := wTx.Set(h, ct.Serialize()); err != nil {
		return nil, err
	}
	if err := wTx.Commit(); err != nil {
		return nil, err
	}
	return h, nil
}

func (b *Backend) loadCiphertext(h hebackend.Handle) (*elgamal.Ciphertext, error) {
	rTx := prefixeddb.NewPrefixedReader(b.db, handlePrefix)
	data, err := rTx.Get(h)
	if errors.Is(err, db.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", hebackend.ErrUnknownHandle, h.String())
	}
	if err != nil {
		return nil, err
	}
	ct := elgamal.NewCiphertext(bjj.New())
	if err := ct.Deserialize(data); err != nil {
		return nil, fmt.Errorf("corrupted ciphertext for handle %s: %w", h.String(), err)
	}
	return ct, nil
}

// Zero returns the canonical encrypted-zero handle, materializing it on
// first use and persisting it so every later call returns the same handle.
// The encryption randomness is fresh, which keeps the zero ciphertext (and
// every handle derived from it) distinct from any externally submitted one.
func (b *Backend) Zero() (hebackend.Handle, error) {
	rTx := prefixeddb.NewPrefixedReader(b.db, keyPrefix)
	data, err := rTx.Get(dbKeyZero)
	if err == nil {
		return hebackend.Handle(data), nil
	}
	if !errors.Is(err, db.ErrKeyNotFound) {
		return nil, err
	}
	zero, err := elgamal.NewCiphertext(bjj.New()).Encrypt(big.NewInt(0), b.pub, nil)
	if err != nil {
		return nil, err
	}
	h, err := b.storeCiphertext(zero)
	if err != nil {
		return nil, err
	}
	wTx := prefixeddb.NewPrefixedWriteTx(b.db.WriteTx(), keyPrefix)
	defer wTx.Discard()
	if err := wTx.Set(dbKeyZero, h); err != nil {
		return nil, err
	}
	if err := wTx.Commit(); err != nil {
		return nil, err
	}
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
	return b.storeCiphertext(elgamal.NewCiphertext(bjj.New()).Add(cx, cy))
}

// Sub returns a handle to the encrypted difference of a and b.
func (b *Backend) Sub(x, y hebackend.Handle) (hebackend.Handle, error) {
	cx, err := b.loadCiphertext(x)
	if err != nil {
		return nil, err
	}
	cy, err := b.loadCiphertext(y)
	if err != nil {
		return nil, err
	}
	return b.storeCiphertext(elgamal.NewCiphertext(bjj.New()).Sub(cx, cy))
}

// VerifyInput checks that the proof is the caller's signature over the
// external encoding bound to this deployment, validates the ciphertext
// points, and registers the ciphertext, returning its handle.
func (b *Backend) VerifyInput(external, proof []byte, caller common.Address, context []byte) (hebackend.Handle, error) {
	ct := elgamal.NewCiphertext(bjj.New())
	if err := ct.Deserialize(external); err != nil {
		return nil, fmt.Errorf("%w: %v", hebackend.ErrVerification, err)
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
	return b.storeCiphertext(ct)
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

// Decrypt opens the handle for a party holding a grant. The signed exponent
// recovered from the ciphertext is reduced modulo 2^32, so totals driven
// below zero read back as their modular complement, matching the wraparound
// semantics of the accumulator.
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
	x, err := elgamal.DecryptSigned(b.pub, b.priv, ct.C1, ct.C2, b.window)
	if err != nil {
		return 0, err
	}
	return uint32(x.Int64()), nil
}

// EncryptDelta encrypts a 32-bit delta under the given public key, producing
// the external encoding a caller submits to the accumulator. Clients obtain
// the key from the deployment and call this off-service.
func EncryptDelta(pub ecc.Point, value uint32) ([]byte, error) {
	ct, err := elgamal.NewCiphertext(bjj.New()).Encrypt(new(big.Int).SetUint64(uint64(value)), pub, nil)
	if err != nil {
		return nil, err
	}
	return ct.Serialize(), nil
}
