// Package hebackend defines the contracts the accumulator core consumes from
// a homomorphic encryption backend: arithmetic over ciphertext handles,
// verification of externally supplied encrypted inputs, and the access ledger
// that controls who may decrypt a handle.
//
// A handle is an opaque reference to an encrypted 32-bit unsigned integer
// living inside the backend. Handles are immutable: every operation returns a
// new handle and never changes what an existing one refers to.
package hebackend

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/sealedsum/sealedsum/crypto/ethereum"
	"github.com/sealedsum/sealedsum/types"
)

// Handle is an opaque reference to a ciphertext held by a backend.
type Handle = types.HexBytes

var (
	// ErrUnknownHandle is returned when a handle does not exist in the
	// backend's ciphertext table.
	ErrUnknownHandle = errors.New("unknown ciphertext handle")
	// ErrVerification is returned when an external input fails proof
	// verification.
	ErrVerification = errors.New("input verification failed")
	// ErrNotAuthorized is returned when a party without a grant asks the
	// backend to decrypt a handle.
	ErrNotAuthorized = errors.New("party holds no grant for this handle")
)

// Engine performs homomorphic arithmetic on ciphertext handles. All
// operations wrap modulo 2^32; there are no overflow or underflow checks.
type Engine interface {
	// Add returns a handle to the encrypted sum of a and b.
	Add(a, b Handle) (Handle, error)
	// Sub returns a handle to the encrypted difference of a and b.
	Sub(a, b Handle) (Handle, error)
	// Zero returns the canonical handle to an encrypted zero. It is stable
	// across calls.
	Zero() (Handle, error)
}

// InputVerifier admits externally supplied encrypted inputs. The proof must
// bind the input to both the submitting party and the deployment context, so
// it cannot be replayed by another caller or against another deployment.
type InputVerifier interface {
	// VerifyInput checks the proof over the external ciphertext encoding
	// and, on success, registers the ciphertext and returns its handle.
	VerifyInput(external, proof []byte, caller common.Address, context []byte) (Handle, error)
}

// AccessLedger records which parties may decrypt which handles. Grants are
// idempotent: granting twice is a no-op, not an error.
type AccessLedger interface {
	// GrantSelf allows the service operating the backend to keep computing
	// on the handle.
	GrantSelf(h Handle) error
	// GrantTo allows the given party to decrypt the handle.
	GrantTo(h Handle, party common.Address) error
	// CanDecrypt reports whether the party holds a grant on the handle.
	CanDecrypt(h Handle, party common.Address) (bool, error)
}

// Decryptor reveals the cleartext behind a handle to a party holding a
// grant. The result is the 32-bit value with wraparound semantics; a running
// total driven below zero reads back as its modular complement.
type Decryptor interface {
	Decrypt(h Handle, party common.Address) (uint32, error)
}

// Backend is the full surface the accumulator service consumes.
type Backend interface {
	Engine
	InputVerifier
	AccessLedger
	Decryptor

	// Scheme returns the scheme identifier of the backend. It must be
	// stable for the lifetime of a deployment.
	Scheme() string
}

// InputDigest computes the digest a caller signs to bind an external
// ciphertext encoding to its own address and to a deployment context.
func InputDigest(external []byte, caller common.Address, context []byte) []byte {
	return crypto.Keccak256(external, caller.Bytes(), context)
}

// ProveInput signs the digest of an external ciphertext encoding with the
// caller's key, producing the proof expected by VerifyInput. The caller
// address is taken from the signing key.
func ProveInput(signer *ethereum.SignKeys, external, context []byte) ([]byte, error) {
	return signer.SignEthereum(InputDigest(external, signer.Address(), context))
}
