// Package ethereum provides secp256k1 signing keys and Ethereum-style
// signature helpers. Signatures use the standard Ethereum signed-message
// prefix, so any wallet can produce them and the signer address can be
// recovered without knowing the public key in advance.
package ethereum

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/sealedsum/sealedsum/util"
)

// SignatureLength is the size in bytes of an ECDSA signature with recovery id.
const SignatureLength = 65

// SignKeys holds an ECDSA key pair on the secp256k1 curve.
type SignKeys struct {
	Public  ecdsa.PublicKey
	Private ecdsa.PrivateKey
}

// NewSignKeys creates an empty SignKeys. Call Generate or AddHexKey to
// populate it.
func NewSignKeys() *SignKeys {
	return new(SignKeys)
}

// Generate creates a fresh random key pair.
func (k *SignKeys) Generate() error {
	key, err := crypto.GenerateKey()
	if err != nil {
		return err
	}
	k.Private = *key
	k.Public = key.PublicKey
	return nil
}

// AddHexKey imports a private key given as an hex string, with or without
// the 0x prefix.
func (k *SignKeys) AddHexKey(privHex string) error {
	key, err := crypto.HexToECDSA(util.TrimHex(privHex))
	if err != nil {
		return err
	}
	k.Private = *key
	k.Public = key.PublicKey
	return nil
}

// HexString returns the compressed public key and the private key as hex
// strings, without the 0x prefix.
func (k *SignKeys) HexString() (string, string) {
	pub := hex.EncodeToString(k.PublicKey())
	priv := hex.EncodeToString(crypto.FromECDSA(&k.Private))
	return pub, priv
}

// PublicKey returns the compressed public key bytes.
func (k *SignKeys) PublicKey() []byte {
	return crypto.CompressPubkey(&k.Public)
}

// Address returns the Ethereum address of the key pair.
func (k *SignKeys) Address() common.Address {
	return crypto.PubkeyToAddress(k.Public)
}

// AddressString returns the checksummed string form of the address.
func (k *SignKeys) AddressString() string {
	return k.Address().String()
}

// SignEthereum signs the message using the Ethereum signed-message prefix and
// returns the 65-byte [R || S || V] signature, with V in {0, 1}.
func (k *SignKeys) SignEthereum(message []byte) ([]byte, error) {
	return crypto.Sign(HashEthereumMessage(message), &k.Private)
}

// HashEthereumMessage hashes data prefixed with the standard Ethereum
// signed-message header.
func HashEthereumMessage(data []byte) []byte {
	prefix := fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(data))
	return crypto.Keccak256(append([]byte(prefix), data...))
}

// AddrFromSignature recovers the address that signed the given message.
// Both V in {0, 1} and V in {27, 28} are accepted.
func AddrFromSignature(message, signature []byte) (common.Address, error) {
	if len(signature) != SignatureLength {
		return common.Address{}, fmt.Errorf("invalid signature length %d", len(signature))
	}
	sig := make([]byte, SignatureLength)
	copy(sig, signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	pub, err := crypto.SigToPub(HashEthereumMessage(message), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("cannot recover public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// AddrFromPublicKey returns the Ethereum address for a compressed public key.
func AddrFromPublicKey(pubKey []byte) (common.Address, error) {
	pub, err := crypto.DecompressPubkey(pubKey)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}
