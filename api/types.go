package api

import (
	"github.com/sealedsum/sealedsum/types"
)

// Protocol describes a deployment: the protocol identifier delta proofs must
// bind to and the homomorphic scheme behind the handles.
type Protocol struct {
	ProtocolID string `json:"protocolId"`
	Scheme     string `json:"scheme"`
}

// Delta is the request body for increment and decrement operations. External
// is the backend-specific ciphertext encoding of the delta and Proof binds it
// to the principal in the URL and to this deployment.
type Delta struct {
	External types.HexBytes `json:"external"`
	Proof    types.HexBytes `json:"proof"`
}

// Account is the response carrying a principal's current handle. The handle
// is opaque: it cannot be opened without a decryption grant.
type Account struct {
	Principal types.HexBytes `json:"principal"`
	Handle    types.HexBytes `json:"handle"`
}

// AccountPlain is the response to a decrypt request. Value carries the
// running total with mod 2^32 wraparound semantics.
type AccountPlain struct {
	Principal types.HexBytes `json:"principal"`
	Handle    types.HexBytes `json:"handle"`
	Value     uint32         `json:"value"`
}
