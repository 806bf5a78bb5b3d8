package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"github.com/sealedsum/sealedsum/accumulator"
	"github.com/sealedsum/sealedsum/crypto/ethereum"
	"github.com/sealedsum/sealedsum/hebackend"
	"github.com/sealedsum/sealedsum/log"
	"github.com/sealedsum/sealedsum/types"
)

// protocol describes the deployment
// GET /protocol
func (a *API) protocol(w http.ResponseWriter, r *http.Request) {
	httpWriteJSON(w, &Protocol{
		ProtocolID: a.acc.ProtocolID(),
		Scheme:     a.acc.Backend().Scheme(),
	})
}

// account returns the principal's current handle
// GET /accounts/{principal}
func (a *API) account(w http.ResponseWriter, r *http.Request) {
	principal, ok := urlPrincipal(w, r)
	if !ok {
		return
	}
	h, err := a.acc.Read(principal)
	if err != nil {
		ErrGenericInternalServerError.Withf("could not read account: %v", err).Write(w)
		return
	}
	httpWriteJSON(w, &Account{
		Principal: principal.Bytes(),
		Handle:    h,
	})
}

// accountPlain decrypts the principal's current handle. The signature query
// parameter must be the principal's signature over the handle bytes, so only
// the principal itself can ask for its cleartext total.
// GET /accounts/{principal}/plain?signature=...
func (a *API) accountPlain(w http.ResponseWriter, r *http.Request) {
	principal, ok := urlPrincipal(w, r)
	if !ok {
		return
	}
	h, err := a.acc.Read(principal)
	if err != nil {
		ErrGenericInternalServerError.Withf("could not read account: %v", err).Write(w)
		return
	}
	signature := types.HexBytes{}
	if err := signature.SetString(r.URL.Query().Get("signature")); err != nil {
		ErrInvalidSignature.Withf("could not decode signature: %v", err).Write(w)
		return
	}
	signer, err := ethereum.AddrFromSignature(h, signature)
	if err != nil {
		ErrInvalidSignature.Withf("could not extract address from signature: %v", err).Write(w)
		return
	}
	if signer != principal {
		ErrInvalidSignature.With("signature does not belong to the principal").Write(w)
		return
	}
	value, err := a.acc.Backend().Decrypt(h, principal)
	if err != nil {
		if errors.Is(err, hebackend.ErrNotAuthorized) {
			ErrDecryptNotAuthorized.WithErr(err).Write(w)
			return
		}
		ErrGenericInternalServerError.Withf("could not decrypt handle: %v", err).Write(w)
		return
	}
	httpWriteJSON(w, &AccountPlain{
		Principal: principal.Bytes(),
		Handle:    h,
		Value:     value,
	})
}

// increment adds an externally encrypted delta to the principal's total
// POST /accounts/{principal}/increment
func (a *API) increment(w http.ResponseWriter, r *http.Request) {
	a.applyDelta(w, r, accumulator.EventIncrement)
}

// decrement subtracts an externally encrypted delta from the principal's total
// POST /accounts/{principal}/decrement
func (a *API) decrement(w http.ResponseWriter, r *http.Request) {
	a.applyDelta(w, r, accumulator.EventDecrement)
}

func (a *API) applyDelta(w http.ResponseWriter, r *http.Request, event string) {
	principal, ok := urlPrincipal(w, r)
	if !ok {
		return
	}
	d := &Delta{}
	if err := json.NewDecoder(r.Body).Decode(d); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}

	var h hebackend.Handle
	var err error
	switch event {
	case accumulator.EventIncrement:
		h, err = a.acc.Increment(principal, d.External, d.Proof)
	case accumulator.EventDecrement:
		h, err = a.acc.Decrement(principal, d.External, d.Proof)
	}
	if err != nil {
		switch {
		case errors.Is(err, accumulator.ErrInvalidPrincipal):
			ErrMalformedPrincipal.WithErr(err).Write(w)
		case errors.Is(err, accumulator.ErrInvalidProof):
			ErrInvalidProof.WithErr(err).Write(w)
		case errors.Is(err, accumulator.ErrConsistencyHazard):
			ErrConsistencyHazard.WithErr(err).Write(w)
		default:
			ErrGenericInternalServerError.Withf("could not apply delta: %v", err).Write(w)
		}
		return
	}

	log.Infow("delta applied", "event", event, "principal", principal.Hex(), "handle", h.String())
	httpWriteJSON(w, &Account{
		Principal: principal.Bytes(),
		Handle:    h,
	})
}

// urlPrincipal parses the principal address from the request URL. On failure
// it writes the error response and returns false.
func urlPrincipal(w http.ResponseWriter, r *http.Request) (common.Address, bool) {
	raw := chi.URLParam(r, PrincipalURLParam)
	if !common.IsHexAddress(raw) {
		ErrMalformedPrincipal.Withf("%q is not a valid address", raw).Write(w)
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}
