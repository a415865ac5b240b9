package api

import (
	"encoding/json"
	"math/big"
	"net/http"

	"github.com/cipherpool/cipherpool/engine"
	"github.com/cipherpool/cipherpool/types"
)

// callbackFunding consumes a funding verification callback
// POST /callbacks/funding
func (a *API) callbackFunding(w http.ResponseWriter, r *http.Request) {
	a.handleCallback(w, r, types.PurposeVerifyFunding)
}

// callbackBonus consumes a bonus settlement callback
// POST /callbacks/bonus
func (a *API) callbackBonus(w http.ResponseWriter, r *http.Request) {
	a.handleCallback(w, r, types.PurposeSettleBonus)
}

// callbackRemainder consumes a remainder settlement callback
// POST /callbacks/remainder
func (a *API) callbackRemainder(w http.ResponseWriter, r *http.Request) {
	a.handleCallback(w, r, types.PurposeSettleRemainder)
}

func (a *API) handleCallback(w http.ResponseWriter, r *http.Request, purpose types.Purpose) {
	cb := &Callback{}
	if err := json.NewDecoder(r.Body).Decode(cb); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	values := make([]*big.Int, len(cb.Values))
	for i, v := range cb.Values {
		if v == nil {
			ErrMalformedBody.With("nil cleartext value").Write(w)
			return
		}
		values[i] = v.MathBigInt()
	}
	if err := a.protocol.HandleCallbackFor(purpose, engine.Callback{
		RequestID: cb.RequestID,
		Values:    values,
		Proof:     cb.Proof,
	}); err != nil {
		writeProtocolError(w, err)
		return
	}
	httpWriteOK(w)
}
