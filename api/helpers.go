package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/cipherpool/cipherpool/distributor"
	"github.com/cipherpool/cipherpool/engine"
	"github.com/cipherpool/cipherpool/log"
)

// httpWriteJSON helper function allows to write a JSON response.
func httpWriteJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	jdata, err := json.Marshal(data)
	if err != nil {
		ErrMarshalingServerJSONFailed.WithErr(err).Write(w)
		return
	}
	n, err := w.Write(jdata)
	if err != nil {
		log.Warnw("failed to write http response", "error", err)
	}
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
	log.Debugw("api response", "bytes", n, "data", strings.ReplaceAll(string(jdata), "\"", ""))
}

// httpWriteOK helper function allows to write an OK response.
func httpWriteOK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
}

// writeProtocolError maps a distributor or engine error to its API error
// and writes it.
func writeProtocolError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, distributor.ErrInvalidAmount):
		ErrInvalidAmount.WithErr(err).Write(w)
	case errors.Is(err, distributor.ErrInvalidTier):
		ErrInvalidTier.WithErr(err).Write(w)
	case errors.Is(err, distributor.ErrNotOwner):
		ErrNotPoolOwner.Write(w)
	case errors.Is(err, distributor.ErrRequestInFlight):
		ErrRequestPending.Write(w)
	case errors.Is(err, distributor.ErrUnknownRequest):
		ErrUnknownRequest.Write(w)
	case errors.Is(err, distributor.ErrInvalidProof):
		ErrInvalidCallback.WithErr(err).Write(w)
	case errors.Is(err, distributor.ErrPoolHalted):
		ErrPoolHalted.Write(w)
	case errors.Is(err, distributor.ErrPoolMismatch):
		ErrPoolMismatch.Write(w)
	case errors.Is(err, engine.ErrInvalidProof),
		errors.Is(err, engine.ErrValueOutOfRange),
		errors.Is(err, engine.ErrUnknownHandle):
		ErrInvalidCiphertext.WithErr(err).Write(w)
	case errors.Is(err, distributor.ErrAlreadyCommitted),
		errors.Is(err, distributor.ErrAlreadyWithdrawn),
		errors.Is(err, distributor.ErrNotCommitted),
		errors.Is(err, distributor.ErrPoolUninitialized),
		errors.Is(err, distributor.ErrNothingToWithdraw),
		errors.Is(err, distributor.ErrZeroBonus),
		errors.Is(err, distributor.ErrInsufficientFunds),
		errors.Is(err, distributor.ErrRequestNotExpired):
		ErrStateConflict.WithErr(err).Write(w)
	default:
		ErrGenericInternalServerError.WithErr(err).Write(w)
	}
}
