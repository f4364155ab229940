//nolint:lll
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/vocdoni/rui-backend/board"
	"github.com/vocdoni/rui-backend/circuits/membership"
	"github.com/vocdoni/rui-backend/storage"
	"github.com/vocdoni/rui-backend/sui"
)

// The custom Error type satisfies the error interface and go-ethereum's
// rpc.Error, so the Code is sent as the JSON-RPC error code.
// Error() returns a human-readable description of the error.
//
// Error codes in the 40001-49999 range are the user's fault,
// and they return HTTP Status 400 or 404, whatever is most appropriate.
//
// Error codes 50001-59999 are the server's fault
// and they return HTTP Status 500 or 503, or something else if appropriate.
//
// NEVER change any of the current error codes, only append new errors after the current last 4XXX or 5XXX
// If you notice there's a gap DON'T fill in the gap,
// that code was used in the past for some error (not anymore) and shouldn't be reused.
// There's no correlation between Code and HTTP Status.
var (
	ErrResourceNotFound    = Error{Code: 40001, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("resource not found")}
	ErrMalformedBody       = Error{Code: 40004, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed JSON body")}
	ErrMalformedScalar     = Error{Code: 40010, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed scalar")}
	ErrNotMember           = Error{Code: 40011, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("secret is not a member of the group")}
	ErrInvalidQuestion     = Error{Code: 40012, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid question")}
	ErrCapacityExceeded    = Error{Code: 40013, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("group capacity exceeded")}
	ErrReceiptNotFound     = Error{Code: 40014, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("receipt not found")}
	ErrVerifyingKeyMissing = Error{Code: 40015, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("verifying key not available")}
	ErrMethodNotAllowed    = Error{Code: 40016, HTTPstatus: http.StatusMethodNotAllowed, Err: fmt.Errorf("method not allowed")}

	ErrGenericInternalServerError = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("internal server error")}
	ErrLedgerQuery                = Error{Code: 50010, HTTPstatus: http.StatusServiceUnavailable, Err: fmt.Errorf("ledger query failed")}
	ErrLedgerDecode               = Error{Code: 50011, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("cannot decode ledger object")}
	ErrNoFeeResource              = Error{Code: 50012, HTTPstatus: http.StatusServiceUnavailable, Err: fmt.Errorf("no gas coin available")}
	ErrSigning                    = Error{Code: 50013, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("cannot sign transaction")}
	ErrSubmission                 = Error{Code: 50014, HTTPstatus: http.StatusBadGateway, Err: fmt.Errorf("transaction submission failed")}
	ErrProofGeneration            = Error{Code: 50015, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("proof generation failed")}
	ErrAssembly                   = Error{Code: 50016, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("cannot assemble transaction")}
)

// errorMappings is walked in order, the first sentinel matched wins.
var errorMappings = []struct {
	target error
	apiErr Error
}{
	{membership.ErrMalformedScalar, ErrMalformedScalar},
	{membership.ErrNotMember, ErrNotMember},
	{board.ErrInvalidRequest, ErrInvalidQuestion},
	{sui.ErrCapacityExceeded, ErrCapacityExceeded},
	{storage.ErrNotFound, ErrReceiptNotFound},
	{sui.ErrLedgerQuery, ErrLedgerQuery},
	{sui.ErrDecode, ErrLedgerDecode},
	{sui.ErrNoFeeResource, ErrNoFeeResource},
	{sui.ErrAssembly, ErrAssembly},
	{sui.ErrSigning, ErrSigning},
	{sui.ErrSubmission, ErrSubmission},
	{membership.ErrWitnessMismatch, ErrProofGeneration},
	{membership.ErrProofIntegrity, ErrProofGeneration},
	{membership.ErrPoolStopped, ErrProofGeneration},
}

// toAPIError maps the errors of the board pipeline to numbered API errors.
// User errors keep their message. Server errors keep it too, it never holds
// secret material.
func toAPIError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return Error{Err: err, Code: m.apiErr.Code, HTTPstatus: m.apiErr.HTTPstatus}
		}
	}
	return ErrGenericInternalServerError.WithErr(err)
}
