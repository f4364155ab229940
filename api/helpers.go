package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/vocdoni/rui-backend/log"
)

// maxBodySize is the largest JSON-RPC request body accepted.
const maxBodySize = 1 << 20

// httpWriteOK helper function allows to write an OK response.
func httpWriteOK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
}

// checkJSONBody rejects request bodies that are too large or not valid JSON
// with ErrMalformedBody, before they reach the JSON-RPC server.
func checkJSONBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				ErrMalformedBody.Withf("body exceeds %d bytes", tooLarge.Limit).Write(w)
				return
			}
			ErrMalformedBody.WithErr(err).Write(w)
			return
		}
		if !json.Valid(body) {
			ErrMalformedBody.Write(w)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}
