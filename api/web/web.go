// Package web is the small kit every handler is built on: the error-returning
// handler signature, middleware chaining, and JSON request/response helpers.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
)

// Handler is the signature every endpoint implements. Returned errors bubble
// up to the Errors middleware, which decides what the client sees.
type Handler func(ctx context.Context, w http.ResponseWriter, r *http.Request) error

type Middleware func(Handler) Handler

// WrapMiddleware wraps handler so the first middleware in mw is the
// outermost.
func WrapMiddleware(mw []Middleware, handler Handler) Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		if m := mw[i]; m != nil {
			handler = m(handler)
		}
	}
	return handler
}

// Respond writes data as JSON. A 204 writes no body at all.
func Respond(ctx context.Context, w http.ResponseWriter, data any, statusCode int) error {
	if statusCode == http.StatusNoContent {
		w.WriteHeader(statusCode)
		return nil
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("cannot marshal response data: %w", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if _, err := w.Write(jsonData); err != nil {
		return fmt.Errorf("cannot write response data: %w", err)
	}
	return nil
}

// Decode reads the request body into val, rejecting unknown fields and
// bodies over 1MB.
func Decode(w http.ResponseWriter, r *http.Request, val any) error {
	const maxBytes = 1 << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(val)
}

// Param returns the named URL path parameter.
func Param(r *http.Request, key string) string {
	return mux.Vars(r)[key]
}

// QueryParam returns the named query string parameter, or "".
func QueryParam(r *http.Request, key string) string {
	return r.URL.Query().Get(key)
}
