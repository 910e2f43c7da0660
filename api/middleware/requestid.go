package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/creatorhq/marketplace/api/web"
	"github.com/creatorhq/marketplace/random"
)

// RequestIDHeader carries a caller-supplied id; one is minted when absent.
const RequestIDHeader = "X-Request-Id"

// Caller-supplied ids longer than this are truncated before logging.
const requestIDLengthLimit = 128

type reqIDKeyCtx int

const reqIDKey reqIDKeyCtx = 1

var (
	reqPrefix = random.String(10)
	reqSeq    int64
)

// RequestID tags every request with an id and stores it on the context for
// the logger and error middlewares.
func RequestID() web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			id := r.Header.Get(RequestIDHeader)
			switch {
			case id == "":
				id = fmt.Sprintf("%s-%d", reqPrefix, atomic.AddInt64(&reqSeq, 1))
			case len(id) > requestIDLengthLimit:
				id = id[:requestIDLengthLimit]
			}

			ctx = context.WithValue(ctx, reqIDKey, id)
			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

// ContextRequestID returns the id stored by RequestID, or "".
func ContextRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(reqIDKey).(string); ok {
		return id
	}
	return ""
}
