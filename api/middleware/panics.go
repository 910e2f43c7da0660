package middleware

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/creatorhq/marketplace/api/web"
)

// Panics converts a handler panic into an error so the Errors middleware can
// log it and the server keeps running.
func Panics() web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					trace := debug.Stack()
					err = fmt.Errorf("PANIC [%v] TRACE[%s]", rec, string(trace))
				}
			}()

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}
