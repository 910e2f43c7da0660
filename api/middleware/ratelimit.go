package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/creatorhq/marketplace/api/web"
	"github.com/creatorhq/marketplace/api/weberr"
	"github.com/creatorhq/marketplace/rate"
)

// RateLimit rejects requests exceeding the per-client budget of lim, keyed
// by remote IP. Used on the auth endpoints.
func RateLimit(lim *rate.Limiter) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}

			if !lim.Check(ip) {
				err := errors.New("rate limit exceeded")
				return weberr.NewError(err, err.Error(), http.StatusTooManyRequests)
			}

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}
