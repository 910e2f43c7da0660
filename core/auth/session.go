package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/creatorhq/marketplace/api/web"
	"github.com/creatorhq/marketplace/api/weberr"
	"github.com/creatorhq/marketplace/core/claims"
)

const (
	sessionUserID = "user_id"
	sessionEmail  = "email"
	sessionRole   = "role"
)

// LoadAndSave loads the scs session into the context, promotes a logged-in
// user to claims, and commits the session cookie before the first byte of
// the response goes out.
func LoadAndSave(s *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			var token string
			if cookie, err := r.Cookie(s.Cookie.Name); err == nil {
				token = cookie.Value
			}

			ctx, err := s.Load(ctx, token)
			if err != nil {
				return err
			}

			if id := s.GetString(ctx, sessionUserID); id != "" {
				ctx = claims.Set(ctx, claims.Claims{
					UserID: id,
					Email:  s.GetString(ctx, sessionEmail),
					Role:   s.GetString(ctx, sessionRole),
				})
			}

			sw := &sessionWriter{ResponseWriter: w, s: s, ctx: ctx}
			return handler(ctx, sw, r.WithContext(ctx))
		}
		return h
	}
	return m
}

type sessionWriter struct {
	http.ResponseWriter
	s         *scs.SessionManager
	ctx       context.Context
	committed bool
}

func (sw *sessionWriter) WriteHeader(code int) {
	sw.commit()
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *sessionWriter) Write(b []byte) (int, error) {
	sw.commit()
	return sw.ResponseWriter.Write(b)
}

func (sw *sessionWriter) commit() {
	if sw.committed {
		return
	}
	sw.committed = true

	switch sw.s.Status(sw.ctx) {
	case scs.Modified:
		token, expiry, err := sw.s.Commit(sw.ctx)
		if err != nil {
			return
		}
		sw.s.WriteSessionCookie(sw.ctx, sw.ResponseWriter, token, expiry)
	case scs.Destroyed:
		sw.s.WriteSessionCookie(sw.ctx, sw.ResponseWriter, "", time.Time{})
	}
}

func Authenticate(s *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if _, err := claims.Get(ctx); err != nil {
				return weberr.NotAuthorized(errors.New("user not authenticated"))
			}
			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

func Admin(s *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if _, err := claims.Get(ctx); err != nil {
				return weberr.NotAuthorized(errors.New("user not authenticated"))
			}
			if !claims.IsAdmin(ctx) {
				return weberr.Forbidden(errors.New("admin privileges required"))
			}
			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

func Seller(s *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if _, err := claims.Get(ctx); err != nil {
				return weberr.NotAuthorized(errors.New("user not authenticated"))
			}
			if !claims.IsSeller(ctx) {
				return weberr.Forbidden(errors.New("seller privileges required"))
			}
			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

func login(ctx context.Context, s *scs.SessionManager, id string, email string, role string) error {
	if err := s.RenewToken(ctx); err != nil {
		return err
	}
	s.Put(ctx, sessionUserID, id)
	s.Put(ctx, sessionEmail, email)
	s.Put(ctx, sessionRole, role)
	return nil
}
