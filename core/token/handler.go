package token

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/creatorhq/marketplace/api/background"
	"github.com/creatorhq/marketplace/api/web"
	"github.com/creatorhq/marketplace/api/weberr"
	"github.com/creatorhq/marketplace/core/user"
	"github.com/creatorhq/marketplace/database"
	"github.com/creatorhq/marketplace/random"
	"github.com/creatorhq/marketplace/validate"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// Mailer delivers the plaintext tokens.
type Mailer interface {
	SendActivationToken(to string, token string) error
	SendRecoveryToken(to string, token string) error
}

type tokenRequest struct {
	Email string `json:"email" validate:"required,email"`
	Scope string `json:"scope" validate:"required,oneof=activation recovery"`
}

// HandleToken issues a fresh activation or recovery token and mails it.
// Unknown emails are acknowledged the same way as known ones.
func HandleToken(db *sqlx.DB, mailer Mailer, timeout time.Duration, bg *background.Background) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var tr tokenRequest
		if err := web.Decode(w, r, &tr); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(tr); err != nil {
			return weberr.BadRequest(err)
		}

		usr, err := user.FetchByEmail(ctx, db, tr.Email)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return web.Respond(ctx, w, nil, http.StatusAccepted)
			}
			return err
		}

		plaintext, err := random.StringSecure(26)
		if err != nil {
			return err
		}

		tok := Token{
			Hash:   Hash(plaintext),
			UserID: usr.ID,
			Scope:  tr.Scope,
			Expiry: time.Now().UTC().Add(timeout),
		}

		if err := Create(ctx, db, tok); err != nil {
			return err
		}

		bg.Add("token-mail", func() error {
			if tr.Scope == ScopeActivation {
				return mailer.SendActivationToken(usr.Email, plaintext)
			}
			return mailer.SendRecoveryToken(usr.Email, plaintext)
		})

		return web.Respond(ctx, w, nil, http.StatusAccepted)
	}
}

type activationRequest struct {
	Token string `json:"token" validate:"required"`
}

func HandleActivation(db *sqlx.DB, session *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var ar activationRequest
		if err := web.Decode(w, r, &ar); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(ar); err != nil {
			return weberr.BadRequest(err)
		}

		tok, err := FetchValid(ctx, db, ar.Token, ScopeActivation)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NewError(err, "invalid or expired token", http.StatusUnprocessableEntity)
			}
			return err
		}

		err = database.Transaction(db, func(tx sqlx.ExtContext) error {
			if err := user.Activate(ctx, tx, tok.UserID); err != nil {
				return err
			}
			return DeleteByUser(ctx, tx, tok.UserID, ScopeActivation)
		})
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

type recoveryRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

func HandleRecovery(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var rr recoveryRequest
		if err := web.Decode(w, r, &rr); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(rr); err != nil {
			return weberr.BadRequest(err)
		}

		tok, err := FetchValid(ctx, db, rr.Token, ScopeRecovery)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NewError(err, "invalid or expired token", http.StatusUnprocessableEntity)
			}
			return err
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(rr.Password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		err = database.Transaction(db, func(tx sqlx.ExtContext) error {
			if err := user.UpdatePassword(ctx, tx, tok.UserID, string(hash)); err != nil {
				return err
			}
			return DeleteByUser(ctx, tx, tok.UserID, ScopeRecovery)
		})
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
