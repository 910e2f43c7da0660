package auth

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/creatorhq/marketplace/api/web"
	"github.com/creatorhq/marketplace/api/weberr"
	"github.com/creatorhq/marketplace/core/claims"
	"github.com/creatorhq/marketplace/core/user"
	"github.com/creatorhq/marketplace/validate"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

func HandleSignup(db *sqlx.DB, session *scs.SessionManager, activationRequired bool) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var un user.UserNew
		if err := web.Decode(w, r, &un); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(un); err != nil {
			return weberr.BadRequest(err)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(un.Password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		usr := user.User{
			ID:           validate.GenerateID(),
			Username:     un.Username,
			Name:         un.Name,
			Email:        un.Email,
			Role:         claims.RoleUser,
			PasswordHash: string(hash),
			Active:       !activationRequired,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if err := user.Create(ctx, db, usr); err != nil {
			return err
		}

		return web.Respond(ctx, w, usr, http.StatusCreated)
	}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func HandleLogin(db *sqlx.DB, session *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var lr loginRequest
		if err := web.Decode(w, r, &lr); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(lr); err != nil {
			return weberr.BadRequest(err)
		}

		usr, err := user.FetchByEmail(ctx, db, lr.Email)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotAuthorized(errors.New("unknown email or wrong password"))
			}
			return err
		}

		if err := bcrypt.CompareHashAndPassword([]byte(usr.PasswordHash), []byte(lr.Password)); err != nil {
			return weberr.NotAuthorized(errors.New("unknown email or wrong password"))
		}

		if !usr.Active {
			return weberr.Forbidden(errors.New("account is not activated"))
		}

		if err := login(ctx, session, usr.ID, usr.Email, usr.Role); err != nil {
			return err
		}

		return web.Respond(ctx, w, usr, http.StatusOK)
	}
}

func HandleLogout(session *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		if err := session.Destroy(ctx); err != nil {
			return err
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
