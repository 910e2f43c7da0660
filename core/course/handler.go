package course

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/creatorhq/marketplace/api/web"
	"github.com/creatorhq/marketplace/api/weberr"
	"github.com/creatorhq/marketplace/core/claims"
	"github.com/creatorhq/marketplace/validate"
	"github.com/jmoiron/sqlx"
)

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		crss, err := FetchAll(ctx, db)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, crss, http.StatusOK)
	}
}

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		crs, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		return web.Respond(ctx, w, crs, http.StatusOK)
	}
}

// HandleListOwned lists the courses the session user is enrolled in.
func HandleListOwned(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		crss, err := FetchEnrolled(ctx, db, clm.Email)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, crss, http.StatusOK)
	}
}

func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var cn CourseNew
		if err := web.Decode(w, r, &cn); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(cn); err != nil {
			return weberr.BadRequest(err)
		}

		now := time.Now().UTC()
		crs := Course{
			ID:          validate.GenerateID(),
			SellerID:    clm.UserID,
			Name:        cn.Name,
			Description: cn.Description,
			ImageURL:    cn.ImageURL,
			Price:       cn.Price,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		if err := Create(ctx, db, crs); err != nil {
			return err
		}

		return web.Respond(ctx, w, crs, http.StatusCreated)
	}
}

func HandleUpdate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		var up CourseUp
		if err := web.Decode(w, r, &up); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(up); err != nil {
			return weberr.BadRequest(err)
		}

		crs, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		if !claims.IsAdmin(ctx) && !claims.IsUser(ctx, crs.SellerID) {
			return weberr.Forbidden(errors.New("cannot update another seller's course"))
		}

		if up.Name != nil {
			crs.Name = *up.Name
		}
		if up.Description != nil {
			crs.Description = *up.Description
		}
		if up.Price != nil {
			crs.Price = *up.Price
		}
		if up.ImageURL != nil {
			crs.ImageURL = *up.ImageURL
		}

		if err := Update(ctx, db, crs); err != nil {
			return err
		}

		return web.Respond(ctx, w, crs, http.StatusOK)
	}
}
