package bundle

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

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		bnd, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		return web.Respond(ctx, w, bnd, http.StatusOK)
	}
}

func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var bn BundleNew
		if err := web.Decode(w, r, &bn); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(bn); err != nil {
			return weberr.BadRequest(err)
		}

		now := time.Now().UTC()
		bnd := Bundle{
			ID:          validate.GenerateID(),
			SellerID:    clm.UserID,
			Name:        bn.Name,
			Description: bn.Description,
			Price:       bn.Price,
			ProductIDs:  bn.ProductIDs,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		if err := Create(ctx, db, bnd); err != nil {
			return err
		}

		return web.Respond(ctx, w, bnd, http.StatusCreated)
	}
}

func HandleUpdate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		var up BundleUp
		if err := web.Decode(w, r, &up); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(up); err != nil {
			return weberr.BadRequest(err)
		}

		bnd, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		if !claims.IsAdmin(ctx) && !claims.IsUser(ctx, bnd.SellerID) {
			return weberr.Forbidden(errors.New("cannot update another seller's bundle"))
		}

		if up.Name != nil {
			bnd.Name = *up.Name
		}
		if up.Description != nil {
			bnd.Description = *up.Description
		}
		if up.Price != nil {
			bnd.Price = *up.Price
		}
		if len(up.ProductIDs) > 0 {
			bnd.ProductIDs = up.ProductIDs
		}

		if err := Update(ctx, db, bnd); err != nil {
			return err
		}

		return web.Respond(ctx, w, bnd, http.StatusOK)
	}
}
