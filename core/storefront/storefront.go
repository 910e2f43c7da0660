package storefront

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/creatorhq/marketplace/api/web"
	"github.com/creatorhq/marketplace/api/weberr"
	"github.com/creatorhq/marketplace/core/bundle"
	"github.com/creatorhq/marketplace/core/course"
	"github.com/creatorhq/marketplace/core/product"
	"github.com/creatorhq/marketplace/core/user"
	"github.com/jmoiron/sqlx"
)

// Storefront is the public face of a seller: their profile and everything
// they list for sale.
type Storefront struct {
	SellerID string            `json:"sellerId"`
	Username string            `json:"username"`
	Name     string            `json:"name"`
	Products []product.Product `json:"products"`
	Courses  []course.Course   `json:"courses"`
	Bundles  []bundle.Bundle   `json:"bundles"`
}

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		username := web.Param(r, "username")

		usr, err := user.FetchByUsername(ctx, db, username)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		prds, err := product.FetchBySeller(ctx, db, usr.ID)
		if err != nil {
			return err
		}

		crss, err := course.FetchBySeller(ctx, db, usr.ID)
		if err != nil {
			return err
		}

		bnds, err := bundle.FetchBySeller(ctx, db, usr.ID)
		if err != nil {
			return err
		}

		sf := Storefront{
			SellerID: usr.ID,
			Username: usr.Username,
			Name:     usr.Name,
			Products: prds,
			Courses:  crss,
			Bundles:  bnds,
		}

		return web.Respond(ctx, w, sf, http.StatusOK)
	}
}
