package order

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/creatorhq/marketplace/api/web"
	"github.com/creatorhq/marketplace/api/weberr"
	"github.com/creatorhq/marketplace/core/user"
	"github.com/creatorhq/marketplace/database"
	"github.com/creatorhq/marketplace/validate"
	"github.com/jmoiron/sqlx"
)

// HandleAdminList lists orders, optionally filtered by status.
func HandleAdminList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		status := web.QueryParam(r, "status")

		var (
			ords []Order
			err  error
		)
		if status != "" {
			ords, err = FetchByStatus(ctx, db, Status(status))
		} else {
			const q = `SELECT * FROM orders ORDER BY created_at DESC`
			ords = []Order{}
			err = sqlx.SelectContext(ctx, db, &ords, q)
		}
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, ords, http.StatusOK)
	}
}

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		ord, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		items, err := FetchItems(ctx, db, ord.ID)
		if err != nil {
			return err
		}

		resp := struct {
			Order
			Items []Item `json:"items"`
		}{ord, items}

		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}

// HandleListPayable lists paid orders whose holdback expired and whose
// proceeds are still locked.
func HandleListPayable(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		ords, err := FetchPayable(ctx, db)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, ords, http.StatusOK)
	}
}

// HandleCompletePayout releases one order's proceeds: marks the payout done
// and debits the seller's pending balance in the same transaction.
func HandleCompletePayout(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		ord, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		if ord.PayoutStatus != PayoutPending {
			err := errors.New("order payout already completed")
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}
		if ord.SellerID == nil {
			err := errors.New("order has no seller to pay out")
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		err = database.Transaction(db, func(tx sqlx.ExtContext) error {
			moved, err := UpdatePayoutStatus(ctx, tx, ord.ID, PayoutPending, PayoutCompleted)
			if err != nil {
				return err
			}
			if !moved {
				err := errors.New("order payout already completed")
				return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
			}
			return user.Debit(ctx, tx, *ord.SellerID, ord.SellerAmount)
		})
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
