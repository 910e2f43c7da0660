package checkout

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/creatorhq/marketplace/api/web"
	"github.com/creatorhq/marketplace/api/weberr"
	"github.com/creatorhq/marketplace/config"
	"github.com/creatorhq/marketplace/core/bundle"
	"github.com/creatorhq/marketplace/core/claims"
	"github.com/creatorhq/marketplace/core/coupon"
	"github.com/creatorhq/marketplace/core/course"
	"github.com/creatorhq/marketplace/core/order"
	"github.com/creatorhq/marketplace/core/product"
	"github.com/creatorhq/marketplace/core/subscription"
	"github.com/creatorhq/marketplace/database"
	"github.com/creatorhq/marketplace/validate"
	"github.com/jmoiron/sqlx"
	"github.com/plutov/paypal/v4"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	stripecl "github.com/stripe/stripe-go/v74/client"
	"github.com/stripe/stripe-go/v74/webhook"
)

// CheckoutNew is the request opening a payment session. Items are priced
// server-side; the client only names them.
type CheckoutNew struct {
	Items         []ItemRef       `json:"items" validate:"required,min=1,unique=ID,dive"`
	CouponCode    string          `json:"couponCode"`
	AffiliateRef  string          `json:"affiliateRef"`
	CustomerName  string          `json:"customerName"`
	CustomerPhone string          `json:"customerPhone"`
	Appointment   *AppointmentNew `json:"appointment"`
}

type ItemRef struct {
	ID   string `json:"id" validate:"required,uuid"`
	Type string `json:"type" validate:"required,oneof=product course bundle"`
}

type AppointmentNew struct {
	Date     string `json:"date" validate:"required,datetime=2006-01-02"`
	Time     string `json:"time" validate:"required,datetime=15:04"`
	SellerID string `json:"sellerId" validate:"required,uuid"`
}

type pricedItem struct {
	LineItem
	Name        string
	Description string
}

func priceItems(ctx context.Context, db sqlx.ExtContext, refs []ItemRef) ([]pricedItem, int64, error) {
	items := make([]pricedItem, 0, len(refs))
	var total int64

	for _, ref := range refs {
		var it pricedItem
		it.ID = ref.ID
		it.Type = ref.Type

		switch ref.Type {
		case order.ItemProduct:
			prd, err := product.Fetch(ctx, db, ref.ID)
			if err != nil {
				return nil, 0, err
			}
			it.Price, it.Name, it.Description = prd.Price, prd.Name, prd.Description

		case order.ItemCourse:
			crs, err := course.Fetch(ctx, db, ref.ID)
			if err != nil {
				return nil, 0, err
			}
			it.Price, it.Name, it.Description = crs.Price, crs.Name, crs.Description

		case order.ItemBundle:
			bnd, err := bundle.Fetch(ctx, db, ref.ID)
			if err != nil {
				return nil, 0, err
			}
			it.Price, it.Name, it.Description = bnd.Price, bnd.Name, bnd.Description
		}

		total += it.Price
		items = append(items, it)
	}

	return items, total, nil
}

func discountFor(cpn coupon.Coupon, total int64) int64 {
	var d int64
	if cpn.DiscountType == coupon.DiscountPercentage {
		d = total * cpn.DiscountValue / 100
	} else {
		d = cpn.DiscountValue
	}
	if d > total {
		d = total
	}
	return d
}

func (cn CheckoutNew) metadata(buyerID string, couponID string, discount int64) Metadata {
	meta := Metadata{
		BuyerID:         buyerID,
		CouponID:        couponID,
		DiscountApplied: discount,
		AffiliateRef:    cn.AffiliateRef,
		CustomerName:    cn.CustomerName,
		CustomerPhone:   cn.CustomerPhone,
	}
	for _, ref := range cn.Items {
		meta.Items = append(meta.Items, LineItem{ID: ref.ID, Type: ref.Type})
	}
	if cn.Appointment != nil {
		meta.AppointmentDate = cn.Appointment.Date
		meta.AppointmentTime = cn.Appointment.Time
		meta.AppointmentSellerID = cn.Appointment.SellerID
	}
	return meta
}

// HandleStripeCheckout opens a Stripe checkout session for the priced cart
// and encodes the fulfillment metadata onto it. The webhook does the rest.
func HandleStripeCheckout(db *sqlx.DB, strp *stripecl.API, cfg config.Stripe) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var cn CheckoutNew
		if err := web.Decode(w, r, &cn); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(cn); err != nil {
			return weberr.BadRequest(err)
		}

		items, total, err := priceItems(ctx, db, cn.Items)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		var couponID string
		var discount int64
		if cn.CouponCode != "" {
			cpn, err := coupon.FetchByCode(ctx, db, cn.CouponCode)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return weberr.NewError(err, "unknown coupon code", http.StatusUnprocessableEntity)
				}
				return err
			}
			couponID = cpn.ID
			discount = discountFor(cpn, total)
		}

		li := make([]*stripe.CheckoutSessionLineItemParams, 0, len(items))
		for _, it := range items {
			li = append(li, &stripe.CheckoutSessionLineItemParams{
				Quantity: stripe.Int64(1),

				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:    stripe.String("usd"),
					TaxBehavior: stripe.String("inclusive"),
					UnitAmount:  stripe.Int64(it.Price),

					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(it.Name),
						Description: stripe.String(it.Description),
					},
				},
			})
		}

		meta := cn.metadata(clm.UserID, couponID, discount)
		for _, it := range items {
			// Re-encode with the server-side prices so the webhook never
			// trusts client numbers.
			for i := range meta.Items {
				if meta.Items[i].ID == it.ID {
					meta.Items[i].Price = it.Price
				}
			}
		}

		params := &stripe.CheckoutSessionParams{
			SuccessURL:    stripe.String(cfg.SuccessURL),
			CancelURL:     stripe.String(cfg.CancelURL),
			Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
			CustomerEmail: stripe.String(clm.Email),
			LineItems:     li,
		}

		if discount > 0 {
			c, err := strp.Coupons.New(&stripe.CouponParams{
				AmountOff: stripe.Int64(discount),
				Currency:  stripe.String("usd"),
				Duration:  stripe.String("once"),
			})
			if err != nil {
				return fmt.Errorf("creating stripe coupon: %w", err)
			}
			params.Discounts = []*stripe.CheckoutSessionDiscountParams{{Coupon: stripe.String(c.ID)}}
		}

		for k, v := range meta.Encode() {
			params.AddMetadata(k, v)
		}

		s, err := strp.CheckoutSessions.New(params)
		if err != nil {
			return fmt.Errorf("creating stripe session: %w", err)
		}

		return web.Respond(ctx, w, s.URL, http.StatusOK)
	}
}

type webhookAck struct {
	Received bool `json:"received"`
}

// HandleStripeWebhook verifies the event signature and dispatches by type.
// Once the signature checks out the endpoint always acknowledges: failing a
// partially-fulfilled event would only make the provider redeliver it, and
// fulfillment is already idempotent on the session id.
func HandleStripeWebhook(f *Fulfiller, syn *subscription.Syncer, cfg config.Stripe, log logrus.FieldLogger) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("cannot read the request body: %w", err))
		}

		sig := r.Header.Get("Stripe-Signature")
		if sig == "" {
			return weberr.BadRequest(errors.New("received stripe event is not signed"))
		}

		event, err := webhook.ConstructEvent(b, sig, cfg.WebhookSecret)
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("cannot construct stripe event: %w", err))
		}

		switch event.Type {
		case "checkout.session.completed":
			var session stripe.CheckoutSession
			if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
				return weberr.BadRequest(fmt.Errorf("unable to decode stripe event: %w", err))
			}

			if session.Mode != stripe.CheckoutSessionModePayment {
				break
			}

			ses, err := SessionFromStripe(&session)
			if err != nil {
				log.WithFields(logrus.Fields{
					"session": session.ID,
					"message": err,
				}).Error("checkout session rejected")
				break
			}

			if err := f.Fulfill(ctx, ses); err != nil {
				log.WithFields(logrus.Fields{
					"session": session.ID,
					"message": err,
				}).Error("checkout fulfillment failed")
			}

		case "payment_intent.succeeded", "payment_intent.payment_failed":
			log.WithField("event", event.Type).Info("payment intent event received")

		case "customer.subscription.created",
			"customer.subscription.updated",
			"customer.subscription.deleted":
			var sub stripe.Subscription
			if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
				return weberr.BadRequest(fmt.Errorf("unable to decode stripe event: %w", err))
			}

			if err := syn.Sync(ctx, &sub, event.Type); err != nil {
				log.WithFields(logrus.Fields{
					"subscription": sub.ID,
					"message":      err,
				}).Error("subscription sync failed")
			}

		default:
			log.WithField("event", event.Type).Info("unhandled stripe event type")
		}

		return web.Respond(ctx, w, webhookAck{Received: true}, http.StatusOK)
	}
}

// SessionFromStripe maps a Stripe checkout session onto the neutral session
// the fulfiller consumes. A metadata parse failure is returned with the
// offending detail so the operator can trace the broken session.
func SessionFromStripe(s *stripe.CheckoutSession) (Session, error) {
	ses := Session{
		Provider:    order.ProviderStripe,
		ProviderID:  s.ID,
		AmountTotal: s.AmountTotal,
	}

	if s.CustomerDetails != nil {
		ses.CustomerEmail = s.CustomerDetails.Email
	}
	if ses.CustomerEmail == "" {
		ses.CustomerEmail = s.CustomerEmail
	}

	meta, err := ParseMetadata(s.Metadata)
	if err != nil {
		return Session{}, fmt.Errorf("session[%s] metadata: %w", s.ID, err)
	}
	ses.Meta = meta
	return ses, nil
}

// HandlePaypalCheckout opens a PayPal order for the priced cart and records
// the matching local order as pending; capture completes it.
func HandlePaypalCheckout(db *sqlx.DB, pp *paypal.Client) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var cn CheckoutNew
		if err := web.Decode(w, r, &cn); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(cn); err != nil {
			return weberr.BadRequest(err)
		}

		items, total, err := priceItems(ctx, db, cn.Items)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		ppItems := make([]paypal.Item, 0, len(items))
		for _, it := range items {
			ppItems = append(ppItems, paypal.Item{
				Quantity:    "1",
				Name:        it.Name,
				Description: it.Description,

				UnitAmount: &paypal.Money{
					Currency: "USD",
					Value:    centsToMajor(it.Price),
				},
			})
		}

		units := []paypal.PurchaseUnitRequest{{
			Items: ppItems,

			Amount: &paypal.PurchaseUnitAmount{
				Currency: "USD",
				Value:    centsToMajor(total),

				Breakdown: &paypal.PurchaseUnitAmountBreakdown{ItemTotal: &paypal.Money{
					Currency: "USD",
					Value:    centsToMajor(total),
				}},
			},
		}}

		ord, err := pp.CreateOrder(ctx, "CAPTURE", units, nil, &paypal.ApplicationContext{})
		if err != nil {
			return fmt.Errorf("creating paypal order: %w", err)
		}

		meta := cn.metadata(clm.UserID, "", 0)
		if err := preparePending(ctx, db, order.ProviderPaypal, ord.ID, clm, cn, items, total, meta); err != nil {
			return fmt.Errorf("creating the order on the database: %w", err)
		}

		return web.Respond(ctx, w, ord, http.StatusOK)
	}
}

func HandlePaypalCapture(db *sqlx.DB, pp *paypal.Client, f *Fulfiller) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		providerID := web.Param(r, "id")

		resp, err := pp.CaptureOrder(ctx, providerID, paypal.CaptureOrderRequest{})
		if err != nil {
			return fmt.Errorf("capturing paypal order[%s]: %w", providerID, err)
		}

		if resp.Status != "COMPLETED" {
			return fmt.Errorf("captured order[%s] with status[%s] different from 'COMPLETED'", providerID, resp.Status)
		}

		ord, err := order.FetchByProviderID(ctx, db, providerID)
		if err != nil {
			return err
		}

		if err := f.Complete(ctx, ord.ID); err != nil {
			return fmt.Errorf("the order was payed but its fulfillment failed: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

// HandleManualOrder records a non-card order. It stays pending until an
// admin approves it; nothing is granted or credited before that.
func HandleManualOrder(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var mn order.ManualOrderNew
		if err := web.Decode(w, r, &mn); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(mn); err != nil {
			return weberr.BadRequest(err)
		}

		refs := make([]ItemRef, 0, len(mn.Items))
		for _, it := range mn.Items {
			refs = append(refs, ItemRef{ID: it.ID, Type: it.Type})
		}

		items, total, err := priceItems(ctx, db, refs)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		meta := Metadata{CustomerName: mn.CustomerName, CustomerPhone: mn.CustomerPhone}
		for _, it := range items {
			meta.Items = append(meta.Items, it.LineItem)
		}

		sellerID, err := ResolveSeller(ctx, db, meta)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		fee := PlatformFee(total)
		ord := order.Order{
			ID:            validate.GenerateID(),
			OrderNumber:   NewOrderNumber(now),
			Provider:      order.ProviderManual,
			ProviderID:    "manual-" + validate.GenerateID(),
			CustomerName:  mn.CustomerName,
			CustomerEmail: mn.CustomerEmail,
			CustomerPhone: mn.CustomerPhone,
			TotalAmount:   total,
			PlatformFee:   fee,
			SellerAmount:  total - fee,
			Status:        order.Pending,
			UserID:        mn.CustomerEmail,
			SellerID:      sellerID,
			PayoutStatus:  order.PayoutPending,
			AvailableAt:   now.Add(order.HoldbackPeriod),
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		err = database.Transaction(db, func(tx sqlx.ExtContext) error {
			if _, err := order.Create(ctx, tx, ord); err != nil {
				return err
			}
			for _, it := range items {
				item := order.Item{
					OrderID:   ord.ID,
					ItemType:  it.Type,
					ItemID:    it.ID,
					Price:     it.Price,
					CreatedAt: now,
				}
				if err := order.CreateItem(ctx, tx, item); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, ord, http.StatusCreated)
	}
}

// HandleApproveOrder is the admin approval of a manual order.
func HandleApproveOrder(db *sqlx.DB, f *Fulfiller) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		ord, err := order.Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		if ord.Status != order.Pending {
			err := fmt.Errorf("order[%s] is not awaiting approval", id)
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		if err := f.Complete(ctx, ord.ID); err != nil {
			return err
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func preparePending(ctx context.Context, db *sqlx.DB, provider string, providerID string, clm claims.Claims, cn CheckoutNew, items []pricedItem, total int64, meta Metadata) error {
	sellerID, err := ResolveSeller(ctx, db, meta)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	fee := PlatformFee(total)
	ord := order.Order{
		ID:            validate.GenerateID(),
		OrderNumber:   NewOrderNumber(now),
		Provider:      provider,
		ProviderID:    providerID,
		CustomerName:  cn.CustomerName,
		CustomerEmail: clm.Email,
		CustomerPhone: cn.CustomerPhone,
		TotalAmount:   total,
		PlatformFee:   fee,
		SellerAmount:  total - fee,
		Status:        order.Pending,
		UserID:        clm.UserID,
		SellerID:      sellerID,
		PayoutStatus:  order.PayoutPending,
		AvailableAt:   now.Add(order.HoldbackPeriod),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	return database.Transaction(db, func(tx sqlx.ExtContext) error {
		if _, err := order.Create(ctx, tx, ord); err != nil {
			return err
		}
		for _, it := range items {
			item := order.Item{
				OrderID:   ord.ID,
				ItemType:  it.Type,
				ItemID:    it.ID,
				Price:     it.Price,
				CreatedAt: now,
			}
			if err := order.CreateItem(ctx, tx, item); err != nil {
				return err
			}
		}
		return nil
	})
}

func centsToMajor(cents int64) string {
	return strconv.FormatFloat(float64(cents)/100, 'f', 2, 64)
}
