package checkout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/creatorhq/marketplace/api/background"
	"github.com/creatorhq/marketplace/calendar"
	"github.com/creatorhq/marketplace/core/affiliate"
	"github.com/creatorhq/marketplace/core/appointment"
	"github.com/creatorhq/marketplace/core/bundle"
	"github.com/creatorhq/marketplace/core/coupon"
	"github.com/creatorhq/marketplace/core/course"
	"github.com/creatorhq/marketplace/core/enrollment"
	"github.com/creatorhq/marketplace/core/order"
	"github.com/creatorhq/marketplace/core/product"
	"github.com/creatorhq/marketplace/core/user"
	"github.com/creatorhq/marketplace/database"
	"github.com/creatorhq/marketplace/random"
	"github.com/creatorhq/marketplace/validate"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// PlatformFeePercent is the marketplace cut of every order.
const PlatformFeePercent = 10

// PlatformFee returns the marketplace cut of a total in cents; the seller
// amount is the remainder, so fee + seller == total always holds.
func PlatformFee(total int64) int64 {
	return total * PlatformFeePercent / 100
}

// Calendarer books meeting events for appointment purchases.
type Calendarer interface {
	CreateEvent(ctx context.Context, sellerID string, evt calendar.Event) (calendar.Created, error)
}

// Mailer sends the order confirmation after fulfillment.
type Mailer interface {
	SendOrderConfirmation(to string, orderNumber string, total int64) error
}

// Session is the provider-neutral view of a completed checkout, built from
// a Stripe checkout session or a PayPal capture.
type Session struct {
	Provider      string
	ProviderID    string
	CustomerEmail string
	AmountTotal   int64
	Meta          Metadata
}

// Fulfiller applies everything a completed payment entitles the customer
// to: the order record, appointment, enrollments, coupon and affiliate
// accounting, the seller's balance, and the confirmation email. All durable
// writes happen in one transaction; the calendar call and the email are
// best effort outside it.
type Fulfiller struct {
	DB       *sqlx.DB
	Calendar Calendarer
	Mailer   Mailer
	BG       *background.Background
	Log      logrus.FieldLogger
}

// Fulfill runs the full pipeline for a webhook-delivered checkout session.
// Redelivered events stop at the idempotent order insert.
func (f *Fulfiller) Fulfill(ctx context.Context, ses Session) error {
	if ses.CustomerEmail == "" {
		return errors.New("checkout session carries no customer email")
	}
	if len(ses.Meta.Items) == 0 {
		return errors.New("checkout session carries no items")
	}

	now := time.Now().UTC()
	meta := ses.Meta

	fee := PlatformFee(ses.AmountTotal)
	sellerAmount := ses.AmountTotal - fee

	sellerID, err := ResolveSeller(ctx, f.DB, meta)
	if err != nil {
		return err
	}
	if sellerID == nil {
		f.Log.WithField("provider_id", ses.ProviderID).
			Warn("no seller resolved; order will carry unattributed revenue")
	}

	// The original flow fell back to the first item's id as the buyer,
	// conflating a product id with a user id. Here an order without an
	// identifiable buyer falls back to the seller and otherwise fails.
	buyerID := meta.BuyerID
	if buyerID == "" && sellerID != nil {
		buyerID = *sellerID
	}
	if buyerID == "" {
		return errors.New("checkout session resolves to neither buyer nor seller")
	}

	var lnk *affiliate.Link
	if meta.AffiliateRef != "" {
		l, err := affiliate.FetchByCode(ctx, f.DB, meta.AffiliateRef)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			f.Log.WithField("ref", meta.AffiliateRef).Info("unknown affiliate ref; skipping attribution")
		case err != nil:
			return err
		default:
			lnk = &l
		}
	}

	var cpn *coupon.Coupon
	if meta.CouponID != "" {
		c, err := coupon.Fetch(ctx, f.DB, meta.CouponID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			f.Log.WithField("coupon_id", meta.CouponID).Info("unknown coupon; skipping accounting")
		case err != nil:
			return err
		default:
			cpn = &c
		}
	}

	// Book the calendar event before the transaction: the provider call is
	// slow, best effort, and its only durable trace is the meeting link.
	meetLink := ""
	var appointmentStart time.Time
	bookAppointment := meta.HasAppointment() && sellerID != nil
	if bookAppointment {
		appointmentStart, err = meta.AppointmentStart()
		if err != nil {
			return err
		}

		created, err := f.Calendar.CreateEvent(ctx, *sellerID, calendar.Event{
			Title:         "Appointment with " + meta.CustomerName,
			StartDateTime: appointmentStart,
			DurationMins:  appointment.DefaultDuration,
			CustomerName:  meta.CustomerName,
			CustomerEmail: ses.CustomerEmail,
		})
		if err != nil {
			f.Log.WithField("provider_id", ses.ProviderID).
				Errorf("calendar event failed, appointment proceeds without link: %v", err)
		} else {
			meetLink = created.MeetLink
		}
	}

	ord := order.Order{
		ID:            validate.GenerateID(),
		OrderNumber:   NewOrderNumber(now),
		Provider:      ses.Provider,
		ProviderID:    ses.ProviderID,
		CustomerName:  meta.CustomerName,
		CustomerEmail: ses.CustomerEmail,
		CustomerPhone: meta.CustomerPhone,
		TotalAmount:   ses.AmountTotal,
		PlatformFee:   fee,
		SellerAmount:  sellerAmount,
		Status:        order.Paid,
		UserID:        buyerID,
		SellerID:      sellerID,
		PayoutStatus:  order.PayoutPending,
		AvailableAt:   now.Add(order.HoldbackPeriod),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if cpn != nil {
		ord.CouponID = &cpn.ID
	}
	if lnk != nil {
		ord.AffiliateLinkID = &lnk.ID
	}

	err = database.Transaction(f.DB, func(tx sqlx.ExtContext) error {
		created, err := order.Create(ctx, tx, ord)
		if err != nil {
			return err
		}
		if !created {
			f.Log.WithField("provider_id", ses.ProviderID).
				Info("order already fulfilled for this payment; skipping")
			return errAlreadyFulfilled
		}

		for _, it := range meta.Items {
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

		if bookAppointment {
			app := appointment.Appointment{
				ID:            validate.GenerateID(),
				OrderID:       ord.ID,
				SellerID:      *sellerID,
				CustomerName:  meta.CustomerName,
				CustomerEmail: ses.CustomerEmail,
				StartsAt:      appointmentStart,
				DurationMins:  appointment.DefaultDuration,
				Status:        appointment.Confirmed,
				MeetingLink:   meetLink,
				CreatedAt:     now,
			}
			if err := appointment.Create(ctx, tx, app); err != nil {
				return err
			}
		}

		if err := f.enroll(ctx, tx, ord.ID, ses.CustomerEmail, meta.Items, now); err != nil {
			return err
		}

		if cpn != nil {
			use := coupon.Usage{
				CouponID:       cpn.ID,
				OrderID:        ord.ID,
				CustomerEmail:  ses.CustomerEmail,
				DiscountAmount: meta.DiscountApplied,
				CreatedAt:      now,
			}
			if err := coupon.Redeem(ctx, tx, use); err != nil {
				return err
			}
		}

		if lnk != nil {
			sale := affiliate.Sale{
				ID:         validate.GenerateID(),
				LinkID:     lnk.ID,
				OrderID:    ord.ID,
				Amount:     ses.AmountTotal,
				Commission: lnk.CommissionFor(ses.AmountTotal),
				Status:     affiliate.SalePending,
				CreatedAt:  now,
			}
			if err := affiliate.RecordSale(ctx, tx, sale); err != nil {
				return err
			}
		}

		if sellerID != nil {
			if err := user.Credit(ctx, tx, *sellerID, sellerAmount); err != nil {
				return err
			}
		}

		return nil
	})
	if errors.Is(err, errAlreadyFulfilled) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("fulfilling payment[%s]: %w", ses.ProviderID, err)
	}

	f.sendConfirmation(ord)
	return nil
}

// Complete marks an existing pending order (manual or PayPal) as paid and
// applies its fulfillment: enrollments and the seller's balance. Calling it
// on an already paid order is a no-op.
func (f *Fulfiller) Complete(ctx context.Context, orderID string) error {
	ord, err := order.Fetch(ctx, f.DB, orderID)
	if err != nil {
		return err
	}
	if ord.Status == order.Paid {
		return nil
	}

	err = database.Transaction(f.DB, func(tx sqlx.ExtContext) error {
		// The conditional transition is the concurrency guard: a second
		// caller racing past the status read above moves no row here.
		moved, err := order.UpdateStatus(ctx, tx, ord.ID, order.Pending, order.Paid)
		if err != nil {
			return err
		}
		if !moved {
			return errAlreadyFulfilled
		}

		items, err := order.FetchItems(ctx, tx, ord.ID)
		if err != nil {
			return err
		}

		lines := make([]LineItem, 0, len(items))
		for _, it := range items {
			lines = append(lines, LineItem{ID: it.ItemID, Type: it.ItemType, Price: it.Price})
		}

		now := time.Now().UTC()
		if err := f.enroll(ctx, tx, ord.ID, ord.CustomerEmail, lines, now); err != nil {
			return err
		}

		if ord.SellerID != nil {
			if err := user.Credit(ctx, tx, *ord.SellerID, ord.SellerAmount); err != nil {
				return err
			}
		}

		return nil
	})
	if errors.Is(err, errAlreadyFulfilled) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("completing order[%s]: %w", ord.ID, err)
	}

	f.sendConfirmation(ord)
	return nil
}

var errAlreadyFulfilled = errors.New("order already fulfilled")

// enroll grants course access for every course item; bundle items fan out
// to each course-category product inside the bundle. The upsert keyed by
// (course, email) keeps redelivery from duplicating rows.
func (f *Fulfiller) enroll(ctx context.Context, tx sqlx.ExtContext, orderID string, email string, items []LineItem, now time.Time) error {
	courseIDs := []string{}
	for _, it := range items {
		switch it.Type {
		case order.ItemCourse:
			courseIDs = append(courseIDs, it.ID)
		case order.ItemBundle:
			ids, err := bundle.FetchCourseIDs(ctx, tx, it.ID)
			if err != nil {
				return err
			}
			courseIDs = append(courseIDs, ids...)
		}
	}

	for _, cid := range courseIDs {
		enr := enrollment.Enrollment{
			CourseID:     cid,
			StudentEmail: email,
			OrderID:      orderID,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := enrollment.Upsert(ctx, tx, enr); err != nil {
			return err
		}
	}
	return nil
}

// ResolveSeller picks the seller an order is attributed to: the explicit
// appointment seller when present, otherwise the owner of the first item.
// An unknown first item resolves to no seller rather than an error.
func ResolveSeller(ctx context.Context, db sqlx.ExtContext, meta Metadata) (*string, error) {
	if meta.AppointmentSellerID != "" {
		id := meta.AppointmentSellerID
		return &id, nil
	}

	first := meta.Items[0]
	var (
		id  string
		err error
	)
	switch first.Type {
	case order.ItemProduct:
		var prd product.Product
		prd, err = product.Fetch(ctx, db, first.ID)
		id = prd.SellerID
	case order.ItemCourse:
		var crs course.Course
		crs, err = course.Fetch(ctx, db, first.ID)
		id = crs.SellerID
	case order.ItemBundle:
		var bnd bundle.Bundle
		bnd, err = bundle.Fetch(ctx, db, first.ID)
		id = bnd.SellerID
	}

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (f *Fulfiller) sendConfirmation(ord order.Order) {
	f.BG.Add("order-confirmation", func() error {
		return f.Mailer.SendOrderConfirmation(ord.CustomerEmail, ord.OrderNumber, ord.TotalAmount)
	})
}

// NewOrderNumber mints a human-readable order reference. Uniqueness is not
// guaranteed; the order's idempotency rests on the provider reference.
func NewOrderNumber(now time.Time) string {
	return "ORD-" + now.Format("20060102150405") + "-" + random.String(6)
}
