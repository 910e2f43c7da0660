package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/creatorhq/marketplace/core/affiliate"
	"github.com/creatorhq/marketplace/core/appointment"
	"github.com/creatorhq/marketplace/core/bundle"
	"github.com/creatorhq/marketplace/core/coupon"
	"github.com/creatorhq/marketplace/core/course"
	"github.com/creatorhq/marketplace/core/enrollment"
	"github.com/creatorhq/marketplace/core/order"
	"github.com/creatorhq/marketplace/core/product"
	"github.com/creatorhq/marketplace/core/user"
	"github.com/creatorhq/marketplace/validate"
	"github.com/jmoiron/sqlx"
	"github.com/plutov/paypal/v4"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/webhook"
)

type checkoutTest struct {
	*TestEnv
}

func TestWebhookFulfillment(t *testing.T) {
	env, err := NewTestEnv(t, "webhook_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}
	ct := &checkoutTest{env}

	ctx := context.Background()
	prd := ct.seedProduct(t, env.SellerID, 5000)
	crs := ct.seedCourse(t, env.SellerID, 10000)
	cpn := ct.seedCoupon(t, "SAVE10", coupon.DiscountFlat, 1000)
	lnk := ct.seedLink(t, "partner-a", env.SellerID, affiliate.CommissionPercentage, 15)

	t.Run("fulfillsCompletedSession", func(t *testing.T) {
		meta := map[string]string{
			"itemsData":       prd.ID + ":product:50," + crs.ID + ":course:100",
			"buyerId":         env.UserID,
			"couponId":        cpn.ID,
			"discountApplied": "10",
			"affiliateRef":    lnk.Code,
			"customerName":    "Ada Buyer",
		}
		ct.postCompletedSession(t, "cs_fulfill_1", 14000, meta)

		ord, err := order.FetchByProviderID(ctx, env.DB, "cs_fulfill_1")
		if err != nil {
			t.Fatalf("fetching fulfilled order: %v", err)
		}

		if ord.Status != order.Paid {
			t.Errorf("order status: got %s, want %s", ord.Status, order.Paid)
		}
		if ord.TotalAmount != 14000 || ord.PlatformFee != 1400 || ord.SellerAmount != 12600 {
			t.Errorf("order split: got %d/%d/%d, want 14000/1400/12600",
				ord.TotalAmount, ord.PlatformFee, ord.SellerAmount)
		}
		if ord.UserID != env.UserID {
			t.Errorf("order buyer: got %s, want %s", ord.UserID, env.UserID)
		}
		if ord.SellerID == nil || *ord.SellerID != env.SellerID {
			t.Errorf("order seller: got %v, want %s", ord.SellerID, env.SellerID)
		}
		if ord.CouponID == nil || *ord.CouponID != cpn.ID {
			t.Errorf("order coupon: got %v, want %s", ord.CouponID, cpn.ID)
		}

		items, err := order.FetchItems(ctx, env.DB, ord.ID)
		if err != nil {
			t.Fatalf("fetching order items: %v", err)
		}
		if len(items) != 2 {
			t.Errorf("order items: got %d, want 2", len(items))
		}

		ct.assertEnrolled(t, crs.ID, userEmail, true)
		ct.assertBalance(t, env.SellerID, 12600)

		got, err := coupon.Fetch(ctx, env.DB, cpn.ID)
		if err != nil {
			t.Fatalf("fetching coupon: %v", err)
		}
		if got.UsageCount != 1 {
			t.Errorf("coupon usage count: got %d, want 1", got.UsageCount)
		}

		l, err := affiliate.FetchByCode(ctx, env.DB, lnk.Code)
		if err != nil {
			t.Fatalf("fetching affiliate link: %v", err)
		}
		if l.SalesCount != 1 || l.Revenue != 14000 || l.Commission != 2100 {
			t.Errorf("affiliate aggregates: got %d/%d/%d, want 1/14000/2100",
				l.SalesCount, l.Revenue, l.Commission)
		}

		waitFor(t, func() bool { return env.Mailer.OrderCount() == 1 })
	})

	t.Run("ignoresRedeliveredSession", func(t *testing.T) {
		meta := map[string]string{
			"itemsData":       prd.ID + ":product:50," + crs.ID + ":course:100",
			"buyerId":         env.UserID,
			"couponId":        cpn.ID,
			"discountApplied": "10",
			"affiliateRef":    lnk.Code,
		}
		ct.postCompletedSession(t, "cs_fulfill_1", 14000, meta)

		if n := ct.countOrders(t, "cs_fulfill_1"); n != 1 {
			t.Errorf("orders for provider id: got %d, want 1", n)
		}
		ct.assertBalance(t, env.SellerID, 12600)

		got, err := coupon.Fetch(ctx, env.DB, cpn.ID)
		if err != nil {
			t.Fatalf("fetching coupon: %v", err)
		}
		if got.UsageCount != 1 {
			t.Errorf("coupon usage count after redelivery: got %d, want 1", got.UsageCount)
		}
	})

	t.Run("fansOutBundleEnrollments", func(t *testing.T) {
		crs1 := ct.seedCourse(t, env.SellerID, 8000)
		crs2 := ct.seedCourse(t, env.SellerID, 9000)
		p1 := ct.seedCourseProduct(t, env.SellerID, crs1.ID, 8000)
		p2 := ct.seedCourseProduct(t, env.SellerID, crs2.ID, 9000)
		bnd := ct.seedBundle(t, env.SellerID, 15000, p1.ID, p2.ID)

		meta := map[string]string{
			"itemsData": bnd.ID + ":bundle:150",
			"buyerId":   env.UserID,
		}
		ct.postCompletedSession(t, "cs_bundle_1", 15000, meta)

		ct.assertEnrolled(t, crs1.ID, userEmail, true)
		ct.assertEnrolled(t, crs2.ID, userEmail, true)
	})

	t.Run("booksAppointmentWithMeetLink", func(t *testing.T) {
		meta := map[string]string{
			"itemsData":           prd.ID + ":product:50",
			"buyerId":             env.UserID,
			"customerName":        "Ada Buyer",
			"appointmentDate":     "2026-09-10",
			"appointmentTime":     "14:30",
			"appointmentSellerId": env.SellerID,
		}
		ct.postCompletedSession(t, "cs_appt_1", 5000, meta)

		ord, err := order.FetchByProviderID(ctx, env.DB, "cs_appt_1")
		if err != nil {
			t.Fatalf("fetching order: %v", err)
		}

		app, err := appointment.FetchByOrder(ctx, env.DB, ord.ID)
		if err != nil {
			t.Fatalf("fetching appointment: %v", err)
		}
		if app.SellerID != env.SellerID {
			t.Errorf("appointment seller: got %s, want %s", app.SellerID, env.SellerID)
		}
		if !strings.HasPrefix(app.MeetingLink, "https://meet.test.local/") {
			t.Errorf("appointment meeting link: got %q", app.MeetingLink)
		}

		want := time.Date(2026, 9, 10, 14, 30, 0, 0, time.UTC)
		if !app.StartsAt.Equal(want) {
			t.Errorf("appointment start: got %s, want %s", app.StartsAt, want)
		}
	})

	t.Run("booksAppointmentThroughCalendarOutage", func(t *testing.T) {
		env.Calendar.Fail = true
		defer func() { env.Calendar.Fail = false }()

		meta := map[string]string{
			"itemsData":           prd.ID + ":product:50",
			"buyerId":             env.UserID,
			"appointmentDate":     "2026-09-11",
			"appointmentTime":     "09:00",
			"appointmentSellerId": env.SellerID,
		}
		ct.postCompletedSession(t, "cs_appt_2", 5000, meta)

		ord, err := order.FetchByProviderID(ctx, env.DB, "cs_appt_2")
		if err != nil {
			t.Fatalf("fetching order: %v", err)
		}

		app, err := appointment.FetchByOrder(ctx, env.DB, ord.ID)
		if err != nil {
			t.Fatalf("fetching appointment: %v", err)
		}
		if app.MeetingLink != "" {
			t.Errorf("appointment meeting link during outage: got %q, want empty", app.MeetingLink)
		}
	})

	t.Run("dropsSessionWithoutBuyer", func(t *testing.T) {
		// No buyerId, and the item id matches nothing, so neither a buyer
		// nor a seller can be resolved. The event is acknowledged and the
		// order is never written.
		meta := map[string]string{
			"itemsData": validate.GenerateID() + ":product:50",
		}
		ct.postCompletedSession(t, "cs_nobody_1", 5000, meta)

		if n := ct.countOrders(t, "cs_nobody_1"); n != 0 {
			t.Errorf("orders for unattributable session: got %d, want 0", n)
		}
	})

	t.Run("dropsSessionWithDuplicateItem", func(t *testing.T) {
		// A repeated item would break on the order_items key mid-transaction
		// and poison every redelivery, so the session is rejected up front.
		meta := map[string]string{
			"itemsData": prd.ID + ":product:50," + prd.ID + ":product:50",
			"buyerId":   env.UserID,
		}
		ct.postCompletedSession(t, "cs_twice_1", 10000, meta)

		if n := ct.countOrders(t, "cs_twice_1"); n != 0 {
			t.Errorf("orders for duplicate-item session: got %d, want 0", n)
		}
	})
}

func TestPaymentProviders(t *testing.T) {
	env, err := NewTestEnv(t, "payment_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}
	ct := &checkoutTest{env}

	ctx := context.Background()
	prd := ct.seedProduct(t, env.SellerID, 5000)
	crs := ct.seedCourse(t, env.SellerID, 10000)
	ct.seedCoupon(t, "SAVE10", coupon.DiscountFlat, 1000)

	t.Run("stripeCheckout", func(t *testing.T) {
		env.Login(t, userEmail, testPass)
		defer env.Logout(t)

		env.Stripe.ExpectedItems = 2
		env.Stripe.ExpectedTotal = 15000

		body := fmt.Sprintf(`{
			"items": [
				{"id": %q, "type": "product"},
				{"id": %q, "type": "course"}
			],
			"couponCode": "SAVE10",
			"customerName": "Ada Buyer"
		}`, prd.ID, crs.ID)

		resp, err := env.Client().Post(env.URL+"/payments/stripe/checkout", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("opening stripe checkout: status %s", resp.Status)
		}

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatal(err)
		}
		var url string
		if err := json.Unmarshal(raw, &url); err != nil {
			t.Fatalf("decoding checkout url: %v", err)
		}
		if !strings.HasPrefix(url, "https://checkout.test.local/") {
			t.Fatalf("checkout url: got %q", url)
		}
		if env.Stripe.Coupons != 1 {
			t.Errorf("stripe coupons created: got %d, want 1", env.Stripe.Coupons)
		}

		// Close the loop: replay the completion event Stripe would send
		// for the session the API just opened.
		id, meta := env.Stripe.LastSession()
		ct.postCompletedSession(t, id, 14000, meta)

		ord, err := order.FetchByProviderID(ctx, env.DB, id)
		if err != nil {
			t.Fatalf("fetching fulfilled order: %v", err)
		}
		if ord.Status != order.Paid || ord.SellerAmount != 12600 {
			t.Errorf("order: got status %s, seller amount %d", ord.Status, ord.SellerAmount)
		}
		ct.assertEnrolled(t, crs.ID, userEmail, true)
	})

	t.Run("paypalCheckout", func(t *testing.T) {
		env.Login(t, userEmail, testPass)
		defer env.Logout(t)

		env.Paypal.ExpectedTotal = 5000

		body := fmt.Sprintf(`{"items": [{"id": %q, "type": "product"}]}`, prd.ID)
		resp, err := env.Client().Post(env.URL+"/payments/paypal/checkout", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("opening paypal checkout: status %s", resp.Status)
		}

		var ppOrd paypal.Order
		if err := json.NewDecoder(resp.Body).Decode(&ppOrd); err != nil {
			t.Fatalf("decoding paypal order: %v", err)
		}

		ord, err := order.FetchByProviderID(ctx, env.DB, ppOrd.ID)
		if err != nil {
			t.Fatalf("fetching pending order: %v", err)
		}
		if ord.Status != order.Pending {
			t.Errorf("order before capture: got %s, want %s", ord.Status, order.Pending)
		}

		capResp, err := env.Client().Post(env.URL+"/payments/paypal/"+ppOrd.ID+"/capture", "application/json", nil)
		if err != nil {
			t.Fatal(err)
		}
		capResp.Body.Close()

		if capResp.StatusCode != http.StatusNoContent {
			t.Fatalf("capturing paypal order: status %s", capResp.Status)
		}

		ord, err = order.FetchByProviderID(ctx, env.DB, ppOrd.ID)
		if err != nil {
			t.Fatal(err)
		}
		if ord.Status != order.Paid {
			t.Errorf("order after capture: got %s, want %s", ord.Status, order.Paid)
		}
	})

	t.Run("manualOrderApproval", func(t *testing.T) {
		body := fmt.Sprintf(`{
			"customerName": "Walk-in Customer",
			"customerEmail": "walkin@test.local",
			"customerPhone": "+15550100",
			"items": [{"id": %q, "type": "course"}]
		}`, crs.ID)

		resp, err := env.Client().Post(env.URL+"/orders/manual", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("creating manual order: status %s", resp.Status)
		}

		var ord order.Order
		if err := json.NewDecoder(resp.Body).Decode(&ord); err != nil {
			t.Fatalf("decoding manual order: %v", err)
		}
		if ord.Status != order.Pending {
			t.Fatalf("manual order status: got %s, want %s", ord.Status, order.Pending)
		}
		ct.assertEnrolled(t, crs.ID, "walkin@test.local", false)

		before := ct.balance(t, env.SellerID)

		env.Login(t, adminEmail, testPass)
		defer env.Logout(t)

		appResp, err := env.Client().Post(env.URL+"/admin/orders/"+ord.ID+"/approve", "application/json", nil)
		if err != nil {
			t.Fatal(err)
		}
		appResp.Body.Close()

		if appResp.StatusCode != http.StatusNoContent {
			t.Fatalf("approving manual order: status %s", appResp.Status)
		}

		got, err := order.Fetch(ctx, env.DB, ord.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != order.Paid {
			t.Errorf("approved order status: got %s, want %s", got.Status, order.Paid)
		}
		ct.assertEnrolled(t, crs.ID, "walkin@test.local", true)
		ct.assertBalance(t, env.SellerID, before+got.SellerAmount)

		// Approving twice changes nothing: the order is no longer pending.
		dupResp, err := env.Client().Post(env.URL+"/admin/orders/"+ord.ID+"/approve", "application/json", nil)
		if err != nil {
			t.Fatal(err)
		}
		dupResp.Body.Close()

		if dupResp.StatusCode != http.StatusUnprocessableEntity {
			t.Errorf("re-approving order: status %s, want 422", dupResp.Status)
		}

		// An approval racing past the pending check finds no row to move
		// either, so the seller cannot be credited twice.
		moved, err := order.UpdateStatus(ctx, env.DB, ord.ID, order.Pending, order.Paid)
		if err != nil {
			t.Fatal(err)
		}
		if moved {
			t.Error("paid order moved to paid again")
		}
		ct.assertBalance(t, env.SellerID, before+got.SellerAmount)
	})

	t.Run("payouts", func(t *testing.T) {
		env.Login(t, adminEmail, testPass)
		defer env.Logout(t)

		// Age every paid order past the holdback so it becomes payable.
		const q = `UPDATE orders SET available_at = now() - interval '1 day' WHERE status = 'paid'`
		if _, err := env.DB.ExecContext(ctx, q); err != nil {
			t.Fatal(err)
		}

		resp, err := env.Client().Get(env.URL + "/admin/payouts")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("listing payouts: status %s", resp.Status)
		}

		var payable []order.Order
		if err := json.NewDecoder(resp.Body).Decode(&payable); err != nil {
			t.Fatalf("decoding payable orders: %v", err)
		}
		if len(payable) == 0 {
			t.Fatal("no payable orders listed")
		}

		target := payable[0]
		before := ct.balance(t, env.SellerID)

		payResp, err := env.Client().Post(env.URL+"/admin/payouts/"+target.ID+"/complete", "application/json", nil)
		if err != nil {
			t.Fatal(err)
		}
		payResp.Body.Close()

		if payResp.StatusCode != http.StatusNoContent {
			t.Fatalf("completing payout: status %s", payResp.Status)
		}

		got, err := order.Fetch(ctx, env.DB, target.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.PayoutStatus != order.PayoutCompleted {
			t.Errorf("payout status: got %s, want %s", got.PayoutStatus, order.PayoutCompleted)
		}
		ct.assertBalance(t, env.SellerID, before-target.SellerAmount)

		// A racing release that reads the order before the first one commits
		// must find no pending row left to move.
		moved, err := order.UpdatePayoutStatus(ctx, env.DB, target.ID, order.PayoutPending, order.PayoutCompleted)
		if err != nil {
			t.Fatal(err)
		}
		if moved {
			t.Error("completed payout moved again")
		}

		dupResp, err := env.Client().Post(env.URL+"/admin/payouts/"+target.ID+"/complete", "application/json", nil)
		if err != nil {
			t.Fatal(err)
		}
		dupResp.Body.Close()

		if dupResp.StatusCode != http.StatusUnprocessableEntity {
			t.Errorf("repeated payout completion: status %s, want 422", dupResp.Status)
		}
		ct.assertBalance(t, env.SellerID, before-target.SellerAmount)
	})
}

// postCompletedSession signs and delivers a checkout.session.completed event
// the way Stripe would.
func (ct *checkoutTest) postCompletedSession(t *testing.T, sessionID string, amountTotal int64, meta map[string]string) {
	t.Helper()

	obj := map[string]any{
		"id":               sessionID,
		"mode":             stripe.CheckoutSessionModePayment,
		"amount_total":     amountTotal,
		"metadata":         meta,
		"customer_details": map[string]any{"email": userEmail},
	}
	ct.postEvent(t, "checkout.session.completed", obj)
}

func (ct *checkoutTest) postEvent(t *testing.T, eventType string, obj map[string]any) {
	t.Helper()

	raw, err := json.Marshal(obj)
	if err != nil {
		t.Fatal(err)
	}

	evt := stripe.Event{
		APIVersion: stripe.APIVersion,
		Type:       eventType,
		Data: &stripe.EventData{
			Raw: json.RawMessage(raw),
		},
	}

	b, err := json.Marshal(evt)
	if err != nil {
		t.Fatal(err)
	}

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   b,
		Secret:    ct.WebhookSecret,
		Timestamp: time.Now(),
	})

	r, err := http.NewRequest(http.MethodPost, ct.URL+"/payments/stripe/webhook", bytes.NewReader(signed.Payload))
	if err != nil {
		t.Fatal(err)
	}
	r.Header.Set("Stripe-Signature", signed.Header)

	w, err := ct.Client().Do(r)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		t.Fatalf("delivering %s: status %s", eventType, w.Status)
	}
}

func (ct *checkoutTest) seedProduct(t *testing.T, sellerID string, price int64) product.Product {
	t.Helper()

	now := time.Now().UTC()
	prd := product.Product{
		ID:        validate.GenerateID(),
		SellerID:  sellerID,
		Name:      "Product " + random6(),
		Category:  product.CategoryDigital,
		Price:     price,
		FileURL:   "https://files.test.local/download",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := product.Create(context.Background(), ct.DB, prd); err != nil {
		t.Fatalf("seeding product: %v", err)
	}
	return prd
}

func (ct *checkoutTest) seedCourseProduct(t *testing.T, sellerID string, courseID string, price int64) product.Product {
	t.Helper()

	now := time.Now().UTC()
	prd := product.Product{
		ID:        validate.GenerateID(),
		SellerID:  sellerID,
		Name:      "Course Product " + random6(),
		Category:  product.CategoryCourse,
		CourseID:  &courseID,
		Price:     price,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := product.Create(context.Background(), ct.DB, prd); err != nil {
		t.Fatalf("seeding course product: %v", err)
	}
	return prd
}

func (ct *checkoutTest) seedCourse(t *testing.T, sellerID string, price int64) course.Course {
	t.Helper()

	now := time.Now().UTC()
	crs := course.Course{
		ID:          validate.GenerateID(),
		SellerID:    sellerID,
		Name:        "Course " + random6(),
		Description: "A seeded course",
		Price:       price,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := course.Create(context.Background(), ct.DB, crs); err != nil {
		t.Fatalf("seeding course: %v", err)
	}
	return crs
}

func (ct *checkoutTest) seedBundle(t *testing.T, sellerID string, price int64, productIDs ...string) bundle.Bundle {
	t.Helper()

	now := time.Now().UTC()
	bnd := bundle.Bundle{
		ID:         validate.GenerateID(),
		SellerID:   sellerID,
		Name:       "Bundle " + random6(),
		Price:      price,
		ProductIDs: productIDs,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := bundle.Create(context.Background(), ct.DB, bnd); err != nil {
		t.Fatalf("seeding bundle: %v", err)
	}
	return bnd
}

func (ct *checkoutTest) seedCoupon(t *testing.T, code string, typ string, value int64) coupon.Coupon {
	t.Helper()

	now := time.Now().UTC()
	cpn := coupon.Coupon{
		ID:            validate.GenerateID(),
		Code:          code,
		DiscountType:  typ,
		DiscountValue: value,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := coupon.Create(context.Background(), ct.DB, cpn); err != nil {
		t.Fatalf("seeding coupon: %v", err)
	}
	return cpn
}

func (ct *checkoutTest) seedLink(t *testing.T, code string, sellerID string, typ string, value int64) affiliate.Link {
	t.Helper()

	now := time.Now().UTC()
	lnk := affiliate.Link{
		ID:              validate.GenerateID(),
		Code:            code,
		SellerID:        sellerID,
		CommissionType:  typ,
		CommissionValue: value,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := affiliate.Create(context.Background(), ct.DB, lnk); err != nil {
		t.Fatalf("seeding affiliate link: %v", err)
	}
	return lnk
}

func (ct *checkoutTest) countOrders(t *testing.T, providerID string) int {
	t.Helper()

	var n int
	const q = `SELECT count(*) FROM orders WHERE provider_id = $1`
	if err := sqlx.GetContext(context.Background(), ct.DB, &n, q, providerID); err != nil {
		t.Fatalf("counting orders: %v", err)
	}
	return n
}

func (ct *checkoutTest) assertEnrolled(t *testing.T, courseID string, email string, want bool) {
	t.Helper()

	enrs, err := enrollment.FetchByCourse(context.Background(), ct.DB, courseID)
	if err != nil {
		t.Fatalf("fetching enrollments: %v", err)
	}

	got := false
	for _, e := range enrs {
		if e.StudentEmail == email {
			got = true
		}
	}
	if got != want {
		t.Errorf("enrollment of %s in course[%s]: got %t, want %t", email, courseID, got, want)
	}
}

func (ct *checkoutTest) balance(t *testing.T, userID string) int64 {
	t.Helper()

	usr, err := user.Fetch(context.Background(), ct.DB, userID)
	if err != nil {
		t.Fatalf("fetching user: %v", err)
	}
	return usr.PendingBalance
}

func (ct *checkoutTest) assertBalance(t *testing.T, userID string, want int64) {
	t.Helper()

	if got := ct.balance(t, userID); got != want {
		t.Errorf("pending balance of user[%s]: got %d, want %d", userID, got, want)
	}
}

// waitFor polls for an asynchronous effect, like a background mail send.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Error("condition not met before deadline")
}

func random6() string {
	return validate.GenerateID()[:6]
}
