package test

import (
	"context"
	"testing"
	"time"

	"github.com/creatorhq/marketplace/core/subscription"
)

type subscriptionTest struct {
	*checkoutTest
}

func TestSubscriptionSync(t *testing.T) {
	env, err := NewTestEnv(t, "subscription_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}
	st := &subscriptionTest{&checkoutTest{env}}

	ctx := context.Background()
	periodEnd := time.Now().Add(30 * 24 * time.Hour).Unix()

	t.Run("createsRecordAndConfirms", func(t *testing.T) {
		obj := map[string]any{
			"id":                 "sub_100",
			"status":             "active",
			"current_period_end": periodEnd,
			"metadata": map[string]string{
				"planId": "plan-pro",
				"userId": env.UserID,
			},
			"customer": map[string]any{"email": userEmail},
			"items": map[string]any{
				"data": []map[string]any{{
					"price": map[string]any{
						"unit_amount": 1900,
						"recurring":   map[string]any{"interval": "month"},
					},
				}},
			},
		}
		st.postEvent(t, "customer.subscription.created", obj)

		sub, err := subscription.FetchByProviderID(ctx, env.DB, "sub_100")
		if err != nil {
			t.Fatalf("fetching subscription: %v", err)
		}
		if sub.Status != "active" || sub.PlanID != "plan-pro" || sub.UserID != env.UserID {
			t.Errorf("subscription: got %s/%s/%s", sub.Status, sub.PlanID, sub.UserID)
		}
		if sub.CurrentPeriodEnd == nil {
			t.Error("subscription period end not recorded")
		}

		waitFor(t, func() bool {
			env.Mailer.mu.Lock()
			defer env.Mailer.mu.Unlock()
			return len(env.Mailer.Subscriptions) == 1
		})

		sent := env.Mailer.Subscriptions[0]
		if sent.To != userEmail || sent.PlanID != "plan-pro" || sent.Amount != 1900 {
			t.Errorf("confirmation: got %s/%s/%d", sent.To, sent.PlanID, sent.Amount)
		}
	})

	t.Run("refreshesStatusWithoutMetadata", func(t *testing.T) {
		// Provider-side updates often drop the metadata; the event still
		// refreshes the status of the existing record.
		obj := map[string]any{
			"id":                   "sub_100",
			"status":               "past_due",
			"current_period_end":   periodEnd,
			"cancel_at_period_end": true,
		}
		st.postEvent(t, "customer.subscription.updated", obj)

		sub, err := subscription.FetchByProviderID(ctx, env.DB, "sub_100")
		if err != nil {
			t.Fatal(err)
		}
		if sub.Status != "past_due" || !sub.CancelAtPeriodEnd {
			t.Errorf("refreshed subscription: got %s, cancel %t", sub.Status, sub.CancelAtPeriodEnd)
		}
		if sub.PlanID != "plan-pro" {
			t.Errorf("plan must survive a metadata-less update, got %s", sub.PlanID)
		}
	})

	t.Run("dropsUnknownWithoutMetadata", func(t *testing.T) {
		obj := map[string]any{
			"id":     "sub_unknown",
			"status": "active",
		}
		st.postEvent(t, "customer.subscription.updated", obj)

		if _, err := subscription.FetchByProviderID(ctx, env.DB, "sub_unknown"); err == nil {
			t.Error("subscription without metadata or local record must not be created")
		}
	})

	t.Run("marksDeleted", func(t *testing.T) {
		obj := map[string]any{
			"id":     "sub_100",
			"status": "canceled",
			"metadata": map[string]string{
				"planId": "plan-pro",
				"userId": env.UserID,
			},
		}
		st.postEvent(t, "customer.subscription.deleted", obj)

		sub, err := subscription.FetchByProviderID(ctx, env.DB, "sub_100")
		if err != nil {
			t.Fatal(err)
		}
		if sub.Status != "canceled" {
			t.Errorf("deleted subscription status: got %s, want canceled", sub.Status)
		}

		// No second confirmation: only a created+active event mails.
		env.Mailer.mu.Lock()
		n := len(env.Mailer.Subscriptions)
		env.Mailer.mu.Unlock()
		if n != 1 {
			t.Errorf("subscription confirmations: got %d, want 1", n)
		}
	})
}
