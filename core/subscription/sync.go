package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/creatorhq/marketplace/api/background"
	"github.com/creatorhq/marketplace/validate"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
)

// Mailer sends the plan confirmation on first activation.
type Mailer interface {
	SendSubscriptionConfirmation(to string, planID string, amount int64, interval string) error
}

type Syncer struct {
	DB     *sqlx.DB
	Mailer Mailer
	BG     *background.Background
	Log    logrus.FieldLogger
}

// Sync reconciles the local record with a provider subscription event.
// Events lacking planId/userId metadata can only refresh an existing row;
// with no row to refresh they are dropped.
func (s *Syncer) Sync(ctx context.Context, sub *stripe.Subscription, eventType string) error {
	now := time.Now().UTC()

	rec := Subscription{
		ProviderID:        sub.ID,
		Status:            string(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	if sub.CurrentPeriodEnd > 0 {
		end := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		rec.CurrentPeriodEnd = &end
	}

	planID := sub.Metadata["planId"]
	userID := sub.Metadata["userId"]

	if planID == "" || userID == "" {
		found, err := UpdateStatusByProvider(ctx, s.DB, rec)
		if err != nil {
			return err
		}
		if !found {
			s.Log.WithFields(logrus.Fields{
				"provider_id": sub.ID,
				"event":       eventType,
			}).Info("dropping subscription event without metadata or local record")
		}
		return nil
	}

	rec.ID = validate.GenerateID()
	rec.UserID = userID
	rec.PlanID = planID
	rec.CreatedAt = now
	rec.UpdatedAt = now

	if err := Upsert(ctx, s.DB, rec); err != nil {
		return err
	}

	if eventType == "customer.subscription.created" && sub.Status == stripe.SubscriptionStatusActive {
		if err := s.sendConfirmation(sub, planID); err != nil {
			// The record is synchronized; the mail is best effort.
			s.Log.WithField("provider_id", sub.ID).Errorf("queuing confirmation: %v", err)
		}
	}

	return nil
}

func (s *Syncer) sendConfirmation(sub *stripe.Subscription, planID string) error {
	if sub.Items == nil || len(sub.Items.Data) != 1 || sub.Items.Data[0].Price == nil {
		return fmt.Errorf("subscription[%s] does not carry exactly one priced item", sub.ID)
	}

	price := sub.Items.Data[0].Price
	amount := price.UnitAmount
	interval := ""
	if price.Recurring != nil {
		interval = string(price.Recurring.Interval)
	}

	to := ""
	if sub.Customer != nil {
		to = sub.Customer.Email
	}
	if to == "" {
		return fmt.Errorf("subscription[%s] has no customer email", sub.ID)
	}

	s.BG.Add("subscription-confirmation", func() error {
		return s.Mailer.SendSubscriptionConfirmation(to, planID, amount, interval)
	})
	return nil
}
