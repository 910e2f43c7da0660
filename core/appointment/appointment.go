package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

type Status string

const Confirmed Status = "confirmed"

// DefaultDuration is the fixed slot length of a bookable appointment.
const DefaultDuration = 60

// Appointment is a booked call with the seller, one per triggering order.
// MeetingLink stays empty when the calendar integration was unavailable.
type Appointment struct {
	ID            string    `json:"id" db:"appointment_id"`
	OrderID       string    `json:"orderId" db:"order_id"`
	SellerID      string    `json:"sellerId" db:"seller_id"`
	CustomerName  string    `json:"customerName" db:"customer_name"`
	CustomerEmail string    `json:"customerEmail" db:"customer_email"`
	StartsAt      time.Time `json:"startsAt" db:"starts_at"`
	DurationMins  int       `json:"durationMins" db:"duration_mins"`
	Status        Status    `json:"status" db:"status"`
	MeetingLink   string    `json:"meetingLink,omitempty" db:"meeting_link"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
}

func Create(ctx context.Context, db sqlx.ExtContext, app Appointment) error {
	const q = `
	INSERT INTO appointments
		(appointment_id, order_id, seller_id, customer_name, customer_email,
		 starts_at, duration_mins, status, meeting_link, created_at)
	VALUES
		(:appointment_id, :order_id, :seller_id, :customer_name, :customer_email,
		 :starts_at, :duration_mins, :status, :meeting_link, :created_at)
	ON CONFLICT (order_id) DO NOTHING`

	if _, err := sqlx.NamedExecContext(ctx, db, q, app); err != nil {
		return fmt.Errorf("inserting appointment: %w", err)
	}
	return nil
}

func FetchByOrder(ctx context.Context, db sqlx.ExtContext, orderID string) (Appointment, error) {
	const q = `SELECT * FROM appointments WHERE order_id = $1`

	var app Appointment
	if err := sqlx.GetContext(ctx, db, &app, q, orderID); err != nil {
		return Appointment{}, fmt.Errorf("fetching appointment of order[%s]: %w", orderID, err)
	}
	return app, nil
}

func FetchBySeller(ctx context.Context, db sqlx.ExtContext, sellerID string) ([]Appointment, error) {
	const q = `SELECT * FROM appointments WHERE seller_id = $1 ORDER BY starts_at ASC`

	apps := []Appointment{}
	if err := sqlx.SelectContext(ctx, db, &apps, q, sellerID); err != nil {
		return nil, fmt.Errorf("fetching appointments of seller[%s]: %w", sellerID, err)
	}
	return apps, nil
}
