package order

import "time"

type Status string

const (
	// Pending marks manual (non-card) orders awaiting admin approval. Card
	// orders never pass through it.
	Pending Status = "pending"
	Paid    Status = "paid"
	Refused Status = "refused"
)

type PayoutStatus string

const (
	PayoutPending   PayoutStatus = "pending"
	PayoutCompleted PayoutStatus = "completed"
)

// HoldbackPeriod is how long order proceeds stay locked before the seller
// can withdraw them.
const HoldbackPeriod = 7 * 24 * time.Hour

const (
	ProviderStripe = "stripe"
	ProviderPaypal = "paypal"
	ProviderManual = "manual"
)

// Order records one completed checkout. ProviderID is the payment-provider
// reference (checkout session, capture id, or a generated manual id) and is
// unique, which makes order creation safe against webhook redelivery.
// Monetary fields are in cents; PlatformFee + SellerAmount == TotalAmount.
type Order struct {
	ID              string       `json:"id" db:"order_id"`
	OrderNumber     string       `json:"orderNumber" db:"order_number"`
	Provider        string       `json:"provider" db:"provider"`
	ProviderID      string       `json:"-" db:"provider_id"`
	CustomerName    string       `json:"customerName" db:"customer_name"`
	CustomerEmail   string       `json:"customerEmail" db:"customer_email"`
	CustomerPhone   string       `json:"customerPhone" db:"customer_phone"`
	TotalAmount     int64        `json:"totalAmount" db:"total_amount"`
	PlatformFee     int64        `json:"platformFee" db:"platform_fee"`
	SellerAmount    int64        `json:"sellerAmount" db:"seller_amount"`
	Status          Status       `json:"status" db:"status"`
	UserID          string       `json:"userId" db:"user_id"`
	SellerID        *string      `json:"sellerId" db:"seller_id"`
	CouponID        *string      `json:"couponId" db:"coupon_id"`
	AffiliateLinkID *string      `json:"affiliateLinkId" db:"affiliate_link_id"`
	PayoutStatus    PayoutStatus `json:"payoutStatus" db:"payout_status"`
	AvailableAt     time.Time    `json:"availableAt" db:"available_at"`
	CreatedAt       time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time    `json:"updatedAt" db:"updated_at"`
}

const (
	ItemProduct = "product"
	ItemCourse  = "course"
	ItemBundle  = "bundle"
)

type Item struct {
	OrderID   string    `json:"orderId" db:"order_id"`
	ItemType  string    `json:"itemType" db:"item_type"`
	ItemID    string    `json:"itemId" db:"item_id"`
	Price     int64     `json:"price" db:"price"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// ManualOrderNew is the public request for a non-card order; it stays
// Pending until an admin approves it.
type ManualOrderNew struct {
	CustomerName  string          `json:"customerName" validate:"required"`
	CustomerEmail string          `json:"customerEmail" validate:"required,email"`
	CustomerPhone string          `json:"customerPhone"`
	Items         []ManualItemNew `json:"items" validate:"required,min=1,unique=ID,dive"`
}

type ManualItemNew struct {
	ID   string `json:"id" validate:"required,uuid"`
	Type string `json:"type" validate:"required,oneof=product course bundle"`
}
