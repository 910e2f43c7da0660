package checkout

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Metadata is the contract carried on a payment-provider checkout session.
// Purchased items travel as a comma-separated list of id:type:price triples
// under the itemsData key; everything else is a discrete string field.
// Prices are encoded in major units and handled internally in cents.
type Metadata struct {
	Items               []LineItem
	BuyerID             string
	DiscountApplied     int64
	CouponID            string
	AffiliateRef        string
	CustomerName        string
	CustomerPhone       string
	AppointmentDate     string
	AppointmentTime     string
	AppointmentSellerID string
}

type LineItem struct {
	ID    string
	Type  string
	Price int64
}

func ParseMetadata(m map[string]string) (Metadata, error) {
	md := Metadata{
		BuyerID:             m["buyerId"],
		CouponID:            m["couponId"],
		AffiliateRef:        m["affiliateRef"],
		CustomerName:        m["customerName"],
		CustomerPhone:       m["customerPhone"],
		AppointmentDate:     m["appointmentDate"],
		AppointmentTime:     m["appointmentTime"],
		AppointmentSellerID: m["appointmentSellerId"],
	}

	if v := m["discountApplied"]; v != "" {
		d, err := parseAmount(v)
		if err != nil {
			return Metadata{}, fmt.Errorf("malformed discountApplied %q: %w", v, err)
		}
		md.DiscountApplied = d
	}

	raw := m["itemsData"]
	if raw == "" {
		return Metadata{}, fmt.Errorf("metadata carries no itemsData")
	}

	seen := make(map[string]bool)
	for _, triple := range strings.Split(raw, ",") {
		parts := strings.Split(triple, ":")
		if len(parts) != 3 {
			return Metadata{}, fmt.Errorf("malformed item triple %q", triple)
		}

		id, typ := parts[0], parts[1]
		if id == "" {
			return Metadata{}, fmt.Errorf("item triple %q has empty id", triple)
		}
		switch typ {
		case "product", "course", "bundle":
		default:
			return Metadata{}, fmt.Errorf("item triple %q has unknown type", triple)
		}

		price, err := parseAmount(parts[2])
		if err != nil {
			return Metadata{}, fmt.Errorf("item triple %q has malformed price: %w", triple, err)
		}

		// A repeated item would collide with the order_items key during
		// fulfillment and sink the whole transaction.
		if seen[id+":"+typ] {
			return Metadata{}, fmt.Errorf("duplicate item %q", triple)
		}
		seen[id+":"+typ] = true

		md.Items = append(md.Items, LineItem{ID: id, Type: typ, Price: price})
	}

	return md, nil
}

func (md Metadata) Encode() map[string]string {
	triples := make([]string, 0, len(md.Items))
	for _, it := range md.Items {
		triples = append(triples, fmt.Sprintf("%s:%s:%s", it.ID, it.Type, formatAmount(it.Price)))
	}

	m := map[string]string{"itemsData": strings.Join(triples, ",")}

	set := func(k, v string) {
		if v != "" {
			m[k] = v
		}
	}
	set("buyerId", md.BuyerID)
	set("couponId", md.CouponID)
	set("affiliateRef", md.AffiliateRef)
	set("customerName", md.CustomerName)
	set("customerPhone", md.CustomerPhone)
	set("appointmentDate", md.AppointmentDate)
	set("appointmentTime", md.AppointmentTime)
	set("appointmentSellerId", md.AppointmentSellerID)
	if md.DiscountApplied > 0 {
		m["discountApplied"] = formatAmount(md.DiscountApplied)
	}

	return m
}

// HasAppointment reports whether the metadata asks for an appointment.
func (md Metadata) HasAppointment() bool {
	return md.AppointmentDate != "" && md.AppointmentTime != ""
}

// AppointmentStart combines the date and time fields into one UTC instant.
func (md Metadata) AppointmentStart() (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02 15:04", md.AppointmentDate+" "+md.AppointmentTime, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed appointment date/time: %w", err)
	}
	return t, nil
}

// parseAmount converts a major-unit decimal string to cents.
func parseAmount(s string) (int64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f < 0 {
		return 0, fmt.Errorf("negative amount %q", s)
	}
	return int64(f*100 + 0.5), nil
}

func formatAmount(cents int64) string {
	return strconv.FormatFloat(float64(cents)/100, 'f', -1, 64)
}
