package checkout

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestParseMetadata(t *testing.T) {
	in := map[string]string{
		"itemsData":           "p1:product:50,c1:course:100,b1:bundle:79.99",
		"buyerId":             "user-1",
		"couponId":            "cpn-1",
		"discountApplied":     "10",
		"affiliateRef":        "partner-a",
		"customerName":        "Ada Buyer",
		"customerPhone":       "+15550100",
		"appointmentDate":     "2026-09-10",
		"appointmentTime":     "14:30",
		"appointmentSellerId": "seller-1",
	}

	got, err := ParseMetadata(in)
	if err != nil {
		t.Fatalf("parsing metadata: %v", err)
	}

	want := Metadata{
		Items: []LineItem{
			{ID: "p1", Type: "product", Price: 5000},
			{ID: "c1", Type: "course", Price: 10000},
			{ID: "b1", Type: "bundle", Price: 7999},
		},
		BuyerID:             "user-1",
		CouponID:            "cpn-1",
		DiscountApplied:     1000,
		AffiliateRef:        "partner-a",
		CustomerName:        "Ada Buyer",
		CustomerPhone:       "+15550100",
		AppointmentDate:     "2026-09-10",
		AppointmentTime:     "14:30",
		AppointmentSellerID: "seller-1",
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parsed metadata mismatch (-want +got):\n%s", diff)
	}
}

func TestParseMetadataRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		meta map[string]string
	}{
		{"noItems", map[string]string{"buyerId": "user-1"}},
		{"emptyItems", map[string]string{"itemsData": ""}},
		{"tooFewParts", map[string]string{"itemsData": "p1:product"}},
		{"tooManyParts", map[string]string{"itemsData": "p1:product:50:extra"}},
		{"emptyID", map[string]string{"itemsData": ":product:50"}},
		{"unknownType", map[string]string{"itemsData": "p1:gizmo:50"}},
		{"priceNotANumber", map[string]string{"itemsData": "p1:product:abc"}},
		{"negativePrice", map[string]string{"itemsData": "p1:product:-5"}},
		{"badDiscount", map[string]string{"itemsData": "p1:product:50", "discountApplied": "x"}},
		{"duplicateItem", map[string]string{"itemsData": "p1:product:50,p1:product:50"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseMetadata(tt.meta); err == nil {
				t.Error("expected a parse error")
			}
		})
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	md := Metadata{
		Items: []LineItem{
			{ID: "p1", Type: "product", Price: 5000},
			{ID: "c1", Type: "course", Price: 12550},
		},
		BuyerID:         "user-1",
		CouponID:        "cpn-1",
		DiscountApplied: 999,
		CustomerName:    "Ada Buyer",
	}

	got, err := ParseMetadata(md.Encode())
	if err != nil {
		t.Fatalf("parsing encoded metadata: %v", err)
	}

	if diff := cmp.Diff(md, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestMetadataEncodeOmitsEmpty(t *testing.T) {
	md := Metadata{Items: []LineItem{{ID: "p1", Type: "product", Price: 5000}}}

	m := md.Encode()
	if len(m) != 1 {
		t.Errorf("encoded keys: got %v, want only itemsData", m)
	}
	if m["itemsData"] != "p1:product:50" {
		t.Errorf("itemsData: got %q", m["itemsData"])
	}
}

func TestAppointmentStart(t *testing.T) {
	md := Metadata{AppointmentDate: "2026-09-10", AppointmentTime: "14:30"}

	got, err := md.AppointmentStart()
	if err != nil {
		t.Fatal(err)
	}

	want := time.Date(2026, 9, 10, 14, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("start: got %s, want %s", got, want)
	}

	bad := Metadata{AppointmentDate: "10/09/2026", AppointmentTime: "14:30"}
	if _, err := bad.AppointmentStart(); err == nil {
		t.Error("expected an error for a malformed date")
	}
}

func TestPlatformFee(t *testing.T) {
	tests := []struct {
		total  int64
		fee    int64
		seller int64
	}{
		{14000, 1400, 12600},
		{100, 10, 90},
		{99, 9, 90},
		{1, 0, 1},
		{0, 0, 0},
	}

	for _, tt := range tests {
		fee := PlatformFee(tt.total)
		if fee != tt.fee {
			t.Errorf("PlatformFee(%d): got %d, want %d", tt.total, fee, tt.fee)
		}
		if seller := tt.total - fee; seller != tt.seller {
			t.Errorf("seller share of %d: got %d, want %d", tt.total, seller, tt.seller)
		}
	}
}
