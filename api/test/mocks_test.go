package test

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"sync"

	"github.com/creatorhq/marketplace/api/web"
	"github.com/creatorhq/marketplace/calendar"
	"github.com/gorilla/mux"
	"github.com/plutov/paypal/v4"
	mock "github.com/stripe/stripe-mock/param"
)

// recordMailer satisfies every mailer the API wants and just keeps what was
// sent, so tests can assert on deliveries without a real SMTP dialog.
type recordMailer struct {
	mu sync.Mutex

	Orders        []sentOrder
	Subscriptions []sentSubscription
	Activations   []string
	Recoveries    []string
}

type sentOrder struct {
	To          string
	OrderNumber string
	Total       int64
}

type sentSubscription struct {
	To     string
	PlanID string
	Amount int64
}

func (m *recordMailer) SendOrderConfirmation(to string, orderNumber string, total int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Orders = append(m.Orders, sentOrder{To: to, OrderNumber: orderNumber, Total: total})
	return nil
}

func (m *recordMailer) SendSubscriptionConfirmation(to string, planID string, amount int64, interval string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Subscriptions = append(m.Subscriptions, sentSubscription{To: to, PlanID: planID, Amount: amount})
	return nil
}

func (m *recordMailer) SendActivationToken(to string, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Activations = append(m.Activations, to)
	return nil
}

func (m *recordMailer) SendRecoveryToken(to string, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Recoveries = append(m.Recoveries, to)
	return nil
}

func (m *recordMailer) OrderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Orders)
}

// mockCalendar plays the external calendar provider. Flip Fail to simulate
// an outage and observe the degraded booking path.
type mockCalendar struct {
	mu     sync.Mutex
	Fail   bool
	Booked int
}

func (m *mockCalendar) handle() http.Handler {
	events := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		fail := m.Fail
		if !fail {
			m.Booked++
		}
		m.mu.Unlock()

		if fail {
			web.Respond(context.Background(), w, nil, http.StatusBadGateway)
			return
		}

		var evt calendar.Event
		if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
			web.Respond(context.Background(), w, nil, http.StatusBadRequest)
			return
		}

		created := calendar.Created{
			EventID:  fmt.Sprintf("evt-%d", rand.Intn(300)),
			MeetLink: "https://meet.test.local/" + mux.Vars(r)["id"],
		}
		web.Respond(context.Background(), w, created, http.StatusCreated)
	})

	r := mux.NewRouter()
	r.Handle("/sellers/{id}/events", events).Methods("POST")
	return r
}

// mockStripe checks the checkout session the API builds against the cart
// the test expects and hands back a canned session.
type mockStripe struct {
	mu            sync.Mutex
	ExpectedTotal int64
	ExpectedItems int
	Coupons       int
	LastID        string
	LastMetadata  map[string]string
}

// LastSession returns the id and metadata of the last checkout session the
// API opened, for replaying the completion webhook.
func (m *mockStripe) LastSession() (string, map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.LastID, m.LastMetadata
}

func (m *mockStripe) handle() http.Handler {
	checkout := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		params, _ := mock.ParseParams(r)
		lines := params["line_items"].(map[string]any)

		n := 0
		var tot int64
		for _, li := range lines {
			it := li.(map[string]any)

			if it["quantity"] != "1" {
				web.Respond(context.Background(), w, nil, http.StatusBadRequest)
				return
			}

			pd := it["price_data"].(map[string]any)
			amount, err := strconv.ParseInt(pd["unit_amount"].(string), 10, 64)
			if err != nil {
				web.Respond(context.Background(), w, err, http.StatusBadRequest)
				return
			}

			tot += amount
			n++
		}

		m.mu.Lock()
		wantItems, wantTotal := m.ExpectedItems, m.ExpectedTotal
		m.mu.Unlock()

		if n != wantItems || tot != wantTotal {
			web.Respond(context.Background(), w, nil, http.StatusBadRequest)
			return
		}

		id := fmt.Sprintf("cs_test_%d", rand.Intn(300))

		m.mu.Lock()
		m.LastID = id
		m.LastMetadata = map[string]string{}
		if md, ok := params["metadata"].(map[string]any); ok {
			for k, v := range md {
				m.LastMetadata[k], _ = v.(string)
			}
		}
		m.mu.Unlock()

		ses := map[string]any{"id": id, "url": "https://checkout.test.local/" + id}
		web.Respond(context.Background(), w, ses, http.StatusOK)
	})

	coupons := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.Coupons++
		m.mu.Unlock()

		cpn := map[string]any{"id": fmt.Sprintf("cpn_%d", rand.Intn(300))}
		web.Respond(context.Background(), w, cpn, http.StatusOK)
	})

	r := mux.NewRouter()
	r.Handle("/v1/checkout/sessions", checkout).Methods("POST")
	r.Handle("/v1/coupons", coupons).Methods("POST")
	return r
}

// mockPaypal plays the PayPal REST surface the handlers touch.
type mockPaypal struct {
	mu            sync.Mutex
	ExpectedTotal int64
	LastOrderID   string
}

func (m *mockPaypal) handle() http.Handler {
	token := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := map[string]any{"access_token": "test-token", "token_type": "Bearer", "expires_in": 3600}
		web.Respond(context.Background(), w, tok, http.StatusOK)
	})

	checkout := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var pu struct {
			Units []paypal.PurchaseUnitRequest `json:"purchase_units"`
		}
		if err := json.NewDecoder(r.Body).Decode(&pu); err != nil {
			web.Respond(context.Background(), w, nil, http.StatusBadRequest)
			return
		}

		if len(pu.Units) != 1 {
			web.Respond(context.Background(), w, nil, http.StatusBadRequest)
			return
		}

		m.mu.Lock()
		want := m.ExpectedTotal
		m.mu.Unlock()

		if pu.Units[0].Amount.Value != majorUnits(want) {
			web.Respond(context.Background(), w, nil, http.StatusBadRequest)
			return
		}

		id := fmt.Sprintf("paypal-%d", rand.Intn(300))
		m.mu.Lock()
		m.LastOrderID = id
		m.mu.Unlock()

		web.Respond(context.Background(), w, paypal.Order{ID: id}, http.StatusOK)
	})

	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := paypal.CaptureOrderResponse{Status: "COMPLETED"}
		web.Respond(context.Background(), w, resp, http.StatusOK)
	})

	r := mux.NewRouter()
	r.Handle("/v1/oauth2/token", token).Methods("POST")
	r.Handle("/v2/checkout/orders", checkout).Methods("POST")
	r.Handle("/v2/checkout/orders/{id}/capture", capture).Methods("POST")
	return r
}

func majorUnits(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
