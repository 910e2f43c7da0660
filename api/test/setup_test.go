package test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/creatorhq/marketplace/api"
	"github.com/creatorhq/marketplace/api/background"
	"github.com/creatorhq/marketplace/calendar"
	"github.com/creatorhq/marketplace/config"
	"github.com/creatorhq/marketplace/core/auth"
	"github.com/creatorhq/marketplace/core/claims"
	"github.com/creatorhq/marketplace/core/user"
	"github.com/creatorhq/marketplace/database"
	"github.com/creatorhq/marketplace/validate"
	"github.com/jmoiron/sqlx"
	"github.com/ory/dockertest/v3"
	"github.com/plutov/paypal/v4"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	stripecl "github.com/stripe/stripe-go/v74/client"
	"golang.org/x/crypto/bcrypt"
)

const (
	webhookSecret = "whsec_test_secret"

	adminEmail  = "admin@test.local"
	sellerEmail = "seller@test.local"
	userEmail   = "customer@test.local"
	testPass    = "password1234"
)

type TestEnv struct {
	DB            *sqlx.DB
	URL           string
	Server        *httptest.Server
	WebhookSecret string

	Mailer   *recordMailer
	Calendar *mockCalendar
	Stripe   *mockStripe
	Paypal   *mockPaypal

	AdminID  string
	SellerID string
	UserID   string

	client *http.Client
}

// NewTestEnv boots a throwaway Postgres container, migrates it, seeds an
// admin, a seller and a customer, and serves the full API against mocked
// payment, calendar and mail collaborators.
func NewTestEnv(t *testing.T, name string) (*TestEnv, error) {
	t.Helper()

	pool, err := dockertest.NewPool("")
	if err != nil {
		return nil, fmt.Errorf("connecting to docker: %w", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "15-alpine",
		Env: []string{
			"POSTGRES_USER=postgres",
			"POSTGRES_PASSWORD=postgres",
			"POSTGRES_DB=" + name,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("starting postgres container: %w", err)
	}
	t.Cleanup(func() { pool.Purge(resource) })

	dbCfg := config.DB{
		User:         "postgres",
		Password:     "postgres",
		Host:         "localhost:" + resource.GetPort("5432/tcp"),
		Name:         name,
		MaxIdleConns: 2,
		MaxOpenConns: 5,
		DisableTLS:   true,
	}

	var db *sqlx.DB
	err = pool.Retry(func() error {
		var err error
		db, err = database.Open(dbCfg)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		return database.StatusCheck(ctx, db)
	})
	if err != nil {
		return nil, fmt.Errorf("waiting for postgres: %w", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(database.ConnString(dbCfg)); err != nil {
		return nil, fmt.Errorf("migrating: %w", err)
	}

	env := &TestEnv{
		DB:            db,
		WebhookSecret: webhookSecret,
		Mailer:        &recordMailer{},
		Calendar:      &mockCalendar{},
		Stripe:        &mockStripe{},
		Paypal:        &mockPaypal{},
	}

	if env.AdminID, err = seedUser(db, "admin", adminEmail, claims.RoleAdmin); err != nil {
		return nil, err
	}
	if env.SellerID, err = seedUser(db, "seller", sellerEmail, claims.RoleSeller); err != nil {
		return nil, err
	}
	if env.UserID, err = seedUser(db, "customer", userEmail, claims.RoleUser); err != nil {
		return nil, err
	}

	stripeSrv := httptest.NewServer(env.Stripe.handle())
	t.Cleanup(stripeSrv.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL: stripe.String(stripeSrv.URL),
	})
	strp := &stripecl.API{}
	strp.Init("sk_test_key", &stripe.Backends{API: backend})

	paypalSrv := httptest.NewServer(env.Paypal.handle())
	t.Cleanup(paypalSrv.Close)

	pp, err := paypal.NewClient("client", "secret", paypalSrv.URL)
	if err != nil {
		return nil, fmt.Errorf("building paypal client: %w", err)
	}

	calendarSrv := httptest.NewServer(env.Calendar.handle())
	t.Cleanup(calendarSrv.Close)

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	session := scs.New()
	session.Lifetime = time.Hour

	bg := background.New(log)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		bg.Shutdown(ctx)
	})

	mux := api.APIMux(api.APIConfig{
		Log:          log,
		DB:           db,
		Session:      session,
		Mailer:       env.Mailer,
		TokenTimeout: time.Minute,
		Background:   bg,
		Paypal:       pp,
		Stripe:       strp,
		StripeCfg: config.Stripe{
			WebhookSecret: webhookSecret,
			SuccessURL:    "http://localhost/success",
			CancelURL:     "http://localhost/canceled",
		},
		Calendar: calendar.New(config.Calendar{
			URL:     calendarSrv.URL,
			Timeout: time.Second,
		}),
		Providers: map[string]auth.Provider{},
	})

	env.Server = httptest.NewServer(mux)
	t.Cleanup(env.Server.Close)
	env.URL = env.Server.URL

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	env.client = &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return env, nil
}

func (e *TestEnv) Client() *http.Client { return e.client }

func (e *TestEnv) Login(t *testing.T, email string, pass string) {
	t.Helper()

	body := fmt.Sprintf(`{"email":%q,"password":%q}`, email, pass)
	resp, err := e.client.Post(e.URL+"/auth/login", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("logging in %s: %v", email, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logging in %s: status %s", email, resp.Status)
	}
}

func (e *TestEnv) Logout(t *testing.T) {
	t.Helper()

	resp, err := e.client.Post(e.URL+"/auth/logout", "application/json", nil)
	if err != nil {
		t.Fatalf("logging out: %v", err)
	}
	resp.Body.Close()
}

func seedUser(db *sqlx.DB, username string, email string, role string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(testPass), bcrypt.MinCost)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	usr := user.User{
		ID:           validate.GenerateID(),
		Username:     username,
		Name:         "Test " + username,
		Email:        email,
		Role:         role,
		PasswordHash: string(hash),
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := user.Create(context.Background(), db, usr); err != nil {
		return "", err
	}
	return usr.ID, nil
}
