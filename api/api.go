package api

import (
	"context"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/creatorhq/marketplace/api/background"
	"github.com/creatorhq/marketplace/api/middleware"
	"github.com/creatorhq/marketplace/api/web"
	"github.com/creatorhq/marketplace/config"
	"github.com/creatorhq/marketplace/core/auth"
	"github.com/creatorhq/marketplace/core/bundle"
	"github.com/creatorhq/marketplace/core/checkout"
	"github.com/creatorhq/marketplace/core/course"
	"github.com/creatorhq/marketplace/core/lesson"
	"github.com/creatorhq/marketplace/core/order"
	"github.com/creatorhq/marketplace/core/product"
	"github.com/creatorhq/marketplace/core/storefront"
	"github.com/creatorhq/marketplace/core/subscription"
	"github.com/creatorhq/marketplace/core/token"
	"github.com/creatorhq/marketplace/core/user"
	"github.com/creatorhq/marketplace/rate"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/plutov/paypal/v4"
	"github.com/sirupsen/logrus"
	stripecl "github.com/stripe/stripe-go/v74/client"
)

type APIConfig struct {
	CorsOrigin         string
	Log                logrus.FieldLogger
	DB                 *sqlx.DB
	Session            *scs.SessionManager
	Mailer             Mailer
	TokenTimeout       time.Duration
	Background         *background.Background
	Paypal             *paypal.Client
	Stripe             *stripecl.API
	StripeCfg          config.Stripe
	Calendar           checkout.Calendarer
	Providers          map[string]auth.Provider
	LoginRedirectURL   string
	ActivationRequired bool
}

// Mailer is the union of every mail the API sends.
type Mailer interface {
	checkout.Mailer
	subscription.Mailer
	token.Mailer
}

type api struct {
	*mux.Router
	mw  []web.Middleware
	log logrus.FieldLogger
}

func APIMux(cfg APIConfig) http.Handler {
	a := &api{
		Router: mux.NewRouter(),
		log:    cfg.Log,
	}

	a.mw = append(a.mw, auth.LoadAndSave(cfg.Session))
	a.mw = append(a.mw, middleware.RequestID())
	a.mw = append(a.mw, middleware.Logger(cfg.Log))
	a.mw = append(a.mw, middleware.Errors(cfg.Log))
	a.mw = append(a.mw, middleware.Panics())

	if cfg.CorsOrigin != "" {
		a.mw = append(a.mw, middleware.Cors(cfg.CorsOrigin))

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}

		a.Handle(http.MethodOptions, "/{path:.*}", h)
	}

	authen := auth.Authenticate(cfg.Session)
	seller := auth.Seller(cfg.Session)
	admin := auth.Admin(cfg.Session)

	// One burst per second per client on the credential endpoints.
	authLimit := middleware.RateLimit(rate.NewLimiter(5, 15, 1))

	fulfiller := &checkout.Fulfiller{
		DB:       cfg.DB,
		Calendar: cfg.Calendar,
		Mailer:   cfg.Mailer,
		BG:       cfg.Background,
		Log:      cfg.Log,
	}

	syncer := &subscription.Syncer{
		DB:     cfg.DB,
		Mailer: cfg.Mailer,
		BG:     cfg.Background,
		Log:    cfg.Log,
	}

	a.Handle(http.MethodPost, "/auth/signup", auth.HandleSignup(cfg.DB, cfg.Session, cfg.ActivationRequired), authLimit)
	a.Handle(http.MethodPost, "/auth/login", auth.HandleLogin(cfg.DB, cfg.Session), authLimit)
	a.Handle(http.MethodPost, "/auth/logout", auth.HandleLogout(cfg.Session))
	a.Handle(http.MethodGet, "/auth/oauth-login/{provider}", auth.HandleOauthLogin(cfg.Session, cfg.Providers))
	a.Handle(http.MethodGet, "/auth/oauth-callback/{provider}", auth.HandleOauthCallback(cfg.DB, cfg.Session, cfg.Providers, cfg.LoginRedirectURL))

	a.Handle(http.MethodPost, "/tokens", token.HandleToken(cfg.DB, cfg.Mailer, cfg.TokenTimeout, cfg.Background), authLimit)
	a.Handle(http.MethodPost, "/tokens/activate", token.HandleActivation(cfg.DB, cfg.Session))
	a.Handle(http.MethodPost, "/tokens/recover", token.HandleRecovery(cfg.DB))

	a.Handle(http.MethodGet, "/users/current", user.HandleShowCurrent(cfg.DB), authen)
	a.Handle(http.MethodGet, "/users/{id}", user.HandleShow(cfg.DB), authen)

	a.Handle(http.MethodGet, "/sellers/{username}/storefront", storefront.HandleShow(cfg.DB))

	a.Handle(http.MethodGet, "/products", product.HandleList(cfg.DB))
	a.Handle(http.MethodGet, "/products/{id}", product.HandleShow(cfg.DB))
	a.Handle(http.MethodPost, "/products", product.HandleCreate(cfg.DB), seller)
	a.Handle(http.MethodPut, "/products/{id}", product.HandleUpdate(cfg.DB), seller)

	a.Handle(http.MethodGet, "/courses/owned", course.HandleListOwned(cfg.DB), authen)
	a.Handle(http.MethodGet, "/courses/{course_id}/lessons", lesson.HandleListByCourse(cfg.DB))
	a.Handle(http.MethodGet, "/courses/{course_id}/progress", lesson.HandleListProgressByCourse(cfg.DB), authen)
	a.Handle(http.MethodGet, "/courses/{id}", course.HandleShow(cfg.DB))
	a.Handle(http.MethodGet, "/courses", course.HandleList(cfg.DB))
	a.Handle(http.MethodPost, "/courses", course.HandleCreate(cfg.DB), seller)
	a.Handle(http.MethodPut, "/courses/{id}", course.HandleUpdate(cfg.DB), seller)

	a.Handle(http.MethodGet, "/lessons/{id}/full", lesson.HandleShowFull(cfg.DB))
	a.Handle(http.MethodPost, "/lessons", lesson.HandleCreate(cfg.DB), seller)
	a.Handle(http.MethodPut, "/lessons/{id}/progress", lesson.HandleUpdateProgress(cfg.DB), authen)

	a.Handle(http.MethodGet, "/bundles/{id}", bundle.HandleShow(cfg.DB))
	a.Handle(http.MethodPost, "/bundles", bundle.HandleCreate(cfg.DB), seller)
	a.Handle(http.MethodPut, "/bundles/{id}", bundle.HandleUpdate(cfg.DB), seller)

	a.Handle(http.MethodPost, "/payments/stripe/checkout", checkout.HandleStripeCheckout(cfg.DB, cfg.Stripe, cfg.StripeCfg), authen)
	a.Handle(http.MethodPost, "/payments/stripe/webhook", checkout.HandleStripeWebhook(fulfiller, syncer, cfg.StripeCfg, cfg.Log))
	a.Handle(http.MethodPost, "/payments/paypal/checkout", checkout.HandlePaypalCheckout(cfg.DB, cfg.Paypal), authen)
	a.Handle(http.MethodPost, "/payments/paypal/{id}/capture", checkout.HandlePaypalCapture(cfg.DB, cfg.Paypal, fulfiller), authen)

	a.Handle(http.MethodPost, "/orders/manual", checkout.HandleManualOrder(cfg.DB))
	a.Handle(http.MethodGet, "/orders/{id}", order.HandleShow(cfg.DB), authen)

	a.Handle(http.MethodGet, "/admin/orders", order.HandleAdminList(cfg.DB), admin)
	a.Handle(http.MethodPost, "/admin/orders/{id}/approve", checkout.HandleApproveOrder(cfg.DB, fulfiller), admin)
	a.Handle(http.MethodPut, "/admin/users/{id}/role", user.HandleUpdateRole(cfg.DB), admin)
	a.Handle(http.MethodGet, "/admin/payouts", order.HandleListPayable(cfg.DB), admin)
	a.Handle(http.MethodPost, "/admin/payouts/{id}/complete", order.HandleCompletePayout(cfg.DB), admin)

	return a.Router
}

func (a *api) Handle(method string, path string, handler web.Handler, mw ...web.Middleware) {

	handler = web.WrapMiddleware(mw, handler)

	handler = web.WrapMiddleware(a.mw, handler)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		if err := handler(ctx, w, r); err != nil {

			a.log.WithFields(logrus.Fields{
				"req_id":  middleware.ContextRequestID(ctx),
				"message": err,
			}).Error("ERROR")
		}
	})

	a.Router.Handle(path, h).Methods(method)
}
