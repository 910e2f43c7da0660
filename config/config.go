package config

import "time"

// Config collects every knob of the service. Values are parsed from the
// environment with the MARKET prefix by ardanlabs/conf.
type Config struct {
	Web      Web
	Cors     Cors
	Auth     Auth
	Oauth    Oauth
	DB       DB
	Email    Email
	Stripe   Stripe
	Paypal   Paypal
	Calendar Calendar
}

type Web struct {
	Address         string        `conf:"default:0.0.0.0:8000"`
	ReadTimeout     time.Duration `conf:"default:5s"`
	WriteTimeout    time.Duration `conf:"default:10s"`
	IdleTimeout     time.Duration `conf:"default:120s"`
	ShutdownTimeout time.Duration `conf:"default:20s"`
}

type Cors struct {
	Origin string
}

type Auth struct {
	ActivationRequired bool `conf:"default:false"`
}

type Oauth struct {
	DiscoveryTimeout time.Duration `conf:"default:30s"`
	LoginRedirectURL string        `conf:"default:http://localhost:3000"`
	Google           OauthProvider
}

type OauthProvider struct {
	Client      string
	Secret      string `conf:"mask"`
	URL         string `conf:"default:https://accounts.google.com"`
	RedirectURL string `conf:"default:http://localhost:8000/auth/oauth-callback/google"`
}

type DB struct {
	User         string `conf:"default:postgres"`
	Password     string `conf:"default:postgres,mask"`
	Host         string `conf:"default:localhost:5432"`
	Name         string `conf:"default:marketplace"`
	MaxIdleConns int    `conf:"default:2"`
	MaxOpenConns int    `conf:"default:25"`
	DisableTLS   bool   `conf:"default:true"`
}

type Email struct {
	Host          string
	Port          int `conf:"default:587"`
	Address       string
	Password      string        `conf:"mask"`
	TokenTimeout  time.Duration `conf:"default:15m"`
	ActivationURL string        `conf:"default:http://localhost:3000/activate"`
	RecoveryURL   string        `conf:"default:http://localhost:3000/recover"`
}

type Stripe struct {
	APISecret     string `conf:"mask"`
	WebhookSecret string `conf:"mask"`
	SuccessURL    string `conf:"default:http://localhost:3000/checkout/success"`
	CancelURL     string `conf:"default:http://localhost:3000/checkout/canceled"`
}

type Paypal struct {
	ClientID string
	Secret   string `conf:"mask"`
	URL      string `conf:"default:https://api.sandbox.paypal.com"`
}

type Calendar struct {
	URL      string
	APIToken string        `conf:"mask"`
	Timeout  time.Duration `conf:"default:10s"`
}
