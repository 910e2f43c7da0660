package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/creatorhq/marketplace/api/web"
	"github.com/creatorhq/marketplace/api/weberr"
	"github.com/creatorhq/marketplace/core/claims"
	"github.com/creatorhq/marketplace/core/user"
	"github.com/creatorhq/marketplace/random"
	"github.com/creatorhq/marketplace/validate"
	"github.com/jmoiron/sqlx"
	"golang.org/x/oauth2"
)

type Provider struct {
	Config   oauth2.Config
	Verifier *oidc.IDTokenVerifier
}

type ProviderConfig struct {
	Name        string
	Client      string
	Secret      string
	URL         string
	RedirectURL string
}

// MakeProviders runs OIDC discovery for every configured provider.
func MakeProviders(ctx context.Context, cfgs []ProviderConfig) (map[string]Provider, error) {
	provs := make(map[string]Provider, len(cfgs))

	for _, cfg := range cfgs {
		p, err := oidc.NewProvider(ctx, cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("discovering provider %q: %w", cfg.Name, err)
		}

		provs[cfg.Name] = Provider{
			Config: oauth2.Config{
				ClientID:     cfg.Client,
				ClientSecret: cfg.Secret,
				Endpoint:     p.Endpoint(),
				RedirectURL:  cfg.RedirectURL,
				Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
			},
			Verifier: p.Verifier(&oidc.Config{ClientID: cfg.Client}),
		}
	}

	return provs, nil
}

const sessionOauthState = "oauth_state"

func HandleOauthLogin(session *scs.SessionManager, providers map[string]Provider) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		prov, ok := providers[web.Param(r, "provider")]
		if !ok {
			return weberr.NotFound(errors.New("unknown oauth provider"))
		}

		state, err := random.StringSecure(32)
		if err != nil {
			return err
		}
		session.Put(ctx, sessionOauthState, state)

		http.Redirect(w, r, prov.Config.AuthCodeURL(state), http.StatusTemporaryRedirect)
		return nil
	}
}

func HandleOauthCallback(db *sqlx.DB, session *scs.SessionManager, providers map[string]Provider, redirectURL string) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		prov, ok := providers[web.Param(r, "provider")]
		if !ok {
			return weberr.NotFound(errors.New("unknown oauth provider"))
		}

		state := session.PopString(ctx, sessionOauthState)
		if state == "" || state != web.QueryParam(r, "state") {
			return weberr.BadRequest(errors.New("oauth state mismatch"))
		}

		token, err := prov.Config.Exchange(ctx, web.QueryParam(r, "code"))
		if err != nil {
			return fmt.Errorf("exchanging oauth code: %w", err)
		}

		rawID, ok := token.Extra("id_token").(string)
		if !ok {
			return weberr.BadRequest(errors.New("oauth token carries no id_token"))
		}

		idToken, err := prov.Verifier.Verify(ctx, rawID)
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("verifying id token: %w", err))
		}

		var profile struct {
			Email string `json:"email"`
			Name  string `json:"name"`
		}
		if err := idToken.Claims(&profile); err != nil {
			return fmt.Errorf("decoding id token claims: %w", err)
		}

		usr, err := user.FetchByEmail(ctx, db, profile.Email)
		if errors.Is(err, sql.ErrNoRows) {
			now := time.Now().UTC()
			usr = user.User{
				ID:        validate.GenerateID(),
				Username:  usernameFromEmail(profile.Email),
				Name:      profile.Name,
				Email:     profile.Email,
				Role:      claims.RoleUser,
				Active:    true,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := user.Create(ctx, db, usr); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		if err := login(ctx, session, usr.ID, usr.Email, usr.Role); err != nil {
			return err
		}

		http.Redirect(w, r, redirectURL, http.StatusTemporaryRedirect)
		return nil
	}
}

// usernameFromEmail derives a unique-enough storefront handle for accounts
// created through oauth; users can change it later.
func usernameFromEmail(email string) string {
	local := email
	if i := strings.IndexByte(email, '@'); i > 0 {
		local = email[:i]
	}

	clean := make([]byte, 0, len(local))
	for i := 0; i < len(local); i++ {
		c := local[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			clean = append(clean, c)
		}
	}

	return string(clean) + random.String(4)
}
