package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	"shopify-auth-layer/internal/application"
	"shopify-auth-layer/internal/config"
	"shopify-auth-layer/internal/domain"
	"shopify-auth-layer/internal/infrastructure/shopify"
	"shopify-auth-layer/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// SessionCookie carries the session ID for the shopifyapp session state.
const SessionCookie = "shopifyapp_session"

// AppNameSource identifies which part of the request supplied the target app
// name. The lookup order is a compatibility shim: different caller
// integrations rely on different sources.
type AppNameSource string

const (
	SourceQuery AppNameSource = "query"
	SourceRoute AppNameSource = "route"
	SourcePath  AppNameSource = "path"
)

// appNameSources is the ordered list of places the target app name may come
// from; the first non-empty value wins.
var appNameSources = []func(r *http.Request) (string, AppNameSource){
	func(r *http.Request) (string, AppNameSource) {
		return requestValue(r, "appName"), SourceQuery
	},
	func(r *http.Request) (string, AppNameSource) {
		return chi.URLParam(r, "appName"), SourceRoute
	},
	func(r *http.Request) (string, AppNameSource) {
		segments := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(segments) < 2 {
			return "", SourcePath
		}
		return segments[1], SourcePath
	},
}

// AuthGate is the request-entry decision procedure: it consults session
// state, invokes the session resolver when the session is absent or stale,
// and verifies the request signature whenever a session had to be built or
// rebuilt. An already-valid session is the trust anchor and skips the
// signature check.
type AuthGate struct {
	cfg      config.Config
	resolver *application.SessionResolver
	sessions ports.SessionStore
	logger   zerolog.Logger
}

// NewAuthGate creates a new auth gate
func NewAuthGate(cfg config.Config, resolver *application.SessionResolver, sessions ports.SessionStore, logger zerolog.Logger) *AuthGate {
	return &AuthGate{
		cfg:      cfg,
		resolver: resolver,
		sessions: sessions,
		logger:   logger,
	}
}

// Handler wraps the next handler with the admission decision.
func (g *AuthGate) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		shop := requestValue(r, "shop")
		sid, current := g.currentSession(r)

		if shop == "" && current == nil {
			g.reject(w, r, http.StatusUnauthorized, "Shop key missing and no active session!")
			return
		}

		appName, source := resolveAppName(r)
		if appName == "" {
			g.reject(w, r, http.StatusUnauthorized, "unable to determine application name")
			return
		}

		res, err := g.resolver.Resolve(ctx, current, shop, appName)
		if err != nil {
			g.logger.Error().Err(err).Str("shop", shop).Str("appName", appName).Msg("Session resolution failed")
			http.Error(w, "session resolution failed", http.StatusInternalServerError)
			return
		}

		switch res.Action {
		case application.Reject:
			g.reject(w, r, http.StatusForbidden, "No shopify user found and no active sessions")
			return

		case application.AdmitRebuilt:
			if sid == "" {
				sid = newSessionID()
			}
			if err := g.sessions.Put(ctx, sid, res.Session); err != nil {
				g.logger.Error().Err(err).Str("shop", shop).Msg("Failed to store session")
				http.Error(w, "failed to store session", http.StatusInternalServerError)
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    sid,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
				Secure:   !g.cfg.Local(),
			})

			if !g.verifySignature(w, r, appName, source) {
				return
			}

			authDecisions.WithLabelValues("rebuilt").Inc()
			ctx = domain.WithAppSession(ctx, res.Session)

		case application.AdmitExisting:
			authDecisions.WithLabelValues("admitted").Inc()
			ctx = domain.WithAppSession(ctx, current)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// verifySignature runs the hmac check for a freshly built session. It writes
// the rejection response itself and reports whether the request may proceed.
func (g *AuthGate) verifySignature(w http.ResponseWriter, r *http.Request, appName string, source AppNameSource) bool {
	app, ok := g.cfg.App(appName)
	if !ok {
		g.reject(w, r, http.StatusUnauthorized, "unknown application: "+appName)
		return false
	}

	query := r.URL.Query()
	given := query.Get("hmac")

	var verifyErr error
	if given != "" {
		verifyErr = shopify.NewRequestVerifier(app.Secret).Verify(query)
	}

	g.logger.Info().
		Str("appName", appName).
		Str("appNameSource", string(source)).
		Str("hmac", given).
		Str("query", r.URL.RawQuery).
		Bool("verified", verifyErr == nil).
		Msg("hmac check")

	if given != "" && verifyErr != nil {
		g.reject(w, r, http.StatusUnauthorized, "Verification of HMAC Failed. Unauthorised.")
		return false
	}
	return true
}

// currentSession loads the session referenced by the request cookie, if any.
func (g *AuthGate) currentSession(r *http.Request) (string, *domain.AppSession) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return "", nil
	}

	sess, err := g.sessions.Get(r.Context(), cookie.Value)
	if err != nil {
		if !errors.Is(err, ports.ErrSessionNotFound) {
			g.logger.Warn().Err(err).Msg("Failed to load session")
		}
		return cookie.Value, nil
	}
	return cookie.Value, sess
}

func (g *AuthGate) reject(w http.ResponseWriter, r *http.Request, status int, reason string) {
	g.logger.Warn().
		Int("status", status).
		Str("reason", reason).
		Str("path", r.URL.Path).
		Msg("Request rejected")

	switch status {
	case http.StatusUnauthorized:
		authDecisions.WithLabelValues("rejected_unauthenticated").Inc()
	case http.StatusForbidden:
		authDecisions.WithLabelValues("rejected_unresolvable").Inc()
	}

	http.Error(w, reason, status)
}

func resolveAppName(r *http.Request) (string, AppNameSource) {
	for _, source := range appNameSources {
		if name, src := source(r); name != "" {
			return name, src
		}
	}
	return "", SourcePath
}

// requestValue reads a field from the query string or, failing that, the
// request body form.
func requestValue(r *http.Request, key string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	if err := r.ParseForm(); err == nil {
		return r.PostForm.Get(key)
	}
	return ""
}

func newSessionID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
