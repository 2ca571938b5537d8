package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"shopify-auth-layer/internal/application"
	"shopify-auth-layer/internal/config"
	"shopify-auth-layer/internal/domain"
	securitymiddleware "shopify-auth-layer/internal/infrastructure/middleware"
	"shopify-auth-layer/internal/infrastructure/repository"
	sessioninfra "shopify-auth-layer/internal/infrastructure/session"
	shopifyinfra "shopify-auth-layer/internal/infrastructure/shopify"
	"shopify-auth-layer/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const stateCookie = "oauth_state"

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if len(cfg.Apps) == 0 {
		logger.Warn().Msg("⚠️  Warning: no apps configured, set SHOPIFY_APPS or SHOPIFY_APPS_FILE")
	}

	// Connect to MongoDB
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer client.Disconnect(context.Background())

	db := client.Database(cfg.MongoDatabase)

	// Connect to Redis for session state
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer redisClient.Close()

	// Initialize infrastructure (implementations)
	repo, err := repository.NewMongoRepository(context.Background(), db)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize repository")
	}
	sessions := sessioninfra.NewRedisStore(redisClient, 24*time.Hour)
	clientPool := shopifyinfra.NewClientPool(logger)

	// Initialize application services
	resolver := application.NewSessionResolver(repo, logger)
	authService := application.NewAuthService(repo, clientPool, logger, cfg.AppURL)

	gate := securitymiddleware.NewAuthGate(cfg, resolver, sessions, logger)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(securitymiddleware.Metrics())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	// Swagger documentation - public
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeFile(w, r, "./docs/swagger.json")
	})

	// OAuth routes
	r.Get("/auth/{appName}", oauthInitHandler(cfg, logger))
	r.Get("/auth/{appName}/callback", oauthCallbackHandler(cfg, authService, sessions, logger))

	// Uninstall webhook: POST /webhooks/{appName}/uninstalled
	r.Post("/webhooks/{appName}/uninstalled", uninstalledHandler(cfg, authService, logger))

	// App routes, admitted through the auth gate
	r.Route("/apps/{appName}", func(r chi.Router) {
		r.Use(gate.Handler)
		r.Get("/*", sessionInfoHandler())
		r.Get("/", sessionInfoHandler())
	})

	logger.Info().Str("addr", cfg.HTTPAddr).Msg("Starting API server")
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start server")
	}
}

// oauthInitHandler initiates the OAuth flow for one app
func oauthInitHandler(cfg config.Config, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shop := strings.TrimSpace(r.URL.Query().Get("shop"))
		if shop == "" {
			http.Error(w, "shop parameter is required", http.StatusBadRequest)
			return
		}

		app, ok := cfg.App(chi.URLParam(r, "appName"))
		if !ok {
			http.Error(w, "unknown application", http.StatusNotFound)
			return
		}

		// Random state for CSRF protection
		state := randomHex(16)
		http.SetCookie(w, &http.Cookie{
			Name:     stateCookie,
			Value:    state,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			Secure:   !cfg.Local(),
		})

		redirectURI := strings.TrimRight(cfg.AppURL, "/") + "/auth/" + app.Name + "/callback"
		authURL := fmt.Sprintf(
			"https://%s/admin/oauth/authorize?client_id=%s&scope=%s&redirect_uri=%s&state=%s",
			shop,
			app.Key,
			url.QueryEscape(strings.Join(app.Scope, ",")),
			url.QueryEscape(redirectURI),
			state,
		)

		logger.Info().
			Str("shop", shop).
			Str("appName", app.Name).
			Strs("scope", app.Scope).
			Msg("Redirecting to authorization URL")

		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// oauthCallbackHandler completes the install: verifies state and hmac,
// exchanges the code, provisions the script tag and uninstall webhook, and
// opens the session.
func oauthCallbackHandler(
	cfg config.Config,
	authService *application.AuthService,
	sessions ports.SessionStore,
	logger zerolog.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		qs := r.URL.Query()

		shop := qs.Get("shop")
		code := qs.Get("code")
		state := qs.Get("state")

		if shop == "" || code == "" || state == "" {
			http.Error(w, "Missing required parameters", http.StatusBadRequest)
			return
		}

		app, ok := cfg.App(chi.URLParam(r, "appName"))
		if !ok {
			http.Error(w, "unknown application", http.StatusNotFound)
			return
		}

		c, err := r.Cookie(stateCookie)
		if err != nil || c.Value == "" || c.Value != state {
			http.Error(w, "invalid oauth state", http.StatusBadRequest)
			return
		}

		if err := shopifyinfra.NewRequestVerifier(app.Secret).Verify(qs); err != nil {
			logger.Warn().Err(err).Str("shop", shop).Msg("Callback signature verification failed")
			http.Error(w, "Verification of HMAC Failed. Unauthorised.", http.StatusUnauthorized)
			return
		}

		result, err := authService.ExchangeAndProvision(ctx, code, shop, app)
		if err != nil {
			logger.Error().Err(err).Str("shop", shop).Msg("Failed to exchange token")
			http.Error(w, "Failed to complete installation", http.StatusInternalServerError)
			return
		}

		if app.ScriptSrc != "" {
			tag := goshopify.ScriptTag{
				Event:        "onload",
				Src:          app.ScriptSrc,
				DisplayScope: "online_store",
			}
			if err := authService.EnsureScriptTag(ctx, shop, result.AccessToken, result.User, tag, app); err != nil {
				logger.Error().Err(err).Str("shop", shop).Msg("Failed to register script tag")
				http.Error(w, "Failed to complete installation", http.StatusInternalServerError)
				return
			}
		}

		if err := authService.EnsureUninstallWebhook(ctx, shop, result.AccessToken, result.User, app); err != nil {
			logger.Error().Err(err).Str("shop", shop).Msg("Failed to register uninstall webhook")
			http.Error(w, "Failed to complete installation", http.StatusInternalServerError)
			return
		}

		// Open the session so the redirect lands on an admitted request.
		sid := randomHex(16)
		if err := sessions.Put(ctx, sid, &domain.AppSession{
			ShopURL:     shop,
			AccessToken: result.AccessToken,
			AppName:     app.Name,
		}); err != nil {
			logger.Error().Err(err).Str("shop", shop).Msg("Failed to store session")
			http.Error(w, "Failed to complete installation", http.StatusInternalServerError)
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     securitymiddleware.SessionCookie,
			Value:    sid,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			Secure:   !cfg.Local(),
		})

		logger.Info().
			Str("shop", shop).
			Str("appName", app.Name).
			Msg("Installation completed")

		http.Redirect(w, r, "/apps/"+app.Name+"?shop="+url.QueryEscape(shop), http.StatusFound)
	}
}

// uninstalledHandler handles the app/uninstalled webhook
func uninstalledHandler(cfg config.Config, authService *application.AuthService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		app, ok := cfg.App(chi.URLParam(r, "appName"))
		if !ok {
			http.Error(w, "unknown application", http.StatusNotFound)
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request body", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		hmacHeader := r.Header.Get("X-Shopify-Hmac-SHA256")
		if err := shopifyinfra.NewWebhookVerifier(app.Secret).Verify(payload, hmacHeader); err != nil {
			logger.Warn().Err(err).Str("appName", app.Name).Msg("Webhook signature verification failed")
			http.Error(w, "Invalid signature", http.StatusUnauthorized)
			return
		}

		// Shop domain from payload, header as fallback
		var webhookData map[string]interface{}
		shop := ""
		if err := json.Unmarshal(payload, &webhookData); err == nil {
			if d, ok := webhookData["domain"].(string); ok {
				shop = d
			} else if d, ok := webhookData["myshopify_domain"].(string); ok {
				shop = d
			}
		}
		if shop == "" {
			shop = r.Header.Get("X-Shopify-Shop-Domain")
		}
		if shop == "" {
			http.Error(w, "unable to determine shop", http.StatusBadRequest)
			return
		}

		if err := authService.HandleUninstalled(ctx, shop, app.Name); err != nil {
			logger.Error().Err(err).Str("shop", shop).Msg("Failed to process uninstall")
			// Return 500 to trigger a redelivery
			http.Error(w, "Failed to process webhook event", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"received": "true",
		})
	}
}

// sessionInfoHandler echoes the resolved session for the embedded frontend.
func sessionInfoHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := domain.AppSessionFromContext(r.Context())
		if sess == nil {
			http.Error(w, "no session", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"shop_url": sess.ShopURL,
			"app_name": sess.AppName,
		})
	}
}

func randomHex(nBytes int) string {
	b := make([]byte, nBytes)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
