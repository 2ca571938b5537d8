package application

import (
	"context"
	"fmt"
	"strings"

	"shopify-auth-layer/internal/config"
	"shopify-auth-layer/internal/domain"
	"shopify-auth-layer/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

// ExchangeResult is the outcome of a completed token exchange.
type ExchangeResult struct {
	User        *domain.ShopUser
	AccessToken string
}

// AuthService performs the one-time OAuth code exchange and the idempotent
// post-install side effects (script tag, uninstall webhook). Platform API
// failures propagate to the caller; no partial records are rolled back, so
// the whole flow is safe to re-run.
type AuthService struct {
	repo    ports.Repository
	clients ports.ShopifyClientPool
	logger  zerolog.Logger
	appURL  string
}

// NewAuthService creates a new auth service
func NewAuthService(repo ports.Repository, clients ports.ShopifyClientPool, logger zerolog.Logger, appURL string) *AuthService {
	return &AuthService{
		repo:    repo,
		clients: clients,
		logger:  logger,
		appURL:  appURL,
	}
}

// ExchangeAndProvision exchanges the authorization code for an access token,
// upserts the shop user, and records the installation. The user's name and
// domain are filled from the platform on first install only; the installation
// write is an idempotent create on (user, app, token, scope).
func (s *AuthService) ExchangeAndProvision(ctx context.Context, code string, shopURL string, app config.App) (*ExchangeResult, error) {
	client, err := s.clients.GetClient(ctx, app.Name, app.Key, app.Secret)
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}

	accessToken, err := client.ExchangeToken(ctx, shopURL, code)
	if err != nil {
		s.logger.Error().Err(err).Str("shop", shopURL).Str("appName", app.Name).Msg("Failed to exchange token")
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}

	user := &domain.ShopUser{ShopURL: shopURL}
	if shopInfo, err := client.GetShop(ctx, shopURL, accessToken); err != nil {
		// Shop metadata is cosmetic; the install must not fail on it.
		s.logger.Warn().Err(err).Str("shop", shopURL).Msg("Failed to get shop info")
	} else {
		user.ShopName = shopInfo.Name
		user.ShopDomain = shopInfo.Domain
	}

	user, err = s.repo.UpsertUser(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	inst := &domain.AppInstallation{
		UserID:      user.ID,
		AppName:     app.Name,
		AccessToken: accessToken,
		Scope:       app.Scope,
	}
	if err := s.repo.SaveInstallation(ctx, inst); err != nil {
		return nil, fmt.Errorf("failed to save installation: %w", err)
	}

	s.logger.Info().
		Str("shop", shopURL).
		Str("appName", app.Name).
		Msg("Token exchange completed")

	return &ExchangeResult{User: user, AccessToken: accessToken}, nil
}

// EnsureScriptTag registers the app's storefront script tag unless a marker
// for (user, app) already exists. The scan short-circuits on first match and
// skips the platform call entirely.
func (s *AuthService) EnsureScriptTag(ctx context.Context, shopURL string, accessToken string, user *domain.ShopUser, tag goshopify.ScriptTag, app config.App) error {
	existing, err := s.repo.ListScriptTags(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to list script tags: %w", err)
	}
	for _, rec := range existing {
		if rec.AppName == app.Name {
			return nil
		}
	}

	client, err := s.clients.GetClient(ctx, app.Name, app.Key, app.Secret)
	if err != nil {
		return fmt.Errorf("failed to get client: %w", err)
	}

	created, err := client.CreateScriptTag(ctx, shopURL, accessToken, tag)
	if err != nil {
		s.logger.Error().Err(err).Str("shop", shopURL).Str("appName", app.Name).Msg("Failed to create script tag")
		return fmt.Errorf("failed to create script tag: %w", err)
	}

	rec := &domain.ScriptTagRecord{
		UserID:      user.ID,
		ShopURL:     shopURL,
		AppName:     app.Name,
		ScriptTagID: int64(created.Id),
	}
	if err := s.repo.SaveScriptTag(ctx, rec); err != nil {
		return fmt.Errorf("failed to save script tag record: %w", err)
	}

	s.logger.Info().
		Str("shop", shopURL).
		Str("appName", app.Name).
		Int64("scriptTagId", rec.ScriptTagID).
		Msg("Script tag registered")

	return nil
}

// EnsureUninstallWebhook registers the app/uninstalled webhook unless a
// marker for (user, app) already exists, so the platform tells us when the
// app is removed.
func (s *AuthService) EnsureUninstallWebhook(ctx context.Context, shopURL string, accessToken string, user *domain.ShopUser, app config.App) error {
	existing, err := s.repo.ListWebhooks(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to list webhooks: %w", err)
	}
	for _, rec := range existing {
		if rec.AppName == app.Name {
			return nil
		}
	}

	address := s.UninstallCallbackURL(app.Name)
	s.logger.Debug().
		Str("topic", "app/uninstalled").
		Str("address", address).
		Str("shop", shopURL).
		Msg("Registering uninstall webhook")

	client, err := s.clients.GetClient(ctx, app.Name, app.Key, app.Secret)
	if err != nil {
		return fmt.Errorf("failed to get client: %w", err)
	}

	created, err := client.CreateWebhook(ctx, shopURL, accessToken, "app/uninstalled", address)
	if err != nil {
		s.logger.Error().Err(err).Str("shop", shopURL).Str("appName", app.Name).Msg("Failed to create webhook")
		return fmt.Errorf("failed to create webhook: %w", err)
	}

	rec := &domain.WebhookRecord{
		UserID:    user.ID,
		ShopURL:   shopURL,
		AppName:   app.Name,
		Topic:     "app/uninstalled",
		WebhookID: int64(created.Id),
	}
	if err := s.repo.SaveWebhook(ctx, rec); err != nil {
		return fmt.Errorf("failed to save webhook record: %w", err)
	}

	return nil
}

// UninstallCallbackURL is the address registered for the app/uninstalled
// webhook.
func (s *AuthService) UninstallCallbackURL(appName string) string {
	return strings.TrimRight(s.appURL, "/") + "/webhooks/" + appName + "/uninstalled"
}

// HandleUninstalled removes the shop's installations and provisioning
// markers for the named app after the platform reports an uninstall. A later
// reinstall then provisions from scratch.
func (s *AuthService) HandleUninstalled(ctx context.Context, shopURL string, appName string) error {
	user, err := s.repo.GetUserByShop(ctx, shopURL)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		s.logger.Warn().Str("shop", shopURL).Str("appName", appName).Msg("Uninstall webhook for unknown shop")
		return nil
	}

	if err := s.repo.DeleteInstallations(ctx, user.ID, appName); err != nil {
		return fmt.Errorf("failed to delete installations: %w", err)
	}
	if err := s.repo.DeleteScriptTags(ctx, user.ID, appName); err != nil {
		return fmt.Errorf("failed to delete script tag records: %w", err)
	}
	if err := s.repo.DeleteWebhooks(ctx, user.ID, appName); err != nil {
		return fmt.Errorf("failed to delete webhook records: %w", err)
	}

	s.logger.Info().
		Str("shop", shopURL).
		Str("appName", appName).
		Msg("App uninstalled - cleanup completed")

	return nil
}
