package application

import (
	"context"

	"shopify-auth-layer/internal/domain"
	"shopify-auth-layer/internal/ports"

	"github.com/rs/zerolog"
)

// ResolveAction is the outcome class of a session resolution attempt.
type ResolveAction int

const (
	// AdmitExisting means the presented session matches the authoritative
	// installation and can be trusted as-is.
	AdmitExisting ResolveAction = iota
	// AdmitRebuilt means a session was built or rebuilt from the record
	// store. The caller must persist Resolution.Session before the request
	// proceeds, and the request is still subject to signature verification.
	AdmitRebuilt
	// Reject means no installation could be resolved for the request.
	Reject
)

// Resolution carries the resolver's decision. Session is set only for
// AdmitRebuilt; Reason only for Reject.
type Resolution struct {
	Action       ResolveAction
	Session      *domain.AppSession
	Installation *domain.AppInstallation
	Reason       string
}

// SessionResolver decides whether an existing session is still valid and,
// if not, rebuilds session state from the authoritative installation record.
type SessionResolver struct {
	repo   ports.Repository
	logger zerolog.Logger
}

// NewSessionResolver creates a new session resolver
func NewSessionResolver(repo ports.Repository, logger zerolog.Logger) *SessionResolver {
	return &SessionResolver{
		repo:   repo,
		logger: logger,
	}
}

// Resolve checks the presented session state (nil when the request carries
// none) against the record store for (requestedShop, appName).
//
// A session whose token no longer matches the authoritative installation is
// stale, for example after a token rotation or a reinstall elsewhere, and is
// rebuilt rather than admitted. A session referencing an installation that no
// longer exists gets one rebuild attempt before rejection. The resolver has
// no side effects; persisting the rebuilt session is the caller's job.
func (r *SessionResolver) Resolve(ctx context.Context, current *domain.AppSession, requestedShop string, appName string) (Resolution, error) {
	if current != nil {
		inst, err := r.authoritativeInstallation(ctx, current.ShopURL, appName)
		if err != nil {
			return Resolution{}, err
		}

		switch {
		case inst == nil:
			r.logger.Warn().
				Str("shop", current.ShopURL).
				Str("appName", appName).
				Msg("Session references an installation that no longer exists")
		case inst.AccessToken == current.AccessToken:
			return Resolution{Action: AdmitExisting, Installation: inst}, nil
		default:
			r.logger.Info().
				Str("shop", current.ShopURL).
				Str("appName", appName).
				Msg("Session token diverged from authoritative installation, rebuilding")
		}

		// Requests admitted on the strength of their session often carry no
		// shop parameter; repair from the session's own shop in that case.
		if requestedShop == "" {
			requestedShop = current.ShopURL
		}
	}

	inst, err := r.authoritativeInstallation(ctx, requestedShop, appName)
	if err != nil {
		return Resolution{}, err
	}
	if inst == nil {
		return Resolution{Action: Reject, Reason: "no installation"}, nil
	}

	return Resolution{
		Action: AdmitRebuilt,
		Session: &domain.AppSession{
			ShopURL:     requestedShop,
			AccessToken: inst.AccessToken,
			AppName:     appName,
		},
		Installation: inst,
	}, nil
}

// authoritativeInstallation returns the newest installation for (shop, app),
// or nil when the shop or installation is unknown.
func (r *SessionResolver) authoritativeInstallation(ctx context.Context, shopURL string, appName string) (*domain.AppInstallation, error) {
	if shopURL == "" {
		return nil, nil
	}

	user, err := r.repo.GetUserByShop(ctx, shopURL)
	if err != nil || user == nil {
		return nil, err
	}

	installs, err := r.repo.ListInstallations(ctx, user.ID, appName)
	if err != nil {
		return nil, err
	}

	return domain.LatestInstallation(installs), nil
}
