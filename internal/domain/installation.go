package domain

import "time"

// AppInstallation binds a storefront to one named application together with
// the long-lived access token and scope granted for it. Re-running the OAuth
// flow creates a new record rather than mutating an existing one.
type AppInstallation struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	AppName     string    `json:"app_name"`
	AccessToken string    `json:"access_token"`
	Scope       []string  `json:"scope"`
	CreatedAt   time.Time `json:"created_at"`
}

// LatestInstallation returns the most recently created installation, or nil
// for an empty slice. When repeated OAuth grants leave several records for
// the same (user, app) pair, the newest one is authoritative.
func LatestInstallation(installs []*AppInstallation) *AppInstallation {
	var latest *AppInstallation
	for _, inst := range installs {
		if latest == nil || inst.CreatedAt.After(latest.CreatedAt) {
			latest = inst
		}
	}
	return latest
}
