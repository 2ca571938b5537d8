package domain

import "time"

// ScriptTagRecord marks that a storefront script tag has already been
// registered for a (user, app) pair, so repeat installs don't register it
// again.
type ScriptTagRecord struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	ShopURL     string    `json:"shop_url"`
	AppName     string    `json:"app_name"`
	ScriptTagID int64     `json:"script_tag_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// WebhookRecord marks that a platform webhook has already been registered
// for a (user, app) pair.
type WebhookRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ShopURL   string    `json:"shop_url"`
	AppName   string    `json:"app_name"`
	Topic     string    `json:"topic"`
	WebhookID int64     `json:"webhook_id"`
	CreatedAt time.Time `json:"created_at"`
}
