package domain

import "time"

// ShopUser identifies a tenant storefront. Storefronts are unique by shop
// URL; one user may have several apps installed.
type ShopUser struct {
	ID         string    `json:"id"`
	ShopURL    string    `json:"shop_url"`
	ShopName   string    `json:"shop_name"`
	ShopDomain string    `json:"shop_domain"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
