package domain

// AppSession is the request-scoped session state the auth gate maintains for
// an admitted request. Its access token must always equal the token on the
// authoritative installation for (shop, app); the session resolver detects
// and repairs divergence.
type AppSession struct {
	ShopURL     string `json:"shop_url"`
	AccessToken string `json:"access_token"`
	AppName     string `json:"app_name"`
}
