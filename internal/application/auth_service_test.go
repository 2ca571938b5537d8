package application

import (
	"context"
	"errors"
	"testing"

	"shopify-auth-layer/internal/config"
	"shopify-auth-layer/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient counts the platform calls so idempotency tests can assert the
// remote API is hit at most once.
type fakeClient struct {
	token string
	shop  *goshopify.Shop

	exchangeErr error

	scriptTagCalls int
	webhookCalls   int
}

func (c *fakeClient) ExchangeToken(_ context.Context, _ string, _ string) (string, error) {
	if c.exchangeErr != nil {
		return "", c.exchangeErr
	}
	return c.token, nil
}

func (c *fakeClient) GetShop(_ context.Context, _ string, _ string) (*goshopify.Shop, error) {
	if c.shop == nil {
		return nil, errors.New("shop lookup failed")
	}
	return c.shop, nil
}

func (c *fakeClient) CreateScriptTag(_ context.Context, _ string, _ string, tag goshopify.ScriptTag) (*goshopify.ScriptTag, error) {
	c.scriptTagCalls++
	created := tag
	created.Id = 4001
	return &created, nil
}

func (c *fakeClient) CreateWebhook(_ context.Context, _ string, _ string, topic string, address string) (*goshopify.Webhook, error) {
	c.webhookCalls++
	return &goshopify.Webhook{Id: 9001, Topic: topic, Address: address}, nil
}

type fakePool struct {
	client *fakeClient
}

func (p *fakePool) GetClient(_ context.Context, _ string, _ string, _ string) (ports.ShopifyClient, error) {
	return p.client, nil
}

var testApp = config.App{
	Key:    "key123",
	Secret: "hush",
	Name:   "appX",
	Scope:  []string{"read_products"},
}

func Test_AuthService_ExchangeAndProvision(t *testing.T) {
	repo := newFakeRepo()
	client := &fakeClient{
		token: "tok123",
		shop:  &goshopify.Shop{Name: "Demo Store", Domain: "store.example.com"},
	}
	svc := NewAuthService(repo, &fakePool{client: client}, zerolog.Nop(), "https://app.example.com")

	res, err := svc.ExchangeAndProvision(context.Background(), "code-abc", "store.myshopify.com", testApp)
	require.NoError(t, err)
	assert.Equal(t, "tok123", res.AccessToken)
	require.NotNil(t, res.User)
	assert.Equal(t, "Demo Store", res.User.ShopName)
	assert.Equal(t, "store.example.com", res.User.ShopDomain)

	installs, err := repo.ListInstallations(context.Background(), res.User.ID, "appX")
	require.NoError(t, err)
	require.Len(t, installs, 1)
	assert.Equal(t, "tok123", installs[0].AccessToken)
	assert.Equal(t, []string{"read_products"}, installs[0].Scope)
}

func Test_AuthService_ExchangeAndProvision_repeatKeepsFirstUserFields(t *testing.T) {
	repo := newFakeRepo()
	client := &fakeClient{
		token: "tok123",
		shop:  &goshopify.Shop{Name: "First Name", Domain: "first.example.com"},
	}
	svc := NewAuthService(repo, &fakePool{client: client}, zerolog.Nop(), "https://app.example.com")

	first, err := svc.ExchangeAndProvision(context.Background(), "code-1", "store.myshopify.com", testApp)
	require.NoError(t, err)

	// The store renamed itself; a later exchange must not overwrite the
	// original record, and the same token produces no duplicate installation.
	client.shop = &goshopify.Shop{Name: "Second Name", Domain: "second.example.com"}
	second, err := svc.ExchangeAndProvision(context.Background(), "code-2", "store.myshopify.com", testApp)
	require.NoError(t, err)

	assert.Equal(t, first.User.ID, second.User.ID)
	assert.Equal(t, "First Name", second.User.ShopName)

	installs, err := repo.ListInstallations(context.Background(), first.User.ID, "appX")
	require.NoError(t, err)
	assert.Len(t, installs, 1)
}

func Test_AuthService_ExchangeAndProvision_rotatedTokenAddsInstallation(t *testing.T) {
	repo := newFakeRepo()
	client := &fakeClient{token: "tok123"}
	svc := NewAuthService(repo, &fakePool{client: client}, zerolog.Nop(), "https://app.example.com")

	first, err := svc.ExchangeAndProvision(context.Background(), "code-1", "store.myshopify.com", testApp)
	require.NoError(t, err)

	client.token = "tok456"
	_, err = svc.ExchangeAndProvision(context.Background(), "code-2", "store.myshopify.com", testApp)
	require.NoError(t, err)

	installs, err := repo.ListInstallations(context.Background(), first.User.ID, "appX")
	require.NoError(t, err)
	assert.Len(t, installs, 2)
}

func Test_AuthService_ExchangeAndProvision_exchangeFailure(t *testing.T) {
	repo := newFakeRepo()
	client := &fakeClient{exchangeErr: errors.New("invalid code")}
	svc := NewAuthService(repo, &fakePool{client: client}, zerolog.Nop(), "https://app.example.com")

	_, err := svc.ExchangeAndProvision(context.Background(), "bad-code", "store.myshopify.com", testApp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to exchange token")
	assert.Empty(t, repo.installs)
}

func Test_AuthService_ExchangeAndProvision_shopLookupFailureIsNotFatal(t *testing.T) {
	repo := newFakeRepo()
	client := &fakeClient{token: "tok123"}
	svc := NewAuthService(repo, &fakePool{client: client}, zerolog.Nop(), "https://app.example.com")

	res, err := svc.ExchangeAndProvision(context.Background(), "code-abc", "store.myshopify.com", testApp)
	require.NoError(t, err)
	assert.Empty(t, res.User.ShopName)
	assert.Equal(t, "store.myshopify.com", res.User.ShopURL)
}

func Test_AuthService_EnsureScriptTag_isIdempotent(t *testing.T) {
	repo := newFakeRepo()
	user := repo.addUser("store.myshopify.com")
	client := &fakeClient{}
	svc := NewAuthService(repo, &fakePool{client: client}, zerolog.Nop(), "https://app.example.com")

	tag := goshopify.ScriptTag{
		Event:        "onload",
		Src:          "https://cdn.example.com/widget.js",
		DisplayScope: "online_store",
	}

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.EnsureScriptTag(context.Background(), "store.myshopify.com", "tok123", user, tag, testApp))
	}

	assert.Equal(t, 1, client.scriptTagCalls)

	recs, err := repo.ListScriptTags(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, int64(4001), recs[0].ScriptTagID)
}

func Test_AuthService_EnsureUninstallWebhook_isIdempotent(t *testing.T) {
	repo := newFakeRepo()
	user := repo.addUser("store.myshopify.com")
	client := &fakeClient{}
	svc := NewAuthService(repo, &fakePool{client: client}, zerolog.Nop(), "https://app.example.com/")

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.EnsureUninstallWebhook(context.Background(), "store.myshopify.com", "tok123", user, testApp))
	}

	assert.Equal(t, 1, client.webhookCalls)

	recs, err := repo.ListWebhooks(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "app/uninstalled", recs[0].Topic)
	assert.Equal(t, int64(9001), recs[0].WebhookID)
}

func Test_AuthService_UninstallCallbackURL(t *testing.T) {
	svc := NewAuthService(newFakeRepo(), &fakePool{}, zerolog.Nop(), "https://app.example.com/")
	assert.Equal(t, "https://app.example.com/webhooks/appX/uninstalled", svc.UninstallCallbackURL("appX"))
}

func Test_AuthService_HandleUninstalled(t *testing.T) {
	repo := newFakeRepo()
	client := &fakeClient{token: "tok123"}
	svc := NewAuthService(repo, &fakePool{client: client}, zerolog.Nop(), "https://app.example.com")

	res, err := svc.ExchangeAndProvision(context.Background(), "code-abc", "store.myshopify.com", testApp)
	require.NoError(t, err)

	tag := goshopify.ScriptTag{Event: "onload", Src: "https://cdn.example.com/widget.js", DisplayScope: "online_store"}
	require.NoError(t, svc.EnsureScriptTag(context.Background(), "store.myshopify.com", res.AccessToken, res.User, tag, testApp))
	require.NoError(t, svc.EnsureUninstallWebhook(context.Background(), "store.myshopify.com", res.AccessToken, res.User, testApp))

	require.NoError(t, svc.HandleUninstalled(context.Background(), "store.myshopify.com", "appX"))

	installs, _ := repo.ListInstallations(context.Background(), res.User.ID, "appX")
	assert.Empty(t, installs)
	tags, _ := repo.ListScriptTags(context.Background(), res.User.ID)
	assert.Empty(t, tags)
	hooks, _ := repo.ListWebhooks(context.Background(), res.User.ID)
	assert.Empty(t, hooks)

	// A reinstall after cleanup provisions from scratch.
	require.NoError(t, svc.EnsureScriptTag(context.Background(), "store.myshopify.com", res.AccessToken, res.User, tag, testApp))
	assert.Equal(t, 2, client.scriptTagCalls)
}

func Test_AuthService_HandleUninstalled_unknownShop(t *testing.T) {
	repo := newFakeRepo()
	svc := NewAuthService(repo, &fakePool{}, zerolog.Nop(), "https://app.example.com")

	assert.NoError(t, svc.HandleUninstalled(context.Background(), "never-seen.myshopify.com", "appX"))
}
