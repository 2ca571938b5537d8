package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Load_defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("SHOPIFY_APPS", "")
	t.Setenv("SHOPIFY_APPS_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.AppEnv)
	assert.True(t, cfg.Local())
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Empty(t, cfg.Apps)
}

func Test_Load_portFallback(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("PORT", "9090")
	t.Setenv("SHOPIFY_APPS", "")
	t.Setenv("SHOPIFY_APPS_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
}

func Test_Load_appManifest(t *testing.T) {
	t.Setenv("SHOPIFY_APPS", `{
		"appX": {"key": "key123", "secret": "hush", "scope": ["read_products"], "script_src": "https://cdn.example.com/widget.js"},
		"appY": {"key": "key456", "secret": "shh", "name": "renamed"}
	}`)

	cfg, err := Load()
	require.NoError(t, err)

	appX, ok := cfg.App("appX")
	require.True(t, ok)
	assert.Equal(t, "key123", appX.Key)
	assert.Equal(t, "appX", appX.Name, "name defaults to the map key")
	assert.Equal(t, []string{"read_products"}, appX.Scope)
	assert.Equal(t, "https://cdn.example.com/widget.js", appX.ScriptSrc)

	appY, ok := cfg.App("appY")
	require.True(t, ok)
	assert.Equal(t, "renamed", appY.Name)

	_, ok = cfg.App("nope")
	assert.False(t, ok)
}

func Test_Load_missingSecret(t *testing.T) {
	t.Setenv("SHOPIFY_APPS", `{"appX": {"key": "key123"}}`)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing key or secret")
}

func Test_Load_malformedManifest(t *testing.T) {
	t.Setenv("SHOPIFY_APPS", `{not json`)

	_, err := Load()
	require.Error(t, err)
}
