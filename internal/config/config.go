package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// App is the configuration block for one installed application: the OAuth
// client credentials, the permission scope requested on install, and the
// optional storefront script injected after install.
type App struct {
	Key    string   `json:"key"`
	Secret string   `json:"secret"`
	Name   string   `json:"name"`
	Scope  []string `json:"scope"`

	// ScriptSrc, when set, is registered as an onload script tag on the
	// storefront after a successful install.
	ScriptSrc string `json:"script_src,omitempty"`
}

// Config carries everything the service needs at construction time. App
// secrets are looked up here explicitly instead of through process-wide
// state.
type Config struct {
	AppEnv   string
	HTTPAddr string

	// AppURL is the externally reachable base URL of this service. It is used
	// for OAuth redirect URIs and for the uninstall webhook callback address,
	// so it differs between local and deployed environments.
	AppURL string

	MongoURI      string
	MongoDatabase string

	RedisAddr     string
	RedisPassword string

	// Apps holds the per-application configuration, keyed by app name.
	Apps map[string]App
}

// Load reads configuration from the environment. A .env file is honored for
// local development; in production rely on real environment variables.
//
// The app manifest is JSON, either inline in SHOPIFY_APPS or in the file
// named by SHOPIFY_APPS_FILE:
//
//	{"appX": {"key": "...", "secret": "...", "scope": ["read_products"]}}
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppEnv:        envOr("APP_ENV", "local"),
		HTTPAddr:      envOr("HTTP_ADDR", ""),
		AppURL:        envOr("APP_URL", "http://localhost:8080"),
		MongoURI:      envOr("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: envOr("MONGODB_DATABASE", "shopify_auth"),
		RedisAddr:     envOr("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
	}

	if cfg.HTTPAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			cfg.HTTPAddr = ":" + port
		} else {
			cfg.HTTPAddr = ":8080"
		}
	}

	apps, err := loadApps()
	if err != nil {
		return Config{}, err
	}
	cfg.Apps = apps

	return cfg, nil
}

// Local reports whether the service runs in a local environment.
func (c Config) Local() bool {
	return c.AppEnv == "local"
}

// App returns the configuration block for the named application.
func (c Config) App(name string) (App, bool) {
	app, ok := c.Apps[name]
	return app, ok
}

func loadApps() (map[string]App, error) {
	raw := os.Getenv("SHOPIFY_APPS")
	if raw == "" {
		path := os.Getenv("SHOPIFY_APPS_FILE")
		if path == "" {
			return map[string]App{}, nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read app manifest %s: %w", path, err)
		}
		raw = string(data)
	}

	var apps map[string]App
	if err := json.Unmarshal([]byte(raw), &apps); err != nil {
		return nil, fmt.Errorf("failed to parse app manifest: %w", err)
	}

	for name, app := range apps {
		if app.Name == "" {
			app.Name = name
			apps[name] = app
		}
		if app.Key == "" || app.Secret == "" {
			return nil, fmt.Errorf("app %q is missing key or secret", name)
		}
	}

	return apps, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
