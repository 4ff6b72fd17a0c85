package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Provider families supported by the gate.
const (
	ProviderGoogle   = "google"
	ProviderEntraID  = "entra-id"
	ProviderKeycloak = "keycloak"
)

// Config holds the application configuration
type Config struct {
	Provider     string // OIDC provider family: google, entra-id or keycloak
	ClientID     string // OAuth2 client ID
	ClientSecret string // OAuth2 client secret
	AppURL       string // Public base URL of this application
	TenantID     string // Entra ID tenant
	BaseURL      string // Keycloak base URL
	Realm        string // Keycloak realm

	UseRefreshToken bool // Request offline access and accept refresh tokens

	AccessCookieName  string // Access-token cookie name
	RefreshCookieName string // Refresh-token cookie name
	CallbackPath      string // Provider redirect path
	LoginPath         string // Login handler path
	LogoutPath        string // Logout handler path

	StateSecret string // HMAC secret for the OAuth2 state parameter

	Port string // Service port

	UpstreamTokenSecret   string        // Secret for signing upstream JWT tokens; empty disables the issuer
	UpstreamTokenIssuer   string        // JWT issuer claim
	UpstreamTokenAudience string        // JWT audience claim
	UpstreamTokenTTL      time.Duration // JWT token TTL
}

// Load reads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	config := &Config{
		Provider:              getEnv("AUTHGATE_PROVIDER", ProviderGoogle),
		ClientID:              getEnv("AUTHGATE_CLIENT_ID", ""),
		ClientSecret:          getEnv("AUTHGATE_CLIENT_SECRET", ""),
		AppURL:                getEnv("AUTHGATE_APP_URL", ""),
		TenantID:              getEnv("AUTHGATE_TENANT_ID", ""),
		BaseURL:               getEnv("AUTHGATE_BASE_URL", ""),
		Realm:                 getEnv("AUTHGATE_REALM", ""),
		UseRefreshToken:       true,
		AccessCookieName:      getEnv("AUTHGATE_ACCESS_COOKIE", "authgate_access_token"),
		RefreshCookieName:     getEnv("AUTHGATE_REFRESH_COOKIE", "authgate_refresh_token"),
		CallbackPath:          getEnv("AUTHGATE_CALLBACK_PATH", "/auth/callback"),
		LoginPath:             getEnv("AUTHGATE_LOGIN_PATH", "/auth/login"),
		LogoutPath:            getEnv("AUTHGATE_LOGOUT_PATH", "/auth/logout"),
		StateSecret:           getEnv("AUTHGATE_STATE_SECRET", ""),
		Port:                  getEnv("PORT", "8080"),
		UpstreamTokenSecret:   getEnv("AUTHGATE_UPSTREAM_TOKEN_SECRET", ""),
		UpstreamTokenIssuer:   getEnv("AUTHGATE_UPSTREAM_TOKEN_ISSUER", "authgate"),
		UpstreamTokenAudience: getEnv("AUTHGATE_UPSTREAM_TOKEN_AUDIENCE", "upstream"),
		UpstreamTokenTTL:      5 * time.Minute, // Default 5 minutes
	}

	// Parse AUTHGATE_USE_REFRESH_TOKEN if provided
	if refreshStr := os.Getenv("AUTHGATE_USE_REFRESH_TOKEN"); refreshStr != "" {
		use, err := strconv.ParseBool(refreshStr)
		if err != nil {
			return nil, fmt.Errorf("invalid AUTHGATE_USE_REFRESH_TOKEN format: %w", err)
		}
		config.UseRefreshToken = use
	}

	// Parse AUTHGATE_UPSTREAM_TOKEN_TTL if provided
	if ttlStr := os.Getenv("AUTHGATE_UPSTREAM_TOKEN_TTL"); ttlStr != "" {
		duration, err := time.ParseDuration(ttlStr)
		if err != nil {
			return nil, fmt.Errorf("invalid AUTHGATE_UPSTREAM_TOKEN_TTL format: %w", err)
		}
		config.UpstreamTokenTTL = duration
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderGoogle:
	case ProviderEntraID:
		if c.TenantID == "" {
			return fmt.Errorf("AUTHGATE_TENANT_ID cannot be empty for provider %s", ProviderEntraID)
		}
	case ProviderKeycloak:
		if c.BaseURL == "" || c.Realm == "" {
			return fmt.Errorf("AUTHGATE_BASE_URL and AUTHGATE_REALM cannot be empty for provider %s", ProviderKeycloak)
		}
	default:
		return fmt.Errorf("unknown AUTHGATE_PROVIDER: %q", c.Provider)
	}

	if c.ClientID == "" {
		return fmt.Errorf("AUTHGATE_CLIENT_ID cannot be empty")
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("AUTHGATE_CLIENT_SECRET cannot be empty")
	}
	if c.AppURL == "" {
		return fmt.Errorf("AUTHGATE_APP_URL cannot be empty")
	}
	if c.StateSecret == "" {
		return fmt.Errorf("AUTHGATE_STATE_SECRET cannot be empty")
	}

	for name, path := range map[string]string{
		"AUTHGATE_CALLBACK_PATH": c.CallbackPath,
		"AUTHGATE_LOGIN_PATH":    c.LoginPath,
		"AUTHGATE_LOGOUT_PATH":   c.LogoutPath,
	} {
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("%s must start with /", name)
		}
	}

	if c.AccessCookieName == "" || c.RefreshCookieName == "" {
		return fmt.Errorf("cookie names cannot be empty")
	}

	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	if c.UpstreamTokenTTL <= 0 {
		return fmt.Errorf("AUTHGATE_UPSTREAM_TOKEN_TTL must be positive")
	}

	return nil
}

// UpstreamTokenEnabled reports whether the upstream token issuer should run.
func (c *Config) UpstreamTokenEnabled() bool {
	return c.UpstreamTokenSecret != ""
}

// getEnv retrieves an environment variable or returns a fallback value
func getEnv(key, fallback string) string {
	// Check for _FILE suffix
	if fileValue := os.Getenv(key + "_FILE"); fileValue != "" {
		content, err := os.ReadFile(fileValue)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}

	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
