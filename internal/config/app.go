package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"campus_api/internal/model"
)

// Store backends selectable through STORE.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// SecretEnv maps each role to the variable holding its token secret.
var SecretEnv = map[model.Role]string{
	model.RoleAnonymous: "JWT_SECRET_KEY",
	model.RoleCustomer:  "JWT_CUSTOMER_SECRET_KEY",
	model.RoleDeliverer: "JWT_DELIVERER_SECRET_KEY",
	model.RolePartner:   "JWT_PARTNER_SECRET_KEY",
	model.RoleAdmin:     "JWT_ADMIN_SECRET_KEY",
}

// AppConfig holds everything but the database connection.
type AppConfig struct {
	ServerPort         string
	Store              string
	JWTSecrets         map[model.Role]string
	JWTExpirationHours int64
	DefaultPageSize    int
	MaxPageSize        int
	CORSAllowedOrigins []string
	InitialAdminEmail  string
	AccountCacheSize   int
	AccountCacheTTL    time.Duration
	LogLevel           string
	RequestTimeout     time.Duration
}

// LoadAppConfig reads the application settings from the environment.
func LoadAppConfig() (*AppConfig, error) {
	cfg := &AppConfig{
		ServerPort:        getenv("SERVER_PORT", "8080"),
		Store:             strings.ToLower(getenv("STORE", StorePostgres)),
		InitialAdminEmail: strings.TrimSpace(os.Getenv("INITIAL_ADMIN_EMAIL")),
		LogLevel:          getenv("LOG_LEVEL", "info"),
	}
	if cfg.Store != StorePostgres && cfg.Store != StoreMemory {
		return nil, fmt.Errorf("STORE must be %q or %q, got %q", StorePostgres, StoreMemory, cfg.Store)
	}

	var errs []error
	var err error
	if cfg.JWTExpirationHours, err = positiveInt64("JWT_EXPIRATION_HOURS", 24); err != nil {
		errs = append(errs, err)
	}
	if cfg.DefaultPageSize, err = positiveInt("DEFAULT_PAGE_SIZE", 10); err != nil {
		errs = append(errs, err)
	}
	if cfg.MaxPageSize, err = positiveInt("MAX_PAGE_SIZE", 100); err != nil {
		errs = append(errs, err)
	}
	if cfg.AccountCacheSize, err = positiveInt("ACCOUNT_CACHE_SIZE", 1024); err != nil {
		errs = append(errs, err)
	}
	if cfg.AccountCacheTTL, err = duration("ACCOUNT_CACHE_TTL", time.Minute); err != nil {
		errs = append(errs, err)
	}
	if cfg.RequestTimeout, err = duration("REQUEST_TIMEOUT", 15*time.Second); err != nil {
		errs = append(errs, err)
	}
	if cfg.DefaultPageSize > cfg.MaxPageSize {
		errs = append(errs, fmt.Errorf("DEFAULT_PAGE_SIZE (%d) exceeds MAX_PAGE_SIZE (%d)", cfg.DefaultPageSize, cfg.MaxPageSize))
	}
	if cfg.JWTSecrets, err = loadSecrets(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	cfg.CORSAllowedOrigins = splitList(getenv("CORS_ALLOWED_ORIGINS", "*"))
	return cfg, nil
}

// loadSecrets requires one distinct secret per role, so a token verifies under exactly one role.
func loadSecrets() (map[model.Role]string, error) {
	secrets := make(map[model.Role]string, len(model.Roles))
	seen := make(map[string]string, len(model.Roles))
	for _, role := range model.Roles {
		name := SecretEnv[role]
		secret := os.Getenv(name)
		if secret == "" {
			return nil, fmt.Errorf("%s not set in environment", name)
		}
		if other, dup := seen[secret]; dup {
			return nil, fmt.Errorf("%s and %s must differ", other, name)
		}
		seen[secret] = name
		secrets[role] = secret
	}
	return secrets, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func positiveInt64(key string, fallback int64) (int64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", key, raw)
	}
	return n, nil
}

func positiveInt(key string, fallback int) (int, error) {
	n, err := positiveInt64(key, int64(fallback))
	return int(n), err
}

func duration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive duration", key, raw)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
