package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const devSessionSecret = "dev-only-session-secret-change-me-0123456789"

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Session  SessionConfig
	Google   GoogleConfig
	Seed     SeedConfig
}

type ServerConfig struct {
	Port                   string
	Env                    string
	LogLevel               string
	FrontendURL            string
	BackendURL             string
	AllowedOrigins         []string
	TrustedProxies         []string
	ReadTimeout            time.Duration
	WriteTimeout           time.Duration
	IdleTimeout            time.Duration
	AuthRateLimitPerMinute int
}

type DatabaseConfig struct {
	URL               string
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	ConnectRetryDelay time.Duration
}

type AuthConfig struct {
	JWTSecret            string
	BcryptCost           int
	CleanupInterval      time.Duration
	OAuthStateTTL        time.Duration
	TimingDelayBaseMs    int
	TimingDelayRandomMs  int
	TimingDelayOnSuccess bool
}

// SessionConfig controls the server-side session used during the Google
// redirect round trip.
type SessionConfig struct {
	Secret   string
	Name     string
	MaxAge   time.Duration
	Domain   string
	Secure   bool
	SameSite string // "lax" or "none"
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

// SeedConfig describes an optional local account created at startup
type SeedConfig struct {
	Email    string
	Password string
	Name     string
}

// Enabled reports whether both seed credentials are set
func (s SeedConfig) Enabled() bool {
	return s.Email != "" && s.Password != ""
}

// Enabled reports whether Google login has credentials
func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := getEnv("ENV", getEnv("NODE_ENV", "development"))
	production := env == "production"

	frontendURL := strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:3000"), "/")
	backendURL := strings.TrimRight(getEnv("BACKEND_URL", "http://localhost:5000"), "/")

	cfg := &Config{
		Server: ServerConfig{
			Port:                   getEnv("PORT", "5000"),
			Env:                    env,
			LogLevel:               getEnv("LOG_LEVEL", "info"),
			FrontendURL:            frontendURL,
			BackendURL:             backendURL,
			AllowedOrigins:         parseAllowedOrigins(frontendURL),
			TrustedProxies:         splitList(getEnv("TRUSTED_PROXIES", "")),
			ReadTimeout:            getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:           getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:            getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			AuthRateLimitPerMinute: getEnvAsInt("AUTH_RATE_LIMIT_PER_MINUTE", 20),
		},
		Database: DatabaseConfig{
			URL:               getEnv("DATABASE_URL", ""),
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "usuarios"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 2)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
			ConnectRetryDelay: getEnvAsDuration("DB_CONNECT_RETRY_DELAY", 5*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret:            jwtSecret,
			BcryptCost:           getEnvAsInt("BCRYPT_COST", 10),
			CleanupInterval:      getEnvAsDuration("CLEANUP_INTERVAL", 1*time.Hour),
			OAuthStateTTL:        getEnvAsDuration("OAUTH_STATE_TTL", 10*time.Minute),
			TimingDelayBaseMs:    getEnvAsInt("TIMING_DELAY_BASE_MS", 100),
			TimingDelayRandomMs:  getEnvAsInt("TIMING_DELAY_RANDOM_MS", 50),
			TimingDelayOnSuccess: getEnvAsBool("TIMING_DELAY_ON_SUCCESS", false),
		},
		Session: SessionConfig{
			Secret:   getEnv("SESSION_SECRET", ""),
			Name:     getEnv("SESSION_NAME", "usuarios.sid"),
			MaxAge:   getEnvAsDuration("SESSION_MAX_AGE", 7*24*time.Hour),
			Domain:   getEnv("SESSION_DOMAIN", ""),
			Secure:   production,
			SameSite: "lax",
		},
		Google: GoogleConfig{
			ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			CallbackURL:  backendURL + "/auth/google/callback",
		},
		Seed: SeedConfig{
			Email:    getEnv("SEED_EMAIL", ""),
			Password: getEnv("SEED_PASSWORD", ""),
			Name:     getEnv("SEED_NAME", "Administrador"),
		},
	}

	// The frontend lives on another origin, so the session cookie has to
	// travel on the cross-site redirect back from Google.
	if production {
		cfg.Session.SameSite = "none"
	}

	if cfg.Database.URL == "" && cfg.Database.Password == "" {
		return nil, fmt.Errorf("DATABASE_URL or DB_PASSWORD is required")
	}

	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}

	if cfg.Session.Secret == "" {
		if production {
			return nil, fmt.Errorf("SESSION_SECRET is required in production")
		}
		cfg.Session.Secret = devSessionSecret
	}

	if cfg.Session.MaxAge <= 0 {
		return nil, fmt.Errorf("SESSION_MAX_AGE must be positive")
	}

	return cfg, nil
}

// IsProduction reports whether the service runs with production cookie and CORS rules
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// SlogLevel maps LOG_LEVEL onto slog levels, defaulting to info
func (c *ServerConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// validateJWTSecret enforces minimum security standards for JWT secret
func validateJWTSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

// DSN returns DATABASE_URL when set, otherwise a keyword/value string built
// from the DB_* variables.
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseAllowedOrigins always admits the frontend and the local React dev
// server. ALLOWED_ORIGINS adds more entries; a leading "*." in the host
// matches any subdomain (e.g. https://*.vercel.app for preview deployments).
func parseAllowedOrigins(frontendURL string) []string {
	origins := []string{frontendURL, "http://localhost:3000"}
	for _, o := range splitList(getEnv("ALLOWED_ORIGINS", "")) {
		origins = append(origins, strings.TrimRight(o, "/"))
	}

	seen := make(map[string]bool, len(origins))
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if !seen[o] {
			seen[o] = true
			out = append(out, o)
		}
	}
	return out
}
