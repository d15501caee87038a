package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvProduction is the PORTAL_ENV value that enables production checks.
const EnvProduction = "production"

// App holds runtime configuration loaded from the environment.
type App struct {
	Env           string
	Addr          string
	APIURL        string
	APITimeout    time.Duration
	CSRFKey       []byte
	RateLimit     int // requests per second per client IP
	MessageTTL    time.Duration
	LogLevel      slog.Level
	LocalDBPath   string
	TrustedOrigin []string
}

// IsProduction reports whether production hardening applies.
func (a App) IsProduction() bool {
	return a.Env == EnvProduction
}

// LoadDotEnv loads .env if present. A missing file is not an error.
func LoadDotEnv(paths ...string) {
	if err := godotenv.Load(paths...); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return
		}
		log.Printf("ignoring unreadable .env: %v", err)
		return
	}
	log.Println(".env loaded")
}

// Load returns server configuration from environment variables with defaults.
// PRE: LoadDotEnv has run if a .env file should apply
// POST: Returns a usable App or an error naming the bad variable
func Load() (App, error) {
	app := load()
	key, err := csrfKey(app.IsProduction())
	if err != nil {
		return App{}, err
	}
	app.CSRFKey = key
	return app, nil
}

// LoadClient returns configuration for the terminal client, which has no forms
// and therefore no CSRF key.
func LoadClient() (App, error) {
	return load(), nil
}

func load() App {
	app := App{
		Env:         getEnv("PORTAL_ENV", "development"),
		Addr:        getEnv("PORTAL_ADDR", ":8080"),
		APIURL:      strings.TrimRight(getEnv("PORTAL_API_URL", "http://localhost:8000"), "/"),
		APITimeout:  durationEnv("PORTAL_API_TIMEOUT", 10*time.Second),
		RateLimit:   intEnv("PORTAL_RATE_LIMIT", 20),
		MessageTTL:  durationEnv("PORTAL_MESSAGE_TTL", 5*time.Second),
		LogLevel:    levelEnv("PORTAL_LOG_LEVEL", slog.LevelInfo),
		LocalDBPath: getEnv("PORTAL_LOCAL_DB", defaultLocalDBPath()),
	}
	if origins := os.Getenv("PORTAL_TRUSTED_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				app.TrustedOrigin = append(app.TrustedOrigin, o)
			}
		}
	}
	return app
}

// csrfKey reads PORTAL_CSRF_KEY (64 hex chars). Production requires it;
// development falls back to a random per-process key.
func csrfKey(production bool) ([]byte, error) {
	if keyHex := os.Getenv("PORTAL_CSRF_KEY"); keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil || len(key) != 32 {
			return nil, errors.New("PORTAL_CSRF_KEY must be 64 hex characters (32 bytes)")
		}
		return key, nil
	}
	if production {
		return nil, errors.New("PORTAL_CSRF_KEY is required in production")
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate CSRF key: %w", err)
	}
	log.Println("WARNING: using random CSRF key (forms break across restarts). Set PORTAL_CSRF_KEY for production.")
	return key, nil
}

func defaultLocalDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "portal.db"
	}
	return filepath.Join(dir, "activity-portal", "local.db")
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil || d <= 0 {
			log.Printf("invalid duration for %s: %q, using fallback %s", key, val, fallback)
			return fallback
		}
		return d
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil || n <= 0 {
			log.Printf("invalid int for %s: %q, using fallback %d", key, val, fallback)
			return fallback
		}
		return n
	}
	return fallback
}

func levelEnv(key string, fallback slog.Level) slog.Level {
	if val := os.Getenv(key); val != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(val)); err != nil {
			log.Printf("invalid log level for %s: %q, using fallback %s", key, val, fallback)
			return fallback
		}
		return lvl
	}
	return fallback
}
