package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string
	BusFeedURL  string
	BRTFeedURL  string
	Port        string

	SyncInterval time.Duration // 0 disables the internal sync loop
	BusWindow    time.Duration // lookback window for the bus feed query
	FeedTimeout  time.Duration

	NATSURL         string
	LogNATSSubjects bool

	CORSOrigins []string
	Location    *time.Location
}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{}

	// Database URL: prefer DATABASE_URL / PG_DSN, else build from PG* vars.
	// Empty means "run on the in-memory store" (dev and tests).
	dsn := firstNonEmpty(
		os.Getenv("DATABASE_URL"),
		os.Getenv("PG_DSN"),
	)
	if dsn == "" && os.Getenv("PGDATABASE") != "" {
		host := getenvDefault("PGHOST", "127.0.0.1")
		port := getenvDefault("PGPORT", "5432")
		user := getenvDefault("PGUSER", "postgres")
		pass := os.Getenv("PGPASSWORD")
		db := os.Getenv("PGDATABASE")
		sslmode := getenvDefault("PGSSLMODE", "disable")
		if pass != "" {
			dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", urlEscape(user), urlEscape(pass), host, port, db, sslmode)
		} else {
			dsn = fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s", urlEscape(user), host, port, db, sslmode)
		}
	}
	cfg.DatabaseURL = dsn

	cfg.BusFeedURL = getenvDefault("BUS_FEED_URL", "https://dados.mobilidade.rio/gps/sppo")
	cfg.BRTFeedURL = getenvDefault("BRT_FEED_URL", "https://dados.mobilidade.rio/gps/brt")
	cfg.Port = getenvDefault("PORT", "8080")

	// Internal sync cadence (seconds); 0 leaves syncing to an external scheduler
	if v := os.Getenv("SYNC_INTERVAL_SEC"); v != "" {
		sec, err := strconv.Atoi(v)
		if err != nil || sec < 0 {
			return nil, fmt.Errorf("invalid SYNC_INTERVAL_SEC: %q", v)
		}
		cfg.SyncInterval = time.Duration(sec) * time.Second
	} else {
		cfg.SyncInterval = 15 * time.Second
	}

	// Bus feed lookback window (minutes)
	if v := os.Getenv("BUS_WINDOW_MINUTES"); v != "" {
		min, err := strconv.Atoi(v)
		if err != nil || min <= 0 {
			return nil, fmt.Errorf("invalid BUS_WINDOW_MINUTES: %q", v)
		}
		cfg.BusWindow = time.Duration(min) * time.Minute
	} else {
		cfg.BusWindow = time.Hour
	}

	// Upstream HTTP timeout (seconds)
	if v := os.Getenv("FEED_TIMEOUT_SEC"); v != "" {
		sec, err := strconv.Atoi(v)
		if err != nil || sec <= 0 {
			return nil, fmt.Errorf("invalid FEED_TIMEOUT_SEC: %q", v)
		}
		cfg.FeedTimeout = time.Duration(sec) * time.Second
	} else {
		cfg.FeedTimeout = 30 * time.Second
	}

	// NATS publishing is optional; empty URL disables it
	cfg.NATSURL = os.Getenv("NATS_URL")

	if v := os.Getenv("LOG_NATS_SUBJECTS"); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "t", "yes", "y", "on":
			cfg.LogNATSSubjects = true
		default:
			cfg.LogNATSSubjects = false
		}
	}

	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	} else {
		cfg.CORSOrigins = []string{"*"}
	}

	// Time zone; the feed's window parameters are local-time literals
	tzName := getenvDefault("TZ", "")
	if tzName == "" {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(tzName)
		if err != nil {
			return nil, fmt.Errorf("invalid TZ: %v", err)
		}
		cfg.Location = loc
	}

	if cfg.BusFeedURL == "" || cfg.BRTFeedURL == "" {
		return nil, errors.New("BUS_FEED_URL and BRT_FEED_URL must not be empty")
	}

	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func urlEscape(s string) string {
	// Minimal escape for DSN user/pass with special chars
	r := strings.NewReplacer("@", "%40", ":", "%3A", "/", "%2F", "?", "%3F", "#", "%23")
	return r.Replace(s)
}
