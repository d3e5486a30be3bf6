// Package config reads all deployment settings from the environment. Every
// entry point requires DEPLOY_STAGE; the stage picks the ledger path, the
// browser deadline and the Chrome binary defaults.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Stage string

const (
	Development Stage = "development"
	Production  Stage = "production"
)

type Config struct {
	Stage Stage

	// platform
	BaseURL  string
	LoginURL string

	IkonEmail    string
	IkonPassword string

	// browser automation
	BrowserTimeout time.Duration // 0 = unbounded, development only
	ChromePath     string

	// ledger + session cache
	LedgerPath       string
	SessionCachePath string
	SessionHashKey   []byte
	SessionBlockKey  []byte

	// notifications
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromAddr     string

	// web UI
	ListenAddr string
}

func FromEnv() (Config, error) {
	// A missing .env is fine; the environment may be set up by the start
	// script instead.
	_ = godotenv.Load()

	stage, err := parseStage(os.Getenv("DEPLOY_STAGE"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Stage:        stage,
		BaseURL:      getenv("IKON_BASE_URL", "https://account.ikonpass.com"),
		LoginURL:     getenv("IKON_LOGIN_URL", "https://account.ikonpass.com/en/login"),
		IkonEmail:    os.Getenv("IKON_USERNAME"),
		IkonPassword: os.Getenv("IKON_PASSWORD"),
		ChromePath:   os.Getenv("CHROME_PATH"),
		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		FromAddr:     getenv("NOTIFY_FROM", "ikon-notifier <notifier@localhost>"),
		ListenAddr:   getenv("LISTEN_ADDR", ":9090"),
	}

	if stage == Production {
		cfg.LedgerPath = getenv("LEDGER_PATH", "/var/lib/ikon-notifier/reservation_polling_data.txt")
		cfg.SessionCachePath = getenv("SESSION_CACHE_PATH", "/var/lib/ikon-notifier/session.cache")
		if cfg.ChromePath == "" {
			cfg.ChromePath = "chromium-browser"
		}
	} else {
		cfg.LedgerPath = getenv("LEDGER_PATH", "./reservation_polling_data.txt")
		cfg.SessionCachePath = getenv("SESSION_CACHE_PATH", "./ikon_session.cache")
	}

	cfg.SMTPPort, err = strconv.Atoi(getenv("SMTP_PORT", "587"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid SMTP_PORT")
	}

	timeoutSec, err := strconv.Atoi(getenv("BROWSER_TIMEOUT_SECONDS", defaultTimeoutSeconds(stage)))
	if err != nil || timeoutSec < 0 {
		return Config{}, fmt.Errorf("invalid BROWSER_TIMEOUT_SECONDS")
	}
	if timeoutSec == 0 && stage == Production {
		// an unattended run must never hang on a browser wait
		return Config{}, fmt.Errorf("BROWSER_TIMEOUT_SECONDS=0 (unbounded) is only allowed in development")
	}
	cfg.BrowserTimeout = time.Duration(timeoutSec) * time.Second

	hashKey := os.Getenv("SESSION_HASH_KEY")
	blockKey := os.Getenv("SESSION_BLOCK_KEY")
	if (hashKey == "") != (blockKey == "") {
		return Config{}, fmt.Errorf("SESSION_HASH_KEY and SESSION_BLOCK_KEY must be set together (see the keys subcommand)")
	}
	if hashKey != "" {
		if cfg.SessionHashKey, err = decodeB64(hashKey); err != nil {
			return Config{}, fmt.Errorf("SESSION_HASH_KEY: %w", err)
		}
		if cfg.SessionBlockKey, err = decodeB64(blockKey); err != nil {
			return Config{}, fmt.Errorf("SESSION_BLOCK_KEY: %w", err)
		}
	}

	return cfg, nil
}

// SessionCacheEnabled reports whether cross-cycle session reuse is configured.
func (c Config) SessionCacheEnabled() bool {
	return len(c.SessionHashKey) > 0 && len(c.SessionBlockKey) > 0
}

// RequireAccount validates the settings every authenticated run needs.
func (c Config) RequireAccount() error {
	if c.IkonEmail == "" || c.IkonPassword == "" {
		return fmt.Errorf("IKON_USERNAME and IKON_PASSWORD are required")
	}
	return nil
}

// RequireSMTP validates the settings the polling cycle needs to send mail.
func (c Config) RequireSMTP() error {
	if c.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST is required for polling runs")
	}
	return nil
}

func parseStage(raw string) (Stage, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return "", fmt.Errorf("DEPLOY_STAGE is required (development or production); source setup_env.sh or use the start script")
	case "development", "dev":
		return Development, nil
	case "production", "prod":
		return Production, nil
	default:
		return "", fmt.Errorf("unknown DEPLOY_STAGE %q (want development or production)", raw)
	}
}

func defaultTimeoutSeconds(stage Stage) string {
	if stage == Production {
		return "90"
	}
	// interactive/debug runs get to watch the browser as long as they like
	return "0"
}

// decodeB64 accepts either a base64 value or a path to a file holding one,
// for secret mounts.
func decodeB64(s string) ([]byte, error) {
	if b, err := os.ReadFile(s); err == nil {
		s = string(b)
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(s))
}

func getenv(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
