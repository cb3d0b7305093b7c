package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config carries everything the proxy and the watcher read from the
// environment. Login and SMTP values may legitimately be empty here: their
// absence is a per-request error (the affected request answers 500), never a
// startup failure.
type Config struct {
	ListenAddr      string
	UpstreamBaseURL string

	LoginEmail    string
	LoginPassword string

	SMTPHost   string
	SMTPPort   int
	SMTPUser   string
	SMTPPass   string
	NotifyFrom string
	NotifyTo   string

	// watcher
	ProxyURL      string
	StoreIDs      []string
	Headers       map[string]string
	StateFile     string
	DesktopNotify bool
	EmailNotify   bool

	Env      string
	LogLevel string
}

// FromEnv loads .env when present and then reads the process environment.
func FromEnv() (Config, error) {
	_ = godotenv.Load(".env")

	cfg := Config{
		ListenAddr:      getenv("LISTEN_ADDR", ":8787"),
		UpstreamBaseURL: getenv("UPSTREAM_BASE_URL", "https://foodsharing.de"),

		LoginEmail:    os.Getenv("FOODWATCH_LOGIN_EMAIL"),
		LoginPassword: os.Getenv("FOODWATCH_LOGIN_PASSWORD"),

		SMTPHost:   os.Getenv("FOODWATCH_SMTP_HOST"),
		SMTPUser:   os.Getenv("FOODWATCH_SMTP_USER"),
		SMTPPass:   os.Getenv("FOODWATCH_SMTP_PASS"),
		NotifyFrom: os.Getenv("FOODWATCH_NOTIFY_FROM"),
		NotifyTo:   os.Getenv("FOODWATCH_NOTIFY_TO"),

		ProxyURL:      getenv("FOODWATCH_PROXY_URL", "http://localhost:8787/proxy"),
		StoreIDs:      splitIDs(os.Getenv("FOODWATCH_STORE_IDS")),
		StateFile:     os.Getenv("FOODWATCH_STATE_FILE"),
		DesktopNotify: getenv("FOODWATCH_DESKTOP_NOTIFY", "true") == "true",
		EmailNotify:   getenv("FOODWATCH_EMAIL_NOTIFY", "true") == "true",

		Env:      getenv("ENV", "development"),
		LogLevel: getenv("LOG_LEVEL", ""),
	}

	if raw := os.Getenv("FOODWATCH_SMTP_PORT"); raw != "" {
		port, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return Config{}, fmt.Errorf("invalid FOODWATCH_SMTP_PORT %q: %w", raw, err)
		}
		cfg.SMTPPort = port
	}

	if raw := os.Getenv("FOODWATCH_HEADERS"); raw != "" {
		headers, err := ParseHeaders(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid FOODWATCH_HEADERS: %w", err)
		}
		cfg.Headers = headers
	}

	return cfg, nil
}

// ParseHeaders decodes the operator's extra-header blob, a flat JSON object
// of header name to value.
func ParseHeaders(raw string) (map[string]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var headers map[string]string
	if err := json.Unmarshal([]byte(raw), &headers); err != nil {
		return nil, err
	}
	return headers, nil
}

func splitIDs(s string) []string {
	var out []string
	for _, id := range strings.Split(s, ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		out = append(out, id)
	}
	return out
}

func getenv(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
