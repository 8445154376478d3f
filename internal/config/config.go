package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode
	HTTPAddr string
	LogLevel string

	DBDriver string
	DBDSN    string

	ExportBasePath string // fs blob store root for result exports
	PresetsFile    string // optional YAML file of named parameter sets

	AuthHMACSecret string
	AdminUser      string
	AdminPassHash  string // bcrypt

	CORSOriginsOnline  []string
	CORSOriginsOffline []string

	// per-trial participant request throttle
	EventRate  float64 // requests per second
	EventBurst int

	RetainFinalized time.Duration // how long finalized trials stay in memory
	RetainIdle      time.Duration // unfinished trials untouched this long are dropped; <= 0 never
	SweepInterval   time.Duration

	EnableMetrics bool
}

func FromEnv() Config {
	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeOffline
	}
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		Mode:               mode,
		HTTPAddr:           addr,
		LogLevel:           envOr("LOG_LEVEL", "info"),
		DBDriver:           envOr("DB_DRIVER", "sqlite"),
		DBDSN:              envOr("DB_DSN", ""),
		ExportBasePath:     envOr("EXPORT_BASE_PATH", "./data"),
		PresetsFile:        os.Getenv("PRESETS_FILE"),
		AuthHMACSecret:     envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		AdminUser:          envOr("ADMIN_USER", "admin"),
		AdminPassHash:      envOr("ADMIN_PASS_HASH", "$2y$12$pyZAiWaTfVtM7UElIRStvOC3gNbnp70nmQU4eYopLGBfCJr1DOvji"),
		CORSOriginsOnline:  csvOr("CORS_ORIGINS_ONLINE", "https://rate.mindengage.ai"),
		CORSOriginsOffline: csvOr("CORS_ORIGINS_OFFLINE", "http://localhost:3000,http://localhost:5173"),
		EventRate:          envFloat("EVENT_RATE", 200),
		EventBurst:         envInt("EVENT_BURST", 400),
		RetainFinalized:    envDuration("RETAIN_FINALIZED", 30*time.Minute),
		RetainIdle:         envDuration("RETAIN_IDLE", 2*time.Hour),
		SweepInterval:      envDuration("SWEEP_INTERVAL", time.Minute),
		EnableMetrics:      envBool("ENABLE_METRICS", true),
	}
}

// CORSOrigins returns the origin list for the configured mode.
func (c Config) CORSOrigins() []string {
	if c.Mode == ModeOnline {
		return c.CORSOriginsOnline
	}
	return c.CORSOriginsOffline
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envInt(k string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(k)); err == nil {
		return n
	}
	return def
}
func envFloat(k string, def float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(k), 64); err == nil {
		return f
	}
	return def
}
func envDuration(k string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(k)); err == nil {
		return d
	}
	return def
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
