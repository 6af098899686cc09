// Package config handles the parsing and validation of application configuration
// from command-line arguments, environment variables and an optional .env file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/iwpg/orbit/internal/logger"
	"github.com/iwpg/orbit/internal/vars"
	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Config represents the complete application flags configuration.
type Config struct {
	Server    Server        `group:"Server Options" env-namespace:"ORBIT"`
	Storage   Storage       `group:"Storage Options" namespace:"db" env-namespace:"ORBIT_DB"`
	Panel     Panel         `group:"Control Plane Options" namespace:"panel" env-namespace:"ORBIT_PANEL"`
	Tracker   Tracker       `group:"Tracker Options" namespace:"tracker" env-namespace:"ORBIT_TRACKER"`
	Poll      Poll          `group:"Polling Options" namespace:"poll" env-namespace:"ORBIT_POLL"`
	Peaks     Peaks         `group:"Peak Tracking Options" namespace:"peaks" env-namespace:"ORBIT_PEAKS"`
	GeoIP     GeoIP         `group:"GeoIP Options" namespace:"geoip" env-namespace:"ORBIT_GEOIP"`
	RateLimit RateLimit     `group:"Rate Limit Options" namespace:"rate-limit" env-namespace:"ORBIT_RATE_LIMIT"`
	Logger    logger.Config `group:"Logger Options" namespace:"log" env-namespace:"ORBIT_LOG"`

	Version bool `short:"v" long:"version" description:"Print version and build info"`
}

// Server holds web server configuration.
type Server struct {
	Address    string `short:"l" long:"address" env:"LISTEN_ADDRESS" description:"Server listen address" default:":8080"`
	AuthToken  string `short:"t" long:"auth-token" env:"AUTH_TOKEN" description:"Bearer token protecting the read API (empty disables auth)"`
	TrustProxy bool   `long:"trust-proxy" env:"TRUST_PROXY" description:"Trust X-Forwarded-For headers"`
}

// Storage holds database and maintenance configuration.
type Storage struct {
	Path      string        `short:"d" long:"path" env:"PATH" description:"Path to SQLite database" default:"orbit.db"`
	Retention time.Duration `long:"retention" env:"RETENTION" description:"Sample retention window" default:"720h"`

	PruneNow      bool `long:"prune-now" description:"Apply the retention window once and exit"`
	Stats         bool `long:"stats" description:"Print sample statistics and exit"`
	GenerateCount int  `long:"gen-fake-data" hidden:"true"`
}

// Panel holds control-plane API configuration.
type Panel struct {
	URL      string        `long:"url" env:"URL" description:"Control plane base URL (without /API)"`
	Username string        `long:"username" env:"USERNAME" description:"Control plane username"`
	Password string        `long:"password" env:"PASSWORD" description:"Control plane password"`
	Timeout  time.Duration `long:"timeout" env:"TIMEOUT" description:"Per-request timeout" default:"15s"`
}

// Tracker holds secondary-source configuration. Servers are "id=label" pairs.
type Tracker struct {
	Backend   string        `long:"backend" env:"BACKEND" description:"Secondary source backend (html, json or a2s)" default:"html" choice:"html" choice:"json" choice:"a2s"`
	BaseURL   string        `long:"base-url" env:"BASE_URL" description:"Secondary source base URL"`
	Servers   []string      `short:"s" long:"server" env:"SERVERS" description:"Tracked servers as id=label pairs" env-delim:","`
	Timeout   time.Duration `long:"timeout" env:"TIMEOUT" description:"Per-server fetch timeout" default:"10s"`
	UserAgent string        `long:"user-agent" env:"USER_AGENT" description:"User-Agent header for HTTP backends" default:"Orbit-Stats/1.0"`

	// A2S backend options (id must be host:port when backend=a2s)
	BufferSize uint16 `long:"a2s-buffer-size" env:"A2S_BUFFER_SIZE" description:"A2S response buffer size" default:"1400"`
}

// Poll holds poll-cycle scheduling configuration.
type Poll struct {
	Interval    time.Duration `long:"interval" env:"INTERVAL" description:"Poll cycle interval" default:"1m"`
	MaxLookback time.Duration `long:"max-lookback" env:"MAX_LOOKBACK" description:"Maximum history lookback served by the API" default:"720h"`
}

// Peaks holds daily peak reset configuration.
type Peaks struct {
	ResetTime string `long:"reset-time" env:"RESET_TIME" description:"Daily peak reset time as HH:MM" default:"06:00"`
	UTCOffset int    `long:"utc-offset" env:"UTC_OFFSET" description:"Fixed UTC offset in hours for the reset clock" default:"0"`
}

// GeoIP holds MaxMind GeoIP configuration.
type GeoIP struct {
	Path     string        `short:"g" long:"path" env:"PATH" description:"Path to MMDB file (empty disables country enrichment)"`
	URL      string        `long:"url" env:"URL" description:"URL to download MMDB" default:"https://git.io/GeoLite2-Country.mmdb"`
	Interval time.Duration `long:"interval" env:"INTERVAL" description:"Update interval check" default:"24h"`
}

// RateLimit holds API rate limiting configuration.
type RateLimit struct {
	Count  int           `long:"count" env:"COUNT" description:"Per-IP limit: requests count" default:"30"`
	Window time.Duration `long:"window" env:"WINDOW" description:"Per-IP limit: window duration" default:"1m"`
}

// TrackedServer is one parsed id=label pair from the Tracker.Servers flag.
type TrackedServer struct {
	ID    string
	Label string
}

// ParseServers splits the configured id=label pairs. A pair without "=" uses
// the id as its label.
func (t Tracker) ParseServers() []TrackedServer {
	out := make([]TrackedServer, 0, len(t.Servers))
	for _, raw := range t.Servers {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		id, label, found := strings.Cut(raw, "=")
		if !found {
			label = id
		}
		out = append(out, TrackedServer{ID: id, Label: label})
	}

	return out
}

// ResetClock parses the HH:MM reset time. Invalid input falls back to 06:00.
func (p Peaks) ResetClock() (hour, minute int) {
	if _, err := fmt.Sscanf(p.ResetTime, "%d:%d", &hour, &minute); err != nil {
		return 6, 0
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 6, 0
	}

	return hour, minute
}

// Parse reads the configuration from flags, environment variables and an
// optional .env file. It terminates the application if the configuration is
// invalid or if the help flag is invoked.
func Parse() *Config {
	// .env is optional, real environment wins
	_ = godotenv.Load()

	var cfg Config
	parser := flags.NewParser(&cfg, flags.Default)
	parser.NamespaceDelimiter = "-"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}

	if cfg.Version {
		vars.Print()
		os.Exit(0)
	}

	if cfg.Panel.URL == "" {
		fmt.Fprintln(os.Stderr,
			"Required flag `--panel-url' or environment variable `ORBIT_PANEL_URL` was not specified!")
		os.Exit(1)
	}
	cfg.Panel.URL = strings.TrimRight(cfg.Panel.URL, "/")

	return &cfg
}
