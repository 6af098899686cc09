// Package geoip resolves instance endpoint addresses to country codes using
// a MaxMind GeoLite2 database, downloading and refreshing the MMDB file as
// needed. Enrichment is optional; a nil Provider disables it.
package geoip

import (
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/iwpg/orbit/internal/models"
	"github.com/oschwald/geoip2-golang"
	"github.com/rs/zerolog/log"
)

// Provider wraps the GeoIP2 database reader.
type Provider struct {
	db *geoip2.Reader
}

// Open initializes the GeoIP database reader from a file path.
func Open(path string) (*Provider, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}

	return &Provider{db: db}, nil
}

// Close closes the underlying database reader.
func (p *Provider) Close() error {
	return p.db.Close()
}

// CountryCode looks up the ISO country code (e.g., "US", "DE") for an IP
// address string. It returns an empty string for invalid or unknown input.
func (p *Provider) CountryCode(ipStr string) string {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return ""
	}

	record, err := p.db.Country(ip)
	if err != nil {
		return ""
	}

	return record.Country.IsoCode
}

// Enrich fills each instance's CountryCode from its first endpoint address.
func (p *Provider) Enrich(instances []models.Instance) {
	if p == nil {
		return
	}

	for i := range instances {
		if len(instances[i].Endpoints) == 0 {
			continue
		}

		host := instances[i].Endpoints[0].Endpoint
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
		instances[i].CountryCode = p.CountryCode(strings.TrimSpace(host))
	}
}

// EnsureDB makes sure an MMDB file exists at path and is newer than maxAge,
// downloading a fresh copy from url otherwise.
func EnsureDB(path, url string, maxAge time.Duration) error {
	info, err := os.Stat(path)
	switch {
	case err == nil && time.Since(info.ModTime()) < maxAge:
		log.Info().Str("path", path).Msg("GeoIP database is up to date")
		return nil
	case err == nil:
		log.Info().Str("path", path).Msg("GeoIP database is outdated, updating...")
	case os.IsNotExist(err):
		log.Info().Str("path", path).Msg("GeoIP database missing, downloading...")
	default:
		return err
	}

	return downloadFile(path, url)
}

// downloadFile fetches url into path via a temporary file so the swap is atomic.
func downloadFile(path, url string) error {
	tmpPath := path + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	resp, err := http.Get(url) //nolint:gosec
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		log.Error().Int("status", resp.StatusCode).Msg("Failed to download GeoIP DB")
		return os.ErrInvalid
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		return err
	}

	if err := out.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, path)
}
