package tracker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/iwpg/orbit/internal/models"
)

// Field extraction patterns for the payload embedded in the server page.
var (
	rePlayers    = regexp.MustCompile(`"playerCount"\s*:\s*(\d+)`)
	reMaxPlayers = regexp.MustCompile(`"playerCountLimit"\s*:\s*(\d+)`)
	reQueue      = regexp.MustCompile(`"queueLength"\s*:\s*(\d+)`)
	reName       = regexp.MustCompile(`"name"\s*:\s*"([^"]+)"`)
	reJoinable   = regexp.MustCompile(`"joinable"\s*:\s*(true|false)`)
)

// HTMLBackend extracts player counts from a structured payload embedded in a
// larger HTML page, one page per server.
type HTMLBackend struct {
	client    *http.Client
	baseURL   string
	userAgent string
}

// NewHTML creates an HTML-scrape backend rooted at baseURL.
func NewHTML(baseURL, userAgent string, timeout time.Duration) *HTMLBackend {
	return &HTMLBackend{
		client:    &http.Client{Timeout: timeout},
		baseURL:   baseURL,
		userAgent: userAgent,
	}
}

// Fetch downloads the server page and pattern-matches the embedded fields.
// Missing fields default to zero values rather than failing the record.
func (b *HTMLBackend) Fetch(ctx context.Context, srv Server) (models.TrackedServer, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/servers/"+srv.ID, nil)
	if err != nil {
		return models.TrackedServer{}, err
	}
	req.Header.Set("User-Agent", b.userAgent)

	resp, err := b.client.Do(req)
	if err != nil {
		return models.TrackedServer{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return models.TrackedServer{}, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, srv.Label)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.TrackedServer{}, err
	}

	rec := models.TrackedServer{
		ID:         srv.ID,
		Label:      srv.Label,
		Name:       "Unknown",
		Status:     models.StatusOffline,
		Players:    matchInt(rePlayers, body),
		MaxPlayers: matchInt(reMaxPlayers, body),
		Queue:      matchInt(reQueue, body),
	}

	if m := reName.FindSubmatch(body); m != nil {
		rec.Name = string(m[1])
	}
	if m := reJoinable.FindSubmatch(body); m != nil && string(m[1]) == "true" {
		rec.Status = models.StatusOnline
	}

	return rec, nil
}

func matchInt(re *regexp.Regexp, body []byte) int {
	m := re.FindSubmatch(body)
	if m == nil {
		return 0
	}

	n, err := strconv.Atoi(string(m[1]))
	if err != nil {
		return 0
	}

	return n
}
