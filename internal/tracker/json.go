package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/iwpg/orbit/internal/models"
)

// JSONBackend reads a structured per-server document from a JSON API.
type JSONBackend struct {
	client    *http.Client
	baseURL   string
	userAgent string
}

// NewJSON creates a JSON API backend rooted at baseURL.
func NewJSON(baseURL, userAgent string, timeout time.Duration) *JSONBackend {
	return &JSONBackend{
		client:    &http.Client{Timeout: timeout},
		baseURL:   baseURL,
		userAgent: userAgent,
	}
}

// serverDocument is the per-server response shape.
type serverDocument struct {
	Data struct {
		Attributes struct {
			Name       string `json:"name"`
			Status     string `json:"status"`
			Players    int    `json:"players"`
			MaxPlayers int    `json:"maxPlayers"`
			Queue      int    `json:"queue"`
		} `json:"attributes"`
	} `json:"data"`
}

// Fetch reads one server document and maps it onto a TrackedServer.
func (b *JSONBackend) Fetch(ctx context.Context, srv Server) (models.TrackedServer, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/servers/"+srv.ID, nil)
	if err != nil {
		return models.TrackedServer{}, err
	}
	req.Header.Set("User-Agent", b.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return models.TrackedServer{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return models.TrackedServer{}, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, srv.Label)
	}

	var doc serverDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return models.TrackedServer{}, fmt.Errorf("decode server %s: %w", srv.Label, err)
	}

	attrs := doc.Data.Attributes
	rec := models.TrackedServer{
		ID:         srv.ID,
		Label:      srv.Label,
		Name:       attrs.Name,
		Status:     models.TrackedStatus(attrs.Status),
		Players:    attrs.Players,
		MaxPlayers: attrs.MaxPlayers,
		Queue:      attrs.Queue,
	}

	if rec.Name == "" {
		rec.Name = "Unknown"
	}
	switch rec.Status {
	case models.StatusOnline, models.StatusOffline, models.StatusError:
	default:
		rec.Status = models.StatusUnknown
	}

	return rec, nil
}
