package tracker

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/iwpg/orbit/internal/models"
	"github.com/woozymasta/a2s/pkg/a2s"
)

// A2SBackend queries game servers directly over the Source Engine Query
// protocol. Server IDs must be host:port pairs.
type A2SBackend struct {
	timeout    time.Duration
	bufferSize uint16
}

// NewA2S creates a Source-query backend.
func NewA2S(timeout time.Duration, bufferSize uint16) *A2SBackend {
	if bufferSize == 0 {
		bufferSize = 1400
	}

	return &A2SBackend{timeout: timeout, bufferSize: bufferSize}
}

// Fetch sends an A2S_INFO request to the server's query port.
func (b *A2SBackend) Fetch(_ context.Context, srv Server) (models.TrackedServer, error) {
	host, portStr, err := net.SplitHostPort(srv.ID)
	if err != nil {
		return models.TrackedServer{}, fmt.Errorf("server %s: id must be host:port: %w", srv.Label, err)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return models.TrackedServer{}, fmt.Errorf("server %s: invalid port %q", srv.Label, portStr)
	}

	client, err := a2s.New(host, port)
	if err != nil {
		return models.TrackedServer{}, err
	}
	defer func() { _ = client.Close() }()

	client.BufferSize = b.bufferSize
	client.Timeout = b.timeout

	info, err := client.GetInfo()
	if err != nil {
		return models.TrackedServer{}, err
	}

	return models.TrackedServer{
		ID:         srv.ID,
		Label:      srv.Label,
		Name:       info.Name,
		Status:     models.StatusOnline,
		Players:    int(info.Players),
		MaxPlayers: int(info.MaxPlayers),
	}, nil
}
