package gateway

import (
	"fmt"
	"sync"

	"github.com/baulhq/baul/internal/models"
)

// DialFunc builds a provider client for a connection profile.
// Injected so the registry does not depend on the provider subpackages.
type DialFunc func(conn models.Connection) (Gateway, error)

// Registry owns the mapping from connection id to a live gateway client.
// Clients are built lazily on first use and reused afterwards; provider
// SDK clients are safe for concurrent use, so one per connection suffices.
type Registry struct {
	dial DialFunc

	mu       sync.Mutex
	conns    map[string]models.Connection
	gateways map[string]Gateway
}

// NewRegistry creates an empty registry using dial to construct clients.
func NewRegistry(dial DialFunc) *Registry {
	return &Registry{
		dial:     dial,
		conns:    make(map[string]models.Connection),
		gateways: make(map[string]Gateway),
	}
}

// Register adds or replaces a connection profile. Replacing drops any
// cached client so the next Open picks up the new settings.
func (r *Registry) Register(conn models.Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[conn.ID] = conn
	delete(r.gateways, conn.ID)
}

// Unregister removes a connection profile and its cached client.
func (r *Registry) Unregister(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, connectionID)
	delete(r.gateways, connectionID)
}

// Open returns the gateway client for a connection id, building it on
// first use.
func (r *Registry) Open(connectionID string) (Gateway, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if gw, ok := r.gateways[connectionID]; ok {
		return gw, nil
	}

	conn, ok := r.conns[connectionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrConnectionNotFound, connectionID)
	}

	gw, err := r.dial(conn)
	if err != nil {
		return nil, fmt.Errorf("dial connection %s: %w", connectionID, err)
	}
	r.gateways[connectionID] = gw
	return gw, nil
}

// Connection returns the stored profile for a connection id.
func (r *Registry) Connection(connectionID string) (models.Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.conns[connectionID]
	return conn, ok
}

// Connections returns all registered profiles.
func (r *Registry) Connections() []models.Connection {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Connection, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	return out
}
