// Package cli implements the baul command tree: connection management,
// listing, transfers, and object operations against S3-compatible stores.
package cli

import (
	"context"
	"fmt"

	"github.com/baulhq/baul/internal/config"
	"github.com/baulhq/baul/internal/events"
	"github.com/baulhq/baul/internal/gateway"
	"github.com/baulhq/baul/internal/gateway/minio"
	"github.com/baulhq/baul/internal/gateway/s3"
	"github.com/baulhq/baul/internal/listing"
	"github.com/baulhq/baul/internal/models"
	"github.com/baulhq/baul/internal/transfer"
)

// app wires the engine together for one CLI invocation: connection store,
// gateway registry, event bus, transfer queue and executor, listing cache,
// and the invalidation bridge between them.
type app struct {
	store    *config.Store
	registry *gateway.Registry
	bus      *events.Bus
	queue    *transfer.Queue
	executor *transfer.Executor
	cache    *listing.Cache
	bridge   *listing.Bridge

	cancelBridge context.CancelFunc
}

func newApp() (*app, error) {
	path, err := config.DefaultPath()
	if err != nil {
		return nil, err
	}
	store, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	registry := gateway.NewRegistry(dial)
	for _, conn := range store.Connections() {
		registry.Register(conn)
	}

	bus := events.NewBus(0)
	queue := transfer.NewQueue(bus)
	cache := listing.NewCache(registry, bus, 0)
	bridge := listing.NewBridge(cache, bus)
	executor := transfer.NewExecutor(queue, registry, bridge, transfer.ExecutorConfig{})

	bridgeCtx, cancel := context.WithCancel(context.Background())
	go bridge.Run(bridgeCtx)

	return &app{
		store:        store,
		registry:     registry,
		bus:          bus,
		queue:        queue,
		executor:     executor,
		cache:        cache,
		bridge:       bridge,
		cancelBridge: cancel,
	}, nil
}

func (a *app) close() {
	a.cancelBridge()
	a.bus.Close()
}

// dial selects the provider client for a connection profile. MinIO profiles
// use the MinIO SDK; everything else speaks S3 via the AWS SDK.
func dial(conn models.Connection) (gateway.Gateway, error) {
	switch conn.Provider {
	case models.ProviderMinio:
		client, err := minio.New(conn)
		if err != nil {
			return nil, err
		}
		return client, nil
	case models.ProviderAWS, models.ProviderCloudflareR2, models.ProviderOther, "":
		client, err := s3.New(context.Background(), conn)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown provider %q for connection %s", conn.Provider, conn.ID)
	}
}
