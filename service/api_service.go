package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/cipherpool/cipherpool/api"
	"github.com/cipherpool/cipherpool/distributor"
	"github.com/cipherpool/cipherpool/engine"
)

// APIService represents a service that manages the HTTP API server.
type APIService struct {
	protocol *distributor.Protocol
	engine   engine.Engine
	api      *api.API
	mu       sync.Mutex
	cancel   context.CancelFunc
	host     string
	port     int
}

// NewAPI creates a new APIService instance over an already wired protocol
// and engine.
func NewAPI(protocol *distributor.Protocol, eng engine.Engine, host string, port int) *APIService {
	return &APIService{
		protocol: protocol,
		engine:   eng,
		host:     host,
		port:     port,
	}
}

// Start begins the API server. It returns an error if the service
// is already running or if it fails to start.
func (as *APIService) Start(ctx context.Context) error {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.cancel != nil {
		return fmt.Errorf("service already running")
	}

	_, as.cancel = context.WithCancel(ctx)

	var err error
	as.api, err = api.New(&api.APIConfig{
		Host:     as.host,
		Port:     as.port,
		Protocol: as.protocol,
		Engine:   as.engine,
	})
	if err != nil {
		as.cancel = nil
		return fmt.Errorf("failed to start API server: %w", err)
	}

	return nil
}

// Stop halts the API server.
func (as *APIService) Stop() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.cancel != nil {
		as.cancel()
		as.cancel = nil
	}
}

// HostPort returns the host and port of the API server.
func (as *APIService) HostPort() (string, int) {
	return as.host, as.port
}
