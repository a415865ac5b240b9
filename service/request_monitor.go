package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cipherpool/cipherpool/distributor"
	"github.com/cipherpool/cipherpool/log"
	"github.com/cipherpool/cipherpool/types"
)

// RequestMonitor represents a service that watches for decryption requests
// that never received their callback. Expired requests are surfaced as
// warnings so the pool owner can run the remediation path.
type RequestMonitor struct {
	protocol *distributor.Protocol
	interval time.Duration
	mu       sync.Mutex
	cancel   context.CancelFunc

	reported map[types.RequestID]bool
}

// NewRequestMonitor creates a new RequestMonitor service.
func NewRequestMonitor(protocol *distributor.Protocol, interval time.Duration) *RequestMonitor {
	return &RequestMonitor{
		protocol: protocol,
		interval: interval,
		reported: make(map[types.RequestID]bool),
	}
}

// Start begins watching for expired requests. It returns an error if the
// service is already running.
func (rm *RequestMonitor) Start(ctx context.Context) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.cancel != nil {
		return fmt.Errorf("service already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	rm.cancel = cancel

	go rm.monitorRequests(ctx)
	return nil
}

// Stop halts the monitoring service.
func (rm *RequestMonitor) Stop() {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.cancel != nil {
		rm.cancel()
		rm.cancel = nil
	}
}

func (rm *RequestMonitor) monitorRequests(ctx context.Context) {
	ticker := time.NewTicker(rm.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rm.scan()
		}
	}
}

// scan reports every newly expired request once.
func (rm *RequestMonitor) scan() {
	expired, err := rm.protocol.ExpiredRequests()
	if err != nil {
		log.Warnw("failed to list expired requests", "error", err.Error())
		return
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	alive := make(map[types.RequestID]bool, len(expired))
	for _, req := range expired {
		alive[req.ID] = true
		if rm.reported[req.ID] {
			continue
		}
		rm.reported[req.ID] = true
		log.Warnw("decryption request expired without callback",
			"requestId", req.ID.String(),
			"purpose", req.Purpose.String(),
			"originator", req.Originator.Hex(),
			"age", time.Since(time.Unix(req.CreatedAt, 0)).String())
	}
	// Forget requests that were eventually settled or reopened.
	for id := range rm.reported {
		if !alive[id] {
			delete(rm.reported, id)
		}
	}
}
