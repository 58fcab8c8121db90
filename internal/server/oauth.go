package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/removarr/internal/services"
	"github.com/desertthunder/removarr/internal/shared"
)

// FlowTTL is how long a login flow may stay pending before it is discarded.
const FlowTTL = 180 * time.Second

// FlowStatus is the state reported to a poller.
type FlowStatus string

const (
	FlowPending FlowStatus = "pending"
	FlowOK      FlowStatus = "ok"
	FlowExpired FlowStatus = "expired"
	FlowError   FlowStatus = "error"
)

// flow is one pending pin handshake.
type flow struct {
	pin       *services.Pin
	createdAt time.Time
}

// PollResult is returned by [FlowManager.Poll]. Token is only set with [FlowOK],
// and only for the single caller that resolved the flow.
type PollResult struct {
	Status FlowStatus
	Token  string
	Err    error
}

// FlowManager tracks in-progress Plex login flows keyed by caller-supplied ids.
//
// The registry lock is never held across a network call. Resolution is a take:
// whoever removes an authorized flow gets the token, any concurrent poller sees it expired.
type FlowManager struct {
	pins   services.PinService
	ttl    time.Duration
	now    func() time.Time
	logger *log.Logger

	mu    sync.Mutex
	flows map[string]*flow
}

// NewFlowManager creates a [FlowManager] with the default TTL.
func NewFlowManager(pins services.PinService, logger *log.Logger) *FlowManager {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &FlowManager{
		pins:   pins,
		ttl:    FlowTTL,
		now:    time.Now,
		logger: shared.WithLogger(logger, "component", "flows"),
		flows:  make(map[string]*flow),
	}
}

// Start begins a pin handshake for flowID and returns the URL the user must visit.
func (m *FlowManager) Start(ctx context.Context, flowID string) (string, error) {
	if flowID == "" {
		return "", fmt.Errorf("%w: flow id", shared.ErrMissingArgument)
	}

	pin, err := m.pins.RequestPin(ctx)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	m.flows[flowID] = &flow{pin: pin, createdAt: m.now()}
	m.mu.Unlock()

	m.logger.Debug("login flow started", "flow", flowID, "pin", pin.ID)
	return m.pins.AuthURL(pin), nil
}

// Poll checks flowID once.
func (m *FlowManager) Poll(ctx context.Context, flowID string) PollResult {
	m.mu.Lock()
	f, ok := m.flows[flowID]
	if !ok {
		m.mu.Unlock()
		return PollResult{Status: FlowExpired, Err: shared.ErrFlowUnknown}
	}
	if m.now().Sub(f.createdAt) > m.ttl {
		delete(m.flows, flowID)
		m.mu.Unlock()
		return PollResult{Status: FlowExpired, Err: shared.ErrFlowExpired}
	}
	m.mu.Unlock()

	status, err := m.pins.CheckPin(ctx, f.pin.ID)
	if err != nil {
		m.logger.Warn("login flow check failed", "flow", flowID, "err", err)
		return PollResult{Status: FlowError, Err: err}
	}

	switch {
	case status.Authorized && status.Token != "":
		if !m.take(flowID, f) {
			return PollResult{Status: FlowExpired, Err: shared.ErrFlowExpired}
		}
		m.logger.Info("login flow authorized", "flow", flowID)
		return PollResult{Status: FlowOK, Token: status.Token}
	case status.Expired || status.Authorized:
		m.take(flowID, f)
		return PollResult{Status: FlowExpired, Err: shared.ErrFlowExpired}
	default:
		return PollResult{Status: FlowPending}
	}
}

// take removes flowID if it still refers to f.
func (m *FlowManager) take(flowID string, f *flow) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.flows[flowID] != f {
		return false
	}
	delete(m.flows, flowID)
	return true
}

// Prune drops flows older than the TTL and returns how many were removed.
func (m *FlowManager) Prune() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	n := 0
	for id, f := range m.flows {
		if now.Sub(f.createdAt) > m.ttl {
			delete(m.flows, id)
			n++
		}
	}
	return n
}

// Len returns the number of registered flows.
func (m *FlowManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.flows)
}

// RunPruner prunes expired flows every interval until ctx is done.
func (m *FlowManager) RunPruner(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Prune(); n > 0 {
				m.logger.Debug("pruned expired login flows", "count", n)
			}
		}
	}
}
