// Package session wires the playback poller, the reconciliation layer, and
// the Auto-DJ orchestrator into one running listening session.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"moodify/internal/autodj"
	"moodify/internal/config"
	"moodify/internal/graph"
	"moodify/internal/health"
	"moodify/internal/logging"
	"moodify/internal/oplock"
	"moodify/internal/playback"
	"moodify/internal/services/oracle"
	"moodify/internal/services/spotify"
	"moodify/internal/tracker"
)

// Manager owns one listening session's moving parts and their lifecycle.
type Manager struct {
	cfg    *config.Config
	logger *slog.Logger

	sessionID string

	queue   *playback.Reconciler
	poller  *spotify.Poller
	orch    *autodj.Orchestrator
	track   *tracker.Tracker
	surface *health.Surface

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	runCtx  context.Context
}

// NewManager assembles a session over an open graph service and player
// client.
func NewManager(cfg *config.Config, graphSvc *graph.Service, client *spotify.Client, oracleClient *oracle.Client, logger *slog.Logger) *Manager {
	sessionID := uuid.NewString()
	logger = logger.With(logging.String(logging.FieldSessionID, sessionID))

	surface := health.NewSurface()
	trk := tracker.New(time.Duration(cfg.AutoDJ.SkipThresholdSeconds) * time.Second)
	queue := playback.NewReconciler(client, logger)
	orch := autodj.New(cfg.AutoDJ, trk, oplock.New(), queue, graphSvc, oracleClient, client, surface, logger)

	m := &Manager{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "session"),
		sessionID: sessionID,
		queue:     queue,
		orch:      orch,
		track:     trk,
		surface:   surface,
	}

	m.poller = spotify.NewPoller(
		client,
		logger,
		time.Duration(cfg.AutoDJ.ActivePollSeconds)*time.Second,
		time.Duration(cfg.AutoDJ.IdlePollSeconds)*time.Second,
		m.onBoundary,
		m.onState,
	)
	return m
}

// SessionID returns the unique id stamped on this session's log lines.
func (m *Manager) SessionID() string {
	return m.sessionID
}

// Queue exposes the reconciliation layer for caller-initiated actions.
func (m *Manager) Queue() *playback.Reconciler {
	return m.queue
}

// Surface exposes the per-subsystem error surface.
func (m *Manager) Surface() *health.Surface {
	return m.surface
}

// Orchestrator exposes the decision core.
func (m *Manager) Orchestrator() *autodj.Orchestrator {
	return m.orch
}

// SetActive switches the polling cadence for foreground/background use.
func (m *Manager) SetActive(active bool) {
	m.poller.SetActive(active)
}

// Start begins polling and reacting. Idempotent start is an error, to
// match the one-session-per-process model.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("session already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.running = true
	m.cancel = cancel
	m.runCtx = runCtx
	m.mu.Unlock()

	m.poller.StartPolling(runCtx)
	m.logger.Info("session started")
	return nil
}

// Stop halts polling and flushes the in-flight vibe into the graph.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	m.poller.StopPolling()
	cancel()

	flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer flushCancel()
	m.orch.StartSession(flushCtx, "")
	m.logger.Info("session stopped")
}

func (m *Manager) runContext() context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.runCtx != nil {
		return m.runCtx
	}
	return context.Background()
}

func (m *Manager) onState(state playback.RemoteState, fetchStart time.Time) {
	if m.queue.ApplySync(state, fetchStart) {
		m.orch.CheckTriggers(m.runContext())
	}
}

func (m *Manager) onBoundary(kind spotify.BoundaryKind, track playback.Track, listened time.Duration) {
	m.orch.HandleBoundary(m.runContext(), track, listened)
}
