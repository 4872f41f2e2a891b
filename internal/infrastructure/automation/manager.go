package automation

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session manager errors
var (
	ErrSessionNotFound = errors.New("automation: session not found")
	ErrSessionFinished = errors.New("automation: session already finished")
	ErrInvalidStatus   = errors.New("automation: invalid status")
)

const (
	defaultSessionTimeout = 5 * time.Minute
	// finished sessions stay readable this long before they are evicted
	defaultSessionRetention = time.Hour
)

// Driver performs the browser run for one order
type Driver interface {
	Run(ctx context.Context, oc OrderContext) (map[string]any, error)
}

// SessionManager tracks sessions in memory. With a nil driver sessions stay
// waiting until an external worker reports through HandleCallback.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	cancels  map[string]context.CancelFunc
	driver   Driver
	timeout  time.Duration
	keep     time.Duration
	logger   *zap.Logger
	now      func() time.Time
	wg       sync.WaitGroup
}

// NewSessionManager creates a manager
func NewSessionManager(driver Driver, timeout time.Duration, logger *zap.Logger) *SessionManager {
	if timeout <= 0 {
		timeout = defaultSessionTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionManager{
		sessions: make(map[string]*Session),
		cancels:  make(map[string]context.CancelFunc),
		driver:   driver,
		timeout:  timeout,
		keep:     defaultSessionRetention,
		logger:   logger.Named("automation"),
		now:      time.Now,
	}
}

// NewSessionID returns auto_ followed by 8 hex characters
func NewSessionID() string {
	return "auto_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Start registers a waiting session and, with a driver, runs it in the background
func (m *SessionManager) Start(ctx context.Context, oc OrderContext) (Session, error) {
	now := m.now()
	s := &Session{
		ID:        NewSessionID(),
		OrderID:   oc.OrderID,
		Status:    StatusWaiting,
		Context:   oc,
		CreatedAt: now,
		UpdatedAt: now,
	}

	m.mu.Lock()
	m.pruneLocked(now)
	m.sessions[s.ID] = s
	snapshot := *s
	if m.driver != nil {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
		m.cancels[s.ID] = cancel
		m.wg.Add(1)
		go m.run(runCtx, cancel, s.ID, oc)
	}
	m.mu.Unlock()

	m.logger.Info("Automation session created",
		zap.String("session_id", s.ID),
		zap.String("order_number", oc.OrderNumber),
		zap.Strings("card_ids", oc.CardIDs()))
	return snapshot, nil
}

func (m *SessionManager) run(ctx context.Context, cancel context.CancelFunc, id string, oc OrderContext) {
	defer m.wg.Done()
	defer cancel()

	if !m.transition(id, StatusRunning, nil, "") {
		return
	}

	result, err := m.driver.Run(ctx, oc)
	switch {
	case err == nil:
		m.transition(id, StatusCompleted, result, "")
	case errors.Is(ctx.Err(), context.Canceled):
		m.transition(id, StatusCancelled, result, "cancelled")
	default:
		m.logger.Warn("Automation run failed", zap.String("session_id", id), zap.Error(err))
		m.transition(id, StatusFailed, result, err.Error())
	}

	m.mu.Lock()
	delete(m.cancels, id)
	m.mu.Unlock()
}

// transition moves a non-terminal session to status. It reports false when the
// session is gone or already finished.
func (m *SessionManager) transition(id string, status Status, result map[string]any, errMsg string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok || s.Status.IsTerminal() {
		return false
	}
	s.Status = status
	if result != nil {
		s.Result = result
	}
	if errMsg != "" {
		s.Error = errMsg
	}
	s.UpdatedAt = m.now()
	return true
}

// pruneLocked evicts sessions that finished more than keep ago. Callers hold mu.
func (m *SessionManager) pruneLocked(now time.Time) {
	cutoff := now.Add(-m.keep)
	for id, s := range m.sessions {
		if s.Status.IsTerminal() && s.UpdatedAt.Before(cutoff) {
			delete(m.sessions, id)
		}
	}
}

// Get returns a session snapshot
func (m *SessionManager) Get(id string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return *s, nil
}

// List returns all sessions, newest first
func (m *SessionManager) List() []Session {
	m.mu.Lock()
	m.pruneLocked(m.now())
	out := make([]Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, *s)
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Cancel stops a session that has not finished
func (m *SessionManager) Cancel(id string) (Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return Session{}, ErrSessionNotFound
	}
	if s.Status.IsTerminal() {
		snap := *s
		m.mu.Unlock()
		return snap, ErrSessionFinished
	}
	s.Status = StatusCancelled
	s.UpdatedAt = m.now()
	cancel := m.cancels[id]
	delete(m.cancels, id)
	snap := *s
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.logger.Info("Automation session cancelled", zap.String("session_id", id))
	return snap, nil
}

// HandleCallback records a status report from an external worker
func (m *SessionManager) HandleCallback(id string, status Status, result map[string]any, errMsg string) (Session, error) {
	if !status.IsValid() || status == StatusWaiting {
		return Session{}, ErrInvalidStatus
	}

	m.mu.RLock()
	s, ok := m.sessions[id]
	var finished bool
	if ok {
		finished = s.Status.IsTerminal()
	}
	m.mu.RUnlock()
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	if finished {
		snap, _ := m.Get(id)
		return snap, ErrSessionFinished
	}

	m.transition(id, status, result, errMsg)
	m.logger.Info("Automation callback",
		zap.String("session_id", id),
		zap.String("status", string(status)),
		zap.String("error", errMsg))
	return m.Get(id)
}

// Close cancels running sessions and waits for them to stop
func (m *SessionManager) Close() {
	m.mu.Lock()
	for _, cancel := range m.cancels {
		cancel()
	}
	m.mu.Unlock()
	m.wg.Wait()
}
