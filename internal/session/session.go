// Package session keeps the live table instances of the service. Each session
// binds one engine instance to a table definition and the subject that opened
// it, and expires after an idle or absolute timeout.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pitabwire/tabula/internal/definition"
	"github.com/pitabwire/tabula/internal/observability"
	"github.com/pitabwire/tabula/internal/store"
	"github.com/pitabwire/tabula/internal/table"
	"github.com/pitabwire/tabula/model"
)

// Session is one table instance.
type Session struct {
	ID        string
	SubjectID string
	Def       model.TableDefinition
	Table     *table.Table
	CreatedAt time.Time

	mu       sync.Mutex
	lastUsed time.Time
}

// LastUsed returns the time the session was last looked up.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastUsed = now
	s.mu.Unlock()
}

// Refresh reloads the source rows from rows. Selected ids whose rows are gone
// drop out of the selection on the next derivation.
func (s *Session) Refresh(ctx context.Context, rows store.RowStore) error {
	list, err := rows.List(ctx, s.Def.Source)
	if err != nil {
		return err
	}
	return s.Table.SetRows(list)
}

// Options configures a Manager.
type Options struct {
	Policy          model.ColumnPolicy
	IdleTimeout     time.Duration
	AbsoluteTimeout time.Duration
	MaxSessions     int
}

// Manager owns the live sessions.
type Manager struct {
	rows    store.RowStore
	opts    Options
	logger  *zap.Logger
	metrics *observability.Metrics
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// ManagerOption configures optional dependencies.
type ManagerOption func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(logger *zap.Logger) ManagerOption {
	return func(m *Manager) { m.logger = logger }
}

// WithMetrics enables the session gauges.
func WithMetrics(metrics *observability.Metrics) ManagerOption {
	return func(m *Manager) { m.metrics = metrics }
}

// NewManager creates a Manager whose sessions read rows from rows.
func NewManager(rows store.RowStore, opts Options, options ...ManagerOption) *Manager {
	m := &Manager{
		rows:     rows,
		opts:     opts,
		logger:   zap.NewNop(),
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
	for _, o := range options {
		o(m)
	}
	return m
}

// Create opens a session on def for subjectID and loads its rows. The
// definition's default sort is applied and row deletes are written through
// to the row store.
func (m *Manager) Create(ctx context.Context, def model.TableDefinition, subjectID string) (*Session, error) {
	m.mu.Lock()
	full := m.fullLocked()
	m.mu.Unlock()
	if full {
		return nil, m.limitError()
	}

	tbl, err := table.New(definition.BuildColumns(def), def.Options(m.opts.Policy),
		table.WithLogger(m.logger.With(zap.String("table_id", def.ID))),
		table.WithRowHandler(model.RowEventDelete, m.deleteRow(def.Source)),
	)
	if err != nil {
		return nil, err
	}
	if def.DefaultSort != "" {
		spec := model.SortSpec{Key: def.DefaultSort, Direction: model.SortDirection(def.SortDir)}
		if err := tbl.SetSort(spec); err != nil {
			return nil, err
		}
	}

	now := m.now()
	s := &Session{
		ID:        uuid.NewString(),
		SubjectID: subjectID,
		Def:       def,
		Table:     tbl,
		CreatedAt: now,
		lastUsed:  now,
	}
	if err := s.Refresh(ctx, m.rows); err != nil {
		return nil, err
	}

	// Another Create may have taken the last slot while rows were loading.
	m.mu.Lock()
	if m.fullLocked() {
		m.mu.Unlock()
		return nil, m.limitError()
	}
	m.sessions[s.ID] = s
	count := len(m.sessions)
	m.mu.Unlock()
	m.setActive(count)

	observability.RequestLogger(ctx, m.logger).Info("table session created",
		zap.String("session_id", s.ID),
		zap.String("table_id", def.ID),
	)
	return s, nil
}

func (m *Manager) fullLocked() bool {
	return m.opts.MaxSessions > 0 && len(m.sessions) >= m.opts.MaxSessions
}

func (m *Manager) limitError() error {
	return model.NewRateLimitedError(fmt.Sprintf("session limit of %d reached", m.opts.MaxSessions))
}

func (m *Manager) deleteRow(collection string) table.RowHandler {
	return func(ctx context.Context, row model.Row) error {
		_, err := m.rows.Delete(ctx, collection, []string{row.ID})
		return err
	}
}

// Get returns the live session id owned by subjectID and marks it used.
// Expired sessions and sessions of other subjects are reported as NOT_FOUND.
func (m *Manager) Get(id, subjectID string) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok || s.SubjectID != subjectID {
		return nil, model.NewNotFoundError(fmt.Sprintf("session %q not found", id))
	}

	now := m.now()
	if m.expired(s, now) {
		m.remove(id)
		return nil, model.NewNotFoundError(fmt.Sprintf("session %q not found", id))
	}
	s.touch(now)
	return s, nil
}

// Delete discards the session id owned by subjectID.
func (m *Manager) Delete(id, subjectID string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok || s.SubjectID != subjectID {
		m.mu.Unlock()
		return model.NewNotFoundError(fmt.Sprintf("session %q not found", id))
	}
	delete(m.sessions, id)
	count := len(m.sessions)
	m.mu.Unlock()

	m.setActive(count)
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep removes every session past its idle or absolute timeout and returns
// how many were removed.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	var removed int
	for id, s := range m.sessions {
		if m.expired(s, now) {
			delete(m.sessions, id)
			removed++
		}
	}
	count := len(m.sessions)
	m.mu.Unlock()

	if removed > 0 {
		m.logger.Info("expired table sessions removed", zap.Int("count", removed))
		if m.metrics != nil {
			m.metrics.RecordSessionsExpired(removed)
		}
	}
	m.setActive(count)
	return removed
}

// Run sweeps expired sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(m.now())
		}
	}
}

func (m *Manager) expired(s *Session, now time.Time) bool {
	if m.opts.AbsoluteTimeout > 0 && now.Sub(s.CreatedAt) > m.opts.AbsoluteTimeout {
		return true
	}
	return m.opts.IdleTimeout > 0 && now.Sub(s.LastUsed()) > m.opts.IdleTimeout
}

func (m *Manager) remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	count := len(m.sessions)
	m.mu.Unlock()
	m.setActive(count)
}

func (m *Manager) setActive(count int) {
	if m.metrics != nil {
		m.metrics.SetSessionsActive(count)
	}
}

// View derives the current view of s and records it.
func (m *Manager) View(s *Session) model.TableView {
	view := s.Table.Snapshot()
	if m.metrics != nil {
		m.metrics.RecordDerivation(s.Def.ID, view.FilteredCount)
	}
	return view
}
