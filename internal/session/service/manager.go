// Package service implements the session lifecycle: a single per-installation session record kept
// alive by activity and expired after a period of inactivity.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	auditdomain "storefront/backend/internal/audit/domain"
	"storefront/backend/internal/kvstore"
	"storefront/backend/internal/session/domain"
	"storefront/backend/internal/telemetry"
	telemetrydomain "storefront/backend/internal/telemetry/domain"
)

const (
	// DefaultTimeout is the inactivity period after which a session expires.
	DefaultTimeout = 30 * time.Minute
	// DefaultCheckInterval is how often the monitor checks the session.
	DefaultCheckInterval = time.Minute
)

// ErrNoSession is returned by operations that need an existing session record.
var ErrNoSession = errors.New("no session")

// AuditLogger records session events. See audit.AuditLogger.
type AuditLogger interface {
	LogEvent(ctx context.Context, userID, action, resource, metadata string)
}

// Config holds the session timings and the device description written to device_info.
type Config struct {
	Timeout       time.Duration
	CheckInterval time.Duration
	Platform      string
	UserAgent     string
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the time source. Tests pass a clockwork.FakeClock.
func WithClock(c clockwork.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithEmitter sets the telemetry emitter for session events.
func WithEmitter(e telemetry.EventEmitter) Option {
	return func(m *Manager) { m.emitter = e }
}

// WithAuditLogger sets the audit logger for expiry events.
func WithAuditLogger(a AuditLogger) Option {
	return func(m *Manager) { m.audit = a }
}

// WithMeter sets the meter used for the expired-session counter.
func WithMeter(meter metric.Meter) Option {
	return func(m *Manager) { m.meter = meter }
}

// Manager owns the session record of this installation.
// All record read-modify-write sequences run under mu; the monitor and listener are guarded by monMu.
// Lock order is mu then monMu.
type Manager struct {
	store   *kvstore.Store
	cfg     Config
	clock   clockwork.Clock
	emitter telemetry.EventEmitter
	audit   AuditLogger
	meter   metric.Meter
	expired metric.Int64Counter

	mu  sync.Mutex
	gen uint64 // bumped by every Init

	monMu    sync.Mutex
	monitor  *monitor
	listener *listener
}

// NewManager returns a Manager persisting to store. Zero Config fields take the defaults.
func NewManager(store *kvstore.Store, cfg Config, opts ...Option) *Manager {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = DefaultCheckInterval
	}
	if cfg.Platform == "" {
		cfg.Platform = "unknown"
	}
	m := &Manager{store: store, cfg: cfg, clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(m)
	}
	if m.meter == nil {
		m.meter = otel.Meter("storefront/session")
	}
	counter, err := m.meter.Int64Counter("storefront.session.expired",
		metric.WithDescription("Sessions expired by inactivity"))
	if err != nil {
		log.Printf("session: expired counter: %v", err)
	}
	m.expired = counter
	return m
}

// Timeout returns the configured inactivity timeout.
func (m *Manager) Timeout() time.Duration { return m.cfg.Timeout }

func (m *Manager) nowMillis() int64 { return m.clock.Now().UnixMilli() }

// load reads the record. A blob that does not decode is logged and treated as no session.
func (m *Manager) load(ctx context.Context) (*domain.Record, error) {
	var rec domain.Record
	ok, err := m.store.GetJSON(ctx, kvstore.KeySessionData, &rec)
	if err != nil {
		if errors.Is(err, kvstore.ErrCorrupt) {
			log.Printf("session: discarding unreadable session record: %v", err)
			return nil, nil
		}
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *Manager) save(ctx context.Context, rec *domain.Record) error {
	return m.store.SetJSON(ctx, kvstore.KeySessionData, rec)
}

// Init starts a session for user on this device: the record is overwritten with
// lastActivity = now and isActive = true, and the monitor is started if it is not already running.
// The returned handle stops the monitor. Init with a nil user records an anonymous session and
// starts no monitor; the handle is then nil.
func (m *Manager) Init(ctx context.Context, user *domain.UserRef) (*MonitorHandle, error) {
	info, err := m.deviceInfo(ctx, user != nil)
	if err != nil {
		return nil, err
	}
	now := m.nowMillis()
	rec := &domain.Record{
		User:         cloneUser(user),
		DeviceID:     info.DeviceID,
		LastActivity: now,
		IsActive:     true,
	}

	var h *MonitorHandle
	m.mu.Lock()
	err = m.save(ctx, rec)
	if err == nil {
		err = m.store.SetNumber(ctx, kvstore.KeyLastActivity, float64(now))
	}
	if err == nil {
		m.gen++
		if user != nil {
			h = m.startMonitor()
		}
	}
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	m.emit(telemetrydomain.EventSessionStarted, rec, nil)
	return h, nil
}

// Touch records activity: the session's lastActivity is bumped when a record exists, and the raw
// last_activity timestamp is always written. Touch never creates a session.
func (m *Manager) Touch(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.nowMillis()
	rec, err := m.load(ctx)
	if err != nil {
		return err
	}
	if rec != nil {
		rec.LastActivity = now
		if err := m.save(ctx, rec); err != nil {
			return err
		}
	}
	return m.store.SetNumber(ctx, kvstore.KeyLastActivity, float64(now))
}

// IsSessionValid reports whether a user session exists and has been active within the timeout.
// A session idle for longer than the timeout is cleared by this call and the expiry signal fires.
// Storage read failures return (false, err).
func (m *Manager) IsSessionValid(ctx context.Context) (bool, error) {
	m.mu.Lock()
	rec, err := m.load(ctx)
	if err != nil || rec == nil || rec.User == nil {
		m.mu.Unlock()
		return false, err
	}
	idle := m.nowMillis() - rec.LastActivity
	if idle <= m.cfg.Timeout.Milliseconds() {
		m.mu.Unlock()
		return rec.IsActive, nil
	}

	userID := rec.User.ID
	gen := m.gen
	err = m.clearLocked(ctx, rec)
	m.stopMonitor()
	m.mu.Unlock()
	if err != nil {
		return false, err
	}
	m.expire(ctx, rec, userID, idle, gen)
	return false, nil
}

// Clear ends the session: isActive is set to false and the user removed. The record itself is kept.
// The monitor is stopped. Clearing when no session exists only stops the monitor.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	rec, err := m.load(ctx)
	if err == nil && rec != nil {
		err = m.clearLocked(ctx, rec)
	}
	m.stopMonitor()
	m.mu.Unlock()
	if err != nil {
		return err
	}
	if rec != nil {
		m.emit(telemetrydomain.EventSessionCleared, rec, nil)
	}
	return nil
}

func (m *Manager) clearLocked(ctx context.Context, rec *domain.Record) error {
	rec.IsActive = false
	rec.User = nil
	return m.save(ctx, rec)
}

// Refresh replaces the session's user and bumps lastActivity so a refreshed session is not
// immediately expired. Returns ErrNoSession when no record exists.
func (m *Manager) Refresh(ctx context.Context, user *domain.UserRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.load(ctx)
	if err != nil {
		return err
	}
	if rec == nil {
		return ErrNoSession
	}
	now := m.nowMillis()
	rec.User = cloneUser(user)
	rec.LastActivity = now
	if err := m.save(ctx, rec); err != nil {
		return err
	}
	return m.store.SetNumber(ctx, kvstore.KeyLastActivity, float64(now))
}

// Get returns the stored record, or nil when there is none.
func (m *Manager) Get(ctx context.Context) (*domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(ctx)
}

// CurrentUser returns the session's user, or nil.
func (m *Manager) CurrentUser(ctx context.Context) (*domain.UserRef, error) {
	rec, err := m.Get(ctx)
	if err != nil || rec == nil {
		return nil, err
	}
	return rec.User, nil
}

// IsAuthenticated reports whether a user is logged in with a valid session.
func (m *Manager) IsAuthenticated(ctx context.Context) (bool, error) {
	return m.IsSessionValid(ctx)
}

// TimeUntilExpiry returns how long the session has left before it times out, never negative.
// Zero when there is no session.
func (m *Manager) TimeUntilExpiry(ctx context.Context) (time.Duration, error) {
	rec, err := m.Get(ctx)
	if err != nil || rec == nil {
		return 0, err
	}
	idle := time.Duration(m.nowMillis()-rec.LastActivity) * time.Millisecond
	if left := m.cfg.Timeout - idle; left > 0 {
		return left, nil
	}
	return 0, nil
}

// expire reports an expiry detected while the session generation was gen. The receiver is not
// signalled when a newer session has been started since.
func (m *Manager) expire(ctx context.Context, rec *domain.Record, userID string, idle int64, gen uint64) {
	log.Printf("session: expired after %s of inactivity (device %s)", time.Duration(idle)*time.Millisecond, rec.DeviceID)
	if m.expired != nil {
		m.expired.Add(context.WithoutCancel(ctx), 1)
	}
	meta, _ := json.Marshal(map[string]int64{"idle_ms": idle})
	if m.audit != nil {
		m.audit.LogEvent(context.WithoutCancel(ctx), userID, auditdomain.ActionSessionExpired, "session", string(meta))
	}
	expired := *rec
	expired.User = &domain.UserRef{ID: userID}
	m.emit(telemetrydomain.EventSessionExpired, &expired, meta)

	m.mu.Lock()
	stale := m.gen != gen
	m.mu.Unlock()
	if stale {
		return
	}
	m.notifyExpired()
}

func (m *Manager) emit(eventType string, rec *domain.Record, meta []byte) {
	if m.emitter == nil {
		return
	}
	ev := &telemetrydomain.Event{
		EventType: eventType,
		Source:    "session",
		DeviceID:  rec.DeviceID,
		Metadata:  meta,
		CreatedAt: m.clock.Now().UTC(),
	}
	if rec.User != nil {
		ev.UserID = rec.User.ID
	}
	telemetry.EmitAsync(m.emitter, ev)
}

func cloneUser(u *domain.UserRef) *domain.UserRef {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
