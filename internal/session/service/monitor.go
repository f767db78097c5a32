package service

import (
	"context"
	"log"
	"sync"
)

// MonitorHandle controls the background session monitor started by Init.
type MonitorHandle struct {
	m   *Manager
	mon *monitor
}

// Stop stops the monitor. The session itself is left as is. Safe to call more than once and on nil.
func (h *MonitorHandle) Stop() {
	if h == nil {
		return
	}
	h.m.monMu.Lock()
	if h.m.monitor == h.mon {
		h.m.monitor = nil
	}
	h.m.monMu.Unlock()
	h.mon.cancel()
}

// Done is closed when the monitor goroutine has exited.
func (h *MonitorHandle) Done() <-chan struct{} {
	if h == nil {
		c := make(chan struct{})
		close(c)
		return c
	}
	return h.mon.done
}

type monitor struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// MonitorRunning reports whether a monitor is active.
func (m *Manager) MonitorRunning() bool {
	m.monMu.Lock()
	defer m.monMu.Unlock()
	return m.monitor != nil
}

// startMonitor starts the periodic check unless one is already running.
// The ticker is created before the goroutine starts so a fake clock sees it immediately.
func (m *Manager) startMonitor() *MonitorHandle {
	m.monMu.Lock()
	defer m.monMu.Unlock()
	if m.monitor != nil {
		return &MonitorHandle{m: m, mon: m.monitor}
	}
	ctx, cancel := context.WithCancel(context.Background())
	mon := &monitor{cancel: cancel, done: make(chan struct{})}
	m.monitor = mon

	ticker := m.clock.NewTicker(m.cfg.CheckInterval)
	go func() {
		defer close(mon.done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				if ctx.Err() != nil {
					return
				}
				if _, err := m.IsSessionValid(ctx); err != nil {
					log.Printf("session: monitor check failed: %v", err)
				}
			}
		}
	}()
	return &MonitorHandle{m: m, mon: mon}
}

// stopMonitor cancels the running monitor without waiting for it, so it is safe to call from
// the monitor goroutine itself.
func (m *Manager) stopMonitor() {
	m.monMu.Lock()
	mon := m.monitor
	m.monitor = nil
	m.monMu.Unlock()
	if mon != nil {
		mon.cancel()
	}
}

type listener struct {
	fn func()
}

// OnExpired registers fn as the single receiver of the session-expired signal, replacing any
// previous one. fn runs on the goroutine that detected the expiry. The returned function
// unregisters fn; it has no effect once another receiver has replaced it.
// With no receiver registered the signal is dropped.
func (m *Manager) OnExpired(fn func()) (cancel func()) {
	l := &listener{fn: fn}
	m.monMu.Lock()
	m.listener = l
	m.monMu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			m.monMu.Lock()
			if m.listener == l {
				m.listener = nil
			}
			m.monMu.Unlock()
		})
	}
}

func (m *Manager) notifyExpired() {
	m.monMu.Lock()
	l := m.listener
	m.monMu.Unlock()
	if l != nil && l.fn != nil {
		l.fn()
	}
}
