package audit

import (
	"context"
	"errors"
	"testing"

	"storefront/backend/internal/audit/domain"
)

// mockAuditRepo implements the audit repository interface for tests.
type mockAuditRepo struct {
	entries   []*domain.AuditLog
	createErr error
}

func (m *mockAuditRepo) GetByID(ctx context.Context, id string) (*domain.AuditLog, error) {
	return nil, nil
}

func (m *mockAuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAuditRepo) ListByUser(ctx context.Context, userID string, limit, offset int32) ([]*domain.AuditLog, error) {
	return nil, nil
}

func TestLogger_LogEvent_Success(t *testing.T) {
	repo := &mockAuditRepo{}
	logger := NewLogger(repo, func(context.Context) string { return "192.168.1.1" })

	logger.LogEvent(context.Background(), "user-1", domain.ActionLogin, "session", `{"device_id":"d1"}`)

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	entry := repo.entries[0]
	if entry.UserID != "user-1" {
		t.Errorf("user_id = %q, want %q", entry.UserID, "user-1")
	}
	if entry.Action != domain.ActionLogin {
		t.Errorf("action = %q, want %q", entry.Action, domain.ActionLogin)
	}
	if entry.Resource != "session" {
		t.Errorf("resource = %q, want %q", entry.Resource, "session")
	}
	if entry.IP != "192.168.1.1" {
		t.Errorf("ip = %q, want %q", entry.IP, "192.168.1.1")
	}
	if entry.ID == "" {
		t.Error("entry ID should be set")
	}
	if entry.CreatedAt.IsZero() {
		t.Error("entry CreatedAt should be set")
	}
}

func TestLogger_LogEvent_DefaultIPFromContext(t *testing.T) {
	repo := &mockAuditRepo{}
	logger := NewLogger(repo, nil)

	logger.LogEvent(context.Background(), "", domain.ActionLoginFailure, "auth", "")
	logger.LogEvent(WithClientIP(context.Background(), "10.0.0.7"), "u1", domain.ActionLogout, "session", "")

	if got := repo.entries[0].IP; got != "unknown" {
		t.Errorf("ip = %q, want %q", got, "unknown")
	}
	if got := repo.entries[1].IP; got != "10.0.0.7" {
		t.Errorf("ip = %q, want %q", got, "10.0.0.7")
	}
}

func TestLogger_LogEvent_RepoErrorIsSwallowed(t *testing.T) {
	repo := &mockAuditRepo{createErr: errors.New("db down")}
	logger := NewLogger(repo, nil)

	// Should not panic
	logger.LogEvent(context.Background(), "u1", domain.ActionLogin, "session", "")
}

func TestLogger_NilSafe(t *testing.T) {
	var logger *Logger
	logger.LogEvent(context.Background(), "u1", domain.ActionLogin, "session", "")
	NewLogger(nil, nil).LogEvent(context.Background(), "u1", domain.ActionLogin, "session", "")
}
