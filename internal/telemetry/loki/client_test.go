package loki

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/backend/internal/telemetry/domain"
)

func TestClient_Write(t *testing.T) {
	var got PushRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/loki/api/v1/push" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	at := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	err := NewClient(srv.URL+"/", nil).Write(context.Background(), &domain.Event{
		EventType: domain.EventSessionExpired, Source: "session monitor", CreatedAt: at,
	})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(got.Streams) != 1 {
		t.Fatalf("streams = %d", len(got.Streams))
	}
	s := got.Streams[0]
	if s.Stream["job"] != "storefront" || s.Stream["event_type"] != "session_expired" || s.Stream["source"] != "session_monitor" {
		t.Errorf("labels = %v", s.Stream)
	}
	if s.Values[0][0] != "1769947200000000000" {
		t.Errorf("timestamp = %q", s.Values[0][0])
	}
}

func TestClient_WriteNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()
	if err := NewClient(srv.URL, nil).Write(context.Background(), &domain.Event{EventType: "login"}); err == nil {
		t.Error("expected error for 400")
	}
	if err := NewClient("", nil).Write(context.Background(), &domain.Event{}); err == nil {
		t.Error("expected error for empty base URL")
	}
}
