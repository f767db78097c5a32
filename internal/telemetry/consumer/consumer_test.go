package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"

	"storefront/backend/internal/telemetry/domain"
)

// fakeReader serves queued messages, then cancels the run.
type fakeReader struct {
	msgs   []kafka.Message
	errs   []error
	cancel context.CancelFunc
	closed bool
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		return kafka.Message{}, err
	}
	if len(r.msgs) == 0 {
		r.cancel()
		return kafka.Message{}, ctx.Err()
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (s *recordingSink) Write(ctx context.Context, e *domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e.EventType)
	return s.err
}

func message(t *testing.T, e domain.Event) kafka.Message {
	t.Helper()
	b, err := json.Marshal(e)
	if err != nil {
		t.Fatal(err)
	}
	return kafka.Message{Value: b}
}

func TestConsumer_RunDispatchesToEverySink(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reader := &fakeReader{
		msgs: []kafka.Message{
			message(t, domain.Event{EventType: domain.EventLogin}),
			{Value: []byte("garbage")},
			message(t, domain.Event{EventType: domain.EventSessionExpired}),
		},
		errs:   []error{errors.New("broker hiccup")},
		cancel: cancel,
	}
	failing := &recordingSink{err: errors.New("down")}
	ok := &recordingSink{}
	c := newConsumer(reader, failing, ok)

	if err := c.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{domain.EventLogin, domain.EventSessionExpired}
	for _, s := range []*recordingSink{failing, ok} {
		if len(s.events) != 2 || s.events[0] != want[0] || s.events[1] != want[1] {
			t.Errorf("sink events = %v, want %v", s.events, want)
		}
	}
	_ = c.Close()
	if !reader.closed {
		t.Error("reader not closed")
	}
}
