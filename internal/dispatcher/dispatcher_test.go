package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Harvey-Wallace/BandSync-sub000/internal/domain"
	"github.com/Harvey-Wallace/BandSync-sub000/internal/transport"
)

type fakeTransport struct {
	mu      sync.Mutex
	calls   []string
	sendFn  func(ctx context.Context, recipient domain.Recipient, msg transport.Message) error
	nameVal string
}

func (f *fakeTransport) Send(ctx context.Context, recipient domain.Recipient, msg transport.Message) error {
	f.mu.Lock()
	f.calls = append(f.calls, recipient.ID)
	f.mu.Unlock()

	if f.sendFn != nil {
		return f.sendFn(ctx, recipient, msg)
	}
	return nil
}

func (f *fakeTransport) Name() string {
	if f.nameVal != "" {
		return f.nameVal
	}
	return "fake"
}

func (f *fakeTransport) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeLimiter struct {
	waitFn func(ctx context.Context, scope string) error
}

func (f *fakeLimiter) Allow(ctx context.Context, scope string) (bool, error) { return true, nil }

func (f *fakeLimiter) Wait(ctx context.Context, scope string) error {
	if f.waitFn != nil {
		return f.waitFn(ctx, scope)
	}
	return nil
}

func recipients(n int) []domain.Recipient {
	out := make([]domain.Recipient, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, domain.Recipient{
			ID:      fmt.Sprintf("m%d", i),
			Name:    fmt.Sprintf("Member %d", i),
			Address: fmt.Sprintf("m%d@example.com", i),
		})
	}
	return out
}

func testEvent() domain.Event {
	return domain.Event{
		ID:          "e1",
		OrgID:       "org1",
		Title:       "Spring Concert",
		Location:    "Town Hall",
		ScheduledAt: time.Date(2026, time.June, 12, 19, 30, 0, 0, time.UTC),
	}
}

func TestNewDispatcherRequiresTransport(t *testing.T) {
	t.Parallel()

	if _, err := NewDispatcher(nil, nil, zap.NewNop(), nil, 0, 0); err == nil {
		t.Fatal("expected error for nil transport")
	}
}

func TestSendAllSucceed(t *testing.T) {
	t.Parallel()

	ft := &fakeTransport{}
	d, err := NewDispatcher(ft, nil, zap.NewNop(), nil, time.Second, 4)
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}

	outcomes := d.Send(context.Background(), domain.KindEventReminder, testEvent(), recipients(5))
	if len(outcomes) != 5 {
		t.Fatalf("outcomes = %d, want 5", len(outcomes))
	}
	for i, outcome := range outcomes {
		if !outcome.Success {
			t.Fatalf("outcome[%d] failed: %s", i, outcome.Reason)
		}
	}
	if ft.callCount() != 5 {
		t.Fatalf("transport calls = %d, want 5", ft.callCount())
	}
}

func TestSendIsolatesPermanentFailure(t *testing.T) {
	t.Parallel()

	ft := &fakeTransport{
		sendFn: func(ctx context.Context, recipient domain.Recipient, msg transport.Message) error {
			if recipient.ID == "m3" {
				return &transport.TransportError{StatusCode: 400, Message: "bad address", Transient: false}
			}
			return nil
		},
	}
	d, err := NewDispatcher(ft, nil, zap.NewNop(), nil, time.Second, 2)
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}

	outcomes := d.Send(context.Background(), domain.KindEventReminder, testEvent(), recipients(5))

	succeeded := 0
	var failed *Outcome
	for i := range outcomes {
		if outcomes[i].Success {
			succeeded++
		} else {
			failed = &outcomes[i]
		}
	}

	if succeeded != 4 {
		t.Fatalf("succeeded = %d, want 4", succeeded)
	}
	if failed == nil || failed.RecipientID != "m3" {
		t.Fatalf("failed outcome = %+v, want recipient m3", failed)
	}
	if failed.Transient {
		t.Fatal("bad address must be a permanent failure")
	}
	if !strings.Contains(failed.Reason, "bad address") {
		t.Fatalf("reason = %q, want mention of bad address", failed.Reason)
	}
}

func TestSendClassifiesTransientFailure(t *testing.T) {
	t.Parallel()

	ft := &fakeTransport{
		sendFn: func(ctx context.Context, recipient domain.Recipient, msg transport.Message) error {
			return &transport.TransportError{StatusCode: 503, Message: "provider down", Transient: true}
		},
	}
	d, err := NewDispatcher(ft, nil, zap.NewNop(), nil, time.Second, 2)
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}

	outcomes := d.Send(context.Background(), domain.KindDeadlineReminder, testEvent(), recipients(2))
	for _, outcome := range outcomes {
		if outcome.Success {
			t.Fatal("expected failures")
		}
		if !outcome.Transient {
			t.Fatalf("outcome for %s must be transient", outcome.RecipientID)
		}
	}
}

func TestSendBoundsSlowTransport(t *testing.T) {
	t.Parallel()

	ft := &fakeTransport{
		sendFn: func(ctx context.Context, recipient domain.Recipient, msg transport.Message) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(5 * time.Second):
				return nil
			}
		},
	}
	d, err := NewDispatcher(ft, nil, zap.NewNop(), nil, 50*time.Millisecond, 1)
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}

	start := time.Now()
	outcomes := d.Send(context.Background(), domain.KindEventReminder, testEvent(), recipients(1))
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("send took %v, timeout did not bound it", elapsed)
	}

	if len(outcomes) != 1 || outcomes[0].Success {
		t.Fatalf("outcomes = %+v, want one timed-out failure", outcomes)
	}
	if !outcomes[0].Transient {
		t.Fatal("timeout must be transient so a later evaluation retries")
	}
}

func TestSendStopsSchedulingAfterCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ft := &fakeTransport{
		sendFn: func(ctx context.Context, recipient domain.Recipient, msg transport.Message) error {
			return ctx.Err()
		},
	}
	d, err := NewDispatcher(ft, nil, zap.NewNop(), nil, time.Second, 2)
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}

	outcomes := d.Send(ctx, domain.KindEventReminder, testEvent(), recipients(3))
	if len(outcomes) != 3 {
		t.Fatalf("outcomes = %d, want 3", len(outcomes))
	}
	for _, outcome := range outcomes {
		if outcome.Success {
			t.Fatal("no send may succeed after cancel")
		}
		if !outcome.Transient {
			t.Fatalf("cancelled outcome for %s must stay retryable", outcome.RecipientID)
		}
	}
}

func TestSendLimiterFailureIsTransient(t *testing.T) {
	t.Parallel()

	ft := &fakeTransport{}
	limiter := &fakeLimiter{
		waitFn: func(ctx context.Context, scope string) error {
			if scope != "fake" {
				t.Errorf("scope = %q, want fake", scope)
			}
			return errors.New("redis unreachable")
		},
	}
	d, err := NewDispatcher(ft, limiter, zap.NewNop(), nil, time.Second, 2)
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}

	outcomes := d.Send(context.Background(), domain.KindEventReminder, testEvent(), recipients(1))
	if len(outcomes) != 1 || outcomes[0].Success {
		t.Fatalf("outcomes = %+v, want one failure", outcomes)
	}
	if !outcomes[0].Transient {
		t.Fatal("limiter failure must be transient")
	}
	if ft.callCount() != 0 {
		t.Fatal("transport must not be called when the limiter refuses")
	}
}

func TestSendEmptyRecipientList(t *testing.T) {
	t.Parallel()

	d, err := NewDispatcher(&fakeTransport{}, nil, zap.NewNop(), nil, time.Second, 2)
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}

	if outcomes := d.Send(context.Background(), domain.KindEventReminder, testEvent(), nil); outcomes != nil {
		t.Fatalf("outcomes = %+v, want nil", outcomes)
	}
}
