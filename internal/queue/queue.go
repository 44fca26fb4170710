package queue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Harvey-Wallace/BandSync-sub000/internal/domain"
)

const (
	// ChangeQueueName carries RSVP changes emitted by the CRUD write
	// side after an attendance report was sent.
	ChangeQueueName = "rsvp.changes"

	// ChangeDLQName receives changes rejected as malformed.
	ChangeDLQName = "dlq.rsvp.changes"
)

// ChangeMessage is the broker payload for one RSVP transition.
type ChangeMessage struct {
	EventID   string            `json:"eventId"`
	MemberID  string            `json:"memberId"`
	OldStatus domain.RSVPStatus `json:"oldStatus"`
	NewStatus domain.RSVPStatus `json:"newStatus"`
	ChangedAt time.Time         `json:"changedAt"`
}

func (m ChangeMessage) Validate() error {
	if strings.TrimSpace(m.EventID) == "" {
		return fmt.Errorf("eventId is required")
	}
	if strings.TrimSpace(m.MemberID) == "" {
		return fmt.Errorf("memberId is required")
	}
	if !m.OldStatus.IsValid() {
		return fmt.Errorf("invalid old status %q", m.OldStatus)
	}
	if !m.NewStatus.IsValid() {
		return fmt.Errorf("invalid new status %q", m.NewStatus)
	}
	if m.OldStatus == m.NewStatus {
		return fmt.Errorf("status did not change (%q)", m.NewStatus)
	}
	if m.ChangedAt.IsZero() {
		return fmt.Errorf("changedAt is required")
	}
	return nil
}

// Publisher publishes change messages to a queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, msg ChangeMessage) error
	Close() error
}

// MessageHandler handles a consumed change message.
type MessageHandler func(ctx context.Context, msg ChangeMessage) error

// Consumer consumes change messages from a queue.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler MessageHandler) error
	Close() error
}
