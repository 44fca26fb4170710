package transport

import (
	"context"

	"github.com/Harvey-Wallace/BandSync-sub000/internal/domain"
)

// Message is a rendered notification ready to send. The core does not
// know or care whether the transport delivers it as email, SMS, or push.
type Message struct {
	Subject string
	Body    string
}

// MailTransport is the outbound delivery port.
type MailTransport interface {
	Send(ctx context.Context, recipient domain.Recipient, msg Message) error
	// Name identifies the transport for logs and throttle scoping.
	Name() string
}
