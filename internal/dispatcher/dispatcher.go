package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Harvey-Wallace/BandSync-sub000/internal/domain"
	"github.com/Harvey-Wallace/BandSync-sub000/internal/observability"
	"github.com/Harvey-Wallace/BandSync-sub000/internal/ratelimit"
	"github.com/Harvey-Wallace/BandSync-sub000/internal/transport"
)

const (
	defaultSendTimeout = 10 * time.Second
	defaultConcurrency = 8

	failureClassTransient = "transient"
	failureClassPermanent = "permanent"
)

// Outcome is the delivery result for one recipient. A transient failure
// leaves no ledger row so a later window evaluation retries it; a
// permanent one is recorded and never retried.
type Outcome struct {
	RecipientID string
	Success     bool
	Transient   bool
	Reason      string
}

// Dispatcher fans a notification out to its recipients through one
// transport, bounding concurrency and per-send latency.
type Dispatcher struct {
	transport   transport.MailTransport
	limiter     ratelimit.RateLimiter
	logger      *zap.Logger
	metrics     *observability.Metrics
	sendTimeout time.Duration
	concurrency int
	now         func() time.Time
}

func NewDispatcher(mailTransport transport.MailTransport, limiter ratelimit.RateLimiter, logger *zap.Logger, metrics *observability.Metrics, sendTimeout time.Duration, concurrency int) (*Dispatcher, error) {
	if mailTransport == nil {
		return nil, fmt.Errorf("mail transport is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if sendTimeout <= 0 {
		sendTimeout = defaultSendTimeout
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	return &Dispatcher{
		transport:   mailTransport,
		limiter:     limiter,
		logger:      logger,
		metrics:     metrics,
		sendTimeout: sendTimeout,
		concurrency: concurrency,
		now:         time.Now,
	}, nil
}

// Send delivers the notification to every recipient and returns one
// outcome per recipient. Failures are isolated: one bad address never
// blocks the rest of the fan-out. The returned slice preserves the
// recipient order.
func (d *Dispatcher) Send(ctx context.Context, kind domain.Kind, event domain.Event, recipients []domain.Recipient) []Outcome {
	if len(recipients) == 0 {
		return nil
	}

	outcomes := make([]Outcome, len(recipients))
	var mu sync.Mutex

	group := errgroup.Group{}
	group.SetLimit(d.concurrency)

	for i, recipient := range recipients {
		// Stop scheduling new sends once the run is cancelled; recipients
		// never attempted stay retryable.
		if ctx.Err() != nil {
			mu.Lock()
			outcomes[i] = Outcome{
				RecipientID: recipient.ID,
				Transient:   true,
				Reason:      "canceled before send",
			}
			mu.Unlock()
			continue
		}

		index, target := i, recipient
		group.Go(func() error {
			outcome := d.sendOne(ctx, kind, event, target)
			mu.Lock()
			outcomes[index] = outcome
			mu.Unlock()
			return nil
		})
	}

	_ = group.Wait()
	return outcomes
}

func (d *Dispatcher) sendOne(ctx context.Context, kind domain.Kind, event domain.Event, recipient domain.Recipient) Outcome {
	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	if d.limiter != nil {
		if err := d.limiter.Wait(sendCtx, d.transport.Name()); err != nil {
			d.metrics.IncNotificationFailed(kind.String(), failureClassTransient)
			return Outcome{
				RecipientID: recipient.ID,
				Transient:   true,
				Reason:      fmt.Sprintf("rate limiter: %v", err),
			}
		}
	}

	msg := renderMessage(kind, event, recipient)

	start := d.now()
	err := d.transport.Send(sendCtx, recipient, msg)
	d.metrics.ObserveSendDuration(kind.String(), d.now().Sub(start))

	if err != nil {
		transient := transport.IsTransient(err)

		class := failureClassPermanent
		if transient {
			class = failureClassTransient
		}
		d.metrics.IncNotificationFailed(kind.String(), class)
		d.logger.Warn("notification send failed",
			zap.String("kind", kind.String()),
			zap.String("event_id", event.ID),
			zap.String("recipient_id", recipient.ID),
			zap.Bool("transient", transient),
			zap.Error(err),
		)

		return Outcome{
			RecipientID: recipient.ID,
			Transient:   transient,
			Reason:      err.Error(),
		}
	}

	d.metrics.IncNotificationSent(kind.String())
	d.logger.Debug("notification sent",
		zap.String("kind", kind.String()),
		zap.String("event_id", event.ID),
		zap.String("recipient_id", recipient.ID),
	)

	return Outcome{RecipientID: recipient.ID, Success: true}
}
