package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Harvey-Wallace/BandSync-sub000/internal/dispatcher"
	"github.com/Harvey-Wallace/BandSync-sub000/internal/domain"
)

type fakeDueFinder struct {
	findDueFn func(ctx context.Context, kind domain.Kind, now time.Time) ([]domain.Event, error)
}

func (f *fakeDueFinder) FindDue(ctx context.Context, kind domain.Kind, now time.Time) ([]domain.Event, error) {
	if f.findDueFn != nil {
		return f.findDueFn(ctx, kind, now)
	}
	return nil, nil
}

type fakeRecipientRepo struct {
	eligibleForFn func(ctx context.Context, eventID string, kind domain.Kind) ([]domain.Recipient, error)
}

func (f *fakeRecipientRepo) EligibleFor(ctx context.Context, eventID string, kind domain.Kind) ([]domain.Recipient, error) {
	if f.eligibleForFn != nil {
		return f.eligibleForFn(ctx, eventID, kind)
	}
	return nil, nil
}

type fakeEventRepo struct {
	listUpcomingFn func(ctx context.Context, now time.Time, horizon time.Duration) ([]domain.Event, error)
	getByIDFn      func(ctx context.Context, id string) (*domain.Event, error)
}

func (f *fakeEventRepo) ListUpcoming(ctx context.Context, now time.Time, horizon time.Duration) ([]domain.Event, error) {
	if f.listUpcomingFn != nil {
		return f.listUpcomingFn(ctx, now, horizon)
	}
	return nil, nil
}

func (f *fakeEventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

// memLedger is an in-memory stand-in for the Postgres ledger with the
// same first-writer-wins semantics.
type memLedger struct {
	mu      sync.Mutex
	entries map[string]domain.LedgerEntry
	reports map[string]domain.AttendanceReport

	failNext error
}

func newMemLedger() *memLedger {
	return &memLedger{
		entries: make(map[string]domain.LedgerEntry),
		reports: make(map[string]domain.AttendanceReport),
	}
}

func ledgerKey(kind domain.Kind, eventID, recipientID string) string {
	return fmt.Sprintf("%s/%s/%s", kind, eventID, recipientID)
}

func (l *memLedger) HasSucceeded(ctx context.Context, kind domain.Kind, eventID, recipientID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[ledgerKey(kind, eventID, recipientID)]
	return ok && entry.Outcome == domain.OutcomeSent, nil
}

func (l *memLedger) FilterPending(ctx context.Context, kind domain.Kind, eventID string, recipients []domain.Recipient) ([]domain.Recipient, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.failNext != nil {
		err := l.failNext
		l.failNext = nil
		return nil, err
	}

	pending := make([]domain.Recipient, 0, len(recipients))
	for _, recipient := range recipients {
		if _, ok := l.entries[ledgerKey(kind, eventID, recipient.ID)]; ok {
			continue
		}
		pending = append(pending, recipient)
	}
	return pending, nil
}

func (l *memLedger) RecordOutcome(ctx context.Context, entry *domain.LedgerEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.insertLocked(entry)
}

func (l *memLedger) RecordReportSent(ctx context.Context, entry *domain.LedgerEntry, report *domain.AttendanceReport) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	if err := report.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.insertLocked(entry); err != nil {
		return err
	}
	if _, ok := l.reports[report.EventID]; !ok {
		l.reports[report.EventID] = *report
	}
	return nil
}

func (l *memLedger) insertLocked(entry *domain.LedgerEntry) error {
	key := ledgerKey(entry.Kind, entry.EventID, entry.RecipientID)
	if _, ok := l.entries[key]; ok {
		return fmt.Errorf("%w: ledger entry exists for %s", domain.ErrConflict, key)
	}
	l.entries[key] = *entry
	return nil
}

func (l *memLedger) entryCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *memLedger) entryFor(kind domain.Kind, eventID, recipientID string) (domain.LedgerEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[ledgerKey(kind, eventID, recipientID)]
	return entry, ok
}

func (l *memLedger) reportFor(eventID string) (domain.AttendanceReport, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	report, ok := l.reports[eventID]
	return report, ok
}

// memReports is an in-memory stand-in for the report repository.
type memReports struct {
	mu       sync.Mutex
	watched  map[string]bool
	changes  map[string]domain.ChangeNotification
	notified map[string]bool
}

func newMemReports(watchedEvents ...string) *memReports {
	watched := make(map[string]bool, len(watchedEvents))
	for _, id := range watchedEvents {
		watched[id] = true
	}
	return &memReports{
		watched:  watched,
		changes:  make(map[string]domain.ChangeNotification),
		notified: make(map[string]bool),
	}
}

func changeKey(change *domain.ChangeNotification) string {
	return fmt.Sprintf("%s/%s/%d", change.EventID, change.MemberID, change.ChangedAt.UnixNano())
}

func (r *memReports) HasReport(ctx context.Context, eventID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.watched[eventID], nil
}

func (r *memReports) CreateChange(ctx context.Context, change *domain.ChangeNotification) error {
	if err := change.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := changeKey(change)
	if _, ok := r.changes[key]; ok {
		return fmt.Errorf("%w: change already recorded", domain.ErrConflict)
	}
	r.changes[key] = *change
	return nil
}

func (r *memReports) MarkChangeNotified(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, change := range r.changes {
		if change.ID == id {
			change.Notified = true
			r.changes[key] = change
			r.notified[id] = true
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *memReports) ListUnnotified(ctx context.Context, limit int) ([]domain.ChangeNotification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.ChangeNotification, 0, len(r.changes))
	for _, change := range r.changes {
		if change.Notified {
			continue
		}
		out = append(out, change)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *memReports) changeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.changes)
}

// fakeSender records fan-outs and fabricates outcomes.
type fakeSender struct {
	mu    sync.Mutex
	calls []sendCall

	outcomeFn func(kind domain.Kind, event domain.Event, recipient domain.Recipient) dispatcher.Outcome
}

type sendCall struct {
	kind       domain.Kind
	eventID    string
	recipients []string
}

func (f *fakeSender) Send(ctx context.Context, kind domain.Kind, event domain.Event, recipients []domain.Recipient) []dispatcher.Outcome {
	ids := make([]string, 0, len(recipients))
	outcomes := make([]dispatcher.Outcome, 0, len(recipients))
	for _, recipient := range recipients {
		ids = append(ids, recipient.ID)
		if f.outcomeFn != nil {
			outcomes = append(outcomes, f.outcomeFn(kind, event, recipient))
		} else {
			outcomes = append(outcomes, dispatcher.Outcome{RecipientID: recipient.ID, Success: true})
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, sendCall{kind: kind, eventID: event.ID, recipients: ids})
	f.mu.Unlock()

	return outcomes
}

func (f *fakeSender) sentRecipients() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []string
	for _, call := range f.calls {
		out = append(out, call.recipients...)
	}
	return out
}

func (f *fakeSender) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
