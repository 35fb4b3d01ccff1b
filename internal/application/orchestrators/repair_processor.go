package orchestrators

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"sportify/internal/adapters/email"
	"sportify/internal/adapters/storage/docstore"
	outboxStore "sportify/internal/adapters/storage/outbox"
	domainOutbox "sportify/internal/domain/outbox"
)

// RepairExecutor replays one kind of compensating action.
type RepairExecutor interface {
	// Execute applies the action described by payload.
	Execute(ctx context.Context, payload string) error
}

// RepairRecorder counts replay attempts.
type RepairRecorder interface {
	RepairAttempt(action string, ok bool)
}

// RepairOptions tune a RepairProcessor.
type RepairOptions struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
	BatchSize int
	Metrics   RepairRecorder // optional
	Now       func() time.Time
}

// RepairProcessor replays recorded repair entries with exponential backoff.
type RepairProcessor struct {
	store     outboxStore.Store
	executors map[string]RepairExecutor
	baseDelay time.Duration
	maxDelay  time.Duration
	batchSize int
	metrics   RepairRecorder
	now       func() time.Time
}

// NewRepairProcessor creates a processor for the given executors.
func NewRepairProcessor(store outboxStore.Store, executors map[string]RepairExecutor, opts RepairOptions) *RepairProcessor {
	p := &RepairProcessor{
		store:     store,
		executors: executors,
		baseDelay: opts.BaseDelay,
		maxDelay:  opts.MaxDelay,
		batchSize: opts.BatchSize,
		metrics:   opts.Metrics,
		now:       opts.Now,
	}
	if p.baseDelay <= 0 {
		p.baseDelay = 30 * time.Second
	}
	if p.maxDelay <= 0 {
		p.maxDelay = time.Hour
	}
	if p.batchSize <= 0 {
		p.batchSize = 20
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// DefaultRepairExecutors returns an executor for every repairable action.
// A nil mailer leaves notification emails without an executor.
func DefaultRepairExecutors(store docstore.Store, mailer email.Sender) map[string]RepairExecutor {
	writes := DocumentWriteExecutor{Store: store}
	m := map[string]RepairExecutor{
		domainOutbox.ActionProfileApproval: writes,
		domainOutbox.ActionRosterSync:      writes,
		domainOutbox.ActionProfileCreate:   writes,
		domainOutbox.ActionProfileSync:     writes,
	}
	if mailer != nil {
		m[domainOutbox.ActionNotificationEmail] = EmailExecutor{Sender: mailer}
	}
	return m
}

// ProcessPending replays every due entry in one batch.
// PRE: Context is valid
// POST: Due entries are attempted once; returns how many succeeded
func (p *RepairProcessor) ProcessPending(ctx context.Context) (int, error) {
	entries, err := p.store.ListPending(ctx, p.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list pending repairs: %w", err)
	}
	now := p.now()
	repaired := 0
	for _, entry := range entries {
		if !entry.IsDue(now, p.baseDelay, p.maxDelay) {
			continue
		}
		ok, err := p.attempt(ctx, entry)
		if err != nil {
			slog.Error("repair_event", "event", "repair_save_failed", "repair_id", entry.ID, "action", entry.ActionType, "error", err)
			continue
		}
		if ok {
			repaired++
		}
	}
	return repaired, nil
}

// ProcessSingle replays one entry immediately, ignoring backoff (admin retry).
// PRE: entryID is non-empty
// POST: Entry attempted and saved; returns the updated entry
func (p *RepairProcessor) ProcessSingle(ctx context.Context, entryID string) (domainOutbox.Entry, error) {
	entry, err := p.store.GetByID(ctx, entryID)
	if err != nil {
		return domainOutbox.Entry{}, fmt.Errorf("get repair entry: %w", err)
	}
	if entry.Status == domainOutbox.StatusDone || entry.Status == domainOutbox.StatusAbandoned {
		return entry, fmt.Errorf("repair %s is %s: %w", entryID, entry.Status, domainOutbox.ErrNotRetryable)
	}
	if entry.Attempts >= entry.MaxAttempts {
		// An admin retry grants one more attempt past the limit.
		entry.MaxAttempts = entry.Attempts + 1
	}
	if _, err := p.attempt(ctx, entry); err != nil {
		return entry, err
	}
	return p.store.GetByID(ctx, entryID)
}

// AbandonEntry marks an entry as abandoned by an admin.
// PRE: entryID is non-empty
// POST: Entry status set to abandoned
func (p *RepairProcessor) AbandonEntry(ctx context.Context, entryID string) error {
	entry, err := p.store.GetByID(ctx, entryID)
	if err != nil {
		return fmt.Errorf("get repair entry: %w", err)
	}
	entry.MarkAbandoned()
	slog.Info("repair_event", "event", "repair_abandoned", "repair_id", entry.ID, "action", entry.ActionType)
	return p.store.Save(ctx, entry)
}

// ListUnresolved returns entries an admin may still act on.
func (p *RepairProcessor) ListUnresolved(ctx context.Context, limit int) ([]domainOutbox.Entry, error) {
	return p.store.ListUnresolved(ctx, limit)
}

// attempt runs one replay and persists the outcome.
func (p *RepairProcessor) attempt(ctx context.Context, entry domainOutbox.Entry) (bool, error) {
	executor, ok := p.executors[entry.ActionType]
	if err := entry.MarkAttempt(p.now()); err != nil {
		return false, err
	}
	var runErr error
	if !ok {
		runErr = fmt.Errorf("no executor registered for action type: %s", entry.ActionType)
	} else {
		runErr = executor.Execute(ctx, entry.Payload)
	}
	if runErr != nil {
		entry.MarkFailed(runErr)
		slog.Warn("repair_event", "event", "repair_failed", "repair_id", entry.ID, "action", entry.ActionType, "attempt", entry.Attempts, "error", runErr)
	} else {
		entry.MarkSuccess()
		slog.Info("repair_event", "event", "repair_succeeded", "repair_id", entry.ID, "action", entry.ActionType, "subject", entry.Subject)
	}
	if p.metrics != nil {
		p.metrics.RepairAttempt(entry.ActionType, runErr == nil)
	}
	return runErr == nil, p.store.Save(ctx, entry)
}

// Run processes pending entries every interval until ctx is cancelled.
// PRE: interval > 0
// POST: Returns when ctx is done
func (p *RepairProcessor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	slog.Info("repair_event", "event", "repair_worker_started", "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			slog.Info("repair_event", "event", "repair_worker_stopped")
			return
		case <-ticker.C:
			if n, err := p.ProcessPending(ctx); err != nil {
				slog.Error("repair_event", "event", "repair_batch_failed", "error", err)
			} else if n > 0 {
				slog.Info("repair_event", "event", "repair_batch_done", "repaired", n)
			}
		}
	}
}

// --- Executors ---

// DocumentWriteExecutor replays DocumentWrite payloads.
type DocumentWriteExecutor struct {
	Store docstore.Store
}

// Execute applies the recorded document write.
// PRE: payload is valid JSON matching DocumentWrite
// POST: the document holds the recorded fields
// INVARIANT: repair entry status managed by caller
func (e DocumentWriteExecutor) Execute(ctx context.Context, payload string) error {
	var w DocumentWrite
	if err := json.Unmarshal([]byte(payload), &w); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	if w.Collection == "" || w.ID == "" {
		return errors.New("document write payload is missing its target")
	}
	return w.Apply(ctx, e.Store)
}

// EmailExecutor replays EmailDelivery payloads.
type EmailExecutor struct {
	Sender email.Sender
}

// Execute resends the recorded email.
// PRE: payload is valid JSON matching EmailDelivery
// POST: email accepted by the provider
// INVARIANT: repair entry status managed by caller
func (e EmailExecutor) Execute(ctx context.Context, payload string) error {
	var d EmailDelivery
	if err := json.Unmarshal([]byte(payload), &d); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	_, err := e.Sender.Send(ctx, d.request())
	return err
}
