package messages

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/radiancemd/spa-scheduler/internal/calendar"
	"github.com/radiancemd/spa-scheduler/internal/notify"
	"github.com/radiancemd/spa-scheduler/internal/observability/metrics"
	"github.com/radiancemd/spa-scheduler/pkg/logging"
)

// Runner polls for due messages and delivers them through a fixed worker
// pool. One runner tick is one ProcessDue call; the periodic trigger lives
// in cmd wiring.
type Runner struct {
	store     *Store
	calendar  calendar.Provider
	sender    notify.Sender
	metrics   *metrics.SchedulingMetrics
	workers   int
	batchSize int
	now       func() time.Time
	logger    *logging.Logger
	inFlight  atomic.Bool
}

func NewRunner(store *Store, cal calendar.Provider, sender notify.Sender, m *metrics.SchedulingMetrics, workers, batchSize int, logger *logging.Logger) *Runner {
	if logger == nil {
		logger = logging.Default()
	}
	if workers <= 0 {
		workers = 4
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Runner{
		store:     store,
		calendar:  cal,
		sender:    sender,
		metrics:   m,
		workers:   workers,
		batchSize: batchSize,
		now:       time.Now,
		logger:    logger,
	}
}

// ProcessDue fires every message whose time has come. Errors on individual
// messages are recorded on the row, never returned — one bad send must not
// stall the queue.
func (r *Runner) ProcessDue(ctx context.Context) error {
	// A tick that fires while the previous run is still mid-send would
	// re-read the same pending rows and deliver them twice.
	if !r.inFlight.CompareAndSwap(false, true) {
		r.logger.Info("previous run still in flight, skipping")
		return nil
	}
	defer r.inFlight.Store(false)

	due, err := r.store.ListDue(ctx, r.now(), r.batchSize)
	if err != nil {
		return err
	}
	if len(due) == 0 {
		return nil
	}
	r.logger.Info("processing due messages", "count", len(due))

	jobs := make(chan ScheduledMessage)
	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for msg := range jobs {
				r.process(ctx, msg)
			}
		}()
	}
	for _, msg := range due {
		jobs <- msg
	}
	close(jobs)
	wg.Wait()
	return nil
}

func (r *Runner) process(ctx context.Context, msg ScheduledMessage) {
	// A reminder for an appointment that no longer exists on the calendar is
	// dropped, not failed. EventExists reports true on transient API errors,
	// so a flaky read never swallows a reminder.
	if msg.Type == TypeReminder && r.calendar != nil && !r.calendar.EventExists(ctx, msg.AppointmentID) {
		r.logger.Info("appointment gone, cancelling reminder", "message_id", msg.ID)
		if err := r.store.Cancel(ctx, msg.ID, "appointment no longer exists"); err != nil {
			r.logger.Error("failed to cancel orphaned reminder", "message_id", msg.ID, "error", err)
		}
		r.metrics.ObserveMessage(msg.Type, string(StatusCancelled))
		return
	}

	if err := r.sender.SendSMS(ctx, msg.CustomerPhone, msg.Content); err != nil {
		r.logger.Error("message send failed", "message_id", msg.ID, "error", err)
		if mErr := r.store.MarkFailed(ctx, msg.ID, err.Error()); mErr != nil {
			r.logger.Error("failed to record send failure", "message_id", msg.ID, "error", mErr)
		}
		r.metrics.ObserveMessage(msg.Type, string(StatusFailed))
		return
	}

	if err := r.store.MarkSent(ctx, msg.ID); err != nil {
		r.logger.Error("failed to mark message sent", "message_id", msg.ID, "error", err)
	}
	r.metrics.ObserveMessage(msg.Type, string(StatusSent))
	r.logger.Info("message sent", "message_id", msg.ID, "type", msg.Type)
}
