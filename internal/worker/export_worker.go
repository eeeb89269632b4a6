package worker

import (
	"context"
	"time"

	"carrental/internal/models"

	"github.com/rs/zerolog"
)

// ScheduleWriter produces the fleet schedule report for a period.
type ScheduleWriter interface {
	WriteSchedule(ctx context.Context, startDate, endDate time.Time) (string, error)
}

// refreshRequest asks for the schedule report covering [Start, End].
type refreshRequest struct {
	Start time.Time
	End   time.Time
}

// ExportWorker regenerates the schedule report when bookings change.
// Requests are coalesced over a debounce window so a burst of changes
// produces a single report covering the union of the requested periods.
type ExportWorker struct {
	writer      ScheduleWriter
	retryPolicy RetryPolicy
	queue       chan refreshRequest
	debounce    time.Duration
	logger      *zerolog.Logger
}

// NewExportWorker builds a worker with sane defaults.
func NewExportWorker(writer ScheduleWriter, retry RetryPolicy, logger *zerolog.Logger) *ExportWorker {
	return &ExportWorker{
		writer:      writer,
		retryPolicy: retry.withDefaults(),
		queue:       make(chan refreshRequest, models.ExportQueueSize),
		debounce:    2 * time.Second,
		logger:      logger,
	}
}

// RequestRefresh schedules a report covering the period. Never blocks:
// when the queue is full the request is dropped, a queued request for an
// overlapping period will cover it.
func (w *ExportWorker) RequestRefresh(start, end time.Time) {
	select {
	case w.queue <- refreshRequest{Start: start, End: end}:
	default:
		w.logger.Warn().Msg("export_worker: queue full, refresh request dropped")
	}
}

// Start launches the main loop; stops when ctx is done.
func (w *ExportWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("export_worker: started")
	defer w.logger.Info().Msg("export_worker: stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case req := <-w.queue:
			req = w.coalesce(ctx, req)
			w.process(ctx, req)
		}
	}
}

// coalesce waits out the debounce window and merges any further requests
// that arrive into a single covering period.
func (w *ExportWorker) coalesce(ctx context.Context, req refreshRequest) refreshRequest {
	if w.debounce <= 0 {
		return w.drain(req)
	}

	timer := time.NewTimer(w.debounce)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return req
		case next := <-w.queue:
			req = mergeRequests(req, next)
		case <-timer.C:
			return w.drain(req)
		}
	}
}

func (w *ExportWorker) drain(req refreshRequest) refreshRequest {
	for {
		select {
		case next := <-w.queue:
			req = mergeRequests(req, next)
		default:
			return req
		}
	}
}

func mergeRequests(a, b refreshRequest) refreshRequest {
	if b.Start.Before(a.Start) {
		a.Start = b.Start
	}
	if b.End.After(a.End) {
		a.End = b.End
	}
	return a
}

func (w *ExportWorker) process(ctx context.Context, req refreshRequest) {
	for attempt := 1; attempt <= w.retryPolicy.MaxRetries; attempt++ {
		path, err := w.writer.WriteSchedule(ctx, req.Start, req.End)
		if err == nil {
			w.logger.Info().
				Str("file_path", path).
				Str("period_start", req.Start.Format(models.DateLayout)).
				Str("period_end", req.End.Format(models.DateLayout)).
				Msg("export_worker: report refreshed")
			return
		}

		w.logger.Error().Err(err).Int("attempt", attempt).Msg("export_worker: report refresh failed")

		if attempt == w.retryPolicy.MaxRetries {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.retryPolicy.NextDelay(attempt)):
		}
	}
}
