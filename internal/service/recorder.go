package service

import (
	"context"
	"time"

	"grid_supervisor/internal/models"
	"grid_supervisor/internal/repository"
)

const (
	defaultStatusPoll = time.Second
	persistTimeout    = 2 * time.Second
	drainTimeout      = 5 * time.Second
)

// Feed names used in logs and metrics.
const (
	feedEvents    = "events"
	feedTelemetry = "telemetry"
)

// RecorderService persists the engine's event and sample feeds and mirrors
// them into metrics. It is the only consumer of both feeds.
type RecorderService struct {
	engine    Engine
	eventRepo repository.EventRepo
	telemetry repository.TelemetryRepo
	metrics   Metrics
	log       Logger

	statusPoll time.Duration
}

func NewRecorderService(engine Engine, eventRepo repository.EventRepo, telemetry repository.TelemetryRepo, metrics Metrics, log Logger) *RecorderService {
	return &RecorderService{
		engine:     engine,
		eventRepo:  eventRepo,
		telemetry:  telemetry,
		metrics:    metrics,
		log:        log,
		statusPoll: defaultStatusPoll,
	}
}

// Run drains the feeds until ctx is cancelled, then flushes whatever is still
// buffered before returning.
func (r *RecorderService) Run(ctx context.Context) {
	events, samples := r.engine.Events(), r.engine.Samples()
	// writes already dequeued must not fail just because shutdown began
	writeCtx := context.WithoutCancel(ctx)
	ticker := time.NewTicker(r.statusPoll)
	defer ticker.Stop()

	r.log.Infow("recorder_started")
	for {
		select {
		case <-ctx.Done():
			r.drain(events, samples)
			r.log.Infow("recorder_stopped")
			return
		case ev := <-events:
			r.recordEvent(writeCtx, ev)
		case s := <-samples:
			r.recordSample(writeCtx, s)
		case <-ticker.C:
			// transitions without a log line (e.g. entering STABLE) only show up here
			r.metrics.ObserveStatus(r.engine.Status())
		}
	}
}

func (r *RecorderService) drain(events <-chan models.GridEvent, samples <-chan models.TelemetrySample) {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for {
		select {
		case ev := <-events:
			r.recordEvent(ctx, ev)
		case s := <-samples:
			r.recordSample(ctx, s)
		default:
			r.metrics.ObserveStatus(r.engine.Status())
			return
		}
	}
}

func (r *RecorderService) recordEvent(ctx context.Context, ev models.GridEvent) {
	r.metrics.ObserveEvent(ev)
	ctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()
	if err := r.eventRepo.Append(ctx, ev); err != nil {
		r.metrics.ObservePersistError(feedEvents)
		r.log.Errorw("persist_failed", "feed", feedEvents, "event_id", ev.EventID, "err", err)
	}
}

func (r *RecorderService) recordSample(ctx context.Context, s models.TelemetrySample) {
	r.metrics.ObserveSample(s)
	ctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()
	if err := r.telemetry.Append(ctx, s); err != nil {
		r.metrics.ObservePersistError(feedTelemetry)
		r.log.Errorw("persist_failed", "feed", feedTelemetry, "sampled_at", s.SampledAt, "err", err)
	}
}
