package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"reimburse/internal/model"
	"reimburse/internal/repository"
)

const (
	eventChannelSize = 100
	eventBatchSize   = 10
	eventFlushPeriod = time.Second
)

// EventRecorder persists tracking events asynchronously in batches.
type EventRecorder interface {
	Record(ctx context.Context, event model.TrackingEvent)
	Close()
}

type eventRecorder struct {
	repo    repository.TrackingEventRepository
	logger  *zap.Logger
	events  chan model.TrackingEvent
	done    chan struct{}
	closing sync.Once
	mu      sync.RWMutex
	closed  bool
}

// NewEventRecorder starts the background writer. Close flushes pending events.
func NewEventRecorder(repo repository.TrackingEventRepository, logger *zap.Logger) EventRecorder {
	r := &eventRecorder{
		repo:   repo,
		logger: logger,
		events: make(chan model.TrackingEvent, eventChannelSize),
		done:   make(chan struct{}),
	}

	go r.worker(context.Background())

	return r
}

func (r *eventRecorder) worker(ctx context.Context) {
	defer close(r.done)

	batch := make([]model.TrackingEvent, 0, eventBatchSize)
	ticker := time.NewTicker(eventFlushPeriod)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := r.repo.CreateBatch(ctx, batch); err != nil {
			// One event whose tracking was deleted in the meantime fails the
			// whole insert; retry one by one so the rest are kept.
			r.logger.Warn("persist tracking events batch", zap.Int("count", len(batch)), zap.Error(err))
			for i := range batch {
				batch[i].ID = 0
				r.persist(ctx, &batch[i])
			}
		}
		batch = batch[:0]
	}

	for {
		select {
		case event, ok := <-r.events:
			if !ok {
				// Channel closed, flush remaining events
				flush()
				return
			}
			batch = append(batch, event)
			if len(batch) >= eventBatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// Record queues event. When the queue is full or the recorder is closed the
// event is written synchronously instead.
func (r *eventRecorder) Record(ctx context.Context, event model.TrackingEvent) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	r.mu.RLock()
	if !r.closed {
		select {
		case r.events <- event:
			r.mu.RUnlock()
			return
		default:
		}
	}
	r.mu.RUnlock()

	r.persist(ctx, &event)
}

func (r *eventRecorder) persist(ctx context.Context, event *model.TrackingEvent) {
	err := r.repo.Create(ctx, event)
	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		r.logger.Info("dropped tracking event of deleted tracking",
			zap.Uint("tracking_id", event.TrackingID),
			zap.Uint("request_id", event.RequestID))
	default:
		r.logger.Error("persist tracking event", zap.Uint("request_id", event.RequestID), zap.Error(err))
	}
}

// Close stops accepting queued events and waits for the worker to flush.
func (r *eventRecorder) Close() {
	r.closing.Do(func() {
		r.mu.Lock()
		r.closed = true
		close(r.events)
		r.mu.Unlock()
		<-r.done
	})
}
