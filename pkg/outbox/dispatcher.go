package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"ganttservice/pkg/circuitbreaker"
	"ganttservice/pkg/metrics"
	"ganttservice/pkg/trace"
)

// Store is the part of Repository the dispatcher drives.
type Store interface {
	Pending(ctx context.Context, limit int) ([]Event, error)
	MarkSent(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, maxRetries int) error
}

// Publisher delivers one event; *mq.Publisher implements it.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// Dispatcher polls the outbox and publishes pending events.
type Dispatcher struct {
	store      Store
	publisher  Publisher
	breaker    *circuitbreaker.CircuitBreaker
	logger     *zap.Logger
	maxRetries int
	interval   time.Duration
	batchSize  int
}

func NewDispatcher(store Store, publisher Publisher, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		store:      store,
		publisher:  publisher,
		breaker:    circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig()),
		logger:     logger,
		maxRetries: 5,
		interval:   time.Second,
		batchSize:  100,
	}
}

func (d *Dispatcher) WithMaxRetries(maxRetries int) *Dispatcher {
	d.maxRetries = maxRetries
	return d
}

func (d *Dispatcher) WithInterval(interval time.Duration) *Dispatcher {
	d.interval = interval
	return d
}

func (d *Dispatcher) WithBatchSize(batchSize int) *Dispatcher {
	d.batchSize = batchSize
	return d
}

func (d *Dispatcher) WithBreaker(cb *circuitbreaker.CircuitBreaker) *Dispatcher {
	d.breaker = cb
	return d
}

// Start polls until ctx is cancelled. Run it in its own goroutine.
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("Starting outbox dispatcher",
		zap.Int("max_retries", d.maxRetries),
		zap.Duration("interval", d.interval),
		zap.Int("batch_size", d.batchSize),
	)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Outbox dispatcher stopped")
			return
		case <-ticker.C:
			if _, err := d.DispatchOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				d.logger.Error("Outbox dispatch failed", zap.Error(err))
			}
		}
	}
}

// DispatchOnce publishes one batch and returns how many events were sent.
// While the breaker is open the batch is left untouched so no retries are
// spent on a broker that is down.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	events, err := d.store.Pending(ctx, d.batchSize)
	if err != nil {
		return 0, err
	}

	sent := 0
	for i, e := range events {
		err := d.breaker.Execute(func() error {
			return d.publisher.Publish(withPayloadTrace(ctx, e.Payload), e.RoutingKey, e.Payload)
		})
		if errors.Is(err, circuitbreaker.ErrOpen) {
			d.logger.Warn("Broker circuit open, postponing outbox batch", zap.Int("remaining", len(events)-i))
			metrics.IncrementOutboxEvent("postponed")
			return sent, nil
		}
		if err != nil {
			d.logger.Error("Failed to publish outbox event",
				zap.Int64("event_id", e.ID),
				zap.String("routing_key", e.RoutingKey),
				zap.Int("retry_count", e.RetryCount),
				zap.Error(err),
			)
			metrics.IncrementOutboxEvent("failed")
			if err := d.store.MarkFailed(ctx, e.ID, d.maxRetries); err != nil {
				d.logger.Error("Failed to mark outbox event as failed", zap.Int64("event_id", e.ID), zap.Error(err))
			}
			continue
		}

		if err := d.store.MarkSent(ctx, e.ID); err != nil {
			// the event will be delivered again on the next poll
			d.logger.Error("Failed to mark outbox event as sent", zap.Int64("event_id", e.ID), zap.Error(err))
			continue
		}
		metrics.IncrementOutboxEvent("sent")
		sent++
	}
	return sent, nil
}

// withPayloadTrace carries the payload's trace_id into the publish context.
func withPayloadTrace(ctx context.Context, payload json.RawMessage) context.Context {
	var fields struct {
		TraceID string `json:"trace_id"`
	}
	if err := json.Unmarshal(payload, &fields); err != nil || fields.TraceID == "" {
		return ctx
	}
	return trace.WithContext(ctx, fields.TraceID)
}
