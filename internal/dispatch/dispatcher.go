// Package dispatch routes platform events to the worker that owns them.
package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	apperrors "onboarding-bot/internal/common/errors"
	"onboarding-bot/internal/common/logger"
	"onboarding-bot/internal/common/metrics"
	"onboarding-bot/internal/common/observability"
	"onboarding-bot/internal/models"

	"go.opentelemetry.io/otel/attribute"
)

type WelcomeHandler interface {
	Handle(ctx context.Context, event models.MemberJoined) error
	HandleLeave(ctx context.Context, event models.MemberLeft) error
}

type ChoiceHandler interface {
	Handle(ctx context.Context, event models.ChoiceSubmitted) error
}

type VerdictHandler interface {
	Handle(ctx context.Context, event models.VerdictReceived) error
}

// Handlers are the workers behind each event kind. A nil handler means the
// worker is disabled and its events are dropped.
type Handlers struct {
	Welcome WelcomeHandler
	Choice  ChoiceHandler
	Verdict VerdictHandler
}

type Dispatcher struct {
	handlers Handlers
	obs      *observability.Observability
	logger   logger.Logger
	inflight sync.WaitGroup
}

func New(handlers Handlers, obs *observability.Observability, log logger.Logger) *Dispatcher {
	if obs == nil {
		obs = observability.NewNoop()
	}
	return &Dispatcher{
		handlers: handlers,
		obs:      obs,
		logger:   log.WithFields(map[string]interface{}{"component": "dispatcher"}),
	}
}

// Dispatch runs the handler for event. Panics are recovered and returned
// as INTERNAL_ERROR.
func (d *Dispatcher) Dispatch(ctx context.Context, event models.Event) (err error) {
	d.inflight.Add(1)
	defer d.inflight.Done()

	kind := event.Kind()
	start := time.Now()
	metrics.EventsActive.WithLabelValues(kind).Inc()

	ctx, endSpan := d.obs.StartSpan(ctx, "event."+kind, attribute.String("event.kind", kind))

	defer func() {
		if r := recover(); r != nil {
			metrics.HandlerPanics.WithLabelValues(kind).Inc()
			d.logger.Error("handler panicked", map[string]interface{}{
				"eventKind": kind,
				"panic":     fmt.Sprint(r),
				"stack":     string(debug.Stack()),
			})
			err = &apperrors.StandardError{
				Code:      apperrors.ErrCodeInternal,
				Message:   "Handler panicked",
				Details:   fmt.Sprint(r),
				Timestamp: time.Now().UTC(),
			}
		}

		d.record(ctx, kind, time.Since(start), err)
		endSpan(err)
		metrics.EventsActive.WithLabelValues(kind).Dec()
	}()

	return d.route(ctx, event)
}

func (d *Dispatcher) route(ctx context.Context, event models.Event) error {
	switch e := event.(type) {
	case models.MemberJoined:
		if d.handlers.Welcome == nil {
			return d.drop(e)
		}
		return d.handlers.Welcome.Handle(ctx, e)
	case models.MemberLeft:
		if d.handlers.Welcome == nil {
			return d.drop(e)
		}
		return d.handlers.Welcome.HandleLeave(ctx, e)
	case models.ChoiceSubmitted:
		if d.handlers.Choice == nil {
			return d.drop(e)
		}
		return d.handlers.Choice.Handle(ctx, e)
	case models.VerdictReceived:
		if d.handlers.Verdict == nil {
			return d.drop(e)
		}
		return d.handlers.Verdict.Handle(ctx, e)
	default:
		d.logger.Warn("unhandled event", map[string]interface{}{
			"eventKind": event.Kind(),
		})
		return nil
	}
}

func (d *Dispatcher) drop(event models.Event) error {
	d.logger.Debug("worker disabled, event dropped", map[string]interface{}{
		"eventKind": event.Kind(),
	})
	return nil
}

func (d *Dispatcher) record(ctx context.Context, kind string, elapsed time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failed"
		code := string(apperrors.ErrCodeInternal)
		if stdErr, ok := apperrors.AsStandardError(err); ok {
			code = string(stdErr.Code)
		}
		metrics.EventsFailed.WithLabelValues(kind, code).Inc()
	} else {
		metrics.EventsHandled.WithLabelValues(kind).Inc()
	}
	metrics.EventDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	d.obs.RecordEventProcessed(ctx, kind, status)
	d.obs.RecordEventDuration(ctx, kind, elapsed, status)
}

// Sink adapts the dispatcher to the session's event callback. Every event
// is handled under ctx; failures are already logged by the workers.
func (d *Dispatcher) Sink(ctx context.Context) func(models.Event) {
	return func(event models.Event) {
		_ = d.Dispatch(ctx, event)
	}
}

// Wait blocks until in-flight events finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
