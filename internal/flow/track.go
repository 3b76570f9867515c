// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

package flow

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("phiona/flow")

// Observer receives the result of every tracked flow.
type Observer interface {
	ObserveFlow(name string, o Outcome, elapsed time.Duration)
}

// NopObserver discards observations.
type NopObserver struct{}

// ObserveFlow implements Observer.
func (NopObserver) ObserveFlow(string, Outcome, time.Duration) {}

// Track starts a span for the flow name. The returned function ends the
// span, reports the outcome to obs and returns the outcome unchanged.
func Track(ctx context.Context, obs Observer, name string, attrs ...attribute.KeyValue) (context.Context, func(Outcome) Outcome) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, func(o Outcome) Outcome {
		span.SetAttributes(attribute.Bool("flow.success", o.OK))
		if !o.OK {
			span.SetAttributes(attribute.String("flow.kind", o.Kind.String()))
			span.SetStatus(codes.Error, o.Message)
		}
		span.End()
		if obs != nil {
			obs.ObserveFlow(name, o, time.Since(start))
		}
		return o
	}
}
