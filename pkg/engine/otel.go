package engine

import (
	"context"
	"fmt"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/opd-ai/go-rocketsim/pkg/engine"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type metrics struct {
	commands  metric.Int64Counter
	turns     metric.Int64Counter
	stages    metric.Int64Counter
	destroyed metric.Int64Counter
	altitude  metric.Float64ObservableGauge
}

func newMetrics(g *Game) (*metrics, error) {
	m := meter()
	ms := &metrics{}

	var err error
	ms.commands, err = m.Int64Counter(
		"engine.commands.handled",
		metric.WithDescription("Total session commands handled"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating commands counter: %w", err)
	}

	ms.turns, err = m.Int64Counter(
		"engine.turns.advanced",
		metric.WithDescription("Total flight turns advanced"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating turns counter: %w", err)
	}

	ms.stages, err = m.Int64Counter(
		"engine.stages.activated",
		metric.WithDescription("Total stages activated"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stages counter: %w", err)
	}

	ms.destroyed, err = m.Int64Counter(
		"engine.rockets.destroyed",
		metric.WithDescription("Total rockets destroyed on impact"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating destroyed counter: %w", err)
	}

	ms.altitude, err = m.Float64ObservableGauge(
		"engine.flight.altitude",
		metric.WithDescription("Altitude of the current flight"),
		metric.WithUnit("m"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating altitude gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			g.mu.RLock()
			defer g.mu.RUnlock()
			if g.flight != nil {
				o.ObserveFloat64(ms.altitude, g.flight.Computed.Altitude)
			}
			return nil
		},
		ms.altitude,
	)
	if err != nil {
		return nil, fmt.Errorf("registering altitude callback: %w", err)
	}

	return ms, nil
}

func (m *metrics) command(ctx context.Context, verb string, err error) {
	if !slices.Contains(Verbs, verb) {
		verb = "unknown"
	}
	m.commands.Add(ctx, 1, metric.WithAttributes(
		attribute.String("verb", verb),
		attribute.Bool("ok", err == nil),
	))
}

func (m *metrics) turn(ctx context.Context) {
	m.turns.Add(ctx, 1)
}

func (m *metrics) stage(ctx context.Context) {
	m.stages.Add(ctx, 1)
}

func (m *metrics) destroy(ctx context.Context) {
	m.destroyed.Add(ctx, 1)
}
