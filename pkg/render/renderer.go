// Package render draws sessions for people: a terminal renderer built on
// tcell and a no-op renderer for headless runs.
package render

import (
	"context"

	"github.com/opd-ai/go-rocketsim/pkg/flight"
	"github.com/opd-ai/go-rocketsim/pkg/logging"
)

// Renderer draws one frame at a time: Clear, then any number of Render
// calls, then Present.
type Renderer interface {
	Clear()
	RenderFlight(f *flight.Flight)
	Present()
}

// NullRenderer draws nothing and logs what it was asked to draw.
type NullRenderer struct {
	logger *logging.Logger
}

// NewNullRenderer creates a new NullRenderer with structured logging.
func NewNullRenderer() *NullRenderer {
	return &NullRenderer{
		logger: logging.NewLogger(),
	}
}

// Clear implements Renderer.
func (d *NullRenderer) Clear() {
	ctx := context.Background()
	d.logger.Debug(ctx, "Clear called")
}

// Present implements Renderer.
func (d *NullRenderer) Present() {
	ctx := context.Background()
	d.logger.Debug(ctx, "Present called")
}

// RenderFlight implements Renderer.
func (d *NullRenderer) RenderFlight(f *flight.Flight) {
	ctx := context.Background()
	if f == nil {
		d.logger.Debug(ctx, "RenderFlight called with nil flight")
		return
	}
	d.logger.Debug(ctx, "RenderFlight called",
		"time", f.Time,
		"altitude", f.Computed.Altitude,
		"speed", f.Computed.Speed,
		"destroyed", f.Destroyed,
	)
}

// NullRendererInstance is a global instance of NullRenderer for convenience.
var NullRendererInstance Renderer = NewNullRenderer()
