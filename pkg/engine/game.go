// pkg/engine/game.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/opd-ai/go-rocketsim/pkg/config"
	"github.com/opd-ai/go-rocketsim/pkg/event"
	"github.com/opd-ai/go-rocketsim/pkg/flight"
	"github.com/opd-ai/go-rocketsim/pkg/logging"
	"github.com/opd-ai/go-rocketsim/pkg/part"
	"github.com/opd-ai/go-rocketsim/pkg/vab"
)

var (
	// ErrNoFlight is returned by flight commands before any launch.
	ErrNoFlight = errors.New("no flight in progress")
	// ErrUnknownCommand is returned for commands the session does not know.
	ErrUnknownCommand = errors.New("unknown command")
)

// Game is one player's session: the current screen, the rocket design
// being built, research state and the flight in progress. All methods are
// safe for concurrent use.
type Game struct {
	Config   *config.GameConfig
	EventBus *event.Bus
	Catalog  *part.Catalog

	logger  *logging.Logger
	metrics *metrics
	params  flight.Params
	seed    uint64

	mu                   sync.RWMutex
	screen               Screen
	selectedBuilding     int
	selectedResearchPart int
	researchPoints       int
	builder              *vab.Builder
	flight               *flight.Flight
	flightID             uint64
	flightCount          uint64
	turns                uint64
	timeMultiplier       float64
	pending              []event.Event

	autoCancel context.CancelFunc
	autoDone   chan struct{}
}

// Option configures a Game.
type Option func(*Game)

// WithLogger sets the session logger.
func WithLogger(l *logging.Logger) Option {
	return func(g *Game) { g.logger = l }
}

// WithEventBus shares an existing bus instead of creating one.
func WithEventBus(b *event.Bus) Option {
	return func(g *Game) { g.EventBus = b }
}

// WithCatalog overrides the part catalog.
func WithCatalog(c *part.Catalog) Option {
	return func(g *Game) { g.Catalog = c }
}

// WithSeed makes every flight of the session reproducible.
func WithSeed(seed uint64) Option {
	return func(g *Game) { g.seed = seed }
}

// NewGame creates a session from cfg.
func NewGame(cfg *config.GameConfig, opts ...Option) (*Game, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	g := &Game{
		Config:         cfg,
		params:         cfg.FlightParams(),
		seed:           cfg.SessionConfig.Seed,
		screen:         ScreenHome,
		researchPoints: cfg.SessionConfig.ResearchPoints,
		timeMultiplier: cfg.SessionConfig.TimeMultiplier,
	}
	for _, opt := range opts {
		opt(g)
	}

	if g.logger == nil {
		g.logger = logging.NewLogger()
	}
	if g.EventBus == nil {
		g.EventBus = event.NewEventBus()
	}
	if g.Catalog == nil {
		if err := g.loadCatalog(); err != nil {
			return nil, err
		}
	}
	if g.timeMultiplier <= 0 {
		g.timeMultiplier = 3
	}

	if s := cfg.SessionConfig.InitialScreen; s != "" {
		screen, err := ParseScreen(s)
		if err != nil {
			return nil, logging.WrapError(err, "invalid initial screen")
		}
		g.screen = screen
	}

	design, err := vab.ParseDesign(cfg.SessionConfig.InitialDesign)
	if err != nil {
		return nil, logging.WrapError(err, "invalid initial design")
	}
	if err := design.Validate(g.Catalog); err != nil {
		return nil, logging.WrapError(err, "invalid initial design")
	}
	unlocked := make([]part.Key, 0, len(cfg.SessionConfig.UnlockedParts))
	for _, k := range cfg.SessionConfig.UnlockedParts {
		unlocked = append(unlocked, part.Key(k))
	}
	g.builder = vab.NewBuilder(g.Catalog, design, unlocked)

	m, err := newMetrics(g)
	if err != nil {
		return nil, err
	}
	g.metrics = m

	return g, nil
}

func (g *Game) loadCatalog() error {
	if g.Config.CatalogPath == "" {
		g.Catalog = part.DefaultCatalog()
		return nil
	}
	c, err := part.LoadCatalog(g.Config.CatalogPath)
	if err != nil {
		return logging.WrapError(err, "failed to load part catalog %s", g.Config.CatalogPath)
	}
	g.Catalog = c
	return nil
}

// Start announces the session.
func (g *Game) Start() {
	g.EventBus.Publish(&event.BaseEvent{
		EventType: event.SessionStarted,
		Source:    g,
	})
}

// Stop halts auto-advance and announces the end of the session.
func (g *Game) Stop() {
	g.StopAutoAdvance()
	g.EventBus.Publish(&event.BaseEvent{
		EventType: event.SessionEnded,
		Source:    g,
	})
}

// Screen returns the current screen.
func (g *Game) Screen() Screen {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.screen
}

// HasFlight reports whether a flight exists.
func (g *Game) HasFlight() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.flight != nil
}

// FlightID returns the id of the current flight, or 0.
func (g *Game) FlightID() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.flightID
}

// TurnPeriod is the wall-clock length of one auto-advanced turn.
func (g *Game) TurnPeriod() time.Duration {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.turnPeriodLocked()
}

func (g *Game) turnPeriodLocked() time.Duration {
	return time.Duration(float64(time.Second) / g.timeMultiplier)
}

// SetTimeMultiplier changes the auto-advance speed.
func (g *Game) SetTimeMultiplier(m float64) error {
	if m <= 0 {
		return fmt.Errorf("time multiplier must be positive, got %v", m)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.timeMultiplier = m
	return nil
}

// startFlightLocked launches a new flight from the current design.
func (g *Game) startFlightLocked() error {
	opts := []flight.Option{flight.WithParams(g.params)}
	if g.seed != 0 {
		opts = append(opts, flight.WithSeed(g.seed+g.flightCount))
	}
	design := g.builder.Design()
	f, err := flight.New(design, g.Catalog, opts...)
	if err != nil {
		return logging.WrapError(err, "failed to start flight")
	}

	g.flightCount++
	g.flightID = g.flightCount
	g.flight = f

	ev := g.flightEventLocked(event.FlightStarted)
	ev.Design = design.String()
	g.queue(ev)
	return nil
}

// switchScreenLocked drops the held part, stops auto-advance and
// navigates. "flight" always launches a new rocket; "continue-flight"
// launches only when there is none.
func (g *Game) switchScreenLocked(where string) error {
	if where == GotoSelectedBuilding {
		where = Buildings[g.selectedBuilding].Goto
	}

	target := where
	if where == GotoContinueFlight {
		target = string(ScreenFlight)
	}
	screen, err := ParseScreen(target)
	if err != nil {
		return err
	}

	g.builder.Drop()
	g.stopAutoAdvanceLocked()

	if where == string(ScreenFlight) || (where == GotoContinueFlight && g.flight == nil) {
		if err := g.startFlightLocked(); err != nil {
			return err
		}
	}

	if screen != g.screen {
		g.queue(event.NewScreenEvent(g, string(g.screen), string(screen)))
	}
	g.screen = screen
	return nil
}

// runTurnLocked advances one whole turn.
func (g *Game) runTurnLocked() {
	g.beginTurnLocked()
	g.advanceTimeLocked(0.5)
	g.advanceTimeLocked(0.5)
	g.finishTurnLocked()
}

// beginTurnLocked applies the discrete part of a turn and the first time
// sub-step.
func (g *Game) beginTurnLocked() {
	f := g.flight
	before := f.Rocket
	f.AdvanceTurn(1)
	for i := range before {
		it, was := before[i].Item()
		if was && f.Rocket[i].IsEmpty() {
			g.queue(event.NewStageEvent(event.StageSeparated, g, g.flightID, i, string(it.Key)))
			break
		}
	}
}

func (g *Game) advanceTimeLocked(t float64) {
	f := g.flight
	wasDestroyed := f.Destroyed
	f.AdvanceTime(t, 1)
	if f.Destroyed && !wasDestroyed {
		g.metrics.destroy(context.Background())
		g.queue(g.flightEventLocked(event.FlightDestroyed))
	}
}

func (g *Game) finishTurnLocked() {
	g.turns++
	g.metrics.turn(context.Background())
	g.queue(g.flightEventLocked(event.TurnAdvanced))
}

func (g *Game) flightEventLocked(t event.Type) *event.FlightEvent {
	f := g.flight
	ev := event.NewFlightEvent(t, g, g.flightID)
	ev.Time = f.Time
	ev.Altitude = f.Computed.Altitude
	ev.Speed = f.Computed.Speed
	ev.Fuel = f.Computed.TotalFuel
	ev.Control = f.Control
	ev.Rotation = f.Rotation
	ev.Destroyed = f.Destroyed
	return ev
}

func (g *Game) queue(e event.Event) {
	g.pending = append(g.pending, e)
}

// unlockAndPublish releases the write lock and then delivers queued
// events, so handlers may call back into the game.
func (g *Game) unlockAndPublish() {
	events := g.pending
	g.pending = nil
	g.mu.Unlock()
	for _, e := range events {
		g.EventBus.Publish(e)
	}
}
