package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/opd-ai/go-rocketsim/pkg/event"
	"github.com/opd-ai/go-rocketsim/pkg/part"
	"github.com/opd-ai/go-rocketsim/pkg/vab"
)

// Command verbs understood by HandleCommand.
const (
	VerbActivate    = "activate"
	VerbAutoAdvance = "autoAdvance"
	VerbAdvance     = "advance"
	VerbClear       = "clear"
	VerbSteer       = "steer"
	VerbGoto        = "goto"
	VerbSelect      = "select"
	VerbUnlock      = "unlock"
	VerbZoom        = "zoom"
)

// Verbs lists every command verb.
var Verbs = []string{
	VerbActivate, VerbAutoAdvance, VerbAdvance, VerbClear, VerbSteer,
	VerbGoto, VerbSelect, VerbUnlock, VerbZoom,
}

// HandleCommand parses and executes one text command such as
// "steer left" or "select vabRocket 3".
func (g *Game) HandleCommand(ctx context.Context, cmd string) error {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return fmt.Errorf("%w: empty command", ErrUnknownCommand)
	}
	verb, args := fields[0], fields[1:]

	var err error
	switch verb {
	case VerbAutoAdvance:
		err = g.handleAutoAdvance(ctx, args)
	default:
		g.mu.Lock()
		err = g.dispatchLocked(verb, args)
		g.unlockAndPublish()
	}

	g.metrics.command(ctx, verb, err)
	if err != nil {
		g.logger.Debug(ctx, "command rejected", "command", cmd, "error", err.Error())
	}
	return err
}

func (g *Game) dispatchLocked(verb string, args []string) error {
	arg := func(i int) string {
		if i < len(args) {
			return args[i]
		}
		return ""
	}

	switch verb {
	case VerbActivate:
		if arg(0) != "stage" {
			break
		}
		return g.activateStageLocked()

	case VerbAdvance:
		if arg(0) != "turn" {
			break
		}
		if g.flight == nil {
			return ErrNoFlight
		}
		g.runTurnLocked()
		return nil

	case VerbClear:
		if arg(0) != "vab" {
			break
		}
		g.builder.Clear()
		return nil

	case VerbSteer:
		if g.flight == nil {
			return ErrNoFlight
		}
		switch arg(0) {
		case "left":
			g.flight.Steer(-1)
			return nil
		case "right":
			g.flight.Steer(1)
			return nil
		}

	case VerbGoto:
		if len(args) != 1 {
			break
		}
		return g.switchScreenLocked(args[0])

	case VerbSelect:
		return g.selectLocked(arg(0), arg(1))

	case VerbUnlock:
		if arg(0) != "selected-research-part" {
			break
		}
		return g.unlockSelectedLocked()

	case VerbZoom:
		if g.flight == nil {
			return ErrNoFlight
		}
		switch arg(0) {
		case "in":
			g.flight.ZoomIn()
			return nil
		case "out":
			g.flight.ZoomOut()
			return nil
		}
	}
	return fmt.Errorf("%w: %s %s", ErrUnknownCommand, verb, strings.Join(args, " "))
}

func (g *Game) activateStageLocked() error {
	f := g.flight
	if f == nil {
		return ErrNoFlight
	}
	next, ok := f.NextStage()
	if !ok || !f.ActivateNextStage() {
		return nil
	}
	g.metrics.stage(context.Background())
	g.queue(event.NewStageEvent(event.StageActivated, g, g.flightID, next.Index, string(next.Key)))
	return nil
}

func (g *Game) selectLocked(what, value string) error {
	switch what {
	case "building":
		step, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid building step %q: %w", value, err)
		}
		n := len(Buildings)
		g.selectedBuilding = ((g.selectedBuilding+step)%n + n) % n
		return nil

	case "vabPart":
		return g.builder.PickUp(part.Key(value))

	case "vabRocket":
		row, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid rocket row %q: %w", value, err)
		}
		if err := g.builder.Place(row); err != nil {
			return err
		}
		g.builder.Drop()
		return nil

	case "researchPart":
		for i, k := range g.Catalog.Keys() {
			if string(k) == value {
				g.selectedResearchPart = i
				return nil
			}
		}
		return fmt.Errorf("%w: %q", part.ErrUnknownPart, value)
	}
	return fmt.Errorf("%w: select %s %s", ErrUnknownCommand, what, value)
}

// unlockSelectedLocked spends research points on the selected part. Parts
// already unlocked and parts the session cannot afford are left alone.
func (g *Game) unlockSelectedLocked() error {
	keys := g.Catalog.Keys()
	if g.selectedResearchPart >= len(keys) {
		return nil
	}
	key := keys[g.selectedResearchPart]
	if g.builder.IsUnlocked(key) {
		return nil
	}
	p, err := g.Catalog.Get(key)
	if err != nil {
		return err
	}
	if p.ScienceCost > g.researchPoints {
		return nil
	}
	if err := g.builder.Unlock(key); err != nil {
		return err
	}
	g.researchPoints -= p.ScienceCost
	g.queue(event.NewPartEvent(g, string(key), p.ScienceCost))
	return nil
}

// AddResearchPoints credits the session with research points.
func (g *Game) AddResearchPoints(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.researchPoints += n
}

// SetDesign replaces the rocket under construction.
func (g *Game) SetDesign(d vab.Design) error {
	if err := d.Validate(g.Catalog); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.builder.SetDesign(d)
	return nil
}

func (g *Game) handleAutoAdvance(ctx context.Context, args []string) error {
	mode := ""
	if len(args) > 0 {
		mode = args[0]
	}
	switch mode {
	case "on":
		return g.AutoAdvance(ctx, 0)
	case "off":
		g.StopAutoAdvance()
		return nil
	case "toggle":
		if g.AutoAdvancing() {
			g.StopAutoAdvance()
			return nil
		}
		return g.AutoAdvance(ctx, 0)
	}
	return fmt.Errorf("%w: autoAdvance %s", ErrUnknownCommand, mode)
}
