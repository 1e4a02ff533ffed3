package flight

import (
	"math"

	"github.com/opd-ai/go-rocketsim/pkg/part"
)

// Steer adds amount to the steering accumulator, spending the same
// amount of control. It does nothing and returns false when steering is
// already saturated or control is exhausted. Steering never leaves
// [-MaxSteering, MaxSteering].
func (f *Flight) Steer(amount float64) bool {
	maxSteering := f.Computed.MaxSteering
	if amount == 0 || math.Abs(f.Steering) >= maxSteering || f.Control <= 0 {
		return false
	}
	quantity := math.Min(f.Control, math.Abs(amount))
	next := f.Steering + math.Copysign(quantity, amount)
	next = math.Max(-maxSteering, math.Min(maxSteering, next))
	f.Control -= math.Abs(next - f.Steering)
	f.Steering = next
	return true
}

// NextStage returns the lowest inactive item that can be staged: a
// fueled engine or a separator.
func (f *Flight) NextStage() (Item, bool) {
	for i := len(f.Rocket) - 1; i >= 0; i-- {
		it, ok := f.Rocket[i].Item()
		if !ok || it.Active {
			continue
		}
		p, ok := f.catalog.Lookup(it.Key)
		if !ok {
			continue
		}
		if p.Has(part.CapThrust) && it.Fuel > 0 {
			return it, true
		}
		if p.Has(part.CapSeparates) {
			return it, true
		}
	}
	return Item{}, false
}

// ActivateNextStage spends the staging cost to activate NextStage. It
// returns false, leaving the flight unchanged, when control is short or
// nothing is left to stage.
func (f *Flight) ActivateNextStage() bool {
	if f.Control < f.params.StageControlCost {
		return false
	}
	it, ok := f.NextStage()
	if !ok {
		return false
	}
	f.Control -= f.params.StageControlCost
	it.Active = true
	f.Rocket[it.Index] = Occupied(it)
	return true
}

// ZoomIn increases the view zoom.
func (f *Flight) ZoomIn() {
	if f.Zoom < 1 {
		f.Zoom += 0.1
	} else {
		f.Zoom++
	}
	f.Zoom = roundZoom(math.Min(f.Zoom, f.params.MaxZoom))
}

// ZoomOut decreases the view zoom.
func (f *Flight) ZoomOut() {
	if f.Zoom > 1 {
		f.Zoom--
	} else {
		f.Zoom -= 0.1
	}
	f.Zoom = roundZoom(math.Max(f.Zoom, f.params.MinZoom))
}

func roundZoom(z float64) float64 {
	return math.Round(z*10) / 10
}
