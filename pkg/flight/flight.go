// Package flight simulates a rocket flying around a single planet. A Flight
// is advanced in whole turns, which apply steering and staging, and in
// continuous time steps, which integrate thrust, gravity, drag, and ground
// contact.
package flight

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/opd-ai/go-rocketsim/pkg/part"
	"github.com/opd-ai/go-rocketsim/pkg/physics"
	"github.com/opd-ai/go-rocketsim/pkg/vab"
)

// Random is the source of randomness for wind and wreckage.
type Random interface {
	Float64() float64
}

// Computed caches values derived from the flight state.
type Computed struct {
	Altitude        float64            `json:"altitude"`
	PlanetTheta     float64            `json:"planetTheta"`
	PlanetDegrees   float64            `json:"planetDegrees"`
	MaxSteering     float64            `json:"maxSteering"`
	MaxControl      float64            `json:"maxControl"`
	TotalFuel       float64            `json:"totalFuel"`
	Speed           float64            `json:"speed"`
	VelocityDegrees float64            `json:"velocityDegrees"`
	Mass            float64            `json:"mass"`
	Trajectory      []physics.Vector2D `json:"trajectory"`
	Apoapsis        float64            `json:"apoapsis"`
	Periapsis       float64            `json:"periapsis"`
}

// Flight is the mutable state of one rocket in flight. It is not safe for
// concurrent use.
type Flight struct {
	Rocket    [vab.Slots]Slot  `json:"rocket"`
	Position  physics.Vector2D `json:"position"`
	Velocity  physics.Vector2D `json:"velocity"`
	Rotation  float64          `json:"rotation"`
	Throttle  float64          `json:"throttle"`
	Steering  float64          `json:"steering"`
	Control   float64          `json:"control"`
	Time      float64          `json:"time"`
	Zoom      float64          `json:"zoom"`
	Path      Path             `json:"path"`
	Destroyed bool             `json:"destroyed"`
	Computed  Computed         `json:"computed"`

	catalog *part.Catalog
	params  Params
	rng     Random
	seed    uint64
	clone   bool
}

// Option configures a Flight.
type Option func(*Flight)

// WithRandom sets the random source used for wind and wreckage.
func WithRandom(r Random) Option {
	return func(f *Flight) { f.rng = r }
}

// WithSeed seeds the default random source.
func WithSeed(seed uint64) Option {
	return func(f *Flight) { f.seed = seed }
}

// WithParams overrides the simulation constants.
func WithParams(p Params) Option {
	return func(f *Flight) { f.params = p }
}

// New creates a flight on the launch pad from design, ready to fly. Every
// occupied slot becomes an inactive item with a full tank.
func New(design vab.Design, catalog *part.Catalog, opts ...Option) (*Flight, error) {
	f := &Flight{
		catalog: catalog,
		params:  DefaultParams(),
		seed:    uint64(time.Now().UnixNano()),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.rng == nil {
		f.rng = rand.New(rand.NewPCG(f.seed, f.seed^0x9e3779b97f4a7c15))
	}

	for i, key := range design {
		if key == part.None {
			continue
		}
		p, err := catalog.Get(key)
		if err != nil {
			return nil, fmt.Errorf("slot %d: %w", i, err)
		}
		f.Rocket[i] = Occupied(Item{Index: i, Key: key, Fuel: p.FuelCapacity})
	}

	f.Position = physics.Vector2D{X: f.params.Planet.Radius}
	f.Zoom = f.params.InitialZoom
	f.Setup()
	return f, nil
}

// Setup computes derived values and fills the control budget.
func (f *Flight) Setup() {
	f.Compute()
	f.Control = f.Computed.MaxControl
}

// Params returns the simulation constants.
func (f *Flight) Params() Params { return f.params }

// Catalog returns the part catalog the flight looks parts up in.
func (f *Flight) Catalog() *part.Catalog { return f.catalog }

// IsClone reports whether f is a look-ahead copy.
func (f *Flight) IsClone() bool { return f.clone }

// Compute refreshes the derived values. The trajectory and apsides are
// left untouched.
func (f *Flight) Compute() Computed {
	r, theta := f.Position.Polar()
	c := &f.Computed
	c.Altitude = r - f.params.Planet.Radius
	c.PlanetTheta = theta
	c.PlanetDegrees = physics.RadiansToDegrees(theta)
	c.MaxSteering, c.MaxControl, c.TotalFuel = 0, 0, 0
	f.eachItem(func(it *Item, p part.Part) {
		c.MaxSteering += p.Steering
		c.MaxControl += p.Control
		c.TotalFuel += it.Fuel
	})
	c.Speed = f.Velocity.Length()
	c.VelocityDegrees = f.Velocity.Heading()
	c.Mass = f.CalcMass()
	return *c
}

// CalcMass returns the current total mass, floored at the minimum mass.
func (f *Flight) CalcMass() float64 {
	mass := 0.0
	f.eachItem(func(it *Item, p part.Part) {
		mass += p.MassWithFuel(it.Fuel)
	})
	return math.Max(mass, f.params.MinMass)
}

// Items returns copies of every occupied slot's item, top first.
func (f *Flight) Items() []Item {
	var out []Item
	for _, s := range f.Rocket {
		if it, ok := s.Item(); ok {
			out = append(out, it)
		}
	}
	return out
}

// OccupiedCount returns the number of parts still attached.
func (f *Flight) OccupiedCount() int {
	n := 0
	for _, s := range f.Rocket {
		if !s.IsEmpty() {
			n++
		}
	}
	return n
}

// eachItem calls fn for every occupied slot whose part is in the catalog.
// Changes fn makes to the item are stored back.
func (f *Flight) eachItem(fn func(it *Item, p part.Part)) {
	for i := range f.Rocket {
		it, ok := f.Rocket[i].Item()
		if !ok {
			continue
		}
		p, ok := f.catalog.Lookup(it.Key)
		if !ok {
			continue
		}
		fn(&it, p)
		f.Rocket[i] = Occupied(it)
	}
}

// removePart empties slot i.
func (f *Flight) removePart(i int) {
	if i >= 0 && i < len(f.Rocket) {
		f.Rocket[i] = Empty()
	}
}
