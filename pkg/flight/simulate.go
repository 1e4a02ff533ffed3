package flight

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"

	"github.com/opd-ai/go-rocketsim/pkg/part"
	"github.com/opd-ai/go-rocketsim/pkg/physics"
)

// AdvanceTurn runs one discrete turn of length t: the lowest active
// separator drops, accumulated steering turns the rocket, and one point
// of control regenerates.
func (f *Flight) AdvanceTurn(t float64) {
	sep := -1
	f.eachItem(func(it *Item, p part.Part) {
		if it.Active && p.Has(part.CapSeparates) {
			sep = it.Index
		}
	})
	if sep >= 0 {
		f.Separate(sep)
	}
	f.Compute()

	f.Rotation += f.Steering * t * f.params.SteerMultiplier
	f.Steering = 0
	f.Control = math.Min(f.Computed.MaxControl, f.Control+1)
}

// Separate drops the part at index and everything below it.
func (f *Flight) Separate(index int) {
	for i := len(f.Rocket) - 1; i >= index && i >= 0; i-- {
		f.removePart(i)
	}
}

// AdvanceTime integrates the flight forward by t. wind scales the
// atmospheric turbulence; zero disables it.
func (f *Flight) AdvanceTime(t, wind float64) {
	f.Time += t
	if f.params.PathInterval > 0 && math.Mod(f.Time, f.params.PathInterval) == 0 {
		f.Path.Push(f.Position)
		f.ComputeTrajectory()
	}

	thrust := f.burn(t)
	mass := f.CalcMass()
	acc := physics.FromHeading(f.Rotation, thrust).Scale(1 / mass)

	f.applyWind(t * wind)
	f.physics(t, acc, mass)
	f.Compute()
}

// burn drains fuel from every active engine and returns the thrust they
// produce over t.
func (f *Flight) burn(t float64) float64 {
	desired := f.params.BurnRate * t
	thrust := 0.0
	f.eachItem(func(it *Item, p part.Part) {
		if !it.Active || it.Fuel <= 0 || !p.Has(part.CapThrust) {
			return
		}
		amount := math.Min(it.Fuel, desired)
		it.Fuel -= amount
		if desired > 0 {
			thrust += p.Thrust * (amount / desired)
		}
	})
	return thrust
}

// applyWind perturbs the rotation with zero-mean noise whose strength
// peaks halfway up the atmosphere.
func (f *Flight) applyWind(t float64) {
	c := f.Compute()
	if c.Altitude > f.params.Planet.AtmosphereHeight {
		return
	}
	half := f.params.Planet.AtmosphereHeight / 2
	if half == 0 {
		return
	}
	strength := math.Sin(c.Altitude/half*(math.Pi/2)) * f.params.WindStrength * t
	if strength == 0 {
		return
	}
	f.Rotation += f.rng.Float64()*strength - f.rng.Float64()*strength
}

func (f *Flight) physics(t float64, acc physics.Vector2D, mass float64) {
	planet := f.params.Planet
	c := f.Compute()
	if c.Altitude > 0 {
		f.Velocity = f.Velocity.Add(planet.GravityAt(c.PlanetTheta).Scale(t))
		if planet.InAtmosphere(c.Altitude) {
			drag := planet.Drag(f.Velocity, c.Altitude).Scale(1 / mass)
			f.Velocity = f.Velocity.Add(drag.Scale(t))
		}
	}

	f.Velocity = f.Velocity.Add(acc.Scale(t))
	f.Position = f.Position.Add(f.Velocity.Scale(t))

	c = f.Compute()
	if c.Altitude >= 0 {
		return
	}
	if c.Speed > f.params.CrashSpeed {
		f.Destroy()
	}
	f.Position = planet.SurfacePoint(c.PlanetTheta)
	f.Velocity = physics.Vector2D{
		X: f.Velocity.X * f.params.BounceFriction,
		Y: f.Velocity.Y * -f.params.BounceRestitution,
	}
	f.Compute()
}

// ComputeTrajectory predicts the path ahead by flying a wind-free clone.
// It does nothing on a clone.
func (f *Flight) ComputeTrajectory() {
	if f.clone {
		return
	}
	sim := f.Clone()
	traj := make([]physics.Vector2D, 0, f.params.TrajectorySteps)
	alts := make([]float64, 0, f.params.TrajectorySteps)
	for i := 0; i < f.params.TrajectorySteps; i++ {
		sim.AdvanceTime(f.params.TrajectoryStep, 0)
		traj = append(traj, sim.Position)
		alts = append(alts, sim.Computed.Altitude)
	}
	f.Computed.Trajectory = traj
	f.Computed.Apoapsis, f.Computed.Periapsis = 0, 0
	if len(alts) > 0 {
		f.Computed.Apoapsis = floats.Max(alts)
		f.Computed.Periapsis = floats.Min(alts)
	}
}

// Clone returns an independent look-ahead copy. The copy has its own
// random source so flying it leaves the original untouched, and it never
// predicts trajectories itself.
func (f *Flight) Clone() *Flight {
	c := *f
	c.clone = true
	c.Computed.Trajectory = nil
	c.rng = rand.New(rand.NewPCG(f.seed, math.Float64bits(f.Time)))
	return &c
}

// Destroy wrecks the rocket: each attached part breaks off with the
// wreck chance.
func (f *Flight) Destroy() {
	for i, s := range f.Rocket {
		if s.IsEmpty() {
			continue
		}
		if f.rng.Float64() < f.params.WreckChance {
			f.removePart(i)
		}
	}
	f.Destroyed = true
}
