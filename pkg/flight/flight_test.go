package flight

import (
	"encoding/json"
	"strings"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"

	"github.com/opd-ai/go-rocketsim/pkg/part"
	"github.com/opd-ai/go-rocketsim/pkg/physics"
	"github.com/opd-ai/go-rocketsim/pkg/vab"
)

const tol = 1e-9

// fixedRandom always returns the same value.
type fixedRandom float64

func (r fixedRandom) Float64() float64 { return float64(r) }

// sequenceRandom replays values in order and counts draws.
type sequenceRandom struct {
	values []float64
	draws  int
}

func (r *sequenceRandom) Float64() float64 {
	v := r.values[r.draws%len(r.values)]
	r.draws++
	return v
}

func newFlight(t *testing.T, design string, opts ...Option) *Flight {
	t.Helper()
	d, err := vab.ParseDesign(design)
	if err != nil {
		t.Fatalf("ParseDesign(%q) error = %v", design, err)
	}
	f, err := New(d, part.DefaultCatalog(), opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return f
}

func TestNew_LaunchState(t *testing.T) {
	f := newFlight(t, "pcmb")

	if got := f.OccupiedCount(); got != 4 {
		t.Errorf("OccupiedCount() = %d, expected 4", got)
	}
	booster, ok := f.Rocket[3].Item()
	if !ok || booster.Key != "b" || booster.Fuel != 180 || booster.Active {
		t.Errorf("Rocket[3] = %+v, expected inactive full booster", booster)
	}
	if f.Position != (physics.Vector2D{X: 600000}) {
		t.Errorf("Position = %v, expected launch pad", f.Position)
	}
	if f.Zoom != 5 {
		t.Errorf("Zoom = %v, expected 5", f.Zoom)
	}
	if f.Control != 15 {
		t.Errorf("Control = %v, expected 15", f.Control)
	}
	c := f.Computed
	if c.MaxSteering != 3 || c.MaxControl != 15 || c.TotalFuel != 180 {
		t.Errorf("Computed = %+v", c)
	}
	if !scalar.EqualWithinAbs(c.Mass, 9, tol) {
		t.Errorf("Mass = %v, expected 9", c.Mass)
	}
	if c.Altitude != 0 {
		t.Errorf("Altitude = %v, expected 0", c.Altitude)
	}
}

func TestNew_UnknownPart(t *testing.T) {
	_, err := New(vab.Design{"c", "z"}, part.DefaultCatalog())
	if err == nil {
		t.Fatal("New() accepted unknown part")
	}
	if !strings.Contains(err.Error(), "slot 1") {
		t.Errorf("error = %v, expected slot index", err)
	}
}

func TestCompute_EmptyRocket(t *testing.T) {
	f := newFlight(t, "")
	c := f.Compute()

	if c.MaxControl != 0 || c.MaxSteering != 0 || c.TotalFuel != 0 {
		t.Errorf("Computed = %+v, expected zero totals", c)
	}
	if c.Mass != 0.1 {
		t.Errorf("Mass = %v, expected floor 0.1", c.Mass)
	}
	if f.ActivateNextStage() {
		t.Error("ActivateNextStage() succeeded on empty rocket")
	}
	f.AdvanceTurn(1)
	f.AdvanceTime(1, 1)
}

func TestCalcMass_FuelBounds(t *testing.T) {
	f := newFlight(t, "b")
	booster, _ := part.DefaultCatalog().Lookup("b")

	tests := []struct {
		fuel     float64
		expected float64
	}{
		{180, 4},
		{0, 2},
		{45, 2.5},
	}

	for _, tt := range tests {
		it, _ := f.Rocket[0].Item()
		it.Fuel = tt.fuel
		f.Rocket[0] = Occupied(it)
		got := f.CalcMass()
		if !scalar.EqualWithinAbs(got, tt.expected, tol) {
			t.Errorf("CalcMass() with fuel %v = %v, expected %v", tt.fuel, got, tt.expected)
		}
		if got < booster.DryMass || got > booster.Mass {
			t.Errorf("CalcMass() = %v outside [%v, %v]", got, booster.DryMass, booster.Mass)
		}
	}
}

func TestSteer_Saturates(t *testing.T) {
	f := newFlight(t, "pcmb")
	for i := 0; i < 20; i++ {
		f.Steer(1)
	}
	if f.Steering != 3 {
		t.Errorf("Steering = %v, expected saturation at 3", f.Steering)
	}
	if f.Control != 12 {
		t.Errorf("Control = %v, expected 12", f.Control)
	}

	f.AdvanceTurn(1)
	if f.Rotation != 9 {
		t.Errorf("Rotation = %v, expected 9", f.Rotation)
	}
	if f.Steering != 0 {
		t.Errorf("Steering = %v after turn, expected 0", f.Steering)
	}
}

func TestSteer_BoosterOnly(t *testing.T) {
	f := newFlight(t, "b")
	for i := 0; i < 20; i++ {
		if f.Steer(1) {
			t.Fatal("Steer() applied without steering authority")
		}
	}
	if f.Steering != 0 {
		t.Errorf("Steering = %v, expected 0", f.Steering)
	}
}

func TestSteer_Guards(t *testing.T) {
	tests := []struct {
		name     string
		control  float64
		amount   float64
		applied  bool
		steering float64
	}{
		{"no_control", 0, 1, false, 0},
		{"zero_amount", 15, 0, false, 0},
		{"partial_control", 0.5, -1, true, -0.5},
		{"large_amount_clamped", 15, 10, true, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFlight(t, "pcmb")
			f.Control = tt.control
			if got := f.Steer(tt.amount); got != tt.applied {
				t.Errorf("Steer(%v) = %v, expected %v", tt.amount, got, tt.applied)
			}
			if f.Steering != tt.steering {
				t.Errorf("Steering = %v, expected %v", f.Steering, tt.steering)
			}
			if f.Control < 0 {
				t.Errorf("Control = %v went negative", f.Control)
			}
		})
	}
}

func TestAdvanceTurn_ControlRegenerates(t *testing.T) {
	f := newFlight(t, "pcmb")
	f.Control = 12

	for i, expected := range []float64{13, 14, 15, 15, 15} {
		f.AdvanceTurn(1)
		if f.Control != expected {
			t.Errorf("turn %d: Control = %v, expected %v", i, f.Control, expected)
		}
		if f.Control > f.Computed.MaxControl {
			t.Errorf("turn %d: Control %v exceeds max %v", i, f.Control, f.Computed.MaxControl)
		}
	}
}

func TestActivateNextStage(t *testing.T) {
	f := newFlight(t, "ceb")

	next, ok := f.NextStage()
	if !ok || next.Key != "b" {
		t.Fatalf("NextStage() = %+v, %v, expected booster", next, ok)
	}
	if !f.ActivateNextStage() {
		t.Fatal("ActivateNextStage() failed with full control")
	}
	if f.Control != 5 {
		t.Errorf("Control = %v, expected 5", f.Control)
	}
	if it, _ := f.Rocket[2].Item(); !it.Active {
		t.Error("booster not active")
	}

	if f.ActivateNextStage() {
		t.Error("ActivateNextStage() succeeded with insufficient control")
	}
	if it, _ := f.Rocket[1].Item(); it.Active {
		t.Error("separator activated without control")
	}

	f.Control = 10
	next, ok = f.NextStage()
	if !ok || next.Key != "e" {
		t.Fatalf("NextStage() = %+v, %v, expected separator", next, ok)
	}
	if !f.ActivateNextStage() {
		t.Fatal("ActivateNextStage() failed for separator")
	}
	if _, ok := f.NextStage(); ok {
		t.Error("NextStage() found a stage after everything was staged")
	}
}

func TestNextStage_SkipsEmptyBooster(t *testing.T) {
	f := newFlight(t, "cbb")
	it, _ := f.Rocket[2].Item()
	it.Fuel = 0
	f.Rocket[2] = Occupied(it)

	next, ok := f.NextStage()
	if !ok || next.Index != 1 {
		t.Errorf("NextStage() = %+v, %v, expected index 1", next, ok)
	}
}

func TestAdvanceTurn_Separation(t *testing.T) {
	f := newFlight(t, "ceb")
	f.ActivateNextStage()
	f.Control = 10
	f.ActivateNextStage()

	f.AdvanceTurn(1)

	if f.Rocket[0].IsEmpty() {
		t.Error("capsule above separator was dropped")
	}
	for i := 1; i < len(f.Rocket); i++ {
		if !f.Rocket[i].IsEmpty() {
			t.Errorf("Rocket[%d] still occupied after separation", i)
		}
	}
	if f.Computed.TotalFuel != 0 {
		t.Errorf("TotalFuel = %v, expected 0 after dropping booster", f.Computed.TotalFuel)
	}
}

func TestAdvanceTurn_OneSeparationPerTurn(t *testing.T) {
	f := newFlight(t, "ceoeb")
	for _, i := range []int{1, 3} {
		it, _ := f.Rocket[i].Item()
		it.Active = true
		f.Rocket[i] = Occupied(it)
	}

	f.AdvanceTurn(1)
	if got := f.OccupiedCount(); got != 3 {
		t.Fatalf("OccupiedCount() = %d after first turn, expected 3", got)
	}
	if f.Rocket[1].IsEmpty() {
		t.Error("upper separator dropped in the same turn")
	}

	f.AdvanceTurn(1)
	if got := f.OccupiedCount(); got != 1 {
		t.Errorf("OccupiedCount() = %d after second turn, expected 1", got)
	}
}

func TestAdvanceTime_Burn(t *testing.T) {
	f := newFlight(t, "pcmb", WithRandom(fixedRandom(0.5)))
	f.ActivateNextStage()

	f.AdvanceTime(1, 0)

	it, _ := f.Rocket[3].Item()
	if it.Fuel != 175 {
		t.Errorf("Fuel = %v, expected 175", it.Fuel)
	}
	if f.Position.X <= 600000 {
		t.Errorf("Position = %v, expected lift off", f.Position)
	}
	if f.Time != 1 {
		t.Errorf("Time = %v, expected 1", f.Time)
	}

	it.Fuel = 2
	f.Rocket[3] = Occupied(it)
	f.AdvanceTime(1, 0)
	if it, _ := f.Rocket[3].Item(); it.Fuel != 0 {
		t.Errorf("Fuel = %v, expected 0 after partial burn", it.Fuel)
	}
}

func TestAdvanceTime_FuelNeverIncreases(t *testing.T) {
	f := newFlight(t, "pcmb", WithSeed(7))
	f.ActivateNextStage()

	prev := f.Computed.TotalFuel
	for i := 0; i < 50; i++ {
		f.AdvanceTime(0.5, 1)
		if f.Computed.TotalFuel > prev {
			t.Fatalf("step %d: TotalFuel rose from %v to %v", i, prev, f.Computed.TotalFuel)
		}
		if prev-f.Computed.TotalFuel > 2.5+tol {
			t.Fatalf("step %d: burned %v, expected at most 2.5", i, prev-f.Computed.TotalFuel)
		}
		prev = f.Computed.TotalFuel
	}
}

func TestAdvanceTime_PathBound(t *testing.T) {
	f := newFlight(t, "pcmb")
	for i := 0; i < 300; i++ {
		f.AdvanceTime(1, 1)
	}
	if got := f.Path.Len(); got != MaxPath {
		t.Errorf("Path.Len() = %d, expected %d", got, MaxPath)
	}
	if len(f.Computed.Trajectory) != 15 {
		t.Errorf("len(Trajectory) = %d, expected 15", len(f.Computed.Trajectory))
	}
}

func TestComputeTrajectory_Isolation(t *testing.T) {
	f := newFlight(t, "pcmb")
	f.ActivateNextStage()
	f.AdvanceTime(1, 0)

	rocket, pos, vel, tm := f.Rocket, f.Position, f.Velocity, f.Time
	pathLen := f.Path.Len()

	f.ComputeTrajectory()

	if f.Rocket != rocket {
		t.Error("ComputeTrajectory() changed the rocket")
	}
	if f.Position != pos || f.Velocity != vel || f.Time != tm {
		t.Error("ComputeTrajectory() changed the live state")
	}
	if f.Path.Len() != pathLen {
		t.Error("ComputeTrajectory() changed the path")
	}
	if len(f.Computed.Trajectory) != 15 {
		t.Fatalf("len(Trajectory) = %d, expected 15", len(f.Computed.Trajectory))
	}
	if f.Computed.Apoapsis < f.Computed.Periapsis {
		t.Errorf("Apoapsis %v below Periapsis %v", f.Computed.Apoapsis, f.Computed.Periapsis)
	}
	if f.Computed.Apoapsis <= 0 {
		t.Errorf("Apoapsis = %v, expected a climb while the booster burns", f.Computed.Apoapsis)
	}
}

func TestComputeTrajectory_CloneDoesNotRecurse(t *testing.T) {
	f := newFlight(t, "pcmb")
	c := f.Clone()
	if !c.IsClone() || f.IsClone() {
		t.Fatal("IsClone() flags wrong")
	}
	c.ComputeTrajectory()
	if c.Computed.Trajectory != nil {
		t.Errorf("clone computed a trajectory of %d points", len(c.Computed.Trajectory))
	}
}

func TestClone_Independent(t *testing.T) {
	f := newFlight(t, "pcmb")
	f.ActivateNextStage()
	c := f.Clone()
	c.AdvanceTime(8, 0)

	it, _ := f.Rocket[3].Item()
	if it.Fuel != 180 {
		t.Errorf("live Fuel = %v after flying clone", it.Fuel)
	}
	if f.Time != 0 {
		t.Errorf("live Time = %v after flying clone", f.Time)
	}
}

func TestPhysics_Impact(t *testing.T) {
	tests := []struct {
		name      string
		random    float64
		velocity  float64
		destroyed bool
		remaining int
	}{
		{"crash_wrecks_all", 0.5, -100, true, 0},
		{"crash_wrecks_none", 0.9, -100, true, 4},
		{"soft_landing", 0.5, -20, false, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFlight(t, "pcmb", WithRandom(fixedRandom(tt.random)))
			f.Position = physics.Vector2D{X: 600010}
			f.Velocity = physics.Vector2D{X: tt.velocity}
			before := f.OccupiedCount()

			f.AdvanceTime(1, 0)

			if f.Destroyed != tt.destroyed {
				t.Errorf("Destroyed = %v, expected %v", f.Destroyed, tt.destroyed)
			}
			if got := f.OccupiedCount(); got != tt.remaining || got > before {
				t.Errorf("OccupiedCount() = %d, expected %d", got, tt.remaining)
			}
			if !scalar.EqualWithinAbs(f.Computed.Altitude, 0, 1e-6) {
				t.Errorf("Altitude = %v, expected clamped to surface", f.Computed.Altitude)
			}
			if f.Velocity.X >= 0 || f.Velocity.X < tt.velocity-9.8 {
				t.Errorf("Velocity.X = %v, expected damped inward speed", f.Velocity.X)
			}
		})
	}
}

func TestApplyWind(t *testing.T) {
	tests := []struct {
		name     string
		altitude float64
		values   []float64
		expected float64
		draws    int
	}{
		{"peak_push_left", 35000, []float64{1, 0}, 12, 2},
		{"peak_push_right", 35000, []float64{0, 1}, -12, 2},
		{"space", 80000, []float64{1, 0}, 0, 0},
		{"ground", 0, []float64{1, 0}, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := &sequenceRandom{values: tt.values}
			f := newFlight(t, "pcmb", WithRandom(rng))
			f.Position = physics.Vector2D{Y: 600000 + tt.altitude}

			f.applyWind(1)

			if !scalar.EqualWithinAbs(f.Rotation, tt.expected, 1e-6) {
				t.Errorf("Rotation = %v, expected %v", f.Rotation, tt.expected)
			}
			if rng.draws != tt.draws {
				t.Errorf("draws = %d, expected %d", rng.draws, tt.draws)
			}
		})
	}
}

func TestApplyWind_Bounded(t *testing.T) {
	f := newFlight(t, "pcmb", WithSeed(42))
	f.Position = physics.Vector2D{X: 600000 + 20000}
	for i := 0; i < 100; i++ {
		before := f.Rotation
		f.applyWind(0.5)
		if d := f.Rotation - before; d > 6 || d < -6 {
			t.Fatalf("wind turned rocket by %v, expected within 6", d)
		}
	}
}

func TestWithSeed_Deterministic(t *testing.T) {
	fly := func() float64 {
		f := newFlight(t, "pcmb", WithSeed(99))
		f.ActivateNextStage()
		for i := 0; i < 20; i++ {
			f.AdvanceTurn(1)
			f.AdvanceTime(0.5, 1)
			f.AdvanceTime(0.5, 1)
		}
		return f.Rotation
	}
	if a, b := fly(), fly(); a != b {
		t.Errorf("seeded flights diverged: %v vs %v", a, b)
	}
}

func TestZoom(t *testing.T) {
	f := newFlight(t, "pcmb")
	for i := 0; i < 40; i++ {
		f.ZoomIn()
	}
	if f.Zoom != 30 {
		t.Errorf("Zoom = %v, expected 30", f.Zoom)
	}

	f.Zoom = 2
	expected := []float64{1, 0.9, 0.8, 0.7, 0.6, 0.5, 0.4, 0.3, 0.2, 0.1, 0.1}
	for i, e := range expected {
		f.ZoomOut()
		if f.Zoom != e {
			t.Errorf("ZoomOut() step %d: Zoom = %v, expected %v", i, f.Zoom, e)
		}
	}

	f.ZoomIn()
	if f.Zoom != 0.2 {
		t.Errorf("ZoomIn() from 0.1 = %v, expected 0.2", f.Zoom)
	}
}

func TestPath_Ring(t *testing.T) {
	var p Path
	if _, ok := p.Last(); ok {
		t.Error("Last() on empty path reported a point")
	}
	for i := 0; i < 150; i++ {
		p.Push(physics.Vector2D{X: float64(i)})
	}
	pts := p.Points()
	if len(pts) != MaxPath {
		t.Fatalf("len(Points()) = %d", len(pts))
	}
	if pts[0].X != 50 || pts[MaxPath-1].X != 149 {
		t.Errorf("Points() spans %v..%v, expected 50..149", pts[0].X, pts[MaxPath-1].X)
	}
	if last, _ := p.Last(); last.X != 149 {
		t.Errorf("Last() = %v", last)
	}
}

func TestFlight_JSON(t *testing.T) {
	f := newFlight(t, "c.b")
	data, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var decoded struct {
		Rocket []*Item `json:"rocket"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if decoded.Rocket[1] != nil {
		t.Errorf("empty slot encoded as %+v, expected null", decoded.Rocket[1])
	}
	if decoded.Rocket[2] == nil || decoded.Rocket[2].Key != "b" {
		t.Errorf("Rocket[2] = %+v, expected booster", decoded.Rocket[2])
	}
}
