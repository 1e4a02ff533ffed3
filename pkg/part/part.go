// Package part defines rocket parts and the catalog flights look them up in.
package part

import (
	"math"
)

// Key identifies a part in the catalog. Keys are a single character so
// they double as keyboard shortcuts in the assembly building.
type Key string

// None marks an empty rocket slot.
const None Key = ""

// Capability is a tagged flag describing what a part can do.
type Capability uint8

const (
	CapThrust Capability = 1 << iota
	CapFuel
	CapSeparates
	CapSteering
	CapControl
)

// String returns a short name for the capability set.
func (c Capability) String() string {
	names := []struct {
		flag Capability
		name string
	}{
		{CapThrust, "thrust"},
		{CapFuel, "fuel"},
		{CapSeparates, "separates"},
		{CapSteering, "steering"},
		{CapControl, "control"},
	}
	out := ""
	for _, n := range names {
		if c&n.flag == 0 {
			continue
		}
		if out != "" {
			out += "|"
		}
		out += n.name
	}
	if out == "" {
		return "none"
	}
	return out
}

// Connectors lists attachment points as top, right, bottom, left.
type Connectors [4]int

// Common connector layouts.
var (
	TopBottom = Connectors{1, 0, 1, 0}
	Bottom    = Connectors{0, 0, 1, 0}
	Top       = Connectors{1, 0, 0, 0}
	Sides     = Connectors{0, 1, 0, 1}
)

// Part is an immutable catalog entry.
type Part struct {
	Key          Key        `json:"key"`
	Name         string     `json:"name"`
	ScienceCost  int        `json:"scienceCost"`
	Connectors   Connectors `json:"connectors"`
	Mass         float64    `json:"mass"`
	DryMass      float64    `json:"dryMass,omitempty"`
	Thrust       float64    `json:"thrust,omitempty"`
	FuelCapacity float64    `json:"fuel,omitempty"`
	Steering     float64    `json:"steering,omitempty"`
	Control      float64    `json:"control,omitempty"`
	Complexity   int        `json:"complexity,omitempty"`
	Separates    bool       `json:"separates,omitempty"`
	Polygon      []float64  `json:"polygonPoints"`

	// Derived by the catalog.
	Width  float64    `json:"-"`
	Height float64    `json:"-"`
	Caps   Capability `json:"-"`
}

// Has reports whether the part carries every capability in c.
func (p Part) Has(c Capability) bool {
	return p.Caps&c == c
}

// MassWithFuel returns the part's mass when carrying fuel units of fuel.
// Parts without tanks always weigh their dry mass.
func (p Part) MassWithFuel(fuel float64) float64 {
	if !p.Has(CapFuel) {
		return p.DryMass
	}
	return p.DryMass + (fuel/p.FuelCapacity)*(p.Mass-p.DryMass)
}

// normalize fills defaults and derived fields.
func (p Part) normalize() Part {
	if p.DryMass == 0 {
		p.DryMass = p.Mass
	}
	p.Caps = 0
	if p.Thrust > 0 {
		p.Caps |= CapThrust
	}
	if p.FuelCapacity > 0 {
		p.Caps |= CapFuel
	}
	if p.Separates {
		p.Caps |= CapSeparates
	}
	if p.Steering > 0 {
		p.Caps |= CapSteering
	}
	if p.Control > 0 {
		p.Caps |= CapControl
	}
	p.Width, p.Height = footprint(p.Polygon)
	p.Polygon = append([]float64(nil), p.Polygon...)
	return p
}

// footprint returns the bounding box size of an x,y,x,y... outline.
func footprint(points []float64) (width, height float64) {
	if len(points) < 2 {
		return 0, 0
	}
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for i, n := range points {
		if i%2 == 1 {
			minY = math.Min(minY, n)
			maxY = math.Max(maxY, n)
			continue
		}
		minX = math.Min(minX, n)
		maxX = math.Max(maxX, n)
	}
	return maxX - minX, maxY - minY
}
