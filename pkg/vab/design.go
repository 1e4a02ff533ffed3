// Package vab implements the Vehicle Assembly Building: rocket designs,
// their summaries, and the interactive builder used to edit them.
package vab

import (
	"fmt"
	"strings"

	"github.com/opd-ai/go-rocketsim/pkg/part"
)

// Slots is the fixed height of a rocket stack.
const Slots = 10

// MinControl is the control budget below which a design is flagged.
const MinControl = 10

// Design is an ordered stack of part keys from the top (index 0) down.
// Empty slots hold part.None.
type Design [Slots]part.Key

// DefaultDesign is the rocket loaded on a fresh session.
func DefaultDesign() Design {
	return Design{"p", "c", "m", "b"}
}

// ParseDesign reads a design written one character per slot. A dot or
// space marks an empty slot.
func ParseDesign(s string) (Design, error) {
	var d Design
	runes := []rune(s)
	if len(runes) > Slots {
		return d, fmt.Errorf("design has %d slots, maximum is %d", len(runes), Slots)
	}
	for i, r := range runes {
		if r == '.' || r == ' ' {
			continue
		}
		d[i] = part.Key(string(r))
	}
	return d, nil
}

// String renders the design in the form ParseDesign accepts, without
// trailing empty slots.
func (d Design) String() string {
	var b strings.Builder
	last := -1
	for i, k := range d {
		if k != part.None {
			last = i
		}
	}
	for i := 0; i <= last; i++ {
		if d[i] == part.None {
			b.WriteByte('.')
			continue
		}
		b.WriteString(string(d[i]))
	}
	return b.String()
}

// Count returns the number of occupied slots.
func (d Design) Count() int {
	n := 0
	for _, k := range d {
		if k != part.None {
			n++
		}
	}
	return n
}

// Validate checks every occupied slot against the catalog.
func (d Design) Validate(c *part.Catalog) error {
	for i, k := range d {
		if k == part.None {
			continue
		}
		if _, err := c.Get(k); err != nil {
			return fmt.Errorf("slot %d: %w", i, err)
		}
	}
	return nil
}

// Summary holds design totals shown beside the stack.
type Summary struct {
	Mass       float64 `json:"mass"`
	Steering   float64 `json:"steering"`
	Control    float64 `json:"control"`
	Thrust     float64 `json:"thrust"`
	Fuel       float64 `json:"fuel"`
	Parts      int     `json:"parts"`
	LowControl bool    `json:"lowControl"`
}

// Summarize totals the design. Unknown keys are skipped.
func Summarize(d Design, c *part.Catalog) Summary {
	var s Summary
	for _, k := range d {
		p, ok := c.Lookup(k)
		if !ok {
			continue
		}
		s.Parts++
		s.Mass += p.Mass
		s.Steering += p.Steering
		s.Control += p.Control
		s.Thrust += p.Thrust
		s.Fuel += p.FuelCapacity
	}
	s.LowControl = s.Control < MinControl
	return s
}

// ControlLabel formats the control total, flagging designs below
// MinControl.
func (s Summary) ControlLabel() string {
	if s.LowControl {
		return fmt.Sprintf("%g (!!!)", s.Control)
	}
	return fmt.Sprintf("%g", s.Control)
}
