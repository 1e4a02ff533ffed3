package flight

import (
	"bytes"
	"encoding/json"

	"github.com/opd-ai/go-rocketsim/pkg/part"
	"github.com/opd-ai/go-rocketsim/pkg/physics"
)

// Item is a live part on a flying rocket.
type Item struct {
	Index  int      `json:"index"`
	Key    part.Key `json:"key"`
	Fuel   float64  `json:"fuel"`
	Active bool     `json:"active"`
}

// Slot is one position in the rocket stack: either empty or holding an
// Item. The zero value is empty.
type Slot struct {
	occupied bool
	item     Item
}

// Empty returns an empty slot.
func Empty() Slot { return Slot{} }

// Occupied returns a slot holding item.
func Occupied(item Item) Slot { return Slot{occupied: true, item: item} }

// Item returns the slot's item and whether the slot is occupied.
func (s Slot) Item() (Item, bool) { return s.item, s.occupied }

// IsEmpty reports whether the slot holds nothing.
func (s Slot) IsEmpty() bool { return !s.occupied }

// MarshalJSON encodes an empty slot as null.
func (s Slot) MarshalJSON() ([]byte, error) {
	if !s.occupied {
		return []byte("null"), nil
	}
	return json.Marshal(s.item)
}

// UnmarshalJSON decodes null as an empty slot.
func (s *Slot) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = Slot{}
		return nil
	}
	var it Item
	if err := json.Unmarshal(data, &it); err != nil {
		return err
	}
	*s = Occupied(it)
	return nil
}

// MaxPath is the number of past positions a flight remembers.
const MaxPath = 100

// Path is a fixed-size ring of past positions. Once full, each push
// evicts the oldest point.
type Path struct {
	points [MaxPath]physics.Vector2D
	start  int
	n      int
}

// Push appends p, evicting the oldest point when full.
func (p *Path) Push(v physics.Vector2D) {
	if p.n < MaxPath {
		p.points[(p.start+p.n)%MaxPath] = v
		p.n++
		return
	}
	p.points[p.start] = v
	p.start = (p.start + 1) % MaxPath
}

// Len returns the number of stored points.
func (p *Path) Len() int { return p.n }

// Points returns the stored points, oldest first.
func (p *Path) Points() []physics.Vector2D {
	out := make([]physics.Vector2D, p.n)
	for i := range out {
		out[i] = p.points[(p.start+i)%MaxPath]
	}
	return out
}

// Last returns the newest point.
func (p *Path) Last() (physics.Vector2D, bool) {
	if p.n == 0 {
		return physics.Vector2D{}, false
	}
	return p.points[(p.start+p.n-1)%MaxPath], true
}

// MarshalJSON encodes the path as an array, oldest first.
func (p Path) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Points())
}

// UnmarshalJSON keeps the newest MaxPath points of the array.
func (p *Path) UnmarshalJSON(data []byte) error {
	var pts []physics.Vector2D
	if err := json.Unmarshal(data, &pts); err != nil {
		return err
	}
	*p = Path{}
	for _, v := range pts {
		p.Push(v)
	}
	return nil
}
