package part

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"unicode/utf8"
)

// ErrUnknownPart is returned when a key is not in the catalog.
var ErrUnknownPart = errors.New("unknown part")

// Catalog is a read-only lookup table of parts, kept in declaration order.
type Catalog struct {
	parts map[Key]Part
	order []Key
}

// NewCatalog validates parts and builds a catalog from them.
func NewCatalog(parts []Part) (*Catalog, error) {
	c := &Catalog{
		parts: make(map[Key]Part, len(parts)),
		order: make([]Key, 0, len(parts)),
	}
	for i, p := range parts {
		if err := validate(p); err != nil {
			return nil, fmt.Errorf("part %d (%q): %w", i, p.Key, err)
		}
		if _, dup := c.parts[p.Key]; dup {
			return nil, fmt.Errorf("part %d: duplicate key %q", i, p.Key)
		}
		c.parts[p.Key] = p.normalize()
		c.order = append(c.order, p.Key)
	}
	return c, nil
}

func validate(p Part) error {
	if utf8.RuneCountInString(string(p.Key)) != 1 {
		return errors.New("key must be a single character")
	}
	if p.Name == "" {
		return errors.New("name is required")
	}
	for name, v := range map[string]float64{
		"mass":     p.Mass,
		"dryMass":  p.DryMass,
		"thrust":   p.Thrust,
		"fuel":     p.FuelCapacity,
		"steering": p.Steering,
		"control":  p.Control,
	} {
		if v < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	if p.DryMass > p.Mass {
		return errors.New("dryMass exceeds mass")
	}
	if len(p.Polygon)%2 != 0 {
		return errors.New("polygonPoints must hold x,y pairs")
	}
	return nil
}

// Lookup returns the part stored under key.
func (c *Catalog) Lookup(key Key) (Part, bool) {
	p, ok := c.parts[key]
	return p, ok
}

// Get is Lookup with an error for missing keys.
func (c *Catalog) Get(key Key) (Part, error) {
	p, ok := c.parts[key]
	if !ok {
		return Part{}, fmt.Errorf("%w: %q", ErrUnknownPart, key)
	}
	return p, nil
}

// Keys returns every key in declaration order.
func (c *Catalog) Keys() []Key {
	return append([]Key(nil), c.order...)
}

// Parts returns every part in declaration order.
func (c *Catalog) Parts() []Part {
	out := make([]Part, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, c.parts[k])
	}
	return out
}

// Len returns the number of parts.
func (c *Catalog) Len() int {
	return len(c.order)
}

// LoadCatalog reads a JSON array of parts from path.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	var parts []Part
	if err := json.Unmarshal(data, &parts); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}
	return NewCatalog(parts)
}
