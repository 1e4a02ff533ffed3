package vab

import (
	"fmt"

	"github.com/opd-ai/go-rocketsim/pkg/part"
)

// Builder edits a design by picking up parts and dropping them onto rows.
// It is not safe for concurrent use; the engine serializes access.
type Builder struct {
	catalog     *part.Catalog
	design      Design
	unlocked    map[part.Key]bool
	picked      part.Key
	selectedRow int
}

// NewBuilder returns a builder editing design with the given parts
// unlocked.
func NewBuilder(c *part.Catalog, design Design, unlocked []part.Key) *Builder {
	b := &Builder{
		catalog:     c,
		design:      design,
		unlocked:    make(map[part.Key]bool, len(unlocked)),
		selectedRow: -1,
	}
	for _, k := range unlocked {
		b.unlocked[k] = true
	}
	return b
}

// PickUp toggles the part held for placement. Picking the held part
// again puts it down. Locked or unknown parts cannot be picked.
func (b *Builder) PickUp(key part.Key) error {
	if _, err := b.catalog.Get(key); err != nil {
		return err
	}
	if !b.unlocked[key] {
		return fmt.Errorf("part %q is locked", key)
	}
	if b.picked == key {
		b.picked = part.None
		return nil
	}
	b.picked = key
	return nil
}

// Picked returns the held part, or part.None.
func (b *Builder) Picked() part.Key { return b.picked }

// Drop releases the held part without placing it.
func (b *Builder) Drop() { b.picked = part.None }

// Place selects row and, if a part is held, puts it there.
func (b *Builder) Place(row int) error {
	if row < 0 || row >= Slots {
		return fmt.Errorf("row %d out of range [0, %d)", row, Slots)
	}
	b.selectedRow = row
	if b.picked != part.None {
		b.design[row] = b.picked
	}
	return nil
}

// SelectedRow returns the last selected row, or -1.
func (b *Builder) SelectedRow() int { return b.selectedRow }

// Clear empties the design.
func (b *Builder) Clear() {
	b.design = Design{}
}

// Design returns a copy of the current design.
func (b *Builder) Design() Design { return b.design }

// SetDesign replaces the current design.
func (b *Builder) SetDesign(d Design) { b.design = d }

// Unlock makes key available for picking.
func (b *Builder) Unlock(key part.Key) error {
	if _, err := b.catalog.Get(key); err != nil {
		return err
	}
	b.unlocked[key] = true
	return nil
}

// IsUnlocked reports whether key can be picked.
func (b *Builder) IsUnlocked(key part.Key) bool { return b.unlocked[key] }

// Unlocked returns unlocked keys in catalog order.
func (b *Builder) Unlocked() []part.Key {
	var out []part.Key
	for _, k := range b.catalog.Keys() {
		if b.unlocked[k] {
			out = append(out, k)
		}
	}
	return out
}

// Summary totals the current design.
func (b *Builder) Summary() Summary {
	return Summarize(b.design, b.catalog)
}
