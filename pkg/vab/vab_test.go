package vab

import (
	"testing"

	"github.com/opd-ai/go-rocketsim/pkg/part"
)

func TestParseDesign(t *testing.T) {
	tests := []struct {
		input    string
		expected Design
		wantErr  bool
	}{
		{"pcmb", Design{"p", "c", "m", "b"}, false},
		{"c.e b", Design{"c", "", "e", "", "b"}, false},
		{"", Design{}, false},
		{"ccccccccccc", Design{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDesign(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDesign(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.expected {
				t.Errorf("ParseDesign(%q) = %v, expected %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestDesign_String(t *testing.T) {
	d := Design{"c", "", "e", "b"}
	if got := d.String(); got != "c.eb" {
		t.Errorf("String() = %q, expected %q", got, "c.eb")
	}
	if got := (Design{}).String(); got != "" {
		t.Errorf("String() of empty design = %q", got)
	}
}

func TestSummarize_Default(t *testing.T) {
	s := Summarize(DefaultDesign(), part.DefaultCatalog())

	if s.Parts != 4 {
		t.Errorf("Parts = %d, expected 4", s.Parts)
	}
	if s.Mass != 9 {
		t.Errorf("Mass = %v, expected 9", s.Mass)
	}
	if s.Steering != 3 || s.Control != 15 {
		t.Errorf("Steering/Control = %v/%v, expected 3/15", s.Steering, s.Control)
	}
	if s.LowControl {
		t.Error("LowControl = true for a capsule design")
	}
	if got := s.ControlLabel(); got != "15" {
		t.Errorf("ControlLabel() = %q", got)
	}
}

func TestSummarize_LowControl(t *testing.T) {
	s := Summarize(Design{"b", "f"}, part.DefaultCatalog())
	if !s.LowControl {
		t.Error("LowControl = false for design without control")
	}
	if got := s.ControlLabel(); got != "0 (!!!)" {
		t.Errorf("ControlLabel() = %q", got)
	}
}

func TestDesign_Validate(t *testing.T) {
	c := part.DefaultCatalog()
	if err := DefaultDesign().Validate(c); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	if err := (Design{"c", "z"}).Validate(c); err == nil {
		t.Error("Validate() accepted unknown part")
	}
}

func TestBuilder_PickAndPlace(t *testing.T) {
	c := part.DefaultCatalog()
	b := NewBuilder(c, DefaultDesign(), []part.Key{"c", "b", "e"})

	if err := b.PickUp("e"); err != nil {
		t.Fatalf("PickUp(e) error = %v", err)
	}
	if b.Picked() != "e" {
		t.Errorf("Picked() = %q, expected e", b.Picked())
	}
	if err := b.Place(3); err != nil {
		t.Fatalf("Place(3) error = %v", err)
	}
	if b.Design()[3] != "e" || b.SelectedRow() != 3 {
		t.Errorf("Design()[3] = %q row %d", b.Design()[3], b.SelectedRow())
	}

	// Picking the held part again drops it.
	if err := b.PickUp("e"); err != nil {
		t.Fatal(err)
	}
	if b.Picked() != part.None {
		t.Errorf("Picked() = %q after toggle", b.Picked())
	}
	if err := b.Place(4); err != nil {
		t.Fatal(err)
	}
	if b.Design()[4] != part.None {
		t.Errorf("Place without held part wrote %q", b.Design()[4])
	}

	if err := b.Place(Slots); err == nil {
		t.Error("Place(Slots) expected error")
	}
}

func TestBuilder_Locks(t *testing.T) {
	b := NewBuilder(part.DefaultCatalog(), Design{}, []part.Key{"c"})

	if err := b.PickUp("f"); err == nil {
		t.Error("PickUp of locked part succeeded")
	}
	if err := b.PickUp("z"); err == nil {
		t.Error("PickUp of unknown part succeeded")
	}
	if err := b.Unlock("f"); err != nil {
		t.Fatalf("Unlock(f) error = %v", err)
	}
	if !b.IsUnlocked("f") {
		t.Error("IsUnlocked(f) = false after Unlock")
	}
	if got := b.Unlocked(); len(got) != 2 || got[0] != "c" || got[1] != "f" {
		t.Errorf("Unlocked() = %v", got)
	}
}

func TestBuilder_Clear(t *testing.T) {
	b := NewBuilder(part.DefaultCatalog(), DefaultDesign(), nil)
	b.Clear()
	if b.Design().Count() != 0 {
		t.Errorf("Count() = %d after Clear", b.Design().Count())
	}
	if b.Summary().Mass != 0 {
		t.Errorf("Summary().Mass = %v after Clear", b.Summary().Mass)
	}
}
