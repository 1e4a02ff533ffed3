package engine

import (
	"fmt"

	"github.com/opd-ai/go-rocketsim/pkg/part"
	"github.com/opd-ai/go-rocketsim/pkg/vab"
)

// Screen names a page of the session.
type Screen string

const (
	ScreenHome        Screen = "home"
	ScreenSpaceCenter Screen = "spaceCenter"
	ScreenResearch    Screen = "research"
	ScreenVAB         Screen = "vab"
	ScreenFlight      Screen = "flight"
	ScreenRecap       Screen = "recap"
	ScreenOrbit       Screen = "orbit"
)

// Pseudo destinations accepted by the goto command.
const (
	GotoContinueFlight   = "continue-flight"
	GotoSelectedBuilding = "selected-building"
)

// Screens lists every screen in display order.
var Screens = []Screen{
	ScreenHome, ScreenSpaceCenter, ScreenResearch, ScreenVAB,
	ScreenFlight, ScreenRecap, ScreenOrbit,
}

// ParseScreen validates a screen name.
func ParseScreen(name string) (Screen, error) {
	for _, s := range Screens {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown screen %q", name)
}

// Building is an entry of the space center menu.
type Building struct {
	Name        string `json:"name"`
	Goto        string `json:"goto"`
	Key         string `json:"key"`
	Description string `json:"description"`
}

// Buildings is the space center menu.
var Buildings = []Building{
	{Name: "VAB", Goto: string(ScreenVAB), Key: "v", Description: "Create rockets at the Vehicle Assembly Building"},
	{Name: "Research Center", Goto: string(ScreenResearch), Key: "r", Description: "Review details of each part"},
	{Name: "Launch Pad", Goto: string(ScreenFlight), Key: "l", Description: "Start a new flight with current rocket"},
	{Name: "Tracking Station", Goto: GotoContinueFlight, Key: "t", Description: "Continue existing flight"},
}

// Key names used by the bindings besides printable characters.
const (
	KeyEnter     = "Enter"
	KeyEscape    = "Escape"
	KeyBackspace = "Backspace"
	KeyTab       = "Tab"
	KeySpace     = " "
	KeyUp        = "ArrowUp"
	KeyDown      = "ArrowDown"
)

// KeyBindings returns the key to command mapping of a screen. Part keys
// come from the catalog.
func KeyBindings(screen Screen, catalog *part.Catalog) map[string]string {
	m := map[string]string{}
	switch screen {
	case ScreenHome:
		m[KeyEnter] = "goto spaceCenter"
	case ScreenSpaceCenter:
		m[KeyEnter] = "goto " + GotoSelectedBuilding
		m["w"] = "select building -1"
		m["s"] = "select building +1"
		m[KeyUp] = "select building -1"
		m[KeyDown] = "select building +1"
		for _, b := range Buildings {
			m[b.Key] = "goto " + b.Goto
		}
		m[KeyEscape] = "goto home"
	case ScreenResearch:
		m[KeyEscape] = "goto spaceCenter"
		m[KeyEnter] = "goto spaceCenter"
		m[KeySpace] = "unlock selected-research-part"
		for _, k := range catalog.Keys() {
			m[string(k)] = "select researchPart " + string(k)
		}
	case ScreenVAB:
		m[KeyEscape] = "goto spaceCenter"
		m[KeyEnter] = "goto flight"
		m[KeyBackspace] = "clear vab"
		for _, k := range catalog.Keys() {
			m[string(k)] = "select vabPart " + string(k)
		}
		for row := 0; row < vab.Slots; row++ {
			m[fmt.Sprint(row)] = fmt.Sprintf("select vabRocket %d", row)
		}
	case ScreenFlight:
		m["-"] = "zoom out"
		m["_"] = "zoom out"
		m["+"] = "zoom in"
		m["="] = "zoom in"
		m["a"] = "steer left"
		m["d"] = "steer right"
		m[KeyEnter] = "advance turn"
		m[KeyEscape] = "goto spaceCenter"
		m[KeySpace] = "activate stage"
		m[KeyTab] = "autoAdvance toggle"
	case ScreenRecap, ScreenOrbit:
		m[KeyEscape] = "goto spaceCenter"
		m[KeyEnter] = "goto spaceCenter"
	}
	return m
}
