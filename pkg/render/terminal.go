package render

import (
	"fmt"

	"github.com/gdamore/tcell/v2"

	"github.com/opd-ai/go-rocketsim/pkg/engine"
	"github.com/opd-ai/go-rocketsim/pkg/flight"
	"github.com/opd-ai/go-rocketsim/pkg/part"
	"github.com/opd-ai/go-rocketsim/pkg/physics"
	"github.com/opd-ai/go-rocketsim/pkg/vab"
)

// stackWidth is the width of the rocket panel on the flight screen.
const stackWidth = 26

var (
	styleText       = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleTitle      = tcell.StyleDefault.Foreground(tcell.ColorAqua).Bold(true)
	styleDim        = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleSelected   = tcell.StyleDefault.Reverse(true)
	styleGround     = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleAtmosphere = tcell.StyleDefault.Background(tcell.NewRGBColor(10, 20, 60))
	stylePath       = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleTrajectory = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleRocket     = tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
	styleActive     = tcell.StyleDefault.Foreground(tcell.ColorOrange).Bold(true)
	styleDestroyed  = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
)

// TerminalRenderer draws sessions onto a tcell screen.
type TerminalRenderer struct {
	screen  tcell.Screen
	catalog *part.Catalog
	planet  physics.Planet
	width   int
	height  int
}

// TerminalOption configures a TerminalRenderer.
type TerminalOption func(*TerminalRenderer)

// WithCatalog sets the catalog part names are looked up in.
func WithCatalog(c *part.Catalog) TerminalOption {
	return func(r *TerminalRenderer) { r.catalog = c }
}

// WithPlanet sets the planet drawn under the rocket. Snapshots decoded
// from the network carry no simulation constants, so the renderer keeps
// its own.
func WithPlanet(p physics.Planet) TerminalOption {
	return func(r *TerminalRenderer) { r.planet = p }
}

// NewTerminalRenderer creates a renderer drawing onto screen, which must
// already be initialised.
func NewTerminalRenderer(screen tcell.Screen, opts ...TerminalOption) *TerminalRenderer {
	r := &TerminalRenderer{
		screen:  screen,
		catalog: part.DefaultCatalog(),
		planet:  physics.DefaultPlanet(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.width, r.height = screen.Size()
	return r
}

// Clear implements Renderer. It also picks up terminal resizes.
func (r *TerminalRenderer) Clear() {
	r.screen.Clear()
	r.width, r.height = r.screen.Size()
}

// Present implements Renderer.
func (r *TerminalRenderer) Present() {
	r.screen.Show()
}

// RenderState draws a whole frame for the session's current screen.
func (r *TerminalRenderer) RenderState(st engine.GameState) {
	r.Clear()
	switch st.Screen {
	case engine.ScreenHome:
		r.drawHome()
	case engine.ScreenSpaceCenter:
		r.drawSpaceCenter(st)
	case engine.ScreenResearch:
		r.drawResearch(st)
	case engine.ScreenVAB:
		r.drawVAB(st)
	case engine.ScreenFlight:
		r.RenderFlight(st.Flight)
		if st.AutoAdvancing {
			r.drawText(0, r.height-2, styleActive, "AUTO")
		}
	case engine.ScreenRecap:
		r.drawRecap(st)
	case engine.ScreenOrbit:
		r.drawText(2, 1, styleTitle, "ORBIT")
		r.drawText(2, 3, styleText, "You made it around the planet.")
		r.drawFooter("enter/esc space center")
	}
	r.Present()
}

// RenderFlight implements Renderer.
func (r *TerminalRenderer) RenderFlight(f *flight.Flight) {
	if f == nil {
		r.drawText(2, 1, styleDim, "No flight in progress")
		return
	}
	mapWidth := max(r.width-stackWidth, 1)
	view := NewView(mapWidth, r.height, f.Position, f.Zoom, r.planet.Radius)

	r.drawWorld(view)
	for _, p := range f.Path.Points() {
		if x, y, ok := view.Project(p); ok {
			r.screen.SetContent(x, y, '·', nil, stylePath)
		}
	}
	for _, p := range f.Computed.Trajectory {
		if x, y, ok := view.Project(p); ok {
			r.screen.SetContent(x, y, '+', nil, styleTrajectory)
		}
	}
	if x, y, ok := view.Project(f.Position); ok {
		style := styleRocket
		glyph := HeadingGlyph(view.ScreenHeading(f.Rotation))
		if f.Destroyed {
			style, glyph = styleDestroyed, '*'
		}
		r.screen.SetContent(x, y, glyph, nil, style)
	}

	r.drawFlightHUD(f)
	r.drawStack(mapWidth+1, f)
	r.drawFooter("a/d steer  space stage  enter turn  tab auto  -/+ zoom  esc exit")
}

func (r *TerminalRenderer) drawWorld(view View) {
	ground := r.planet.Radius
	sky := ground + r.planet.AtmosphereHeight
	for y := 0; y < view.Height; y++ {
		for x := 0; x < view.Width; x++ {
			d := view.Unproject(x, y).Length()
			switch {
			case d < ground:
				r.screen.SetContent(x, y, '▓', nil, styleGround)
			case d <= sky:
				r.screen.SetContent(x, y, ' ', nil, styleAtmosphere)
			}
		}
	}
}

func (r *TerminalRenderer) drawFlightHUD(f *flight.Flight) {
	c := f.Computed
	lines := []string{
		fmt.Sprintf("T+%.0fs  ALT %.0fm  SPD %.0fm/s", f.Time, c.Altitude, c.Speed),
		fmt.Sprintf("CTRL %.0f/%g  STEER %.0f/%g", f.Control, c.MaxControl, f.Steering, c.MaxSteering),
		fmt.Sprintf("ROT %.1f  MASS %.1f  FUEL %.0f", f.Rotation, c.Mass, c.TotalFuel),
		fmt.Sprintf("AP %.0fm  PE %.0fm  ZOOM %g", c.Apoapsis, c.Periapsis, f.Zoom),
	}
	for i, line := range lines {
		r.drawText(0, i, styleText, line)
	}
	if f.Destroyed {
		r.drawText(0, len(lines)+1, styleDestroyed, "DESTROYED")
	}
}

func (r *TerminalRenderer) drawStack(x int, f *flight.Flight) {
	r.drawText(x, 0, styleTitle, "ROCKET")
	for i, s := range f.Rocket {
		it, ok := s.Item()
		if !ok {
			r.drawText(x, i+2, styleDim, fmt.Sprintf("%d", i))
			continue
		}
		style := styleText
		if it.Active {
			style = styleActive
		}
		label := fmt.Sprintf("%d %s", i, r.partName(it.Key))
		if p, ok := r.catalog.Lookup(it.Key); ok && p.Has(part.CapFuel) {
			label += fmt.Sprintf(" %.0f", it.Fuel)
		}
		r.drawText(x, i+2, style, label)
	}
}

func (r *TerminalRenderer) drawHome() {
	y := r.height / 3
	r.drawCentered(y, styleTitle, "ROCKET SIM")
	r.drawCentered(y+2, styleText, "press enter")
}

func (r *TerminalRenderer) drawSpaceCenter(st engine.GameState) {
	r.drawText(2, 1, styleTitle, "SPACE CENTER")
	for i, b := range st.Buildings {
		style := styleText
		if i == st.SelectedBuilding {
			style = styleSelected
		}
		r.drawText(2, 3+i, style, fmt.Sprintf("[%s] %-17s %s", b.Key, b.Name, b.Description))
	}
	r.drawFooter("w/s select  enter go  esc home")
}

func (r *TerminalRenderer) drawResearch(st engine.GameState) {
	r.drawText(2, 1, styleTitle, "RESEARCH")
	r.drawText(16, 1, styleText, fmt.Sprintf("science %d", st.ResearchPoints))

	unlocked := make(map[string]bool, len(st.UnlockedParts))
	for _, k := range st.UnlockedParts {
		unlocked[k] = true
	}
	parts := r.catalog.Parts()
	for i, p := range parts {
		style := styleText
		status := fmt.Sprintf("cost %d", p.ScienceCost)
		if unlocked[string(p.Key)] {
			status = "unlocked"
		} else {
			style = styleDim
		}
		if string(p.Key) == st.SelectedResearchPart {
			style = styleSelected
		}
		r.drawText(2, 3+i, style, fmt.Sprintf("[%s] %-28s %s", p.Key, p.Name, status))
	}

	if p, ok := r.catalog.Lookup(part.Key(st.SelectedResearchPart)); ok {
		y := 4 + len(parts)
		r.drawText(2, y, styleTitle, p.Name)
		r.drawText(2, y+1, styleText, fmt.Sprintf("mass %g  thrust %g  fuel %g", p.Mass, p.Thrust, p.FuelCapacity))
		r.drawText(2, y+2, styleText, fmt.Sprintf("steering %g  control %g  %s", p.Steering, p.Control, p.Caps))
	}
	r.drawFooter("key select  space unlock  esc back")
}

func (r *TerminalRenderer) drawVAB(st engine.GameState) {
	r.drawText(2, 1, styleTitle, "VEHICLE ASSEMBLY")

	for i, k := range st.UnlockedParts {
		style := styleText
		if k == st.PickedPart {
			style = styleSelected
		}
		r.drawText(2, 3+i, style, fmt.Sprintf("[%s] %s", k, r.partName(part.Key(k))))
	}

	design, err := vab.ParseDesign(st.Design)
	if err != nil {
		r.drawText(2, 3, styleDestroyed, err.Error())
		return
	}
	x := 36
	for row, k := range design {
		marker := " "
		if row == st.SelectedRow {
			marker = ">"
		}
		label := "."
		if k != part.None {
			label = r.partName(k)
		}
		r.drawText(x, 3+row, styleText, fmt.Sprintf("%s%d %s", marker, row, label))
	}

	s := st.Summary
	y := 4 + vab.Slots
	r.drawText(x, y, styleText, fmt.Sprintf("mass %g  thrust %g  fuel %g", s.Mass, s.Thrust, s.Fuel))
	controlStyle := styleText
	if s.LowControl {
		controlStyle = styleDestroyed
	}
	r.drawText(x, y+1, controlStyle, fmt.Sprintf("steering %g  control %s", s.Steering, s.ControlLabel()))
	r.drawFooter("key pick  0-9 place  backspace clear  enter launch  esc back")
}

func (r *TerminalRenderer) drawRecap(st engine.GameState) {
	r.drawText(2, 1, styleTitle, "FLIGHT RECAP")
	r.drawText(2, 3, styleText, fmt.Sprintf("turns %d", st.Turns))
	if f := st.Flight; f != nil {
		r.drawText(2, 4, styleText, fmt.Sprintf("time %.0fs  altitude %.0fm", f.Time, f.Computed.Altitude))
		if f.Destroyed {
			r.drawText(2, 5, styleDestroyed, "rocket destroyed")
		}
	}
	r.drawFooter("enter/esc space center")
}

func (r *TerminalRenderer) drawFooter(help string) {
	r.drawText(0, r.height-1, styleDim, help)
}

func (r *TerminalRenderer) drawCentered(y int, style tcell.Style, s string) {
	x := (r.width - len([]rune(s))) / 2
	r.drawText(max(x, 0), y, style, s)
}

// drawText writes s from (x, y), clipped to the screen.
func (r *TerminalRenderer) drawText(x, y int, style tcell.Style, s string) int {
	if y < 0 || y >= r.height {
		return x
	}
	for _, ch := range s {
		if x >= r.width {
			break
		}
		if x >= 0 {
			r.screen.SetContent(x, y, ch, nil, style)
		}
		x++
	}
	return x
}

func (r *TerminalRenderer) partName(k part.Key) string {
	if p, ok := r.catalog.Lookup(k); ok {
		return p.Name
	}
	return string(k)
}

