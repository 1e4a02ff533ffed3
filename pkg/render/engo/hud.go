package engo

import (
	"fmt"
	"sync"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-rocketsim/pkg/engine"
)

// hudLines is how many text rows the HUD shows.
const hudLines = 8

// HUDSystem prints flight telemetry and the connection status in the top
// left corner.
type HUDSystem struct {
	system entitySystem
	font   *common.Font
	texts  []*sprite

	lines []string

	mu               sync.Mutex
	connectionStatus string
}

// NewHUDSystem creates a HUD. Text entities are only created once a font
// is set.
func NewHUDSystem(system entitySystem, font *common.Font) *HUDSystem {
	hud := &HUDSystem{
		system:           system,
		font:             font,
		connectionStatus: "Connected",
	}
	if font != nil {
		for i := 0; i < hudLines; i++ {
			s := &sprite{BasicEntity: ecs.NewBasic()}
			s.RenderComponent = common.RenderComponent{Drawable: common.Text{Font: font}}
			s.RenderComponent.SetZIndex(zHUD)
			s.Position = engo.Point{X: 10, Y: 10 + float32(i)*20}
			system.Add(&s.BasicEntity, &s.RenderComponent, &s.SpaceComponent)
			hud.texts = append(hud.texts, s)
		}
	}
	return hud
}

// Remove satisfies the ecs.System interface
func (hud *HUDSystem) Remove(basic ecs.BasicEntity) {}

// Update copies the current lines into the text entities.
func (hud *HUDSystem) Update(dt float32) {
	for i, s := range hud.texts {
		text := ""
		if i < len(hud.lines) {
			text = hud.lines[i]
		}
		s.Drawable = common.Text{Font: hud.font, Text: text}
	}
}

// SetConnectionStatus sets the connection status display
func (hud *HUDSystem) SetConnectionStatus(status string) {
	hud.mu.Lock()
	hud.connectionStatus = status
	hud.mu.Unlock()
}

// UpdateGameState rebuilds the HUD lines from st.
func (hud *HUDSystem) UpdateGameState(st engine.GameState) {
	hud.mu.Lock()
	status := hud.connectionStatus
	hud.mu.Unlock()
	hud.lines = append(HUDLines(st), "Status: "+status)
}

// Lines returns what the HUD currently shows.
func (hud *HUDSystem) Lines() []string {
	return hud.lines
}

// HUDLines formats the telemetry of st's flight.
func HUDLines(st engine.GameState) []string {
	f := st.Flight
	if f == nil || st.Screen != engine.ScreenFlight {
		return []string{fmt.Sprintf("Screen: %s", st.Screen)}
	}
	c := f.Computed
	lines := []string{
		fmt.Sprintf("Time: %.0f s", f.Time),
		fmt.Sprintf("Altitude: %.0f m", c.Altitude),
		fmt.Sprintf("Speed: %.0f m/s", c.Speed),
		fmt.Sprintf("Fuel: %.0f", c.TotalFuel),
		fmt.Sprintf("Control: %.0f / %g", f.Control, c.MaxControl),
	}
	if st.AutoAdvancing {
		lines = append(lines, "Auto-advance")
	}
	if f.Destroyed {
		lines = append(lines, "DESTROYED")
	}
	return lines
}
