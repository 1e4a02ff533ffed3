package engo

import (
	"math"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"

	"github.com/opd-ai/go-rocketsim/pkg/physics"
)

// CameraSystem follows the rocket and maps world meters to screen pixels.
// The local vertical at the rocket always points up the screen.
type CameraSystem struct {
	// Target to follow
	target    physics.Vector2D
	targetSet bool

	// zoom matches the flight zoom: the view spans radius/zoom meters
	// from top to bottom.
	zoom    float32
	minZoom float32
	maxZoom float32
	radius  float64

	// Smooth following
	followSpeed float32
	smoothing   bool

	currentPos physics.Vector2D

	// Viewport in pixels. Zero means the engo window size.
	width  float32
	height float32
}

// NewCameraSystem creates a camera for a planet of the given radius.
func NewCameraSystem(radius float64) *CameraSystem {
	return &CameraSystem{
		zoom:        5,
		minZoom:     0.1,
		maxZoom:     30,
		radius:      radius,
		followSpeed: 4.0,
		smoothing:   true,
	}
}

// Remove satisfies the ecs.System interface
func (cs *CameraSystem) Remove(basic ecs.BasicEntity) {}

// Update moves the camera toward its target.
func (cs *CameraSystem) Update(dt float32) {
	if cs.targetSet {
		cs.updateCameraPosition(dt)
	}
}

// updateCameraPosition smoothly moves the camera toward the target
func (cs *CameraSystem) updateCameraPosition(dt float32) {
	if !cs.smoothing {
		cs.currentPos = cs.target
		return
	}
	step := math.Min(float64(cs.followSpeed*dt), 1)
	cs.currentPos = cs.currentPos.Add(cs.target.Sub(cs.currentPos).Scale(step))
}

// SetTarget sets the position the camera follows.
func (cs *CameraSystem) SetTarget(target physics.Vector2D) {
	first := !cs.targetSet
	cs.target = target
	cs.targetSet = true
	if !cs.smoothing || first {
		cs.currentPos = target
	}
}

// ClearTarget stops following.
func (cs *CameraSystem) ClearTarget() {
	cs.targetSet = false
}

// SetZoom sets the zoom, clamped to the limits.
func (cs *CameraSystem) SetZoom(zoom float32) {
	cs.zoom = cs.clampZoom(zoom)
}

// GetZoom returns the current zoom level
func (cs *CameraSystem) GetZoom() float32 {
	return cs.zoom
}

func (cs *CameraSystem) clampZoom(zoom float32) float32 {
	if zoom < cs.minZoom {
		return cs.minZoom
	}
	if zoom > cs.maxZoom {
		return cs.maxZoom
	}
	return zoom
}

// SetFollowSpeed sets the camera follow speed
func (cs *CameraSystem) SetFollowSpeed(speed float32) {
	cs.followSpeed = speed
}

// EnableSmoothing enables or disables camera smoothing
func (cs *CameraSystem) EnableSmoothing(enabled bool) {
	cs.smoothing = enabled
}

// GetCurrentPosition returns the current camera position
func (cs *CameraSystem) GetCurrentPosition() physics.Vector2D {
	return cs.currentPos
}

// SetViewport fixes the viewport size instead of reading the window.
func (cs *CameraSystem) SetViewport(width, height float32) {
	cs.width, cs.height = width, height
}

func (cs *CameraSystem) viewport() (float64, float64) {
	if cs.width > 0 && cs.height > 0 {
		return float64(cs.width), float64(cs.height)
	}
	return float64(engo.GameWidth()), float64(engo.GameHeight())
}

// PixelsPerMeter returns the current scale.
func (cs *CameraSystem) PixelsPerMeter() float64 {
	_, h := cs.viewport()
	if cs.radius <= 0 {
		return 0
	}
	return h * float64(cs.zoom) / cs.radius
}

// up is the world direction drawn toward the top of the screen.
func (cs *CameraSystem) up() float64 {
	return cs.currentPos.Angle()
}

// WorldToScreen converts world meters to screen pixels. Screen y grows
// downward.
func (cs *CameraSystem) WorldToScreen(worldPos physics.Vector2D) physics.Vector2D {
	w, h := cs.viewport()
	s := cs.PixelsPerMeter()
	d := worldPos.Sub(cs.currentPos).Rotate(math.Pi/2 - cs.up())
	return physics.Vector2D{X: w/2 + d.X*s, Y: h/2 - d.Y*s}
}

// ScreenToWorld is the inverse of WorldToScreen.
func (cs *CameraSystem) ScreenToWorld(screenPos physics.Vector2D) physics.Vector2D {
	w, h := cs.viewport()
	s := cs.PixelsPerMeter()
	if s == 0 {
		return cs.currentPos
	}
	d := physics.Vector2D{X: (screenPos.X - w/2) / s, Y: (h/2 - screenPos.Y) / s}
	return cs.currentPos.Add(d.Rotate(cs.up() - math.Pi/2))
}

// ScreenRotation converts a world heading in degrees to an engo sprite
// rotation: degrees clockwise from pointing up the screen.
func (cs *CameraSystem) ScreenRotation(heading float64) float32 {
	screen := physics.DegreesToRadians(heading) + math.Pi/2 - cs.up()
	return float32(math.Mod(90-physics.RadiansToDegrees(screen)+720, 360))
}
