package engo

import (
	"image/color"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-rocketsim/pkg/flight"
	"github.com/opd-ai/go-rocketsim/pkg/physics"
	"github.com/opd-ai/go-rocketsim/pkg/render"
	"github.com/opd-ai/go-rocketsim/pkg/vab"
)

// panelWidth is the width of the rocket panel at the right edge.
const panelWidth = 120

// Draw order, back to front.
const (
	zAtmosphere = iota
	zPlanet
	zPath
	zTrajectory
	zRocket
	zPanel
	zHUD
)

var (
	groundColor     = color.NRGBA{40, 140, 60, 255}
	atmosphereColor = color.NRGBA{40, 70, 160, 120}
	pathColor       = color.NRGBA{160, 160, 160, 200}
	trajectoryColor = color.NRGBA{250, 220, 60, 255}
	rocketColor     = color.NRGBA{255, 255, 255, 255}
	wreckColor      = color.NRGBA{230, 50, 50, 255}
)

// entitySystem is the part of common.RenderSystem the renderer uses.
type entitySystem interface {
	Add(basic *ecs.BasicEntity, render *common.RenderComponent, space *common.SpaceComponent)
	Remove(basic ecs.BasicEntity)
}

// sprite is one drawn entity.
type sprite struct {
	ecs.BasicEntity
	common.RenderComponent
	common.SpaceComponent
}

// EngoRenderer implements render.Renderer with engo entities.
type EngoRenderer struct {
	system entitySystem
	camera *CameraSystem
	assets *AssetManager
	planet physics.Planet

	atmosphere *sprite
	ground     *sprite
	marker     *sprite
	parts      [vab.Slots]*sprite
	path       []*sprite
	trajectory []*sprite
}

var _ render.Renderer = (*EngoRenderer)(nil)

// NewEngoRenderer creates a renderer adding its entities to system.
func NewEngoRenderer(system entitySystem, camera *CameraSystem, assets *AssetManager, planet physics.Planet) *EngoRenderer {
	r := &EngoRenderer{
		system: system,
		camera: camera,
		assets: assets,
		planet: planet,
	}
	r.atmosphere = r.newSprite(common.Circle{}, atmosphereColor, zAtmosphere)
	r.ground = r.newSprite(common.Circle{}, groundColor, zPlanet)
	r.marker = r.newSprite(common.Triangle{}, rocketColor, zRocket)
	for i := range r.parts {
		r.parts[i] = r.newSprite(common.Rectangle{}, partColor, zPanel)
		r.parts[i].Hidden = true
	}
	return r
}

func (r *EngoRenderer) newSprite(d common.Drawable, c color.Color, z float32) *sprite {
	s := &sprite{BasicEntity: ecs.NewBasic()}
	s.RenderComponent = common.RenderComponent{Drawable: d, Color: c}
	s.RenderComponent.SetZIndex(z)
	r.system.Add(&s.BasicEntity, &s.RenderComponent, &s.SpaceComponent)
	return s
}

// Clear implements render.Renderer. Entities persist between frames, so
// there is nothing to wipe.
func (r *EngoRenderer) Clear() {}

// Present implements render.Renderer. The engo render system draws the
// entities on its own.
func (r *EngoRenderer) Present() {}

// RenderFlight implements render.Renderer.
func (r *EngoRenderer) RenderFlight(f *flight.Flight) {
	if f == nil {
		r.hideFlight()
		return
	}
	r.camera.SetTarget(f.Position)
	r.camera.SetZoom(float32(f.Zoom))

	r.placeDisc(r.ground, r.planet.Radius)
	r.placeDisc(r.atmosphere, r.planet.Radius+r.planet.AtmosphereHeight)
	r.placeDots(&r.path, f.Path.Points(), pathColor, 3, zPath)
	r.placeDots(&r.trajectory, f.Computed.Trajectory, trajectoryColor, 4, zTrajectory)

	pos := r.camera.WorldToScreen(f.Position)
	r.marker.Hidden = false
	r.marker.Width, r.marker.Height = 10, 16
	r.marker.Position = engo.Point{X: float32(pos.X) - 5, Y: float32(pos.Y) - 8}
	r.marker.Rotation = r.camera.ScreenRotation(f.Rotation)
	r.marker.Color = rocketColor
	if f.Destroyed {
		r.marker.Color = wreckColor
	}

	r.placeStack(f)
}

// placeDisc centers s on the planet with the given radius in meters.
func (r *EngoRenderer) placeDisc(s *sprite, radius float64) {
	center := r.camera.WorldToScreen(physics.Vector2D{})
	d := float32(2 * radius * r.camera.PixelsPerMeter())
	s.Hidden = false
	s.Width, s.Height = d, d
	s.Position = engo.Point{X: float32(center.X) - d/2, Y: float32(center.Y) - d/2}
}

// placeDots shows one dot per point, growing the pool as needed and
// hiding leftovers.
func (r *EngoRenderer) placeDots(pool *[]*sprite, points []physics.Vector2D, c color.Color, size, z float32) {
	for len(*pool) < len(points) {
		*pool = append(*pool, r.newSprite(common.Circle{}, c, z))
	}
	for i, s := range *pool {
		if i >= len(points) {
			s.Hidden = true
			continue
		}
		p := r.camera.WorldToScreen(points[i])
		s.Hidden = false
		s.Width, s.Height = size, size
		s.Position = engo.Point{X: float32(p.X) - size/2, Y: float32(p.Y) - size/2}
	}
}

// placeStack draws the rocket top to bottom in the side panel, active
// parts highlighted.
func (r *EngoRenderer) placeStack(f *flight.Flight) {
	w, _ := r.camera.viewport()
	x0 := float32(w) - panelWidth
	y := float32(40)
	for i, slot := range f.Rocket {
		s := r.parts[i]
		it, ok := slot.Item()
		p, known := r.assets.catalog.Lookup(it.Key)
		if !ok || !known {
			s.Hidden = true
			continue
		}
		pw := float32(p.Width * pixelsPerUnit)
		ph := float32(p.Height * pixelsPerUnit)
		s.Hidden = false
		s.Width, s.Height = pw, ph
		s.Position = engo.Point{X: x0 + (panelWidth-pw)/2, Y: y}
		if sp := r.assets.Sprite(it.Key); sp != nil {
			s.Drawable = sp
		}
		s.Color = partColor
		if it.Active {
			s.Color = activeColor
		}
		y += ph
	}
}

func (r *EngoRenderer) hideFlight() {
	r.ground.Hidden = true
	r.atmosphere.Hidden = true
	r.marker.Hidden = true
	for _, s := range r.parts {
		s.Hidden = true
	}
	for _, s := range r.path {
		s.Hidden = true
	}
	for _, s := range r.trajectory {
		s.Hidden = true
	}
}

