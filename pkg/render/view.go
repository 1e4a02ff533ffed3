package render

import (
	"math"

	"github.com/opd-ai/go-rocketsim/pkg/physics"
)

// CellAspect is how many terminal columns span the height of one row.
const CellAspect = 2.0

// View projects world coordinates onto a grid of terminal cells. The
// center of the grid shows Center, and the world direction Up (radians)
// is drawn toward the top.
type View struct {
	Width  int
	Height int
	Center physics.Vector2D
	Up     float64
	// Scale is meters per row.
	Scale float64
}

// NewView frames a flight the way the map does: the visible height spans
// radius/zoom meters, centered on pos with the local vertical pointing up.
func NewView(width, height int, pos physics.Vector2D, zoom, radius float64) View {
	if zoom <= 0 {
		zoom = 1
	}
	rows := math.Max(float64(height), 1)
	return View{
		Width:  width,
		Height: height,
		Center: pos,
		Up:     pos.Angle(),
		Scale:  radius / zoom / rows,
	}
}

// Project returns the cell showing p and whether it lies on the grid.
func (v View) Project(p physics.Vector2D) (int, int, bool) {
	d := p.Sub(v.Center).Rotate(math.Pi/2 - v.Up)
	x := int(math.Round(float64(v.Width)/2 + d.X*CellAspect/v.Scale))
	y := int(math.Round(float64(v.Height)/2 - d.Y/v.Scale))
	return x, y, x >= 0 && x < v.Width && y >= 0 && y < v.Height
}

// Unproject returns the world point at the center of cell (x, y).
func (v View) Unproject(x, y int) physics.Vector2D {
	d := physics.Vector2D{
		X: (float64(x) - float64(v.Width)/2) * v.Scale / CellAspect,
		Y: (float64(v.Height)/2 - float64(y)) * v.Scale,
	}
	return v.Center.Add(d.Rotate(v.Up - math.Pi/2))
}

// ScreenHeading converts a world heading in degrees into radians on the
// grid, counter-clockwise from the right.
func (v View) ScreenHeading(degrees float64) float64 {
	return physics.DegreesToRadians(degrees) + math.Pi/2 - v.Up
}

var headingGlyphs = [8]rune{'→', '↗', '↑', '↖', '←', '↙', '↓', '↘'}

// HeadingGlyph returns the arrow closest to angle (radians).
func HeadingGlyph(angle float64) rune {
	octant := int(math.Round(angle/(math.Pi/4))) % 8
	if octant < 0 {
		octant += 8
	}
	return headingGlyphs[octant]
}
