package engo

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"
	"golang.org/x/image/font/gofont/gomono"

	"github.com/opd-ai/go-rocketsim/pkg/part"
)

// fontURL is the name the embedded HUD font is registered under.
const fontURL = "rocketsim/gomono.ttf"

// pixelsPerUnit scales part outlines, which are drawn in catalog units.
const pixelsPerUnit = 0.5

var (
	partColor   = color.NRGBA{220, 220, 220, 255}
	activeColor = color.NRGBA{255, 160, 40, 255}
)

// AssetManager builds part sprites from catalog outlines.
type AssetManager struct {
	catalog *part.Catalog
	images  map[part.Key]*image.NRGBA
	sprites map[part.Key]common.Drawable
	font    *common.Font
}

// NewAssetManager creates an asset manager for the parts in catalog.
func NewAssetManager(catalog *part.Catalog) *AssetManager {
	return &AssetManager{
		catalog: catalog,
		images:  make(map[part.Key]*image.NRGBA),
		sprites: make(map[part.Key]common.Drawable),
	}
}

// BuildImages rasterizes every part outline. It needs no graphics
// context.
func (am *AssetManager) BuildImages() {
	for _, p := range am.catalog.Parts() {
		am.images[p.Key] = PartImage(p, pixelsPerUnit)
	}
}

// LoadAssets uploads the part sprites and the HUD font. It needs an
// OpenGL context, so call it from a scene's Preload or Setup.
func (am *AssetManager) LoadAssets() error {
	if len(am.images) == 0 {
		am.BuildImages()
	}
	for key, img := range am.images {
		am.sprites[key] = common.NewTextureSingle(common.NewImageObject(img))
	}

	if err := engo.Files.LoadReaderData(fontURL, bytes.NewReader(gomono.TTF)); err != nil {
		return fmt.Errorf("failed to load HUD font: %w", err)
	}
	font := &common.Font{URL: fontURL, FG: color.White, Size: 16}
	if err := font.CreatePreloaded(); err != nil {
		return fmt.Errorf("failed to create HUD font: %w", err)
	}
	am.font = font
	return nil
}

// PartImage returns the part's outline filled in white on a transparent
// background. Parts without an outline get a one pixel image.
func PartImage(p part.Part, scale float64) *image.NRGBA {
	w := max(int(math.Ceil(p.Width*scale)), 1)
	h := max(int(math.Ceil(p.Height*scale)), 1)
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	if len(p.Polygon) < 6 {
		return img
	}
	minX, minY := polygonOrigin(p.Polygon)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			px := minX + (float64(x)+0.5)/scale
			py := minY + (float64(y)+0.5)/scale
			if insidePolygon(p.Polygon, px, py) {
				img.SetNRGBA(x, y, color.NRGBA{255, 255, 255, 255})
			}
		}
	}
	return img
}

func polygonOrigin(points []float64) (float64, float64) {
	minX, minY := math.Inf(1), math.Inf(1)
	for i := 0; i+1 < len(points); i += 2 {
		minX = math.Min(minX, points[i])
		minY = math.Min(minY, points[i+1])
	}
	return minX, minY
}

// insidePolygon is the even-odd ray casting test over an x,y,x,y...
// outline.
func insidePolygon(points []float64, x, y float64) bool {
	n := len(points) / 2
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := points[2*i], points[2*i+1]
		xj, yj := points[2*j], points[2*j+1]
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

// Image returns the rasterized outline of a part.
func (am *AssetManager) Image(key part.Key) (*image.NRGBA, bool) {
	img, ok := am.images[key]
	return img, ok
}

// Sprite returns the texture of a part, or nil before LoadAssets.
func (am *AssetManager) Sprite(key part.Key) common.Drawable {
	return am.sprites[key]
}

// Font returns the HUD font, or nil before LoadAssets.
func (am *AssetManager) Font() *common.Font {
	return am.font
}
