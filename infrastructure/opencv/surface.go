//go:build opencv

package opencv

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"gocv.io/x/gocv"

	"video-trimmer/domain/media"
	"video-trimmer/infrastructure/render"
)

const (
	fontFace      = gocv.FontHersheySimplex
	fontThickness = 2
	// capHeightRatio is the share of the em size covered by capitals
	capHeightRatio = 0.72
)

// Factory implements media.SurfaceFactory with OpenCV matrices
type Factory struct{}

// NewFactory creates an OpenCV surface factory
func NewFactory() (*Factory, error) {
	return &Factory{}, nil
}

// NewSurface implements media.SurfaceFactory
func (f *Factory) NewSurface(width, height int) (media.Surface, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid surface size %dx%d", width, height)
	}
	return &Surface{
		mat:    gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC4),
		width:  width,
		height: height,
		layout: render.WatermarkLayout(width, height),
	}, nil
}

// Surface is a 4-channel OpenCV matrix holding RGBA pixels
type Surface struct {
	mat    gocv.Mat
	width  int
	height int
	layout render.Layout
}

// Bounds implements media.Surface
func (s *Surface) Bounds() image.Rectangle {
	return image.Rect(0, 0, s.width, s.height)
}

// DrawFrame implements media.Surface
func (s *Surface) DrawFrame(src image.Image) {
	rgba := toRGBA(src)
	b := rgba.Bounds()

	frame, err := gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8UC4, rgba.Pix)
	if err != nil {
		return
	}
	defer frame.Close()

	if b.Dx() == s.width && b.Dy() == s.height {
		frame.CopyTo(&s.mat)
		return
	}
	gocv.Resize(frame, &s.mat, image.Pt(s.width, s.height), 0, 0, gocv.InterpolationLinear)
}

// DrawWatermark implements media.Surface. Text is blended onto the frame
// with the same opacities as the pure-Go surface.
func (s *Surface) DrawWatermark(label string) {
	if label == "" {
		return
	}

	base := gocv.GetTextSize(label, fontFace, 1, fontThickness)
	if base.Y <= 0 {
		return
	}
	scale := s.layout.FontSize * capHeightRatio / float64(base.Y)
	size := gocv.GetTextSize(label, fontFace, scale, fontThickness)
	descent := s.layout.Descent()

	s.blendText(label, s.layout.ShadowAnchor, size, descent, scale, render.ShadowColor)
	s.blendText(label, s.layout.Anchor, size, descent, scale, render.ForegroundColor)
}

func (s *Surface) blendText(label string, anchor, size image.Point, descent int, scale float64, c color.NRGBA) {
	overlay := s.mat.Clone()
	defer overlay.Close()

	org := image.Pt(anchor.X-size.X, anchor.Y-descent)
	gocv.PutText(&overlay, label, org, fontFace, scale, color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}, fontThickness)

	alpha := float64(c.A) / 255
	gocv.AddWeighted(overlay, alpha, s.mat, 1-alpha, 0, &s.mat)
}

// Snapshot implements media.Surface
func (s *Surface) Snapshot() []byte {
	return s.mat.ToBytes()
}

// Close implements media.Surface
func (s *Surface) Close() error {
	return s.mat.Close()
}

func toRGBA(src image.Image) *image.RGBA {
	if rgba, ok := src.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) && rgba.Stride == rgba.Rect.Dx()*4 {
		return rgba
	}
	b := src.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), src, b.Min, draw.Src)
	return rgba
}

// Ensure Factory implements media.SurfaceFactory
var (
	_ media.SurfaceFactory = (*Factory)(nil)
	_ media.Surface        = (*Surface)(nil)
)
