package render

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"video-trimmer/domain/media"
)

// Factory implements media.SurfaceFactory with in-memory RGBA images
type Factory struct {
	font   *opentype.Font
	scaler draw.Scaler
}

// FactoryOption is a functional option for configuring Factory
type FactoryOption func(*Factory)

// WithScaler sets the interpolator used when frame and surface sizes differ
func WithScaler(s draw.Scaler) FactoryOption {
	return func(f *Factory) {
		f.scaler = s
	}
}

// NewFactory creates a surface factory using the bundled Go Bold font
func NewFactory(opts ...FactoryOption) (*Factory, error) {
	ttf, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse watermark font: %w", err)
	}

	f := &Factory{
		font:   ttf,
		scaler: draw.ApproxBiLinear,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

// NewSurface implements media.SurfaceFactory
func (f *Factory) NewSurface(width, height int) (media.Surface, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid surface size %dx%d", width, height)
	}

	layout := WatermarkLayout(width, height)
	face, err := opentype.NewFace(f.font, &opentype.FaceOptions{
		Size:    layout.FontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create watermark face: %w", err)
	}

	return &Surface{
		img:    image.NewRGBA(image.Rect(0, 0, width, height)),
		face:   face,
		layout: layout,
		scaler: f.scaler,
	}, nil
}

// Surface is an RGBA canvas
type Surface struct {
	img    *image.RGBA
	face   font.Face
	layout Layout
	scaler draw.Scaler
}

// Bounds implements media.Surface
func (s *Surface) Bounds() image.Rectangle {
	return s.img.Bounds()
}

// Image exposes the canvas
func (s *Surface) Image() *image.RGBA {
	return s.img
}

// DrawFrame implements media.Surface
func (s *Surface) DrawFrame(src image.Image) {
	dst := s.img.Bounds()
	if src.Bounds().Size() == dst.Size() {
		draw.Draw(s.img, dst, src, src.Bounds().Min, draw.Src)
		return
	}
	s.scaler.Scale(s.img, dst, src, src.Bounds(), draw.Src, nil)
}

// DrawWatermark implements media.Surface. The label is drawn twice, a
// shadow first and the foreground over it.
func (s *Surface) DrawWatermark(label string) {
	if label == "" {
		return
	}

	width := font.MeasureString(s.face, label)
	descent := s.face.Metrics().Descent

	s.drawText(label, s.layout.ShadowAnchor, width, descent, ShadowColor)
	s.drawText(label, s.layout.Anchor, width, descent, ForegroundColor)
}

// drawText places label so its right edge and descender line meet anchor
func (s *Surface) drawText(label string, anchor image.Point, width, descent fixed.Int26_6, c color.Color) {
	d := &font.Drawer{
		Dst:  s.img,
		Src:  image.NewUniform(c),
		Face: s.face,
		Dot: fixed.Point26_6{
			X: fixed.I(anchor.X) - width,
			Y: fixed.I(anchor.Y) - descent,
		},
	}
	d.DrawString(label)
}

// Snapshot implements media.Surface
func (s *Surface) Snapshot() []byte {
	out := make([]byte, len(s.img.Pix))
	copy(out, s.img.Pix)
	return out
}

// Close implements media.Surface
func (s *Surface) Close() error {
	return s.face.Close()
}

// Ensure Factory implements media.SurfaceFactory
var (
	_ media.SurfaceFactory = (*Factory)(nil)
	_ media.Surface        = (*Surface)(nil)
)
