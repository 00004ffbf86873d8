package render

import (
	"image"
	"image/color"
	"math"
)

// Watermark geometry, relative to the surface height
const (
	minFontSize    = 16
	fontSizeRatio  = 0.04
	marginRatio    = 0.8
	shadowOffset   = 2
	descenderRatio = 0.2
)

var (
	// ShadowColor is the watermark shadow, black at 50% opacity
	ShadowColor = color.NRGBA{R: 0, G: 0, B: 0, A: 128}
	// ForegroundColor is the watermark text, white at 70% opacity
	ForegroundColor = color.NRGBA{R: 255, G: 255, B: 255, A: 179}
)

// Layout positions a right-aligned, bottom-anchored watermark
type Layout struct {
	FontSize float64
	Margin   float64
	// Anchor is the bottom-right corner of the foreground text
	Anchor image.Point
	// ShadowAnchor is Anchor shifted down and right by the shadow offset
	ShadowAnchor image.Point
}

// FontSize returns the watermark size for a surface of the given height
func FontSize(height int) float64 {
	return math.Max(minFontSize, float64(height)*fontSizeRatio)
}

// WatermarkLayout computes the watermark anchors for a width x height surface
func WatermarkLayout(width, height int) Layout {
	size := FontSize(height)
	margin := size * marginRatio

	anchor := image.Pt(
		int(math.Round(float64(width)-margin)),
		int(math.Round(float64(height)-margin)),
	)
	return Layout{
		FontSize:     size,
		Margin:       margin,
		Anchor:       anchor,
		ShadowAnchor: anchor.Add(image.Pt(shadowOffset, shadowOffset)),
	}
}

// Descent approximates how far glyphs reach below the baseline
func (l Layout) Descent() int {
	return int(math.Round(l.FontSize * descenderRatio))
}
