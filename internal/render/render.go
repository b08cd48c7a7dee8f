package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

//go:generate mockgen -package=mocks -destination=mocks/mock_renderer.go github.com/svetlov/captchabot/internal/render Renderer

const (
	canvasWidth  = 220
	canvasHeight = 80
	fontSize     = 36
)

var (
	backgroundColor = color.RGBA{R: 240, G: 240, B: 240, A: 255}
	textColor       = color.RGBA{R: 20, G: 20, B: 20, A: 255}
)

// Renderer draws a short text string into a PNG image
type Renderer interface {
	// Render returns the PNG bytes of the given text on a fixed canvas
	Render(text string) ([]byte, error)
}

// Config for the image renderer
type Config struct {
	// Optional font face override, mainly for tests
	Face font.Face
}

// Default implements Renderer on a 220x80 canvas with centered text
type Default struct {
	face font.Face
}

// New creates a new image renderer. If the bundled TTF face cannot be
// built it falls back to a bitmap face; construction never fails.
func New(cfg *Config) *Default {
	if cfg != nil && cfg.Face != nil {
		return &Default{face: cfg.Face}
	}
	return &Default{face: loadFace()}
}

// loadFace builds the Go Regular face, falling back to the built-in
// bitmap face when the TTF cannot be parsed
func loadFace() font.Face {
	parsed, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return basicfont.Face7x13
	}

	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    fontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return basicfont.Face7x13
	}

	return face
}

// Render draws the text centered on a light-gray canvas and encodes it
// as PNG. It is a pure function of its input and always produces an
// image, whatever the text.
func (r *Default) Render(text string) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, canvasWidth, canvasHeight))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: backgroundColor}, image.Point{}, draw.Src)

	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(textColor),
		Face: r.face,
	}

	textWidth := drawer.MeasureString(text)
	metrics := r.face.Metrics()

	drawer.Dot = fixed.Point26_6{
		X: (fixed.I(canvasWidth) - textWidth) / 2,
		Y: (fixed.I(canvasHeight) + metrics.Ascent - metrics.Descent) / 2,
	}
	drawer.DrawString(text)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode captcha image: %w", err)
	}

	return buf.Bytes(), nil
}
