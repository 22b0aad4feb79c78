package captcha

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math/rand/v2"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	DefaultWidth  = 120
	DefaultHeight = 40
	DefaultLength = 4

	alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
)

// Options configures the rendered image. Zero values take the defaults.
type Options struct {
	Width   int
	Height  int
	Length  int
	Quality int
}

// Generator renders random captcha texts to JPEG.
type Generator struct {
	width   int
	height  int
	length  int
	quality int
}

func NewGenerator(opts Options) *Generator {
	g := &Generator{width: opts.Width, height: opts.Height, length: opts.Length, quality: opts.Quality}
	if g.width <= 0 {
		g.width = DefaultWidth
	}
	if g.height <= 0 {
		g.height = DefaultHeight
	}
	if g.length <= 0 {
		g.length = DefaultLength
	}
	if g.quality <= 0 || g.quality > 100 {
		g.quality = 80
	}
	return g
}

// Generate returns a fresh random text and its JPEG rendering.
func (g *Generator) Generate() (string, []byte, error) {
	text := g.randomText()
	img, err := g.Render(text)
	if err != nil {
		return "", nil, err
	}
	return text, img, nil
}

// Render draws text onto a noisy background and encodes it as JPEG.
func (g *Generator) Render(text string) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("captcha text is empty")
	}
	canvas := image.NewRGBA(image.Rect(0, 0, g.width, g.height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.RGBA{R: 243, G: 246, B: 250, A: 255}), image.Point{}, draw.Src)
	g.drawNoise(canvas)

	face := basicfont.Face7x13
	glyphW, glyphH := face.Advance, face.Height
	scale := max(1, min(g.height*2/3/glyphH, g.width/(len(text)*glyphW+2)))
	cell := g.width / len(text)

	for i, r := range text {
		glyph := image.NewRGBA(image.Rect(0, 0, glyphW, glyphH))
		d := &font.Drawer{
			Dst:  glyph,
			Src:  image.NewUniform(randomInk()),
			Face: face,
			Dot:  fixed.P(0, face.Ascent),
		}
		d.DrawString(string(r))

		w, h := glyphW*scale, glyphH*scale
		x := i*cell + (cell-w)/2 + rand.IntN(5) - 2
		y := (g.height-h)/2 + rand.IntN(7) - 3
		draw.NearestNeighbor.Scale(canvas, image.Rect(x, y, x+w, y+h), glyph, glyph.Bounds(), draw.Over, nil)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: g.quality}); err != nil {
		return nil, fmt.Errorf("encode captcha: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *Generator) randomText() string {
	b := make([]byte, g.length)
	for i := range b {
		b[i] = alphabet[rand.IntN(len(alphabet))]
	}
	return string(b)
}

func (g *Generator) drawNoise(canvas *image.RGBA) {
	for i := 0; i < 4; i++ {
		c := color.RGBA{R: uint8(150 + rand.IntN(80)), G: uint8(150 + rand.IntN(80)), B: uint8(150 + rand.IntN(80)), A: 255}
		x0, y0 := 0, rand.IntN(g.height)
		x1, y1 := g.width-1, rand.IntN(g.height)
		steps := x1 - x0
		for s := 0; s <= steps; s++ {
			canvas.Set(x0+s, y0+(y1-y0)*s/steps, c)
		}
	}
	for i := 0; i < g.width*g.height/25; i++ {
		canvas.Set(rand.IntN(g.width), rand.IntN(g.height), color.RGBA{R: uint8(rand.IntN(200)), G: uint8(rand.IntN(200)), B: uint8(rand.IntN(200)), A: 255})
	}
}

func randomInk() color.Color {
	return color.RGBA{R: uint8(rand.IntN(110)), G: uint8(rand.IntN(110)), B: uint8(rand.IntN(110)), A: 255}
}
