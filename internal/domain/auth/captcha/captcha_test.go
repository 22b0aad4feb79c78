package captcha

import (
	"bytes"
	"image/jpeg"
	"regexp"
	"testing"
)

func TestGenerateProducesJPEG(t *testing.T) {
	g := NewGenerator(Options{})

	text, data, err := g.Generate()
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if !regexp.MustCompile(`^[0-9A-Za-z]{4}$`).MatchString(text) {
		t.Fatalf("unexpected captcha text %q", text)
	}

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a JPEG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != DefaultWidth || b.Dy() != DefaultHeight {
		t.Fatalf("image size = %dx%d", b.Dx(), b.Dy())
	}
}

func TestGenerateCustomSize(t *testing.T) {
	g := NewGenerator(Options{Width: 200, Height: 60, Length: 6})
	text, data, err := g.Generate()
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if len(text) != 6 {
		t.Fatalf("text length = %d", len(text))
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("DecodeConfig error: %v", err)
	}
	if cfg.Width != 200 || cfg.Height != 60 {
		t.Fatalf("image size = %dx%d", cfg.Width, cfg.Height)
	}
}

func TestRenderRejectsEmptyText(t *testing.T) {
	if _, err := NewGenerator(Options{}).Render(""); err == nil {
		t.Fatal("expected error for empty text")
	}
}
