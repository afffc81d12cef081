package overlay

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/1broseidon/stickyfollow/internal/anchor"
)

// LoadImage decodes a PNG, JPEG, GIF or WebP file.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sticker image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode sticker image %s: %w", path, err)
	}
	return img, nil
}

// NaturalSize is the size of img in pixels.
func NaturalSize(img image.Image) anchor.Size {
	if img == nil {
		return anchor.Size{}
	}
	b := img.Bounds()
	return anchor.Size{Width: float64(b.Dx()), Height: float64(b.Dy())}
}

// Scale resamples img to w x h. It returns img unchanged when the size
// already matches.
func Scale(img image.Image, w, h int) image.Image {
	if w <= 0 || h <= 0 {
		return img
	}
	if b := img.Bounds(); b.Dx() == w && b.Dy() == h {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// Placeholder is drawn for stickers whose image cannot be loaded.
func Placeholder(size anchor.Size) image.Image {
	w, h := int(size.Width), int(size.Height)
	if w <= 0 || h <= 0 {
		w, h = 64, 64
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	fill := color.RGBA{R: 0xf5, G: 0xd7, B: 0x6e, A: 0xff}
	edge := color.RGBA{R: 0x8a, G: 0x6d, B: 0x1f, A: 0xff}
	draw.Draw(img, img.Bounds(), &image.Uniform{C: fill}, image.Point{}, draw.Src)
	for x := 0; x < w; x++ {
		img.Set(x, 0, edge)
		img.Set(x, h-1, edge)
	}
	for y := 0; y < h; y++ {
		img.Set(0, y, edge)
		img.Set(w-1, y, edge)
	}
	return img
}
