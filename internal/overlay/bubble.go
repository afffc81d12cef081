package overlay

import (
	"image"
	"image/color"
	"strings"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/1broseidon/stickyfollow/internal/anchor"
	"github.com/1broseidon/stickyfollow/internal/platform"
)

const (
	bubblePadX    = 10
	bubblePadY    = 8
	bubbleLineGap = 3
	bubbleMaxCols = 48
)

var (
	bubbleBg   = color.RGBA{R: 0x1f, G: 0x29, B: 0x33, A: 0xff}
	bubbleText = color.RGBA{R: 0xf5, G: 0xf7, B: 0xfa, A: 0xff}
)

// Bubble is a text message shown next to a sticker. It satisfies
// message.Bubble.
type Bubble struct {
	id      string
	surface Surface

	mu     sync.Mutex
	closed bool
}

// NewBubble renders text into a new surface. The bubble starts hidden; the
// caller positions it and then calls Show.
func NewBubble(f Factory, id, text string) (*Bubble, error) {
	s, err := f.NewSurface("message")
	if err != nil {
		return nil, err
	}
	img := RenderText(text)
	s.SetImage(img)
	s.MoveResize(image.Point{}, NaturalSize(img))
	return &Bubble{id: id, surface: s}, nil
}

func (b *Bubble) ID() string                    { return b.id }
func (b *Bubble) Handle() platform.WindowHandle { return b.surface.Handle() }
func (b *Bubble) Size() anchor.Size             { return b.surface.Size() }
func (b *Bubble) Position() image.Point         { return b.surface.Position() }

func (b *Bubble) Move(topLeft image.Point) {
	b.surface.MoveResize(topLeft, b.surface.Size())
}

func (b *Bubble) Show() {
	b.surface.SetVisible(true)
}

func (b *Bubble) Alive() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.closed
}

// Close destroys the bubble's window. It is safe to call more than once.
func (b *Bubble) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()
	b.surface.Destroy()
}

// RenderText draws text on a dark rounded panel using the 7x13 bitmap
// face. Long lines are wrapped at word boundaries.
func RenderText(text string) image.Image {
	face := basicfont.Face7x13
	lines := wrap(text, bubbleMaxCols)
	if len(lines) == 0 {
		lines = []string{""}
	}

	d := &font.Drawer{Face: face}
	width := 0
	for _, line := range lines {
		if w := d.MeasureString(line).Ceil(); w > width {
			width = w
		}
	}
	lineHeight := face.Metrics().Height.Ceil() + bubbleLineGap
	w := width + 2*bubblePadX
	h := len(lines)*lineHeight - bubbleLineGap + 2*bubblePadY

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: bubbleBg}, image.Point{}, draw.Src)
	roundCorners(img, 3)

	d.Dst = img
	d.Src = &image.Uniform{C: bubbleText}
	ascent := face.Metrics().Ascent.Ceil()
	for i, line := range lines {
		d.Dot = fixed.P(bubblePadX, bubblePadY+ascent+i*lineHeight)
		d.DrawString(line)
	}
	return img
}

func roundCorners(img *image.RGBA, r int) {
	b := img.Bounds()
	transparent := color.RGBA{}
	for y := 0; y < r; y++ {
		for x := 0; x < r-y; x++ {
			img.SetRGBA(b.Min.X+x, b.Min.Y+y, transparent)
			img.SetRGBA(b.Max.X-1-x, b.Min.Y+y, transparent)
			img.SetRGBA(b.Min.X+x, b.Max.Y-1-y, transparent)
			img.SetRGBA(b.Max.X-1-x, b.Max.Y-1-y, transparent)
		}
	}
}

func wrap(text string, cols int) []string {
	var out []string
	for _, para := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		line := words[0]
		for _, word := range words[1:] {
			if len(line)+1+len(word) > cols {
				out = append(out, line)
				line = word
				continue
			}
			line += " " + word
		}
		out = append(out, line)
	}
	return out
}
