// Package imaging composites a watermark onto generated images.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"math"
	"os"

	_ "image/jpeg"
	_ "image/png"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

type Placement string

const (
	// PlacementTile repeats the mark across the canvas from the top-left corner.
	PlacementTile Placement = "tile"
	// PlacementCenter scales the mark to the canvas width and draws it once, centered.
	PlacementCenter Placement = "center"
)

type Options struct {
	Placement Placement
	// Opacity multiplies the mark's alpha. Values outside [0,1) leave it as is.
	Opacity float64
}

type Watermarker struct {
	MarkPath string
}

func NewWatermarker(markPath string) *Watermarker {
	return &Watermarker{MarkPath: markPath}
}

// Apply returns src with the mark composited on top, encoded as PNG.
// When the mark file does not exist src is returned unchanged.
func (w *Watermarker) Apply(src []byte, opts Options) ([]byte, error) {
	mark, err := loadMark(w.MarkPath)
	if errors.Is(err, fs.ErrNotExist) {
		return src, nil
	}
	if err != nil {
		return nil, err
	}

	base, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	dc := gg.NewContextForImage(base)
	width, height := dc.Width(), dc.Height()

	switch opts.Placement {
	case PlacementTile:
		scaleAlpha(mark, opts.Opacity)
		mw, mh := mark.Bounds().Dx(), mark.Bounds().Dy()
		if mw == 0 || mh == 0 {
			return nil, errors.New("watermark has no pixels")
		}
		for y := 0; y < height; y += mh {
			for x := 0; x < width; x += mw {
				dc.DrawImage(mark, x, y)
			}
		}
	case PlacementCenter, "":
		resized := resizeToWidth(mark, width)
		scaleAlpha(resized, opts.Opacity)
		dc.DrawImageAnchored(resized, width/2, height/2, 0.5, 0.5)
	default:
		return nil, fmt.Errorf("unknown watermark placement %q", opts.Placement)
	}

	var out bytes.Buffer
	if err := dc.EncodePNG(&out); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return out.Bytes(), nil
}

func loadMark(path string) (*image.NRGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode watermark: %w", err)
	}
	return toNRGBA(img), nil
}

func toNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// resizeToWidth scales m to width w keeping its aspect ratio.
func resizeToWidth(m *image.NRGBA, w int) *image.NRGBA {
	mb := m.Bounds()
	if mb.Dx() == 0 || w <= 0 {
		return m
	}
	h := int(math.Round(float64(mb.Dy()) * float64(w) / float64(mb.Dx())))
	if h < 1 {
		h = 1
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), m, mb, draw.Src, nil)
	return dst
}

func scaleAlpha(m *image.NRGBA, opacity float64) {
	if opacity < 0 || opacity >= 1 {
		return
	}
	for i := 3; i < len(m.Pix); i += 4 {
		m.Pix[i] = uint8(math.Round(float64(m.Pix[i]) * opacity))
	}
}
