package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidPNG(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func writeMark(t *testing.T, w, h int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mark.png")
	require.NoError(t, os.WriteFile(path, solidPNG(t, w, h, color.NRGBA{255, 255, 255, 255}), 0o644))
	return path
}

func decode(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func rgb8(c color.Color) (uint8, uint8, uint8) {
	r, g, b, _ := c.RGBA()
	return uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)
}

var red = color.NRGBA{200, 0, 0, 255}

func TestApply_MissingMarkReturnsInputUnchanged(t *testing.T) {
	src := []byte("definitely not an image, still returned as is")
	w := NewWatermarker(filepath.Join(t.TempDir(), "absent.png"))
	out, err := w.Apply(src, Options{Placement: PlacementTile, Opacity: 0.3})
	require.NoError(t, err)
	assert.True(t, bytes.Equal(src, out))
}

func TestApply_TileBlendsEveryCell(t *testing.T) {
	w := NewWatermarker(writeMark(t, 10, 10))
	out, err := w.Apply(solidPNG(t, 40, 30, red), Options{Placement: PlacementTile, Opacity: 0.5})
	require.NoError(t, err)

	img := decode(t, out)
	assert.Equal(t, image.Rect(0, 0, 40, 30), img.Bounds())
	for _, p := range []image.Point{{5, 5}, {15, 5}, {35, 25}} {
		r, g, b := rgb8(img.At(p.X, p.Y))
		assert.InDelta(t, 228, int(r), 3, "r at %v", p)
		assert.InDelta(t, 128, int(g), 3, "g at %v", p)
		assert.InDelta(t, 128, int(b), 3, "b at %v", p)
	}
}

func TestApply_CenterScalesToWidth(t *testing.T) {
	// 10x5 mark scaled to width 40 is 20 rows tall, centered on a 40-row canvas
	w := NewWatermarker(writeMark(t, 10, 5))
	out, err := w.Apply(solidPNG(t, 40, 40, red), Options{Placement: PlacementCenter, Opacity: 0.5})
	require.NoError(t, err)
	img := decode(t, out)

	r, g, _ := rgb8(img.At(20, 2))
	assert.Equal(t, uint8(200), r)
	assert.Equal(t, uint8(0), g)

	_, g, _ = rgb8(img.At(20, 20))
	assert.InDelta(t, 128, int(g), 4)
}

func TestApply_OpacityOutOfRangeKeepsAlpha(t *testing.T) {
	w := NewWatermarker(writeMark(t, 8, 8))
	out, err := w.Apply(solidPNG(t, 16, 16, red), Options{Placement: PlacementTile, Opacity: 1})
	require.NoError(t, err)
	r, g, b := rgb8(decode(t, out).At(3, 3))
	assert.Equal(t, [3]uint8{255, 255, 255}, [3]uint8{r, g, b})
}

func TestApply_ZeroOpacityLeavesBase(t *testing.T) {
	w := NewWatermarker(writeMark(t, 8, 8))
	out, err := w.Apply(solidPNG(t, 16, 16, red), Options{Placement: PlacementTile, Opacity: 0})
	require.NoError(t, err)
	r, g, b := rgb8(decode(t, out).At(3, 3))
	assert.Equal(t, [3]uint8{200, 0, 0}, [3]uint8{r, g, b})
}

func TestApply_Errors(t *testing.T) {
	w := NewWatermarker(writeMark(t, 4, 4))
	_, err := w.Apply([]byte("garbage"), Options{Placement: PlacementTile})
	assert.Error(t, err)

	_, err = w.Apply(solidPNG(t, 4, 4, red), Options{Placement: "diagonal"})
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "mark.png")
	require.NoError(t, os.WriteFile(bad, []byte("not png"), 0o644))
	_, err = NewWatermarker(bad).Apply(solidPNG(t, 4, 4, red), Options{Placement: PlacementTile})
	assert.Error(t, err)
}
