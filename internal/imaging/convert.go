package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/gabriel-vasile/mimetype"
)

// ToPNG re-encodes data as PNG. PNG input is returned as is.
func ToPNG(data []byte) ([]byte, error) {
	if mimetype.Detect(data).Is("image/png") {
		return data, nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	var out bytes.Buffer
	if err := png.Encode(&out, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return out.Bytes(), nil
}
