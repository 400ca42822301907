package services

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/png"
	"io"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

const (
	mimePNG  = "image/png"
	mimeGIF  = "image/gif"
	mimeBMP  = "image/bmp"
	mimeTIFF = "image/tiff"
)

// pngDecoders lists image types the model does not accept directly. They are re-encoded
// as PNG before transcription. Only the first frame of an animated GIF or multi-page
// TIFF is kept.
var pngDecoders = map[string]func(io.Reader) (image.Image, error){
	mimeGIF:  gif.Decode,
	mimeBMP:  bmp.Decode,
	mimeTIFF: tiff.Decode,
}

// toModelImage returns data unchanged unless its type needs converting to PNG.
func toModelImage(data []byte, mimeType string) ([]byte, string, error) {
	decode, ok := pngDecoders[mimeType]
	if !ok {
		return data, mimeType, nil
	}
	img, err := decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode %s: %w", mimeType, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, "", fmt.Errorf("failed to re-encode %s as png: %w", mimeType, err)
	}
	return buf.Bytes(), mimePNG, nil
}
