package image

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/chai2010/webp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodePNGToWebP(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			src.Set(x, y, color.RGBA{R: 255, G: 140, A: 255})
		}
	}
	var in bytes.Buffer
	require.NoError(t, png.Encode(&in, src))

	out, contentType, err := Encode(&in)
	require.NoError(t, err)
	assert.Equal(t, "image/webp", contentType)

	decoded, err := webp.Decode(bytes.NewReader(out.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 8, decoded.Bounds().Dx())
}

func TestEncodeRejectsGarbage(t *testing.T) {
	_, _, err := Encode(bytes.NewReader([]byte("not an image")))
	assert.Error(t, err)
}
