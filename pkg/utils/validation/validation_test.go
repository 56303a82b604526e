package validation

import (
	"bytes"
	"image"
	"image/png"
	"mime/multipart"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageRuleCheck(t *testing.T) {
	assert.ErrorIs(t, ProductImage.Check(nil), ErrFileRequired)
	assert.ErrorIs(t, ProductImage.Check(&multipart.FileHeader{Filename: "a.gif", Size: 10}), ErrFileType)
	assert.NoError(t, ProductImage.Check(&multipart.FileHeader{Filename: "Manga.JPG", Size: 1024}))

	// 6MB passa para plano, não para produto
	big := &multipart.FileHeader{Filename: "banner.png", Size: 6 << 20}
	err := ProductImage.Check(big)
	assert.ErrorIs(t, err, ErrFileSize)
	assert.Contains(t, err.Error(), "produto até 5MB")
	assert.NoError(t, PlanImage.Check(big))

	spoofed := &multipart.FileHeader{
		Filename: "foto.png",
		Size:     1024,
		Header:   textproto.MIMEHeader{"Content-Type": {"image/gif"}},
	}
	assert.ErrorIs(t, ProductImage.Check(spoofed), ErrFileType)

	spoofed.Header.Set("Content-Type", "image/png")
	assert.NoError(t, ProductImage.Check(spoofed))
}

func pngOf(t *testing.T, w, h int) *bytes.Buffer {
	t.Helper()
	buf := new(bytes.Buffer)
	require.NoError(t, png.Encode(buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf
}

func TestImageRuleCheckDimensions(t *testing.T) {
	assert.NoError(t, ProductImage.CheckDimensions(pngOf(t, 400, 400)))

	err := PlanImage.CheckDimensions(pngOf(t, 400, 400))
	assert.ErrorIs(t, err, ErrImageSmall)
	assert.Contains(t, err.Error(), "1200x600")
	assert.NoError(t, PlanImage.CheckDimensions(pngOf(t, 1200, 600)))

	assert.ErrorIs(t, ProductImage.CheckDimensions(bytes.NewBufferString("não é imagem")), ErrImageCorrupt)
}

func TestRegistration(t *testing.T) {
	assert.Empty(t, Registration("ana@example.com", "frutas123", "Ana"))
	assert.Len(t, Registration("ana", "123", " "), 3)
}
