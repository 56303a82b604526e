package image

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"

	"github.com/chai2010/webp"
)

const (
	MaxImageSize = 10 * 1024 * 1024 // 10MB
	Quality      = 85
)

var AllowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// ProcessImage decodifica JPEG, PNG ou WebP e reescreve tudo como WebP
func ProcessImage(file *multipart.FileHeader) (*bytes.Buffer, string, error) {
	src, err := file.Open()
	if err != nil {
		return nil, "", fmt.Errorf("could not open file: %w", err)
	}
	defer src.Close()

	return Encode(io.LimitReader(src, MaxImageSize+1))
}

func Encode(r io.Reader) (*bytes.Buffer, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("could not decode image: %w", err)
	}

	switch format {
	case "jpeg", "png", "webp":
	default:
		return nil, "", fmt.Errorf("unsupported image format: %s", format)
	}

	buf := new(bytes.Buffer)
	if err := webp.Encode(buf, img, &webp.Options{Lossless: false, Quality: Quality}); err != nil {
		return nil, "", fmt.Errorf("could not encode image: %w", err)
	}
	return buf, "image/webp", nil
}
