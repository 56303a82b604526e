package validation

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	_ "github.com/chai2010/webp"
)

var (
	ErrFileRequired = errors.New("Nenhum arquivo enviado")
	ErrFileSize     = errors.New("Arquivo maior que o limite")
	ErrFileType     = errors.New("Tipo de arquivo inválido. Permitidos: JPG, PNG, WEBP")
	ErrImageSmall   = errors.New("Imagem pequena demais")
	ErrImageCorrupt = errors.New("Não foi possível ler a imagem")
)

// extensão -> content types aceitos para ela
var allowedImageTypes = map[string][]string{
	".jpg":  {"image/jpeg"},
	".jpeg": {"image/jpeg"},
	".png":  {"image/png"},
	".webp": {"image/webp"},
}

// ImageRule são os limites de upload de um tipo de imagem do catálogo
type ImageRule struct {
	Label     string
	MaxSize   int64
	MinWidth  int
	MinHeight int
}

var (
	// Foto do produto na vitrine, recortada em quadrado pelo front
	ProductImage = ImageRule{Label: "produto", MaxSize: 5 << 20, MinWidth: 400, MinHeight: 400}
	// Banner do plano
	PlanImage = ImageRule{Label: "plano", MaxSize: 10 << 20, MinWidth: 1200, MinHeight: 600}
)

// Check confere presença, tamanho e tipo declarado do arquivo
func (r ImageRule) Check(file *multipart.FileHeader) error {
	if file == nil {
		return ErrFileRequired
	}
	if file.Size > r.MaxSize {
		return fmt.Errorf("%w: imagens de %s até %dMB", ErrFileSize, r.Label, r.MaxSize>>20)
	}

	types, ok := allowedImageTypes[strings.ToLower(filepath.Ext(file.Filename))]
	if !ok {
		return ErrFileType
	}
	// o navegador pode não mandar o content type; quando manda, tem que bater com a extensão
	if ct := file.Header.Get("Content-Type"); ct != "" {
		for _, t := range types {
			if ct == t {
				return nil
			}
		}
		return ErrFileType
	}
	return nil
}

// CheckDimensions lê só o cabeçalho da imagem e confere o tamanho mínimo
func (r ImageRule) CheckDimensions(src io.Reader) error {
	cfg, _, err := image.DecodeConfig(src)
	if err != nil {
		return ErrImageCorrupt
	}
	if cfg.Width < r.MinWidth || cfg.Height < r.MinHeight {
		return fmt.Errorf("%w: imagens de %s precisam de pelo menos %dx%d px (recebido %dx%d)",
			ErrImageSmall, r.Label, r.MinWidth, r.MinHeight, cfg.Width, cfg.Height)
	}
	return nil
}

// ValidateImage aplica as duas conferências ao arquivo enviado
func ValidateImage(file *multipart.FileHeader, rule ImageRule) error {
	if err := rule.Check(file); err != nil {
		return err
	}

	src, err := file.Open()
	if err != nil {
		return ErrImageCorrupt
	}
	defer src.Close()

	return rule.CheckDimensions(src)
}
