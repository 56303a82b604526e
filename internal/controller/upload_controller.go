package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"fruitbox_backend/internal/model"
	"fruitbox_backend/pkg/database"
	"fruitbox_backend/pkg/utils/image"
	"fruitbox_backend/pkg/utils/storage"
	"fruitbox_backend/pkg/utils/validation"
)

var imageStore storage.ImageStore

// InitUploadController recebe nil quando o R2 não está configurado
func InitUploadController(store storage.ImageStore) {
	imageStore = store
}

// uploadImage valida, converte para WebP, envia ao storage e troca a URL do registro.
// A imagem anterior é removida depois que o registro foi atualizado.
func uploadImage(c *fiber.Ctx, rule validation.ImageRule, record interface{}, folder, name, previousURL string) error {
	if imageStore == nil {
		return respondError(c, errStorageOff)
	}

	file, err := c.FormFile("image")
	if err != nil {
		return respondValidation(c, "Imagem inválida", []string{"Nenhum arquivo enviado"})
	}
	if err := validation.ValidateImage(file, rule); err != nil {
		return respondValidation(c, "Imagem inválida", []string{err.Error()})
	}

	buf, contentType, err := image.ProcessImage(file)
	if err != nil {
		return respondValidation(c, "Imagem inválida", []string{"Não foi possível processar a imagem"})
	}

	url, err := imageStore.Upload(c.UserContext(), folder, name, ".webp", contentType, buf.Bytes())
	if err != nil {
		return respondError(c, err)
	}

	if err := database.GetDB().Model(record).Update("image_url", url).Error; err != nil {
		if delErr := imageStore.Delete(c.UserContext(), url); delErr != nil {
			log.Warn().Err(delErr).Str("url", url).Msg("Could not remove orphan image")
		}
		return respondError(c, err)
	}

	if previousURL != "" {
		if err := imageStore.Delete(c.UserContext(), previousURL); err != nil {
			log.Warn().Err(err).Str("url", previousURL).Msg("Could not delete previous image")
		}
	}

	return c.JSON(fiber.Map{
		"message":   "Imagem enviada",
		"image_url": url,
	})
}

func UploadProductImage(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	var product model.Product
	if err := database.GetDB().First(&product, id).Error; err != nil {
		return respondError(c, err)
	}
	return uploadImage(c, validation.ProductImage, &product, "products", product.Name, product.ImageURL)
}

func UploadPlanImage(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	var plan model.Plan
	if err := database.GetDB().First(&plan, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, errPlanNotFound)
		}
		return respondError(c, err)
	}
	return uploadImage(c, validation.PlanImage, &plan, "plans", plan.Name, plan.ImageURL)
}
