package controller

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"fruitbox_backend/internal/model"
	"fruitbox_backend/pkg/database"
)

var productCategories = map[string]bool{
	model.CategoryNormal: true,
	model.CategoryExotic: true,
	model.CategoryCitrus: true,
	model.CategoryBerry:  true,
}

type ProductInput struct {
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	Active        *bool           `json:"active"`
}

func (in *ProductInput) validate() []string {
	var errs []string
	if strings.TrimSpace(in.Name) == "" {
		errs = append(errs, "Informe o nome do produto")
	}
	if !productCategories[in.Category] {
		errs = append(errs, "Categoria inválida")
	}
	if !in.Price.IsPositive() {
		errs = append(errs, "O preço deve ser maior que zero")
	}
	if in.StockQuantity < 0 {
		errs = append(errs, "O estoque não pode ser negativo")
	}
	return errs
}

// ListProducts lista o catálogo ativo, opcionalmente filtrado por ?category=
func ListProducts(c *fiber.Ctx) error {
	query := database.GetDB().Where("active = ?", true).Order("category ASC, name ASC")
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}

	var products []model.Product
	if err := query.Find(&products).Error; err != nil {
		return respondError(c, err)
	}
	return c.JSON(products)
}

func GetProduct(c *fiber.Ctx) error {
	var product model.Product
	if err := database.GetDB().Where("slug = ? AND active = ?", c.Params("slug"), true).First(&product).Error; err != nil {
		return respondError(c, err)
	}
	return c.JSON(product)
}

// AdminListProducts inclui inativos
func AdminListProducts(c *fiber.Ctx) error {
	var products []model.Product
	if err := database.GetDB().Order("id ASC").Find(&products).Error; err != nil {
		return respondError(c, err)
	}
	return c.JSON(products)
}

func CreateProduct(c *fiber.Ctx) error {
	input := new(ProductInput)
	if err := c.BodyParser(input); err != nil {
		return respondError(c, errInvalidInput)
	}
	if errs := input.validate(); len(errs) > 0 {
		return respondValidation(c, "Produto inválido", errs)
	}

	product := model.Product{
		Name:          strings.TrimSpace(input.Name),
		Description:   input.Description,
		Category:      input.Category,
		Price:         input.Price,
		StockQuantity: input.StockQuantity,
		Active:        input.Active == nil || *input.Active,
	}
	if err := database.GetDB().Create(&product).Error; err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

func UpdateProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	var product model.Product
	if err := database.GetDB().First(&product, id).Error; err != nil {
		return respondError(c, err)
	}

	input := new(ProductInput)
	if err := c.BodyParser(input); err != nil {
		return respondError(c, errInvalidInput)
	}
	if errs := input.validate(); len(errs) > 0 {
		return respondValidation(c, "Produto inválido", errs)
	}

	updates := map[string]interface{}{
		"name":           strings.TrimSpace(input.Name),
		"description":    input.Description,
		"category":       input.Category,
		"price":          input.Price,
		"stock_quantity": input.StockQuantity,
	}
	if input.Active != nil {
		updates["active"] = *input.Active
	}
	if err := database.GetDB().Model(&product).Updates(updates).Error; err != nil {
		return respondError(c, err)
	}
	return c.JSON(product)
}

// DeleteProduct faz exclusão lógica; pedidos antigos continuam referenciando o produto
func DeleteProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	res := database.GetDB().Delete(&model.Product{}, id)
	if res.Error != nil {
		return respondError(c, res.Error)
	}
	if res.RowsAffected == 0 {
		return respondError(c, errNotFound)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
