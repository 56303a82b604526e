package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"fruitbox_backend/internal/model"
	"fruitbox_backend/pkg/database"
)

type OrderStatusInput struct {
	Status string `json:"status"`
}

func GetMyOrders(c *fiber.Ctx) error {
	claims, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}

	var orders []model.Order
	err = database.GetDB().
		Where("user_id = ?", claims.UserID).
		Preload("Items.Product").
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(orders)
}

func GetOrder(c *fiber.Ctx) error {
	claims, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	var order model.Order
	if err := database.GetDB().Preload("Items.Product").First(&order, id).Error; err != nil {
		return respondError(c, err)
	}
	if order.UserID != claims.UserID && claims.Role != model.RoleAdmin {
		return respondError(c, errForbidden)
	}
	return c.JSON(order)
}

// AdminListOrders aceita ?status= e ?needs_review=true
func AdminListOrders(c *fiber.Ctx) error {
	query := database.GetDB().Preload("Items.Product").Preload("User").Order("created_at DESC")

	if status := c.Query("status"); status != "" {
		if !model.OrderStatuses[status] {
			return respondError(c, errInvalidInput)
		}
		query = query.Where("status = ?", status)
	}
	if c.QueryBool("needs_review") {
		query = query.Where("needs_review = ?", true)
	}

	var orders []model.Order
	if err := query.Find(&orders).Error; err != nil {
		return respondError(c, err)
	}

	out := make([]fiber.Map, 0, len(orders))
	for _, o := range orders {
		out = append(out, fiber.Map{
			"order": o,
			"user":  o.User.GetPublicProfile(),
		})
	}
	return c.JSON(out)
}

func UpdateOrderStatus(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	input := new(OrderStatusInput)
	if err := c.BodyParser(input); err != nil {
		return respondError(c, errInvalidInput)
	}
	if !model.OrderStatuses[input.Status] {
		return respondValidation(c, "Status inválido", []string{"Status de pedido desconhecido: " + input.Status})
	}

	db := database.GetDB()
	var order model.Order
	if err := db.First(&order, id).Error; err != nil {
		return respondError(c, err)
	}

	if err := db.Model(&order).Update("status", input.Status).Error; err != nil {
		return respondError(c, err)
	}

	log.Info().Uint("order_id", order.ID).Str("status", input.Status).Msg("Order status updated")
	return c.JSON(order)
}
