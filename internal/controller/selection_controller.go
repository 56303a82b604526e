package controller

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"fruitbox_backend/internal/model"
	"fruitbox_backend/pkg/database"
	"fruitbox_backend/pkg/selection"
)

var selections *selection.Store

func InitSelectionController(store *selection.Store) {
	selections = store
}

type SelectionInput struct {
	PlanID            uint                 `json:"plan_id"`
	Items             []SelectionItemInput `json:"items"`
	SavePaymentMethod bool                 `json:"save_payment_method"`
}

func selectionToken(c *fiber.Ctx) string {
	return c.Cookies(selection.CookieName)
}

func setSelectionCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     selection.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(selection.DefaultTTL),
		HTTPOnly: true,
		Secure:   c.Protocol() == "https",
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func selectionResponse(c *fiber.Ctx, sel *selection.Selection) error {
	resp := fiber.Map{"selection": sel}

	if sel.PlanID != 0 {
		plan, err := model.LoadPlan(database.GetDB(), sel.PlanID)
		if err != nil {
			return respondError(c, err)
		}
		_, products, missing, err := catalogItems(database.GetDB(), sel.Items)
		if err != nil {
			return respondError(c, err)
		}
		items := sel.ForRules(func(id uint) (string, bool) {
			p, ok := products[id]
			return p.Category, ok
		})
		result := checkSelection(plan, items)
		if len(missing) > 0 {
			result.Valid = false
			result.Errors = append(result.Errors, missing...)
		}
		resp["validation"] = result
	}
	return c.JSON(resp)
}

func GetSelection(c *fiber.Ctx) error {
	sel, err := selections.Get(c.UserContext(), selectionToken(c))
	if errors.Is(err, selection.ErrNotFound) {
		return c.JSON(fiber.Map{"selection": nil})
	}
	if err != nil {
		return respondError(c, err)
	}
	return selectionResponse(c, sel)
}

// SaveSelection substitui a seleção em andamento e devolve a validação atual
func SaveSelection(c *fiber.Ctx) error {
	input := new(SelectionInput)
	if err := c.BodyParser(input); err != nil {
		return respondError(c, errInvalidInput)
	}

	if input.PlanID != 0 {
		var count int64
		database.GetDB().Model(&model.Plan{}).Where("id = ? AND active = ?", input.PlanID, true).Count(&count)
		if count == 0 {
			return respondError(c, errPlanNotFound)
		}
	}

	sel := &selection.Selection{PlanID: input.PlanID, SavePaymentMethod: input.SavePaymentMethod}
	for id, qty := range mergeItems(input.Items) {
		sel.Set(id, qty)
	}

	token := selectionToken(c)
	if _, err := selections.Get(c.UserContext(), token); err != nil {
		token = selection.NewToken()
	}
	if err := selections.Save(c.UserContext(), token, sel); err != nil {
		return respondError(c, err)
	}
	setSelectionCookie(c, token)

	return selectionResponse(c, sel)
}

func ClearSelection(c *fiber.Ctx) error {
	if err := selections.Delete(c.UserContext(), selectionToken(c)); err != nil {
		return respondError(c, err)
	}
	c.ClearCookie(selection.CookieName)
	return c.SendStatus(fiber.StatusNoContent)
}
