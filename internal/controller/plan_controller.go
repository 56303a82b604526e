package controller

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"fruitbox_backend/internal/model"
	"fruitbox_backend/pkg/customization"
	"fruitbox_backend/pkg/database"
)

type RuleInput struct {
	Category    string `json:"category"`
	MinQuantity int    `json:"min_quantity"`
	MaxQuantity int    `json:"max_quantity"`
}

type PlanInput struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Price       decimal.Decimal      `json:"price"`
	Active      *bool                `json:"active"`
	FixedItems  []SelectionItemInput `json:"fixed_items"`
	Rules       []RuleInput          `json:"rules"`
}

type ValidateSelectionInput struct {
	Items []SelectionItemInput `json:"items"`
}

func loadPlanBySlug(db *gorm.DB, slug string) (*model.Plan, error) {
	var plan model.Plan
	err := db.Preload("FixedItems.Product").Preload("Rules").
		Where("slug = ? AND active = ?", slug, true).
		First(&plan).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errPlanNotFound
		}
		return nil, err
	}
	return &plan, nil
}

func ListPlans(c *fiber.Ctx) error {
	var plans []model.Plan
	err := database.GetDB().Preload("FixedItems.Product").Preload("Rules", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).Where("active = ?", true).Order("price ASC").Find(&plans).Error
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(plans)
}

func GetPlan(c *fiber.Ctx) error {
	plan, err := loadPlanBySlug(database.GetDB(), c.Params("slug"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(plan)
}

// ValidatePlanSelection é a conferência interativa, recalculada a cada mudança de quantidade.
// Sempre 200: o resultado diz se a seleção é válida.
func ValidatePlanSelection(c *fiber.Ctx) error {
	plan, err := loadPlanBySlug(database.GetDB(), c.Params("slug"))
	if err != nil {
		return respondError(c, err)
	}

	input := new(ValidateSelectionInput)
	if err := c.BodyParser(input); err != nil {
		return respondError(c, errInvalidInput)
	}

	items, _, missing, err := catalogItems(database.GetDB(), mergeItems(input.Items))
	if err != nil {
		return respondError(c, err)
	}

	result := checkSelection(plan, items)
	if len(missing) > 0 {
		result.Valid = false
		result.Errors = append(result.Errors, missing...)
	}

	return c.JSON(fiber.Map{
		"valid":  result.Valid,
		"errors": result.Errors,
		"counts": customization.Counts(plan.CustomizationRules(), items),
	})
}

func (in *PlanInput) build(db *gorm.DB) (*model.Plan, []string, error) {
	var errs []string
	if strings.TrimSpace(in.Name) == "" {
		errs = append(errs, "Informe o nome do plano")
	}
	if !in.Price.IsPositive() {
		errs = append(errs, "O preço deve ser maior que zero")
	}

	plan := &model.Plan{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       in.Price,
		Active:      in.Active == nil || *in.Active,
	}

	rules := make([]customization.Rule, 0, len(in.Rules))
	for i, r := range in.Rules {
		rules = append(rules, customization.Rule{Category: r.Category, MinQuantity: r.MinQuantity, MaxQuantity: r.MaxQuantity})
		plan.Rules = append(plan.Rules, model.CustomizationRule{
			Category:    r.Category,
			MinQuantity: r.MinQuantity,
			MaxQuantity: r.MaxQuantity,
			Position:    i,
		})
	}
	if err := customization.ValidateRules(rules); err != nil {
		errs = append(errs, err.Error())
	}

	fixed := mergeItems(in.FixedItems)
	_, products, missing, err := catalogItems(db, fixed)
	if err != nil {
		return nil, nil, err
	}
	errs = append(errs, missing...)
	for id, qty := range fixed {
		if _, ok := products[id]; ok {
			plan.FixedItems = append(plan.FixedItems, model.PlanFixedItem{ProductID: id, Quantity: qty})
		}
	}
	return plan, errs, nil
}

func CreatePlan(c *fiber.Ctx) error {
	input := new(PlanInput)
	if err := c.BodyParser(input); err != nil {
		return respondError(c, errInvalidInput)
	}

	plan, errs, err := input.build(database.GetDB())
	if err != nil {
		return respondError(c, err)
	}
	if len(errs) > 0 {
		return respondValidation(c, "Plano inválido", errs)
	}

	if err := database.GetDB().Create(plan).Error; err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(plan)
}

// UpdatePlan troca itens fixos e regras por completo. Assinaturas existentes mantêm os itens já materializados.
func UpdatePlan(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	var current model.Plan
	if err := database.GetDB().First(&current, id).Error; err != nil {
		return respondError(c, err)
	}

	input := new(PlanInput)
	if err := c.BodyParser(input); err != nil {
		return respondError(c, errInvalidInput)
	}
	plan, errs, err := input.build(database.GetDB())
	if err != nil {
		return respondError(c, err)
	}
	if len(errs) > 0 {
		return respondValidation(c, "Plano inválido", errs)
	}

	err = database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&current).Updates(map[string]interface{}{
			"name":        plan.Name,
			"description": plan.Description,
			"price":       plan.Price,
			"active":      plan.Active,
		}).Error; err != nil {
			return err
		}
		if err := tx.Where("plan_id = ?", current.ID).Delete(&model.PlanFixedItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("plan_id = ?", current.ID).Delete(&model.CustomizationRule{}).Error; err != nil {
			return err
		}
		for i := range plan.FixedItems {
			plan.FixedItems[i].PlanID = current.ID
		}
		for i := range plan.Rules {
			plan.Rules[i].PlanID = current.ID
		}
		if len(plan.FixedItems) > 0 {
			if err := tx.Create(&plan.FixedItems).Error; err != nil {
				return err
			}
		}
		if len(plan.Rules) > 0 {
			if err := tx.Create(&plan.Rules).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return respondError(c, err)
	}

	updated, err := model.LoadPlan(database.GetDB(), current.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(updated)
}

func DeletePlan(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	res := database.GetDB().Delete(&model.Plan{}, id)
	if res.Error != nil {
		return respondError(c, res.Error)
	}
	if res.RowsAffected == 0 {
		return respondError(c, errNotFound)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
