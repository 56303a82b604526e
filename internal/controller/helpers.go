package controller

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"fruitbox_backend/internal/middleware"
	"fruitbox_backend/internal/model"
	"fruitbox_backend/pkg/customization"
	"fruitbox_backend/pkg/utils/jwt"
)

type SelectionItemInput struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errInvalidID
	}
	return uint(id), nil
}

func currentUser(c *fiber.Ctx) (*jwt.Claims, error) {
	claims := middleware.Claims(c)
	if claims == nil {
		return nil, errUnauthorized
	}
	return claims, nil
}

// mergeItems soma quantidades repetidas do mesmo produto e descarta as <= 0
func mergeItems(in []SelectionItemInput) map[uint]int {
	out := make(map[uint]int, len(in))
	for _, it := range in {
		if it.ProductID == 0 || it.Quantity <= 0 {
			continue
		}
		out[it.ProductID] += it.Quantity
	}
	return out
}

// catalogItems carrega os produtos ativos da seleção. missing lista mensagens para ids desconhecidos.
func catalogItems(db *gorm.DB, quantities map[uint]int) (items []customization.Item, products map[uint]model.Product, missing []string, err error) {
	ids := make([]uint, 0, len(quantities))
	for id := range quantities {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	products = make(map[uint]model.Product, len(ids))
	if len(ids) > 0 {
		var found []model.Product
		if err := db.Where("id IN ? AND active = ?", ids, true).Find(&found).Error; err != nil {
			return nil, nil, nil, err
		}
		for _, p := range found {
			products[p.ID] = p
		}
	}

	for _, id := range ids {
		p, ok := products[id]
		if !ok {
			missing = append(missing, fmt.Sprintf("Produto %d não encontrado", id))
			continue
		}
		items = append(items, customization.Item{ProductID: id, Category: p.Category, Quantity: quantities[id]})
	}
	return items, products, missing, nil
}

// checkSelection roda o motor de regras no servidor e devolve todas as mensagens de erro
func checkSelection(plan *model.Plan, items []customization.Item) customization.Result {
	rules := plan.CustomizationRules()
	res := customization.Validate(rules, items)
	if extra := customization.Uncovered(rules, items); len(extra) > 0 {
		res.Errors = append(res.Errors, extra...)
		res.Valid = false
	}
	return res
}
