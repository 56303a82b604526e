package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"fruitbox_backend/internal/model"
	"fruitbox_backend/pkg/checkout"
	"fruitbox_backend/pkg/database"
	"fruitbox_backend/pkg/payment"
	"fruitbox_backend/pkg/selection"
)

var (
	gateway       payment.Gateway
	resolver      *checkout.Resolver
	appBaseURL    string
	storeCurrency string

	errOutOfStock   = newAPIError(fiber.StatusConflict, "out_of_stock", "Estoque insuficiente")
	errEmptyCart    = newAPIError(fiber.StatusUnprocessableEntity, "empty_cart", "Nenhum produto selecionado")
	errAddressLarge = newAPIError(fiber.StatusUnprocessableEntity, "address_too_long", "Endereço de entrega muito longo")
)

func InitCheckoutController(gw payment.Gateway, r *checkout.Resolver, baseURL, currency string) {
	gateway = gw
	resolver = r
	appBaseURL = strings.TrimRight(baseURL, "/")
	storeCurrency = currency
}

type SubscriptionCheckoutInput struct {
	PlanID            uint                 `json:"plan_id"`
	Items             []SelectionItemInput `json:"items"`
	SavePaymentMethod bool                 `json:"save_payment_method"`
}

type OrderCheckoutInput struct {
	Items             []SelectionItemInput `json:"items"`
	ShippingAddress   json.RawMessage      `json:"shipping_address"`
	SavePaymentMethod bool                 `json:"save_payment_method"`
}

func cents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

// CreateSubscriptionCheckout valida a personalização no servidor e abre a sessão de pagamento recorrente.
// Sem itens no corpo, usa a seleção guardada no cookie.
func CreateSubscriptionCheckout(c *fiber.Ctx) error {
	claims, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}

	input := new(SubscriptionCheckoutInput)
	if err := c.BodyParser(input); err != nil {
		return respondError(c, errInvalidInput)
	}

	quantities := mergeItems(input.Items)
	token := selectionToken(c)
	if len(quantities) == 0 && selections != nil {
		sel, err := selections.Get(c.UserContext(), token)
		switch {
		case err == nil:
			quantities = sel.Items
			if input.PlanID == 0 {
				input.PlanID = sel.PlanID
			}
			input.SavePaymentMethod = input.SavePaymentMethod || sel.SavePaymentMethod
		case !errors.Is(err, selection.ErrNotFound):
			return respondError(c, err)
		}
	}

	db := database.GetDB()
	plan, err := model.LoadPlan(db, input.PlanID)
	if err != nil || !plan.Active {
		return respondError(c, errPlanNotFound)
	}

	items, _, missing, err := catalogItems(db, quantities)
	if err != nil {
		return respondError(c, err)
	}
	result := checkSelection(plan, items)
	if len(missing) > 0 || !result.Valid {
		return respondValidation(c, "Personalização inválida", append(missing, result.Errors...))
	}

	encoded, err := checkout.EncodeSelection(items)
	if err != nil {
		return respondValidation(c, "Personalização inválida", []string{"Seleção grande demais"})
	}

	customerID, err := resolver.EnsureCustomer(c.UserContext(), claims.UserID, "")
	if err != nil {
		return respondError(c, fmt.Errorf("%w: %w", checkout.ErrGateway, err))
	}

	params := payment.CheckoutParams{
		Mode:       payment.ModeSubscription,
		CustomerID: customerID,
		Currency:   storeCurrency,
		Lines: []payment.CheckoutLine{{
			Name:       plan.Name,
			UnitAmount: cents(plan.Price),
			Quantity:   1,
		}},
		SuccessURL: fmt.Sprintf("%s/checkout/success?session_id={CHECKOUT_SESSION_ID}&plan_id=%d", appBaseURL, plan.ID),
		CancelURL:  fmt.Sprintf("%s/planos/%s", appBaseURL, plan.Slug),
		Metadata: map[string]string{
			payment.MetaUserID:            strconv.FormatUint(uint64(claims.UserID), 10),
			payment.MetaPlanID:            strconv.FormatUint(uint64(plan.ID), 10),
			payment.MetaSelection:         encoded,
			payment.MetaSavePaymentMethod: strconv.FormatBool(input.SavePaymentMethod),
		},
		SavePaymentMethod: input.SavePaymentMethod,
	}

	sess, err := gateway.CreateCheckoutSession(c.UserContext(), params)
	if err != nil {
		return respondError(c, fmt.Errorf("%w: %w", checkout.ErrGateway, err))
	}

	if selections != nil && token != "" {
		if err := selections.Delete(c.UserContext(), token); err != nil {
			log.Warn().Err(err).Msg("Could not clear selection after checkout")
		}
		c.ClearCookie(selection.CookieName)
	}

	log.Info().Uint("user_id", claims.UserID).Uint("plan_id", plan.ID).Str("session_id", sess.ID).Msg("Subscription checkout started")
	return c.JSON(sess)
}

// CreateOrderCheckout abre a sessão de pagamento avulso para uma compra de frutas
func CreateOrderCheckout(c *fiber.Ctx) error {
	claims, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}

	input := new(OrderCheckoutInput)
	if err := c.BodyParser(input); err != nil {
		return respondError(c, errInvalidInput)
	}

	quantities := mergeItems(input.Items)
	if len(quantities) == 0 {
		return respondError(c, errEmptyCart)
	}

	items, products, missing, err := catalogItems(database.GetDB(), quantities)
	if err != nil {
		return respondError(c, err)
	}
	if len(missing) > 0 {
		return respondValidation(c, "Produtos inválidos", missing)
	}

	lines := make([]payment.CheckoutLine, 0, len(items))
	for _, it := range items {
		p := products[it.ProductID]
		if p.StockQuantity < it.Quantity {
			return respondError(c, errOutOfStock)
		}
		lines = append(lines, payment.CheckoutLine{
			ProductID:  p.ID,
			Name:       p.Name,
			UnitAmount: cents(p.Price),
			Quantity:   int64(it.Quantity),
		})
	}

	metadata := map[string]string{
		payment.MetaUserID:            strconv.FormatUint(uint64(claims.UserID), 10),
		payment.MetaSavePaymentMethod: strconv.FormatBool(input.SavePaymentMethod),
	}
	if len(input.ShippingAddress) > 0 && string(input.ShippingAddress) != "null" {
		if !json.Valid(input.ShippingAddress) {
			return respondError(c, errInvalidInput)
		}
		if len(input.ShippingAddress) > 500 {
			return respondError(c, errAddressLarge)
		}
		metadata[payment.MetaShippingAddress] = string(input.ShippingAddress)
	}

	params := payment.CheckoutParams{
		Mode:              payment.ModePayment,
		Currency:          storeCurrency,
		Lines:             lines,
		SuccessURL:        appBaseURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:         appBaseURL + "/loja",
		Metadata:          metadata,
		SavePaymentMethod: input.SavePaymentMethod,
	}

	if input.SavePaymentMethod {
		customerID, err := resolver.EnsureCustomer(c.UserContext(), claims.UserID, "")
		if err != nil {
			return respondError(c, fmt.Errorf("%w: %w", checkout.ErrGateway, err))
		}
		params.CustomerID = customerID
	} else {
		params.CustomerEmail = claims.Email
	}

	sess, err := gateway.CreateCheckoutSession(c.UserContext(), params)
	if err != nil {
		return respondError(c, fmt.Errorf("%w: %w", checkout.ErrGateway, err))
	}

	log.Info().Uint("user_id", claims.UserID).Int("lines", len(lines)).Str("session_id", sess.ID).Msg("Order checkout started")
	return c.JSON(sess)
}

// CheckoutSuccess é chamado pela página de retorno do gateway e reconcilia a sessão
func CheckoutSuccess(c *fiber.Ctx) error {
	ref := checkout.Reference{SessionID: c.Query("session_id")}
	if raw := c.Query("plan_id"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			ref.PlanID = uint(id)
		}
	}

	res, err := resolver.Resolve(c.UserContext(), ref)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}
