package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fruitbox_backend/internal/model"
	"fruitbox_backend/pkg/payment"
)

// savePaymentMethod vincula o meio de pagamento ao cliente do gateway quando o usuário pediu.
// Falhas aqui não desfazem a materialização, só são registradas.
func (r *Resolver) savePaymentMethod(ctx context.Context, userID uint, sess *payment.Session) {
	if sess.Metadata[payment.MetaSavePaymentMethod] != "true" || sess.PaymentMethodID == "" {
		return
	}

	customerID, err := r.EnsureCustomer(ctx, userID, sess.CustomerID)
	if err != nil {
		log.Error().Err(err).Str("session_id", sess.ID).Uint("user_id", userID).Msg("Could not resolve gateway customer")
		return
	}

	if err := r.gateway.AttachPaymentMethod(ctx, customerID, sess.PaymentMethodID); err != nil {
		log.Error().Err(err).Str("session_id", sess.ID).Str("customer_id", customerID).Msg("Could not attach payment method")
		return
	}

	err = r.db.WithContext(ctx).Model(&model.Customer{}).
		Where("user_id = ?", userID).
		Update("default_payment_method_id", sess.PaymentMethodID).Error
	if err != nil {
		log.Error().Err(err).Uint("user_id", userID).Msg("Could not store default payment method")
		return
	}
	log.Info().Uint("user_id", userID).Str("customer_id", customerID).Msg("Payment method saved")
}

// EnsureCustomer devolve o cliente do gateway do usuário, criando-o se preciso.
// known é um id já conhecido (ex.: vindo da sessão) usado antes de criar um novo.
func (r *Resolver) EnsureCustomer(ctx context.Context, userID uint, known string) (string, error) {
	db := r.db.WithContext(ctx)

	var customer model.Customer
	err := db.Where("user_id = ?", userID).First(&customer).Error
	if err == nil {
		return customer.StripeCustomerID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	customerID := known
	if customerID == "" {
		var user model.User
		if err := db.First(&user, userID).Error; err != nil {
			return "", fmt.Errorf("load user %d: %w", userID, err)
		}
		customerID, err = r.gateway.CreateCustomer(ctx, user.Email, user.Name)
		if err != nil {
			return "", err
		}
	}

	customer = model.Customer{UserID: userID, StripeCustomerID: customerID}
	res := db.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).Create(&customer)
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected == 0 {
		// outra requisição criou antes
		var current model.Customer
		if err := db.Where("user_id = ?", userID).First(&current).Error; err != nil {
			return "", err
		}
		return current.StripeCustomerID, nil
	}
	return customerID, nil
}
