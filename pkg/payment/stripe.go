package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"

	"github.com/noah-isme/camp-school-api/pkg/config"
)

// ErrInvalidAmount is returned when the amount cannot be charged.
var ErrInvalidAmount = errors.New("amount must be positive")

// Gateway creates payment intents that the client confirms on its side.
type Gateway interface {
	CreateIntent(ctx context.Context, amountMinor int64, currency string) (string, error)
}

type intentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// StripeGateway is a Gateway backed by the Stripe PaymentIntents API.
type StripeGateway struct {
	intents  intentAPI
	currency string
	logger   *zap.Logger
}

// NewStripeGateway builds a Stripe client from configuration.
func NewStripeGateway(cfg config.StripeConfig, logger *zap.Logger) *StripeGateway {
	sc := client.New(cfg.SecretKey, nil)
	return newStripeGateway(sc.PaymentIntents, cfg.Currency, logger)
}

func newStripeGateway(api intentAPI, currency string, logger *zap.Logger) *StripeGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	if currency == "" {
		currency = "usd"
	}
	return &StripeGateway{intents: api, currency: strings.ToLower(currency), logger: logger}
}

// CreateIntent creates a card payment intent and returns its client secret. An empty currency
// falls back to the configured default.
func (g *StripeGateway) CreateIntent(ctx context.Context, amountMinor int64, currency string) (string, error) {
	if amountMinor <= 0 {
		return "", ErrInvalidAmount
	}
	if currency == "" {
		currency = g.currency
	}
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(amountMinor),
		Currency:           stripe.String(strings.ToLower(currency)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	params.Context = ctx

	intent, err := g.intents.New(params)
	if err != nil {
		g.logger.Warn("stripe payment intent failed", zap.Int64("amount", amountMinor), zap.String("currency", currency), zap.Error(err))
		return "", fmt.Errorf("create payment intent: %w", err)
	}
	g.logger.Debug("stripe payment intent created", zap.String("intent_id", intent.ID))
	return intent.ClientSecret, nil
}

// ToMinorUnits converts a decimal price to the smallest currency unit, rounding half away from zero.
func ToMinorUnits(price float64) (int64, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return 0, ErrInvalidAmount
	}
	minor := int64(math.Round(price * 100))
	if minor <= 0 {
		return 0, ErrInvalidAmount
	}
	return minor, nil
}
