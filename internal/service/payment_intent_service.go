package service

import (
	"context"
	"database/sql"
	"errors"
	"math"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/camp-school-api/internal/dto"
	"github.com/noah-isme/camp-school-api/internal/models"
	appErrors "github.com/noah-isme/camp-school-api/pkg/errors"
	"github.com/noah-isme/camp-school-api/pkg/payment"
)

// PaymentIntentService asks the gateway for a client secret after checking the class can take
// the student, so nobody is charged for a full class.
type PaymentIntentService struct {
	gateway   payment.Gateway
	classes   classFinder
	currency  string
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPaymentIntentService constructs a PaymentIntentService.
func NewPaymentIntentService(gateway payment.Gateway, classes classFinder, currency string, validate *validator.Validate, logger *zap.Logger) *PaymentIntentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &PaymentIntentService{gateway: gateway, classes: classes, currency: currency, validator: validate, logger: logger}
}

// Create validates the request and returns the gateway client secret.
func (s *PaymentIntentService) Create(ctx context.Context, req dto.PaymentIntentRequest, claims *models.JWTClaims) (*dto.PaymentIntentResponse, error) {
	if err := requireClaims(claims); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid payment intent payload")
	}
	amount, err := payment.ToMinorUnits(req.Price)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "price must be a positive amount")
	}

	if req.ClassID != "" {
		class, err := s.classes.FindByID(ctx, req.ClassID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrClassNotFound, "class not found")
			}
			return nil, appErrors.Transient(err, "failed to check class availability")
		}
		if class.Status != models.ClassStatusApproved {
			return nil, appErrors.Clone(appErrors.ErrValidation, "class is not open for enrollment")
		}
		if !class.HasSeat() {
			return nil, appErrors.Clone(appErrors.ErrSeatUnavailable, "class is full")
		}
		if math.Abs(class.Price-req.Price) > 0.005 {
			return nil, appErrors.WithDetails(
				appErrors.Clone(appErrors.ErrValidation, "price does not match class price"),
				map[string]interface{}{"class_price": class.Price},
			)
		}
	}

	secret, err := s.gateway.CreateIntent(ctx, amount, s.currency)
	if err != nil {
		s.logger.Warn("payment intent failed", zap.String("email", claims.Email), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrGateway.Code, appErrors.ErrGateway.Status, "payment gateway unavailable")
	}
	return &dto.PaymentIntentResponse{ClientSecret: secret}, nil
}
