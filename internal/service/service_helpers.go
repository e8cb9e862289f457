package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/camp-school-api/internal/models"
	appErrors "github.com/noah-isme/camp-school-api/pkg/errors"
)

// RequestMeta carries request attributes recorded in audit logs.
type RequestMeta struct {
	IP        string
	UserAgent string
}

type auditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

func sameEmail(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func requireClaims(claims *models.JWTClaims) error {
	if claims == nil || claims.Email == "" {
		return appErrors.ErrUnauthorized
	}
	return nil
}

func validationError(err error, message string) error {
	appErr := appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		fields := make(map[string]interface{}, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields[fe.Field()] = fe.Tag()
		}
		return appErrors.WithDetails(appErr, map[string]interface{}{"fields": fields})
	}
	return appErr
}

func recordAudit(ctx context.Context, repo auditRepository, logger *zap.Logger, actor *models.JWTClaims, entry models.AuditLog, oldValues, newValues interface{}, meta RequestMeta) {
	if repo == nil {
		return
	}
	if actor != nil && actor.UserID != "" {
		id := actor.UserID
		entry.UserID = &id
	}
	if oldValues != nil {
		entry.OldValues, _ = json.Marshal(oldValues)
	}
	if newValues != nil {
		entry.NewValues, _ = json.Marshal(newValues)
	}
	entry.IPAddress = meta.IP
	entry.UserAgent = meta.UserAgent
	if err := repo.CreateAuditLog(ctx, &entry); err != nil {
		logger.Warn("failed to record audit log", zap.String("action", entry.Action), zap.Error(err))
	}
}
