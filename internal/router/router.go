package router

import (
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/camp-school-api/internal/handler"
	"github.com/noah-isme/camp-school-api/internal/middleware"
	"github.com/noah-isme/camp-school-api/internal/models"
	"github.com/noah-isme/camp-school-api/internal/service"
	"github.com/noah-isme/camp-school-api/pkg/config"
	"github.com/noah-isme/camp-school-api/pkg/logger"
	reqidmiddleware "github.com/noah-isme/camp-school-api/pkg/middleware/requestid"
)

type tokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// Handlers groups the HTTP handlers mounted by New.
type Handlers struct {
	Health        *handler.HealthHandler
	Auth          *handler.AuthHandler
	Users         *handler.UserHandler
	Classes       *handler.ClassHandler
	Selections    *handler.SelectionHandler
	Payments      *handler.PaymentHandler
	AdminPayments *handler.AdminPaymentHandler
}

// Options configures the engine.
type Options struct {
	Env       string
	APIPrefix string
	Logger    *zap.Logger
	Metrics   *service.MetricsService
	Tokens    tokenValidator
}

// New builds the gin engine with every API route. Routes live under APIPrefix when set; probes,
// metrics and docs stay at the root.
func New(opts Options, h Handlers) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(opts.Logger))
	if opts.Metrics != nil {
		r.Use(middleware.Metrics(opts.Metrics, "/metrics", "/health", "/ready"))
	}
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", h.Health.Health)
	r.GET("/ready", h.Health.Ready)
	r.GET("/metrics", h.Health.Prometheus)
	if opts.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(strings.TrimRight(opts.APIPrefix, "/"))
	api.GET("/", h.Health.Root)

	auth := middleware.JWT(opts.Tokens)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	instructorOnly := middleware.RequireRoles(models.RoleInstructor, models.RoleAdmin)

	api.POST("/jwt", h.Auth.Issue)

	api.POST("/users", h.Users.Register)
	api.GET("/users", auth, adminOnly, h.Users.List)
	api.GET("/users/admin/:email", auth, h.Users.IsAdmin)
	api.GET("/users/instructor/:email", auth, h.Users.IsInstructor)
	api.PATCH("/users/admin/:id", auth, adminOnly, h.Users.PromoteAdmin)
	api.PATCH("/users/instructor/:id", auth, adminOnly, h.Users.PromoteInstructor)
	api.GET("/instructors", h.Users.ListInstructors)

	api.GET("/classes", h.Classes.List)
	api.GET("/classes/:id", h.Classes.Get)
	api.POST("/classes", auth, instructorOnly, h.Classes.Create)
	api.PUT("/classes/:id", auth, instructorOnly, h.Classes.Update)
	api.PATCH("/classes/:id/status", auth, adminOnly, h.Classes.UpdateStatus)
	api.GET("/instructor-classes", h.Classes.ListByInstructor)

	api.POST("/selectclass", auth, h.Selections.Select)
	api.GET("/selectclass", auth, h.Selections.List)
	api.DELETE("/selectclass/:id", auth, h.Selections.Remove)
	api.GET("/payment/:id", auth, h.Selections.Get)

	api.POST("/create-payment-intent", auth, h.Payments.CreateIntent)
	api.POST("/payments", auth, h.Payments.Finalize)
	api.GET("/payments/:id/receipt", auth, h.Payments.Receipt)
	api.GET("/enrolled-classes/:email", auth, h.Payments.Enrolled)

	admin := api.Group("/admin", auth, adminOnly)
	admin.GET("/payments", h.AdminPayments.List)
	admin.GET("/payments/review", h.AdminPayments.Review)
	admin.GET("/payments/export", h.AdminPayments.Export)
	admin.POST("/payments/:id/reconcile", h.AdminPayments.Reconcile)

	return r
}
