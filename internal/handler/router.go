package handler

import (
	"errors"
	"log/slog"
	"time"

	"campus_api/internal/middleware"
	"campus_api/internal/model"
	"campus_api/internal/schema"
	"campus_api/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Gate builds the middleware admitting callers that hold one of roles
// and still have a live account.
type Gate func(roles ...model.Role) gin.HandlersChain

// RouterConfig carries everything NewRouter wires into routes.
type RouterConfig struct {
	Logger         *slog.Logger
	Registry       *schema.Registry
	Resources      *service.ResourceService
	Marketplace    *service.MarketplaceService
	Auth           service.AuthService
	Tokens         middleware.TokenVerifier
	Accounts       middleware.AccountVerifier
	DB             Pinger
	CORSOrigins    []string
	RequestTimeout time.Duration
}

// NewRouter builds the HTTP engine: global middleware, /health, /metrics and the /api/v1 routes.
func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	if cfg.Logger == nil || cfg.Registry == nil || cfg.Resources == nil || cfg.Marketplace == nil ||
		cfg.Auth == nil || cfg.Tokens == nil || cfg.Accounts == nil {
		return nil, errors.New("router: missing dependency")
	}
	if err := RegisterValidators(); err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(cfg.Logger),
		middleware.Metrics(),
		middleware.CORS(cfg.CORSOrigins),
		middleware.Timeout(cfg.RequestTimeout),
	)

	router.GET("/health", Health(cfg.DB))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	gate := func(roles ...model.Role) gin.HandlersChain {
		return gin.HandlersChain{
			middleware.RequireRoles(cfg.Tokens, roles...),
			middleware.RequireAccount(cfg.Accounts),
		}
	}

	resources := NewResourceHandler(cfg.Resources, cfg.Logger)
	apiGroup := router.Group("/api/v1")
	NewAuthHandler(cfg.Auth, cfg.Logger).RegisterAuthRoutes(apiGroup, gate)
	NewSchoolHandler(resources, cfg.Registry).RegisterSchoolRoutes(apiGroup, gate)
	NewMarketplaceHandler(cfg.Marketplace, resources, cfg.Registry, cfg.Logger).RegisterMarketplaceRoutes(apiGroup, gate)

	return router, nil
}

// chain returns pre followed by handlers in a fresh slice.
func chain(pre gin.HandlersChain, handlers ...gin.HandlerFunc) gin.HandlersChain {
	out := make(gin.HandlersChain, 0, len(pre)+len(handlers))
	out = append(out, pre...)
	return append(out, handlers...)
}
