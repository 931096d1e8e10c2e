package handler

import (
	"log/slog"
	"net/http"

	"campus_api/internal/middleware"
	"campus_api/internal/model"
	"campus_api/internal/schema"
	"campus_api/internal/service"

	"github.com/gin-gonic/gin"
)

// MarketplaceHandler exposes the delivery marketplace under /app.
type MarketplaceHandler struct {
	service   *service.MarketplaceService
	resources *ResourceHandler
	reg       *schema.Registry
	logger    *slog.Logger
}

// NewMarketplaceHandler creates a new MarketplaceHandler
func NewMarketplaceHandler(s *service.MarketplaceService, resources *ResourceHandler, reg *schema.Registry, logger *slog.Logger) *MarketplaceHandler {
	return &MarketplaceHandler{service: s, resources: resources, reg: reg, logger: logger}
}

// respond writes rec with status, or the classified err.
func (h *MarketplaceHandler) respond(c *gin.Context, status int, rec any, err error) {
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(status, rec)
}

// withIdentity adapts a handler that needs the verified caller.
func withIdentity(fn func(c *gin.Context, who model.Identity)) gin.HandlerFunc {
	return func(c *gin.Context) {
		who, ok := identity(c)
		if !ok {
			return
		}
		fn(c, who)
	}
}

// bind decodes the body into req, answering 400 on failure.
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondBindError(c, err)
		return false
	}
	return true
}

var profilePayloads = []struct {
	entity string
	role   model.Role
	newReq func() model.Recorder
}{
	{schema.Customers, model.RoleCustomer, func() model.Recorder { return &model.CustomerRequest{} }},
	{schema.Deliverers, model.RoleDeliverer, func() model.Recorder { return &model.DelivererRequest{} }},
	{schema.Partners, model.RolePartner, func() model.Recorder { return &model.PartnerRequest{} }},
}

// RegisterMarketplaceRoutes registers marketplace routes
func (h *MarketplaceHandler) RegisterMarketplaceRoutes(rg *gin.RouterGroup, gate Gate) {
	app := rg.Group("/app")

	for _, p := range profilePayloads {
		h.registerProfileRoutes(app, gate, h.reg.MustLookup(p.entity), p.role, p.newReq)
	}
	h.registerAccountRoutes(app, gate)
	h.registerOrderRoutes(app, gate)
	h.registerProductRoutes(app, gate)
	h.registerContractRoutes(app, gate)
	h.registerLocationRoutes(app, gate)
	h.registerNotificationRoutes(app, gate)
}

// Profiles are addressed by account id.
func (h *MarketplaceHandler) registerProfileRoutes(app *gin.RouterGroup, gate Gate, entity *schema.Entity, role model.Role, newReq func() model.Recorder) {
	g := app.Group("/" + entity.Name)
	owner := chain(gate(role, model.RoleAdmin), middleware.RequireIdentity("id", model.RoleAdmin))

	g.GET("", chain(gate(model.RoleAdmin), h.resources.List(entity))...)
	g.POST("", chain(gate(role), withIdentity(func(c *gin.Context, who model.Identity) {
		req := newReq()
		if !bind(c, req) {
			return
		}
		rec, err := h.service.SaveProfile(c.Request.Context(), entity, who.Subject, req.Record())
		h.respond(c, http.StatusCreated, rec, err)
	}))...)
	g.GET("/:id", chain(owner, func(c *gin.Context) {
		rec, err := h.service.Profile(c.Request.Context(), entity, c.Param("id"))
		h.respond(c, http.StatusOK, rec, err)
	})...)
	g.PUT("/:id", chain(owner, func(c *gin.Context) {
		req := newReq()
		if !bind(c, req) {
			return
		}
		rec, err := h.service.SaveProfile(c.Request.Context(), entity, c.Param("id"), req.Record())
		h.respond(c, http.StatusOK, rec, err)
	})...)
	g.DELETE("/:id", chain(owner, func(c *gin.Context) {
		if err := h.service.DeleteProfile(c.Request.Context(), entity, c.Param("id")); err != nil {
			respondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, model.MessageResponse{Message: "Profile deleted successfully"})
	})...)
}

func (h *MarketplaceHandler) registerAccountRoutes(app *gin.RouterGroup, gate Gate) {
	accounts := h.reg.MustLookup(schema.Accounts)
	g := app.Group("/accounts")
	g.GET("", chain(gate(model.RoleAdmin), h.resources.List(accounts))...)
	g.GET("/:id", chain(chain(gate(model.RoleCustomer, model.RoleDeliverer, model.RolePartner, model.RoleAdmin),
		middleware.RequireIdentity("id", model.RoleAdmin)), h.resources.Get(accounts))...)
}

func (h *MarketplaceHandler) registerOrderRoutes(app *gin.RouterGroup, gate Gate) {
	g := app.Group("/orders")
	parties := gate(model.RoleAdmin, model.RoleCustomer, model.RoleDeliverer)

	g.GET("", chain(parties, withIdentity(func(c *gin.Context, who model.Identity) {
		page, err := h.service.ListOrders(c.Request.Context(), who, c.Request.URL.Query())
		h.respond(c, http.StatusOK, page, err)
	}))...)
	g.GET("/available", chain(gate(model.RoleDeliverer, model.RoleAdmin), func(c *gin.Context) {
		page, err := h.service.ListAvailableOrders(c.Request.Context(), c.Request.URL.Query())
		h.respond(c, http.StatusOK, page, err)
	})...)
	g.POST("", chain(gate(model.RoleCustomer), withIdentity(func(c *gin.Context, who model.Identity) {
		var req model.OrderRequest
		if !bind(c, &req) {
			return
		}
		rec, err := h.service.CreateOrder(c.Request.Context(), who, req.Record())
		h.respond(c, http.StatusCreated, rec, err)
	}))...)
	g.GET("/:id", chain(parties, withIdentity(func(c *gin.Context, who model.Identity) {
		rec, err := h.service.GetOrder(c.Request.Context(), who, c.Param("id"))
		h.respond(c, http.StatusOK, rec, err)
	}))...)
	g.PUT("/:id", chain(gate(model.RoleCustomer, model.RoleAdmin), withIdentity(func(c *gin.Context, who model.Identity) {
		var req model.OrderRequest
		if !bind(c, &req) {
			return
		}
		rec, err := h.service.UpdateOrder(c.Request.Context(), who, c.Param("id"), req.Record())
		h.respond(c, http.StatusOK, rec, err)
	}))...)
	g.PATCH("/:id/accept", chain(gate(model.RoleDeliverer), withIdentity(func(c *gin.Context, who model.Identity) {
		rec, err := h.service.AcceptOrder(c.Request.Context(), who, c.Param("id"))
		h.respond(c, http.StatusOK, rec, err)
	}))...)
	g.PATCH("/:id/deliver", chain(gate(model.RoleDeliverer), withIdentity(func(c *gin.Context, who model.Identity) {
		rec, err := h.service.DeliverOrder(c.Request.Context(), who, c.Param("id"))
		h.respond(c, http.StatusOK, rec, err)
	}))...)
	g.PATCH("/:id/cancel", chain(gate(model.RoleCustomer, model.RoleAdmin), withIdentity(func(c *gin.Context, who model.Identity) {
		rec, err := h.service.CancelOrder(c.Request.Context(), who, c.Param("id"))
		h.respond(c, http.StatusOK, rec, err)
	}))...)
	g.GET("/:id/products", chain(parties, withIdentity(func(c *gin.Context, who model.Identity) {
		page, err := h.service.ListProducts(c.Request.Context(), who, c.Param("id"), c.Request.URL.Query())
		h.respond(c, http.StatusOK, page, err)
	}))...)
}

func (h *MarketplaceHandler) registerProductRoutes(app *gin.RouterGroup, gate Gate) {
	products := h.reg.MustLookup(schema.Products)
	g := app.Group("/products")
	anyone := gate(model.Roles...)
	editors := gate(model.RoleCustomer, model.RoleAdmin)

	g.GET("", chain(anyone, h.resources.List(products))...)
	g.GET("/:id", chain(anyone, h.resources.Get(products))...)
	g.POST("", chain(editors, withIdentity(func(c *gin.Context, who model.Identity) {
		var req model.ProductRequest
		if !bind(c, &req) {
			return
		}
		rec, err := h.service.CreateProduct(c.Request.Context(), who, req.Record())
		h.respond(c, http.StatusCreated, rec, err)
	}))...)
	g.PUT("/:id", chain(editors, withIdentity(func(c *gin.Context, who model.Identity) {
		var req model.ProductRequest
		if !bind(c, &req) {
			return
		}
		rec, err := h.service.UpdateProduct(c.Request.Context(), who, c.Param("id"), req.Record())
		h.respond(c, http.StatusOK, rec, err)
	}))...)
	g.DELETE("/:id", chain(editors, withIdentity(func(c *gin.Context, who model.Identity) {
		if err := h.service.DeleteProduct(c.Request.Context(), who, c.Param("id")); err != nil {
			respondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, model.MessageResponse{Message: "Product deleted successfully"})
	}))...)
}

func (h *MarketplaceHandler) registerContractRoutes(app *gin.RouterGroup, gate Gate) {
	g := app.Group("/contracts")
	parties := gate(model.RoleAdmin, model.RolePartner, model.RoleDeliverer)

	g.GET("", chain(parties, withIdentity(func(c *gin.Context, who model.Identity) {
		page, err := h.service.ListContracts(c.Request.Context(), who, c.Request.URL.Query())
		h.respond(c, http.StatusOK, page, err)
	}))...)
	g.POST("", chain(gate(model.RolePartner), withIdentity(func(c *gin.Context, who model.Identity) {
		var req model.ContractRequest
		if !bind(c, &req) {
			return
		}
		rec, err := h.service.ProposeContract(c.Request.Context(), who, req.Record())
		h.respond(c, http.StatusCreated, rec, err)
	}))...)
	g.GET("/:id", chain(parties, withIdentity(func(c *gin.Context, who model.Identity) {
		rec, err := h.service.GetContract(c.Request.Context(), who, c.Param("id"))
		h.respond(c, http.StatusOK, rec, err)
	}))...)
	g.PATCH("/:id/status", chain(parties, withIdentity(func(c *gin.Context, who model.Identity) {
		var req model.ContractStatusRequest
		if !bind(c, &req) {
			return
		}
		rec, err := h.service.SetContractStatus(c.Request.Context(), who, c.Param("id"), req.Status)
		h.respond(c, http.StatusOK, rec, err)
	}))...)
}

func (h *MarketplaceHandler) registerLocationRoutes(app *gin.RouterGroup, gate Gate) {
	g := app.Group("/locations")
	owners := gate(model.RoleCustomer, model.RoleDeliverer, model.RolePartner)

	g.GET("", chain(owners, withIdentity(func(c *gin.Context, who model.Identity) {
		page, err := h.service.ListLocations(c.Request.Context(), who, c.Request.URL.Query())
		h.respond(c, http.StatusOK, page, err)
	}))...)
	g.POST("", chain(owners, withIdentity(func(c *gin.Context, who model.Identity) {
		var req model.LocationRequest
		if !bind(c, &req) {
			return
		}
		rec, err := h.service.CreateLocation(c.Request.Context(), who, req.Record())
		h.respond(c, http.StatusCreated, rec, err)
	}))...)
	g.PUT("/:id", chain(owners, withIdentity(func(c *gin.Context, who model.Identity) {
		var req model.LocationRequest
		if !bind(c, &req) {
			return
		}
		rec, err := h.service.UpdateLocation(c.Request.Context(), who, c.Param("id"), req.Record())
		h.respond(c, http.StatusOK, rec, err)
	}))...)
	g.DELETE("/:id", chain(owners, withIdentity(func(c *gin.Context, who model.Identity) {
		if err := h.service.DeleteLocation(c.Request.Context(), who, c.Param("id")); err != nil {
			respondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, model.MessageResponse{Message: "Location deleted successfully"})
	}))...)
}

func (h *MarketplaceHandler) registerNotificationRoutes(app *gin.RouterGroup, gate Gate) {
	g := app.Group("/notifications")
	recipients := gate(model.RoleCustomer, model.RoleDeliverer, model.RolePartner, model.RoleAdmin)

	g.GET("", chain(recipients, withIdentity(func(c *gin.Context, who model.Identity) {
		page, err := h.service.ListNotifications(c.Request.Context(), who, c.Request.URL.Query())
		h.respond(c, http.StatusOK, page, err)
	}))...)
	g.PATCH("/:id/read", chain(recipients, withIdentity(func(c *gin.Context, who model.Identity) {
		rec, err := h.service.MarkNotificationRead(c.Request.Context(), who, c.Param("id"))
		h.respond(c, http.StatusOK, rec, err)
	}))...)
}
