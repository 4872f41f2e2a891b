package router

import (
	"github.com/gin-gonic/gin"

	"github.com/tradelinemarket/backend/internal/domain/identity"
	"github.com/tradelinemarket/backend/internal/interfaces/http/handler"
	"github.com/tradelinemarket/backend/internal/interfaces/http/middleware"
)

// Handlers bundles every HTTP handler the API exposes
type Handlers struct {
	Auth         *handler.AuthHandler
	Brokers      *handler.BrokerHandler
	BrokerPortal *handler.BrokerPortalHandler
	Orders       *handler.OrderHandler
	Clients      *handler.ClientHandler
	Dashboard    *handler.DashboardHandler
	Payouts      *handler.PayoutHandler
	Automation   *handler.AutomationHandler
	Portal       *handler.PortalHandler
	Widget       *handler.WidgetHandler
	Webhooks     *handler.WebhookHandler
}

// Guards holds the middleware each audience is protected by. Nil guards are
// skipped. Role-guarded routes still reject requests that carry no principal.
type Guards struct {
	// Authenticate validates the bearer token (middleware.JWTAuth)
	Authenticate gin.HandlerFunc
	// WidgetAuth resolves the broker behind X-API-Key (middleware.APIKeyAuth)
	WidgetAuth gin.HandlerFunc
	// WidgetRateLimit throttles public widget traffic
	WidgetRateLimit gin.HandlerFunc
	// LoginRateLimit throttles credential guessing on every login route
	LoginRateLimit gin.HandlerFunc
	// AutomationCallback checks the worker's shared secret
	AutomationCallback gin.HandlerFunc
	// DocumentUpload bounds multipart KYC uploads
	DocumentUpload gin.HandlerFunc
}

// APIGroups builds the route groups mounted under /api/v1
func APIGroups(h Handlers, g Guards) []RouteRegistrar {
	return []RouteRegistrar{
		authRoutes(h, g),
		adminRoutes(h, g),
		brokerRoutes(h, g),
		portalRoutes(h, g),
		publicRoutes(h, g),
		webhookRoutes(h),
		automationRoutes(h, g),
	}
}

func authRoutes(h Handlers, g Guards) *DomainGroup {
	routes := NewDomainGroup("auth", "/auth")
	routes.POST("/logout", g.Authenticate, h.Auth.Logout)
	return routes
}

func adminRoutes(h Handlers, g Guards) *DomainGroup {
	routes := NewDomainGroup("admin", "/admin")
	routes.POST("/auth/login", g.LoginRateLimit, h.Auth.AdminLogin)

	protected := routes.Group("admin-protected", "").
		Use(g.Authenticate, middleware.RequireRole(identity.PrincipalRoleAdmin))

	protected.GET("/dashboard", h.Dashboard.Admin)
	protected.GET("/activity", h.Dashboard.Activity)

	// Brokers
	protected.GET("/brokers", h.Brokers.List)
	protected.POST("/brokers", h.Brokers.Create)
	protected.GET("/brokers/:id", h.Brokers.GetByID)
	protected.PUT("/brokers/:id", h.Brokers.Update)
	protected.DELETE("/brokers/:id", h.Brokers.Deactivate)
	protected.POST("/brokers/:id/approve", h.Brokers.Approve)
	protected.POST("/brokers/:id/suspend", h.Brokers.Suspend)
	protected.POST("/brokers/:id/reset-secret", h.Brokers.ResetSecret)
	protected.GET("/brokers/:id/analytics", h.Brokers.Analytics)
	protected.GET("/brokers/:id/embed", h.Brokers.Embed)

	// Orders
	protected.GET("/orders", h.Orders.List)
	protected.GET("/orders/:id", h.Orders.GetByID)
	protected.DELETE("/orders/:id", h.Orders.Delete)
	protected.POST("/orders/:id/mark-paid", h.Orders.MarkPaid)
	protected.POST("/orders/:id/fulfill", h.Orders.Fulfill)
	protected.POST("/orders/:id/sync", h.Orders.Sync)
	protected.POST("/orders/:id/complete", h.Orders.Complete)
	protected.POST("/orders/:id/cancel", h.Orders.Cancel)
	protected.POST("/orders/:id/refund", h.Orders.Refund)

	// Clients and KYC documents
	protected.GET("/documents/:type/:filename", h.Clients.DocumentURL)
	protected.PUT("/clients/:id/verify-documents", h.Clients.VerifyDocuments)

	// Payouts
	protected.GET("/payouts/pending", h.Payouts.Pending)
	protected.POST("/payouts", h.Payouts.Create)
	protected.POST("/payouts/:id/process", h.Payouts.Process)

	// Fulfillment automation
	protected.POST("/automation/sessions", h.Automation.Start)
	protected.GET("/automation/sessions", h.Automation.List)
	protected.GET("/automation/sessions/:id", h.Automation.Get)
	protected.DELETE("/automation/sessions/:id", h.Automation.Cancel)

	return routes
}

func brokerRoutes(h Handlers, g Guards) *DomainGroup {
	routes := NewDomainGroup("broker", "/broker")
	routes.POST("/auth/login", g.LoginRateLimit, h.Auth.BrokerLogin)

	protected := routes.Group("broker-protected", "").
		Use(g.Authenticate, middleware.RequireRole(identity.PrincipalRoleBroker))
	protected.GET("/me", h.BrokerPortal.Me)
	protected.GET("/dashboard", h.BrokerPortal.Dashboard)
	protected.GET("/orders", h.BrokerPortal.Orders)
	protected.GET("/orders/:id", h.BrokerPortal.Order)
	protected.GET("/payouts", h.BrokerPortal.Payouts)
	protected.GET("/pending-commission", h.BrokerPortal.PendingCommission)
	protected.GET("/embed", h.BrokerPortal.Embed)

	return routes
}

func portalRoutes(h Handlers, g Guards) *DomainGroup {
	routes := NewDomainGroup("portal", "/portal")
	routes.POST("/login", g.LoginRateLimit, h.Auth.PortalLogin)
	routes.POST("/forgot-password", g.LoginRateLimit, h.Portal.ForgotPassword)
	routes.POST("/validate-reset-token", h.Portal.ValidateResetToken)
	routes.POST("/reset-password", g.LoginRateLimit, h.Portal.ResetPassword)

	protected := routes.Group("portal-protected", "").
		Use(g.Authenticate, middleware.RequireRole(identity.PrincipalRoleClient))
	protected.GET("/profile", h.Portal.Profile)
	protected.GET("/orders", h.Portal.Orders)
	protected.GET("/orders/:id", h.Portal.Order)
	protected.POST("/documents", g.DocumentUpload, h.Portal.UploadDocument)

	return routes
}

func publicRoutes(h Handlers, g Guards) *DomainGroup {
	routes := NewDomainGroup("public", "/public").
		Use(g.WidgetRateLimit, g.WidgetAuth)
	routes.GET("/pricing", h.Widget.Pricing)
	routes.POST("/calculate", h.Widget.Calculate)
	routes.POST("/track", h.Widget.Track)
	routes.GET("/config", h.Widget.Config)
	routes.POST("/checkout", h.Widget.Checkout)
	return routes
}

func webhookRoutes(h Handlers) *DomainGroup {
	routes := NewDomainGroup("webhooks", "/webhooks")
	routes.POST("/stripe", h.Webhooks.Stripe)
	return routes
}

func automationRoutes(h Handlers, g Guards) *DomainGroup {
	routes := NewDomainGroup("automation", "/automation").Use(g.AutomationCallback)
	routes.POST("/callback", h.Automation.Callback)
	return routes
}
