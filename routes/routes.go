package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"restaurant-ordering-api/auth"
	"restaurant-ordering-api/handlers"
	"restaurant-ordering-api/metrics"
	"restaurant-ordering-api/middleware"
	"restaurant-ordering-api/models"
)

// Options carries what the router needs besides the handlers.
type Options struct {
	Issuer      *auth.Issuer
	Denylist    auth.Denylist
	Users       auth.ActiveChecker
	CORSOrigins []string
	// StorageRoot, when set, is served under /storage for locally stored images.
	StorageRoot string
}

// NewRouter builds the engine with the ambient middleware and every route.
func NewRouter(h *handlers.Handler, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestLogger(),
		gin.Recovery(),
		metrics.Middleware(),
		cors.New(corsConfig(opts.CORSOrigins)),
	)
	r.MaxMultipartMemory = 8 << 20

	r.GET("/health", handlers.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	if opts.StorageRoot != "" {
		r.Static("/storage", opts.StorageRoot)
	}
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found.", "kind": "not_found"})
	})

	SetupRoutes(r, h, middleware.AuthRequired(opts.Issuer, opts.Denylist, opts.Users))
	return r
}

func SetupRoutes(r *gin.Engine, h *handlers.Handler, authRequired gin.HandlerFunc) {
	// ── Public routes ──────────────────────────────────────────────
	public := r.Group("/api")
	{
		// Registration & sessions
		public.POST("/owner/register", h.RegisterOwner)
		public.POST("/owner/verify", h.VerifyOwner)
		public.POST("/owner/resend-otp", h.ResendOTP)
		public.POST("/employee/register", h.RegisterEmployee)
		public.POST("/customer/register", h.RegisterCustomer)
		public.POST("/login", h.Login)

		// Restaurants & menus (no auth needed)
		public.GET("/restaurants", h.ListRestaurants)
		public.GET("/restaurants/:id", h.GetRestaurant)
		public.GET("/restaurant/:id/categories", h.ListCategories)
		public.GET("/restaurant/category/:id/items", h.ListItems)
	}

	// ── Authenticated routes ───────────────────────────────────────
	authed := r.Group("/api")
	authed.Use(authRequired)
	{
		authed.POST("/logout", h.Logout)
		authed.GET("/me", h.GetProfile)
	}

	// ── Owner routes ───────────────────────────────────────────────
	owner := r.Group("/api")
	owner.Use(authRequired, middleware.RoleRequired(models.RoleOwner))
	{
		owner.POST("/employee/verify", h.VerifyEmployee)
		owner.POST("/restaurant/list", h.CreateRestaurant)
		owner.DELETE("/restaurant/:id", h.DeleteRestaurant)
		owner.GET("/restaurant/:id/employees", h.ListEmployees)
		owner.GET("/restaurant/employees", h.ListAllEmployees)
		owner.POST("/restaurant/employee/permission", h.SetEmployeePermission)
	}

	// ── Owner & employee routes (permission-gated) ─────────────────
	staff := r.Group("/api/restaurant")
	staff.Use(authRequired, middleware.RoleRequired(models.RoleOwner, models.RoleEmployee))
	{
		staff.GET("/list", h.ListMyRestaurants)

		// Menu management
		staff.POST("/category", h.CreateCategory)
		staff.PUT("/category", h.UpdateCategory)
		staff.DELETE("/category", h.DeleteCategory)
		staff.POST("/item", h.AddItem)
		staff.PUT("/item", h.UpdateItem)
		staff.DELETE("/item", h.DeleteItem)
		staff.POST("/item/:id/image", h.UploadItemImage)

		// Order history
		staff.GET("/:id/orders", h.GetRestaurantOrders)
	}

	// ── Customer routes ────────────────────────────────────────────
	customer := r.Group("/api")
	customer.Use(authRequired, middleware.RoleRequired(models.RoleCustomer))
	{
		customer.POST("/cart/add", h.AddToCart)
		customer.PUT("/cart/update", h.UpdateCartItem)
		customer.DELETE("/cart/remove", h.RemoveFromCart)
		customer.GET("/cart/", h.ViewCart)
		customer.POST("/cart/confirm", h.ConfirmCart)
		customer.GET("/orders", h.GetMyOrders)
		customer.GET("/orders/:id", h.GetOrder)
	}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
