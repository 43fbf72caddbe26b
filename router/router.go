package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/pos-terminal/controllers"
	"github.com/yeremiapane/pos-terminal/kds"
	"github.com/yeremiapane/pos-terminal/middlewares"
	"github.com/yeremiapane/pos-terminal/models"
	"github.com/yeremiapane/pos-terminal/services"
	"github.com/yeremiapane/pos-terminal/utils"
)

// Deps are the wired terminal components the HTTP surface exposes.
type Deps struct {
	Tokens              *utils.TokenManager
	Auth                *services.AuthService
	Ledger              *services.Ledger
	Orders              *services.OrderService
	Shifts              *services.ShiftManager
	Kitchen             *services.KitchenPipeline
	Sync                *services.SyncAgent
	Hub                 *kds.Hub
	CORSOrigin          string
	KitchenPollInterval time.Duration
}

func SetupRouter(d Deps) *gin.Engine {
	origins := middlewares.ParseOrigins(d.CORSOrigin)

	r := gin.New()
	r.Use(gin.Recovery())

	// Apply security middlewares
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(origins))
	r.Use(middlewares.LoggerMiddleware())

	// Setup rate limiter (50 requests per second per IP)
	r.Use(middlewares.NewRateLimiter(50, 1).RateLimit())

	// Inisialisasi controller
	userCtrl := controllers.NewUserController(d.Auth, d.Shifts)
	menuCtrl := controllers.NewMenuController(d.Ledger)
	orderCtrl := controllers.NewOrderController(d.Orders, d.Ledger)
	receiptCtrl := controllers.NewReceiptController(d.Orders)
	adminCtrl := controllers.NewAdminController(d.Ledger)
	shiftCtrl := controllers.NewShiftController(d.Shifts)
	kitchenCtrl := controllers.NewKitchenController(d.Kitchen)
	syncCtrl := controllers.NewSyncController(d.Sync)
	kdsCtrl := controllers.NewKDSController(d.Hub, d.Kitchen, d.KitchenPollInterval, origins)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// Rate limiter untuk login
	loginLimiter := middlewares.NewLoginLimiter(12*time.Second, 5)
	r.POST("/api/login", loginLimiter.Middleware(), userCtrl.Login)

	// ----------------------------------------------------------------
	//                      AUTHENTICATED ROUTES
	// ----------------------------------------------------------------
	api := r.Group("/api")
	api.Use(middlewares.AuthMiddleware(d.Tokens))

	api.POST("/logout", userCtrl.Logout)
	api.GET("/profile", userCtrl.GetProfile)

	// CATALOG (semua role)
	api.GET("/products", menuCtrl.GetAllMenus)
	api.GET("/products/:product_id", menuCtrl.GetMenuByID)
	api.GET("/categories", menuCtrl.GetCategories)

	// ORDERS (cashier/admin)
	cashier := api.Group("/")
	cashier.Use(middlewares.RequireRoles(models.RoleCashier))
	{
		cashier.GET("/orders", orderCtrl.GetAllOrders)
		cashier.POST("/orders", orderCtrl.CreateOrder)
		cashier.GET("/orders/:order_id", orderCtrl.GetOrderByID)
		cashier.POST("/orders/:order_id/void", orderCtrl.VoidOrder)
		cashier.GET("/orders/:order_id/receipt", receiptCtrl.GetReceipt)

		cashier.GET("/shifts/active", shiftCtrl.GetActiveShift)
		cashier.POST("/shifts/start", shiftCtrl.StartShift)
		cashier.POST("/shifts/end", shiftCtrl.EndShift)
		cashier.GET("/shifts/summary", shiftCtrl.GetShiftSummary)

		cashier.GET("/sync/status", syncCtrl.GetStatus)
		cashier.POST("/sync", syncCtrl.SyncNow)
	}

	// KITCHEN (kitchen/admin)
	kitchen := api.Group("/kitchen")
	kitchen.Use(middlewares.RequireRoles(models.RoleKitchen))
	{
		kitchen.GET("/orders", kitchenCtrl.GetBoard)
		kitchen.POST("/orders/:order_id/advance", kitchenCtrl.AdvanceOrder)
	}

	// Routes untuk Admin
	admin := api.Group("/admin")
	admin.Use(middlewares.RequireRoles())
	{
		admin.GET("/sales/summary", adminCtrl.GetSalesSummary)
	}

	// WebSocket endpoint dengan middleware khusus
	wsGroup := r.Group("/ws")
	wsGroup.Use(middlewares.WebSocketAuthMiddleware(d.Tokens))
	{
		wsGroup.GET("/kds", kdsCtrl.KDSHandler)
	}

	return r
}
