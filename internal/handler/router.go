package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/flicky/mm2-store/internal/logger"
	"github.com/flicky/mm2-store/internal/metrics"
	"github.com/flicky/mm2-store/internal/middleware"
	"github.com/flicky/mm2-store/internal/service"
	"github.com/flicky/mm2-store/internal/upload"
)

type RouterDeps struct {
	Log        *zap.Logger
	Metrics    *metrics.Metrics
	Auth       *service.AuthService
	Products   *service.ProductService
	Carts      *service.CartService
	Orders     *service.OrderService
	Chats      *service.ChatService
	Contact    *service.ContactService
	Uploads    *upload.Store
	Health     *HealthHandler
	Cookie     middleware.SessionCookie
	CartCookie middleware.SessionCookie
	CartTTL    time.Duration
}

func NewRouter(d RouterDeps) *gin.Engine {
	authH := NewAuthHandler(d.Auth, d.Cookie)
	productH := NewProductHandler(d.Products, d.Uploads)
	cartH := NewCartHandler(d.Carts, d.CartCookie, d.CartTTL)
	orderH := NewOrderHandler(d.Orders, d.Uploads.MaxBytes())
	chatH := NewChatHandler(d.Chats)
	contactH := NewContactHandler(d.Contact)

	router := gin.New()
	router.Use(gin.Recovery(), logger.Middleware(d.Log))
	if d.Metrics != nil {
		router.Use(d.Metrics.Middleware())
		router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}
	if d.Health != nil {
		router.GET("/healthz", d.Health.Healthz)
		router.GET("/readyz", d.Health.Readyz)
	}
	router.Group("/uploads", middleware.PublicAssets()).Static("/", d.Uploads.Dir())

	api := router.Group("/api", middleware.Session(d.Auth, d.Cookie))
	{
		auth := api.Group("/auth")
		auth.POST("/register", authH.Register)
		auth.POST("/login", authH.Login)
		auth.POST("/logout", authH.Logout)
		auth.GET("/user", middleware.RequireUser(), authH.Me)
		auth.PATCH("/user", middleware.RequireUser(), authH.UpdateMe)

		api.GET("/products", productH.List)
		api.GET("/products/:id", productH.GetByID)

		cart := api.Group("/cart")
		cart.GET("", cartH.GetCart)
		cart.DELETE("", cartH.Clear)
		cart.POST("/items", cartH.AddItem)
		cart.PATCH("/items/:id", cartH.UpdateItem)
		cart.DELETE("/items/:id", cartH.DeleteItem)

		api.POST("/orders", orderH.CreateOrder)
		api.GET("/orders/:id", orderH.GetOrder)
		api.POST("/orders/:id/receipt", orderH.UploadReceipt)
		api.GET("/orders/:id/messages", chatH.List)
		api.POST("/orders/:id/messages", chatH.Post)
		api.GET("/my-orders", middleware.RequireUser(), orderH.ListMyOrders)

		api.POST("/contact", contactH.Submit)
		api.POST("/admin/verify", authH.VerifyAdmin)

		admin := api.Group("/admin", middleware.RequireAdmin())
		admin.GET("/orders", orderH.ListAll)
		admin.PATCH("/orders/:id/status", orderH.UpdateStatus)
		admin.GET("/orders/:id/history", orderH.History)
		admin.DELETE("/orders/:id", orderH.Delete)
		admin.POST("/orders/:id/messages", chatH.AdminPost)
		admin.GET("/chats", chatH.Threads)
		admin.POST("/cleanup", orderH.Cleanup)

		admin.GET("/products", productH.List)
		admin.POST("/products", productH.Create)
		admin.POST("/products/seed", productH.Seed)
		admin.PATCH("/products/:id", productH.Update)
		admin.DELETE("/products/:id", productH.Delete)
		admin.POST("/upload-product-image", productH.UploadImage)
	}

	return router
}
