// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ovenside/bakery-backend/internal/config"
	"github.com/ovenside/bakery-backend/internal/handlers"
	"github.com/ovenside/bakery-backend/internal/middleware"
	"github.com/ovenside/bakery-backend/internal/services"
)

func Initialize(db *gorm.DB, cfg *config.Config) *gin.Engine {
	// Initialize services
	inventoryService := services.NewInventoryService(db, cfg.Inventory)
	orderService := services.NewOrderService(db, inventoryService)
	productService := services.NewProductService(db)

	// Initialize handlers
	inventoryHandler := handlers.NewInventoryHandler(inventoryService)
	orderHandler := handlers.NewOrderHandler(orderService)
	productHandler := handlers.NewProductHandler(productService)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.GeneralRateLimit())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Product routes
		products := v1.Group("/products")
		{
			products.GET("", productHandler.GetProducts)
			products.GET("/:id", productHandler.GetProduct)
			products.POST("", productHandler.CreateProduct)
			products.PUT("/:id", productHandler.UpdateProduct)
			products.DELETE("/:id", productHandler.DeleteProduct)
		}

		// Order routes
		orders := v1.Group("/orders")
		{
			orders.POST("", middleware.OrderRateLimit(), orderHandler.CreateOrder)
			orders.GET("", orderHandler.ListOrders)
			orders.GET("/:id", orderHandler.GetOrder)
			orders.PUT("/:id/status", orderHandler.UpdateOrderStatus)
		}

		// Inventory routes
		inventory := v1.Group("/inventory")
		{
			inventory.GET("/ingredients", inventoryHandler.ListIngredients)
			inventory.GET("/ingredients/:id", inventoryHandler.GetIngredient)
			inventory.POST("/ingredients/:id/restock", inventoryHandler.RestockIngredient)
			inventory.POST("/restock", inventoryHandler.RestockByName)
			inventory.GET("/movements", inventoryHandler.ListMovements)
			inventory.GET("/alerts", inventoryHandler.ListAlerts)
			inventory.PUT("/alerts/:id/resolve", inventoryHandler.ResolveAlert)
		}
	}

	return r
}
