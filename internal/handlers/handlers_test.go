// internal/handlers/handlers_test.go
package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ovenside/bakery-backend/internal/config"
	"github.com/ovenside/bakery-backend/internal/handlers"
	"github.com/ovenside/bakery-backend/internal/models"
	"github.com/ovenside/bakery-backend/internal/services"
)

type testEnv struct {
	db     *gorm.DB
	router *gin.Engine
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Product{},
		&models.Ingredient{},
		&models.Order{},
		&models.OrderItem{},
		&models.StockReconciliation{},
		&models.StockMovement{},
		&models.StockAlert{},
	))

	inventoryCfg := config.InventoryConfig{
		DecrementPolicy: config.DecrementPerQuantity,
		StatusRule:      config.StatusRuleMonotonic,
	}

	inventoryService := services.NewInventoryService(db, inventoryCfg)
	orderService := services.NewOrderService(db, inventoryService)
	productService := services.NewProductService(db)

	inventoryHandler := handlers.NewInventoryHandler(inventoryService)
	orderHandler := handlers.NewOrderHandler(orderService)
	productHandler := handlers.NewProductHandler(productService)

	r := gin.New()
	v1 := r.Group("/v1")
	{
		products := v1.Group("/products")
		{
			products.GET("", productHandler.GetProducts)
			products.GET("/:id", productHandler.GetProduct)
			products.POST("", productHandler.CreateProduct)
		}
		orders := v1.Group("/orders")
		{
			orders.POST("", orderHandler.CreateOrder)
			orders.GET("/:id", orderHandler.GetOrder)
			orders.PUT("/:id/status", orderHandler.UpdateOrderStatus)
		}
		inventory := v1.Group("/inventory")
		{
			inventory.GET("/ingredients", inventoryHandler.ListIngredients)
			inventory.GET("/ingredients/:id", inventoryHandler.GetIngredient)
			inventory.POST("/ingredients/:id/restock", inventoryHandler.RestockIngredient)
			inventory.POST("/restock", inventoryHandler.RestockByName)
			inventory.GET("/alerts", inventoryHandler.ListAlerts)
		}
	}

	return &testEnv{db: db, router: r}
}

func (e *testEnv) request(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func (e *testEnv) seedProduct(t *testing.T, name string) *models.Product {
	t.Helper()

	product := &models.Product{
		SellerID: uuid.New(),
		Name:     name,
		Price:    4.50,
		Status:   models.ProductStatusActive,
	}
	require.NoError(t, e.db.Create(product).Error)
	return product
}

func (e *testEnv) seedIngredient(t *testing.T, productID uuid.UUID, name string, amount, stock, alert float64) *models.Ingredient {
	t.Helper()

	status := models.StockStatusOK
	if stock <= 0 {
		status = models.StockStatusOut
	} else if stock <= alert {
		status = models.StockStatusLow
	}

	ingredient := &models.Ingredient{
		ProductID: productID,
		Name:      name,
		Amount:    amount,
		Stock:     stock,
		Unit:      "g",
		Alert:     alert,
		Status:    status,
	}
	require.NoError(t, e.db.Create(ingredient).Error)
	return ingredient
}

func TestRestockEndpoint(t *testing.T) {
	env := setupEnv(t)

	product := env.seedProduct(t, "Sourdough Loaf")
	flour := env.seedIngredient(t, product.ID, "flour", 50, 100, 200)

	w := env.request(t, http.MethodPost, "/v1/inventory/ingredients/"+flour.ID.String()+"/restock", gin.H{
		"amount": 500,
		"unit":   "g",
		"alert":  200,
	})
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	data := body["data"].(map[string]interface{})
	ingredient := data["ingredient"].(map[string]interface{})
	assert.EqualValues(t, 600, ingredient["stock"])
	assert.Equal(t, "ok", ingredient["status"])
}

func TestRestockEndpointUnknownIngredient(t *testing.T) {
	env := setupEnv(t)

	w := env.request(t, http.MethodPost, "/v1/inventory/ingredients/"+uuid.NewString()+"/restock", gin.H{
		"amount": 500,
		"unit":   "g",
		"alert":  200,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRestockEndpointRejectsNegativeAmount(t *testing.T) {
	env := setupEnv(t)

	product := env.seedProduct(t, "Sourdough Loaf")
	flour := env.seedIngredient(t, product.ID, "flour", 50, 100, 200)

	w := env.request(t, http.MethodPost, "/v1/inventory/ingredients/"+flour.ID.String()+"/restock", gin.H{
		"amount": -10,
		"unit":   "g",
		"alert":  200,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRestockByNameEndpoint(t *testing.T) {
	env := setupEnv(t)

	bread := env.seedProduct(t, "Sourdough Loaf")
	cake := env.seedProduct(t, "Carrot Cake")
	env.seedIngredient(t, bread.ID, "flour", 50, 100, 200)
	env.seedIngredient(t, cake.ID, "flour", 30, 50, 100)

	w := env.request(t, http.MethodPost, "/v1/inventory/restock", gin.H{
		"name":   "flour",
		"amount": 1000,
		"unit":   "g",
		"alert":  200,
	})
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	data := body["data"].(map[string]interface{})
	ingredients := data["ingredients"].([]interface{})
	assert.Len(t, ingredients, 2)
}

func TestRestockByNameEndpointUnknownName(t *testing.T) {
	env := setupEnv(t)

	w := env.request(t, http.MethodPost, "/v1/inventory/restock", gin.H{
		"name":   "saffron",
		"amount": 10,
		"unit":   "g",
		"alert":  5,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateOrderEndpoint(t *testing.T) {
	env := setupEnv(t)

	product := env.seedProduct(t, "Sourdough Loaf")

	w := env.request(t, http.MethodPost, "/v1/orders", gin.H{
		"customer_name": "Greta Baker",
		"items": []gin.H{
			{"product_id": product.ID.String(), "quantity": 2},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	body := decodeBody(t, w)
	data := body["data"].(map[string]interface{})
	order := data["order"].(map[string]interface{})
	assert.Equal(t, "pending", order["status"])
	assert.InDelta(t, 9.0, order["total_amount"].(float64), 0.001)
}

func TestOrderStatusEndpointTriggersReconciliation(t *testing.T) {
	env := setupEnv(t)

	product := env.seedProduct(t, "Sourdough Loaf")
	flour := env.seedIngredient(t, product.ID, "flour", 50, 500, 100)

	order := &models.Order{
		CustomerName: "Greta Baker",
		Status:       models.OrderStatusBaking,
		TotalAmount:  9.0,
		Items: []models.OrderItem{
			{ProductID: product.ID, Quantity: 2, UnitPrice: 4.50},
		},
	}
	require.NoError(t, env.db.Create(order).Error)

	w := env.request(t, http.MethodPut, "/v1/orders/"+order.ID.String()+"/status", gin.H{
		"status": "delivering",
	})
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	data := body["data"].(map[string]interface{})
	assert.Contains(t, data, "reconciliation")

	var reloaded models.Ingredient
	require.NoError(t, env.db.First(&reloaded, "id = ?", flour.ID).Error)
	assert.Equal(t, 400.0, reloaded.Stock)
}

func TestOrderStatusEndpointRejectsInvalidTransition(t *testing.T) {
	env := setupEnv(t)

	product := env.seedProduct(t, "Sourdough Loaf")
	order := &models.Order{
		CustomerName: "Greta Baker",
		Status:       models.OrderStatusPending,
		Items: []models.OrderItem{
			{ProductID: product.ID, Quantity: 1, UnitPrice: 4.50},
		},
	}
	require.NoError(t, env.db.Create(order).Error)

	w := env.request(t, http.MethodPut, fmt.Sprintf("/v1/orders/%s/status", order.ID), gin.H{
		"status": "delivering",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateProductEndpoint(t *testing.T) {
	env := setupEnv(t)

	w := env.request(t, http.MethodPost, "/v1/products", gin.H{
		"seller_id": uuid.NewString(),
		"name":      "Sourdough Loaf",
		"price":     4.50,
		"ingredients": []gin.H{
			{"name": "flour", "amount": 500, "unit": "g", "alert": 1000},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	body := decodeBody(t, w)
	data := body["data"].(map[string]interface{})
	product := data["product"].(map[string]interface{})
	ingredients := product["ingredients"].([]interface{})
	require.Len(t, ingredients, 1)
	first := ingredients[0].(map[string]interface{})
	assert.EqualValues(t, 0, first["stock"])
	assert.Equal(t, "out", first["status"])
}

func TestGetIngredientEndpointNotFound(t *testing.T) {
	env := setupEnv(t)

	w := env.request(t, http.MethodGet, "/v1/inventory/ingredients/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListAlertsEndpoint(t *testing.T) {
	env := setupEnv(t)

	product := env.seedProduct(t, "Sourdough Loaf")
	flour := env.seedIngredient(t, product.ID, "flour", 50, 120, 100)

	order := &models.Order{
		CustomerName: "Greta Baker",
		Status:       models.OrderStatusBaking,
		Items: []models.OrderItem{
			{ProductID: product.ID, Quantity: 1, UnitPrice: 4.50},
		},
	}
	require.NoError(t, env.db.Create(order).Error)

	w := env.request(t, http.MethodPut, "/v1/orders/"+order.ID.String()+"/status", gin.H{
		"status": "delivering",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var reloaded models.Ingredient
	require.NoError(t, env.db.First(&reloaded, "id = ?", flour.ID).Error)
	assert.Equal(t, 70.0, reloaded.Stock)
	assert.Equal(t, models.StockStatusLow, reloaded.Status)

	w = env.request(t, http.MethodGet, "/v1/inventory/alerts", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	alerts := body["data"].([]interface{})
	assert.NotEmpty(t, alerts)
}
