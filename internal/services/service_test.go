// internal/services/service_test.go
package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ovenside/bakery-backend/internal/config"
	"github.com/ovenside/bakery-backend/internal/models"
	"github.com/ovenside/bakery-backend/internal/utils"
)

// setupTestDB opens a fresh in-memory database. The pool is capped at a single
// connection so concurrent-writer tests serialize at the driver the same way
// row-level atomicity serializes them in postgres.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

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

	return db
}

func defaultInventoryConfig() config.InventoryConfig {
	return config.InventoryConfig{
		DecrementPolicy: config.DecrementPerQuantity,
		StatusRule:      config.StatusRuleMonotonic,
	}
}

func createTestProduct(t *testing.T, db *gorm.DB, name string) *models.Product {
	t.Helper()

	product := &models.Product{
		SellerID: uuid.New(),
		Name:     name,
		Price:    4.50,
		Status:   models.ProductStatusActive,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func createTestIngredient(t *testing.T, db *gorm.DB, productID uuid.UUID, name string, amount, stock, alert float64) *models.Ingredient {
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
	require.NoError(t, db.Create(ingredient).Error)
	return ingredient
}

func reloadIngredient(t *testing.T, db *gorm.DB, id uuid.UUID) *models.Ingredient {
	t.Helper()

	var ingredient models.Ingredient
	require.NoError(t, db.First(&ingredient, "id = ?", id).Error)
	return &ingredient
}

func createTestOrder(t *testing.T, db *gorm.DB, status models.OrderStatus, items ...models.OrderItem) *models.Order {
	t.Helper()

	order := &models.Order{
		CustomerName: "Greta Baker",
		Status:       status,
		Items:        items,
	}
	for _, item := range items {
		order.TotalAmount += item.UnitPrice * float64(item.Quantity)
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func defaultPagination() utils.PaginationParams {
	return utils.PaginationParams{Page: 1, Limit: 20, Sort: "created_at", Order: "desc"}
}
