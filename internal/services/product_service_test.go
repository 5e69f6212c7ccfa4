// internal/services/product_service_test.go
package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovenside/bakery-backend/internal/models"
)

func TestCreateProductStartsIngredientsEmpty(t *testing.T) {
	db := setupTestDB(t)
	products := NewProductService(db)

	sellerID := uuid.New()
	product, err := products.CreateProduct(sellerID, &CreateProductRequest{
		Name:  "Sourdough Loaf",
		Price: 4.50,
		Ingredients: []IngredientInput{
			{Name: "flour", Amount: 500, Unit: "g", Alert: 1000},
			{Name: "salt", Amount: 10, Unit: "g", Alert: 50},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, models.ProductStatusDraft, product.Status)
	require.Len(t, product.Ingredients, 2)
	for _, ing := range product.Ingredients {
		assert.Equal(t, 0.0, ing.Stock)
		assert.Equal(t, models.StockStatusOut, ing.Status)
		assert.Equal(t, product.ID, ing.ProductID)
	}
}

func TestCreateProductRejectsInvalidIngredient(t *testing.T) {
	db := setupTestDB(t)
	products := NewProductService(db)

	_, err := products.CreateProduct(uuid.New(), &CreateProductRequest{
		Name:  "Sourdough Loaf",
		Price: 4.50,
		Ingredients: []IngredientInput{
			{Name: "flour", Amount: 0, Unit: "g"},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestUpdateProductReplacesIngredientList(t *testing.T) {
	db := setupTestDB(t)
	products := NewProductService(db)

	sellerID := uuid.New()
	product, err := products.CreateProduct(sellerID, &CreateProductRequest{
		Name:  "Sourdough Loaf",
		Price: 4.50,
		Ingredients: []IngredientInput{
			{Name: "flour", Amount: 500, Unit: "g", Alert: 1000},
		},
	})
	require.NoError(t, err)

	updated, err := products.UpdateProduct(product.ID, sellerID, &UpdateProductRequest{
		Ingredients: []IngredientInput{
			{Name: "rye flour", Amount: 400, Unit: "g", Alert: 800},
			{Name: "caraway", Amount: 5, Unit: "g", Alert: 20},
		},
	})
	require.NoError(t, err)

	require.Len(t, updated.Ingredients, 2)
	names := []string{updated.Ingredients[0].Name, updated.Ingredients[1].Name}
	assert.ElementsMatch(t, []string{"rye flour", "caraway"}, names)
	for _, ing := range updated.Ingredients {
		assert.Equal(t, 0.0, ing.Stock)
	}

	var count int64
	require.NoError(t, db.Model(&models.Ingredient{}).Where("product_id = ? AND name = ?", product.ID, "flour").Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestUpdateProductRejectsForeignSeller(t *testing.T) {
	db := setupTestDB(t)
	products := NewProductService(db)

	product, err := products.CreateProduct(uuid.New(), &CreateProductRequest{
		Name:  "Sourdough Loaf",
		Price: 4.50,
	})
	require.NoError(t, err)

	_, err = products.UpdateProduct(product.ID, uuid.New(), &UpdateProductRequest{Name: "Hijacked"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unauthorized")
}

func TestSearchProductsDefaultsToActive(t *testing.T) {
	db := setupTestDB(t)
	products := NewProductService(db)

	active := createTestProduct(t, db, "Baguette")
	draft := createTestProduct(t, db, "Experimental Rye")
	require.NoError(t, db.Model(draft).Update("status", models.ProductStatusDraft).Error)

	result, total, err := products.SearchProducts(ProductSearchParams{
		PaginationParams: defaultPagination(),
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, result, 1)
	assert.Equal(t, active.ID, result[0].ID)
}

func TestDeleteProductRefusedWithLiveOrders(t *testing.T) {
	db := setupTestDB(t)
	products := NewProductService(db)

	sellerID := uuid.New()
	product, err := products.CreateProduct(sellerID, &CreateProductRequest{
		Name:  "Sourdough Loaf",
		Price: 4.50,
	})
	require.NoError(t, err)

	createTestOrder(t, db, models.OrderStatusPending,
		models.OrderItem{ProductID: product.ID, Quantity: 1, UnitPrice: 4.50},
	)

	err = products.DeleteProduct(product.ID, sellerID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "existing orders")
}

func TestDeleteProductAllowedWhenOrdersCancelled(t *testing.T) {
	db := setupTestDB(t)
	products := NewProductService(db)

	sellerID := uuid.New()
	product, err := products.CreateProduct(sellerID, &CreateProductRequest{
		Name:  "Sourdough Loaf",
		Price: 4.50,
		Ingredients: []IngredientInput{
			{Name: "flour", Amount: 500, Unit: "g", Alert: 1000},
		},
	})
	require.NoError(t, err)

	createTestOrder(t, db, models.OrderStatusCancelled,
		models.OrderItem{ProductID: product.ID, Quantity: 1, UnitPrice: 4.50},
	)

	require.NoError(t, products.DeleteProduct(product.ID, sellerID))

	_, err = products.GetProduct(product.ID)
	assert.ErrorIs(t, err, ErrProductNotFound)
}
