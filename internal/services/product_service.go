// internal/services/product_service.go
package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/ovenside/bakery-backend/internal/models"
	"github.com/ovenside/bakery-backend/internal/utils"
)

type ProductService struct {
	db *gorm.DB
}

type IngredientInput struct {
	Name   string  `json:"name" validate:"required,min=1,max=255"`
	Amount float64 `json:"amount" validate:"required,gt=0"`
	Unit   string  `json:"unit" validate:"required"`
	Alert  float64 `json:"alert" validate:"gte=0"`
}

type CreateProductRequest struct {
	Name        string            `json:"name" validate:"required,min=2,max=255"`
	Description string            `json:"description,omitempty"`
	Category    string            `json:"category,omitempty"`
	Price       float64           `json:"price" validate:"required,gt=0"`
	Images      []string          `json:"images,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Ingredients []IngredientInput `json:"ingredients,omitempty" validate:"omitempty,dive"`
}

type UpdateProductRequest struct {
	Name        string               `json:"name,omitempty" validate:"omitempty,min=2,max=255"`
	Description string               `json:"description,omitempty"`
	Category    string               `json:"category,omitempty"`
	Price       float64              `json:"price,omitempty" validate:"omitempty,gt=0"`
	Images      []string             `json:"images,omitempty"`
	Tags        []string             `json:"tags,omitempty"`
	Status      models.ProductStatus `json:"status,omitempty"`
	Ingredients []IngredientInput    `json:"ingredients,omitempty" validate:"omitempty,dive"`
}

type ProductSearchParams struct {
	utils.PaginationParams
	SellerID *uuid.UUID            `json:"seller_id,omitempty"`
	Status   *models.ProductStatus `json:"status,omitempty"`
	PriceMin *float64              `json:"price_min,omitempty"`
	PriceMax *float64              `json:"price_max,omitempty"`
}

func NewProductService(db *gorm.DB) *ProductService {
	return &ProductService{db: db}
}

// CreateProduct persists a product together with its bill-of-materials. New
// ingredients start with zero stock and are filled by restocking.
func (s *ProductService) CreateProduct(sellerID uuid.UUID, req *CreateProductRequest) (*models.Product, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	product := &models.Product{
		SellerID:    sellerID,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		Images:      pq.StringArray(req.Images),
		Tags:        pq.StringArray(req.Tags),
		Status:      models.ProductStatusDraft,
		Ingredients: ingredientRows(req.Ingredients),
	}

	if err := s.db.Create(product).Error; err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return product, nil
}

func (s *ProductService) GetProduct(id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := s.db.Preload("Ingredients").First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &product, nil
}

func (s *ProductService) SearchProducts(params ProductSearchParams) ([]models.Product, int64, error) {
	query := s.db.Model(&models.Product{}).Preload("Ingredients")

	if params.SellerID != nil {
		query = query.Where("seller_id = ?", *params.SellerID)
	}

	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	} else {
		// Default to active products only
		query = query.Where("status = ?", models.ProductStatusActive)
	}

	if params.Category != "" {
		query = query.Where("category = ?", params.Category)
	}

	if params.Search != "" {
		searchTerm := "%" + strings.ToLower(params.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", searchTerm, searchTerm)
	}

	if params.PriceMin != nil {
		query = query.Where("price >= ?", *params.PriceMin)
	}

	if params.PriceMax != nil {
		query = query.Where("price <= ?", *params.PriceMax)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	allowedSortFields := []string{"created_at", "updated_at", "name", "price", "sales_count"}
	query = utils.ApplySort(query, params.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, params.PaginationParams)

	var products []models.Product
	if err := query.Find(&products).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch products: %w", err)
	}

	return products, total, nil
}

// UpdateProduct applies field updates and, when an ingredient list is given,
// replaces the bill-of-materials wholesale: old rows are removed, new rows start
// at zero stock.
func (s *ProductService) UpdateProduct(id uuid.UUID, sellerID uuid.UUID, req *UpdateProductRequest) (*models.Product, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var product models.Product
	if err := s.db.First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if product.SellerID != sellerID {
		return nil, errors.New("unauthorized to update this product")
	}

	updates := make(map[string]interface{})
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Description != "" {
		updates["description"] = req.Description
	}
	if req.Category != "" {
		updates["category"] = req.Category
	}
	if req.Price > 0 {
		updates["price"] = req.Price
	}
	if req.Status != "" {
		updates["status"] = req.Status
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(&product).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to update product: %w", err)
			}
		}

		if req.Images != nil {
			if err := tx.Model(&product).Update("images", pq.StringArray(req.Images)).Error; err != nil {
				return fmt.Errorf("failed to update product images: %w", err)
			}
		}
		if req.Tags != nil {
			if err := tx.Model(&product).Update("tags", pq.StringArray(req.Tags)).Error; err != nil {
				return fmt.Errorf("failed to update product tags: %w", err)
			}
		}

		if req.Ingredients != nil {
			if err := tx.Where("product_id = ?", id).Delete(&models.Ingredient{}).Error; err != nil {
				return fmt.Errorf("failed to remove old ingredients: %w", err)
			}

			rows := ingredientRows(req.Ingredients)
			for i := range rows {
				rows[i].ProductID = id
			}
			if len(rows) > 0 {
				if err := tx.Create(&rows).Error; err != nil {
					return fmt.Errorf("failed to create ingredients: %w", err)
				}
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	// Reload with relationships
	if err := s.db.Preload("Ingredients").First(&product, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to reload product: %w", err)
	}

	return &product, nil
}

func (s *ProductService) DeleteProduct(id uuid.UUID, sellerID uuid.UUID) error {
	var product models.Product
	if err := s.db.First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("database error: %w", err)
	}

	if product.SellerID != sellerID {
		return errors.New("unauthorized to delete this product")
	}

	// Products referenced by live orders stay; their history would dangle.
	var orderCount int64
	if err := s.db.Model(&models.OrderItem{}).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("order_items.product_id = ? AND orders.status <> ?", id, models.OrderStatusCancelled).
		Count(&orderCount).Error; err != nil {
		return fmt.Errorf("failed to check orders: %w", err)
	}

	if orderCount > 0 {
		return errors.New("cannot delete product with existing orders")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&models.Ingredient{}).Error; err != nil {
			return fmt.Errorf("failed to delete ingredients: %w", err)
		}
		if err := tx.Delete(&product).Error; err != nil {
			return fmt.Errorf("failed to delete product: %w", err)
		}
		return nil
	})
}

func ingredientRows(inputs []IngredientInput) []models.Ingredient {
	rows := make([]models.Ingredient, 0, len(inputs))
	for _, in := range inputs {
		rows = append(rows, models.Ingredient{
			Name:   in.Name,
			Amount: in.Amount,
			Unit:   in.Unit,
			Alert:  in.Alert,
			Stock:  0,
			Status: models.StockStatusOut,
		})
	}
	return rows
}
