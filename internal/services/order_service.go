// internal/services/order_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/ovenside/bakery-backend/internal/models"
	"github.com/ovenside/bakery-backend/internal/utils"
)

type OrderService struct {
	db               *gorm.DB
	inventoryService *InventoryService
}

type CreateOrderRequest struct {
	CustomerName  string                   `json:"customer_name" validate:"required,min=2,max=255"`
	CustomerEmail string                   `json:"customer_email" validate:"omitempty,email"`
	Address       string                   `json:"address,omitempty"`
	Notes         string                   `json:"notes,omitempty"`
	Items         []CreateOrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

type CreateOrderItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

type OrderSearchParams struct {
	utils.PaginationParams
	Status *models.OrderStatus `json:"status,omitempty"`
}

// allowedTransitions is the order lifecycle: forward through fulfillment, with
// cancellation possible until the order is out for delivery.
var allowedTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPending:    {models.OrderStatusConfirmed, models.OrderStatusCancelled},
	models.OrderStatusConfirmed:  {models.OrderStatusBaking, models.OrderStatusCancelled},
	models.OrderStatusBaking:     {models.OrderStatusDelivering, models.OrderStatusCancelled},
	models.OrderStatusDelivering: {models.OrderStatusDelivered},
	models.OrderStatusDelivered:  {},
	models.OrderStatusCancelled:  {},
}

func NewOrderService(db *gorm.DB, inventoryService *InventoryService) *OrderService {
	return &OrderService{
		db:               db,
		inventoryService: inventoryService,
	}
}

func (s *OrderService) CreateOrder(req *CreateOrderRequest) (*models.Order, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var order *models.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		order = &models.Order{
			CustomerName:  req.CustomerName,
			CustomerEmail: req.CustomerEmail,
			Address:       req.Address,
			Notes:         req.Notes,
			Status:        models.OrderStatusPending,
		}

		var total float64
		items := make([]models.OrderItem, 0, len(req.Items))
		for _, item := range req.Items {
			var product models.Product
			if err := tx.First(&product, "id = ?", item.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: %s", ErrProductNotFound, item.ProductID)
				}
				return fmt.Errorf("database error: %w", err)
			}

			if product.Status != models.ProductStatusActive {
				return fmt.Errorf("product %q is not available for ordering", product.Name)
			}

			items = append(items, models.OrderItem{
				ProductID: product.ID,
				Quantity:  item.Quantity,
				UnitPrice: product.Price,
			})
			total += product.Price * float64(item.Quantity)
		}

		order.TotalAmount = total
		order.Items = items

		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"order_id":     order.ID,
		"items":        len(order.Items),
		"total_amount": order.TotalAmount,
	}).Info("Order created")

	return order, nil
}

func (s *OrderService) GetOrder(id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := s.db.Preload("Items").Preload("Items.Product").First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &order, nil
}

func (s *OrderService) ListOrders(params OrderSearchParams) ([]models.Order, int64, error) {
	query := s.db.Model(&models.Order{})

	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Search != "" {
		query = query.Where("customer_name LIKE ?", "%"+params.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	allowedSortFields := []string{"created_at", "updated_at", "status", "total_amount"}
	query = utils.ApplySort(query, params.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, params.PaginationParams)

	var orders []models.Order
	if err := query.Preload("Items").Find(&orders).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch orders: %w", err)
	}

	return orders, total, nil
}

// UpdateOrderStatus moves an order through its lifecycle. Reaching the
// delivering status triggers ingredient stock reconciliation; a reconciliation
// failure is logged and alerted for operator follow-up but never fails the
// status change itself.
func (s *OrderService) UpdateOrderStatus(id uuid.UUID, newStatus models.OrderStatus) (*models.Order, *OrderReconciliationReport, error) {
	var order models.Order
	if err := s.db.Preload("Items").First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrOrderNotFound
		}
		return nil, nil, fmt.Errorf("database error: %w", err)
	}

	if !transitionAllowed(order.Status, newStatus) {
		return nil, nil, fmt.Errorf("invalid status transition from %q to %q", order.Status, newStatus)
	}

	if err := s.db.Model(&order).Update("status", newStatus).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to update order status: %w", err)
	}
	order.Status = newStatus

	logrus.WithFields(logrus.Fields{
		"order_id": order.ID,
		"status":   newStatus,
	}).Info("Order status updated")

	var report *OrderReconciliationReport
	if newStatus == models.OrderStatusDelivering {
		var err error
		report, err = s.inventoryService.ReconcileOrder(order.ID)
		if err != nil {
			// Operator follow-up, not a customer-facing failure.
			logrus.WithFields(logrus.Fields{
				"order_id": order.ID,
			}).WithError(err).Warn("Stock reconciliation incomplete for delivering order")
		}
	}

	return &order, report, nil
}

func transitionAllowed(from, to models.OrderStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
