// internal/services/inventory_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ovenside/bakery-backend/internal/config"
	"github.com/ovenside/bakery-backend/internal/models"
	"github.com/ovenside/bakery-backend/internal/utils"
)

// InventoryService keeps ingredient stock and depletion status consistent with
// manual restocks and with the consumption implied by fulfilled orders.
type InventoryService struct {
	db  *gorm.DB
	cfg config.InventoryConfig
}

type RestockRequest struct {
	Amount float64 `json:"amount" validate:"gte=0"`
	Unit   string  `json:"unit" validate:"required"`
	Alert  float64 `json:"alert" validate:"gte=0"`
}

type IngredientSearchParams struct {
	utils.PaginationParams
	ProductID *uuid.UUID          `json:"product_id,omitempty"`
	Status    *models.StockStatus `json:"status,omitempty"`
	Name      string              `json:"name,omitempty"`
}

// IngredientResult is one successfully updated line of a reconciliation report.
type IngredientResult struct {
	IngredientID uuid.UUID          `json:"ingredient_id"`
	Name         string             `json:"name"`
	Requested    float64            `json:"requested"`
	Applied      float64            `json:"applied"`
	Stock        float64            `json:"stock"`
	Status       models.StockStatus `json:"status"`
}

type ReconciliationReport struct {
	OrderID           uuid.UUID               `json:"order_id"`
	ProductID         uuid.UUID               `json:"product_id"`
	Quantity          int                     `json:"quantity"`
	AlreadyReconciled bool                    `json:"already_reconciled"`
	Updated           []IngredientResult      `json:"updated"`
	Failed            []ReconciliationFailure `json:"failed,omitempty"`
}

type OrderReconciliationReport struct {
	OrderID uuid.UUID               `json:"order_id"`
	Reports []*ReconciliationReport `json:"reports"`
}

func NewInventoryService(db *gorm.DB, cfg config.InventoryConfig) *InventoryService {
	return &InventoryService{
		db:  db,
		cfg: cfg,
	}
}

// deriveStatus classifies a stock level against its alert threshold.
//
// The monotonic rule is the documented default: out at or below zero, low at or
// below the alert threshold, ok above it. The legacy rule reproduces the exact
// comparison carried over from the previous system, kept selectable until the
// product owners sign off on retiring it.
func (s *InventoryService) deriveStatus(stock, alert float64) models.StockStatus {
	if s.cfg.StatusRule == config.StatusRuleLegacy {
		if stock > alert {
			return models.StockStatusOK
		}
		if stock-alert < alert*2 {
			return models.StockStatusLow
		}
		return models.StockStatusOut
	}

	if stock <= 0 {
		return models.StockStatusOut
	}
	if stock <= alert {
		return models.StockStatusLow
	}
	return models.StockStatusOK
}

// consumptionFor returns the stock decrement for one ingredient of an ordered
// product under the configured policy.
func (s *InventoryService) consumptionFor(ingredient *models.Ingredient, quantity int) float64 {
	if s.cfg.DecrementPolicy == config.DecrementPerUnit {
		return ingredient.Amount
	}
	return ingredient.Amount * float64(quantity)
}

// Restock adds a delivered quantity to an ingredient's stock and overwrites its
// unit and alert threshold. Mutations are keyed by the ingredient id.
func (s *InventoryService) Restock(ingredientID uuid.UUID, req *RestockRequest) (*models.Ingredient, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var updated models.Ingredient
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var ingredient models.Ingredient
		if err := tx.First(&ingredient, "id = ?", ingredientID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrIngredientNotFound
			}
			return fmt.Errorf("database error: %w", err)
		}

		// The addition runs inside the database so two concurrent restocks (or a
		// restock racing a reconciliation) never lose an update.
		if err := tx.Model(&models.Ingredient{}).Where("id = ?", ingredientID).
			Updates(map[string]interface{}{
				"stock": gorm.Expr("stock + ?", req.Amount),
				"unit":  req.Unit,
				"alert": req.Alert,
			}).Error; err != nil {
			return fmt.Errorf("failed to update ingredient: %w", err)
		}

		if err := tx.First(&updated, "id = ?", ingredientID).Error; err != nil {
			return fmt.Errorf("failed to reload ingredient: %w", err)
		}

		// The restock path only distinguishes ok from low: a delivery just came
		// in, so "out" is not a meaningful classification here.
		status := models.StockStatusLow
		if updated.Stock > updated.Alert {
			status = models.StockStatusOK
		}

		if err := tx.Model(&models.Ingredient{}).Where("id = ?", ingredientID).
			Update("status", status).Error; err != nil {
			return fmt.Errorf("failed to update ingredient status: %w", err)
		}
		updated.Status = status

		movement := &models.StockMovement{
			IngredientID: ingredientID,
			Type:         models.StockMovementRestock,
			Delta:        req.Amount,
			StockAfter:   updated.Stock,
			StatusAfter:  status,
		}
		if err := tx.Create(movement).Error; err != nil {
			return fmt.Errorf("failed to record stock movement: %w", err)
		}

		if status != models.StockStatusOK && status != ingredient.Status {
			if err := s.raiseStockAlert(tx, &updated, nil); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"ingredient_id": ingredientID,
		"added":         req.Amount,
		"stock":         updated.Stock,
		"status":        updated.Status,
	}).Info("Ingredient restocked")

	return &updated, nil
}

// RestockByName restocks every ingredient whose name matches. Names are not
// unique across products, so each matching row is restocked individually by id.
func (s *InventoryService) RestockByName(name string, req *RestockRequest) ([]models.Ingredient, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrIngredientNotFound)
	}

	var matches []models.Ingredient
	if err := s.db.Where("name = ?", name).Find(&matches).Error; err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if len(matches) == 0 {
		return nil, ErrIngredientNotFound
	}

	updated := make([]models.Ingredient, 0, len(matches))
	for _, match := range matches {
		ingredient, err := s.Restock(match.ID, req)
		if err != nil {
			return nil, err
		}
		updated = append(updated, *ingredient)
	}

	return updated, nil
}

// ReconcileProduct decrements the stock of every ingredient of one ordered
// product and re-derives each ingredient's status. The idempotency record is
// written before any stock is touched, so a repeated trigger for the same
// (order, product) pair is a no-op. Per-ingredient updates are best-effort: one
// failing never cancels the others, and the failures come back in the report
// and as a PartialBatchError.
func (s *InventoryService) ReconcileProduct(orderID, productID uuid.UUID, quantity int) (*ReconciliationReport, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive, got %d", quantity)
	}

	var product models.Product
	if err := s.db.First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	report := &ReconciliationReport{
		OrderID:   orderID,
		ProductID: productID,
		Quantity:  quantity,
	}

	// Claim the (order, product) pair. A conflict means another trigger already
	// reconciled this pair; decrementing again would double-consume stock.
	record := &models.StockReconciliation{
		OrderID:   orderID,
		ProductID: productID,
		Quantity:  quantity,
	}
	claim := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_id"}, {Name: "product_id"}},
		DoNothing: true,
	}).Create(record)
	if claim.Error != nil {
		return nil, fmt.Errorf("failed to record reconciliation: %w", claim.Error)
	}
	if claim.RowsAffected == 0 {
		report.AlreadyReconciled = true
		logrus.WithFields(logrus.Fields{
			"order_id":   orderID,
			"product_id": productID,
		}).Info("Reconciliation already applied, skipping")
		return report, nil
	}

	var ingredients []models.Ingredient
	if err := s.db.Where("product_id = ?", productID).Find(&ingredients).Error; err != nil {
		return nil, fmt.Errorf("failed to load ingredients: %w", err)
	}

	for i := range ingredients {
		ingredient := &ingredients[i]
		need := s.consumptionFor(ingredient, quantity)

		result, err := s.applyConsumption(orderID, ingredient.ID, need)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"order_id":      orderID,
				"product_id":    productID,
				"ingredient_id": ingredient.ID,
				"ingredient":    ingredient.Name,
			}).WithError(err).Error("Failed to reconcile ingredient stock")

			ingredientID := ingredient.ID
			report.Failed = append(report.Failed, ReconciliationFailure{
				ProductID:    productID,
				IngredientID: &ingredientID,
				Ingredient:   ingredient.Name,
				Reason:       err.Error(),
			})
			continue
		}

		report.Updated = append(report.Updated, *result)
	}

	if len(report.Failed) > 0 {
		return report, &PartialBatchError{Failures: report.Failed}
	}
	return report, nil
}

// applyConsumption performs the atomic floor-at-zero decrement for a single
// ingredient and re-derives its status from the resulting stock.
func (s *InventoryService) applyConsumption(orderID, ingredientID uuid.UUID, need float64) (*IngredientResult, error) {
	var result IngredientResult

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var before models.Ingredient
		if err := tx.First(&before, "id = ?", ingredientID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrIngredientNotFound
			}
			return fmt.Errorf("database error: %w", err)
		}

		// Single-statement read-modify-write: the subtraction and the zero floor
		// both evaluate inside the database, so concurrent reconciliations of the
		// same ingredient serialize there instead of losing updates. Plain CASE
		// keeps the statement valid on both postgres and sqlite.
		if err := tx.Model(&models.Ingredient{}).Where("id = ?", ingredientID).
			Update("stock", gorm.Expr("CASE WHEN stock >= ? THEN stock - ? ELSE 0 END", need, need)).Error; err != nil {
			return fmt.Errorf("failed to decrement stock: %w", err)
		}

		var after models.Ingredient
		if err := tx.First(&after, "id = ?", ingredientID).Error; err != nil {
			return fmt.Errorf("failed to reload ingredient: %w", err)
		}

		status := s.deriveStatus(after.Stock, after.Alert)
		if err := tx.Model(&models.Ingredient{}).Where("id = ?", ingredientID).
			Update("status", status).Error; err != nil {
			return fmt.Errorf("failed to update ingredient status: %w", err)
		}
		after.Status = status

		applied := before.Stock - after.Stock
		movement := &models.StockMovement{
			IngredientID: ingredientID,
			OrderID:      &orderID,
			Type:         models.StockMovementOrderConsumption,
			Delta:        -applied,
			StockAfter:   after.Stock,
			StatusAfter:  status,
		}
		if err := tx.Create(movement).Error; err != nil {
			return fmt.Errorf("failed to record stock movement: %w", err)
		}

		if status != models.StockStatusOK && status != before.Status {
			if err := s.raiseStockAlert(tx, &after, &orderID); err != nil {
				return err
			}
		}

		result = IngredientResult{
			IngredientID: ingredientID,
			Name:         after.Name,
			Requested:    need,
			Applied:      applied,
			Stock:        after.Stock,
			Status:       status,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// ReconcileOrder applies stock reconciliation for every distinct product in an
// order that reached its fulfillment-triggering status. A failure for one
// product never blocks reconciliation of its siblings.
func (s *InventoryService) ReconcileOrder(orderID uuid.UUID) (*OrderReconciliationReport, error) {
	var order models.Order
	if err := s.db.Preload("Items").First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	// Aggregate quantities per product: the same product twice in one order is
	// one reconciliation with the summed quantity.
	quantities := make(map[uuid.UUID]int)
	productOrder := make([]uuid.UUID, 0, len(order.Items))
	for _, item := range order.Items {
		if _, seen := quantities[item.ProductID]; !seen {
			productOrder = append(productOrder, item.ProductID)
		}
		quantities[item.ProductID] += item.Quantity
	}

	orderReport := &OrderReconciliationReport{OrderID: orderID}
	var failures []ReconciliationFailure

	for _, productID := range productOrder {
		report, err := s.ReconcileProduct(orderID, productID, quantities[productID])
		if report != nil {
			orderReport.Reports = append(orderReport.Reports, report)
		}

		if err == nil {
			continue
		}

		var partial *PartialBatchError
		if errors.As(err, &partial) {
			failures = append(failures, partial.Failures...)
			continue
		}

		logrus.WithFields(logrus.Fields{
			"order_id":   orderID,
			"product_id": productID,
		}).WithError(err).Error("Failed to reconcile product for order")
		failures = append(failures, ReconciliationFailure{
			ProductID: productID,
			Reason:    err.Error(),
		})
	}

	if len(failures) > 0 {
		s.recordReconciliationFailure(orderID, failures)
		return orderReport, &PartialBatchError{Failures: failures}
	}

	return orderReport, nil
}

// GetIngredient returns a single ingredient by id.
func (s *InventoryService) GetIngredient(id uuid.UUID) (*models.Ingredient, error) {
	var ingredient models.Ingredient
	if err := s.db.Preload("Product").First(&ingredient, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIngredientNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &ingredient, nil
}

// ListIngredients returns ingredients filtered by product, status or name.
func (s *InventoryService) ListIngredients(params IngredientSearchParams) ([]models.Ingredient, int64, error) {
	query := s.db.Model(&models.Ingredient{})

	if params.ProductID != nil {
		query = query.Where("product_id = ?", *params.ProductID)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Name != "" {
		query = query.Where("name = ?", params.Name)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count ingredients: %w", err)
	}

	allowedSortFields := []string{"created_at", "updated_at", "name", "stock", "status"}
	query = utils.ApplySort(query, params.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, params.PaginationParams)

	var ingredients []models.Ingredient
	if err := query.Find(&ingredients).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch ingredients: %w", err)
	}

	return ingredients, total, nil
}

// ListMovements returns the stock ledger, most recent first.
func (s *InventoryService) ListMovements(ingredientID *uuid.UUID, params utils.PaginationParams) ([]models.StockMovement, int64, error) {
	query := s.db.Model(&models.StockMovement{})
	if ingredientID != nil {
		query = query.Where("ingredient_id = ?", *ingredientID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count stock movements: %w", err)
	}

	query = query.Order("created_at DESC")
	query = utils.ApplyPagination(query, params)

	var movements []models.StockMovement
	if err := query.Find(&movements).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch stock movements: %w", err)
	}

	return movements, total, nil
}

// ListAlerts returns operator alerts, unresolved first.
func (s *InventoryService) ListAlerts(unresolvedOnly bool, params utils.PaginationParams) ([]models.StockAlert, int64, error) {
	query := s.db.Model(&models.StockAlert{})
	if unresolvedOnly {
		query = query.Where("resolved_at IS NULL")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count stock alerts: %w", err)
	}

	query = query.Order("created_at DESC")
	query = utils.ApplyPagination(query, params)

	var alerts []models.StockAlert
	if err := query.Preload("Ingredient").Find(&alerts).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch stock alerts: %w", err)
	}

	return alerts, total, nil
}

// ResolveAlert marks an operator alert as handled.
func (s *InventoryService) ResolveAlert(id uuid.UUID) error {
	result := s.db.Model(&models.StockAlert{}).
		Where("id = ? AND resolved_at IS NULL", id).
		Update("resolved_at", gorm.Expr("CURRENT_TIMESTAMP"))
	if result.Error != nil {
		return fmt.Errorf("failed to resolve alert: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("alert not found or already resolved")
	}
	return nil
}

func (s *InventoryService) raiseStockAlert(tx *gorm.DB, ingredient *models.Ingredient, orderID *uuid.UUID) error {
	level := models.StockAlertLevelLow
	if ingredient.Status == models.StockStatusOut {
		level = models.StockAlertLevelOut
	}

	ingredientID := ingredient.ID
	alert := &models.StockAlert{
		IngredientID: &ingredientID,
		OrderID:      orderID,
		Level:        level,
		Message: fmt.Sprintf("ingredient %q is %s: %.3f %s on hand, alert threshold %.3f",
			ingredient.Name, ingredient.Status, ingredient.Stock, ingredient.Unit, ingredient.Alert),
	}
	if err := tx.Create(alert).Error; err != nil {
		return fmt.Errorf("failed to create stock alert: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"ingredient_id": ingredient.ID,
		"ingredient":    ingredient.Name,
		"stock":         ingredient.Stock,
		"alert":         ingredient.Alert,
		"level":         level,
	}).Warn("Ingredient stock below threshold")

	return nil
}

// recordReconciliationFailure leaves an operator alert behind when a batch only
// partially applied. The order status change itself has already succeeded; this
// is follow-up material, not a customer-facing error.
func (s *InventoryService) recordReconciliationFailure(orderID uuid.UUID, failures []ReconciliationFailure) {
	alert := &models.StockAlert{
		OrderID: &orderID,
		Level:   models.StockAlertLevelFailure,
		Message: fmt.Sprintf("stock reconciliation for order %s left %d update(s) unapplied", orderID, len(failures)),
	}
	if err := s.db.Create(alert).Error; err != nil {
		logrus.WithError(err).Error("Failed to record reconciliation failure alert")
	}
}
