// internal/models/inventory.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// StockReconciliation marks that the ingredients of one product have already been
// decremented for one order. The unique (order_id, product_id) pair is inserted
// before any decrement is applied, so a repeated fulfillment trigger is a no-op.
type StockReconciliation struct {
	BaseModel
	OrderID   uuid.UUID `json:"order_id" gorm:"type:uuid;not null;uniqueIndex:idx_reconciliations_order_product"`
	ProductID uuid.UUID `json:"product_id" gorm:"type:uuid;not null;uniqueIndex:idx_reconciliations_order_product"`
	Quantity  int       `json:"quantity" gorm:"not null"`
}

// StockMovement is the append-only ledger of every stock mutation.
type StockMovement struct {
	BaseModel
	IngredientID uuid.UUID         `json:"ingredient_id" gorm:"type:uuid;not null;index"`
	OrderID      *uuid.UUID        `json:"order_id,omitempty" gorm:"type:uuid;index"`
	Type         StockMovementType `json:"type" gorm:"type:varchar(30);not null;index"`
	Delta        float64           `json:"delta" gorm:"type:decimal(12,3);not null"`
	StockAfter   float64           `json:"stock_after" gorm:"type:decimal(12,3);not null"`
	StatusAfter  StockStatus       `json:"status_after" gorm:"type:varchar(10);not null"`

	// Relationships
	Ingredient Ingredient `json:"ingredient,omitempty" gorm:"foreignKey:IngredientID"`
}

// StockAlert is an operator follow-up item: an ingredient ran low or out, or a
// reconciliation batch partially failed. Never surfaced to the ordering customer.
type StockAlert struct {
	BaseModel
	IngredientID *uuid.UUID      `json:"ingredient_id,omitempty" gorm:"type:uuid;index"`
	OrderID      *uuid.UUID      `json:"order_id,omitempty" gorm:"type:uuid;index"`
	Level        StockAlertLevel `json:"level" gorm:"type:varchar(10);not null;index"`
	Message      string          `json:"message" gorm:"type:text;not null"`
	ResolvedAt   *time.Time      `json:"resolved_at,omitempty"`

	// Relationships
	Ingredient *Ingredient `json:"ingredient,omitempty" gorm:"foreignKey:IngredientID"`
}
