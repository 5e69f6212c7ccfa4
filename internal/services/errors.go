// internal/services/errors.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrIngredientNotFound = errors.New("ingredient not found")
)

// ReconciliationFailure describes one ingredient (or a whole product batch) that
// could not be reconciled while the rest of the batch went through.
type ReconciliationFailure struct {
	ProductID    uuid.UUID  `json:"product_id"`
	IngredientID *uuid.UUID `json:"ingredient_id,omitempty"`
	Ingredient   string     `json:"ingredient,omitempty"`
	Reason       string     `json:"reason"`
}

// PartialBatchError reports that a reconciliation batch completed best-effort:
// some stock updates were applied, the listed ones were not. It is returned
// alongside the report, never instead of it.
type PartialBatchError struct {
	Failures []ReconciliationFailure
}

func (e *PartialBatchError) Error() string {
	return fmt.Sprintf("stock reconciliation partially failed: %d update(s) did not apply", len(e.Failures))
}
