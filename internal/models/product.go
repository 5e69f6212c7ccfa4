// internal/models/product.go
package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Product struct {
	BaseModel
	SellerID    uuid.UUID      `json:"seller_id" gorm:"type:uuid;not null;index"`
	Name        string         `json:"name" gorm:"size:255;not null"`
	Description string         `json:"description" gorm:"type:text"`
	Category    string         `json:"category" gorm:"size:100;index"`
	Price       float64        `json:"price" gorm:"type:decimal(10,2);not null"`
	Images      pq.StringArray `json:"images" gorm:"type:text[]"`
	Tags        pq.StringArray `json:"tags" gorm:"type:text[]"`
	Status      ProductStatus  `json:"status" gorm:"type:varchar(20);default:'draft';index"`
	SalesCount  int64          `json:"sales_count" gorm:"default:0"`

	// Relationships
	Ingredients []Ingredient `json:"ingredients,omitempty" gorm:"foreignKey:ProductID"`
	OrderItems  []OrderItem  `json:"order_items,omitempty" gorm:"foreignKey:ProductID"`
}

// Ingredient is one bill-of-materials line of a product. Amount is the quantity
// consumed to produce one unit of the product; Stock is the quantity on hand;
// Alert is the threshold under which the ingredient counts as low.
type Ingredient struct {
	BaseModel
	ProductID uuid.UUID   `json:"product_id" gorm:"type:uuid;not null;index"`
	Name      string      `json:"name" gorm:"size:255;not null;index"`
	Amount    float64     `json:"amount" gorm:"type:decimal(12,3);not null"`
	Stock     float64     `json:"stock" gorm:"type:decimal(12,3);not null;default:0"`
	Unit      string      `json:"unit" gorm:"size:50;not null"`
	Alert     float64     `json:"alert" gorm:"type:decimal(12,3);not null;default:0"`
	Status    StockStatus `json:"status" gorm:"type:varchar(10);default:'out';index"`

	// Relationships
	Product Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}
