// internal/models/order.go
package models

import (
	"github.com/google/uuid"
)

type Order struct {
	BaseModel
	CustomerName  string      `json:"customer_name" gorm:"size:255;not null"`
	CustomerEmail string      `json:"customer_email" gorm:"size:255;index"`
	Address       string      `json:"address" gorm:"type:text"`
	Status        OrderStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	TotalAmount   float64     `json:"total_amount" gorm:"type:decimal(10,2);not null"`
	Notes         string      `json:"notes,omitempty" gorm:"type:text"`

	// Relationships
	Items []OrderItem `json:"items,omitempty" gorm:"foreignKey:OrderID"`
}

type OrderItem struct {
	BaseModel
	OrderID   uuid.UUID `json:"order_id" gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID `json:"product_id" gorm:"type:uuid;not null;index"`
	Quantity  int       `json:"quantity" gorm:"not null"`
	UnitPrice float64   `json:"unit_price" gorm:"type:decimal(10,2);not null"`

	// Relationships
	Order   Order   `json:"order,omitempty" gorm:"foreignKey:OrderID"`
	Product Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}
