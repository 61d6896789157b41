package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// CartItem is one line of a user's pre-payment cart. Either ProductID points at
// a catalog product or ItemName carries an ad-hoc prescription line.
type CartItem struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	UserID     string            `gorm:"size:64;not null;uniqueIndex:idx_cart_user_product" json:"user_id"`
	ProductID  *uint             `gorm:"uniqueIndex:idx_cart_user_product" json:"product_id"` // NULL for prescription lines
	Product    *Product          `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	ItemName   string            `gorm:"size:255" json:"item_name"`
	Quantity   int               `gorm:"not null" json:"quantity"`
	PriceAtAdd decimal.Decimal   `gorm:"type:decimal(12,2);not null" json:"price_at_add"`
	Metadata   datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// DisplayName prefers the live catalog name and falls back to the ad-hoc label.
func (c *CartItem) DisplayName() string {
	if c.Product != nil && c.Product.Name != "" {
		return c.Product.Name
	}
	return c.ItemName
}
