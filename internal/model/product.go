package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProductStatus string

const (
	ProductStatusDraft      ProductStatus = "draft"
	ProductStatusActive     ProductStatus = "active"
	ProductStatusArchived   ProductStatus = "archived"
	ProductStatusOutOfStock ProductStatus = "out_of_stock"
)

func (s ProductStatus) Valid() bool {
	switch s {
	case ProductStatusDraft, ProductStatusActive, ProductStatusArchived, ProductStatusOutOfStock:
		return true
	}
	return false
}

type Product struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Name          string          `gorm:"size:255;not null" json:"name"`
	SKU           string          `gorm:"size:64;index" json:"sku"`
	Description   string          `gorm:"type:text" json:"description"`
	Category      string          `gorm:"size:64;index" json:"category"`
	ImageURL      string          `gorm:"size:512" json:"image_url"`
	Price         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	StockQuantity int             `gorm:"not null;default:0" json:"stock_quantity"` // never below zero
	Status        ProductStatus   `gorm:"size:32;index;not null;default:draft" json:"status"`
	Featured      bool            `gorm:"not null;default:false;index" json:"featured"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DeletedAt     gorm.DeletedAt  `gorm:"index" json:"-"`
}
