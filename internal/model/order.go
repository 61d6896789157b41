package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

type OrderSource string

const (
	OrderSourceWebhook OrderSource = "webhook"
	OrderSourceAPI     OrderSource = "api"
)

type Order struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	OrderNumber      string          `gorm:"size:64;uniqueIndex;not null" json:"order_number"`
	UserID           string          `gorm:"size:64;index;not null" json:"user_id"`
	PaymentReference string          `gorm:"size:128;uniqueIndex;not null" json:"payment_reference"` // processor intent id
	CustomerEmail    string          `gorm:"size:255" json:"customer_email"`
	CustomerName     string          `gorm:"size:255" json:"customer_name"`
	CustomerPhone    string          `gorm:"size:64" json:"customer_phone"`
	ShippingAddress  ShippingAddress `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`
	Subtotal         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	TaxAmount        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"tax_amount"`
	ShippingCost     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"shipping_cost"`
	DiscountAmount   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"discount_amount"`
	TotalAmount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	Currency         string          `gorm:"size:8;not null" json:"currency"`
	PaymentStatus    PaymentStatus   `gorm:"size:32;index;not null" json:"payment_status"`
	OrderStatus      OrderStatus     `gorm:"size:32;index;not null" json:"order_status"`
	Source           OrderSource     `gorm:"size:16;not null" json:"source"`
	Items            []OrderItem     `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	CreatedAt        time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

type ShippingAddress struct {
	Line1      string `gorm:"size:255" json:"line1"`
	Line2      string `gorm:"size:255" json:"line2"`
	City       string `gorm:"size:128" json:"city"`
	State      string `gorm:"size:64" json:"state"`
	PostalCode string `gorm:"size:32" json:"postal_code"`
	Country    string `gorm:"size:8" json:"country"`
}

// OrderItem denormalizes product display fields so historical orders render
// after the catalog entry changes or is deleted.
type OrderItem struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	OrderID      uint            `gorm:"index;not null" json:"order_id"`
	ProductID    *uint           `gorm:"index" json:"product_id"`
	ProductName  string          `gorm:"size:255;not null" json:"product_name"`
	ProductSKU   string          `gorm:"size:64" json:"product_sku"`
	ProductImage string          `gorm:"size:512" json:"product_image"`
	Quantity     int             `gorm:"not null" json:"quantity"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	TotalPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_price"`
	CreatedAt    time.Time       `json:"created_at"`
}
