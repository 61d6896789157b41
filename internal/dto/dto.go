package dto

import (
	"time"

	"pharmacy-portal/internal/model"

	"github.com/shopspring/decimal"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// ---- cart ----

type AddCartItemRequest struct {
	ProductID *uint            `json:"product_id"`
	ItemName  string           `json:"item_name"`
	Price     *decimal.Decimal `json:"price"`
	Quantity  int              `json:"quantity"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

type CartResponse struct {
	Items  []*model.CartItem `json:"items"`
	Totals model.Totals      `json:"totals"`
}

// ---- checkout ----

type CustomerInfo struct {
	Name            string                `json:"customer_name"`
	Phone           string                `json:"customer_phone"`
	ShippingAddress model.ShippingAddress `json:"shipping_address"`
}

type CreateIntentRequest struct {
	CustomerInfo
}

type CreateIntentResponse struct {
	ClientSecret    string       `json:"client_secret"`
	PaymentIntentID string       `json:"payment_intent_id"`
	Amount          int64        `json:"amount"`
	Currency        string       `json:"currency"`
	Totals          model.Totals `json:"totals"`
}

// ---- orders ----

type CreateOrderRequest struct {
	CustomerInfo
}

type OrderListResponse struct {
	Orders []*model.Order `json:"orders"`
	Total  int64          `json:"total"`
}

// ---- products ----

type ProductRequest struct {
	Name          string              `json:"name"`
	SKU           string              `json:"sku"`
	Description   string              `json:"description"`
	Category      string              `json:"category"`
	ImageURL      string              `json:"image_url"`
	Price         decimal.Decimal     `json:"price"`
	StockQuantity int                 `json:"stock_quantity"`
	Status        model.ProductStatus `json:"status"`
	Featured      bool                `json:"featured"`
}

// ---- forms ----

type SubmitFormRequest struct {
	FormType string                 `json:"form_type"`
	FormData map[string]interface{} `json:"form_data"`
}

type SubmitFormResponse struct {
	SubmissionID    uint                   `json:"submission_id"`
	Status          model.SubmissionStatus `json:"status"`
	CartItemsAdded  int                    `json:"cart_items_added"`
	CartItemsFailed int                    `json:"cart_items_failed"`
}

// MedicationEntry is the structured form of a form_data.medications element.
type MedicationEntry struct {
	Label    string          `json:"label"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// ---- admin ----

type SubmissionListResponse struct {
	Submissions []*model.FormSubmission `json:"submissions"`
	Total       int64                   `json:"total"`
}

type SubmissionStatsResponse struct {
	From   *time.Time               `json:"from,omitempty"`
	To     *time.Time               `json:"to,omitempty"`
	Counts map[model.FormType]int64 `json:"counts"`
	Total  int64                    `json:"total"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// ---- providers ----

type ProviderSignupRequest struct {
	BusinessName string `json:"business_name"`
	ContactName  string `json:"contact_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	NPI          string `json:"npi"`
}
