package salla

import "github.com/shopspring/decimal"

// ---------------------------------------------------------------------------
// OAuth Types
// ---------------------------------------------------------------------------

// TokenResponse is the body returned by the accounts token endpoint
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
}

// ---------------------------------------------------------------------------
// Admin API Envelope
// ---------------------------------------------------------------------------

// Envelope is the common wrapper on admin API responses
type Envelope struct {
	Status  int  `json:"status"`
	Success bool `json:"success"`
}

// Money is a monetary amount as Salla returns it
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// ---------------------------------------------------------------------------
// Order Types
// ---------------------------------------------------------------------------

// OrderGetResponse is the response for GET /orders/{id}
type OrderGetResponse struct {
	Envelope
	Data *Order `json:"data,omitempty"`
}

// Order represents an order from the Salla admin API
type Order struct {
	ID          int64       `json:"id"`
	ReferenceID int64       `json:"reference_id"`
	Status      OrderStatus `json:"status"`
	Date        OrderDate   `json:"date"`
	Total       Money       `json:"total"`
	Customer    *Customer   `json:"customer,omitempty"`
	Items       []OrderItem `json:"items,omitempty"`
}

// OrderStatus is the nested status object on an order
type OrderStatus struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// OrderDate carries the order creation timestamp as a formatted string
type OrderDate struct {
	Date string `json:"date"`
}

// Customer is the buyer on an order
type Customer struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Mobile    string `json:"mobile"`
	Email     string `json:"email"`
}

// OrderItem is a line item on an order
type OrderItem struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	SKU      string          `json:"sku"`
	Quantity decimal.Decimal `json:"quantity"`
	Amounts  OrderItemAmount `json:"amounts"`
}

// OrderItemAmount holds per-line pricing
type OrderItemAmount struct {
	PriceWithoutTax Money `json:"price_without_tax"`
	Total           Money `json:"total"`
}

// StatusUpdateRequest is the body for POST /orders/{id}/status
type StatusUpdateRequest struct {
	Slug string `json:"slug"`
	Note string `json:"note,omitempty"`
}

// StatusUpdateResponse is the response for POST /orders/{id}/status
type StatusUpdateResponse struct {
	Envelope
	Data *OrderStatus `json:"data,omitempty"`
}

// ---------------------------------------------------------------------------
// Invoice Types
// ---------------------------------------------------------------------------

// InvoiceCreateRequest is the body for POST /orders/{id}/invoices
type InvoiceCreateRequest struct {
	Type string          `json:"type"`
	Date string          `json:"date,omitempty"`
	Tax  decimal.Decimal `json:"tax,omitempty"`
}

// InvoiceCreateResponse is the response for POST /orders/{id}/invoices
type InvoiceCreateResponse struct {
	Envelope
	Data *Invoice `json:"data,omitempty"`
}

// Invoice represents an issued invoice
type Invoice struct {
	ID      int64  `json:"id"`
	OrderID int64  `json:"order_id"`
	Type    string `json:"type"`
	Number  string `json:"invoice_number"`
	Total   Money  `json:"total"`
	Date    string `json:"date"`
}
