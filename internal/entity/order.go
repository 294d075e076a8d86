package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Order represents a purchase order stored in the relational database.
type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID              int64           `bun:",pk,autoincrement"`
	Number          string          `bun:"number,unique,notnull"`
	PartnerID       string          `bun:"partner_id"`
	Status          string          `bun:"status"`
	TotalAmount     decimal.Decimal `bun:"total_amount,type:numeric(14,2)"`
	Currency        string          `bun:"currency"`
	ShippedAt       *time.Time      `bun:"shipped_at"`
	TrackingNumber  string          `bun:"tracking_number"`
	ShippingCarrier string          `bun:"shipping_carrier"`
	EDI             OrderEDI        `bun:"edi,type:json"`
	CreatedAt       time.Time       `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time       `bun:"updated_at,nullzero"`
}

// OrderEDI tracks which EDI documents have been exchanged for an order.
type OrderEDI struct {
	OrderConfirmationReceived   bool       `json:"orderConfirmationReceived,omitempty"`
	OrderConfirmationReceivedAt *time.Time `json:"orderConfirmationReceivedAt,omitempty"`
	OrderConfirmationReference  string     `json:"orderConfirmationReference,omitempty"`
	ShippingNoticeReceived      bool       `json:"shippingNoticeReceived,omitempty"`
	ShippingNoticeReceivedAt    *time.Time `json:"shippingNoticeReceivedAt,omitempty"`
	ShippingNoticeReference     string     `json:"shippingNoticeReference,omitempty"`
	InvoiceReceived             bool       `json:"invoiceReceived,omitempty"`
	InvoiceReceivedAt           *time.Time `json:"invoiceReceivedAt,omitempty"`
	InvoiceReference            string     `json:"invoiceReference,omitempty"`
}
