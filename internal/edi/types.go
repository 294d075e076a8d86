package edi

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Address is a postal address as carried on purchase orders.
type Address struct {
	Name       string `json:"name,omitempty"`
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

// LineItem is one purchase order line.
type LineItem struct {
	SKU      string          `json:"sku" validate:"required"`
	Quantity int             `json:"quantity" validate:"gt=0"`
	UPC      string          `json:"upc,omitempty"`
	Price    decimal.Decimal `json:"price"`
	Name     string          `json:"name,omitempty"`
}

// PurchaseOrderData is built by the order workflow and sent to a supplier
// as an 850.
type PurchaseOrderData struct {
	OrderID         int64      `json:"orderId"`
	OrderNumber     string     `json:"orderNumber" validate:"required"`
	PartnerID       string     `json:"partnerId" validate:"required"`
	CreatedAt       time.Time  `json:"createdAt"`
	Currency        string     `json:"currency,omitempty"`
	Items           []LineItem `json:"items" validate:"required,min=1,dive"`
	ShippingAddress Address    `json:"shippingAddress"`
	BillingAddress  Address    `json:"billingAddress"`
}

// PaymentAdviceData describes a remittance sent to a supplier as an 820.
type PaymentAdviceData struct {
	OrderID       int64           `json:"orderId"`
	PONumber      string          `json:"poNumber" validate:"required"`
	PartnerID     string          `json:"partnerId" validate:"required"`
	PaymentID     string          `json:"paymentId" validate:"required"`
	InvoiceNumber string          `json:"invoiceNumber,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency,omitempty"`
	PaymentDate   time.Time       `json:"paymentDate"`
	PaymentMethod string          `json:"paymentMethod,omitempty"`
}

// InventoryItem is a single stock position on an 846.
type InventoryItem struct {
	SKU               string `json:"sku" validate:"required"`
	QuantityAvailable int    `json:"quantityAvailable" validate:"gte=0"`
	UPC               string `json:"upc,omitempty"`
	Warehouse         string `json:"warehouse,omitempty"`
}

// InventoryUpdate is an inbound 846.
type InventoryUpdate struct {
	ReferenceID string          `json:"referenceId"`
	PartnerID   string          `json:"partnerId" validate:"required"`
	Date        string          `json:"date,omitempty"`
	Items       []InventoryItem `json:"items" validate:"omitempty,dive"`
}

// OrderConfirmationDocument is an inbound 855.
type OrderConfirmationDocument struct {
	ReferenceID string `json:"referenceId"`
	PartnerID   string `json:"partnerId" validate:"required"`
	PONumber    string `json:"poNumber" validate:"required"`
	Status      string `json:"status"`
	Date        string `json:"date,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// ShippingNoticeDocument is an inbound 856 advance ship notice.
type ShippingNoticeDocument struct {
	ReferenceID    string `json:"referenceId"`
	PartnerID      string `json:"partnerId" validate:"required"`
	PONumber       string `json:"poNumber" validate:"required"`
	ShipDate       string `json:"shipDate" validate:"required"`
	TrackingNumber string `json:"trackingNumber"`
	Carrier        string `json:"carrier"`
}

// InvoiceDocument is an inbound 810.
type InvoiceDocument struct {
	ReferenceID   string          `json:"referenceId"`
	PartnerID     string          `json:"partnerId" validate:"required"`
	PONumber      string          `json:"poNumber" validate:"required"`
	InvoiceNumber string          `json:"invoiceNumber" validate:"required"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency,omitempty"`
	InvoiceDate   string          `json:"invoiceDate,omitempty"`
	DueDate       string          `json:"dueDate,omitempty"`
}

// ConfirmationOrderStatus translates a provider 855 status into the local
// order status. Only the exact provider values are recognized; anything else,
// including other casings, leaves the order processing.
func ConfirmationOrderStatus(providerStatus string) string {
	switch providerStatus {
	case "accepted":
		return "confirmed"
	case "rejected":
		return "rejected"
	default:
		return "processing"
	}
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"20060102",
}

// ParseDate parses the date formats seen on provider documents.
func ParseDate(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", raw)
}

// ParseOptionalDate returns nil for an empty value.
func ParseOptionalDate(raw string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	t, err := ParseDate(raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
