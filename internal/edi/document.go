package edi

import (
	"errors"
	"fmt"
	"strings"
)

// DocumentType is the X12 transaction set code of an EDI document.
type DocumentType string

const (
	InventoryAdvice   DocumentType = "846"
	PurchaseOrder     DocumentType = "850"
	OrderConfirmation DocumentType = "855"
	ShippingNotice    DocumentType = "856"
	Invoice           DocumentType = "810"
	PaymentAdvice     DocumentType = "820"
)

// Direction records which side originated a document.
type Direction string

const (
	Inbound  Direction = "inbound"
	Outbound Direction = "outbound"
)

// Transaction log statuses written by this service. Providers may report
// other values, which are stored verbatim.
const (
	StatusSent      = "sent"
	StatusReceived  = "received"
	StatusProcessed = "processed"
	StatusFailed    = "failed"
	StatusError     = "error"
)

// UnknownReference is the key used when a document carries no reference id.
const UnknownReference = "unknown"

// ErrOrderNotFound is returned when an inbound document names a PO number
// that matches no local order.
var ErrOrderNotFound = errors.New("edi: order not found for po number")

var documentNames = map[DocumentType]string{
	InventoryAdvice:   "inventory_update",
	PurchaseOrder:     "purchase_order",
	OrderConfirmation: "order_confirmation",
	ShippingNotice:    "shipping_notice",
	Invoice:           "invoice",
	PaymentAdvice:     "payment_advice",
}

// InboundPriority is the order in which a sync cycle polls the provider.
var InboundPriority = []DocumentType{
	InventoryAdvice,
	OrderConfirmation,
	ShippingNotice,
	Invoice,
}

// Name returns the human readable name of the document type.
func (d DocumentType) Name() string {
	if name, ok := documentNames[d]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether d is one of the supported codes.
func (d DocumentType) Valid() bool {
	_, ok := documentNames[d]
	return ok
}

// Inbound reports whether documents of this type are polled from the provider.
func (d DocumentType) Inbound() bool {
	for _, code := range InboundPriority {
		if code == d {
			return true
		}
	}
	return false
}

func (d DocumentType) String() string { return string(d) }

// ParseDocumentType accepts either the numeric code or the document name.
func ParseDocumentType(raw string) (DocumentType, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if code := DocumentType(value); code.Valid() {
		return code, nil
	}
	for code, name := range documentNames {
		if name == value {
			return code, nil
		}
	}
	return "", fmt.Errorf("unsupported edi document type %q", raw)
}
