package dto

import (
	"time"

	"github.com/Additional-Code/edisync/internal/entity"
)

// TransactionResponse represents an EDI audit row as exposed via transport layers.
type TransactionResponse struct {
	ID           int64     `json:"id"`
	DocumentType string    `json:"document_type"`
	Direction    string    `json:"direction"`
	PartnerID    string    `json:"partner_id"`
	ReferenceID  string    `json:"reference_id"`
	Status       string    `json:"status"`
	OrderID      *int64    `json:"order_id,omitempty"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewTransactionResponse maps an entity to its transport shape. Raw payloads
// are not exposed.
func NewTransactionResponse(txn entity.EdiTransaction) TransactionResponse {
	return TransactionResponse{
		ID:           txn.ID,
		DocumentType: txn.DocumentType,
		Direction:    txn.Direction,
		PartnerID:    txn.PartnerID,
		ReferenceID:  txn.ReferenceID,
		Status:       txn.Status,
		OrderID:      txn.OrderID,
		ErrorMessage: txn.ErrorMessage,
		CreatedAt:    txn.CreatedAt,
		UpdatedAt:    txn.UpdatedAt,
	}
}

// WebhookNotification is the provider's push that documents are waiting.
type WebhookNotification struct {
	DocumentType string `json:"documentType"`
	ReferenceID  string `json:"referenceId,omitempty"`
}
