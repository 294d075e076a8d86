package edi

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Additional-Code/edisync/internal/edi"
	"github.com/Additional-Code/edisync/internal/entity"
)

// Entry is one write to the transaction log.
type Entry struct {
	DocumentType edi.DocumentType
	Direction    edi.Direction
	PartnerID    string
	ReferenceID  string
	Status       string
	OrderID      *int64
	ErrorMessage string
	RawData      string
}

// TransactionLog records every document exchange, upserting on
// (document type, direction, partner, reference id). Write failures are
// logged and swallowed.
type TransactionLog struct {
	store     TransactionStore
	logger    *zap.Logger
	synthetic bool
}

// NewTransactionLog builds a log over store. With synthetic set, documents
// without a reference id get a unique one instead of the shared sentinel.
func NewTransactionLog(store TransactionStore, logger *zap.Logger, synthetic bool) *TransactionLog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransactionLog{store: store, logger: logger, synthetic: synthetic}
}

// ResolveReference returns the key used for a document's reference id.
// Resolve once per document and reuse the result for all of its writes.
func (l *TransactionLog) ResolveReference(referenceID string) string {
	if ref := strings.TrimSpace(referenceID); ref != "" {
		return ref
	}
	if l.synthetic {
		return edi.UnknownReference + "-" + uuid.NewString()
	}
	return edi.UnknownReference
}

// Log upserts e. It never fails the caller.
func (l *TransactionLog) Log(ctx context.Context, e Entry) {
	if l.store == nil {
		return
	}

	reference := e.ReferenceID
	if strings.TrimSpace(reference) == "" {
		reference = l.ResolveReference(reference)
	}

	txn := &entity.EdiTransaction{
		DocumentType: e.DocumentType.String(),
		Direction:    string(e.Direction),
		PartnerID:    e.PartnerID,
		ReferenceID:  reference,
		Status:       e.Status,
		OrderID:      e.OrderID,
	}
	if e.ErrorMessage != "" {
		msg := e.ErrorMessage
		txn.ErrorMessage = &msg
	}
	if e.RawData != "" {
		raw := e.RawData
		txn.RawData = &raw
	}

	if err := l.store.Upsert(ctx, txn); err != nil {
		l.logger.Error("failed to log edi transaction",
			zap.String("document_type", txn.DocumentType),
			zap.String("direction", txn.Direction),
			zap.String("partner_id", txn.PartnerID),
			zap.String("reference_id", txn.ReferenceID),
			zap.String("status", txn.Status),
			zap.Error(err),
		)
	}
}
