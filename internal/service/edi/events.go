package edi

import (
	"context"

	"go.uber.org/zap"

	"github.com/Additional-Code/edisync/internal/edi"
	"github.com/Additional-Code/edisync/internal/messaging"
)

// Event types published after a document is handled.
const (
	EventDocumentProcessed = "edi.document.processed"
	EventDocumentFailed    = "edi.document.failed"
	EventDocumentSent      = "edi.document.sent"
)

// DocumentEvent is the payload of a document event.
type DocumentEvent struct {
	DocumentType edi.DocumentType `json:"documentType"`
	Direction    edi.Direction    `json:"direction"`
	PartnerID    string           `json:"partnerId"`
	ReferenceID  string           `json:"referenceId,omitempty"`
	Status       string           `json:"status"`
	OrderID      *int64           `json:"orderId,omitempty"`
	Error        string           `json:"error,omitempty"`
}

// publishDocumentEvent emits an event. Publish failures are logged only.
func (s *Service) publishDocumentEvent(ctx context.Context, eventType string, event DocumentEvent) {
	if s.publisher == nil {
		return
	}

	msg, err := messaging.NewMessage(eventType, event.DocumentType.String()+":"+event.ReferenceID, event)
	if err != nil {
		s.logger.Warn("failed to encode edi document event", zap.Error(err))
		return
	}
	msg.Time = s.now()
	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.logger.Warn("failed to publish edi document event",
			zap.String("event_type", eventType),
			zap.String("reference_id", event.ReferenceID),
			zap.Error(err),
		)
	}
}
