package edi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Additional-Code/edisync/internal/edi"
	"github.com/Additional-Code/edisync/internal/provider"
)

// ErrUnsupportedDocument is returned for codes that cannot be polled.
var ErrUnsupportedDocument = errors.New("edi: document type is not polled")

// inbound describes one received document for the shared processing steps.
type inbound struct {
	code        edi.DocumentType
	partnerID   string
	referenceID string
	poNumber    string
	doc         any
}

// applyFunc performs the domain mutation for a document and returns the
// order it touched, if any.
type applyFunc func(ctx context.Context, reference string) (*int64, error)

// processInbound logs receipt, validates, applies the mutation and, only on
// success, acknowledges the document and logs it as processed. A failure is
// logged with status "error" and the document is left unacknowledged so the
// provider redelivers it.
func (s *Service) processInbound(ctx context.Context, in inbound, apply applyFunc) error {
	ctx, span := serviceTracer.Start(ctx, "EDIService.processInbound", trace.WithAttributes(
		attribute.String("edi.document_type", in.code.String()),
		attribute.String("edi.partner_id", in.partnerID),
		attribute.String("edi.reference_id", in.referenceID),
	))
	defer span.End()

	reference := s.txlog.ResolveReference(in.referenceID)
	s.txlog.Log(ctx, Entry{
		DocumentType: in.code,
		Direction:    edi.Inbound,
		PartnerID:    in.partnerID,
		ReferenceID:  reference,
		Status:       edi.StatusReceived,
		RawData:      encodeRaw(in.doc),
	})

	orderID, err := s.validateAndApply(ctx, in, reference, apply)
	if err != nil {
		s.logger.Error("edi document processing failed",
			zap.String("document_type", in.code.String()),
			zap.String("partner_id", in.partnerID),
			zap.String("reference_id", reference),
			zap.String("po_number", in.poNumber),
			zap.Error(err),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, "processing failed")
		s.fail(ctx, in, reference, orderID, err)
		return err
	}

	ackReference := in.referenceID
	if ackReference == "" {
		ackReference = edi.UnknownReference
	}
	if err := s.provider.AcknowledgeInboundDocument(ctx, in.code, ackReference, edi.StatusProcessed); err != nil {
		err = fmt.Errorf("acknowledge: %w", err)
		s.logger.Error("edi acknowledgement failed",
			zap.String("document_type", in.code.String()),
			zap.String("reference_id", reference),
			zap.Error(err),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, "acknowledge failed")
		s.fail(ctx, in, reference, orderID, err)
		return err
	}

	s.txlog.Log(ctx, Entry{
		DocumentType: in.code,
		Direction:    edi.Inbound,
		PartnerID:    in.partnerID,
		ReferenceID:  reference,
		Status:       edi.StatusProcessed,
		OrderID:      orderID,
	})
	s.countDocument(ctx, in.code, edi.StatusProcessed)
	s.publishDocumentEvent(ctx, EventDocumentProcessed, DocumentEvent{
		DocumentType: in.code,
		Direction:    edi.Inbound,
		PartnerID:    in.partnerID,
		ReferenceID:  reference,
		Status:       edi.StatusProcessed,
		OrderID:      orderID,
	})
	return nil
}

func (s *Service) validateAndApply(ctx context.Context, in inbound, reference string, apply applyFunc) (orderID *int64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing %s document: %v", in.code, r)
		}
	}()
	if err := s.validate.Struct(in.doc); err != nil {
		return nil, fmt.Errorf("invalid %s document: %w", in.code.Name(), err)
	}
	return apply(ctx, reference)
}

func (s *Service) fail(ctx context.Context, in inbound, reference string, orderID *int64, err error) {
	s.txlog.Log(ctx, Entry{
		DocumentType: in.code,
		Direction:    edi.Inbound,
		PartnerID:    in.partnerID,
		ReferenceID:  reference,
		Status:       edi.StatusError,
		OrderID:      orderID,
		ErrorMessage: err.Error(),
	})
	s.countDocument(ctx, in.code, edi.StatusError)
	s.publishDocumentEvent(ctx, EventDocumentFailed, DocumentEvent{
		DocumentType: in.code,
		Direction:    edi.Inbound,
		PartnerID:    in.partnerID,
		ReferenceID:  reference,
		Status:       edi.StatusError,
		OrderID:      orderID,
		Error:        err.Error(),
	})
}

// envelope holds the fields common to every inbound document, used when a
// document cannot be decoded into its full shape.
type envelope struct {
	ReferenceID string `json:"referenceId"`
	PartnerID   string `json:"partnerId"`
}

// rejectUndecodable records a document whose payload does not decode.
func (s *Service) rejectUndecodable(ctx context.Context, code edi.DocumentType, raw json.RawMessage, decodeErr error) error {
	var env envelope
	_ = json.Unmarshal(raw, &env)
	reference := s.txlog.ResolveReference(env.ReferenceID)
	err := fmt.Errorf("decode %s document: %w", code.Name(), decodeErr)

	s.logger.Error("edi document could not be decoded",
		zap.String("document_type", code.String()),
		zap.String("reference_id", reference),
		zap.Error(err),
	)
	s.txlog.Log(ctx, Entry{
		DocumentType: code,
		Direction:    edi.Inbound,
		PartnerID:    env.PartnerID,
		ReferenceID:  reference,
		Status:       edi.StatusError,
		ErrorMessage: err.Error(),
		RawData:      string(raw),
	})
	s.countDocument(ctx, code, edi.StatusError)
	return err
}

// pollBatch fetches the pending documents of one type and processes them one
// at a time in order. A failing document never stops the rest of the batch.
func (s *Service) pollBatch(ctx context.Context, code edi.DocumentType, handle func(context.Context, json.RawMessage) error) BatchResult {
	ctx, span := serviceTracer.Start(ctx, "EDIService.pollBatch", trace.WithAttributes(
		attribute.String("edi.document_type", code.String()),
	))
	defer span.End()

	result := BatchResult{DocumentType: code}

	items, err := s.provider.GetInboundDocuments(ctx, code)
	if err != nil {
		result.Error = provider.Normalize(err)
		s.logger.Error("failed to fetch inbound edi documents",
			zap.String("document_type", code.String()),
			zap.Error(err),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return result
	}

	result.Success = true
	result.Count = len(items)
	for _, raw := range items {
		if err := s.handleSafely(ctx, code, raw, handle); err != nil {
			result.Failed++
			continue
		}
		result.Processed++
	}

	span.SetAttributes(
		attribute.Int("edi.count", result.Count),
		attribute.Int("edi.failed", result.Failed),
	)
	s.logger.Info("inbound edi batch processed",
		zap.String("document_type", code.String()),
		zap.Int("count", result.Count),
		zap.Int("processed", result.Processed),
		zap.Int("failed", result.Failed),
	)
	return result
}

func (s *Service) handleSafely(ctx context.Context, code edi.DocumentType, raw json.RawMessage, handle func(context.Context, json.RawMessage) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while handling %s document: %v", code, r)
			s.logger.Error("edi document handler panicked", zap.String("document_type", code.String()), zap.Any("panic", r))
		}
	}()
	return handle(ctx, raw)
}

// PollDocumentType runs the batch for a single inbound document type.
func (s *Service) PollDocumentType(ctx context.Context, code edi.DocumentType) (BatchResult, error) {
	switch code {
	case edi.InventoryAdvice:
		return s.GetInventoryUpdates(ctx), nil
	case edi.OrderConfirmation:
		return s.GetOrderConfirmations(ctx), nil
	case edi.ShippingNotice:
		return s.GetShippingNotices(ctx), nil
	case edi.Invoice:
		return s.GetInvoices(ctx), nil
	default:
		return BatchResult{DocumentType: code}, fmt.Errorf("%w: %s", ErrUnsupportedDocument, code)
	}
}

func decodeInto[T any](s *Service, code edi.DocumentType, process func(context.Context, T) error) func(context.Context, json.RawMessage) error {
	return func(ctx context.Context, raw json.RawMessage) error {
		var doc T
		if err := json.Unmarshal(raw, &doc); err != nil {
			return s.rejectUndecodable(ctx, code, raw, err)
		}
		return process(ctx, doc)
	}
}
