package edi

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Additional-Code/edisync/internal/edi"
)

type purchaseOrderLine struct {
	LineNumber  int             `json:"lineNumber"`
	SKU         string          `json:"sku"`
	UPC         string          `json:"upc,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	UOM         string          `json:"uom"`
	Description string          `json:"description,omitempty"`
}

type purchaseOrderPayload struct {
	PONumber    string              `json:"poNumber"`
	PODate      string              `json:"poDate"`
	Currency    string              `json:"currency"`
	LineItems   []purchaseOrderLine `json:"lineItems"`
	ShipTo      edi.Address         `json:"shipTo"`
	BillTo      edi.Address         `json:"billTo"`
	TotalAmount decimal.Decimal     `json:"totalAmount"`
}

type paymentAdvicePayload struct {
	PaymentID     string          `json:"paymentId"`
	PONumber      string          `json:"poNumber"`
	InvoiceNumber string          `json:"invoiceNumber,omitempty"`
	PaymentDate   string          `json:"paymentDate"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	PaymentMethod string          `json:"paymentMethod"`
}

// SendPurchaseOrder submits an 850 for data. Failures are returned in the
// result, never as an error.
func (s *Service) SendPurchaseOrder(ctx context.Context, data edi.PurchaseOrderData) SendResult {
	if err := s.validate.Struct(data); err != nil {
		return s.rejectOutbound(ctx, edi.PurchaseOrder, data.PartnerID, data.OrderNumber, data.OrderID, fmt.Errorf("invalid purchase order: %w", err))
	}
	return s.sendOutbound(ctx, edi.PurchaseOrder, data.PartnerID, data.OrderID, s.purchaseOrderPayload(data))
}

// SendPaymentAdvice submits an 820 for data. Failures are returned in the
// result, never as an error.
func (s *Service) SendPaymentAdvice(ctx context.Context, data edi.PaymentAdviceData) SendResult {
	if err := s.validate.Struct(data); err != nil {
		return s.rejectOutbound(ctx, edi.PaymentAdvice, data.PartnerID, data.PaymentID, data.OrderID, fmt.Errorf("invalid payment advice: %w", err))
	}
	return s.sendOutbound(ctx, edi.PaymentAdvice, data.PartnerID, data.OrderID, s.paymentAdvicePayload(data))
}

func (s *Service) purchaseOrderPayload(data edi.PurchaseOrderData) purchaseOrderPayload {
	created := data.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	payload := purchaseOrderPayload{
		PONumber:  data.OrderNumber,
		PODate:    created.UTC().Format(time.RFC3339),
		Currency:  s.currencyOr(data.Currency),
		LineItems: make([]purchaseOrderLine, 0, len(data.Items)),
		ShipTo:    data.ShippingAddress,
		BillTo:    data.BillingAddress,
	}
	total := decimal.Zero
	for i, item := range data.Items {
		payload.LineItems = append(payload.LineItems, purchaseOrderLine{
			LineNumber:  i + 1,
			SKU:         item.SKU,
			UPC:         item.UPC,
			Quantity:    item.Quantity,
			UnitPrice:   item.Price,
			UOM:         "EA",
			Description: item.Name,
		})
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	payload.TotalAmount = total
	return payload
}

func (s *Service) paymentAdvicePayload(data edi.PaymentAdviceData) paymentAdvicePayload {
	paid := data.PaymentDate
	if paid.IsZero() {
		paid = s.now()
	}
	method := data.PaymentMethod
	if method == "" {
		method = "ACH"
	}
	return paymentAdvicePayload{
		PaymentID:     data.PaymentID,
		PONumber:      data.PONumber,
		InvoiceNumber: data.InvoiceNumber,
		PaymentDate:   paid.UTC().Format("2006-01-02"),
		Amount:        data.Amount,
		Currency:      s.currencyOr(data.Currency),
		PaymentMethod: method,
	}
}

func (s *Service) currencyOr(currency string) string {
	if c := strings.ToUpper(strings.TrimSpace(currency)); c != "" {
		return c
	}
	return s.currency
}

func (s *Service) sendOutbound(ctx context.Context, code edi.DocumentType, partnerID string, orderID int64, payload any) SendResult {
	ctx, span := serviceTracer.Start(ctx, "EDIService.sendOutbound", trace.WithAttributes(
		attribute.String("edi.document_type", code.String()),
		attribute.String("edi.partner_id", partnerID),
	))
	defer span.End()

	order := optionalID(orderID)
	sub, err := s.provider.PostOutboundDocument(ctx, code, partnerID, payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submit failed")
		s.logger.Error("failed to send edi document",
			zap.String("document_type", code.String()),
			zap.String("partner_id", partnerID),
			zap.Error(err),
		)
		s.txlog.Log(ctx, Entry{
			DocumentType: code,
			Direction:    edi.Outbound,
			PartnerID:    partnerID,
			ReferenceID:  s.txlog.ResolveReference(""),
			Status:       edi.StatusFailed,
			OrderID:      order,
			ErrorMessage: err.Error(),
			RawData:      encodeRaw(payload),
		})
		s.countDocument(ctx, code, edi.StatusFailed)
		s.publishDocumentEvent(ctx, EventDocumentFailed, DocumentEvent{
			DocumentType: code,
			Direction:    edi.Outbound,
			PartnerID:    partnerID,
			Status:       edi.StatusFailed,
			OrderID:      order,
			Error:        err.Error(),
		})
		return sendFailure(err)
	}

	status := sub.Status
	if status == "" {
		status = edi.StatusSent
	}
	reference := s.txlog.ResolveReference(sub.ReferenceID)
	s.txlog.Log(ctx, Entry{
		DocumentType: code,
		Direction:    edi.Outbound,
		PartnerID:    partnerID,
		ReferenceID:  reference,
		Status:       status,
		OrderID:      order,
		RawData:      encodeRaw(payload),
	})
	s.countDocument(ctx, code, edi.StatusSent)
	s.publishDocumentEvent(ctx, EventDocumentSent, DocumentEvent{
		DocumentType: code,
		Direction:    edi.Outbound,
		PartnerID:    partnerID,
		ReferenceID:  reference,
		Status:       status,
		OrderID:      order,
	})
	s.logger.Info("edi document sent",
		zap.String("document_type", code.String()),
		zap.String("partner_id", partnerID),
		zap.String("reference_id", reference),
		zap.String("status", status),
	)
	return SendResult{Success: true, ReferenceID: sub.ReferenceID, Status: status}
}

func (s *Service) rejectOutbound(ctx context.Context, code edi.DocumentType, partnerID, localRef string, orderID int64, err error) SendResult {
	s.logger.Warn("edi document rejected before submission",
		zap.String("document_type", code.String()),
		zap.String("partner_id", partnerID),
		zap.String("local_reference", localRef),
		zap.Error(err),
	)
	s.txlog.Log(ctx, Entry{
		DocumentType: code,
		Direction:    edi.Outbound,
		PartnerID:    partnerID,
		ReferenceID:  s.txlog.ResolveReference(""),
		Status:       edi.StatusFailed,
		OrderID:      optionalID(orderID),
		ErrorMessage: err.Error(),
	})
	s.countDocument(ctx, code, edi.StatusFailed)
	result := sendFailure(err)
	result.Rejected = true
	return result
}

func optionalID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}
