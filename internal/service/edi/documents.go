package edi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Additional-Code/edisync/internal/edi"
	"github.com/Additional-Code/edisync/internal/entity"
	invoicerepo "github.com/Additional-Code/edisync/internal/repository/invoice"
)

// GetInventoryUpdates polls and applies pending 846 documents.
func (s *Service) GetInventoryUpdates(ctx context.Context) BatchResult {
	return s.pollBatch(ctx, edi.InventoryAdvice, decodeInto(s, edi.InventoryAdvice, s.ProcessInventoryUpdate))
}

// GetOrderConfirmations polls and applies pending 855 documents.
func (s *Service) GetOrderConfirmations(ctx context.Context) BatchResult {
	return s.pollBatch(ctx, edi.OrderConfirmation, decodeInto(s, edi.OrderConfirmation, s.ProcessOrderConfirmation))
}

// GetShippingNotices polls and applies pending 856 documents.
func (s *Service) GetShippingNotices(ctx context.Context) BatchResult {
	return s.pollBatch(ctx, edi.ShippingNotice, decodeInto(s, edi.ShippingNotice, s.ProcessShippingNotice))
}

// GetInvoices polls and applies pending 810 documents.
func (s *Service) GetInvoices(ctx context.Context) BatchResult {
	return s.pollBatch(ctx, edi.Invoice, decodeInto(s, edi.Invoice, s.ProcessInvoice))
}

// ProcessInventoryUpdate sets the stock count of every product matching each
// line's SKU.
func (s *Service) ProcessInventoryUpdate(ctx context.Context, doc edi.InventoryUpdate) error {
	in := inbound{code: edi.InventoryAdvice, partnerID: doc.PartnerID, referenceID: doc.ReferenceID, doc: doc}
	return s.processInbound(ctx, in, func(ctx context.Context, _ string) (*int64, error) {
		at := s.now()
		for _, item := range doc.Items {
			matched, err := s.products.UpdateStockBySKU(ctx, item.SKU, item.QuantityAvailable, at)
			if err != nil {
				return nil, fmt.Errorf("update stock for sku %s: %w", item.SKU, err)
			}
			if matched == 0 {
				s.logger.Warn("inventory update for unknown sku",
					zap.String("sku", item.SKU),
					zap.String("partner_id", doc.PartnerID),
				)
			}
		}
		return nil, nil
	})
}

// ProcessOrderConfirmation applies a supplier's acceptance or rejection to
// the order named by the PO number.
func (s *Service) ProcessOrderConfirmation(ctx context.Context, doc edi.OrderConfirmationDocument) error {
	in := inbound{code: edi.OrderConfirmation, partnerID: doc.PartnerID, referenceID: doc.ReferenceID, poNumber: doc.PONumber, doc: doc}
	return s.processInbound(ctx, in, func(ctx context.Context, reference string) (*int64, error) {
		order, err := s.resolveOrder(ctx, doc.PONumber)
		if err != nil {
			return nil, err
		}
		at := s.now()
		order.Status = edi.ConfirmationOrderStatus(doc.Status)
		order.EDI.OrderConfirmationReceived = true
		order.EDI.OrderConfirmationReceivedAt = &at
		order.EDI.OrderConfirmationReference = reference
		if err := s.orders.Update(ctx, order, "status", "edi"); err != nil {
			return &order.ID, fmt.Errorf("update order %s: %w", order.Number, err)
		}
		return &order.ID, nil
	})
}

// ProcessShippingNotice marks the order named by the PO number as shipped.
func (s *Service) ProcessShippingNotice(ctx context.Context, doc edi.ShippingNoticeDocument) error {
	in := inbound{code: edi.ShippingNotice, partnerID: doc.PartnerID, referenceID: doc.ReferenceID, poNumber: doc.PONumber, doc: doc}
	return s.processInbound(ctx, in, func(ctx context.Context, reference string) (*int64, error) {
		shippedAt, err := edi.ParseDate(doc.ShipDate)
		if err != nil {
			return nil, fmt.Errorf("ship date: %w", err)
		}
		order, err := s.resolveOrder(ctx, doc.PONumber)
		if err != nil {
			return nil, err
		}
		at := s.now()
		order.Status = "shipped"
		order.ShippedAt = &shippedAt
		order.TrackingNumber = doc.TrackingNumber
		order.ShippingCarrier = doc.Carrier
		order.EDI.ShippingNoticeReceived = true
		order.EDI.ShippingNoticeReceivedAt = &at
		order.EDI.ShippingNoticeReference = reference
		if err := s.orders.Update(ctx, order, "status", "shipped_at", "tracking_number", "shipping_carrier", "edi"); err != nil {
			return &order.ID, fmt.Errorf("update order %s: %w", order.Number, err)
		}
		return &order.ID, nil
	})
}

// ProcessInvoice records a supplier invoice against the order named by the
// PO number. An invoice already created for the same reference is reused.
func (s *Service) ProcessInvoice(ctx context.Context, doc edi.InvoiceDocument) error {
	in := inbound{code: edi.Invoice, partnerID: doc.PartnerID, referenceID: doc.ReferenceID, poNumber: doc.PONumber, doc: doc}
	return s.processInbound(ctx, in, func(ctx context.Context, reference string) (*int64, error) {
		dueDate, err := edi.ParseOptionalDate(doc.DueDate)
		if err != nil {
			return nil, fmt.Errorf("due date: %w", err)
		}
		issued, err := edi.ParseOptionalDate(doc.InvoiceDate)
		if err != nil {
			return nil, fmt.Errorf("invoice date: %w", err)
		}
		order, err := s.resolveOrder(ctx, doc.PONumber)
		if err != nil {
			return nil, err
		}

		if err := s.createInvoice(ctx, order, doc, dueDate, issued); err != nil {
			return &order.ID, err
		}

		at := s.now()
		order.EDI.InvoiceReceived = true
		order.EDI.InvoiceReceivedAt = &at
		order.EDI.InvoiceReference = reference
		if err := s.orders.Update(ctx, order, "edi"); err != nil {
			return &order.ID, fmt.Errorf("update order %s: %w", order.Number, err)
		}
		return &order.ID, nil
	})
}

func (s *Service) createInvoice(ctx context.Context, order *entity.Order, doc edi.InvoiceDocument, dueDate, issued *time.Time) error {
	reference := strings.TrimSpace(doc.ReferenceID)
	if reference != "" {
		existing, err := s.invoices.GetByEDIReference(ctx, reference)
		switch {
		case err == nil:
			s.logger.Info("invoice already recorded for edi reference",
				zap.String("reference_id", reference),
				zap.Int64("invoice_id", existing.ID),
			)
			return nil
		case !errors.Is(err, invoicerepo.ErrNotFound):
			return fmt.Errorf("lookup invoice %s: %w", reference, err)
		}
	}

	if issued == nil {
		now := s.now()
		issued = &now
	}
	currency := strings.ToUpper(strings.TrimSpace(doc.Currency))
	if currency == "" {
		currency = s.currency
	}

	invoice := &entity.Invoice{
		InvoiceNumber:      doc.InvoiceNumber,
		OrderID:            order.ID,
		Amount:             doc.Amount,
		Currency:           currency,
		DueDate:            dueDate,
		IssuedDate:         issued,
		Status:             edi.StatusReceived,
		EDIReferenceNumber: reference,
	}
	err := s.invoices.Create(ctx, invoice)
	if errors.Is(err, invoicerepo.ErrDuplicateReference) {
		s.logger.Info("invoice recorded concurrently for edi reference", zap.String("reference_id", reference))
		return nil
	}
	if err != nil {
		return fmt.Errorf("create invoice %s: %w", doc.InvoiceNumber, err)
	}
	return nil
}
