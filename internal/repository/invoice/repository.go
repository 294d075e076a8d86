package invoice

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/edisync/internal/database"
	"github.com/Additional-Code/edisync/internal/entity"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/edisync/repository/invoice")

var (
	// ErrNotFound is returned when an invoice is missing.
	ErrNotFound = errors.New("invoice not found")
	// ErrDuplicateReference is returned when an invoice already exists for
	// the EDI reference being inserted.
	ErrDuplicateReference = errors.New("invoice already recorded for edi reference")
)

// Repository encapsulates read/write access for invoices.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// Create persists a new invoice. A conflicting EDI reference, as written by a
// concurrent delivery of the same document, yields ErrDuplicateReference.
func (r *Repository) Create(ctx context.Context, invoice *entity.Invoice) error {
	if invoice == nil {
		return errors.New("nil invoice")
	}
	ctx, span := repoTracer.Start(ctx, "InvoiceRepository.Create", trace.WithAttributes(
		attribute.String("invoice.number", invoice.InvoiceNumber),
		attribute.Int64("invoice.order_id", invoice.OrderID),
	))
	defer span.End()

	_, err := r.writer.NewInsert().Model(invoice).Exec(ctx)
	if err == nil {
		return nil
	}
	if invoice.EDIReferenceNumber != "" {
		// Driver errors differ per dialect; the committed row is the reliable signal.
		if _, lookupErr := r.GetByEDIReference(ctx, invoice.EDIReferenceNumber); lookupErr == nil {
			return ErrDuplicateReference
		}
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "insert failed")
	return err
}

// GetByEDIReference returns the invoice created from the given EDI document.
func (r *Repository) GetByEDIReference(ctx context.Context, reference string) (*entity.Invoice, error) {
	ctx, span := repoTracer.Start(ctx, "InvoiceRepository.GetByEDIReference", trace.WithAttributes(attribute.String("invoice.edi_reference", reference)))
	defer span.End()

	invoice := new(entity.Invoice)
	err := r.writer.NewSelect().Model(invoice).Where("edi_reference_number = ?", reference).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return invoice, nil
}

// ListByOrder returns the invoices linked to an order, oldest first.
func (r *Repository) ListByOrder(ctx context.Context, orderID int64) ([]entity.Invoice, error) {
	ctx, span := repoTracer.Start(ctx, "InvoiceRepository.ListByOrder", trace.WithAttributes(attribute.Int64("invoice.order_id", orderID)))
	defer span.End()

	var invoices []entity.Invoice
	if err := r.reader.NewSelect().Model(&invoices).Where("order_id = ?", orderID).Order("id ASC").Scan(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return invoices, nil
}
