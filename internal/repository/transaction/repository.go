package transaction

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/edisync/internal/database"
	"github.com/Additional-Code/edisync/internal/entity"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/edisync/repository/transaction")

// ErrNotFound is returned when no transaction matches a key.
var ErrNotFound = errors.New("edi transaction not found")

const defaultListLimit = 50

// Key identifies a single document exchange.
type Key struct {
	DocumentType string
	Direction    string
	PartnerID    string
	ReferenceID  string
}

// Filter narrows List results; empty fields match everything.
type Filter struct {
	DocumentType string
	Direction    string
	PartnerID    string
	Status       string
	Limit        int
}

// Repository persists the EDI audit trail.
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

// Upsert inserts txn or, when its key already exists, updates the row in place
// with the latest status and error. OrderID and RawData only overwrite stored
// values when set.
func (r *Repository) Upsert(ctx context.Context, txn *entity.EdiTransaction) error {
	if txn == nil {
		return errors.New("nil edi transaction")
	}
	ctx, span := repoTracer.Start(ctx, "EdiTransactionRepository.Upsert", trace.WithAttributes(
		attribute.String("edi.document_type", txn.DocumentType),
		attribute.String("edi.direction", txn.Direction),
		attribute.String("edi.partner_id", txn.PartnerID),
		attribute.String("edi.reference_id", txn.ReferenceID),
		attribute.String("edi.status", txn.Status),
	))
	defer span.End()

	now := time.Now().UTC()
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = now
	}
	txn.UpdatedAt = now

	excluded := "EXCLUDED."
	q := r.writer.NewInsert().Model(txn)
	if r.writer.Dialect().Name() == dialect.MySQL {
		q = q.On("DUPLICATE KEY UPDATE")
		excluded = ""
	} else {
		q = q.On("CONFLICT (document_type, direction, partner_id, reference_id) DO UPDATE")
	}
	q = q.Set(assign("status", excluded)).
		Set(assign("error_message", excluded)).
		Set(assign("updated_at", excluded))
	if txn.OrderID != nil {
		q = q.Set(assign("order_id", excluded))
	}
	if txn.RawData != nil {
		q = q.Set(assign("raw_data", excluded))
	}

	if _, err := q.Exec(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upsert failed")
		return err
	}
	return nil
}

func assign(column, excluded string) string {
	if excluded == "" {
		return column + " = VALUES(" + column + ")"
	}
	return column + " = " + excluded + column
}

// Get returns the transaction stored under key.
func (r *Repository) Get(ctx context.Context, key Key) (*entity.EdiTransaction, error) {
	ctx, span := repoTracer.Start(ctx, "EdiTransactionRepository.Get", trace.WithAttributes(
		attribute.String("edi.document_type", key.DocumentType),
		attribute.String("edi.reference_id", key.ReferenceID),
	))
	defer span.End()

	txn := new(entity.EdiTransaction)
	err := r.reader.NewSelect().Model(txn).
		Where("document_type = ?", key.DocumentType).
		Where("direction = ?", key.Direction).
		Where("partner_id = ?", key.PartnerID).
		Where("reference_id = ?", key.ReferenceID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return txn, nil
}

// List returns the most recently updated transactions matching filter.
func (r *Repository) List(ctx context.Context, filter Filter) ([]entity.EdiTransaction, error) {
	ctx, span := repoTracer.Start(ctx, "EdiTransactionRepository.List")
	defer span.End()

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	var txns []entity.EdiTransaction
	q := r.reader.NewSelect().Model(&txns)
	if filter.DocumentType != "" {
		q = q.Where("document_type = ?", filter.DocumentType)
	}
	if filter.Direction != "" {
		q = q.Where("direction = ?", filter.Direction)
	}
	if filter.PartnerID != "" {
		q = q.Where("partner_id = ?", filter.PartnerID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if err := q.Order("updated_at DESC", "id DESC").Limit(limit).Scan(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return txns, nil
}
