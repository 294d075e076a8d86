package order

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/edisync/internal/database"
	"github.com/Additional-Code/edisync/internal/entity"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/edisync/repository/order")

// ErrNotFound is returned when an order is missing.
var ErrNotFound = errors.New("order not found")

// Repository encapsulates read/write access for orders.
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

// Create persists a new order using the write connection.
func (r *Repository) Create(ctx context.Context, order *entity.Order) error {
	if order == nil {
		return errors.New("nil order")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Create", trace.WithAttributes(attribute.String("order.number", order.Number)))
	defer span.End()

	_, err := r.writer.NewInsert().Model(order).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// GetByID fetches an order by primary key using the read replica when available.
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByID", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	return r.scanOne(ctx, span, r.reader.NewSelect().Where("id = ?", id))
}

// GetByNumber fetches an order by its order number, which EDI documents
// carry as the PO number. Reads go to the writer so a document processed
// right after an order update never sees a stale replica.
func (r *Repository) GetByNumber(ctx context.Context, number string) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByNumber", trace.WithAttributes(attribute.String("order.number", number)))
	defer span.End()

	return r.scanOne(ctx, span, r.writer.NewSelect().Where("number = ?", number))
}

// Update writes the given columns of order; updated_at is always refreshed.
func (r *Repository) Update(ctx context.Context, order *entity.Order, columns ...string) error {
	if order == nil {
		return errors.New("nil order")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Update", trace.WithAttributes(
		attribute.Int64("order.id", order.ID),
		attribute.StringSlice("order.columns", columns),
	))
	defer span.End()

	order.UpdatedAt = time.Now().UTC()
	q := r.writer.NewUpdate().Model(order).WherePK()
	if len(columns) > 0 {
		q = q.Column(append(columns, "updated_at")...)
	}
	res, err := q.Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		span.SetStatus(codes.Error, "not found")
		return ErrNotFound
	}
	return nil
}

func (r *Repository) scanOne(ctx context.Context, span trace.Span, q *bun.SelectQuery) (*entity.Order, error) {
	order := new(entity.Order)
	err := q.Model(order).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return order, nil
}
