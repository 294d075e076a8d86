package product

import (
	"context"
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

var repoTracer = otel.Tracer("github.com/Additional-Code/edisync/repository/product")

// Repository encapsulates stock access for products.
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

// Create persists a new product.
func (r *Repository) Create(ctx context.Context, product *entity.Product) error {
	if product == nil {
		return errors.New("nil product")
	}
	ctx, span := repoTracer.Start(ctx, "ProductRepository.Create", trace.WithAttributes(attribute.String("product.sku", product.SKU)))
	defer span.End()

	_, err := r.writer.NewInsert().Model(product).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// UpdateStockBySKU sets the stock count of every product sharing sku and
// reports how many rows matched.
func (r *Repository) UpdateStockBySKU(ctx context.Context, sku string, count int, at time.Time) (int64, error) {
	ctx, span := repoTracer.Start(ctx, "ProductRepository.UpdateStockBySKU", trace.WithAttributes(
		attribute.String("product.sku", sku),
		attribute.Int("product.count_in_stock", count),
	))
	defer span.End()

	res, err := r.writer.NewUpdate().
		Model((*entity.Product)(nil)).
		Set("count_in_stock = ?", count).
		Set("last_inventory_update = ?", at).
		Set("updated_at = ?", at).
		Where("sku = ?", sku).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", n))
	return n, nil
}

// ListBySKU returns every product with the given SKU.
func (r *Repository) ListBySKU(ctx context.Context, sku string) ([]entity.Product, error) {
	ctx, span := repoTracer.Start(ctx, "ProductRepository.ListBySKU", trace.WithAttributes(attribute.String("product.sku", sku)))
	defer span.End()

	var products []entity.Product
	if err := r.reader.NewSelect().Model(&products).Where("sku = ?", sku).Order("id ASC").Scan(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return products, nil
}
