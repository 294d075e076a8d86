package seeder

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/edisync/internal/database"
	"github.com/Additional-Code/edisync/internal/entity"
)

// Module provides the Seeder to Fx.
var Module = fx.Provide(New)

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	db     *bun.DB
	logger *zap.Logger
}

// New constructs a Seeder backed by the primary database connection.
func New(conns *database.Connections, logger *zap.Logger) *Seeder {
	return &Seeder{db: conns.Writer, logger: logger}
}

// Run seeds products and orders.
func (s *Seeder) Run(ctx context.Context) error {
	if err := s.Products(ctx); err != nil {
		return err
	}
	return s.Orders(ctx)
}

// Products seeds catalogue items that 846 documents can update.
func (s *Seeder) Products(ctx context.Context) error {
	samples := []entity.Product{
		{SKU: "SKU-TEE-BLK-M", Name: "Black tee, M", Price: decimal.RequireFromString("19.99"), CountInStock: 10},
		{SKU: "SKU-TEE-BLK-L", Name: "Black tee, L", Price: decimal.RequireFromString("19.99"), CountInStock: 8},
		{SKU: "SKU-HOODIE-GRY", Name: "Grey hoodie", Price: decimal.RequireFromString("49.00"), CountInStock: 4},
	}

	inserted := 0
	for _, sample := range samples {
		product := sample
		exists, err := s.db.NewSelect().Model((*entity.Product)(nil)).Where("sku = ?", product.SKU).Exists(ctx)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if _, err := s.db.NewInsert().Model(&product).Exec(ctx); err != nil {
			return err
		}
		inserted++
	}

	if s.logger != nil {
		s.logger.Info("seeded products", zap.Int("count", inserted))
	}
	return nil
}

// Orders seeds example orders if they are missing.
func (s *Seeder) Orders(ctx context.Context) error {
	now := time.Now().UTC()
	samples := []entity.Order{
		{Number: "PO-1000", PartnerID: "SUPPLIER-1", Status: "pending", TotalAmount: decimal.RequireFromString("199.90"), Currency: "USD", CreatedAt: now, UpdatedAt: now},
		{Number: "PO-1001", PartnerID: "SUPPLIER-1", Status: "processing", TotalAmount: decimal.RequireFromString("98.00"), Currency: "USD", CreatedAt: now, UpdatedAt: now},
	}

	inserted := 0
	for _, sample := range samples {
		order := sample
		exists, err := s.db.NewSelect().Model((*entity.Order)(nil)).Where("number = ?", order.Number).Exists(ctx)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if _, err := s.db.NewInsert().Model(&order).Exec(ctx); err != nil {
			return err
		}
		inserted++
	}

	if s.logger != nil {
		s.logger.Info("seeded orders", zap.Int("count", inserted))
	}
	return nil
}
