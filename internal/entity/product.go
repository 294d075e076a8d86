package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Product is a sellable item; several rows may share a SKU across variants.
type Product struct {
	bun.BaseModel `bun:"table:products"`

	ID                  int64           `bun:",pk,autoincrement"`
	SKU                 string          `bun:"sku,notnull"`
	Name                string          `bun:"name"`
	Price               decimal.Decimal `bun:"price,type:numeric(14,2)"`
	CountInStock        int             `bun:"count_in_stock,notnull,default:0"`
	LastInventoryUpdate *time.Time      `bun:"last_inventory_update"`
	CreatedAt           time.Time       `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt           time.Time       `bun:"updated_at,nullzero"`
}
