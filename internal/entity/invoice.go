package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Invoice is a supplier invoice received over EDI.
type Invoice struct {
	bun.BaseModel `bun:"table:invoices"`

	ID                 int64           `bun:",pk,autoincrement"`
	InvoiceNumber      string          `bun:"invoice_number,notnull"`
	OrderID            int64           `bun:"order_id,notnull"`
	Amount             decimal.Decimal `bun:"amount,type:numeric(14,2)"`
	Currency           string          `bun:"currency,notnull"`
	DueDate            *time.Time      `bun:"due_date"`
	IssuedDate         *time.Time      `bun:"issued_date"`
	Status             string          `bun:"status,notnull"`
	EDIReferenceNumber string          `bun:"edi_reference_number,nullzero,unique"`
	CreatedAt          time.Time       `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt          time.Time       `bun:"updated_at,nullzero"`
}
