package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// EdiTransaction is the audit record of one document exchange. The tuple
// (DocumentType, Direction, PartnerID, ReferenceID) is unique.
type EdiTransaction struct {
	bun.BaseModel `bun:"table:edi_transactions"`

	ID           int64     `bun:",pk,autoincrement"`
	DocumentType string    `bun:"document_type,notnull,unique:edi_transactions_key"`
	Direction    string    `bun:"direction,notnull,unique:edi_transactions_key"`
	PartnerID    string    `bun:"partner_id,notnull,unique:edi_transactions_key"`
	ReferenceID  string    `bun:"reference_id,notnull,unique:edi_transactions_key"`
	Status       string    `bun:"status,notnull"`
	OrderID      *int64    `bun:"order_id"`
	ErrorMessage *string   `bun:"error_message"`
	RawData      *string   `bun:"raw_data"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero"`
}

// Models lists every table owned or touched by this service, in creation order.
func Models() []any {
	return []any{
		(*Order)(nil),
		(*Product)(nil),
		(*Invoice)(nil),
		(*EdiTransaction)(nil),
	}
}
