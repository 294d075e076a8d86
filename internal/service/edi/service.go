package edi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/edisync/internal/config"
	"github.com/Additional-Code/edisync/internal/edi"
	"github.com/Additional-Code/edisync/internal/entity"
	"github.com/Additional-Code/edisync/internal/messaging"
	"github.com/Additional-Code/edisync/internal/provider"
	invoicerepo "github.com/Additional-Code/edisync/internal/repository/invoice"
	orderrepo "github.com/Additional-Code/edisync/internal/repository/order"
	productrepo "github.com/Additional-Code/edisync/internal/repository/product"
	txrepo "github.com/Additional-Code/edisync/internal/repository/transaction"
	"github.com/Additional-Code/edisync/pkg/errorbank"
)

var (
	serviceTracer = otel.Tracer("github.com/Additional-Code/edisync/service/edi")
	serviceMeter  = otel.Meter("github.com/Additional-Code/edisync/service/edi")
)

// Provider is the subset of the provider client the service relies on.
type Provider interface {
	PostOutboundDocument(ctx context.Context, code edi.DocumentType, partnerID string, payload any) (provider.Submission, error)
	GetInboundDocuments(ctx context.Context, code edi.DocumentType) ([]json.RawMessage, error)
	AcknowledgeInboundDocument(ctx context.Context, code edi.DocumentType, referenceID, status string) error
}

// OrderStore reads and updates orders. GetByNumber returns
// orderrepo.ErrNotFound for unknown numbers.
type OrderStore interface {
	GetByNumber(ctx context.Context, number string) (*entity.Order, error)
	Update(ctx context.Context, order *entity.Order, columns ...string) error
}

// ProductStore updates stock levels.
type ProductStore interface {
	UpdateStockBySKU(ctx context.Context, sku string, count int, at time.Time) (int64, error)
}

// InvoiceStore creates invoices. GetByEDIReference returns
// invoicerepo.ErrNotFound when no invoice carries the reference.
type InvoiceStore interface {
	Create(ctx context.Context, invoice *entity.Invoice) error
	GetByEDIReference(ctx context.Context, reference string) (*entity.Invoice, error)
}

// TransactionStore persists the audit trail.
type TransactionStore interface {
	Upsert(ctx context.Context, txn *entity.EdiTransaction) error
	List(ctx context.Context, filter txrepo.Filter) ([]entity.EdiTransaction, error)
}

// Publisher emits document events.
type Publisher interface {
	Publish(ctx context.Context, msg messaging.Message) error
}

// Options tunes service behavior.
type Options struct {
	DefaultCurrency       string
	SyntheticReferenceIDs bool
	Now                   func() time.Time
}

// Deps collects the collaborators of a Service.
type Deps struct {
	Provider     Provider
	Orders       OrderStore
	Products     ProductStore
	Invoices     InvoiceStore
	Transactions TransactionStore
	Publisher    Publisher
	Logger       *zap.Logger
	Options      Options
}

// Service exchanges EDI documents with the provider and reconciles them
// against local orders, products and invoices.
type Service struct {
	provider  Provider
	orders    OrderStore
	products  ProductStore
	invoices  InvoiceStore
	txns      TransactionStore
	txlog     *TransactionLog
	publisher Publisher
	logger    *zap.Logger
	validate  *validator.Validate
	currency  string
	now       func() time.Time
	documents metric.Int64Counter
}

// New builds a Service from explicit dependencies.
func New(d Deps) *Service {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := d.Options.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	currency := d.Options.DefaultCurrency
	if currency == "" {
		currency = "USD"
	}

	documents, err := serviceMeter.Int64Counter("edi.documents",
		metric.WithDescription("EDI documents handled, by type and result"),
	)
	if err != nil {
		logger.Warn("create edi.documents counter", zap.Error(err))
	}

	return &Service{
		provider:  d.Provider,
		orders:    d.Orders,
		products:  d.Products,
		invoices:  d.Invoices,
		txns:      d.Transactions,
		txlog:     NewTransactionLog(d.Transactions, logger, d.Options.SyntheticReferenceIDs),
		publisher: d.Publisher,
		logger:    logger,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		currency:  currency,
		now:       now,
		documents: documents,
	}
}

// Params defines dependencies for constructing Service through Fx.
type Params struct {
	fx.In

	Provider     *provider.Client
	Orders       *orderrepo.Repository
	Products     *productrepo.Repository
	Invoices     *invoicerepo.Repository
	Transactions *txrepo.Repository
	Publisher    messaging.Client
	Config       config.Config
	Logger       *zap.Logger
}

// NewService wires a Service from the Fx graph.
func NewService(p Params) *Service {
	var publisher Publisher
	if p.Config.Messaging.Enabled {
		publisher = p.Publisher
	}
	return New(Deps{
		Provider:     p.Provider,
		Orders:       p.Orders,
		Products:     p.Products,
		Invoices:     p.Invoices,
		Transactions: p.Transactions,
		Publisher:    publisher,
		Logger:       p.Logger,
		Options: Options{
			DefaultCurrency:       p.Config.EDI.DefaultCurrency,
			SyntheticReferenceIDs: p.Config.EDI.SyntheticReferenceIDs,
		},
	})
}

// Transactions exposes the transaction log used by the service.
func (s *Service) Transactions() *TransactionLog {
	return s.txlog
}

// ListTransactions returns audit rows matching filter.
func (s *Service) ListTransactions(ctx context.Context, filter txrepo.Filter) ([]entity.EdiTransaction, error) {
	ctx, span := serviceTracer.Start(ctx, "EDIService.ListTransactions")
	defer span.End()

	rows, err := s.txns.List(ctx, filter)
	if err != nil {
		span.RecordError(err)
		return nil, errorbank.Internal("failed to list edi transactions", errorbank.WithCause(err))
	}
	return rows, nil
}

// resolveOrder loads the order a document's PO number points at.
func (s *Service) resolveOrder(ctx context.Context, poNumber string) (*entity.Order, error) {
	order, err := s.orders.GetByNumber(ctx, poNumber)
	if errors.Is(err, orderrepo.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", edi.ErrOrderNotFound, poNumber)
	}
	if err != nil {
		return nil, fmt.Errorf("load order %s: %w", poNumber, err)
	}
	return order, nil
}

func (s *Service) countDocument(ctx context.Context, code edi.DocumentType, result string) {
	if s.documents == nil {
		return
	}
	s.documents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("document_type", code.String()),
		attribute.String("result", result),
	))
}

func encodeRaw(doc any) string {
	raw, err := json.Marshal(doc)
	if err != nil {
		return ""
	}
	return string(raw)
}
