package edi

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Additional-Code/edisync/internal/database/dbtest"
	"github.com/Additional-Code/edisync/internal/edi"
	"github.com/Additional-Code/edisync/internal/entity"
	"github.com/Additional-Code/edisync/internal/messaging"
	"github.com/Additional-Code/edisync/internal/provider"
	invoicerepo "github.com/Additional-Code/edisync/internal/repository/invoice"
	orderrepo "github.com/Additional-Code/edisync/internal/repository/order"
	productrepo "github.com/Additional-Code/edisync/internal/repository/product"
	txrepo "github.com/Additional-Code/edisync/internal/repository/transaction"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type ack struct {
	code      edi.DocumentType
	reference string
	status    string
}

type posted struct {
	code      edi.DocumentType
	partnerID string
	body      map[string]any
}

type fakeProvider struct {
	mu         sync.Mutex
	inbound    map[edi.DocumentType][]json.RawMessage
	fetchErr   map[edi.DocumentType]error
	acks       []ack
	ackErr     error
	posts      []posted
	postErr    error
	submission provider.Submission
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		inbound:  map[edi.DocumentType][]json.RawMessage{},
		fetchErr: map[edi.DocumentType]error{},
	}
}

func (f *fakeProvider) queue(code edi.DocumentType, docs ...string) {
	for _, d := range docs {
		f.inbound[code] = append(f.inbound[code], json.RawMessage(d))
	}
}

func (f *fakeProvider) PostOutboundDocument(_ context.Context, code edi.DocumentType, partnerID string, payload any) (provider.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, _ := json.Marshal(payload)
	var body map[string]any
	_ = json.Unmarshal(raw, &body)
	f.posts = append(f.posts, posted{code: code, partnerID: partnerID, body: body})
	if f.postErr != nil {
		return provider.Submission{}, f.postErr
	}
	return f.submission, nil
}

func (f *fakeProvider) GetInboundDocuments(_ context.Context, code edi.DocumentType) ([]json.RawMessage, error) {
	if err := f.fetchErr[code]; err != nil {
		return nil, err
	}
	return f.inbound[code], nil
}

func (f *fakeProvider) AcknowledgeInboundDocument(_ context.Context, code edi.DocumentType, referenceID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks = append(f.acks, ack{code: code, reference: referenceID, status: status})
	return f.ackErr
}

type recordingPublisher struct {
	messages []messaging.Message
}

func (p *recordingPublisher) Publish(_ context.Context, msg messaging.Message) error {
	p.messages = append(p.messages, msg)
	return nil
}

type failingTransactions struct{}

func (failingTransactions) Upsert(context.Context, *entity.EdiTransaction) error {
	return errors.New("database unavailable")
}

func (failingTransactions) List(context.Context, txrepo.Filter) ([]entity.EdiTransaction, error) {
	return nil, errors.New("database unavailable")
}

type harness struct {
	svc       *Service
	provider  *fakeProvider
	orders    *orderrepo.Repository
	products  *productrepo.Repository
	invoices  *invoicerepo.Repository
	txns      *txrepo.Repository
	publisher *recordingPublisher
	logs      *observer.ObservedLogs
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	conns := dbtest.Connections(dbtest.New(t))
	core, logs := observer.New(zap.DebugLevel)

	h := &harness{
		provider:  newFakeProvider(),
		orders:    orderrepo.NewRepository(conns),
		products:  productrepo.NewRepository(conns),
		invoices:  invoicerepo.NewRepository(conns),
		txns:      txrepo.NewRepository(conns),
		publisher: &recordingPublisher{},
		logs:      logs,
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return fixedNow }
	}
	h.svc = New(Deps{
		Provider:     h.provider,
		Orders:       h.orders,
		Products:     h.products,
		Invoices:     h.invoices,
		Transactions: h.txns,
		Publisher:    h.publisher,
		Logger:       zap.New(core),
		Options:      opts,
	})
	return h
}

func (h *harness) createOrder(t *testing.T, number string) *entity.Order {
	t.Helper()
	order := &entity.Order{Number: number, PartnerID: "SUP-1", Status: "pending", Currency: "USD"}
	require.NoError(t, h.orders.Create(context.Background(), order))
	return order
}

func (h *harness) txn(t *testing.T, code edi.DocumentType, dir edi.Direction, partner, ref string) *entity.EdiTransaction {
	t.Helper()
	txn, err := h.txns.Get(context.Background(), txrepo.Key{
		DocumentType: code.String(),
		Direction:    string(dir),
		PartnerID:    partner,
		ReferenceID:  ref,
	})
	require.NoError(t, err)
	return txn
}

func TestInventoryUpdateSetsStock(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	require.NoError(t, h.products.Create(ctx, &entity.Product{SKU: "A1", Name: "Shirt", CountInStock: 1}))
	require.NoError(t, h.products.Create(ctx, &entity.Product{SKU: "A1", Name: "Shirt XL", CountInStock: 2}))

	h.provider.queue(edi.InventoryAdvice, `{"referenceId":"INV-1","partnerId":"SUP-1","items":[{"sku":"A1","quantityAvailable":5}]}`)

	result := h.svc.GetInventoryUpdates(ctx)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Count)
	assert.Equal(t, 1, result.Processed)
	assert.Zero(t, result.Failed)

	products, err := h.products.ListBySKU(ctx, "A1")
	require.NoError(t, err)
	require.Len(t, products, 2)
	for _, p := range products {
		assert.Equal(t, 5, p.CountInStock)
		require.NotNil(t, p.LastInventoryUpdate)
		assert.True(t, fixedNow.Equal(*p.LastInventoryUpdate))
	}

	assert.Equal(t, []ack{{code: edi.InventoryAdvice, reference: "INV-1", status: edi.StatusProcessed}}, h.provider.acks)

	txn := h.txn(t, edi.InventoryAdvice, edi.Inbound, "SUP-1", "INV-1")
	assert.Equal(t, edi.StatusProcessed, txn.Status)
	assert.Nil(t, txn.ErrorMessage)
	require.NotNil(t, txn.RawData)
	assert.Contains(t, *txn.RawData, `"quantityAvailable":5`)
}

func TestOrderConfirmationStatusMapping(t *testing.T) {
	cases := map[string]string{
		"accepted": "confirmed",
		"rejected": "rejected",
		"pending":  "processing",
		"Accepted": "processing",
	}
	for providerStatus, want := range cases {
		t.Run(providerStatus, func(t *testing.T) {
			h := newHarness(t, Options{})
			ctx := context.Background()
			order := h.createOrder(t, "PO-1")

			err := h.svc.ProcessOrderConfirmation(ctx, edi.OrderConfirmationDocument{
				ReferenceID: "POA-1",
				PartnerID:   "SUP-1",
				PONumber:    "PO-1",
				Status:      providerStatus,
			})
			require.NoError(t, err)

			got, err := h.orders.GetByID(ctx, order.ID)
			require.NoError(t, err)
			assert.Equal(t, want, got.Status)
			assert.True(t, got.EDI.OrderConfirmationReceived)
			assert.Equal(t, "POA-1", got.EDI.OrderConfirmationReference)

			txn := h.txn(t, edi.OrderConfirmation, edi.Inbound, "SUP-1", "POA-1")
			assert.Equal(t, edi.StatusProcessed, txn.Status)
			require.NotNil(t, txn.OrderID)
			assert.Equal(t, order.ID, *txn.OrderID)
		})
	}
}

func TestShippingNoticeForUnknownOrderIsIsolated(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	order := h.createOrder(t, "PO-1")

	h.provider.queue(edi.ShippingNotice,
		`{"referenceId":"ASN-404","partnerId":"SUP-1","poNumber":"PO-404","shipDate":"2024-05-30","trackingNumber":"1Z000","carrier":"UPS"}`,
		`{"referenceId":"ASN-1","partnerId":"SUP-1","poNumber":"PO-1","shipDate":"2024-05-31","trackingNumber":"1Z999","carrier":"UPS"}`,
	)

	result := h.svc.GetShippingNotices(ctx)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Count)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Failed)

	got, err := h.orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "shipped", got.Status)
	assert.Equal(t, "1Z999", got.TrackingNumber)
	assert.Equal(t, "UPS", got.ShippingCarrier)
	require.NotNil(t, got.ShippedAt)
	assert.True(t, time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC).Equal(*got.ShippedAt))
	assert.True(t, got.EDI.ShippingNoticeReceived)

	failed := h.txn(t, edi.ShippingNotice, edi.Inbound, "SUP-1", "ASN-404")
	assert.Equal(t, edi.StatusError, failed.Status)
	require.NotNil(t, failed.ErrorMessage)
	assert.Contains(t, *failed.ErrorMessage, "PO-404")

	assert.Equal(t, []ack{{code: edi.ShippingNotice, reference: "ASN-1", status: edi.StatusProcessed}}, h.provider.acks)
	assert.Equal(t, 1, h.logs.FilterMessage("edi document processing failed").Len())
}

func TestFailedProcessingIsNotAcknowledged(t *testing.T) {
	h := newHarness(t, Options{})

	err := h.svc.ProcessInvoice(context.Background(), edi.InvoiceDocument{
		ReferenceID:   "INV-9",
		PartnerID:     "SUP-1",
		PONumber:      "PO-MISSING",
		InvoiceNumber: "9001",
		Amount:        decimal.RequireFromString("10.00"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, edi.ErrOrderNotFound)
	assert.Empty(t, h.provider.acks)

	txn := h.txn(t, edi.Invoice, edi.Inbound, "SUP-1", "INV-9")
	assert.Equal(t, edi.StatusError, txn.Status)

	require.Len(t, h.publisher.messages, 1)
	assert.Equal(t, EventDocumentFailed, h.publisher.messages[0].EventType())
}

func TestAcknowledgeFailureLeavesErrorStatus(t *testing.T) {
	h := newHarness(t, Options{})
	h.provider.ackErr = &provider.Error{Message: "gateway timeout", StatusCode: 504}

	err := h.svc.ProcessInventoryUpdate(context.Background(), edi.InventoryUpdate{
		ReferenceID: "INV-2",
		PartnerID:   "SUP-1",
	})
	require.Error(t, err)

	txn := h.txn(t, edi.InventoryAdvice, edi.Inbound, "SUP-1", "INV-2")
	assert.Equal(t, edi.StatusError, txn.Status)
	require.NotNil(t, txn.ErrorMessage)
	assert.Contains(t, *txn.ErrorMessage, "gateway timeout")
}

func TestInvoiceReprocessingIsIdempotent(t *testing.T) {
	h := newHarness(t, Options{DefaultCurrency: "EUR"})
	ctx := context.Background()
	order := h.createOrder(t, "PO-7")

	doc := edi.InvoiceDocument{
		ReferenceID:   "INV-7",
		PartnerID:     "SUP-1",
		PONumber:      "PO-7",
		InvoiceNumber: "7001",
		Amount:        decimal.RequireFromString("99.50"),
		InvoiceDate:   "2024-05-20",
		DueDate:       "2024-06-19",
	}
	require.NoError(t, h.svc.ProcessInvoice(ctx, doc))
	require.NoError(t, h.svc.ProcessInvoice(ctx, doc))

	invoices, err := h.invoices.ListByOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	inv := invoices[0]
	assert.Equal(t, "7001", inv.InvoiceNumber)
	assert.Equal(t, "EUR", inv.Currency)
	assert.Equal(t, "received", inv.Status)
	assert.Equal(t, "INV-7", inv.EDIReferenceNumber)
	assert.True(t, decimal.RequireFromString("99.50").Equal(inv.Amount))
	require.NotNil(t, inv.DueDate)
	assert.True(t, time.Date(2024, 6, 19, 0, 0, 0, 0, time.UTC).Equal(*inv.DueDate))

	rows, err := h.txns.List(ctx, txrepo.Filter{DocumentType: edi.Invoice.String()})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, edi.StatusProcessed, rows[0].Status)

	got, err := h.orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, got.EDI.InvoiceReceived)
	assert.Len(t, h.provider.acks, 2)
}

// staleInvoices misses every lookup, as a delivery racing another one would.
type staleInvoices struct {
	*invoicerepo.Repository
}

func (staleInvoices) GetByEDIReference(context.Context, string) (*entity.Invoice, error) {
	return nil, invoicerepo.ErrNotFound
}

func TestConcurrentInvoiceDeliveryCreatesOneInvoice(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	order := h.createOrder(t, "PO-8")

	h.svc = New(Deps{
		Provider:     h.provider,
		Orders:       h.orders,
		Products:     h.products,
		Invoices:     staleInvoices{h.invoices},
		Transactions: h.txns,
		Logger:       zap.NewNop(),
		Options:      Options{Now: func() time.Time { return fixedNow }},
	})

	doc := edi.InvoiceDocument{ReferenceID: "INV-8", PartnerID: "SUP-1", PONumber: "PO-8", InvoiceNumber: "8001", Amount: decimal.RequireFromString("5")}
	require.NoError(t, h.svc.ProcessInvoice(ctx, doc))
	require.NoError(t, h.svc.ProcessInvoice(ctx, doc))

	invoices, err := h.invoices.ListByOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, invoices, 1)
	assert.Len(t, h.provider.acks, 2)
}

func TestTransactionLogFailureDoesNotFailProcessing(t *testing.T) {
	conns := dbtest.Connections(dbtest.New(t))
	core, logs := observer.New(zap.DebugLevel)
	fp := newFakeProvider()
	products := productrepo.NewRepository(conns)
	ctx := context.Background()
	require.NoError(t, products.Create(ctx, &entity.Product{SKU: "B2"}))

	svc := New(Deps{
		Provider:     fp,
		Orders:       orderrepo.NewRepository(conns),
		Products:     products,
		Invoices:     invoicerepo.NewRepository(conns),
		Transactions: failingTransactions{},
		Logger:       zap.New(core),
	})

	err := svc.ProcessInventoryUpdate(ctx, edi.InventoryUpdate{
		ReferenceID: "INV-3",
		PartnerID:   "SUP-1",
		Items:       []edi.InventoryItem{{SKU: "B2", QuantityAvailable: 12}},
	})
	require.NoError(t, err)
	assert.Len(t, fp.acks, 1)
	assert.Equal(t, 2, logs.FilterMessage("failed to log edi transaction").Len())

	products2, err := products.ListBySKU(ctx, "B2")
	require.NoError(t, err)
	assert.Equal(t, 12, products2[0].CountInStock)
}

func TestFetchErrorFailsOnlyTheBatch(t *testing.T) {
	h := newHarness(t, Options{})
	h.provider.fetchErr[edi.Invoice] = &provider.Error{Message: "service unavailable", StatusCode: 503}

	result := h.svc.GetInvoices(context.Background())
	assert.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Equal(t, "service unavailable", result.Error.Message)
	assert.Equal(t, 503, result.Error.StatusCode)
	assert.Zero(t, result.Count)
}

func TestUndecodableDocumentIsLogged(t *testing.T) {
	h := newHarness(t, Options{})
	h.provider.queue(edi.InventoryAdvice,
		`{"referenceId":"BAD-1","partnerId":"SUP-2","items":"not-a-list"}`,
		`{"referenceId":"OK-1","partnerId":"SUP-2","items":[]}`,
	)

	result := h.svc.GetInventoryUpdates(context.Background())
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Failed)

	txn := h.txn(t, edi.InventoryAdvice, edi.Inbound, "SUP-2", "BAD-1")
	assert.Equal(t, edi.StatusError, txn.Status)
	require.NotNil(t, txn.RawData)
	assert.Contains(t, *txn.RawData, "not-a-list")
	assert.Equal(t, []ack{{code: edi.InventoryAdvice, reference: "OK-1", status: edi.StatusProcessed}}, h.provider.acks)
}

func TestValidationFailureIsRecorded(t *testing.T) {
	h := newHarness(t, Options{})

	err := h.svc.ProcessShippingNotice(context.Background(), edi.ShippingNoticeDocument{
		ReferenceID: "ASN-2",
		PartnerID:   "SUP-1",
		PONumber:    "PO-1",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid shipping_notice document")
	assert.Empty(t, h.provider.acks)
}

func TestMissingReferenceUsesSentinel(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, h.svc.ProcessInventoryUpdate(ctx, edi.InventoryUpdate{PartnerID: "SUP-1"}))
	}

	rows, err := h.txns.List(ctx, txrepo.Filter{PartnerID: "SUP-1"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, edi.UnknownReference, rows[0].ReferenceID)
	assert.Equal(t, edi.UnknownReference, h.provider.acks[0].reference)
}

func TestSyntheticReferenceIDs(t *testing.T) {
	h := newHarness(t, Options{SyntheticReferenceIDs: true})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, h.svc.ProcessInventoryUpdate(ctx, edi.InventoryUpdate{PartnerID: "SUP-1"}))
	}

	rows, err := h.txns.List(ctx, txrepo.Filter{PartnerID: "SUP-1"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Regexp(t, `^unknown-[0-9a-f-]{36}$`, row.ReferenceID)
		assert.Equal(t, edi.StatusProcessed, row.Status)
	}
	assert.NotEqual(t, rows[0].ReferenceID, rows[1].ReferenceID)
	for _, a := range h.provider.acks {
		assert.Equal(t, edi.UnknownReference, a.reference)
	}
}

func TestSendPurchaseOrder(t *testing.T) {
	h := newHarness(t, Options{})
	h.provider.submission = provider.Submission{ReferenceID: "REF-850", Status: "queued"}
	ctx := context.Background()

	result := h.svc.SendPurchaseOrder(ctx, edi.PurchaseOrderData{
		OrderID:     42,
		OrderNumber: "PO-42",
		PartnerID:   "SUP-1",
		CreatedAt:   time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC),
		Items: []edi.LineItem{
			{SKU: "A1", Quantity: 2, Price: decimal.RequireFromString("10.50"), Name: "Shirt"},
			{SKU: "B2", Quantity: 1, Price: decimal.RequireFromString("4.25"), UPC: "0123"},
		},
		ShippingAddress: edi.Address{City: "Austin"},
	})
	require.True(t, result.Success)
	assert.Equal(t, "REF-850", result.ReferenceID)
	assert.Equal(t, "queued", result.Status)

	require.Len(t, h.provider.posts, 1)
	post := h.provider.posts[0]
	assert.Equal(t, edi.PurchaseOrder, post.code)
	assert.Equal(t, "SUP-1", post.partnerID)
	assert.Equal(t, "PO-42", post.body["poNumber"])
	assert.Equal(t, "2024-05-01T09:30:00Z", post.body["poDate"])
	assert.Equal(t, "USD", post.body["currency"])
	assert.Equal(t, "25.25", post.body["totalAmount"])
	lines := post.body["lineItems"].([]any)
	require.Len(t, lines, 2)
	first := lines[0].(map[string]any)
	assert.EqualValues(t, 1, first["lineNumber"])
	assert.Equal(t, "EA", first["uom"])
	assert.Equal(t, "Shirt", first["description"])

	txn := h.txn(t, edi.PurchaseOrder, edi.Outbound, "SUP-1", "REF-850")
	assert.Equal(t, "queued", txn.Status)
	require.NotNil(t, txn.OrderID)
	assert.EqualValues(t, 42, *txn.OrderID)

	require.Len(t, h.publisher.messages, 1)
	assert.Equal(t, EventDocumentSent, h.publisher.messages[0].EventType())
}

func TestSendPurchaseOrderLeavesOrderUntouched(t *testing.T) {
	h := newHarness(t, Options{})
	h.provider.submission = provider.Submission{ReferenceID: "REF-851"}
	ctx := context.Background()
	order := h.createOrder(t, "PO-44")

	result := h.svc.SendPurchaseOrder(ctx, edi.PurchaseOrderData{
		OrderID:     order.ID,
		OrderNumber: "PO-44",
		PartnerID:   "SUP-1",
		Items:       []edi.LineItem{{SKU: "A1", Quantity: 1, Price: decimal.RequireFromString("3.00")}},
	})
	require.True(t, result.Success)

	got, err := h.orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "pending", got.Status)
	assert.Equal(t, entity.OrderEDI{}, got.EDI)
}

func TestSendPurchaseOrderProviderFailure(t *testing.T) {
	h := newHarness(t, Options{})
	h.provider.postErr = &provider.Error{
		Message:      "unknown partner",
		StatusCode:   422,
		ResponseData: json.RawMessage(`{"message":"unknown partner"}`),
	}

	result := h.svc.SendPurchaseOrder(context.Background(), edi.PurchaseOrderData{
		OrderNumber: "PO-43",
		PartnerID:   "NOPE",
		Items:       []edi.LineItem{{SKU: "A1", Quantity: 1}},
	})
	assert.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Equal(t, "unknown partner", result.Error.Message)
	assert.JSONEq(t, `{"message":"unknown partner"}`, string(result.Error.ResponseData))

	txn := h.txn(t, edi.PurchaseOrder, edi.Outbound, "NOPE", edi.UnknownReference)
	assert.Equal(t, edi.StatusFailed, txn.Status)
	require.NotNil(t, txn.ErrorMessage)
}

func TestSendPaymentAdvice(t *testing.T) {
	h := newHarness(t, Options{})
	h.provider.submission = provider.Submission{ReferenceID: "REF-820"}

	result := h.svc.SendPaymentAdvice(context.Background(), edi.PaymentAdviceData{
		PONumber:    "PO-42",
		PartnerID:   "SUP-1",
		PaymentID:   "PAY-1",
		Amount:      decimal.RequireFromString("25.25"),
		Currency:    "eur",
		PaymentDate: time.Date(2024, 6, 2, 15, 0, 0, 0, time.UTC),
	})
	require.True(t, result.Success)
	assert.Equal(t, edi.StatusSent, result.Status)

	body := h.provider.posts[0].body
	assert.Equal(t, "PAY-1", body["paymentId"])
	assert.Equal(t, "2024-06-02", body["paymentDate"])
	assert.Equal(t, "EUR", body["currency"])
	assert.Equal(t, "ACH", body["paymentMethod"])

	txn := h.txn(t, edi.PaymentAdvice, edi.Outbound, "SUP-1", "REF-820")
	assert.Equal(t, edi.StatusSent, txn.Status)
	assert.Nil(t, txn.OrderID)
}

func TestSendPaymentAdviceRejectsInvalidInput(t *testing.T) {
	h := newHarness(t, Options{})

	result := h.svc.SendPaymentAdvice(context.Background(), edi.PaymentAdviceData{PONumber: "PO-1", PartnerID: "SUP-1"})
	assert.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Contains(t, result.Error.Message, "invalid payment advice")
	assert.True(t, result.Rejected)
	assert.False(t, result.Retryable())
	assert.Empty(t, h.provider.posts)
}

func TestPollDocumentType(t *testing.T) {
	h := newHarness(t, Options{})
	h.provider.queue(edi.OrderConfirmation, `{"referenceId":"POA-9","partnerId":"SUP-1","poNumber":"PO-9","status":"accepted"}`)
	h.createOrder(t, "PO-9")

	result, err := h.svc.PollDocumentType(context.Background(), edi.OrderConfirmation)
	require.NoError(t, err)
	assert.Equal(t, edi.OrderConfirmation, result.DocumentType)
	assert.Equal(t, 1, result.Processed)

	_, err = h.svc.PollDocumentType(context.Background(), edi.PurchaseOrder)
	assert.ErrorIs(t, err, ErrUnsupportedDocument)
}

func TestListTransactions(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	require.NoError(t, h.svc.ProcessInventoryUpdate(ctx, edi.InventoryUpdate{ReferenceID: "L-1", PartnerID: "SUP-1"}))
	require.NoError(t, h.svc.ProcessInventoryUpdate(ctx, edi.InventoryUpdate{ReferenceID: "L-2", PartnerID: "SUP-2"}))

	rows, err := h.svc.ListTransactions(ctx, txrepo.Filter{PartnerID: "SUP-2"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "L-2", rows[0].ReferenceID)
}
