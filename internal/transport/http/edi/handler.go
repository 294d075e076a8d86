package edi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Additional-Code/edisync/internal/dto"
	"github.com/Additional-Code/edisync/internal/edi"
	"github.com/Additional-Code/edisync/internal/entity"
	"github.com/Additional-Code/edisync/internal/presentation/http/response"
	txrepo "github.com/Additional-Code/edisync/internal/repository/transaction"
	"github.com/Additional-Code/edisync/internal/scheduler"
	edisvc "github.com/Additional-Code/edisync/internal/service/edi"
	"github.com/Additional-Code/edisync/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/edisync/transport/http/edi")

const maxWebhookBody = 1 << 20

// Service is the EDI behavior exposed over HTTP.
type Service interface {
	SendPurchaseOrder(ctx context.Context, data edi.PurchaseOrderData) edisvc.SendResult
	SendPaymentAdvice(ctx context.Context, data edi.PaymentAdviceData) edisvc.SendResult
	ListTransactions(ctx context.Context, filter txrepo.Filter) ([]entity.EdiTransaction, error)
}

// Syncer runs and reports sync cycles. PollOne shares the cycle lock.
type Syncer interface {
	FetchEdiUpdates(ctx context.Context) scheduler.SyncResult
	PollOne(ctx context.Context, code edi.DocumentType) (edisvc.BatchResult, error)
	LastResult(ctx context.Context) (scheduler.SyncResult, bool, error)
}

// Handler exposes EDI endpoints over HTTP.
type Handler struct {
	svc    Service
	syncer Syncer
	apiKey string
	secret string
	logger *zap.Logger
}

// NewHandler constructs an EDI Handler.
func NewHandler(svc Service, syncer Syncer, apiKey, webhookSecret string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, syncer: syncer, apiKey: apiKey, secret: webhookSecret, logger: logger}
}

// Register routes with provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/edi")
	g.POST("/webhook", h.webhook)

	protected := g.Group("", RequireAPIKey(h.apiKey))
	protected.POST("/sync", h.sync)
	protected.GET("/sync/status", h.syncStatus)
	protected.POST("/purchase-orders", h.sendPurchaseOrder)
	protected.POST("/payment-advices", h.sendPaymentAdvice)
	protected.GET("/transactions", h.listTransactions)
}

func (h *Handler) sync(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "edi.sync")
	defer span.End()

	result := h.syncer.FetchEdiUpdates(ctx)
	if !result.Success {
		if result.Error == scheduler.ErrAlreadyRunning.Error() {
			return b.WithError(errorbank.Conflict(result.Error)).Build()
		}
		return b.WithError(errorbank.Internal(result.Error, errorbank.WithDetail("processingTime", result.ProcessingTime))).Build()
	}
	return b.WithData(result).Build()
}

func (h *Handler) syncStatus(c echo.Context) error {
	b := response.New(c)

	result, ok, err := h.syncer.LastResult(c.Request().Context())
	if err != nil {
		return b.WithError(errorbank.Internal("failed to read last sync result", errorbank.WithCause(err))).Build()
	}
	if !ok {
		return b.WithError(errorbank.NotFound("no sync cycle has completed yet")).Build()
	}
	return b.WithData(result).Build()
}

func (h *Handler) sendPurchaseOrder(c echo.Context) error {
	b := response.New(c)

	var payload edi.PurchaseOrderData
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "edi.sendPurchaseOrder", trace.WithAttributes(
		attribute.String("edi.partner_id", payload.PartnerID),
		attribute.String("order.number", payload.OrderNumber),
	))
	defer span.End()

	return sendResponse(b, h.svc.SendPurchaseOrder(ctx, payload))
}

func (h *Handler) sendPaymentAdvice(c echo.Context) error {
	b := response.New(c)

	var payload edi.PaymentAdviceData
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "edi.sendPaymentAdvice", trace.WithAttributes(
		attribute.String("edi.partner_id", payload.PartnerID),
		attribute.String("payment.id", payload.PaymentID),
	))
	defer span.End()

	return sendResponse(b, h.svc.SendPaymentAdvice(ctx, payload))
}

func sendResponse(b *response.Builder, result edisvc.SendResult) error {
	if !result.Success {
		opts := []errorbank.Option{errorbank.WithDetail("statusCode", result.Error.StatusCode)}
		if len(result.Error.ResponseData) > 0 {
			opts = append(opts, errorbank.WithDetail("responseData", result.Error.ResponseData))
		}
		if result.Rejected {
			return b.WithError(errorbank.Unprocessable(result.Error.Message)).Build()
		}
		if result.Error.Temporary() {
			return b.WithError(errorbank.Unavailable(result.Error.Message, opts...)).Build()
		}
		return b.WithError(errorbank.BadGateway(result.Error.Message, opts...)).Build()
	}
	return b.WithStatus(http.StatusAccepted).WithData(result).Build()
}

func (h *Handler) listTransactions(c echo.Context) error {
	b := response.New(c)

	filter := txrepo.Filter{
		Direction: c.QueryParam("direction"),
		PartnerID: c.QueryParam("partner_id"),
		Status:    c.QueryParam("status"),
	}
	if raw := c.QueryParam("document_type"); raw != "" {
		code, err := edi.ParseDocumentType(raw)
		if err != nil {
			return b.WithError(errorbank.BadRequest(err.Error())).Build()
		}
		filter.DocumentType = code.String()
	}
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 || limit > 500 {
			return b.WithError(errorbank.BadRequest("limit must be between 1 and 500")).Build()
		}
		filter.Limit = limit
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "edi.listTransactions")
	defer span.End()

	rows, err := h.svc.ListTransactions(ctx, filter)
	if err != nil {
		return b.WithError(err).Build()
	}

	out := make([]dto.TransactionResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, dto.NewTransactionResponse(row))
	}
	return b.WithData(out).WithMeta("count", len(out)).Build()
}

func (h *Handler) webhook(c echo.Context) error {
	b := response.New(c)

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody+1))
	if err != nil {
		return b.WithError(errorbank.BadRequest("failed to read body", errorbank.WithCause(err))).Build()
	}
	if len(body) > maxWebhookBody {
		return b.WithError(errorbank.PayloadTooLarge("webhook body too large", errorbank.WithDetail("limit", maxWebhookBody))).Build()
	}
	if err := VerifySignature(h.secret, body, c.Request().Header.Get(SignatureHeader)); err != nil {
		h.logger.Warn("rejected edi webhook", zap.Error(err))
		return b.WithError(errorbank.Unauthorized("invalid webhook signature", errorbank.WithCause(err))).Build()
	}

	var note dto.WebhookNotification
	if err := json.Unmarshal(body, &note); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	code, err := edi.ParseDocumentType(note.DocumentType)
	if err != nil {
		return b.WithError(errorbank.BadRequest(err.Error())).Build()
	}
	if !code.Inbound() {
		return b.WithError(errorbank.Unprocessable("document type is not polled", errorbank.WithDetail("documentType", code.String()))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "edi.webhook", trace.WithAttributes(
		attribute.String("edi.document_type", code.String()),
		attribute.String("edi.reference_id", note.ReferenceID),
	))
	defer span.End()

	result, err := h.syncer.PollOne(ctx, code)
	if errors.Is(err, scheduler.ErrAlreadyRunning) {
		return b.WithError(errorbank.Conflict(err.Error(), errorbank.WithDetail("documentType", code.String()))).Build()
	}
	if errors.Is(err, edisvc.ErrUnsupportedDocument) {
		return b.WithError(errorbank.Unprocessable(err.Error())).Build()
	}
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusAccepted).WithData(result).Build()
}
