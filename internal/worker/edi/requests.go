package edi

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/edisync/internal/edi"
	"github.com/Additional-Code/edisync/internal/messaging"
	edisvc "github.com/Additional-Code/edisync/internal/service/edi"
	"github.com/Additional-Code/edisync/internal/worker"
)

// Event types consumed from the order and payment workflows.
const (
	EventPurchaseOrderRequested = "edi.purchase_order.requested"
	EventPaymentAdviceRequested = "edi.payment_advice.requested"
)

var workerTracer = otel.Tracer("github.com/Additional-Code/edisync/worker/edi")

// Sender submits outbound documents.
type Sender interface {
	SendPurchaseOrder(ctx context.Context, data edi.PurchaseOrderData) edisvc.SendResult
	SendPaymentAdvice(ctx context.Context, data edi.PaymentAdviceData) edisvc.SendResult
}

// Module registers EDI worker handlers.
var Module = fx.Module("worker_edi",
	fx.Provide(
		fx.Annotate(
			func(svc *edisvc.Service, logger *zap.Logger) worker.HandlerRegistration {
				return NewPurchaseOrderHandler(svc, logger)
			},
			fx.ResultTags(`group:"worker.handlers"`),
		),
		fx.Annotate(
			func(svc *edisvc.Service, logger *zap.Logger) worker.HandlerRegistration {
				return NewPaymentAdviceHandler(svc, logger)
			},
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// NewPurchaseOrderHandler sends an 850 for each requested purchase order.
// Only temporary send failures are returned so the message is redelivered;
// undecodable and rejected requests are logged and committed.
func NewPurchaseOrderHandler(sender Sender, logger *zap.Logger) worker.HandlerRegistration {
	return worker.HandlerRegistration{
		EventType: EventPurchaseOrderRequested,
		Handler: outboundHandler(logger, "worker.edi.purchase_order", func(ctx context.Context, raw []byte) (string, edisvc.SendResult, error) {
			var data edi.PurchaseOrderData
			if err := json.Unmarshal(raw, &data); err != nil {
				return "", edisvc.SendResult{}, err
			}
			return data.OrderNumber, sender.SendPurchaseOrder(ctx, data), nil
		}),
	}
}

// NewPaymentAdviceHandler sends an 820 for each requested payment advice.
func NewPaymentAdviceHandler(sender Sender, logger *zap.Logger) worker.HandlerRegistration {
	return worker.HandlerRegistration{
		EventType: EventPaymentAdviceRequested,
		Handler: outboundHandler(logger, "worker.edi.payment_advice", func(ctx context.Context, raw []byte) (string, edisvc.SendResult, error) {
			var data edi.PaymentAdviceData
			if err := json.Unmarshal(raw, &data); err != nil {
				return "", edisvc.SendResult{}, err
			}
			return data.PaymentID, sender.SendPaymentAdvice(ctx, data), nil
		}),
	}
}

type sendFunc func(ctx context.Context, raw []byte) (string, edisvc.SendResult, error)

func outboundHandler(logger *zap.Logger, spanName string, send sendFunc) messaging.Handler {
	return func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, spanName, trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
			attribute.String("messaging.event_type", msg.EventType()),
		))
		defer span.End()

		ref, result, err := send(ctx, msg.Value)
		if err != nil {
			logger.Error("dropping undecodable outbound edi request", zap.String("event_type", msg.EventType()), zap.Error(err))

			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return nil
		}
		if !result.Success {
			err := fmt.Errorf("send %s: %w", ref, result.Error)
			span.RecordError(err)
			span.SetStatus(codes.Error, "send failed")
			if result.Retryable() {
				return err
			}
			logger.Error("dropping outbound edi request after permanent failure",
				zap.String("event_type", msg.EventType()),
				zap.String("local_reference", ref),
				zap.Bool("rejected", result.Rejected),
				zap.Error(err),
			)
			return nil
		}

		logger.Info("outbound edi request processed",
			zap.String("event_type", msg.EventType()),
			zap.String("local_reference", ref),
			zap.String("reference_id", result.ReferenceID),
			zap.String("status", result.Status),
		)
		return nil
	}
}
