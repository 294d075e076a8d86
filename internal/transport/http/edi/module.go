package edi

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/edisync/internal/config"
	"github.com/Additional-Code/edisync/internal/scheduler"
	edisvc "github.com/Additional-Code/edisync/internal/service/edi"
)

// Module wires HTTP EDI handlers.
var Module = fx.Options(
	fx.Provide(func(svc *edisvc.Service, s *scheduler.Scheduler, cfg config.Config, logger *zap.Logger) *Handler {
		return NewHandler(svc, s, cfg.EDI.SchedulerAPIKey, cfg.EDI.WebhookSecret, logger)
	}),
	fx.Invoke(func(e *echo.Echo, h *Handler) {
		Register(e, h)
	}),
)
