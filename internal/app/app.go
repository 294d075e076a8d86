package app

import (
	"go.uber.org/fx"

	"github.com/Additional-Code/edisync/internal/cache"
	"github.com/Additional-Code/edisync/internal/config"
	"github.com/Additional-Code/edisync/internal/database"
	"github.com/Additional-Code/edisync/internal/lock"
	"github.com/Additional-Code/edisync/internal/logger"
	"github.com/Additional-Code/edisync/internal/messaging"
	"github.com/Additional-Code/edisync/internal/observability"
	"github.com/Additional-Code/edisync/internal/provider"
	repositoryinvoice "github.com/Additional-Code/edisync/internal/repository/invoice"
	repositoryorder "github.com/Additional-Code/edisync/internal/repository/order"
	repositoryproduct "github.com/Additional-Code/edisync/internal/repository/product"
	repositorytransaction "github.com/Additional-Code/edisync/internal/repository/transaction"
	"github.com/Additional-Code/edisync/internal/scheduler"
	grpcserver "github.com/Additional-Code/edisync/internal/server/grpc"
	httpserver "github.com/Additional-Code/edisync/internal/server/http"
	serviceedi "github.com/Additional-Code/edisync/internal/service/edi"
	transporthttp "github.com/Additional-Code/edisync/internal/transport/http"
	"github.com/Additional-Code/edisync/internal/worker"
	workeredi "github.com/Additional-Code/edisync/internal/worker/edi"
)

// Foundation provides config, logging, storage and telemetry without the
// EDI domain; migrations and seeders need nothing more.
var Foundation = fx.Options(
	config.Module,
	cache.Module,
	database.Module,
	logger.Module,
	observability.Module,
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	Foundation,
	messaging.Module,
	lock.Module,
	provider.Module,
	repositoryorder.Module,
	repositoryproduct.Module,
	repositoryinvoice.Module,
	repositorytransaction.Module,
	serviceedi.Module,
	scheduler.Module,
)

// HTTP wires the HTTP and gRPC transports on top of the core modules.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	grpcserver.Module,
	transporthttp.Module,
)

// Worker exposes background message processing and the periodic sync runner.
var Worker = fx.Options(
	Core,
	worker.Module,
	workeredi.Module,
	scheduler.RunnerModule,
)

// Module is the default application wiring (HTTP only).
var Module = HTTP
