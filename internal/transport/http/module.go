package http

import (
	"go.uber.org/fx"

	editransport "github.com/Additional-Code/edisync/internal/transport/http/edi"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	editransport.Module,
)
