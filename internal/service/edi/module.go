package edi

import "go.uber.org/fx"

// Module provides the EDI service to Fx.
var Module = fx.Provide(NewService)
