package transaction

import "go.uber.org/fx"

// Module provides the EDI transaction repository to Fx.
var Module = fx.Provide(NewRepository)
