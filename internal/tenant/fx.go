package tenant

import "go.uber.org/fx"

var Module = fx.Module("tenant.resolver",
	fx.Provide(NewResolver),
)
