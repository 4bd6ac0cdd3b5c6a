package billing

import (
	"github.com/smallbiznis/tenantly/internal/billing/gateway"
	"github.com/smallbiznis/tenantly/internal/billing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("billing.service",
	fx.Provide(gateway.NewStripeGateway),
	fx.Provide(service.NewService),
)
