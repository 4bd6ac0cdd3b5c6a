package organization

import (
	"github.com/smallbiznis/tenantly/internal/organization/event"
	"github.com/smallbiznis/tenantly/internal/organization/repository"
	"github.com/smallbiznis/tenantly/internal/organization/service"
	"go.uber.org/fx"
)

var Module = fx.Module("organization.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(event.NewOutboxPublisher),
	fx.Provide(service.NewTXTResolver),
	fx.Provide(service.NewService),
)
