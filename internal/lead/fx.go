package lead

import (
	"github.com/smallbiznis/tenantly/internal/lead/repository"
	"github.com/smallbiznis/tenantly/internal/lead/service"
	"go.uber.org/fx"
)

var Module = fx.Module("lead.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
