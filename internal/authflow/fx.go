package authflow

import (
	"github.com/smallbiznis/tenantly/internal/ratelimit"
	"go.uber.org/fx"
)

var Module = fx.Module("authflow",
	fx.Provide(func(l *ratelimit.SignInLimiter) Limiter { return l }),
	fx.Provide(NewService),
)
