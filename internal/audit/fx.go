package audit

import (
	"github.com/recovahq/recova/internal/audit/repository"
	"github.com/recovahq/recova/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
