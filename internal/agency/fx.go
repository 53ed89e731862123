package agency

import (
	"github.com/recovahq/recova/internal/agency/repository"
	"github.com/recovahq/recova/internal/agency/service"
	"go.uber.org/fx"
)

var Module = fx.Module("agency.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
