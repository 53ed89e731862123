package caseengine

import (
	"github.com/recovahq/recova/internal/case/repository"
	"github.com/recovahq/recova/internal/case/service"
	"go.uber.org/fx"
)

var Module = fx.Module("case.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
