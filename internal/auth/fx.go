package auth

import (
	"go.uber.org/fx"

	"github.com/recovahq/recova/internal/auth/repository"
	"github.com/recovahq/recova/internal/auth/service"
)

var Module = fx.Module("auth",
	fx.Provide(
		repository.Provide,
		service.New,
	),
)
