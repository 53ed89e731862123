package scoring

import (
	"github.com/recovahq/recova/internal/config"
	"go.uber.org/fx"
)

func NewFromConfig(cfg config.Config) *Scorer {
	return New(cfg.Scoring)
}

var Module = fx.Module("scoring",
	fx.Provide(NewFromConfig),
)
