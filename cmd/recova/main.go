package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/recovahq/recova/internal/agency"
	"github.com/recovahq/recova/internal/allocation"
	"github.com/recovahq/recova/internal/audit"
	"github.com/recovahq/recova/internal/auth"
	"github.com/recovahq/recova/internal/authorization"
	caseengine "github.com/recovahq/recova/internal/case"
	"github.com/recovahq/recova/internal/clock"
	"github.com/recovahq/recova/internal/config"
	"github.com/recovahq/recova/internal/distlock"
	"github.com/recovahq/recova/internal/logger"
	"github.com/recovahq/recova/internal/migration"
	"github.com/recovahq/recova/internal/notification"
	obsmetrics "github.com/recovahq/recova/internal/observability/metrics"
	"github.com/recovahq/recova/internal/scheduler"
	"github.com/recovahq/recova/internal/scoring"
	"github.com/recovahq/recova/internal/server"
	"github.com/recovahq/recova/internal/sla"
	"github.com/recovahq/recova/pkg/db"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		clock.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		obsmetrics.Module,
		distlock.Module,
		migration.Module,

		// Functional domains
		audit.Module,
		auth.Module,
		authorization.Module,
		agency.Module,
		allocation.Module,
		scoring.Module,
		caseengine.Module,
		notification.Module,
		sla.Module,
		scheduler.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
