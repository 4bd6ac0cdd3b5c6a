package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tenantly/internal/clock"
	"github.com/smallbiznis/tenantly/internal/config"
	"github.com/smallbiznis/tenantly/internal/migration"
	"github.com/smallbiznis/tenantly/internal/observability"
	"github.com/smallbiznis/tenantly/internal/scheduler"
	"github.com/smallbiznis/tenantly/internal/server"
	"github.com/smallbiznis/tenantly/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
