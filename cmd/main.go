package main

import (
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/pprof"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Compunnel-EAB/copilot-metrics-viewer/internal/api"
	"github.com/Compunnel-EAB/copilot-metrics-viewer/internal/config"
	"github.com/Compunnel-EAB/copilot-metrics-viewer/internal/copilot"
	"github.com/Compunnel-EAB/copilot-metrics-viewer/internal/github"
)

var logger *zap.Logger

func main() {
	conf, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger = initLogger(conf.LogDebug)
	defer logger.Sync()

	scope, err := copilot.ParseScope(conf.Scope)
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	logger.Info("starting copilot-metrics-viewer",
		zap.String("scope", string(scope)),
		zap.Bool("mockData", conf.MockDataDir != ""),
	)

	var source api.Source
	if conf.MockDataDir != "" {
		source = github.NewLocalSource(conf.MockDataDir)
	} else {
		source = github.NewClient(conf.Github.Token, github.Target{
			Scope:        scope,
			Enterprise:   conf.Github.Enterprise,
			Organization: conf.Github.Organization,
			Team:         conf.Github.Team,
		}, logger)
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(pprof.New())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	server := api.NewServer(source, scope, conf.InactivityDays, logger)
	server.Register(app)

	if err := app.Listen(conf.ListenAddress); err != nil {
		panic(err)
	}
}

func initLogger(debug bool) *zap.Logger {
	var l *zap.Logger
	var err error
	if debug {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return l
}
