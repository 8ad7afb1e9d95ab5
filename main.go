package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/middleware"

	"github.com/curbsidehq/curbside/internal/auth"
	"github.com/curbsidehq/curbside/internal/mongo"
	"github.com/curbsidehq/curbside/internal/ordering"
	"github.com/curbsidehq/curbside/pkg"
	"github.com/curbsidehq/curbside/pkg/bus"
)

const (
	appNamespace = "CURBSIDE"
	appName      = "curbside"
	appVersion   = "0.1.0"
)

func main() {
	config, err := apt.LoadConfig(appNamespace, os.Args[1:])
	if err != nil {
		log.Fatalf("%s(%s) cannot setup: %v", appName, appVersion, err)
	}

	logLevel, _ := config.GetString("log.level")
	logger := apt.NewLogger(logLevel)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	defer stop()

	seedCtx, cancelSeeds := context.WithCancel(ctx)
	defer cancelSeeds()

	baseRepo := mongo.NewBaseRepo(config, logger)
	err = baseRepo.Start(ctx)
	if err != nil {
		log.Fatalf("%s(%s) cannot start base repository: %v", appName, appVersion, err)
	}

	db := baseRepo.GetDatabase()
	if db == nil {
		log.Fatalf("%s(%s) cannot initialize repository database: %v", appName, appVersion, errors.New("repository database is nil"))
	}

	orderRepo := mongo.NewOrderRepo(db)
	merchantRepo := mongo.NewMerchantRepo(db)

	eventBus := bus.New(logger)

	lifecycles := []interface{}{
		apt.LifecycleHooks{OnStop: baseRepo.Stop},
	}

	engineDeps := ordering.EngineDeps{
		Orders:    orderRepo,
		Merchants: merchantRepo,
		Bus:       eventBus,
	}

	// Order events are mirrored to NATS when a broker is configured; live
	// client streams never depend on it.
	natsURL, _ := config.GetString("nats.url")
	if natsURL != "" {
		pub, err := pkg.NewNATSPublisher(natsURL)
		if err != nil {
			log.Fatalf("%s(%s) cannot connect to NATS publisher: %v", appName, appVersion, err)
		}
		engineDeps.Relay = pub
		lifecycles = append(lifecycles, apt.LifecycleHooks{
			OnStop: func(context.Context) error {
				return pub.Close()
			},
		})
	}

	engine := ordering.NewEngine(engineDeps, logger)
	streams := ordering.NewStreamHandler(eventBus, orderRepo, logger)

	handler := ordering.NewHandler(ordering.HandlerDeps{
		Engine:  engine,
		Streams: streams,
	}, config, logger)

	authSecret, _ := config.GetString("auth.jwt_secret")
	if authSecret == "" {
		log.Fatalf("%s(%s) cannot setup: auth.jwt_secret is required", appName, appVersion)
	}
	authSvc := auth.NewService(authSecret, logger)

	// Setup demo seeding if enabled
	demoEnabled, _ := config.GetString("seeding.demo")
	if demoEnabled == "true" {
		logger.Info("Demo seeding enabled")
		lifecycles = append(lifecycles, apt.LifecycleHooks{
			OnStart: ordering.DemoSeedingFunc(seedCtx, merchantRepo, orderRepo, db, logger),
			OnStop: func(context.Context) error {
				cancelSeeds()
				return nil
			},
		})
	}

	stack := middleware.DefaultStack(middleware.StackOptions{
		Logger: logger,
	})
	stack = append(stack, authSvc.Middleware)

	options := []apt.Option{
		apt.WithConfig(config),
		apt.WithLogger(logger),
		apt.WithHTTPMiddleware(stack...),
		apt.WithHTTPServerModules("web.port", handler),
		apt.WithLifecycle(lifecycles...),
		apt.WithHealthChecks(appName),
	}

	ms := apt.NewMicro(options...)
	logger.Infof("Starting %s(%s)", appName, appVersion)

	err = ms.Run(ctx)
	if err != nil {
		_ = baseRepo.Stop(context.Background())
		log.Fatalf("%s(%s) stopped: %v", appName, appVersion, err)
	}

	logger.Infof("%s(%s) stopped", appName, appVersion)
}
