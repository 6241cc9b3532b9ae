package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	_ "github.com/jhoicas/inventory-engine/docs"
	"github.com/jhoicas/inventory-engine/internal/app"
	"github.com/jhoicas/inventory-engine/internal/application/audit"
	"github.com/jhoicas/inventory-engine/internal/application/inventory"
	"github.com/jhoicas/inventory-engine/internal/application/reservation"
	"github.com/jhoicas/inventory-engine/internal/domain/repository"
	"github.com/jhoicas/inventory-engine/internal/infrastructure/eventbus"
	"github.com/jhoicas/inventory-engine/internal/infrastructure/kafka"
	"github.com/jhoicas/inventory-engine/internal/infrastructure/memory"
	"github.com/jhoicas/inventory-engine/internal/infrastructure/postgres"
	infraredis "github.com/jhoicas/inventory-engine/internal/infrastructure/redis"
	httpRouter "github.com/jhoicas/inventory-engine/internal/interfaces/http"
	"github.com/jhoicas/inventory-engine/pkg/clock"
	"github.com/jhoicas/inventory-engine/pkg/config"
	"github.com/jhoicas/inventory-engine/pkg/logger"
	"github.com/jhoicas/inventory-engine/pkg/telemetry"
)

// @title                       Inventory Engine API
// @version                     1.0
// @description                 Motor de movimientos y reservas de inventario: libro, existencias, reservas, traslados y conteos cíclicos.
// @BasePath                    /
// @securityDefinitions.apikey  Bearer
// @in                          header
// @name                        Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	zl := log.Zerolog()
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.Storage.Driver).
		Str("sequence", cfg.Sequence.Backend).
		Str("eventbus", cfg.EventBus.Driver).
		Msg("iniciando aplicación")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Otel, cfg.App.Env)
	if err != nil {
		log.Fatal().Err(err).Msg("configurar OpenTelemetry")
	}

	// Persistencia
	var (
		txRunner inventory.TxRunner
		counter  repository.SequenceCounter
	)
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DB, zl)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		if err := postgres.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("migrar esquema")
		}
		txRunner = postgres.NewTxRunner(pool)
		if cfg.Sequence.Backend == config.DriverPostgres {
			seqPool, err := postgres.NewPool(ctx, cfg.DB.ForSequences(), zl)
			if err != nil {
				log.Fatal().Err(err).Msg("pool de secuencias")
			}
			defer seqPool.Close()
			counter = postgres.NewSequenceCounter(seqPool)
		}
	default:
		log.Warn().Msg("STORAGE_DRIVER=memory: los datos se pierden al reiniciar")
		txRunner = memory.NewStore()
	}

	// Numeración
	switch cfg.Sequence.Backend {
	case config.DriverRedis:
		client, err := infraredis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer func(c *goredis.Client) { _ = c.Close() }(client)
		counter = infraredis.NewSequenceCounter(client)
	case config.DriverMemory:
		counter = memory.NewSequenceCounter()
	}

	// Eventos: en proceso o Kafka (publicación aquí, proyección en el consumidor)
	var (
		bus      *eventbus.Bus
		producer *kafka.Publisher
	)
	engine := app.NewEngine(app.Deps{
		TxRunner: txRunner,
		Counter:  counter,
		Clock:    clock.System{},
		Log:      zl,
		Publishers: func(projector *audit.Projector) inventory.EventPublisher {
			if cfg.EventBus.Driver == config.DriverKafka {
				producer = kafka.NewPublisher(kafka.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic), zl)
				return producer
			}
			bus = eventbus.New(projector, cfg.EventBus.Workers, cfg.EventBus.Buffer, zl)
			return bus
		},
	})

	fiberApp := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	fiberApp.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	fiberApp.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Inventory Engine API",
	}))

	httpRouter.Router(fiberApp, httpRouter.RouterDeps{
		AppName:          cfg.App.Name,
		WarehouseUC:      engine.Warehouses,
		RegisterMovement: engine.Movements,
		Stock:            engine.Stock,
		Reservations:     engine.Reservations,
		Transfers:        engine.Transfers,
		CycleCounts:      engine.CycleCounts,
		JWTSecret:        cfg.JWT.Secret,
		RequireAuth:      cfg.JWT.Required,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return fiberApp.Listen(cfg.HTTP.Addr())
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("señal de apagado recibida, cerrando servidor...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return fiberApp.ShutdownWithContext(shutdownCtx)
	})

	sweeper := reservation.NewSweeper(engine.Reservations, cfg.Reservations.SweepInterval, cfg.Reservations.SweepBatch, zl)
	g.Go(func() error {
		return sweeper.Run(gctx)
	})

	if cfg.EventBus.Driver == config.DriverKafka {
		consumer := kafka.NewConsumer(kafka.NewReader(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID), engine.Projector, zl)
		g.Go(func() error {
			defer consumer.Close()
			return consumer.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("aplicación finalizada con error")
	}

	// Vaciar eventos pendientes antes de cerrar la persistencia
	if bus != nil {
		bus.Close()
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Error().Err(err).Msg("cerrar productor Kafka")
		}
	}
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTelemetry(flushCtx); err != nil {
		log.Error().Err(err).Msg("apagado de telemetría")
	}

	log.Info().Msg("aplicación detenida")
}
