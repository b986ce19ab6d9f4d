package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/Confinamiento-api/internal/application/finance"
	"github.com/jhoicas/Confinamiento-api/internal/application/lot"
	"github.com/jhoicas/Confinamiento-api/internal/application/pen"
	"github.com/jhoicas/Confinamiento-api/internal/application/txctl"
	"github.com/jhoicas/Confinamiento-api/internal/domain/repository"
	"github.com/jhoicas/Confinamiento-api/internal/infrastructure/kafka"
	"github.com/jhoicas/Confinamiento-api/internal/infrastructure/memory"
	"github.com/jhoicas/Confinamiento-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/Confinamiento-api/internal/interfaces/http"
	"github.com/jhoicas/Confinamiento-api/internal/scheduler"
	"github.com/jhoicas/Confinamiento-api/pkg/config"
	"github.com/jhoicas/Confinamiento-api/pkg/logger"
	"github.com/jhoicas/Confinamiento-api/pkg/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.Store.Driver).
		Msg("iniciando aplicación")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	ctx := context.Background()

	// Persistencia: PostgreSQL en producción, memoria para demos locales.
	var (
		runner repository.TxRunner
		pool   *pgxpool.Pool
		ping   func(context.Context) error
	)
	switch cfg.Store.Driver {
	case "memory":
		log.Warn().Msg("usando almacenamiento en memoria: los datos se pierden al reiniciar")
		runner = memory.NewStore()
		ping = func(context.Context) error { return nil }
	default:
		pool, err = postgres.NewPool(ctx, cfg.DB, log.Component("postgres"))
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		txRunner := postgres.NewTxRunner(pool)
		runner = txRunner
		ping = txRunner.Ping
	}

	txCtl := txctl.New(runner, txctl.Config{
		Timeout:        cfg.Engine.TxTimeout,
		MaxAttempts:    cfg.Engine.TxMaxAttempts,
		BackoffInitial: cfg.Engine.BackoffInitial,
		BackoffMax:     cfg.Engine.BackoffMax,
	}, log.Component("txctl"), m)

	var publisher lot.Publisher = lot.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		kp := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log.Component("kafka"))
		defer func() {
			if err := kp.Close(); err != nil {
				log.Error().Err(err).Msg("cerrar publicador kafka")
			}
		}()
		publisher = kp
	}

	financeSync := finance.NewSynchronizer(txCtl, log.Component("finance"), m, nil)
	lotUC := lot.NewUseCase(txCtl, financeSync, publisher, log.Component("lot"), m, lot.Config{
		CodeMaxAttempts: cfg.Engine.CodeMaxAttempts,
	})
	penUC := pen.NewUseCase(txCtl, nil)

	if cfg.Reconcile.Cron != "" {
		reconciler, err := scheduler.NewReconciler(cfg.Reconcile.Cron, cfg.Reconcile.BatchSize, financeSync, log.Component("scheduler"))
		if err != nil {
			log.Fatal().Err(err).Msg("configurar reconciliación periódica")
		}
		if err := reconciler.Start(); err != nil {
			log.Fatal().Err(err).Msg("iniciar reconciliación periódica")
		}
		defer reconciler.Stop()
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Confinamiento API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		if err := ping(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "service": cfg.App.Name})
		}
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	httpRouter.Router(app, httpRouter.RouterDeps{
		LotUC:     lotUC,
		PenUC:     penUC,
		Finance:   financeSync,
		JWTSecret: cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
