package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/Ramsey-B/laurel/config"
	"github.com/Ramsey-B/laurel/internal/handlers"
	answerrepo "github.com/Ramsey-B/laurel/internal/repositories/answer"
	"github.com/Ramsey-B/laurel/internal/repositories/employee"
	"github.com/Ramsey-B/laurel/internal/repositories/orgunit"
	"github.com/Ramsey-B/laurel/internal/repositories/questionsnapshot"
	"github.com/Ramsey-B/laurel/internal/repositories/questiontemplate"
	reviewrepo "github.com/Ramsey-B/laurel/internal/repositories/review"
	"github.com/Ramsey-B/laurel/internal/repositories/scanlog"
	userrepo "github.com/Ramsey-B/laurel/internal/repositories/user"
	"github.com/Ramsey-B/laurel/internal/services/answers"
	"github.com/Ramsey-B/laurel/internal/services/hierarchy"
	"github.com/Ramsey-B/laurel/internal/services/questionnaire"
	reviewsvc "github.com/Ramsey-B/laurel/internal/services/review"
	"github.com/Ramsey-B/laurel/pkg/database"
	"github.com/Ramsey-B/laurel/pkg/events"
	"github.com/Ramsey-B/laurel/pkg/health"
	"github.com/Ramsey-B/laurel/pkg/kafka"
	"github.com/Ramsey-B/laurel/pkg/middleware"
	"github.com/Ramsey-B/laurel/pkg/redis"
	"github.com/Ramsey-B/laurel/pkg/scheduler"
	"github.com/Ramsey-B/laurel/pkg/startup"
	"github.com/Ramsey-B/laurel/pkg/tracing"
	"github.com/Ramsey-B/laurel/pkg/tracing/exporters"
)

const serviceVersion = "1.0.0"

// dependency adapts start/stop funcs to the startup graph.
type dependency struct {
	name      string
	dependsOn []string
	start     func(ctx context.Context) error
	stop      func(ctx context.Context) error
}

func (d *dependency) GetName() string     { return d.name }
func (d *dependency) DependsOn() []string { return d.dependsOn }

func (d *dependency) Start(ctx context.Context) error { return d.start(ctx) }
func (d *dependency) Stop(ctx context.Context) error {
	if d.stop == nil {
		return nil
	}
	return d.stop(ctx)
}

func main() {
	// .env is optional; real deployments configure through the environment
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger := newLogger(&cfg)

	shutdownTracing := setupTracing(&cfg, logger)
	defer shutdownTracing()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, &cfg, logger); err != nil {
		logger.WithError(err).Error("Service exited with error")
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) ectologger.Logger {
	var zapLogger *zap.Logger
	var err error
	if cfg.PrettyLogs {
		zapLogger, err = zap.NewDevelopment()
	} else {
		zapLogger, err = zap.NewProduction()
	}
	if err != nil {
		panic(fmt.Sprintf("failed to build logger: %v", err))
	}

	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func setupTracing(cfg *config.Config, logger ectologger.Logger) func() {
	var exporter sdktrace.SpanExporter = &exporters.ConsoleExporter{}

	if cfg.TracingEnabled {
		otlp, err := exporters.NewOTLPExporter(context.Background(), exporters.OTLPConfig{
			Endpoint: cfg.TracingOTLPEndpoint,
			Protocol: cfg.TracingOTLPProtocol,
			Insecure: true,
			Timeout:  10 * time.Second,
		})
		if err != nil {
			logger.WithError(err).Warn("Failed to create OTLP exporter, traces will be dropped")
		} else {
			exporter = otlp
		}
	}

	shutdown := tracing.Setup(cfg.AppName, exporter)
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdown(ctx)
	}
}

func run(ctx context.Context, cfg *config.Config, logger ectologger.Logger) error {
	var (
		db                   database.DB
		sqlDB                *sqlx.DB
		redisClient          *redis.Client
		producer             *kafka.Producer
		sched                *scheduler.Scheduler
		e                    *echo.Echo
		reviewService        *reviewsvc.Service
		answerService        *answers.Service
		questionnaireService *questionnaire.Service
	)

	checker := health.NewChecker(serviceVersion)

	boot := startup.NewStartup(logger, cfg.StartupMaxAttempts)

	boot.AddDependency(&dependency{
		name: "database",
		start: func(ctx context.Context) error {
			dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
				cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName, cfg.DatabasePassword,
				cfg.DatabaseName, cfg.DatabaseSSLMode)

			var err error
			sqlDB, err = sqlx.ConnectContext(ctx, "postgres", dsn)
			if err != nil {
				return err
			}

			sqlDB.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
			sqlDB.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
			sqlDB.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)

			driver, err := migratepg.WithInstance(sqlDB.DB, &migratepg.Config{})
			if err != nil {
				return err
			}

			migrations := database.NewMigrationService(logger, &database.MigrationConfig{
				MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
				Version:             uint(cfg.DatabaseMigrationVersion),
				Force:               cfg.DatabaseMigrationForce,
			})
			if err = migrations.Migrate(cfg.DatabaseName, driver); err != nil {
				return err
			}

			db = database.NewDatabaseInstance(sqlDB, logger)
			checker.AddCheck("database", sqlDB)
			return nil
		},
		stop: func(ctx context.Context) error {
			if sqlDB != nil {
				return sqlDB.Close()
			}
			return nil
		},
	})

	boot.AddDependency(&dependency{
		name: "redis",
		start: func(ctx context.Context) error {
			var err error
			redisClient, err = redis.NewClient(redis.Config{
				Host:     cfg.RedisHost,
				Port:     cfg.RedisPort,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			}, logger)
			if err != nil {
				return err
			}

			checker.AddCheck("redis", health.PingerFunc(redisClient.Ping))
			return nil
		},
		stop: func(ctx context.Context) error {
			if redisClient != nil {
				return redisClient.Close()
			}
			return nil
		},
	})

	boot.AddDependency(&dependency{
		name: "kafka",
		start: func(ctx context.Context) error {
			if !cfg.KafkaEnabled {
				logger.Info("Kafka disabled, audit events will not be published")
				return nil
			}
			producer = kafka.NewProducer(kafka.ParseConfig(cfg.KafkaBrokers, cfg.KafkaAuditTopic), logger)
			return nil
		},
		stop: func(ctx context.Context) error {
			if producer != nil {
				return producer.Close()
			}
			return nil
		},
	})

	boot.AddDependency(&dependency{
		name:      "services",
		dependsOn: []string{"database", "kafka"},
		start: func(ctx context.Context) error {
			reviewService, answerService, questionnaireService = buildServices(db, producer, logger)
			return nil
		},
	})

	boot.AddDependency(&dependency{
		name:      "scheduler",
		dependsOn: []string{"services", "redis"},
		start: func(ctx context.Context) error {
			locker := redis.NewLocker(redisClient, "laurel:")
			sched = scheduler.NewScheduler(reviewService, locker, scheduler.Config{
				ScanInterval: time.Duration(cfg.ScanIntervalMinutes) * time.Minute,
				LockTTL:      time.Duration(cfg.ScanLockTTLMinutes) * time.Minute,
			}, logger)

			return sched.Start(ctx)
		},
		stop: func(ctx context.Context) error {
			if sched != nil {
				return sched.Stop(ctx)
			}
			return nil
		},
	})

	boot.AddDependency(&dependency{
		name:      "http",
		dependsOn: []string{"services"},
		start: func(ctx context.Context) error {
			e = buildServer(cfg, reviewService, answerService, questionnaireService, checker, logger)

			go func() {
				addr := fmt.Sprintf(":%d", cfg.Port)
				if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
					logger.WithError(err).Error("HTTP server stopped unexpectedly")
				}
			}()
			return nil
		},
		stop: func(ctx context.Context) error {
			if e != nil {
				return e.Shutdown(ctx)
			}
			return nil
		},
	})

	if err := boot.Start(ctx); err != nil {
		return err
	}

	checker.SetReady(true)
	logger.Infof("%s started on port %d", cfg.AppName, cfg.Port)

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return boot.Stop(stopCtx)
}

// buildServices wires the repositories and services once; the scheduler and
// the HTTP server share the same instances.
func buildServices(db database.DB, producer *kafka.Producer, logger ectologger.Logger) (*reviewsvc.Service, *answers.Service, *questionnaire.Service) {
	emitter := newEmitter(producer, logger)

	employees := employee.NewRepository(db, logger)
	reviews := reviewrepo.NewRepository(db, logger)
	snapshots := questionsnapshot.NewRepository(db, logger)
	scanLogs := scanlog.NewRepository(db, logger)
	users := userrepo.NewRepository(db, logger)
	orgUnits := orgunit.NewRepository(db, logger)
	answerRepo := answerrepo.NewRepository(db, logger)
	templates := questiontemplate.NewRepository(db, logger)

	resolver := hierarchy.NewResolver(orgUnits, logger)
	reviewService := reviewsvc.NewService(db, employees, reviews, snapshots, scanLogs, users, resolver, emitter, logger)
	answerService := answers.NewService(db, reviews, reviewService, snapshots, answerRepo, emitter, logger)
	questionnaireService := questionnaire.NewService(templates, logger)

	return reviewService, answerService, questionnaireService
}

func newEmitter(producer *kafka.Producer, logger ectologger.Logger) *events.Emitter {
	if producer == nil {
		return events.NewEmitter(nil, logger)
	}
	return events.NewEmitter(producer, logger)
}

// buildServer assembles the echo server with middleware and routes.
func buildServer(cfg *config.Config, reviewService *reviewsvc.Service, answerService *answers.Service, questionnaireService *questionnaire.Service, checker *health.Checker, logger ectologger.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second
	e.Server.ReadHeaderTimeout = time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second
	e.Server.MaxHeaderBytes = cfg.MaxHeaderBytes

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	e.HTTPErrorHandler = middleware.Error(logger)

	checker.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1", middleware.RequireUser())

	reviewHandler := handlers.NewReviewHandler(reviewService, answerService, logger)
	reviewHandler.Register(api.Group("/reviews"))

	admin := api.Group("", middleware.RequireRole(reviewsvc.RoleHR, reviewsvc.RoleAdmin))

	questionnaireHandler := handlers.NewQuestionnaireHandler(questionnaireService, logger)
	questionnaireHandler.Register(admin.Group("/questionnaires"))

	scanHandler := handlers.NewScanHandler(reviewService, logger)
	scanHandler.Register(admin.Group("/reviews"))

	return e
}
