// Command server runs the reference-resolution migration proxy: the
// GET /export and POST /import HTTP surface spec §6 defines, wired the way
// orchid wires its own API (startup sequencing, then echo, then graceful
// shutdown), adapted since no teacher main.go survived retrieval.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectologger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Ramsey-B/refproxy/config"
	"github.com/Ramsey-B/refproxy/internal/handlers"
	"github.com/Ramsey-B/refproxy/internal/obs"
	"github.com/Ramsey-B/refproxy/pkg/health"
	"github.com/Ramsey-B/refproxy/pkg/httpclient"
	"github.com/Ramsey-B/refproxy/pkg/kafka"
	"github.com/Ramsey-B/refproxy/pkg/middleware"
	"github.com/Ramsey-B/refproxy/pkg/migration"
	"github.com/Ramsey-B/refproxy/pkg/ratelimit"
	"github.com/Ramsey-B/refproxy/pkg/redis"
	"github.com/Ramsey-B/refproxy/pkg/sourceapi"

	stemstartup "github.com/Ramsey-B/refproxy/internal/startup"
)

func main() {
	cfg := loadConfig()

	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := setupTracing(ctx, cfg)
	if err != nil {
		logger.WithError(err).Warn("tracing disabled: failed to initialize OTLP exporter")
	}
	defer shutdownTracer(context.Background())

	var redisClient *redis.Client
	var outboundLimiter *sourceapi.OutboundLimiter
	var auditProducer *kafka.Producer

	deps := stemstartup.New(logger, cfg.StartupMaxAttempts)

	if cfg.RedisEnabled {
		deps.AddDependency(stemstartup.Dependency{
			Name: "redis",
			StartFn: func(ctx context.Context) error {
				c, err := redis.NewClient(redis.Config{
					Host:     cfg.RedisHost,
					Port:     cfg.RedisPort,
					Password: cfg.RedisPassword,
					DB:       cfg.RedisDB,
				}, logger)
				if err != nil {
					return err
				}
				redisClient = c
				if cfg.OutboundRateLimit > 0 {
					manager := ratelimit.NewManager(redisClient, logger)
					outboundLimiter = sourceapi.NewOutboundLimiter(manager, "source", cfg.OutboundRateLimit, time.Duration(cfg.OutboundRateLimitWindowS)*time.Second)
				}
				return nil
			},
			StopFn: func(ctx context.Context) error {
				if redisClient == nil {
					return nil
				}
				return redisClient.Close()
			},
		})
	}

	if cfg.KafkaEnabled {
		deps.AddDependency(stemstartup.Dependency{
			Name:      "kafka",
			DependsOn: nil,
			StartFn: func(ctx context.Context) error {
				auditProducer = kafka.NewProducer(kafka.ParseConfig(cfg.KafkaBrokers, cfg.KafkaEventTopic, cfg.KafkaErrorTopic), logger)
				return nil
			},
			StopFn: func(ctx context.Context) error {
				if auditProducer == nil {
					return nil
				}
				return auditProducer.Close()
			},
		})
	}

	if err := deps.Start(ctx); err != nil {
		logger.WithError(err).Error("startup failed")
		os.Exit(1)
	}

	var goRedisClient *goredis.Client
	if redisClient != nil {
		goRedisClient = redisClient.Redis()
	}
	healthChecker := health.NewChecker(goRedisClient, cfg.Version)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.Error(logger)

	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))

	if cfg.AuthEnabled {
		authMW, err := middleware.Authentication(logger, cfg.AuthIssuerURL, cfg.AuthClientID)
		if err != nil {
			logger.WithError(err).Error("failed to configure authentication middleware")
			os.Exit(1)
		}
		e.Use(authMW)
	}

	httpClient := httpclient.NewClient(httpclient.DefaultConfig(), logger)

	newSourceClient := func(c echo.Context) *sourceapi.Client {
		headers := map[string]string{}
		if auth := c.Request().Header.Get("Authorization"); auth != "" {
			headers["Authorization"] = auth
		}
		client := sourceapi.New(httpClient, headers)
		if outboundLimiter != nil {
			client = client.WithLimiter(outboundLimiter)
		}
		return client
	}

	v1 := e.Group("/api/v1")
	v1.GET("/export", handlers.NewExportHandler(newSourceClient, func(c *sourceapi.Client) *migration.Exporter {
		return migration.NewExporter(c, logger, auditProducer)
	}, logger, cfg.RecordURLBase).Handle)
	v1.POST("/import", handlers.NewImportHandler(newSourceClient, func(c *sourceapi.Client) *migration.Importer {
		return migration.NewImporter(c, logger, auditProducer)
	}, logger).Handle)

	healthChecker.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	healthChecker.SetReady(true)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Infof("refproxy listening on %s", addr)
		srv := &http.Server{
			Addr:              addr,
			Handler:           e,
			ReadTimeout:       time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second,
			WriteTimeout:      time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second,
			IdleTimeout:       time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second,
			ReadHeaderTimeout: time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second,
			MaxHeaderBytes:    cfg.MaxHeaderBytes,
		}
		if err := e.StartServer(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("server failed")
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	healthChecker.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("graceful shutdown did not complete cleanly")
	}
	if err := deps.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Warn("dependency shutdown did not complete cleanly")
	}
}

// loadConfig reads config.Config from the environment via ectoenv, falling
// back to its env-default tags, by passing a pointer to the struct to
// ectoenv.BindEnv.
func loadConfig() *config.Config {
	cfg := &config.Config{}
	if err := ectoenv.BindEnv(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func setupTracing(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if !cfg.OTLPEnabled {
		return noop, nil
	}

	exporter, err := obs.NewOTLPExporter(ctx, obs.OTLPConfig{
		Endpoint: cfg.OTLPEndpoint,
		Protocol: cfg.OTLPProtocol,
		Insecure: cfg.OTLPInsecure,
		Timeout:  10 * time.Second,
	})
	if err != nil {
		return noop, err
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.AppName),
		semconv.ServiceVersion(cfg.Version),
	))
	if err != nil {
		res = resource.Default()
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	obs.SetTracer(tp.Tracer(cfg.AppName))

	return tp.Shutdown, nil
}

