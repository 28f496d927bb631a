package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"samsariya-backend/background"
	"samsariya-backend/controller"
	"samsariya-backend/infra"
	"samsariya-backend/metrics"
	appMiddleware "samsariya-backend/middleware"
	"samsariya-backend/service"
	"samsariya-backend/service/interfaces"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Port int `help:"Port to listen on" short:"p" default:"8090"`
}

type AppServices struct {
	MongoDB  *infra.MongoDB
	Redis    *infra.Redis
	RabbitMQ *infra.RabbitMQ
}

var otelCleanup func()

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, options *Options) {
		if err := infra.LoadConfig(); err != nil {
			log.Fatal().
				Err(err).
				Msg("Failed to read config.yml")
		}

		infra.InitLogger()

		otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
		if otelEndpoint == "" {
			otelEndpoint = "localhost:4318"
		}

		otelConfig := appMiddleware.OtelConfig{
			ServiceName:     "samsariya-backend",
			ServiceVersion:  infra.AppConfig.App.AppVersion,
			Environment:     os.Getenv("ENV"),
			OTLPEndpoint:    otelEndpoint,
			Enabled:         true,
			DevelopmentMode: os.Getenv("ENV") != "production",
		}

		var err error
		otelCleanup, err = appMiddleware.InitOpenTelemetry(otelConfig, log.Logger)
		if err != nil {
			log.Fatal().
				Err(err).
				Msg("Failed to initialize OpenTelemetry")
		}

		infra.InitTracer()

		if err := appMiddleware.InitPrometheusMetrics(log.Logger); err != nil {
			log.Error().
				Err(err).
				Msg("Failed to initialize Prometheus metrics, continuing")
		}

		if err := metrics.InitServiceMetrics(appMiddleware.GetPrometheusRegistry()); err != nil {
			log.Error().
				Err(err).
				Msg("Failed to initialize service metrics, continuing")
		}

		log.Info().
			Int("port", options.Port).
			Msg("Starting Samsariya backend")

		services, err := initializeServices()
		if err != nil {
			log.Fatal().
				Err(err).
				Msg("Failed to initialize services")
		}

		router := chi.NewRouter()
		router.Use(middleware.Logger)
		router.Use(middleware.Recoverer)
		router.Use(middleware.RequestID)
		router.Use(middleware.Heartbeat("/ping"))

		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Link"},
			AllowCredentials: false,
			MaxAge:           300,
		}))

		apiConfig := huma.DefaultConfig("Samsariya Admin API", infra.AppConfig.App.AppVersion)
		apiConfig.Info.Description = "Order management API for the Samsariya chat ordering bot"
		apiConfig.Servers = []*huma.Server{
			{URL: fmt.Sprintf("http://localhost:%d", options.Port)},
		}

		api := humachi.New(router, apiConfig)
		api.UseMiddleware(appMiddleware.OpenTelemetryMiddleware(otelConfig, log.Logger))
		api.UseMiddleware(appMiddleware.PrometheusMiddleware(log.Logger))

		// Stores and domain services.
		cartService := service.NewCartService(log.Logger, services.MongoDB)
		notificationService := service.NewNotificationService(log.Logger, services.MongoDB)
		catalogService := service.NewCatalogService(log.Logger, services.MongoDB, services.Redis)
		reviewService := service.NewReviewService(log.Logger, services.MongoDB)
		textResolver := service.NewDefaultTextResolver()
		orderService := service.NewOrderService(log.Logger, services.MongoDB, services.RabbitMQ, notificationService, textResolver)

		// Initial catalog load; the dispatcher refreshes it afterwards.
		if err := catalogService.Refresh(context.Background()); err != nil {
			log.Error().
				Err(err).
				Msg("Initial catalog load failed, serving empty catalog until refresh")
		}

		var messenger interfaces.Messenger
		if infra.AppConfig.LINE.Enabled {
			lineMessenger, err := service.NewLineMessenger(log.Logger, infra.AppConfig.LINE.ChannelToken)
			if err != nil {
				log.Fatal().
					Err(err).
					Msg("Failed to initialize LINE messenger")
			}
			messenger = lineMessenger
			log.Info().Msg("LINE messenger initialized")
		} else {
			messenger = service.NewLogMessenger(log.Logger)
			log.Info().Msg("LINE is disabled, outgoing messages go to the log")
		}

		flowService := service.NewOrderFlowService(
			log.Logger,
			cartService,
			orderService,
			catalogService,
			messenger,
			textResolver,
			reviewService,
			infra.AppConfig.Payment.CardNumber,
		)

		orderController := controller.NewOrderController(log.Logger, orderService)
		orderController.RegisterRoutes(api)

		if infra.AppConfig.LINE.Enabled {
			lineController := controller.NewLineController(log.Logger, infra.AppConfig.LINE.ChannelSecret, flowService)
			lineController.RegisterRoutes(api)
		}

		router.Handle("/metrics", appMiddleware.GetStandardPrometheusHandler())

		registerHealthRoutes(api, services)

		dispatcher := background.NewNotificationDispatcher(
			log.Logger,
			notificationService,
			messenger,
			catalogService,
			services.RabbitMQ,
		)

		dispatcherCtx, stopDispatcher := context.WithCancel(context.Background())
		go dispatcher.Start(dispatcherCtx)

		hooks.OnStart(func() {
			log.Info().
				Int("port", options.Port).
				Str("docs_url", fmt.Sprintf("http://localhost:%d/docs", options.Port)).
				Msg("API docs enabled")
			server := &http.Server{
				Addr:    fmt.Sprintf(":%d", options.Port),
				Handler: router,
			}
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal().
						Err(err).
						Msg("Server failed to start")
				}
			}()
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit
			log.Info().Msg("Shutting down server...")

			stopDispatcher()

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				log.Error().
					Err(err).
					Msg("Server shutdown error")
			}
			if otelCleanup != nil {
				otelCleanup()
			}
			cleanupServices(services)
			log.Info().Msg("Server stopped")
		})
	})
	cli.Run()
}

// registerHealthRoutes exposes one health endpoint per infrastructure
// component plus an aggregate.
func registerHealthRoutes(api huma.API, services *AppServices) {
	type healthBody struct {
		Status  string  `json:"status" example:"healthy"`
		Latency float64 `json:"latency" example:"2.1" doc:"Check latency in milliseconds"`
		Message string  `json:"message,omitempty"`
	}
	type healthResponse struct {
		Body healthBody
	}

	check := func(name string, err error, latency float64) healthBody {
		body := healthBody{Status: "healthy", Latency: latency}
		isHealthy := err == nil
		if !isHealthy {
			body.Status = "unhealthy"
			body.Message = fmt.Sprintf("%s check failed: %v", name, err)
		}
		appMiddleware.UpdateInfrastructureHealth("samsariya-backend", name, isHealthy)
		return body
	}

	huma.Register(api, huma.Operation{
		OperationID: "health-mongodb",
		Method:      "GET",
		Path:        "/health/mongodb",
		Summary:     "MongoDB health check",
		Tags:        []string{"health"},
	}, func(ctx context.Context, _ *struct{}) (*healthResponse, error) {
		start := time.Now()
		err := services.MongoDB.Ping(ctx)
		latency := float64(time.Since(start).Nanoseconds()) / 1e6
		return &healthResponse{Body: check("mongodb", err, latency)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "health-redis",
		Method:      "GET",
		Path:        "/health/redis",
		Summary:     "Redis health check",
		Tags:        []string{"health"},
	}, func(ctx context.Context, _ *struct{}) (*healthResponse, error) {
		start := time.Now()
		var err error
		if services.Redis != nil {
			err = services.Redis.Client.Ping(ctx).Err()
		} else {
			err = fmt.Errorf("redis is not connected")
		}
		latency := float64(time.Since(start).Nanoseconds()) / 1e6
		return &healthResponse{Body: check("redis", err, latency)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "health-rabbitmq",
		Method:      "GET",
		Path:        "/health/rabbitmq",
		Summary:     "RabbitMQ health check",
		Tags:        []string{"health"},
	}, func(ctx context.Context, _ *struct{}) (*healthResponse, error) {
		start := time.Now()
		var err error
		if services.RabbitMQ == nil {
			err = fmt.Errorf("rabbitmq is not connected")
		}
		latency := float64(time.Since(start).Nanoseconds()) / 1e6
		return &healthResponse{Body: check("rabbitmq", err, latency)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      "GET",
		Path:        "/health",
		Summary:     "Aggregate health check",
		Tags:        []string{"health"},
	}, func(ctx context.Context, _ *struct{}) (*healthResponse, error) {
		start := time.Now()
		err := services.MongoDB.Ping(ctx)
		if err == nil && services.Redis != nil {
			err = services.Redis.Client.Ping(ctx).Err()
		}
		latency := float64(time.Since(start).Nanoseconds()) / 1e6
		return &healthResponse{Body: check("aggregate", err, latency)}, nil
	})
}

func initializeServices() (*AppServices, error) {
	mongoConfig := infra.MongoConfig{
		URI:      infra.AppConfig.MongoDB.URI,
		Database: infra.AppConfig.MongoDB.Database,
	}
	mongoDB, err := infra.NewMongoDB(mongoConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MongoDB: %w", err)
	}

	redisConfig := infra.RedisConfig{
		Addr:     infra.AppConfig.Redis.Addr,
		Password: infra.AppConfig.Redis.Password,
		DB:       infra.AppConfig.Redis.DB,
	}
	redisClient, err := infra.NewRedis(redisConfig)
	if err != nil {
		log.Error().
			Err(err).
			Msg("Redis connection failed (continuing)")
		redisClient = nil
	}

	rabbitConfig := infra.RabbitMQConfig{
		URL: infra.AppConfig.RabbitMQ.URL,
	}
	rabbitMQ, err := infra.NewRabbitMQ(rabbitConfig)
	if err != nil {
		log.Error().
			Err(err).
			Msg("RabbitMQ connection failed (continuing)")
		rabbitMQ = nil
	}

	return &AppServices{
		MongoDB:  mongoDB,
		Redis:    redisClient,
		RabbitMQ: rabbitMQ,
	}, nil
}

func cleanupServices(services *AppServices) {
	if services.MongoDB != nil {
		ctx := context.Background()
		if err := services.MongoDB.Close(ctx); err != nil {
			log.Error().
				Err(err).
				Msg("MongoDB close error")
		}
	}

	if services.Redis != nil {
		if err := services.Redis.Close(); err != nil {
			log.Error().
				Err(err).
				Msg("Redis close error")
		}
	}

	if services.RabbitMQ != nil {
		if err := services.RabbitMQ.Close(); err != nil {
			log.Error().
				Err(err).
				Msg("RabbitMQ close error")
		}
	}
}
