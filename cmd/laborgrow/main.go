package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"laborgrow/internal/api/handler"
	"laborgrow/internal/api/router"
	"laborgrow/internal/authsvc"
	"laborgrow/internal/config"
	"laborgrow/internal/constants"
	"laborgrow/internal/geo"
	appCoreLogger "laborgrow/internal/logger"
	"laborgrow/internal/processor"
	"laborgrow/internal/storage"
	"laborgrow/internal/tracing"
)

func main() {
	initLogger()

	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "internal/config/config.yaml", "Path to config file")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		glog.Fatalf("failed to load config: %v", err)
	}
	glog.Info("config loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		glog.Warnf("tracing disabled: %v", err)
	}

	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		glog.Fatalf("failed to initialize storage: %v", err)
	}
	defer storageManager.Close()
	glog.Info("storage initialized")

	if storageManager.RabbitMQ != nil {
		if err := storageManager.RabbitMQ.EnsureExchange(constants.JobEventsExchange, "topic", true); err != nil {
			glog.Warnf("failed to declare %s exchange, events disabled: %v", constants.JobEventsExchange, err)
		}
	}

	authProvider := authsvc.NewClient(&cfg.Auth)

	var geocoder geo.Geocoder
	if cfg.Geocoder.BaseURL != "" {
		var cache geo.Cache
		if storageManager.Redis != nil {
			cache = storageManager.Redis
		}
		geocoder = geo.NewHTTPGeocoder(&cfg.Geocoder, cache)
		glog.Info("geocoder initialized")
	} else {
		glog.Warn("geocoder not configured, postings will carry no resolved coordinates")
	}

	inserter := processor.NewAdaptiveInserter(storageManager.MySQL, processor.NewMySQLErrorClassifier())

	authHandler := handler.NewAuthHandler(cfg, storageManager, authProvider)
	jobHandler := handler.NewJobHandler(cfg, storageManager, geocoder, inserter)
	applicationHandler := handler.NewApplicationHandler(cfg, storageManager)
	adminHandler := handler.NewAdminHandler(cfg, storageManager, authProvider)

	h := server.New(
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
	)
	h.Use(func(c context.Context, ctx *app.RequestContext) {
		start := time.Now()
		ctx.Next(c)
		glog.CtxInfof(c, "%s %s -> %d (%s)",
			string(ctx.Method()), string(ctx.Path()), ctx.Response.StatusCode(), time.Since(start))
	})

	router.RegisterRoutes(h, cfg, authProvider, authHandler, jobHandler, applicationHandler, adminHandler)
	glog.Infof("HTTP server listening on %s", cfg.Server.Address)

	go func() {
		if err := h.Run(); err != nil {
			glog.Fatalf("HTTP server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	glog.Info("shutdown signal received")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		glog.Errorf("server shutdown failed: %v", err)
	}
	if shutdownTracing != nil {
		if err := shutdownTracing(shutdownCtx); err != nil {
			glog.Errorf("tracing shutdown failed: %v", err)
		}
	}
	glog.Info("shutdown complete")
}

func initLogger() {
	logFilePath := "logs/app.log"
	if err := os.MkdirAll(filepath.Dir(logFilePath), 0755); err != nil {
		log.Fatalf("failed to create log directory: %v", err)
	}
	fileWriter, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Fatalf("failed to open log file %s: %v", logFilePath, err)
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	}
	multiWriter := zerolog.MultiLevelWriter(consoleWriter, fileWriter)

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	zerolog.TimeFieldFormat = "15:04:05"

	logger := zerolog.New(multiWriter).With().Timestamp().Caller().Logger()
	appCoreLogger.Logger = logger
	zlog.Logger = logger

	glog.SetLogger(hertzadapter.From(appCoreLogger.Logger))
	glog.SetLevel(glog.LevelInfo)
}
