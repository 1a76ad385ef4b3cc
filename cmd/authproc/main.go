package main

import (
	"fmt"
	"log"
	"net/http/httputil"
	"net/url"

	"github.com/getkayan/authproc/adapters"
	"github.com/getkayan/authproc/api"
	"github.com/getkayan/authproc/config"
	"github.com/getkayan/authproc/filters"
	"github.com/getkayan/authproc/logger"
	"github.com/getkayan/authproc/oauth2"
	"github.com/getkayan/authproc/persistence"
	"github.com/getkayan/authproc/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger.InitLogger(cfg.LogLevel)
	defer logger.Log.Sync()

	logger.Log.Info("starting authproc gateway",
		zap.Int("port", cfg.Port),
		zap.String("upstream", cfg.Upstream),
	)

	db, err := persistence.Open(cfg.DBType, cfg.DSN, nil)
	if err != nil {
		logger.Log.Fatal("failed to open database", zap.Error(err))
	}

	clients := oauth2.NewGormClientStore(db)
	if err := clients.AutoMigrate(); err != nil {
		logger.Log.Fatal("failed to migrate client registry", zap.Error(err))
	}

	var markers session.MarkerStore
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		markers = session.NewRedisMarkerStore(rdb, "", cfg.SessionTTL)
	} else {
		gm := session.NewGormMarkerStore(db, cfg.SessionTTL)
		if err := gm.AutoMigrate(); err != nil {
			logger.Log.Fatal("failed to migrate marker store", zap.Error(err))
		}
		markers = gm
	}

	sessions := session.NewManager([]byte(cfg.SessionSecret), cfg.SessionTTL)
	adapter := adapters.NewRESTAdapter(cfg.AdapterURL, cfg.AdapterToken)
	assertions := filters.HeaderAssertionSource{}

	deps := filters.Deps{
		Adapter:     adapter,
		Clients:     clients,
		Markers:     markers,
		Sessions:    sessions,
		Assertions:  assertions,
		DB:          db,
		Tracer:      otel.Tracer("github.com/getkayan/authproc"),
		Issuer:      cfg.Issuer,
		WarningPath: cfg.WarningPath,
	}

	built, err := filters.BuildAll(cfg.Filters, filters.DefaultRegistry(), deps)
	if err != nil {
		logger.Log.Fatal("failed to build filter pipeline", zap.Error(err))
	}

	gate := filters.NewGate(cfg.AuthorizePath, cfg.DeviceCodePath)
	resolver := filters.NewResolver(clients, adapter, assertions, cfg.UserIdentifierAttribute)
	pipeline := filters.NewPipeline(gate, resolver, built)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Log.Info("request",
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
			)
			return nil
		},
	}))

	// The warning page acknowledges the first configured test-service
	// filter, if any.
	for _, fc := range cfg.Filters {
		if fc.Kind == filters.KindTestServiceWarning && fc.IsEnabled() {
			h := api.NewHandler(markers, sessions, cfg.Issuer, cfg.WarningPath, fc.Name)
			h.RegisterRoutes(e)
			break
		}
	}

	upstream, err := url.Parse(cfg.Upstream)
	if err != nil {
		logger.Log.Fatal("invalid upstream URL", zap.Error(err))
	}
	proxy := httputil.NewSingleHostReverseProxy(upstream)
	e.Any("/*", echo.WrapHandler(proxy), pipeline.Middleware())

	if err := e.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil {
		logger.Log.Fatal("server failed to start", zap.Error(err))
	}
}
