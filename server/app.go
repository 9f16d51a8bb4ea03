package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kaska/config"
	"kaska/internal/accidents"
	"kaska/internal/analytics"
	"kaska/internal/auth"
	"kaska/internal/db"
	"kaska/internal/devices"
	"kaska/internal/health"
	"kaska/internal/helmets"
	"kaska/internal/logs"
	"kaska/internal/middleware"
	"kaska/internal/models"
	"kaska/internal/ratelimit"
	"kaska/internal/repo"
	"kaska/internal/telemetry"

	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type App struct {
	cfg        *config.Config
	db         *gorm.DB
	Router     *mux.Router
	httpServer *http.Server

	ctx    context.Context
	cancel context.CancelFunc
}

func (a *App) Initialize(cfg *config.Config) {
	a.cfg = cfg

	/* 1) Логи */
	logs.Init(logs.Options{
		Level:  a.cfg.Logging.Level,
		Format: a.cfg.Logging.Format,
		File:   a.cfg.Logging.File,
	})

	/* 2) DB */
	d, err := db.Open(a.cfg.Database.Driver, a.cfg.Database.DSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	a.db = d

	if err := a.db.AutoMigrate(
		&models.User{},
		&models.Helmet{},
		&models.Device{},
		&models.SensorReading{},
		&models.AccidentEvent{},
		&models.TripData{},
	); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	/* 3) Сторы и сервисы */
	users := repo.NewUserStore(a.db)
	helmetStore := repo.NewHelmetStore(a.db)
	deviceStore := repo.NewDeviceStore(a.db)
	readings := repo.NewReadingStore(a.db)
	accidentStore := repo.NewAccidentStore(a.db)
	trips := repo.NewTripStore(a.db)

	tokens := auth.NewTokens(a.cfg.Auth.JWTSecret, time.Duration(a.cfg.Auth.TokenTTLMin)*time.Minute)
	userMW := auth.UserAuth(tokens, users)

	limiter := ratelimit.NewSlidingWindow(
		a.cfg.Telemetry.RateLimit,
		time.Duration(a.cfg.Telemetry.RateWindowSec)*time.Second,
	)
	pipe := telemetry.NewPipeline(deviceStore, limiter, readings,
		time.Duration(a.cfg.Telemetry.StoreTimeoutSec)*time.Second)

	a.seedAdmin(users)

	/* 4) Router + middleware */
	a.Router = mux.NewRouter().StrictSlash(true)
	a.Router.Use(
		middleware.RequestID,
		middleware.Recoverer,
		middleware.LoggerMW,
	)

	health.RegisterRoutes(a.Router, a.db) // /healthz, /readyz

	auth.RegisterRoutes(a.Router, auth.NewHandler(users, tokens), userMW)
	devices.RegisterRoutes(a.Router, devices.NewHandler(deviceStore, helmetStore), userMW)
	telemetry.RegisterRoutes(a.Router, telemetry.NewHandler(deviceStore, readings, pipe))
	helmets.RegisterRoutes(a.Router, helmets.NewHandler(helmetStore), userMW)
	accidents.RegisterRoutes(a.Router, accidents.NewHandler(accidentStore, helmetStore), userMW)
	analytics.RegisterRoutes(a.Router, analytics.NewHandler(accidentStore, readings, helmetStore, trips), userMW)

	/* (необязательно) вывести известные маршруты в лог при старте */
	_ = a.Router.Walk(func(rt *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		path, _ := rt.GetPathTemplate()
		methods, _ := rt.GetMethods()
		if len(methods) == 0 {
			methods = []string{"ANY"}
		}
		log.Printf("route: %-6v %s", methods, path)
		return nil
	})
}

// seedAdmin заводит bootstrap-админа, если задан в конфиге и его ещё нет.
func (a *App) seedAdmin(users *repo.UserStore) {
	email := a.cfg.Auth.BootstrapAdminEmail
	pass := a.cfg.Auth.BootstrapAdminPassword
	if email == "" || pass == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := users.GetByEmail(ctx, email); err == nil {
		return
	}
	hash, err := auth.HashPassword(pass)
	if err != nil {
		logs.Logger.Errorf("seed admin: %v", err)
		return
	}
	u := models.User{Email: email, PasswordHash: hash, FirstName: "Admin", IsAdmin: true}
	if err := users.Create(ctx, &u); err != nil {
		logs.Logger.Errorf("seed admin: %v", err)
		return
	}
	logs.Logger.Infof("bootstrap admin created: %s", email)
}

func (a *App) Run() error {
	if a.Router == nil || a.cfg == nil {
		return fmt.Errorf("server not initialized")
	}

	bind := net.JoinHostPort(a.cfg.Server.Address, a.cfg.Server.HTTPPort)

	a.ctx, a.cancel = context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigs
		logs.Logger.Infof("shutdown signal: %s", s)
		a.cancel()
	}()

	// Жёсткие таймауты — это важно для production
	a.httpServer = &http.Server{
		Addr:              bind,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logs.Logger.Infof("HTTP listening on %s", bind)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logs.Logger.Fatalf("http server error: %v", err)
		}
	}()

	<-a.ctx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.httpServer.Shutdown(ctx); err != nil {
		logs.Logger.Errorf("http shutdown: %v", err)
	}
	return nil
}
