package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/pos-terminal/config"
	"github.com/yeremiapane/pos-terminal/database"
	"github.com/yeremiapane/pos-terminal/kds"
	"github.com/yeremiapane/pos-terminal/router"
	"github.com/yeremiapane/pos-terminal/services"
	"github.com/yeremiapane/pos-terminal/utils"
)

func main() {
	cfg := config.Load()
	utils.InitLogger(cfg.LogLevel)

	// Initialize DB
	db, err := config.InitDB(cfg)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to open ledger database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		utils.ErrorLogger.Fatalf("Failed to AutoMigrate: %v", err)
	}

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	hub := kds.NewHub()
	remote := services.NewRemoteClient(cfg.RemoteBaseURL, cfg.RemoteTimeout)
	tokens := utils.NewTokenManager(cfg.JWTSecret, cfg.SessionTTL)

	ledger, err := services.NewLedger(db, services.NewVoidPolicy(), services.SystemClock)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to open ledger: %v", err)
	}
	agent := services.NewSyncAgent(ledger, remote, services.SyncConfig{
		Interval:   cfg.SyncInterval,
		MaxBackoff: cfg.SyncMaxBackoff,
	}, services.SystemClock, hub)
	shifts := services.NewShiftManager(db, remote, ledger, services.SystemClock, hub)
	orders := services.NewOrderService(ledger, shifts, services.NewTaxCalculator(), agent, hub)

	r := router.SetupRouter(router.Deps{
		Tokens:              tokens,
		Auth:                services.NewAuthService(db, remote, tokens, services.SystemClock),
		Ledger:              ledger,
		Orders:              orders,
		Shifts:              shifts,
		Kitchen:             services.NewKitchenPipeline(remote),
		Sync:                agent,
		Hub:                 hub,
		CORSOrigin:          cfg.CORSOrigin,
		KitchenPollInterval: cfg.KitchenPollInterval,
	})

	// Set trusted proxies
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		utils.ErrorLogger.WithError(err).Warn("failed to set trusted proxies")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	agent.Start(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		utils.InfoLogger.Printf("Listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.ErrorLogger.Fatal(err)
		}
	}()

	<-ctx.Done()
	utils.InfoLogger.Println("Shutting down terminal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.ErrorLogger.WithError(err).Error("server shutdown failed")
	}
	agent.Stop()

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
