package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gardenlog/internal/config"
	"github.com/gardenlog/internal/db"
	"github.com/gardenlog/internal/handler"
	"github.com/gardenlog/internal/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}

	// 可选的演示账号
	if err := db.EnsureUser(cfg.SeedUserPseudo, cfg.SeedUserPassword); err != nil {
		logger.Warn("failed to ensure seed user", zap.Error(err))
	}

	api := handler.NewAPI(db.DB, logger, handler.Options{
		TokenSecret:    cfg.TokenSecret,
		TokenTTL:       cfg.TokenTTL,
		UploadDir:      cfg.UploadDir,
		UploadURL:      cfg.UploadURLPath,
		PushGatewayURL: cfg.PushGatewayURL,
		WatcherTick:    cfg.WatcherTick,
	})

	// 后台健康扫描任务随服务生命周期运行
	jobCtx, stopJob := context.WithCancel(context.Background())
	go api.StatusJob().Run(jobCtx, cfg.StatusJobInterval)

	r := router.SetupRouter(api, router.Options{
		SessionSecret: cfg.SessionSecret,
		UploadDir:     cfg.UploadDir,
		UploadURLPath: cfg.UploadURLPath,
	})

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: r,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", cfg.ListenAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to run server", zap.Error(err))
		}
	}()

	// 优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	stopJob()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
}
