package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/xxz807/finledger/internal/ledger/adapter/cache"
	"github.com/xxz807/finledger/internal/ledger/adapter/repo"
	"github.com/xxz807/finledger/internal/ledger/api"
	"github.com/xxz807/finledger/internal/ledger/domain"
	"github.com/xxz807/finledger/internal/ledger/service"
	platformcache "github.com/xxz807/finledger/internal/platform/cache"
	"github.com/xxz807/finledger/internal/platform/config"
	"github.com/xxz807/finledger/internal/platform/database"
	"github.com/xxz807/finledger/internal/platform/logger"
	"github.com/xxz807/finledger/internal/platform/server"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// 2. 初始化基础设施
	appLogger, err := logger.NewLogger(cfg.Server.Mode)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	db, err := database.NewDB(cfg.Database)
	if err != nil {
		appLogger.Fatal("connect database", zap.Error(err))
	}
	if err := database.AutoMigrate(db, domain.Models()...); err != nil {
		appLogger.Fatal("migrate database", zap.Error(err))
	}

	// Redis 可选，未配置时直接读库
	var balanceCache service.AccountCache
	if cfg.Redis.Addr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		client, err := platformcache.NewRedisClient(ctx, cfg.Redis)
		cancel()
		if err != nil {
			appLogger.Fatal("connect redis", zap.Error(err))
		}
		defer client.Close()
		balanceCache = cache.NewRedisBalanceCache(client, cfg.Redis.TTL)
	}

	// 3. 依赖注入
	uow := repo.NewUnitOfWork(db, cfg.Ledger.RowLocking)
	ledgerSvc := service.NewLedgerService(uow, appLogger, service.Options{
		ExpensePolicy: domain.ExpensePolicy(cfg.Ledger.ExpensePolicy),
		MaxRetries:    cfg.Ledger.MaxRetries,
		RetryBase:     cfg.Ledger.RetryBase,
	}, balanceCache)
	ledgerHandler := api.NewLedgerHandler(ledgerSvc)

	srv := server.NewServer(appLogger, cfg.Server.Port, cfg.Server.Mode, ledgerHandler)

	// 4. 启动服务，收到信号后优雅停机
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			appLogger.Fatal("server stopped", zap.Error(err))
		}
	case sig := <-quit:
		appLogger.Info("shutting down", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			appLogger.Error("graceful shutdown failed", zap.Error(err))
		}
	}
}
