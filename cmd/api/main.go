package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cartkeeper/internal/config"
	"cartkeeper/internal/handler"
	"cartkeeper/internal/infra/db"
	infraRepo "cartkeeper/internal/infra/repository"
	"cartkeeper/internal/job"
	"cartkeeper/internal/logger"
	"cartkeeper/internal/server"
	"cartkeeper/internal/usecase"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now()
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	//.envは無くてもよい（本番は環境変数）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.GoEnv, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	//DB接続
	gormDB, err := db.Connect(cfg.DSN())
	if err != nil {
		return err
	}
	if err := db.Migrate(gormDB); err != nil {
		return err
	}

	//usecaseに渡す部品
	txm := infraRepo.NewTxManagerGorm(gormDB)
	clock := &realClock{}

	//Usecase生成
	cartUC := usecase.NewCartUsecase(txm, clock, log.Named("cart"))
	lifecycleUC := usecase.NewCartLifecycleUsecase(txm, clock, log.Named("sweeper"), usecase.LifecycleConfig{
		InactivityThreshold: cfg.InactivityThreshold,
		DeletionThreshold:   cfg.DeletionThreshold,
		DeletionMode:        cfg.DeletionMode,
		Workers:             cfg.SweepWorkers,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//sweeperはサーバーと同じプロセスで回す
	sched := job.NewScheduler(lifecycleUC, cfg.SweepInterval, log.Named("scheduler"))
	schedDone := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(schedDone)
	}()

	//Server起動
	e := server.New(log.Named("http"), handler.NewCartHandler(cartUC))
	addr := cfg.Port
	if addr[0] != ':' {
		addr = ":" + addr
	}

	err = server.Start(ctx, e, addr, log)
	stop()
	<-schedDone

	if err != nil {
		log.Error("server stopped with error", zap.Error(err))
		return err
	}
	log.Info("bye")
	return nil
}
