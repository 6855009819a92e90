package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cartkeeper/internal/config"
	"cartkeeper/internal/domain/model"
	"cartkeeper/internal/infra/db"
	infraRepo "cartkeeper/internal/infra/repository"
	"cartkeeper/internal/logger"
	"cartkeeper/internal/usecase"

	"github.com/joho/godotenv"
)

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now()
}

const usage = `usage: sweeper [flags] <mark-abandoned|delete-old-abandoned|all>`

// 外部のcronから1回だけ実行する用
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	mode := flag.String("mode", string(cfg.DeletionMode), "deletion mode (soft|hard)")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		return fmt.Errorf("command is required")
	}
	cmd := flag.Arg(0)

	lifecycle := usecase.LifecycleConfig{
		InactivityThreshold: cfg.InactivityThreshold,
		DeletionThreshold:   cfg.DeletionThreshold,
		Workers:             cfg.SweepWorkers,
	}
	if lifecycle.DeletionMode, err = model.ParseDeletionMode(*mode); err != nil {
		return err
	}

	log, err := logger.New(cfg.GoEnv, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	gormDB, err := db.Connect(cfg.DSN())
	if err != nil {
		return err
	}
	if err := db.Migrate(gormDB); err != nil {
		return err
	}

	uc := usecase.NewCartLifecycleUsecase(infraRepo.NewTxManagerGorm(gormDB), &realClock{}, log.Named("sweeper"), lifecycle)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "mark-abandoned":
		return markAbandoned(ctx, uc)
	case "delete-old-abandoned":
		return deleteOldAbandoned(ctx, uc)
	case "all":
		if err := markAbandoned(ctx, uc); err != nil {
			return err
		}
		return deleteOldAbandoned(ctx, uc)
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func markAbandoned(ctx context.Context, uc *usecase.CartLifecycleUsecase) error {
	out, err := uc.RunMarkAbandoned(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("run=%s marked=%d failed=%d\n", out.RunID, out.MarkedCount, out.FailedCount)
	return nil
}

func deleteOldAbandoned(ctx context.Context, uc *usecase.CartLifecycleUsecase) error {
	out, err := uc.RunDeleteOldAbandoned(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("run=%s mode=%s deleted=%d failed=%d\n", out.RunID, out.Mode, out.DeletedCount, out.FailedCount)
	return nil
}
