package job

import (
	"context"
	"time"

	"cartkeeper/internal/usecase"

	"go.uber.org/zap"
)

// CartLifecycleUsecaseのうちschedulerが使う部分
type Sweeper interface {
	RunMarkAbandoned(ctx context.Context) (usecase.MarkAbandonedOutput, error)
	RunDeleteOldAbandoned(ctx context.Context) (usecase.DeleteOldAbandonedOutput, error)
}

// Scheduler は放棄判定→削除の順でsweepを定期実行する。
type Scheduler struct {
	sweeper  Sweeper
	interval time.Duration
	log      *zap.Logger
}

func NewScheduler(sweeper Sweeper, interval time.Duration, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{sweeper: sweeper, interval: interval, log: log}
}

// Run は起動直後に1回、その後interval毎に実行する。ctxのキャンセルで戻る。
// 前回のsweepが終わるまで次は始めない。
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info("cart sweeper started", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.RunOnce(ctx)

		select {
		case <-ctx.Done():
			s.log.Info("cart sweeper stopped")
			return
		case <-ticker.C:
		}
	}
}

// RunOnce は両方のsweepを1回ずつ実行する。
// 片方が失敗してももう片方は実行する。
func (s *Scheduler) RunOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	if _, err := s.sweeper.RunMarkAbandoned(ctx); err != nil {
		s.log.Error("mark abandoned sweep failed", zap.Error(err))
	}

	if ctx.Err() != nil {
		return
	}

	if _, err := s.sweeper.RunDeleteOldAbandoned(ctx); err != nil {
		s.log.Error("delete old abandoned sweep failed", zap.Error(err))
	}
}
