package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"cartkeeper/internal/domain/model"
	repo "cartkeeper/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// sweeperの設定
type LifecycleConfig struct {
	InactivityThreshold time.Duration
	DeletionThreshold   time.Duration
	DeletionMode        model.DeletionMode
	// 同時に処理するカート数
	Workers int
}

func DefaultLifecycleConfig() LifecycleConfig {
	return LifecycleConfig{
		InactivityThreshold: 3 * time.Hour,
		DeletionThreshold:   7 * 24 * time.Hour,
		DeletionMode:        model.DeletionModeSoft,
		Workers:             4,
	}
}

// CartLifecycleUsecase は放棄判定と放棄カートの削除を行う。
// カートごとに別トランザクションで処理し、1件の失敗で全体を止めない。
type CartLifecycleUsecase struct {
	tx       repo.TransactionManager
	clock    Clock
	log      *zap.Logger
	cfg      LifecycleConfig
	newRunID func() string
}

// DI
func NewCartLifecycleUsecase(tx repo.TransactionManager, clock Clock, log *zap.Logger, cfg LifecycleConfig) *CartLifecycleUsecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &CartLifecycleUsecase{
		tx:       tx,
		clock:    clock,
		log:      log,
		cfg:      cfg,
		newRunID: uuid.NewString,
	}
}

type MarkAbandonedOutput struct {
	RunID       string
	MarkedCount int64
	FailedCount int64
}

type DeleteOldAbandonedOutput struct {
	RunID        string
	DeletedCount int64
	Mode         model.DeletionMode
	FailedCount  int64
}

func (u *CartLifecycleUsecase) RunMarkAbandoned(ctx context.Context) (MarkAbandonedOutput, error) {
	return u.MarkAbandoned(ctx, u.cfg.InactivityThreshold)
}

func (u *CartLifecycleUsecase) RunDeleteOldAbandoned(ctx context.Context) (DeleteOldAbandonedOutput, error) {
	return u.DeleteOldAbandoned(ctx, u.cfg.DeletionThreshold, u.cfg.DeletionMode)
}

// MarkAbandoned は threshold より長く操作の無いactiveカートをabandonedにする。
// 再実行しても結果は変わらない。
func (u *CartLifecycleUsecase) MarkAbandoned(ctx context.Context, threshold time.Duration) (MarkAbandonedOutput, error) {
	runID := u.newRunID()
	cutoff := u.clock.Now().Add(-threshold)

	u.log.Info("marking carts as abandoned",
		zap.String("run_id", runID),
		zap.Duration("threshold", threshold),
		zap.Time("cutoff", cutoff),
	)

	var ids []int64
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		ids, err = r.Carts().ListIDsInactiveSince(ctx, cutoff)
		return err
	})
	if err != nil {
		return MarkAbandonedOutput{RunID: runID}, fmt.Errorf("list inactive carts: %w", err)
	}

	marked, failed := u.forEachCart(ctx, runID, "mark_abandoned", ids, func(ctx context.Context, cartID int64) (bool, error) {
		return u.markOne(ctx, runID, cartID, cutoff)
	})

	u.log.Info("marked carts as abandoned",
		zap.String("run_id", runID),
		zap.Int("candidates", len(ids)),
		zap.Int64("marked", marked),
		zap.Int64("failed", failed),
	)

	return MarkAbandonedOutput{RunID: runID, MarkedCount: marked, FailedCount: failed}, nil
}

// DeleteOldAbandoned は olderThan より前からabandonedのカートを削除する。
// softはstatusをdeletedに、hardは明細ごと物理削除。
func (u *CartLifecycleUsecase) DeleteOldAbandoned(ctx context.Context, olderThan time.Duration, mode model.DeletionMode) (DeleteOldAbandonedOutput, error) {
	runID := u.newRunID()
	if !mode.Valid() {
		return DeleteOldAbandonedOutput{RunID: runID}, fmt.Errorf("invalid deletion mode %q", mode)
	}
	cutoff := u.clock.Now().Add(-olderThan)

	u.log.Info("deleting old abandoned carts",
		zap.String("run_id", runID),
		zap.String("mode", string(mode)),
		zap.Time("cutoff", cutoff),
	)

	var ids []int64
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		ids, err = r.Carts().ListIDsAbandonedBefore(ctx, cutoff)
		return err
	})
	if err != nil {
		return DeleteOldAbandonedOutput{RunID: runID, Mode: mode}, fmt.Errorf("list abandoned carts: %w", err)
	}

	deleted, failed := u.forEachCart(ctx, runID, "delete_old_abandoned", ids, func(ctx context.Context, cartID int64) (bool, error) {
		return u.deleteOne(ctx, runID, cartID, cutoff, mode)
	})

	u.log.Info("deleted old abandoned carts",
		zap.String("run_id", runID),
		zap.String("mode", string(mode)),
		zap.Int("candidates", len(ids)),
		zap.Int64("deleted", deleted),
		zap.Int64("failed", failed),
	)

	return DeleteOldAbandonedOutput{RunID: runID, DeletedCount: deleted, Mode: mode, FailedCount: failed}, nil
}

// 1カート分。行ロック後に条件を再チェックする（直前に操作されていたらスキップ）。
func (u *CartLifecycleUsecase) markOne(ctx context.Context, runID string, cartID int64, cutoff time.Time) (bool, error) {
	var marked bool

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		marked = false

		cart, err := r.Carts().LockLiveByID(ctx, cartID)
		if errors.Is(err, repo.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if !cart.ShouldBeAbandoned(cutoff) {
			return nil
		}

		before := cart.Status
		cart.MarkAbandoned()
		if _, err := r.Carts().Save(ctx, cart); err != nil {
			return err
		}

		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			Action:       model.AuditActionCartAbandoned,
			Actor:        model.AuditActorSweeper,
			CartID:       cart.ID,
			RunID:        runID,
			BeforeStatus: before,
			AfterStatus:  cart.Status,
			CreatedAt:    u.clock.Now(),
		}); err != nil {
			return err
		}

		marked = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return marked, nil
}

func (u *CartLifecycleUsecase) deleteOne(ctx context.Context, runID string, cartID int64, cutoff time.Time, mode model.DeletionMode) (bool, error) {
	var deleted bool

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		deleted = false

		cart, err := r.Carts().LockLiveByID(ctx, cartID)
		if errors.Is(err, repo.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if !cart.ShouldBeDeleted(cutoff) {
			return nil
		}

		before := cart.Status
		hard, err := cart.DeleteIfAbandoned(mode)
		if errors.Is(err, model.ErrNotEligible) {
			return nil
		}
		if err != nil {
			return err
		}

		action := model.AuditActionCartSoftDeleted
		if hard {
			action = model.AuditActionCartHardDeleted
			if err := r.Carts().Destroy(ctx, cart.ID); err != nil {
				return err
			}
		} else if _, err := r.Carts().Save(ctx, cart); err != nil {
			return err
		}

		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			Action:       action,
			Actor:        model.AuditActorSweeper,
			CartID:       cart.ID,
			RunID:        runID,
			BeforeStatus: before,
			AfterStatus:  model.CartStatusDeleted,
			CreatedAt:    u.clock.Now(),
		}); err != nil {
			return err
		}

		deleted = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

// 候補をワーカーで並行処理する。
// 失敗はログに出して数えるだけ。ctxがキャンセルされたら残りは投入しない。
func (u *CartLifecycleUsecase) forEachCart(ctx context.Context, runID, op string, ids []int64, fn func(ctx context.Context, cartID int64) (bool, error)) (int64, int64) {
	var done, failed atomic.Int64

	workers := u.cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	var g errgroup.Group
	g.SetLimit(workers)

	for _, id := range ids {
		if ctx.Err() != nil {
			u.log.Warn("sweep interrupted",
				zap.String("op", op),
				zap.String("run_id", runID),
				zap.Error(ctx.Err()),
			)
			break
		}

		g.Go(func() error {
			ok, err := fn(ctx, id)
			if err != nil {
				failed.Add(1)
				u.log.Error("cart transition failed",
					zap.String("op", op),
					zap.String("run_id", runID),
					zap.Int64("cart_id", id),
					zap.Error(err),
				)
				return nil
			}
			if ok {
				done.Add(1)
			}
			return nil
		})
	}

	_ = g.Wait()
	return done.Load(), failed.Load()
}
