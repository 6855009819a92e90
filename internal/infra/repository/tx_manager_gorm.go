package repository

import (
	"context"
	"errors"

	repo "cartkeeper/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// 衝突時の最大試行回数
const maxTxAttempts = 3

type txReposGorm struct {
	carts     repo.CartRepository
	cartItems repo.CartItemRepository
	products  repo.ProductRepository
	auditLogs repo.AuditLogRepository
}

func (r *txReposGorm) Carts() repo.CartRepository         { return r.carts }
func (r *txReposGorm) CartItems() repo.CartItemRepository { return r.cartItems }
func (r *txReposGorm) Products() repo.ProductRepository   { return r.products }
func (r *txReposGorm) AuditLogs() repo.AuditLogRepository { return r.auditLogs }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

// fnをトランザクションで実行する。
// ErrConflictで終わった場合はfnごと再実行する。
func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			//repoはtxを持ったDBで作り直す
			r := &txReposGorm{
				carts:     NewCartGormRepository(tx),
				cartItems: NewCartItemGormRepository(tx),
				products:  NewProductGormRepository(tx),
				auditLogs: NewAuditLogGormRepository(tx),
			}
			return fn(r)
		})

		err = translateErr(err)
		if !errors.Is(err, repo.ErrConflict) || ctx.Err() != nil {
			return err
		}
	}
	return err
}

// PostgreSQLのエラーコードを振り分ける
func translateErr(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		// serialization_failure / deadlock_detected / unique_violation
		case "40001", "40P01", "23505":
			return errors.Join(repo.ErrConflict, err)
		}
	}
	return err
}
