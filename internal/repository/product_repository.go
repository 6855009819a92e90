package repository

import (
	"context"
	"errors"

	"cartkeeper/internal/domain/model"
)

var (
	ErrNotFound = errors.New("not found")
	// 同時更新の衝突。TransactionManagerが再試行する。
	ErrConflict = errors.New("conflict")
)

// 商品参照（外部カタログ）だけを約束。
type ProductRepository interface {
	FindByID(ctx context.Context, id int64) (model.Product, error)
	// 見つからないIDは結果に含めない
	FindByIDs(ctx context.Context, ids []int64) ([]model.Product, error)
}
