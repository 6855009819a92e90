package repository

import (
	"context"
	"time"

	"cartkeeper/internal/domain/model"
)

type CartRepository interface {
	Create(ctx context.Context, cart model.Cart) (model.Cart, error)

	// deletedも含めてIDで取得
	FindByID(ctx context.Context, cartID int64) (model.Cart, error)
	// deleted以外（not_deleted）を取得
	FindLiveByID(ctx context.Context, cartID int64) (model.Cart, error)
	// deleted以外を行ロック付きで取得
	LockLiveByID(ctx context.Context, cartID int64) (model.Cart, error)

	// versionが一致するときだけ保存。不一致はErrConflict。
	Save(ctx context.Context, cart model.Cart) (model.Cart, error)
	// 明細ごと物理削除
	Destroy(ctx context.Context, cartID int64) error

	// sweeperの対象ID
	ListIDsInactiveSince(ctx context.Context, cutoff time.Time) ([]int64, error)
	ListIDsAbandonedBefore(ctx context.Context, cutoff time.Time) ([]int64, error)
}
