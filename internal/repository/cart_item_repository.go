package repository

import (
	"context"

	"cartkeeper/internal/domain/model"
)

type CartItemRepository interface {
	ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error)
	// 行ロック付き。無ければErrNotFound。
	FindByCartAndProduct(ctx context.Context, cartID int64, productID int64) (model.CartItem, error)
	Create(ctx context.Context, item model.CartItem) (model.CartItem, error)
	// quantity / unit_priceを更新。quantity<=0は保存しない。
	Update(ctx context.Context, item model.CartItem) error
	DeleteByID(ctx context.Context, cartItemID int64) error
}
