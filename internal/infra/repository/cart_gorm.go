package repository

import (
	"context"
	"errors"
	"time"

	"cartkeeper/internal/domain/model"
	repo "cartkeeper/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartGormRepository(db *gorm.DB) *CartGormRepository {
	return &CartGormRepository{db: db}
}

// 空カートを作成
func (r *CartGormRepository) Create(ctx context.Context, cart model.Cart) (model.Cart, error) {
	if cart.Status == "" {
		cart.Status = model.CartStatusActive
	}
	if cart.Version == 0 {
		cart.Version = 1
	}

	if err := r.db.WithContext(ctx).Create(&cart).Error; err != nil {
		return model.Cart{}, translateErr(err)
	}
	return cart, nil
}

// IDで取得（deletedも返す）
func (r *CartGormRepository) FindByID(ctx context.Context, cartID int64) (model.Cart, error) {
	var cart model.Cart

	err := r.db.WithContext(ctx).
		Where("id = ?", cartID).
		First(&cart).Error

	return cart, notFoundOr(err)
}

// deleted以外をIDで取得
func (r *CartGormRepository) FindLiveByID(ctx context.Context, cartID int64) (model.Cart, error) {
	var cart model.Cart

	err := r.db.WithContext(ctx).
		Where("id = ? AND status <> ?", cartID, model.CartStatusDeleted).
		First(&cart).Error

	return cart, notFoundOr(err)
}

// deleted以外を SELECT ... FOR UPDATE で取得。
// 同じカートへの更新はここで直列化される。
func (r *CartGormRepository) LockLiveByID(ctx context.Context, cartID int64) (model.Cart, error) {
	var cart model.Cart

	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND status <> ?", cartID, model.CartStatusDeleted).
		First(&cart).Error

	return cart, notFoundOr(err)
}

// versionが一致するときだけ更新
func (r *CartGormRepository) Save(ctx context.Context, cart model.Cart) (model.Cart, error) {
	now := time.Now()

	res := r.db.WithContext(ctx).
		Model(&model.Cart{}).
		Where("id = ? AND version = ?", cart.ID, cart.Version).
		Updates(map[string]interface{}{
			"status":              cart.Status,
			"total_price":         cart.TotalPrice,
			"last_interaction_at": cart.LastInteractionAt,
			"version":             cart.Version + 1,
			"updated_at":          now,
		})

	if res.Error != nil {
		return model.Cart{}, translateErr(res.Error)
	}
	if res.RowsAffected == 0 {
		// 消えたのか、先に更新されたのか
		var count int64
		if err := r.db.WithContext(ctx).Model(&model.Cart{}).Where("id = ?", cart.ID).Count(&count).Error; err != nil {
			return model.Cart{}, translateErr(err)
		}
		if count == 0 {
			return model.Cart{}, repo.ErrNotFound
		}
		return model.Cart{}, repo.ErrConflict
	}

	cart.Version++
	cart.UpdatedAt = now
	return cart, nil
}

// 明細→カートの順で物理削除
func (r *CartGormRepository) Destroy(ctx context.Context, cartID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_id = ?", cartID).Delete(&model.CartItem{}).Error; err != nil {
			return translateErr(err)
		}

		res := tx.Delete(&model.Cart{}, cartID)
		if res.Error != nil {
			return translateErr(res.Error)
		}
		if res.RowsAffected == 0 {
			return repo.ErrNotFound
		}
		return nil
	})
}

// activeで、最終操作（無ければupdated_at）がcutoffより前
func (r *CartGormRepository) ListIDsInactiveSince(ctx context.Context, cutoff time.Time) ([]int64, error) {
	var ids []int64

	err := r.db.WithContext(ctx).
		Model(&model.Cart{}).
		Where("status = ?", model.CartStatusActive).
		Where("last_interaction_at < ? OR (last_interaction_at IS NULL AND updated_at < ?)", cutoff, cutoff).
		Order("id asc").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// abandonedで、updated_atがcutoffより前
func (r *CartGormRepository) ListIDsAbandonedBefore(ctx context.Context, cutoff time.Time) ([]int64, error) {
	var ids []int64

	err := r.db.WithContext(ctx).
		Model(&model.Cart{}).
		Where("status = ? AND updated_at < ?", model.CartStatusAbandoned, cutoff).
		Order("id asc").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repo.ErrNotFound
	}
	if err != nil {
		return translateErr(err)
	}
	return nil
}
