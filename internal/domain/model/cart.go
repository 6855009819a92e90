package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type CartStatus string

const (
	CartStatusActive    CartStatus = "active"
	CartStatusAbandoned CartStatus = "abandoned"
	CartStatusDeleted   CartStatus = "deleted"
)

// 放棄カートの削除方法
type DeletionMode string

const (
	DeletionModeSoft DeletionMode = "soft"
	DeletionModeHard DeletionMode = "hard"
)

// abandoned以外は削除できない
var ErrNotEligible = errors.New("cart is not eligible for deletion")

// soft / hard 以外はエラー
func ParseDeletionMode(s string) (DeletionMode, error) {
	switch DeletionMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", DeletionModeSoft:
		return DeletionModeSoft, nil
	case DeletionModeHard:
		return DeletionModeHard, nil
	default:
		return "", fmt.Errorf("invalid deletion mode %q", s)
	}
}

func (m DeletionMode) Valid() bool {
	return m == DeletionModeSoft || m == DeletionModeHard
}

// カート本体（集約ルート）。
// TotalPriceは常に明細の合計と一致させる。
// Versionは保存のたびに+1（楽観ロック）。
type Cart struct {
	ID                int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Status            CartStatus      `gorm:"type:varchar(20);not null;default:active;index" json:"status"`
	TotalPrice        decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"total_price"`
	LastInteractionAt *time.Time      `gorm:"index" json:"last_interaction_at"`
	Version           int64           `gorm:"not null;default:1" json:"-"`
	CreatedAt         time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"not null;autoUpdateTime;index" json:"updated_at"`
}

// 空のACTIVEカート
func NewCart() Cart {
	return Cart{
		Status:     CartStatusActive,
		TotalPrice: decimal.Zero,
		Version:    1,
	}
}

func (c *Cart) IsDeleted() bool {
	return c.Status == CartStatusDeleted
}

// 操作を記録する。abandonedならactiveへ戻す。
// 戻した場合はtrue。
func (c *Cart) RecordInteraction(now time.Time) bool {
	t := now
	c.LastInteractionAt = &t

	if c.Status == CartStatusAbandoned {
		c.Status = CartStatusActive
		return true
	}
	return false
}

// 条件チェックは呼び出し側
func (c *Cart) MarkAbandoned() {
	c.Status = CartStatusAbandoned
}

// abandonedのときだけ削除する。
// softはstatusをdeletedにする。hardは呼び出し側で物理削除する（戻り値true）。
func (c *Cart) DeleteIfAbandoned(mode DeletionMode) (bool, error) {
	if c.Status != CartStatusAbandoned {
		return false, ErrNotEligible
	}
	if mode == DeletionModeHard {
		return true, nil
	}
	c.Status = CartStatusDeleted
	return false, nil
}

// 最終操作がcutoffより前か。
// 操作履歴が無い場合はUpdatedAtで判定。
func (c *Cart) IsInactiveSince(cutoff time.Time) bool {
	if c.LastInteractionAt != nil {
		return c.LastInteractionAt.Before(cutoff)
	}
	return c.UpdatedAt.Before(cutoff)
}

// abandoned判定（sweeperが実行直前に再チェックする）
func (c *Cart) ShouldBeAbandoned(cutoff time.Time) bool {
	return c.Status == CartStatusActive && c.IsInactiveSince(cutoff)
}

// 削除判定
func (c *Cart) ShouldBeDeleted(cutoff time.Time) bool {
	return c.Status == CartStatusAbandoned && c.UpdatedAt.Before(cutoff)
}

// total_price（numeric(12,2)）に入る上限
var MaxTotalPrice = decimal.RequireFromString("9999999999.99")

// 合計が保存できる範囲か
func (c *Cart) TotalFits() bool {
	return !c.TotalPrice.GreaterThan(MaxTotalPrice)
}

// 明細から合計を再計算
func (c *Cart) RecalculateTotal(items []CartItem) {
	c.TotalPrice = SumItems(items)
}

func SumItems(items []CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.TotalPrice())
	}
	return total
}
