package model

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity  = errors.New("quantity must be greater than 0")
	ErrQuantityTooLarge = errors.New("quantity is too large")
)

// 1明細の数量上限
const MaxQuantity int64 = 1_000_000

// カートの明細
// (cart_id, product_id)は一意。quantityは常に1以上。
type CartItem struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	CartID    int64           `gorm:"not null;uniqueIndex:idx_cart_items_cart_product" json:"cart_id"`
	ProductID int64           `gorm:"not null;uniqueIndex:idx_cart_items_cart_product" json:"product_id"`
	Quantity  int64           `gorm:"not null;check:chk_cart_items_quantity,quantity > 0" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	CreatedAt time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func NewCartItem(cartID int64, productID int64, qty int64, unitPrice decimal.Decimal) (CartItem, error) {
	if qty <= 0 {
		return CartItem{}, ErrInvalidQuantity
	}
	if qty > MaxQuantity {
		return CartItem{}, ErrQuantityTooLarge
	}
	return CartItem{
		CartID:    cartID,
		ProductID: productID,
		Quantity:  qty,
		UnitPrice: unitPrice,
	}, nil
}

func (i CartItem) TotalPrice() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(i.Quantity))
}

// 数量を加算し、単価を現在の価格にそろえる
func (i *CartItem) Add(qty int64, unitPrice decimal.Decimal) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	// 加算前に判定（オーバーフローさせない）
	if qty > MaxQuantity-i.Quantity {
		return ErrQuantityTooLarge
	}
	i.Quantity += qty
	i.UnitPrice = unitPrice
	return nil
}

// 1つ減らす。0以下になったら削除すべき（true）。
func (i *CartItem) Decrement() bool {
	i.Quantity--
	return i.Quantity <= 0
}
