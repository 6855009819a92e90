package usecase

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"cartkeeper/internal/domain/model"
	repo "cartkeeper/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// 現在の時間
type Clock interface {
	Now() time.Time
}

// CartUsecase はカートの表示・明細の追加/削除・作成を扱う。
// 明細の変更と合計の再計算は必ず1トランザクションで行う。
type CartUsecase struct {
	tx    repo.TransactionManager
	clock Clock
	log   *zap.Logger
}

// DI
func NewCartUsecase(tx repo.TransactionManager, clock Clock, log *zap.Logger) *CartUsecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &CartUsecase{tx: tx, clock: clock, log: log}
}

// 追加リクエストの生パラメータ。
// quantityは文字列の整数も受け付ける。
type ItemParams struct {
	ProductID string
	Quantity  string
}

type CartItemView struct {
	ProductID  int64
	Name       string
	Quantity   int64
	UnitPrice  decimal.Decimal
	TotalPrice decimal.Decimal
}

type CartView struct {
	ID                int64
	Status            model.CartStatus
	TotalPrice        decimal.Decimal
	LastInteractionAt *time.Time
	Items             []CartItemView
}

// 成功時の結果。Itemは追加/更新した明細（表示・削除ではnil）。
type CartResult struct {
	Cart   CartView
	Item   *CartItemView
	Status Status
}

type itemInput struct {
	productID string
	quantity  int64
}

// ShowCart はカートを返し、操作として記録する。
func (u *CartUsecase) ShowCart(ctx context.Context, cartID int64) (CartResult, error) {
	var out CartResult

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := lockLiveCart(ctx, r, cartID)
		if err != nil {
			return err
		}

		cart, err = u.recordInteraction(ctx, r, cart)
		if err != nil {
			return err
		}

		items, err := r.CartItems().ListByCartID(ctx, cart.ID)
		if err != nil {
			return err
		}
		products, err := productsByID(ctx, r, items)
		if err != nil {
			return err
		}

		out = CartResult{Cart: buildView(cart, items, products), Status: StatusOK}
		return nil
	})
	if err != nil {
		return CartResult{}, u.fail("show_cart", cartID, err)
	}
	return out, nil
}

// AddItem は商品を追加する（同一商品は数量加算）。
func (u *CartUsecase) AddItem(ctx context.Context, cartID int64, p *ItemParams) (CartResult, error) {
	in, err := validateItemParams(p)
	if err != nil {
		return CartResult{}, err
	}

	var out CartResult
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := lockLiveCart(ctx, r, cartID)
		if err != nil {
			return err
		}

		res, err := u.addOrUpdate(ctx, r, cart, in)
		if err != nil {
			return err
		}
		out = res
		return nil
	})
	if err != nil {
		return CartResult{}, u.fail("add_item", cartID, err)
	}

	out.Status = StatusOK
	return out, nil
}

// CreateOrAddTo はカートが無ければ作って最初の商品を入れる。
// 追加に失敗したらカート作成ごとrollbackする。
// 既存カートがあればAddItemに任せ、成功をcreatedとして返す。
func (u *CartUsecase) CreateOrAddTo(ctx context.Context, cartID *int64, p *ItemParams) (CartResult, error) {
	if cartID != nil {
		res, err := u.AddItem(ctx, *cartID, p)
		if err != nil {
			return CartResult{}, err
		}
		res.Status = StatusCreated
		return res, nil
	}

	in, err := validateItemParams(p)
	if err != nil {
		return CartResult{}, err
	}

	var out CartResult
	var newID int64
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().Create(ctx, model.NewCart())
		if err != nil {
			return err
		}
		newID = cart.ID

		res, err := u.addOrUpdate(ctx, r, cart, in)
		if err != nil {
			return err
		}
		out = res
		return nil
	})
	if err != nil {
		return CartResult{}, u.fail("create_cart", newID, err)
	}

	out.Status = StatusCreated
	return out, nil
}

// RemoveProduct は明細を1つ減らす（removeAllなら明細ごと削除）。
// 0以下になる明細は保存せず削除する。
func (u *CartUsecase) RemoveProduct(ctx context.Context, cartID int64, productID string, removeAll bool) (CartResult, error) {
	var out CartResult

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := lockLiveCart(ctx, r, cartID)
		if err != nil {
			return err
		}

		pid, ok := parseID(productID)
		if !ok {
			return lineItemNotFound()
		}

		item, err := r.CartItems().FindByCartAndProduct(ctx, cart.ID, pid)
		if errors.Is(err, repo.ErrNotFound) {
			return lineItemNotFound()
		}
		if err != nil {
			return err
		}

		if removeAll || item.Decrement() {
			err = r.CartItems().DeleteByID(ctx, item.ID)
		} else {
			err = r.CartItems().Update(ctx, item)
		}
		if err != nil {
			return err
		}

		cart, items, products, err := u.commitMutation(ctx, r, cart)
		if err != nil {
			return err
		}

		out = CartResult{Cart: buildView(cart, items, products), Status: StatusOK}
		return nil
	})
	if err != nil {
		return CartResult{}, u.fail("remove_product", cartID, err)
	}
	return out, nil
}

// History はカートの状態遷移ログを古い順に返す（最大limit件）。
// 閲覧は操作として記録しない。削除済みカートは見つからない扱い。
func (u *CartUsecase) History(ctx context.Context, cartID int64, limit int) ([]model.AuditLog, error) {
	var out []model.AuditLog

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().FindByID(ctx, cartID)
		if errors.Is(err, repo.ErrNotFound) || (err == nil && cart.IsDeleted()) {
			return cartNotFound()
		}
		if err != nil {
			return err
		}

		out, err = r.AuditLogs().List(ctx, repo.AuditLogFilter{CartID: &cart.ID, Limit: limit})
		return err
	})
	if err != nil {
		return nil, u.fail("cart_history", cartID, err)
	}
	return out, nil
}

// 明細の加算/作成→合計再計算。呼び出し側のトランザクション内で動く。
func (u *CartUsecase) addOrUpdate(ctx context.Context, r repo.TxRepos, cart model.Cart, in itemInput) (CartResult, error) {
	productID, ok := parseID(in.productID)
	if !ok {
		return CartResult{}, productNotFound()
	}

	product, err := r.Products().FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return CartResult{}, productNotFound()
	}
	if err != nil {
		return CartResult{}, err
	}

	item, err := r.CartItems().FindByCartAndProduct(ctx, cart.ID, product.ID)
	switch {
	case err == nil:
		// 既存ありだったら数量を増やす
		if err := item.Add(in.quantity, product.Price); err != nil {
			return CartResult{}, quantityErr(err)
		}
		if err := r.CartItems().Update(ctx, item); err != nil {
			return CartResult{}, err
		}
	case errors.Is(err, repo.ErrNotFound):
		//無い場合は新規作成
		newItem, err := model.NewCartItem(cart.ID, product.ID, in.quantity, product.Price)
		if err != nil {
			return CartResult{}, quantityErr(err)
		}
		if _, err := r.CartItems().Create(ctx, newItem); err != nil {
			return CartResult{}, err
		}
	default:
		return CartResult{}, err
	}

	cart, items, products, err := u.commitMutation(ctx, r, cart)
	if err != nil {
		return CartResult{}, err
	}

	view := buildView(cart, items, products)
	res := CartResult{Cart: view}
	for i := range view.Items {
		if view.Items[i].ProductID == product.ID {
			it := view.Items[i]
			res.Item = &it
			break
		}
	}
	return res, nil
}

// 単価を現在の商品価格にそろえ、合計を再計算してカートを保存する。
func (u *CartUsecase) commitMutation(ctx context.Context, r repo.TxRepos, cart model.Cart) (model.Cart, []model.CartItem, map[int64]model.Product, error) {
	items, err := r.CartItems().ListByCartID(ctx, cart.ID)
	if err != nil {
		return model.Cart{}, nil, nil, err
	}

	products, err := productsByID(ctx, r, items)
	if err != nil {
		return model.Cart{}, nil, nil, err
	}

	for i := range items {
		// カタログから消えた商品は追加時点の単価のまま
		p, ok := products[items[i].ProductID]
		if !ok || p.Price.Equal(items[i].UnitPrice) {
			continue
		}
		items[i].UnitPrice = p.Price
		if err := r.CartItems().Update(ctx, items[i]); err != nil {
			return model.Cart{}, nil, nil, err
		}
	}

	cart.RecalculateTotal(items)
	if !cart.TotalFits() {
		return model.Cart{}, nil, nil, quantityTooLarge()
	}

	cart, err = u.recordInteraction(ctx, r, cart)
	if err != nil {
		return model.Cart{}, nil, nil, err
	}
	return cart, items, products, nil
}

// 操作時刻を保存。abandonedから戻った場合は監査ログも残す。
func (u *CartUsecase) recordInteraction(ctx context.Context, r repo.TxRepos, cart model.Cart) (model.Cart, error) {
	now := u.clock.Now()
	before := cart.Status
	reactivated := cart.RecordInteraction(now)

	saved, err := r.Carts().Save(ctx, cart)
	if err != nil {
		return model.Cart{}, err
	}

	if reactivated {
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			Action:       model.AuditActionCartReactivated,
			Actor:        model.AuditActorShopper,
			CartID:       saved.ID,
			BeforeStatus: before,
			AfterStatus:  saved.Status,
			CreatedAt:    now,
		}); err != nil {
			return model.Cart{}, err
		}
	}
	return saved, nil
}

// 想定内エラーはそのまま、それ以外はログに出して中身を隠す。
func (u *CartUsecase) fail(op string, cartID int64, err error) error {
	if ce, ok := AsCartError(err); ok {
		return ce
	}

	u.log.Error("cart operation failed",
		zap.String("op", op),
		zap.Int64("cart_id", cartID),
		zap.Error(err),
	)
	return internalFailure()
}

func lockLiveCart(ctx context.Context, r repo.TxRepos, cartID int64) (model.Cart, error) {
	cart, err := r.Carts().LockLiveByID(ctx, cartID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Cart{}, cartNotFound()
	}
	if err != nil {
		return model.Cart{}, err
	}
	return cart, nil
}

func productsByID(ctx context.Context, r repo.TxRepos, items []model.CartItem) (map[int64]model.Product, error) {
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}

	products, err := r.Products().FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make(map[int64]model.Product, len(products))
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

func buildView(cart model.Cart, items []model.CartItem, products map[int64]model.Product) CartView {
	views := make([]CartItemView, 0, len(items))
	for _, it := range items {
		views = append(views, CartItemView{
			ProductID:  it.ProductID,
			Name:       products[it.ProductID].Name,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice,
			TotalPrice: it.TotalPrice(),
		})
	}

	return CartView{
		ID:                cart.ID,
		Status:            cart.Status,
		TotalPrice:        cart.TotalPrice,
		LastInteractionAt: cart.LastInteractionAt,
		Items:             views,
	}
}

// チェック順: params → quantity → quantityの値（1〜MaxQuantity） → product_id
func validateItemParams(p *ItemParams) (itemInput, error) {
	if p == nil {
		return itemInput{}, missingParameter("params")
	}

	q := strings.TrimSpace(p.Quantity)
	if q == "" {
		return itemInput{}, missingParameter("quantity")
	}
	qty, err := strconv.ParseInt(q, 10, 64)
	switch {
	// 範囲外の正数はParseIntがMaxInt64を返す
	case qty > model.MaxQuantity:
		return itemInput{}, quantityTooLarge()
	case err != nil || qty <= 0:
		return itemInput{}, invalidQuantity()
	}

	pid := strings.TrimSpace(p.ProductID)
	if pid == "" {
		return itemInput{}, missingParameter("product_id")
	}

	return itemInput{productID: pid, quantity: qty}, nil
}

func quantityErr(err error) error {
	if errors.Is(err, model.ErrQuantityTooLarge) {
		return quantityTooLarge()
	}
	return invalidQuantity()
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
