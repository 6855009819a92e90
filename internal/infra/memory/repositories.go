package memory

import (
	"context"
	"errors"
	"sort"
	"time"

	"cartkeeper/internal/domain/model"
	repo "cartkeeper/internal/repository"
)

type cartRepo struct {
	st  *state
	now func() time.Time
}

func (r *cartRepo) Create(ctx context.Context, cart model.Cart) (model.Cart, error) {
	now := r.now()
	r.st.nextCartID++

	cart.ID = r.st.nextCartID
	if cart.Status == "" {
		cart.Status = model.CartStatusActive
	}
	if cart.Version == 0 {
		cart.Version = 1
	}
	if cart.TotalPrice.IsNegative() {
		return model.Cart{}, errNegativeTotal
	}
	cart.CreatedAt = now
	cart.UpdatedAt = now

	r.st.carts[cart.ID] = cart
	return cart, nil
}

func (r *cartRepo) FindByID(ctx context.Context, cartID int64) (model.Cart, error) {
	c, ok := r.st.carts[cartID]
	if !ok {
		return model.Cart{}, repo.ErrNotFound
	}
	return c, nil
}

func (r *cartRepo) FindLiveByID(ctx context.Context, cartID int64) (model.Cart, error) {
	c, ok := r.st.carts[cartID]
	if !ok || c.IsDeleted() {
		return model.Cart{}, repo.ErrNotFound
	}
	return c, nil
}

// ストア全体がロック済みなのでFindLiveByIDと同じ
func (r *cartRepo) LockLiveByID(ctx context.Context, cartID int64) (model.Cart, error) {
	return r.FindLiveByID(ctx, cartID)
}

func (r *cartRepo) Save(ctx context.Context, cart model.Cart) (model.Cart, error) {
	cur, ok := r.st.carts[cart.ID]
	if !ok {
		return model.Cart{}, repo.ErrNotFound
	}
	if cur.Version != cart.Version {
		return model.Cart{}, repo.ErrConflict
	}
	if cart.TotalPrice.IsNegative() {
		return model.Cart{}, errNegativeTotal
	}

	cart.Version++
	cart.CreatedAt = cur.CreatedAt
	cart.UpdatedAt = r.now()
	r.st.carts[cart.ID] = cart
	return cart, nil
}

func (r *cartRepo) Destroy(ctx context.Context, cartID int64) error {
	if _, ok := r.st.carts[cartID]; !ok {
		return repo.ErrNotFound
	}
	for id, it := range r.st.items {
		if it.CartID == cartID {
			delete(r.st.items, id)
		}
	}
	delete(r.st.carts, cartID)
	return nil
}

func (r *cartRepo) ListIDsInactiveSince(ctx context.Context, cutoff time.Time) ([]int64, error) {
	ids := []int64{}
	for id, c := range r.st.carts {
		if c.ShouldBeAbandoned(cutoff) {
			ids = append(ids, id)
		}
	}
	sortIDs(ids)
	return ids, nil
}

func (r *cartRepo) ListIDsAbandonedBefore(ctx context.Context, cutoff time.Time) ([]int64, error) {
	ids := []int64{}
	for id, c := range r.st.carts {
		if c.ShouldBeDeleted(cutoff) {
			ids = append(ids, id)
		}
	}
	sortIDs(ids)
	return ids, nil
}

type cartItemRepo struct {
	st  *state
	now func() time.Time
}

func (r *cartItemRepo) ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	items := []model.CartItem{}
	for _, it := range r.st.items {
		if it.CartID == cartID {
			items = append(items, it)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (r *cartItemRepo) FindByCartAndProduct(ctx context.Context, cartID int64, productID int64) (model.CartItem, error) {
	for _, it := range r.st.items {
		if it.CartID == cartID && it.ProductID == productID {
			return it, nil
		}
	}
	return model.CartItem{}, repo.ErrNotFound
}

func (r *cartItemRepo) Create(ctx context.Context, item model.CartItem) (model.CartItem, error) {
	if item.Quantity <= 0 {
		return model.CartItem{}, model.ErrInvalidQuantity
	}
	if _, ok := r.st.carts[item.CartID]; !ok {
		return model.CartItem{}, repo.ErrNotFound
	}
	// (cart_id, product_id)の一意制約
	if _, err := r.FindByCartAndProduct(ctx, item.CartID, item.ProductID); err == nil {
		return model.CartItem{}, repo.ErrConflict
	}

	now := r.now()
	r.st.nextItemID++
	item.ID = r.st.nextItemID
	item.CreatedAt = now
	item.UpdatedAt = now
	r.st.items[item.ID] = item
	return item, nil
}

func (r *cartItemRepo) Update(ctx context.Context, item model.CartItem) error {
	if item.Quantity <= 0 {
		return model.ErrInvalidQuantity
	}
	cur, ok := r.st.items[item.ID]
	if !ok {
		return repo.ErrNotFound
	}

	cur.Quantity = item.Quantity
	cur.UnitPrice = item.UnitPrice
	cur.UpdatedAt = r.now()
	r.st.items[item.ID] = cur
	return nil
}

func (r *cartItemRepo) DeleteByID(ctx context.Context, cartItemID int64) error {
	if _, ok := r.st.items[cartItemID]; !ok {
		return repo.ErrNotFound
	}
	delete(r.st.items, cartItemID)
	return nil
}

type productRepo struct {
	st *state
}

func (r *productRepo) FindByID(ctx context.Context, id int64) (model.Product, error) {
	p, ok := r.st.products[id]
	if !ok {
		return model.Product{}, repo.ErrNotFound
	}
	return p, nil
}

func (r *productRepo) FindByIDs(ctx context.Context, ids []int64) ([]model.Product, error) {
	out := []model.Product{}
	for _, id := range ids {
		if p, ok := r.st.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type auditLogRepo struct {
	st  *state
	now func() time.Time
}

func (r *auditLogRepo) Create(ctx context.Context, log model.AuditLog) error {
	r.st.nextAuditID++
	log.ID = r.st.nextAuditID
	if log.CreatedAt.IsZero() {
		log.CreatedAt = r.now()
	}
	r.st.audits = append(r.st.audits, log)
	return nil
}

func (r *auditLogRepo) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	out := []model.AuditLog{}
	for _, l := range r.st.audits {
		if filter.CartID != nil && l.CartID != *filter.CartID {
			continue
		}
		if filter.Action != nil && l.Action != *filter.Action {
			continue
		}
		if filter.RunID != "" && l.RunID != filter.RunID {
			continue
		}
		out = append(out, l)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func sortIDs(ids []int64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

var errNegativeTotal = errors.New("total_price must be >= 0")
