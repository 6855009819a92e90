// Package memory is an in-process implementation of the cart store.
//
// Every WithinTx call holds a store-wide lock and works on a copy of the
// data; the copy replaces the committed state only when fn returns nil.
package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"cartkeeper/internal/domain/model"
	repo "cartkeeper/internal/repository"
)

type state struct {
	carts    map[int64]model.Cart
	items    map[int64]model.CartItem
	products map[int64]model.Product
	audits   []model.AuditLog

	nextCartID    int64
	nextItemID    int64
	nextProductID int64
	nextAuditID   int64
}

func newState() *state {
	return &state{
		carts:    map[int64]model.Cart{},
		items:    map[int64]model.CartItem{},
		products: map[int64]model.Product{},
	}
}

func (s *state) clone() *state {
	c := *s
	c.carts = maps.Clone(s.carts)
	c.items = maps.Clone(s.items)
	c.products = maps.Clone(s.products)
	c.audits = append([]model.AuditLog(nil), s.audits...)
	return &c
}

type Store struct {
	mu    sync.Mutex
	now   func() time.Time
	state *state
}

// nowがnilならtime.Now
func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{now: now, state: newState()}
}

func (s *Store) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(&txRepos{st: work, now: s.now}); err != nil {
		return err
	}
	s.state = work
	return nil
}

// 商品を登録（カタログの代わり）
func (s *Store) AddProduct(p model.Product) model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if p.ID == 0 {
		s.state.nextProductID++
		p.ID = s.state.nextProductID
	} else if p.ID > s.state.nextProductID {
		s.state.nextProductID = p.ID
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	s.state.products[p.ID] = p
	return p
}

// 商品を削除（カタログから消えた状態の再現）
func (s *Store) RemoveProduct(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.state.products, id)
}

type txRepos struct {
	st  *state
	now func() time.Time
}

func (r *txRepos) Carts() repo.CartRepository         { return &cartRepo{st: r.st, now: r.now} }
func (r *txRepos) CartItems() repo.CartItemRepository { return &cartItemRepo{st: r.st, now: r.now} }
func (r *txRepos) Products() repo.ProductRepository   { return &productRepo{st: r.st} }
func (r *txRepos) AuditLogs() repo.AuditLogRepository { return &auditLogRepo{st: r.st, now: r.now} }
