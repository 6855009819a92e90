package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"cartkeeper/internal/domain/model"
	"cartkeeper/internal/infra/memory"
	repo "cartkeeper/internal/repository"
	"cartkeeper/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type TxManagerMock struct{ mock.Mock }

func (m *TxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s got %s", want, got.String())
}

func assertCartErr(t *testing.T, err error, kind usecase.ErrorKind) *usecase.CartError {
	t.Helper()
	ce, ok := usecase.AsCartError(err)
	require.True(t, ok, "expected CartError, got %v", err)
	assert.Equal(t, kind, ce.Kind)
	return ce
}

func createCart(t *testing.T, st *memory.Store) model.Cart {
	t.Helper()
	var cart model.Cart
	require.NoError(t, st.WithinTx(context.Background(), func(r repo.TxRepos) error {
		var err error
		cart, err = r.Carts().Create(context.Background(), model.NewCart())
		return err
	}))
	return cart
}

func loadCart(t *testing.T, st *memory.Store, id int64) (model.Cart, []model.CartItem, error) {
	t.Helper()
	var cart model.Cart
	var items []model.CartItem
	err := st.WithinTx(context.Background(), func(r repo.TxRepos) error {
		var err error
		if cart, err = r.Carts().FindByID(context.Background(), id); err != nil {
			return err
		}
		items, err = r.CartItems().ListByCartID(context.Background(), id)
		return err
	})
	return cart, items, err
}

// カートの状態を直接書き換える（時間経過の再現用）
func mutateCart(t *testing.T, st *memory.Store, id int64, fn func(c *model.Cart)) {
	t.Helper()
	require.NoError(t, st.WithinTx(context.Background(), func(r repo.TxRepos) error {
		c, err := r.Carts().FindByID(context.Background(), id)
		if err != nil {
			return err
		}
		fn(&c)
		_, err = r.Carts().Save(context.Background(), c)
		return err
	}))
}

func auditLogs(t *testing.T, st *memory.Store, filter repo.AuditLogFilter) []model.AuditLog {
	t.Helper()
	var logs []model.AuditLog
	require.NoError(t, st.WithinTx(context.Background(), func(r repo.TxRepos) error {
		var err error
		logs, err = r.AuditLogs().List(context.Background(), filter)
		return err
	}))
	return logs
}
