package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/lunchbox/internal/apperr"
	"github.com/mmeshcher/lunchbox/internal/model"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetCouponBalances(ctx context.Context, userID int64) (map[model.CouponType]int, error) {
	args := m.Called(ctx, userID)
	b, _ := args.Get(0).(map[model.CouponType]int)
	return b, args.Error(1)
}

func (m *mockStore) GetCouponTransactions(ctx context.Context, userID int64, t model.CouponType) ([]model.BalanceTransaction, error) {
	args := m.Called(ctx, userID, t)
	txs, _ := args.Get(0).([]model.BalanceTransaction)
	return txs, args.Error(1)
}

func (m *mockStore) ActiveSubscriptions(ctx context.Context, userID int64) ([]model.Subscription, error) {
	args := m.Called(ctx, userID)
	subs, _ := args.Get(0).([]model.Subscription)
	return subs, args.Error(1)
}

func TestBalances_DefaultsToZero(t *testing.T) {
	store := &mockStore{}
	store.On("GetCouponBalances", mock.Anything, int64(7)).
		Return(map[model.CouponType]int{model.CouponCoffee: 3}, nil)

	res, err := NewService(store).Balances(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, []model.CouponBalance{
		{Type: model.CouponLunch, Balance: 0},
		{Type: model.CouponCoffee, Balance: 3},
	}, res)
}

func TestHistory(t *testing.T) {
	store := &mockStore{}
	store.On("GetCouponTransactions", mock.Anything, int64(7), model.CouponLunch).Return(nil, nil)

	svc := NewService(store)
	txs, err := svc.History(context.Background(), 7, model.CouponLunch)
	require.NoError(t, err)
	assert.NotNil(t, txs)
	assert.Empty(t, txs)

	_, err = svc.History(context.Background(), 7, "")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestActiveSubscriptions_EmptyIsNotNil(t *testing.T) {
	store := &mockStore{}
	store.On("ActiveSubscriptions", mock.Anything, int64(7)).Return(nil, nil)

	subs, err := NewService(store).ActiveSubscriptions(context.Background(), 7)
	require.NoError(t, err)
	assert.NotNil(t, subs)
	assert.Empty(t, subs)
}
