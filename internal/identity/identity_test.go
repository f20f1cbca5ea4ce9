package identity

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/lunchbox/internal/apperr"
	"github.com/mmeshcher/lunchbox/internal/identity/identitytest"
	"github.com/mmeshcher/lunchbox/internal/model"
	"github.com/mmeshcher/lunchbox/internal/repository"
)

const testBotToken = "123456:ABC-test-token"

var testNow = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func signedInitData(t *testing.T, authDate time.Time, user string) string {
	t.Helper()
	return identitytest.InitData(testBotToken, authDate, user)
}

func newTestValidator(dev bool) *Validator {
	v := NewValidator(testBotToken, dev)
	v.now = func() time.Time { return testNow }
	return v
}

func TestValidatorParse(t *testing.T) {
	const user = `{"id":279058397,"first_name":"Vladislav","last_name":"Kibenko","username":"vdkfrost"}`

	tests := []struct {
		name     string
		initData func(t *testing.T) string
		want     Principal
		wantErr  error
	}{
		{
			name:     "valid",
			initData: func(t *testing.T) string { return signedInitData(t, testNow.Add(-time.Hour), user) },
			want:     Principal{TelegramID: 279058397, FirstName: "Vladislav", LastName: "Kibenko", Username: "vdkfrost"},
		},
		{
			name: "tampered user",
			initData: func(t *testing.T) string {
				values, err := url.ParseQuery(signedInitData(t, testNow.Add(-time.Hour), user))
				require.NoError(t, err)
				values.Set("user", `{"id":1,"first_name":"Mallory"}`)
				return values.Encode()
			},
			wantErr: ErrInvalidHash,
		},
		{
			name: "missing hash",
			initData: func(t *testing.T) string {
				return "auth_date=1&user=" + url.QueryEscape(user)
			},
			wantErr: ErrMissingHash,
		},
		{
			name:     "expired",
			initData: func(t *testing.T) string { return signedInitData(t, testNow.Add(-25*time.Hour), user) },
			wantErr:  ErrExpired,
		},
		{
			name:     "auth_date in the future",
			initData: func(t *testing.T) string { return signedInitData(t, testNow.Add(time.Hour), user) },
			wantErr:  ErrFromFuture,
		},
		{
			name:     "small clock skew",
			initData: func(t *testing.T) string { return signedInitData(t, testNow.Add(time.Minute), user) },
			want:     Principal{TelegramID: 279058397, FirstName: "Vladislav", LastName: "Kibenko", Username: "vdkfrost"},
		},
		{
			name: "foreign bot token",
			initData: func(t *testing.T) string {
				return identitytest.InitData("654321:other-bot", testNow.Add(-time.Hour), user)
			},
			wantErr: ErrInvalidHash,
		},
		{
			name:     "no user",
			initData: func(t *testing.T) string { return signedInitData(t, testNow.Add(-time.Minute), "") },
			wantErr:  ErrMissingUser,
		},
		{
			name:     "malformed user",
			initData: func(t *testing.T) string { return signedInitData(t, testNow.Add(-time.Minute), "{not json") },
			wantErr:  ErrMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := newTestValidator(false).Parse(tt.initData(t))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p)
		})
	}
}

func TestValidatorParse_DevMode(t *testing.T) {
	v := newTestValidator(true)

	p, err := v.Parse("")
	require.NoError(t, err)
	assert.Equal(t, DevPrincipal, p)

	p, err = v.Parse("user=" + url.QueryEscape(`{"id":42,"first_name":"Anna"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(42), p.TelegramID)
	assert.Equal(t, "Anna", p.FirstName)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) UpsertUser(ctx context.Context, telegramID int64, firstName, lastName, username string) (*model.User, error) {
	args := m.Called(ctx, telegramID, firstName, lastName, username)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *mockStore) SetNotifyDailyMenu(ctx context.Context, userID int64, enabled bool) error {
	return m.Called(ctx, userID, enabled).Error(0)
}

func TestResolverResolve(t *testing.T) {
	store := &mockStore{}
	stored := &model.User{ID: 7, TelegramID: 42, FirstName: "Anna", Role: model.RoleCustomer}
	store.On("UpsertUser", mock.Anything, int64(42), "Anna", "", "anna").Return(stored, nil).Once()

	u, err := NewResolver(store).Resolve(context.Background(), Principal{TelegramID: 42, FirstName: "Anna", Username: "anna"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), u.ID)
	store.AssertExpectations(t)
}

func TestResolverResolve_RejectsEmptyPrincipal(t *testing.T) {
	_, err := NewResolver(&mockStore{}).Resolve(context.Background(), Principal{})
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
}

func TestResolverSetNotifications(t *testing.T) {
	store := &mockStore{}
	store.On("SetNotifyDailyMenu", mock.Anything, int64(7), true).Return(nil).Once()
	store.On("SetNotifyDailyMenu", mock.Anything, int64(8), true).Return(repository.ErrNotFound).Once()
	store.On("SetNotifyDailyMenu", mock.Anything, int64(9), false).Return(errors.New("conn closed")).Once()

	r := NewResolver(store)
	require.NoError(t, r.SetNotifications(context.Background(), 7, true))
	assert.True(t, apperr.Is(r.SetNotifications(context.Background(), 8, true), apperr.KindNotFound))
	assert.EqualError(t, r.SetNotifications(context.Background(), 9, false), "conn closed")
	store.AssertExpectations(t)
}
