package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePurchaseMarker(t *testing.T) {
	tests := []struct {
		name    string
		comment string
		want    Purchase
		wantErr bool
	}{
		{
			name:    "plain comment",
			comment: "без лука, пожалуйста",
			want:    OrderPurchase(),
		},
		{
			name:    "empty comment",
			comment: "",
			want:    OrderPurchase(),
		},
		{
			name:    "coupon purchase",
			comment: "coupon_purchase:lunch:10",
			want:    CouponPurchase(CouponLunch, 10),
		},
		{
			name:    "subscription purchase",
			comment: "subscription_purchase:lunch_coffee",
			want:    SubscriptionPurchase(SubscriptionLunchCoffee),
		},
		{
			name:    "coupon without quantity",
			comment: "coupon_purchase:lunch",
			wantErr: true,
		},
		{
			name:    "coupon with bad quantity",
			comment: "coupon_purchase:coffee:ten",
			wantErr: true,
		},
		{
			name:    "unknown coupon type",
			comment: "coupon_purchase:dinner:5",
			wantErr: true,
		},
		{
			name:    "unknown subscription type",
			comment: "subscription_purchase:dinner",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePurchaseMarker(tt.comment)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPurchaseMarkerRoundTrip(t *testing.T) {
	for _, p := range []Purchase{
		CouponPurchase(CouponCoffee, 5),
		SubscriptionPurchase(SubscriptionLunch),
	} {
		got, err := ParsePurchaseMarker(p.Marker())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
}

func TestPaymentMethodInitialStatus(t *testing.T) {
	assert.Equal(t, OrderStatusPending, PaymentCard.InitialStatus())
	assert.Equal(t, OrderStatusPaid, PaymentCoupon.InitialStatus())
	assert.Equal(t, OrderStatusPaid, PaymentSubscription.InitialStatus())
}

func TestSubscriptionsCovering(t *testing.T) {
	assert.Equal(t, []SubscriptionType{SubscriptionLunch, SubscriptionLunchCoffee}, SubscriptionsCovering(CouponLunch))
	assert.Equal(t, []SubscriptionType{SubscriptionCoffee, SubscriptionLunchCoffee}, SubscriptionsCovering(CouponCoffee))
}

func TestFindCouponPackage(t *testing.T) {
	p, ok := FindCouponPackage(10)
	require.True(t, ok)
	assert.Equal(t, int64(280000), p.PriceKopecks)

	_, ok = FindCouponPackage(7)
	assert.False(t, ok)
}

func TestHasPurchaseMarker(t *testing.T) {
	assert.True(t, HasPurchaseMarker("coupon_purchase:lunch:10"))
	assert.True(t, HasPurchaseMarker("  subscription_purchase:coffee"))
	assert.False(t, HasPurchaseMarker("без лука, пожалуйста"))
	assert.False(t, HasPurchaseMarker("coupon_purchase"))
	assert.False(t, HasPurchaseMarker(""))
}
