package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/lunchbox/internal/apperr"
)

type line struct {
	ItemID   int64 `json:"itemId" validate:"required,gt=0"`
	Quantity int   `json:"quantity" validate:"required,gt=0,lte=50"`
}

type request struct {
	Items  []line `json:"items" validate:"required,min=1,dive"`
	Room   string `json:"deliveryRoom" validate:"required"`
	Method string `json:"paymentMethod" validate:"required,oneof=card coupon"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name       string
		req        request
		wantErr    bool
		wantDetail string
	}{
		{
			name: "valid",
			req:  request{Items: []line{{ItemID: 1, Quantity: 2}}, Room: "305", Method: "card"},
		},
		{
			name:       "missing room",
			req:        request{Items: []line{{ItemID: 1, Quantity: 2}}, Method: "card"},
			wantErr:    true,
			wantDetail: "deliveryRoom",
		},
		{
			name:       "unknown method",
			req:        request{Items: []line{{ItemID: 1, Quantity: 2}}, Room: "305", Method: "cash"},
			wantErr:    true,
			wantDetail: "paymentMethod",
		},
		{
			name:       "nested quantity",
			req:        request{Items: []line{{ItemID: 1, Quantity: 0}}, Room: "305", Method: "card"},
			wantErr:    true,
			wantDetail: "items[0].quantity",
		},
		{
			name:       "empty items",
			req:        request{Items: []line{}, Room: "305", Method: "card"},
			wantErr:    true,
			wantDetail: "items",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.req)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}

			e, ok := apperr.As(err)
			require.True(t, ok)
			assert.Equal(t, apperr.KindValidation, e.Kind)
			assert.Contains(t, e.Details, tt.wantDetail)
		})
	}
}
