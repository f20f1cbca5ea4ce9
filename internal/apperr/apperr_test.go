package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	base := New(KindNotAvailable, "")
	wrapped := fmt.Errorf("pickup: %w", base)

	assert.Equal(t, KindNotAvailable, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindNotAvailable))
	assert.False(t, Is(wrapped, KindNotFound))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestNewUsesPublicMessage(t *testing.T) {
	e := New(KindItemsUnavailable, "")
	assert.Equal(t, "some items are unavailable", e.Message)
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(e.Kind))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	e := Wrap(KindPaymentInitFailed, cause, "")

	require.ErrorIs(t, e, cause)
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(e.Kind))
}

func TestInvalidTransitionDetails(t *testing.T) {
	e := InvalidTransition("paid", "delivered")

	assert.Equal(t, KindInvalidTransition, e.Kind)
	assert.Equal(t, "paid", e.Details["current"])
	assert.Equal(t, "delivered", e.Details["requested"])
	assert.Contains(t, e.Error(), `"paid"`)
}
