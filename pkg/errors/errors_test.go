package errors

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorClassifiesContextErrors(t *testing.T) {
	assert.Equal(t, ErrCancelled.Code, FromError(context.Canceled).Code)
	assert.Equal(t, ErrNetwork.Code, FromError(fmt.Errorf("get: %w", context.DeadlineExceeded)).Code)
	assert.Equal(t, ErrInternal.Code, FromError(fmt.Errorf("boom")).Code)
	assert.Nil(t, FromError(nil))
}

func TestCloneMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("load: %w", Clone(ErrUnauthorized, "token expired"))
	assert.True(t, IsUnauthorized(err))
	assert.False(t, IsUnauthorized(ErrForbidden))
}

func TestValidationCarriesFields(t *testing.T) {
	err := Validation("invalid product", map[string]string{"price": "must be positive"})
	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.Equal(t, "must be positive", err.Fields["price"])
	assert.Nil(t, ErrValidation.Fields)
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(ErrNetwork))
	assert.True(t, Retryable(ErrInternal))
	assert.False(t, Retryable(ErrValidation))
	assert.False(t, Retryable(nil))
}
