package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relaygate/relaygate/internal/domain"
)

func TestIsFailFast(t *testing.T) {
	t.Run("routing and ownership errors fail fast", func(t *testing.T) {
		assert.True(t, domain.IsFailFast(domain.ErrEndpointNotFound))
		assert.True(t, domain.IsFailFast(domain.ErrInstanceNotFound))
		assert.True(t, domain.IsFailFast(domain.ErrInstanceNotConnected))
		assert.True(t, domain.IsFailFast(domain.ErrForbidden))
		assert.True(t, domain.IsFailFast(domain.ErrInstanceRequired))
	})

	t.Run("upstream and quota errors do not", func(t *testing.T) {
		assert.False(t, domain.IsFailFast(domain.ErrQuotaExceeded))
		assert.False(t, domain.IsFailFast(domain.ErrUpstreamTimeout))
		assert.False(t, domain.IsFailFast(domain.ErrCircuitOpen))
	})

	t.Run("matches wrapped errors", func(t *testing.T) {
		wrapped := fmt.Errorf("dispatch: %w", domain.ErrEndpointNotFound)
		assert.True(t, domain.IsFailFast(wrapped))
	})
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, domain.IsRetryable(domain.ErrUpstreamTimeout))
	assert.True(t, domain.IsRetryable(domain.ErrUpstreamUnavailable))
	assert.True(t, domain.IsRetryable(domain.ErrCircuitOpen))
	assert.True(t, domain.IsRetryable(domain.ErrStoreUnavailable))

	assert.False(t, domain.IsRetryable(domain.ErrQuotaExceeded))
	assert.False(t, domain.IsRetryable(domain.ErrUpstreamValidation))
	assert.False(t, domain.IsRetryable(errors.New("some other error")))
}

func TestIsClientError(t *testing.T) {
	assert.True(t, domain.IsClientError(domain.ErrQuotaExceeded))
	assert.True(t, domain.IsClientError(domain.ErrUpstreamValidation))
	assert.True(t, domain.IsClientError(domain.ErrUnauthorized))

	assert.False(t, domain.IsClientError(domain.ErrUpstreamUnavailable))
	assert.False(t, domain.IsClientError(domain.ErrStoreUnavailable))
	assert.False(t, domain.IsClientError(nil))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, domain.IsNotFound(domain.ErrEndpointNotFound))
	assert.True(t, domain.IsNotFound(domain.ErrInstanceNotFound))
	assert.False(t, domain.IsNotFound(domain.ErrForbidden))
}
