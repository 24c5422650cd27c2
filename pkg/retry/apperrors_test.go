package retry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/apicrafter/metacrafter-go/pkg/apperrors"
	"github.com/apicrafter/metacrafter-go/pkg/retry"
)

// TestIsRetryable_WithAppError verifies that retry.IsRetryable correctly
// recognizes apperrors.Error retryability via the IsRetryable() interface
// method, without any special-casing in the retry package itself.
func TestIsRetryable_WithAppError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "retryable llm provider error (503)",
			err:      apperrors.New(apperrors.KindLLMProvider, "server error", true, errors.New("HTTP 503")),
			expected: true,
		},
		{
			name:     "retryable llm provider error (429)",
			err:      apperrors.New(apperrors.KindLLMProvider, "rate limited", true, errors.New("HTTP 429")),
			expected: true,
		},
		{
			name:     "non-retryable rule compile error",
			err:      apperrors.New(apperrors.KindRuleCompile, "unknown match type", false, nil),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, retry.IsRetryable(tt.err))
		})
	}
}

func TestDoIfRetryable_WithAppError(t *testing.T) {
	t.Run("retries retryable apperrors.Error", func(t *testing.T) {
		cfg := &retry.Config{MaxRetries: 3, InitialDelay: 1, MaxDelay: 10, Multiplier: 2.0}

		callCount := 0
		err := retry.DoIfRetryable(context.Background(), cfg, func() error {
			callCount++
			if callCount < 3 {
				return apperrors.New(apperrors.KindLLMProvider, "server error", true, errors.New("HTTP 503"))
			}
			return nil
		})

		require.NoError(t, err)
		require.Equal(t, 3, callCount)
	})

	t.Run("fails immediately on non-retryable apperrors.Error", func(t *testing.T) {
		cfg := &retry.Config{MaxRetries: 3, InitialDelay: 1, MaxDelay: 10, Multiplier: 2.0}

		callCount := 0
		err := retry.DoIfRetryable(context.Background(), cfg, func() error {
			callCount++
			return apperrors.New(apperrors.KindRuleCompile, "bad grammar", false, nil)
		})

		require.Error(t, err)
		require.Equal(t, 1, callCount)
	})
}
