package engines

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sightline9/a11y-cli/api/schemas"
)

func TestRunConvertsFailureToEmptyResult(t *testing.T) {
	result, err := run(context.Background(), zap.NewNop(), "test-engine", "https://example.com", time.Minute,
		func(ctx context.Context) (schemas.AnalyzerResult, error) {
			return schemas.AnalyzerResult{}, errors.New("boom")
		})

	require.Error(t, err)
	assert.Empty(t, result.Violations)
	assert.Empty(t, result.Passes)
	assert.Empty(t, result.Incomplete)
	assert.NotNil(t, result.Violations)
	assert.GreaterOrEqual(t, result.Duration, time.Duration(0))
}

func TestRunRecoversPanic(t *testing.T) {
	result, err := run(context.Background(), zap.NewNop(), "test-engine", "https://example.com", time.Minute,
		func(ctx context.Context) (schemas.AnalyzerResult, error) {
			panic("engine exploded")
		})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine exploded")
	assert.Empty(t, result.Violations)
	assert.GreaterOrEqual(t, result.Duration, time.Duration(0))
}

func TestRunTimeoutMessageIncludesURL(t *testing.T) {
	result, err := run(context.Background(), zap.NewNop(), "slow-engine", "https://slow.example.com", 10*time.Millisecond,
		func(ctx context.Context) (schemas.AnalyzerResult, error) {
			<-ctx.Done()
			return schemas.AnalyzerResult{}, ctx.Err()
		})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "https://slow.example.com")
	assert.Contains(t, err.Error(), "timed out")
	assert.Empty(t, result.Violations)
}

func TestRunSetsDurationOnSuccess(t *testing.T) {
	result, err := run(context.Background(), zap.NewNop(), "ok-engine", "https://example.com", time.Minute,
		func(ctx context.Context) (schemas.AnalyzerResult, error) {
			time.Sleep(5 * time.Millisecond)
			return schemas.AnalyzerResult{
				Violations: []schemas.RuleResult{{ID: "r1"}},
				Passes:     []schemas.RuleResult{},
				Incomplete: []schemas.RuleResult{},
			}, nil
		})

	require.NoError(t, err)
	assert.Len(t, result.Violations, 1)
	assert.GreaterOrEqual(t, result.Duration, 5*time.Millisecond)
}

func TestClassifyError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want schemas.ErrorKind
	}{
		{"deadline", context.DeadlineExceeded, schemas.ErrKindTimeout},
		{"wrapped deadline", fmt.Errorf("navigate: %w", context.DeadlineExceeded), schemas.ErrKindTimeout},
		{"timeout substring", errors.New("page Timeout exceeded"), schemas.ErrKindTimeout},
		{"redirect", errors.New("Execution context was destroyed"), schemas.ErrKindNavigationRedirect},
		{"target closed", errors.New("Target closed"), schemas.ErrKindConnectionClosed},
		{"cancelled", context.Canceled, schemas.ErrKindConnectionClosed},
		{"other", errors.New("malformed response"), schemas.ErrKindEngineFailure},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyError(tc.err))
		})
	}
}
