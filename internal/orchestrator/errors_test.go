package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sightline9/a11y-cli/api/schemas"
)

func TestTranslateNavigationError(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantKind schemas.ErrorKind
		wantMsg  string
	}{
		{
			name:     "timeout",
			err:      context.DeadlineExceeded,
			wantKind: schemas.ErrKindTimeout,
			wantMsg:  "took too long to load",
		},
		{
			name:     "redirect",
			err:      errors.New("Execution context was destroyed"),
			wantKind: schemas.ErrKindNavigationRedirect,
			wantMsg:  "interrupted by a page redirect",
		},
		{
			name:     "disconnect",
			err:      errors.New("websocket: Target closed"),
			wantKind: schemas.ErrKindConnectionClosed,
			wantMsg:  "browser disconnected",
		},
		{
			name:     "generic",
			err:      errors.New("net::ERR_NAME_NOT_RESOLVED"),
			wantKind: schemas.ErrKindEngineFailure,
			wantMsg:  "failed to analyze",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			navErr := translateNavigationError(tc.err, "https://example.com")
			assert.Equal(t, tc.wantKind, navErr.Kind)
			assert.Contains(t, navErr.Error(), "https://example.com")
			assert.Contains(t, navErr.Error(), tc.wantMsg)
			require.ErrorIs(t, navErr, tc.err)
		})
	}
}
