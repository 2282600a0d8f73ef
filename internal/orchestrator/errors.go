package orchestrator

import (
	"fmt"

	"github.com/sightline9/a11y-cli/api/schemas"
	"github.com/sightline9/a11y-cli/internal/engines"
)

// NavigationError is the only error that crosses the per-page boundary. It
// carries a kind decided once and a user-facing, URL-inclusive message.
type NavigationError struct {
	Kind schemas.ErrorKind
	URL  string
	Err  error
}

func (e *NavigationError) Error() string {
	switch e.Kind {
	case schemas.ErrKindTimeout:
		return fmt.Sprintf("navigation to %s timed out; the page took too long to load", e.URL)
	case schemas.ErrKindNavigationRedirect:
		return fmt.Sprintf("analysis of %s was interrupted by a page redirect", e.URL)
	case schemas.ErrKindConnectionClosed:
		return fmt.Sprintf("the browser disconnected while analyzing %s", e.URL)
	default:
		return fmt.Sprintf("failed to analyze %s: %v", e.URL, e.Err)
	}
}

func (e *NavigationError) Unwrap() error { return e.Err }

// translateNavigationError classifies a fatal-phase failure exactly once.
func translateNavigationError(err error, url string) *NavigationError {
	return &NavigationError{
		Kind: engines.ClassifyError(err),
		URL:  url,
		Err:  err,
	}
}
