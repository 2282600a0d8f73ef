// Package engines holds the adapters that normalize each third-party
// accessibility checker's native output into the shared result model.
package engines

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sightline9/a11y-cli/api/schemas"
)

// Evaluator is the slice of a live browser session an in-page engine needs:
// evaluate a JavaScript expression and decode its (awaited) result into out.
type Evaluator interface {
	Evaluate(ctx context.Context, expression string, out any) error
}

// Target is the input to every adapter. Page is nil for engines that work
// from the bare URL (the subprocess CLIs and the WAVE REST API).
type Target struct {
	URL  string
	Page Evaluator
}

// Engine is the shared adapter contract. Analyze always returns a usable
// AnalyzerResult: on any internal failure the result carries zero findings
// and the measured duration, and the error return exists only so the caller
// can log the failure and record a zero-duration ToolInfo. Analyze never
// panics and never returns findings alongside a non-nil error.
type Engine interface {
	Name() string
	Version() string
	Analyze(ctx context.Context, target Target) (schemas.AnalyzerResult, error)
}

// run wraps an adapter body with the failure contract: a per-engine timeout,
// duration measurement from entry, panic recovery, and conversion of every
// failure into the empty result. The returned error is advisory telemetry.
func run(
	ctx context.Context,
	logger *zap.Logger,
	name, url string,
	timeout time.Duration,
	body func(ctx context.Context) (schemas.AnalyzerResult, error),
) (result schemas.AnalyzerResult, err error) {
	start := time.Now()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", name, r)
		}
		if err == nil {
			return
		}
		elapsed := time.Since(start)
		result = schemas.EmptyAnalyzerResult(elapsed)
		switch ClassifyError(err) {
		case schemas.ErrKindTimeout:
			logger.Warn("Engine timed out",
				zap.String("engine", name),
				zap.String("url", url),
				zap.Duration("elapsed", elapsed),
			)
			err = fmt.Errorf("%s timed out after %s analyzing %s: %w", name, elapsed.Round(time.Millisecond), url, err)
		default:
			logger.Warn("Engine failed",
				zap.String("engine", name),
				zap.String("url", url),
				zap.Duration("elapsed", elapsed),
				zap.Error(err),
			)
		}
	}()

	result, err = body(ctx)
	if err != nil {
		return schemas.AnalyzerResult{}, err
	}
	result.Duration = time.Since(start)
	return result, nil
}

// ClassifyError decides an error's kind exactly once. Message inspection is
// confined to this function; callers branch on the returned kind.
func ClassifyError(err error) schemas.ErrorKind {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return schemas.ErrKindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return schemas.ErrKindTimeout
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "Timeout"):
		return schemas.ErrKindTimeout
	case strings.Contains(msg, "Execution context was destroyed"):
		return schemas.ErrKindNavigationRedirect
	case strings.Contains(msg, "Target closed"),
		strings.Contains(msg, "target closed"),
		errors.Is(err, context.Canceled):
		return schemas.ErrKindConnectionClosed
	default:
		return schemas.ErrKindEngineFailure
	}
}
