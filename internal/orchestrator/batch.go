package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sightline9/a11y-cli/api/schemas"
)

// analysisErrorCode marks a page whose analysis failed inside a batch.
const analysisErrorCode = "ANALYSIS_ERROR"

// pageRunner is what the batch needs from the per-page orchestrator.
type pageRunner interface {
	AnalyzeURL(ctx context.Context, url string, emit schemas.Emitter) (*PageAudit, error)
}

// Batch audits an ordered URL list sequentially. Sequential processing is
// deliberate: it bounds browser resource usage and keeps the progress stream
// attributable to one URL at a time.
type Batch struct {
	logger *zap.Logger
	pages  pageRunner
}

// NewBatch creates the multi-URL orchestrator over a page analyzer.
func NewBatch(logger *zap.Logger, pages pageRunner) *Batch {
	return &Batch{logger: logger.Named("batch"), pages: pages}
}

// AnalyzeURLs processes the URLs strictly in input order, one at a time. A
// page's events are fully emitted before the next page starts. One URL's
// failure is recorded on its page entry and never aborts the batch; a failed
// page contributes zero to the summary. The first successful page's
// screenshot and Lighthouse scores become the report-level defaults.
func (b *Batch) AnalyzeURLs(ctx context.Context, urls []string, emit schemas.Emitter) (*schemas.AccessibilityReport, error) {
	report := &schemas.AccessibilityReport{
		AuditID:     uuid.New().String(),
		GeneratedAt: time.Now().UTC(),
		Pages:       make([]schemas.PageResult, 0, len(urls)),
		ToolsUsed:   []schemas.ToolInfo{},
	}
	seenTools := map[string]bool{}
	total := len(urls)

	for i, url := range urls {
		if err := ctx.Err(); err != nil {
			emit.Emit(schemas.NewErrorEvent("audit cancelled", "CANCELLED"))
			return report, err
		}

		emit.Emit(schemas.NewPageProgressEvent(i, total, url, schemas.PageStarted))
		b.logger.Info("Analyzing page",
			zap.Int("index", i),
			zap.Int("total", total),
			zap.String("url", url),
		)

		audit, err := b.pages.AnalyzeURL(ctx, url, emit)
		if err != nil {
			b.logger.Warn("Page analysis failed; continuing with remaining pages",
				zap.String("url", url),
				zap.Error(err),
			)
			report.Pages = append(report.Pages, schemas.PageResult{
				Name:       url,
				URL:        url,
				Violations: []schemas.RuleResult{},
				Passes:     []schemas.RuleResult{},
				Incomplete: []schemas.RuleResult{},
				Error:      &schemas.PageError{Message: err.Error(), Code: analysisErrorCode},
			})
			emit.Emit(schemas.NewPageProgressEvent(i, total, url, schemas.PageFailed))
			continue
		}

		report.Pages = append(report.Pages, audit.Result)
		report.Summary.TotalViolations += len(audit.Result.Violations)
		report.Summary.TotalPasses += len(audit.Result.Passes)
		report.Summary.TotalIncomplete += len(audit.Result.Incomplete)

		// Backward-compatible single-page shape: the first page's extras
		// double as report-level defaults.
		if report.Screenshot == nil {
			report.Screenshot = audit.Result.Screenshot
		}
		if report.LighthouseScores == nil {
			report.LighthouseScores = audit.Result.LighthouseScores
		}
		for _, tool := range audit.Tools {
			if !seenTools[tool.Name] {
				seenTools[tool.Name] = true
				report.ToolsUsed = append(report.ToolsUsed, tool)
			}
		}

		done := schemas.NewPageProgressEvent(i, total, url, schemas.PageCompleted)
		done.PageTitle = audit.Title
		emit.Emit(done)
	}

	emit.Emit(schemas.NewCompleteEvent(report))
	return report, nil
}
