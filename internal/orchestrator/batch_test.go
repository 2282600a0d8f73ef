package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sightline9/a11y-cli/api/schemas"
)

// fakePages returns canned audits per URL and records call order.
type fakePages struct {
	audits map[string]*PageAudit
	errs   map[string]error
	calls  []string
}

func (f *fakePages) AnalyzeURL(_ context.Context, url string, _ schemas.Emitter) (*PageAudit, error) {
	f.calls = append(f.calls, url)
	if err := f.errs[url]; err != nil {
		return nil, err
	}
	return f.audits[url], nil
}

func auditWith(url, title string, violations, passes, incomplete int) *PageAudit {
	mk := func(n int, prefix string) []schemas.RuleResult {
		out := make([]schemas.RuleResult, n)
		for i := range out {
			out[i] = schemas.RuleResult{ID: prefix, NodeCount: 1}
		}
		return out
	}
	return &PageAudit{
		Result: schemas.PageResult{
			Name:       title,
			URL:        url,
			Violations: mk(violations, "v"),
			Passes:     mk(passes, "p"),
			Incomplete: mk(incomplete, "i"),
		},
		Tools: []schemas.ToolInfo{{Name: "axe-core", Version: "4.10.2"}},
		Title: title,
	}
}

func collectEmitter(events *[]schemas.Event) schemas.Emitter {
	return func(ev schemas.Event) { *events = append(*events, ev) }
}

func pageEvents(events []schemas.Event) []schemas.PageProgressEvent {
	var out []schemas.PageProgressEvent
	for _, ev := range events {
		if pe, ok := ev.(schemas.PageProgressEvent); ok {
			out = append(out, pe)
		}
	}
	return out
}

func TestAnalyzeURLsAggregatesInOrder(t *testing.T) {
	urls := []string{"https://a.test", "https://b.test", "https://c.test"}
	pages := &fakePages{audits: map[string]*PageAudit{
		urls[0]: auditWith(urls[0], "A", 2, 10, 1),
		urls[1]: auditWith(urls[1], "B", 3, 5, 0),
		urls[2]: auditWith(urls[2], "C", 0, 5, 1),
	}}
	batch := NewBatch(zap.NewNop(), pages)

	var events []schemas.Event
	report, err := batch.AnalyzeURLs(context.Background(), urls, collectEmitter(&events))
	require.NoError(t, err)

	assert.Equal(t, urls, pages.calls)
	require.Len(t, report.Pages, 3)
	assert.Equal(t, urls[0], report.Pages[0].URL)
	assert.Equal(t, urls[2], report.Pages[2].URL)

	assert.Equal(t, 5, report.Summary.TotalViolations)
	assert.Equal(t, 20, report.Summary.TotalPasses)
	assert.Equal(t, 2, report.Summary.TotalIncomplete)

	assert.NotEmpty(t, report.AuditID)
	assert.False(t, report.GeneratedAt.IsZero())

	// Tools dedupe across pages.
	require.Len(t, report.ToolsUsed, 1)
	assert.Equal(t, "axe-core", report.ToolsUsed[0].Name)

	pe := pageEvents(events)
	require.Len(t, pe, 6)
	for i := 0; i < 3; i++ {
		assert.Equal(t, schemas.PageStarted, pe[2*i].Status)
		assert.Equal(t, i, pe[2*i].PageIndex)
		assert.Equal(t, 3, pe[2*i].TotalPages)
		assert.Equal(t, schemas.PageCompleted, pe[2*i+1].Status)
		assert.Equal(t, i, pe[2*i+1].PageIndex)
	}
	assert.Equal(t, "B", pe[3].PageTitle)

	// The run closes with exactly one complete event carrying the report.
	last, ok := events[len(events)-1].(schemas.CompleteEvent)
	require.True(t, ok)
	assert.Same(t, report, last.Report)
}

func TestAnalyzeURLsIsolatesFailedPage(t *testing.T) {
	urls := []string{"https://a.test", "https://b.test", "https://c.test"}
	pages := &fakePages{
		audits: map[string]*PageAudit{
			urls[0]: auditWith(urls[0], "A", 1, 4, 0),
			urls[2]: auditWith(urls[2], "C", 2, 6, 1),
		},
		errs: map[string]error{
			urls[1]: &NavigationError{Kind: schemas.ErrKindTimeout, URL: urls[1], Err: errors.New("Connection timeout")},
		},
	}
	batch := NewBatch(zap.NewNop(), pages)

	var events []schemas.Event
	report, err := batch.AnalyzeURLs(context.Background(), urls, collectEmitter(&events))
	require.NoError(t, err)

	// All three URLs are attempted and all three appear, in input order.
	assert.Equal(t, urls, pages.calls)
	require.Len(t, report.Pages, 3)

	failed := report.Pages[1]
	require.NotNil(t, failed.Error)
	assert.Equal(t, "ANALYSIS_ERROR", failed.Error.Code)
	assert.Contains(t, failed.Error.Message, urls[1])
	assert.NotNil(t, failed.Violations)
	assert.Empty(t, failed.Violations)
	assert.Nil(t, report.Pages[0].Error)
	assert.Nil(t, report.Pages[2].Error)

	// The failed page contributes nothing to the summary.
	assert.Equal(t, 3, report.Summary.TotalViolations)
	assert.Equal(t, 10, report.Summary.TotalPasses)
	assert.Equal(t, 1, report.Summary.TotalIncomplete)

	var failures []schemas.PageProgressEvent
	for _, pe := range pageEvents(events) {
		if pe.Status == schemas.PageFailed {
			failures = append(failures, pe)
		}
	}
	require.Len(t, failures, 1)
	assert.Equal(t, 1, failures[0].PageIndex)
}

func TestAnalyzeURLsFirstPageExtrasBecomeDefaults(t *testing.T) {
	urls := []string{"https://a.test", "https://b.test"}
	first := auditWith(urls[0], "A", 0, 1, 0)
	first.Result.Screenshot = []byte("png-a")
	first.Result.LighthouseScores = &schemas.LighthouseScores{Accessibility: 95}
	second := auditWith(urls[1], "B", 0, 1, 0)
	second.Result.Screenshot = []byte("png-b")
	second.Result.LighthouseScores = &schemas.LighthouseScores{Accessibility: 40}

	pages := &fakePages{audits: map[string]*PageAudit{urls[0]: first, urls[1]: second}}
	report, err := NewBatch(zap.NewNop(), pages).AnalyzeURLs(context.Background(), urls, nil)
	require.NoError(t, err)

	assert.Equal(t, []byte("png-a"), report.Screenshot)
	assert.Equal(t, 95.0, report.LighthouseScores.Accessibility)
}

func TestAnalyzeURLsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pages := &fakePages{}
	report, err := NewBatch(zap.NewNop(), pages).AnalyzeURLs(ctx, []string{"https://a.test"}, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, pages.calls)
	assert.Empty(t, report.Pages)
}
