package engines

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sightline9/a11y-cli/api/schemas"
	"github.com/sightline9/a11y-cli/internal/config"
)

// Wave calls the WAVE REST API for a bare URL. The API renders the page
// server-side, so no browser session is involved. Each adapter instance owns
// its call counter and rate limiter; there is no package-level state, so
// concurrent batches in one process cannot interfere through this adapter.
type Wave struct {
	cfg     config.WaveConfig
	logger  *zap.Logger
	client  *http.Client
	limiter *rate.Limiter
	calls   atomic.Int64
}

// NewWave creates the WAVE adapter.
func NewWave(cfg config.WaveConfig, logger *zap.Logger) *Wave {
	perMin := cfg.RatePerMin
	if perMin <= 0 {
		perMin = 10
	}
	return &Wave{
		cfg:     cfg,
		logger:  logger.Named("wave"),
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(perMin/60.0), 1),
	}
}

func (w *Wave) Name() string    { return "wave" }
func (w *Wave) Version() string { return "" }

// CallCount reports how many API requests this adapter instance has issued.
func (w *Wave) CallCount() int64 { return w.calls.Load() }

// waveResponse mirrors the WAVE API JSON document.
type waveResponse struct {
	Status struct {
		Success bool `json:"success"`
	} `json:"status"`
	Categories map[string]waveCategory `json:"categories"`
}

type waveCategory struct {
	Count int                 `json:"count"`
	Items map[string]waveItem `json:"items"`
}

type waveItem struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	Count       int      `json:"count"`
	XPaths      []string `json:"xpaths"`
}

// Analyze issues one rate-limited API request and normalizes the category
// buckets.
func (w *Wave) Analyze(ctx context.Context, target Target) (schemas.AnalyzerResult, error) {
	return run(ctx, w.logger, w.Name(), target.URL, w.cfg.Timeout, func(ctx context.Context) (schemas.AnalyzerResult, error) {
		if err := w.limiter.Wait(ctx); err != nil {
			return schemas.AnalyzerResult{}, err
		}

		q := url.Values{}
		q.Set("key", w.cfg.APIKey)
		q.Set("url", target.URL)
		q.Set("reporttype", fmt.Sprintf("%d", w.cfg.ReportType))

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.cfg.Endpoint+"?"+q.Encode(), nil)
		if err != nil {
			return schemas.AnalyzerResult{}, err
		}

		w.calls.Add(1)
		resp, err := w.client.Do(req)
		if err != nil {
			return schemas.AnalyzerResult{}, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return schemas.AnalyzerResult{}, fmt.Errorf("wave API returned %d: %s", resp.StatusCode, body)
		}

		var doc waveResponse
		if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
			return schemas.AnalyzerResult{}, fmt.Errorf("decoding wave response: %w", err)
		}
		if !doc.Status.Success {
			return schemas.AnalyzerResult{}, fmt.Errorf("wave API reported failure (check API key and credits)")
		}

		return w.normalize(doc), nil
	})
}

// normalize buckets WAVE categories: errors and contrast failures are
// definite violations, alerts need review, and the descriptive categories
// (features, structure, aria) count as passes.
func (w *Wave) normalize(doc waveResponse) schemas.AnalyzerResult {
	violations := newAccumulator("wave")
	passes := newAccumulator("wave")
	incomplete := newAccumulator("wave")

	// Fixed category order keeps reports reproducible.
	for _, category := range []string{"error", "contrast", "alert", "feature", "structure", "aria"} {
		data, ok := doc.Categories[category]
		if !ok {
			continue
		}
		var (
			acc    *accumulator
			impact schemas.ImpactLevel
		)
		switch category {
		case "error", "contrast":
			acc, impact = violations, schemas.ImpactSerious
		case "alert":
			acc, impact = incomplete, schemas.ImpactModerate
		default: // feature, structure, aria
			acc, impact = passes, ""
		}

		// Map iteration order is random; sort for reproducible reports.
		ids := make([]string, 0, len(data.Items))
		for id := range data.Items {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		for _, id := range ids {
			item := data.Items[id]
			ruleID := item.ID
			if ruleID == "" {
				ruleID = id
			}
			f := rawFinding{
				RuleID:      ruleID,
				Description: item.Description,
				Impact:      impact,
				WCAG:        waveCriteria(ruleID),
			}
			if len(item.XPaths) == 0 {
				f.Count = item.Count
				acc.add(f)
				continue
			}
			for _, xp := range item.XPaths {
				nf := f
				nf.Node = &schemas.NodeInfo{Target: xp}
				acc.add(nf)
			}
		}
	}

	return schemas.AnalyzerResult{
		Violations: violations.results(),
		Passes:     passes.results(),
		Incomplete: incomplete.results(),
	}
}

// waveCriteriaByRule is a heuristic rule-ID mapping; WAVE's API does not
// include WCAG references, so only well-known rule IDs resolve.
var waveCriteriaByRule = map[string][]string{
	"alt_missing":           {"1.1.1"},
	"alt_spacer_missing":    {"1.1.1"},
	"alt_input_missing":     {"1.1.1"},
	"alt_area_missing":      {"1.1.1"},
	"alt_map_missing":       {"1.1.1"},
	"alt_link_missing":      {"1.1.1", "2.4.4"},
	"contrast":              {"1.4.3"},
	"label_missing":         {"1.3.1", "3.3.2"},
	"label_empty":           {"1.3.1", "3.3.2"},
	"label_multiple":        {"3.3.2"},
	"link_empty":            {"2.4.4"},
	"link_skip_broken":      {"2.4.1"},
	"button_empty":          {"4.1.2"},
	"language_missing":      {"3.1.1"},
	"title_invalid":         {"2.4.2"},
	"heading_empty":         {"1.3.1", "2.4.6"},
	"heading_skipped":       {"1.3.1"},
	"th_empty":              {"1.3.1"},
	"aria_reference_broken": {"1.3.1", "4.1.2"},
	"aria_menu_broken":      {"4.1.2"},
	"fieldset_missing":      {"1.3.1"},
	"blink":                 {"2.2.2"},
	"marquee":               {"2.2.2"},
	"meta_refresh":          {"2.2.1"},
	"tabindex":              {"2.4.3"},
	"longdesc_invalid":      {"1.1.1"},
	"event_handler":         {"2.1.1"},
}

func waveCriteria(ruleID string) []string {
	return waveCriteriaByRule[ruleID]
}
