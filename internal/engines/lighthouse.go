package engines

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/sightline9/a11y-cli/api/schemas"
	"github.com/sightline9/a11y-cli/internal/config"
)

// Lighthouse shells out to the lighthouse CLI, normalizes the accessibility
// category's audits, and surfaces the four category scores.
type Lighthouse struct {
	cfg     config.EngineConfig
	logger  *zap.Logger
	runner  commandRunner
	version atomic.Value // string
}

// NewLighthouse creates the lighthouse adapter.
func NewLighthouse(cfg config.EngineConfig, logger *zap.Logger) *Lighthouse {
	return &Lighthouse{cfg: cfg, logger: logger.Named("lighthouse"), runner: runCommand}
}

func (l *Lighthouse) Name() string { return "lighthouse" }

func (l *Lighthouse) Version() string {
	if v, ok := l.version.Load().(string); ok {
		return v
	}
	return ""
}

// lhreport mirrors the slice of the Lighthouse JSON report the adapter reads.
type lhreport struct {
	LighthouseVersion string             `json:"lighthouseVersion"`
	Audits            map[string]lhAudit `json:"audits"`
	Categories        map[string]struct {
		Score     *float64 `json:"score"`
		AuditRefs []struct {
			ID string `json:"id"`
		} `json:"auditRefs"`
	} `json:"categories"`
}

type lhAudit struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Score            *float64 `json:"score"`
	ScoreDisplayMode string   `json:"scoreDisplayMode"`
	Details          *struct {
		Items []struct {
			Node *struct {
				Selector string `json:"selector"`
				Snippet  string `json:"snippet"`
			} `json:"node"`
		} `json:"items"`
	} `json:"details"`
}

// Analyze runs a full Lighthouse pass (all categories, so the score block is
// complete) and normalizes the accessibility audits.
func (l *Lighthouse) Analyze(ctx context.Context, target Target) (schemas.AnalyzerResult, error) {
	result, _, err := l.AnalyzeWithScores(ctx, target)
	return result, err
}

// AnalyzeWithScores is Analyze plus the category score block the report
// model carries at page level.
func (l *Lighthouse) AnalyzeWithScores(ctx context.Context, target Target) (schemas.AnalyzerResult, *schemas.LighthouseScores, error) {
	var scores *schemas.LighthouseScores
	result, err := run(ctx, l.logger, l.Name(), target.URL, l.cfg.Timeout, func(ctx context.Context) (schemas.AnalyzerResult, error) {
		out, err := l.runner(ctx, l.cfg.Binary,
			target.URL,
			"--output=json",
			"--quiet",
			"--chrome-flags=--headless --no-sandbox",
		)
		if err != nil {
			return schemas.AnalyzerResult{}, err
		}

		var report lhreport
		if err := json.Unmarshal(out, &report); err != nil {
			return schemas.AnalyzerResult{}, fmt.Errorf("decoding lighthouse output: %w", err)
		}
		if report.LighthouseVersion != "" {
			l.version.Store(report.LighthouseVersion)
		}
		scores = categoryScores(report)
		return l.normalize(report), nil
	})
	return result, scores, err
}

// normalize converts the accessibility category's audits into the three
// result buckets by score: 0 is a definite failure, 1 a definite pass, and
// everything in between (or unscorable) needs manual review.
func (l *Lighthouse) normalize(report lhreport) schemas.AnalyzerResult {
	violations := newAccumulator("lighthouse")
	passes := newAccumulator("lighthouse")
	incomplete := newAccumulator("lighthouse")

	cat, ok := report.Categories["accessibility"]
	if !ok {
		return schemas.AnalyzerResult{
			Violations: violations.results(),
			Passes:     passes.results(),
			Incomplete: incomplete.results(),
		}
	}

	for _, ref := range cat.AuditRefs {
		audit, ok := report.Audits[ref.ID]
		if !ok {
			continue
		}
		if audit.ScoreDisplayMode == "notApplicable" {
			continue
		}

		f := rawFinding{
			RuleID:      audit.ID,
			Description: audit.Title,
			Impact:      lighthouseImpact(audit.Score),
			WCAG:        lighthouseCriteria(audit.ID),
		}
		nodes := auditNodes(audit)

		addAll := func(acc *accumulator) {
			if len(nodes) == 0 {
				acc.add(f)
				return
			}
			for i := range nodes {
				nf := f
				nf.Node = &nodes[i]
				acc.add(nf)
			}
		}

		switch {
		case audit.Score == nil:
			addAll(incomplete)
		case *audit.Score == 0:
			addAll(violations)
		case *audit.Score == 1:
			addAll(passes)
		default:
			// Strictly between 0 and 1: partially failing, manual review.
			addAll(incomplete)
		}
	}

	return schemas.AnalyzerResult{
		Violations: violations.results(),
		Passes:     passes.results(),
		Incomplete: incomplete.results(),
	}
}

func auditNodes(audit lhAudit) []schemas.NodeInfo {
	if audit.Details == nil {
		return nil
	}
	var nodes []schemas.NodeInfo
	for _, item := range audit.Details.Items {
		if item.Node == nil {
			continue
		}
		nodes = append(nodes, schemas.NodeInfo{
			Target: item.Node.Selector,
			HTML:   item.Node.Snippet,
		})
	}
	return nodes
}

// lighthouseImpact derives the shared impact from the numeric audit score.
func lighthouseImpact(score *float64) schemas.ImpactLevel {
	if score == nil {
		return ""
	}
	switch s := *score; {
	case s < 0.5:
		return schemas.ImpactCritical
	case s < 0.7:
		return schemas.ImpactSerious
	case s < 0.9:
		return schemas.ImpactModerate
	default:
		return schemas.ImpactMinor
	}
}

func categoryScores(report lhreport) *schemas.LighthouseScores {
	pct := func(key string) float64 {
		if cat, ok := report.Categories[key]; ok && cat.Score != nil {
			return *cat.Score * 100
		}
		return 0
	}
	return &schemas.LighthouseScores{
		Performance:   pct("performance"),
		Accessibility: pct("accessibility"),
		BestPractices: pct("best-practices"),
		SEO:           pct("seo"),
	}
}

// lighthouseCriteriaByAudit maps the common accessibility audit IDs to their
// WCAG criteria. Lighthouse's JSON does not carry the axe tags, so this
// lookup mirrors the axe rules behind the audits.
var lighthouseCriteriaByAudit = map[string][]string{
	"image-alt":                  {"1.1.1"},
	"input-image-alt":            {"1.1.1"},
	"object-alt":                 {"1.1.1"},
	"video-caption":              {"1.2.2"},
	"color-contrast":             {"1.4.3"},
	"link-name":                  {"2.4.4", "4.1.2"},
	"button-name":                {"4.1.2"},
	"document-title":             {"2.4.2"},
	"html-has-lang":              {"3.1.1"},
	"html-lang-valid":            {"3.1.1"},
	"valid-lang":                 {"3.1.2"},
	"label":                      {"1.3.1", "4.1.2"},
	"form-field-multiple-labels": {"3.3.2"},
	"aria-allowed-attr":          {"4.1.2"},
	"aria-required-attr":         {"4.1.2"},
	"aria-valid-attr":            {"4.1.2"},
	"aria-valid-attr-value":      {"4.1.2"},
	"aria-hidden-body":           {"4.1.2"},
	"aria-hidden-focus":          {"4.1.2"},
	"duplicate-id-aria":          {"4.1.1"},
	"heading-order":              {"1.3.1"},
	"list":                       {"1.3.1"},
	"listitem":                   {"1.3.1"},
	"definition-list":            {"1.3.1"},
	"dlitem":                     {"1.3.1"},
	"td-headers-attr":            {"1.3.1"},
	"th-has-data-cells":          {"1.3.1"},
	"bypass":                     {"2.4.1"},
	"frame-title":                {"2.4.1", "4.1.2"},
	"meta-refresh":               {"2.2.1"},
	"meta-viewport":              {"1.4.4"},
	"accesskeys":                 {"2.1.1"},
	"tabindex":                   {"2.4.3"},
}

func lighthouseCriteria(auditID string) []string {
	return lighthouseCriteriaByAudit[auditID]
}
