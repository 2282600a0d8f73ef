package engines

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/sightline9/a11y-cli/api/schemas"
	"github.com/sightline9/a11y-cli/internal/config"
)

// loadAxeFromURL injects axe-core via a script tag and resolves once the
// global is available. Used when no local script path is configured.
const loadAxeFromURL = `new Promise((resolve, reject) => {
	if (window.axe) { resolve(true); return; }
	const s = document.createElement('script');
	s.src = %q;
	s.onload = () => resolve(true);
	s.onerror = () => reject(new Error('failed to load axe-core'));
	document.head.appendChild(s);
})`

// Axe runs axe-core inside the live page and normalizes its result document.
type Axe struct {
	cfg     config.AxeConfig
	logger  *zap.Logger
	version atomic.Value // string, from testEngine.version
}

// NewAxe creates the axe-core adapter.
func NewAxe(cfg config.AxeConfig, logger *zap.Logger) *Axe {
	return &Axe{cfg: cfg, logger: logger.Named("axe")}
}

func (a *Axe) Name() string { return "axe-core" }

func (a *Axe) Version() string {
	if v, ok := a.version.Load().(string); ok {
		return v
	}
	return ""
}

// axeDocument mirrors the slice of axe.run() output the adapter consumes.
type axeDocument struct {
	TestEngine struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"testEngine"`
	Violations []axeRule `json:"violations"`
	Passes     []axeRule `json:"passes"`
	Incomplete []axeRule `json:"incomplete"`
}

type axeRule struct {
	ID          string    `json:"id"`
	Impact      string    `json:"impact"`
	Description string    `json:"description"`
	HelpURL     string    `json:"helpUrl"`
	Tags        []string  `json:"tags"`
	Nodes       []axeNode `json:"nodes"`
}

type axeNode struct {
	Target         []string `json:"target"`
	HTML           string   `json:"html"`
	FailureSummary string   `json:"failureSummary"`
	Impact         string   `json:"impact"`
}

// Analyze injects axe-core and evaluates a full run against the document.
func (a *Axe) Analyze(ctx context.Context, target Target) (schemas.AnalyzerResult, error) {
	return run(ctx, a.logger, a.Name(), target.URL, a.cfg.Timeout, func(ctx context.Context) (schemas.AnalyzerResult, error) {
		if target.Page == nil {
			return schemas.AnalyzerResult{}, fmt.Errorf("axe-core requires a live page session")
		}
		if err := a.inject(ctx, target.Page); err != nil {
			return schemas.AnalyzerResult{}, err
		}

		var doc axeDocument
		expr := `axe.run(document, { resultTypes: ['violations', 'passes', 'incomplete'] })`
		if err := target.Page.Evaluate(ctx, expr, &doc); err != nil {
			return schemas.AnalyzerResult{}, fmt.Errorf("axe.run failed: %w", err)
		}
		if doc.TestEngine.Version != "" {
			a.version.Store(doc.TestEngine.Version)
		}

		return schemas.AnalyzerResult{
			Violations: a.normalize(doc.Violations),
			Passes:     a.normalize(doc.Passes),
			Incomplete: a.normalize(doc.Incomplete),
		}, nil
	})
}

// inject makes window.axe available, from a local file when configured,
// otherwise from the configured script URL.
func (a *Axe) inject(ctx context.Context, page Evaluator) error {
	if a.cfg.ScriptPath != "" {
		src, err := os.ReadFile(a.cfg.ScriptPath)
		if err != nil {
			return fmt.Errorf("reading axe script: %w", err)
		}
		var ok bool
		if err := page.Evaluate(ctx, string(src)+"; !!window.axe", &ok); err != nil {
			return fmt.Errorf("injecting axe script: %w", err)
		}
		if !ok {
			return fmt.Errorf("axe script evaluated but window.axe is missing")
		}
		return nil
	}

	var loaded bool
	if err := page.Evaluate(ctx, fmt.Sprintf(loadAxeFromURL, a.cfg.ScriptURL), &loaded); err != nil {
		return fmt.Errorf("loading axe from %s: %w", a.cfg.ScriptURL, err)
	}
	// Give the page a beat in case onload raced the evaluation.
	if !loaded {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
	return nil
}

// normalize merges one axe bucket into RuleResults. Axe's severity vocabulary
// is already the shared one, so the impact maps through directly.
func (a *Axe) normalize(rules []axeRule) []schemas.RuleResult {
	acc := newAccumulator("axe-core")
	for _, rule := range rules {
		criteria := criteriaFromTags(rule.Tags)
		if len(rule.Nodes) == 0 {
			acc.add(rawFinding{
				RuleID:      rule.ID,
				Description: rule.Description,
				Impact:      axeImpact(rule.Impact),
				HelpURL:     rule.HelpURL,
				WCAG:        criteria,
			})
			continue
		}
		for _, node := range rule.Nodes {
			acc.add(rawFinding{
				RuleID:      rule.ID,
				Description: rule.Description,
				Impact:      axeImpact(rule.Impact),
				HelpURL:     rule.HelpURL,
				WCAG:        criteria,
				Node: &schemas.NodeInfo{
					Target:         joinSelector(node.Target),
					HTML:           node.HTML,
					FailureSummary: node.FailureSummary,
				},
			})
		}
	}
	return acc.results()
}

// axeImpact validates axe's impact string against the shared scale.
func axeImpact(s string) schemas.ImpactLevel {
	switch l := schemas.ImpactLevel(s); l {
	case schemas.ImpactCritical, schemas.ImpactSerious, schemas.ImpactModerate, schemas.ImpactMinor:
		return l
	default:
		return ""
	}
}
