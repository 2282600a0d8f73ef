package engines

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/sightline9/a11y-cli/api/schemas"
	"github.com/sightline9/a11y-cli/internal/config"
)

// Pa11y shells out to the pa11y CLI and normalizes its JSON issue list.
type Pa11y struct {
	cfg    config.EngineConfig
	logger *zap.Logger
	runner commandRunner
}

// NewPa11y creates the pa11y adapter.
func NewPa11y(cfg config.EngineConfig, logger *zap.Logger) *Pa11y {
	return &Pa11y{cfg: cfg, logger: logger.Named("pa11y"), runner: runCommand}
}

func (p *Pa11y) Name() string    { return "pa11y" }
func (p *Pa11y) Version() string { return "" }

// pa11yIssue is one entry of `pa11y --reporter json` output.
type pa11yIssue struct {
	Code     string `json:"code"`
	Type     string `json:"type"` // error | warning | notice
	Message  string `json:"message"`
	Context  string `json:"context"`
	Selector string `json:"selector"`
}

// Analyze runs pa11y against the URL. pa11y renders the page itself, so only
// the bare URL is needed.
func (p *Pa11y) Analyze(ctx context.Context, target Target) (schemas.AnalyzerResult, error) {
	return run(ctx, p.logger, p.Name(), target.URL, p.cfg.Timeout, func(ctx context.Context) (schemas.AnalyzerResult, error) {
		out, err := p.runner(ctx, p.cfg.Binary, "--reporter", "json", "--include-warnings", "--include-notices", target.URL)
		if err != nil {
			return schemas.AnalyzerResult{}, err
		}

		var issues []pa11yIssue
		if err := json.Unmarshal(out, &issues); err != nil {
			return schemas.AnalyzerResult{}, fmt.Errorf("decoding pa11y output: %w", err)
		}

		violations := newAccumulator("pa11y")
		incomplete := newAccumulator("pa11y")
		for _, issue := range issues {
			f := rawFinding{
				RuleID:      issue.Code,
				Description: issue.Message,
				Impact:      pa11yImpact(issue.Type),
				WCAG:        criteriaFromPa11yCode(issue.Code),
				Node: &schemas.NodeInfo{
					Target: issue.Selector,
					HTML:   issue.Context,
				},
			}
			// Errors are definite failures; warnings and notices need a
			// human to decide.
			if issue.Type == "error" {
				violations.add(f)
			} else {
				incomplete.add(f)
			}
		}

		return schemas.AnalyzerResult{
			Violations: violations.results(),
			Passes:     []schemas.RuleResult{},
			Incomplete: incomplete.results(),
		}, nil
	})
}

// pa11yImpact maps pa11y's issue types onto the shared scale.
func pa11yImpact(t string) schemas.ImpactLevel {
	switch t {
	case "error":
		return schemas.ImpactSerious
	case "warning":
		return schemas.ImpactModerate
	case "notice":
		return schemas.ImpactMinor
	default:
		return ""
	}
}
