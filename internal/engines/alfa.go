package engines

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sightline9/a11y-cli/api/schemas"
	"github.com/sightline9/a11y-cli/internal/config"
)

// Alfa wraps a Siteimprove Alfa runner CLI that emits the audit's outcome
// list as JSON.
type Alfa struct {
	cfg    config.EngineConfig
	logger *zap.Logger
	runner commandRunner
}

// NewAlfa creates the Alfa adapter.
func NewAlfa(cfg config.EngineConfig, logger *zap.Logger) *Alfa {
	return &Alfa{cfg: cfg, logger: logger.Named("alfa"), runner: runCommand}
}

func (a *Alfa) Name() string    { return "alfa" }
func (a *Alfa) Version() string { return "" }

// alfaOutcome is one entry of the runner's outcome list.
type alfaOutcome struct {
	Outcome string `json:"outcome"` // passed | failed | cantTell | inapplicable
	Rule    struct {
		URI string `json:"uri"`
	} `json:"rule"`
	Target struct {
		Selector string `json:"selector"`
		HTML     string `json:"html"`
	} `json:"target"`
	Expectations map[string]string `json:"expectations"`
}

// Analyze runs the Alfa CLI and buckets outcomes by their verdict.
func (a *Alfa) Analyze(ctx context.Context, target Target) (schemas.AnalyzerResult, error) {
	return run(ctx, a.logger, a.Name(), target.URL, a.cfg.Timeout, func(ctx context.Context) (schemas.AnalyzerResult, error) {
		out, err := a.runner(ctx, a.cfg.Binary, "--format", "json", target.URL)
		if err != nil {
			return schemas.AnalyzerResult{}, err
		}

		var outcomes []alfaOutcome
		if err := json.Unmarshal(out, &outcomes); err != nil {
			return schemas.AnalyzerResult{}, fmt.Errorf("decoding alfa output: %w", err)
		}

		violations := newAccumulator("alfa")
		passes := newAccumulator("alfa")
		incomplete := newAccumulator("alfa")

		for _, oc := range outcomes {
			if oc.Outcome == "inapplicable" {
				continue
			}
			ruleID := alfaRuleID(oc.Rule.URI)
			f := rawFinding{
				RuleID:      ruleID,
				Description: alfaDescription(oc),
				Impact:      alfaImpact(oc.Outcome),
				HelpURL:     oc.Rule.URI,
				WCAG:        alfaCriteria(ruleID),
				Node: &schemas.NodeInfo{
					Target: oc.Target.Selector,
					HTML:   oc.Target.HTML,
				},
			}
			switch oc.Outcome {
			case "failed":
				violations.add(f)
			case "passed":
				passes.add(f)
			default: // cantTell
				incomplete.add(f)
			}
		}

		return schemas.AnalyzerResult{
			Violations: violations.results(),
			Passes:     passes.results(),
			Incomplete: incomplete.results(),
		}, nil
	})
}

// alfaRuleID extracts the trailing rule slug (e.g. "sia-r2") from the rule URI.
func alfaRuleID(uri string) string {
	uri = strings.TrimRight(uri, "/")
	if i := strings.LastIndex(uri, "/"); i >= 0 {
		return uri[i+1:]
	}
	return uri
}

func alfaDescription(oc alfaOutcome) string {
	for _, msg := range oc.Expectations {
		if msg != "" {
			return msg
		}
	}
	return "Alfa rule " + alfaRuleID(oc.Rule.URI)
}

// alfaImpact maps outcome verdicts onto the shared scale. A passed outcome
// carries no impact.
func alfaImpact(outcome string) schemas.ImpactLevel {
	switch outcome {
	case "failed":
		return schemas.ImpactSerious
	case "cantTell":
		return schemas.ImpactModerate
	default:
		return ""
	}
}

// alfaCriteriaByRule maps Alfa rule slugs to WCAG criteria. Alfa publishes
// the mapping in its rule metadata, not in the outcome JSON.
var alfaCriteriaByRule = map[string][]string{
	"sia-r1":  {"2.4.2"},          // document has a title
	"sia-r2":  {"1.1.1"},          // images have an accessible name
	"sia-r4":  {"3.1.1"},          // html has a lang attribute
	"sia-r5":  {"3.1.1"},          // lang attribute is valid
	"sia-r7":  {"3.1.2"},          // lang attributes of parts are valid
	"sia-r8":  {"4.1.2"},          // form fields have an accessible name
	"sia-r11": {"2.4.4", "4.1.2"}, // links have an accessible name
	"sia-r12": {"4.1.2"},          // buttons have an accessible name
	"sia-r13": {"4.1.2"},          // iframes have an accessible name
	"sia-r15": {"4.1.2"},          // same-content iframes
	"sia-r16": {"4.1.2"},          // required ARIA attributes present
	"sia-r17": {"4.1.2"},          // aria-hidden content is not focusable
	"sia-r18": {"4.1.2"},          // ARIA attributes allowed for role
	"sia-r19": {"4.1.2"},          // ARIA attribute values are valid
	"sia-r20": {"4.1.2"},          // ARIA attributes are defined
	"sia-r21": {"4.1.2"},          // role attribute values are valid
	"sia-r42": {"1.3.1"},          // elements have required context roles
	"sia-r43": {"1.3.1"},          // SVG has an accessible name
	"sia-r53": {"1.3.1"},          // heading levels are not skipped
	"sia-r62": {"1.4.1"},          // links are distinguishable
	"sia-r69": {"1.4.3"},          // text has sufficient contrast
	"sia-r87": {"2.4.1"},          // first focusable element is a skip link
}

func alfaCriteria(ruleID string) []string {
	return alfaCriteriaByRule[ruleID]
}
