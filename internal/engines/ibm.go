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

// IBM wraps the IBM Equal Access checker CLI and normalizes its rule
// value/state vocabulary.
type IBM struct {
	cfg     config.EngineConfig
	logger  *zap.Logger
	runner  commandRunner
	version atomic.Value // string
}

// NewIBM creates the Equal Access adapter.
func NewIBM(cfg config.EngineConfig, logger *zap.Logger) *IBM {
	return &IBM{cfg: cfg, logger: logger.Named("ibm"), runner: runCommand}
}

func (e *IBM) Name() string { return "ibm-equal-access" }

func (e *IBM) Version() string {
	if v, ok := e.version.Load().(string); ok {
		return v
	}
	return ""
}

// ibmReport mirrors the checker's JSON output.
type ibmReport struct {
	ToolVersion string      `json:"toolVersion"`
	Results     []ibmResult `json:"results"`
}

type ibmResult struct {
	RuleID  string `json:"ruleId"`
	Message string `json:"message"`
	Snippet string `json:"snippet"`
	// Value is [level, state]: level in {VIOLATION, POTENTIAL_VIOLATION,
	// RECOMMENDATION, INFORMATION}, state in {FAIL, POTENTIAL, MANUAL, PASS}.
	Value []string `json:"value"`
	Path  struct {
		DOM string `json:"dom"`
	} `json:"path"`
}

// Analyze runs the checker against the URL and buckets results by state.
func (e *IBM) Analyze(ctx context.Context, target Target) (schemas.AnalyzerResult, error) {
	return run(ctx, e.logger, e.Name(), target.URL, e.cfg.Timeout, func(ctx context.Context) (schemas.AnalyzerResult, error) {
		out, err := e.runner(ctx, e.cfg.Binary, "--outputFormat", "json", "--outputToStdout", target.URL)
		if err != nil {
			return schemas.AnalyzerResult{}, err
		}

		var report ibmReport
		if err := json.Unmarshal(out, &report); err != nil {
			return schemas.AnalyzerResult{}, fmt.Errorf("decoding equal-access output: %w", err)
		}
		if report.ToolVersion != "" {
			e.version.Store(report.ToolVersion)
		}

		violations := newAccumulator("ibm-equal-access")
		passes := newAccumulator("ibm-equal-access")
		incomplete := newAccumulator("ibm-equal-access")

		for _, res := range report.Results {
			level, state := ibmValue(res.Value)
			f := rawFinding{
				RuleID:      res.RuleID,
				Description: res.Message,
				Impact:      ibmImpact(level),
				WCAG:        ibmCriteria(res.RuleID),
				Node: &schemas.NodeInfo{
					Target: res.Path.DOM,
					HTML:   res.Snippet,
				},
			}
			switch state {
			case "FAIL":
				violations.add(f)
			case "PASS":
				passes.add(f)
			default:
				// POTENTIAL and MANUAL need a human decision.
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

func ibmValue(value []string) (level, state string) {
	if len(value) > 0 {
		level = value[0]
	}
	if len(value) > 1 {
		state = value[1]
	}
	return level, state
}

// ibmImpact maps the checker's level vocabulary onto the shared scale.
func ibmImpact(level string) schemas.ImpactLevel {
	switch level {
	case "VIOLATION":
		return schemas.ImpactSerious
	case "POTENTIAL_VIOLATION":
		return schemas.ImpactModerate
	case "RECOMMENDATION":
		return schemas.ImpactMinor
	default:
		return ""
	}
}

// ibmCriteriaByRule maps common Equal Access rule IDs to WCAG checkpoints.
// The checker encodes checkpoints in its own rule metadata rather than the
// per-result JSON, so a curated lookup stands in for it.
var ibmCriteriaByRule = map[string][]string{
	"img_alt_valid":              {"1.1.1"},
	"img_alt_misuse":             {"1.1.1"},
	"input_label_exists":         {"1.3.1", "3.3.2"},
	"input_label_visible":        {"3.3.2"},
	"text_contrast_sufficient":   {"1.4.3"},
	"a_text_purpose":             {"2.4.4"},
	"page_title_exists":          {"2.4.2"},
	"html_lang_exists":           {"3.1.1"},
	"html_lang_valid":            {"3.1.1"},
	"aria_role_valid":            {"4.1.2"},
	"aria_attribute_valid":       {"4.1.2"},
	"aria_id_unique":             {"4.1.1"},
	"skip_main_exists":           {"2.4.1"},
	"frame_title_exists":         {"2.4.1", "4.1.2"},
	"heading_content_exists":     {"1.3.1", "2.4.6"},
	"table_headers_exists":       {"1.3.1"},
	"blink_elem_deprecated":      {"2.2.2"},
	"meta_refresh_delay":         {"2.2.1"},
	"element_tabbable_visible":   {"2.4.7"},
	"aria_content_in_landmark":   {"1.3.1"},
	"list_structure_proper":      {"1.3.1"},
	"widget_tabbable_exists":     {"2.1.1"},
	"media_alt_exists":           {"1.1.1", "1.2.1"},
	"form_submit_button_exists":  {"3.2.2"},
	"label_content_exists":       {"1.3.1", "2.4.6"},
}

func ibmCriteria(ruleID string) []string {
	return ibmCriteriaByRule[ruleID]
}
