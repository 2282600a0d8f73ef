package schemas

import "time"

// -- Normalized Result Model --

// ImpactLevel is the four point severity scale shared by every engine.
// The values are lowercase so they serialize cleanly and sort stably.
type ImpactLevel string

const (
	ImpactCritical ImpactLevel = "critical"
	ImpactSerious  ImpactLevel = "serious"
	ImpactModerate ImpactLevel = "moderate"
	ImpactMinor    ImpactLevel = "minor"
)

// impactOrder gives the total ordering used for sorting and reporting.
var impactOrder = map[ImpactLevel]int{
	ImpactCritical: 0,
	ImpactSerious:  1,
	ImpactModerate: 2,
	ImpactMinor:    3,
}

// Rank returns the sort position of the impact level, critical first.
// Unknown or empty levels sort last.
func (l ImpactLevel) Rank() int {
	if r, ok := impactOrder[l]; ok {
		return r
	}
	return len(impactOrder)
}

// NodeInfo is one implicated DOM location for a finding. HTML excerpts are
// capped at 200 characters by the adapters before they land here.
type NodeInfo struct {
	Target         string `json:"target"`
	HTML           string `json:"html,omitempty"`
	FailureSummary string `json:"failureSummary,omitempty"`
}

// RuleResult is one normalized accessibility finding. Raw findings sharing
// the same (toolSource, id) are merged into a single RuleResult whose nodes
// accumulate every occurrence; NodeCount always equals len(Nodes) when Nodes
// is populated.
type RuleResult struct {
	ID           string      `json:"id"`
	Description  string      `json:"description"`
	Impact       ImpactLevel `json:"impact,omitempty"`
	NodeCount    int         `json:"nodeCount"`
	HelpURL      string      `json:"helpUrl,omitempty"`
	WCAGCriteria []string    `json:"wcagCriteria"`
	ToolSource   string      `json:"toolSource"`
	Nodes        []NodeInfo  `json:"nodes,omitempty"`
}

// AnalyzerResult is the unit of output of every engine adapter. Duration is
// always set, success or failure; a failed engine produces the zero finding
// slices, never a nil result.
type AnalyzerResult struct {
	Violations []RuleResult  `json:"violations"`
	Passes     []RuleResult  `json:"passes"`
	Incomplete []RuleResult  `json:"incomplete"`
	Duration   time.Duration `json:"duration"`
}

// EmptyAnalyzerResult returns the failure-contract result: no findings but a
// measured duration.
func EmptyAnalyzerResult(d time.Duration) AnalyzerResult {
	return AnalyzerResult{
		Violations: []RuleResult{},
		Passes:     []RuleResult{},
		Incomplete: []RuleResult{},
		Duration:   d,
	}
}

// ToolInfo records one engine actually invoked for a page. A failed engine
// is recorded with Duration zero.
type ToolInfo struct {
	Name     string        `json:"name"`
	Version  string        `json:"version,omitempty"`
	Duration time.Duration `json:"duration"`
}

// LighthouseScores carries the 0-100 category scores from a Lighthouse run.
type LighthouseScores struct {
	Performance   float64 `json:"performance"`
	Accessibility float64 `json:"accessibility"`
	BestPractices float64 `json:"bestPractices"`
	SEO           float64 `json:"seo"`
}

// -- Report Model --

// PageError marks a page whose analysis failed outright. A page with a
// non-nil error carries no findings.
type PageError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// PageResult is the outcome for a single audited URL, successful or not.
type PageResult struct {
	Name             string            `json:"name"`
	URL              string            `json:"url"`
	Violations       []RuleResult      `json:"violations"`
	Passes           []RuleResult      `json:"passes"`
	Incomplete       []RuleResult      `json:"incomplete"`
	Screenshot       []byte            `json:"screenshot,omitempty"`
	LighthouseScores *LighthouseScores `json:"lighthouseScores,omitempty"`
	Error            *PageError        `json:"error,omitempty"`
}

// Summary aggregates finding counts over the pages that did not error;
// errored pages contribute zero.
type Summary struct {
	TotalViolations int `json:"totalViolations"`
	TotalPasses     int `json:"totalPasses"`
	TotalIncomplete int `json:"totalIncomplete"`
}

// AccessibilityReport is the top level audit result, covering one page or a
// multi-URL batch. Screenshot and LighthouseScores are report-level defaults
// taken from the first page, preserving the single-page shape.
type AccessibilityReport struct {
	AuditID          string            `json:"auditId"`
	GeneratedAt      time.Time         `json:"generatedAt"`
	Summary          Summary           `json:"summary"`
	Pages            []PageResult      `json:"pages"`
	Screenshot       []byte            `json:"screenshot,omitempty"`
	LighthouseScores *LighthouseScores `json:"lighthouseScores,omitempty"`
	ToolsUsed        []ToolInfo        `json:"toolsUsed"`
}
