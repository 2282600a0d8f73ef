package engines

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sightline9/a11y-cli/api/schemas"
)

// maxHTMLExcerpt caps the HTML snippet attached to a node.
const maxHTMLExcerpt = 200

// truncateHTML trims an excerpt to maxHTMLExcerpt characters, appending an
// ellipsis when anything was cut.
func truncateHTML(s string) string {
	runes := []rune(s)
	if len(runes) <= maxHTMLExcerpt {
		return s
	}
	return string(runes[:maxHTMLExcerpt]) + "..."
}

// rawFinding is one occurrence reported by an engine, before merging.
type rawFinding struct {
	RuleID      string
	Description string
	Impact      schemas.ImpactLevel
	HelpURL     string
	WCAG        []string
	Node        *schemas.NodeInfo
	// Count overrides the per-occurrence increment for engines that report
	// aggregate counts without individual nodes (WAVE). Zero means one.
	Count int
}

// accumulator merges raw findings by rule ID within a single tool's output.
// The first occurrence's description, impact and help URL win; node lists and
// counts accumulate; WCAG criteria union order-stably.
type accumulator struct {
	tool   string
	order  []string
	byRule map[string]*schemas.RuleResult
}

func newAccumulator(tool string) *accumulator {
	return &accumulator{tool: tool, byRule: make(map[string]*schemas.RuleResult)}
}

func (a *accumulator) add(f rawFinding) {
	count := f.Count
	if count == 0 {
		count = 1
	}

	rr, ok := a.byRule[f.RuleID]
	if !ok {
		rr = &schemas.RuleResult{
			ID:           f.RuleID,
			Description:  f.Description,
			Impact:       f.Impact,
			HelpURL:      f.HelpURL,
			WCAGCriteria: []string{},
			ToolSource:   a.tool,
		}
		a.byRule[f.RuleID] = rr
		a.order = append(a.order, f.RuleID)
	}

	rr.WCAGCriteria = appendCriteria(rr.WCAGCriteria, f.WCAG)
	rr.NodeCount += count
	if f.Node != nil {
		node := *f.Node
		node.HTML = truncateHTML(node.HTML)
		rr.Nodes = append(rr.Nodes, node)
	}
}

// results returns the merged rules in first-seen order.
func (a *accumulator) results() []schemas.RuleResult {
	out := make([]schemas.RuleResult, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, *a.byRule[id])
	}
	return out
}

// appendCriteria unions additions into existing, preserving first-seen order.
func appendCriteria(existing, additions []string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, c := range existing {
		seen[c] = struct{}{}
	}
	for _, c := range additions {
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		existing = append(existing, c)
	}
	return existing
}

// axeTagRe matches axe/Lighthouse style tags such as "wcag111" or "wcag1410".
// The final digits split greedily: the guideline digit is single, the rest is
// the criterion number.
var axeTagRe = regexp.MustCompile(`^wcag(\d)(\d)(\d+)$`)

// criteriaFromTags extracts "X.Y.Z" criteria from axe-style tag lists.
func criteriaFromTags(tags []string) []string {
	var out []string
	for _, tag := range tags {
		if m := axeTagRe.FindStringSubmatch(tag); m != nil {
			out = append(out, fmt.Sprintf("%s.%s.%s", m[1], m[2], m[3]))
		}
	}
	return dedupeCriteria(out)
}

// pa11yCodeRe matches the underscore-delimited criterion embedded in pa11y
// codes, e.g. "WCAG2AA.Principle1.Guideline1_1.1_1_1.H30.2".
var pa11yCodeRe = regexp.MustCompile(`\b(\d+)_(\d+)_(\d+)\b`)

// criteriaFromPa11yCode pulls every embedded criterion out of a pa11y code.
func criteriaFromPa11yCode(code string) []string {
	var out []string
	for _, m := range pa11yCodeRe.FindAllStringSubmatch(code, -1) {
		// Guideline references like "1_1" are two-part; the criterion is the
		// three-part form, which is all the regexp accepts.
		out = append(out, fmt.Sprintf("%s.%s.%s", m[1], m[2], m[3]))
	}
	return dedupeCriteria(out)
}

func dedupeCriteria(in []string) []string {
	if len(in) < 2 {
		return in
	}
	return appendCriteria(in[:1:1], in[1:])
}

// joinSelector renders an axe-style target path (a list of selectors) as one
// string.
func joinSelector(parts []string) string {
	return strings.Join(parts, " ")
}
