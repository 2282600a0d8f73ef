// Package liveregion detects and validates ARIA live regions through pure
// static analysis of the rendered HTML; no browser automation is involved.
package liveregion

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/sightline9/a11y-cli/api/schemas"
)

// implicitLiveness maps live-semantic roles to their implied aria-live value.
// marquee and timer are informational: they imply polite but assistive
// technology rarely announces them.
var implicitLiveness = map[string]schemas.LiveSetting{
	"alert":   schemas.LiveAssertive,
	"status":  schemas.LivePolite,
	"log":     schemas.LivePolite,
	"marquee": schemas.LivePolite,
	"timer":   schemas.LivePolite,
}

// Validator performs live region detection and validation over one document.
type Validator struct{}

// New creates a Validator.
func New() *Validator { return &Validator{} }

// region pairs the public info with the node it came from, for the ancestor
// and content checks.
type region struct {
	info schemas.LiveRegionInfo
	node *html.Node
}

// Validate parses the document and runs detection plus every validation rule.
func (v *Validator) Validate(document string) (schemas.LiveRegionValidationResult, error) {
	result := schemas.LiveRegionValidationResult{
		LiveRegions: []schemas.LiveRegionInfo{},
		Issues:      []schemas.LiveRegionIssue{},
		ByRole:      map[string]int{},
	}

	root, err := html.Parse(strings.NewReader(document))
	if err != nil {
		return result, fmt.Errorf("parsing document: %w", err)
	}

	regions := collect(root)
	liveNodes := make(map[*html.Node]bool, len(regions))
	for _, r := range regions {
		liveNodes[r.node] = true
	}

	for _, r := range regions {
		result.LiveRegions = append(result.LiveRegions, r.info)
		result.Issues = append(result.Issues, validate(r, liveNodes)...)

		switch resolvedLiveness(r.info) {
		case schemas.LivePolite:
			result.ByType.Polite++
		case schemas.LiveAssertive:
			result.ByType.Assertive++
		}
		// ByRole counts declared role strings only; an implicit-only region
		// has no role attribute and contributes nothing here.
		if r.info.Role != "" {
			result.ByRole[r.info.Role]++
		}
	}

	result.TotalLiveRegions = len(result.LiveRegions)
	return result, nil
}

// collect walks the tree once. Detection keys on the DOM node, so an element
// with both an aria-live attribute and a live role yields exactly one region.
func collect(root *html.Node) []region {
	var regions []region
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if r, ok := detect(n); ok {
				regions = append(regions, r)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return regions
}

// detect decides whether a single element is a live region, explicitly via
// aria-live or implicitly via a live-semantic role.
func detect(n *html.Node) (region, bool) {
	ariaLive := schemas.LiveSetting(attr(n, "aria-live"))
	role := attr(n, "role")
	implicit, hasImplicit := implicitLiveness[role]

	explicit := ariaLive == schemas.LivePolite || ariaLive == schemas.LiveAssertive || ariaLive == schemas.LiveOff
	if !explicit && !hasImplicit {
		return region{}, false
	}

	info := schemas.LiveRegionInfo{
		Selector:     selectorFor(n),
		Role:         role,
		AriaAtomic:   attr(n, "aria-atomic"),
		AriaRelevant: attr(n, "aria-relevant"),
	}
	if explicit {
		info.AriaLive = ariaLive
	}
	if hasImplicit {
		info.ImplicitAriaLive = implicit
	}
	return region{info: info, node: n}, true
}

// resolvedLiveness is the explicit value when present, else the implicit one.
// Regions resolving to "off" are not active and count toward neither bucket.
func resolvedLiveness(info schemas.LiveRegionInfo) schemas.LiveSetting {
	if info.AriaLive != "" {
		return info.AriaLive
	}
	return info.ImplicitAriaLive
}

// validate applies every rule to one region.
func validate(r region, liveNodes map[*html.Node]bool) []schemas.LiveRegionIssue {
	var issues []schemas.LiveRegionIssue
	add := func(t schemas.LiveRegionIssueType, severity string) {
		issues = append(issues, schemas.LiveRegionIssue{
			Selector: r.info.Selector,
			Type:     t,
			Severity: severity,
		})
	}

	if strings.TrimSpace(textContent(r.node)) == "" {
		add(schemas.IssueEmptyLiveRegion, "warning")
	}

	if _, liveRole := implicitLiveness[r.info.Role]; liveRole && r.info.AriaLive == schemas.LiveOff {
		add(schemas.IssueConflictingLiveSettings, "error")
	}

	// aria-atomic="true" on role="status" is a recommendation, not a hard
	// requirement, hence always a warning.
	if r.info.Role == "status" && r.info.AriaAtomic != "true" {
		add(schemas.IssueMissingAriaAtomic, "warning")
	}

	if r.info.AriaLive == schemas.LiveAssertive && r.info.AriaRelevant == "" {
		add(schemas.IssueAssertiveWithoutRelevant, "warning")
	}

	for p := r.node.Parent; p != nil; p = p.Parent {
		if liveNodes[p] {
			add(schemas.IssueNestedLiveRegion, "warning")
			break
		}
	}

	return issues
}

// ToRuleResults converts validation issues into the shared finding taxonomy
// (status messages fall under WCAG 4.1.3).
func ToRuleResults(result schemas.LiveRegionValidationResult) []schemas.RuleResult {
	byType := map[schemas.LiveRegionIssueType]*schemas.RuleResult{}
	var order []schemas.LiveRegionIssueType

	for _, issue := range result.Issues {
		rr, ok := byType[issue.Type]
		if !ok {
			rr = &schemas.RuleResult{
				ID:           "live-region-" + string(issue.Type),
				Description:  issueDescription(issue.Type),
				Impact:       issueImpact(issue.Severity),
				WCAGCriteria: []string{"4.1.3"},
				ToolSource:   "custom",
			}
			byType[issue.Type] = rr
			order = append(order, issue.Type)
		}
		rr.Nodes = append(rr.Nodes, schemas.NodeInfo{Target: issue.Selector})
		rr.NodeCount = len(rr.Nodes)
	}

	out := make([]schemas.RuleResult, 0, len(order))
	for _, t := range order {
		out = append(out, *byType[t])
	}
	return out
}

func issueDescription(t schemas.LiveRegionIssueType) string {
	switch t {
	case schemas.IssueEmptyLiveRegion:
		return "Live region has no text content to announce"
	case schemas.IssueConflictingLiveSettings:
		return "Live-semantic role combined with aria-live=\"off\""
	case schemas.IssueMissingAriaAtomic:
		return "role=\"status\" without aria-atomic=\"true\""
	case schemas.IssueAssertiveWithoutRelevant:
		return "aria-live=\"assertive\" without aria-relevant"
	case schemas.IssueNestedLiveRegion:
		return "Live region nested inside another live region"
	default:
		return string(t)
	}
}

func issueImpact(severity string) schemas.ImpactLevel {
	if severity == "error" {
		return schemas.ImpactSerious
	}
	return schemas.ImpactModerate
}

// attr returns the value of the named attribute, empty when absent.
func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// textContent concatenates the text nodes under n.
func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// selectorFor derives a readable selector: the element ID when present, else
// the tag qualified with its position among same-tag siblings.
func selectorFor(n *html.Node) string {
	if id := attr(n, "id"); id != "" {
		return "#" + id
	}

	var parts []string
	for cur := n; cur != nil && cur.Type == html.ElementNode; cur = cur.Parent {
		if id := attr(cur, "id"); id != "" {
			parts = append([]string{"#" + id}, parts...)
			break
		}
		idx := 1
		for sib := cur.PrevSibling; sib != nil; sib = sib.PrevSibling {
			if sib.Type == html.ElementNode && sib.Data == cur.Data {
				idx++
			}
		}
		part := cur.Data
		if idx > 1 {
			part = fmt.Sprintf("%s:nth-of-type(%d)", cur.Data, idx)
		}
		parts = append([]string{part}, parts...)
		if cur.Data == "body" {
			break
		}
	}
	return strings.Join(parts, " > ")
}
