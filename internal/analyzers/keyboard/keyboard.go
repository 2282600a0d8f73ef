// Package keyboard implements the simulated Tab traversal analyzer: tab
// order, keyboard trap detection, and focus indicator validation.
package keyboard

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sightline9/a11y-cli/api/schemas"
	"github.com/sightline9/a11y-cli/internal/config"
)

// Element is the raw active-element snapshot the driver reads after a Tab
// press. A nil Element means focus is on the body (or nowhere), i.e. the
// traversal wrapped around.
type Element struct {
	TagName   string   `json:"tagName"`
	ID        string   `json:"id"`
	Classes   []string `json:"classes"`
	Outline   string   `json:"outline"`
	BoxShadow string   `json:"boxShadow"`
	Border    string   `json:"border"`
}

// Driver abstracts the page interaction so the traversal logic runs against
// a fake in tests and against CDP in production.
type Driver interface {
	// PressTab dispatches one Tab key press.
	PressTab(ctx context.Context) error
	// ActiveElement reports the currently focused element, nil when focus is
	// on the body or there is no active element.
	ActiveElement(ctx context.Context) (*Element, error)
}

// Tester drives the bounded Tab traversal.
type Tester struct {
	cfg    config.KeyboardConfig
	logger *zap.Logger
	driver Driver
}

// New creates a Tester over the given driver.
func New(cfg config.KeyboardConfig, logger *zap.Logger, driver Driver) *Tester {
	return &Tester{cfg: cfg, logger: logger.Named("keyboard"), driver: driver}
}

// Run performs the traversal. Terminal states: no active element, the
// element budget is exhausted, or a trap fired; whichever comes first.
func (t *Tester) Run(ctx context.Context) (schemas.KeyboardTestResult, error) {
	result := schemas.KeyboardTestResult{
		TabOrder:    []schemas.FocusableElement{},
		Traps:       []schemas.KeyboardTrap{},
		FocusIssues: []schemas.FocusIssue{},
	}

	var (
		lastSelector     string
		sameElementCount int
		order            int
	)

	for i := 0; i < t.cfg.MaxElements; i++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := t.driver.PressTab(ctx); err != nil {
			return result, fmt.Errorf("pressing Tab: %w", err)
		}

		el, err := t.driver.ActiveElement(ctx)
		if err != nil {
			return result, fmt.Errorf("reading active element: %w", err)
		}
		if el == nil {
			// Focus fell back to the body: no more focusable elements.
			break
		}

		selector := Selector(el)
		if selector == lastSelector {
			sameElementCount++
			if sameElementCount >= t.cfg.TrapDetectionThreshold {
				result.Traps = append(result.Traps, schemas.KeyboardTrap{
					Selector:    selector,
					Description: fmt.Sprintf("Focus stuck on %s after %d consecutive Tab presses", selector, sameElementCount),
				})
				t.logger.Warn("Keyboard trap detected", zap.String("selector", selector))
				break
			}
			continue
		}

		sameElementCount = 1
		lastSelector = selector
		order++

		styles := schemas.FocusStyles{
			Outline:   el.Outline,
			BoxShadow: el.BoxShadow,
			Border:    el.Border,
		}
		hasIndicator := ValidateFocusIndicator(styles)
		if !hasIndicator {
			result.FocusIssues = append(result.FocusIssues, schemas.FocusIssue{
				Selector: selector,
				Issue:    "No visible focus indicator (outline, box-shadow and border are all suppressed)",
			})
		}

		result.TabOrder = append(result.TabOrder, schemas.FocusableElement{
			Selector:          selector,
			Order:             order,
			HasFocusIndicator: hasIndicator,
			FocusStyles:       styles,
		})
	}

	t.logger.Debug("Keyboard traversal finished",
		zap.Int("elements", len(result.TabOrder)),
		zap.Int("traps", len(result.Traps)),
		zap.Int("focus_issues", len(result.FocusIssues)),
	)
	return result, nil
}

// Selector derives a stable selector: the element ID when present, else the
// tag qualified by its class list, else the bare tag name.
func Selector(el *Element) string {
	if el.ID != "" {
		return "#" + el.ID
	}
	var classes []string
	for _, c := range el.Classes {
		if c != "" {
			classes = append(classes, c)
		}
	}
	if len(classes) > 0 {
		return el.TagName + "." + strings.Join(classes, ".")
	}
	return el.TagName
}

// ValidateFocusIndicator reports whether at least one of outline, box-shadow
// or border is a visible value. Outline and border treat "none", "0", "0px"
// and any "0px "-prefixed computed value as invisible; box-shadow only "none".
func ValidateFocusIndicator(styles schemas.FocusStyles) bool {
	if !outlineSuppressed(styles.Outline) {
		return true
	}
	if styles.BoxShadow != "" && styles.BoxShadow != "none" {
		return true
	}
	return !outlineSuppressed(styles.Border)
}

func outlineSuppressed(v string) bool {
	switch v {
	case "", "none", "0", "0px":
		return true
	}
	return strings.HasPrefix(v, "0px ")
}

// ToRuleResults converts traps and focus issues into the shared finding
// taxonomy so they report alongside engine output.
func ToRuleResults(result schemas.KeyboardTestResult) []schemas.RuleResult {
	var out []schemas.RuleResult

	if len(result.Traps) > 0 {
		rr := schemas.RuleResult{
			ID:           "keyboard-trap",
			Description:  "Keyboard focus cannot move away from a component using Tab navigation",
			Impact:       schemas.ImpactCritical,
			WCAGCriteria: []string{"2.1.2"},
			ToolSource:   "custom",
		}
		for _, trap := range result.Traps {
			rr.Nodes = append(rr.Nodes, schemas.NodeInfo{
				Target:         trap.Selector,
				FailureSummary: trap.Description,
			})
		}
		rr.NodeCount = len(rr.Nodes)
		out = append(out, rr)
	}

	if len(result.FocusIssues) > 0 {
		rr := schemas.RuleResult{
			ID:           "focus-indicator-missing",
			Description:  "Focusable element has no visible focus indicator",
			Impact:       schemas.ImpactSerious,
			WCAGCriteria: []string{"2.4.7"},
			ToolSource:   "custom",
		}
		for _, issue := range result.FocusIssues {
			rr.Nodes = append(rr.Nodes, schemas.NodeInfo{
				Target:         issue.Selector,
				FailureSummary: issue.Issue,
			})
		}
		rr.NodeCount = len(rr.Nodes)
		out = append(out, rr)
	}

	return out
}
