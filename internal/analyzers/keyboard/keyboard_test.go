package keyboard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sightline9/a11y-cli/api/schemas"
	"github.com/sightline9/a11y-cli/internal/config"
)

// scriptedDriver replays a fixed sequence of active elements, one per Tab
// press. After the script runs out it reports nil (focus back on the body).
type scriptedDriver struct {
	script  []*Element
	pos     int
	tabErr  error
	presses int
}

func (d *scriptedDriver) PressTab(context.Context) error {
	d.presses++
	return d.tabErr
}

func (d *scriptedDriver) ActiveElement(context.Context) (*Element, error) {
	if d.pos >= len(d.script) {
		return nil, nil
	}
	el := d.script[d.pos]
	d.pos++
	return el, nil
}

func testConfig() config.KeyboardConfig {
	return config.KeyboardConfig{Enabled: true, MaxElements: 100, TrapDetectionThreshold: 3}
}

func visible(tag, id string) *Element {
	return &Element{TagName: tag, ID: id, Outline: "rgb(0, 95, 204) auto 2px"}
}

func TestRunRecordsTabOrder(t *testing.T) {
	driver := &scriptedDriver{script: []*Element{
		visible("a", "home"),
		visible("button", "search"),
		visible("input", "email"),
	}}
	tester := New(testConfig(), zap.NewNop(), driver)

	result, err := tester.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, result.TabOrder, 3)
	assert.Equal(t, "#home", result.TabOrder[0].Selector)
	assert.Equal(t, 1, result.TabOrder[0].Order)
	assert.Equal(t, "#search", result.TabOrder[1].Selector)
	assert.Equal(t, 2, result.TabOrder[1].Order)
	assert.Equal(t, "#email", result.TabOrder[2].Selector)
	assert.Equal(t, 3, result.TabOrder[2].Order)
	assert.Empty(t, result.Traps)
	assert.Empty(t, result.FocusIssues)
}

func TestRunDetectsTrap(t *testing.T) {
	// The same element three times in a row trips the threshold; a trailing
	// element proves the traversal stopped at the trap.
	modal := visible("div", "modal")
	driver := &scriptedDriver{script: []*Element{
		visible("a", "home"),
		modal, modal, modal,
		visible("a", "never-reached"),
	}}
	tester := New(testConfig(), zap.NewNop(), driver)

	result, err := tester.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Traps, 1)
	assert.Equal(t, "#modal", result.Traps[0].Selector)
	assert.Contains(t, result.Traps[0].Description, "#modal")

	// The trapped element itself was recorded once; the element after the
	// trap was never visited.
	require.Len(t, result.TabOrder, 2)
	assert.Equal(t, "#modal", result.TabOrder[1].Selector)
}

func TestRunTwoRepeatsIsNotATrap(t *testing.T) {
	widget := visible("div", "widget")
	driver := &scriptedDriver{script: []*Element{
		widget, widget,
		visible("a", "next"),
	}}
	tester := New(testConfig(), zap.NewNop(), driver)

	result, err := tester.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Traps)
	require.Len(t, result.TabOrder, 2)
	assert.Equal(t, "#next", result.TabOrder[1].Selector)
}

func TestRunStopsAtElementBudget(t *testing.T) {
	cfg := testConfig()
	cfg.MaxElements = 5
	script := make([]*Element, 20)
	for i := range script {
		script[i] = visible("a", "link-"+string(rune('a'+i)))
	}
	tester := New(cfg, zap.NewNop(), &scriptedDriver{script: script})

	result, err := tester.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, result.TabOrder, 5)
}

func TestRunFlagsMissingFocusIndicator(t *testing.T) {
	driver := &scriptedDriver{script: []*Element{
		{TagName: "a", ID: "bare", Outline: "none", BoxShadow: "none", Border: "0px"},
		visible("a", "styled"),
	}}
	tester := New(testConfig(), zap.NewNop(), driver)

	result, err := tester.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, result.FocusIssues, 1)
	assert.Equal(t, "#bare", result.FocusIssues[0].Selector)
	require.Len(t, result.TabOrder, 2)
	assert.False(t, result.TabOrder[0].HasFocusIndicator)
	assert.True(t, result.TabOrder[1].HasFocusIndicator)
}

func TestRunDriverError(t *testing.T) {
	driver := &scriptedDriver{tabErr: errors.New("tab dispatch failed")}
	tester := New(testConfig(), zap.NewNop(), driver)

	_, err := tester.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pressing Tab")
}

func TestSelector(t *testing.T) {
	cases := []struct {
		name string
		el   *Element
		want string
	}{
		{"id wins", &Element{TagName: "button", ID: "submit", Classes: []string{"btn"}}, "#submit"},
		{"tag with classes", &Element{TagName: "button", Classes: []string{"btn", "primary"}}, "button.btn.primary"},
		{"empty classes skipped", &Element{TagName: "a", Classes: []string{"", "nav"}}, "a.nav"},
		{"bare tag", &Element{TagName: "input"}, "input"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Selector(tc.el))
		})
	}
}

func TestValidateFocusIndicator(t *testing.T) {
	cases := []struct {
		name   string
		styles schemas.FocusStyles
		want   bool
	}{
		{"all suppressed", schemas.FocusStyles{Outline: "none", BoxShadow: "none", Border: "0px"}, false},
		{"all empty", schemas.FocusStyles{}, false},
		{"zero-width outline", schemas.FocusStyles{Outline: "0px none rgb(0, 0, 0)", BoxShadow: "none"}, false},
		{"visible outline", schemas.FocusStyles{Outline: "2px solid blue"}, true},
		{"visible box shadow", schemas.FocusStyles{Outline: "none", BoxShadow: "rgb(0, 95, 204) 0px 0px 0px 3px"}, true},
		{"visible border", schemas.FocusStyles{Outline: "none", BoxShadow: "none", Border: "1px solid black"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ValidateFocusIndicator(tc.styles))
		})
	}
}

func TestToRuleResults(t *testing.T) {
	result := schemas.KeyboardTestResult{
		Traps: []schemas.KeyboardTrap{
			{Selector: "#modal", Description: "Focus stuck on #modal after 3 consecutive Tab presses"},
		},
		FocusIssues: []schemas.FocusIssue{
			{Selector: "#bare", Issue: "No visible focus indicator"},
			{Selector: "a.nav", Issue: "No visible focus indicator"},
		},
	}

	rules := ToRuleResults(result)
	require.Len(t, rules, 2)

	assert.Equal(t, "keyboard-trap", rules[0].ID)
	assert.Equal(t, schemas.ImpactCritical, rules[0].Impact)
	assert.Equal(t, []string{"2.1.2"}, rules[0].WCAGCriteria)
	assert.Equal(t, "custom", rules[0].ToolSource)
	assert.Equal(t, 1, rules[0].NodeCount)

	assert.Equal(t, "focus-indicator-missing", rules[1].ID)
	assert.Equal(t, schemas.ImpactSerious, rules[1].Impact)
	assert.Equal(t, 2, rules[1].NodeCount)
	assert.Equal(t, "#bare", rules[1].Nodes[0].Target)
}

func TestToRuleResultsEmpty(t *testing.T) {
	assert.Empty(t, ToRuleResults(schemas.KeyboardTestResult{}))
}
