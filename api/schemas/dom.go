package schemas

// -- Keyboard Navigation Model --

// FocusStyles holds the computed styles consulted for focus indicator checks.
type FocusStyles struct {
	Outline   string `json:"outline"`
	BoxShadow string `json:"boxShadow"`
	Border    string `json:"border"`
}

// FocusableElement is one stop in the simulated Tab traversal. Order is
// 1-based and strictly increasing per run.
type FocusableElement struct {
	Selector          string      `json:"selector"`
	Order             int         `json:"order"`
	HasFocusIndicator bool        `json:"hasFocusIndicator"`
	FocusStyles       FocusStyles `json:"focusStyles"`
}

// KeyboardTrap marks a focus state sequential Tab navigation could not leave.
type KeyboardTrap struct {
	Selector    string `json:"selector"`
	Description string `json:"description"`
}

// FocusIssue flags a focusable element without a visible focus indicator.
type FocusIssue struct {
	Selector string `json:"selector"`
	Issue    string `json:"issue"`
}

// KeyboardTestResult is the complete outcome of one traversal run.
type KeyboardTestResult struct {
	TabOrder    []FocusableElement `json:"tabOrder"`
	Traps       []KeyboardTrap     `json:"traps"`
	FocusIssues []FocusIssue       `json:"focusIssues"`
}

// -- Live Region Model --

// LiveSetting is the aria-live vocabulary.
type LiveSetting string

const (
	LivePolite    LiveSetting = "polite"
	LiveAssertive LiveSetting = "assertive"
	LiveOff       LiveSetting = "off"
)

// LiveRegionInfo describes one detected live region. An element carrying both
// an explicit aria-live and a live-semantic role yields exactly one entry with
// both fields populated.
type LiveRegionInfo struct {
	Selector         string      `json:"selector"`
	Role             string      `json:"role,omitempty"`
	AriaLive         LiveSetting `json:"ariaLive,omitempty"`
	ImplicitAriaLive LiveSetting `json:"implicitAriaLive,omitempty"`
	AriaAtomic       string      `json:"ariaAtomic,omitempty"`
	AriaRelevant     string      `json:"ariaRelevant,omitempty"`
}

// LiveRegionIssueType enumerates the validator's findings.
type LiveRegionIssueType string

const (
	IssueEmptyLiveRegion          LiveRegionIssueType = "empty-live-region"
	IssueConflictingLiveSettings  LiveRegionIssueType = "conflicting-live-settings"
	IssueMissingAriaAtomic        LiveRegionIssueType = "missing-aria-atomic"
	IssueAssertiveWithoutRelevant LiveRegionIssueType = "assertive-without-relevant"
	IssueNestedLiveRegion         LiveRegionIssueType = "nested-live-region"
)

// LiveRegionIssue is one validation finding against a detected region.
type LiveRegionIssue struct {
	Selector string              `json:"selector"`
	Type     LiveRegionIssueType `json:"type"`
	Severity string              `json:"severity"`
}

// LiveRegionValidationResult aggregates detection and validation output.
// ByType counts resolved live-ness (explicit value if present, else the
// implicit one); ByRole counts declared role strings only.
type LiveRegionValidationResult struct {
	LiveRegions      []LiveRegionInfo  `json:"liveRegions"`
	Issues           []LiveRegionIssue `json:"issues"`
	TotalLiveRegions int               `json:"totalLiveRegions"`
	ByType           LiveRegionCounts  `json:"byType"`
	ByRole           map[string]int    `json:"byRole"`
}

// LiveRegionCounts splits active regions by resolved politeness.
type LiveRegionCounts struct {
	Polite    int `json:"polite"`
	Assertive int `json:"assertive"`
}
