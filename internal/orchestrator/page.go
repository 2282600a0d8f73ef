// Package orchestrator sequences the engines and bespoke analyzers over one
// page, and batches of pages over an ordered URL list.
package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sightline9/a11y-cli/api/schemas"
	"github.com/sightline9/a11y-cli/internal/analyzers/keyboard"
	"github.com/sightline9/a11y-cli/internal/analyzers/liveregion"
	"github.com/sightline9/a11y-cli/internal/browser"
	"github.com/sightline9/a11y-cli/internal/config"
	"github.com/sightline9/a11y-cli/internal/engines"
)

// scoreProvider is the optional adapter capability of also yielding the
// Lighthouse category scores. The orchestrator never branches on engine
// identity beyond this capability check.
type scoreProvider interface {
	AnalyzeWithScores(ctx context.Context, target engines.Target) (schemas.AnalyzerResult, *schemas.LighthouseScores, error)
}

// pageSession is the slice of a browser session the per-page sequence drives.
// *browser.Session satisfies it.
type pageSession interface {
	engines.Evaluator
	keyboard.Runner
	Navigate(ctx context.Context, url string) error
	Title(ctx context.Context) (string, error)
	CurrentURL(ctx context.Context) (string, error)
	Screenshot(ctx context.Context) ([]byte, error)
	HTML(ctx context.Context) (string, error)
	Close()
}

// sessionSource hands out isolated page sessions.
type sessionSource interface {
	NewSession(ctx context.Context, opts browser.SessionOptions) (pageSession, error)
}

// managerSource adapts *browser.Manager to sessionSource.
type managerSource struct {
	mgr *browser.Manager
}

func (s managerSource) NewSession(ctx context.Context, opts browser.SessionOptions) (pageSession, error) {
	session, err := s.mgr.NewSession(ctx, opts)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// PageAudit is the per-page orchestrator's full output: the page result plus
// page-level extras the report assembles.
type PageAudit struct {
	Result schemas.PageResult
	Tools  []schemas.ToolInfo
	Title  string
}

// PageAnalyzer runs the complete per-page sequence: auth, session,
// navigation, screenshot, the fatal axe phase, then every non-fatal engine
// and the bespoke analyzers.
type PageAnalyzer struct {
	cfg    *config.Config
	logger *zap.Logger

	browser sessionSource
	auth    schemas.AuthManager

	axe    engines.Engine
	extras []engines.Engine

	keyboardEnabled   bool
	liveRegionEnabled bool
}

// NewPageAnalyzer wires the analyzer from configuration. The enabled extras
// are built here so the caller only selects what to run via config.
func NewPageAnalyzer(cfg *config.Config, logger *zap.Logger, mgr *browser.Manager, authMgr schemas.AuthManager) *PageAnalyzer {
	logger = logger.Named("page_analyzer")

	var extras []engines.Engine
	if cfg.Engines.Pa11y.Enabled {
		extras = append(extras, engines.NewPa11y(cfg.Engines.Pa11y, logger))
	}
	if cfg.Engines.Lighthouse.Enabled {
		extras = append(extras, engines.NewLighthouse(cfg.Engines.Lighthouse, logger))
	}
	if cfg.Engines.IBM.Enabled {
		extras = append(extras, engines.NewIBM(cfg.Engines.IBM, logger))
	}
	if cfg.Engines.Alfa.Enabled {
		extras = append(extras, engines.NewAlfa(cfg.Engines.Alfa, logger))
	}
	if cfg.Engines.Wave.Enabled {
		extras = append(extras, engines.NewWave(cfg.Engines.Wave, logger))
	}

	return &PageAnalyzer{
		cfg:               cfg,
		logger:            logger,
		browser:           managerSource{mgr: mgr},
		auth:              authMgr,
		axe:               engines.NewAxe(cfg.Engines.Axe, logger),
		extras:            extras,
		keyboardEnabled:   cfg.Engines.Keyboard.Enabled,
		liveRegionEnabled: cfg.Engines.LiveRegion.Enabled,
	}
}

// AnalyzeURL audits a single URL. A navigation or axe-phase failure is fatal
// for the page and returned as a *NavigationError; every later engine failure
// is recorded as data and never propagates. The browser session is released
// on every exit path.
func (a *PageAnalyzer) AnalyzeURL(ctx context.Context, url string, emit schemas.Emitter) (*PageAudit, error) {
	steps := newStepper(emit, 5+len(a.extras)+boolCount(a.keyboardEnabled)+boolCount(a.liveRegionEnabled))

	// -- Fatal phase --

	steps.next("Resolving authentication")
	opts, err := a.resolveAuth(ctx)
	if err != nil {
		return nil, translateNavigationError(err, url)
	}

	steps.next("Opening browser session")
	session, err := a.browser.NewSession(ctx, opts)
	if err != nil {
		return nil, translateNavigationError(err, url)
	}
	defer session.Close()

	steps.next("Navigating")
	emit.Emit(schemas.NewLogEvent("Loading " + url))
	if err := session.Navigate(ctx, url); err != nil {
		return nil, translateNavigationError(err, url)
	}
	a.checkSessionExpiry(ctx, session, emit)

	title, err := session.Title(ctx)
	if err != nil {
		a.logger.Debug("Could not read page title", zap.Error(err))
	}

	steps.next("Capturing screenshot")
	screenshot, err := session.Screenshot(ctx)
	if err != nil {
		return nil, translateNavigationError(err, url)
	}

	steps.next("Running axe-core")
	target := engines.Target{URL: url, Page: session}
	axeResult, err := a.axe.Analyze(ctx, target)
	if err != nil {
		return nil, translateNavigationError(err, url)
	}

	audit := &PageAudit{
		Result: schemas.PageResult{
			Name:       pageName(title, url),
			URL:        url,
			Violations: axeResult.Violations,
			Passes:     axeResult.Passes,
			Incomplete: axeResult.Incomplete,
			Screenshot: screenshot,
		},
		Tools: []schemas.ToolInfo{{
			Name:     a.axe.Name(),
			Version:  a.axe.Version(),
			Duration: axeResult.Duration,
		}},
		Title: title,
	}
	emitViolations(emit, axeResult.Violations)

	// -- Non-fatal phase --

	for _, engine := range a.extras {
		steps.next("Running " + engine.Name())
		a.runExtra(ctx, engine, target, audit, emit)
	}

	if a.keyboardEnabled {
		steps.next("Testing keyboard navigation")
		a.runKeyboard(ctx, session, audit, emit)
	}

	if a.liveRegionEnabled {
		steps.next("Validating live regions")
		a.runLiveRegions(ctx, session, audit, emit)
	}

	return audit, nil
}

// resolveAuth gathers session options from the auth manager.
func (a *PageAnalyzer) resolveAuth(ctx context.Context) (browser.SessionOptions, error) {
	var opts browser.SessionOptions
	if a.auth == nil || !a.auth.RequiresAuth() {
		return opts, nil
	}

	res := a.auth.Authenticate(ctx)
	if !res.Success {
		return opts, fmt.Errorf("authentication failed: %s", res.Error)
	}
	opts.StorageState = a.auth.StorageState()
	opts.Credentials = a.auth.HTTPCredentials()
	opts.Headers = a.auth.Headers()
	return opts, nil
}

// checkSessionExpiry flags an authenticated run that landed on the login
// screen instead of the target.
func (a *PageAnalyzer) checkSessionExpiry(ctx context.Context, session pageSession, emit schemas.Emitter) {
	pattern := a.cfg.Auth.LoginURLPattern
	if pattern == "" || a.auth == nil || !a.auth.RequiresAuth() {
		return
	}
	current, err := session.CurrentURL(ctx)
	if err != nil {
		return
	}
	if strings.Contains(current, pattern) {
		a.logger.Warn("Session appears to have expired", zap.String("landed_on", current))
		emit.Emit(schemas.NewSessionExpiredEvent("The authenticated session has expired; the audit landed on the login page"))
	}
}

// runExtra executes one non-fatal engine. Failures downgrade to a
// zero-duration tool entry.
func (a *PageAnalyzer) runExtra(ctx context.Context, engine engines.Engine, target engines.Target, audit *PageAudit, emit schemas.Emitter) {
	var (
		result schemas.AnalyzerResult
		scores *schemas.LighthouseScores
		err    error
	)
	if sp, ok := engine.(scoreProvider); ok {
		result, scores, err = sp.AnalyzeWithScores(ctx, target)
	} else {
		result, err = engine.Analyze(ctx, target)
	}

	if err != nil {
		// Already logged at the adapter boundary; the engine silently lowers
		// coverage instead of failing the page.
		audit.Tools = append(audit.Tools, schemas.ToolInfo{Name: engine.Name(), Version: engine.Version()})
		return
	}

	audit.Tools = append(audit.Tools, schemas.ToolInfo{
		Name:     engine.Name(),
		Version:  engine.Version(),
		Duration: result.Duration,
	})
	audit.Result.Violations = append(audit.Result.Violations, result.Violations...)
	audit.Result.Passes = append(audit.Result.Passes, result.Passes...)
	audit.Result.Incomplete = append(audit.Result.Incomplete, result.Incomplete...)
	if scores != nil {
		audit.Result.LighthouseScores = scores
	}
	emitViolations(emit, result.Violations)
}

// runKeyboard executes the Tab traversal analyzer; failures are non-fatal.
func (a *PageAnalyzer) runKeyboard(ctx context.Context, session pageSession, audit *PageAudit, emit schemas.Emitter) {
	tester := keyboard.New(a.cfg.Engines.Keyboard, a.logger, keyboard.NewCDPDriver(session))
	result, err := tester.Run(ctx)
	if err != nil {
		a.logger.Warn("Keyboard navigation test failed", zap.Error(err))
		audit.Tools = append(audit.Tools, schemas.ToolInfo{Name: "keyboard-navigation"})
		return
	}

	findings := keyboard.ToRuleResults(result)
	audit.Result.Violations = append(audit.Result.Violations, findings...)
	audit.Tools = append(audit.Tools, schemas.ToolInfo{Name: "keyboard-navigation"})
	emitViolations(emit, findings)
}

// runLiveRegions executes the static live-region validation; failures are
// non-fatal. Warning-level issues land in incomplete, errors in violations.
func (a *PageAnalyzer) runLiveRegions(ctx context.Context, session pageSession, audit *PageAudit, emit schemas.Emitter) {
	markup, err := session.HTML(ctx)
	if err != nil {
		a.logger.Warn("Could not read page markup for live region validation", zap.Error(err))
		audit.Tools = append(audit.Tools, schemas.ToolInfo{Name: "live-region-validator"})
		return
	}

	result, err := liveregion.New().Validate(markup)
	if err != nil {
		a.logger.Warn("Live region validation failed", zap.Error(err))
		audit.Tools = append(audit.Tools, schemas.ToolInfo{Name: "live-region-validator"})
		return
	}

	for _, rr := range liveregion.ToRuleResults(result) {
		if rr.Impact == schemas.ImpactSerious {
			audit.Result.Violations = append(audit.Result.Violations, rr)
			emitViolations(emit, []schemas.RuleResult{rr})
		} else {
			audit.Result.Incomplete = append(audit.Result.Incomplete, rr)
		}
	}
	audit.Tools = append(audit.Tools, schemas.ToolInfo{Name: "live-region-validator"})
}

// -- helpers --

// stepper numbers progress events without the call sites tracking counts.
type stepper struct {
	emit  schemas.Emitter
	step  int
	total int
}

func newStepper(emit schemas.Emitter, total int) *stepper {
	return &stepper{emit: emit, total: total}
}

func (s *stepper) next(name string) {
	s.step++
	s.emit.Emit(schemas.NewProgressEvent(s.step, s.total, name))
}

func emitViolations(emit schemas.Emitter, violations []schemas.RuleResult) {
	for _, v := range violations {
		emit.Emit(schemas.NewViolationEvent(v.ID, v.Impact, v.NodeCount))
	}
}

func pageName(title, url string) string {
	if title != "" {
		return title
	}
	return url
}

func boolCount(b bool) int {
	if b {
		return 1
	}
	return 0
}
