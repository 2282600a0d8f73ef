package browser

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/sightline9/a11y-cli/api/schemas"
	"github.com/sightline9/a11y-cli/internal/config"
)

// SessionOptions carries the auth material applied to a fresh tab before its
// first navigation.
type SessionOptions struct {
	StorageState *schemas.StorageState
	Credentials  *schemas.HTTPCredentials
	Headers      map[string]string
}

// Session is one isolated tab, exclusively owned by a single page analysis.
// Close is idempotent and safe on every exit path.
type Session struct {
	logger *zap.Logger
	cfg    config.BrowserConfig

	tabCtx    context.Context
	tabCancel context.CancelFunc

	closeOnce sync.Once
}

func newSession(ctx context.Context, allocatorCtx context.Context, logger *zap.Logger, cfg config.BrowserConfig, opts SessionOptions) (*Session, error) {
	tabCtx, tabCancel := chromedp.NewContext(allocatorCtx)

	s := &Session{
		logger:    logger.Named("session"),
		cfg:       cfg,
		tabCtx:    tabCtx,
		tabCancel: tabCancel,
	}

	if err := s.applyOptions(ctx, opts); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// applyOptions installs headers, basic-auth and cookies on the fresh tab.
func (s *Session) applyOptions(ctx context.Context, opts SessionOptions) error {
	headers := make(map[string]any, len(opts.Headers)+1)
	for k, v := range opts.Headers {
		headers[k] = v
	}
	if opts.Credentials != nil {
		token := base64.StdEncoding.EncodeToString(
			[]byte(opts.Credentials.Username + ":" + opts.Credentials.Password))
		headers["Authorization"] = "Basic " + token
	}

	var actions []chromedp.Action
	actions = append(actions, network.Enable())
	if len(headers) > 0 {
		actions = append(actions, network.SetExtraHTTPHeaders(network.Headers(headers)))
	}
	if opts.StorageState != nil && len(opts.StorageState.Cookies) > 0 {
		actions = append(actions, storage.SetCookies(cookieParams(opts.StorageState.Cookies)))
	}

	if err := s.Run(ctx, actions...); err != nil {
		return fmt.Errorf("applying session options: %w", err)
	}
	return nil
}

func cookieParams(cookies []schemas.Cookie) []*network.CookieParam {
	params := make([]*network.CookieParam, 0, len(cookies))
	for _, c := range cookies {
		p := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		}
		if c.Expires > 0 {
			exp := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
			p.Expires = &exp
		}
		params = append(params, p)
	}
	return params
}

// Run executes chromedp actions in this tab, honoring the caller's context.
func (s *Session) Run(ctx context.Context, actions ...chromedp.Action) error {
	if len(actions) == 0 {
		return nil
	}
	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(s.tabCtx, actions...)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// Navigate loads the URL, bounded by the configured navigation timeout, then
// waits the configured settle period for late DOM mutations.
func (s *Session) Navigate(ctx context.Context, url string) error {
	navCtx := ctx
	if s.cfg.NavigationTimeout > 0 {
		var cancel context.CancelFunc
		navCtx, cancel = context.WithTimeout(ctx, s.cfg.NavigationTimeout)
		defer cancel()
	}

	if err := s.Run(navCtx, chromedp.Navigate(url), chromedp.WaitReady("body")); err != nil {
		return err
	}

	if s.cfg.PostLoadWait > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.PostLoadWait):
		}
	}
	return nil
}

// Title reads the document title.
func (s *Session) Title(ctx context.Context) (string, error) {
	var title string
	err := s.Run(ctx, chromedp.Title(&title))
	return title, err
}

// CurrentURL reads the tab's location, used for session-expiry detection.
func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	var loc string
	err := s.Run(ctx, chromedp.Location(&loc))
	return loc, err
}

// Screenshot captures a viewport screenshot as PNG bytes.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.Run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, err
	}
	return buf, nil
}

// HTML returns the rendered document markup.
func (s *Session) HTML(ctx context.Context) (string, error) {
	var markup string
	err := s.Run(ctx, chromedp.OuterHTML("html", &markup, chromedp.ByQuery))
	return markup, err
}

// Evaluate runs a JavaScript expression, awaiting promises, and decodes the
// value into out.
func (s *Session) Evaluate(ctx context.Context, expression string, out any) error {
	return s.Run(ctx, chromedp.Evaluate(expression, out,
		func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true).WithReturnByValue(true)
		}))
}

// Close tears the tab down. Idempotent; tolerant of a context that already
// went away.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.tabCancel()
	})
}
