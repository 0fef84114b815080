package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/stealth"
)

// Tab wraps a Rod page opened with stealth applied. It exposes the two
// environment boundaries detection needs: the user-agent string and the
// CSS feature-query primitive.
type Tab struct {
	Page    *rod.Page
	PageURL string
}

// OpenTab creates a stealth tab on mgr's browser and navigates to
// pageURL.
func OpenTab(ctx context.Context, mgr *Manager, pageURL string) (*Tab, error) {
	b, err := mgr.Browser(ctx)
	if err != nil {
		return nil, err
	}

	page, err := stealth.Page(b)
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		page.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		mgr.cfg.Logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}

	return &Tab{Page: page, PageURL: pageURL}, nil
}

// UserAgent reads navigator.userAgent from the page.
func (t *Tab) UserAgent(ctx context.Context) (string, error) {
	res, err := t.Page.Context(ctx).Eval(`() => navigator.userAgent`)
	if err != nil {
		return "", fmt.Errorf("browser: read user agent: %w", err)
	}
	return res.Value.Str(), nil
}

// Supports evaluates CSS.supports(property, value) in the page.
func (t *Tab) Supports(ctx context.Context, property, value string) (bool, error) {
	res, err := t.Page.Context(ctx).Eval(
		`(p, v) => CSS.supports(p, v)`, property, value)
	if err != nil {
		return false, fmt.Errorf("browser: css supports query: %w", err)
	}
	return res.Value.Bool(), nil
}

// HTML serialises the page's DOM as outer HTML.
func (t *Tab) HTML(ctx context.Context) ([]byte, error) {
	res, err := t.Page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return nil, fmt.Errorf("browser: get DOM: %w", err)
	}
	return []byte(res.Value.Str()), nil
}

// Close closes the tab.
func (t *Tab) Close() error {
	if t.Page != nil {
		return t.Page.Close()
	}
	return nil
}
