// Package scan runs capability detection against a live browser. It
// orchestrates Chrome headless as a disposable component: a stealth tab
// is opened on the probe target, the probe package's feature queries are
// evaluated in-page via CSS.supports, and the resulting snapshot is
// persisted as a scan report.
package scan

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/glasshouse/capsight/audit"
	"github.com/glasshouse/capsight/idgen"
	"github.com/glasshouse/capsight/probe"
	"github.com/glasshouse/capsight/scan/internal/browser"
	"github.com/glasshouse/capsight/scan/internal/config"
	"github.com/glasshouse/capsight/store"
)

// Scanner is the top-level orchestrator. It manages the browser and
// persists reports. Create one per capsight instance.
type Scanner struct {
	cfg    *config.Config
	mgr    *browser.Manager
	st     *store.Store
	newID  idgen.Generator
	logger *slog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithIDGenerator overrides the report ID generator.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(s *Scanner) { s.newID = gen }
}

// New creates a Scanner from configuration. st may be nil, in which case
// reports are returned but not persisted.
func New(cfg *Config, st *store.Store, logger *slog.Logger, opts ...Option) *Scanner {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Scanner{
		cfg: cfg,
		mgr: browser.NewManager(browser.Config{
			RemoteURL:       cfg.Browser.Remote,
			RecycleInterval: cfg.Browser.RecycleInterval,
			Logger:          logger,
		}),
		st:     st,
		newID:  idgen.Prefixed("scn_", idgen.Default),
		logger: logger,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start launches the browser.
func (s *Scanner) Start(ctx context.Context) error {
	if _, err := s.mgr.Start(ctx); err != nil {
		return fmt.Errorf("scan: start browser: %w", err)
	}
	return nil
}

// Stop shuts down the browser.
func (s *Scanner) Stop() {
	s.mgr.Close()
}

// Scan opens a tab on the configured target, detects its capabilities,
// persists a report, and returns it.
//
// A failing in-page query degrades to "not supported" rather than
// failing the scan: the detection contract is total, and only browser
// or storage I/O can error here.
func (s *Scanner) Scan(ctx context.Context) (*store.Report, error) {
	tab, err := browser.OpenTab(ctx, s.mgr, s.cfg.Target)
	if err != nil {
		return nil, fmt.Errorf("scan: open tab: %w", err)
	}
	defer tab.Close()

	report := s.buildReport(s.detectInTab(ctx, tab))
	report.Target = tab.PageURL

	if s.st != nil {
		if err := s.st.SaveReport(ctx, report); err != nil {
			return nil, fmt.Errorf("scan: persist report: %w", err)
		}
	}

	s.logger.Info("scan: report",
		"id", report.ID,
		"engine", report.Engine,
		"backdrop_filter", report.Snapshot.SupportsBackdropFilter,
		"advanced", report.Snapshot.SupportsAdvancedBackdropFilter)
	return report, nil
}

// AuditPage opens a tab on pageURL, detects the environment's
// capabilities, and audits the page's backdrop-filter usage against
// them.
func (s *Scanner) AuditPage(ctx context.Context, pageURL string) (*audit.Result, error) {
	tab, err := browser.OpenTab(ctx, s.mgr, pageURL)
	if err != nil {
		return nil, fmt.Errorf("scan: open tab: %w", err)
	}
	defer tab.Close()

	snap := probe.Detect(s.detectInTab(ctx, tab))

	doc, err := tab.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan: read page: %w", err)
	}

	res, err := audit.Audit(doc, snap)
	if err != nil {
		return nil, fmt.Errorf("scan: audit %s: %w", pageURL, err)
	}

	s.logger.Info("scan: audit",
		"url", pageURL, "usages", len(res.Usages), "unsupported", len(res.Unsupported))
	return res, nil
}

// detectInTab builds a probe.Env whose boundaries read from the tab.
func (s *Scanner) detectInTab(ctx context.Context, tab *browser.Tab) probe.Env {
	ua, err := tab.UserAgent(ctx)
	if err != nil {
		// Absent identification string is "unknown", not a failure.
		s.logger.Warn("scan: user agent unavailable", "error", err)
		ua = ""
	}

	supports := func(property, value string) bool {
		ok, err := tab.Supports(ctx, property, value)
		if err != nil {
			s.logger.Warn("scan: feature query failed",
				"property", property, "value", value, "error", err)
			return false
		}
		return ok
	}

	return probe.Env{Supports: supports, UserAgent: ua}
}

// buildReport runs detection over env and wraps the snapshot in a
// report. Factored out of Scan so it can be exercised without a browser.
func (s *Scanner) buildReport(env probe.Env) *store.Report {
	p := probe.New(env)
	snap := p.Activate()
	defer p.Deactivate()

	return &store.Report{
		ID:        s.newID(),
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		Target:    s.cfg.Target,
		UserAgent: env.UserAgent,
		Engine:    probe.EngineLabel(snap),
		Snapshot:  snap,
	}
}

// Reports returns the most recent persisted reports, newest first.
func (s *Scanner) Reports(ctx context.Context, limit int) ([]*store.Report, error) {
	if s.st == nil {
		return nil, fmt.Errorf("scan: no store configured")
	}
	return s.st.ListReports(ctx, limit)
}
