package scan

import (
	"context"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/glasshouse/capsight/dbopen"
	"github.com/glasshouse/capsight/probe"
	"github.com/glasshouse/capsight/store"
)

const uaSafari = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15"

func testScanner(t *testing.T) (*Scanner, *store.Store) {
	t.Helper()
	st, err := store.New(dbopen.OpenMemory(t))
	if err != nil {
		t.Fatal(err)
	}
	var n int
	s := New(nil, st, nil, WithIDGenerator(func() string {
		n++
		return "scn_test_" + string(rune('a'+n-1))
	}))
	return s, st
}

func TestBuildReport(t *testing.T) {
	s, _ := testScanner(t)

	env := probe.Env{
		Supports: probe.QueryResults{
			BackdropBlur: true,
			BlurSaturate: true,
			Brightness:   true,
		}.Query,
		UserAgent: uaSafari,
	}

	r := s.buildReport(env)
	if r.ID != "scn_test_a" {
		t.Fatalf("id = %q", r.ID)
	}
	if r.UserAgent != uaSafari {
		t.Fatalf("user agent = %q", r.UserAgent)
	}
	if r.Engine != "safari" {
		t.Fatalf("engine = %q", r.Engine)
	}
	if !r.Snapshot.SupportsBackdropFilter || !r.Snapshot.SupportsAdvancedBackdropFilter {
		t.Fatalf("snapshot = %+v", r.Snapshot)
	}
	if r.Target != "about:blank" {
		t.Fatalf("target = %q, want config default", r.Target)
	}
	if r.CreatedAt.IsZero() {
		t.Fatal("created_at not set")
	}
}

func TestBuildReportAbsentBoundaries(t *testing.T) {
	s, _ := testScanner(t)

	r := s.buildReport(probe.Env{})
	if r.Snapshot != (probe.Snapshot{}) {
		t.Fatalf("expected zero snapshot, got %+v", r.Snapshot)
	}
	if r.Engine != "other" {
		t.Fatalf("engine = %q, want other", r.Engine)
	}
}

func TestReportsRoundTrip(t *testing.T) {
	s, st := testScanner(t)
	ctx := context.Background()

	r := s.buildReport(probe.Env{UserAgent: uaSafari})
	if err := st.SaveReport(ctx, r); err != nil {
		t.Fatal(err)
	}

	got, err := s.Reports(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != r.ID {
		t.Fatalf("reports = %+v", got)
	}
}

func TestReportsWithoutStore(t *testing.T) {
	s := New(nil, nil, nil)
	if _, err := s.Reports(context.Background(), 10); err == nil {
		t.Fatal("expected error without store")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Target != "about:blank" || cfg.HTTP.Addr != ":8086" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}
