package service_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"github.com/glasshouse/capsight/dbopen"
	"github.com/glasshouse/capsight/probe"
	"github.com/glasshouse/capsight/service"
	"github.com/glasshouse/capsight/store"
)

const uaSafari = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15"

func testServer(t *testing.T, authHash string) (*httptest.Server, *store.Store) {
	t.Helper()
	st, err := store.New(dbopen.OpenMemory(t))
	if err != nil {
		t.Fatal(err)
	}
	svc := service.New(nil, st, nil)
	srv := httptest.NewServer(svc.Router(authHash))
	t.Cleanup(srv.Close)
	return srv, st
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatal(err)
	}
}

func TestHealthz(t *testing.T) {
	srv, _ := testServer(t, "")

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	var body map[string]string
	decodeBody(t, resp, &body)
	if resp.StatusCode != 200 || body["status"] != "ok" {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
}

func TestDetectEndpoint(t *testing.T) {
	srv, _ := testServer(t, "")

	req := `{"user_agent":` + jsonQuote(uaSafari) + `,"supports":{"backdrop_blur":true,"blur_saturate":true,"brightness":true}}`
	resp, err := http.Post(srv.URL+"/api/detect", "application/json", strings.NewReader(req))
	if err != nil {
		t.Fatal(err)
	}
	var body struct {
		Snapshot probe.Snapshot `json:"snapshot"`
		Engine   string         `json:"engine"`
	}
	decodeBody(t, resp, &body)
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !body.Snapshot.SupportsBackdropFilter || !body.Snapshot.SupportsAdvancedBackdropFilter {
		t.Fatalf("snapshot = %+v", body.Snapshot)
	}
	if body.Engine != "safari" {
		t.Fatalf("engine = %q", body.Engine)
	}
}

func TestDetectEndpointAbsentFields(t *testing.T) {
	srv, _ := testServer(t, "")

	resp, err := http.Post(srv.URL+"/api/detect", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	var body struct {
		Snapshot probe.Snapshot `json:"snapshot"`
		Engine   string         `json:"engine"`
	}
	decodeBody(t, resp, &body)
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200 for absent fields", resp.StatusCode)
	}
	if body.Snapshot != (probe.Snapshot{}) || body.Engine != "other" {
		t.Fatalf("body = %+v", body)
	}
}

func TestDetectEndpointMalformedJSON(t *testing.T) {
	srv, _ := testServer(t, "")

	resp, err := http.Post(srv.URL+"/api/detect", "application/json", strings.NewReader(`{`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != 400 {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestReportsEndpoints(t *testing.T) {
	srv, st := testServer(t, "")
	ctx := context.Background()

	r := &store.Report{
		ID:        "scn_http",
		CreatedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		Target:    "about:blank",
		UserAgent: uaSafari,
		Engine:    "safari",
		Snapshot:  probe.Snapshot{IsWebKit: true, IsSafari: true},
	}
	if err := st.SaveReport(ctx, r); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Get(srv.URL + "/api/reports")
	if err != nil {
		t.Fatal(err)
	}
	var list struct {
		Reports []*store.Report `json:"reports"`
	}
	decodeBody(t, resp, &list)
	if len(list.Reports) != 1 || list.Reports[0].ID != "scn_http" {
		t.Fatalf("reports = %+v", list.Reports)
	}

	resp, err = http.Get(srv.URL + "/api/reports/scn_http")
	if err != nil {
		t.Fatal(err)
	}
	var got store.Report
	decodeBody(t, resp, &got)
	if got.Engine != "safari" || !got.Snapshot.IsSafari {
		t.Fatalf("report = %+v", got)
	}

	resp, err = http.Get(srv.URL + "/api/reports/scn_missing")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != 404 {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestScanWithoutScanner(t *testing.T) {
	srv, _ := testServer(t, "")

	resp, err := http.Post(srv.URL+"/api/scan", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != 503 {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
}

func TestBasicAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	srv, _ := testServer(t, string(hash))

	// No credentials.
	resp, err := http.Post(srv.URL+"/api/detect", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != 401 {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}

	// Healthz stays public.
	resp, err = http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("healthz status = %d, want 200", resp.StatusCode)
	}

	// Valid credentials.
	req, err := http.NewRequest("POST", srv.URL+"/api/detect", strings.NewReader(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	req.SetBasicAuth("capsight", "s3cret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	// Wrong password.
	req, err = http.NewRequest("POST", srv.URL+"/api/detect", strings.NewReader(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	req.SetBasicAuth("capsight", "wrong")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != 401 {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv, _ := testServer(t, "")

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if id := resp.Header.Get("X-Request-ID"); !strings.HasPrefix(id, "req_") {
		t.Fatalf("X-Request-ID = %q", id)
	}
}

// jsonQuote JSON-quotes a string.
func jsonQuote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
