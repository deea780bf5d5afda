package web_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"

	"orgcal/internal/config"
	"orgcal/internal/model"
	"orgcal/internal/scheduler"
	"orgcal/internal/source"
	"orgcal/internal/web"
)

const notes = `* TODO Weekly review
  SCHEDULED: <2022-07-04 Mon +1w>
* Report <b>draft</b>
  DEADLINE: <2022-07-25 Mon>
* Garden
  CLOCK: [2022-07-18 Mon 15:54]--[2022-07-18 Mon 17:07] =>  1:13
`

func newServer(t *testing.T, cfg *config.Config, refresh bool) http.Handler {
	t.Helper()
	fs := memfs.New()
	if err := util.WriteFile(fs, "notes.org", []byte(notes), 0o644); err != nil {
		t.Fatal(err)
	}
	r := scheduler.NewRefresher(scheduler.Options{
		Loader:  source.NewLoader(fs),
		Sources: []string{"notes.org"},
		Now:     func() model.PointInTime { return model.DateTime(2022, time.July, 20, 12, 0, 0) },
	})
	if refresh {
		if err := r.Refresh(context.Background()); err != nil {
			t.Fatalf("Refresh: %v", err)
		}
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return web.NewServer(cfg, r).Handler()
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decodeEvents(t *testing.T, rec *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var events []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &events); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return events
}

func TestHealth(t *testing.T) {
	rec := get(t, newServer(t, nil, false), "/health")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestEventsBeforeFirstRefresh(t *testing.T) {
	rec := get(t, newServer(t, nil, false), "/api/events")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestEventsByMode(t *testing.T) {
	h := newServer(t, nil, true)

	rec := get(t, h, "/api/events")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("content type = %q", ct)
	}
	plan := decodeEvents(t, rec)
	if len(plan) != 2 || plan[0]["title"] != "SCL: TODO Weekly review" {
		t.Errorf("plan events = %v", plan)
	}
	if plan[0]["rrule"] == nil {
		t.Errorf("recurring event lost its rrule: %v", plan[0])
	}
	if !strings.Contains(rec.Body.String(), "<b>draft</b>") {
		t.Errorf("HTML in titles should not be escaped: %s", rec.Body.String())
	}

	clock := decodeEvents(t, get(t, h, "/api/events?mode=clock"))
	if len(clock) != 1 || clock[0]["duration"] != "1:13:00" {
		t.Errorf("clock events = %v", clock)
	}

	all := decodeEvents(t, get(t, h, "/api/events?mode=all"))
	if len(all) != 3 {
		t.Errorf("all events = %d, want 3", len(all))
	}

	if rec := get(t, h, "/api/events?mode=bogus"); rec.Code != http.StatusBadRequest {
		t.Errorf("bogus mode status = %d", rec.Code)
	}
}

func TestEventsExpandedInRange(t *testing.T) {
	h := newServer(t, nil, true)
	rec := get(t, h, "/api/events?start=2022-07-10&end=2022-07-31")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	events := decodeEvents(t, rec)
	var starts []string
	for _, ev := range events {
		if ev["rrule"] != nil {
			t.Errorf("expanded event still has rrule: %v", ev)
		}
		starts = append(starts, ev["start"].(string))
	}
	want := []string{"2022-07-11", "2022-07-18", "2022-07-25", "2022-07-25"}
	if strings.Join(starts, ",") != strings.Join(want, ",") {
		t.Errorf("starts = %v, want %v", starts, want)
	}

	if rec := get(t, h, "/api/events?start=soon-ish&end=2022-07-31"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad start status = %d", rec.Code)
	}
}

func TestICSFeed(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.CalendarName = "notes"
	rec := get(t, newServer(t, cfg, true), "/api/events.ics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("content type = %q", ct)
	}
	body := rec.Body.String()
	if strings.Count(body, "BEGIN:VEVENT") != 2 || !strings.Contains(body, "X-WR-CALNAME:notes") {
		t.Errorf("body = %s", body)
	}
}

func TestRefreshEndpoint(t *testing.T) {
	h := newServer(t, nil, false)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/refresh", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if rec := get(t, h, "/api/events"); rec.Code != http.StatusOK {
		t.Errorf("events after refresh status = %d", rec.Code)
	}
}

func TestBasicAuth(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "me", Password: "pw"}
	h := newServer(t, cfg, true)

	if rec := get(t, h, "/health"); rec.Code != http.StatusOK {
		t.Errorf("health should skip auth, got %d", rec.Code)
	}
	rec := get(t, h, "/api/events")
	if rec.Code != http.StatusUnauthorized || rec.Header().Get("WWW-Authenticate") == "" {
		t.Errorf("unauthenticated status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.SetBasicAuth("me", "pw")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("authenticated status = %d", rec.Code)
	}
}

func TestStaticAndMetrics(t *testing.T) {
	h := newServer(t, nil, true)

	rec := get(t, h, "/")
	body, _ := io.ReadAll(rec.Body)
	if rec.Code != http.StatusOK || !strings.Contains(string(body), "FullCalendar") {
		t.Errorf("index = %d", rec.Code)
	}
	if rec := get(t, h, "/api/nope"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown api status = %d", rec.Code)
	}
	rec = get(t, h, "/metrics")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "orgcal_documents_loaded_total") {
		t.Errorf("metrics = %d", rec.Code)
	}
}
