package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"missiontl/internal/cache"
	"missiontl/internal/config"
	"missiontl/internal/model"
	"missiontl/internal/refresh"
	"missiontl/internal/timeline"
)

type fakeRefresher struct {
	runs int
	err  error
}

func (f *fakeRefresher) RunOnce(context.Context) error { f.runs++; return f.err }
func (f *fakeRefresher) Status() refresh.Status         { return refresh.Status{Runs: f.runs} }

func newTestServer(t *testing.T, mutate func(*config.Config)) (*httptest.Server, *timeline.Timeline, *fakeRefresher, *cache.Memory) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.View = config.ViewConfig{Start: "0", End: "1000", Width: 1100, LabelWidth: 100, MinTickWidth: 100}
	cfg.Bands = []config.BandConfig{
		{ID: "a", Kind: "activity", Children: []string{"b"}},
		{ID: "b", Kind: "activity"},
	}
	if mutate != nil {
		mutate(cfg)
	}
	cfg.Normalize()
	tl, err := timeline.Build(cfg, map[string][]*model.DrawableInterval{
		"a": {model.New(1, 100, 300, "burn")},
	}, timeline.Options{})
	if err != nil {
		t.Fatal(err)
	}
	ref := &fakeRefresher{}
	mem := cache.NewMemory()
	srv := httptest.NewServer(NewServer(cfg, tl, Options{Cache: mem, Refresh: ref}).Handler())
	t.Cleanup(srv.Close)
	return srv, tl, ref, mem
}

func post(t *testing.T, url, body string, hdr ...string) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthAndTimeline(t *testing.T) {
	srv, _, _, _ := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("health = %v, %v", resp, err)
	}
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/api/timeline")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var snap timeline.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}
	if len(snap.Bands) != 2 || snap.Bands[0].ID != "a" || snap.Bands[1].Parent != "a" || snap.View.End != 1000 {
		t.Fatalf("snapshot = %+v", snap)
	}

	resp, _ = http.Get(srv.URL + "/api/nope")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown api status = %d", resp.StatusCode)
	}
}

func TestViewEndpoint(t *testing.T) {
	srv, tl, _, _ := newTestServer(t, nil)
	tests := []struct {
		body       string
		status     int
		start, end int64
	}{
		{`{"start": 100, "end": 600}`, http.StatusOK, 100, 600},
		{`{"pan": 100}`, http.StatusOK, 200, 700},
		{`{"zoom": 0.5, "centre": 450}`, http.StatusOK, 325, 575},
		{`{"reset": true}`, http.StatusOK, 0, 1000},
		{`{"start": 5, "end": 5}`, http.StatusBadRequest, 0, 1000},
		{`{}`, http.StatusBadRequest, 0, 1000},
		{`{"bogus": 1}`, http.StatusBadRequest, 0, 1000},
	}
	for _, tt := range tests {
		resp := post(t, srv.URL+"/api/view", tt.body)
		if resp.StatusCode != tt.status {
			t.Fatalf("%s: status = %d, want %d", tt.body, resp.StatusCode, tt.status)
		}
		if s, e := tl.View(); s != tt.start || e != tt.end {
			t.Fatalf("%s: view = %d..%d, want %d..%d", tt.body, s, e, tt.start, tt.end)
		}
	}
}

func TestPointerEndpoint(t *testing.T) {
	srv, _, _, _ := newTestServer(t, nil)
	resp := post(t, srv.URL+"/api/pointer", `{"events":[{"kind":"down","x":300,"y":20,"button":1},{"kind":"up","x":300,"y":20,"button":1}]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out pointerResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Events) == 0 || out.Events[0].Kind != "click" || out.Events[0].Band != "a" {
		t.Fatalf("events = %+v", out.Events)
	}

	bad := post(t, srv.URL+"/api/pointer", `{"events":[{"kind":"wiggle"}]}`)
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad kind status = %d", bad.StatusCode)
	}
}

func TestChildrenEndpoint(t *testing.T) {
	srv, tl, _, _ := newTestServer(t, nil)
	if resp := post(t, srv.URL+"/api/bands/a/children", `{"action":"hide"}`); resp.StatusCode != http.StatusOK {
		t.Fatalf("hide status = %d", resp.StatusCode)
	}
	if n := len(tl.Layout()); n != 1 {
		t.Fatalf("placements = %d, want 1", n)
	}
	if resp := post(t, srv.URL+"/api/bands/a/children", `{"action":"show"}`); resp.StatusCode != http.StatusOK {
		t.Fatalf("show status = %d", resp.StatusCode)
	}
	if n := len(tl.Layout()); n != 2 {
		t.Fatalf("placements = %d, want 2", n)
	}
	if resp := post(t, srv.URL+"/api/bands/zz/children", `{"action":"show"}`); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown band status = %d", resp.StatusCode)
	}
	if resp := post(t, srv.URL+"/api/bands/a/children", `{"action":"fold"}`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad action status = %d", resp.StatusCode)
	}
}

func TestOverlaysEndpoint(t *testing.T) {
	srv, tl, _, _ := newTestServer(t, nil)
	gen := tl.Generation()
	body := `{"background":[{"id":9,"start":600,"end":700,"label":"eclipse"}],"foreground":[]}`
	if resp := post(t, srv.URL+"/api/bands/a/overlays", body); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if tl.Generation() == gen {
		t.Fatal("overlays did not bump the generation")
	}
	resp := post(t, srv.URL+"/api/pointer", `{"events":[{"kind":"dblclick","x":750,"y":20}]}`)
	var out pointerResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Events) != 1 || !out.Events[0].Background || !strings.Contains(out.Tooltip.HTML, "eclipse") {
		t.Fatalf("dblclick response = %+v", out)
	}
	if resp := post(t, srv.URL+"/api/bands/zz/overlays", `{}`); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown band status = %d", resp.StatusCode)
	}
}

func TestRenderIsCachedPerGeneration(t *testing.T) {
	srv, tl, _, mem := newTestServer(t, nil)
	for _, path := range []string{"/render.svg", "/render.png", "/render.planes"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK || len(body) == 0 {
			t.Fatalf("%s status = %d, %d bytes", path, resp.StatusCode, len(body))
		}
	}
	ctx := context.Background()
	key := cache.RenderKey("svg", 0, 1000, tl.Generation())
	if _, err := mem.Get(ctx, key); err != nil {
		t.Fatalf("svg not cached: %v", err)
	}
	tl.SetIntervals("a", nil)
	if _, err := mem.Get(ctx, cache.RenderKey("svg", 0, 1000, tl.Generation())); !errors.Is(err, cache.ErrMiss) {
		t.Fatal("new generation served from cache")
	}
}

func TestIndexInlinesSVG(t *testing.T) {
	srv, _, _, _ := newTestServer(t, nil)
	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `data-ready="true"`) || !strings.Contains(string(body), "<svg") {
		t.Fatalf("index page missing svg or ready flag")
	}
}

func TestRefreshEndpoint(t *testing.T) {
	srv, _, ref, _ := newTestServer(t, nil)
	if resp := post(t, srv.URL+"/api/refresh", ``); resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	ref.err = errors.New("source down")
	if resp := post(t, srv.URL+"/api/refresh", ``); resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("failing refresh status = %d", resp.StatusCode)
	}
	if ref.runs != 2 {
		t.Fatalf("runs = %d", ref.runs)
	}
}

func TestAuth(t *testing.T) {
	const secret = "s3cret"
	srv, _, _, _ := newTestServer(t, func(c *config.Config) {
		c.Auth.Basic = &config.BasicAuthConfig{Username: "ops", Password: "pw"}
		c.Auth.JWT = &config.JWTConfig{Secret: secret, Issuer: "missiontl"}
	})

	resp, _ := http.Get(srv.URL + "/health")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health behind auth: %d", resp.StatusCode)
	}
	resp, _ = http.Get(srv.URL + "/api/timeline")
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous read = %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/timeline", nil)
	req.SetBasicAuth("ops", "pw")
	resp, _ = http.DefaultClient.Do(req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("basic read = %d", resp.StatusCode)
	}

	sign := func(iss string, exp time.Time) string {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "ops", "iss": iss, "exp": exp.Unix()})
		s, err := tok.SignedString([]byte(secret))
		if err != nil {
			t.Fatal(err)
		}
		return "Bearer " + s
	}
	tests := []struct {
		name   string
		auth   string
		status int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"valid", sign("missiontl", time.Now().Add(time.Hour)), http.StatusOK},
		{"expired", sign("missiontl", time.Now().Add(-time.Hour)), http.StatusUnauthorized},
		{"wrong issuer", sign("other", time.Now().Add(time.Hour)), http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp *http.Response
			if tt.auth == "" {
				req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/view", strings.NewReader(`{"reset":true}`))
				req.SetBasicAuth("ops", "pw")
				r, err := http.DefaultClient.Do(req)
				if err != nil {
					t.Fatal(err)
				}
				r.Body.Close()
				resp = r
			} else {
				resp = post(t, srv.URL+"/api/view", `{"reset":true}`, "Authorization", tt.auth)
			}
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
		})
	}
}
