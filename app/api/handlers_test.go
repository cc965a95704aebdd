package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lysyi3m/press-comb/app/cfg"
	"github.com/lysyi3m/press-comb/app/content"
	"github.com/lysyi3m/press-comb/app/database"
	"github.com/lysyi3m/press-comb/app/menu"
	"github.com/lysyi3m/press-comb/app/metric"
	"github.com/lysyi3m/press-comb/app/sources"
)

const testAPIKey = "secret"

type testServer struct {
	engine    *gin.Engine
	scheduler *MockScheduler
}

func newTestStore() *fakeStore {
	day := time.Date(2025, 2, 10, 10, 0, 0, 0, time.UTC)
	return &fakeStore{
		posts: map[int64]content.Post{
			1: {ID: 1, Type: "post", Status: "publish", Slug: "hello", Title: "Hello", PublishedAt: day},
			2: {ID: 2, Type: "post", Status: "publish", Slug: "world", Title: "World", PublishedAt: day.Add(-time.Hour)},
			3: {ID: 3, Type: "page", Status: "publish", Slug: "about", Title: "About", PublishedAt: day},
		},
		order: []int64{1, 2, 3},
		meta: map[int64]map[string][]string{
			1: {"color": {"red", "blue"}, "link": {"https://news.example.com/hello"}},
		},
		fields: map[int64]map[string]any{
			1: {"subtitle": "Hi", "related": []content.PostRef{{ID: 2}}},
		},
	}
}

func newTestMenus() *fakeMenus {
	return &fakeMenus{
		menus: map[string]*menu.Menu{
			"primary": {ID: 1, Name: "Main", Slug: "main"},
			"broken":  {ID: 2, Name: "Broken", Slug: "broken"},
		},
		items: map[int64][]menu.Item{
			1: {
				{ID: 1, ObjectID: 10, Title: "Blog", Classes: []string{""}},
				{ID: 2, ObjectID: 20, ParentMenuItemID: 1, Title: "Hello"},
				{ID: 3, ObjectID: 30, Title: "About"},
			},
			2: {
				{ID: 11, ObjectID: 40, ParentMenuItemID: 12, Title: "Loop A"},
				{ID: 12, ObjectID: 50, ParentMenuItemID: 11, Title: "Loop B"},
			},
		},
	}
}

func setupTestServer(t *testing.T, apiKey string) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	if _, err := cfg.LoadArgs([]string{"--base-url=https://example.com"}); err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "news.yml"), []byte("url: https://news.example.com/feed.xml\nsettings:\n  enabled: true\n"), 0644)
	if err != nil {
		t.Fatalf("Failed to write source config: %v", err)
	}
	configCache := sources.NewConfigCache(dir)
	if err := configCache.Run(); err != nil {
		t.Fatalf("Failed to load source configs: %v", err)
	}

	reg := prometheus.NewRegistry()
	counters := metric.NewSet(reg)

	store := newTestStore()
	aggregator := content.NewAggregator(content.Deps{
		Posts:      store,
		Meta:       store,
		Fields:     store,
		Permalinks: store,
		Fetches:    counters.ContentFetches,
	})

	menus := newTestMenus()
	builder := menu.NewBuilder(menus, menus, menu.WithMaxDepth(5), menu.WithCounter(counters.MenuBuilds))

	sourceStore := &fakeSources{
		sources: []database.Source{{ID: 1, Name: "news", PostType: "post", Title: "Example News", Link: "https://news.example.com", Language: "en"}},
		stats:   map[string]database.SourceStats{"news": {Total: 3, Visible: 2, Filtered: 1}},
	}

	scheduler := &MockScheduler{}
	handler := NewHandler(aggregator, builder, configCache, sourceStore, sourceStore, scheduler, metric.GetHandlerForRegistry(reg))

	return &testServer{engine: NewServer(handler, apiKey), scheduler: scheduler}
}

func (s *testServer) do(t *testing.T, method, target string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
}

func TestGetItem(t *testing.T) {
	s := setupTestServer(t, "")

	tests := []struct {
		name       string
		target     string
		wantStatus int
		check      func(t *testing.T, body map[string]any)
	}{
		{
			name:       "all meta",
			target:     "/items/1?meta=all",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				meta := body["meta"].(map[string]any)
				if diff := cmp.Diff([]any{"red", "blue"}, meta["color"]); diff != "" {
					t.Errorf("color mismatch (-want +got):\n%s", diff)
				}
				if _, ok := body["fields"]; ok {
					t.Error("Expected no fields on a plain fetch")
				}
			},
		},
		{
			name:       "single key",
			target:     "/items/1?meta=color&single=true",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				meta := body["meta"].(map[string]any)
				if diff := cmp.Diff(map[string]any{"color": "red"}, meta); diff != "" {
					t.Errorf("meta mismatch (-want +got):\n%s", diff)
				}
			},
		},
		{
			name:       "no meta selector",
			target:     "/items/2",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				if diff := cmp.Diff(map[string]any{}, body["meta"]); diff != "" {
					t.Errorf("meta mismatch (-want +got):\n%s", diff)
				}
			},
		},
		{
			name:       "fields and permalink",
			target:     "/items/1?fields=true",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				if body["permalink"] != "https://example.com/hello/" {
					t.Errorf("Unexpected permalink: %v", body["permalink"])
				}
				fields := body["fields"].(map[string]any)
				if fields["subtitle"] != "Hi" {
					t.Errorf("Unexpected subtitle: %v", fields["subtitle"])
				}
			},
		},
		{
			name:       "relations expanded",
			target:     "/items/1?relations=true",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				related := body["fields"].(map[string]any)["related"].([]any)
				if len(related) != 1 {
					t.Fatalf("Expected 1 related item, got %d", len(related))
				}
				if title := related[0].(map[string]any)["title"]; title != "World" {
					t.Errorf("Expected related title World, got %v", title)
				}
			},
		},
		{
			name:       "field objects",
			target:     "/items/1?field_objects=true",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				subtitle := body["fields"].(map[string]any)["subtitle"].(map[string]any)
				if subtitle["key"] != "field_subtitle" || subtitle["value"] != "Hi" {
					t.Errorf("Unexpected field object: %v", subtitle)
				}
			},
		},
		{
			name:       "missing item",
			target:     "/items/99",
			wantStatus: http.StatusNotFound,
			check: func(t *testing.T, body map[string]any) {
				if diff := cmp.Diff(map[string]any{"found": false}, body); diff != "" {
					t.Errorf("body mismatch (-want +got):\n%s", diff)
				}
			},
		},
		{
			name:       "invalid id",
			target:     "/items/abc",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodGet, tt.target, nil)
			if w.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.check != nil {
				var body map[string]any
				decode(t, w, &body)
				tt.check(t, body)
			}
		})
	}
}

func TestListItems(t *testing.T) {
	s := setupTestServer(t, "")

	w := s.do(t, http.MethodGet, "/items?meta=color", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var body struct {
		Items []content.Item `json:"items"`
		Total int            `json:"total"`
	}
	decode(t, w, &body)

	if body.Total != 2 || len(body.Items) != 2 {
		t.Fatalf("Expected 2 posts, got %d", body.Total)
	}
	// Collections always carry every value of a key
	if diff := cmp.Diff([]any{"red", "blue"}, body.Items[0].Meta["color"]); diff != "" {
		t.Errorf("color mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{}, body.Items[1].Meta["color"]); diff != "" {
		t.Errorf("empty color mismatch (-want +got):\n%s", diff)
	}

	w = s.do(t, http.MethodGet, "/items?type=page&fields=true", nil)
	body.Items = nil
	decode(t, w, &body)
	if body.Total != 1 || body.Items[0].Permalink != "https://example.com/about/" {
		t.Errorf("Unexpected page listing: %+v", body)
	}

	w = s.do(t, http.MethodGet, "/items?type=event", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for empty collection, got %d", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != `{"found":false}` {
		t.Errorf("Unexpected body: %s", w.Body.String())
	}

	w = s.do(t, http.MethodGet, "/items?limit=abc", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid limit, got %d", w.Code)
	}
}

func TestGetMenu(t *testing.T) {
	s := setupTestServer(t, "")

	w := s.do(t, http.MethodGet, "/menus/primary?current=20", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		Location string      `json:"location"`
		Items    []menu.Node `json:"items"`
	}
	decode(t, w, &body)

	if len(body.Items) != 2 {
		t.Fatalf("Expected 2 top level nodes, got %d", len(body.Items))
	}

	blog := body.Items[0]
	if !blog.HasActiveDescendant || blog.Active {
		t.Errorf("Expected Blog to have an active descendant only: %+v", blog)
	}
	if diff := cmp.Diff([]string{menu.ClassHasSubmenu, menu.ClassActive}, blog.Classes); diff != "" {
		t.Errorf("Blog classes mismatch (-want +got):\n%s", diff)
	}
	if len(blog.Submenu) != 1 || !blog.Submenu[0].Active {
		t.Errorf("Expected active Hello below Blog: %+v", blog.Submenu)
	}
	if body.Items[1].Active || body.Items[1].Submenu != nil {
		t.Errorf("Expected plain About node: %+v", body.Items[1])
	}

	w = s.do(t, http.MethodGet, "/menus/primary?parent=10", nil)
	body.Items = nil
	decode(t, w, &body)
	if len(body.Items) != 1 || body.Items[0].Title != "Hello" {
		t.Errorf("Expected Blog subtree, got %+v", body.Items)
	}

	w = s.do(t, http.MethodGet, "/menus/primary?category=30", nil)
	body.Items = nil
	decode(t, w, &body)
	if !body.Items[1].Active {
		t.Error("Expected About to be active as current category")
	}

	w = s.do(t, http.MethodGet, "/menus/primary?active=30", nil)
	body.Items = nil
	decode(t, w, &body)
	if !body.Items[1].Active {
		t.Error("Expected About to be active via override")
	}

	statusTests := []struct {
		target string
		want   int
	}{
		{"/menus/footer", http.StatusNotFound},
		{"/menus/broken?parent=40", http.StatusUnprocessableEntity},
		{"/menus/primary?current=abc", http.StatusBadRequest},
		{"/menus/primary?category=-1", http.StatusBadRequest},
	}
	for _, tt := range statusTests {
		if w := s.do(t, http.MethodGet, tt.target, nil); w.Code != tt.want {
			t.Errorf("%s: expected status %d, got %d", tt.target, tt.want, w.Code)
		}
	}
}

func TestGetFeed(t *testing.T) {
	s := setupTestServer(t, "")

	w := s.do(t, http.MethodGet, "/feeds/post", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/xml") {
		t.Errorf("Unexpected content type: %s", ct)
	}
	if w.Header().Get("X-Feed-Items") != "2" {
		t.Errorf("Expected 2 feed items, got %s", w.Header().Get("X-Feed-Items"))
	}

	rss := w.Body.String()
	for _, want := range []string{
		"<title>Example News</title>",
		"https://example.com/feeds/post",
		"<link>https://news.example.com/hello</link>",
		"<link>https://example.com/world/</link>",
	} {
		if !strings.Contains(rss, want) {
			t.Errorf("Expected feed to contain %q", want)
		}
	}

	w = s.do(t, http.MethodGet, "/feeds/event", nil)
	if w.Code != http.StatusOK || w.Header().Get("X-Feed-Items") != "0" {
		t.Errorf("Expected empty feed for unknown type, got %d/%s", w.Code, w.Header().Get("X-Feed-Items"))
	}

	w = s.do(t, http.MethodGet, "/feeds/Not_A_Type", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid type, got %d", w.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s := setupTestServer(t, "")

	w := s.do(t, http.MethodGet, "/health", nil)
	var health map[string]any
	decode(t, w, &health)
	if health["sources"] != float64(1) || health["loaded_configurations"] != float64(1) {
		t.Errorf("Unexpected health: %v", health)
	}

	s.do(t, http.MethodGet, "/items/1", nil)
	s.do(t, http.MethodGet, "/menus/primary", nil)

	w = s.do(t, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	for _, name := range []string{"presscomb_content_fetches_total", "presscomb_menu_builds_total"} {
		if !strings.Contains(w.Body.String(), name) {
			t.Errorf("Expected metrics to expose %s", name)
		}
	}
}

func TestAPIAuthentication(t *testing.T) {
	s := setupTestServer(t, testAPIKey)

	tests := []struct {
		name   string
		header map[string]string
		want   int
	}{
		{"missing key", nil, http.StatusUnauthorized},
		{"wrong key", map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized},
		{"header key", map[string]string{"X-API-Key": testAPIKey}, http.StatusOK},
		{"bearer key", map[string]string{"Authorization": "Bearer " + testAPIKey}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := s.do(t, http.MethodGet, "/api/sources", tt.header); w.Code != tt.want {
				t.Errorf("Expected status %d, got %d", tt.want, w.Code)
			}
		})
	}

	disabled := setupTestServer(t, "")
	if w := disabled.do(t, http.MethodGet, "/api/sources", map[string]string{"X-API-Key": testAPIKey}); w.Code != http.StatusNotFound {
		t.Errorf("Expected API to be disabled without key, got %d", w.Code)
	}
}

func TestAPISources(t *testing.T) {
	s := setupTestServer(t, testAPIKey)
	auth := map[string]string{"X-API-Key": testAPIKey}

	w := s.do(t, http.MethodGet, "/api/sources", auth)
	var list struct {
		Sources []map[string]any `json:"sources"`
		Total   int              `json:"total"`
	}
	decode(t, w, &list)
	if list.Total != 1 || list.Sources[0]["title"] != "Example News" || list.Sources[0]["post_count"] != float64(2) {
		t.Errorf("Unexpected source listing: %+v", list)
	}

	w = s.do(t, http.MethodGet, "/api/sources/news", auth)
	var details map[string]any
	decode(t, w, &details)
	posts := details["posts"].(map[string]any)
	if posts["filtered"] != float64(1) || details["post_type"] != "post" {
		t.Errorf("Unexpected source details: %v", details)
	}

	if w := s.do(t, http.MethodGet, "/api/sources/missing", auth); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown source, got %d", w.Code)
	}
}

func TestAPIReloadSource(t *testing.T) {
	s := setupTestServer(t, testAPIKey)
	auth := map[string]string{"X-API-Key": testAPIKey}

	w := s.do(t, http.MethodPost, "/api/sources/news/reload", auth)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if diff := cmp.Diff([]string{"news"}, s.scheduler.reloaded); diff != "" {
		t.Errorf("reloaded mismatch (-want +got):\n%s", diff)
	}

	if w := s.do(t, http.MethodPost, "/api/sources/missing/reload", auth); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown source, got %d", w.Code)
	}

	s.scheduler.err = errors.New("queue full")
	if w := s.do(t, http.MethodPost, "/api/sources/news/reload", auth); w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500 when reload fails, got %d", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	s := setupTestServer(t, "")

	w := s.do(t, http.MethodOptions, "/items", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Expected CORS origin header")
	}
}
