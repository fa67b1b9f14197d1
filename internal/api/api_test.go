package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hollis/easel/internal/designstore"
	"github.com/hollis/easel/internal/library"
	"github.com/hollis/easel/internal/sse"
	"github.com/hollis/easel/internal/testutil"
)

type testEnv struct {
	router      chi.Router
	pages       *Pages
	broker      *sse.Broker
	templateDir string
	exportsDir  string
}

func newTestEnv(t *testing.T, authEnabled bool, token string) *testEnv {
	t.Helper()

	templateDir := t.TempDir()
	previewsDir := t.TempDir()
	_, designs := testutil.TestStore(t)
	exportsDir, exports := testutil.TestStore(t)
	db := testutil.TestDB(t)

	lib, err := library.New(templateDir, 8, testutil.SilentLogger())
	if err != nil {
		t.Fatalf("library.New: %v", err)
	}
	svc := designstore.NewService(designs, exports, db)
	pages, err := NewPages(lib)
	if err != nil {
		t.Fatalf("NewPages: %v", err)
	}
	broker := sse.NewBroker(time.Second)
	t.Cleanup(broker.Close)

	router := NewRouter(Deps{
		Pages:       pages,
		Handler:     NewHandler(svc, broker),
		AuthEnabled: authEnabled,
		Token:       token,
		SSE:         broker,
		TemplateDir: templateDir,
		PreviewsDir: previewsDir,
		ExportsDir:  exportsDir,
	})
	return &testEnv{router: router, pages: pages, broker: broker, templateDir: templateDir, exportsDir: exportsDir}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return bytes.NewReader(b)
}

func TestSaveThenGetRoundTrip(t *testing.T) {
	env := newTestEnv(t, false, "")

	body := jsonBody(t, SaveRequest{
		TemplateID: "beach.png",
		DesignJSON: json.RawMessage(`{"objects":[{"type":"text","text":"hi"}]}`),
	})
	rec := env.do(t, httptest.NewRequest(http.MethodPost, "/save", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /save = %d, body %s", rec.Code, rec.Body)
	}

	var saved SaveResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &saved); err != nil {
		t.Fatalf("decode save response: %v", err)
	}
	if saved.Status != "ok" || !strings.HasPrefix(saved.DesignID, "design_") {
		t.Fatalf("save response = %+v", saved)
	}

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/design/"+saved.DesignID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /design = %d, body %s", rec.Code, rec.Body)
	}
	var doc struct {
		DesignID   string          `json:"design_id"`
		TemplateID string          `json:"template_id"`
		Design     json.RawMessage `json:"design"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode design: %v", err)
	}
	if doc.DesignID != saved.DesignID || doc.TemplateID != "beach.png" {
		t.Errorf("document = %+v", doc)
	}
	if !strings.Contains(string(doc.Design), `"text":"hi"`) {
		t.Errorf("design payload = %s", doc.Design)
	}
}

func TestSaveValidation(t *testing.T) {
	env := newTestEnv(t, false, "")

	cases := []struct {
		name string
		body string
	}{
		{"not json", `this is not json`},
		{"missing template_id", `{"design_json":{"a":1}}`},
		{"missing design_json", `{"template_id":"a.png"}`},
		{"unsafe design_id", `{"design_id":"../evil","template_id":"a.png","design_json":{}}`},
	}
	for _, tc := range cases {
		rec := env.do(t, httptest.NewRequest(http.MethodPost, "/save", strings.NewReader(tc.body)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", tc.name, rec.Code)
		}
	}
}

func TestGetDesign_NotFound(t *testing.T) {
	env := newTestEnv(t, false, "")
	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/design/design_missing0", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Error == "" {
		t.Errorf("expected JSON error body, got %s", rec.Body)
	}
}

func TestExportWritesFile(t *testing.T) {
	env := newTestEnv(t, false, "")

	payload := []byte{0x89, 'P', 'N', 'G', 1, 2, 3, 4}
	form := url.Values{}
	form.Set("image_b64", "data:image/png;base64,"+base64.StdEncoding.EncodeToString(payload))
	form.Set("filename", "poster.png")

	req := httptest.NewRequest(http.MethodPost, "/export", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := env.do(t, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /export = %d, body %s", rec.Code, rec.Body)
	}

	var resp ExportResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode export response: %v", err)
	}
	if resp.Status != "ok" || resp.File != "poster.png" {
		t.Fatalf("export response = %+v", resp)
	}

	got, err := os.ReadFile(filepath.Join(env.exportsDir, resp.File))
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("export bytes mismatch: got %v", got)
	}
}

func TestExportValidation(t *testing.T) {
	env := newTestEnv(t, false, "")

	cases := []struct {
		name string
		form url.Values
	}{
		{"missing image_b64", url.Values{"filename": {"x.png"}}},
		{"bad base64", url.Values{"image_b64": {"***"}}},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/export", strings.NewReader(tc.form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := env.do(t, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", tc.name, rec.Code)
		}
	}
}

func TestListDesigns(t *testing.T) {
	env := newTestEnv(t, false, "")

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/designs", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/designs = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"designs":[]`) {
		t.Errorf("empty list body = %s", rec.Body)
	}

	for _, tpl := range []string{"a.png", "a.png", "b.png"} {
		body := jsonBody(t, SaveRequest{TemplateID: tpl, DesignJSON: json.RawMessage(`{}`)})
		if rec := env.do(t, httptest.NewRequest(http.MethodPost, "/save", body)); rec.Code != http.StatusOK {
			t.Fatalf("seed save = %d", rec.Code)
		}
	}

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/designs?template=a.png", nil))
	var list DesignListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Total != 2 || len(list.Designs) != 2 {
		t.Errorf("filtered list: total = %d, len = %d, want 2/2", list.Total, len(list.Designs))
	}

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/designs?limit=1", nil))
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Total != 3 || len(list.Designs) != 1 {
		t.Errorf("paginated list: total = %d, len = %d, want 3/1", list.Total, len(list.Designs))
	}
}

func TestAuthProtectsMutatingRoutes(t *testing.T) {
	env := newTestEnv(t, true, "secret-token")

	save := func(header string) int {
		body := jsonBody(t, SaveRequest{TemplateID: "a.png", DesignJSON: json.RawMessage(`{}`)})
		req := httptest.NewRequest(http.MethodPost, "/save", body)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		return env.do(t, req).Code
	}

	if code := save(""); code != http.StatusUnauthorized {
		t.Errorf("no header: status = %d, want 401", code)
	}
	if code := save("Bearer wrong"); code != http.StatusUnauthorized {
		t.Errorf("wrong token: status = %d, want 401", code)
	}
	if code := save("secret-token"); code != http.StatusUnauthorized {
		t.Errorf("missing Bearer prefix: status = %d, want 401", code)
	}
	if code := save("Bearer secret-token"); code != http.StatusOK {
		t.Errorf("valid token: status = %d, want 200", code)
	}

	// Reads stay open even with auth enabled.
	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/designs", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("GET /api/designs with auth on = %d, want 200", rec.Code)
	}
}

func TestAuthDisabledPassesThrough(t *testing.T) {
	env := newTestEnv(t, false, "ignored")
	body := jsonBody(t, SaveRequest{TemplateID: "a.png", DesignJSON: json.RawMessage(`{}`)})
	rec := env.do(t, httptest.NewRequest(http.MethodPost, "/save", body))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 when auth disabled", rec.Code)
	}
}

func TestIndexPageListsTemplates(t *testing.T) {
	env := newTestEnv(t, false, "")
	testutil.WritePNG(t, filepath.Join(env.templateDir, "summer_party.png"), 400, 500)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET / = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
	html := rec.Body.String()
	if !strings.Contains(html, "Summer Party") {
		t.Errorf("index missing display name:\n%s", html)
	}
	if !strings.Contains(html, "/previews/preview_summer_party.jpg") {
		t.Errorf("index missing preview url:\n%s", html)
	}
	if !strings.Contains(html, "/editor/summer_party.png") {
		t.Errorf("index missing editor link:\n%s", html)
	}
}

func TestEditorPage(t *testing.T) {
	env := newTestEnv(t, false, "")
	testutil.WritePNG(t, filepath.Join(env.templateDir, "card.png"), 640, 800)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/editor/card.png", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /editor = %d", rec.Code)
	}
	html := rec.Body.String()
	if !strings.Contains(html, "/templates_images/card.png") {
		t.Errorf("editor missing image url:\n%s", html)
	}
	if !strings.Contains(html, `data-width="640"`) || !strings.Contains(html, `data-height="800"`) {
		t.Errorf("editor missing probed dimensions:\n%s", html)
	}
}

func TestEditorPageFallbackDimensions(t *testing.T) {
	env := newTestEnv(t, false, "")
	broken := filepath.Join(env.templateDir, "broken.jpg")
	if err := os.WriteFile(broken, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/editor/broken.jpg", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /editor = %d", rec.Code)
	}
	html := rec.Body.String()
	if !strings.Contains(html, `data-width="1080"`) || !strings.Contains(html, `data-height="1350"`) {
		t.Errorf("editor missing fallback dimensions:\n%s", html)
	}
}

func TestEditorPageRejectsUnsafeID(t *testing.T) {
	env := newTestEnv(t, false, "")

	for _, id := range []string{"../escape.png", "..", `a\b.png`} {
		req := httptest.NewRequest(http.MethodGet, "/editor/x", nil)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("templateID", id)
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

		rec := httptest.NewRecorder()
		env.pages.Editor(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("id %q: status = %d, want 404", id, rec.Code)
		}
	}
}

func TestAPIAliases(t *testing.T) {
	env := newTestEnv(t, false, "")

	body := jsonBody(t, SaveRequest{TemplateID: "a.png", DesignJSON: json.RawMessage(`{}`)})
	rec := env.do(t, httptest.NewRequest(http.MethodPost, "/api/save", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/save = %d", rec.Code)
	}
	var saved SaveResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &saved); err != nil {
		t.Fatal(err)
	}

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/design/"+saved.DesignID, nil))
	if rec.Code != http.StatusOK {
		t.Errorf("GET /api/design = %d", rec.Code)
	}

	form := url.Values{"image_b64": {base64.StdEncoding.EncodeToString([]byte("x"))}}
	req := httptest.NewRequest(http.MethodPost, "/api/export", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if rec := env.do(t, req); rec.Code != http.StatusOK {
		t.Errorf("POST /api/export = %d", rec.Code)
	}
}

func TestSavePublishesEvent(t *testing.T) {
	env := newTestEnv(t, false, "")
	ch := env.broker.Subscribe()

	body := jsonBody(t, SaveRequest{TemplateID: "a.png", DesignJSON: json.RawMessage(`{}`)})
	if rec := env.do(t, httptest.NewRequest(http.MethodPost, "/save", body)); rec.Code != http.StatusOK {
		t.Fatalf("POST /save = %d", rec.Code)
	}

	select {
	case msg := <-ch:
		if !strings.Contains(string(msg), "event: design.saved") {
			t.Errorf("message = %q, want design.saved", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no SSE event after save")
	}
}

func TestStaticTemplateImages(t *testing.T) {
	env := newTestEnv(t, false, "")
	testutil.WritePNG(t, filepath.Join(env.templateDir, "bg.png"), 10, 10)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/templates_images/bg.png", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /templates_images/bg.png = %d", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Error("empty static response")
	}
}
