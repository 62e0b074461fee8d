package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"lawgpt/internal/app"
	"lawgpt/internal/model"
	"lawgpt/internal/pkg/jwtutil"
	"lawgpt/internal/retrieval"
	"lawgpt/internal/storage"
	"lawgpt/internal/transport/http/handler"
	"lawgpt/internal/transport/http/middleware"
	"lawgpt/internal/transport/http/response"
)

const testSecret = "router-test-secret"

type fakeLegal struct {
	result *app.AskResult
	err    error
	last   app.AskInput
	scopes map[string]model.Scope
}

func (f *fakeLegal) Ask(ctx context.Context, in app.AskInput) (*app.AskResult, error) {
	f.last = in
	return f.result, f.err
}

func (f *fakeLegal) ChannelScope(ctx context.Context, channelID string) (model.Scope, bool, error) {
	s, ok := f.scopes[channelID]
	return s, ok, nil
}

func (f *fakeLegal) SetChannelScope(ctx context.Context, channelID string, scope model.Scope) error {
	f.scopes[channelID] = scope
	return nil
}

type fakeAuth struct{}

func (fakeAuth) Login(ctx context.Context, in app.LoginInput) (*app.AuthResult, error) {
	if in.Username != "clerk" || in.Password != "correct-horse" {
		return nil, app.ErrInvalidCredential
	}
	token, err := jwtutil.GenerateToken(testSecret, time.Hour, 7, "clerk")
	if err != nil {
		return nil, err
	}
	return &app.AuthResult{Token: token, Operator: &model.Operator{ID: 7, Username: "clerk"}}, nil
}

type fakeRecords struct {
	stats []app.StatInput
}

func (f *fakeRecords) AddStat(ctx context.Context, in app.StatInput) (*model.JudicialStat, error) {
	f.stats = append(f.stats, in)
	return &model.JudicialStat{ID: 1, Metric: in.Metric, Count: in.Count, FetchedAt: in.FetchedAt}, nil
}

func (f *fakeRecords) PutCase(ctx context.Context, record model.CaseRecord) (*model.CaseRecord, error) {
	if len(record.CNR) != 16 {
		return nil, fmt.Errorf("%w: bad cnr", app.ErrInvalidInput)
	}
	return &record, nil
}

type fakeIngester struct {
	last app.IngestInput
}

func (f *fakeIngester) Ingest(ctx context.Context, in app.IngestInput) (*app.IngestResult, error) {
	f.last = in
	return &app.IngestResult{Source: in.Source, Pages: 1, Chunks: 2}, nil
}

type fakeReloader struct{ n int }

func (f fakeReloader) Reload(ctx context.Context) (int, error) { return f.n, nil }

type fakeLogs struct{ limit int }

func (f *fakeLogs) ListRecent(ctx context.Context, limit int) ([]model.QueryLog, error) {
	f.limit = limit
	return []model.QueryLog{{ID: 1, Question: "q"}}, nil
}

type fakeOperators map[uint]string

func (f fakeOperators) GetByID(ctx context.Context, id uint) (*model.Operator, error) {
	name, ok := f[id]
	if !ok {
		return nil, nil
	}
	return &model.Operator{ID: id, Username: name}, nil
}

type fixture struct {
	router   *gin.Engine
	legal    *fakeLegal
	records  *fakeRecords
	ingester *fakeIngester
	files    *storage.LocalStorage
	logs     *fakeLogs
}

func newFixture(t *testing.T, reloader handler.IndexReloader, deps ...handler.Dependency) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	files, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	f := &fixture{
		legal:    &fakeLegal{scopes: map[string]model.Scope{}},
		records:  &fakeRecords{},
		ingester: &fakeIngester{},
		files:    files,
		logs:     &fakeLogs{},
	}
	f.router = Routes(Handlers{
		Health:      handler.NewHealthHandler("lawgpt", "test", time.Now(), deps...),
		Ask:         handler.NewAskHandler(f.legal),
		Preferences: handler.NewPreferenceHandler(f.legal),
		Auth:        handler.NewAuthHandler(fakeAuth{}),
		Admin:       handler.NewAdminHandler(f.records, f.ingester, files, reloader, f.logs),
	}, middleware.OperatorAuth(testSecret, fakeOperators{7: "clerk"}))
	return f
}

func (f *fixture) do(method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) doJSON(method, path, token, body string) *httptest.ResponseRecorder {
	return f.do(method, path, token, strings.NewReader(body), "application/json")
}

func decode(t *testing.T, w *httptest.ResponseRecorder) response.APIResponse {
	t.Helper()
	var out response.APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func adminToken(t *testing.T) string {
	t.Helper()
	token, err := jwtutil.GenerateToken(testSecret, time.Hour, 7, "clerk")
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func TestAskRoute(t *testing.T) {
	f := newFixture(t, nil)
	f.legal.result = &app.AskResult{Answer: "Article 21 protects life.", Mode: app.ModeDirectArticle, Scope: model.ScopeConstitution, Sources: []retrieval.Source{}}

	req := httptest.NewRequest(nethttp.MethodPost, "/api/v1/ask", strings.NewReader(`{"question":"What is Article 21?","dataset_scope":"constitution","channel_session_id":"tg:1"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	if w.Code != nethttp.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("X-Request-ID"); got != "req-123" {
		t.Errorf("request id header = %q", got)
	}
	if f.legal.last.Question != "What is Article 21?" || f.legal.last.DatasetScope != "constitution" || f.legal.last.ChannelSessionID != "tg:1" {
		t.Errorf("ask input = %+v", f.legal.last)
	}
	var body struct {
		Code int `json:"code"`
		Data struct {
			Answer  string        `json:"answer"`
			Mode    string        `json:"mode"`
			Sources []interface{} `json:"sources"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Code != response.CodeOK || body.Data.Mode != "direct-article" || body.Data.Sources == nil {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestAskRouteErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   int
	}{
		{"empty", app.ErrEmptyQuestion, nethttp.StatusBadRequest, response.CodeBadRequest},
		{"busy", fmt.Errorf("%w: 429", app.ErrServiceBusy), nethttp.StatusServiceUnavailable, response.CodeServiceBusy},
		{"upstream", fmt.Errorf("%w: 401", app.ErrUpstream), nethttp.StatusBadGateway, response.CodeUpstream},
		{"other", errors.New("boom"), nethttp.StatusInternalServerError, response.CodeInternalServer},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, nil)
			f.legal.err = tc.err
			w := f.doJSON(nethttp.MethodPost, "/api/v1/ask", "", `{"question":"x"}`)
			if w.Code != tc.status || decode(t, w).Code != tc.code {
				t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestPreferenceRoutes(t *testing.T) {
	f := newFixture(t, nil)

	w := f.doJSON(nethttp.MethodGet, "/api/v1/preferences/tg:9", "", "")
	if w.Code != nethttp.StatusOK || !strings.Contains(w.Body.String(), `"stored":false`) {
		t.Fatalf("get empty: %d %s", w.Code, w.Body.String())
	}

	w = f.doJSON(nethttp.MethodPut, "/api/v1/preferences/tg:9", "", `{"scope":"Bharatiya Nyaya Sanhita"}`)
	if w.Code != nethttp.StatusOK {
		t.Fatalf("put: %d %s", w.Code, w.Body.String())
	}
	if f.legal.scopes["tg:9"] != model.ScopeCriminal {
		t.Fatalf("stored scope = %q", f.legal.scopes["tg:9"])
	}

	w = f.doJSON(nethttp.MethodGet, "/api/v1/preferences/tg:9", "", "")
	if !strings.Contains(w.Body.String(), `"scope":"criminal"`) {
		t.Fatalf("get stored: %s", w.Body.String())
	}

	w = f.doJSON(nethttp.MethodPut, "/api/v1/preferences/tg:9", "", `{}`)
	if w.Code != nethttp.StatusBadRequest {
		t.Fatalf("missing scope: %d", w.Code)
	}
}

func TestAdminLogin(t *testing.T) {
	f := newFixture(t, nil)

	w := f.doJSON(nethttp.MethodPost, "/api/v1/admin/login", "", `{"username":"clerk","password":"wrong-pass"}`)
	if w.Code != nethttp.StatusUnauthorized || decode(t, w).Code != response.CodeInvalidCredentials {
		t.Fatalf("bad login: %d %s", w.Code, w.Body.String())
	}

	w = f.doJSON(nethttp.MethodPost, "/api/v1/admin/login", "", `{"username":"clerk","password":"correct-horse"}`)
	if w.Code != nethttp.StatusOK {
		t.Fatalf("login: %d %s", w.Code, w.Body.String())
	}
	var body struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	w = f.doJSON(nethttp.MethodGet, "/api/v1/admin/query-logs?limit=5", body.Data.Token, "")
	if w.Code != nethttp.StatusOK || f.logs.limit != 5 {
		t.Fatalf("query logs with issued token: %d %s", w.Code, w.Body.String())
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	f := newFixture(t, nil)
	for _, tc := range []struct{ method, path, token string }{
		{nethttp.MethodPost, "/api/v1/admin/stats", ""},
		{nethttp.MethodPut, "/api/v1/admin/cases", ""},
		{nethttp.MethodPost, "/api/v1/admin/index/reload", "not-a-jwt"},
		{nethttp.MethodGet, "/api/v1/admin/query-logs", ""},
	} {
		w := f.doJSON(tc.method, tc.path, tc.token, `{}`)
		if w.Code != nethttp.StatusUnauthorized || decode(t, w).Code != response.CodeUnauthorized {
			t.Errorf("%s %s: status = %d", tc.method, tc.path, w.Code)
		}
	}

	stale, err := jwtutil.GenerateToken(testSecret, time.Hour, 99, "former-clerk")
	if err != nil {
		t.Fatal(err)
	}
	if w := f.doJSON(nethttp.MethodGet, "/api/v1/admin/query-logs", stale, ""); w.Code != nethttp.StatusUnauthorized {
		t.Fatalf("token of a removed operator: status = %d", w.Code)
	}
}

func TestAdminRecords(t *testing.T) {
	f := newFixture(t, nil)
	token := adminToken(t)

	w := f.doJSON(nethttp.MethodPost, "/api/v1/admin/stats", token, `{"metric":"Civil Cases Pending","count":1234,"fetched_at":"2025-03-01T09:00:00Z"}`)
	if w.Code != nethttp.StatusOK {
		t.Fatalf("stats: %d %s", w.Code, w.Body.String())
	}
	if len(f.records.stats) != 1 || f.records.stats[0].Count != 1234 || f.records.stats[0].FetchedAt.IsZero() {
		t.Fatalf("stats = %+v", f.records.stats)
	}

	w = f.doJSON(nethttp.MethodPost, "/api/v1/admin/stats", token, `{"metric":"x","count":-1}`)
	if w.Code != nethttp.StatusBadRequest {
		t.Fatalf("negative count: %d", w.Code)
	}

	w = f.doJSON(nethttp.MethodPut, "/api/v1/admin/cases", token, `{"cnr":"SHORT"}`)
	if w.Code != nethttp.StatusBadRequest || decode(t, w).Code != response.CodeBadRequest {
		t.Fatalf("bad cnr: %d %s", w.Code, w.Body.String())
	}
	w = f.doJSON(nethttp.MethodPut, "/api/v1/admin/cases", token, `{"cnr":"MHAU010012342023","stage":"Arguments"}`)
	if w.Code != nethttp.StatusOK {
		t.Fatalf("case: %d %s", w.Code, w.Body.String())
	}
}

func TestAdminUploadDocument(t *testing.T) {
	f := newFixture(t, nil)
	token := adminToken(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "Bharatiya_Nyaya_Sanhita.txt")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = part.Write([]byte("103. Punishment for murder.\n104. Punishment for murder by life-convict.\n"))
	_ = mw.WriteField("source", "Bharatiya Nyaya Sanhita")
	_ = mw.WriteField("kind", "criminal")
	_ = mw.Close()

	w := f.do(nethttp.MethodPost, "/api/v1/admin/documents", token, &buf, mw.FormDataContentType())
	if w.Code != nethttp.StatusOK {
		t.Fatalf("upload: %d %s", w.Code, w.Body.String())
	}
	if f.ingester.last.Source != "Bharatiya Nyaya Sanhita" || f.ingester.last.Kind != "criminal" {
		t.Fatalf("ingest input = %+v", f.ingester.last)
	}
	rc, err := f.files.Open(context.Background(), f.ingester.last.Key)
	if err != nil {
		t.Fatalf("uploaded file not stored: %v", err)
	}
	_ = rc.Close()
}

func TestAdminUploadRejectsUnsupportedFiles(t *testing.T) {
	f := newFixture(t, nil)
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", "scan.docx")
	_, _ = part.Write([]byte("binary"))
	_ = mw.Close()

	w := f.do(nethttp.MethodPost, "/api/v1/admin/documents", adminToken(t), &buf, mw.FormDataContentType())
	if w.Code != nethttp.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestAdminReloadIndex(t *testing.T) {
	token := adminToken(t)

	w := newFixture(t, nil).doJSON(nethttp.MethodPost, "/api/v1/admin/index/reload", token, "")
	if w.Code != nethttp.StatusBadRequest {
		t.Fatalf("without index: %d", w.Code)
	}

	w = newFixture(t, fakeReloader{n: 42}).doJSON(nethttp.MethodPost, "/api/v1/admin/index/reload", token, "")
	if w.Code != nethttp.StatusOK || !strings.Contains(w.Body.String(), `"indexed":42`) {
		t.Fatalf("reload: %d %s", w.Code, w.Body.String())
	}
}

func TestHealth(t *testing.T) {
	ok := handler.Dependency{Name: "mysql", Check: func(context.Context) error { return nil }}
	down := handler.Dependency{Name: "redis", Check: func(context.Context) error { return errors.New("dial tcp: refused") }}

	w := newFixture(t, nil, ok).doJSON(nethttp.MethodGet, "/healthz", "", "")
	if w.Code != nethttp.StatusOK {
		t.Fatalf("healthy: %d %s", w.Code, w.Body.String())
	}

	w = newFixture(t, nil, ok, down).doJSON(nethttp.MethodGet, "/healthz", "", "")
	if w.Code != nethttp.StatusServiceUnavailable || !strings.Contains(w.Body.String(), "refused") {
		t.Fatalf("degraded: %d %s", w.Code, w.Body.String())
	}
}
