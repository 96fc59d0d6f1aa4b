package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/backoffice-console/internal/listmanager"
	"github.com/noah-isme/backoffice-console/internal/models"
	"github.com/noah-isme/backoffice-console/internal/service"
	appErrors "github.com/noah-isme/backoffice-console/pkg/errors"
	"github.com/noah-isme/backoffice-console/pkg/export"
)

type responseEnvelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      *appErrors.Error       `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

type fakeSessionStore struct {
	mu      sync.Mutex
	session *models.Session
	loginFn func(req models.LoginRequest) (*models.Session, error)
	logouts int
}

func (f *fakeSessionStore) Login(_ context.Context, req models.LoginRequest) (*models.Session, error) {
	sess, err := f.loginFn(req)
	if err == nil {
		f.mu.Lock()
		f.session = sess
		f.mu.Unlock()
	}
	return sess, err
}

func (f *fakeSessionStore) Logout(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.session = nil
	f.logouts++
}

func (f *fakeSessionStore) State() models.SessionState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return models.SessionState{Authenticated: f.session != nil, User: f.session}
}

func (f *fakeSessionStore) Current() *models.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session
}

type fakeScreen struct {
	key        string
	manage     string
	mounted    bool
	state      service.ScreenState
	lastFilter map[string]string
	lastSearch string
	committed  bool
	lastPage   int
	refreshErr error
	createErr  error
	created    []byte
	deleted    string
	credits    []byte
	message    []byte
}

func (f *fakeScreen) Key() string                       { return f.key }
func (f *fakeScreen) Title() string                     { return f.key }
func (f *fakeScreen) ManagePermission() string          { return f.manage }
func (f *fakeScreen) Mount(context.Context) error       { f.mounted = true; return f.refreshErr }
func (f *fakeScreen) Unmount()                          { f.mounted = false }
func (f *fakeScreen) Mounted() bool                     { return f.mounted }
func (f *fakeScreen) State() service.ScreenState        { return f.state }
func (f *fakeScreen) SetSearch(term string) error       { f.lastSearch = term; return nil }
func (f *fakeScreen) CommitSearch() error               { f.committed = true; return nil }
func (f *fakeScreen) SetFilters(m map[string]string) error {
	if _, ok := m["bogus"]; ok {
		return appErrors.Validation("unknown filter", map[string]string{"bogus": "is not a filter of this screen"})
	}
	f.lastFilter = m
	return nil
}
func (f *fakeScreen) SetPage(n int) error { f.lastPage = n; return nil }
func (f *fakeScreen) Refresh() error {
	if f.refreshErr != nil {
		f.state.Status = listmanager.StatusLoadError
		f.state.Error = appErrors.FromError(f.refreshErr)
		f.state.Stale = true
	}
	return f.refreshErr
}
func (f *fakeScreen) Create(_ context.Context, body []byte) (interface{}, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = body
	return map[string]string{"id": "new1"}, nil
}
func (f *fakeScreen) Update(_ context.Context, id string, _ []byte) (interface{}, error) {
	return map[string]string{"id": id}, nil
}
func (f *fakeScreen) Delete(_ context.Context, id string) error { f.deleted = id; return nil }
func (f *fakeScreen) SetStatus(_ context.Context, id string, _ []byte) (interface{}, error) {
	return nil, appErrors.Clone(appErrors.ErrConflict, "cannot move withdrawal "+id+" from paid to approved")
}
func (f *fakeScreen) Dataset() export.Dataset {
	return export.Dataset{Title: f.key, Columns: []export.Column{{Key: "name", Label: "Name"}}, Rows: []map[string]string{{"name": "widget"}}}
}

func (f *fakeScreen) AdjustCredits(_ context.Context, id string, body []byte) (interface{}, error) {
	f.credits = body
	return map[string]interface{}{"id": id, "credits": 15}, nil
}

func (f *fakeScreen) SendMessage(_ context.Context, id string, body []byte) (*models.MessageReceipt, error) {
	f.message = body
	return &models.MessageReceipt{ID: "m1", UserID: id, Delivery: models.DeliveryRealtime}, nil
}

type fakeWorkspace struct {
	screens map[string]*fakeScreen
	active  string
}

func (w *fakeWorkspace) Open(key string) (service.Screen, error) {
	s, ok := w.screens[key]
	if !ok {
		return nil, appErrors.ErrUnknownScreen
	}
	if prev, ok := w.screens[w.active]; ok && prev != s {
		prev.Unmount()
	}
	w.active = key
	return s, s.Mount(context.Background())
}

func (w *fakeWorkspace) Active(key string) (service.Screen, error) {
	s, ok := w.screens[key]
	if !ok {
		return nil, appErrors.ErrUnknownScreen
	}
	if w.active != key || !s.mounted {
		return nil, appErrors.ErrNotMounted
	}
	return s, nil
}

type fakeExporter struct {
	submitted []export.Dataset
	requested string
	job       *models.ExportJob
	path      string
}

func (f *fakeExporter) Submit(screen, requestedBy string, format export.Format, dataset export.Dataset) (*models.ExportJob, error) {
	f.submitted = append(f.submitted, dataset)
	f.requested = requestedBy
	f.job = &models.ExportJob{ID: "exp1", Screen: screen, Format: string(format), Status: models.ExportQueued, RowCount: len(dataset.Rows)}
	return f.job, nil
}

func (f *fakeExporter) Job(id string) (*models.ExportJob, error) {
	if f.job == nil || f.job.ID != id {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export not found")
	}
	return f.job, nil
}

func (f *fakeExporter) Open(token string) (*os.File, *models.ExportJob, error) {
	if token != "good" {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "download link invalid")
	}
	file, err := os.Open(f.path)
	if err != nil {
		return nil, nil, err
	}
	return file, &models.ExportJob{ID: "exp1", Format: "csv", FileName: "products.csv"}, nil
}

type fakeMetrics struct{}

func (fakeMetrics) Handler() http.Handler { return promhttp.Handler() }
func (fakeMetrics) Snapshot() models.ConsoleMetrics {
	return models.ConsoleMetrics{RequestsTotal: 7, StaleResponsesDiscarded: 2, GeneratedAt: time.Now()}
}

type harness struct {
	router   *gin.Engine
	session  *fakeSessionStore
	ws       *fakeWorkspace
	exporter *fakeExporter
}

func newHarness(t *testing.T, sess *models.Session) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	path := filepath.Join(dir, "products.csv")
	if err := os.WriteFile(path, []byte("Name\nwidget\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	h := &harness{
		session: &fakeSessionStore{session: sess},
		ws: &fakeWorkspace{screens: map[string]*fakeScreen{
			"products":    {key: "products", manage: "products:manage"},
			"users":       {key: "users", manage: "users:manage"},
			"withdrawals": {key: "withdrawals", manage: "withdrawals:manage"},
		}},
		exporter: &fakeExporter{path: path},
	}
	h.session.loginFn = func(req models.LoginRequest) (*models.Session, error) {
		if req.Password != "secret" {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid credentials")
		}
		return &models.Session{UserID: "s1", Role: models.RoleSuperAdmin}, nil
	}

	r := gin.New()
	Routes{
		Session: NewSessionHandler(h.session),
		Screens: NewScreenHandler(h.ws, h.session),
		Exports: NewExportHandler(h.ws, h.exporter),
		Metrics: NewMetricsHandler(fakeMetrics{}, nil),
		Gate:    h.session,
	}.Register(r.Group("/api/v1"))
	h.router = r
	return h
}

func (h *harness) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, responseEnvelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	var env responseEnvelope
	if rec.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		_ = json.Unmarshal(rec.Body.Bytes(), &env)
	}
	return rec, env
}
