package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steward/internal/config"
	"steward/internal/controller"
	"steward/pkg/logging"
)

func TestMain(m *testing.M) {
	logging.InitDefault()
	os.Exit(m.Run())
}

// fakeController serves canned statuses and records sync triggers.
type fakeController struct {
	statuses  []controller.AppStatus
	running   bool
	triggered []string
}

func (f *fakeController) Statuses() []controller.AppStatus { return f.statuses }

func (f *fakeController) Status(name string) (controller.AppStatus, bool) {
	for _, status := range f.statuses {
		if status.Application == name {
			return status, true
		}
	}
	return controller.AppStatus{}, false
}

func (f *fakeController) TriggerSync(name string) error {
	if _, ok := f.Status(name); !ok {
		return assert.AnError
	}
	f.triggered = append(f.triggered, name)
	return nil
}

func (f *fakeController) IsRunning() bool   { return f.running }
func (f *fakeController) QueueLength() int  { return 0 }

func serve(t *testing.T, ctrl *fakeController, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	s := New(config.ServerConfig{Port: 8090}, ctrl)

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echoContentType, "application/json")
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

const echoContentType = "Content-Type"

func TestHealthz(t *testing.T) {
	rec := serve(t, &fakeController{running: true}, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, &fakeController{running: false}, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestListApplications(t *testing.T) {
	ctrl := &fakeController{
		running: true,
		statuses: []controller.AppStatus{
			{Application: "web", State: controller.SyncStateSynced},
			{Application: "db", State: controller.SyncStateOutOfSync},
		},
	}

	rec := serve(t, ctrl, http.MethodGet, "/api/v1/applications", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Applications []controller.AppStatus `json:"applications"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Applications, 2)
}

func TestGetApplication(t *testing.T) {
	ctrl := &fakeController{
		statuses: []controller.AppStatus{{Application: "web", State: controller.SyncStateSynced}},
	}

	rec := serve(t, ctrl, http.MethodGet, "/api/v1/applications/web", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var status controller.AppStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "web", status.Application)
	assert.Equal(t, controller.SyncStateSynced, status.State)

	rec = serve(t, ctrl, http.MethodGet, "/api/v1/applications/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSyncEndpoint(t *testing.T) {
	ctrl := &fakeController{
		statuses: []controller.AppStatus{{Application: "web"}},
	}

	rec := serve(t, ctrl, http.MethodPost, "/api/v1/applications/web/sync", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{"web"}, ctrl.triggered)

	rec = serve(t, ctrl, http.MethodPost, "/api/v1/applications/nope/sync", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWebhook(t *testing.T) {
	ctrl := &fakeController{
		statuses: []controller.AppStatus{{Application: "web"}},
	}

	rec := serve(t, ctrl, http.MethodPost, "/api/v1/webhook", `{"application":"web"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{"web"}, ctrl.triggered)

	rec = serve(t, ctrl, http.MethodPost, "/api/v1/webhook", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, ctrl, http.MethodPost, "/api/v1/webhook", `{"application":"nope"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := serve(t, &fakeController{running: true}, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "steward_")
}
