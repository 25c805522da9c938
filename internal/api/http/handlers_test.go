package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/Orchestrator/backend/internal/api/middleware"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/domain/boot"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/domain/buildlog"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/domain/item"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/domain/loader"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/host"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/shared/ordering"
	tu "github.com/GriffinCanCode/Orchestrator/backend/internal/testutil"
)

func newTestInstance(t *testing.T, home *tu.Home, validator boot.Validator) *host.Instance {
	t.Helper()
	reg := loader.NewRegistry()
	reg.MustRegister(loader.Registration{Name: "directory", Order: ordering.Structural, Loader: loader.NewDirectoryLoader(nil)})
	reg.MustRegister(loader.Registration{Name: "legacy", Order: ordering.Generic, Loader: loader.NewLegacyLoader(nil)})
	inst, err := host.New(host.Options{
		Home:      home.Dir,
		ItemsDir:  item.ChildrenDir,
		Registry:  reg,
		Validator: validator,
		Metrics:   monitoring.NewMetrics(),
		Workers:   2,
	})
	require.NoError(t, err)
	return inst
}

func setupRouter(inst *host.Instance) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.RequestID())
	Register(router, inst)
	return router
}

func do(t *testing.T, router *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var out map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func bootedRouter(t *testing.T) (*gin.Engine, *host.Instance) {
	t.Helper()
	home := tu.NewHome(t)
	home.Folder("team")
	home.WriteFile("jobs/team/jobs/api/config.yaml", "kind: pipeline\ndisplayName: API\ndescription: public api\n")
	home.Job("solo", item.YAML, "")
	home.Job("old", item.JSON, "")

	inst := newTestInstance(t, home, nil)
	require.NoError(t, inst.Boot(context.Background()))
	return setupRouter(inst), inst
}

func TestHealthReady(t *testing.T) {
	router, _ := bootedRouter(t)

	w, body := do(t, router, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ready", body["status"])
	assert.EqualValues(t, 3, body["items"])
	assert.NotContains(t, body, "failure")
}

func TestNotReadyAnswers503(t *testing.T) {
	home := tu.NewHome(t)
	home.Job("solo", item.YAML, "")
	inst := newTestInstance(t, home, boot.ValidatorFunc(func(string) boot.Result {
		return boot.Fail("home layout version 7 is newer than this server")
	}))
	router := setupRouter(inst)

	t.Run("before boot", func(t *testing.T) {
		w, body := do(t, router, "GET", "/api/items", "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, host.ErrNotReady.Error(), body["error"])
		assert.Equal(t, "starting", body["state"])
	})

	require.Error(t, inst.Boot(context.Background()))

	for _, path := range []string{"/api/items", "/job/solo/", "/api/metrics"} {
		t.Run(path, func(t *testing.T) {
			w, body := do(t, router, "GET", path, "")
			assert.Equal(t, http.StatusServiceUnavailable, w.Code)
			assert.Equal(t, "home layout version 7 is newer than this server", body["error"])
			assert.Equal(t, "failed", body["state"])
		})
	}

	w, body := do(t, router, "GET", "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "failed", body["status"])
	assert.Equal(t, "home layout version 7 is newer than this server", body["failure"])

	w, _ = do(t, router, "GET", "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ci_boot_failures_total 1")
}

func TestListItems(t *testing.T) {
	router, _ := bootedRouter(t)

	w, body := do(t, router, "GET", "/api/items", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 4, body["count"])

	var fulls, urls []string
	for _, raw := range body["items"].([]any) {
		v := raw.(map[string]any)
		fulls = append(fulls, v["fullName"].(string))
		urls = append(urls, v["url"].(string))
	}
	assert.Equal(t, []string{"old", "solo", "team", "team/api"}, fulls)
	assert.Equal(t, []string{"job/old/", "job/solo/", "job/team/", "job/team/job/api/"}, urls)
}

func TestResolveItem(t *testing.T) {
	router, _ := bootedRouter(t)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantFull   string
	}{
		{name: "top level", path: "/job/solo/", wantStatus: http.StatusOK, wantFull: "solo"},
		{name: "no trailing slash", path: "/job/solo", wantStatus: http.StatusOK, wantFull: "solo"},
		{name: "nested", path: "/job/team/job/api/", wantStatus: http.StatusOK, wantFull: "team/api"},
		{name: "legacy codec", path: "/job/old/", wantStatus: http.StatusOK, wantFull: "old"},
		{name: "missing", path: "/job/nope/", wantStatus: http.StatusNotFound},
		{name: "child of job", path: "/job/solo/job/x/", wantStatus: http.StatusNotFound},
		{name: "wrong prefix", path: "/job/team/view/api/", wantStatus: http.StatusNotFound},
		{name: "bare prefix", path: "/job/", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := do(t, router, "GET", tt.path, "")
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantFull, body["fullName"])
			} else {
				assert.NotEmpty(t, body["error"])
			}
		})
	}
}

func TestResolveFolderIncludesChildren(t *testing.T) {
	router, _ := bootedRouter(t)

	w, body := do(t, router, "GET", "/job/team/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, item.KindFolder, body["kind"])

	children := body["children"].([]any)
	require.Len(t, children, 1)
	api := children[0].(map[string]any)
	assert.Equal(t, "team/api", api["fullName"])
	assert.Equal(t, "API", api["displayName"])
	assert.Equal(t, "public api", api["description"])
	assert.Equal(t, item.KindPipeline, api["kind"])
}

func TestTriggerBuild(t *testing.T) {
	router, inst := bootedRouter(t)

	w, body := do(t, router, "POST", "/api/build/team/api", `{"lines":["step one","step two"]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])

	var b host.Build
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	assert.Equal(t, "team/api", b.Job.Item)
	assert.Equal(t, 1, b.Job.Number)
	assert.Equal(t, buildlog.KindFile, b.Handle.Kind)

	api, err := inst.ItemByFullName("team/api")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(api.RootDir(), host.BuildsDir, "1"), b.Dir)

	data, err := os.ReadFile(filepath.Join(b.Dir, buildlog.LogFile))
	require.NoError(t, err)
	rid := w.Header().Get(middleware.RequestIDHeader)
	assert.Equal(t, "Started by API request "+rid+"\nstep one\nstep two\n", string(data))

	w, body = do(t, router, "POST", "/api/build/solo", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, body["job"].(map[string]any)["number"])
}

func TestTriggerBuildErrors(t *testing.T) {
	router, _ := bootedRouter(t)

	w, _ := do(t, router, "POST", "/api/build/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body := do(t, router, "POST", "/api/build/solo", `{"lines":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, body["error"])
}

func TestMetricsSnapshot(t *testing.T) {
	router, _ := bootedRouter(t)

	w, body := do(t, router, "GET", "/api/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, body["passes"])
	assert.EqualValues(t, 0, body["failed_passes"])
}

func TestCreateItem(t *testing.T) {
	router, inst := bootedRouter(t)

	w, body := do(t, router, "POST", "/api/items", `{"name":"nightly","displayName":"Nightly","kind":"pipeline"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "nightly", body["fullName"])
	assert.Equal(t, "Nightly", body["displayName"])
	assert.Equal(t, "job/nightly/", body["url"])
	_, ok := inst.Item("nightly")
	assert.True(t, ok)

	w, body = do(t, router, "POST", "/api/items", `{"name":"web","parent":"team"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "team/web", body["fullName"])

	w, _ = do(t, router, "GET", "/job/team/job/web/", "")
	assert.Equal(t, http.StatusOK, w.Code)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{name: "duplicate", body: `{"name":"solo"}`, wantStatus: http.StatusConflict},
		{name: "unsafe name", body: `{"name":"a;b"}`, wantStatus: http.StatusBadRequest},
		{name: "trailing dot", body: `{"name":"x."}`, wantStatus: http.StatusBadRequest},
		{name: "unknown kind", body: `{"name":"x","kind":"matrix"}`, wantStatus: http.StatusBadRequest},
		{name: "missing parent", body: `{"name":"x","parent":"nope"}`, wantStatus: http.StatusNotFound},
		{name: "description too long", body: `{"name":"x","description":"` + strings.Repeat("d", 3000) + `"}`, wantStatus: http.StatusBadRequest},
		{name: "malformed", body: `{"name":`, wantStatus: http.StatusBadRequest},
		{name: "empty", body: ``, wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := do(t, router, "POST", "/api/items", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestReload(t *testing.T) {
	router, inst := bootedRouter(t)
	require.NoError(t, os.MkdirAll(filepath.Join(inst.ItemsDir(), "fresh"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(inst.ItemsDir(), "fresh", "config.yaml"), []byte("kind: freestyle\n"), 0o644))

	w, body := do(t, router, "POST", "/api/reload", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "reloaded", body["status"])
	_, ok := inst.Item("fresh")
	assert.True(t, ok)
}

func TestReloadItem(t *testing.T) {
	router, inst := bootedRouter(t)
	api, err := inst.ItemByFullName("team/api")
	require.NoError(t, err)
	cfgFile := filepath.Join(api.RootDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("kind: pipeline\ndescription: private api\n"), 0o644))

	w, body := do(t, router, "POST", "/api/reload/team/api", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "private api", body["description"])

	w, _ = do(t, router, "POST", "/api/reload/team/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.NoError(t, os.WriteFile(cfgFile, []byte("kind: [oops"), 0o644))
	w, body = do(t, router, "POST", "/api/reload/team/api", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.NotEmpty(t, body["error"])
}

func TestAppendLog(t *testing.T) {
	router, _ := bootedRouter(t)

	w, _ := do(t, router, "POST", "/api/build/solo", `{"lines":["built"]}`)
	require.Equal(t, http.StatusOK, w.Code)
	var b host.Build
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))

	w, body := do(t, router, "POST", "/api/log/1/solo", `{"lines":["published artifact"]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, body["lines"])

	data, err := os.ReadFile(filepath.Join(b.Dir, buildlog.LogFile))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "built\npublished artifact\n"))

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{name: "unknown build", path: "/api/log/7/solo", wantStatus: http.StatusNotFound},
		{name: "unknown item", path: "/api/log/1/nope", wantStatus: http.StatusNotFound},
		{name: "bad number", path: "/api/log/first/solo", wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := do(t, router, "POST", tt.path, `{"lines":["x"]}`)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
