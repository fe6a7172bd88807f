package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"uploadsvc/internal/pacs"
	"uploadsvc/internal/servicectl"
	"uploadsvc/internal/servicectl/servicectltest"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newTestServer(t *testing.T, admin bool) (*Server, *servicectltest.Fake) {
	t.Helper()
	fake := servicectltest.New("TestUploaderService")
	s := New(Options{
		Addr:       "127.0.0.1:0",
		Controller: fake,
		Install:    servicectl.InstallOptions{Executable: "/opt/uploadsvc", Args: []string{"run"}},
		IsAdmin:    func() bool { return admin },
	})
	return s, fake
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func TestStatus(t *testing.T) {
	s, fake := newTestServer(t, true)
	fake.SetState(servicectl.StateRunning)

	w := do(t, s, http.MethodGet, "/api/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d", w.Code)
	}
	st := decodeBody[StatusResponse](t, w)
	if !st.OK || st.State != "RUNNING" || !st.Running || !st.APIConnected || st.Service != "TestUploaderService" {
		t.Errorf("unexpected status %+v", st)
	}
	if st.PID == 0 {
		t.Error("missing pid")
	}
}

func TestStatusControllerError(t *testing.T) {
	s, fake := newTestServer(t, true)
	fake.Err = errors.New("scm unavailable")

	w := do(t, s, http.MethodGet, "/api/status", nil)
	st := decodeBody[StatusResponse](t, w)
	if w.Code != http.StatusOK || st.OK || st.State != "UNKNOWN" || st.Running || st.Error != "scm unavailable" {
		t.Errorf("unexpected status %d %+v", w.Code, st)
	}
	if !st.APIConnected {
		t.Error("apiConnected must be true")
	}
}

func TestStartStop(t *testing.T) {
	s, fake := newTestServer(t, true)
	fake.SetState(servicectl.StateStopped)

	tests := []struct {
		path string
		code int
		ok   bool
	}{
		{"/api/start", http.StatusOK, true},
		{"/api/start", http.StatusInternalServerError, false}, // already running
		{"/api/stop", http.StatusOK, true},
		{"/api/stop", http.StatusInternalServerError, false}, // not running
	}
	for _, tt := range tests {
		w := do(t, s, http.MethodPost, tt.path, nil)
		resp := decodeBody[ActionResponse](t, w)
		if w.Code != tt.code || resp.OK != tt.ok || resp.Output == "" {
			t.Errorf("%s: code=%d resp=%+v", tt.path, w.Code, resp)
		}
	}
}

func TestRestart(t *testing.T) {
	s, fake := newTestServer(t, true)
	fake.SetState(servicectl.StateStopped)

	w := do(t, s, http.MethodPost, "/api/restart", nil)
	resp := decodeBody[ActionResponse](t, w)
	if w.Code != http.StatusOK || !resp.OK || resp.Stop == "" || resp.Start == "" {
		t.Fatalf("restart: %d %+v", w.Code, resp)
	}
	if st, _ := fake.Query(context.Background()); st.State != servicectl.StateRunning {
		t.Errorf("state after restart = %s", st.State)
	}
}

func TestForceStop(t *testing.T) {
	s, fake := newTestServer(t, true)
	fake.SetState(servicectl.StateRunning)
	w := do(t, s, http.MethodPost, "/api/force-stop", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d body %s", w.Code, w.Body)
	}
	if st, _ := fake.Query(context.Background()); st.State != servicectl.StateStopped {
		t.Errorf("state = %s", st.State)
	}
}

func TestInstallUninstallRequireAdmin(t *testing.T) {
	s, fake := newTestServer(t, false)
	for _, path := range []string{"/api/install", "/api/uninstall"} {
		w := do(t, s, http.MethodPost, path, nil)
		if w.Code != http.StatusForbidden {
			t.Errorf("%s: code = %d", path, w.Code)
		}
		var resp ActionResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("%s: decode: %v", path, err)
		}
		if resp.OK || resp.Output != "Administrator privileges required" {
			t.Errorf("%s: body = %+v", path, resp)
		}
	}
	if len(fake.Calls) != 0 {
		t.Errorf("controller called without admin: %v", fake.Calls)
	}
}

func TestInstallUninstall(t *testing.T) {
	s, fake := newTestServer(t, true)

	w := do(t, s, http.MethodPost, "/api/install", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("install: %d %s", w.Code, w.Body)
	}
	if fake.Options.Executable != "/opt/uploadsvc" {
		t.Errorf("install options not passed: %+v", fake.Options)
	}

	fake.SetState(servicectl.StateRunning)
	w = do(t, s, http.MethodPost, "/api/uninstall", nil)
	resp := decodeBody[ActionResponse](t, w)
	if w.Code != http.StatusOK || !resp.OK || resp.Stop == "" || resp.Delete == "" {
		t.Fatalf("uninstall: %d %+v", w.Code, resp)
	}
	if st, _ := fake.Query(context.Background()); st.Installed {
		t.Error("service still installed")
	}
}

func TestConnectFlag(t *testing.T) {
	s, _ := newTestServer(t, true)
	for _, tt := range []struct {
		path, msg string
		want      bool
	}{
		{"/api/connect", "Connected", true},
		{"/api/disconnect", "Disconnected", false},
		{"/api/reconnect", "UI reconnected", true},
	} {
		w := do(t, s, http.MethodPost, tt.path, nil)
		resp := decodeBody[ActionResponse](t, w)
		if !resp.OK || resp.Message != tt.msg {
			t.Errorf("%s: %+v", tt.path, resp)
		}
		st := decodeBody[StatusResponse](t, do(t, s, http.MethodGet, "/api/status", nil))
		if st.UIConnected != tt.want {
			t.Errorf("%s: uiConnected = %v", tt.path, st.UIConnected)
		}
	}
}

func TestUILog(t *testing.T) {
	s, _ := newTestServer(t, true)

	for _, msg := range []string{"one", "two", "three"} {
		w := do(t, s, http.MethodPost, "/api/ui-log", LogRequest{Message: msg, Source: "test"})
		if w.Code != http.StatusOK {
			t.Fatalf("post: %d", w.Code)
		}
	}
	if w := do(t, s, http.MethodPost, "/api/ui-log", map[string]string{"source": "x"}); w.Code != http.StatusBadRequest {
		t.Errorf("missing message: code = %d", w.Code)
	}

	resp := decodeBody[LogsResponse](t, do(t, s, http.MethodGet, "/api/ui-log?after=1", nil))
	if len(resp.Entries) != 2 || resp.Entries[0].Message != "two" || resp.Last != 3 {
		t.Errorf("unexpected entries %+v", resp)
	}
	if w := do(t, s, http.MethodGet, "/api/ui-log?after=abc", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad after: code = %d", w.Code)
	}
}

func TestNotFoundAndHealth(t *testing.T) {
	s, _ := newTestServer(t, true)
	w := do(t, s, http.MethodGet, "/api/nope", nil)
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), "Not Found") {
		t.Errorf("404: %d %s", w.Code, w.Body)
	}
	w = do(t, s, http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "ok") {
		t.Errorf("healthz: %d %s", w.Code, w.Body)
	}
}

func TestMetrics(t *testing.T) {
	s, fake := newTestServer(t, true)
	fake.SetState(servicectl.StateStopped)
	do(t, s, http.MethodPost, "/api/start", nil)
	do(t, s, http.MethodPost, "/api/ui-log", LogRequest{Message: "hello"})

	w := do(t, s, http.MethodGet, "/metrics", nil)
	body := w.Body.String()
	for _, want := range []string{
		`uploadsvc_control_operations_total{action="start",result="ok"} 1`,
		`uploadsvc_ui_log_entries_total 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestUploadUnavailable(t *testing.T) {
	s, _ := newTestServer(t, true)
	w := do(t, s, http.MethodPost, "/api/upload", pacs.Request{Folder: t.TempDir()})
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("code = %d", w.Code)
	}
}

func TestUpload(t *testing.T) {
	pacsSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tools/find":
			w.Write([]byte(`[]`))
		case "/instances":
			io.Copy(io.Discard, r.Body)
			w.Write([]byte(`{"Status":"Success"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer pacsSrv.Close()

	client, err := pacs.NewClient(pacs.Options{BaseURL: pacsSrv.URL, ConfirmAttempts: 1, ConfirmDelay: time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	u := pacs.NewUploader(client, nil, nil)
	u.ReadUIDs = func(string) (pacs.UIDs, error) { return pacs.UIDs{}, nil }

	fake := servicectltest.New("TestUploaderService")
	s := New(Options{Controller: fake, Uploader: u, IsAdmin: func() bool { return true }})
	u.Notifier = s.Notifier()

	done := make(chan pacs.Result, 1)
	prev := u.OnDone
	u.OnDone = func(req pacs.Request, res pacs.Result) {
		prev(req, res)
		done <- res
	}

	folder := t.TempDir()
	if err := os.WriteFile(filepath.Join(folder, "a.dcm"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	w := do(t, s, http.MethodPost, "/api/upload", pacs.Request{Folder: folder, Case: "7"})
	resp := decodeBody[UploadResponse](t, w)
	if w.Code != http.StatusAccepted || !resp.Started {
		t.Fatalf("upload: %d %+v", w.Code, resp)
	}
	select {
	case res := <-done:
		if res.Uploaded != 1 {
			t.Errorf("result %+v", res)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("upload did not finish")
	}

	if s.Logs().Len() == 0 {
		t.Error("uploader messages not in UI log")
	}

	w = do(t, s, http.MethodPost, "/api/upload", pacs.Request{Folder: filepath.Join(folder, "missing")})
	if w.Code != http.StatusNotFound {
		t.Errorf("missing folder: code = %d", w.Code)
	}
	w = do(t, s, http.MethodPost, "/api/upload", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty folder: code = %d", w.Code)
	}
}

func TestRunShutsDown(t *testing.T) {
	s, _ := newTestServer(t, true)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
}
