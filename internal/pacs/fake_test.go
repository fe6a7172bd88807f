package pacs

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakePACS is a minimal Orthanc: instances are plain-text "sop|series|study"
// bodies.
type fakePACS struct {
	t *testing.T

	mu         sync.Mutex
	instances  map[string]UIDs // by SOP UID
	labels     map[string][]string
	uploads    int
	tokens     int
	validToken string
	failUpload bool
	lastCT     string
	lastLen    int64
}

func newFakePACS(t *testing.T) (*fakePACS, *httptest.Server) {
	f := &fakePACS{t: t, instances: map[string]UIDs{}, labels: map[string][]string{}}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	return f, srv
}

func parseFakeUIDs(b []byte) UIDs {
	parts := strings.SplitN(strings.TrimSpace(string(b)), "|", 3)
	for len(parts) < 3 {
		parts = append(parts, "")
	}
	return UIDs{SOPInstance: parts[0], SeriesInstance: parts[1], StudyInstance: parts[2]}
}

func fakeReadUIDs(path string) (UIDs, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return UIDs{}, err
	}
	return parseFakeUIDs(b), nil
}

func (f *fakePACS) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.URL.Path == "/token" {
		f.tokens++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"tok-%d","token_type":"bearer","expires_in":3600}`, f.tokens)
		return
	}
	if f.validToken != "" && r.Header.Get("Authorization") != "Bearer "+f.validToken {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	switch {
	case r.URL.Path == "/system":
		json.NewEncoder(w).Encode(map[string]any{"Name": "fake", "Version": "1.12"})
	case r.URL.Path == "/instances" && r.Method == http.MethodPost:
		f.lastCT = r.Header.Get("Content-Type")
		f.lastLen = r.ContentLength
		b, _ := io.ReadAll(r.Body)
		if f.failUpload {
			http.Error(w, "storage full", http.StatusInternalServerError)
			return
		}
		f.uploads++
		u := parseFakeUIDs(b)
		f.instances[u.SOPInstance] = u
		json.NewEncoder(w).Encode(map[string]any{"ID": "inst-" + u.SOPInstance, "Status": "Success"})
	case r.URL.Path == "/tools/find":
		var req findRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		ids := []string{}
		for _, u := range f.instances {
			switch {
			case req.Level == "Instance" && req.Query["SOPInstanceUID"] != "" && u.SOPInstance == req.Query["SOPInstanceUID"],
				req.Level == "Instance" && req.Query["SeriesInstanceUID"] != "" && u.SeriesInstance == req.Query["SeriesInstanceUID"]:
				ids = append(ids, "inst-"+u.SOPInstance)
			case req.Level == "Study" && u.StudyInstance == req.Query["StudyInstanceUID"]:
				ids = []string{"study-" + u.StudyInstance}
			}
		}
		json.NewEncoder(w).Encode(ids)
	case strings.HasPrefix(r.URL.Path, "/studies/") && r.Method == http.MethodPut:
		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/studies/"), "/")
		if len(parts) != 3 || parts[1] != "labels" {
			http.NotFound(w, r)
			return
		}
		f.labels[parts[0]] = append(f.labels[parts[0]], parts[2])
		w.WriteHeader(http.StatusOK)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakePACS) count() (uploads, tokens int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploads, f.tokens
}

type recorder struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recorder) Notify(msg, color string) {
	r.mu.Lock()
	r.msgs = append(r.msgs, msg)
	r.mu.Unlock()
}

func (r *recorder) contains(sub string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.msgs {
		if strings.Contains(m, sub) {
			return true
		}
	}
	return false
}

func testClient(t *testing.T, srv *httptest.Server, n Notifier) *Client {
	t.Helper()
	c, err := NewClient(Options{
		BaseURL:      srv.URL + "/",
		Notifier:     n,
		ConfirmDelay: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func newBareServer(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)
	return srv
}
