package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/nodwatch/internal/broadcast"
	"github.com/ayusman/nodwatch/internal/engine"
	"github.com/ayusman/nodwatch/internal/plugin"
	"github.com/ayusman/nodwatch/internal/sensor"
	"github.com/ayusman/nodwatch/internal/store"
)

type stubController struct{ listening bool }

func (c *stubController) Start() error        { c.listening = true; return nil }
func (c *stubController) Stop() error         { c.listening = false; return nil }
func (c *stubController) Listening() bool     { return c.listening }
func (c *stubController) Stats() engine.Stats { return engine.Stats{} }

func statusOf(s http.Handler, method, path string) int {
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec.Code
}

func TestServer_RoutesMountedPerCollaborator(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "routes.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	defer st.Close()

	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name   string
		cfg    Config
		method string
		paths  []string
	}{
		{"controller", Config{Controller: &stubController{}}, http.MethodGet, []string{"/api/status"}},
		{"engine", Config{Controller: &stubController{}}, http.MethodPost, []string{"/api/engine/start", "/api/engine/stop"}},
		{"store", Config{Store: st}, http.MethodGet, []string{"/api/events", "/api/events/stats", "/api/recordings", "/api/actions"}},
		{"hub", Config{Hub: NewHub()}, http.MethodGet, []string{"/api/events/ws"}},
		{"plugins", Config{Plugins: plugin.NewManager(t.TempDir())}, http.MethodGet, []string{"/api/plugins"}},
		{"sensor", Config{Sensor: sensor.NewPush("test")}, http.MethodGet, []string{"/api/sensor"}},
		{"bus", Config{Bus: broadcast.NewBus()}, http.MethodPost, []string{"/api/broadcasts"}},
		{"metrics", Config{Metrics: metricsHandler}, http.MethodGet, []string{"/metrics"}},
	}

	bare := New(Config{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.cfg)
			for _, path := range tt.paths {
				if got := statusOf(bare, tt.method, path); got != http.StatusNotFound {
					t.Errorf("%s %s without collaborator: status %d, want %d", tt.method, path, got, http.StatusNotFound)
				}
				if got := statusOf(s, tt.method, path); got == http.StatusNotFound {
					t.Errorf("%s %s: route not mounted", tt.method, path)
				}
			}
		})
	}
}

func TestServer_Health(t *testing.T) {
	s := New(Config{})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response["status"] != "ok" {
		t.Errorf("expected status 'ok', got %v", response["status"])
	}

	for _, method := range []string{http.MethodPost, http.MethodDelete} {
		if got := statusOf(s, method, "/api/health"); got != http.StatusMethodNotAllowed {
			t.Errorf("method %s: expected status %d, got %d", method, http.StatusMethodNotAllowed, got)
		}
	}
}

func TestServer_StaticDashboard(t *testing.T) {
	dir := t.TempDir()
	page := "<html><body>nodwatch</body></html>"
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte(page), 0644); err != nil {
		t.Fatalf("failed to write index: %v", err)
	}

	s := New(Config{StaticDir: dir})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != page {
		t.Errorf("GET / = %d %q, want dashboard page", rec.Code, rec.Body.String())
	}
	if got := statusOf(s, http.MethodGet, "/missing.js"); got != http.StatusNotFound {
		t.Errorf("missing asset status = %d, want %d", got, http.StatusNotFound)
	}
	if got := statusOf(New(Config{}), http.MethodGet, "/"); got != http.StatusNotFound {
		t.Errorf("root without dashboard = %d, want %d", got, http.StatusNotFound)
	}
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	l.Close()
	return addr
}

func TestServer_RunShutsDownOnCancel(t *testing.T) {
	addr := freeAddr(t)
	s := New(Config{Hub: NewHub()})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx, addr) }()

	client := &http.Client{Timeout: time.Second}
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := client.Get("http://" + addr + "/api/health")
		if err == nil {
			resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never came up: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run() error = %v, want nil after shutdown", err)
		}
	case <-time.After(6 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if _, err := client.Get("http://" + addr + "/api/health"); err == nil {
		t.Error("server still accepting requests after shutdown")
	}
}

func TestServer_RunListenError(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()

	err = New(Config{}).Run(context.Background(), l.Addr().String())
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		t.Errorf("Run() on a busy port error = %v, want a listen error", err)
	}
}
