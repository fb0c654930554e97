package e2e

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"ollamachat/internal/backend"
	"ollamachat/internal/config"
	"ollamachat/internal/httpapi"
	"ollamachat/internal/manager"
)

// fakeOllama is an in-process stand-in for the Ollama HTTP API.
type fakeOllama struct {
	srv *httptest.Server

	mu       sync.Mutex
	up       bool
	requests []backend.GenerateRequest
	reply    []string
}

func newFakeOllama(t *testing.T, reply ...string) *fakeOllama {
	t.Helper()
	f := &fakeOllama{up: true, reply: reply}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		up := f.up
		f.mu.Unlock()
		if !up {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"models":[]}`))
	})
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		var req backend.GenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.requests = append(f.requests, req)
		reply := append([]string(nil), f.reply...)
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/x-ndjson")
		fl, _ := w.(http.Flusher)
		for i, part := range reply {
			b, _ := json.Marshal(map[string]any{"model": req.Model, "response": part, "done": i == len(reply)-1})
			_, _ = w.Write(append(b, '\n'))
			if fl != nil {
				fl.Flush()
			}
		}
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeOllama) setUp(up bool) {
	f.mu.Lock()
	f.up = up
	f.mu.Unlock()
}

func (f *fakeOllama) lastRequest(t *testing.T) backend.GenerateRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		t.Fatalf("backend received no generate request")
	}
	return f.requests[len(f.requests)-1]
}

// newServer wires a real Manager and mux against backendURL.
func newServer(t *testing.T, backendURL string, bc config.BackendConfig) (*httptest.Server, *manager.Manager) {
	t.Helper()
	cfg := config.Default()
	cfg.Backend = bc
	cfg.Backend.URL = backendURL
	mgr := manager.NewWithConfig(manager.ManagerConfig{
		Store:   config.NewStore(cfg.Settings()),
		Backend: cfg.Backend,
	})
	srv := httptest.NewServer(httpapi.NewMux(mgr))
	t.Cleanup(func() {
		srv.Close()
		_ = mgr.Close(context.Background())
	})
	return srv, mgr
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpPostJSON(t *testing.T, url string, payload string) (*http.Response, []byte) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

// ndjson splits a chat response body into decoded lines.
func ndjson(t *testing.T, body []byte) []map[string]string {
	t.Helper()
	var out []map[string]string
	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var m map[string]string
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("bad ndjson line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func joinResponses(lines []map[string]string) string {
	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(l["response"])
	}
	return sb.String()
}

func mustStatus(t *testing.T, resp *http.Response, body []byte, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("%s %s: status=%d want %d body=%s", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, want, body)
	}
}
