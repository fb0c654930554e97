package e2e

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"testing"
	"time"
)

// findFreePort picks an available TCP port on localhost.
func findFreePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func projectRoot(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	// this file: <root>/internal/e2e/blackbox_test.go
	return filepath.Dir(filepath.Dir(filepath.Dir(thisFile)))
}

func buildBinary(t *testing.T) string {
	t.Helper()
	binPath := filepath.Join(t.TempDir(), "ollamachat")
	cmd := exec.Command("go", "build", "-o", binPath, "./cmd/ollamachat")
	cmd.Dir = projectRoot(t)
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("go build failed: %v\n%s", err, string(out))
	}
	return binPath
}

type serverProc struct {
	cmd  *exec.Cmd
	base string
}

func startServer(t *testing.T, bin string, env []string, args ...string) *serverProc {
	t.Helper()
	port := findFreePort(t)
	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	args = append([]string{"serve", "--host", "127.0.0.1", "--port", fmt.Sprint(port), "--log-format", "json"}, args...)
	cmd := exec.Command(bin, args...)
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(func() { _ = cmd.Process.Kill(); _, _ = cmd.Process.Wait() })

	deadline := time.Now().Add(10 * time.Second)
	for {
		resp, err := http.Get(base + "/healthz")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				break
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not become healthy in time")
		}
		time.Sleep(50 * time.Millisecond)
	}
	return &serverProc{cmd: cmd, base: base}
}

func TestBlackboxFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("builds the binary")
	}
	bin := buildBinary(t)
	ollama := newFakeOllama(t, "hello", " world")

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("model:\n  name: llama3:8b\n  max_tokens: 128\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	sp := startServer(t, bin, []string{"OLLAMACHAT_CONFIG=" + cfgPath},
		"--backend-url", ollama.srv.URL, "--backend-bin", "/nonexistent/ollama")

	resp, body := httpGet(t, sp.base+"/api/config")
	mustStatus(t, resp, body, http.StatusOK)
	if !strings.Contains(string(body), `"model":"llama3:8b"`) || !strings.Contains(string(body), `"max_tokens":128`) {
		t.Fatalf("config file not applied: %s", body)
	}

	resp, body = httpGet(t, sp.base+"/api/ollama/status")
	mustStatus(t, resp, body, http.StatusOK)
	if !strings.Contains(string(body), `"running"`) {
		t.Fatalf("status body=%s", body)
	}

	resp, body = httpPostJSON(t, sp.base+"/api/chat", `{"content":"hi"}`)
	mustStatus(t, resp, body, http.StatusOK)
	if got := joinResponses(ndjson(t, body)); got != "hello world" {
		t.Fatalf("answer=%q", got)
	}
	if ollama.lastRequest(t).Model != "llama3:8b" {
		t.Fatalf("model flag/config not forwarded")
	}

	resp, body = httpGet(t, sp.base+"/metrics")
	mustStatus(t, resp, body, http.StatusOK)
	if !strings.Contains(string(body), "ollamachat_relay_streams_total") {
		t.Fatalf("relay metrics missing")
	}

	// SIGTERM shuts down cleanly.
	if err := sp.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		t.Fatalf("signal: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- sp.cmd.Wait() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("server exited with %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatalf("server did not exit after SIGTERM")
	}
}
