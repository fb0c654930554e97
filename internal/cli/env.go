package cli

import (
	"fmt"
	"os"
	"strings"
)

// Environment variables consulted for flag defaults.
const (
	envConfig     = "OLLAMACHAT_CONFIG"
	envHost       = "OLLAMACHAT_HOST"
	envPort       = "OLLAMACHAT_PORT"
	envBackendURL = "OLLAMACHAT_BACKEND_URL"
	envBackendBin = "OLLAMACHAT_BACKEND_BIN"
	envModel      = "OLLAMACHAT_MODEL"
	envLogLevel   = "OLLAMACHAT_LOG_LEVEL"
	envLogFormat  = "OLLAMACHAT_LOG_FORMAT"
)

func envStr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return def
}

// splitCSV splits a comma-separated list, dropping blanks.
func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
