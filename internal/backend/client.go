// Package backend talks to the Ollama HTTP API: a tags call used as a
// liveness probe and the streaming generate call.
package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

const (
	tagsPath     = "/api/tags"
	generatePath = "/api/generate"

	maxErrorBody = 4096
)

// Client issues requests against a backend base URL passed per call, so a
// settings update takes effect on the next request.
type Client struct {
	httpClient   *http.Client
	probeTimeout time.Duration
}

// New constructs a Client with its own transport.
func New(probeTimeout time.Duration) *Client {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          16,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	// Timeout=0: every call carries a context deadline instead, and the
	// streaming call must not be cut by a client-wide timeout.
	return NewWithHTTPClient(&http.Client{Transport: tr, Timeout: 0}, probeTimeout)
}

// NewWithHTTPClient wraps an existing http.Client.
func NewWithHTTPClient(hc *http.Client, probeTimeout time.Duration) *Client {
	if probeTimeout <= 0 {
		probeTimeout = 2 * time.Second
	}
	return &Client{httpClient: hc, probeTimeout: probeTimeout}
}

// Check issues GET /api/tags and returns nil only on HTTP 200.
func (c *Client) Check(ctx context.Context, baseURL string) error {
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, join(baseURL, tagsPath), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	if resp.StatusCode != http.StatusOK {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}

// Generate opens a streaming POST /api/generate. On HTTP 200 the caller owns
// the returned body and must close it; any other status is returned as a
// *StatusError carrying the head of the error body.
func (c *Client) Generate(ctx context.Context, baseURL string, gr GenerateRequest) (io.ReadCloser, error) {
	body, err := json.Marshal(gr)
	if err != nil {
		return nil, fmt.Errorf("encode generate request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, join(baseURL, generatePath), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/x-ndjson")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	return resp.Body, nil
}

// DecodeLine decodes one NDJSON line of a generate stream.
func DecodeLine(line []byte) (GenerateChunk, error) {
	var ch GenerateChunk
	if err := json.Unmarshal(line, &ch); err != nil {
		return GenerateChunk{}, err
	}
	return ch, nil
}

func join(baseURL, path string) string {
	return strings.TrimRight(baseURL, "/") + path
}
