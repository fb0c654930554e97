package backend

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return c
}

func TestCheck_OKOnlyOn200(t *testing.T) {
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" || r.Method != http.MethodGet {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer srv.Close()

	c := New(time.Second)
	if err := c.Check(testCtx(t), srv.URL+"/"); err != nil {
		t.Fatalf("Check: %v", err)
	}
	status = http.StatusNoContent
	err := c.Check(testCtx(t), srv.URL)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNoContent {
		t.Fatalf("expected StatusError 204, got %v", err)
	}
}

func TestCheck_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	if err := New(200*time.Millisecond).Check(testCtx(t), url); err == nil {
		t.Fatalf("expected error for closed server")
	}
}

func TestCheck_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)
	start := time.Now()
	if err := New(100*time.Millisecond).Check(testCtx(t), srv.URL); err == nil {
		t.Fatalf("expected timeout error")
	}
	if time.Since(start) > time.Second {
		t.Fatalf("probe did not honor its timeout")
	}
}

func TestGenerate_SendsPayloadAndStreams(t *testing.T) {
	var got GenerateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path=%s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		_, _ = io.WriteString(w, "{\"response\":\"a\"}\n{\"response\":\"b\",\"done\":true}\n")
	}))
	defer srv.Close()

	body, err := New(time.Second).Generate(testCtx(t), srv.URL, GenerateRequest{
		Model:   "m",
		Prompt:  "hi",
		Stream:  true,
		Options: GenerateOptions{Temperature: 0, TopP: 0.9, NumPredict: 16},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	defer body.Close()
	if got.Model != "m" || got.Prompt != "hi" || !got.Stream || got.Options.NumPredict != 16 || got.Options.TopP != 0.9 {
		t.Fatalf("unexpected payload: %+v", got)
	}
	var frags []string
	sc := bufio.NewScanner(body)
	for sc.Scan() {
		ch, err := DecodeLine(sc.Bytes())
		if err != nil {
			t.Fatalf("DecodeLine: %v", err)
		}
		frags = append(frags, *ch.Response)
	}
	if strings.Join(frags, "") != "ab" {
		t.Fatalf("frags=%v", frags)
	}
}

func TestGenerate_ZeroTemperatureIsSent(t *testing.T) {
	b, err := json.Marshal(GenerateRequest{Options: GenerateOptions{Temperature: 0}})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"temperature":0`) {
		t.Fatalf("temperature omitted: %s", b)
	}
	if strings.Contains(string(b), `"system"`) {
		t.Fatalf("empty system should be omitted: %s", b)
	}
}

func TestGenerate_Non200ReturnsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()
	_, err := New(time.Second).Generate(testCtx(t), srv.URL, GenerateRequest{Model: "x"})
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Code != http.StatusNotFound || !strings.Contains(se.Body, "model not found") {
		t.Fatalf("unexpected status error: %+v", se)
	}
	if !strings.Contains(se.Error(), "404") {
		t.Fatalf("error text=%q", se.Error())
	}
}

func TestDecodeLine(t *testing.T) {
	ch, err := DecodeLine([]byte(`{"model":"m","done":true}`))
	if err != nil || ch.Response != nil || !ch.Done {
		t.Fatalf("unexpected: %+v err=%v", ch, err)
	}
	ch, err = DecodeLine([]byte(`{"response":null,"done":false}`))
	if err != nil || ch.Response != nil {
		t.Fatalf("null response should carry no text: %+v err=%v", ch, err)
	}
	if _, err := DecodeLine([]byte(`not json`)); err == nil {
		t.Fatalf("expected decode error")
	}
	if _, err := DecodeLine([]byte(`{"response": 5}`)); err == nil {
		t.Fatalf("expected type error for non-string response")
	}
}
