package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"rrf/internal/config"
	"rrf/internal/engine"
	"rrf/internal/logging"
	"rrf/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := logging.NewLogger(logging.Config{Level: logging.ErrorLevel})
	db, err := storage.Open(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	eng := engine.New(config.DefaultConfig(), db, logger)
	return NewServer("127.0.0.1:0", eng, db, logger)
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(t, s, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %s, want ok", resp.Status)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestAnalyzeEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(t, s, http.MethodPost, "/analyze", `{"text":"resonance test"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}

	var resp AnalyzeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Run == nil || resp.Run.RunID == "" {
		t.Fatal("run record missing")
	}
	if resp.Result == nil || len(resp.Result.Waveform) == 0 {
		t.Fatal("result missing waveform")
	}
	if c := resp.Result.Metric.Coherence; c < 0 || c > 1 {
		t.Errorf("coherence %v outside [0,1]", c)
	}
}

func TestAnalyzeEmptyText(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(t, s, http.MethodPost, "/analyze", `{"text":""}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "EMPTY_INPUT") {
		t.Errorf("error code missing from body: %s", w.Body.String())
	}
}

func TestAnalyzeMalformedBody(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(t, s, http.MethodPost, "/analyze", `{"text":`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "INVALID_REQUEST") {
		t.Errorf("error code missing from body: %s", w.Body.String())
	}
}

func TestHistoryInvalidLimit(t *testing.T) {
	s := newTestServer(t)

	for _, limit := range []string{"abc", "0", "-5"} {
		w := doRequest(t, s, http.MethodGet, "/history?limit="+limit, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: status = %d, want 400", limit, w.Code)
		}
		if !strings.Contains(w.Body.String(), "INVALID_REQUEST") {
			t.Errorf("limit=%s: error code missing: %s", limit, w.Body.String())
		}
	}
}

func TestAnalyzeMethodNotAllowed(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(t, s, http.MethodGet, "/analyze", "")
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
}

func TestTuneEndpointColdStart(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(t, s, http.MethodPost, "/tune", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}

	var resp TuneResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.TunerState != "evaluating" {
		t.Errorf("tuner state = %s, want evaluating", resp.TunerState)
	}
}

func TestHistoryAndRunEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(t, s, http.MethodPost, "/analyze", `{"text":"resonance test"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("analyze failed: %s", w.Body.String())
	}
	var analyzed AnalyzeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &analyzed); err != nil {
		t.Fatalf("decode: %v", err)
	}

	w = doRequest(t, s, http.MethodGet, "/history?limit=10", "")
	if w.Code != http.StatusOK {
		t.Fatalf("history status = %d", w.Code)
	}
	var hist struct {
		Runs []storage.RunRecord `json:"runs"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &hist); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(hist.Runs) != 1 {
		t.Fatalf("history has %d runs, want 1", len(hist.Runs))
	}

	w = doRequest(t, s, http.MethodGet, "/runs/"+analyzed.Run.RunID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("run status = %d, body: %s", w.Code, w.Body.String())
	}
	var run RunResponse
	if err := json.Unmarshal(w.Body.Bytes(), &run); err != nil {
		t.Fatalf("decode run: %v", err)
	}
	if run.Payload == nil || len(run.Payload.Waveform) == 0 {
		t.Error("run payload missing waveform")
	}
}

func TestGetRunNotFound(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(t, s, http.MethodGet, "/runs/not-a-run", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if !strings.Contains(w.Body.String(), "RUN_NOT_FOUND") {
		t.Errorf("error code missing: %s", w.Body.String())
	}
}

func TestStatusEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(t, s, http.MethodGet, "/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.TunerState == "" {
		t.Error("tuner state missing")
	}
	if resp.RunCount != 0 {
		t.Errorf("run count = %d, want 0", resp.RunCount)
	}
}
