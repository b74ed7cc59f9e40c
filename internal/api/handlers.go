package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"rrf/internal/errors"
	"rrf/internal/params"
	"rrf/internal/resonance"
	"rrf/internal/storage"
	"rrf/internal/version"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// StatusResponse represents the engine status response
type StatusResponse struct {
	Version    string            `json:"version"`
	TunerState string            `json:"tunerState"`
	Parameters params.Parameters `json:"parameters"`
	RunCount   int64             `json:"runCount"`
}

// AnalyzeRequest is the POST /analyze body
type AnalyzeRequest struct {
	Text string `json:"text"`
}

// AnalyzeResponse is the POST /analyze result
type AnalyzeResponse struct {
	Run    *storage.RunRecord `json:"run"`
	Result *resonance.Result  `json:"result"`
}

// TuneResponse is the POST /tune result
type TuneResponse struct {
	Parameters params.Parameters `json:"parameters"`
	TunerState string            `json:"tunerState"`
}

// RunResponse is the GET /runs/:id result
type RunResponse struct {
	Run     *storage.RunRecord  `json:"run"`
	Payload *storage.RunPayload `json:"payload,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   version.Version,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	count, err := s.db.CountRuns()
	if err != nil {
		s.writeError(w, r, errors.Wrap(errors.InternalError, "failed to count runs", err))
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{
		Version:    version.Version,
		TunerState: string(s.engine.TunerState()),
		Parameters: s.engine.Parameters(),
		RunCount:   count,
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, errors.Wrap(errors.InvalidRequest, "invalid request body", err))
		return
	}

	rec, result, err := s.engine.Analyze(r.Context(), req.Text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AnalyzeResponse{Run: rec, Result: result})
}

func (s *Server) handleTune(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	p, err := s.engine.Tune(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TuneResponse{
		Parameters: p,
		TunerState: string(s.engine.TunerState()),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, r, errors.Newf(errors.InvalidRequest, "invalid limit %q", raw))
			return
		}
		limit = n
	}

	records, err := s.db.RecentRuns(limit)
	if err != nil {
		s.writeError(w, r, errors.Wrap(errors.InternalError, "failed to list runs", err))
		return
	}
	if records == nil {
		records = []storage.RunRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"runs": records})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	runID := strings.TrimPrefix(r.URL.Path, "/runs/")
	if runID == "" || strings.Contains(runID, "/") {
		s.writeError(w, r, errors.New(errors.RunNotFound, "missing run id"))
		return
	}

	rec, payload, err := s.db.GetRun(runID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RunResponse{Run: rec, Payload: payload})
}

// errorResponse is the JSON error envelope
type errorResponse struct {
	Error *errors.RrfError `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	re := errors.From(err)
	status := statusForCode(re.Code)
	if status >= 500 {
		s.logger.Error("request failed", map[string]interface{}{
			"error":     re.Error(),
			"path":      r.URL.Path,
			"requestID": GetRequestID(r.Context()),
		})
	}
	writeJSON(w, status, errorResponse{Error: re})
}

func statusForCode(code errors.ErrorCode) int {
	switch code {
	case errors.EmptyInput, errors.DegenerateParameter, errors.InvalidRequest:
		return http.StatusBadRequest
	case errors.RunNotFound:
		return http.StatusNotFound
	case errors.Divergence:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
}
