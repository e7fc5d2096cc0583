package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"qcalab/app"
	"qcalab/domain/qca"
	"qcalab/domain/run"
	"qcalab/internal/conversion"
	"qcalab/internal/errors"
	"qcalab/ports"
)

// AnalyzeRequest is the body of POST /api/qca/analyze
type AnalyzeRequest struct {
	Data   qca.Data `json:"data"`
	Source string   `json:"source,omitempty"`
	// Configuration is overlaid on the server defaults; absent keys keep them
	Configuration json.RawMessage `json:"configuration,omitempty"`
}

// AnalyzeResponse carries the run manifest and its results
type AnalyzeResponse struct {
	Run     run.Manifest `json:"run"`
	Status  run.Status   `json:"status"`
	Results *qca.Results `json:"results"`
}

// SelectionRequest picks the selection policy for a conversion
type SelectionRequest struct {
	Policy      string   `json:"policy"`
	CoreMarkers []string `json:"core_markers,omitempty"`
	Outcomes    []string `json:"outcomes,omitempty"`
}

// ConvertRequest is the body of POST /api/qca/convert
type ConvertRequest struct {
	Codes     []qca.Code        `json:"codes"`
	Cases     []qca.Case        `json:"cases"`
	Selection *SelectionRequest `json:"selection,omitempty"`
	// Analyze also runs the engine on the converted matrix
	Analyze       bool            `json:"analyze,omitempty"`
	Source        string          `json:"source,omitempty"`
	Configuration json.RawMessage `json:"configuration,omitempty"`
}

// ConvertResponse is the conversion and, when requested, the analysis
type ConvertResponse struct {
	Conversion *conversion.Conversion `json:"conversion"`
	Analysis   *AnalyzeResponse       `json:"analysis,omitempty"`
}

func (s *Server) configOverride(raw json.RawMessage) (*qca.Configuration, error) {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}
	cfg := s.service.Config()
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, err)
	}
	return &cfg, nil
}

func analyzeResponse(record *run.Record) *AnalyzeResponse {
	return &AnalyzeResponse{Run: record.Manifest, Status: record.Status, Results: record.Results}
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	cfg, err := s.configOverride(req.Configuration)
	if err != nil {
		s.writeError(w, err)
		return
	}

	record, err := s.service.Analyze(r.Context(), app.AnalyzeRequest{Data: req.Data, Source: req.Source, Config: cfg})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, analyzeResponse(record))
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	var req ConvertRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	var policy conversion.SelectionPolicy
	if req.Selection != nil {
		p, err := conversion.NewPolicy(req.Selection.Policy, req.Selection.CoreMarkers, req.Selection.Outcomes)
		if err != nil {
			s.writeError(w, errors.FromDomain(err))
			return
		}
		policy = p
	}
	convReq := app.ConvertRequest{Codes: req.Codes, Cases: req.Cases, Policy: policy}

	if !req.Analyze {
		conv, err := s.service.Convert(convReq)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, ConvertResponse{Conversion: conv})
		return
	}

	cfg, err := s.configOverride(req.Configuration)
	if err != nil {
		s.writeError(w, err)
		return
	}
	record, conv, err := s.service.ConvertAndAnalyze(r.Context(), convReq, req.Source, cfg)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ConvertResponse{Conversion: conv, Analysis: analyzeResponse(record)})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	var filters ports.RunFilters
	q := r.URL.Query()
	if v := q.Get("status"); v != "" {
		status := run.Status(v)
		if status != run.StatusCompleted && status != run.StatusFailed {
			s.writeError(w, errors.InvalidInput("status must be completed or failed"))
			return
		}
		filters.Status = &status
	}
	var err error
	if filters.Limit, err = queryInt(q.Get("limit")); err != nil {
		s.writeError(w, errors.InvalidInput("limit must be a non-negative integer"))
		return
	}
	if filters.Offset, err = queryInt(q.Get("offset")); err != nil {
		s.writeError(w, errors.InvalidInput("offset must be a non-negative integer"))
		return
	}

	runs, err := s.service.ListRuns(r.Context(), filters)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

func queryInt(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.InvalidInput(v)
	}
	return n, nil
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	record, err := s.service.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleRunReport(w http.ResponseWriter, r *http.Request) {
	record, err := s.service.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	renderer, err := s.service.Renderer(r.URL.Query().Get("format"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	// Render into a buffer so a failure can still produce an error response
	var buf bytes.Buffer
	if err := s.service.Render(&buf, record.Results, renderer.Format()); err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", renderer.ContentType())
	if renderer.Format() == qca.OutputXLSX {
		w.Header().Set("Content-Disposition", `attachment; filename="qca-`+record.Manifest.RunID.String()+`.xlsx"`)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.logger.Warn("[API] failed to write report: %v", err)
	}
}
