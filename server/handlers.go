package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tailored-agentic-units/flowgraph/content"
	"github.com/tailored-agentic-units/flowgraph/orchestrate/batch"
	"github.com/tailored-agentic-units/flowgraph/orchestrate/graph"
	"github.com/tailored-agentic-units/flowgraph/pipeline"
)

const maxBodyBytes = 1 << 20

type processRequest struct {
	Content string `json:"content"`
}

type batchRequest struct {
	Inputs []string `json:"inputs"`
}

type batchItemError struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

type batchResponse struct {
	Results []*content.Result `json:"results"`
	Errors  []batchItemError  `json:"errors"`
	Error   string            `json:"error,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := s.pipeline.Process(r.Context(), req.Content)
	s.writeRun(w, res, err)
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := s.pipeline.ProcessBatch(r.Context(), req.Inputs, nil)

	resp := batchResponse{
		Results: res.Values(),
		Errors:  make([]batchItemError, len(res.Errors)),
	}
	for i, taskErr := range res.Errors {
		resp.Errors[i] = batchItemError{Index: taskErr.Index, Error: taskErr.Err.Error()}
	}

	status := http.StatusOK
	if err != nil {
		resp.Error = err.Error()
		status = http.StatusInternalServerError
		var batchErr *batch.Error[string]
		if !errors.As(err, &batchErr) {
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	topo := s.pipeline.Topology()

	if r.URL.Query().Get("format") == "mermaid" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(topo.Mermaid()))
		return
	}
	writeJSON(w, http.StatusOK, topo)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	res, err := s.pipeline.Resume(r.Context(), runID)
	if res == nil && err != nil {
		writeJSON(w, resumeStatus(err), errorResponse{Error: err.Error()})
		return
	}
	s.writeRun(w, res, err)
}

func resumeStatus(err error) int {
	switch {
	case errors.Is(err, graph.ErrCheckpointNotFound):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrCheckpointingDisabled), errors.Is(err, graph.ErrRunComplete):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeRun reports a finished run. Validation failures are successful runs;
// only a failed run is an error response, with the cause in Result.Failure.
func (s *Server) writeRun(w http.ResponseWriter, res *content.Result, err error) {
	status := http.StatusOK
	switch {
	case err == nil:
	case errors.Is(err, graph.ErrCancelled):
		status = http.StatusServiceUnavailable
	default:
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, res)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
