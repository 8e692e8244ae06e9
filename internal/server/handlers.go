package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"src2purl/internal/api"
	"src2purl/internal/logging"
	"src2purl/internal/swhid"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIdentify(w http.ResponseWriter, r *http.Request) {
	var req api.IdentifyRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	report, res, err := api.RunIdentify(r.Context(), api.IdentifyWorkflow{
		Config:   s.cfg,
		Request:  req,
		Registry: s.registry,
		Metrics:  s.metrics,
		Logger:   s.logger,
	})
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			logging.ErrorWithContext(s.logger, "identify request failed", "api_identify_failed",
				logging.String("path", req.Path),
				logging.Error(err),
			)
		}
		writeError(w, status, err.Error())
		return
	}
	s.logger.Info("identify request served",
		logging.String(logging.FieldRunID, res.RunID),
		logging.String("path", res.Path),
		logging.Int("matches", report.Count),
		logging.Duration("duration", res.Duration),
	)
	writeJSON(w, http.StatusOK, report)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, api.ErrInvalidRequest), errors.Is(err, swhid.ErrWrongKind):
		return http.StatusBadRequest
	case errors.Is(err, swhid.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, api.ErrorResponse{Error: message})
}
