package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Veraticus/spice-ingest/internal/common"
	"github.com/Veraticus/spice-ingest/internal/pipeline"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusFor maps pipeline errors to HTTP statuses.
func statusFor(err error) (int, string) {
	var userErr *common.UserError
	switch {
	case errors.Is(err, common.ErrEmptyInput):
		return http.StatusBadRequest, "text is required"
	case errors.As(err, &userErr):
		return http.StatusBadRequest, userErr.UserMessage
	case errors.Is(err, common.ErrPoolExhausted), errors.Is(err, common.ErrClosed):
		return http.StatusServiceUnavailable, "no API credentials are available"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request) (pipeline.Request, bool) {
	var req pipeline.Request
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	return req, true
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	resp, err := s.processor.Process(ctx, req)
	if err != nil {
		status, msg := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("parse request failed", "error", err)
		}
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleStream writes each pipeline event as a server-sent event frame.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	err := s.processor.Stream(ctx, req, func(e pipeline.Event) error {
		return writeEvent(w, flusher, e)
	})
	if err != nil {
		s.logger.Debug("stream ended with error", "error", err)
	}
}

// writeEvent writes e as a single data: frame.
func writeEvent(w http.ResponseWriter, flusher http.Flusher, e pipeline.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

func (s *Server) handleKeyStatus(w http.ResponseWriter, _ *http.Request) {
	if s.pool == nil {
		writeError(w, http.StatusNotFound, "key pool not configured")
		return
	}
	writeJSON(w, http.StatusOK, s.pool.Status())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
