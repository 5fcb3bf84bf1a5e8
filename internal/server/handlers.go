package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/claude/scanflow/internal/apperr"
	"github.com/claude/scanflow/internal/coach"
	"github.com/go-chi/chi/v5"
)

const defaultLogLimit = 10

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	doc, err := s.coach.Profile(r.Context())
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var in coach.ProfileInput
	if err := decode(r, &in); err != nil {
		writeError(w, s.log, err)
		return
	}
	res, err := s.coach.CreateProfile(r.Context(), in)
	respond(w, s.log, res, err)
}

func (s *Server) handleOnboarding(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if err := decode(r, &fields); err != nil {
		writeError(w, s.log, err)
		return
	}
	res, err := s.coach.SubmitOnboarding(r.Context(), fields)
	respond(w, s.log, res, err)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var in coach.ScanInput
	if err := decode(r, &in); err != nil {
		writeError(w, s.log, err)
		return
	}
	res, err := s.coach.ProcessScan(r.Context(), in)
	respond(w, s.log, res, err)
}

func (s *Server) handleTrainingPlan(w http.ResponseWriter, r *http.Request) {
	res, err := s.coach.GenerateTrainingPlan(r.Context())
	respond(w, s.log, res, err)
}

func (s *Server) handleNutritionPlan(w http.ResponseWriter, r *http.Request) {
	var in coach.NutritionInput
	if err := decode(r, &in); err != nil {
		writeError(w, s.log, err)
		return
	}
	res, err := s.coach.GenerateNutritionPlan(r.Context(), in)
	respond(w, s.log, res, err)
}

func (s *Server) handleWorkoutFeedback(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{}
	if err := decode(r, &payload); err != nil {
		writeError(w, s.log, err)
		return
	}
	res, err := s.coach.LogWorkoutFeedback(r.Context(), payload)
	respond(w, s.log, res, err)
}

func (s *Server) handleNutritionFeedback(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{}
	if err := decode(r, &payload); err != nil {
		writeError(w, s.log, err)
		return
	}
	res, err := s.coach.LogNutritionFeedback(r.Context(), payload)
	respond(w, s.log, res, err)
}

func (s *Server) handleRecentLogs(w http.ResponseWriter, r *http.Request) {
	limit := defaultLogLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil {
			writeError(w, s.log, apperr.New(apperr.InvalidArgument, "limit must be an integer"))
			return
		}
		limit = parsed
	}
	logs, err := s.coach.RecentLogs(r.Context(), chi.URLParam(r, "kind"), limit)
	respond(w, s.log, logs, err)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Message any `json:"message"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, s.log, err)
		return
	}
	// Non-string messages are rejected the same way as empty ones.
	msg, _ := body.Message.(string)
	res, err := s.chat.Chat(r.Context(), msg)
	respond(w, s.log, res, err)
}

// decode reads a JSON request body into v. An empty body leaves v unchanged.
func decode(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return apperr.New(apperr.InvalidArgument, "invalid JSON: %v", err)
	}
	return nil
}

func respond(w http.ResponseWriter, log *slog.Logger, v any, err error) {
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// writeError maps the error's code to an HTTP status. Internal errors are logged.
func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	code := apperr.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case apperr.Unauthenticated:
		status = http.StatusUnauthorized
	case apperr.InvalidArgument:
		status = http.StatusBadRequest
	case apperr.NotFound:
		status = http.StatusNotFound
	default:
		log.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"code": string(code), "error": apperr.MessageOf(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
