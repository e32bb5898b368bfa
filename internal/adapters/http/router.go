package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kirillkom/clinical-qa/internal/core/ports"
)

const maxQuestionLength = 2000

// Router exposes the question-answering pipeline over HTTP.
type Router struct {
	answers ports.AnswerService
	metrics MetricsHandler
	logger  *slog.Logger
}

// MetricsHandler mounts the service's metrics endpoint and wraps handlers
// with request accounting.
type MetricsHandler interface {
	Handler() http.Handler
	Middleware(service string, next http.Handler) http.Handler
}

func NewRouter(answers ports.AnswerService, metrics MetricsHandler, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		answers: answers,
		metrics: metrics,
		logger:  logger,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/answers", rt.answerQuestion)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware("api", handler)
	}
	return requestIDMiddleware(accessLogMiddleware(rt.logger, handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) answerQuestion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}
	if len(question) > maxQuestionLength {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question too long"})
		return
	}

	answer := rt.answers.Answer(r.Context(), question)

	rt.logger.Info("question_answered",
		"request_id", requestIDFromContext(r.Context()),
		"category", answer.Category,
		"tier_used", answer.TierUsed,
		"confidence", answer.Confidence,
		"verdict", answer.Validation.Verdict,
	)
	writeJSON(w, http.StatusOK, answer)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
