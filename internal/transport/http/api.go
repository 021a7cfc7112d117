package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"quizwhiz-service/internal/app"
	"quizwhiz-service/internal/curriculum"
	"quizwhiz-service/internal/domain"
)

// APIHandler serves the JSON endpoints around the live quiz: the curriculum
// for setup forms, history, progress and one-off explanations.
type APIHandler struct {
	service *app.QuizService
}

func NewAPIHandler(service *app.QuizService) *APIHandler {
	return &APIHandler{service: service}
}

// Register mounts the API and websocket routes on mux.
func Register(mux *http.ServeMux, service *app.QuizService) {
	api := NewAPIHandler(service)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /api/curriculum", api.Curriculum)
	mux.HandleFunc("GET /api/history", api.History)
	mux.HandleFunc("GET /api/progress", api.Progress)
	mux.HandleFunc("POST /api/explanations", api.Explain)
	mux.HandleFunc("/ws", NewWSHandler(service).ServeWS)
}

type curriculumResponse struct {
	Subjects []curriculum.Subject `json:"subjects"`
	Limits   limitsResponse       `json:"maxQuestions"`
}

type limitsResponse struct {
	Student int `json:"student"`
	Teacher int `json:"teacher"`
}

func (h *APIHandler) Curriculum(w http.ResponseWriter, r *http.Request) {
	limits := h.service.Limits()
	writeJSON(w, http.StatusOK, curriculumResponse{
		Subjects: h.service.Catalog().All(),
		Limits:   limitsResponse{Student: limits.Student, Teacher: limits.Teacher},
	})
}

type historyResponse struct {
	UserID  string          `json:"userId"`
	Results []historyResult `json:"results"`
}

type historyResult struct {
	domain.Result
	Percentage int `json:"percentage"`
}

func (h *APIHandler) History(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, errBadPayload)
			return
		}
		limit = n
	}

	results, err := h.service.History(r.Context(), userID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	out := historyResponse{UserID: userID, Results: make([]historyResult, 0, len(results))}
	for _, res := range results {
		out.Results = append(out.Results, historyResult{Result: res, Percentage: res.Percentage()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *APIHandler) Progress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.service.Progress(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

type explanationResponse struct {
	Explanation string `json:"explanation"`
}

func (h *APIHandler) Explain(w http.ResponseWriter, r *http.Request) {
	var req domain.ExplanationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeError(w, errBadPayload)
		return
	}
	text, err := h.service.Explain(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, explanationResponse{Explanation: text})
}
