// Package http exposes the REST and websocket API.
package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"quizlytic-service/internal/app"
	"quizlytic-service/internal/domain"
)

const maxUploadBytes = 10 << 20

// Handlers bundles the services behind the REST surface.
type Handlers struct {
	auth      *app.AuthService
	authoring *app.AuthoringService
	settings  *app.SettingsService
	attempts  *app.AttemptService
	history   *app.HistoryService
}

func NewHandlers(
	auth *app.AuthService,
	authoring *app.AuthoringService,
	settings *app.SettingsService,
	attempts *app.AttemptService,
	history *app.HistoryService,
) *Handlers {
	return &Handlers{
		auth:      auth,
		authoring: authoring,
		settings:  settings,
		attempts:  attempts,
		history:   history,
	}
}

// Register mounts every route on the mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/signup", h.handleSignUp)
	mux.HandleFunc("POST /api/auth/signin", h.handleSignIn)
	mux.HandleFunc("GET /api/auth/me", requireAuth(h.auth, h.handleMe))

	mux.HandleFunc("GET /api/quizzes", requireAuth(h.auth, h.handleListQuizzes))
	mux.HandleFunc("POST /api/quizzes", requireAuth(h.auth, h.handleCreateQuiz))
	mux.HandleFunc("GET /api/quizzes/{id}", requireAuth(h.auth, h.handleGetQuiz))
	mux.HandleFunc("PUT /api/quizzes/{id}", requireAuth(h.auth, h.handleUpdateQuiz))
	mux.HandleFunc("DELETE /api/quizzes/{id}", requireAuth(h.auth, h.handleDeleteQuiz))

	mux.HandleFunc("GET /api/quizzes/{id}/settings", requireAuth(h.auth, h.handleGetSettings))
	mux.HandleFunc("PUT /api/quizzes/{id}/settings", requireAuth(h.auth, h.handleSaveSettings))

	mux.HandleFunc("GET /api/quizzes/{id}/history", requireAuth(h.auth, h.handleHistory))
	mux.HandleFunc("GET /api/quizzes/{id}/history/export.csv", requireAuth(h.auth, h.handleExportCSV))
	mux.HandleFunc("GET /api/quizzes/{id}/leaderboard", requireAuth(h.auth, h.handleOwnerLeaderboard))
	mux.HandleFunc("DELETE /api/quizzes/{id}/leaderboard", requireAuth(h.auth, h.handleClearLeaderboard))
	mux.HandleFunc("DELETE /api/quizzes/{id}/attempts/{attemptID}", requireAuth(h.auth, h.handleDeleteAttempt))
	mux.HandleFunc("GET /api/quizzes/{id}/participants/{name}/attempts", requireAuth(h.auth, h.handleParticipantAttempts))
	mux.HandleFunc("DELETE /api/quizzes/{id}/participants/{name}/attempts", requireAuth(h.auth, h.handleDeleteParticipantAttempts))

	mux.HandleFunc("POST /api/generate", requireAuth(h.auth, h.handleGenerate))
	mux.HandleFunc("POST /api/extract", requireAuth(h.auth, h.handleExtract))

	mux.HandleFunc("GET /api/share/{token}", h.handleStartAttempt)
	mux.HandleFunc("POST /api/share/{token}", h.handleSubmitAttempt)
	mux.HandleFunc("GET /api/share/{token}/leaderboard", h.handleShareLeaderboard)
}

func (h *Handlers) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decode(w, r, &req) {
		return
	}
	user, token, err := h.auth.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": user, "token": token})
}

func (h *Handlers) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decode(w, r, &req) {
		return
	}
	user, token, err := h.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user, "token": token})
}

func (h *Handlers) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentUser(r))
}

func (h *Handlers) handleListQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.authoring.ListQuizzes(r.Context(), currentUser(r).ID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if quizzes == nil {
		quizzes = []domain.Quiz{}
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (h *Handlers) handleCreateQuiz(w http.ResponseWriter, r *http.Request) {
	var draft domain.QuizDraft
	if !decode(w, r, &draft) {
		return
	}
	quiz, err := h.authoring.CreateQuiz(r.Context(), currentUser(r).ID, draft)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, quiz)
}

func (h *Handlers) handleGetQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, draft, err := h.authoring.QuizForEdit(r.Context(), currentUser(r).ID, r.PathValue("id"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quiz": quiz, "draft": draft})
}

func (h *Handlers) handleUpdateQuiz(w http.ResponseWriter, r *http.Request) {
	var draft domain.QuizDraft
	if !decode(w, r, &draft) {
		return
	}
	if err := h.authoring.UpdateQuiz(r.Context(), currentUser(r).ID, r.PathValue("id"), draft); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) handleDeleteQuiz(w http.ResponseWriter, r *http.Request) {
	if err := h.authoring.DeleteQuiz(r.Context(), currentUser(r).ID, r.PathValue("id")); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.Load(r.Context(), currentUser(r).ID, r.PathValue("id"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *Handlers) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var settings domain.QuizSettings
	if !decode(w, r, &settings) {
		return
	}
	stored, err := h.settings.Save(r.Context(), currentUser(r).ID, r.PathValue("id"), settings)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

func (h *Handlers) handleHistory(w http.ResponseWriter, r *http.Request) {
	page, err := h.history.History(r.Context(), currentUser(r).ID, r.PathValue("id"), app.HistoryQuery{
		Filter: r.URL.Query().Get("search"),
		Sort:   r.URL.Query().Get("sort"),
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handlers) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	csv, err := h.history.ExportCSV(r.Context(), currentUser(r).ID, r.PathValue("id"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	if csv == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="quiz-history.csv"`)
	_, _ = io.WriteString(w, csv)
}

func (h *Handlers) handleOwnerLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.history.Leaderboard(r.Context(), currentUser(r).ID, r.PathValue("id"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	if entries == nil {
		entries = []domain.LeaderboardEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handlers) handleClearLeaderboard(w http.ResponseWriter, r *http.Request) {
	if err := h.history.ClearLeaderboard(r.Context(), currentUser(r).ID, r.PathValue("id")); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) handleDeleteAttempt(w http.ResponseWriter, r *http.Request) {
	err := h.history.DeleteAttempt(r.Context(), currentUser(r).ID, r.PathValue("id"), r.PathValue("attemptID"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) handleParticipantAttempts(w http.ResponseWriter, r *http.Request) {
	views, err := h.history.ParticipantAttempts(r.Context(), currentUser(r).ID, r.PathValue("id"), r.PathValue("name"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	if views == nil {
		views = []app.AttemptView{}
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handlers) handleDeleteParticipantAttempts(w http.ResponseWriter, r *http.Request) {
	err := h.history.DeleteParticipantAttempts(r.Context(), currentUser(r).ID, r.PathValue("id"), r.PathValue("name"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req domain.GenerationRequest
	if !decode(w, r, &req) {
		return
	}
	draft, err := h.authoring.Generate(r.Context(), req)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (h *Handlers) handleExtract(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}
	file, header, err := r.FormFile("document")
	if err != nil {
		writeError(w, http.StatusBadRequest, "document file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read upload")
		return
	}
	draft, err := h.authoring.Extract(r.Context(), domain.ExtractSource{
		Filename: header.Filename,
		MIME:     header.Header.Get("Content-Type"),
		Data:     data,
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (h *Handlers) handleStartAttempt(w http.ResponseWriter, r *http.Request) {
	start, err := h.attempts.StartAttempt(r.Context(), r.PathValue("token"), r.URL.Query().Get("name"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, start)
}

func (h *Handlers) handleSubmitAttempt(w http.ResponseWriter, r *http.Request) {
	var sub app.AttemptSubmission
	if !decode(w, r, &sub) {
		return
	}
	result, err := h.attempts.SubmitAttempt(r.Context(), r.PathValue("token"), sub)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *Handlers) handleShareLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.attempts.Leaderboard(r.Context(), r.PathValue("token"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	if entries == nil {
		entries = []domain.LeaderboardEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeAppError maps service errors onto HTTP statuses.
func writeAppError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	var ierr domain.InputError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.As(err, &ierr):
		writeError(w, http.StatusBadRequest, ierr.Error())
	case errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrAttemptNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrNotQuizOwner):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrEmailTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrSharingDisabled):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrRetryLimitReached),
		errors.Is(err, domain.ErrTimeLimitExceeded):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidAIResponse):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
