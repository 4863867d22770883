package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"

	"dictation/internal/audio"
	"dictation/internal/models"
	"dictation/internal/security"
	"dictation/internal/service"
	"dictation/internal/utils"
)

// Speaker reads text aloud in the browser's language
type Speaker interface {
	Speak(text, languageTag string, rate float64, voiceHint string)
}

// ReportSender mails progress summaries
type ReportSender interface {
	IsEnabled() bool
	SendProgressReport(ctx context.Context, toEmail string, summary models.ChildSummary) error
}

// DictationHandler serves the dictation practice JSON API
type DictationHandler struct {
	dictation  *service.DictationService
	speaker    Speaker
	reports    ReportSender
	speechRate float64
	audioURL   string
	debug      bool

	reportLimiter *security.RateLimiter
}

// NewDictationHandler creates a new dictation handler
func NewDictationHandler(dictation *service.DictationService, speaker Speaker, reports ReportSender, speechRate float64, debug bool) *DictationHandler {
	return &DictationHandler{
		dictation:  dictation,
		speaker:    speaker,
		reports:    reports,
		speechRate: audio.ClampRate(speechRate),
		audioURL:   "/static/audio/",
		debug:      debug,
	}
}

// LimitReports throttles report emails per client
func (h *DictationHandler) LimitReports(rl *security.RateLimiter) {
	h.reportLimiter = rl
}

// RegisterRoutes adds the API routes to mux
func (h *DictationHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/catalog", h.Catalog)
	mux.HandleFunc("GET /api/selection", h.GetSelection)
	mux.HandleFunc("PUT /api/selection", h.SaveSelection)
	mux.HandleFunc("GET /api/pool", h.GetPool)
	mux.HandleFunc("POST /api/pool", h.LoadPool)
	mux.HandleFunc("GET /api/session", h.GetSession)
	mux.HandleFunc("POST /api/session", h.StartSession)
	mux.HandleFunc("POST /api/session/answer", h.SubmitAnswer)
	mux.HandleFunc("POST /api/session/next", h.Advance)
	mux.HandleFunc("POST /api/speak", h.Speak)
	mux.HandleFunc("GET /api/summary", h.Summary)
	mux.HandleFunc("DELETE /api/records", h.ResetRecords)

	sendReport := h.SendReport
	if h.reportLimiter != nil {
		sendReport = h.reportLimiter.Limit(sendReport)
	}
	mux.HandleFunc("POST /api/report", sendReport)
}

type languageInfo struct {
	Code        string   `json:"code"`
	SpeechTag   string   `json:"speech_tag"`
	Reward      int      `json:"reward"`
	RewardLabel string   `json:"reward_label"`
	Grades      []string `json:"grades"`
}

type selectionRequest struct {
	Name     string `json:"name"`
	Language string `json:"lang"`
	Grade    string `json:"grade"`
	Count    int    `json:"count,omitempty"`
}

type poolResponse struct {
	Language string `json:"lang"`
	Grade    string `json:"grade"`
	Count    int    `json:"count"`
}

type sessionResponse struct {
	Session  models.SessionSnapshot `json:"session"`
	AudioURL string                 `json:"audio_url,omitempty"`
}

type answerRequest struct {
	Input string `json:"input"`
}

type advanceResponse struct {
	models.AdvanceResult
	AudioURL string `json:"audio_url,omitempty"`
}

type speakRequest struct {
	Voice string `json:"voice,omitempty"`
}

type reportRequest struct {
	Child string `json:"child"`
	Email string `json:"email"`
}

// Catalog lists languages with their grades and rewards
func (h *DictationHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	languages := make([]languageInfo, 0)
	for _, code := range h.dictation.Languages() {
		reward := h.dictation.Reward(code)
		languages = append(languages, languageInfo{
			Code:        code,
			SpeechTag:   h.dictation.SpeechTag(code),
			Reward:      reward,
			RewardLabel: service.FormatReward(reward),
			Grades:      h.dictation.Grades(code),
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"languages":     languages,
		"min_count":     models.MinSessionItems,
		"max_count":     models.MaxSessionItems,
		"speech_rate":   h.speechRate,
		"report_mailer": h.reports != nil && h.reports.IsEnabled(),
	})
}

// GetSelection returns the last saved selection, or null
func (h *DictationHandler) GetSelection(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"selection": h.dictation.LastSelection(r.Context()),
	})
}

// SaveSelection remembers the child name and selection
func (h *DictationHandler) SaveSelection(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}

	if strings.TrimSpace(req.Name) != "" {
		if err := utils.ValidateChildName(req.Name); err != nil {
			respondWithServiceError(w, "", err)
			return
		}
	}

	if err := h.dictation.SaveSelection(r.Context(), req.Name, req.Language, req.Grade); err != nil {
		respondWithServiceError(w, "Error saving selection", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"selection": h.dictation.LastSelection(r.Context()),
	})
}

// GetPool reports which pool is loaded
func (h *DictationHandler) GetPool(w http.ResponseWriter, r *http.Request) {
	items, language, grade := h.dictation.Pool()
	respondJSON(w, http.StatusOK, poolResponse{Language: language, Grade: grade, Count: len(items)})
}

// LoadPool fetches the items for a language and grade. An unknown grade
// falls back to the language's first grade.
func (h *DictationHandler) LoadPool(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}

	grade := h.dictation.ResolveGrade(req.Language, req.Grade)
	items, err := h.dictation.LoadPool(r.Context(), req.Language, grade)
	if err != nil {
		respondWithServiceError(w, "Error loading pool", err)
		return
	}

	respondJSON(w, http.StatusOK, poolResponse{Language: req.Language, Grade: grade, Count: len(items)})
}

// GetSession returns the live session
func (h *DictationHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, sessionResponse{Session: h.dictation.Session()})
}

// StartSession begins a session and reads the first item aloud
func (h *DictationHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}

	if err := utils.ValidateChildName(req.Name); err != nil {
		respondWithServiceError(w, "", err)
		return
	}

	grade := h.dictation.ResolveGrade(req.Language, req.Grade)
	snapshot, err := h.dictation.StartSession(r.Context(), req.Name, req.Language, grade, req.Count)
	if err != nil {
		respondWithServiceError(w, "Error starting session", err)
		return
	}

	if h.debug {
		log.Printf("[DEBUG] Session %s started: child=%s lang=%s grade=%s items=%d", snapshot.ID, snapshot.Child, snapshot.Language, snapshot.Grade, snapshot.TotalItems)
	}

	respondJSON(w, http.StatusCreated, sessionResponse{Session: snapshot, AudioURL: h.speakCurrent("")})
}

// SubmitAnswer grades the answer to the current question
func (h *DictationHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}

	result, err := h.dictation.SubmitAnswer(r.Context(), req.Input)
	if err != nil {
		respondWithServiceError(w, "Error submitting answer", err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Advance moves to the next question, reading it aloud
func (h *DictationHandler) Advance(w http.ResponseWriter, r *http.Request) {
	result, err := h.dictation.Advance()
	if err != nil {
		respondWithServiceError(w, "Error advancing session", err)
		return
	}

	resp := advanceResponse{AdvanceResult: result}
	if !result.Completed {
		resp.AudioURL = h.speakCurrent("")
	}
	respondJSON(w, http.StatusOK, resp)
}

// Speak reads the current prompt aloud again
func (h *DictationHandler) Speak(w http.ResponseWriter, r *http.Request) {
	var req speakRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondWithError(w, http.StatusBadRequest, ErrInvalidJSON, "", nil)
			return
		}
	}

	audioURL := h.speakCurrent(req.Voice)
	if audioURL == "" {
		respondWithError(w, http.StatusConflict, ErrNothingToSpeak, "", nil)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"audio_url": audioURL})
}

// Summary returns the progress summary for ?child=
func (h *DictationHandler) Summary(w http.ResponseWriter, r *http.Request) {
	child := r.URL.Query().Get("child")
	if err := utils.ValidateChildName(child); err != nil {
		respondWithServiceError(w, "", err)
		return
	}

	respondJSON(w, http.StatusOK, h.dictation.Summary(r.Context(), child))
}

// ResetRecords deletes all saved records
func (h *DictationHandler) ResetRecords(w http.ResponseWriter, r *http.Request) {
	if err := h.dictation.ResetRecords(r.Context()); err != nil {
		respondWithServiceError(w, "Error resetting records", err)
		return
	}

	log.Println("All dictation records cleared")
	w.WriteHeader(http.StatusNoContent)
}

// SendReport emails a child's summary
func (h *DictationHandler) SendReport(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil || !h.reports.IsEnabled() {
		respondWithError(w, http.StatusServiceUnavailable, "Report email is not configured", "", nil)
		return
	}

	var req reportRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}
	if err := utils.ValidateChildName(req.Child); err != nil {
		respondWithServiceError(w, "", err)
		return
	}
	if err := utils.ValidateEmail(req.Email); err != nil {
		respondWithServiceError(w, "", err)
		return
	}

	summary := h.dictation.Summary(r.Context(), req.Child)
	if err := h.reports.SendProgressReport(r.Context(), strings.TrimSpace(req.Email), summary); err != nil {
		respondWithError(w, http.StatusBadGateway, "Failed to send report", "Error sending report", err)
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

// speakCurrent starts speech for the current prompt and returns the URL the
// clip will be served from, or "" when there is nothing to read.
func (h *DictationHandler) speakCurrent(voiceHint string) string {
	text, language, ok := h.dictation.CurrentPrompt()
	if !ok || h.speaker == nil {
		return ""
	}

	tag := h.dictation.SpeechTag(language)
	h.speaker.Speak(text, tag, h.speechRate, voiceHint)
	return h.audioURL + audio.ClipFilename(text, tag, h.speechRate, voiceHint)
}
