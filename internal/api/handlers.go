package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/EngOREOO/whats-app-front/internal/dispatch"
	"github.com/EngOREOO/whats-app-front/internal/model"
	"github.com/EngOREOO/whats-app-front/internal/registry"
	"github.com/EngOREOO/whats-app-front/internal/repo"
	"github.com/EngOREOO/whats-app-front/internal/session"
	"github.com/EngOREOO/whats-app-front/internal/validate"
)

type Handler struct {
	sessions     *session.Registry
	jobs         *registry.Registry
	disp         *dispatch.Dispatcher
	sender       dispatch.Sender
	monitor      *session.Monitor
	deliveries   repo.DeliveryRepository
	defaultDelay model.DelayRange
}

// NewHandler wires the HTTP surface. deliveries may be nil when the archive
// is disabled; every other dependency is required.
func NewHandler(
	sessions *session.Registry,
	jobs *registry.Registry,
	disp *dispatch.Dispatcher,
	sender dispatch.Sender,
	monitor *session.Monitor,
	deliveries repo.DeliveryRepository,
	defaultDelay model.DelayRange,
) *Handler {
	return &Handler{
		sessions:     sessions,
		jobs:         jobs,
		disp:         disp,
		sender:       sender,
		monitor:      monitor,
		deliveries:   deliveries,
		defaultDelay: defaultDelay,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]any{"ok": true})
}

type createSessionRequest struct {
	Name string `json:"name"`
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s := h.sessions.Create(req.Name)
	writeData(w, http.StatusCreated, s)
}

func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, h.sessions.List())
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessions.Get(r.PathValue("sessionId"))
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	writeData(w, http.StatusOK, s)
}

func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.Delete(r.PathValue("sessionId")) {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	writeData(w, http.StatusOK, map[string]any{"deleted": true})
}

type sendTextRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Message     string `json:"message"`
}

// SendText delivers a single message synchronously; the caller gets the
// gateway outcome in the response.
func (h *Handler) SendText(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionId")

	if !h.sessions.Exists(sessionID) {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	if !h.sessions.Ready(sessionID) {
		writeError(w, http.StatusConflict, "Session not ready")
		return
	}

	var req sendTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PhoneNumber == "" {
		writeError(w, http.StatusBadRequest, "phoneNumber is required")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	msgID, err := h.sender.SendText(r.Context(), sessionID, req.PhoneNumber, req.Message)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeData(w, http.StatusOK, map[string]any{"messageId": msgID})
}

type bulkRequest struct {
	Message    string            `json:"message"`
	Data       any               `json:"data"`
	DelayRange *model.DelayRange `json:"delayRange"`
}

type bulkResponse struct {
	JobID             string `json:"jobId"`
	TotalNumbers      int    `json:"totalNumbers"`
	Message           string `json:"message"`
	EstimatedDuration int    `json:"estimatedDuration"`
}

// SendPersonalizedBulkText validates a template/data pair, creates a job and
// starts its dispatch task. The response returns as soon as the job exists;
// progress is observable only via the bulk-jobs endpoints.
func (h *Handler) SendPersonalizedBulkText(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionId")

	if !h.sessions.Exists(sessionID) {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	if !h.sessions.Ready(sessionID) {
		writeError(w, http.StatusConflict, "Session not ready")
		return
	}

	var req bulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	delay := h.defaultDelay
	if req.DelayRange != nil {
		if err := req.DelayRange.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		delay = *req.DelayRange
	}

	records, err := validate.Records(req.Message, req.Data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	job := h.jobs.Create(len(records), delay)
	h.disp.Start(sessionID, job, req.Message, records)

	writeData(w, http.StatusOK, bulkResponse{
		JobID:             job.ID,
		TotalNumbers:      job.Total,
		Message:           "Bulk message sending started",
		EstimatedDuration: delay.EstimateSeconds(job.Total),
	})
}

func (h *Handler) GetBulkJob(w http.ResponseWriter, r *http.Request) {
	job, ok := h.jobs.Get(r.PathValue("jobId"))
	if !ok {
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}
	writeData(w, http.StatusOK, job)
}

func (h *Handler) ListBulkJobs(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, h.jobs.List())
}

func (h *Handler) MonitorStatus(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]any{"running": h.monitor.IsRunning()})
}

func (h *Handler) MonitorStart(w http.ResponseWriter, r *http.Request) {
	h.monitor.Start()
	writeData(w, http.StatusOK, map[string]any{"running": h.monitor.IsRunning()})
}

func (h *Handler) MonitorStop(w http.ResponseWriter, r *http.Request) {
	h.monitor.Stop()
	writeData(w, http.StatusOK, map[string]any{"running": h.monitor.IsRunning()})
}

func (h *Handler) ListSentDeliveries(w http.ResponseWriter, r *http.Request) {
	if h.deliveries == nil {
		writeError(w, http.StatusServiceUnavailable, "message history is not enabled")
		return
	}

	limit := parseInt(r.URL.Query().Get("limit"), 50)
	offset := parseInt(r.URL.Query().Get("offset"), 0)

	items, err := h.deliveries.ListSent(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeData(w, http.StatusOK, map[string]any{"items": items})
}

func parseInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeData(w http.ResponseWriter, status int, v any) {
	writeJSON(w, status, envelope{Success: true, Data: v})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: false, Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
