package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"antrean/queue-service/internal/cache"
	"antrean/queue-service/internal/models"
	"antrean/queue-service/internal/store"
)

const (
	scopeCounters = "counters"
	scopeQueues   = "queues"
)

type Handler struct {
	store store.Store
	cache cache.Invalidator
}

func NewHandler(store store.Store, invalidator cache.Invalidator) *Handler {
	return &Handler{store: store, cache: invalidator}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/api/v1/counters", h.handleCounters)
	mux.HandleFunc("/api/v1/counters/current", h.handleCurrentCounters)
	mux.HandleFunc("/api/v1/counters/reset", h.handleResetCounters)
	mux.HandleFunc("/api/v1/counters/", h.handleCounter)
	mux.HandleFunc("/api/v1/queues", h.handleQueues)
	mux.HandleFunc("/api/v1/queues/claim", h.handleClaim)
	mux.HandleFunc("/api/v1/queues/metrics", h.handleMetrics)
	mux.HandleFunc("/api/v1/queues/release/", h.handleRelease)
	mux.HandleFunc("/api/v1/queues/next/", h.handleCallNext)
	mux.HandleFunc("/api/v1/queues/skip/", h.handleSkip)
	mux.HandleFunc("/api/v1/queues/", h.handleQueue)
	return mux
}

type response struct {
	Status     bool              `json:"status"`
	Message    string            `json:"message"`
	Data       interface{}       `json:"data"`
	Pagination *store.Pagination `json:"pagination,omitempty"`
}

type createCounterRequest struct {
	Name     string `json:"name"`
	MaxQueue int    `json:"max_queue"`
}

type updateCounterRequest struct {
	Name     *string `json:"name"`
	MaxQueue *int    `json:"max_queue"`
}

type counterStatusRequest struct {
	Status string `json:"status"`
}

type createQueueRequest struct {
	CounterID int64 `json:"counter_id"`
}

type queueStatusRequest struct {
	Status string `json:"status"`
}

type resetRequest struct {
	CounterID *int64 `json:"counter_id"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleCounters(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		page, limit, ok := pageParams(w, r)
		if !ok {
			return
		}
		counters, pagination, err := h.store.ListCounters(r.Context(), page, limit)
		if err != nil {
			status, msg := mapError(err)
			writeError(w, status, msg)
			return
		}
		writePage(w, "Counters retrieved successfully", counters, pagination)
	case http.MethodPost:
		var req createCounterRequest
		if !decodeRequest(w, r, &req) {
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}
		if req.MaxQueue <= 0 {
			writeError(w, http.StatusBadRequest, "max_queue must be a positive integer")
			return
		}
		counter, err := h.store.CreateCounter(r.Context(), store.CreateCounterInput{
			Name:     req.Name,
			MaxQueue: req.MaxQueue,
		})
		if err != nil {
			status, msg := mapError(err)
			writeError(w, status, msg)
			return
		}
		h.invalidate(r.Context(), scopeCounters)
		writeJSON(w, http.StatusCreated, response{Status: true, Message: "Counter created successfully", Data: counter})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleCurrentCounters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	counters, err := h.store.CurrentCounters(r.Context())
	if err != nil {
		status, msg := mapError(err)
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, response{Status: true, Message: "Current counter status retrieved successfully", Data: counters})
}

func (h *Handler) handleResetCounters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req resetRequest
	if r.ContentLength != 0 && !decodeRequest(w, r, &req) {
		return
	}
	if req.CounterID != nil && *req.CounterID <= 0 {
		writeError(w, http.StatusBadRequest, "counter_id must be a positive integer")
		return
	}
	if err := h.store.ResetCounters(r.Context(), req.CounterID); err != nil {
		status, msg := mapError(err)
		writeError(w, status, msg)
		return
	}
	h.invalidate(r.Context(), scopeCounters, scopeQueues)
	message := "All active counters have been reset"
	if req.CounterID != nil {
		message = "Counter " + strconv.FormatInt(*req.CounterID, 10) + " has been reset"
	}
	writeJSON(w, http.StatusOK, response{Status: true, Message: message})
}

func (h *Handler) handleCounter(w http.ResponseWriter, r *http.Request) {
	id, action, ok := parseResourcePath(w, r, "/api/v1/counters/")
	if !ok {
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		counter, err := h.store.GetCounter(r.Context(), id)
		if err != nil {
			status, msg := mapError(err)
			writeError(w, status, msg)
			return
		}
		writeJSON(w, http.StatusOK, response{Status: true, Message: "Counter retrieved successfully", Data: counter})
	case action == "" && r.Method == http.MethodPut:
		var req updateCounterRequest
		if !decodeRequest(w, r, &req) {
			return
		}
		if req.Name == nil && req.MaxQueue == nil {
			writeError(w, http.StatusBadRequest, "at least one of name or max_queue is required")
			return
		}
		if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
			writeError(w, http.StatusBadRequest, "name must not be empty")
			return
		}
		if req.MaxQueue != nil && *req.MaxQueue <= 0 {
			writeError(w, http.StatusBadRequest, "max_queue must be a positive integer")
			return
		}
		counter, err := h.store.UpdateCounter(r.Context(), store.UpdateCounterInput{
			ID:       id,
			Name:     req.Name,
			MaxQueue: req.MaxQueue,
		})
		if err != nil {
			status, msg := mapError(err)
			writeError(w, status, msg)
			return
		}
		h.invalidate(r.Context(), scopeCounters)
		writeJSON(w, http.StatusOK, response{Status: true, Message: "Counter updated successfully", Data: counter})
	case action == "" && r.Method == http.MethodDelete:
		if err := h.store.DeleteCounter(r.Context(), id); err != nil {
			status, msg := mapError(err)
			writeError(w, status, msg)
			return
		}
		h.invalidate(r.Context(), scopeCounters)
		writeJSON(w, http.StatusOK, response{Status: true, Message: "Counter deleted successfully"})
	case action == "status" && r.Method == http.MethodPatch:
		var req counterStatusRequest
		if !decodeRequest(w, r, &req) {
			return
		}
		status := store.CounterStatusValue(strings.TrimSpace(req.Status))
		if status != store.CounterActive && status != store.CounterInactive && status != store.CounterDisable {
			writeError(w, http.StatusBadRequest, "status must be one of active, inactive, disable")
			return
		}
		if err := h.store.SetCounterStatus(r.Context(), id, status); err != nil {
			code, msg := mapError(err)
			writeError(w, code, msg)
			return
		}
		h.invalidate(r.Context(), scopeCounters)
		writeJSON(w, http.StatusOK, response{Status: true, Message: "Counter status updated to " + string(status)})
	case action == "next" && r.Method == http.MethodPost:
		ticket, found, err := h.store.AdvanceTicket(r.Context(), id)
		if err != nil {
			status, msg := mapError(err)
			writeError(w, status, msg)
			return
		}
		if !found {
			writeJSON(w, http.StatusOK, response{Status: true, Message: "No waiting queue found for this counter"})
			return
		}
		h.invalidate(r.Context(), scopeQueues)
		writeJSON(w, http.StatusOK, response{Status: true, Message: "Next queue is now processing", Data: ticket})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleQueues(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		page, limit, ok := pageParams(w, r)
		if !ok {
			return
		}
		var counterID *int64
		if raw := strings.TrimSpace(r.URL.Query().Get("counter_id")); raw != "" {
			parsed, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || parsed <= 0 {
				writeError(w, http.StatusBadRequest, "counter_id must be a positive integer")
				return
			}
			counterID = &parsed
		}
		tickets, pagination, err := h.store.ListTickets(r.Context(), page, limit, counterID)
		if err != nil {
			status, msg := mapError(err)
			writeError(w, status, msg)
			return
		}
		writePage(w, "Queues retrieved successfully", tickets, pagination)
	case http.MethodPost:
		var req createQueueRequest
		if !decodeRequest(w, r, &req) {
			return
		}
		if req.CounterID <= 0 {
			writeError(w, http.StatusBadRequest, "counter_id must be a positive integer")
			return
		}
		ticket, err := h.store.IssueTicket(r.Context(), req.CounterID)
		if err != nil {
			status, msg := mapError(err)
			writeError(w, status, msg)
			return
		}
		h.invalidate(r.Context(), scopeCounters, scopeQueues)
		writeJSON(w, http.StatusCreated, response{Status: true, Message: "Queue created successfully", Data: ticket})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleClaim(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ticket, err := h.store.ClaimTicket(r.Context())
	if err != nil {
		status, msg := mapError(err)
		writeError(w, status, msg)
		return
	}
	h.invalidate(r.Context(), scopeCounters, scopeQueues)
	writeJSON(w, http.StatusCreated, response{Status: true, Message: "Queue claimed successfully", Data: ticket})
}

func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	counts, err := h.store.CountTicketsByStatus(r.Context())
	if err != nil {
		status, msg := mapError(err)
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, response{Status: true, Message: "Queue metrics retrieved successfully", Data: counts})
}

func (h *Handler) handleRelease(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id, ok := parseIDPath(w, r, "/api/v1/queues/release/")
	if !ok {
		return
	}
	ticket, err := h.store.ReleaseTicket(r.Context(), id)
	if err != nil {
		status, msg := mapError(err)
		writeError(w, status, msg)
		return
	}
	h.invalidate(r.Context(), scopeQueues)
	writeJSON(w, http.StatusOK, response{Status: true, Message: "Queue released successfully", Data: ticket})
}

func (h *Handler) handleCallNext(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	counterID, ok := parseIDPath(w, r, "/api/v1/queues/next/")
	if !ok {
		return
	}
	ticket, found, err := h.store.CallNext(r.Context(), counterID)
	if err != nil {
		status, msg := mapError(err)
		writeError(w, status, msg)
		return
	}
	if !found {
		writeJSON(w, http.StatusOK, response{Status: true, Message: "No waiting queue found for this counter"})
		return
	}
	h.invalidate(r.Context(), scopeQueues)
	writeJSON(w, http.StatusOK, response{Status: true, Message: "Next queue is now called", Data: ticket})
}

func (h *Handler) handleSkip(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	counterID, ok := parseIDPath(w, r, "/api/v1/queues/skip/")
	if !ok {
		return
	}
	ticket, found, err := h.store.SkipCurrent(r.Context(), counterID)
	if err != nil {
		status, msg := mapError(err)
		writeError(w, status, msg)
		return
	}
	h.invalidate(r.Context(), scopeQueues)
	if !found {
		writeJSON(w, http.StatusOK, response{Status: true, Message: "Queue skipped, no waiting queue to call"})
		return
	}
	writeJSON(w, http.StatusOK, response{Status: true, Message: "Queue skipped, next queue is now called", Data: ticket})
}

func (h *Handler) handleQueue(w http.ResponseWriter, r *http.Request) {
	id, action, ok := parseResourcePath(w, r, "/api/v1/queues/")
	if !ok {
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		ticket, err := h.store.GetTicket(r.Context(), id)
		if err != nil {
			status, msg := mapError(err)
			writeError(w, status, msg)
			return
		}
		writeJSON(w, http.StatusOK, response{Status: true, Message: "Queue retrieved successfully", Data: ticket})
	case action == "" && r.Method == http.MethodDelete:
		if err := h.store.DeleteTicket(r.Context(), id); err != nil {
			status, msg := mapError(err)
			writeError(w, status, msg)
			return
		}
		h.invalidate(r.Context(), scopeQueues)
		writeJSON(w, http.StatusOK, response{Status: true, Message: "Queue deleted permanently"})
	case action == "status" && r.Method == http.MethodPatch:
		var req queueStatusRequest
		if !decodeRequest(w, r, &req) {
			return
		}
		status := models.Status(strings.TrimSpace(req.Status))
		if !store.ValidStatus(status) {
			writeError(w, http.StatusBadRequest, "unknown status value")
			return
		}
		ticket, err := h.store.UpdateTicketStatus(r.Context(), id, status)
		if err != nil {
			code, msg := mapError(err)
			writeError(w, code, msg)
			return
		}
		h.invalidate(r.Context(), scopeQueues)
		writeJSON(w, http.StatusOK, response{Status: true, Message: "Queue status updated to " + string(status), Data: ticket})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) invalidate(ctx context.Context, scopes ...string) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Invalidate(ctx, scopes...); err != nil {
		log.Printf("cache invalidate error: %v", err)
	}
}

func pageParams(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	page := 1
	limit := 10
	if raw := strings.TrimSpace(r.URL.Query().Get("page")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "page must be a positive integer")
			return 0, 0, false
		}
		page = parsed
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return 0, 0, false
		}
		limit = parsed
	}
	return page, limit, true
}

// parseResourcePath splits "<prefix><id>" and "<prefix><id>/<action>".
func parseResourcePath(w http.ResponseWriter, r *http.Request, prefix string) (int64, string, bool) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || len(parts) > 2 {
		w.WriteHeader(http.StatusNotFound)
		return 0, "", false
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "id must be a positive integer")
		return 0, "", false
	}
	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}
	return id, action, true
}

func parseIDPath(w http.ResponseWriter, r *http.Request, prefix string) (int64, bool) {
	raw := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func decodeRequest(w http.ResponseWriter, r *http.Request, target interface{}) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return false
	}
	return true
}

func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, store.ErrCounterNotFound):
		return http.StatusNotFound, "counter not found"
	case errors.Is(err, store.ErrTicketNotFound):
		return http.StatusNotFound, "queue not found"
	case errors.Is(err, store.ErrCounterFull):
		return http.StatusTooManyRequests, "counter queue is full"
	case errors.Is(err, store.ErrInvalidTransition):
		return http.StatusConflict, "status transition not allowed"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func writePage(w http.ResponseWriter, message string, data interface{}, pagination store.Pagination) {
	writeJSON(w, http.StatusOK, response{
		Status:     true,
		Message:    message,
		Data:       data,
		Pagination: &pagination,
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, response{Status: false, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
