package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"citation/internal/audit"
	"citation/internal/platform/middleware"
	"citation/internal/transport/http/shared"
	dErrors "citation/pkg/domain-errors"
)

// Service defines the interface for audit log reads.
type Service interface {
	Query(ctx context.Context, filter audit.Filter) ([]audit.Entry, error)
}

// Handler serves the admin audit-log view.
type Handler struct {
	logger *slog.Logger
	audit  Service
}

func New(auditSvc Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, audit: auditSvc}
}

// Register mounts the audit routes. Role gating happens in the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/audit-log", h.handleQuery)
}

type entryResponse struct {
	Seq       int64  `json:"seq"`
	ActorID   string `json:"actorId"`
	ActorRole string `json:"actorRole"`
	Action    string `json:"action"`
	Details   string `json:"details,omitempty"`
	Timestamp string `json:"timestamp"`
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter := audit.Filter{ActorID: r.URL.Query().Get("actor")}
	if v := r.URL.Query().Get("since"); v != "" {
		since, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "since must be an integer"))
			return
		}
		filter.SinceSeq = since
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "limit must be an integer"))
			return
		}
		filter.Limit = limit
	}

	entries, err := h.audit.Query(ctx, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to query audit log",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	resp := make([]entryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, entryResponse{
			Seq:       entry.Seq,
			ActorID:   entry.ActorID,
			ActorRole: string(entry.ActorRole),
			Action:    string(entry.Action),
			Details:   entry.Details,
			Timestamp: entry.CreatedAt.Format(time.RFC3339),
		})
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"entries": resp})
}
