package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"citation/internal/payment/models"
	"citation/internal/platform/middleware"
	"citation/internal/transport/http/shared"
	"citation/pkg/domain"
	dErrors "citation/pkg/domain-errors"
	"citation/pkg/requestcontext"
)

// Service defines the payment operations the handler needs.
type Service interface {
	SettlePenalties(ctx context.Context, driverID domain.DriverID, attempts []models.SettlementAttempt) (*models.SettlementResult, error)
	List(ctx context.Context) ([]*models.Payment, error)
}

// Handler serves driver settlement and the admin payment list.
type Handler struct {
	logger   *slog.Logger
	payments Service
}

func New(payments Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, payments: payments}
}

// RegisterDriver mounts the driver-facing settlement route.
func (h *Handler) RegisterDriver(r chi.Router) {
	r.Post("/payments/settle", h.handleSettle)
}

// RegisterAdmin mounts the admin payment list.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/payments", h.handleList)
}

type attemptRequest struct {
	PenaltyRef           string `json:"penaltyRef"`
	Method               string `json:"method"`
	ReferenceAttestation string `json:"referenceAttestation"`
	Amount               int64  `json:"amount"`
}

type settleRequest struct {
	DriverID string           `json:"driverId"`
	Attempts []attemptRequest `json:"attempts"`
}

type paymentResponse struct {
	ID                   string `json:"id"`
	PenaltyID            string `json:"penaltyId"`
	DriverID             string `json:"driverId"`
	Amount               int64  `json:"amount"`
	Method               string `json:"method"`
	ReferenceAttestation string `json:"referenceAttestation"`
	Status               string `json:"status"`
	CreatedAt            string `json:"createdAt"`
}

type failedResponse struct {
	PenaltyRef string `json:"penaltyRef"`
	Reason     string `json:"reason"`
	Message    string `json:"message,omitempty"`
}

func (h *Handler) handleSettle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor := requestcontext.Actor(ctx)
	driverID, err := domain.ParseDriverID(actor.ID)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeForbidden, "token actor is not a driver account"))
		return
	}

	var req settleRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}

	// The body's driverId is advisory; the token actor decides who pays.
	if req.DriverID != "" && req.DriverID != driverID.String() {
		shared.WriteError(w, dErrors.New(dErrors.CodeForbidden, "driver id does not match the authenticated driver"))
		return
	}

	attempts := make([]models.SettlementAttempt, 0, len(req.Attempts))
	for _, a := range req.Attempts {
		attempts = append(attempts, models.SettlementAttempt{
			PenaltyRef:           a.PenaltyRef,
			Method:               a.Method,
			ReferenceAttestation: a.ReferenceAttestation,
			Amount:               a.Amount,
		})
	}

	result, err := h.payments.SettlePenalties(ctx, driverID, attempts)
	if err != nil {
		h.logger.ErrorContext(ctx, "settlement batch rejected",
			"request_id", middleware.GetRequestID(ctx),
			"driver_id", driverID.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	succeeded := make([]paymentResponse, 0, len(result.Succeeded))
	for _, p := range result.Succeeded {
		succeeded = append(succeeded, toPaymentResponse(p))
	}
	failed := make([]failedResponse, 0, len(result.Failed))
	for _, f := range result.Failed {
		failed = append(failed, failedResponse{
			PenaltyRef: f.PenaltyRef,
			Reason:     f.Reason,
			Message:    f.Message,
		})
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"succeeded": succeeded,
		"failed":    failed,
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	payments, err := h.payments.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list payments",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	resp := make([]paymentResponse, 0, len(payments))
	for _, p := range payments {
		resp = append(resp, toPaymentResponse(p))
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"payments": resp})
}

func toPaymentResponse(p *models.Payment) paymentResponse {
	return paymentResponse{
		ID:                   p.ID.String(),
		PenaltyID:            p.PenaltyID.String(),
		DriverID:             p.DriverID.String(),
		Amount:               p.Amount,
		Method:               p.Method,
		ReferenceAttestation: p.ReferenceAttestation,
		Status:               string(p.Status),
		CreatedAt:            p.CreatedAt.Format(time.RFC3339),
	}
}
