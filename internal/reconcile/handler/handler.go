package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	paymentmodels "citation/internal/payment/models"
	"citation/internal/platform/middleware"
	"citation/internal/transport/http/shared"
	"citation/pkg/domain"
	dErrors "citation/pkg/domain-errors"
)

// Service defines the admin reconciliation operations.
type Service interface {
	MarkPaymentCompleted(ctx context.Context, id domain.PaymentID, expected paymentmodels.Status) (*paymentmodels.Payment, error)
	VerifyDriver(ctx context.Context, id domain.DriverID) error
	AmendLicenseExpiry(ctx context.Context, id domain.DriverID, date string) (time.Time, error)
}

// Handler serves the admin reconciliation routes.
type Handler struct {
	logger    *slog.Logger
	reconcile Service
}

func New(reconcile Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, reconcile: reconcile}
}

// Register mounts the admin routes. Role gating happens in the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/payments/{paymentID}/complete", h.handleCompletePayment)
	r.Post("/drivers/{driverID}/verify", h.handleVerifyDriver)
	r.Post("/drivers/{driverID}/license-expiry", h.handleAmendLicenseExpiry)
}

type completeRequest struct {
	ExpectedStatus string `json:"expectedStatus"`
}

func (h *Handler) handleCompletePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := domain.ParsePaymentID(chi.URLParam(r, "paymentID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	// The body is optional: an absent expectedStatus means pending, the only
	// state an admin screen completes from.
	expected := paymentmodels.StatusPending
	body, err := io.ReadAll(r.Body)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	if len(bytes.TrimSpace(body)) > 0 {
		var req completeRequest
		if err := json.Unmarshal(body, &req); err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
			return
		}
		if req.ExpectedStatus != "" {
			expected, err = paymentmodels.ParseStatus(req.ExpectedStatus)
			if err != nil {
				shared.WriteError(w, err)
				return
			}
		}
	}

	payment, err := h.reconcile.MarkPaymentCompleted(ctx, id, expected)
	if err != nil {
		h.logger.WarnContext(ctx, "payment completion rejected",
			"request_id", middleware.GetRequestID(ctx),
			"payment_id", id.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": string(payment.Status)})
}

func (h *Handler) handleVerifyDriver(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := domain.ParseDriverID(chi.URLParam(r, "driverID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.reconcile.VerifyDriver(ctx, id); err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]bool{"verified": true})
}

type licenseExpiryRequest struct {
	Date string `json:"date"`
}

func (h *Handler) handleAmendLicenseExpiry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := domain.ParseDriverID(chi.URLParam(r, "driverID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req licenseExpiryRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}

	expiry, err := h.reconcile.AmendLicenseExpiry(ctx, id, req.Date)
	if err != nil {
		h.logger.WarnContext(ctx, "license expiry amendment rejected",
			"request_id", middleware.GetRequestID(ctx),
			"driver_id", id.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"date": expiry.Format(domain.DateLayout)})
}
