package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	drivermodels "citation/internal/driver/models"
	paymentmodels "citation/internal/payment/models"
	"citation/internal/platform/middleware"
	ticketmodels "citation/internal/ticket/models"
	"citation/internal/transport/http/shared"
	"citation/pkg/domain"
	dErrors "citation/pkg/domain-errors"
	"citation/pkg/requestcontext"
)

// Service defines the driver directory operations the handler needs.
type Service interface {
	Register(ctx context.Context, in drivermodels.RegisterInput) (*drivermodels.Driver, error)
	Get(ctx context.Context, id domain.DriverID) (*drivermodels.Driver, error)
	List(ctx context.Context) ([]*drivermodels.Driver, error)
}

// PenaltySource provides the driver's penalty view.
type PenaltySource interface {
	PenaltiesByDriver(ctx context.Context, driverID domain.DriverID) ([]ticketmodels.DriverPenalty, error)
}

// PaymentSource provides the driver's payment history.
type PaymentSource interface {
	HistoryByDriver(ctx context.Context, driverID domain.DriverID) ([]*paymentmodels.Payment, error)
}

// Handler serves driver directory routes.
type Handler struct {
	logger    *slog.Logger
	drivers   Service
	penalties PenaltySource
	payments  PaymentSource
}

func New(drivers Service, penalties PenaltySource, payments PaymentSource, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, drivers: drivers, penalties: penalties, payments: payments}
}

// RegisterAdmin mounts the admin-only directory routes.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/drivers", h.handleRegister)
	r.Get("/drivers", h.handleList)
}

// RegisterSelf mounts routes a driver may call for their own account; admins
// may call them for any driver.
func (h *Handler) RegisterSelf(r chi.Router) {
	r.Get("/drivers/{driverID}", h.handleGet)
	r.Get("/drivers/{driverID}/penalties", h.handlePenalties)
	r.Get("/drivers/{driverID}/dashboard", h.handleDashboard)
}

type registerRequest struct {
	FullName      string `json:"fullName"`
	LicenseNumber string `json:"licenseNumber"`
	Birthday      string `json:"birthday,omitempty"`
	Email         string `json:"email"`
	PhoneNumber   string `json:"phoneNumber,omitempty"`
}

type driverResponse struct {
	ID            string `json:"id"`
	FullName      string `json:"fullName"`
	LicenseNumber string `json:"licenseNumber"`
	LicenseStatus string `json:"licenseStatus"`
	LicenseExpiry string `json:"licenseExpiry,omitempty"`
	Birthday      string `json:"birthday,omitempty"`
	Email         string `json:"email"`
	PhoneNumber   string `json:"phoneNumber,omitempty"`
	Verified      bool   `json:"verified"`
	CreatedAt     string `json:"createdAt"`
}

type penaltyResponse struct {
	PenaltyID     string `json:"penaltyId"`
	TicketID      int64  `json:"ticketId"`
	ViolationType string `json:"violationType"`
	Fee           int64  `json:"fee"`
	Paid          bool   `json:"paid"`
	IssuedAt      string `json:"issuedAt"`
}

type paymentResponse struct {
	ID        string `json:"id"`
	PenaltyID string `json:"penaltyId"`
	Amount    int64  `json:"amount"`
	Method    string `json:"method"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}

	driver, err := h.drivers.Register(ctx, drivermodels.RegisterInput{
		FullName:      req.FullName,
		LicenseNumber: req.LicenseNumber,
		Birthday:      req.Birthday,
		Email:         req.Email,
		PhoneNumber:   req.PhoneNumber,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to register driver",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "driver registered",
		"request_id", middleware.GetRequestID(ctx),
		"driver_id", driver.ID.String(),
	)
	shared.WriteJSON(w, http.StatusCreated, toDriverResponse(driver))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	drivers, err := h.drivers.List(ctx)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	resp := make([]driverResponse, 0, len(drivers))
	for _, driver := range drivers {
		resp = append(resp, toDriverResponse(driver))
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"drivers": resp})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.authorizedDriverID(w, r)
	if !ok {
		return
	}

	driver, err := h.drivers.Get(ctx, id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toDriverResponse(driver))
}

func (h *Handler) handlePenalties(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.authorizedDriverID(w, r)
	if !ok {
		return
	}

	penalties, err := h.penalties.PenaltiesByDriver(ctx, id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"penalties": toPenaltyResponses(penalties)})
}

// handleDashboard aggregates the driver profile, penalties, and payment
// history. The three reads are independent, so they run concurrently; any
// failure fails the whole dashboard.
func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.authorizedDriverID(w, r)
	if !ok {
		return
	}

	var (
		driver    *drivermodels.Driver
		penalties []ticketmodels.DriverPenalty
		payments  []*paymentmodels.Payment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		driver, err = h.drivers.Get(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		penalties, err = h.penalties.PenaltiesByDriver(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		payments, err = h.payments.HistoryByDriver(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		h.logger.ErrorContext(ctx, "failed to build driver dashboard",
			"request_id", middleware.GetRequestID(ctx),
			"driver_id", id.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	var outstanding int64
	for _, p := range penalties {
		if !p.Paid {
			outstanding += p.Fee
		}
	}

	paymentResponses := make([]paymentResponse, 0, len(payments))
	for _, p := range payments {
		paymentResponses = append(paymentResponses, paymentResponse{
			ID:        p.ID.String(),
			PenaltyID: p.PenaltyID.String(),
			Amount:    p.Amount,
			Method:    p.Method,
			Status:    string(p.Status),
			CreatedAt: p.CreatedAt.Format(time.RFC3339),
		})
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"driver":         toDriverResponse(driver),
		"penalties":      toPenaltyResponses(penalties),
		"payments":       paymentResponses,
		"outstandingFee": outstanding,
	})
}

// authorizedDriverID parses the path id and enforces self-or-admin access.
func (h *Handler) authorizedDriverID(w http.ResponseWriter, r *http.Request) (domain.DriverID, bool) {
	id, err := domain.ParseDriverID(chi.URLParam(r, "driverID"))
	if err != nil {
		shared.WriteError(w, err)
		return domain.DriverID{}, false
	}

	actor := requestcontext.Actor(r.Context())
	if actor.Role != domain.RoleAdmin && actor.ID != id.String() {
		shared.WriteError(w, dErrors.New(dErrors.CodeForbidden, "drivers may only access their own records"))
		return domain.DriverID{}, false
	}
	return id, true
}

func toDriverResponse(driver *drivermodels.Driver) driverResponse {
	resp := driverResponse{
		ID:            driver.ID.String(),
		FullName:      driver.FullName,
		LicenseNumber: driver.LicenseNumber,
		LicenseStatus: driver.LicenseStatus,
		Email:         driver.Email,
		PhoneNumber:   driver.PhoneNumber,
		Verified:      driver.Verified,
		CreatedAt:     driver.CreatedAt.Format(time.RFC3339),
	}
	if driver.LicenseExpiry != nil {
		resp.LicenseExpiry = driver.LicenseExpiry.Format(domain.DateLayout)
	}
	if driver.Birthday != nil {
		resp.Birthday = driver.Birthday.Format(domain.DateLayout)
	}
	return resp
}

func toPenaltyResponses(penalties []ticketmodels.DriverPenalty) []penaltyResponse {
	resp := make([]penaltyResponse, 0, len(penalties))
	for _, p := range penalties {
		resp = append(resp, penaltyResponse{
			PenaltyID:     p.PenaltyID.String(),
			TicketID:      int64(p.TicketID),
			ViolationType: p.ViolationType,
			Fee:           p.Fee,
			Paid:          p.Paid,
			IssuedAt:      p.IssuedAt.Format(time.RFC3339),
		})
	}
	return resp
}
