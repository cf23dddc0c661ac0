package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"citation/internal/platform/middleware"
	"citation/internal/ticket/models"
	"citation/internal/transport/http/shared"
	"citation/pkg/domain"
	dErrors "citation/pkg/domain-errors"
	"citation/pkg/requestcontext"
)

// Service defines the ticket operations the handler needs.
type Service interface {
	RegisterTicket(ctx context.Context, in models.RegisterInput) (*models.Ticket, error)
	Get(ctx context.Context, id domain.TicketID) (*models.Ticket, error)
	ViolationTypes(ctx context.Context) ([]models.ViolationType, error)
}

// Allocator issues the next sequential ticket id.
type Allocator interface {
	NextTicketID(ctx context.Context) (domain.TicketID, error)
}

// Handler serves officer-facing ticket routes.
type Handler struct {
	logger    *slog.Logger
	tickets   Service
	allocator Allocator
}

func New(tickets Service, allocator Allocator, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, tickets: tickets, allocator: allocator}
}

// RegisterOfficer mounts the officer-facing ticket routes. Role gating
// happens in the router.
func (h *Handler) RegisterOfficer(r chi.Router) {
	r.Post("/tickets/next-id", h.handleNextID)
	r.Post("/tickets", h.handleRegister)
	r.Get("/tickets/{ticketID}", h.handleGet)
}

// RegisterCommon mounts routes any authenticated actor may call.
func (h *Handler) RegisterCommon(r chi.Router) {
	r.Get("/violation-types", h.handleViolationTypes)
}

type penaltyRequest struct {
	ViolationType string `json:"violationType"`
	Fee           int64  `json:"fee"`
}

type registerRequest struct {
	TicketID      int64            `json:"ticketId"`
	DriverName    string           `json:"driverName"`
	LicenseNumber string           `json:"licenseNumber"`
	PlateNumber   string           `json:"plateNumber"`
	VehicleType   string           `json:"vehicleType"`
	VehicleName   string           `json:"vehicleName"`
	Color         string           `json:"color"`
	Notes         string           `json:"notes"`
	Penalties     []penaltyRequest `json:"penalties"`
}

type penaltyResponse struct {
	ID            string `json:"id"`
	ViolationType string `json:"violationType"`
	Fee           int64  `json:"fee"`
	Paid          bool   `json:"paid"`
}

type ticketResponse struct {
	ID          int64             `json:"id"`
	OfficerID   string            `json:"officerId"`
	DriverID    string            `json:"driverId"`
	PlateNumber string            `json:"plateNumber"`
	VehicleType string            `json:"vehicleType,omitempty"`
	VehicleName string            `json:"vehicleName,omitempty"`
	Color       string            `json:"color,omitempty"`
	Notes       string            `json:"notes,omitempty"`
	Penalties   []penaltyResponse `json:"penalties"`
	CreatedAt   string            `json:"createdAt"`
}

func (h *Handler) handleNextID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := h.allocator.NextTicketID(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to allocate ticket id",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]int64{"ticketId": int64(id)})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}

	actor := requestcontext.Actor(ctx)
	officerID, err := domain.ParseOfficerID(actor.ID)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeForbidden, "token actor is not an officer account"))
		return
	}

	in := models.RegisterInput{
		TicketID:      domain.TicketID(req.TicketID),
		OfficerID:     officerID,
		DriverName:    req.DriverName,
		LicenseNumber: req.LicenseNumber,
		Vehicle: models.VehicleInfo{
			PlateNumber: req.PlateNumber,
			VehicleType: req.VehicleType,
			VehicleName: req.VehicleName,
			Color:       req.Color,
		},
		Notes: req.Notes,
	}
	for _, p := range req.Penalties {
		in.Penalties = append(in.Penalties, models.PenaltyInput{
			ViolationType: p.ViolationType,
			Fee:           p.Fee,
		})
	}

	ticket, err := h.tickets.RegisterTicket(ctx, in)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to register ticket",
			"request_id", middleware.GetRequestID(ctx),
			"ticket_id", req.TicketID,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "ticket registered",
		"request_id", middleware.GetRequestID(ctx),
		"ticket_id", int64(ticket.ID),
		"penalties", len(ticket.Penalties),
	)
	shared.WriteJSON(w, http.StatusCreated, toTicketResponse(ticket))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := domain.ParseTicketID(chi.URLParam(r, "ticketID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	ticket, err := h.tickets.Get(ctx, id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toTicketResponse(ticket))
}

func (h *Handler) handleViolationTypes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	types, err := h.tickets.ViolationTypes(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load violation types",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	resp := make([]map[string]any, 0, len(types))
	for _, vt := range types {
		resp = append(resp, map[string]any{"code": vt.Code, "name": vt.Name, "fee": vt.Fee})
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"violationTypes": resp})
}

func toTicketResponse(ticket *models.Ticket) ticketResponse {
	resp := ticketResponse{
		ID:          int64(ticket.ID),
		OfficerID:   ticket.OfficerID.String(),
		DriverID:    ticket.DriverID.String(),
		PlateNumber: ticket.Vehicle.PlateNumber,
		VehicleType: ticket.Vehicle.VehicleType,
		VehicleName: ticket.Vehicle.VehicleName,
		Color:       ticket.Vehicle.Color,
		Notes:       ticket.Notes,
		Penalties:   make([]penaltyResponse, 0, len(ticket.Penalties)),
		CreatedAt:   ticket.CreatedAt.Format(time.RFC3339),
	}
	for _, p := range ticket.Penalties {
		resp.Penalties = append(resp.Penalties, penaltyResponse{
			ID:            p.ID.String(),
			ViolationType: p.ViolationType,
			Fee:           p.Fee,
			Paid:          p.Paid,
		})
	}
	return resp
}
