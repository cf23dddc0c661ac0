package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	allocatorsvc "citation/internal/allocator"
	allocmem "citation/internal/allocator/store/memory"
	auditmem "citation/internal/audit/store/memory"
	drivermodels "citation/internal/driver/models"
	driversvc "citation/internal/driver/service"
	drivermem "citation/internal/driver/store/memory"
	"citation/internal/ticket/cache"
	ticketsvc "citation/internal/ticket/service"
	ticketmem "citation/internal/ticket/store/memory"
	"citation/pkg/domain"
	"citation/pkg/requestcontext"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	ledger := auditmem.New()
	drivers := driversvc.NewService(drivermem.New(ledger))

	_, err := drivers.Register(context.Background(), drivermodels.RegisterInput{
		FullName:      "Juan Dela Cruz",
		LicenseNumber: "N01-23-456789",
		Email:         "juan@example.com",
	})
	require.NoError(t, err)

	tickets := ticketsvc.NewService(ticketmem.New(ledger), drivers, cache.NewMemory(time.Minute), nil)
	allocator := allocatorsvc.NewService(allocmem.New())
	h := New(tickets, allocator, slog.New(slog.NewTextHandler(testWriter{t}, nil)))

	r := chi.NewRouter()
	r.Use(asOfficer)
	h.RegisterOfficer(r)
	h.RegisterCommon(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

// asOfficer stands in for the auth middleware.
func asOfficer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithActor(r.Context(), requestcontext.ActorRef{
			ID:   domain.NewOfficerID().String(),
			Role: domain.RoleOfficer,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func registerBody(ticketID int64) []byte {
	body, _ := json.Marshal(map[string]any{
		"ticketId":      ticketID,
		"driverName":    "Juan Dela Cruz",
		"licenseNumber": "N01-23-456789",
		"plateNumber":   "ABC-1234",
		"vehicleType":   "sedan",
		"penalties": []map[string]any{
			{"violationType": "speeding", "fee": 150000},
		},
	})
	return body
}

func TestHandleNextID(t *testing.T) {
	srv := newServer(t)

	resp, err := http.Post(srv.URL+"/tickets/next-id", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		TicketID int64 `json:"ticketId"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, int64(1), out.TicketID)

	resp2, err := http.Post(srv.URL+"/tickets/next-id", "application/json", nil)
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&out))
	assert.Equal(t, int64(2), out.TicketID)
}

func TestHandleRegister(t *testing.T) {
	srv := newServer(t)

	resp, err := http.Post(srv.URL+"/tickets", "application/json", bytes.NewReader(registerBody(1)))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out struct {
		ID        int64 `json:"id"`
		Penalties []struct {
			ViolationType string `json:"violationType"`
			Fee           int64  `json:"fee"`
			Paid          bool   `json:"paid"`
		} `json:"penalties"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, int64(1), out.ID)
	require.Len(t, out.Penalties, 1)
	assert.Equal(t, int64(150000), out.Penalties[0].Fee)
	assert.False(t, out.Penalties[0].Paid)

	got, err := http.Get(fmt.Sprintf("%s/tickets/%d", srv.URL, out.ID))
	require.NoError(t, err)
	defer got.Body.Close()
	assert.Equal(t, http.StatusOK, got.StatusCode)
}

func TestHandleRegister_DuplicateID(t *testing.T) {
	srv := newServer(t)

	resp, err := http.Post(srv.URL+"/tickets", "application/json", bytes.NewReader(registerBody(5)))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/tickets", "application/json", bytes.NewReader(registerBody(5)))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var out struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "duplicate_ticket_id", out.Error)
}

func TestHandleRegister_UnknownDriver(t *testing.T) {
	srv := newServer(t)

	body, _ := json.Marshal(map[string]any{
		"ticketId":      1,
		"driverName":    "Nobody",
		"licenseNumber": "X00-00-000000",
		"plateNumber":   "ABC-1234",
		"penalties":     []map[string]any{{"violationType": "speeding", "fee": 100}},
	})
	resp, err := http.Post(srv.URL+"/tickets", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var out struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "driver_not_found", out.Error)
}

func TestHandleGet_NotFound(t *testing.T) {
	srv := newServer(t)

	resp, err := http.Get(srv.URL + "/tickets/99")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
