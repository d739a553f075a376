/*
handlers.go - HTTP API handlers for the booking engine

PURPOSE:
  Exposes the booking engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Reservations:
    GET    /api/reservations             List (filterable)
    POST   /api/reservations             Submit (create or update)
    GET    /api/reservations/{id}        Get one with joins
    POST   /api/reservations/{id}/cancel Cancel

  Contracts:
    GET    /api/contracts                List (filterable)
    POST   /api/contracts                Submit (create or update)
    GET    /api/contracts/{id}           Get one with joins
    POST   /api/contracts/{id}/cancel    Cancel

  Payments:
    GET    /api/payments                 List (filterable)
    POST   /api/payments                 Record a payment
    GET    /api/payments/{id}            Get one

  Reconciliation:
    GET    /api/reconciliation               All reconcilable contracts
    GET    /api/reconciliation/contracts/{id} One contract

  Reports:
    GET    /api/reports/income           Completed-payments total
    GET    /api/reports/occupancy        Per-program slot usage
    GET    /api/reports/uptake           Per-service contract counts
    GET    /api/dashboard                Overall counts

  Catalog (catalog.go):
    /api/clients, /api/programs, /api/services CRUD

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: validation errors, malformed input
  - 404: entity not found
  - 409: program at capacity under the reject policy
  - 500: storage and other internal errors

SEE ALSO:
  - dto.go: request/response data structures
  - catalog.go: catalog CRUD handlers
  - server.go: router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/aegisops/booking-engine/booking"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      booking.Store
	Machine    *booking.Machine
	Reconciler *booking.Reconciler
	Payments   *booking.PaymentService
	Reports    *booking.Reports
}

// NewHandler wires the engine components around a single store.
func NewHandler(store booking.Store, machine *booking.Machine) *Handler {
	return &Handler{
		Store:      store,
		Machine:    machine,
		Reconciler: &booking.Reconciler{Store: store},
		Payments:   &booking.PaymentService{Store: store},
		Reports:    &booking.Reports{Store: store},
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine errors to HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrCapacityExceeded):
		writeError(w, http.StatusConflict, "Program is at capacity", err)
	case errors.Is(err, booking.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, booking.ErrValidation):
		writeError(w, http.StatusBadRequest, "Validation failed", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func queryDate(r *http.Request, key string) (time.Time, bool, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

// =============================================================================
// RESERVATIONS
// =============================================================================

func (h *Handler) ListReservations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := booking.ReservationFilter{
		ClientID:  q.Get("client_id"),
		ProgramID: q.Get("program_id"),
		State:     booking.BookingState(q.Get("state")),
	}
	var err error
	if filter.From, _, err = queryDate(r, "from"); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from date (use YYYY-MM-DD)", err)
		return
	}
	if filter.To, _, err = queryDate(r, "to"); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to date (use YYYY-MM-DD)", err)
		return
	}

	reservations, err := h.Store.ListReservations(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list reservations", err)
		return
	}

	dtos := make([]ReservationDTO, 0, len(reservations))
	for _, res := range reservations {
		dtos = append(dtos, toReservationDTO(res))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) SubmitReservation(w http.ResponseWriter, r *http.Request) {
	var req SubmitReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	res, err := req.toDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid reserved_at format (use YYYY-MM-DD)", err)
		return
	}

	isNew := res.ID == ""
	saved, err := h.Machine.SubmitReservation(r.Context(), res)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	status := http.StatusOK
	if isNew {
		status = http.StatusCreated
	}
	writeJSON(w, status, toReservationDTO(saved))
}

func (h *Handler) GetReservation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	detail, err := h.Store.GetReservationDetail(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get reservation", err)
		return
	}
	if detail == nil {
		writeError(w, http.StatusNotFound, "Reservation not found", nil)
		return
	}

	resp := struct {
		ReservationDTO
		Client  *ClientDTO  `json:"client,omitempty"`
		Program *ProgramDTO `json:"program,omitempty"`
	}{ReservationDTO: toReservationDTO(detail.Reservation)}
	if detail.Client != nil {
		c := toClientDTO(*detail.Client)
		resp.Client = &c
	}
	if detail.Program != nil {
		p := toProgramDTO(*detail.Program)
		resp.Program = &p
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := h.Machine.CancelReservation(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationDTO(res))
}

func (h *Handler) DeleteReservation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Machine.DeleteReservation(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// CONTRACTS
// =============================================================================

func (h *Handler) ListContracts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := booking.ContractFilter{
		ClientID:  q.Get("client_id"),
		ServiceID: q.Get("service_id"),
		State:     booking.BookingState(q.Get("state")),
	}
	var err error
	if filter.From, _, err = queryDate(r, "from"); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from date (use YYYY-MM-DD)", err)
		return
	}
	if filter.To, _, err = queryDate(r, "to"); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to date (use YYYY-MM-DD)", err)
		return
	}

	contracts, err := h.Store.ListContracts(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list contracts", err)
		return
	}

	dtos := make([]ContractDTO, 0, len(contracts))
	for _, c := range contracts {
		dtos = append(dtos, toContractDTO(c))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) SubmitContract(w http.ResponseWriter, r *http.Request) {
	var req SubmitContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	c, err := req.toDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	isNew := c.ID == ""
	saved, err := h.Machine.SubmitContract(r.Context(), c)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	status := http.StatusOK
	if isNew {
		status = http.StatusCreated
	}
	writeJSON(w, status, toContractDTO(saved))
}

func (h *Handler) GetContract(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	detail, err := h.Store.GetContractDetail(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get contract", err)
		return
	}
	if detail == nil {
		writeError(w, http.StatusNotFound, "Contract not found", nil)
		return
	}

	resp := struct {
		ContractDTO
		Client  *ClientDTO  `json:"client,omitempty"`
		Service *ServiceDTO `json:"service,omitempty"`
	}{ContractDTO: toContractDTO(detail.Contract)}
	if detail.Client != nil {
		c := toClientDTO(*detail.Client)
		resp.Client = &c
	}
	if detail.Service != nil {
		s := toServiceDTO(*detail.Service)
		resp.Service = &s
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) CancelContract(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, err := h.Machine.CancelContract(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toContractDTO(c))
}

func (h *Handler) DeleteContract(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Machine.DeleteContract(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// PAYMENTS
// =============================================================================

func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := booking.PaymentFilter{
		ClientID:   q.Get("client_id"),
		ContractID: q.Get("contract_id"),
		State:      booking.PaymentState(q.Get("state")),
		Method:     q.Get("method"),
	}
	var err error
	if filter.From, _, err = queryDate(r, "from"); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from date (use YYYY-MM-DD)", err)
		return
	}
	if filter.To, _, err = queryDate(r, "to"); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to date (use YYYY-MM-DD)", err)
		return
	}
	if v := q.Get("min_amount"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid min_amount", err)
			return
		}
		filter.MinAmount = &d
	}
	if v := q.Get("max_amount"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid max_amount", err)
			return
		}
		filter.MaxAmount = &d
	}

	payments, err := h.Store.ListPayments(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payments", err)
		return
	}

	dtos := make([]PaymentDTO, 0, len(payments))
	for _, p := range payments {
		dtos = append(dtos, toPaymentDTO(p))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	p, err := req.toDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount or date format", err)
		return
	}

	saved, err := h.Payments.CreatePayment(r.Context(), p)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentDTO(saved))
}

func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := h.Store.GetPayment(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get payment", err)
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "Payment not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTO(*p))
}

func (h *Handler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Payments.DeletePayment(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// RECONCILIATION
// =============================================================================

func (h *Handler) ReconcileAll(w http.ResponseWriter, r *http.Request) {
	results, err := h.Reconciler.ReconcileAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Reconciliation failed", err)
		return
	}
	dtos := make([]ReconciliationDTO, 0, len(results))
	for _, res := range results {
		dtos = append(dtos, toReconciliationDTO(res))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) ReconcileContract(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	result, err := h.Reconciler.ReconcileOne(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReconciliationDTO(*result))
}

// =============================================================================
// REPORTS
// =============================================================================

func (h *Handler) IncomeReport(w http.ResponseWriter, r *http.Request) {
	from, _, err := queryDate(r, "from")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from date (use YYYY-MM-DD)", err)
		return
	}
	to, _, err := queryDate(r, "to")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to date (use YYYY-MM-DD)", err)
		return
	}

	report, err := h.Reports.Income(r.Context(), from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute income", err)
		return
	}
	writeJSON(w, http.StatusOK, IncomeReportDTO{
		From:         formatDate(report.From),
		To:           formatDate(report.To),
		Total:        report.Total.String(),
		PaymentCount: report.PaymentCount,
	})
}

func (h *Handler) OccupancyReport(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Reports.Occupancy(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute occupancy", err)
		return
	}
	dtos := make([]OccupancyDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, OccupancyDTO{
			ProgramID:         row.ProgramID,
			Name:              row.Name,
			TotalCapacity:     row.TotalCapacity,
			AvailableCapacity: row.AvailableCapacity,
			Occupied:          row.Occupied,
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) UptakeReport(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Reports.Uptake(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute uptake", err)
		return
	}
	dtos := make([]UptakeDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, UptakeDTO{
			ServiceID:     row.ServiceID,
			Name:          row.Name,
			ContractCount: row.ContractCount,
			ActiveCount:   row.ActiveCount,
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SummaryReport is the per-offering view: slot usage for every program
// and contract counts for every service, in one response.
func (h *Handler) SummaryReport(w http.ResponseWriter, r *http.Request) {
	occupancy, err := h.Reports.Occupancy(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute occupancy", err)
		return
	}
	uptake, err := h.Reports.Uptake(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute uptake", err)
		return
	}

	resp := OfferingSummaryDTO{
		Programs: make([]OccupancyDTO, 0, len(occupancy)),
		Services: make([]UptakeDTO, 0, len(uptake)),
	}
	for _, row := range occupancy {
		resp.Programs = append(resp.Programs, OccupancyDTO{
			ProgramID:         row.ProgramID,
			Name:              row.Name,
			TotalCapacity:     row.TotalCapacity,
			AvailableCapacity: row.AvailableCapacity,
			Occupied:          row.Occupied,
		})
	}
	for _, row := range uptake {
		resp.Services = append(resp.Services, UptakeDTO{
			ServiceID:     row.ServiceID,
			Name:          row.Name,
			ContractCount: row.ContractCount,
			ActiveCount:   row.ActiveCount,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Reports.Dashboard(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute dashboard", err)
		return
	}

	dto := SummaryDTO{
		Clients:             summary.Clients,
		ActivePrograms:      summary.ActivePrograms,
		ActiveServices:      summary.ActiveServices,
		ReservationsByState: make(map[string]int, len(summary.ReservationsByState)),
		ContractsByState:    make(map[string]int, len(summary.ContractsByState)),
		CompletedTotal:      summary.CompletedTotal.String(),
	}
	for state, n := range summary.ReservationsByState {
		dto.ReservationsByState[string(state)] = n
	}
	for state, n := range summary.ContractsByState {
		dto.ContractsByState[string(state)] = n
	}
	writeJSON(w, http.StatusOK, dto)
}

// Health is a liveness probe.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
