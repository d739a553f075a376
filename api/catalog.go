/*
catalog.go - CRUD handlers for clients, programs and services

The catalog is plain storage plus validation; none of these handlers
touch the state machine. Deleting a program does not release or reclaim
slots held by existing reservations.
*/
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// =============================================================================
// CLIENTS
// =============================================================================

func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.Store.ListClients(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list clients", err)
		return
	}
	dtos := make([]ClientDTO, 0, len(clients))
	for _, c := range clients {
		dtos = append(dtos, toClientDTO(c))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) SaveClient(w http.ResponseWriter, r *http.Request) {
	var dto ClientDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if dto.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}
	c, err := dto.toDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid registered_at format (use YYYY-MM-DD)", err)
		return
	}

	isNew := c.ID == ""
	saved, err := h.Store.SaveClient(r.Context(), c)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save client", err)
		return
	}

	status := http.StatusOK
	if isNew {
		status = http.StatusCreated
	}
	writeJSON(w, status, toClientDTO(saved))
}

func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, err := h.Store.GetClient(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get client", err)
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "Client not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toClientDTO(*c))
}

func (h *Handler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Store.DeleteClient(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete client", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// PROGRAMS
// =============================================================================

func (h *Handler) ListPrograms(w http.ResponseWriter, r *http.Request) {
	programs, err := h.Store.ListPrograms(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list programs", err)
		return
	}
	dtos := make([]ProgramDTO, 0, len(programs))
	for _, p := range programs {
		dtos = append(dtos, toProgramDTO(p))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) SaveProgram(w http.ResponseWriter, r *http.Request) {
	var dto ProgramDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if dto.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}
	if dto.TotalCapacity < 0 {
		writeError(w, http.StatusBadRequest, "total_capacity must not be negative", nil)
		return
	}
	if dto.AvailableCapacity < 0 {
		writeError(w, http.StatusBadRequest, "available_capacity must not be negative", nil)
		return
	}
	p, err := dto.toDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid cost or date format", err)
		return
	}

	// A fresh program starts with all slots free; an update keeps
	// whatever the ledger has taken.
	isNew := p.ID == ""
	if isNew {
		p.AvailableCapacity = p.TotalCapacity
	}
	if p.AvailableCapacity > p.TotalCapacity {
		p.AvailableCapacity = p.TotalCapacity
	}

	saved, err := h.Store.SaveProgram(r.Context(), p)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save program", err)
		return
	}

	status := http.StatusOK
	if isNew {
		status = http.StatusCreated
	}
	writeJSON(w, status, toProgramDTO(saved))
}

func (h *Handler) GetProgram(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := h.Store.GetProgram(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get program", err)
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "Program not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toProgramDTO(*p))
}

func (h *Handler) DeleteProgram(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Store.DeleteProgram(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete program", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// SERVICES
// =============================================================================

func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.Store.ListServices(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list services", err)
		return
	}
	dtos := make([]ServiceDTO, 0, len(services))
	for _, s := range services {
		dtos = append(dtos, toServiceDTO(s))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) SaveService(w http.ResponseWriter, r *http.Request) {
	var dto ServiceDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if dto.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}
	s, err := dto.toDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid price", err)
		return
	}
	if s.Price.IsNegative() {
		writeError(w, http.StatusBadRequest, "price must not be negative", nil)
		return
	}

	isNew := s.ID == ""
	saved, err := h.Store.SaveService(r.Context(), s)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save service", err)
		return
	}

	status := http.StatusOK
	if isNew {
		status = http.StatusCreated
	}
	writeJSON(w, status, toServiceDTO(saved))
}

func (h *Handler) GetService(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s, err := h.Store.GetService(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get service", err)
		return
	}
	if s == nil {
		writeError(w, http.StatusNotFound, "Service not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toServiceDTO(*s))
}

func (h *Handler) DeleteService(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Store.DeleteService(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete service", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
