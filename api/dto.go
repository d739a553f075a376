/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

WIRE FORMATS:
  - Dates: "YYYY-MM-DD" strings; empty string means unset
  - Money: decimal strings ("1500.00"); floats never cross the wire
  - States: the uppercase state names (PENDING, CONFIRMED, ...)

VALIDATION:
  Validation is done in handlers and the engine, not in DTOs. DTOs are
  pure data carriers.

SEE ALSO:
  - handlers.go, catalog.go: use these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/aegisops/booking-engine/booking"
)

const dateLayout = "2006-01-02"

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// WIRE HELPERS
// =============================================================================

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, s)
}

func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// =============================================================================
// CATALOG
// =============================================================================

// ClientDTO represents a client in API requests and responses.
type ClientDTO struct {
	ID           string `json:"id,omitempty"`
	Name         string `json:"name"`
	ClientType   string `json:"client_type,omitempty"`
	DocumentID   string `json:"document_id,omitempty"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Address      string `json:"address,omitempty"`
	City         string `json:"city,omitempty"`
	Country      string `json:"country,omitempty"`
	RegisteredAt string `json:"registered_at,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

func toClientDTO(c booking.Client) ClientDTO {
	return ClientDTO{
		ID:           c.ID,
		Name:         c.Name,
		ClientType:   c.ClientType,
		DocumentID:   c.DocumentID,
		Email:        c.Email,
		Phone:        c.Phone,
		Address:      c.Address,
		City:         c.City,
		Country:      c.Country,
		RegisteredAt: formatDate(c.RegisteredAt),
		Notes:        c.Notes,
	}
}

func (d ClientDTO) toDomain() (booking.Client, error) {
	registeredAt, err := parseDate(d.RegisteredAt)
	if err != nil {
		return booking.Client{}, err
	}
	return booking.Client{
		ID:           d.ID,
		Name:         d.Name,
		ClientType:   d.ClientType,
		DocumentID:   d.DocumentID,
		Email:        d.Email,
		Phone:        d.Phone,
		Address:      d.Address,
		City:         d.City,
		Country:      d.Country,
		RegisteredAt: registeredAt,
		Notes:        d.Notes,
	}, nil
}

// ProgramDTO represents a training program.
type ProgramDTO struct {
	ID                string `json:"id,omitempty"`
	Name              string `json:"name"`
	Content           string `json:"content,omitempty"`
	Requirements      string `json:"requirements,omitempty"`
	Instructor        string `json:"instructor,omitempty"`
	Cost              string `json:"cost"`
	DurationDays      int    `json:"duration_days,omitempty"`
	TotalCapacity     int    `json:"total_capacity"`
	AvailableCapacity int    `json:"available_capacity"`
	StartDate         string `json:"start_date,omitempty"`
	EndDate           string `json:"end_date,omitempty"`
	Active            bool   `json:"active"`
}

func toProgramDTO(p booking.Program) ProgramDTO {
	return ProgramDTO{
		ID:                p.ID,
		Name:              p.Name,
		Content:           p.Content,
		Requirements:      p.Requirements,
		Instructor:        p.Instructor,
		Cost:              p.Cost.String(),
		DurationDays:      p.DurationDays,
		TotalCapacity:     p.TotalCapacity,
		AvailableCapacity: p.AvailableCapacity,
		StartDate:         formatDate(p.StartDate),
		EndDate:           formatDate(p.EndDate),
		Active:            p.Active,
	}
}

func (d ProgramDTO) toDomain() (booking.Program, error) {
	cost, err := parseAmount(d.Cost)
	if err != nil {
		return booking.Program{}, err
	}
	startDate, err := parseDate(d.StartDate)
	if err != nil {
		return booking.Program{}, err
	}
	endDate, err := parseDate(d.EndDate)
	if err != nil {
		return booking.Program{}, err
	}
	return booking.Program{
		ID:                d.ID,
		Name:              d.Name,
		Content:           d.Content,
		Requirements:      d.Requirements,
		Instructor:        d.Instructor,
		Cost:              cost,
		DurationDays:      d.DurationDays,
		TotalCapacity:     d.TotalCapacity,
		AvailableCapacity: d.AvailableCapacity,
		StartDate:         startDate,
		EndDate:           endDate,
		Active:            d.Active,
	}, nil
}

// ServiceDTO represents a security service.
type ServiceDTO struct {
	ID            string `json:"id,omitempty"`
	Name          string `json:"name"`
	ServiceType   string `json:"service_type,omitempty"`
	Description   string `json:"description,omitempty"`
	Location      string `json:"location,omitempty"`
	Price         string `json:"price"`
	Duration      string `json:"duration,omitempty"`
	AssignedStaff string `json:"assigned_staff,omitempty"`
	Schedule      string `json:"schedule,omitempty"`
	Active        bool   `json:"active"`
}

func toServiceDTO(s booking.SecurityService) ServiceDTO {
	return ServiceDTO{
		ID:            s.ID,
		Name:          s.Name,
		ServiceType:   s.ServiceType,
		Description:   s.Description,
		Location:      s.Location,
		Price:         s.Price.String(),
		Duration:      s.Duration,
		AssignedStaff: s.AssignedStaff,
		Schedule:      s.Schedule,
		Active:        s.Active,
	}
}

func (d ServiceDTO) toDomain() (booking.SecurityService, error) {
	price, err := parseAmount(d.Price)
	if err != nil {
		return booking.SecurityService{}, err
	}
	return booking.SecurityService{
		ID:            d.ID,
		Name:          d.Name,
		ServiceType:   d.ServiceType,
		Description:   d.Description,
		Location:      d.Location,
		Price:         price,
		Duration:      d.Duration,
		AssignedStaff: d.AssignedStaff,
		Schedule:      d.Schedule,
		Active:        d.Active,
	}, nil
}

// =============================================================================
// BOOKINGS
// =============================================================================

// ReservationDTO represents a reservation in API responses.
type ReservationDTO struct {
	ID           string `json:"id"`
	ClientID     string `json:"client_id"`
	ProgramID    string `json:"program_id"`
	ReservedAt   string `json:"reserved_at,omitempty"`
	State        string `json:"state"`
	Observations string `json:"observations,omitempty"`
	Notified     bool   `json:"notified"`
}

func toReservationDTO(r booking.Reservation) ReservationDTO {
	return ReservationDTO{
		ID:           r.ID,
		ClientID:     r.ClientID,
		ProgramID:    r.ProgramID,
		ReservedAt:   formatDate(r.ReservedAt),
		State:        string(r.State),
		Observations: r.Observations,
		Notified:     r.Notified,
	}
}

// SubmitReservationRequest is the request body for creating or updating
// a reservation. The notified flag is engine-owned and not accepted.
type SubmitReservationRequest struct {
	ID           string `json:"id,omitempty"`
	ClientID     string `json:"client_id"`
	ProgramID    string `json:"program_id"`
	ReservedAt   string `json:"reserved_at,omitempty"`
	State        string `json:"state,omitempty"`
	Observations string `json:"observations,omitempty"`
}

func (d SubmitReservationRequest) toDomain() (booking.Reservation, error) {
	reservedAt, err := parseDate(d.ReservedAt)
	if err != nil {
		return booking.Reservation{}, err
	}
	return booking.Reservation{
		ID:           d.ID,
		ClientID:     d.ClientID,
		ProgramID:    d.ProgramID,
		ReservedAt:   reservedAt,
		State:        booking.BookingState(d.State),
		Observations: d.Observations,
	}, nil
}

// ContractDTO represents a contract in API responses.
type ContractDTO struct {
	ID           string `json:"id"`
	ClientID     string `json:"client_id"`
	ServiceID    string `json:"service_id"`
	ContractedAt string `json:"contracted_at,omitempty"`
	StartDate    string `json:"start_date,omitempty"`
	EndDate      string `json:"end_date,omitempty"`
	State        string `json:"state"`
	Observations string `json:"observations,omitempty"`
	Notified     bool   `json:"notified"`
}

func toContractDTO(c booking.Contract) ContractDTO {
	return ContractDTO{
		ID:           c.ID,
		ClientID:     c.ClientID,
		ServiceID:    c.ServiceID,
		ContractedAt: formatDate(c.ContractedAt),
		StartDate:    formatDate(c.StartDate),
		EndDate:      formatDate(c.EndDate),
		State:        string(c.State),
		Observations: c.Observations,
		Notified:     c.Notified,
	}
}

// SubmitContractRequest is the request body for creating or updating a
// contract.
type SubmitContractRequest struct {
	ID           string `json:"id,omitempty"`
	ClientID     string `json:"client_id"`
	ServiceID    string `json:"service_id"`
	ContractedAt string `json:"contracted_at,omitempty"`
	StartDate    string `json:"start_date,omitempty"`
	EndDate      string `json:"end_date,omitempty"`
	State        string `json:"state,omitempty"`
	Observations string `json:"observations,omitempty"`
}

func (d SubmitContractRequest) toDomain() (booking.Contract, error) {
	contractedAt, err := parseDate(d.ContractedAt)
	if err != nil {
		return booking.Contract{}, err
	}
	startDate, err := parseDate(d.StartDate)
	if err != nil {
		return booking.Contract{}, err
	}
	endDate, err := parseDate(d.EndDate)
	if err != nil {
		return booking.Contract{}, err
	}
	return booking.Contract{
		ID:           d.ID,
		ClientID:     d.ClientID,
		ServiceID:    d.ServiceID,
		ContractedAt: contractedAt,
		StartDate:    startDate,
		EndDate:      endDate,
		State:        booking.BookingState(d.State),
		Observations: d.Observations,
	}, nil
}

// =============================================================================
// PAYMENTS
// =============================================================================

// PaymentDTO represents a payment in API responses.
type PaymentDTO struct {
	ID           string `json:"id"`
	ClientID     string `json:"client_id"`
	ContractID   string `json:"contract_id,omitempty"`
	Amount       string `json:"amount"`
	PaidAt       string `json:"paid_at,omitempty"`
	Method       string `json:"method,omitempty"`
	State        string `json:"state"`
	ReferenceNum string `json:"reference_num,omitempty"`
	Observations string `json:"observations,omitempty"`
}

func toPaymentDTO(p booking.Payment) PaymentDTO {
	return PaymentDTO{
		ID:           p.ID,
		ClientID:     p.ClientID,
		ContractID:   p.ContractID,
		Amount:       p.Amount.String(),
		PaidAt:       formatDate(p.PaidAt),
		Method:       p.Method,
		State:        string(p.State),
		ReferenceNum: p.ReferenceNum,
		Observations: p.Observations,
	}
}

// CreatePaymentRequest is the request body for recording a payment.
type CreatePaymentRequest struct {
	ID           string `json:"id,omitempty"`
	ClientID     string `json:"client_id"`
	ContractID   string `json:"contract_id,omitempty"`
	Amount       string `json:"amount"`
	PaidAt       string `json:"paid_at,omitempty"`
	Method       string `json:"method,omitempty"`
	State        string `json:"state,omitempty"`
	ReferenceNum string `json:"reference_num,omitempty"`
	Observations string `json:"observations,omitempty"`
}

func (d CreatePaymentRequest) toDomain() (booking.Payment, error) {
	amount, err := parseAmount(d.Amount)
	if err != nil {
		return booking.Payment{}, err
	}
	paidAt, err := parseDate(d.PaidAt)
	if err != nil {
		return booking.Payment{}, err
	}
	return booking.Payment{
		ID:           d.ID,
		ClientID:     d.ClientID,
		ContractID:   d.ContractID,
		Amount:       amount,
		PaidAt:       paidAt,
		Method:       d.Method,
		State:        booking.PaymentState(d.State),
		ReferenceNum: d.ReferenceNum,
		Observations: d.Observations,
	}, nil
}

// =============================================================================
// RECONCILIATION AND REPORTS
// =============================================================================

// ReconciliationDTO is the payments-vs-price view of one contract.
type ReconciliationDTO struct {
	ContractID   string       `json:"contract_id"`
	ClientName   string       `json:"client_name"`
	ServiceName  string       `json:"service_name"`
	AmountOwed   string       `json:"amount_owed"`
	TotalPaid    string       `json:"total_paid"`
	Diff         string       `json:"diff"`
	PaymentCount int          `json:"payment_count"`
	Payments     []PaymentDTO `json:"payments,omitempty"`
	Reconciled   bool         `json:"reconciled"`
}

func toReconciliationDTO(r booking.Reconciliation) ReconciliationDTO {
	dto := ReconciliationDTO{
		ContractID:   r.ContractID,
		ClientName:   r.ClientName,
		ServiceName:  r.ServiceName,
		AmountOwed:   r.AmountOwed.String(),
		TotalPaid:    r.TotalPaid.String(),
		Diff:         r.Diff.String(),
		PaymentCount: r.PaymentCount,
		Reconciled:   r.Reconciled,
	}
	for _, p := range r.Payments {
		dto.Payments = append(dto.Payments, toPaymentDTO(p))
	}
	return dto
}

// IncomeReportDTO is a completed-payments total over a date range.
type IncomeReportDTO struct {
	From         string `json:"from,omitempty"`
	To           string `json:"to,omitempty"`
	Total        string `json:"total"`
	PaymentCount int    `json:"payment_count"`
}

// OccupancyDTO is one program's slot usage.
type OccupancyDTO struct {
	ProgramID         string `json:"program_id"`
	Name              string `json:"name"`
	TotalCapacity     int    `json:"total_capacity"`
	AvailableCapacity int    `json:"available_capacity"`
	Occupied          int    `json:"occupied"`
}

// OfferingSummaryDTO groups the per-offering figures in one response.
type OfferingSummaryDTO struct {
	Programs []OccupancyDTO `json:"programs"`
	Services []UptakeDTO    `json:"services"`
}

// UptakeDTO is one service's contract counts.
type UptakeDTO struct {
	ServiceID     string `json:"service_id"`
	Name          string `json:"name"`
	ContractCount int    `json:"contract_count"`
	ActiveCount   int    `json:"active_count"`
}

// SummaryDTO is the dashboard rollup.
type SummaryDTO struct {
	Clients             int            `json:"clients"`
	ActivePrograms      int            `json:"active_programs"`
	ActiveServices      int            `json:"active_services"`
	ReservationsByState map[string]int `json:"reservations_by_state"`
	ContractsByState    map[string]int `json:"contracts_by_state"`
	CompletedTotal      string         `json:"completed_total"`
}
