/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

INTERFACES IMPLEMENTED:
  booking.Store: catalog, bookings, payments, capacity ledger
  outbox.Store:  queued confirmation messages

CAPACITY ATOMICITY:
  TryReserveSlot is a single conditional UPDATE:

    UPDATE programs SET available_capacity = available_capacity - 1
    WHERE id = ? AND available_capacity > 0

  decided by RowsAffected. Two concurrent confirming saves can never
  both take the last slot: SQLite serializes writers, and the check and
  the decrement are one statement. ReleaseSlot clamps at total capacity
  the same way.

MONEY:
  Decimal amounts are stored as TEXT and summed in Go with
  shopspring/decimal. SQL SUM() over floats would reintroduce the
  rounding this engine exists to avoid, so it is never used on amounts.

WAL MODE:
  The database is opened with WAL for better read concurrency and crash
  recovery; a single writer at a time is exactly the discipline the
  capacity ledger needs.

USAGE:
  store, err := sqlite.New("./data/booking.db")
  defer store.Close()
  machine := booking.NewMachine(store, notifier)
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/aegisops/booking-engine/booking"
	"github.com/aegisops/booking-engine/outbox"
)

const dateLayout = "2006-01-02"

// Store implements booking.Store and outbox.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: SQLite has a single writer anyway, and with
	// ":memory:" every pooled connection would otherwise get its own
	// database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS clients (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		client_type TEXT,
		document_id TEXT,
		email TEXT,
		phone TEXT,
		address TEXT,
		city TEXT,
		country TEXT,
		registered_at TEXT,
		notes TEXT
	);

	CREATE TABLE IF NOT EXISTS programs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		content TEXT,
		requirements TEXT,
		instructor TEXT,
		cost TEXT NOT NULL DEFAULT '0',
		duration_days INTEGER DEFAULT 0,
		total_capacity INTEGER NOT NULL DEFAULT 0,
		available_capacity INTEGER NOT NULL DEFAULT 0,
		start_date TEXT,
		end_date TEXT,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		CHECK (available_capacity >= 0),
		CHECK (available_capacity <= total_capacity)
	);

	CREATE TABLE IF NOT EXISTS services (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		service_type TEXT,
		description TEXT,
		location TEXT,
		price TEXT NOT NULL DEFAULT '0',
		duration TEXT,
		assigned_staff TEXT,
		schedule TEXT,
		active BOOLEAN NOT NULL DEFAULT TRUE
	);

	CREATE TABLE IF NOT EXISTS reservations (
		id TEXT PRIMARY KEY,
		client_id TEXT NOT NULL,
		program_id TEXT NOT NULL,
		reserved_at TEXT,
		state TEXT NOT NULL,
		observations TEXT,
		notified BOOLEAN NOT NULL DEFAULT FALSE
	);

	CREATE INDEX IF NOT EXISTS idx_reservations_client
		ON reservations(client_id);
	CREATE INDEX IF NOT EXISTS idx_reservations_program
		ON reservations(program_id);
	CREATE INDEX IF NOT EXISTS idx_reservations_state
		ON reservations(state);

	CREATE TABLE IF NOT EXISTS contracts (
		id TEXT PRIMARY KEY,
		client_id TEXT NOT NULL,
		service_id TEXT NOT NULL,
		contracted_at TEXT,
		start_date TEXT,
		end_date TEXT,
		state TEXT NOT NULL,
		observations TEXT,
		notified BOOLEAN NOT NULL DEFAULT FALSE
	);

	CREATE INDEX IF NOT EXISTS idx_contracts_client
		ON contracts(client_id);
	CREATE INDEX IF NOT EXISTS idx_contracts_service
		ON contracts(service_id);
	CREATE INDEX IF NOT EXISTS idx_contracts_state
		ON contracts(state);

	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		client_id TEXT NOT NULL,
		contract_id TEXT,
		amount TEXT NOT NULL,
		paid_at TEXT,
		method TEXT,
		state TEXT NOT NULL,
		reference_num TEXT,
		observations TEXT
	);

	-- Reconciliation hot path: completed payments per contract
	CREATE INDEX IF NOT EXISTS idx_payments_contract_state
		ON payments(contract_id, state);
	CREATE INDEX IF NOT EXISTS idx_payments_state_date
		ON payments(state, paid_at);
	CREATE INDEX IF NOT EXISTS idx_payments_client
		ON payments(client_id);

	CREATE TABLE IF NOT EXISTS outbox (
		id TEXT PRIMARY KEY,
		recipient TEXT NOT NULL,
		subject TEXT NOT NULL,
		body TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'PENDING',
		attempts INTEGER NOT NULL DEFAULT 0,
		last_error TEXT,
		created_at TEXT NOT NULL,
		sent_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_outbox_status
		ON outbox(status, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(dateLayout)
}

func parseDate(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, _ := time.Parse(dateLayout, s.String)
	return t
}

func nullTimestamp(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTimestamp(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339, s.String)
	return t
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func ensureID(id string) string {
	if id == "" {
		return booking.NewID()
	}
	return id
}

// =============================================================================
// CLIENTS
// =============================================================================

func (s *Store) SaveClient(ctx context.Context, c booking.Client) (booking.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.ID = ensureID(c.ID)
	query := `
		INSERT INTO clients (id, name, client_type, document_id, email, phone, address, city, country, registered_at, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			client_type = excluded.client_type,
			document_id = excluded.document_id,
			email = excluded.email,
			phone = excluded.phone,
			address = excluded.address,
			city = excluded.city,
			country = excluded.country,
			registered_at = excluded.registered_at,
			notes = excluded.notes
	`
	_, err := s.db.ExecContext(ctx, query,
		c.ID, c.Name, nullString(c.ClientType), nullString(c.DocumentID),
		nullString(c.Email), nullString(c.Phone), nullString(c.Address),
		nullString(c.City), nullString(c.Country), nullDate(c.RegisteredAt),
		nullString(c.Notes),
	)
	if err != nil {
		return booking.Client{}, fmt.Errorf("failed to save client: %w", err)
	}
	return c, nil
}

const clientColumns = `id, name, client_type, document_id, email, phone, address, city, country, registered_at, notes`

func scanClient(row interface{ Scan(...any) error }) (booking.Client, error) {
	var (
		c                                                   booking.Client
		clientType, documentID, email, phone, address, city sql.NullString
		country, registeredAt, notes                        sql.NullString
	)
	err := row.Scan(&c.ID, &c.Name, &clientType, &documentID, &email, &phone,
		&address, &city, &country, &registeredAt, &notes)
	if err != nil {
		return c, err
	}
	c.ClientType = clientType.String
	c.DocumentID = documentID.String
	c.Email = email.String
	c.Phone = phone.String
	c.Address = address.String
	c.City = city.String
	c.Country = country.String
	c.RegisteredAt = parseDate(registeredAt)
	c.Notes = notes.String
	return c, nil
}

func (s *Store) GetClient(ctx context.Context, id string) (*booking.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getClient(ctx, id)
}

func (s *Store) getClient(ctx context.Context, id string) (*booking.Client, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = ?`, id)
	c, err := scanClient(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return &c, nil
}

func (s *Store) ListClients(ctx context.Context) ([]booking.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	var out []booking.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) DeleteClient(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM clients WHERE id = ?`, id)
	return err
}

// =============================================================================
// PROGRAMS
// =============================================================================

func (s *Store) SaveProgram(ctx context.Context, p booking.Program) (booking.Program, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = ensureID(p.ID)
	query := `
		INSERT INTO programs (id, name, content, requirements, instructor, cost, duration_days,
			total_capacity, available_capacity, start_date, end_date, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			content = excluded.content,
			requirements = excluded.requirements,
			instructor = excluded.instructor,
			cost = excluded.cost,
			duration_days = excluded.duration_days,
			total_capacity = excluded.total_capacity,
			available_capacity = excluded.available_capacity,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			active = excluded.active
	`
	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.Name, nullString(p.Content), nullString(p.Requirements),
		nullString(p.Instructor), p.Cost.String(), p.DurationDays,
		p.TotalCapacity, p.AvailableCapacity, nullDate(p.StartDate),
		nullDate(p.EndDate), p.Active,
	)
	if err != nil {
		return booking.Program{}, fmt.Errorf("failed to save program: %w", err)
	}
	return p, nil
}

const programColumns = `id, name, content, requirements, instructor, cost, duration_days,
	total_capacity, available_capacity, start_date, end_date, active`

func scanProgram(row interface{ Scan(...any) error }) (booking.Program, error) {
	var (
		p                              booking.Program
		content, requirements          sql.NullString
		instructor, startDate, endDate sql.NullString
		cost                           string
	)
	err := row.Scan(&p.ID, &p.Name, &content, &requirements, &instructor, &cost,
		&p.DurationDays, &p.TotalCapacity, &p.AvailableCapacity, &startDate, &endDate, &p.Active)
	if err != nil {
		return p, err
	}
	p.Content = content.String
	p.Requirements = requirements.String
	p.Instructor = instructor.String
	p.Cost = parseDecimal(cost)
	p.StartDate = parseDate(startDate)
	p.EndDate = parseDate(endDate)
	return p, nil
}

func (s *Store) GetProgram(ctx context.Context, id string) (*booking.Program, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getProgram(ctx, id)
}

func (s *Store) getProgram(ctx context.Context, id string) (*booking.Program, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+programColumns+` FROM programs WHERE id = ?`, id)
	p, err := scanProgram(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get program: %w", err)
	}
	return &p, nil
}

func (s *Store) ListPrograms(ctx context.Context) ([]booking.Program, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT `+programColumns+` FROM programs ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list programs: %w", err)
	}
	defer rows.Close()

	var out []booking.Program
	for rows.Next() {
		p, err := scanProgram(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) DeleteProgram(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM programs WHERE id = ?`, id)
	return err
}

// =============================================================================
// CAPACITY LEDGER
// =============================================================================

// TryReserveSlot takes a slot with a single conditional UPDATE. The
// check and the decrement are one statement, so concurrent callers on
// the same program cannot both observe the last free slot.
func (s *Store) TryReserveSlot(ctx context.Context, programID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE programs SET available_capacity = available_capacity - 1
		 WHERE id = ? AND available_capacity > 0`, programID)
	if err != nil {
		return false, fmt.Errorf("failed to reserve slot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 1 {
		return true, nil
	}

	// Full, or the program does not exist at all.
	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM programs WHERE id = ?`, programID).Scan(&count); err != nil {
		return false, err
	}
	if count == 0 {
		return false, &booking.NotFoundError{Kind: "program", ID: programID}
	}
	return false, nil
}

// ReleaseSlot returns a slot, clamped so available never exceeds total.
func (s *Store) ReleaseSlot(ctx context.Context, programID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE programs SET available_capacity = MIN(available_capacity + 1, total_capacity)
		 WHERE id = ?`, programID)
	if err != nil {
		return fmt.Errorf("failed to release slot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &booking.NotFoundError{Kind: "program", ID: programID}
	}
	return nil
}

// =============================================================================
// SECURITY SERVICES
// =============================================================================

func (s *Store) SaveService(ctx context.Context, sv booking.SecurityService) (booking.SecurityService, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sv.ID = ensureID(sv.ID)
	query := `
		INSERT INTO services (id, name, service_type, description, location, price, duration,
			assigned_staff, schedule, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			service_type = excluded.service_type,
			description = excluded.description,
			location = excluded.location,
			price = excluded.price,
			duration = excluded.duration,
			assigned_staff = excluded.assigned_staff,
			schedule = excluded.schedule,
			active = excluded.active
	`
	_, err := s.db.ExecContext(ctx, query,
		sv.ID, sv.Name, nullString(sv.ServiceType), nullString(sv.Description),
		nullString(sv.Location), sv.Price.String(), nullString(sv.Duration),
		nullString(sv.AssignedStaff), nullString(sv.Schedule), sv.Active,
	)
	if err != nil {
		return booking.SecurityService{}, fmt.Errorf("failed to save service: %w", err)
	}
	return sv, nil
}

const serviceColumns = `id, name, service_type, description, location, price, duration,
	assigned_staff, schedule, active`

func scanService(row interface{ Scan(...any) error }) (booking.SecurityService, error) {
	var (
		sv                                 booking.SecurityService
		serviceType, description, location sql.NullString
		duration, assignedStaff, schedule  sql.NullString
		price                              string
	)
	err := row.Scan(&sv.ID, &sv.Name, &serviceType, &description, &location, &price,
		&duration, &assignedStaff, &schedule, &sv.Active)
	if err != nil {
		return sv, err
	}
	sv.ServiceType = serviceType.String
	sv.Description = description.String
	sv.Location = location.String
	sv.Price = parseDecimal(price)
	sv.Duration = duration.String
	sv.AssignedStaff = assignedStaff.String
	sv.Schedule = schedule.String
	return sv, nil
}

func (s *Store) GetService(ctx context.Context, id string) (*booking.SecurityService, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getService(ctx, id)
}

func (s *Store) getService(ctx context.Context, id string) (*booking.SecurityService, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+serviceColumns+` FROM services WHERE id = ?`, id)
	sv, err := scanService(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get service: %w", err)
	}
	return &sv, nil
}

func (s *Store) ListServices(ctx context.Context) ([]booking.SecurityService, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT `+serviceColumns+` FROM services ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	defer rows.Close()

	var out []booking.SecurityService
	for rows.Next() {
		sv, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sv)
	}
	return out, rows.Err()
}

func (s *Store) DeleteService(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM services WHERE id = ?`, id)
	return err
}

// =============================================================================
// RESERVATIONS
// =============================================================================

func (s *Store) SaveReservation(ctx context.Context, r booking.Reservation) (booking.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r.ID = ensureID(r.ID)
	query := `
		INSERT INTO reservations (id, client_id, program_id, reserved_at, state, observations, notified)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			client_id = excluded.client_id,
			program_id = excluded.program_id,
			reserved_at = excluded.reserved_at,
			state = excluded.state,
			observations = excluded.observations,
			notified = excluded.notified
	`
	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.ClientID, r.ProgramID, nullDate(r.ReservedAt),
		string(r.State), nullString(r.Observations), r.Notified,
	)
	if err != nil {
		return booking.Reservation{}, fmt.Errorf("failed to save reservation: %w", err)
	}
	return r, nil
}

const reservationColumns = `id, client_id, program_id, reserved_at, state, observations, notified`

func scanReservation(row interface{ Scan(...any) error }) (booking.Reservation, error) {
	var (
		r                        booking.Reservation
		reservedAt, observations sql.NullString
		state                    string
	)
	err := row.Scan(&r.ID, &r.ClientID, &r.ProgramID, &reservedAt, &state, &observations, &r.Notified)
	if err != nil {
		return r, err
	}
	r.ReservedAt = parseDate(reservedAt)
	r.State = booking.BookingState(state)
	r.Observations = observations.String
	return r, nil
}

func (s *Store) GetReservation(ctx context.Context, id string) (*booking.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getReservation(ctx, id)
}

func (s *Store) getReservation(ctx context.Context, id string) (*booking.Reservation, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	r, err := scanReservation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return &r, nil
}

// GetReservationDetail resolves the client and program references in the
// same call, for the notification step right after a confirming save.
func (s *Store) GetReservationDetail(ctx context.Context, id string) (*booking.ReservationDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, err := s.getReservation(ctx, id)
	if err != nil || r == nil {
		return nil, err
	}

	detail := &booking.ReservationDetail{Reservation: *r}
	if detail.Client, err = s.getClient(ctx, r.ClientID); err != nil {
		return nil, err
	}
	if detail.Program, err = s.getProgram(ctx, r.ProgramID); err != nil {
		return nil, err
	}
	return detail, nil
}

func (s *Store) ListReservations(ctx context.Context, f booking.ReservationFilter) ([]booking.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE 1=1`
	var args []any
	if f.ClientID != "" {
		query += ` AND client_id = ?`
		args = append(args, f.ClientID)
	}
	if f.ProgramID != "" {
		query += ` AND program_id = ?`
		args = append(args, f.ProgramID)
	}
	if f.State != "" {
		query += ` AND state = ?`
		args = append(args, string(f.State))
	}
	if !f.From.IsZero() {
		query += ` AND reserved_at >= ?`
		args = append(args, f.From.Format(dateLayout))
	}
	if !f.To.IsZero() {
		query += ` AND reserved_at <= ?`
		args = append(args, f.To.Format(dateLayout))
	}
	query += ` ORDER BY reserved_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	defer rows.Close()

	var out []booking.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) DeleteReservation(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	return err
}

// =============================================================================
// CONTRACTS
// =============================================================================

func (s *Store) SaveContract(ctx context.Context, c booking.Contract) (booking.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.ID = ensureID(c.ID)
	query := `
		INSERT INTO contracts (id, client_id, service_id, contracted_at, start_date, end_date, state, observations, notified)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			client_id = excluded.client_id,
			service_id = excluded.service_id,
			contracted_at = excluded.contracted_at,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			state = excluded.state,
			observations = excluded.observations,
			notified = excluded.notified
	`
	_, err := s.db.ExecContext(ctx, query,
		c.ID, c.ClientID, c.ServiceID, nullDate(c.ContractedAt),
		nullDate(c.StartDate), nullDate(c.EndDate), string(c.State),
		nullString(c.Observations), c.Notified,
	)
	if err != nil {
		return booking.Contract{}, fmt.Errorf("failed to save contract: %w", err)
	}
	return c, nil
}

const contractColumns = `id, client_id, service_id, contracted_at, start_date, end_date, state, observations, notified`

func scanContract(row interface{ Scan(...any) error }) (booking.Contract, error) {
	var (
		c                                              booking.Contract
		contractedAt, startDate, endDate, observations sql.NullString
		state                                          string
	)
	err := row.Scan(&c.ID, &c.ClientID, &c.ServiceID, &contractedAt, &startDate, &endDate,
		&state, &observations, &c.Notified)
	if err != nil {
		return c, err
	}
	c.ContractedAt = parseDate(contractedAt)
	c.StartDate = parseDate(startDate)
	c.EndDate = parseDate(endDate)
	c.State = booking.BookingState(state)
	c.Observations = observations.String
	return c, nil
}

func (s *Store) GetContract(ctx context.Context, id string) (*booking.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getContract(ctx, id)
}

func (s *Store) getContract(ctx context.Context, id string) (*booking.Contract, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+contractColumns+` FROM contracts WHERE id = ?`, id)
	c, err := scanContract(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contract: %w", err)
	}
	return &c, nil
}

func (s *Store) GetContractDetail(ctx context.Context, id string) (*booking.ContractDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, err := s.getContract(ctx, id)
	if err != nil || c == nil {
		return nil, err
	}

	detail := &booking.ContractDetail{Contract: *c}
	if detail.Client, err = s.getClient(ctx, c.ClientID); err != nil {
		return nil, err
	}
	if detail.Service, err = s.getService(ctx, c.ServiceID); err != nil {
		return nil, err
	}
	return detail, nil
}

func (s *Store) ListContracts(ctx context.Context, f booking.ContractFilter) ([]booking.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + contractColumns + ` FROM contracts WHERE 1=1`
	var args []any
	if f.ClientID != "" {
		query += ` AND client_id = ?`
		args = append(args, f.ClientID)
	}
	if f.ServiceID != "" {
		query += ` AND service_id = ?`
		args = append(args, f.ServiceID)
	}
	if f.State != "" {
		query += ` AND state = ?`
		args = append(args, string(f.State))
	}
	if !f.From.IsZero() {
		query += ` AND contracted_at >= ?`
		args = append(args, f.From.Format(dateLayout))
	}
	if !f.To.IsZero() {
		query += ` AND contracted_at <= ?`
		args = append(args, f.To.Format(dateLayout))
	}
	query += ` ORDER BY contracted_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	defer rows.Close()

	var out []booking.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) DeleteContract(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM contracts WHERE id = ?`, id)
	return err
}

// =============================================================================
// PAYMENTS
// =============================================================================

func (s *Store) SavePayment(ctx context.Context, p booking.Payment) (booking.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = ensureID(p.ID)
	// amount is deliberately absent from the UPDATE set; it is immutable
	// once created.
	query := `
		INSERT INTO payments (id, client_id, contract_id, amount, paid_at, method, state, reference_num, observations)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			client_id = excluded.client_id,
			contract_id = excluded.contract_id,
			paid_at = excluded.paid_at,
			method = excluded.method,
			state = excluded.state,
			reference_num = excluded.reference_num,
			observations = excluded.observations
	`
	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.ClientID, nullString(p.ContractID), p.Amount.String(),
		nullDate(p.PaidAt), nullString(p.Method), string(p.State),
		nullString(p.ReferenceNum), nullString(p.Observations),
	)
	if err != nil {
		return booking.Payment{}, fmt.Errorf("failed to save payment: %w", err)
	}
	return p, nil
}

const paymentColumns = `id, client_id, contract_id, amount, paid_at, method, state, reference_num, observations`

func scanPayment(row interface{ Scan(...any) error }) (booking.Payment, error) {
	var (
		p                                                booking.Payment
		contractID, paidAt, method, refNum, observations sql.NullString
		amount, state                                    string
	)
	err := row.Scan(&p.ID, &p.ClientID, &contractID, &amount, &paidAt, &method, &state, &refNum, &observations)
	if err != nil {
		return p, err
	}
	p.ContractID = contractID.String
	p.Amount = parseDecimal(amount)
	p.PaidAt = parseDate(paidAt)
	p.Method = method.String
	p.State = booking.PaymentState(state)
	p.ReferenceNum = refNum.String
	p.Observations = observations.String
	return p, nil
}

func (s *Store) GetPayment(ctx context.Context, id string) (*booking.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id)
	p, err := scanPayment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return &p, nil
}

func (s *Store) ListPayments(ctx context.Context, f booking.PaymentFilter) ([]booking.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listPayments(ctx, f)
}

func (s *Store) listPayments(ctx context.Context, f booking.PaymentFilter) ([]booking.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE 1=1`
	var args []any
	if f.ClientID != "" {
		query += ` AND client_id = ?`
		args = append(args, f.ClientID)
	}
	if f.ContractID != "" {
		query += ` AND contract_id = ?`
		args = append(args, f.ContractID)
	}
	if f.State != "" {
		query += ` AND state = ?`
		args = append(args, string(f.State))
	}
	if f.Method != "" {
		query += ` AND method = ?`
		args = append(args, f.Method)
	}
	if !f.From.IsZero() {
		query += ` AND paid_at >= ?`
		args = append(args, f.From.Format(dateLayout))
	}
	if !f.To.IsZero() {
		query += ` AND paid_at <= ?`
		args = append(args, f.To.Format(dateLayout))
	}
	query += ` ORDER BY paid_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var out []booking.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		// Amounts live in TEXT columns; comparing them in SQL would be
		// lexicographic, so the amount bounds are applied here.
		if f.MinAmount != nil && p.Amount.LessThan(*f.MinAmount) {
			continue
		}
		if f.MaxAmount != nil && p.Amount.GreaterThan(*f.MaxAmount) {
			continue
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) DeletePayment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM payments WHERE id = ?`, id)
	return err
}

func (s *Store) CompletedPaymentsForContract(ctx context.Context, contractID string) ([]booking.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listPayments(ctx, booking.PaymentFilter{
		ContractID: contractID,
		State:      booking.PaymentCompleted,
	})
}

// CompletedTotalBetween sums in Go with decimals; SQL SUM() over floats
// would lose exactness.
func (s *Store) CompletedTotalBetween(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payments, err := s.listPayments(ctx, booking.PaymentFilter{
		State: booking.PaymentCompleted,
		From:  from,
		To:    to,
	})
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total, nil
}

// =============================================================================
// OUTBOX (outbox.Store interface)
// =============================================================================

func (s *Store) Enqueue(ctx context.Context, m outbox.Message) (outbox.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m.ID = ensureID(m.ID)
	if m.Status == "" {
		m.Status = outbox.StatusPending
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO outbox (id, recipient, subject, body, status, attempts, last_error, created_at, sent_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Recipient, m.Subject, m.Body, string(m.Status), m.Attempts,
		nullString(m.LastError), m.CreatedAt.Format(time.RFC3339), nullTimestamp(m.SentAt),
	)
	if err != nil {
		return outbox.Message{}, fmt.Errorf("failed to enqueue message: %w", err)
	}
	return m, nil
}

func (s *Store) Pending(ctx context.Context, limit int) ([]outbox.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, recipient, subject, body, status, attempts, last_error, created_at, sent_at
		FROM outbox WHERE status = ? ORDER BY created_at ASC LIMIT ?`,
		string(outbox.StatusPending), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending messages: %w", err)
	}
	defer rows.Close()

	var out []outbox.Message
	for rows.Next() {
		var (
			m                 outbox.Message
			status, createdAt string
			lastError, sentAt sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.Recipient, &m.Subject, &m.Body, &status,
			&m.Attempts, &lastError, &createdAt, &sentAt); err != nil {
			return nil, err
		}
		m.Status = outbox.Status(status)
		m.LastError = lastError.String
		m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		m.SentAt = parseTimestamp(sentAt)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) MarkSent(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`UPDATE outbox SET status = ?, sent_at = ? WHERE id = ?`,
		string(outbox.StatusSent), at.UTC().Format(time.RFC3339), id)
	return err
}

func (s *Store) MarkFailed(ctx context.Context, id string, attempts int, lastError string, final bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := outbox.StatusPending
	if final {
		status = outbox.StatusFailed
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE outbox SET status = ?, attempts = ?, last_error = ? WHERE id = ?`,
		string(status), attempts, lastError, id)
	return err
}
