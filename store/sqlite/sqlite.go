/*
Package sqlite provides a SQLite-backed implementation of booking.TxStore.

PURPOSE:
  Implements all persistence interfaces of the booking engine using SQLite.
  In production, the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

KEY TABLES:
  properties:            Rentable units
  reservations:          Bookings (public_id unique, external_event_id unique when set)
  reservation_contracts: One contract per reservation (hash unique)
  property_revenues:     Revenue periods (weak reference to a reservation)
  user_properties:       Concierge assignments

INDEXES:
  - idx_reservations_property_dates: availability probe (hot path)
  - idx_reservations_external_event: one booking per calendar event
  - idx_user_properties_active:      one active concierge per property
  - idx_revenues_reservation:        one revenue record per reservation
  - idx_revenues_property_dates:     revenue overlap probe

UNIQUENESS MAPPING:
  UNIQUE constraint failures are translated to booking sentinels:
  reservations.public_id / reservation_contracts.hash  -> ErrDuplicateToken
  reservations.external_event_id                      -> ErrDuplicateExternalEvent
  user_properties.property_id                         -> *AssignmentConflictError
  property_revenues.reservation_id                    -> ErrRevenueExists

CONCURRENCY:
  The pool is capped at one connection. WithTx holds it for the whole unit
  of work, so a guard's read and its write never interleave with another
  unit. Reads outside WithTx queue behind running units.

USAGE:
  store, err := sqlite.New("./data/booking.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - booking/store.go: Interface definitions
  - booking/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/trevio/booking-engine/booking"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements booking.TxStore using SQLite.
type Store struct {
	repo
	db *sql.DB
}

var _ booking.TxStore = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" databases alive and serializes units of work.
	db.SetMaxOpenConns(1)

	store := &Store{repo: repo{q: db}, db: db}
	if err := store.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// dsn appends the connection options, keeping any query string already on path.
func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS properties (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		latitude REAL NOT NULL DEFAULT 0,
		longitude REAL NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_properties_owner
		ON properties(owner_id);

	CREATE TABLE IF NOT EXISTS reservations (
		id TEXT PRIMARY KEY,
		property_id TEXT NOT NULL REFERENCES properties(id) ON DELETE CASCADE,
		created_by TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		total_price TEXT NOT NULL,
		booking_source TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'draft',
		public_id TEXT NOT NULL UNIQUE,
		lock_code TEXT NOT NULL DEFAULT '',
		lock_enabled BOOLEAN NOT NULL DEFAULT FALSE,
		external_event_id TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		CHECK (end_date >= start_date)
	);

	-- Availability probe: property + status + dates
	CREATE INDEX IF NOT EXISTS idx_reservations_property_dates
		ON reservations(property_id, status, start_date, end_date);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_reservations_external_event
		ON reservations(external_event_id) WHERE external_event_id IS NOT NULL;

	CREATE TABLE IF NOT EXISTS reservation_contracts (
		id TEXT PRIMARY KEY,
		reservation_id TEXT NOT NULL UNIQUE REFERENCES reservations(id) ON DELETE CASCADE,
		hash TEXT NOT NULL UNIQUE,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'DRAFT',
		guest_json TEXT NOT NULL DEFAULT '{}',
		signed_at TEXT,
		signer_ip TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS property_revenues (
		id TEXT PRIMARY KEY,
		property_id TEXT NOT NULL REFERENCES properties(id) ON DELETE CASCADE,
		reservation_id TEXT REFERENCES reservations(id) ON DELETE SET NULL,
		amount TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		created_by TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		CHECK (end_date >= start_date)
	);

	CREATE INDEX IF NOT EXISTS idx_revenues_property_dates
		ON property_revenues(property_id, start_date, end_date);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_revenues_reservation
		ON property_revenues(reservation_id) WHERE reservation_id IS NOT NULL;

	CREATE TABLE IF NOT EXISTS user_properties (
		id TEXT PRIMARY KEY,
		client_id TEXT NOT NULL,
		concierge_id TEXT NOT NULL,
		property_id TEXT NOT NULL REFERENCES properties(id) ON DELETE CASCADE,
		status TEXT NOT NULL DEFAULT 'active',
		assigned_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_user_properties_concierge
		ON user_properties(concierge_id);
	CREATE INDEX IF NOT EXISTS idx_user_properties_client
		ON user_properties(client_id);

	-- CRITICAL: at most one active concierge per property
	CREATE UNIQUE INDEX IF NOT EXISTS idx_user_properties_active
		ON user_properties(property_id) WHERE status = 'active';
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Reset deletes all rows (dev and demo scenarios only).
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM user_properties;
		DELETE FROM property_revenues;
		DELETE FROM reservation_contracts;
		DELETE FROM reservations;
		DELETE FROM properties;
	`)
	if err != nil {
		return fmt.Errorf("failed to reset database: %w", err)
	}
	return nil
}

// =============================================================================
// TRANSACTIONAL STORE (booking.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store booking.Store) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&repo{q: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// repo runs every query through q, which is the pool or an open transaction.
type repo struct {
	q queryer
}

// =============================================================================
// PROPERTY STORE
// =============================================================================

func (r *repo) SaveProperty(ctx context.Context, p booking.Property) error {
	query := `
		INSERT INTO properties (id, owner_id, name, status, latitude, longitude, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner_id = excluded.owner_id,
			name = excluded.name,
			status = excluded.status,
			latitude = excluded.latitude,
			longitude = excluded.longitude
	`
	_, err := r.q.ExecContext(ctx, query,
		p.ID, p.OwnerID, p.Name, string(p.Status), p.Latitude, p.Longitude, formatTime(p.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save property: %w", err)
	}
	return nil
}

func (r *repo) GetProperty(ctx context.Context, id string) (*booking.Property, error) {
	var (
		p         booking.Property
		status    string
		createdAt string
	)
	err := r.q.QueryRowContext(ctx,
		"SELECT id, owner_id, name, status, latitude, longitude, created_at FROM properties WHERE id = ?",
		id,
	).Scan(&p.ID, &p.OwnerID, &p.Name, &status, &p.Latitude, &p.Longitude, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, booking.ErrPropertyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get property: %w", err)
	}
	p.Status = booking.PropertyStatus(status)
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteProperty relies on ON DELETE CASCADE for owned rows.
func (r *repo) DeleteProperty(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx, "DELETE FROM properties WHERE id = ?", id)
	return err
}

// =============================================================================
// RESERVATION STORE
// =============================================================================

const reservationColumns = `id, property_id, created_by, start_date, end_date, total_price,
	booking_source, status, public_id, lock_code, lock_enabled, external_event_id,
	created_at, updated_at`

func (r *repo) InsertReservation(ctx context.Context, res booking.Reservation) error {
	query := `INSERT INTO reservations (` + reservationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.q.ExecContext(ctx, query,
		res.ID, res.PropertyID, res.CreatedBy,
		res.Range.Start.String(), res.Range.End.String(),
		res.TotalPrice.String(), res.BookingSource, string(res.Status),
		res.PublicID, res.LockCode, res.LockEnabled, nullString(res.ExternalEventID),
		formatTime(res.CreatedAt), formatTime(res.UpdatedAt),
	)
	if err != nil {
		if mapped := mapUniqueError(err); mapped != nil {
			return mapped
		}
		if isForeignKeyError(err) {
			return booking.ErrPropertyNotFound
		}
		return fmt.Errorf("failed to insert reservation: %w", err)
	}
	return nil
}

func (r *repo) UpdateReservation(ctx context.Context, res booking.Reservation) error {
	query := `
		UPDATE reservations SET
			start_date = ?, end_date = ?, total_price = ?, booking_source = ?, status = ?,
			public_id = ?, lock_code = ?, lock_enabled = ?, external_event_id = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.q.ExecContext(ctx, query,
		res.Range.Start.String(), res.Range.End.String(),
		res.TotalPrice.String(), res.BookingSource, string(res.Status),
		res.PublicID, res.LockCode, res.LockEnabled, nullString(res.ExternalEventID),
		formatTime(res.UpdatedAt), res.ID,
	)
	if err != nil {
		if mapped := mapUniqueError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("failed to update reservation: %w", err)
	}
	return requireRow(result, booking.ErrReservationNotFound)
}

// DeleteReservation relies on ON DELETE CASCADE (contract) and
// ON DELETE SET NULL (revenue reference).
func (r *repo) DeleteReservation(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx, "DELETE FROM reservations WHERE id = ?", id)
	return err
}

func (r *repo) GetReservation(ctx context.Context, id string) (*booking.Reservation, error) {
	return r.getReservation(ctx, "id = ?", id)
}

func (r *repo) GetReservationByPublicID(ctx context.Context, publicID string) (*booking.Reservation, error) {
	return r.getReservation(ctx, "public_id = ?", publicID)
}

func (r *repo) getReservation(ctx context.Context, where string, arg any) (*booking.Reservation, error) {
	list, err := r.queryReservations(ctx,
		"SELECT "+reservationColumns+" FROM reservations WHERE "+where+" LIMIT 1", arg)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, booking.ErrReservationNotFound
	}
	return &list[0], nil
}

func (r *repo) ListReservationsByProperty(ctx context.Context, propertyID string) ([]booking.Reservation, error) {
	return r.queryReservations(ctx,
		"SELECT "+reservationColumns+" FROM reservations WHERE property_id = ? ORDER BY start_date ASC, id ASC",
		propertyID)
}

// FindActiveOverlapping is the availability probe:
// existing.start <= new.end AND existing.end >= new.start.
func (r *repo) FindActiveOverlapping(ctx context.Context, propertyID string, dr booking.DateRange, excludeID string) ([]booking.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations
		WHERE property_id = ?
		  AND status IN ('sent', 'signed', 'confirmed')
		  AND id != ?
		  AND start_date <= ? AND end_date >= ?
		ORDER BY start_date ASC, id ASC`
	return r.queryReservations(ctx, query, propertyID, excludeID, dr.End.String(), dr.Start.String())
}

func (r *repo) queryReservations(ctx context.Context, query string, args ...any) ([]booking.Reservation, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reservations: %w", err)
	}
	defer rows.Close()

	var out []booking.Reservation
	for rows.Next() {
		var (
			res                  booking.Reservation
			start, end, status   string
			externalEventID      sql.NullString
			createdAt, updatedAt string
		)
		err := rows.Scan(
			&res.ID, &res.PropertyID, &res.CreatedBy, &start, &end, &res.TotalPrice,
			&res.BookingSource, &status, &res.PublicID, &res.LockCode, &res.LockEnabled,
			&externalEventID, &createdAt, &updatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		if res.Range, err = parseRange(start, end); err != nil {
			return nil, err
		}
		res.Status = booking.ReservationStatus(status)
		if externalEventID.Valid {
			res.ExternalEventID = &externalEventID.String
		}
		if res.CreatedAt, res.UpdatedAt, err = parseTimestamps(createdAt, updatedAt); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// =============================================================================
// CONTRACT STORE
// =============================================================================

const contractColumns = `id, reservation_id, hash, start_date, end_date, status,
	guest_json, signed_at, signer_ip, created_at, updated_at`

func (r *repo) InsertContract(ctx context.Context, c booking.Contract) error {
	guestJSON, err := json.Marshal(c.Guest)
	if err != nil {
		return fmt.Errorf("failed to encode guest details: %w", err)
	}
	query := `INSERT INTO reservation_contracts (` + contractColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.q.ExecContext(ctx, query,
		c.ID, c.ReservationID, c.Hash,
		c.Range.Start.String(), c.Range.End.String(), string(c.Status),
		string(guestJSON), nullTime(c.SignedAt), c.SignerIP,
		formatTime(c.CreatedAt), formatTime(c.UpdatedAt),
	)
	if err != nil {
		if mapped := mapUniqueError(err); mapped != nil {
			return mapped
		}
		if isForeignKeyError(err) {
			return booking.ErrReservationNotFound
		}
		return fmt.Errorf("failed to insert contract: %w", err)
	}
	return nil
}

func (r *repo) UpdateContract(ctx context.Context, c booking.Contract) error {
	guestJSON, err := json.Marshal(c.Guest)
	if err != nil {
		return fmt.Errorf("failed to encode guest details: %w", err)
	}
	query := `
		UPDATE reservation_contracts SET
			hash = ?, start_date = ?, end_date = ?, status = ?, guest_json = ?,
			signed_at = ?, signer_ip = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.q.ExecContext(ctx, query,
		c.Hash, c.Range.Start.String(), c.Range.End.String(), string(c.Status), string(guestJSON),
		nullTime(c.SignedAt), c.SignerIP, formatTime(c.UpdatedAt), c.ID,
	)
	if err != nil {
		if mapped := mapUniqueError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("failed to update contract: %w", err)
	}
	return requireRow(result, booking.ErrContractNotFound)
}

func (r *repo) DeleteContract(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx, "DELETE FROM reservation_contracts WHERE id = ?", id)
	return err
}

func (r *repo) GetContract(ctx context.Context, id string) (*booking.Contract, error) {
	return r.getContract(ctx, "id = ?", id)
}

func (r *repo) GetContractByHash(ctx context.Context, hash string) (*booking.Contract, error) {
	return r.getContract(ctx, "hash = ?", hash)
}

func (r *repo) GetContractByReservation(ctx context.Context, reservationID string) (*booking.Contract, error) {
	return r.getContract(ctx, "reservation_id = ?", reservationID)
}

func (r *repo) getContract(ctx context.Context, where string, arg any) (*booking.Contract, error) {
	var (
		c                    booking.Contract
		start, end, status   string
		guestJSON            string
		signedAt             sql.NullString
		createdAt, updatedAt string
	)
	err := r.q.QueryRowContext(ctx,
		"SELECT "+contractColumns+" FROM reservation_contracts WHERE "+where, arg,
	).Scan(&c.ID, &c.ReservationID, &c.Hash, &start, &end, &status,
		&guestJSON, &signedAt, &c.SignerIP, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, booking.ErrContractNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contract: %w", err)
	}

	if c.Range, err = parseRange(start, end); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(guestJSON), &c.Guest); err != nil {
		return nil, fmt.Errorf("failed to decode guest details: %w", err)
	}
	c.Status = booking.ContractStatus(status)
	if signedAt.Valid {
		t, err := parseTime(signedAt.String)
		if err != nil {
			return nil, err
		}
		c.SignedAt = &t
	}
	if c.CreatedAt, c.UpdatedAt, err = parseTimestamps(createdAt, updatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// =============================================================================
// ASSIGNMENT STORE
// =============================================================================

const assignmentColumns = `id, client_id, concierge_id, property_id, status, assigned_at`

func (r *repo) InsertAssignment(ctx context.Context, a booking.Assignment) error {
	_, err := r.q.ExecContext(ctx,
		"INSERT INTO user_properties ("+assignmentColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		a.ID, a.ClientID, a.ConciergeID, a.PropertyID, string(a.Status), formatTime(a.AssignedAt),
	)
	if err != nil {
		if mapped := mapUniqueError(err); mapped != nil {
			if errors.Is(mapped, errActiveAssignment) {
				return r.assignmentConflict(ctx, a.PropertyID)
			}
			return mapped
		}
		if isForeignKeyError(err) {
			return booking.ErrPropertyNotFound
		}
		return fmt.Errorf("failed to insert assignment: %w", err)
	}
	return nil
}

func (r *repo) UpdateAssignment(ctx context.Context, a booking.Assignment) error {
	result, err := r.q.ExecContext(ctx,
		"UPDATE user_properties SET client_id = ?, concierge_id = ?, status = ?, assigned_at = ? WHERE id = ?",
		a.ClientID, a.ConciergeID, string(a.Status), formatTime(a.AssignedAt), a.ID,
	)
	if err != nil {
		if mapped := mapUniqueError(err); mapped != nil {
			if errors.Is(mapped, errActiveAssignment) {
				return r.assignmentConflict(ctx, a.PropertyID)
			}
			return mapped
		}
		return fmt.Errorf("failed to update assignment: %w", err)
	}
	return requireRow(result, booking.ErrAssignmentNotFound)
}

func (r *repo) DeleteAssignment(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx, "DELETE FROM user_properties WHERE id = ?", id)
	return err
}

func (r *repo) GetAssignment(ctx context.Context, id string) (*booking.Assignment, error) {
	list, err := r.queryAssignments(ctx, "id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, booking.ErrAssignmentNotFound
	}
	return &list[0], nil
}

func (r *repo) ListAssignmentsByProperty(ctx context.Context, propertyID string) ([]booking.Assignment, error) {
	return r.queryAssignments(ctx, "property_id = ?", propertyID)
}

func (r *repo) ListAssignmentsByConcierge(ctx context.Context, conciergeID string) ([]booking.Assignment, error) {
	return r.queryAssignments(ctx, "concierge_id = ?", conciergeID)
}

func (r *repo) ListAssignmentsByClient(ctx context.Context, clientID string) ([]booking.Assignment, error) {
	return r.queryAssignments(ctx, "client_id = ?", clientID)
}

func (r *repo) queryAssignments(ctx context.Context, where string, arg any) ([]booking.Assignment, error) {
	rows, err := r.q.QueryContext(ctx,
		"SELECT "+assignmentColumns+" FROM user_properties WHERE "+where+" ORDER BY assigned_at ASC, id ASC", arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	var out []booking.Assignment
	for rows.Next() {
		var (
			a                  booking.Assignment
			status, assignedAt string
		)
		if err := rows.Scan(&a.ID, &a.ClientID, &a.ConciergeID, &a.PropertyID, &status, &assignedAt); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		a.Status = booking.AssignmentStatus(status)
		var err error
		if a.AssignedAt, err = parseTime(assignedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// =============================================================================
// REVENUE STORE
// =============================================================================

const revenueColumns = `id, property_id, reservation_id, amount, start_date, end_date,
	notes, created_by, created_at, updated_at`

func (r *repo) InsertRevenue(ctx context.Context, rev booking.Revenue) error {
	_, err := r.q.ExecContext(ctx,
		"INSERT INTO property_revenues ("+revenueColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		rev.ID, rev.PropertyID, nullString(rev.ReservationID), rev.Amount.String(),
		rev.Range.Start.String(), rev.Range.End.String(),
		rev.Notes, rev.CreatedBy, formatTime(rev.CreatedAt), formatTime(rev.UpdatedAt),
	)
	if err != nil {
		if mapped := mapUniqueError(err); mapped != nil {
			return mapped
		}
		if isForeignKeyError(err) {
			return fmt.Errorf("%w: unknown property or reservation", booking.ErrInvalidInput)
		}
		return fmt.Errorf("failed to insert revenue: %w", err)
	}
	return nil
}

func (r *repo) UpdateRevenue(ctx context.Context, rev booking.Revenue) error {
	result, err := r.q.ExecContext(ctx, `
		UPDATE property_revenues SET
			reservation_id = ?, amount = ?, start_date = ?, end_date = ?, notes = ?, updated_at = ?
		WHERE id = ?`,
		nullString(rev.ReservationID), rev.Amount.String(),
		rev.Range.Start.String(), rev.Range.End.String(),
		rev.Notes, formatTime(rev.UpdatedAt), rev.ID,
	)
	if err != nil {
		if mapped := mapUniqueError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("failed to update revenue: %w", err)
	}
	return requireRow(result, booking.ErrRevenueNotFound)
}

func (r *repo) DeleteRevenue(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx, "DELETE FROM property_revenues WHERE id = ?", id)
	return err
}

func (r *repo) GetRevenue(ctx context.Context, id string) (*booking.Revenue, error) {
	return r.getRevenue(ctx, "id = ?", id)
}

func (r *repo) GetRevenueByReservation(ctx context.Context, reservationID string) (*booking.Revenue, error) {
	return r.getRevenue(ctx, "reservation_id = ?", reservationID)
}

func (r *repo) getRevenue(ctx context.Context, where string, arg any) (*booking.Revenue, error) {
	list, err := r.queryRevenue(ctx,
		"SELECT "+revenueColumns+" FROM property_revenues WHERE "+where+" LIMIT 1", arg)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, booking.ErrRevenueNotFound
	}
	return &list[0], nil
}

func (r *repo) ListRevenueByProperty(ctx context.Context, propertyID string) ([]booking.Revenue, error) {
	return r.queryRevenue(ctx,
		"SELECT "+revenueColumns+" FROM property_revenues WHERE property_id = ? ORDER BY start_date ASC, id ASC",
		propertyID)
}

func (r *repo) FindOverlappingRevenue(ctx context.Context, propertyID string, dr booking.DateRange, excludeID string) ([]booking.Revenue, error) {
	query := `SELECT ` + revenueColumns + ` FROM property_revenues
		WHERE property_id = ?
		  AND id != ?
		  AND start_date <= ? AND end_date >= ?
		ORDER BY start_date ASC, id ASC`
	return r.queryRevenue(ctx, query, propertyID, excludeID, dr.End.String(), dr.Start.String())
}

func (r *repo) queryRevenue(ctx context.Context, query string, args ...any) ([]booking.Revenue, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query revenue: %w", err)
	}
	defer rows.Close()

	var out []booking.Revenue
	for rows.Next() {
		var (
			rev                  booking.Revenue
			reservationID        sql.NullString
			amount               decimal.Decimal
			start, end           string
			createdAt, updatedAt string
		)
		err := rows.Scan(&rev.ID, &rev.PropertyID, &reservationID, &amount, &start, &end,
			&rev.Notes, &rev.CreatedBy, &createdAt, &updatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan revenue: %w", err)
		}
		if rev.Range, err = parseRange(start, end); err != nil {
			return nil, err
		}
		if reservationID.Valid {
			rev.ReservationID = &reservationID.String
		}
		rev.Amount = amount
		if rev.CreatedAt, rev.UpdatedAt, err = parseTimestamps(createdAt, updatedAt); err != nil {
			return nil, err
		}
		out = append(out, rev)
	}
	return out, rows.Err()
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

// errActiveAssignment marks a violation of idx_user_properties_active.
var errActiveAssignment = fmt.Errorf("%w: property already has an active concierge", booking.ErrConflict)

// mapUniqueError translates a UNIQUE violation into the booking sentinel for
// the offending column. It returns nil for any other error.
func mapUniqueError(err error) error {
	if !isUniqueConstraintError(err) {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "reservations.public_id"),
		strings.Contains(msg, "reservation_contracts.hash"):
		return booking.ErrDuplicateToken
	case strings.Contains(msg, "reservations.external_event_id"):
		return booking.ErrDuplicateExternalEvent
	case strings.Contains(msg, "property_revenues.reservation_id"):
		return booking.ErrRevenueExists
	case strings.Contains(msg, "reservation_contracts.reservation_id"):
		return fmt.Errorf("%w: reservation already has a contract", booking.ErrConflict)
	case strings.Contains(msg, "user_properties.property_id"):
		return errActiveAssignment
	}
	return fmt.Errorf("%w: %v", booking.ErrConflict, err)
}

// assignmentConflict reports which concierge holds the property. A failed
// statement does not abort the surrounding transaction, so the holder is
// still readable here.
func (r *repo) assignmentConflict(ctx context.Context, propertyID string) error {
	var conciergeID string
	err := r.q.QueryRowContext(ctx,
		"SELECT concierge_id FROM user_properties WHERE property_id = ? AND status = 'active'",
		propertyID,
	).Scan(&conciergeID)
	if err != nil {
		return errActiveAssignment
	}
	return &booking.AssignmentConflictError{PropertyID: propertyID, ActiveConciergeID: conciergeID}
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// Helper functions

func requireRow(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func parseTimestamps(created, updated string) (time.Time, time.Time, error) {
	c, err := parseTime(created)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	u, err := parseTime(updated)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return c, u, nil
}

func parseRange(start, end string) (booking.DateRange, error) {
	s, err := booking.ParseDate(start)
	if err != nil {
		return booking.DateRange{}, err
	}
	e, err := booking.ParseDate(end)
	if err != nil {
		return booking.DateRange{}, err
	}
	return booking.DateRange{Start: s, End: e}, nil
}
