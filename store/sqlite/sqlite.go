/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements allocation.TxStore and allocation.Directory using SQLite.
  In production, the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

KEY TABLES:
  allocations:      Allocation records with status and cost fields
  allocation_notes: Append-only note entries (rejection audit trail)
  assignments:      Committed capacity, UNIQUE per allocation
  employees:        Directory records with department and hourly rate
  projects:         Directory records
  notifications:    Fire-and-forget notification log

OVERLAP QUERY:
  FindOverlapping uses the inclusive interval test
  start_date <= :to AND end_date >= :from, so ranges that touch at a
  single day still intersect.

CONCURRENCY:
  WithTx runs under a process-wide mutex plus a database transaction.
  SQLite allows one writer at a time anyway; the mutex makes the
  read-check-then-write inside an approval a serialized unit even
  before the database sees it.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  multiple readers don't block, single writer at a time, better crash
  recovery.

USAGE:
  store, err := sqlite.New("./data/allocations.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - allocation/store.go: Interface definitions
  - allocation/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/allocation-engine/allocation"
)

// Store implements allocation.TxStore and allocation.Directory.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite permits one writer; a single pooled connection also keeps
	// ":memory:" databases coherent across calls.
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
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		department TEXT,
		hourly_rate TEXT NOT NULL DEFAULT '0',
		active INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS allocations (
		id TEXT PRIMARY KEY,
		employee_id TEXT,
		project_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		percent TEXT NOT NULL,
		status TEXT NOT NULL,
		hourly_rate TEXT NOT NULL DEFAULT '0',
		estimated_cost TEXT NOT NULL DEFAULT '0',
		requested_by TEXT NOT NULL,
		requested_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_allocations_employee_status_dates
		ON allocations(employee_id, status, start_date, end_date);

	-- Append-only note entries
	CREATE TABLE IF NOT EXISTS allocation_notes (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		allocation_id TEXT NOT NULL,
		noted_at TEXT NOT NULL,
		actor TEXT NOT NULL,
		note TEXT NOT NULL,
		FOREIGN KEY (allocation_id) REFERENCES allocations(id)
	);

	CREATE TABLE IF NOT EXISTS assignments (
		id TEXT PRIMARY KEY,
		allocation_id TEXT NOT NULL UNIQUE,
		employee_id TEXT NOT NULL,
		project_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		percent TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		FOREIGN KEY (allocation_id) REFERENCES allocations(id)
	);

	CREATE INDEX IF NOT EXISTS idx_assignments_status_end
		ON assignments(status, end_date);

	CREATE TABLE IF NOT EXISTS notifications (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		recipient TEXT NOT NULL,
		subject TEXT NOT NULL,
		body TEXT,
		severity TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Reset wipes all data. Demo and test use only.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{
		"allocation_notes", "assignments", "allocations",
		"employees", "projects", "notifications",
	} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const dayFormat = "2006-01-02"

func formatDay(t allocation.TimePoint) string { return t.Time.Format(dayFormat) }

func parseDay(s string) (allocation.TimePoint, error) {
	return allocation.ParseDay(s)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// =============================================================================
// ALLOCATION STORE
// =============================================================================

// Put runs in its own transaction so the notes rewrite (delete then
// re-insert) can never be torn by a crash between statements.
func (s *Store) Put(ctx context.Context, alloc *allocation.Allocation) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := s.put(ctx, dbTx, alloc); err != nil {
		dbTx.Rollback()
		return err
	}
	return dbTx.Commit()
}

func (s *Store) put(ctx context.Context, q querier, alloc *allocation.Allocation) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO allocations
			(id, employee_id, project_id, start_date, end_date, percent, status,
			 hourly_rate, estimated_cost, requested_by, requested_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			employee_id = excluded.employee_id,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			percent = excluded.percent,
			status = excluded.status,
			hourly_rate = excluded.hourly_rate,
			estimated_cost = excluded.estimated_cost,
			requested_at = excluded.requested_at,
			updated_at = excluded.updated_at`,
		string(alloc.ID), string(alloc.Employee), string(alloc.Project),
		formatDay(alloc.Window.Start), formatDay(alloc.Window.End),
		alloc.Percent.String(), string(alloc.Status),
		alloc.HourlyRate.String(), alloc.EstimatedCost.String(),
		alloc.RequestedBy, formatTime(alloc.RequestedAt),
		formatTime(alloc.CreatedAt), formatTime(alloc.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to put allocation: %w", err)
	}

	// Notes are replaced from the record; the domain layer only ever
	// appends to them.
	if _, err := q.ExecContext(ctx, `DELETE FROM allocation_notes WHERE allocation_id = ?`, string(alloc.ID)); err != nil {
		return fmt.Errorf("failed to rewrite notes: %w", err)
	}
	for _, n := range alloc.Notes {
		_, err := q.ExecContext(ctx, `
			INSERT INTO allocation_notes (allocation_id, noted_at, actor, note)
			VALUES (?, ?, ?, ?)`,
			string(alloc.ID), formatDay(n.At), n.Actor, n.Text)
		if err != nil {
			return fmt.Errorf("failed to append note: %w", err)
		}
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id allocation.AllocationID) (*allocation.Allocation, error) {
	return s.get(ctx, s.db, id)
}

const allocationColumns = `id, employee_id, project_id, start_date, end_date, percent, status,
	hourly_rate, estimated_cost, requested_by, requested_at, created_at, updated_at`

func (s *Store) get(ctx context.Context, q querier, id allocation.AllocationID) (*allocation.Allocation, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+allocationColumns+` FROM allocations WHERE id = ?`, string(id))
	alloc, err := scanAllocation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, allocation.ErrNotFound
		}
		return nil, err
	}
	if err := s.loadNotes(ctx, q, alloc); err != nil {
		return nil, err
	}
	return alloc, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAllocation(row rowScanner) (*allocation.Allocation, error) {
	var (
		id, employee, project, startDate, endDate string
		percent, status, rate, cost               string
		requestedBy, requestedAt                  string
		createdAt, updatedAt                      string
	)
	if err := row.Scan(&id, &employee, &project, &startDate, &endDate,
		&percent, &status, &rate, &cost, &requestedBy, &requestedAt,
		&createdAt, &updatedAt); err != nil {
		return nil, err
	}

	start, err := parseDay(startDate)
	if err != nil {
		return nil, fmt.Errorf("bad start_date %q: %w", startDate, err)
	}
	end, err := parseDay(endDate)
	if err != nil {
		return nil, fmt.Errorf("bad end_date %q: %w", endDate, err)
	}

	return &allocation.Allocation{
		ID:            allocation.AllocationID(id),
		Employee:      allocation.EmployeeID(employee),
		Project:       allocation.ProjectID(project),
		Window:        allocation.NewPeriod(start, end),
		Percent:       parseDecimal(percent),
		Status:        allocation.Status(status),
		HourlyRate:    parseDecimal(rate),
		EstimatedCost: parseDecimal(cost),
		RequestedBy:   requestedBy,
		RequestedAt:   parseTime(requestedAt),
		CreatedAt:     parseTime(createdAt),
		UpdatedAt:     parseTime(updatedAt),
	}, nil
}

func (s *Store) loadNotes(ctx context.Context, q querier, alloc *allocation.Allocation) error {
	rows, err := q.QueryContext(ctx, `
		SELECT noted_at, actor, note FROM allocation_notes
		WHERE allocation_id = ? ORDER BY seq`, string(alloc.ID))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var notedAt, actor, text string
		if err := rows.Scan(&notedAt, &actor, &text); err != nil {
			return err
		}
		at, err := parseDay(notedAt)
		if err != nil {
			return fmt.Errorf("bad noted_at %q: %w", notedAt, err)
		}
		alloc.Notes = append(alloc.Notes, allocation.Note{At: at, Actor: actor, Text: text})
	}
	return rows.Err()
}

func (s *Store) FindOverlapping(
	ctx context.Context,
	employee allocation.EmployeeID,
	window allocation.Period,
	statuses []allocation.Status,
	excludeID allocation.AllocationID,
) ([]allocation.Allocation, error) {
	return s.findOverlapping(ctx, s.db, employee, window, statuses, excludeID)
}

func (s *Store) findOverlapping(
	ctx context.Context,
	q querier,
	employee allocation.EmployeeID,
	window allocation.Period,
	statuses []allocation.Status,
	excludeID allocation.AllocationID,
) ([]allocation.Allocation, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	query := `SELECT ` + allocationColumns + ` FROM allocations
		WHERE employee_id = ?
		AND start_date <= ? AND end_date >= ?
		AND status IN (` + placeholders(len(statuses)) + `)`
	args := []any{string(employee), formatDay(window.End), formatDay(window.Start)}
	for _, st := range statuses {
		args = append(args, string(st))
	}
	if excludeID != "" {
		query += ` AND id != ?`
		args = append(args, string(excludeID))
	}
	query += ` ORDER BY id`

	return s.queryAllocations(ctx, q, query, args...)
}

func (s *Store) ListByStatus(ctx context.Context, statuses []allocation.Status) ([]allocation.Allocation, error) {
	return s.listByStatus(ctx, s.db, statuses)
}

func (s *Store) listByStatus(ctx context.Context, q querier, statuses []allocation.Status) ([]allocation.Allocation, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	query := `SELECT ` + allocationColumns + ` FROM allocations
		WHERE status IN (` + placeholders(len(statuses)) + `) ORDER BY id`
	var args []any
	for _, st := range statuses {
		args = append(args, string(st))
	}
	return s.queryAllocations(ctx, q, query, args...)
}

func (s *Store) queryAllocations(ctx context.Context, q querier, query string, args ...any) ([]allocation.Allocation, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("allocation query failed: %w", err)
	}

	var result []allocation.Allocation
	for rows.Next() {
		alloc, err := scanAllocation(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		result = append(result, *alloc)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	// Notes are loaded per record; result sets here are small.
	for i := range result {
		if err := s.loadNotes(ctx, q, &result[i]); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *Store) Delete(ctx context.Context, id allocation.AllocationID) error {
	return s.deleteAllocation(ctx, s.db, id)
}

func (s *Store) deleteAllocation(ctx context.Context, q querier, id allocation.AllocationID) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM allocation_notes WHERE allocation_id = ?`, string(id)); err != nil {
		return err
	}
	res, err := q.ExecContext(ctx, `DELETE FROM allocations WHERE id = ?`, string(id))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return allocation.ErrNotFound
	}
	return nil
}

func placeholders(n int) string {
	out := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			out += ", "
		}
		out += "?"
	}
	return out
}

// =============================================================================
// ASSIGNMENT STORE
// =============================================================================

func (s *Store) CreateAssignment(ctx context.Context, a *allocation.Assignment) error {
	return s.createAssignment(ctx, s.db, a)
}

func (s *Store) createAssignment(ctx context.Context, q querier, a *allocation.Assignment) error {
	// Checked insert keeps the error typed; the UNIQUE constraint on
	// allocation_id is the backstop.
	var existing string
	err := q.QueryRowContext(ctx,
		`SELECT id FROM assignments WHERE allocation_id = ?`, string(a.AllocationID)).Scan(&existing)
	if err == nil {
		return allocation.ErrDuplicateAssignment
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO assignments
			(id, allocation_id, employee_id, project_id, start_date, end_date, percent, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(a.ID), string(a.AllocationID), string(a.Employee), string(a.Project),
		formatDay(a.Window.Start), formatDay(a.Window.End),
		a.Percent.String(), string(a.Status), formatTime(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to create assignment: %w", err)
	}
	return nil
}

const assignmentColumns = `id, allocation_id, employee_id, project_id, start_date, end_date, percent, status, created_at`

func scanAssignment(row rowScanner) (*allocation.Assignment, error) {
	var (
		id, allocID, employee, project string
		startDate, endDate, percent    string
		status, createdAt              string
	)
	if err := row.Scan(&id, &allocID, &employee, &project,
		&startDate, &endDate, &percent, &status, &createdAt); err != nil {
		return nil, err
	}

	start, err := parseDay(startDate)
	if err != nil {
		return nil, fmt.Errorf("bad start_date %q: %w", startDate, err)
	}
	end, err := parseDay(endDate)
	if err != nil {
		return nil, fmt.Errorf("bad end_date %q: %w", endDate, err)
	}

	return &allocation.Assignment{
		ID:           allocation.AssignmentID(id),
		AllocationID: allocation.AllocationID(allocID),
		Employee:     allocation.EmployeeID(employee),
		Project:      allocation.ProjectID(project),
		Window:       allocation.NewPeriod(start, end),
		Percent:      parseDecimal(percent),
		Status:       allocation.AssignmentStatus(status),
		CreatedAt:    parseTime(createdAt),
	}, nil
}

func (s *Store) AssignmentForAllocation(ctx context.Context, id allocation.AllocationID) (*allocation.Assignment, error) {
	return s.assignmentForAllocation(ctx, s.db, id)
}

func (s *Store) assignmentForAllocation(ctx context.Context, q querier, id allocation.AllocationID) (*allocation.Assignment, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE allocation_id = ?`, string(id))
	a, err := scanAssignment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, allocation.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (s *Store) ListAssignments(ctx context.Context, status allocation.AssignmentStatus) ([]allocation.Assignment, error) {
	return s.listAssignments(ctx, s.db, status)
}

func (s *Store) listAssignments(ctx context.Context, q querier, status allocation.AssignmentStatus) ([]allocation.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY id`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("assignment query failed: %w", err)
	}
	defer rows.Close()

	var result []allocation.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

func (s *Store) SetAssignmentStatus(ctx context.Context, id allocation.AssignmentID, status allocation.AssignmentStatus) error {
	return s.setAssignmentStatus(ctx, s.db, id, status)
}

func (s *Store) setAssignmentStatus(ctx context.Context, q querier, id allocation.AssignmentID, status allocation.AssignmentStatus) error {
	res, err := q.ExecContext(ctx,
		`UPDATE assignments SET status = ? WHERE id = ?`, string(status), string(id))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return allocation.ErrNotFound
	}
	return nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn inside a database transaction, serialized by a
// process-wide mutex. The approval transition depends on this: the
// feasibility re-check and the commit are one unit.
func (s *Store) WithTx(ctx context.Context, fn func(tx allocation.Mutator) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&txStore{parent: s, q: dbTx}); err != nil {
		dbTx.Rollback()
		return err
	}
	return dbTx.Commit()
}

// txStore routes Mutator calls through the open transaction.
type txStore struct {
	parent *Store
	q      *sql.Tx
}

func (t *txStore) Put(ctx context.Context, alloc *allocation.Allocation) error {
	return t.parent.put(ctx, t.q, alloc)
}

func (t *txStore) Get(ctx context.Context, id allocation.AllocationID) (*allocation.Allocation, error) {
	return t.parent.get(ctx, t.q, id)
}

func (t *txStore) FindOverlapping(ctx context.Context, employee allocation.EmployeeID, window allocation.Period, statuses []allocation.Status, excludeID allocation.AllocationID) ([]allocation.Allocation, error) {
	return t.parent.findOverlapping(ctx, t.q, employee, window, statuses, excludeID)
}

func (t *txStore) ListByStatus(ctx context.Context, statuses []allocation.Status) ([]allocation.Allocation, error) {
	return t.parent.listByStatus(ctx, t.q, statuses)
}

func (t *txStore) Delete(ctx context.Context, id allocation.AllocationID) error {
	return t.parent.deleteAllocation(ctx, t.q, id)
}

func (t *txStore) CreateAssignment(ctx context.Context, a *allocation.Assignment) error {
	return t.parent.createAssignment(ctx, t.q, a)
}

func (t *txStore) AssignmentForAllocation(ctx context.Context, id allocation.AllocationID) (*allocation.Assignment, error) {
	return t.parent.assignmentForAllocation(ctx, t.q, id)
}

func (t *txStore) ListAssignments(ctx context.Context, status allocation.AssignmentStatus) ([]allocation.Assignment, error) {
	return t.parent.listAssignments(ctx, t.q, status)
}

func (t *txStore) SetAssignmentStatus(ctx context.Context, id allocation.AssignmentID, status allocation.AssignmentStatus) error {
	return t.parent.setAssignmentStatus(ctx, t.q, id, status)
}

// =============================================================================
// DIRECTORY
// =============================================================================

func (s *Store) SaveEmployee(ctx context.Context, e allocation.Employee) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (id, name, department, hourly_rate, active)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			department = excluded.department,
			hourly_rate = excluded.hourly_rate,
			active = excluded.active`,
		string(e.ID), e.Name, e.Department, e.HourlyRate.String(), boolToInt(e.Active))
	return err
}

func (s *Store) SaveProject(ctx context.Context, p allocation.Project) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, active)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			active = excluded.active`,
		string(p.ID), p.Name, boolToInt(p.Active))
	return err
}

func (s *Store) ActiveEmployees(ctx context.Context) ([]allocation.Employee, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, department, hourly_rate, active
		FROM employees WHERE active = 1 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []allocation.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}
	return result, rows.Err()
}

func (s *Store) GetEmployee(ctx context.Context, id allocation.EmployeeID) (*allocation.Employee, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, department, hourly_rate, active
		FROM employees WHERE id = ?`, string(id))
	e, err := scanEmployee(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, allocation.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func scanEmployee(row rowScanner) (*allocation.Employee, error) {
	var (
		id, name, department, rate string
		active                     int
	)
	if err := row.Scan(&id, &name, &department, &rate, &active); err != nil {
		return nil, err
	}
	return &allocation.Employee{
		ID:         allocation.EmployeeID(id),
		Name:       name,
		Department: department,
		HourlyRate: parseDecimal(rate),
		Active:     active != 0,
	}, nil
}

func (s *Store) GetProject(ctx context.Context, id allocation.ProjectID) (*allocation.Project, error) {
	var (
		pid, name string
		active    int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, active FROM projects WHERE id = ?`, string(id)).
		Scan(&pid, &name, &active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, allocation.ErrNotFound
		}
		return nil, err
	}
	return &allocation.Project{ID: allocation.ProjectID(pid), Name: name, Active: active != 0}, nil
}

func (s *Store) ListProjects(ctx context.Context) ([]allocation.Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, active FROM projects ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []allocation.Project
	for rows.Next() {
		var (
			id, name string
			active   int
		)
		if err := rows.Scan(&id, &name, &active); err != nil {
			return nil, err
		}
		result = append(result, allocation.Project{
			ID: allocation.ProjectID(id), Name: name, Active: active != 0,
		})
	}
	return result, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// =============================================================================
// NOTIFICATION LOG
// =============================================================================

// Send implements allocation.Notifier by persisting the notification.
// Delivery to an external channel is someone else's job; the log is the
// record that it was emitted.
func (s *Store) Send(ctx context.Context, n allocation.Notification) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (recipient, subject, body, severity, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		n.Recipient, n.Subject, n.Body, string(n.Severity), formatTime(time.Now()))
	return err
}

// ListNotifications returns the most recent notifications, newest first.
func (s *Store) ListNotifications(ctx context.Context, limit int) ([]allocation.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT recipient, subject, body, severity FROM notifications
		ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []allocation.Notification
	for rows.Next() {
		var n allocation.Notification
		var severity string
		if err := rows.Scan(&n.Recipient, &n.Subject, &n.Body, &severity); err != nil {
			return nil, err
		}
		n.Severity = allocation.Severity(severity)
		result = append(result, n)
	}
	return result, rows.Err()
}
