// Package sqlite implements store.Store on SQLite using the pure-Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/xraph/depot"
	"github.com/xraph/depot/booking"
	"github.com/xraph/depot/customer"
	"github.com/xraph/depot/id"
	"github.com/xraph/depot/inventory"
	depotstore "github.com/xraph/depot/store"
)

// compile-time interface check
var _ depotstore.Store = (*Store)(nil)

// Store implements store.Store using SQLite.
type Store struct {
	db *sql.DB
}

// Open opens, creating if needed, the database file at path.
func Open(path string) (*Store, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("depot/sqlite: open %s: %w", path, err)
	}
	// One writer at a time; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)
	return New(db), nil
}

// New wraps an already opened database.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying database for direct access.
func (s *Store) DB() *sql.DB { return s.db }

// Migrate applies every migration not yet recorded in depot_migrations.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS depot_migrations (
		version    TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("%w: %v", depot.ErrMigrationFailed, err)
	}

	applied := make(map[string]bool)
	rows, err := s.db.QueryContext(ctx, `SELECT version FROM depot_migrations`)
	if err != nil {
		return fmt.Errorf("%w: %v", depot.ErrMigrationFailed, err)
	}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return fmt.Errorf("%w: %v", depot.ErrMigrationFailed, err)
		}
		applied[v] = true
	}
	rows.Close()

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		err := s.inTx(ctx, func(tx *sql.Tx) error {
			for _, stmt := range m.Statements {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return err
				}
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO depot_migrations (version, name, applied_at) VALUES (?, ?, ?)`,
				m.Version, m.Name, formatTime(time.Now()))
			return err
		})
		if err != nil {
			return fmt.Errorf("%w: %s: %v", depot.ErrMigrationFailed, m.Name, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Customer Store ====================

func (s *Store) CreateCustomer(ctx context.Context, c *customer.Customer) error {
	args, err := customerArgs(c)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO depot_customers (`+customerColumns+`) VALUES (`+placeholders(len(args))+`)`, args...)
	return insertErr(err)
}

func (s *Store) GetCustomer(ctx context.Context, customerID id.CustomerID) (*customer.Customer, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM depot_customers WHERE id = ?`, customerID.String())
	c, err := scanCustomer(row)
	if isNoRows(err) {
		return nil, depot.ErrCustomerNotFound
	}
	return c, err
}

func (s *Store) UpdateCustomer(ctx context.Context, c *customer.Customer) error {
	args, err := customerArgs(c)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE depot_customers SET
		owner_key = ?, name = ?, phone = ?, book_id = ?, gender = ?, category = ?, subsidy = ?,
		address = ?, cylinders = ?, cylinder_type = ?, payment_status = ?, payment_amount = ?,
		currency = ?, last_payment_date = ?, payment_history = ?, created_at = ?, updated_at = ?
		WHERE id = ?`, append(args[1:], args[0])...)
	return affected(res, err, depot.ErrCustomerNotFound)
}

func (s *Store) DeleteCustomer(ctx context.Context, customerID id.CustomerID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM depot_customers WHERE id = ?`, customerID.String())
	return affected(res, err, depot.ErrCustomerNotFound)
}

func (s *Store) ListCustomers(ctx context.Context, opts customer.ListOpts) ([]*customer.Customer, error) {
	var f filter
	if opts.OwnerKey != "" {
		f.add("owner_key = ?", opts.OwnerKey)
	}
	if opts.Category != "" {
		f.add("category = ?", string(opts.Category))
	}
	if opts.Subsidy != nil {
		f.add("subsidy = ?", boolInt(*opts.Subsidy))
	}
	if q := strings.ToLower(strings.TrimSpace(opts.Search)); q != "" {
		like := "%" + q + "%"
		f.add("(lower(name) LIKE ? OR phone LIKE ? OR lower(book_id) LIKE ?)", like, like, like)
	}

	query := `SELECT ` + customerColumns + ` FROM depot_customers` + f.where() +
		` ORDER BY name ASC` + page(opts.Limit, opts.Offset)
	return queryAll(ctx, s.db, query, f.args, scanCustomer)
}

func (s *Store) FindCustomerByPhone(ctx context.Context, ownerKey, phone string) (*customer.Customer, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM depot_customers WHERE owner_key = ? AND phone = ? LIMIT 1`,
		ownerKey, phone)
	c, err := scanCustomer(row)
	if isNoRows(err) {
		return nil, depot.ErrCustomerNotFound
	}
	return c, err
}

func (s *Store) FindCustomerByBookID(ctx context.Context, ownerKey, bookID string) (*customer.Customer, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM depot_customers
		 WHERE owner_key = ? AND book_id = ? AND category = ? LIMIT 1`,
		ownerKey, bookID, string(customer.CategoryDomestic))
	c, err := scanCustomer(row)
	if isNoRows(err) {
		return nil, depot.ErrCustomerNotFound
	}
	return c, err
}

// ==================== Booking Store ====================

func (s *Store) CreateBooking(ctx context.Context, b *booking.Booking) error {
	args := bookingArgs(b)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO depot_bookings (`+bookingColumns+`) VALUES (`+placeholders(len(args))+`)`, args...)
	return insertErr(err)
}

func (s *Store) GetBooking(ctx context.Context, bookingID id.BookingID) (*booking.Booking, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM depot_bookings WHERE id = ?`, bookingID.String())
	b, err := scanBooking(row)
	if isNoRows(err) {
		return nil, depot.ErrBookingNotFound
	}
	return b, err
}

func (s *Store) UpdateBooking(ctx context.Context, b *booking.Booking) error {
	args := bookingArgs(b)
	res, err := s.db.ExecContext(ctx, `UPDATE depot_bookings SET
		owner_key = ?, customer_id = ?, cylinders = ?, cylinder_type = ?, dsc_code = ?,
		service_type = ?, delivery_date = ?, payment_status = ?, payment_amount = ?, currency = ?,
		last_payment_date = ?, status = ?, empty_cylinder_received = ?, stock_shortfall = ?,
		created_at = ?, updated_at = ?
		WHERE id = ?`, append(args[1:], args[0])...)
	return affected(res, err, depot.ErrBookingNotFound)
}

func (s *Store) DeleteBooking(ctx context.Context, bookingID id.BookingID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM depot_bookings WHERE id = ?`, bookingID.String())
	return affected(res, err, depot.ErrBookingNotFound)
}

func (s *Store) ListBookings(ctx context.Context, opts booking.ListOpts) ([]*booking.Booking, error) {
	var f filter
	if opts.OwnerKey != "" {
		f.add("owner_key = ?", opts.OwnerKey)
	}
	if !opts.CustomerID.IsNil() {
		f.add("customer_id = ?", opts.CustomerID.String())
	}
	if opts.DeliveryStatus != "" {
		f.add("status = ?", string(opts.DeliveryStatus))
	}
	if opts.PaymentStatus != "" {
		f.add("payment_status = ?", string(opts.PaymentStatus))
	}
	if !opts.From.IsZero() {
		f.add("delivery_date >= ?", formatTime(opts.From))
	}
	if !opts.To.IsZero() {
		f.add("delivery_date <= ?", formatTime(opts.To))
	}
	if !opts.UpdatedBefore.IsZero() {
		f.add("updated_at <= ?", formatTime(opts.UpdatedBefore))
	}

	query := `SELECT ` + bookingColumns + ` FROM depot_bookings` + f.where() +
		` ORDER BY created_at DESC` + page(opts.Limit, opts.Offset)
	return queryAll(ctx, s.db, query, f.args, scanBooking)
}

// ==================== Cylinder Store ====================

func (s *Store) AddCylinders(ctx context.Context, ownerKey string, key inventory.CylinderKey, qty int, at time.Time) ([]id.CylinderID, error) {
	ids := make([]id.CylinderID, 0, qty)
	stamp := formatTime(at)
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO depot_cylinders (id, owner_key, type, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for range qty {
			cid := id.NewCylinderID()
			if _, err := stmt.ExecContext(ctx, cid.String(), ownerKey, key.Type, string(key.Status), stamp, stamp); err != nil {
				return err
			}
			ids = append(ids, cid)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Store) CountCylinders(ctx context.Context, ownerKey string, key inventory.CylinderKey) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM depot_cylinders WHERE owner_key = ? AND type = ? AND status = ?`,
		ownerKey, key.Type, string(key.Status)).Scan(&n)
	return n, err
}

func (s *Store) RemoveCylinders(ctx context.Context, ownerKey string, key inventory.CylinderKey, qty int) ([]id.CylinderID, error) {
	var ids []id.CylinderID
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		ids, err = pickCylinders(ctx, tx, ownerKey, key, qty)
		if err != nil {
			return err
		}
		for _, cid := range ids {
			if _, err := tx.ExecContext(ctx, `DELETE FROM depot_cylinders WHERE id = ?`, cid.String()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Store) TransitionCylinders(ctx context.Context, ownerKey, cylinderType string, from, to inventory.CylinderStatus, qty int, at time.Time) ([]id.CylinderID, error) {
	var ids []id.CylinderID
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		ids, err = pickCylinders(ctx, tx, ownerKey, inventory.CylinderKey{Type: cylinderType, Status: from}, qty)
		if err != nil {
			return err
		}
		for _, cid := range ids {
			if _, err := tx.ExecContext(ctx,
				`UPDATE depot_cylinders SET status = ?, updated_at = ? WHERE id = ?`,
				string(to), formatTime(at), cid.String()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Store) CountAllCylinders(ctx context.Context, ownerKey string) (map[inventory.CylinderKey]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT type, status, COUNT(*) FROM depot_cylinders WHERE owner_key = ? GROUP BY type, status`, ownerKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[inventory.CylinderKey]int)
	for rows.Next() {
		var (
			typ, status string
			n           int
		)
		if err := rows.Scan(&typ, &status, &n); err != nil {
			return nil, err
		}
		counts[inventory.CylinderKey{Type: typ, Status: inventory.CylinderStatus(status)}] = n
	}
	return counts, rows.Err()
}

// pickCylinders selects the oldest qty units of a bucket, or fails with
// *depot.InsufficientStockError when fewer exist.
func pickCylinders(ctx context.Context, tx *sql.Tx, ownerKey string, key inventory.CylinderKey, qty int) ([]id.CylinderID, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM depot_cylinders WHERE owner_key = ? AND type = ? AND status = ? ORDER BY id LIMIT ?`,
		ownerKey, key.Type, string(key.Status), qty)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]id.CylinderID, 0, qty)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		cid, err := id.ParseCylinderID(raw)
		if err != nil {
			return nil, err
		}
		ids = append(ids, cid)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) < qty {
		return nil, &depot.InsufficientStockError{
			Type:      key.Type,
			Status:    key.Status,
			Requested: qty,
			Available: len(ids),
		}
	}
	return ids, nil
}

// ==================== Stove Store ====================

func (s *Store) CreateStove(ctx context.Context, st *inventory.Stove) error {
	args, err := stoveArgs(st)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO depot_stoves (`+stoveColumns+`) VALUES (`+placeholders(len(args))+`)`, args...)
	return insertErr(err)
}

func (s *Store) GetStove(ctx context.Context, stoveID id.StoveID) (*inventory.Stove, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+stoveColumns+` FROM depot_stoves WHERE id = ?`, stoveID.String())
	st, err := scanStove(row)
	if isNoRows(err) {
		return nil, depot.ErrStoveNotFound
	}
	return st, err
}

func (s *Store) UpdateStove(ctx context.Context, st *inventory.Stove) error {
	args, err := stoveArgs(st)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE depot_stoves SET
		owner_key = ?, model = ?, status = ?, borrower = ?, payment_status = ?, lent_at = ?,
		created_at = ?, updated_at = ?
		WHERE id = ?`, append(args[1:], args[0])...)
	return affected(res, err, depot.ErrStoveNotFound)
}

func (s *Store) DeleteStove(ctx context.Context, stoveID id.StoveID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM depot_stoves WHERE id = ?`, stoveID.String())
	return affected(res, err, depot.ErrStoveNotFound)
}

func (s *Store) ListStoves(ctx context.Context, opts inventory.StoveListOpts) ([]*inventory.Stove, error) {
	var f filter
	if opts.OwnerKey != "" {
		f.add("owner_key = ?", opts.OwnerKey)
	}
	if opts.Model != "" {
		f.add("model = ?", opts.Model)
	}
	if opts.Status != "" {
		f.add("status = ?", string(opts.Status))
	}
	query := `SELECT ` + stoveColumns + ` FROM depot_stoves` + f.where() + ` ORDER BY id ASC`
	return queryAll(ctx, s.db, query, f.args, scanStove)
}

// ==================== Lending Record Store ====================

func (s *Store) CreateLendingRecord(ctx context.Context, r *inventory.LendingRecord) error {
	args, err := lendingArgs(r)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO depot_lending_records (`+lendingColumns+`) VALUES (`+placeholders(len(args))+`)`, args...)
	return insertErr(err)
}

func (s *Store) ListLendingRecords(ctx context.Context, opts inventory.LendingListOpts) ([]*inventory.LendingRecord, error) {
	var f filter
	if opts.OwnerKey != "" {
		f.add("owner_key = ?", opts.OwnerKey)
	}
	if !opts.CustomerID.IsNil() {
		f.add("customer_id = ?", opts.CustomerID.String())
	}
	if !opts.ReturnedBefore.IsZero() {
		f.add("returned_at <= ?", formatTime(opts.ReturnedBefore))
	}
	query := `SELECT ` + lendingColumns + ` FROM depot_lending_records` + f.where() + ` ORDER BY returned_at DESC`
	return queryAll(ctx, s.db, query, f.args, scanLending)
}

func (s *Store) DeleteLendingRecord(ctx context.Context, recordID id.LendingRecordID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM depot_lending_records WHERE id = ?`, recordID.String())
	return affected(res, err, depot.ErrLendingRecordNotFound)
}

// ==================== Helpers ====================

// filter accumulates WHERE clauses and their arguments.
type filter struct {
	clauses []string
	args    []any
}

func (f *filter) add(clause string, args ...any) {
	f.clauses = append(f.clauses, clause)
	f.args = append(f.args, args...)
}

func (f *filter) where() string {
	if len(f.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.clauses, " AND ")
}

// page renders LIMIT/OFFSET. SQLite needs a LIMIT before any OFFSET.
func page(limit, offset int) string {
	switch {
	case limit > 0 && offset > 0:
		return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
	case limit > 0:
		return fmt.Sprintf(" LIMIT %d", limit)
	case offset > 0:
		return fmt.Sprintf(" LIMIT -1 OFFSET %d", offset)
	}
	return ""
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func queryAll[T any](ctx context.Context, db *sql.DB, query string, args []any, scan func(scanner) (T, error)) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback() //nolint:errcheck // best-effort rollback
		return err
	}
	return tx.Commit()
}

func affected(res sql.Result, err error, notFound error) error {
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return notFound
	}
	return nil
}

func insertErr(err error) error {
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %v", depot.ErrAlreadyExists, err)
	}
	return err
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
