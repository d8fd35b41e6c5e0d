// Package postgres implements store.Store on PostgreSQL using pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xraph/depot"
	"github.com/xraph/depot/booking"
	"github.com/xraph/depot/customer"
	"github.com/xraph/depot/id"
	"github.com/xraph/depot/inventory"
	depotstore "github.com/xraph/depot/store"
)

// compile-time interface check
var _ depotstore.Store = (*Store)(nil)

// migrationLockID keys the advisory lock that keeps concurrent Migrate calls
// from racing.
const migrationLockID = 0x6465706f74

// Store implements store.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New connects a pool to databaseURL.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("depot/postgres: connect: %w", err)
	}
	return NewFromPool(pool), nil
}

// NewFromPool wraps an existing pool.
func NewFromPool(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Pool returns the underlying pool for direct access.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// Migrate applies every migration not yet recorded in depot_migrations.
func (s *Store) Migrate(ctx context.Context) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, migrationLockID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `CREATE TABLE IF NOT EXISTS depot_migrations (
			version    TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
			return err
		}

		rows, err := tx.Query(ctx, `SELECT version FROM depot_migrations`)
		if err != nil {
			return err
		}
		applied, err := pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return err
		}
		done := make(map[string]bool, len(applied))
		for _, v := range applied {
			done[v] = true
		}

		for _, m := range migrations {
			if done[m.Version] {
				continue
			}
			if _, err := tx.Exec(ctx, m.Up); err != nil {
				return fmt.Errorf("%s: %w", m.Name, err)
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO depot_migrations (version, name) VALUES ($1, $2)`, m.Version, m.Name); err != nil {
				return fmt.Errorf("%s: %w", m.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", depot.ErrMigrationFailed, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// ==================== Customer Store ====================

func (s *Store) CreateCustomer(ctx context.Context, c *customer.Customer) error {
	args, err := customerArgs(c)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO depot_customers (`+customerColumns+`) VALUES (`+placeholders(len(args))+`)`, args...)
	return insertErr(err)
}

func (s *Store) GetCustomer(ctx context.Context, customerID id.CustomerID) (*customer.Customer, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM depot_customers WHERE id = $1`, customerID.String())
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
	tag, err := s.pool.Exec(ctx, `UPDATE depot_customers SET
		owner_key = $2, name = $3, phone = $4, book_id = $5, gender = $6, category = $7, subsidy = $8,
		address = $9, cylinders = $10, cylinder_type = $11, payment_status = $12, payment_amount = $13,
		currency = $14, last_payment_date = $15, payment_history = $16, created_at = $17, updated_at = $18
		WHERE id = $1`, args...)
	return affected(tag, err, depot.ErrCustomerNotFound)
}

func (s *Store) DeleteCustomer(ctx context.Context, customerID id.CustomerID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM depot_customers WHERE id = $1`, customerID.String())
	return affected(tag, err, depot.ErrCustomerNotFound)
}

func (s *Store) ListCustomers(ctx context.Context, opts customer.ListOpts) ([]*customer.Customer, error) {
	var f filter
	if opts.OwnerKey != "" {
		f.add("owner_key = $%d", opts.OwnerKey)
	}
	if opts.Category != "" {
		f.add("category = $%d", string(opts.Category))
	}
	if opts.Subsidy != nil {
		f.add("subsidy = $%d", *opts.Subsidy)
	}
	if q := strings.ToLower(strings.TrimSpace(opts.Search)); q != "" {
		f.add("(lower(name) LIKE $%[1]d OR phone LIKE $%[1]d OR lower(book_id) LIKE $%[1]d)", "%"+q+"%")
	}

	query := `SELECT ` + customerColumns + ` FROM depot_customers` + f.where() +
		` ORDER BY name ASC` + page(opts.Limit, opts.Offset)
	return queryAll(ctx, s.pool, query, f.args, scanCustomer)
}

func (s *Store) FindCustomerByPhone(ctx context.Context, ownerKey, phone string) (*customer.Customer, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM depot_customers WHERE owner_key = $1 AND phone = $2 LIMIT 1`,
		ownerKey, phone)
	c, err := scanCustomer(row)
	if isNoRows(err) {
		return nil, depot.ErrCustomerNotFound
	}
	return c, err
}

func (s *Store) FindCustomerByBookID(ctx context.Context, ownerKey, bookID string) (*customer.Customer, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM depot_customers
		 WHERE owner_key = $1 AND book_id = $2 AND category = $3 LIMIT 1`,
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
	_, err := s.pool.Exec(ctx,
		`INSERT INTO depot_bookings (`+bookingColumns+`) VALUES (`+placeholders(len(args))+`)`, args...)
	return insertErr(err)
}

func (s *Store) GetBooking(ctx context.Context, bookingID id.BookingID) (*booking.Booking, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM depot_bookings WHERE id = $1`, bookingID.String())
	b, err := scanBooking(row)
	if isNoRows(err) {
		return nil, depot.ErrBookingNotFound
	}
	return b, err
}

func (s *Store) UpdateBooking(ctx context.Context, b *booking.Booking) error {
	tag, err := s.pool.Exec(ctx, `UPDATE depot_bookings SET
		owner_key = $2, customer_id = $3, cylinders = $4, cylinder_type = $5, dsc_code = $6,
		service_type = $7, delivery_date = $8, payment_status = $9, payment_amount = $10, currency = $11,
		last_payment_date = $12, status = $13, empty_cylinder_received = $14, stock_shortfall = $15,
		created_at = $16, updated_at = $17
		WHERE id = $1`, bookingArgs(b)...)
	return affected(tag, err, depot.ErrBookingNotFound)
}

func (s *Store) DeleteBooking(ctx context.Context, bookingID id.BookingID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM depot_bookings WHERE id = $1`, bookingID.String())
	return affected(tag, err, depot.ErrBookingNotFound)
}

func (s *Store) ListBookings(ctx context.Context, opts booking.ListOpts) ([]*booking.Booking, error) {
	var f filter
	if opts.OwnerKey != "" {
		f.add("owner_key = $%d", opts.OwnerKey)
	}
	if !opts.CustomerID.IsNil() {
		f.add("customer_id = $%d", opts.CustomerID.String())
	}
	if opts.DeliveryStatus != "" {
		f.add("status = $%d", string(opts.DeliveryStatus))
	}
	if opts.PaymentStatus != "" {
		f.add("payment_status = $%d", string(opts.PaymentStatus))
	}
	if !opts.From.IsZero() {
		f.add("delivery_date >= $%d", opts.From.UTC())
	}
	if !opts.To.IsZero() {
		f.add("delivery_date <= $%d", opts.To.UTC())
	}
	if !opts.UpdatedBefore.IsZero() {
		f.add("updated_at <= $%d", opts.UpdatedBefore.UTC())
	}

	query := `SELECT ` + bookingColumns + ` FROM depot_bookings` + f.where() +
		` ORDER BY created_at DESC` + page(opts.Limit, opts.Offset)
	return queryAll(ctx, s.pool, query, f.args, scanBooking)
}

// ==================== Cylinder Store ====================

func (s *Store) AddCylinders(ctx context.Context, ownerKey string, key inventory.CylinderKey, qty int, at time.Time) ([]id.CylinderID, error) {
	ids := make([]id.CylinderID, 0, qty)
	rows := make([][]any, 0, qty)
	for range qty {
		cid := id.NewCylinderID()
		ids = append(ids, cid)
		rows = append(rows, []any{cid.String(), ownerKey, key.Type, string(key.Status), at.UTC(), at.UTC()})
	}

	_, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"depot_cylinders"},
		[]string{"id", "owner_key", "type", "status", "created_at", "updated_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Store) CountCylinders(ctx context.Context, ownerKey string, key inventory.CylinderKey) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM depot_cylinders WHERE owner_key = $1 AND type = $2 AND status = $3`,
		ownerKey, key.Type, string(key.Status)).Scan(&n)
	return n, err
}

func (s *Store) RemoveCylinders(ctx context.Context, ownerKey string, key inventory.CylinderKey, qty int) ([]id.CylinderID, error) {
	var ids []id.CylinderID
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		ids, err = lockCylinders(ctx, tx, ownerKey, key, qty)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `DELETE FROM depot_cylinders WHERE id = ANY($1)`, idStrings(ids))
		return err
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Store) TransitionCylinders(ctx context.Context, ownerKey, cylinderType string, from, to inventory.CylinderStatus, qty int, at time.Time) ([]id.CylinderID, error) {
	var ids []id.CylinderID
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		ids, err = lockCylinders(ctx, tx, ownerKey, inventory.CylinderKey{Type: cylinderType, Status: from}, qty)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`UPDATE depot_cylinders SET status = $1, updated_at = $2 WHERE id = ANY($3)`,
			string(to), at.UTC(), idStrings(ids))
		return err
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Store) CountAllCylinders(ctx context.Context, ownerKey string) (map[inventory.CylinderKey]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT type, status, COUNT(*) FROM depot_cylinders WHERE owner_key = $1 GROUP BY type, status`, ownerKey)
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

// lockCylinders row-locks the oldest qty units of a bucket, or fails with
// *depot.InsufficientStockError when fewer exist.
func lockCylinders(ctx context.Context, tx pgx.Tx, ownerKey string, key inventory.CylinderKey, qty int) ([]id.CylinderID, error) {
	rows, err := tx.Query(ctx,
		`SELECT id FROM depot_cylinders WHERE owner_key = $1 AND type = $2 AND status = $3
		 ORDER BY id LIMIT $4 FOR UPDATE`,
		ownerKey, key.Type, string(key.Status), qty)
	if err != nil {
		return nil, err
	}
	raw, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	if len(raw) < qty {
		return nil, &depot.InsufficientStockError{
			Type:      key.Type,
			Status:    key.Status,
			Requested: qty,
			Available: len(raw),
		}
	}

	ids := make([]id.CylinderID, len(raw))
	for i, r := range raw {
		if ids[i], err = id.ParseCylinderID(r); err != nil {
			return nil, err
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
	_, err = s.pool.Exec(ctx,
		`INSERT INTO depot_stoves (`+stoveColumns+`) VALUES (`+placeholders(len(args))+`)`, args...)
	return insertErr(err)
}

func (s *Store) GetStove(ctx context.Context, stoveID id.StoveID) (*inventory.Stove, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+stoveColumns+` FROM depot_stoves WHERE id = $1`, stoveID.String())
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
	tag, err := s.pool.Exec(ctx, `UPDATE depot_stoves SET
		owner_key = $2, model = $3, status = $4, borrower = $5, payment_status = $6, lent_at = $7,
		created_at = $8, updated_at = $9
		WHERE id = $1`, args...)
	return affected(tag, err, depot.ErrStoveNotFound)
}

func (s *Store) DeleteStove(ctx context.Context, stoveID id.StoveID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM depot_stoves WHERE id = $1`, stoveID.String())
	return affected(tag, err, depot.ErrStoveNotFound)
}

func (s *Store) ListStoves(ctx context.Context, opts inventory.StoveListOpts) ([]*inventory.Stove, error) {
	var f filter
	if opts.OwnerKey != "" {
		f.add("owner_key = $%d", opts.OwnerKey)
	}
	if opts.Model != "" {
		f.add("model = $%d", opts.Model)
	}
	if opts.Status != "" {
		f.add("status = $%d", string(opts.Status))
	}
	query := `SELECT ` + stoveColumns + ` FROM depot_stoves` + f.where() + ` ORDER BY id ASC`
	return queryAll(ctx, s.pool, query, f.args, scanStove)
}

// ==================== Lending Record Store ====================

func (s *Store) CreateLendingRecord(ctx context.Context, r *inventory.LendingRecord) error {
	args, err := lendingArgs(r)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO depot_lending_records (`+lendingColumns+`) VALUES (`+placeholders(len(args))+`)`, args...)
	return insertErr(err)
}

func (s *Store) ListLendingRecords(ctx context.Context, opts inventory.LendingListOpts) ([]*inventory.LendingRecord, error) {
	var f filter
	if opts.OwnerKey != "" {
		f.add("owner_key = $%d", opts.OwnerKey)
	}
	if !opts.CustomerID.IsNil() {
		f.add("customer_id = $%d", opts.CustomerID.String())
	}
	if !opts.ReturnedBefore.IsZero() {
		f.add("returned_at <= $%d", opts.ReturnedBefore.UTC())
	}
	query := `SELECT ` + lendingColumns + ` FROM depot_lending_records` + f.where() + ` ORDER BY returned_at DESC`
	return queryAll(ctx, s.pool, query, f.args, scanLending)
}

func (s *Store) DeleteLendingRecord(ctx context.Context, recordID id.LendingRecordID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM depot_lending_records WHERE id = $1`, recordID.String())
	return affected(tag, err, depot.ErrLendingRecordNotFound)
}

// ==================== Helpers ====================

// filter accumulates WHERE clauses. Each clause carries one $%d verb (or
// $%[1]d repeated) that is numbered as the clause is added.
type filter struct {
	clauses []string
	args    []any
}

func (f *filter) add(clause string, arg any) {
	f.args = append(f.args, arg)
	f.clauses = append(f.clauses, fmt.Sprintf(clause, len(f.args)))
}

func (f *filter) where() string {
	if len(f.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.clauses, " AND ")
}

func page(limit, offset int) string {
	var b strings.Builder
	if limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", limit)
	}
	if offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", offset)
	}
	return b.String()
}

func placeholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", i+1)
	}
	return strings.Join(parts, ", ")
}

func queryAll[T any](ctx context.Context, pool *pgxpool.Pool, query string, args []any, scan func(scanner) (T, error)) ([]T, error) {
	rows, err := pool.Query(ctx, query, args...)
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

func idStrings(ids []id.CylinderID) []string {
	out := make([]string, len(ids))
	for i, cid := range ids {
		out[i] = cid.String()
	}
	return out
}

func affected(tag pgconn.CommandTag, err error, notFound error) error {
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFound
	}
	return nil
}

func insertErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", depot.ErrAlreadyExists, pgErr.ConstraintName)
	}
	return err
}

// isNoRows checks for the pgx no-rows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
