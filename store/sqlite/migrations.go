package sqlite

// migration is one versioned schema step. Statements run in order inside a
// single transaction; SQLite executes one statement at a time.
type migration struct {
	Version    string
	Name       string
	Statements []string
}

// migrations is the ordered schema history of the Depot SQLite store.
var migrations = []migration{
	{
		Version: "20260301000001",
		Name:    "create_depot_customers",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS depot_customers (
				id                TEXT PRIMARY KEY,
				owner_key         TEXT NOT NULL,
				name              TEXT NOT NULL DEFAULT '',
				phone             TEXT NOT NULL DEFAULT '',
				book_id           TEXT NOT NULL DEFAULT '',
				gender            TEXT NOT NULL DEFAULT '',
				category          TEXT NOT NULL DEFAULT 'Domestic',
				subsidy           INTEGER NOT NULL DEFAULT 0,
				address           TEXT NOT NULL DEFAULT '',
				cylinders         INTEGER NOT NULL DEFAULT 1,
				cylinder_type     TEXT NOT NULL DEFAULT '',
				payment_status    TEXT NOT NULL DEFAULT 'Pending',
				payment_amount    INTEGER NOT NULL DEFAULT 0,
				currency          TEXT NOT NULL DEFAULT 'inr',
				last_payment_date TEXT,
				payment_history   TEXT NOT NULL DEFAULT '[]',
				created_at        TEXT NOT NULL,
				updated_at        TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_depot_customers_phone ON depot_customers (owner_key, phone)`,
			`CREATE INDEX IF NOT EXISTS idx_depot_customers_book ON depot_customers (owner_key, book_id)`,
		},
	},
	{
		Version: "20260301000002",
		Name:    "create_depot_bookings",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS depot_bookings (
				id                      TEXT PRIMARY KEY,
				owner_key               TEXT NOT NULL,
				customer_id             TEXT NOT NULL,
				cylinders               INTEGER NOT NULL,
				cylinder_type           TEXT NOT NULL,
				dsc_code                TEXT NOT NULL,
				service_type            TEXT NOT NULL,
				delivery_date           TEXT NOT NULL,
				payment_status          TEXT NOT NULL,
				payment_amount          INTEGER NOT NULL DEFAULT 0,
				currency                TEXT NOT NULL DEFAULT 'inr',
				last_payment_date       TEXT,
				status                  TEXT NOT NULL,
				empty_cylinder_received INTEGER NOT NULL DEFAULT 0,
				stock_shortfall         INTEGER NOT NULL DEFAULT 0,
				created_at              TEXT NOT NULL,
				updated_at              TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_depot_bookings_owner ON depot_bookings (owner_key, created_at)`,
			`CREATE INDEX IF NOT EXISTS idx_depot_bookings_retention ON depot_bookings (status, payment_status, updated_at)`,
		},
	},
	{
		Version: "20260301000003",
		Name:    "create_depot_cylinders",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS depot_cylinders (
				id         TEXT PRIMARY KEY,
				owner_key  TEXT NOT NULL,
				type       TEXT NOT NULL,
				status     TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_depot_cylinders_bucket ON depot_cylinders (owner_key, type, status)`,
		},
	},
	{
		Version: "20260301000004",
		Name:    "create_depot_stoves",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS depot_stoves (
				id             TEXT PRIMARY KEY,
				owner_key      TEXT NOT NULL,
				model          TEXT NOT NULL,
				status         TEXT NOT NULL,
				borrower       TEXT,
				payment_status TEXT NOT NULL DEFAULT '',
				lent_at        TEXT,
				created_at     TEXT NOT NULL,
				updated_at     TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_depot_stoves_model ON depot_stoves (owner_key, model, status)`,
		},
	},
	{
		Version: "20260301000005",
		Name:    "create_depot_lending_records",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS depot_lending_records (
				id             TEXT PRIMARY KEY,
				owner_key      TEXT NOT NULL,
				stove_id       TEXT NOT NULL,
				stove_model    TEXT NOT NULL,
				customer_id    TEXT NOT NULL,
				borrower       TEXT NOT NULL,
				payment_status TEXT NOT NULL,
				lent_at        TEXT NOT NULL,
				returned_at    TEXT NOT NULL,
				status         TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_depot_lending_returned ON depot_lending_records (owner_key, returned_at)`,
		},
	},
}
