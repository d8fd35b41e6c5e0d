package postgres

type migration struct {
	Version string
	Name    string
	Up      string
}

// migrations is the ordered schema history of the Depot PostgreSQL store.
var migrations = []migration{
	{
		Version: "20260301000001",
		Name:    "create_depot_customers",
		Up: `
CREATE TABLE IF NOT EXISTS depot_customers (
    id                TEXT PRIMARY KEY,
    owner_key         TEXT NOT NULL,
    name              TEXT NOT NULL DEFAULT '',
    phone             TEXT NOT NULL DEFAULT '',
    book_id           TEXT NOT NULL DEFAULT '',
    gender            TEXT NOT NULL DEFAULT '',
    category          TEXT NOT NULL DEFAULT 'Domestic',
    subsidy           BOOLEAN NOT NULL DEFAULT FALSE,
    address           TEXT NOT NULL DEFAULT '',
    cylinders         INTEGER NOT NULL DEFAULT 1,
    cylinder_type     TEXT NOT NULL DEFAULT '',
    payment_status    TEXT NOT NULL DEFAULT 'Pending',
    payment_amount    BIGINT NOT NULL DEFAULT 0,
    currency          TEXT NOT NULL DEFAULT 'inr',
    last_payment_date TIMESTAMPTZ,
    payment_history   JSONB NOT NULL DEFAULT '[]',
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_depot_customers_phone ON depot_customers (owner_key, phone);
CREATE INDEX IF NOT EXISTS idx_depot_customers_book ON depot_customers (owner_key, book_id) WHERE category = 'Domestic';
`,
	},
	{
		Version: "20260301000002",
		Name:    "create_depot_bookings",
		Up: `
CREATE TABLE IF NOT EXISTS depot_bookings (
    id                      TEXT PRIMARY KEY,
    owner_key               TEXT NOT NULL,
    customer_id             TEXT NOT NULL,
    cylinders               INTEGER NOT NULL,
    cylinder_type           TEXT NOT NULL,
    dsc_code                TEXT NOT NULL,
    service_type            TEXT NOT NULL,
    delivery_date           TIMESTAMPTZ NOT NULL,
    payment_status          TEXT NOT NULL,
    payment_amount          BIGINT NOT NULL DEFAULT 0,
    currency                TEXT NOT NULL DEFAULT 'inr',
    last_payment_date       TIMESTAMPTZ,
    status                  TEXT NOT NULL,
    empty_cylinder_received BOOLEAN NOT NULL DEFAULT FALSE,
    stock_shortfall         INTEGER NOT NULL DEFAULT 0,
    created_at              TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at              TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_depot_bookings_owner ON depot_bookings (owner_key, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_depot_bookings_retention ON depot_bookings (updated_at)
    WHERE status = 'Delivered' AND payment_status = 'Paid';
`,
	},
	{
		Version: "20260301000003",
		Name:    "create_depot_cylinders",
		Up: `
CREATE TABLE IF NOT EXISTS depot_cylinders (
    id         TEXT PRIMARY KEY,
    owner_key  TEXT NOT NULL,
    type       TEXT NOT NULL,
    status     TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_depot_cylinders_bucket ON depot_cylinders (owner_key, type, status);
`,
	},
	{
		Version: "20260301000004",
		Name:    "create_depot_stoves",
		Up: `
CREATE TABLE IF NOT EXISTS depot_stoves (
    id             TEXT PRIMARY KEY,
    owner_key      TEXT NOT NULL,
    model          TEXT NOT NULL,
    status         TEXT NOT NULL,
    borrower       JSONB,
    payment_status TEXT NOT NULL DEFAULT '',
    lent_at        TIMESTAMPTZ,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_depot_stoves_model ON depot_stoves (owner_key, model, status);
`,
	},
	{
		Version: "20260301000005",
		Name:    "create_depot_lending_records",
		Up: `
CREATE TABLE IF NOT EXISTS depot_lending_records (
    id             TEXT PRIMARY KEY,
    owner_key      TEXT NOT NULL,
    stove_id       TEXT NOT NULL,
    stove_model    TEXT NOT NULL,
    customer_id    TEXT NOT NULL,
    borrower       JSONB NOT NULL,
    payment_status TEXT NOT NULL,
    lent_at        TIMESTAMPTZ NOT NULL,
    returned_at    TIMESTAMPTZ NOT NULL,
    status         TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_depot_lending_returned ON depot_lending_records (owner_key, returned_at DESC);
`,
	},
}
