// Package config loads depotd settings from a TOML file and DEPOT_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"

	"github.com/xraph/depot"
	"github.com/xraph/depot/booking"
	"github.com/xraph/depot/pricing"
	"github.com/xraph/depot/retention"
	"github.com/xraph/depot/types"
)

// EnvPrefix prefixes every environment override, e.g. DEPOT_STORE_DRIVER.
const EnvPrefix = "DEPOT"

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Config is the full daemon configuration.
type Config struct {
	Log       Log       `toml:"log"`
	Store     Store     `toml:"store"`
	HTTP      HTTP      `toml:"http"`
	Retention Retention `toml:"retention"`
	Pricing   Pricing   `toml:"pricing"`
	AMQP      AMQP      `toml:"amqp"`
	// Timezone is the IANA zone "today" is judged in for delivery dates.
	Timezone string `toml:"timezone"`
}

type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "text" or "json"
}

type Store struct {
	Driver string `toml:"driver"`
	// DSN is a file path for sqlite, a connection URL for postgres and mongo.
	DSN string `toml:"dsn"`
	// Database names the mongo database.
	Database string `toml:"database"`
}

type HTTP struct {
	Addr            string   `toml:"addr"`
	ShutdownTimeout Duration `toml:"shutdown_timeout" split_words:"true"`
}

type Retention struct {
	BookingTTL           Duration `toml:"booking_ttl" split_words:"true"`
	LendingTTL           Duration `toml:"lending_ttl" split_words:"true"`
	BookingSweepInterval Duration `toml:"booking_sweep_interval" split_words:"true"`
	LendingSweepInterval Duration `toml:"lending_sweep_interval" split_words:"true"`
	SweepOnRead          bool     `toml:"sweep_on_read" split_words:"true"`
}

// Pricing amounts are major units written as strings: "1150", "49.50".
type Pricing struct {
	Currency    string            `toml:"currency"`
	Fallback    string            `toml:"fallback"`
	Cylinders   map[string]string `toml:"cylinders"`
	ServiceFees map[string]string `toml:"service_fees" split_words:"true"`
}

// AMQP enables the change feed forwarder when URL is set.
type AMQP struct {
	URL      string `toml:"url"`
	Exchange string `toml:"exchange"`
}

// Duration is a time.Duration written as "20h" or "5m30s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for both toml and envconfig.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default mirrors the engine defaults with an in-memory store.
func Default() Config {
	book := pricing.Default()
	cfg := Config{
		Log:   Log{Level: "info", Format: "text"},
		Store: Store{Driver: DriverMemory, Database: "depot"},
		HTTP:  HTTP{Addr: ":8080", ShutdownTimeout: Duration{10 * time.Second}},
		Retention: Retention{
			BookingTTL:           Duration{retention.DefaultBookingTTL},
			LendingTTL:           Duration{retention.DefaultLendingTTL},
			BookingSweepInterval: Duration{retention.DefaultBookingSweepInterval},
			LendingSweepInterval: Duration{retention.DefaultLendingSweepInterval},
			SweepOnRead:          true,
		},
		Pricing: Pricing{
			Currency:    book.Currency,
			Fallback:    book.Fallback.FormatPlain(),
			Cylinders:   make(map[string]string, len(book.Cylinders)),
			ServiceFees: make(map[string]string, len(book.ServiceFees)),
		},
		AMQP:     AMQP{Exchange: "depot.changes"},
		Timezone: "Local",
	}
	for t, p := range book.Cylinders {
		cfg.Pricing.Cylinders[t] = p.FormatPlain()
	}
	for s, f := range book.ServiceFees {
		cfg.Pricing.ServiceFees[string(s)] = f.FormatPlain()
	}
	return cfg
}

// Load starts from Default, applies the TOML file at path when path is not
// empty, then DEPOT_* environment overrides, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return cfg, fmt.Errorf("config: unknown keys in %s: %v", path, undecoded)
		}
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("config: environment: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks everything that can be checked without connecting.
func (c Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case DriverMemory:
	case DriverSQLite, DriverPostgres, DriverMongo:
		if c.Store.DSN == "" {
			errs = append(errs, fmt.Errorf("config: store.dsn is required for %s", c.Store.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown store.driver %q", c.Store.Driver))
	}
	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}
	if f := c.Log.Format; f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("config: log.format must be text or json, got %q", f))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.PriceBook(); err != nil {
		errs = append(errs, err)
	}
	if c.Retention.BookingTTL.Duration <= 0 || c.Retention.LendingTTL.Duration <= 0 {
		errs = append(errs, errors.New("config: retention windows must be positive"))
	}
	return errors.Join(errs...)
}

// LogLevel parses Log.Level.
func (c Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return level, fmt.Errorf("config: log.level: %w", err)
	}
	return level, nil
}

// Logger builds the daemon logger writing to w.
func (c Config) Logger(w io.Writer) *slog.Logger {
	level, err := c.LogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Location resolves Timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: timezone: %w", err)
	}
	return loc, nil
}

// PriceBook converts the pricing section into a validated pricing.Book.
func (c Config) PriceBook() (pricing.Book, error) {
	cur := strings.ToLower(c.Pricing.Currency)
	if cur == "" {
		cur = types.DefaultCurrency
	}
	book := pricing.Book{
		Currency:    cur,
		Cylinders:   make(map[string]types.Money, len(c.Pricing.Cylinders)),
		ServiceFees: make(map[booking.ServiceType]types.Money, len(c.Pricing.ServiceFees)),
	}

	fallback, err := types.ParseMajor(c.Pricing.Fallback, cur)
	if err != nil {
		return book, fmt.Errorf("config: pricing.fallback: %w", err)
	}
	book.Fallback = fallback

	for t, raw := range c.Pricing.Cylinders {
		p, err := types.ParseMajor(raw, cur)
		if err != nil {
			return book, fmt.Errorf("config: price of %s: %w", t, err)
		}
		book.Cylinders[t] = p
	}
	for name, raw := range c.Pricing.ServiceFees {
		s, ok := booking.ParseServiceType(name)
		if !ok {
			return book, fmt.Errorf("config: unknown service %q", name)
		}
		f, err := types.ParseMajor(raw, cur)
		if err != nil {
			return book, fmt.Errorf("config: fee for %s: %w", name, err)
		}
		book.ServiceFees[s] = f
	}
	return book, book.Validate()
}

// RetentionPolicy returns the configured retention windows.
func (c Config) RetentionPolicy() retention.Policy {
	return retention.Policy{
		BookingTTL: c.Retention.BookingTTL.Duration,
		LendingTTL: c.Retention.LendingTTL.Duration,
	}
}

// EngineOptions converts the engine-facing settings into depot options.
func (c Config) EngineOptions() ([]depot.Option, error) {
	book, err := c.PriceBook()
	if err != nil {
		return nil, err
	}
	loc, err := c.Location()
	if err != nil {
		return nil, err
	}
	return []depot.Option{
		depot.WithLogger(c.Logger(os.Stderr)),
		depot.WithPriceBook(book),
		depot.WithRetention(c.RetentionPolicy()),
		depot.WithSweepIntervals(c.Retention.BookingSweepInterval.Duration, c.Retention.LendingSweepInterval.Duration),
		depot.WithSweepOnRead(c.Retention.SweepOnRead),
		depot.WithLocation(loc),
	}, nil
}
