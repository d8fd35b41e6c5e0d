package depot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/depot/changefeed"
	"github.com/xraph/depot/plugin"
	"github.com/xraph/depot/pricing"
	"github.com/xraph/depot/retention"
	"github.com/xraph/depot/store"
)

// Depot is the distribution engine: booking lifecycle, inventory, payment
// history and retention over one store.
type Depot struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger
	feed    *changefeed.Feed
	prices  pricing.Book
	policy  retention.Policy
	loc     *time.Location
	now     func() time.Time
	locks   *keyedMutex

	// Background workers
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// Configuration
	bookingSweepInterval time.Duration
	lendingSweepInterval time.Duration
	sweepOnRead          bool
}

// New creates a new Depot instance.
func New(s store.Store, opts ...Option) *Depot {
	d := &Depot{
		store:                s,
		plugins:              plugin.NewRegistry(),
		logger:               slog.Default(),
		feed:                 changefeed.New(changefeed.DefaultBuffer),
		prices:               pricing.Default(),
		policy:               retention.DefaultPolicy(),
		loc:                  time.Local,
		now:                  time.Now,
		locks:                newKeyedMutex(),
		stopChan:             make(chan struct{}),
		bookingSweepInterval: retention.DefaultBookingSweepInterval,
		lendingSweepInterval: retention.DefaultLendingSweepInterval,
		sweepOnRead:          true,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Option configures a Depot instance.
type Option func(*Depot)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Depot) {
		d.logger = logger
		d.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(d *Depot) {
		_ = d.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithFeed publishes changes to f instead of a private feed.
func WithFeed(f *changefeed.Feed) Option {
	return func(d *Depot) {
		d.feed = f
	}
}

// WithPriceBook sets the prices bookings are charged from.
func WithPriceBook(b pricing.Book) Option {
	return func(d *Depot) {
		d.prices = b
	}
}

// WithRetention sets the retention windows.
func WithRetention(p retention.Policy) Option {
	return func(d *Depot) {
		d.policy = p
	}
}

// WithSweepIntervals sets how often the background sweepers run. A zero
// interval disables that sweeper.
func WithSweepIntervals(bookings, lending time.Duration) Option {
	return func(d *Depot) {
		d.bookingSweepInterval = bookings
		d.lendingSweepInterval = lending
	}
}

// WithSweepOnRead toggles the retention sweep that runs before every booking
// and lending record listing.
func WithSweepOnRead(enabled bool) Option {
	return func(d *Depot) {
		d.sweepOnRead = enabled
	}
}

// WithLocation sets the time zone "today" is judged in for delivery dates.
func WithLocation(loc *time.Location) Option {
	return func(d *Depot) {
		if loc != nil {
			d.loc = loc
		}
	}
}

// WithClock replaces time.Now. Tests use it to move time.
func WithClock(now func() time.Time) Option {
	return func(d *Depot) {
		d.now = now
	}
}

// Start migrates the store and begins background workers.
func (d *Depot) Start(ctx context.Context) error {
	if err := d.store.Migrate(ctx); err != nil {
		return err
	}

	d.plugins.EmitInit(ctx, d)

	d.startSweeper(ctx, "bookings", d.bookingSweepInterval, true, false)
	d.startSweeper(ctx, "lending_records", d.lendingSweepInterval, false, true)

	d.logger.Info("depot started",
		"booking_sweep_interval", d.bookingSweepInterval,
		"lending_sweep_interval", d.lendingSweepInterval,
		"booking_ttl", d.policy.BookingTTL,
		"lending_ttl", d.policy.LendingTTL,
	)

	return nil
}

// Stop shuts down the Depot and closes the store.
func (d *Depot) Stop() error {
	d.stopOnce.Do(func() { close(d.stopChan) })
	d.wg.Wait()

	ctx := context.Background()
	d.plugins.EmitShutdown(ctx)
	d.feed.Close()

	return d.store.Close()
}

// Store returns the underlying store.
func (d *Depot) Store() store.Store { return d.store }

// Feed returns the change feed the engine publishes to.
func (d *Depot) Feed() *changefeed.Feed { return d.feed }

// Plugins returns the plugin registry.
func (d *Depot) Plugins() *plugin.Registry { return d.plugins }

// PriceBook returns the active price book.
func (d *Depot) PriceBook() pricing.Book { return d.prices }

// Ping checks the store is reachable.
func (d *Depot) Ping(ctx context.Context) error { return d.store.Ping(ctx) }

func (d *Depot) publish(c changefeed.Collection, op changefeed.Op, recordID, owner string) {
	d.feed.Publish(changefeed.NewChange(c, op, recordID, owner, d.now()))
}
