package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xraph/depot"
	"github.com/xraph/depot/config"
	"github.com/xraph/depot/retention"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply store migrations and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		st, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s store migrated\n", cfg.Store.Driver)
		return nil
	},
}

var sweepOwner string

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete expired bookings and lending records once",
	Long: `Run one retention sweep. Paid and Delivered bookings older than the
booking TTL and lending records older than the lending TTL are removed.
Without --owner every owner is swept.`,
	RunE: runSweep,
}

func init() {
	sweepCmd.Flags().StringVar(&sweepOwner, "owner", "", "Sweep only this owner key")
}

func runSweep(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	st, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	opts, err := cfg.EngineOptions()
	if err != nil {
		return err
	}
	opts = append(opts,
		depot.WithLogger(cfg.Logger(os.Stderr)),
		depot.WithSweepIntervals(0, 0),
	)
	d := depot.New(st, opts...)
	if err := d.Start(cmd.Context()); err != nil {
		return err
	}
	defer d.Stop() //nolint:errcheck // one-shot command

	var result retention.Result
	if sweepOwner != "" {
		result, err = d.RunRetentionSweep(depot.WithOwner(cmd.Context(), sweepOwner))
	} else {
		result, err = d.RunRetentionSweepAll(cmd.Context())
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %d bookings, %d lending records\n",
		result.BookingsDeleted, result.LendingRecordsDeleted)
	return err
}
