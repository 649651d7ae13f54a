package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dbehnke/dstar-gateway/pkg/cache"
	"github.com/dbehnke/dstar-gateway/pkg/config"
	"github.com/dbehnke/dstar-gateway/pkg/database"
	"github.com/dbehnke/dstar-gateway/pkg/dstar"
	"github.com/dbehnke/dstar-gateway/pkg/hosts"
	"github.com/dbehnke/dstar-gateway/pkg/logger"
	"github.com/spf13/cobra"
)

func newHostsCmd(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hosts",
		Short: "Manage the reflector host lists",
	}
	cmd.AddCommand(newHostsSyncCmd(configFile))
	cmd.AddCommand(newHostsLookupCmd(configFile))
	return cmd
}

// openDatabase opens the configured database. The returned function closes
// the database and the log file.
func openDatabase(cfg *config.Config) (*database.DB, *logger.Logger, func(), error) {
	log, closer, err := newLogger(cfg.Logging)
	if err != nil {
		return nil, nil, nil, err
	}

	db, err := database.NewDB(database.Config{Path: cfg.Database.Path}, log)
	if err != nil {
		_ = closer.Close()
		return nil, nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	return db, log, func() {
		_ = db.Close()
		_ = closer.Close()
	}, nil
}

func newHostsSyncCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Download the host lists once into the database",
		Long: `Download the DExtra, DPlus and DCS host lists named in the hosts
section of the configuration and store them in the database. Locked
entries from local host files are kept.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configFile)
			if err != nil {
				return err
			}
			sources := hostSources(cfg.Hosts)
			if len(sources) == 0 {
				return fmt.Errorf("no host list urls configured")
			}

			db, log, done, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			defer done()

			store := cache.New(db, log)
			if err := store.Load(); err != nil {
				return fmt.Errorf("failed to load cache: %w", err)
			}

			syncer := hosts.NewSyncer(store, sources, 0, time.Duration(cfg.Hosts.TimeoutSecs)*time.Second, log)
			if err := syncer.Sync(cmd.Context()); err != nil {
				return err
			}

			n, _, _ := store.Counts()
			log.Info("Host lists synced", logger.Int("hosts", n))
			fmt.Fprintf(cmd.OutOrStdout(), "%d hosts stored in %s\n", n, db.Path())
			return printHostCounts(cmd.OutOrStdout(), database.NewHostRepository(db.GetDB()))
		},
	}
}

func printHostCounts(w io.Writer, repo *database.HostRepository) error {
	for _, p := range []dstar.Protocol{dstar.ProtocolDExtra, dstar.ProtocolDPlus, dstar.ProtocolDCS} {
		n, err := repo.Count(p.String())
		if err != nil {
			return fmt.Errorf("failed to count %s hosts: %w", p, err)
		}
		fmt.Fprintf(w, "  %-7s %d\n", p, n)
	}
	return nil
}

func newHostsLookupCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup CALLSIGN",
		Short: "Show the stored host entry of a reflector or gateway",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configFile)
			if err != nil {
				return err
			}
			db, _, done, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			defer done()

			callsign := dstar.PadCallsign(strings.ToUpper(strings.TrimSpace(args[0])))
			h, err := database.NewHostRepository(db.GetDB()).GetByCallsign(callsign)
			if err != nil {
				return fmt.Errorf("failed to read host: %w", err)
			}
			if h == nil {
				return fmt.Errorf("%s: host not found", strings.TrimSpace(callsign))
			}

			locked := ""
			if h.Locked {
				locked = " (locked)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s%s\n", h.Name(), h.Protocol, h.Address, locked)
			return nil
		},
	}
}
