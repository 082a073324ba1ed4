// Package cmd implements the ticketboard CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/ticketboard/internal/board"
	"github.com/twiced-technology-gmbh/ticketboard/internal/clierr"
	"github.com/twiced-technology-gmbh/ticketboard/internal/config"
	"github.com/twiced-technology-gmbh/ticketboard/internal/docstore"
	"github.com/twiced-technology-gmbh/ticketboard/internal/docstore/filestore"
	"github.com/twiced-technology-gmbh/ticketboard/internal/docstore/memstore"
	"github.com/twiced-technology-gmbh/ticketboard/internal/docstore/sqlitestore"
	"github.com/twiced-technology-gmbh/ticketboard/internal/logging"
	"github.com/twiced-technology-gmbh/ticketboard/internal/output"
	"github.com/twiced-technology-gmbh/ticketboard/internal/personnel"
	"github.com/twiced-technology-gmbh/ticketboard/internal/ticket"
)

// version is set at build time via ldflags.
var version = "dev"

// Global flags.
var (
	flagJSON     bool
	flagTable    bool
	flagCompact  bool
	flagDir      string
	flagNoColor  bool
	flagLogLevel string
)

// activeCommand tags log lines with the running subcommand.
var activeCommand = "ticketboard"

// How long a command waits for the first snapshot or for its own write to
// show up in one.
const syncTimeout = 15 * time.Second

var rootCmd = &cobra.Command{
	Use:   "ticketboard",
	Short: "Live kanban board for support tickets",
	Long: `ticketboard keeps a three-column ticket board (to do, in progress, done)
in a realtime document store. Every open board sees every change as it happens.
Run ticketboard without a subcommand to open the board in the terminal.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          runTUI,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		output.ConfigureColor(os.Stdout, flagNoColor)
		activeCommand = cmd.Name()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVar(&flagTable, "table", false, "output as table")
	rootCmd.PersistentFlags().BoolVar(&flagCompact, "compact", false, "compact one-line-per-record output")
	rootCmd.PersistentFlags().BoolVar(&flagCompact, "oneline", false, "alias for --compact")
	rootCmd.PersistentFlags().StringVar(&flagDir, "dir", "", "path to board directory")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable color output")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "override the configured log level")
}

// Execute runs the root command.
func Execute() {
	_, err := rootCmd.ExecuteC()
	if err == nil {
		return
	}

	var silent *clierr.SilentError
	if errors.As(err, &silent) {
		os.Exit(silent.Code)
	}

	if outputFormat() == output.FormatJSON {
		var cliErr *clierr.Error
		if errors.As(err, &cliErr) {
			output.JSONError(os.Stdout, cliErr.Code, cliErr.Error(), cliErr.Details)
			os.Exit(cliErr.ExitCode())
		}
		output.JSONError(os.Stdout, clierr.InternalError, err.Error(), nil)
		os.Exit(2) //nolint:mnd // exit code 2 for internal errors
	}

	fmt.Fprintln(os.Stderr, "Error:", err)
	var cliErr *clierr.Error
	if errors.As(err, &cliErr) {
		os.Exit(cliErr.ExitCode())
	}
	os.Exit(1)
}

// resolveDir returns the board directory: --dir, or the nearest board
// above the working directory.
func resolveDir() (string, error) {
	if flagDir != "" {
		return flagDir, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	return config.FindDir(cwd)
}

func loadConfig() (*config.Config, error) {
	dir, err := resolveDir()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(dir)
	if errors.Is(err, config.ErrNotFound) {
		return nil, clierr.Wrap(clierr.BoardNotFound, err, "no board in %s", dir)
	}
	return cfg, err
}

// setupLogging installs the board's logger as the global zerolog logger.
func setupLogging(cfg *config.Config) (func(), error) {
	level := cfg.Log.Level
	if flagLogLevel != "" {
		level = flagLogLevel
	}
	l, closeLog, err := logging.New(level, cfg.LogPath())
	if err != nil {
		return func() {}, fmt.Errorf("opening log: %w", err)
	}
	log.Logger = logging.Component(l.With().Str("board", cfg.Board.Name).Logger(), activeCommand)
	return closeLog, nil
}

// openStore opens the document store selected in the config.
func openStore(cfg *config.Config) (docstore.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendSQLite:
		s, err := sqlitestore.Open(cfg.StorePath())
		if err != nil {
			return nil, clierr.Wrap(clierr.StoreSubscriptionFailed, err, "opening %s", cfg.StorePath())
		}
		return s, nil
	case config.BackendMemory:
		return memstore.New(), nil
	default:
		s, err := filestore.Open(cfg.StorePath())
		if err != nil {
			return nil, clierr.Wrap(clierr.StoreSubscriptionFailed, err, "opening %s", cfg.StorePath())
		}
		return s, nil
	}
}

// session is an open board: config, logger, store and a reconciler that
// has received its first snapshot.
type session struct {
	cfg  *config.Config
	docs docstore.Store
	rec  *board.Reconciler

	closeLog func()
}

func openSession(ctx context.Context) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	closeLog, err := setupLogging(cfg)
	if err != nil {
		return nil, err
	}

	docs, err := openStore(cfg)
	if err != nil {
		closeLog()
		return nil, err
	}

	tickets := ticket.NewStore(docs)
	ids := board.NewIDAllocator(tickets,
		board.WithDigits(cfg.IDs.Digits),
		board.WithMaxAttempts(cfg.IDs.MaxAttempts))
	rec := board.NewReconciler(tickets,
		board.WithIDAllocator(ids),
		board.WithMutationHook(board.ActivityLogger(cfg.Dir())))

	s := &session{cfg: cfg, docs: docs, rec: rec, closeLog: closeLog}
	if err := rec.Start(ctx); err != nil {
		s.Close()
		return nil, err
	}

	readyCtx, cancel := context.WithTimeout(ctx, syncTimeout)
	defer cancel()
	if err := rec.WaitReady(readyCtx); err != nil {
		s.Close()
		return nil, err
	}
	log.Debug().Str("backend", cfg.Store.Backend).Int("tickets", len(rec.Tickets())).Msg("board opened")
	return s, nil
}

// Close stops the subscription and closes the store and log.
func (s *session) Close() {
	s.rec.Stop()
	if err := s.docs.Close(); err != nil {
		log.Warn().Err(err).Msg("closing store")
	}
	s.closeLog()
}

// ticket returns id from the current snapshot.
func (s *session) ticket(id string) (*ticket.Ticket, error) {
	t, ok := s.rec.Ticket(id)
	if !ok {
		return nil, ticket.NotFound(id)
	}
	return t, nil
}

// await blocks until the snapshot state of id satisfies pred.
func (s *session) await(ctx context.Context, id string, pred func(t *ticket.Ticket) bool) (*ticket.Ticket, error) {
	ctx, cancel := context.WithTimeout(ctx, syncTimeout)
	defer cancel()
	t, err := s.rec.WaitTicket(ctx, id, pred)
	if err != nil {
		return nil, fmt.Errorf("waiting for ticket %s: %w", id, err)
	}
	return t, nil
}

// directory starts a personnel directory over the session store and waits
// for its first snapshot.
func (s *session) directory(ctx context.Context) (*personnel.Directory, error) {
	d := personnel.NewDirectory(s.docs)
	loaded := make(chan struct{}, 1)
	d.OnChange(func() {
		select {
		case loaded <- struct{}{}:
		default:
		}
	})
	if err := d.Start(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, syncTimeout)
	defer cancel()
	select {
	case <-loaded:
	case <-ctx.Done():
		d.Stop()
		return nil, ctx.Err()
	}
	if err := d.Err(); err != nil {
		d.Stop()
		return nil, err
	}
	return d, nil
}

// commandContext is cancelled on SIGINT or SIGTERM.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// outputFormat returns the detected output format from flags/env.
func outputFormat() output.Format {
	return output.Detect(flagJSON, flagTable, flagCompact)
}

// runBatch executes fn for each ID and collects results. Returns a SilentError
// with exit code 1 if any operation failed (after outputting results).
func runBatch(ids []string, fn func(string) error) error {
	results := make([]output.BatchResult, 0, len(ids))
	anyFailed := false

	for _, id := range ids {
		err := fn(id)
		if err != nil {
			anyFailed = true
			var cliErr *clierr.Error
			if errors.As(err, &cliErr) {
				results = append(results, output.BatchResult{ID: id, OK: false, Error: cliErr.Error(), Code: cliErr.Code})
			} else {
				results = append(results, output.BatchResult{ID: id, OK: false, Error: err.Error()})
			}
		} else {
			results = append(results, output.BatchResult{ID: id, OK: true})
		}
	}

	if outputFormat() == output.FormatJSON {
		if err := output.JSON(os.Stdout, results); err != nil {
			return err
		}
	} else {
		var succeeded int
		for _, r := range results {
			if r.OK {
				succeeded++
			} else {
				fmt.Fprintf(os.Stderr, "Error: ticket #%s: %s\n", r.ID, r.Error)
			}
		}
		output.Messagef(os.Stdout, "Completed %d/%d operations", succeeded, len(ids))
	}

	if anyFailed {
		return &clierr.SilentError{Code: 1}
	}
	return nil
}
