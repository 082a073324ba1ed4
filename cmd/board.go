package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/twiced-technology-gmbh/ticketboard/internal/board"
	"github.com/twiced-technology-gmbh/ticketboard/internal/output"
)

// Deadline states roll over at midnight; a watched board re-renders at
// least this often.
const watchRefresh = time.Minute

var boardCmd = &cobra.Command{
	Use:     "board",
	Aliases: []string{"summary"},
	Short:   "Show board summary",
	Long: `Displays a summary of the board: ticket counts per column, overdue counts,
and priority and issue type distribution. --columns prints the cards of every column.

Use --watch to keep the display live-updating. The board re-renders on every
change from any client. Press Ctrl+C to stop.`,
	RunE: runBoard,
}

func init() {
	boardCmd.Flags().BoolP("watch", "w", false, "live-update the board on every change")
	boardCmd.Flags().Bool("columns", false, "show the tickets of every column")
	boardCmd.Flags().Var(newEnumFlag("", board.ValidGroupByFields()...), "group-by",
		"group board by field ("+strings.Join(board.ValidGroupByFields(), ", ")+")")
	rootCmd.AddCommand(boardCmd)
}

func runBoard(cmd *cobra.Command, _ []string) error {
	ctx, stop := commandContext()
	defer stop()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	groupBy := flagValue(cmd, "group-by")
	columns, _ := cmd.Flags().GetBool("columns")
	render := func() error { return renderBoard(s, groupBy, columns) }

	if err := render(); err != nil {
		return err
	}
	if watch, _ := cmd.Flags().GetBool("watch"); !watch {
		return nil
	}
	return watchBoard(ctx, s, render)
}

func renderBoard(s *session, groupBy string, columns bool) error {
	now := time.Now()
	tickets := s.rec.Tickets()

	if err := s.rec.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: live updates unavailable: %v\n", err)
	}

	if groupBy != "" {
		grouped := board.GroupBy(tickets, groupBy)
		if outputFormat() == output.FormatJSON {
			return output.JSON(os.Stdout, grouped)
		}
		output.GroupedTable(os.Stdout, grouped)
		return nil
	}

	if columns {
		if outputFormat() == output.FormatJSON {
			return output.JSON(os.Stdout, s.rec.Columns())
		}
		output.BoardColumns(os.Stdout, s.rec.Columns(), now)
		return nil
	}

	summary := board.Summary(s.cfg.Board.Name, tickets, now)
	switch outputFormat() {
	case output.FormatJSON:
		return output.JSON(os.Stdout, summary)
	case output.FormatCompact:
		output.OverviewCompact(os.Stdout, summary)
	default:
		output.OverviewTable(os.Stdout, summary)
	}
	return nil
}

// watchBoard re-renders after every reconciler change until ctx is done.
func watchBoard(ctx context.Context, s *session, render func() error) error {
	changes := make(chan struct{}, 1)
	poke := func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	}
	s.rec.OnChange(poke)

	fmt.Fprintln(os.Stderr, "Watching for changes... (Ctrl+C to stop)")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-changes:
				clearScreen()
				if err := render(); err != nil {
					log.Warn().Err(err).Msg("rendering board")
					fmt.Fprintf(os.Stderr, "Warning: rendering board: %v\n", err)
				}
			}
		}
	})
	g.Go(func() error {
		tick := time.NewTicker(watchRefresh)
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-tick.C:
				poke()
			}
		}
	})
	return g.Wait()
}

// clearScreen sends ANSI escape codes to clear the terminal and move the
// cursor to the top-left corner.
func clearScreen() {
	fmt.Fprint(os.Stdout, "\033[2J\033[H")
}
