package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/twiced-technology-gmbh/ticketboard/internal/clierr"
	"github.com/twiced-technology-gmbh/ticketboard/internal/output"
	"github.com/twiced-technology-gmbh/ticketboard/internal/ticket"
)

var deleteCmd = &cobra.Command{
	Use:     "delete ID[,ID,...]",
	Aliases: []string{"rm"},
	Short:   "Delete a ticket",
	Long: `Removes a ticket from the board. Prompts for confirmation in interactive mode.
Deleting a ticket that is already gone succeeds.
Multiple IDs can be provided as a comma-separated list (requires --yes).`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().BoolP("yes", "y", false, "skip confirmation prompt")
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args[0])
	if err != nil {
		return err
	}

	yes, _ := cmd.Flags().GetBool("yes")
	if len(ids) > 1 && !yes {
		return clierr.New(clierr.ConfirmationReq, "batch delete requires --yes")
	}

	ctx, stop := commandContext()
	defer stop()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if len(ids) == 1 {
		return deleteSingleTicket(ctx, s, ids[0], yes)
	}

	return runBatch(ids, func(id string) error {
		return executeDelete(ctx, s, id)
	})
}

func deleteSingleTicket(ctx context.Context, s *session, id string, yes bool) error {
	title := ""
	if t, ok := s.rec.Ticket(id); ok {
		title = t.Title
	}

	if !yes {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return clierr.New(clierr.ConfirmationReq,
				"cannot prompt for confirmation (not a terminal); use --yes")
		}
		fmt.Fprintf(os.Stderr, "Delete ticket #%s %q? [y/N] ", id, title)
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		answer = strings.TrimSpace(strings.ToLower(answer))
		if answer != "y" && answer != "yes" {
			fmt.Fprintln(os.Stderr, "Canceled.")
			return nil
		}
	}

	if err := executeDelete(ctx, s, id); err != nil {
		return err
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]any{
			"status": "deleted",
			"id":     id,
			"title":  title,
		})
	}

	output.Messagef(os.Stdout, "Deleted ticket #%s: %s", id, title)
	return nil
}

// executeDelete removes the ticket and waits until the board no longer
// shows it.
func executeDelete(ctx context.Context, s *session, id string) error {
	if err := s.rec.DeleteTicket(ctx, id); err != nil {
		return err
	}
	_, err := s.await(ctx, id, func(t *ticket.Ticket) bool { return t == nil })
	return err
}
