package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/twiced-technology-gmbh/ticketboard/internal/board"
	"github.com/twiced-technology-gmbh/ticketboard/internal/clierr"
	"github.com/twiced-technology-gmbh/ticketboard/internal/output"
	"github.com/twiced-technology-gmbh/ticketboard/internal/ticket"
)

var moveCmd = &cobra.Command{
	Use:   "move ID[,ID,...] [STATUS]",
	Short: "Move a ticket to a different column",
	Long: `Changes the column of a ticket. Provide the target status directly
(todo, inprogress, done), or use left/right (or --left/--right) to move
one column over.
Entering done records the completion time; leaving done clears it.
Multiple IDs can be provided as a comma-separated list.`,
	Args: cobra.RangeArgs(1, 2), //nolint:mnd // 1 or 2 positional args
	RunE: runMove,
}

func init() {
	addMoveFlags(moveCmd.Flags())
	rootCmd.AddCommand(moveCmd)
}

func addMoveFlags(fs *pflag.FlagSet) {
	fs.Bool("right", false, "move one column right")
	fs.Bool("left", false, "move one column left")
	fs.Bool("next", false, "alias for --right")
	fs.Bool("prev", false, "alias for --left")
	_ = fs.MarkHidden("next")
	_ = fs.MarkHidden("prev")
}

func runMove(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args[0])
	if err != nil {
		return err
	}
	req, err := resolveMoveRequest(cmd, args)
	if err != nil {
		return err
	}

	ctx, stop := commandContext()
	defer stop()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if len(ids) == 1 {
		return moveSingleTicket(ctx, s, ids[0], req)
	}

	return runBatch(ids, func(id string) error {
		_, _, err := executeMove(ctx, s, id, req)
		return err
	})
}

// moveRequest is either a target column or a one-column step.
type moveRequest struct {
	target ticket.Status
	dir    board.Direction
}

// moveResult wraps a ticket with a changed flag for JSON output.
type moveResult struct {
	*ticket.Ticket
	Changed bool `json:"changed"`
}

func moveSingleTicket(ctx context.Context, s *session, id string, req moveRequest) error {
	t, from, err := executeMove(ctx, s, id, req)
	if err != nil {
		return err
	}
	changed := from != t.Status

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, moveResult{Ticket: t, Changed: changed})
	}
	if !changed {
		output.Messagef(os.Stdout, "Ticket #%s is already in %s", t.ID, t.Status)
		return nil
	}
	output.Messagef(os.Stdout, "Moved ticket #%s: %s -> %s", t.ID, from, t.Status)
	return nil
}

// executeMove writes the move and waits until the board shows the ticket
// in its new column. It returns the ticket and the column it left.
func executeMove(ctx context.Context, s *session, id string, req moveRequest) (*ticket.Ticket, ticket.Status, error) {
	cur, err := s.ticket(id)
	if err != nil {
		return nil, "", err
	}

	to := req.target
	if to == "" {
		next, ok := board.Adjacent(cur.Status, req.dir)
		if !ok {
			// Already at the edge: clamped moves change nothing.
			return cur, cur.Status, nil
		}
		to = next
		if err := s.rec.MoveTicket(ctx, id, req.dir); err != nil {
			return nil, "", err
		}
	} else {
		if to == cur.Status {
			return cur, cur.Status, nil
		}
		// A target column is the same gesture as dropping the card there.
		src := board.DropPosition{Column: cur.Status}
		if err := s.rec.HandleDragDrop(ctx, src, &board.DropPosition{Column: to}, id); err != nil {
			return nil, "", err
		}
	}

	t, err := s.await(ctx, id, func(t *ticket.Ticket) bool {
		return t == nil || t.Status == to
	})
	if err != nil {
		return nil, "", err
	}
	if t == nil {
		return nil, "", ticket.NotFound(id)
	}
	return t, cur.Status, nil
}

func resolveMoveRequest(cmd *cobra.Command, args []string) (moveRequest, error) {
	right, _ := cmd.Flags().GetBool("right")
	left, _ := cmd.Flags().GetBool("left")
	if next, _ := cmd.Flags().GetBool("next"); next {
		right = true
	}
	if prev, _ := cmd.Flags().GetBool("prev"); prev {
		left = true
	}

	hasTarget := len(args) == 2 //nolint:mnd // positional arg
	n := 0
	for _, set := range []bool{hasTarget, right, left} {
		if set {
			n++
		}
	}
	if n > 1 {
		return moveRequest{}, clierr.New(clierr.InvalidInput, "use only one of STATUS, --left or --right")
	}

	switch {
	case hasTarget:
		if dir, err := board.ParseDirection(args[1]); err == nil {
			return moveRequest{dir: dir}, nil
		}
		status := ticket.Status(args[1])
		if err := ticket.ValidateStatus(status); err != nil {
			return moveRequest{}, err
		}
		return moveRequest{target: status}, nil
	case right:
		return moveRequest{dir: board.Right}, nil
	case left:
		return moveRequest{dir: board.Left}, nil
	default:
		return moveRequest{}, clierr.New(clierr.InvalidInput, "provide a target status or use --left/--right")
	}
}
