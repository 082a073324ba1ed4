package cmd

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/ticketboard/internal/board"
	"github.com/twiced-technology-gmbh/ticketboard/internal/output"
	"github.com/twiced-technology-gmbh/ticketboard/internal/ticket"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tickets",
	Long:    `Lists tickets with optional filtering, sorting, and output format control.`,
	RunE:    runList,
}

func init() {
	listCmd.Flags().StringSlice("status", nil, "filter by status (comma-separated)")
	listCmd.Flags().Var(newEnumFlag("", enumNames(ticket.Priorities)...), "priority", "filter by priority")
	listCmd.Flags().StringSlice("type", nil, "filter by issue type (comma-separated)")
	listCmd.Flags().String("personnel", "", "filter by assigned person")
	listCmd.Flags().StringP("search", "s", "", "search title, description, and personnel (case-insensitive)")
	listCmd.Flags().Bool("overdue", false, "show only open tickets past their deadline")
	listCmd.Flags().Var(newEnumFlag(board.SortCreated, board.ValidSortFields()...), "sort",
		"sort field ("+strings.Join(board.ValidSortFields(), ", ")+")")
	listCmd.Flags().BoolP("reverse", "r", false, "reverse sort order")
	listCmd.Flags().IntP("limit", "n", 0, "limit number of results")
	listCmd.Flags().Var(newEnumFlag("", board.ValidGroupByFields()...), "group-by",
		"group results by field ("+strings.Join(board.ValidGroupByFields(), ", ")+")")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	filter, err := listFilter(cmd)
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

	now := time.Now()
	tickets := board.Filter(s.rec.Tickets(), filter)
	if overdue, _ := cmd.Flags().GetBool("overdue"); overdue {
		tickets = overdueOnly(tickets, now)
	}

	board.Sort(tickets, flagValue(cmd, "sort"), mustBool(cmd, "reverse"))
	if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 && len(tickets) > limit {
		tickets = tickets[:limit]
	}

	if groupBy := flagValue(cmd, "group-by"); groupBy != "" {
		grouped := board.GroupBy(tickets, groupBy)
		if outputFormat() == output.FormatJSON {
			return output.JSON(os.Stdout, grouped)
		}
		output.GroupedTable(os.Stdout, grouped)
		return nil
	}

	return outputTicketList(tickets, now)
}

func listFilter(cmd *cobra.Command) (board.FilterOptions, error) {
	statuses, _ := cmd.Flags().GetStringSlice("status")
	types, _ := cmd.Flags().GetStringSlice("type")
	personnel, _ := cmd.Flags().GetString("personnel")
	search, _ := cmd.Flags().GetString("search")

	filter := board.FilterOptions{
		Priority:  ticket.Priority(flagValue(cmd, "priority")),
		Personnel: strings.TrimSpace(personnel),
		Text:      search,
	}
	for _, st := range statuses {
		status := ticket.Status(strings.TrimSpace(st))
		if err := ticket.ValidateStatus(status); err != nil {
			return board.FilterOptions{}, err
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	for _, it := range types {
		issueType := ticket.IssueType(strings.TrimSpace(it))
		if err := ticket.ValidateIssueType(issueType); err != nil {
			return board.FilterOptions{}, err
		}
		filter.IssueTypes = append(filter.IssueTypes, issueType)
	}
	return filter, nil
}

func overdueOnly(tickets []*ticket.Ticket, now time.Time) []*ticket.Ticket {
	out := tickets[:0:0]
	for _, t := range tickets {
		if t.Status != ticket.StatusDone && board.DeadlineStatus(t, now) == board.DeadlineOverdue {
			out = append(out, t)
		}
	}
	return out
}

func mustBool(cmd *cobra.Command, name string) bool {
	v, _ := cmd.Flags().GetBool(name)
	return v
}

func outputTicketList(tickets []*ticket.Ticket, now time.Time) error {
	switch outputFormat() {
	case output.FormatJSON:
		if tickets == nil {
			tickets = []*ticket.Ticket{}
		}
		return output.JSON(os.Stdout, tickets)
	case output.FormatCompact:
		output.TicketCompact(os.Stdout, tickets, now)
	default:
		output.TicketTable(os.Stdout, tickets, now)
	}
	return nil
}
