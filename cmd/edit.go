package cmd

import (
	"context"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/twiced-technology-gmbh/ticketboard/internal/board"
	"github.com/twiced-technology-gmbh/ticketboard/internal/clierr"
	"github.com/twiced-technology-gmbh/ticketboard/internal/links"
	"github.com/twiced-technology-gmbh/ticketboard/internal/output"
	"github.com/twiced-technology-gmbh/ticketboard/internal/ticket"
)

var editCmd = &cobra.Command{
	Use:   "edit ID[,ID,...]",
	Short: "Edit a ticket",
	Long: `Modifies fields of an existing ticket. Only specified fields are changed,
in one atomic write. Changing --status moves the ticket and updates its
completion time like a move does.
Multiple IDs can be provided as a comma-separated list.`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

func init() {
	addEditFlags(editCmd.Flags())
	rootCmd.AddCommand(editCmd)
}

func addEditFlags(fs *pflag.FlagSet) {
	fs.String("title", "", "new title")
	fs.String("description", "", "new description (replaces the whole text)")
	fs.Var(newEnumFlag("", enumNames(ticket.Priorities)...), "priority", "new priority")
	fs.Var(newEnumFlag("", enumNames(ticket.IssueTypes)...), "type", "new issue type")
	fs.Var(newEnumFlag("", enumNames(ticket.Statuses)...), "status", "new status")
	fs.StringSlice("add-url", nil, "add related URLs")
	fs.StringSlice("remove-url", nil, "remove related URLs")
	fs.String("deadline", "", "new deadline (YYYY-MM-DD, today, tomorrow, +N)")
	fs.Bool("clear-deadline", false, "clear deadline")
	fs.String("personnel", "", "assign a person")
	fs.Bool("clear-personnel", false, "unassign")
}

func runEdit(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args[0])
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

	if p, _ := cmd.Flags().GetString("personnel"); strings.TrimSpace(p) != "" {
		if err := ensurePersonnel(ctx, s, p); err != nil {
			return err
		}
	}

	if len(ids) == 1 {
		t, err := executeEdit(ctx, s, ids[0], cmd)
		if err != nil {
			return err
		}
		if outputFormat() == output.FormatJSON {
			return output.JSON(os.Stdout, t)
		}
		output.Messagef(os.Stdout, "Updated ticket #%s: %s", t.ID, t.Title)
		return nil
	}

	return runBatch(ids, func(id string) error {
		_, err := executeEdit(ctx, s, id, cmd)
		return err
	})
}

// executeEdit builds the patch for one ticket, writes it and waits for
// the snapshot that carries the change.
func executeEdit(ctx context.Context, s *session, id string, cmd *cobra.Command) (*ticket.Ticket, error) {
	cur, err := s.ticket(id)
	if err != nil {
		return nil, err
	}

	p, err := editPatch(cmd, cur, time.Now())
	if err != nil {
		return nil, err
	}
	if p.IsEmpty() {
		return nil, clierr.New(clierr.NoChanges, "no changes specified")
	}

	if err := s.rec.UpdateTicket(ctx, id, p); err != nil {
		return nil, err
	}

	want := p.Apply(cur, time.Now())
	return s.await(ctx, id, func(t *ticket.Ticket) bool {
		return t == nil || sameEdit(t, want)
	})
}

// sameEdit reports whether the stored ticket reflects the edited fields.
// Server-assigned times are not compared.
func sameEdit(got, want *ticket.Ticket) bool {
	return got.Title == want.Title &&
		got.Description == want.Description &&
		got.Priority == want.Priority &&
		got.IssueType == want.IssueType &&
		got.Status == want.Status &&
		got.Personnel == want.Personnel &&
		slices.Equal(got.URLs, want.URLs) &&
		sameTime(got.Deadline, want.Deadline)
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// editPatch turns the changed flags into a patch against cur.
func editPatch(cmd *cobra.Command, cur *ticket.Ticket, now time.Time) (ticket.Patch, error) {
	var p ticket.Patch
	flags := cmd.Flags()

	if flags.Changed("title") {
		v, _ := flags.GetString("title")
		p.Title = ticket.Set(v)
	}
	if flags.Changed("description") {
		v, _ := flags.GetString("description")
		p.Description = ticket.Set(v)
	}
	if v := flagValue(cmd, "priority"); v != "" {
		p.Priority = ticket.Set(ticket.Priority(v))
	}
	if v := flagValue(cmd, "type"); v != "" {
		p.IssueType = ticket.Set(ticket.IssueType(v))
	}
	if v := flagValue(cmd, "status"); v != "" {
		p.Status = ticket.Set(ticket.Status(v))
	}

	urls, err := editURLs(cmd, cur.URLs)
	if err != nil {
		return ticket.Patch{}, err
	}
	if urls != nil {
		p.URLs = ticket.Set(urls)
	}

	deadlineSet := flags.Changed("deadline")
	clearDeadline, _ := flags.GetBool("clear-deadline")
	switch {
	case deadlineSet && clearDeadline:
		return ticket.Patch{}, clierr.New(clierr.InvalidInput, "cannot use --deadline and --clear-deadline together")
	case deadlineSet:
		v, _ := flags.GetString("deadline")
		d, err := parseDeadline(v, now)
		if err != nil {
			return ticket.Patch{}, err
		}
		p.Deadline = ticket.Set(d)
	case clearDeadline:
		p.Deadline = ticket.Unset[time.Time]()
	}

	personSet := flags.Changed("personnel")
	clearPerson, _ := flags.GetBool("clear-personnel")
	switch {
	case personSet && clearPerson:
		return ticket.Patch{}, clierr.New(clierr.InvalidInput, "cannot use --personnel and --clear-personnel together")
	case personSet:
		v, _ := flags.GetString("personnel")
		if v = strings.TrimSpace(v); v == "" {
			p.Personnel = ticket.Unset[string]()
		} else {
			p.Personnel = ticket.Set(v)
		}
	case clearPerson:
		p.Personnel = ticket.Unset[string]()
	}

	return p, nil
}

// editURLs applies --add-url and --remove-url to cur. It returns nil when
// neither flag was given.
func editURLs(cmd *cobra.Command, cur []string) ([]string, error) {
	add, _ := cmd.Flags().GetStringSlice("add-url")
	remove, _ := cmd.Flags().GetStringSlice("remove-url")
	if len(add) == 0 && len(remove) == 0 {
		return nil, nil
	}

	out := make([]string, 0, len(cur)+len(add))
	for _, u := range cur {
		if !slices.Contains(remove, u) {
			out = append(out, u)
		}
	}
	for _, u := range add {
		u = strings.TrimSpace(u)
		if u == "" || slices.Contains(out, u) {
			continue
		}
		if err := links.ValidateURL(u); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

// parseIDs splits a comma-separated ID string into deduplicated ticket IDs.
func parseIDs(arg string) ([]string, error) {
	return board.ParseIDs(arg)
}
