package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/twiced-technology-gmbh/ticketboard/internal/clierr"
	"github.com/twiced-technology-gmbh/ticketboard/internal/config"
	"github.com/twiced-technology-gmbh/ticketboard/internal/links"
	"github.com/twiced-technology-gmbh/ticketboard/internal/output"
	"github.com/twiced-technology-gmbh/ticketboard/internal/ticket"
)

var createCmd = &cobra.Command{
	Use:     "create [TITLE]",
	Aliases: []string{"add"},
	Short:   "Create a new ticket",
	Long: `Creates a ticket in the to do column. Title and description are required.

Title can be provided as a positional argument or via --title flag.
The command returns once the new ticket is visible on the board.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCreate,
}

func init() {
	addCreateFlags(createCmd.Flags())
	rootCmd.AddCommand(createCmd)
}

func addCreateFlags(fs *pflag.FlagSet) {
	fs.String("title", "", "ticket title (alternative to positional argument)")
	fs.String("description", "", "ticket description (markdown)")
	fs.Var(newEnumFlag("", enumNames(ticket.Priorities)...), "priority",
		"ticket priority (default from config)")
	fs.Var(newEnumFlag("", enumNames(ticket.IssueTypes)...), "type",
		"issue type (default from config)")
	fs.StringSlice("url", nil, "related URL (repeatable)")
	fs.String("deadline", "", "deadline (YYYY-MM-DD, today, tomorrow, +N)")
	fs.String("personnel", "", "assigned person (added to the personnel list if new)")
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		switch name {
		case "body":
			name = "description"
		case "assignee":
			name = "personnel"
		case "due":
			name = "deadline"
		case "issue-type":
			name = "type"
		case "urls":
			name = "url"
		}
		return pflag.NormalizedName(name)
	})
}

func runCreate(cmd *cobra.Command, args []string) error {
	title, err := resolveCreateTitle(cmd, args)
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

	form, err := createForm(cmd, s.cfg, title, time.Now())
	if err != nil {
		return err
	}

	if form.Personnel != "" {
		if err := ensurePersonnel(ctx, s, form.Personnel); err != nil {
			return err
		}
	}

	id, err := s.rec.AddTicket(ctx, form)
	if err != nil {
		return err
	}
	t, err := s.await(ctx, id, func(t *ticket.Ticket) bool { return t != nil })
	if err != nil {
		return err
	}

	return outputCreateResult(t)
}

// ensurePersonnel adds name to the personnel list when it is not there yet.
func ensurePersonnel(ctx context.Context, s *session, name string) error {
	people, err := s.directory(ctx)
	if err != nil {
		return err
	}
	defer people.Stop()

	added, err := people.Ensure(ctx, name)
	if err != nil {
		return err
	}
	if added {
		log.Info().Str("name", name).Msg("personnel added")
	}
	return nil
}

func outputCreateResult(t *ticket.Ticket) error {
	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, t)
	}

	output.Messagef(os.Stdout, "Created ticket #%s: %s", t.ID, t.Title)
	output.Messagef(os.Stdout, "  Status: %s | Priority: %s | Type: %s", t.Status, t.Priority, t.IssueType)
	if t.Personnel != "" {
		output.Messagef(os.Stdout, "  Personnel: %s", t.Personnel)
	}
	if len(t.URLs) > 0 {
		output.Messagef(os.Stdout, "  URLs: %s", strings.Join(t.URLs, ", "))
	}
	return nil
}

// resolveCreateTitle returns the ticket title from either the positional arg or --title flag.
func resolveCreateTitle(cmd *cobra.Command, args []string) (string, error) {
	flagTitle, _ := cmd.Flags().GetString("title")
	hasPositional := len(args) > 0
	hasFlag := flagTitle != ""

	switch {
	case hasPositional && hasFlag:
		return "", clierr.New(clierr.InvalidInput,
			"title provided both as argument and --title flag; use one or the other")
	case hasPositional:
		return args[0], nil
	case hasFlag:
		return flagTitle, nil
	default:
		return "", errors.New("title is required: provide it as an argument or with --title")
	}
}

// createForm collects the create form from flags, falling back to the
// configured defaults for priority and issue type.
func createForm(cmd *cobra.Command, cfg *config.Config, title string, now time.Time) (ticket.FormData, error) {
	form := ticket.FormData{
		Title:     title,
		Priority:  ticket.Priority(cfg.Defaults.Priority),
		IssueType: ticket.IssueType(cfg.Defaults.IssueType),
		URLs:      []string{},
	}

	form.Description, _ = cmd.Flags().GetString("description")
	if v := flagValue(cmd, "priority"); v != "" {
		form.Priority = ticket.Priority(v)
	}
	if v := flagValue(cmd, "type"); v != "" {
		form.IssueType = ticket.IssueType(v)
	}
	if v, _ := cmd.Flags().GetString("personnel"); v != "" {
		form.Personnel = strings.TrimSpace(v)
	}

	urls, _ := cmd.Flags().GetStringSlice("url")
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if err := links.ValidateURL(u); err != nil {
			return ticket.FormData{}, err
		}
		form.URLs = append(form.URLs, u)
	}

	if v, _ := cmd.Flags().GetString("deadline"); v != "" {
		d, err := parseDeadline(v, now)
		if err != nil {
			return ticket.FormData{}, err
		}
		form.Deadline = &d
	}

	if err := form.Validate(); err != nil {
		return ticket.FormData{}, fmt.Errorf("create: %w", err)
	}
	return form, nil
}
