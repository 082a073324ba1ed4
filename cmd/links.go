package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/ticketboard/internal/links"
	"github.com/twiced-technology-gmbh/ticketboard/internal/output"
)

var linksCmd = &cobra.Command{
	Use:   "links",
	Short: "Manage useful links",
	Long:  `Keeps a shared list of useful links, newest first. Without a subcommand, lists them.`,
	RunE:  runLinksList,
}

var linksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List links",
	Args:  cobra.NoArgs,
	RunE:  runLinksList,
}

var linksAddCmd = &cobra.Command{
	Use:   "add URL [TITLE]",
	Short: "Add a link",
	Args:  cobra.RangeArgs(1, 2), //nolint:mnd // url and optional title
	RunE:  runLinksAdd,
}

var linksDeleteCmd = &cobra.Command{
	Use:     "delete ID",
	Aliases: []string{"rm"},
	Short:   "Delete a link",
	Args:    cobra.ExactArgs(1),
	RunE:    runLinksDelete,
}

func init() {
	linksCmd.AddCommand(linksListCmd)
	linksCmd.AddCommand(linksAddCmd)
	linksCmd.AddCommand(linksDeleteCmd)
	rootCmd.AddCommand(linksCmd)
}

func runLinksList(_ *cobra.Command, _ []string) error {
	ctx, stop := commandContext()
	defer stop()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	ls, err := links.NewStore(s.docs).List(ctx)
	if err != nil {
		return err
	}

	switch outputFormat() {
	case output.FormatJSON:
		return output.JSON(os.Stdout, ls)
	case output.FormatCompact:
		output.LinksCompact(os.Stdout, ls)
	default:
		output.LinksTable(os.Stdout, ls)
	}
	return nil
}

func runLinksAdd(_ *cobra.Command, args []string) error {
	// Reject a bad URL before touching the store.
	if err := links.ValidateURL(args[0]); err != nil {
		return err
	}
	title := ""
	if len(args) > 1 {
		title = args[1]
	}

	ctx, stop := commandContext()
	defer stop()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	id, err := links.NewStore(s.docs).Add(ctx, args[0], title)
	if err != nil {
		return err
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]string{"id": id, "url": args[0], "title": title})
	}
	output.Messagef(os.Stdout, "Added link %s: %s", id, links.DisplayTitle(links.Link{URL: args[0], UserTitle: title}))
	return nil
}

func runLinksDelete(_ *cobra.Command, args []string) error {
	ctx, stop := commandContext()
	defer stop()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := links.NewStore(s.docs).Delete(ctx, args[0]); err != nil {
		return err
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]string{"status": "deleted", "id": args[0]})
	}
	output.Messagef(os.Stdout, "Deleted link %s", args[0])
	return nil
}
