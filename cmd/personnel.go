package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/ticketboard/internal/output"
	"github.com/twiced-technology-gmbh/ticketboard/internal/personnel"
)

var personnelCmd = &cobra.Command{
	Use:     "personnel",
	Aliases: []string{"people"},
	Short:   "Manage the personnel list",
	Long:    `Lists the people tickets can be assigned to, oldest first. Without a subcommand, lists them.`,
	RunE:    runPersonnelList,
}

var personnelListCmd = &cobra.Command{
	Use:   "list",
	Short: "List personnel",
	Args:  cobra.NoArgs,
	RunE:  runPersonnelList,
}

var personnelAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Add a person",
	Args:  cobra.ExactArgs(1),
	RunE:  runPersonnelAdd,
}

func init() {
	personnelCmd.AddCommand(personnelListCmd)
	personnelCmd.AddCommand(personnelAddCmd)
	rootCmd.AddCommand(personnelCmd)
}

func runPersonnelList(_ *cobra.Command, _ []string) error {
	ctx, stop := commandContext()
	defer stop()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	people, err := s.directory(ctx)
	if err != nil {
		return err
	}
	defer people.Stop()

	list := people.List()
	switch outputFormat() {
	case output.FormatJSON:
		return output.JSON(os.Stdout, list)
	case output.FormatCompact:
		for _, p := range list {
			output.Messagef(os.Stdout, "%s", p.Name)
		}
	default:
		output.PersonnelTable(os.Stdout, list)
	}
	return nil
}

func runPersonnelAdd(_ *cobra.Command, args []string) error {
	ctx, stop := commandContext()
	defer stop()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	people, err := s.directory(ctx)
	if err != nil {
		return err
	}
	defer people.Stop()

	id, err := people.Add(ctx, args[0])
	if err != nil {
		return err
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, personnel.Personnel{ID: id, Name: args[0]})
	}
	output.Messagef(os.Stdout, "Added %s to personnel", args[0])
	return nil
}
