package cmd

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/twiced-technology-gmbh/ticketboard/internal/tui"
)

func runTUI(_ *cobra.Command, _ []string) error {
	ctx, stop := commandContext()
	defer stop()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	people, err := s.directory(ctx)
	if err != nil {
		// The board works without the personnel list; the filter falls
		// back to names found on tickets.
		log.Warn().Err(err).Msg("personnel directory unavailable")
		people = nil
	} else {
		defer people.Stop()
	}

	model := tui.NewBoard(s.cfg.Board.Name, s.rec, people)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())

	notify := func() { p.Send(tui.SnapshotMsg{}) }
	s.rec.OnChange(notify)
	if people != nil {
		people.OnChange(notify)
	}

	runCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		defer cancel()
		_, err := p.Run()
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		p.Quit()
		return nil
	})
	return g.Wait()
}
