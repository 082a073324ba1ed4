package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twiced-technology-gmbh/ticketboard/internal/board"
	"github.com/twiced-technology-gmbh/ticketboard/internal/clierr"
	"github.com/twiced-technology-gmbh/ticketboard/internal/config"
	"github.com/twiced-technology-gmbh/ticketboard/internal/ticket"
)

func newFlagCmd(t *testing.T, add func(*cobra.Command), args ...string) *cobra.Command {
	t.Helper()
	c := &cobra.Command{Use: "test"}
	add(c)
	require.NoError(t, c.Flags().Parse(args))
	return c
}

func editFlags(c *cobra.Command)   { addEditFlags(c.Flags()) }
func createFlags(c *cobra.Command) { addCreateFlags(c.Flags()) }
func moveFlags(c *cobra.Command)   { addMoveFlags(c.Flags()) }

func TestEnumFlag(t *testing.T) {
	f := newEnumFlag("file", config.Backends...)
	assert.Equal(t, "file", f.String())
	assert.Equal(t, "string", f.Type())

	require.NoError(t, f.Set("sqlite"))
	assert.Equal(t, "sqlite", f.String())

	err := f.Set("postgres")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file, sqlite, memory")
	assert.Equal(t, "sqlite", f.String())
}

func TestEnumFlag_rejected_while_parsing(t *testing.T) {
	c := &cobra.Command{Use: "test"}
	addEditFlags(c.Flags())
	assert.Error(t, c.Flags().Parse([]string{"--priority", "urgent"}))
}

func TestResolveMoveRequest(t *testing.T) {
	tests := []struct {
		name    string
		flags   []string
		args    []string
		want    moveRequest
		errCode string
	}{
		{name: "target", args: []string{"10001", "done"}, want: moveRequest{target: ticket.StatusDone}},
		{name: "right", flags: []string{"--right"}, args: []string{"10001"}, want: moveRequest{dir: board.Right}},
		{name: "direction word", args: []string{"10001", "left"}, want: moveRequest{dir: board.Left}},
		{name: "prev alias", flags: []string{"--prev"}, args: []string{"10001"}, want: moveRequest{dir: board.Left}},
		{name: "unknown status", args: []string{"10001", "archived"}, errCode: clierr.InvalidStatus},
		{name: "both", flags: []string{"--left"}, args: []string{"10001", "done"}, errCode: clierr.InvalidInput},
		{name: "neither", args: []string{"10001"}, errCode: clierr.InvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newFlagCmd(t, moveFlags, tt.flags...)
			got, err := resolveMoveRequest(c, tt.args)
			if tt.errCode != "" {
				assert.Equal(t, tt.errCode, clierr.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEditPatch(t *testing.T) {
	now := time.Date(2025, 4, 10, 15, 0, 0, 0, time.UTC)
	cur := &ticket.Ticket{
		ID: "10001", Title: "Old", Description: "d",
		Priority: ticket.PriorityLow, IssueType: ticket.IssueTask, Status: ticket.StatusTodo,
		URLs: []string{"https://a.example.com", "https://b.example.com"}, Personnel: "An",
	}

	c := newFlagCmd(t, editFlags,
		"--title", "New", "--priority", "high", "--deadline", "+2",
		"--remove-url", "https://a.example.com", "--add-url", "https://c.example.com",
		"--clear-personnel")
	p, err := editPatch(c, cur, now)
	require.NoError(t, err)

	title, ok := p.Title.Value()
	assert.True(t, ok)
	assert.Equal(t, "New", title)
	prio, _ := p.Priority.Value()
	assert.Equal(t, ticket.PriorityHigh, prio)
	deadline, _ := p.Deadline.Value()
	assert.Equal(t, time.Date(2025, 4, 12, 0, 0, 0, 0, time.UTC), deadline)
	urls, _ := p.URLs.Value()
	assert.Equal(t, []string{"https://b.example.com", "https://c.example.com"}, urls)
	assert.True(t, p.Personnel.Changed())
	assert.False(t, p.Description.Changed())
	assert.False(t, p.Status.Changed())
}

func TestEditPatch_errors(t *testing.T) {
	cur := &ticket.Ticket{ID: "10001", URLs: []string{}}

	c := newFlagCmd(t, editFlags, "--deadline", "2025-01-01", "--clear-deadline")
	_, err := editPatch(c, cur, time.Now())
	assert.Equal(t, clierr.InvalidInput, clierr.CodeOf(err))

	c = newFlagCmd(t, editFlags, "--deadline", "someday")
	_, err = editPatch(c, cur, time.Now())
	assert.Equal(t, clierr.InvalidDate, clierr.CodeOf(err))

	c = newFlagCmd(t, editFlags, "--add-url", "not a url")
	_, err = editPatch(c, cur, time.Now())
	assert.Equal(t, clierr.InvalidURL, clierr.CodeOf(err))

	c = newFlagCmd(t, editFlags)
	p, err := editPatch(c, cur, time.Now())
	require.NoError(t, err)
	assert.True(t, p.IsEmpty())
}

func TestCreateForm(t *testing.T) {
	cfg := config.NewDefault("Support")
	now := time.Date(2025, 4, 10, 15, 0, 0, 0, time.UTC)

	c := newFlagCmd(t, createFlags,
		"--body", "Printer on fire", "--due", "tomorrow", "--assignee", " An ",
		"--url", "https://a.example.com", "--type", "Bug")
	form, err := createForm(c, cfg, "Printer", now)
	require.NoError(t, err)

	assert.Equal(t, "Printer on fire", form.Description)
	assert.Equal(t, ticket.Priority(config.DefaultPriority), form.Priority)
	assert.Equal(t, ticket.IssueBug, form.IssueType)
	assert.Equal(t, "An", form.Personnel)
	assert.Equal(t, []string{"https://a.example.com"}, form.URLs)
	require.NotNil(t, form.Deadline)
	assert.Equal(t, time.Date(2025, 4, 11, 0, 0, 0, 0, time.UTC), *form.Deadline)
}

func TestCreateForm_requires_description(t *testing.T) {
	c := newFlagCmd(t, createFlags)
	_, err := createForm(c, config.NewDefault("Support"), "Printer", time.Now())
	assert.Equal(t, clierr.ValidationFailed, clierr.CodeOf(err))
}

func TestResolveCreateTitle(t *testing.T) {
	c := newFlagCmd(t, createFlags, "--title", "A")
	_, err := resolveCreateTitle(c, []string{"B"})
	assert.Equal(t, clierr.InvalidInput, clierr.CodeOf(err))

	title, err := resolveCreateTitle(c, nil)
	require.NoError(t, err)
	assert.Equal(t, "A", title)

	_, err = resolveCreateTitle(newFlagCmd(t, createFlags), nil)
	assert.Error(t, err)
}

func openTestSession(t *testing.T, backend string) *session {
	t.Helper()
	dir := t.TempDir()
	_, err := config.Init(dir, "Support", backend)
	require.NoError(t, err)

	prev := flagDir
	flagDir = dir
	t.Cleanup(func() { flagDir = prev })

	s, err := openSession(context.Background())
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestSession_ticket_lifecycle(t *testing.T) {
	for _, backend := range []string{config.BackendFile, config.BackendSQLite, config.BackendMemory} {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			s := openTestSession(t, backend)

			id, err := s.rec.AddTicket(ctx, ticket.FormData{
				Title: "Printer", Description: "on fire",
				Priority: ticket.PriorityHigh, IssueType: ticket.IssueBug, URLs: []string{},
			})
			require.NoError(t, err)
			assert.Len(t, id, board.DefaultIDDigits)

			created, err := s.await(ctx, id, func(t *ticket.Ticket) bool { return t != nil })
			require.NoError(t, err)
			assert.Equal(t, ticket.StatusTodo, created.Status)

			moved, from, err := executeMove(ctx, s, id, moveRequest{target: ticket.StatusDone})
			require.NoError(t, err)
			assert.Equal(t, ticket.StatusTodo, from)
			assert.Equal(t, ticket.StatusDone, moved.Status)
			assert.NotNil(t, moved.CompletedAt)

			same, from, err := executeMove(ctx, s, id, moveRequest{dir: board.Right})
			require.NoError(t, err, "moving past the last column is a no-op")
			assert.Equal(t, ticket.StatusDone, from)
			assert.Equal(t, ticket.StatusDone, same.Status)
			assert.NotNil(t, same.CompletedAt)

			back, _, err := executeMove(ctx, s, id, moveRequest{dir: board.Left})
			require.NoError(t, err)
			assert.Equal(t, ticket.StatusInProgress, back.Status)
			assert.Nil(t, back.CompletedAt)

			edited, err := executeEdit(ctx, s, id, newFlagCmd(t, editFlags, "--title", "Printer 2", "--status", "done"))
			require.NoError(t, err)
			assert.Equal(t, "Printer 2", edited.Title)
			assert.NotNil(t, edited.CompletedAt)

			require.NoError(t, executeDelete(ctx, s, id))
			require.NoError(t, executeDelete(ctx, s, id))
			_, err = s.ticket(id)
			assert.Equal(t, clierr.TicketNotFound, clierr.CodeOf(err))
		})
	}
}

func TestSession_move_at_first_column_is_noop(t *testing.T) {
	ctx := context.Background()
	s := openTestSession(t, config.BackendMemory)

	id, err := s.rec.AddTicket(ctx, ticket.FormData{
		Title: "Printer", Description: "on fire",
		Priority: ticket.PriorityLow, IssueType: ticket.IssueTask, URLs: []string{},
	})
	require.NoError(t, err)
	_, err = s.await(ctx, id, func(t *ticket.Ticket) bool { return t != nil })
	require.NoError(t, err)

	got, from, err := executeMove(ctx, s, id, moveRequest{dir: board.Left})
	require.NoError(t, err)
	assert.Equal(t, ticket.StatusTodo, from)
	assert.Equal(t, ticket.StatusTodo, got.Status)
	assert.Nil(t, got.CompletedAt)

	right, _, err := executeMove(ctx, s, id, moveRequest{dir: board.Right})
	require.NoError(t, err)
	assert.Equal(t, ticket.StatusInProgress, right.Status)
}

func TestSession_personnel(t *testing.T) {
	ctx := context.Background()
	s := openTestSession(t, config.BackendSQLite)

	require.NoError(t, ensurePersonnel(ctx, s, "An"))
	require.NoError(t, ensurePersonnel(ctx, s, "an"))

	people, err := s.directory(ctx)
	require.NoError(t, err)
	defer people.Stop()
	assert.Equal(t, []string{"An"}, people.Names())
}

func TestLoadConfig_missing_board(t *testing.T) {
	prev := flagDir
	flagDir = t.TempDir()
	t.Cleanup(func() { flagDir = prev })

	_, err := loadConfig()
	assert.Equal(t, clierr.BoardNotFound, clierr.CodeOf(err))
}
