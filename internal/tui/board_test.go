package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twiced-technology-gmbh/ticketboard/internal/board"
	"github.com/twiced-technology-gmbh/ticketboard/internal/docstore/memstore"
	"github.com/twiced-technology-gmbh/ticketboard/internal/ticket"
)

type harness struct {
	t     *testing.T
	rec   *board.Reconciler
	store *ticket.Store
	board *Board
}

func newHarness(t *testing.T, seed ...*ticket.Ticket) *harness {
	t.Helper()
	ctx := context.Background()
	docs := memstore.New()
	t.Cleanup(func() { _ = docs.Close() })
	store := ticket.NewStore(docs)
	for _, tk := range seed {
		_, err := store.Create(ctx, tk)
		require.NoError(t, err)
	}

	rec := board.NewReconciler(store)
	require.NoError(t, rec.Start(ctx))
	t.Cleanup(rec.Stop)
	require.NoError(t, rec.WaitFor(ctx, func() (bool, error) {
		return len(rec.Tickets()) == len(seed), nil
	}))

	b := NewBoard("Support", rec, nil)
	b.SetNow(func() time.Time { return time.Date(2025, 4, 10, 12, 0, 0, 0, time.UTC) })
	b.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return &harness{t: t, rec: rec, store: store, board: b}
}

func (h *harness) key(s string) tea.Cmd {
	var msg tea.KeyMsg
	switch s {
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
	_, cmd := h.board.Update(msg)
	return cmd
}

// run executes a write command and feeds its result back to the board.
func (h *harness) run(cmd tea.Cmd) {
	h.t.Helper()
	require.NotNil(h.t, cmd)
	h.board.Update(cmd())
}

func (h *harness) waitStatus(id string, status ticket.Status) {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := h.rec.WaitTicket(ctx, id, func(tk *ticket.Ticket) bool {
		return tk != nil && tk.Status == status
	})
	require.NoError(h.t, err)
	h.board.Update(SnapshotMsg{})
}

func seedTicket(id, title string, status ticket.Status, prio ticket.Priority, person string) *ticket.Ticket {
	return &ticket.Ticket{
		ID: id, Title: title, Description: "about " + title,
		Priority: prio, IssueType: ticket.IssueTask, Status: status,
		URLs: []string{}, Personnel: person,
	}
}

func TestBoard_renders_columns(t *testing.T) {
	h := newHarness(t,
		seedTicket("10001", "Write docs", ticket.StatusTodo, ticket.PriorityLow, "An"),
		seedTicket("10002", "Fix crash", ticket.StatusInProgress, ticket.PriorityHigh, ""),
	)

	out := h.board.View()
	assert.Contains(t, out, "TO DO (1)")
	assert.Contains(t, out, "IN PROGRESS (1)")
	assert.Contains(t, out, "DONE (0)")
	assert.Contains(t, out, "Write docs")
	assert.Contains(t, out, "2 tickets")
}

func TestBoard_move_right_waits_for_snapshot(t *testing.T) {
	h := newHarness(t, seedTicket("10001", "Write docs", ticket.StatusTodo, ticket.PriorityLow, ""))

	cmd := h.key(">")
	assert.Len(t, h.board.columns[0].tickets, 1, "no local move before the store confirms")

	h.run(cmd)
	assert.NoError(t, h.board.writeErr)
	h.waitStatus("10001", ticket.StatusInProgress)

	assert.Empty(t, h.board.columns[0].tickets)
	require.Len(t, h.board.columns[1].tickets, 1)
}

func TestBoard_move_into_done_sets_completion(t *testing.T) {
	h := newHarness(t, seedTicket("10001", "Ship", ticket.StatusInProgress, ticket.PriorityLow, ""))
	h.key("l")

	h.run(h.key(">"))
	h.waitStatus("10001", ticket.StatusDone)

	got, err := h.store.Get(context.Background(), "10001")
	require.NoError(t, err)
	assert.NotNil(t, got.CompletedAt)
	assert.Contains(t, h.board.View(), "done 20")
}

func TestBoard_move_at_edge_does_nothing(t *testing.T) {
	h := newHarness(t, seedTicket("10001", "Write docs", ticket.StatusTodo, ticket.PriorityLow, ""))

	assert.Nil(t, h.key("<"))
}

func TestBoard_delete_requires_confirmation(t *testing.T) {
	h := newHarness(t, seedTicket("10001", "Write docs", ticket.StatusTodo, ticket.PriorityLow, ""))

	assert.Nil(t, h.key("d"))
	assert.Contains(t, h.board.View(), "Delete ticket?")
	assert.Nil(t, h.key("n"))
	assert.Len(t, h.rec.Tickets(), 1)

	h.key("d")
	h.run(h.key("y"))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := h.rec.WaitTicket(ctx, "10001", func(tk *ticket.Ticket) bool { return tk == nil })
	require.NoError(t, err)
	h.board.Update(SnapshotMsg{})
	assert.Equal(t, 0, h.board.total)
}

func TestBoard_search_and_filters(t *testing.T) {
	h := newHarness(t,
		seedTicket("10001", "Write docs", ticket.StatusTodo, ticket.PriorityLow, "An"),
		seedTicket("10002", "Fix crash", ticket.StatusTodo, ticket.PriorityHigh, "Binh"),
		seedTicket("10003", "Crash report", ticket.StatusDone, ticket.PriorityHigh, "An"),
	)

	h.key("/")
	for _, r := range "crash" {
		h.key(string(r))
	}
	h.key("enter")
	assert.Equal(t, 2, h.board.total)
	assert.Equal(t, "crash", h.board.filter.Text)

	h.key("a") // first personnel option: An
	assert.Equal(t, "An", h.board.filter.Personnel)
	assert.Equal(t, 1, h.board.total)

	h.key("x")
	assert.Equal(t, 3, h.board.total)

	h.key("p") // low
	h.key("p") // medium
	h.key("p") // high
	assert.Equal(t, ticket.PriorityHigh, h.board.filter.Priority)
	assert.Equal(t, 2, h.board.total)

	h.key("/")
	h.key("esc")
	assert.Empty(t, h.board.filter.Text)
}

func TestBoard_write_error_is_shown_then_cleared(t *testing.T) {
	h := newHarness(t, seedTicket("10001", "Write docs", ticket.StatusTodo, ticket.PriorityLow, ""))

	h.board.Update(writeResultMsg{err: assert.AnError})
	assert.Contains(t, h.board.View(), "Error: ")

	h.board.Update(writeResultMsg{})
	assert.NotContains(t, h.board.View(), "Error: ")
}

func TestBoard_subscription_failure_banner(t *testing.T) {
	h := newHarness(t, seedTicket("10001", "Write docs", ticket.StatusTodo, ticket.PriorityLow, ""))

	h.rec.Fail(assert.AnError)
	h.board.Update(SnapshotMsg{})

	out := h.board.View()
	assert.Contains(t, out, "Live updates unavailable")
	assert.Contains(t, out, "Write docs", "last snapshot stays visible")
}

func TestBoard_drag_between_columns(t *testing.T) {
	h := newHarness(t, seedTicket("10001", "Write docs", ticket.StatusTodo, ticket.PriorityLow, ""))

	press := tea.MouseMsg{X: 5, Y: 2, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft}
	_, cmd := h.board.Update(press)
	assert.Nil(t, cmd)
	require.NotNil(t, h.board.drag)

	// Dropping back into the same column is ignored.
	_, cmd = h.board.Update(tea.MouseMsg{X: 10, Y: 8, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	assert.Nil(t, cmd)

	h.board.Update(press)
	_, cmd = h.board.Update(tea.MouseMsg{X: 85, Y: 2, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	h.run(cmd)
	h.waitStatus("10001", ticket.StatusDone)
}

func TestBoard_mouse_on_narrow_terminal(t *testing.T) {
	h := newHarness(t, seedTicket("10001", "Write docs", ticket.StatusTodo, ticket.PriorityLow, ""))
	h.board.Update(tea.WindowSizeMsg{Width: 2, Height: 40})

	assert.Equal(t, 1, h.board.columnWidth())
	assert.NotPanics(t, func() {
		h.board.Update(tea.MouseMsg{X: 1, Y: 2, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
		h.board.Update(tea.MouseMsg{X: 1, Y: 2, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
