package board

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twiced-technology-gmbh/ticketboard/internal/clierr"
	"github.com/twiced-technology-gmbh/ticketboard/internal/ticket"
)

func tk(id string, status ticket.Status) *ticket.Ticket {
	return &ticket.Ticket{ID: id, Title: "ticket " + id, Status: status, URLs: []string{}}
}

func ticketIDs(ts []*ticket.Ticket) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.ID
	}
	return out
}

func TestProject_partitions_in_arrival_order(t *testing.T) {
	in := []*ticket.Ticket{
		tk("1", ticket.StatusDone),
		tk("2", ticket.StatusTodo),
		tk("3", "archived"),
		tk("4", ticket.StatusInProgress),
		tk("5", ticket.StatusTodo),
		tk("6", ""),
	}

	cols := Project(in)

	require.Len(t, cols, 3)
	assert.Equal(t, []string{"TO DO", "IN PROGRESS", "DONE"},
		[]string{cols[0].Title, cols[1].Title, cols[2].Title})
	assert.Equal(t, []string{"2", "5"}, ticketIDs(cols[0].Tickets))
	assert.Equal(t, []string{"4"}, ticketIDs(cols[1].Tickets))
	assert.Equal(t, []string{"1"}, ticketIDs(cols[2].Tickets))

	for _, c := range cols {
		for _, member := range c.Tickets {
			assert.Equal(t, c.Status, member.Status)
		}
	}
}

func TestProject_empty_snapshot_has_three_empty_columns(t *testing.T) {
	cols := Project(nil)
	require.Len(t, cols, 3)
	for _, c := range cols {
		assert.NotNil(t, c.Tickets)
		assert.Empty(t, c.Tickets)
	}
	assert.Nil(t, ColumnFor(cols, "archived"))
	assert.Equal(t, ticket.StatusDone, ColumnFor(cols, ticket.StatusDone).Status)
}

func TestFilter(t *testing.T) {
	a := &ticket.Ticket{ID: "a", Title: "Fix LOGIN", Priority: ticket.PriorityHigh, Personnel: "Ana", Status: ticket.StatusTodo}
	b := &ticket.Ticket{ID: "b", Title: "Docs", Description: "login guide", Priority: ticket.PriorityLow, Personnel: "Ben", Status: ticket.StatusDone}
	c := &ticket.Ticket{ID: "c", Title: "Infra", Priority: ticket.PriorityHigh, Personnel: "Ana", Status: ticket.StatusInProgress, IssueType: ticket.IssueBug}
	d := &ticket.Ticket{ID: "d", Title: "Misc", Priority: ticket.PriorityHigh, Personnel: "Loginov"}
	all := []*ticket.Ticket{a, b, c, d}

	tests := []struct {
		name string
		opts FilterOptions
		want []string
	}{
		{"no filter", FilterOptions{}, []string{"a", "b", "c", "d"}},
		{"priority", FilterOptions{Priority: ticket.PriorityHigh}, []string{"a", "c", "d"}},
		{"personnel", FilterOptions{Personnel: "Ana"}, []string{"a", "c"}},
		{"text is case-insensitive over title, description and personnel", FilterOptions{Text: "login"}, []string{"a", "b", "d"}},
		{"conjunction", FilterOptions{Priority: ticket.PriorityHigh, Personnel: "Ana", Text: "login"}, []string{"a"}},
		{"no match", FilterOptions{Personnel: "Zoe"}, []string{}},
		{"status", FilterOptions{Statuses: []ticket.Status{ticket.StatusDone, ticket.StatusTodo}}, []string{"a", "b"}},
		{"issue type", FilterOptions{IssueTypes: []ticket.IssueType{ticket.IssueBug}}, []string{"c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(all, tt.opts)
			assert.Equal(t, tt.want, ticketIDs(got))
		})
	}

	assert.Equal(t, []string{"a", "b", "c", "d"}, ticketIDs(all), "input must not be reordered")
	assert.True(t, FilterOptions{}.IsZero())
	assert.False(t, FilterOptions{Text: "x"}.IsZero())
}

func TestFilterColumns_keeps_every_column(t *testing.T) {
	cols := Project([]*ticket.Ticket{
		{ID: "1", Status: ticket.StatusTodo, Priority: ticket.PriorityLow},
		{ID: "2", Status: ticket.StatusDone, Priority: ticket.PriorityHigh},
	})
	got := FilterColumns(cols, FilterOptions{Priority: ticket.PriorityHigh})

	require.Len(t, got, 3)
	assert.Empty(t, got[0].Tickets)
	assert.Equal(t, []string{"2"}, ticketIDs(got[2].Tickets))
	assert.Len(t, cols[0].Tickets, 1, "source columns untouched")
}

func TestPersonnelNames(t *testing.T) {
	got := PersonnelNames([]*ticket.Ticket{
		{Personnel: "Ben"}, {Personnel: ""}, {Personnel: "Ana"}, {Personnel: "Ben"},
	})
	assert.Equal(t, []string{"Ana", "Ben"}, got)
	assert.Empty(t, PersonnelNames(nil))
}

func TestAdjacent_clamps_at_the_ends(t *testing.T) {
	tests := []struct {
		from ticket.Status
		dir  Direction
		want ticket.Status
		ok   bool
	}{
		{ticket.StatusTodo, Left, ticket.StatusTodo, false},
		{ticket.StatusTodo, Right, ticket.StatusInProgress, true},
		{ticket.StatusInProgress, Left, ticket.StatusTodo, true},
		{ticket.StatusInProgress, Right, ticket.StatusDone, true},
		{ticket.StatusDone, Right, ticket.StatusDone, false},
		{ticket.StatusDone, Left, ticket.StatusInProgress, true},
		{"archived", Left, "archived", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+" "+tt.dir.String(), func(t *testing.T) {
			got, ok := Adjacent(tt.from, tt.dir)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("next")
	require.NoError(t, err)
	assert.Equal(t, Right, d)
	d, err = ParseDirection("left")
	require.NoError(t, err)
	assert.Equal(t, Left, d)
	_, err = ParseDirection("up")
	require.Error(t, err)
}

func TestTransition_side_effects(t *testing.T) {
	into, err := Transition(ticket.StatusInProgress, ticket.StatusDone)
	require.NoError(t, err)
	assert.Equal(t, ticket.OpServerTime, into.CompletedAt.Op())
	status, _ := into.Status.Value()
	assert.Equal(t, ticket.StatusDone, status)

	out, err := Transition(ticket.StatusDone, ticket.StatusTodo)
	require.NoError(t, err)
	assert.Equal(t, ticket.OpUnset, out.CompletedAt.Op())

	plain, err := Transition(ticket.StatusTodo, ticket.StatusInProgress)
	require.NoError(t, err)
	assert.False(t, plain.CompletedAt.Changed())
	assert.Equal(t, []string{"status"}, plain.ChangedFields())

	same, err := Transition(ticket.StatusDone, ticket.StatusDone)
	require.NoError(t, err)
	assert.True(t, same.IsEmpty())

	_, err = Transition(ticket.StatusTodo, "blocked")
	assert.Equal(t, clierr.InvalidStatus, clierr.CodeOf(err))
}

func TestEditPatch(t *testing.T) {
	done := &ticket.Ticket{ID: "1", Status: ticket.StatusDone}

	p, err := EditPatch(done, ticket.Patch{Title: ticket.Set("renamed"), Status: ticket.Set(ticket.StatusInProgress)})
	require.NoError(t, err)
	assert.Equal(t, []string{"title", "status", "completedAt"}, p.ChangedFields())
	assert.Equal(t, ticket.OpUnset, p.CompletedAt.Op())

	p, err = EditPatch(done, ticket.Patch{Title: ticket.Set("x"), Status: ticket.Set(ticket.StatusDone)})
	require.NoError(t, err)
	assert.Equal(t, []string{"title"}, p.ChangedFields(), "unchanged status is not rewritten")

	_, err = EditPatch(done, ticket.Patch{CompletedAt: ticket.Unset[time.Time]()})
	assert.Equal(t, clierr.ValidationFailed, clierr.CodeOf(err))

	_, err = EditPatch(done, ticket.Patch{Title: ticket.Set("")})
	assert.Equal(t, clierr.ValidationFailed, clierr.CodeOf(err))
}

func TestDeadlineStatus(t *testing.T) {
	now := time.Date(2025, 4, 10, 15, 0, 0, 0, time.UTC)
	at := func(d time.Time) *ticket.Ticket { return &ticket.Ticket{Deadline: &d} }

	assert.Equal(t, DeadlineNone, DeadlineStatus(&ticket.Ticket{}, now))
	assert.Equal(t, DeadlineOverdue, DeadlineStatus(at(now.AddDate(0, 0, -1)), now))
	assert.Equal(t, DeadlineToday, DeadlineStatus(at(time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC)), now))
	assert.Equal(t, DeadlineToday, DeadlineStatus(at(time.Date(2025, 4, 10, 23, 59, 0, 0, time.UTC)), now))
	assert.Equal(t, DeadlineUpcoming, DeadlineStatus(at(now.AddDate(0, 0, 1)), now))
	assert.Equal(t, "overdue", DeadlineOverdue.String())
}

func TestSummary(t *testing.T) {
	now := time.Date(2025, 4, 10, 12, 0, 0, 0, time.UTC)
	past := now.AddDate(0, 0, -3)
	tickets := []*ticket.Ticket{
		{ID: "1", Status: ticket.StatusTodo, Priority: ticket.PriorityHigh, IssueType: ticket.IssueBug, Deadline: &past},
		{ID: "2", Status: ticket.StatusDone, Priority: ticket.PriorityLow, IssueType: ticket.IssueTask, Deadline: &past},
		{ID: "3", Status: ticket.StatusInProgress, Priority: ticket.PriorityHigh, IssueType: ticket.IssueBug},
		{ID: "4", Status: "archived", Priority: ticket.PriorityHigh},
	}

	ov := Summary("Team", tickets, now)

	assert.Equal(t, "Team", ov.BoardName)
	assert.Equal(t, 3, ov.TotalTickets)
	assert.Equal(t, 1, ov.Columns[0].Count)
	assert.Equal(t, 1, ov.Columns[0].Overdue)
	assert.Equal(t, 0, ov.Columns[2].Overdue, "done tickets are never overdue")
	assert.Equal(t, PriorityCount{Priority: ticket.PriorityHigh, Count: 2}, ov.Priorities[2])
	assert.Equal(t, IssueTypeCount{IssueType: ticket.IssueBug, Count: 2}, ov.IssueTypes[1])
}

func TestParseIDs(t *testing.T) {
	ids, err := ParseIDs("12345, 23456,12345,,")
	require.NoError(t, err)
	assert.Equal(t, []string{"12345", "23456"}, ids)

	_, err = ParseIDs(" , ")
	assert.Equal(t, clierr.InvalidInput, clierr.CodeOf(err))
	_, err = ParseIDs("12345,../x")
	assert.Equal(t, clierr.InvalidInput, clierr.CodeOf(err))
}

func TestSort(t *testing.T) {
	d1 := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)
	tickets := []*ticket.Ticket{
		{ID: "3", Title: "c", Priority: ticket.PriorityLow, CreatedAt: d2},
		{ID: "1", Title: "a", Priority: ticket.PriorityHigh, CreatedAt: d1, Deadline: &d2},
		{ID: "2", Title: "b", Priority: ticket.PriorityMedium, CreatedAt: d1.Add(time.Hour), Deadline: &d1},
	}

	Sort(tickets, SortCreated, false)
	assert.Equal(t, []string{"1", "2", "3"}, ticketIDs(tickets))
	Sort(tickets, SortPriority, true)
	assert.Equal(t, []string{"1", "2", "3"}, ticketIDs(tickets))
	Sort(tickets, SortDeadline, false)
	assert.Equal(t, []string{"2", "1", "3"}, ticketIDs(tickets))
	Sort(tickets, SortTitle, true)
	assert.Equal(t, []string{"3", "2", "1"}, ticketIDs(tickets))
}

func TestGroupBy(t *testing.T) {
	tickets := []*ticket.Ticket{
		{ID: "1", Personnel: "Ben", Status: ticket.StatusTodo},
		{ID: "2", Personnel: "Ana", Status: ticket.StatusDone},
		{ID: "3", Status: ticket.StatusTodo},
		{ID: "4", Personnel: "Ana", Status: ticket.StatusTodo},
	}

	got := GroupBy(tickets, "personnel")

	require.Len(t, got.Groups, 3)
	assert.Equal(t, "(unassigned)", got.Groups[0].Key)
	assert.Equal(t, "Ana", got.Groups[1].Key)
	assert.Equal(t, 2, got.Groups[1].Total)
	assert.Equal(t, 1, got.Groups[1].Columns[0].Count)
	assert.Equal(t, 1, got.Groups[1].Columns[2].Count)
}

func TestActivityLog(t *testing.T) {
	dir := t.TempDir()
	LogMutation(dir, "create", "12345", "Fix login")
	ActivityLogger(dir)("move", "12345", "done")

	entries, err := ReadLog(dir, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "create", entries[0].Action)
	assert.Equal(t, "12345", entries[1].TicketID)
	assert.Equal(t, "done", entries[1].Detail)

	last, err := ReadLog(dir, 1)
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, "move", last[0].Action)

	none, err := ReadLog(t.TempDir(), 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}
