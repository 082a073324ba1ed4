package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twiced-technology-gmbh/ticketboard/internal/board"
	"github.com/twiced-technology-gmbh/ticketboard/internal/links"
	"github.com/twiced-technology-gmbh/ticketboard/internal/ticket"
)

var now = time.Date(2025, 4, 10, 12, 0, 0, 0, time.UTC)

func init() {
	var buf bytes.Buffer
	ConfigureColor(&buf, true)
}

func sample() []*ticket.Ticket {
	overdue := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	completed := time.Date(2025, 4, 9, 8, 0, 0, 0, time.UTC)
	return []*ticket.Ticket{
		{
			ID: "12345", Title: "Fix login", Description: "Users **cannot** log in",
			Priority: ticket.PriorityHigh, IssueType: ticket.IssueBug, Status: ticket.StatusTodo,
			URLs: []string{"https://a.example.com"}, Deadline: &overdue, Personnel: "Linh",
			CreatedAt: time.Date(2025, 3, 30, 9, 0, 0, 0, time.UTC),
		},
		{
			ID: "23456", Title: "Ship release", Description: "d",
			Priority: ticket.PriorityLow, IssueType: ticket.IssueTask, Status: ticket.StatusDone,
			URLs: []string{}, Deadline: &overdue, CompletedAt: &completed,
		},
	}
}

func TestDetect(t *testing.T) {
	t.Setenv(EnvOutput, "")
	assert.Equal(t, FormatJSON, Detect(true, true, true))
	assert.Equal(t, FormatCompact, Detect(false, true, true))
	assert.Equal(t, FormatTable, Detect(false, false, false))

	t.Setenv(EnvOutput, "oneline")
	assert.Equal(t, FormatCompact, Detect(false, false, false))
	t.Setenv(EnvOutput, "json")
	assert.Equal(t, FormatJSON, Detect(false, false, false))
}

func TestTicketCompact(t *testing.T) {
	var buf bytes.Buffer
	TicketCompact(&buf, sample(), now)

	assert.Equal(t,
		"#12345 [todo/high/Bug] Fix login @Linh due:2025-04-01!overdue\n"+
			"#23456 [done/low/Task] Ship release due:2025-04-01\n",
		buf.String())
}

func TestTicketDetailCompact(t *testing.T) {
	var buf bytes.Buffer
	TicketDetailCompact(&buf, sample()[0], now)

	out := buf.String()
	assert.Contains(t, out, "created:2025-03-30")
	assert.Contains(t, out, "url:https://a.example.com")
	assert.Contains(t, out, "  Users **cannot** log in")
}

func TestTicketTable(t *testing.T) {
	var buf bytes.Buffer
	TicketTable(&buf, sample(), now)

	out := buf.String()
	assert.Contains(t, out, "PERSONNEL")
	assert.Contains(t, out, "2025-04-01 (overdue)")
	assert.Contains(t, out, "Ship release")
}

func TestTicketDetail(t *testing.T) {
	var buf bytes.Buffer
	TicketDetail(&buf, sample()[1], now)

	out := buf.String()
	assert.Contains(t, out, "Ticket #23456: Ship release")
	assert.Contains(t, out, "Completed:")
	assert.NotContains(t, out, "overdue")
}

func TestBoardColumns(t *testing.T) {
	var buf bytes.Buffer
	BoardColumns(&buf, board.Project(sample()), now)

	out := buf.String()
	assert.Contains(t, out, "TO DO (1)")
	assert.Contains(t, out, "IN PROGRESS (0)")
	assert.Contains(t, out, "(empty)")
	assert.Contains(t, out, "@Linh")
}

func TestOverview(t *testing.T) {
	s := board.Summary("Support", sample(), now)

	var buf bytes.Buffer
	OverviewCompact(&buf, s)
	assert.Contains(t, buf.String(), "Support (2 tickets)")
	assert.Contains(t, buf.String(), "  todo: 1 (1 overdue)")
	assert.Contains(t, buf.String(), "  done: 1\n")
	assert.Contains(t, buf.String(), "Priority: low=1 medium=0 high=1")

	buf.Reset()
	OverviewTable(&buf, s)
	assert.Contains(t, buf.String(), "Total: 2 tickets")
}

func TestLinks(t *testing.T) {
	ls := []links.Link{{ID: "abc", URL: "https://docs.example.com/x"}}

	var buf bytes.Buffer
	LinksCompact(&buf, ls)
	assert.Equal(t, "abc docs.example.com <https://docs.example.com/x>\n", buf.String())

	buf.Reset()
	LinksTable(&buf, ls)
	assert.Contains(t, buf.String(), "docs.example.com")
}

func TestActivityTable(t *testing.T) {
	entries := []board.LogEntry{
		{Timestamp: now.Add(-26 * time.Hour), Action: "move", TicketID: "12345", Detail: "todo -> done"},
		{Timestamp: now.Add(-5 * time.Minute), Action: "delete", TicketID: "23456"},
	}

	var buf bytes.Buffer
	ActivityTable(&buf, entries, now)
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "1d 2h")
	assert.Contains(t, lines[1], "#12345")
	assert.Contains(t, lines[1], "todo -> done")
	assert.Contains(t, lines[2], "0h 5m")
	assert.Contains(t, lines[2], "--")
}

func TestJSONError(t *testing.T) {
	var buf bytes.Buffer
	JSONError(&buf, "VALIDATION_FAILED", "title is required", map[string]any{"field": "title"})

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "VALIDATION_FAILED", resp.Code)
	assert.Equal(t, "title", resp.Details["field"])
}

func TestRenderMarkdown(t *testing.T) {
	out := RenderMarkdown("# Heading\n\nSome *text*.", 40)
	assert.Contains(t, out, "Heading")
	assert.Contains(t, out, "text")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "2d 3h", FormatDuration(51*time.Hour))
	assert.Equal(t, "1h 30m", FormatDuration(90*time.Minute))
}
