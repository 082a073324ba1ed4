package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/twiced-technology-gmbh/ticketboard/internal/board"
	"github.com/twiced-technology-gmbh/ticketboard/internal/date"
	"github.com/twiced-technology-gmbh/ticketboard/internal/links"
	"github.com/twiced-technology-gmbh/ticketboard/internal/personnel"
	"github.com/twiced-technology-gmbh/ticketboard/internal/ticket"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("244"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	// Status colors aligned with TUI column-header palette.
	statusStyles = map[string]lipgloss.Style{
		string(ticket.StatusTodo):       lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		string(ticket.StatusInProgress): lipgloss.NewStyle().Foreground(lipgloss.Color("33")),
		string(ticket.StatusDone):       lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
	}

	// Priority colors matching TUI priority palette.
	priorityStyles = map[string]lipgloss.Style{
		string(ticket.PriorityHigh):   lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		string(ticket.PriorityMedium): lipgloss.NewStyle().Foreground(lipgloss.Color("226")),
		string(ticket.PriorityLow):    lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
	}

	deadlineStyles = map[string]lipgloss.Style{
		board.DeadlineOverdue.String():  lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		board.DeadlineToday.String():    lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
		board.DeadlineUpcoming.String(): lipgloss.NewStyle().Foreground(lipgloss.Color("110")),
	}

	personStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("44"))
)

// DisableColor strips all styling from table output.
func DisableColor() {
	headerStyle = lipgloss.NewStyle()
	dimStyle = lipgloss.NewStyle()
	statusStyles = map[string]lipgloss.Style{}
	priorityStyles = map[string]lipgloss.Style{}
	deadlineStyles = map[string]lipgloss.Style{}
	personStyle = lipgloss.NewStyle()
}

// TicketTable renders a list of tickets as a formatted table. Deadlines are
// judged against now.
func TicketTable(w io.Writer, tickets []*ticket.Ticket, now time.Time) {
	if len(tickets) == 0 {
		fmt.Fprintln(os.Stderr, "No tickets found.")
		return
	}

	// Calculate column widths.
	const pad = 2
	idW, statusW, prioW, typeW, titleW, personW, dueW := 7, 8, 10, 7, 7, 11, 12
	for _, t := range tickets {
		idW = max(idW, len(t.ID)+pad)
		statusW = max(statusW, len(t.Status)+pad)
		prioW = max(prioW, len(t.Priority)+pad)
		typeW = max(typeW, len(t.IssueType)+pad)
		titleW = max(titleW, min(len(t.Title)+pad, 50)) //nolint:mnd // max title column width
		personW = max(personW, min(len(t.Personnel)+pad, 24)) //nolint:mnd // max personnel column width
	}

	header := fmt.Sprintf("%-*s %-*s %-*s %-*s %-*s %-*s %-*s",
		idW, "ID", statusW, "STATUS", prioW, "PRIORITY", typeW, "TYPE",
		titleW, "TITLE", personW, "PERSONNEL", dueW, "DEADLINE")
	fmt.Fprintln(w, headerStyle.Render(strings.TrimRight(header, " ")))

	for _, t := range tickets {
		row := fmt.Sprintf("%-*s %s %s %-*s %s %s %s",
			idW, t.ID,
			padRight(styledValue(string(t.Status), statusStyles), statusW),
			padRight(styledValue(string(t.Priority), priorityStyles), prioW),
			typeW, t.IssueType,
			padRight(truncate(t.Title, 48), titleW), //nolint:mnd // max title width
			padRight(personDisplay(t.Personnel), personW),
			deadlineDisplay(t, now))
		fmt.Fprintln(w, strings.TrimRight(row, " "))
	}
}

// TicketDetail renders a single ticket with full detail. The description
// is rendered as markdown.
func TicketDetail(w io.Writer, t *ticket.Ticket, now time.Time) {
	titleLine := fmt.Sprintf("Ticket #%s: %s", t.ID, t.Title)
	fmt.Fprintln(w, lipgloss.NewStyle().Bold(true).Render(titleLine))
	fmt.Fprintln(w, strings.Repeat("─", lipgloss.Width(titleLine)))

	printField(w, "Status", styledValue(string(t.Status), statusStyles))
	printField(w, "Priority", styledValue(string(t.Priority), priorityStyles))
	printField(w, "Type", string(t.IssueType))
	printField(w, "Personnel", personDisplay(t.Personnel))
	printField(w, "Deadline", deadlineDisplay(t, now))
	if !t.CreatedAt.IsZero() {
		printField(w, "Created", t.CreatedAt.In(now.Location()).Format("2006-01-02 15:04"))
	}
	if t.CompletedAt != nil {
		printField(w, "Completed", t.CompletedAt.In(now.Location()).Format("2006-01-02 15:04"))
		if !t.CreatedAt.IsZero() {
			printField(w, "Lead time", FormatDuration(t.CompletedAt.Sub(t.CreatedAt)))
		}
	}
	if len(t.URLs) > 0 {
		printField(w, "URLs", t.URLs[0])
		for _, u := range t.URLs[1:] {
			fmt.Fprintf(w, "  %-12s %s\n", "", u)
		}
	} else {
		printField(w, "URLs", dimStyle.Render("--"))
	}

	if t.Description != "" {
		fmt.Fprintln(w)
		fmt.Fprint(w, RenderMarkdown(t.Description, markdownWidth))
	}
}

// BoardColumns renders the three columns as consecutive lists, the way the
// board is laid out left to right.
func BoardColumns(w io.Writer, cols []board.Column, now time.Time) {
	for i, c := range cols {
		if i > 0 {
			fmt.Fprintln(w)
		}
		title := fmt.Sprintf("%s (%d)", c.Title, len(c.Tickets))
		fmt.Fprintln(w, styledAs(string(c.Status), title, statusStyles))
		if len(c.Tickets) == 0 {
			fmt.Fprintln(w, "  "+dimStyle.Render("(empty)"))
			continue
		}
		for _, t := range c.Tickets {
			line := fmt.Sprintf("  %s %s %s",
				dimStyle.Render("#"+t.ID),
				styledAs(string(t.Priority), "["+string(t.Priority)+"]", priorityStyles),
				t.Title)
			if t.Personnel != "" {
				line += " " + personStyle.Render("@"+t.Personnel)
			}
			if t.Deadline != nil {
				line += " " + deadlineDisplay(t, now)
			}
			fmt.Fprintln(w, line)
		}
	}
}

// OverviewTable renders a board summary as a formatted dashboard.
func OverviewTable(w io.Writer, s board.Overview) {
	fmt.Fprintln(w, lipgloss.NewStyle().Bold(true).Render(s.BoardName))
	fmt.Fprintf(w, "Total: %d tickets\n\n", s.TotalTickets)

	const colW = 16
	header := fmt.Sprintf("%-*s %6s %8s", colW, "COLUMN", "COUNT", "OVERDUE")
	fmt.Fprintln(w, headerStyle.Render(header))
	for _, cs := range s.Columns {
		fmt.Fprintf(w, "%s %6d %8d\n",
			padRight(styledAs(string(cs.Status), cs.Title, statusStyles), colW),
			cs.Count, cs.Overdue)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-*s %6s", colW, "PRIORITY", "COUNT")))
	for _, pc := range s.Priorities {
		fmt.Fprintf(w, "%s %6d\n",
			padRight(styledValue(string(pc.Priority), priorityStyles), colW), pc.Count)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-*s %6s", colW, "TYPE", "COUNT")))
	for _, ic := range s.IssueTypes {
		fmt.Fprintf(w, "%-*s %6d\n", colW, ic.IssueType, ic.Count)
	}
}

// GroupedTable renders a grouped board view with per-group column breakdowns.
func GroupedTable(w io.Writer, gs board.GroupedSummary) {
	if len(gs.Groups) == 0 {
		fmt.Fprintln(os.Stderr, "No groups found.")
		return
	}

	for i, g := range gs.Groups {
		if i > 0 {
			fmt.Fprintln(w)
		}
		title := fmt.Sprintf("%s (%d tickets)", g.Key, g.Total)
		fmt.Fprintln(w, lipgloss.NewStyle().Bold(true).Render(title))

		for _, cs := range g.Columns {
			if cs.Count == 0 {
				continue
			}
			const groupStatusW = 16
			fmt.Fprintf(w, "  %s %d\n",
				padRight(styledAs(string(cs.Status), cs.Title, statusStyles), groupStatusW), cs.Count)
		}
	}
}

// PersonnelTable lists the personnel directory.
func PersonnelTable(w io.Writer, people []personnel.Personnel) {
	if len(people) == 0 {
		fmt.Fprintln(os.Stderr, "No personnel found.")
		return
	}
	const nameW = 24
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-*s %s", nameW, "NAME", "ADDED")))
	for _, p := range people {
		added := dimStyle.Render("--")
		if !p.CreatedAt.IsZero() {
			added = p.CreatedAt.Local().Format("2006-01-02")
		}
		fmt.Fprintf(w, "%s %s\n", padRight(personStyle.Render(p.Name), nameW), added)
	}
}

// LinksTable lists useful links, newest first.
func LinksTable(w io.Writer, ls []links.Link) {
	if len(ls) == 0 {
		fmt.Fprintln(os.Stderr, "No links found.")
		return
	}
	idW, titleW := 4, 7
	for _, l := range ls {
		idW = max(idW, len(l.ID)+2)                    //nolint:mnd // padding
		titleW = max(titleW, min(len(l.Title())+2, 40)) //nolint:mnd // max title column width
	}
	header := fmt.Sprintf("%-*s %-*s %s", idW, "ID", titleW, "TITLE", "URL")
	fmt.Fprintln(w, headerStyle.Render(header))
	for _, l := range ls {
		fmt.Fprintf(w, "%-*s %s %s\n", idW, l.ID, padRight(truncate(l.Title(), 38), titleW), dimStyle.Render(l.URL)) //nolint:mnd // max title width
	}
}

// ActivityTable lists activity log entries, oldest first, with their age
// relative to now.
func ActivityTable(w io.Writer, entries []board.LogEntry, now time.Time) {
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "No activity recorded.")
		return
	}
	const whenW, actionW, idW = 10, 8, 8
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-*s %-*s %-*s %s", whenW, "AGO", actionW, "ACTION", idW, "TICKET", "DETAIL")))
	for _, e := range entries {
		detail := e.Detail
		if detail == "" {
			detail = dimStyle.Render("--")
		}
		fmt.Fprintf(w, "%-*s %-*s %-*s %s\n",
			whenW, FormatDuration(now.Sub(e.Timestamp)), actionW, e.Action, idW, "#"+e.TicketID, detail)
	}
}

// Messagef prints a simple formatted message line.
func Messagef(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format+"\n", args...)
}

func printField(w io.Writer, label, value string) {
	fmt.Fprintf(w, "  %-12s %s\n", label+":", value)
}

// FormatDuration renders a duration as human-readable "Xd Yh" or "Xh Ym".
func FormatDuration(d time.Duration) string {
	const hoursPerDay = 24
	days := int(d.Hours()) / hoursPerDay
	hours := int(d.Hours()) % hoursPerDay
	if days > 0 {
		return fmt.Sprintf("%dd %dh", days, hours)
	}
	minutes := int(d.Minutes()) % 60 //nolint:mnd // 60 minutes per hour
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

// padRight pads s with spaces to the given visible width, accounting for ANSI
// escape codes that are invisible but consume bytes.
func padRight(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func personDisplay(name string) string {
	if name == "" {
		return dimStyle.Render("--")
	}
	return personStyle.Render(name)
}

// deadlineDisplay shows the deadline day tagged with its state. Done
// tickets are never flagged.
func deadlineDisplay(t *ticket.Ticket, now time.Time) string {
	if t.Deadline == nil {
		return dimStyle.Render("--")
	}
	day := date.Format(t.Deadline, now.Location())
	state := board.DeadlineStatus(t, now)
	if t.Status == ticket.StatusDone || state == board.DeadlineUpcoming {
		return day
	}
	return styledAs(state.String(), day+" ("+state.String()+")", deadlineStyles)
}

// styledValue renders s using a matching style from the map, or returns s unchanged.
func styledValue(s string, styles map[string]lipgloss.Style) string {
	return styledAs(s, s, styles)
}

// styledAs renders text with the style registered under key.
func styledAs(key, text string, styles map[string]lipgloss.Style) string {
	if st, ok := styles[key]; ok {
		return st.Render(text)
	}
	return text
}
