package output

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/twiced-technology-gmbh/ticketboard/internal/board"
	"github.com/twiced-technology-gmbh/ticketboard/internal/date"
	"github.com/twiced-technology-gmbh/ticketboard/internal/links"
	"github.com/twiced-technology-gmbh/ticketboard/internal/ticket"
)

// TicketCompact renders a list of tickets in one-line-per-record compact format.
func TicketCompact(w io.Writer, tickets []*ticket.Ticket, now time.Time) {
	if len(tickets) == 0 {
		fmt.Fprintln(os.Stderr, "No tickets found.")
		return
	}

	for _, t := range tickets {
		fmt.Fprintln(w, formatTicketLine(t, now))
	}
}

// TicketDetailCompact renders a single ticket with detail in compact format.
func TicketDetailCompact(w io.Writer, t *ticket.Ticket, now time.Time) {
	fmt.Fprintln(w, formatTicketLine(t, now))

	var ts []string
	if !t.CreatedAt.IsZero() {
		ts = append(ts, "created:"+t.CreatedAt.In(now.Location()).Format("2006-01-02"))
	}
	if t.CompletedAt != nil {
		ts = append(ts, "completed:"+date.Format(t.CompletedAt, now.Location()))
	}
	if len(ts) > 0 {
		fmt.Fprintln(w, "  "+strings.Join(ts, " "))
	}
	for _, u := range t.URLs {
		fmt.Fprintln(w, "  url:"+u)
	}

	if t.Description != "" {
		for _, line := range strings.Split(t.Description, "\n") {
			fmt.Fprintln(w, "  "+line)
		}
	}
}

// OverviewCompact renders a board summary in compact format.
func OverviewCompact(w io.Writer, s board.Overview) {
	fmt.Fprintf(w, "%s (%d tickets)\n", s.BoardName, s.TotalTickets)

	for _, cs := range s.Columns {
		line := "  " + string(cs.Status) + ": " + strconv.Itoa(cs.Count)
		if cs.Overdue > 0 {
			line += " (" + strconv.Itoa(cs.Overdue) + " overdue)"
		}
		fmt.Fprintln(w, line)
	}

	if len(s.Priorities) > 0 {
		parts := make([]string, 0, len(s.Priorities))
		for _, pc := range s.Priorities {
			parts = append(parts, string(pc.Priority)+"="+strconv.Itoa(pc.Count))
		}
		fmt.Fprintln(w, "Priority: "+strings.Join(parts, " "))
	}
	if len(s.IssueTypes) > 0 {
		parts := make([]string, 0, len(s.IssueTypes))
		for _, ic := range s.IssueTypes {
			parts = append(parts, string(ic.IssueType)+"="+strconv.Itoa(ic.Count))
		}
		fmt.Fprintln(w, "Type: "+strings.Join(parts, " "))
	}
}

// LinksCompact renders one link per line.
func LinksCompact(w io.Writer, ls []links.Link) {
	if len(ls) == 0 {
		fmt.Fprintln(os.Stderr, "No links found.")
		return
	}
	for _, l := range ls {
		fmt.Fprintf(w, "%s %s <%s>\n", l.ID, l.Title(), l.URL)
	}
}

// formatTicketLine builds the one-line representation of a ticket.
func formatTicketLine(t *ticket.Ticket, now time.Time) string {
	line := "#" + t.ID + " [" + string(t.Status) + "/" + string(t.Priority) + "/" + string(t.IssueType) + "] " + t.Title

	if t.Personnel != "" {
		line += " @" + t.Personnel
	}
	if t.Deadline != nil {
		line += " due:" + date.Format(t.Deadline, now.Location())
		if t.Status != ticket.StatusDone {
			switch st := board.DeadlineStatus(t, now); st {
			case board.DeadlineOverdue, board.DeadlineToday:
				line += "!" + st.String()
			}
		}
	}

	return line
}
