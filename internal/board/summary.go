package board

import (
	"strings"
	"time"

	"github.com/twiced-technology-gmbh/ticketboard/internal/clierr"
	"github.com/twiced-technology-gmbh/ticketboard/internal/docstore"
	"github.com/twiced-technology-gmbh/ticketboard/internal/ticket"
)

// DeadlineState classifies a deadline against the current day.
type DeadlineState int

// Deadline states.
const (
	DeadlineNone DeadlineState = iota
	DeadlineUpcoming
	DeadlineToday
	DeadlineOverdue
)

func (s DeadlineState) String() string {
	switch s {
	case DeadlineUpcoming:
		return "upcoming"
	case DeadlineToday:
		return "today"
	case DeadlineOverdue:
		return "overdue"
	default:
		return ""
	}
}

// DeadlineStatus compares the deadline's calendar day with now's, in now's
// location.
func DeadlineStatus(t *ticket.Ticket, now time.Time) DeadlineState {
	if t.Deadline == nil {
		return DeadlineNone
	}
	due := startOfDay(t.Deadline.In(now.Location()))
	today := startOfDay(now)
	switch {
	case due.Before(today):
		return DeadlineOverdue
	case due.Equal(today):
		return DeadlineToday
	default:
		return DeadlineUpcoming
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ColumnSummary holds metrics for a single column.
type ColumnSummary struct {
	Status  ticket.Status `json:"status"`
	Title   string        `json:"title"`
	Count   int           `json:"count"`
	Overdue int           `json:"overdue"`
}

// PriorityCount holds a count for a priority level.
type PriorityCount struct {
	Priority ticket.Priority `json:"priority"`
	Count    int             `json:"count"`
}

// IssueTypeCount holds a count for an issue type.
type IssueTypeCount struct {
	IssueType ticket.IssueType `json:"issueType"`
	Count     int              `json:"count"`
}

// Overview is the aggregate board overview.
type Overview struct {
	BoardName    string           `json:"board_name"`
	TotalTickets int              `json:"total_tickets"`
	Columns      []ColumnSummary  `json:"columns"`
	Priorities   []PriorityCount  `json:"priorities"`
	IssueTypes   []IssueTypeCount `json:"issue_types"`
}

// Summary computes a board overview. Tickets in done never count as overdue.
func Summary(boardName string, tickets []*ticket.Ticket, now time.Time) Overview {
	cols := Project(tickets)
	columns := make([]ColumnSummary, len(cols))
	total := 0
	for i, c := range cols {
		cs := ColumnSummary{Status: c.Status, Title: c.Title, Count: len(c.Tickets)}
		for _, t := range c.Tickets {
			if c.Status != ticket.StatusDone && DeadlineStatus(t, now) == DeadlineOverdue {
				cs.Overdue++
			}
		}
		total += cs.Count
		columns[i] = cs
	}

	prio := make(map[ticket.Priority]int)
	types := make(map[ticket.IssueType]int)
	for _, c := range cols {
		for _, t := range c.Tickets {
			prio[t.Priority]++
			types[t.IssueType]++
		}
	}

	priorities := make([]PriorityCount, 0, len(ticket.Priorities))
	for _, p := range ticket.Priorities {
		priorities = append(priorities, PriorityCount{Priority: p, Count: prio[p]})
	}
	issueTypes := make([]IssueTypeCount, 0, len(ticket.IssueTypes))
	for _, it := range ticket.IssueTypes {
		issueTypes = append(issueTypes, IssueTypeCount{IssueType: it, Count: types[it]})
	}

	return Overview{
		BoardName:    boardName,
		TotalTickets: total,
		Columns:      columns,
		Priorities:   priorities,
		IssueTypes:   issueTypes,
	}
}

// ParseIDs splits a comma-separated id list, dropping blanks and duplicates.
func ParseIDs(arg string) ([]string, error) {
	parts := strings.Split(arg, ",")
	seen := make(map[string]bool, len(parts))
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if err := docstore.ValidateID(p); err != nil {
			return nil, clierr.Newf(clierr.InvalidInput, "invalid ticket id %q", p).
				WithDetails(map[string]any{"input": p})
		}
		if !seen[p] {
			ids = append(ids, p)
			seen[p] = true
		}
	}
	if len(ids) == 0 {
		return nil, clierr.New(clierr.InvalidInput, "no valid ticket ids provided")
	}
	return ids, nil
}
