package board

import (
	"slices"
	"strings"

	"github.com/twiced-technology-gmbh/ticketboard/internal/ticket"
)

// FilterOptions defines which tickets to include. Zero values mean "all".
type FilterOptions struct {
	Priority   ticket.Priority
	Personnel  string
	Text       string // case-insensitive substring match across title, description, and personnel
	Statuses   []ticket.Status
	IssueTypes []ticket.IssueType
}

// IsZero reports whether the options filter nothing out.
func (o FilterOptions) IsZero() bool {
	return o.Priority == "" && o.Personnel == "" && o.Text == "" &&
		len(o.Statuses) == 0 && len(o.IssueTypes) == 0
}

// Filter returns tickets matching all specified criteria (AND logic), in
// their original order. The input slice is not modified.
func Filter(tickets []*ticket.Ticket, opts FilterOptions) []*ticket.Ticket {
	result := make([]*ticket.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if matchesFilter(t, opts) {
			result = append(result, t)
		}
	}
	return result
}

// FilterColumns applies Filter to every column.
func FilterColumns(cols []Column, opts FilterOptions) []Column {
	out := make([]Column, len(cols))
	for i, c := range cols {
		out[i] = Column{Status: c.Status, Title: c.Title, Tickets: Filter(c.Tickets, opts)}
	}
	return out
}

func matchesFilter(t *ticket.Ticket, opts FilterOptions) bool {
	if opts.Priority != "" && t.Priority != opts.Priority {
		return false
	}
	if opts.Personnel != "" && t.Personnel != opts.Personnel {
		return false
	}
	if len(opts.Statuses) > 0 && !slices.Contains(opts.Statuses, t.Status) {
		return false
	}
	if len(opts.IssueTypes) > 0 && !slices.Contains(opts.IssueTypes, t.IssueType) {
		return false
	}
	if opts.Text != "" && !matchesSearch(t, opts.Text) {
		return false
	}
	return true
}

// matchesSearch performs case-insensitive substring matching across title, description, and personnel.
func matchesSearch(t *ticket.Ticket, query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(t.Title), q) ||
		strings.Contains(strings.ToLower(t.Description), q) ||
		strings.Contains(strings.ToLower(t.Personnel), q)
}

// PersonnelNames returns the distinct non-empty personnel names assigned to
// tickets, sorted. These are the choices offered by the personnel filter.
func PersonnelNames(tickets []*ticket.Ticket) []string {
	seen := make(map[string]bool)
	var names []string
	for _, t := range tickets {
		if t.Personnel == "" || seen[t.Personnel] {
			continue
		}
		seen[t.Personnel] = true
		names = append(names, t.Personnel)
	}
	slices.Sort(names)
	return names
}
