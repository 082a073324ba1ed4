package board

import (
	"sort"

	"github.com/twiced-technology-gmbh/ticketboard/internal/ticket"
)

// Sort fields accepted by Sort.
const (
	SortCreated  = "created"
	SortID       = "id"
	SortPriority = "priority"
	SortStatus   = "status"
	SortDeadline = "deadline"
	SortTitle    = "title"
)

// ValidSortFields returns the list of valid --sort field names.
func ValidSortFields() []string {
	return []string{SortCreated, SortID, SortPriority, SortStatus, SortDeadline, SortTitle}
}

// Sort sorts tickets in place by the given field. Status and priority use
// board order, not alphabetical order.
func Sort(tickets []*ticket.Ticket, field string, reverse bool) {
	sort.SliceStable(tickets, func(i, j int) bool {
		if reverse {
			return lessTickets(tickets[j], tickets[i], field)
		}
		return lessTickets(tickets[i], tickets[j], field)
	})
}

func lessTickets(a, b *ticket.Ticket, field string) bool {
	switch field {
	case SortID:
		return a.ID < b.ID
	case SortStatus:
		return a.Status.Index() < b.Status.Index()
	case SortPriority:
		return a.Priority.Rank() < b.Priority.Rank()
	case SortDeadline:
		return lessDeadline(a, b)
	case SortTitle:
		return a.Title < b.Title
	default:
		return a.CreatedAt.Before(b.CreatedAt)
	}
}

func lessDeadline(a, b *ticket.Ticket) bool {
	if a.Deadline == nil {
		return false // nil sorts last
	}
	if b.Deadline == nil {
		return true
	}
	return a.Deadline.Before(*b.Deadline)
}
