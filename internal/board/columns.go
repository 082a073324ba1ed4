// Package board turns ticket snapshots into the three-column board and
// carries out the board operations: create, edit, move, drag and drop,
// delete, filtering, and id allocation.
package board

import (
	"github.com/twiced-technology-gmbh/ticketboard/internal/ticket"
)

// Column is one board column and the tickets in it, in snapshot order.
type Column struct {
	Status  ticket.Status    `json:"status"`
	Title   string           `json:"title"`
	Tickets []*ticket.Ticket `json:"tickets"`
}

// Project partitions tickets into the fixed columns, keeping arrival order
// inside each column. Tickets with an unknown status are left out.
func Project(tickets []*ticket.Ticket) []Column {
	cols := make([]Column, len(ticket.Statuses))
	for i, s := range ticket.Statuses {
		cols[i] = Column{Status: s, Title: s.Title(), Tickets: []*ticket.Ticket{}}
	}
	for _, t := range tickets {
		if i := t.Status.Index(); i >= 0 {
			cols[i].Tickets = append(cols[i].Tickets, t)
		}
	}
	return cols
}

// ColumnFor returns the column holding status, or nil.
func ColumnFor(cols []Column, status ticket.Status) *Column {
	for i := range cols {
		if cols[i].Status == status {
			return &cols[i]
		}
	}
	return nil
}

// CountByStatus returns the number of tickets in each status.
func CountByStatus(tickets []*ticket.Ticket) map[ticket.Status]int {
	counts := make(map[ticket.Status]int)
	for _, t := range tickets {
		counts[t.Status]++
	}
	return counts
}
