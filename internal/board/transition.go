package board

import (
	"fmt"
	"time"

	"github.com/twiced-technology-gmbh/ticketboard/internal/ticket"
)

// Direction is a one-column move.
type Direction int

// Move directions.
const (
	Left  Direction = -1
	Right Direction = 1
)

func (d Direction) String() string {
	if d == Left {
		return "left"
	}
	return "right"
}

// ParseDirection accepts "left"/"prev" and "right"/"next".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "left", "prev":
		return Left, nil
	case "right", "next":
		return Right, nil
	default:
		return 0, fmt.Errorf("invalid direction %q (expected left or right)", s)
	}
}

// Adjacent returns the status one column over from s. ok is false when s is
// already the first (Left) or last (Right) column, or unknown.
func Adjacent(s ticket.Status, d Direction) (ticket.Status, bool) {
	i := s.Index()
	if i < 0 {
		return s, false
	}
	j := i + int(d)
	if j < 0 || j >= len(ticket.Statuses) {
		return s, false
	}
	return ticket.Statuses[j], true
}

// Transition builds the single patch that moves a ticket from one status to
// another. Entering done stamps completedAt with the store clock; leaving
// done removes it. A transition to the same status is an empty patch.
func Transition(from, to ticket.Status) (ticket.Patch, error) {
	if err := ticket.ValidateStatus(to); err != nil {
		return ticket.Patch{}, err
	}
	if from == to {
		return ticket.Patch{}, nil
	}

	p := ticket.Patch{Status: ticket.Set(to)}
	switch {
	case to == ticket.StatusDone:
		p.CompletedAt = ticket.ServerTime()
	case from == ticket.StatusDone:
		p.CompletedAt = ticket.Unset[time.Time]()
	}
	return p, nil
}

// EditPatch prepares an edit-form patch for the ticket cur. Completion time
// cannot be edited directly; a status change is routed through Transition
// and written in the same patch as the other edits.
func EditPatch(cur *ticket.Ticket, p ticket.Patch) (ticket.Patch, error) {
	if p.CompletedAt.Changed() {
		return ticket.Patch{}, ticket.ValidationError("completedAt",
			"completion time follows the ticket's status and cannot be edited")
	}
	if err := p.Validate(); err != nil {
		return ticket.Patch{}, err
	}
	to, ok := p.Status.Value()
	if !ok {
		return p, nil
	}
	if to == cur.Status {
		p.Status = ticket.Field[ticket.Status]{}
		return p, nil
	}
	tp, err := Transition(cur.Status, to)
	if err != nil {
		return ticket.Patch{}, err
	}
	return p.Merge(tp), nil
}
