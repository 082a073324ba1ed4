// Package ticket holds the ticket record, its partial-update model, and the
// adapter that maps tickets onto the document store.
package ticket

import (
	"time"
)

// Collection names in the document store.
const (
	Collection          = "tickets"
	PersonnelCollection = "personnel"
)

// Status is the board column a ticket sits in.
type Status string

// Known statuses, in column order.
const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "inprogress"
	StatusDone       Status = "done"
)

// Statuses is the fixed column sequence.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusDone}

// Index returns the position of s in Statuses, or -1 for unknown values.
func (s Status) Index() int {
	for i, st := range Statuses {
		if st == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is one of the three board statuses.
func (s Status) Valid() bool { return s.Index() >= 0 }

// Title is the column heading for s.
func (s Status) Title() string {
	switch s {
	case StatusTodo:
		return "TO DO"
	case StatusInProgress:
		return "IN PROGRESS"
	case StatusDone:
		return "DONE"
	default:
		return string(s)
	}
}

// Priority ranks a ticket.
type Priority string

// Known priorities, lowest first.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities lists the known priorities, lowest first.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// Rank returns the position of p in Priorities, or -1.
func (p Priority) Rank() int {
	for i, pr := range Priorities {
		if pr == p {
			return i
		}
	}
	return -1
}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool { return p.Rank() >= 0 }

// IssueType classifies a ticket.
type IssueType string

// Known issue types.
const (
	IssueTask  IssueType = "Task"
	IssueBug   IssueType = "Bug"
	IssueStory IssueType = "Story"
)

// IssueTypes lists the known issue types.
var IssueTypes = []IssueType{IssueTask, IssueBug, IssueStory}

// Valid reports whether it is a known issue type.
func (it IssueType) Valid() bool {
	for _, known := range IssueTypes {
		if known == it {
			return true
		}
	}
	return false
}

// Ticket is one card on the board.
type Ticket struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    Priority   `json:"priority"`
	IssueType   IssueType  `json:"issueType"`
	Status      Status     `json:"status"`
	URLs        []string   `json:"urls"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Personnel   string     `json:"personnel,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// FormData is what the create form collects. Status and timestamps are
// assigned on creation.
type FormData struct {
	Title       string
	Description string
	Priority    Priority
	IssueType   IssueType
	URLs        []string
	Deadline    *time.Time
	Personnel   string
}
