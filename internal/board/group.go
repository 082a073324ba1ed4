package board

import (
	"sort"

	"github.com/twiced-technology-gmbh/ticketboard/internal/ticket"
)

const unassigned = "(unassigned)"

// GroupedSummary holds tickets grouped by a field.
type GroupedSummary struct {
	Groups []GroupSummary `json:"groups"`
}

// GroupSummary is one group within a grouped view.
type GroupSummary struct {
	Key     string          `json:"key"`
	Columns []ColumnSummary `json:"columns"`
	Total   int             `json:"total"`
}

// ValidGroupByFields returns the list of valid --group-by field names.
func ValidGroupByFields() []string {
	return []string{"personnel", "priority", "issueType", "status"}
}

// GroupBy groups tickets by field and returns per-column counts per group.
func GroupBy(tickets []*ticket.Ticket, field string) GroupedSummary {
	groups := make(map[string][]*ticket.Ticket)
	for _, t := range tickets {
		key := groupKey(t, field)
		groups[key] = append(groups[key], t)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sortGroupKeys(keys, field)

	result := GroupedSummary{Groups: make([]GroupSummary, 0, len(keys))}
	for _, key := range keys {
		members := groups[key]
		counts := CountByStatus(members)
		cols := make([]ColumnSummary, 0, len(ticket.Statuses))
		for _, s := range ticket.Statuses {
			cols = append(cols, ColumnSummary{Status: s, Title: s.Title(), Count: counts[s]})
		}
		result.Groups = append(result.Groups, GroupSummary{Key: key, Columns: cols, Total: len(members)})
	}
	return result
}

func groupKey(t *ticket.Ticket, field string) string {
	switch field {
	case "personnel":
		if t.Personnel == "" {
			return unassigned
		}
		return t.Personnel
	case "priority":
		return string(t.Priority)
	case "issueType":
		return string(t.IssueType)
	case "status":
		return string(t.Status)
	default:
		return "(all)"
	}
}

func sortGroupKeys(keys []string, field string) {
	sort.Strings(keys)
	switch field {
	case "status":
		sort.SliceStable(keys, func(i, j int) bool {
			return ticket.Status(keys[i]).Index() < ticket.Status(keys[j]).Index()
		})
	case "priority":
		sort.SliceStable(keys, func(i, j int) bool {
			return ticket.Priority(keys[i]).Rank() < ticket.Priority(keys[j]).Rank()
		})
	}
}
