package ticket

import (
	"fmt"
	"time"

	"github.com/twiced-technology-gmbh/ticketboard/internal/docstore"
)

// Stored field names.
const (
	fieldTitle       = "title"
	fieldDescription = "description"
	fieldPriority    = "priority"
	fieldIssueType   = "issueType"
	fieldStatus      = "status"
	fieldURLs        = "urls"
	fieldURL         = "url"
	fieldDeadline    = "deadline"
	fieldPersonnel   = "personnel"
	fieldCompletedAt = "completedAt"
	fieldCreatedAt   = "createdAt"
)

// FieldCreatedAt is the stored creation timestamp used for ordering.
const FieldCreatedAt = fieldCreatedAt

// Decode converts a stored document into a Ticket. Absent optional fields
// stay absent; an absent urls list decodes to an empty list.
func Decode(doc docstore.Document) (*Ticket, error) {
	f := doc.Fields
	t := &Ticket{ID: doc.ID, URLs: []string{}}

	var err error
	if t.Title, err = stringField(f, fieldTitle); err != nil {
		return nil, err
	}
	if t.Description, err = stringField(f, fieldDescription); err != nil {
		return nil, err
	}
	var s string
	if s, err = stringField(f, fieldPriority); err != nil {
		return nil, err
	}
	t.Priority = Priority(s)
	if s, err = stringField(f, fieldIssueType); err != nil {
		return nil, err
	}
	t.IssueType = IssueType(s)
	if s, err = stringField(f, fieldStatus); err != nil {
		return nil, err
	}
	t.Status = Status(s)
	if t.Personnel, err = stringField(f, fieldPersonnel); err != nil {
		return nil, err
	}
	if t.URLs, err = decodeURLs(f[fieldURLs]); err != nil {
		return nil, err
	}
	if t.Deadline, err = timeField(f, fieldDeadline); err != nil {
		return nil, err
	}
	if t.CompletedAt, err = timeField(f, fieldCompletedAt); err != nil {
		return nil, err
	}
	created, err := timeField(f, fieldCreatedAt)
	if err != nil {
		return nil, err
	}
	if created != nil {
		t.CreatedAt = *created
	}
	return t, nil
}

// DecodeWarning describes a document that could not be decoded.
type DecodeWarning struct {
	ID  string
	Err error
}

// DecodeAll decodes a snapshot, skipping malformed documents instead of
// failing the whole snapshot. Order is preserved.
func DecodeAll(docs []docstore.Document) ([]*Ticket, []DecodeWarning) {
	tickets := make([]*Ticket, 0, len(docs))
	var warnings []DecodeWarning
	for _, d := range docs {
		t, err := Decode(d)
		if err != nil {
			warnings = append(warnings, DecodeWarning{ID: d.ID, Err: err})
			continue
		}
		tickets = append(tickets, t)
	}
	return tickets, warnings
}

// Encode converts a new ticket into stored fields. createdAt is always left
// to the store clock.
func Encode(t *Ticket) map[string]any {
	fields := map[string]any{
		fieldTitle:       t.Title,
		fieldDescription: t.Description,
		fieldPriority:    string(t.Priority),
		fieldIssueType:   string(t.IssueType),
		fieldStatus:      string(t.Status),
		fieldURLs:        encodeURLs(t.URLs),
		fieldCreatedAt:   docstore.ServerTimestamp,
	}
	if t.Deadline != nil {
		fields[fieldDeadline] = t.Deadline.UTC()
	}
	if t.CompletedAt != nil {
		fields[fieldCompletedAt] = t.CompletedAt.UTC()
	}
	if t.Personnel != "" {
		fields[fieldPersonnel] = t.Personnel
	}
	return fields
}

func encodeURLs(urls []string) []any {
	out := make([]any, len(urls))
	for i, u := range urls {
		out[i] = map[string]any{fieldURL: u}
	}
	return out
}

func decodeURLs(v any) ([]string, error) {
	if v == nil {
		return []string{}, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("field %s: expected a list, got %T", fieldURLs, v)
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %s[%d]: expected {url: ...}, got %T", fieldURLs, i, item)
		}
		u, ok := m[fieldURL].(string)
		if !ok {
			return nil, fmt.Errorf("field %s[%d].url: expected a string, got %T", fieldURLs, i, m[fieldURL])
		}
		out = append(out, u)
	}
	return out, nil
}

func stringField(f map[string]any, name string) (string, error) {
	v, ok := f[name]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %s: expected a string, got %T", name, v)
	}
	return s, nil
}

func timeField(f map[string]any, name string) (*time.Time, error) {
	v, ok := f[name]
	if !ok || v == nil {
		return nil, nil
	}
	t, ok := v.(time.Time)
	if !ok {
		return nil, fmt.Errorf("field %s: expected a timestamp, got %T", name, v)
	}
	return &t, nil
}
