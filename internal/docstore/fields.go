package docstore

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"
)

var validID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// ValidateID checks that a collection name or document id is safe to use as
// a path component or key.
func ValidateID(id string) error {
	if !validID.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// Resolve prepares the fields of a new document: it deep-copies them and
// replaces ServerTimestamp with now. Delete is not allowed on create.
func Resolve(fields map[string]any, now time.Time) (map[string]any, error) {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		switch {
		case IsDelete(v):
			return nil, fmt.Errorf("field %q: delete is not valid on create", k)
		case IsServerTimestamp(v):
			out[k] = now.UTC()
		default:
			out[k] = cloneValue(v)
		}
	}
	return out, nil
}

// ApplyUpdates returns a copy of fields with updates applied in order.
// The input map is not modified.
func ApplyUpdates(fields map[string]any, updates []Update, now time.Time) (map[string]any, error) {
	out := CloneFields(fields)
	for _, u := range updates {
		if u.Path == "" || strings.Contains(u.Path, ".") {
			return nil, fmt.Errorf("invalid update path %q", u.Path)
		}
		switch {
		case IsDelete(u.Value):
			delete(out, u.Path)
		case IsServerTimestamp(u.Value):
			out[u.Path] = now.UTC()
		default:
			out[u.Path] = cloneValue(u.Value)
		}
	}
	return out, nil
}

// CloneFields deep-copies a field map.
func CloneFields(fields map[string]any) map[string]any {
	if fields == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = cloneValue(v)
	}
	return out
}

// CloneDocument deep-copies a document.
func CloneDocument(d Document) Document {
	return Document{ID: d.ID, Fields: CloneFields(d.Fields)}
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return CloneFields(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = item
		}
		return out
	case []map[string]any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = CloneFields(item)
		}
		return out
	case int:
		return int64(val)
	case int32:
		return int64(val)
	default:
		return v
	}
}

// SortDocuments orders docs by the query's OrderBy field. Documents missing
// the field sort after all others; ties are broken by id.
func SortDocuments(docs []Document, q Query) {
	if q.OrderBy == "" {
		slices.SortStableFunc(docs, func(a, b Document) int { return cmp.Compare(a.ID, b.ID) })
		return
	}
	slices.SortStableFunc(docs, func(a, b Document) int {
		av, aok := a.Fields[q.OrderBy]
		bv, bok := b.Fields[q.OrderBy]
		switch {
		case !aok && !bok:
			return cmp.Compare(a.ID, b.ID)
		case !aok:
			return 1
		case !bok:
			return -1
		}
		c := compareValues(av, bv)
		if q.Descending {
			c = -c
		}
		if c == 0 {
			return cmp.Compare(a.ID, b.ID)
		}
		return c
	})
}

func compareValues(a, b any) int {
	switch av := a.(type) {
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	case string:
		if bv, ok := b.(string); ok {
			return cmp.Compare(av, bv)
		}
	case int64:
		switch bv := b.(type) {
		case int64:
			return cmp.Compare(av, bv)
		case float64:
			return cmp.Compare(float64(av), bv)
		}
	case float64:
		switch bv := b.(type) {
		case float64:
			return cmp.Compare(av, bv)
		case int64:
			return cmp.Compare(av, float64(bv))
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0
			case !av:
				return -1
			default:
				return 1
			}
		}
	}
	// Mixed types order by type name so the result is still deterministic.
	return cmp.Compare(fmt.Sprintf("%T", a), fmt.Sprintf("%T", b))
}
