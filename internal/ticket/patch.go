package ticket

import (
	"time"

	"github.com/twiced-technology-gmbh/ticketboard/internal/docstore"
)

// FieldOp says what a patch does to one field.
type FieldOp int

// Field operations. The zero value leaves the field untouched.
const (
	OpKeep FieldOp = iota
	OpSet
	OpUnset
	OpServerTime
)

// Field is a per-field patch instruction: keep, set to a value, remove, or
// (for time fields) stamp with the store's clock.
type Field[T any] struct {
	op    FieldOp
	value T
}

// Set returns an instruction that assigns v.
func Set[T any](v T) Field[T] { return Field[T]{op: OpSet, value: v} }

// Unset returns an instruction that removes the field from the stored record.
func Unset[T any]() Field[T] { return Field[T]{op: OpUnset} }

// ServerTime returns an instruction that stamps the field with the store's
// clock when the write is applied.
func ServerTime() Field[time.Time] { return Field[time.Time]{op: OpServerTime} }

// Op returns the operation.
func (f Field[T]) Op() FieldOp { return f.op }

// Value returns the assigned value and whether the op is OpSet.
func (f Field[T]) Value() (T, bool) { return f.value, f.op == OpSet }

// Changed reports whether the instruction does anything.
func (f Field[T]) Changed() bool { return f.op != OpKeep }

// Patch is a partial ticket update. Fields left at their zero value are not
// written.
type Patch struct {
	Title       Field[string]
	Description Field[string]
	Priority    Field[Priority]
	IssueType   Field[IssueType]
	Status      Field[Status]
	URLs        Field[[]string]
	Deadline    Field[time.Time]
	Personnel   Field[string]
	CompletedAt Field[time.Time]
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return !p.Title.Changed() && !p.Description.Changed() && !p.Priority.Changed() &&
		!p.IssueType.Changed() && !p.Status.Changed() && !p.URLs.Changed() &&
		!p.Deadline.Changed() && !p.Personnel.Changed() && !p.CompletedAt.Changed()
}

// Merge returns p with every changed field of other applied on top.
func (p Patch) Merge(other Patch) Patch {
	p.Title = pick(p.Title, other.Title)
	p.Description = pick(p.Description, other.Description)
	p.Priority = pick(p.Priority, other.Priority)
	p.IssueType = pick(p.IssueType, other.IssueType)
	p.Status = pick(p.Status, other.Status)
	p.URLs = pick(p.URLs, other.URLs)
	p.Deadline = pick(p.Deadline, other.Deadline)
	p.Personnel = pick(p.Personnel, other.Personnel)
	p.CompletedAt = pick(p.CompletedAt, other.CompletedAt)
	return p
}

func pick[T any](base, over Field[T]) Field[T] {
	if over.Changed() {
		return over
	}
	return base
}

// ChangedFields lists the stored field names the patch writes.
func (p Patch) ChangedFields() []string {
	updates := p.Updates()
	names := make([]string, len(updates))
	for i, u := range updates {
		names[i] = u.Path
	}
	return names
}

// Updates converts the patch into document store updates.
func (p Patch) Updates() []docstore.Update {
	var out []docstore.Update
	out = appendField(out, fieldTitle, p.Title, identity[string])
	out = appendField(out, fieldDescription, p.Description, identity[string])
	out = appendField(out, fieldPriority, p.Priority, func(v Priority) any { return string(v) })
	out = appendField(out, fieldIssueType, p.IssueType, func(v IssueType) any { return string(v) })
	out = appendField(out, fieldStatus, p.Status, func(v Status) any { return string(v) })
	out = appendField(out, fieldURLs, p.URLs, func(v []string) any { return encodeURLs(v) })
	out = appendField(out, fieldDeadline, p.Deadline, func(v time.Time) any { return v.UTC() })
	out = appendField(out, fieldPersonnel, p.Personnel, identity[string])
	out = appendField(out, fieldCompletedAt, p.CompletedAt, func(v time.Time) any { return v.UTC() })
	return out
}

func identity[T any](v T) any { return v }

func appendField[T any](out []docstore.Update, path string, f Field[T], enc func(T) any) []docstore.Update {
	switch f.op {
	case OpSet:
		return append(out, docstore.Update{Path: path, Value: enc(f.value)})
	case OpUnset:
		return append(out, docstore.Update{Path: path, Value: docstore.Delete})
	case OpServerTime:
		return append(out, docstore.Update{Path: path, Value: docstore.ServerTimestamp})
	default:
		return out
	}
}

// Apply returns a copy of t with the patch applied locally. now stands in
// for the store clock.
func (p Patch) Apply(t *Ticket, now time.Time) *Ticket {
	c := t.Clone()
	if v, ok := p.Title.Value(); ok {
		c.Title = v
	}
	if v, ok := p.Description.Value(); ok {
		c.Description = v
	}
	if v, ok := p.Priority.Value(); ok {
		c.Priority = v
	}
	if v, ok := p.IssueType.Value(); ok {
		c.IssueType = v
	}
	if v, ok := p.Status.Value(); ok {
		c.Status = v
	}
	switch p.URLs.op {
	case OpSet:
		c.URLs = append([]string{}, p.URLs.value...)
	case OpUnset:
		c.URLs = []string{}
	}
	if p.Personnel.op == OpSet {
		c.Personnel = p.Personnel.value
	} else if p.Personnel.op == OpUnset {
		c.Personnel = ""
	}
	c.Deadline = applyTime(c.Deadline, p.Deadline, now)
	c.CompletedAt = applyTime(c.CompletedAt, p.CompletedAt, now)
	return c
}

func applyTime(cur *time.Time, f Field[time.Time], now time.Time) *time.Time {
	switch f.op {
	case OpSet:
		v := f.value
		return &v
	case OpUnset:
		return nil
	case OpServerTime:
		v := now
		return &v
	default:
		return cur
	}
}

// Clone returns a deep copy of t.
func (t *Ticket) Clone() *Ticket {
	c := *t
	c.URLs = append([]string{}, t.URLs...)
	if t.Deadline != nil {
		d := *t.Deadline
		c.Deadline = &d
	}
	if t.CompletedAt != nil {
		d := *t.CompletedAt
		c.CompletedAt = &d
	}
	return &c
}
