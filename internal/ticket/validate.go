package ticket

import (
	"strings"

	"github.com/twiced-technology-gmbh/ticketboard/internal/clierr"
)

// ValidationError returns a VALIDATION_FAILED error for one field.
func ValidationError(field, format string, args ...any) *clierr.Error {
	return clierr.Newf(clierr.ValidationFailed, format, args...).
		WithDetails(map[string]any{"field": field})
}

// ValidateStatus checks that a status is one of the board columns.
func ValidateStatus(s Status) error {
	if s.Valid() {
		return nil
	}
	return clierr.Newf(clierr.InvalidStatus, "invalid status %q", s).
		WithDetails(map[string]any{
			"status":  s,
			"allowed": Statuses,
		})
}

// ValidatePriority checks that a priority is known.
func ValidatePriority(p Priority) error {
	if p.Valid() {
		return nil
	}
	return clierr.Newf(clierr.InvalidPriority, "invalid priority %q", p).
		WithDetails(map[string]any{
			"priority": p,
			"allowed":  Priorities,
		})
}

// ValidateIssueType checks that an issue type is known.
func ValidateIssueType(it IssueType) error {
	if it.Valid() {
		return nil
	}
	return clierr.Newf(clierr.InvalidIssueType, "invalid issue type %q", it).
		WithDetails(map[string]any{
			"issueType": it,
			"allowed":   IssueTypes,
		})
}

// ValidateDate returns an error for unparseable date input.
func ValidateDate(field, input string, err error) *clierr.Error {
	return clierr.Newf(clierr.InvalidDate, "invalid %s date: %v", field, err).
		WithDetails(map[string]any{
			"field": field,
			"input": input,
		})
}

// NotFound reports a ticket id missing from the current board.
func NotFound(id string) *clierr.Error {
	return clierr.Newf(clierr.TicketNotFound, "ticket not found: %s", id).
		WithDetails(map[string]any{"id": id})
}

// Validate checks the create form. Nothing is written when it fails.
func (f FormData) Validate() error {
	if strings.TrimSpace(f.Title) == "" {
		return ValidationError("title", "title is required")
	}
	if strings.TrimSpace(f.Description) == "" {
		return ValidationError("description", "description is required")
	}
	if f.Priority == "" {
		return ValidationError("priority", "priority is required")
	}
	if err := ValidatePriority(f.Priority); err != nil {
		return err
	}
	if f.IssueType == "" {
		return ValidationError("issueType", "issue type is required")
	}
	return ValidateIssueType(f.IssueType)
}

// Validate checks that a patch keeps every required field present and every
// enum value known.
func (p Patch) Validate() error {
	if err := requireText("title", p.Title); err != nil {
		return err
	}
	if err := requireText("description", p.Description); err != nil {
		return err
	}
	if p.Priority.op == OpUnset {
		return ValidationError("priority", "priority cannot be cleared")
	}
	if v, ok := p.Priority.Value(); ok {
		if err := ValidatePriority(v); err != nil {
			return err
		}
	}
	if p.IssueType.op == OpUnset {
		return ValidationError("issueType", "issue type cannot be cleared")
	}
	if v, ok := p.IssueType.Value(); ok {
		if err := ValidateIssueType(v); err != nil {
			return err
		}
	}
	if p.Status.op == OpUnset {
		return ValidationError("status", "status cannot be cleared")
	}
	if v, ok := p.Status.Value(); ok {
		if err := ValidateStatus(v); err != nil {
			return err
		}
	}
	return nil
}

func requireText(field string, f Field[string]) error {
	if f.op == OpUnset {
		return ValidationError(field, "%s cannot be cleared", field)
	}
	if v, ok := f.Value(); ok && strings.TrimSpace(v) == "" {
		return ValidationError(field, "%s is required", field)
	}
	return nil
}
