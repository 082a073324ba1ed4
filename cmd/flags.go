package cmd

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/twiced-technology-gmbh/ticketboard/internal/date"
	"github.com/twiced-technology-gmbh/ticketboard/internal/ticket"
)

// enumFlag is a string flag restricted to a fixed set of values. Bad values
// are rejected while flags are parsed.
type enumFlag struct {
	value   string
	allowed []string
}

var _ pflag.Value = (*enumFlag)(nil)

func newEnumFlag(def string, allowed ...string) *enumFlag {
	return &enumFlag{value: def, allowed: allowed}
}

func (e *enumFlag) String() string { return e.value }

func (e *enumFlag) Set(v string) error {
	if !slices.Contains(e.allowed, v) {
		return fmt.Errorf("must be one of: %s", strings.Join(e.allowed, ", "))
	}
	e.value = v
	return nil
}

func (e *enumFlag) Type() string { return "string" }

// enumNames converts typed enum values to flag choices.
func enumNames[T ~string](vals []T) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = string(v)
	}
	return out
}

// flagValue returns the string form of a flag registered with Var.
func flagValue(cmd *cobra.Command, name string) string {
	if f := cmd.Flags().Lookup(name); f != nil {
		return f.Value.String()
	}
	return ""
}

// parseDeadline accepts a date (YYYY-MM-DD) or a relative form such as
// "today", "tomorrow" or "+3".
func parseDeadline(input string, now time.Time) (time.Time, error) {
	d, err := date.ParseInput(input, now)
	if err != nil {
		return time.Time{}, ticket.ValidateDate("deadline", input, err)
	}
	return d.Time, nil
}
