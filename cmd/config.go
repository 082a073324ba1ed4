package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/ticketboard/internal/clierr"
	"github.com/twiced-technology-gmbh/ticketboard/internal/config"
	"github.com/twiced-technology-gmbh/ticketboard/internal/output"
	"github.com/twiced-technology-gmbh/ticketboard/internal/ticket"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify board configuration",
	Long:  `View the full configuration, get a specific key, or set a writable value.`,
	RunE:  runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2), //nolint:mnd // key and value
	RunE:  runConfigSet,
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

// configAccessor describes how to get and set a config key.
type configAccessor struct {
	get      func(*config.Config) any
	set      func(*config.Config, string) error
	writable bool
}

func configAccessors() map[string]configAccessor {
	accessors := baseConfigAccessors()
	addStoreConfigAccessors(accessors)
	return accessors
}

func baseConfigAccessors() map[string]configAccessor {
	return map[string]configAccessor{
		"version": {
			get: func(c *config.Config) any { return c.Version },
		},
		"board.name": {
			get:      func(c *config.Config) any { return c.Board.Name },
			set:      func(c *config.Config, v string) error { c.Board.Name = v; return nil },
			writable: true,
		},
		"board.description": {
			get:      func(c *config.Config) any { return c.Board.Description },
			set:      func(c *config.Config, v string) error { c.Board.Description = v; return nil },
			writable: true,
		},
		"statuses": {
			get: func(_ *config.Config) any { return enumNames(ticket.Statuses) },
		},
		"priorities": {
			get: func(_ *config.Config) any { return enumNames(ticket.Priorities) },
		},
		"issue_types": {
			get: func(_ *config.Config) any { return enumNames(ticket.IssueTypes) },
		},
		"defaults.priority": {
			get: func(c *config.Config) any { return c.Defaults.Priority },
			set: func(c *config.Config, v string) error {
				if err := ticket.ValidatePriority(ticket.Priority(v)); err != nil {
					return err
				}
				c.Defaults.Priority = v
				return nil
			},
			writable: true,
		},
		"defaults.issue_type": {
			get: func(c *config.Config) any { return c.Defaults.IssueType },
			set: func(c *config.Config, v string) error {
				if err := ticket.ValidateIssueType(ticket.IssueType(v)); err != nil {
					return err
				}
				c.Defaults.IssueType = v
				return nil
			},
			writable: true,
		},
		"log.level": {
			get: func(c *config.Config) any { return c.Log.Level },
			set: func(c *config.Config, v string) error {
				if _, err := zerolog.ParseLevel(v); err != nil {
					return clierr.Newf(clierr.InvalidInput, "invalid log.level %q: %v", v, err)
				}
				c.Log.Level = v
				return nil
			},
			writable: true,
		},
		"log.file": {
			get:      func(c *config.Config) any { return c.Log.File },
			set:      func(c *config.Config, v string) error { c.Log.File = v; return nil },
			writable: true,
		},
	}
}

func addStoreConfigAccessors(accessors map[string]configAccessor) {
	accessors["store.backend"] = configAccessor{
		get: func(c *config.Config) any { return c.Store.Backend },
	}
	accessors["store.path"] = configAccessor{
		get: func(c *config.Config) any { return c.StorePath() },
	}
	accessors["ids.digits"] = configAccessor{
		get: func(c *config.Config) any { return c.IDs.Digits },
		set: func(c *config.Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return clierr.Newf(clierr.InvalidInput,
					"invalid ids.digits %q: must be an integer", v)
			}
			c.IDs.Digits = n
			return nil // validation handles range check
		},
		writable: true,
	}
	accessors["ids.max_attempts"] = configAccessor{
		get: func(c *config.Config) any { return c.IDs.MaxAttempts },
		set: func(c *config.Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return clierr.Newf(clierr.InvalidInput,
					"invalid ids.max_attempts %q: must be an integer", v)
			}
			c.IDs.MaxAttempts = n
			return nil
		},
		writable: true,
	}
}

// allConfigKeys returns config keys in display order.
func allConfigKeys() []string {
	return []string{
		"version",
		"board.name",
		"board.description",
		"store.backend",
		"store.path",
		"ids.digits",
		"ids.max_attempts",
		"statuses",
		"priorities",
		"issue_types",
		"defaults.priority",
		"defaults.issue_type",
		"log.level",
		"log.file",
	}
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	accessors := configAccessors()

	if outputFormat() == output.FormatJSON {
		m := make(map[string]any, len(accessors))
		for _, key := range allConfigKeys() {
			m[key] = accessors[key].get(cfg)
		}
		return output.JSON(os.Stdout, m)
	}

	// Table mode: key-value pairs.
	for _, key := range allConfigKeys() {
		val := accessors[key].get(cfg)
		fmt.Fprintf(os.Stdout, "%-20s %v\n", key, formatConfigValue(val))
	}
	return nil
}

func runConfigGet(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	key := args[0]
	accessors := configAccessors()
	acc, ok := accessors[key]
	if !ok {
		return clierr.Newf(clierr.InvalidInput, "unknown config key %q", key)
	}

	val := acc.get(cfg)

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, val)
	}

	fmt.Fprintln(os.Stdout, formatConfigValue(val))
	return nil
}

func runConfigSet(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	key, value := args[0], args[1]
	accessors := configAccessors()
	acc, ok := accessors[key]
	if !ok {
		return clierr.Newf(clierr.InvalidInput, "unknown config key %q", key)
	}
	if !acc.writable {
		return clierr.Newf(clierr.InvalidInput, "config key %q is read-only", key)
	}

	if err := acc.set(cfg, value); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]any{"key": key, "value": acc.get(cfg)})
	}

	output.Messagef(os.Stdout, "Set %s = %v", key, formatConfigValue(acc.get(cfg)))
	return nil
}

func formatConfigValue(val any) string {
	switch v := val.(type) {
	case []string:
		return strings.Join(v, ", ")
	case string:
		if v == "" {
			return "--"
		}
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}
