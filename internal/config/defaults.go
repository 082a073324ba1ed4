// Package config handles ticket board configuration.
package config

const (
	// DefaultDir is the default board directory name.
	DefaultDir = "ticketboard"
	// ConfigFileName is the name of the config file within the board directory.
	ConfigFileName = "config.yml"

	// CurrentVersion is the current config schema version.
	CurrentVersion = 2

	// DefaultPriority is the form default for new tickets.
	DefaultPriority = "medium"
	// DefaultIssueType is the form default for new tickets.
	DefaultIssueType = "Task"

	// DefaultLogLevel is the zerolog level used when none is configured.
	DefaultLogLevel = "info"
	// DefaultLogFile is the log file inside the board directory.
	DefaultLogFile = "ticketboard.log"
)

// Store backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Default store locations, relative to the board directory.
const (
	DefaultFileStorePath   = "data"
	DefaultSQLiteStorePath = "board.db"
)

// Backends lists the accepted store.backend values.
var Backends = []string{BackendFile, BackendSQLite, BackendMemory}
