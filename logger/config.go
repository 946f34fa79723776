package logger

import (
	"io"
	"os"
)

// Config holds the configuration for the logger
type Config struct {
	Level       LogLevel
	Format      OutputFormat
	Outputs     []io.Writer
	Environment string // "development" or "production"
	Subsystem   string
	FileConfig  *FileConfig
}

// FileConfig holds rotating-file output settings
type FileConfig struct {
	Filename   string
	MaxSize    int // megabytes
	MaxAge     int // days
	MaxBackups int
	Compress   bool
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Level:       InfoLevel,
		Format:      DefaultFormat,
		Outputs:     []io.Writer{os.Stdout},
		Environment: "development",
	}
}

// NewTestLogger returns a logger writing to the given writer, for tests
func NewTestLogger(out io.Writer) Logger {
	return NewZerologLogger(&Config{
		Level:   TraceLevel,
		Format:  JSONFormat,
		Outputs: []io.Writer{out},
	})
}
