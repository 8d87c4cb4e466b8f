// Package logging builds the arbor logger shared by the CLI and dashboard.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
)

// Options selects level and optional file output.
type Options struct {
	Level string
	// File, when set, receives a copy of every log line.
	File string
	// Quiet disables the console writer.
	Quiet bool
}

// New returns a configured logger. A file that cannot be created is reported
// on stderr and skipped.
func New(opts Options) arbor.ILogger {
	logger := arbor.NewLogger()

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to create log directory: %v\n", err)
		} else {
			logger = logger.WithFileWriter(models.WriterConfiguration{
				Type:       models.LogWriterTypeFile,
				FileName:   opts.File,
				TimeFormat: "15:04:05",
				MaxSize:    10 * 1024 * 1024,
				MaxBackups: 3,
				TextOutput: true,
			})
		}
	}

	if !opts.Quiet {
		logger = logger.WithConsoleWriter(models.WriterConfiguration{
			Type:       models.LogWriterTypeConsole,
			TimeFormat: "15:04:05",
			TextOutput: true,
		})
	}

	level := opts.Level
	if level == "" {
		level = "info"
	}
	return logger.WithLevelFromString(level)
}
