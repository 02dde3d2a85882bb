package config

import (
	"fmt"
	"os"

	"digital.vasic.campaigns/pkg/logging"
)

// NewLogger builds the logger described by c. Output only applies
// to the json format; console lines always go to stderr, copied to
// File when set. Non-empty
// secrets are masked in every entry.
func (c LoggingConfig) NewLogger(secrets ...string) (logging.Logger, error) {
	level, err := logging.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}

	var logger logging.Logger
	switch c.Format {
	case "json":
		jl, err := logging.NewJSONLogger(logging.LoggerConfig{
			OutputPath: c.Output,
			Level:      level,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
		logger = jl
	case "console", "":
		logger = logging.NewConsoleLoggerTo(
			os.Stderr, level, consoleIsTerminal(),
		)
		if c.File != "" {
			file, err := logging.NewJSONLogger(logging.LoggerConfig{
				OutputPath: c.File,
				Level:      level,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to create log file: %w", err)
			}
			logger = logging.NewMultiLogger(logger, file)
		}
	default:
		return nil, fmt.Errorf("unknown logging format: %q", c.Format)
	}

	for _, s := range secrets {
		if s != "" {
			return logging.NewRedactingLogger(logger, secrets...), nil
		}
	}
	return logger, nil
}

// consoleIsTerminal reports whether stderr looks like a terminal.
func consoleIsTerminal() bool {
	fi, err := os.Stderr.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
