// Package telemetry builds the zerolog.Logger every icecore package takes
// as a constructor argument, the way the teacher's iceberg.NewManager and
// iceberg.NewMetadataGenerator do.
package telemetry

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Config controls where logs go and how verbose they are.
type Config struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // console|json
	Output string `yaml:"output"` // "" or "-" for stdout, else a file path
}

func DefaultConfig() Config {
	return Config{Level: "info", Format: "console", Output: "-"}
}

// New builds a root logger from cfg. Component-scoped child loggers should
// be derived from it with logger.With().Str("component", name).Logger().
func New(cfg Config) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var w io.Writer = os.Stdout
	if cfg.Output != "" && cfg.Output != "-" {
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return zerolog.Logger{}, err
		}
		w = f
	}
	if cfg.Format != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}
