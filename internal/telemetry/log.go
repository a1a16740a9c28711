// Package telemetry sets up the process logger.
package telemetry

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/rs/zerolog"

	"github.com/san-kum/hybridsim/internal/config"
)

func ParseLevel(s string) zerolog.Level {
	switch strings.ToUpper(s) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewLogger writes human-readable lines to out and, when cfg.GELF names a
// Graylog UDP input, JSON records to it as well. The returned closer
// releases the GELF connection.
func NewLogger(cfg config.LogConfig, out io.Writer) (zerolog.Logger, io.Closer, error) {
	console := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}

	var w io.Writer = console
	var closer io.Closer = nopCloser{}
	if cfg.GELF != "" {
		gw, err := gelf.NewWriter(cfg.GELF)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("gelf %s: %w", cfg.GELF, err)
		}
		w = zerolog.MultiLevelWriter(console, gw)
		closer = gw
	}

	log := zerolog.New(w).Level(ParseLevel(cfg.Level)).With().Timestamp().Logger()
	log.Debug().Str("level", log.GetLevel().String()).Bool("gelf", cfg.GELF != "").Msg("logging set up")
	return log, closer, nil
}
