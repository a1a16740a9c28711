package telemetry

import (
	"bytes"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/rs/zerolog"

	"github.com/san-kum/hybridsim/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"trace", zerolog.TraceLevel},
		{"info", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestNewLoggerConsole(t *testing.T) {
	g := NewWithT(t)
	var buf bytes.Buffer

	log, closer, err := NewLogger(config.LogConfig{Level: "warn"}, &buf)
	g.Expect(err).NotTo(HaveOccurred())
	defer closer.Close()

	log.Info().Msg("hidden")
	log.Warn().Int("element", 3).Msg("element inert")
	g.Expect(buf.String()).NotTo(ContainSubstring("hidden"))
	g.Expect(buf.String()).To(ContainSubstring("element inert"))
	g.Expect(buf.String()).To(ContainSubstring("element="))
}

func TestNewLoggerGELF(t *testing.T) {
	g := NewWithT(t)
	var buf bytes.Buffer

	log, closer, err := NewLogger(config.LogConfig{Level: "info", GELF: "127.0.0.1:12201"}, &buf)
	g.Expect(err).NotTo(HaveOccurred())
	log.Info().Msg("to both")
	g.Expect(buf.String()).To(ContainSubstring("to both"))
	g.Expect(closer.Close()).To(Succeed())
}

func TestNewLoggerBadGELF(t *testing.T) {
	_, _, err := NewLogger(config.LogConfig{GELF: "no-port"}, &bytes.Buffer{})
	if err == nil {
		t.Error("expected error, got nil")
	}
}
