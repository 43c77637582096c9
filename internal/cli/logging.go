package cli

import (
	"io"
	"log/slog"
	"time"

	"github.com/charmbracelet/log"

	"github.com/fhn666/wgpu/internal/config"
)

// NewLogger returns a slog logger writing to w through charmbracelet/log.
func NewLogger(w io.Writer, c config.Log) (*slog.Logger, error) {
	level, err := log.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          "wgtrace",
		Level:           level,
	})
	switch c.Format {
	case config.FormatJSON:
		l.SetFormatter(log.JSONFormatter)
	case config.FormatLogfmt:
		l.SetFormatter(log.LogfmtFormatter)
	default:
		l.SetFormatter(log.TextFormatter)
	}
	return slog.New(l), nil
}
