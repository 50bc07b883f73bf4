// Package slog decorates calregs services with structured logging.
package slog

import (
	"io"
	"log/slog"
	"strings"

	"github.com/fwojciec/calregs"
)

// NewLogger returns a text logger writing to w at the named level
// ("debug", "info", "warn" or "error").
func NewLogger(w io.Writer, level string) (*slog.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, calregs.Errorf(calregs.EINVALID, "invalid log level %q", level)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l})), nil
}
