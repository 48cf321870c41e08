// Copyright (c) 2025 The core-lido developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/lmittmann/tint"
)

// Logger carries key/value context; packages derive their own with
// WithContext at init time.
type Logger = *slog.Logger

var (
	level slog.LevelVar
	root  atomic.Pointer[slog.Logger]
)

func init() {
	level.Set(slog.LevelInfo)
	root.Store(slog.New(newTerminalHandler(os.Stderr)))
}

func newTerminalHandler(w io.Writer) slog.Handler {
	return tint.NewHandler(w, &tint.Options{
		Level:      &level,
		TimeFormat: time.DateTime,
	})
}

// Root returns the process-wide logger.
func Root() Logger {
	return root.Load()
}

// WithContext returns a logger that annotates every record with the given
// key/value pairs.
func WithContext(kv ...any) Logger {
	return Root().With(kv...)
}

// SetLevel adjusts the verbosity of every logger derived from the root.
func SetLevel(l slog.Level) {
	level.Set(l)
}

// SetOutput replaces the root handler, keeping the shared level var.
// Loggers created before the call keep writing to the old output.
func SetOutput(w io.Writer) {
	root.Store(slog.New(newTerminalHandler(w)))
}

// Discard silences all logging; used by tests.
func Discard() {
	root.Store(slog.New(slog.NewTextHandler(io.Discard, nil)))
}
