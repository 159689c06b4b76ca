package testutil

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tiroq/scribe/internal/logging"
)

// LogCapture records entries written through the logger it hands out.
type LogCapture struct {
	logs   *observer.ObservedLogs
	logger *logging.Logger
}

// NewLogCapture creates a capture that records entries at debug level and
// above.
func NewLogCapture() *LogCapture {
	core, logs := observer.New(zapcore.DebugLevel)
	return &LogCapture{logs: logs, logger: logging.Wrap(core)}
}

// Logger returns the logger to inject into the component under test.
func (lc *LogCapture) Logger() *logging.Logger {
	return lc.logger
}

// Lines renders every captured entry as "LEVEL message k=v ...", fields
// sorted by key.
func (lc *LogCapture) Lines() []string {
	entries := lc.logs.All()
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		fields := e.ContextMap()
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var b strings.Builder
		b.WriteString(e.Level.CapitalString())
		b.WriteByte(' ')
		b.WriteString(e.Message)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%s", k, toString(fields[k]))
		}
		lines = append(lines, b.String())
	}
	return lines
}

// String returns all captured entries joined by newlines.
func (lc *LogCapture) String() string {
	return strings.Join(lc.Lines(), "\n")
}

// Contains reports whether any entry contains substr.
func (lc *LogCapture) Contains(substr string) bool {
	return strings.Contains(lc.String(), substr)
}

// ContainsAll reports whether the captured output contains every substring.
func (lc *LogCapture) ContainsAll(substrs ...string) bool {
	content := lc.String()
	for _, s := range substrs {
		if !strings.Contains(content, s) {
			return false
		}
	}
	return true
}

func toString(v interface{}) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return fmt.Sprint(v)
}
