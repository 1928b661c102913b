package cvdf

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type captureLogger struct {
	lines []string
}

func (c *captureLogger) add(level, format string, args []interface{}) {
	c.lines = append(c.lines, level+" "+fmt.Sprintf(format, args...))
}

func (c *captureLogger) Debugf(format string, args ...interface{}) { c.add("D", format, args) }
func (c *captureLogger) Infof(format string, args ...interface{}) { c.add("I", format, args) }
func (c *captureLogger) Warningf(format string, args ...interface{}) { c.add("W", format, args) }
func (c *captureLogger) Errorf(format string, args ...interface{}) { c.add("E", format, args) }
func (c *captureLogger) Criticalf(format string, args ...interface{}) { c.add("C", format, args) }
func (c *captureLogger) Shutdown() {}

func captureLogs(t *testing.T, m ModeFlag) *captureLogger {
	t.Helper()
	oldLogger, oldMode := logger, mode
	t.Cleanup(func() {
		logger, mode = oldLogger, oldMode
	})
	c := &captureLogger{}
	SetLogger(c)
	SetLogMode(m)
	return c
}

func logAll() {
	Debugf("d%d", 1)
	Infof("i%d", 2)
	Warningf("w%d", 3)
	Errorf("e%d", 4)
	Criticalf("c%d", 5)
}

func TestLogModeThreshold(t *testing.T) {
	tests := []struct {
		mode ModeFlag
		want []string
	}{
		{DebugMode, []string{"D d1", "I i2", "W w3", "E e4", "C c5"}},
		{InfoMode, []string{"I i2", "W w3", "E e4", "C c5"}},
		{WarningMode, []string{"W w3", "E e4", "C c5"}},
		{ErrorMode, []string{"E e4", "C c5"}},
		{CriticalMode, []string{"C c5"}},
		{SilentMode, nil},
	}
	for _, tc := range tests {
		c := captureLogs(t, tc.mode)
		logAll()
		if LogMode() != tc.mode {
			t.Errorf("LogMode() = %d, want %d", LogMode(), tc.mode)
		}
		if diff := cmp.Diff(tc.want, c.lines); diff != "" {
			t.Errorf("mode %d: logged lines mismatch (-want +got):\n%s", tc.mode, diff)
		}
	}
}

func TestTimeLogSuffix(t *testing.T) {
	c := captureLogs(t, InfoMode)
	timedLog := NewTimeLog()
	timedLog.Debugf("dropped %s", "x")
	timedLog.Infof("wrote %s", "QN_1.vdf")
	timedLog.Warningf("gap at %d", 3)
	if len(c.lines) != 2 {
		t.Fatalf("expected 2 logged lines, got %v", c.lines)
	}
	for i, prefix := range []string{"I wrote QN_1.vdf: ", "W gap at 3: "} {
		line := c.lines[i]
		if !strings.HasPrefix(line, prefix) || !strings.HasSuffix(line, "s\n") {
			t.Errorf("line %d = %q, want prefix %q and elapsed suffix", i, line, prefix)
		}
	}
}
