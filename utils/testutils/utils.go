package testutils

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/benoitkugler/pagestyle/logger"
)

func AssertEqual(t *testing.T, got, exp interface{}) {
	t.Helper()
	if !reflect.DeepEqual(exp, got) {
		t.Fatalf("expected\n%v\n got \n%v", exp, got)
	}
}

// CapturedLogs hooks the warning logger to an internal buffer,
// until CheckEqual is called.
type CapturedLogs struct {
	buf *bytes.Buffer
}

func CaptureLogs() CapturedLogs {
	out := CapturedLogs{buf: new(bytes.Buffer)}
	logger.WarningLogger.SetOutput(out.buf)
	return out
}

func (c CapturedLogs) Logs() []string {
	s := strings.TrimSuffix(c.buf.String(), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func (c CapturedLogs) CheckEqual(refs []string, t *testing.T) {
	t.Helper()
	logs := c.Logs()
	if len(logs) != len(refs) {
		t.Fatalf("expected %d logs, got %v", len(refs), logs)
	}
	for i, ref := range refs {
		if !strings.Contains(logs[i], ref) {
			t.Fatalf("expected log %s, got %s", ref, logs[i])
		}
	}
}
