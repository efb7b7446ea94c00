package logging

import (
	"strings"
	"sync"
	"testing"
)

func TestSinkReceivesFormattedLine(t *testing.T) {
	var mu sync.Mutex
	var got []string

	SetSink(func(msg string) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, msg)
	})
	defer SetSink(nil)

	L("test").Info("hello", "x", 1)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("expected 1 line, got %d: %v", len(got), got)
	}
	if !strings.Contains(got[0], "hello") || !strings.Contains(got[0], "x=1") {
		t.Fatalf("unexpected line: %q", got[0])
	}
}

func TestSetSinkNilRestoresNoOp(t *testing.T) {
	calls := 0
	SetSink(func(string) { calls++ })
	SetSink(nil)

	L("test").Info("should not reach the sink")

	if calls != 0 {
		t.Fatalf("expected 0 calls after nil sink, got %d", calls)
	}
}

func TestInitSwitchesFormat(t *testing.T) {
	var sb strings.Builder
	Init("json", "debug", &sb)
	defer Init("text", "info", nil)

	L("test").Debug("switched")

	if !strings.Contains(sb.String(), `"msg":"switched"`) {
		t.Fatalf("expected JSON output, got %q", sb.String())
	}
}
