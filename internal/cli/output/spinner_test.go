package output

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncBuffer guards a bytes.Buffer shared with the spinner goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinner_Success(t *testing.T) {
	var buf syncBuffer
	s := NewSpinner(&buf, "Syncing asana")
	s.Start()
	time.Sleep(150 * time.Millisecond)
	s.Success("Sync complete")

	out := buf.String()
	if !strings.Contains(out, "Syncing asana") {
		t.Errorf("spinner message missing: %q", out)
	}
	if !strings.HasSuffix(out, "✓ Sync complete\n") {
		t.Errorf("output should end with success line: %q", out)
	}
}

func TestSpinner_Fail(t *testing.T) {
	var buf syncBuffer
	s := NewSpinner(&buf, "Syncing")
	s.Start()
	s.Fail("connector error")

	if !strings.HasSuffix(buf.String(), "✗ connector error\n") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestSpinner_StopIsIdempotent(t *testing.T) {
	var buf syncBuffer
	s := NewSpinner(&buf, "Working")
	s.Start()
	s.Stop()
	s.Stop()
	s.Success("ignored")

	if strings.Contains(buf.String(), "ignored") {
		t.Error("calls after Stop should not write")
	}
}
