package command

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
)

func TestRuntimeOpen_RetryAfterFailure(t *testing.T) {
	env := newCLIEnv(t)
	ctx := context.Background()

	rt := newRuntime(io.Discard, io.Discard, strings.NewReader(""))
	rt.configPath = env.cfgPath
	rt.overrides = map[string]any{"tls.cafile": filepath.Join(env.dir, "missing.pem")}

	if err := rt.Open(ctx); err == nil {
		t.Fatal("expected Open to fail with a missing CA file")
	}
	if rt.Store != nil || rt.Session != nil || rt.Client != nil {
		t.Error("failed Open left partial state behind")
	}

	// The Badger directory was released, so a corrected retry succeeds.
	rt.Config.TLS.CAFile = ""
	if err := rt.Open(ctx); err != nil {
		t.Fatalf("retry Open: %v", err)
	}
	if err := rt.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	again := newRuntime(io.Discard, io.Discard, strings.NewReader(""))
	again.configPath = env.cfgPath
	if err := again.Open(ctx); err != nil {
		t.Fatalf("Open after Close: %v", err)
	}
	if err := again.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestRunLine_AfterShutdown(t *testing.T) {
	env := newCLIEnv(t)
	ctx := context.Background()

	rt := newRuntime(io.Discard, io.Discard, strings.NewReader(""))
	rt.configPath = env.cfgPath
	if err := rt.Open(ctx); err != nil {
		t.Fatal(err)
	}

	if err := rt.runLine(ctx, []string{"version"}); err != nil {
		t.Fatalf("runLine before shutdown: %v", err)
	}
	if err := rt.Close(); err != nil {
		t.Fatal(err)
	}
	if err := rt.runLine(ctx, []string{"whoami"}); !errors.Is(err, errShuttingDown) {
		t.Errorf("runLine after shutdown = %v, want errShuttingDown", err)
	}
}
