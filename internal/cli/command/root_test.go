package command

import (
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/urfave/cli/v2"

	"github.com/signalspoc/signals-cli/internal/infra/buildinfo"
)

func TestApp_Commands(t *testing.T) {
	app := App()

	want := []string{
		"login", "logout", "whoami", "status",
		"projects", "tasks", "users", "comments",
		"alerts", "sync", "config", "repl", "version",
	}
	var got []string
	for _, cmd := range app.Commands {
		got = append(got, cmd.Name)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
}

func TestFlagOverrides(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want map[string]any
	}{
		{
			name: "none",
			args: nil,
			want: map[string]any{},
		},
		{
			name: "server and output",
			args: []string{"--server", "https://x/api/v1", "--output", "json"},
			want: map[string]any{"server": "https://x/api/v1", "output": "json"},
		},
		{
			name: "verbose wins over log-level",
			args: []string{"--log-level", "info", "--verbose"},
			want: map[string]any{"log.level": "debug"},
		},
		{
			name: "timeout ephemeral insecure",
			args: []string{"--timeout", "5s", "--ephemeral", "--insecure"},
			want: map[string]any{"timeout": "5s", "store.backend": "memory", "tls.insecure": true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := flag.NewFlagSet("test", flag.ContinueOnError)
			for _, f := range globalFlags() {
				if err := f.Apply(set); err != nil {
					t.Fatal(err)
				}
			}
			if err := set.Parse(tt.args); err != nil {
				t.Fatal(err)
			}
			c := cli.NewContext(App(), set, nil)

			if diff := cmp.Diff(tt.want, flagOverrides(c)); diff != "" {
				t.Errorf("overrides mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestIDArg(t *testing.T) {
	tests := []struct {
		arg     string
		want    int64
		wantErr bool
	}{
		{"12", 12, false},
		{"", 0, true},
		{"0", 0, true},
		{"-3", 0, true},
		{"x1", 0, true},
	}
	for _, tt := range tests {
		set := flag.NewFlagSet("test", flag.ContinueOnError)
		set.Parse([]string{"--", tt.arg})
		c := cli.NewContext(App(), set, nil)

		got, err := idArg(c, 0, "project ID")
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("idArg(%q) = %d, %v", tt.arg, got, err)
		}
	}
}

func TestVersion_JSON(t *testing.T) {
	env := newCLIEnv(t)

	var info buildinfo.Info
	if err := json.Unmarshal([]byte(env.mustRun("version", "--json")), &info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.Version != buildinfo.Version || info.GoVersion == "" {
		t.Errorf("info = %+v", info)
	}
}

func TestPrintError(t *testing.T) {
	var b strings.Builder
	PrintError(&b, errors.New("boom"))
	if b.String() != "Error: boom\n" {
		t.Errorf("PrintError wrote %q", b.String())
	}
}

func TestMetricsTextfile(t *testing.T) {
	env := newCLIEnv(t)
	textfile := filepath.Join(env.dir, "signals.prom")

	f, err := os.OpenFile(env.cfgPath, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("metrics:\n  textfile: " + textfile + "\n")
	f.Close()

	env.srv.handle("GET", "/users", func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, pageOf())
	})
	env.login()
	env.mustRun("users", "list")

	data, err := os.ReadFile(textfile)
	if err != nil {
		t.Fatalf("textfile not written: %v", err)
	}
	for _, want := range []string{"signals_cli_requests_total", `code="200"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("textfile missing %q:\n%s", want, data)
		}
	}
}

func TestEphemeralSessionIsNotPersisted(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("--ephemeral", "login", "-u", "alice", "-p", "secret")

	_, _, err := env.run("", "whoami")
	if err == nil {
		t.Error("expected whoami to fail without a persisted session")
	}
}

func TestTimeoutFlag(t *testing.T) {
	env := newCLIEnv(t)
	env.srv.handle("GET", "/users", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		jsonResponse(w, http.StatusOK, pageOf())
	})
	env.login()

	if _, _, err := env.run("", "--timeout", "50ms", "users", "list"); err == nil {
		t.Error("expected timeout error")
	}
}
