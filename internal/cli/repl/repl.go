package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/signalspoc/signals-cli/internal/cli/navigate"
)

// Executor runs one command line, already split into arguments.
type Executor func(ctx context.Context, args []string) error

// LoginFunc attempts a login. msg explains a failure.
type LoginFunc func(ctx context.Context, username, password string) (ok bool, msg string)

// REPL represents the Read-Eval-Print Loop.
type REPL struct {
	input     *bufio.Reader
	output    io.Writer
	prompt    string
	exec      Executor
	login     LoginFunc
	router    *navigate.Router
	completer *Completer
	history   *History

	loginPending atomic.Bool
}

// Option configures a REPL.
type Option func(*REPL)

// WithIO sets the input and output streams.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(r *REPL) {
		r.input = bufio.NewReader(in)
		r.output = out
	}
}

// WithPrompt sets the prompt.
func WithPrompt(prompt string) Option {
	return func(r *REPL) {
		r.prompt = prompt
	}
}

// WithHistory sets the history store.
func WithHistory(h *History) Option {
	return func(r *REPL) {
		r.history = h
	}
}

// WithCompleter sets the completer.
func WithCompleter(c *Completer) Option {
	return func(r *REPL) {
		r.completer = c
	}
}

// WithLogin enables the login view. Routing to navigate.RouteLogin on
// router opens it before the next prompt.
func WithLogin(router *navigate.Router, login LoginFunc) Option {
	return func(r *REPL) {
		r.router = router
		r.login = login
	}
}

// New creates a REPL that hands each command line to exec.
func New(exec Executor, opts ...Option) *REPL {
	r := &REPL{
		input:     bufio.NewReader(os.Stdin),
		output:    os.Stdout,
		prompt:    "signals> ",
		exec:      exec,
		completer: NewCompleter(nil),
		history:   NewHistory(""),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.router != nil {
		r.router.OnChange(func(route string) {
			if route == navigate.RouteLogin {
				r.loginPending.Store(true)
			}
		})
		if r.router.Current() == navigate.RouteLogin {
			r.loginPending.Store(true)
		}
	}
	return r
}

// Run reads and executes lines until exit, EOF or ctx is done.
func (r *REPL) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		if r.loginPending.Load() && r.login != nil {
			done, err := r.loginView(ctx)
			if err != nil || done {
				return err
			}
			continue
		}

		fmt.Fprint(r.output, r.prompt)
		line, err := r.readLine()
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(r.output)
			return nil
		}
		if err != nil {
			return err
		}
		if line == "" {
			continue
		}

		r.history.Add(line)
		if quit := r.dispatch(ctx, line); quit {
			return nil
		}
	}
}

// dispatch handles one line and reports whether the loop should end.
func (r *REPL) dispatch(ctx context.Context, line string) bool {
	switch {
	case line == "exit" || line == "quit":
		return true
	case line == "history":
		for i, entry := range r.history.Entries() {
			fmt.Fprintf(r.output, "%4d  %s\n", i+1, entry)
		}
		return false
	case strings.HasSuffix(line, "?"):
		for _, s := range r.completer.Complete(strings.TrimSuffix(line, "?")) {
			fmt.Fprintln(r.output, s)
		}
		return false
	}

	args, err := SplitArgs(line)
	if err != nil {
		fmt.Fprintf(r.output, "Error: %v\n", err)
		return false
	}
	if err := r.exec(ctx, args); err != nil {
		fmt.Fprintf(r.output, "Error: %v\n", err)
	}
	return false
}

// loginView prompts for credentials until a login succeeds. done is true
// when the input ends.
func (r *REPL) loginView(ctx context.Context) (done bool, err error) {
	fmt.Fprintln(r.output, "Session expired or not logged in. Please log in.")
	for {
		fmt.Fprint(r.output, "Username: ")
		username, err := r.readLine()
		if err != nil {
			return true, ignoreEOF(err)
		}
		if username == "" {
			continue
		}

		fmt.Fprint(r.output, "Password: ")
		password, err := r.readLine()
		if err != nil {
			return true, ignoreEOF(err)
		}

		ok, msg := r.login(ctx, username, password)
		if ok {
			r.loginPending.Store(false)
			if r.router != nil {
				r.router.Navigate(navigate.RouteHome)
			}
			fmt.Fprintf(r.output, "Logged in as %s\n", username)
			return false, nil
		}
		fmt.Fprintf(r.output, "Error: %s\n", msg)
	}
}

func (r *REPL) readLine() (string, error) {
	line, err := r.input.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func ignoreEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// SplitArgs splits a command line on whitespace, honoring single and
// double quotes.
func SplitArgs(line string) ([]string, error) {
	var (
		args    []string
		current strings.Builder
		quote   rune
		inArg   bool
	)
	for _, c := range line {
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			} else {
				current.WriteRune(c)
			}
		case c == '"' || c == '\'':
			quote = c
			inArg = true
		case c == ' ' || c == '\t':
			if inArg {
				args = append(args, current.String())
				current.Reset()
				inArg = false
			}
		default:
			current.WriteRune(c)
			inArg = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if inArg {
		args = append(args, current.String())
	}
	return args, nil
}
