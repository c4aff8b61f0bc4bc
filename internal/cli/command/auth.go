package command

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/signalspoc/signals-cli/internal/cli/api"
	"github.com/signalspoc/signals-cli/internal/cli/session"
)

// LoginCommand returns the login command.
func LoginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Log in and store the session",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "username",
				Aliases: []string{"u"},
				Usage:   "Username (prompted when omitted)",
			},
			&cli.StringFlag{
				Name:    "password",
				Aliases: []string{"p"},
				Usage:   "Password (prefer --password-stdin)",
			},
			&cli.BoolFlag{
				Name:  "password-stdin",
				Usage: "Read the password from stdin",
			},
		},
		Action: loginAction,
	}
}

func loginAction(c *cli.Context) error {
	rt, err := connect(c)
	if err != nil {
		return err
	}

	in := rt.reader()
	username := strings.TrimSpace(c.String("username"))
	if username == "" {
		if username, err = prompt(rt.out, in, "Username: "); err != nil {
			return err
		}
	}
	if username == "" {
		return errors.New("username required")
	}

	password := c.String("password")
	switch {
	case c.Bool("password-stdin"):
		password, err = readLine(in)
	case password == "":
		password, err = prompt(rt.out, in, "Password: ")
	}
	if err != nil {
		return err
	}

	result := rt.Session.Login(c.Context, username, password)
	if !result.Success {
		return errors.New(result.Error)
	}

	fmt.Fprintf(rt.out, "Logged in as %s\n", username)
	return nil
}

// LogoutCommand returns the logout command.
func LogoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Clear the stored session",
		Action: func(c *cli.Context) error {
			rt, err := connect(c)
			if err != nil {
				return err
			}

			was := rt.Session.IsAuthenticated()
			if err := rt.Session.Logout(c.Context); err != nil {
				return err
			}
			if was {
				fmt.Fprintln(rt.out, "Logged out")
			} else {
				fmt.Fprintln(rt.out, "Not logged in")
			}
			return nil
		},
	}
}

// whoami is the identity view.
type whoami struct {
	Username  string     `json:"username"`
	Subject   string     `json:"subject,omitempty"`
	IssuedAt  *time.Time `json:"issuedAt,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	Expired   bool       `json:"expired"`
}

// WhoamiCommand returns the whoami command.
func WhoamiCommand() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Show the logged-in user",
		Action: func(c *cli.Context) error {
			rt, err := connect(c)
			if err != nil {
				return err
			}

			id := rt.Session.Identity()
			if id == nil {
				return session.ErrNoSession
			}

			view := whoami{Username: id.Username}
			// Opaque tokens are fine; only JWTs carry the extra fields.
			if claims, err := rt.Session.Claims(); err == nil {
				view.Subject = claims.Subject
				if !claims.IssuedAt.IsZero() {
					view.IssuedAt = &claims.IssuedAt
				}
				if !claims.ExpiresAt.IsZero() {
					view.ExpiresAt = &claims.ExpiresAt
				}
				view.Expired = claims.Expired(time.Now())
			}
			return render(rt, view)
		},
	}
}

// status is the local session summary.
type status struct {
	Server        string `json:"server"`
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
	Store         string `json:"store"`
	UnreadAlerts  *int64 `json:"unreadAlerts,omitempty"`
}

// StatusCommand returns the status command.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show server and session status",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "check",
				Usage: "Verify the session against the server",
			},
		},
		Action: func(c *cli.Context) error {
			rt, err := connect(c)
			if err != nil {
				return err
			}

			st := status{
				Server:        rt.Client.BaseURL(),
				Authenticated: rt.Session.IsAuthenticated(),
				Store:         rt.Config.Store.Backend,
			}
			if id := rt.Session.Identity(); id != nil {
				st.Username = id.Username
			}

			if c.Bool("check") && st.Authenticated {
				count, err := api.NewAlerts(rt.Client).UnreadCount(c.Context)
				if err != nil {
					return err
				}
				st.UnreadAlerts = &count
			}
			return render(rt, st)
		},
	}
}

// reader returns the shared buffered reader over stdin.
func (rt *Runtime) reader() *bufio.Reader {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.bufIn == nil {
		rt.bufIn = bufio.NewReader(rt.in)
	}
	return rt.bufIn
}

func prompt(w io.Writer, in *bufio.Reader, label string) (string, error) {
	fmt.Fprint(w, label)
	return readLine(in)
}

func readLine(in *bufio.Reader) (string, error) {
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", errors.New("no input")
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
