package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/gommon/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/nexussync/clubs/apps/dashboard/views"
	"github.com/nexussync/clubs/core"
	"github.com/nexussync/clubs/core/broadcast"
	"github.com/nexussync/clubs/core/optimistic"
	"github.com/nexussync/clubs/core/session"
	"github.com/nexussync/clubs/core/status"
	"github.com/nexussync/clubs/core/toast"
	remotesvc "github.com/nexussync/clubs/services/remote"
)

var (
	// errReported is returned once a toast already told the user what went wrong.
	errReported = errors.New("reported")

	errSessionExpired = errors.New("your session expired, log in again")
)

type app struct {
	conf   *core.Config
	logger core.Logger
	out    io.Writer
	remote *remotesvc.Client
	hub    *broadcast.Hub
	notify toast.Notifier
	sess   *session.Session
}

func newApp(conf *core.Config, logger core.Logger, out io.Writer) *app {
	return &app{
		conf:   conf,
		logger: logger,
		out:    out,
		remote: remotesvc.NewFromConfig(conf),
		hub:    broadcast.NewHub(broadcast.DefaultBuffer),
		notify: toast.NewWriterNotifier(out),
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "dashboard",
		Short:         "Manage clubs, events and budgets from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(a.out)
	root.AddCommand(
		a.loginCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.clubsCmd(),
		a.feedCmd(),
		a.inboxCmd(),
		a.eventsCmd(),
		a.budgetsCmd(),
		a.conflictsCmd(),
		a.usersCmd(),
		a.quizzesCmd(),
		a.messagesCmd(),
		a.mapCmd(),
		a.watchCmd(),
	)
	return root
}

// session loads the saved session and hands its token to the client.
func (a *app) session() (*session.Session, error) {
	if a.sess != nil {
		return a.sess, nil
	}
	sess, err := session.Load(a.conf.Dashboard.SessionFile)
	if err != nil {
		return nil, err
	}
	if !sess.Valid(time.Now()) {
		return nil, errSessionExpired
	}
	a.sess = sess
	a.remote.SetToken(sess.Token)
	return sess, nil
}

func (a *app) deps() (views.Deps, error) {
	sess, err := a.session()
	if err != nil {
		return views.Deps{}, err
	}
	return views.Deps{
		Session:  sess,
		Notifier: a.notify,
		Hub:      a.hub,
		Logger:   a.logger,
		Config:   a.conf.Dashboard,
	}, nil
}

type mountable interface {
	Mount(ctx context.Context) error
	Unmount()
}

// show mounts v for a one-off listing.
func show(ctx context.Context, v mountable, render func()) error {
	if err := v.Mount(ctx); err != nil {
		return err
	}
	defer v.Unmount()
	render()
	return nil
}

// mutate mounts v, triggers one optimistic operation and waits for the API to settle it.
func (a *app) mutate(ctx context.Context, v mountable, trigger func(context.Context) (*optimistic.Pending, error)) error {
	if err := v.Mount(ctx); err != nil {
		return err
	}
	defer v.Unmount()

	p, err := trigger(ctx)
	if err != nil {
		return err
	}
	if err := p.Wait(); err != nil {
		a.logger.Debug("operation failed", err)
		return errReported
	}
	return nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
}

func (a *app) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(a.out, format, args...)
}

func (a *app) success(format string, args ...interface{}) {
	a.printf("%s %s\n", color.Green("✓"), fmt.Sprintf(format, args...))
}

// badge renders a status in its badge color.
func badge(st status.Status) string {
	b := st.Badge()
	switch b.Color {
	case "green":
		return color.Green(b.Label)
	case "red":
		return color.Red(b.Label)
	case "amber", "orange":
		return color.Yellow(b.Label)
	case "blue":
		return color.Blue(b.Label)
	default:
		return color.Grey(b.Label)
	}
}

func parseStatuses(raw string) ([]status.Status, error) {
	var out []status.Status
	for _, name := range strings.Split(raw, ",") {
		if strings.TrimSpace(name) == "" {
			continue
		}
		st, err := status.Parse(name)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

func money(cents int64) string {
	sign := ""
	if cents < 0 {
		sign, cents = "-", -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
