package main

import (
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nexussync/clubs/core/session"
)

var readPasswordFunc = term.ReadPassword // mockable

func (a *app) loginCmd() *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and keep the session for the next commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username = strings.TrimSpace(username); username == "" {
				return errors.New("username is required")
			}
			a.printf("Password: ")
			pwd, err := readPasswordFunc(int(syscall.Stdin))
			a.printf("\n")
			if err != nil {
				return errors.Wrap(err, "reading password")
			}
			if len(pwd) == 0 {
				return errors.New("password is required")
			}

			sess, err := a.remote.Login(cmd.Context(), username, string(pwd))
			if err != nil {
				return err
			}
			if err := sess.Save(a.conf.Dashboard.SessionFile); err != nil {
				return err
			}
			a.sess = sess
			a.success("Logged in as %s (%s)", sess.Username, strings.Join(sess.Roles, ", "))
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username or email")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := session.Remove(a.conf.Dashboard.SessionFile); err != nil {
				return err
			}
			a.sess = nil
			a.success("Logged out")
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.session()
			if err != nil {
				return err
			}
			a.printf("%s <%s>\n", sess.Name, sess.Email)
			a.printf("username: %s\nroles:    %s\n", sess.Username, strings.Join(sess.Roles, ", "))
			if !sess.ExpiresAt.IsZero() {
				a.printf("expires:  %s\n", sess.ExpiresAt.Local().Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}
