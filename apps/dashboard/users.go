package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/labstack/gommon/color"
	"github.com/spf13/cobra"

	"github.com/nexussync/clubs/apps/dashboard/views"
	"github.com/nexussync/clubs/core/optimistic"
	"github.com/nexussync/clubs/core/user"
)

func (a *app) usersCmd() *cobra.Command {
	var (
		qf               user.QueryFilter
		role             string
		inactive, active bool
	)
	usersView := func() (*views.Users, error) {
		deps, err := a.deps()
		if err != nil {
			return nil, err
		}
		return views.NewUsers(deps, a.remote)
	}

	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage the users (admins)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if role != "" {
				qf.Roles = []string{role}
			}
			switch {
			case active && inactive:
			case active:
				qf.IsActive = &active
			case inactive:
				qf.IsActive = new(bool)
			}
			v, err := usersView()
			if err != nil {
				return err
			}
			return show(cmd.Context(), v, func() {
				tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
				for _, u := range v.Items(qf) {
					state := color.Green("active")
					if !u.IsActive {
						state = color.Grey("inactive")
					}
					_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", u.ID, u.Username, u.Name, strings.Join(u.Roles, ","), state)
				}
				_ = tw.Flush()
			})
		},
	}
	cmd.Flags().StringVarP(&qf.Search, "search", "s", "", "search names, usernames and emails")
	cmd.Flags().StringVar(&role, "role", "", "only users with this role (prefix, e.g. lead:)")
	cmd.Flags().StringVar(&qf.Department, "department", "", "only this department")
	cmd.Flags().BoolVar(&active, "active", false, "only active users")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "only inactive users")

	cmd.AddCommand(&cobra.Command{
		Use:   "toggle USER_ID",
		Short: "Activate or deactivate a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := usersView()
			if err != nil {
				return err
			}
			err = a.mutate(cmd.Context(), v, func(ctx context.Context) (*optimistic.Pending, error) {
				return v.Toggle(ctx, args[0])
			})
			if err != nil {
				return err
			}
			u, _ := v.Get(args[0])
			if u.IsActive {
				a.success("%s activated", u.Username)
			} else {
				a.success("%s deactivated", u.Username)
			}
			return nil
		},
	})
	return cmd
}
