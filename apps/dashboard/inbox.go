package main

import (
	"context"

	"github.com/labstack/gommon/color"
	"github.com/spf13/cobra"

	"github.com/nexussync/clubs/apps/dashboard/views"
	"github.com/nexussync/clubs/core/optimistic"
)

func (a *app) inboxCmd() *cobra.Command {
	var (
		unread bool
		kind   string
	)
	inboxView := func() (*views.Inbox, error) {
		deps, err := a.deps()
		if err != nil {
			return nil, err
		}
		return views.NewInbox(deps, a.remote)
	}

	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "Read your notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := inboxView()
			if err != nil {
				return err
			}
			return show(cmd.Context(), v, func() {
				a.printf("%d unread\n\n", v.UnreadCount())
				for _, n := range v.Items(unread, kind) {
					title := n.Title
					if !n.Read {
						title = color.Bold(title)
					}
					a.printf("[%s] %s  %s\n", n.ID, n.CreatedAt.Local().Format("Jan 02 15:04"), title)
					if n.Body != "" {
						a.printf("  %s\n", n.Body)
					}
				}
			})
		},
	}
	cmd.Flags().BoolVar(&unread, "unread", false, "only the unread notifications")
	cmd.Flags().StringVar(&kind, "kind", "", "only this kind of notifications")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "read NOTIFICATION_ID",
			Short: "Mark a notification read",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := inboxView()
				if err != nil {
					return err
				}
				err = a.mutate(cmd.Context(), v, func(ctx context.Context) (*optimistic.Pending, error) {
					return v.MarkRead(ctx, args[0])
				})
				if err != nil {
					return err
				}
				a.success("%d unread", v.UnreadCount())
				return nil
			},
		},
		&cobra.Command{
			Use:   "read-all",
			Short: "Mark every notification read",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := inboxView()
				if err != nil {
					return err
				}
				if err := a.mutate(cmd.Context(), v, v.MarkAllRead); err != nil {
					return err
				}
				a.success("All caught up")
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete NOTIFICATION_ID",
			Short: "Delete a notification",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := inboxView()
				if err != nil {
					return err
				}
				err = a.mutate(cmd.Context(), v, func(ctx context.Context) (*optimistic.Pending, error) {
					return v.Delete(ctx, args[0])
				})
				if err != nil {
					return err
				}
				a.success("Notification deleted")
				return nil
			},
		},
	)
	return cmd
}
