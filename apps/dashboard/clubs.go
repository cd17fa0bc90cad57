package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nexussync/clubs/apps/dashboard/views"
	"github.com/nexussync/clubs/core/club"
	"github.com/nexussync/clubs/core/optimistic"
	"github.com/nexussync/clubs/core/status"
)

func (a *app) clubsView() (*views.Clubs, error) {
	deps, err := a.deps()
	if err != nil {
		return nil, err
	}
	return views.NewClubs(deps, a.remote)
}

func (a *app) clubsCmd() *cobra.Command {
	var (
		qf     club.QueryFilter
		joined bool
	)
	cmd := &cobra.Command{
		Use:   "clubs",
		Short: "Browse the club directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.clubsView()
			if err != nil {
				return err
			}
			if joined {
				qf.MemberID = a.sess.UserID
			}
			return show(cmd.Context(), v, func() {
				tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
				a.printf("Categories: %v\n\n", v.Categories())
				for _, c := range v.Items(qf) {
					mark := " "
					if c.Joined {
						mark = "*"
					}
					_, _ = fmt.Fprintf(tw, "%s %s\t%s\t%s\t%d members\t%s\n",
						mark, c.ID, c.Name, c.Category, c.MemberCount.Int(), badge(c.Status))
				}
				_ = tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&qf.Category, "category", "", "only this category")
	cmd.Flags().StringVarP(&qf.Search, "search", "s", "", "search names, descriptions and tags")
	cmd.Flags().StringVar(&qf.Tag, "tag", "", "only clubs with this tag")
	cmd.Flags().BoolVar(&joined, "joined", false, "only the clubs you joined")

	membership := func(use, short string, join bool) *cobra.Command {
		return &cobra.Command{
			Use:   use + " CLUB_ID",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := a.clubsView()
				if err != nil {
					return err
				}
				op := v.Leave
				if join {
					op = v.Join
				}
				err = a.mutate(cmd.Context(), v, func(ctx context.Context) (*optimistic.Pending, error) {
					return op(ctx, args[0])
				})
				if err != nil {
					return err
				}
				c, _ := v.Get(args[0])
				a.success("%s: %d members", c.Name, c.MemberCount.Int())
				return nil
			},
		}
	}
	cmd.AddCommand(
		membership("join", "Join a club", true),
		membership("leave", "Leave a club", false),
		&cobra.Command{
			Use:   "status CLUB_ID active|inactive",
			Short: "Activate or deactivate a club (admins)",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				st, err := status.Parse(args[1])
				if err != nil {
					return err
				}
				v, err := a.clubsView()
				if err != nil {
					return err
				}
				err = a.mutate(cmd.Context(), v, func(ctx context.Context) (*optimistic.Pending, error) {
					return v.SetStatus(ctx, args[0], st)
				})
				if err != nil {
					return err
				}
				a.success("Club %s is now %s", args[0], badge(st))
				return nil
			},
		},
	)
	return cmd
}
