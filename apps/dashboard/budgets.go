package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nexussync/clubs/apps/dashboard/views"
	"github.com/nexussync/clubs/core/budget"
	"github.com/nexussync/clubs/core/optimistic"
)

func (a *app) budgetsCmd() *cobra.Command {
	var (
		clubID   string
		qf       budget.QueryFilter
		statuses string
	)
	budgetsView := func() (*views.Budgets, error) {
		deps, err := a.deps()
		if err != nil {
			return nil, err
		}
		return views.NewBudgets(deps, a.remote, clubID)
	}

	cmd := &cobra.Command{
		Use:   "budgets",
		Short: "Track budget requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if qf.Statuses, err = parseStatuses(statuses); err != nil {
				return err
			}
			v, err := budgetsView()
			if err != nil {
				return err
			}
			return show(cmd.Context(), v, func() {
				tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', tabwriter.AlignRight)
				for _, r := range v.Items(qf) {
					_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n", r.ID, r.ClubName, r.Title, money(r.Amount), badge(r.Status))
				}
				_ = tw.Flush()
			})
		},
	}
	cmd.PersistentFlags().StringVar(&clubID, "club", "", "the club (required unless admin)")
	cmd.Flags().StringVar(&statuses, "status", "", "comma separated statuses")
	cmd.Flags().StringVar(&qf.Category, "category", "", "only this category")
	cmd.Flags().StringVarP(&qf.Search, "search", "s", "", "search the requests")

	review := func(use, short string, approve bool) *cobra.Command {
		var note string
		c := &cobra.Command{
			Use:   use + " REQUEST_ID",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := budgetsView()
				if err != nil {
					return err
				}
				op := v.Reject
				if approve {
					op = v.Approve
				}
				err = a.mutate(cmd.Context(), v, func(ctx context.Context) (*optimistic.Pending, error) {
					return op(ctx, args[0], note)
				})
				if err != nil {
					return err
				}
				r, _ := v.Get(args[0])
				a.success("%s (%s): %s", r.Title, money(r.Amount), badge(r.Status))
				return nil
			},
		}
		c.Flags().StringVarP(&note, "note", "n", "", "review note")
		return c
	}

	cmd.AddCommand(
		review("approve", "Approve a budget request (admins)", true),
		review("reject", "Reject a budget request (admins)", false),
		&cobra.Command{
			Use:   "summary",
			Short: "Show what was allocated, approved and what remains",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := budgetsView()
				if err != nil {
					return err
				}
				return show(cmd.Context(), v, func() {
					s := v.Summary()
					a.printf("allocated   %12s\n", money(s.Allocated))
					a.printf("approved    %12s\n", money(s.Approved))
					a.printf("pending     %12s\n", money(s.Pending))
					a.printf("rejected    %12s\n", money(s.Rejected))
					a.printf("remaining   %12s\n", money(s.Remaining))
					a.printf("utilization %11.1f%%\n", s.Utilization)
				})
			},
		},
	)
	return cmd
}
