package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/nexussync/clubs/apps/dashboard/views"
	"github.com/nexussync/clubs/core/conflict"
	"github.com/nexussync/clubs/core/optimistic"
	"github.com/nexussync/clubs/core/status"
)

const dateLayout = "2006-01-02"

func (a *app) conflictsCmd() *cobra.Command {
	var (
		from, to   string
		qf         conflict.QueryFilter
		st, minSev string
	)
	conflictsView := func() (*views.Conflicts, error) {
		start, end, err := window(from, to, time.Now())
		if err != nil {
			return nil, err
		}
		deps, err := a.deps()
		if err != nil {
			return nil, err
		}
		return views.NewConflicts(deps, a.remote, start, end)
	}

	cmd := &cobra.Command{
		Use:   "conflicts",
		Short: "List the scheduling conflicts (admins)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if st != "" {
				parsed, err := status.Parse(st)
				if err != nil {
					return err
				}
				qf.Status = parsed
			}
			if err := qf.MinSeverity.UnmarshalText([]byte(minSev)); err != nil {
				return err
			}
			v, err := conflictsView()
			if err != nil {
				return err
			}
			return show(cmd.Context(), v, func() {
				a.printf("%d open\n\n", v.OpenCount())
				tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
				for _, c := range v.Items(qf) {
					_, _ = fmt.Fprintf(tw, "%s\t%s\t%s ↔ %s\t%s\t%s\n", c.ID, c.Severity,
						c.TitleA, c.TitleB, c.Start.Local().Format(timeLayout), badge(c.Status))
				}
				_ = tw.Flush()
			})
		},
	}
	cmd.PersistentFlags().StringVar(&from, "from", "", "window start (YYYY-MM-DD, today by default)")
	cmd.PersistentFlags().StringVar(&to, "to", "", "window end (YYYY-MM-DD, 30 days after the start by default)")
	cmd.Flags().StringVar((*string)(&qf.Kind), "kind", "", "venue, resource or club")
	cmd.Flags().StringVar(&st, "status", "", "open or resolved")
	cmd.Flags().StringVar(&minSev, "min-severity", "", "low, medium or high")

	var note string
	resolve := &cobra.Command{
		Use:   "resolve CONFLICT_ID",
		Short: "Mark a conflict resolved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := conflictsView()
			if err != nil {
				return err
			}
			err = a.mutate(cmd.Context(), v, func(ctx context.Context) (*optimistic.Pending, error) {
				return v.Resolve(ctx, args[0], note)
			})
			if err != nil {
				return err
			}
			a.success("Conflict %s resolved, %d still open", args[0], v.OpenCount())
			return nil
		},
	}
	resolve.Flags().StringVarP(&note, "note", "n", "", "how it was resolved")

	cmd.AddCommand(
		resolve,
		&cobra.Command{
			Use:   "reopen CONFLICT_ID",
			Short: "Reopen a resolved conflict",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := conflictsView()
				if err != nil {
					return err
				}
				err = a.mutate(cmd.Context(), v, func(ctx context.Context) (*optimistic.Pending, error) {
					return v.Reopen(ctx, args[0])
				})
				if err != nil {
					return err
				}
				a.success("Conflict %s reopened", args[0])
				return nil
			},
		},
	)
	return cmd
}

// window parses the [from, to) dates, defaulting to the 30 days starting today.
func window(from, to string, now time.Time) (time.Time, time.Time, error) {
	y, m, d := now.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	if from != "" {
		t, err := time.ParseInLocation(dateLayout, from, now.Location())
		if err != nil {
			return time.Time{}, time.Time{}, errors.Wrap(err, "parsing --from")
		}
		start = t
	}
	end := start.AddDate(0, 0, 30)
	if to != "" {
		t, err := time.ParseInLocation(dateLayout, to, now.Location())
		if err != nil {
			return time.Time{}, time.Time{}, errors.Wrap(err, "parsing --to")
		}
		end = t
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, errors.New("--to must be after --from")
	}
	return start, end, nil
}
