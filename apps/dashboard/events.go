package main

import (
	"context"
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/nexussync/clubs/apps/dashboard/views"
	"github.com/nexussync/clubs/core/event"
	"github.com/nexussync/clubs/core/optimistic"
	"github.com/nexussync/clubs/core/status"
)

const timeLayout = "Mon Jan 02 15:04"

func (a *app) eventsCmd() *cobra.Command {
	var (
		qf       event.QueryFilter
		statuses string
		pending  bool
	)
	eventsView := func() (*views.Events, error) {
		deps, err := a.deps()
		if err != nil {
			return nil, err
		}
		return views.NewEvents(deps, a.remote, event.QueryFilter{ClubID: qf.ClubID})
	}
	registrationsView := func() (*views.Registrations, error) {
		deps, err := a.deps()
		if err != nil {
			return nil, err
		}
		return views.NewRegistrations(deps, a.remote)
	}

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List events and review the pending ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if qf.Statuses, err = parseStatuses(statuses); err != nil {
				return err
			}
			v, err := eventsView()
			if err != nil {
				return err
			}
			return show(cmd.Context(), v, func() {
				items := v.Items(qf)
				if pending {
					items = v.Pending()
				}
				counts := v.CountByStatus()
				sts := make([]status.Status, 0, len(counts))
				for st := range counts {
					sts = append(sts, st)
				}
				sort.Slice(sts, func(i, j int) bool { return sts[i] < sts[j] })
				for _, st := range sts {
					a.printf("%s: %d  ", badge(st), counts[st])
				}
				a.printf("\n\n")
				tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
				for _, e := range items {
					_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%s\t%s\n", e.ID, e.Title,
						e.StartsAt.Local().Format(timeLayout), e.RegisteredCount.Int(), capacity(e), badge(e.Status))
				}
				_ = tw.Flush()
			})
		},
	}
	cmd.PersistentFlags().StringVar(&qf.ClubID, "club", "", "only the events of this club")
	cmd.Flags().StringVar(&statuses, "status", "", "comma separated statuses")
	cmd.Flags().StringVarP(&qf.Search, "search", "s", "", "search the events")
	cmd.Flags().BoolVar(&pending, "pending", false, "only the events awaiting review, soonest first")

	review := func(use, short string, approve bool) *cobra.Command {
		var note string
		c := &cobra.Command{
			Use:   use + " EVENT_ID",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if !approve && note == "" {
					return errors.New("a note is required to reject an event")
				}
				v, err := eventsView()
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
				e, _ := v.Get(args[0])
				a.success("%s: %s", e.Title, badge(e.Status))
				return nil
			},
		}
		c.Flags().StringVarP(&note, "note", "n", "", "review note")
		return c
	}

	register := &cobra.Command{
		Use:   "register EVENT_ID",
		Short: "Register to an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			answers, err := cmd.Flags().GetStringToString("answer")
			if err != nil {
				return err
			}
			e, err := a.remote.Event(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			v, err := registrationsView()
			if err != nil {
				return err
			}
			err = a.mutate(cmd.Context(), v, func(ctx context.Context) (*optimistic.Pending, error) {
				return v.Register(ctx, e, answers)
			})
			if err != nil {
				return err
			}
			a.success("Registered to %s (%s)", e.Title, e.StartsAt.Local().Format(timeLayout))
			return nil
		},
	}
	register.Flags().StringToString("answer", nil, "registration form answers (question=answer)")

	cmd.AddCommand(
		review("approve", "Approve an event (admins)", true),
		review("reject", "Reject an event (admins)", false),
		&cobra.Command{
			Use:   "cancel EVENT_ID",
			Short: "Cancel an approved event (admins and club leads)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := eventsView()
				if err != nil {
					return err
				}
				err = a.mutate(cmd.Context(), v, func(ctx context.Context) (*optimistic.Pending, error) {
					return v.Cancel(ctx, args[0])
				})
				if err != nil {
					return err
				}
				a.success("Event %s cancelled", args[0])
				return nil
			},
		},
		register,
		&cobra.Command{
			Use:   "unregister EVENT_ID",
			Short: "Cancel your registration",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := registrationsView()
				if err != nil {
					return err
				}
				err = a.mutate(cmd.Context(), v, func(ctx context.Context) (*optimistic.Pending, error) {
					return v.Unregister(ctx, args[0])
				})
				if err != nil {
					return err
				}
				a.success("Registration cancelled")
				return nil
			},
		},
		&cobra.Command{
			Use:   "registrations",
			Short: "List your upcoming registrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := registrationsView()
				if err != nil {
					return err
				}
				return show(cmd.Context(), v, func() {
					for _, r := range v.Upcoming(time.Now()) {
						a.printf("%s  %s  %s\n", r.EventID, r.StartsAt.Local().Format(timeLayout), r.EventTitle)
					}
				})
			},
		},
	)
	return cmd
}

func capacity(e event.Event) string {
	if e.Capacity == 0 {
		return "∞"
	}
	return fmt.Sprint(e.Capacity)
}
