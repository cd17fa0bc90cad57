package main

import (
	"fmt"
	"time"

	"github.com/labstack/gommon/color"
	"github.com/spf13/cobra"
)

func (a *app) mapCmd() *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "map",
		Short: "Show the campus venues with the events booked in a window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start, end, err := window(from, to, time.Now())
			if err != nil {
				return err
			}
			if _, err := a.session(); err != nil {
				return err
			}
			m, err := a.remote.CampusMap(cmd.Context(), start, end)
			if err != nil {
				return err
			}

			a.printf("%s → %s\n\n", start.Format(dateLayout), end.Format(dateLayout))
			for _, mk := range m.Markers {
				state := color.Green("free")
				if mk.Busy() {
					state = color.Yellow(fmt.Sprintf("%d booked", len(mk.Events)))
				}
				a.printf("%s (%s, %d seats) %s\n", color.Bold(mk.Venue.Name), mk.Venue.Building, mk.Venue.Capacity, state)
				for _, e := range mk.Events {
					a.printf("    %s-%s  %s %s\n", e.StartsAt.Local().Format(timeLayout),
						e.EndsAt.Local().Format("15:04"), e.Title, badge(e.Status))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "window start (YYYY-MM-DD, today by default)")
	cmd.Flags().StringVar(&to, "to", "", "window end (YYYY-MM-DD, 30 days after the start by default)")
	return cmd
}
