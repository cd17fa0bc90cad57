package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/nexussync/clubs/core/broadcast"
)

func (a *app) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [ENTITY...]",
		Short: "Print the changes made on the platform as they happen",
		Long:  "Print the changes made on the platform as they happen. Entities: users, clubs, events, registrations, posts, comments, notifications, budgets, conflicts, venues, quizzes, messages.",
		RunE: func(cmd *cobra.Command, args []string) error {
			entities := make([]broadcast.Entity, 0, len(args))
			for _, name := range args {
				e, ok := broadcast.ParseEntity(name)
				if !ok {
					return errors.Errorf("unknown entity %q", name)
				}
				entities = append(entities, e)
			}
			if _, err := a.session(); err != nil {
				return err
			}

			ctx, stop := signalContext(cmd)
			defer stop()

			sub := a.hub.Subscribe(entities...)
			defer sub.Close()
			relay := a.remote.Relay(a.hub, a.logger, entities...)
			relay.OnConnect = func() { a.success("Connected, waiting for changes (Ctrl+C to stop)") }

			done := make(chan error, 1)
			go func() { done <- relay.Run(ctx) }()
			for {
				select {
				case err := <-done:
					return err
				case c := <-sub.C:
					a.printChange(c)
				}
			}
		},
	}
}

func (a *app) printChange(c broadcast.Change) {
	line := c.At.Local().Format("15:04:05") + "  " + string(c.Op) + " " + string(c.Entity)
	if c.RecordID != "" {
		line += " " + c.RecordID
	}
	a.printf("%s\n", line)
	for _, op := range c.Patch {
		a.printf("    %s %s\n", op.Type, op.Path)
	}
}
