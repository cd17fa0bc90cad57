package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/nexussync/clubs/storage/fixtures"
)

func (cli *commandLine) seed(path string, watch bool) error {
	f, err := fixtures.Load(path)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.seedOnce(ctx, f); err != nil {
		return err
	}
	if !watch {
		return nil
	}

	fmt.Fprintf(cli.out, "Watching %s for changes (Ctrl+C to stop)\n", path)
	return fixtures.Watch(ctx, path, cli.logger, func(f fixtures.File) {
		if err := cli.seedOnce(ctx, f); err != nil {
			cli.logger.Error(fmt.Sprintf("seeding %s: %v", path, err), err)
		}
	})
}

func (cli *commandLine) seedOnce(ctx context.Context, f fixtures.File) error {
	rep, err := cli.seeder.Seed(ctx, f)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Seeded %d users, %d venues, %d clubs, %d memberships, %d events, %d posts\n",
		rep.Users, rep.Venues, rep.Clubs, rep.Members, rep.Events, rep.Posts)
	return nil
}
