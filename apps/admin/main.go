package main

import (
	"fmt"
	"log"
	"os"

	"github.com/nexussync/clubs/core"
	logsvc "github.com/nexussync/clubs/services/logger"
	"github.com/nexussync/clubs/storage/database"
	sqlxrepos "github.com/nexussync/clubs/storage/database/sqlx"
	"github.com/nexussync/clubs/storage/fixtures"
)

func main() {
	conf := core.NewConfig()

	std := log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(std, conf)
	defer logger.Close()

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	defer db.Close()

	// start CLI
	cli := commandLine{
		db:      db,
		usrRepo: sqlxrepos.NewUserRepository(db),
		seeder: fixtures.NewSeeder(fixtures.Repos{
			Users:   sqlxrepos.NewUserRepository(db),
			Venues:  sqlxrepos.NewVenueRepository(db),
			Clubs:   sqlxrepos.NewClubRepository(db),
			Events:  sqlxrepos.NewEventRepository(db),
			Posts:   sqlxrepos.NewPostRepository(db),
			Budgets: sqlxrepos.NewBudgetRepository(db),
		}),
		logger: logger,
		out:    os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			std.Printf("\nerror: %s\n", err)
		}
		_ = db.Close()
		logger.Close()
		os.Exit(1)
	}
}
