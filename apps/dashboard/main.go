// Command dashboard is the terminal client of the NexusSync API: club directory, feed,
// inbox, event approvals, budgets, conflicts and user management.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/nexussync/clubs/core"
	logsvc "github.com/nexussync/clubs/services/logger"
)

func main() {
	conf := core.NewConfig()

	std := log.New(os.Stderr, "DASHBOARD : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(std, conf)
	defer logger.Close()

	a := newApp(conf, logger, os.Stdout)
	if err := a.rootCmd().Execute(); err != nil {
		if err != errReported {
			fmt.Fprintf(os.Stderr, "error: %s\n", err)
		}
		logger.Close()
		os.Exit(1)
	}
}
