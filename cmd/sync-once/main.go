// Command sync-once runs a single full sync pass against the configured
// sources and prints the result. Useful for cron-less environments and for
// verifying source credentials without starting the API server.
//
// Flags:
//
//	-dry-run    merge into an in-memory ledger instead of the database and
//	            print the resulting records
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joaocorreiaageplan-lgtm/construcost-ai-app/budgetsync"
	"github.com/joaocorreiaageplan-lgtm/construcost-ai-app/config"
	"github.com/joaocorreiaageplan-lgtm/construcost-ai-app/models"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "merge into an in-memory ledger instead of the database")
	flag.Parse()

	logger := config.GetLogger()

	var store models.LedgerStore
	if *dryRun {
		store = models.NewMemoryLedgerStore()
	} else {
		config.ConnectDatabaseWithRetry()
		config.ConnectRedisWithRetry()
		if err := models.MigrateLedgerTables(config.GetDB()); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		store = models.NewGormLedgerStore(nil, logger)
	}

	cfg := budgetsync.ConfigFromEnv()
	orchestrator := budgetsync.NewOrchestrator(
		store,
		budgetsync.NewSheetSource(cfg),
		budgetsync.NewFileSource(cfg),
		budgetsync.NewExtractor(cfg),
		logger,
		cfg,
	)

	result, err := orchestrator.Run(context.Background())
	if err != nil {
		log.Fatalf("sync: %v", err)
	}

	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))

	if *dryRun {
		ledger, _ := json.MarshalIndent(store.GetAll(context.Background()), "", "  ")
		fmt.Println(string(ledger))
	}

	if len(result.Errors) > 0 {
		os.Exit(1)
	}
}
