package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/ternarybob/engel/internal/engine"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate <plan>",
	Short: "Convert existing relations in batches",
	Long:  fmt.Sprintf("Runs a migration plan in the foreground. Plans: %s", strings.Join(engine.PlanNames(), ", ")),
	Args:  cobra.ExactArgs(1),
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	stopSignals := watchSignals(application, nil)
	defer stopSignals()

	summary, err := application.Migrations.Run(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printJSON(summary)
}
