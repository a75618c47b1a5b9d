package main

import (
	"github.com/pkg/errors"
	"github.com/sguter90/pimaestro/pkg/database"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	rs, err := database.NewReadingStore(&cfg.Database, log)
	if err != nil {
		return errors.Wrap(err, "failed to initialize database")
	}
	defer rs.Close()

	return rs.Init(cmd.Context())
}
