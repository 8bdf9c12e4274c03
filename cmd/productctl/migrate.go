// cmd/productctl/migrate.go
package main

import (
	"github.com/spf13/cobra"

	"github.com/suppleit/suppleit-backend/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the product tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		database.Close(db, logger)
		return nil
	},
}
