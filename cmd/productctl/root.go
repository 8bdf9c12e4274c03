// cmd/productctl/root.go
package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/suppleit/suppleit-backend/internal/config"
	"github.com/suppleit/suppleit-backend/internal/database"
	"github.com/suppleit/suppleit-backend/internal/services"
)

var (
	useMemoryStore bool

	cfg    *config.Config
	logger *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "productctl",
	Short: "Look up health functional food products from the command line",
	Long: `productctl runs the same search and lookup pipeline as the API server:
keyword searches go to the public data API and are written through to the
product store, falling back to the store when the API is unavailable.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		logger = config.NewLogger(cfg)
		// Keep stdout clean for JSON output.
		logger.SetOutput(cmd.ErrOrStderr())
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&useMemoryStore, "memory", false, "Use an in-memory product store instead of PostgreSQL")
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(migrateCmd)
}

// openStore returns the configured product store and a function releasing it.
func openStore() (services.ProductStore, func(), error) {
	if useMemoryStore {
		return services.NewMemoryProductStore(cfg.Store.SearchLimit), func() {}, nil
	}

	db, err := openDatabase()
	if err != nil {
		return nil, nil, err
	}
	return services.NewGormProductStore(db, cfg.Store.SearchLimit), func() { database.Close(db, logger) }, nil
}

func openDatabase() (*gorm.DB, error) {
	db, err := database.Initialize(cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	if err := database.RunMigrations(db, logger); err != nil {
		database.Close(db, logger)
		return nil, err
	}
	return db, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
