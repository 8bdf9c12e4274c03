// cmd/productctl/search.go
package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/suppleit/suppleit-backend/internal/services"
)

var searchCmd = &cobra.Command{
	Use:   "search <keyword>",
	Short: "Search products by name",
	Long:  "Search the public data API for products and store the results, falling back to the local store.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	store, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	productService, err := services.BuildProductService(cfg, store, logger)
	if err != nil {
		return err
	}

	result := productService.SearchProducts(cmd.Context(), strings.Join(args, " "))
	return printJSON(cmd.OutOrStdout(), result)
}
