// cmd/productctl/get.go
package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/suppleit/suppleit-backend/internal/services"
)

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a stored product by id",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func runGet(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid product id %q", args[0])
	}

	store, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	productService, err := services.BuildProductService(cfg, store, logger)
	if err != nil {
		return err
	}

	product, err := productService.GetProductByID(cmd.Context(), id)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), product)
}
