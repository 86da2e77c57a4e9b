package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var pricesOutputPath string

var pricesCmd = &cobra.Command{
	Use:   "prices",
	Short: "Export the price observations table as CSV",
	RunE:  runPrices,
}

func init() {
	rootCmd.AddCommand(pricesCmd)
	pricesCmd.Flags().StringVarP(&pricesOutputPath, "output-file", "f", "", "Write CSV to this file instead of stdout")
}

func runPrices(cmd *cobra.Command, args []string) error {
	body, err := adminGet("/admin/prices.csv")
	if err != nil {
		return err
	}

	if pricesOutputPath == "" {
		_, err := os.Stdout.Write(body)
		return err
	}

	if err := os.WriteFile(pricesOutputPath, body, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", pricesOutputPath, err)
	}
	fmt.Printf("wrote %s\n", pricesOutputPath)
	return nil
}
