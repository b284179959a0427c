package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"restaurant-site/pkg/bundle"
)

var validateFlags struct {
	path string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a bundle file against the bundle schema",
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateFlags.path, "path", "data/menu-api.json", "Bundle file to check")
}

func runValidate(cmd *cobra.Command, _ []string) error {
	data, err := os.ReadFile(validateFlags.path)
	if err != nil {
		return fmt.Errorf("read bundle: %w", err)
	}
	result, err := bundle.Validate(data)
	if err != nil {
		return fmt.Errorf("bundle %s: %w", validateFlags.path, err)
	}
	if !result.Valid {
		for _, msg := range result.GetErrorMessages() {
			fmt.Fprintf(cmd.ErrOrStderr(), "  - %s\n", msg)
		}
		return fmt.Errorf("bundle validation failed: %s", validateFlags.path)
	}

	b, err := bundle.LoadMenu(validateFlags.path)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Bundle validation passed: %d featured items.\n", len(b.Data.FeaturedItems))
	return nil
}
