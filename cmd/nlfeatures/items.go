package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "List items with coverage values",
	Long:  "Prints a table of every item with coverage values and how many have features.",
	RunE:  runItems,
}

func init() {
	rootCmd.AddCommand(itemsCmd)
}

func runItems(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	items, err := s.Items(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("%-10s %-10s %-10s %s\n", "Item", "Coverage", "Features", "On map")
	fmt.Println(strings.Repeat("─", 40))

	texts, features, mapped := 0, 0, 0
	for _, it := range items {
		fmt.Printf("%-10d %-10d %-10d %d\n", it.ID, it.Texts, it.Features, it.MapFeatures)
		texts += it.Texts
		features += it.Features
		mapped += it.MapFeatures
	}

	fmt.Printf("\nTotal: %d items (%d coverage values, %d features, %d on map)\n", len(items), texts, features, mapped)
	return nil
}
