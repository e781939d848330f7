package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scholarslab/nlfeatures/internal/browse"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse items and their features (TUI)",
	Long:  "Shows the item picker, then each chosen item's coverage values and features.",
	RunE:  runBrowse,
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	items, err := s.Items(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("No items with coverage values.")
		return nil
	}

	for {
		choice, err := browse.RunItemPicker(items)
		if err != nil {
			return fmt.Errorf("picker: %w", err)
		}
		if choice < 0 {
			return nil
		}
		itemID := items[choice].ID

		detail, err := browse.RunLoader(fmt.Sprintf("item %d", itemID), func(ctx context.Context) (browse.ItemDetail, error) {
			return browse.LoadItem(ctx, s, itemID)
		})
		if errors.Is(err, browse.ErrCancelled) {
			return nil
		}
		if err != nil {
			fmt.Printf("Failed to load item %d: %v\n", itemID, err)
			continue
		}

		wantQuit, err := browse.RunDetail(detail)
		if err != nil {
			return fmt.Errorf("detail view: %w", err)
		}
		if wantQuit {
			return nil
		}
	}
}
