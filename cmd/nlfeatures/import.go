package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scholarslab/nlfeatures/internal/importer"
	"github.com/scholarslab/nlfeatures/internal/store"
)

var importDryRun bool

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Import coverage values and features from YAML",
	Long:  "Replaces each listed item's coverage values and features with the ones in FILE.",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "validate and log match patterns without writing")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	f, err := importer.Load(args[0])
	if err != nil {
		return err
	}

	// In dry-run mode, use a NopStore so nothing is persisted.
	var target importer.Store
	if importDryRun {
		logger.Info("dry-run mode enabled, nothing will be written")
		target = store.NewNopStore()
	} else {
		s, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer s.Close()
		target = withRetry(s, logger)
	}

	im := importer.NewImporter(target, cfg.CoverageElementID, cfg.ItemRecordTypeID, logger)
	sum, err := im.Run(cmd.Context(), f)
	if err != nil {
		return err
	}
	logger.Info("import complete", "items", sum.Items, "coverage_values", sum.Texts, "features", sum.Features)
	return nil
}
