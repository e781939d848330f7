package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/scholarslab/nlfeatures/internal/coverage"
	"github.com/scholarslab/nlfeatures/internal/model"
)

var (
	lookupHTML   bool
	lookupTextID int64
)

var lookupCmd = &cobra.Command{
	Use:   "lookup ITEM [text]",
	Short: "Find the stored feature for a coverage value",
	Long: "Looks up the feature an item's coverage value belongs to, by element text id when --id is given " +
		"and by geometry and free text otherwise. Reads the text from stdin when it is not given.",
	Args: cobra.RangeArgs(1, 2),
	RunE: runLookup,
}

func init() {
	lookupCmd.Flags().BoolVar(&lookupHTML, "html", false, "the text is HTML")
	lookupCmd.Flags().Int64Var(&lookupTextID, "id", 0, "element text id, when known")
	rootCmd.AddCommand(lookupCmd)
}

func runLookup(cmd *cobra.Command, args []string) error {
	itemID, err := parseItemID(args[0])
	if err != nil {
		return err
	}

	et := model.ElementText{RecordID: &itemID, HTML: lookupHTML}
	if lookupTextID > 0 {
		et.ID = &lookupTextID
	} else {
		text, err := argOrStdin(args[1:])
		if err != nil {
			return err
		}
		et.Text = text
	}

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	et.ElementID = cfg.CoverageElementID
	et.RecordTypeID = cfg.ItemRecordTypeID

	logger := setupLogger(debug)
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	if et.ID == nil {
		key := coverage.NewSearchKey(et.Text)
		logger.Debug("search key", "geo", key.Geo, "wkt", key.WKT, "pattern", key.Pattern())
	}

	lookup, err := s.FindByElementText(cmd.Context(), et)
	if err != nil {
		return err
	}
	switch l := lookup.(type) {
	case model.Found:
		printFeatures([]model.Feature{l.Feature})
	case model.NotFound:
		fmt.Println("No feature found.")
	}
	return nil
}

func parseItemID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid item id %q: %w", s, err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("item %d: %w", id, model.ErrInvalidItem)
	}
	return id, nil
}
