package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scholarslab/nlfeatures/internal/match"
)

var matchJSON bool

var matchCmd = &cobra.Command{
	Use:   "match [text]",
	Short: "Print the LIKE pattern for a piece of free text",
	Long:  "Prints the pattern used to find a coverage value whose markup may have been re-escaped. Reads stdin when no text is given.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runMatch,
}

func init() {
	matchCmd.Flags().BoolVar(&matchJSON, "json", false, "print the full search key as JSON")
	rootCmd.AddCommand(matchCmd)
}

func runMatch(cmd *cobra.Command, args []string) error {
	text, err := argOrStdin(args)
	if err != nil {
		return err
	}

	key := match.NewKey(text)
	if !matchJSON {
		fmt.Println(key.Pattern)
		return nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"pattern":      key.Pattern,
		"raw_segment":  key.RawSegment,
		"whole_string": key.WholeString,
	})
}

// argOrStdin returns the single positional argument, or all of stdin less
// one trailing line ending.
func argOrStdin(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	text := string(data)
	if strings.HasSuffix(text, "\r\n") {
		return strings.TrimSuffix(text, "\r\n"), nil
	}
	return strings.TrimSuffix(text, "\n"), nil
}
