package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/scholarslab/nlfeatures/internal/match"
	"github.com/scholarslab/nlfeatures/internal/model"
)

func TestParseItemID(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "7", want: 7},
		{in: "0", wantErr: true},
		{in: "-3", wantErr: true},
		{in: "seven", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseItemID(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseItemID(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseItemID(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}

	if _, err := parseItemID("0"); !errors.Is(err, model.ErrInvalidItem) {
		t.Errorf("parseItemID(0) = %v, want ErrInvalidItem", err)
	}
}

func TestArgOrStdin(t *testing.T) {
	got, err := argOrStdin([]string{"Monticello\n"})
	if err != nil || got != "Monticello\n" {
		t.Fatalf("argOrStdin = %q, %v", got, err)
	}

	tests := []struct {
		name        string
		stdin       string
		want        string
		wantPattern string
	}{
		{name: "markup", stdin: "<p>from stdin</p>\n", want: "<p>from stdin</p>", wantPattern: "%from stdin%"},
		{name: "trailing newline", stdin: "Monticello, Virginia\n", want: "Monticello, Virginia", wantPattern: "%Monticello, Virginia"},
		{name: "trailing crlf", stdin: "Monticello, Virginia\r\n", want: "Monticello, Virginia", wantPattern: "%Monticello, Virginia"},
		{name: "only one line ending", stdin: "a\n\n", want: "a\n", wantPattern: "%a\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "stdin")
			if err := os.WriteFile(path, []byte(tt.stdin), 0644); err != nil {
				t.Fatal(err)
			}
			f, err := os.Open(path)
			if err != nil {
				t.Fatal(err)
			}
			defer f.Close()
			old := os.Stdin
			os.Stdin = f
			t.Cleanup(func() { os.Stdin = old })

			got, err := argOrStdin(nil)
			if err != nil || got != tt.want {
				t.Fatalf("argOrStdin(stdin) = %q, %v, want %q", got, err, tt.want)
			}
			if p := match.NewKey(got).Pattern; p != tt.wantPattern {
				t.Errorf("pattern = %q, want %q", p, tt.wantPattern)
			}
		})
	}
}

func TestLoadConfig_env(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("coverage_element_id: 38\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("NLFEATURES_CONFIG", path)

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.CoverageElementID != 38 {
		t.Errorf("CoverageElementID = %d, want 38", cfg.CoverageElementID)
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"version", "match", "lookup", "features", "items", "import", "serve", "browse"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered", name)
		}
	}
}
