package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cobra"

	"github.com/evalview/evalview/internal/runstore"
)

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <runs-dir>",
		Short: "Schema-check run snapshot files",
		Long: `Validate every run snapshot file in a directory against the snapshot
schema, reporting each violation. Files that fail validation are the
ones the store would skip at load time.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(args[0])
		},
	}
	return cmd
}

func runValidate(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", dir, err)
	}

	checked := 0
	failed := 0
	for _, e := range entries {
		if e.IsDir() || !(strings.HasSuffix(e.Name(), ".json") || strings.HasSuffix(e.Name(), ".json.zst")) {
			continue
		}
		checked++
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			failed++
			fmt.Printf("  %s: %v\n", e.Name(), err)
			continue
		}
		if strings.HasSuffix(e.Name(), ".zst") {
			data, err = decompressSnapshot(data)
			if err != nil {
				failed++
				fmt.Printf("  %s: %v\n", e.Name(), err)
				continue
			}
		}
		if errs := runstore.ValidateSnapshotBytes(data); len(errs) > 0 {
			failed++
			fmt.Printf("  %s:\n", e.Name())
			for _, msg := range errs {
				fmt.Printf("    %s\n", msg)
			}
		}
	}

	fmt.Printf("%d file(s) checked, %d invalid\n", checked, failed)
	if failed > 0 {
		return fmt.Errorf("%d snapshot file(s) failed validation", failed)
	}
	return nil
}

func decompressSnapshot(data []byte) ([]byte, error) {
	r, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.DecodeAll(data, nil)
}
