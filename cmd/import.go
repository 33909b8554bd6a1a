package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/addressbook-cli/internal/fetcher"
	"github.com/sells-group/addressbook-cli/internal/model"
)

var (
	importPath  string
	importSheet string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import address book entries from CSV or XLSX",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("store"); err != nil {
			return err
		}
		ctx := cmd.Context()

		recs, err := readRecords(ctx, importPath, importSheet)
		if err != nil {
			return eris.Wrap(err, "import")
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := st.AddMany(ctx, recs)
		if err != nil {
			return eris.Wrap(err, "import")
		}

		zap.L().Info("import complete",
			zap.Int("created", n),
			zap.String("file", importPath),
		)
		return nil
	},
}

func isXLSX(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xlsx")
}

// readRecords parses path as XLSX or CSV depending on its extension.
func readRecords(ctx context.Context, path, sheet string) ([]model.PersonAddress, error) {
	if isXLSX(path) {
		return fetcher.ReadXLSX(path, fetcher.XLSXOptions{SheetName: sheet})
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "open csv")
	}
	defer f.Close() //nolint:errcheck
	return fetcher.ReadCSV(ctx, f)
}

func init() {
	importCmd.Flags().StringVar(&importPath, "file", "", "path to a .csv or .xlsx file (required)")
	importCmd.Flags().StringVar(&importSheet, "sheet", "", "XLSX sheet name (default first sheet)")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
