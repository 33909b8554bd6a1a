package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/addressbook-cli/internal/fetcher"
	"github.com/sells-group/addressbook-cli/internal/model"
)

var (
	exportPath     string
	exportPostcode string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export address book entries to CSV or XLSX",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("store"); err != nil {
			return err
		}
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		entries, err := collectEntries(ctx, st, exportPostcode)
		if err != nil {
			return eris.Wrap(err, "export")
		}

		recs := make([]model.PersonAddress, 0, len(entries))
		for _, e := range entries {
			recs = append(recs, e.PersonAddress)
		}
		if err := writeRecords(exportPath, recs); err != nil {
			return eris.Wrap(err, "export")
		}

		zap.L().Info("export complete",
			zap.Int("entries", len(recs)),
			zap.String("file", exportPath),
		)
		return nil
	},
}

// writeRecords writes recs as XLSX or CSV depending on the extension of path.
func writeRecords(path string, recs []model.PersonAddress) error {
	if isXLSX(path) {
		return fetcher.WriteXLSX(path, recs)
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "create csv")
	}
	if err := fetcher.WriteCSV(f, recs); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	return eris.Wrap(f.Close(), "close csv")
}

func init() {
	exportCmd.Flags().StringVar(&exportPath, "file", "", "output .csv or .xlsx path (required)")
	exportCmd.Flags().StringVar(&exportPostcode, "postcode", "", "only export entries with this postcode")
	_ = exportCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(exportCmd)
}
