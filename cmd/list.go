package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/addressbook-cli/internal/model"
	"github.com/sells-group/addressbook-cli/internal/store"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List address book entries, newest first",
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

		postcode, _ := cmd.Flags().GetString("postcode")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")
		asJSON, _ := cmd.Flags().GetBool("json")

		entries, err := st.List(ctx, store.ListFilter{Postcode: postcode, Limit: limit, Offset: offset})
		if err != nil {
			return eris.Wrap(err, "list")
		}

		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}
		if len(entries) == 0 {
			fmt.Fprintln(os.Stderr, "No entries found.")
			return nil
		}
		formatEntries(cmd.OutOrStdout(), entries)
		return nil
	},
}

// exportPageSize bounds each List call made by collectEntries.
const exportPageSize = 500

// collectEntries pages through every entry matching postcode.
func collectEntries(ctx context.Context, st store.Store, postcode string) ([]model.Entry, error) {
	var all []model.Entry
	for offset := 0; ; offset += exportPageSize {
		page, err := st.List(ctx, store.ListFilter{Postcode: postcode, Limit: exportPageSize, Offset: offset})
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < exportPageSize {
			return all, nil
		}
	}
}

// formatEntries writes a tabular list of entries to out.
func formatEntries(out io.Writer, entries []model.Entry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ENTRY\tNAME\tADDRESS\tPOSTCODE\tCITY\tCREATED")
	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%s\t%s %s\t%s %s\t%s\t%s\t%s\n",
			shortID(e.EntryID),
			e.FirstName, e.LastName,
			e.Street, e.HouseNumber,
			e.Postcode,
			e.City,
			e.CreatedAt.Local().Format(time.DateTime),
		)
	}
	_ = w.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	listCmd.Flags().String("postcode", "", "filter by postcode")
	listCmd.Flags().Int("limit", store.DefaultListLimit, "max number of entries to display")
	listCmd.Flags().Int("offset", 0, "number of entries to skip")
	listCmd.Flags().Bool("json", false, "print entries as JSON")
	rootCmd.AddCommand(listCmd)
}
