package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/addressbook-cli/internal/form"
	"github.com/sells-group/addressbook-cli/internal/model"
	"github.com/sells-group/addressbook-cli/internal/workflow"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Look up addresses by postcode and house number",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("search"); err != nil {
			return err
		}
		postcode, _ := cmd.Flags().GetString("postcode")
		houseNumber, _ := cmd.Flags().GetString("house-number")

		sess := workflow.NewSession(initLookup(), nil)
		addrs, err := runSearch(cmd.Context(), sess, postcode, houseNumber)
		if err != nil {
			return err
		}
		formatAddresses(cmd.OutOrStdout(), addrs)
		return nil
	},
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Look up an address, attach a name and save it to the address book",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("search"); err != nil {
			return err
		}
		if err := cfg.Validate("store"); err != nil {
			return err
		}
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		var in addInput
		in.Postcode, _ = cmd.Flags().GetString("postcode")
		in.HouseNumber, _ = cmd.Flags().GetString("house-number")
		in.FirstName, _ = cmd.Flags().GetString("first-name")
		in.LastName, _ = cmd.Flags().GetString("last-name")
		in.Select, _ = cmd.Flags().GetString("select")

		entry, err := runAdd(ctx, cmd.OutOrStdout(), workflow.NewSession(initLookup(), st), in)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(entry)
	},
}

// runSearch submits a lookup through sess and returns the candidates. Failures
// carry the session's user-facing message.
func runSearch(ctx context.Context, sess *workflow.Session, postcode, houseNumber string) ([]model.Address, error) {
	sess.MergeFields(form.Fields{
		workflow.FieldPostcode:    postcode,
		workflow.FieldHouseNumber: houseNumber,
	})
	if err := sess.Search(ctx); err != nil {
		zap.L().Debug("search failed", zap.Error(err))
		return nil, userError(sess, err, "search")
	}
	return sess.View().Addresses, nil
}

type addInput struct {
	Postcode    string
	HouseNumber string
	FirstName   string
	LastName    string
	Select      string
}

// runAdd searches, selects and commits. Without an explicit selection the
// search must return exactly one candidate; otherwise the candidates are
// printed to out.
func runAdd(ctx context.Context, out io.Writer, sess *workflow.Session, in addInput) (*model.Entry, error) {
	addrs, err := runSearch(ctx, sess, in.Postcode, in.HouseNumber)
	if err != nil {
		return nil, err
	}

	selected := in.Select
	if selected == "" {
		if len(addrs) != 1 {
			formatAddresses(out, addrs)
			return nil, eris.Errorf("%d addresses found; pass --select with one of the ids above", len(addrs))
		}
		selected = addrs[0].ID
	}

	sess.MergeFields(form.Fields{
		workflow.FieldFirstName:       in.FirstName,
		workflow.FieldLastName:        in.LastName,
		workflow.FieldSelectedAddress: selected,
	})
	entry, err := sess.Commit(ctx)
	if err != nil {
		zap.L().Debug("commit failed", zap.Error(err))
		return nil, userError(sess, err, "commit")
	}
	return entry, nil
}

// userError prefers the session's user-facing message over the raw cause.
func userError(sess *workflow.Session, err error, action string) error {
	if msg := sess.Error(); msg != "" {
		return eris.New(msg)
	}
	return eris.Wrap(err, action)
}

// formatAddresses writes a tabular list of candidate addresses to out.
func formatAddresses(out io.Writer, addrs []model.Address) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSTREET\tNUMBER\tPOSTCODE\tCITY")
	for _, a := range addrs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", a.ID, a.Street, a.HouseNumber, a.Postcode, a.City)
	}
	_ = w.Flush()
}

func init() {
	for _, c := range []*cobra.Command{searchCmd, addCmd} {
		c.Flags().String("postcode", "", "postcode to look up")
		c.Flags().String("house-number", "", "house number to look up")
	}
	addCmd.Flags().String("first-name", "", "first name (required)")
	addCmd.Flags().String("last-name", "", "last name (required)")
	addCmd.Flags().String("select", "", "address id to save when the lookup returns several")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(addCmd)
}
