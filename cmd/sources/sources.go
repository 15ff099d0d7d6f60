package sources

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dreamerjackson/bookcrawler/cmd/app"
	"github.com/dreamerjackson/bookcrawler/fetch"
	"github.com/dreamerjackson/bookcrawler/source"
	"github.com/dreamerjackson/bookcrawler/sourcestore"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var SourceCmd = &cobra.Command{
	Use:   "source",
	Short: "manage book sources.",
	Long:  "import, export, list, enable, disable and remove book sources.",
}

var importCmd = &cobra.Command{
	Use:   "import <file|url|->",
	Short: "import rule sets from a JSON or YAML file, an URL or stdin.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		data, err := read(cmd, a, args[0])
		if err != nil {
			return err
		}
		sets, err := source.Decode(data)
		if err != nil {
			return err
		}
		res, err := sourcestore.Import(cmd.Context(), a.Store, sets)
		if err != nil {
			return err
		}
		a.Logger.Info("import finished", zap.Int("added", res.Added), zap.Int("skipped", res.Skipped))
		fmt.Fprintf(cmd.OutOrStdout(), "added %d, skipped %d duplicates\n", res.Added, res.Skipped)

		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "export every rule set as a JSON array.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		sets, err := a.Store.List(cmd.Context())
		if err != nil {
			return err
		}
		data, err := source.EncodeJSON(sets)
		if err != nil {
			return err
		}
		if len(args) == 0 || args[0] == "-" {
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		}

		return os.WriteFile(args[0], data, 0o644)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "list stored rule sets.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		sets, err := a.Store.List(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tURL\tWEIGHT\tENABLED")
		for _, rs := range sets {
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%t\n", rs.ID, rs.Name, rs.URL, rs.Weight, rs.Enabled)
		}

		return w.Flush()
	},
}

func idCommand(use, short string, fn func(cmd *cobra.Command, a *app.App, id int64) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid source id %q", args[0])
			}
			a, err := app.New(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			return fn(cmd, a, id)
		},
	}
}

func init() {
	enableCmd := idCommand("enable", "enable a rule set.", func(cmd *cobra.Command, a *app.App, id int64) error {
		return a.Store.SetEnabled(cmd.Context(), id, true)
	})
	disableCmd := idCommand("disable", "disable a rule set.", func(cmd *cobra.Command, a *app.App, id int64) error {
		return a.Store.SetEnabled(cmd.Context(), id, false)
	})
	removeCmd := idCommand("remove", "remove a rule set.", func(cmd *cobra.Command, a *app.App, id int64) error {
		return a.Store.Remove(cmd.Context(), id)
	})

	SourceCmd.AddCommand(importCmd, exportCmd, listCmd, enableCmd, disableCmd, removeCmd)
}

func read(cmd *cobra.Command, a *app.App, from string) ([]byte, error) {
	switch {
	case from == "-":
		return io.ReadAll(cmd.InOrStdin())
	case strings.HasPrefix(from, "http://"), strings.HasPrefix(from, "https://"):
		page, err := a.Fetcher.Next().Fetch(cmd.Context(), &fetch.Request{URL: from})
		if err != nil {
			return nil, err
		}
		return []byte(page.Body), nil
	default:
		return os.ReadFile(from)
	}
}
