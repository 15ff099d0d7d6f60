package search

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dreamerjackson/bookcrawler/aggregate"
	"github.com/dreamerjackson/bookcrawler/cmd/app"
	"github.com/dreamerjackson/bookcrawler/extract"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var SearchCmd = &cobra.Command{
	Use:   "search <keyword>",
	Short: "search every enabled book source.",
	Long:  "search every enabled book source concurrently and print the merged results.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return Run(cmd, strings.Join(args, " "))
	},
}

var (
	asJSON     bool
	sourceName string
)

func init() {
	SearchCmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	SearchCmd.Flags().StringVar(&sourceName, "source", "", "only search the source with this name")
}

type hit struct {
	extract.SearchResult
	Source string `json:"source"`
}

func Run(cmd *cobra.Command, keyword string) error {
	ctx := cmd.Context()
	a, err := app.New(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	sets, err := a.Store.Enabled(ctx)
	if err != nil {
		return err
	}
	if sourceName != "" {
		filtered := sets[:0]
		for _, rs := range sets {
			if rs.Name == sourceName {
				filtered = append(filtered, rs)
			}
		}
		sets = filtered
	}

	results, err := a.Coordinator().Search(ctx, keyword, sets)
	if err != nil {
		return err
	}
	aggregate.SortByWeight(results)
	a.Logger.Info("search finished",
		zap.String("keyword", keyword),
		zap.Int("sources", len(sets)),
		zap.Int("results", len(results)))

	out := cmd.OutOrStdout()
	if asJSON {
		hits := make([]hit, 0, len(results))
		for _, r := range results {
			hits = append(hits, hit{SearchResult: r, Source: r.SourceName()})
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(hits)
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TITLE\tAUTHOR\tSOURCE\tURL")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Title, r.Author, r.SourceName(), r.BookURL)
	}

	return w.Flush()
}
