package tester

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/dreamerjackson/bookcrawler/cmd/app"
	"github.com/dreamerjackson/bookcrawler/source"
	"github.com/dreamerjackson/bookcrawler/validator"
	"github.com/spf13/cobra"
)

var ErrValidationFailed = errors.New("validation failed")

var TestCmd = &cobra.Command{
	Use:   "test [id...]",
	Short: "check book sources stage by stage.",
	Long: "run search, book info, chapter list and content against each source. " +
		"Sources are picked by id, from --file, or with --all.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return Run(cmd, args)
	},
}

var (
	all    bool
	file   string
	asJSON bool
)

func init() {
	TestCmd.Flags().BoolVar(&all, "all", false, "test every enabled source")
	TestCmd.Flags().StringVar(&file, "file", "", "test the rule sets in a JSON or YAML file without importing them")
	TestCmd.Flags().BoolVar(&asJSON, "json", false, "print verdicts as JSON")
}

func Run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := app.New(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var sets []*source.RuleSet
	switch {
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		if sets, err = source.Decode(data); err != nil {
			return err
		}
	case all:
		if sets, err = a.Store.Enabled(ctx); err != nil {
			return err
		}
	default:
		if len(args) == 0 {
			return errors.New("give source ids, --file or --all")
		}
		for _, arg := range args {
			id, err := strconv.ParseInt(arg, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid source id %q", arg)
			}
			rs, err := a.Store.Get(ctx, id)
			if err != nil {
				return fmt.Errorf("source %d: %w", id, err)
			}
			sets = append(sets, rs)
		}
	}

	verdicts := a.Validator().ValidateAll(ctx, sets)
	if err := printVerdicts(cmd, verdicts); err != nil {
		return err
	}
	for _, v := range verdicts {
		if !v.OK() {
			return ErrValidationFailed
		}
	}

	return nil
}

func printVerdicts(cmd *cobra.Command, verdicts []*validator.Verdict) error {
	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(verdicts)
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprint(w, "SOURCE")
	for _, s := range validator.Stages() {
		fmt.Fprintf(w, "\t%s", s)
	}
	fmt.Fprintln(w, "\tERROR")
	for _, v := range verdicts {
		fmt.Fprint(w, v.SourceName)
		for _, r := range v.Stages {
			fmt.Fprintf(w, "\t%s", r.Status)
		}
		errText := ""
		if err := v.Err(); err != nil {
			errText = err.Error()
		}
		fmt.Fprintf(w, "\t%s\n", errText)
	}

	return w.Flush()
}
