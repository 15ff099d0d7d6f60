package read

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/dreamerjackson/bookcrawler/cmd/app"
	"github.com/spf13/cobra"
)

var ReadCmd = &cobra.Command{
	Use:   "read <source-id> <book-url>",
	Short: "read a book from one source.",
	Long:  "print the book info and chapter list, or one chapter with --chapter.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return Run(cmd, args[0], args[1])
	},
}

var chapter int

func init() {
	ReadCmd.Flags().IntVar(&chapter, "chapter", 0, "print chapter n (1-based) instead of the chapter list")
}

func Run(cmd *cobra.Command, sourceID, bookURL string) error {
	ctx := cmd.Context()
	id, err := strconv.ParseInt(sourceID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid source id %q", sourceID)
	}

	a, err := app.New(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	rs, err := a.Store.Get(ctx, id)
	if err != nil {
		return err
	}
	r := a.Reader()
	book, err := r.Book(ctx, rs, bookURL)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if chapter <= 0 {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(book)
	}

	content, err := r.Chapter(ctx, rs, book.Chapters, chapter-1)
	if err != nil {
		return err
	}
	title := content.Title
	if title == "" {
		title = book.Chapters[chapter-1].Title
	}
	_, err = fmt.Fprintf(out, "%s\n\n%s\n", title, content.Text)

	return err
}
