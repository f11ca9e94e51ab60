package commands

import (
	"context"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/catalogmind/catalog-engine/cmd/catengine/ui"
)

var listOverview bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the stored catalogs",
	RunE:  runList,
}

func init() {
	listCmd.Flags().BoolVar(&listOverview, "overview", false, "print full library overview with summaries")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	eng, _, _, err := newEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	if listOverview {
		ui.Message("%s", eng.Overview())
		return nil
	}

	catalogs := eng.ListCatalogs()
	if len(catalogs) == 0 {
		ui.Message("No catalogs stored yet. Use 'catengine ingest' to add one.")
		return nil
	}

	rows := make([][]string, 0, len(catalogs))
	for _, m := range catalogs {
		processed := "-"
		if m.ProcessingDate != nil {
			processed = m.ProcessingDate.Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{
			m.Filename,
			strconv.Itoa(m.PageCount),
			strings.Join(m.Categories, ", "),
			processed,
		})
	}
	ui.Table([]string{"CATALOG", "PAGES", "CATEGORIES", "PROCESSED"}, rows)
	return nil
}
