package commands

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/catalogmind/catalog-engine/cmd/catengine/ui"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a product question against the stored catalogs",
	Long: `Ask a natural language product question. The engine ranks the stored
catalogs against the question, queries the best match, and falls back to the
next candidates when the first answer looks weak.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	eng, _, _, err := newEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	question := strings.Join(args, " ")

	spin := ui.NewSpinner("Searching catalogs...")
	spin.Start()
	answer, err := eng.Ask(ctx, question)
	spin.Stop()
	if err != nil {
		return err
	}

	if answer.Cached {
		ui.Verbose("answer served from cache")
	}
	ui.Message("%s", answer.Text)
	return nil
}
