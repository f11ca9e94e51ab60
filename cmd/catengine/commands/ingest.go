package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/catalogmind/catalog-engine/cmd/catengine/ui"
	"github.com/catalogmind/catalog-engine/internal/pdf"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <catalog.pdf> [more.pdf ...]",
	Short: "Ingest one or more PDF catalogs",
	Long: `Ingest PDF product catalogs: each file is rasterized, analyzed page batch
by page batch with the language model, and stored in the catalog library.
Extraction over large catalogs can take several minutes per file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	eng, _, _, err := newEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	ui.Section("Catalog Ingestion")

	bar := ui.NewProgressBar(int64(len(args)), "ingesting catalogs")
	var failed int
	for _, path := range args {
		if err := pdf.ValidatePDFPath(path); err != nil {
			ui.Error("%s: %v", path, err)
			failed++
			_ = bar.Add(1)
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			ui.Error("%s: %v", path, err)
			failed++
			_ = bar.Add(1)
			continue
		}

		filename := filepath.Base(path)
		ui.Verbose("ingesting %s (%d bytes)", filename, len(data))

		result, err := eng.AddCatalog(ctx, filename, data)
		if err != nil {
			ui.Error("%s: %v", filename, err)
			failed++
			_ = bar.Add(1)
			continue
		}

		_ = bar.Add(1)
		ui.Success("%s: %d pages in %d batches (%s, job %s)",
			result.Catalog, result.Pages, result.Batches,
			ui.FormatDuration(result.Duration), result.JobID)
	}
	_ = bar.Finish()

	if failed > 0 {
		return fmt.Errorf("%d of %d catalogs failed to ingest", failed, len(args))
	}
	ui.Message("\nLibrary now holds %d catalog(s).", len(eng.ListCatalogs()))
	return nil
}
