package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/catalogmind/catalog-engine/cmd/catengine/ui"
)

var removeCmd = &cobra.Command{
	Use:   "remove <catalog.pdf>",
	Short: "Remove a stored catalog and its backing file",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemove,
}

func init() {
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	eng, _, _, err := newEngine(context.Background())
	if err != nil {
		return err
	}
	defer eng.Close()

	name := args[0]
	if !eng.RemoveCatalog(name) {
		return fmt.Errorf("catalog %q not found", name)
	}
	ui.Success("removed %s", name)
	return nil
}
