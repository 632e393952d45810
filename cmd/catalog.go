package main

import (
	"fmt"
	"io"

	"github.com/IntelliTect/Coalesce-sub010/internal/config"
	"github.com/IntelliTect/Coalesce-sub010/internal/model"

	"github.com/spf13/cobra"
)

func catalogCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the model catalog",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check [dir]",
		Short: "Load and validate model files",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := cfg.ModelsDir
			if len(args) == 1 {
				dir = args[0]
			}
			catalog, err := model.LoadCatalog(dir)
			if err != nil {
				return err
			}
			printCatalog(cmd.OutOrStdout(), catalog)
			return nil
		},
	})
	return cmd
}

func printCatalog(w io.Writer, c *model.Catalog) {
	for _, t := range c.Types() {
		if t.IsGeneratedDto() {
			continue
		}
		kind := "entity"
		if t.IsDto() {
			kind = "dto of " + t.EntityType().Name
		}
		key := "-"
		if pk := t.PrimaryKey(); pk != nil {
			key = pk.JSONName
		}
		fmt.Fprintf(w, "%-16s %-20s key=%s table=%s\n", t.Name, kind, key, t.TableName())
	}

	cycles := c.RequiredReferenceCycles()
	if len(cycles) == 0 {
		fmt.Fprintln(w, "no required reference cycles")
		return
	}
	fmt.Fprintln(w, "required reference cycles (cannot be created in one bulk save):")
	for _, cycle := range cycles {
		fmt.Fprintf(w, "  %s\n", cycle)
	}
}
