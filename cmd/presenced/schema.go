package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	presence "github.com/cydxin/presence-sdk"
	"github.com/cydxin/presence-sdk/config"
	"github.com/cydxin/presence-sdk/models"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print how GORM maps every model onto the configured database",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd.Context(), func(_ *config.Config, e *presence.PresenceEngine, _ *zap.Logger) error {
			return printSchema(cmd.Context(), e.DB())
		})
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}

func printSchema(ctx context.Context, db *gorm.DB) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, m := range models.All() {
		stmt := &gorm.Statement{DB: db.WithContext(ctx)}
		if err := stmt.Parse(m); err != nil {
			return fmt.Errorf("parse %T: %w", m, err)
		}
		fmt.Fprintf(w, "=== %s\n", stmt.Schema.Table)
		for _, f := range stmt.Schema.Fields {
			if f.DBName == "" {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", f.DBName, db.Dialector.DataTypeOf(f), f.Name, f.Tag.Get("gorm"))
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}
