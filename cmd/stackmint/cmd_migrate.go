package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/stackmint/stackmint/adapters/store/rdb"
	"github.com/stackmint/stackmint/internal/logging"
)

// newCmdMigrate returns the command applying the relational schema.
func newCmdMigrate() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			conn := cfg.Database.Connection
			if !strings.HasPrefix(conn, "sqlite:") && !strings.HasPrefix(conn, "sqlite3:") {
				return fmt.Errorf("migrate requires a relational database.connection, got %q", conn)
			}
			db, err := rdb.OpenFromURL(conn)
			if err != nil {
				return err
			}
			if err := rdb.AutoMigrate(db); err != nil {
				return err
			}
			logging.FromContext(cmd.Context()).Info(cmd.Context(), "schema up to date", "connection", conn)
			return nil
		},
	}
}
