/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/bioespinhanews/apiserver/config"
	"github.com/bioespinhanews/apiserver/internal/db"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// migrateCmd represents the migrate command.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := newLogger(cfg)

		dbConn, err := db.Open(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer dbConn.Close()

		applied, err := db.NewMigrations(dbConn).Up()
		if err != nil {
			return err
		}
		if len(applied) == 0 {
			logger.Info("no pending migrations")
			return nil
		}
		logger.WithField("versions", applied).Info("migrations applied")
		return nil
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the applied schema version and pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := newLogger(cfg)

		dbConn, err := db.Open(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer dbConn.Close()

		status, err := db.NewMigrations(dbConn).Status()
		if err != nil {
			return err
		}
		logger.WithFields(logrus.Fields{
			"version": status.Version,
			"dirty":   status.Dirty,
			"pending": status.Pending,
		}).Info("schema version")
		fmt.Fprintln(cmd.OutOrStdout(), status.Version)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateVersionCmd)
}
