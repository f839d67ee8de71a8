/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/bioespinhanews/apiserver/config"
	"github.com/bioespinhanews/apiserver/internal/observability"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bioespinha",
	Short: "Bio Espinha News identity and access API",
	Long: `Bio Espinha News identity and access API: user registration, account
activation, sessions and capability checks.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) *logrus.Logger {
	return observability.NewLogger(os.Stdout, cfg.Log.Level, cfg.Log.Format)
}
