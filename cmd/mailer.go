/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/bioespinhanews/apiserver/config"
	"github.com/bioespinhanews/apiserver/internal/mq"
	"github.com/bioespinhanews/apiserver/internal/notify"
	"github.com/bioespinhanews/apiserver/internal/server"
	"github.com/spf13/cobra"
)

// mailerCmd represents the mailer command
var mailerCmd = &cobra.Command{
	Use:   "mailer",
	Short: "Delivers queued outbound mail over SMTP",
	Long: `Consumes the outbound mail queue filled by the API server when
EMAIL_DELIVERY=queue and delivers each message over SMTP.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := newLogger(cfg)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		client, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return fmt.Errorf("mq: %w", err)
		}
		defer client.Close()

		delivery, closeDelivery, err := server.NewDeliveryNotifier(ctx, cfg, logger, "mailer")
		if err != nil {
			return err
		}
		defer closeDelivery()

		logger.WithField("queue", cfg.MQ.MailQueue).Info("mailer consuming")
		err = client.Subscribe(ctx, cfg.MQ.MailQueue, notify.DeliveryHandler(delivery, logger))
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mailerCmd)
}
