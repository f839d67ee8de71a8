package server

import (
	"context"
	"fmt"

	"github.com/bioespinhanews/apiserver/config"
	"github.com/bioespinhanews/apiserver/internal/mq"
	"github.com/bioespinhanews/apiserver/internal/notify"
	"github.com/bioespinhanews/apiserver/internal/storage"
	"github.com/sirupsen/logrus"
)

// NewNotifier builds the notifier used by the API. With queue delivery the
// message is only enqueued here; archiving happens in the mailer once the
// message is actually sent.
func NewNotifier(ctx context.Context, cfg config.Config, logger *logrus.Logger) (notify.Notifier, func() error, error) {
	switch cfg.Email.Delivery {
	case "smtp":
		return NewDeliveryNotifier(ctx, cfg, logger, "api")
	case "queue":
		client, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return nil, nil, err
		}
		return notify.NewQueueNotifier(client, cfg.MQ.MailQueue), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown email delivery %q", cfg.Email.Delivery)
	}
}

// NewDeliveryNotifier builds the SMTP notifier, wrapped with the mail
// archive when one is configured. source tags archived objects.
func NewDeliveryNotifier(ctx context.Context, cfg config.Config, logger *logrus.Logger, source string) (notify.Notifier, func() error, error) {
	noop := func() error { return nil }

	var notifier notify.Notifier = notify.NewSMTPNotifier(cfg.Email)
	archive, err := storage.Open(ctx, cfg.MailArchive, source)
	if err != nil {
		return nil, nil, fmt.Errorf("mail archive: %w", err)
	}
	if archive != nil {
		logger.WithFields(logrus.Fields{
			"backend": cfg.MailArchive.Backend,
			"bucket":  archive.Bucket(),
		}).Info("archiving sent mail")
		notifier = notify.NewArchivingNotifier(notifier, archive, cfg.MailArchive.Prefix, logger)
	}
	return notifier, noop, nil
}
