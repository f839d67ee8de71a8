package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bioespinhanews/apiserver/internal/apperr"
	"github.com/bioespinhanews/apiserver/internal/mq"
	"github.com/sirupsen/logrus"
)

// Publisher is the subset of *mq.MQ used to enqueue mail.
type Publisher interface {
	PublishJSON(ctx context.Context, channel string, v any, attrs map[string]string) (string, error)
}

// QueueNotifier hands messages to a broker; the mailer command delivers them.
type QueueNotifier struct {
	publisher Publisher
	queue     string
}

func NewQueueNotifier(publisher Publisher, queue string) *QueueNotifier {
	return &QueueNotifier{publisher: publisher, queue: queue}
}

func (n *QueueNotifier) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return apperr.Service("Could not send email.", err)
	}
	if _, err := n.publisher.PublishJSON(ctx, n.queue, msg, nil); err != nil {
		return apperr.Service("Could not send email.", fmt.Errorf("enqueue mail: %w", err))
	}
	return nil
}

// DeliveryHandler decodes queued messages and passes them to next. Messages
// that cannot be decoded are logged and acknowledged, since retrying them
// cannot succeed.
func DeliveryHandler(next Notifier, logger *logrus.Logger) mq.Handler {
	return func(ctx context.Context, m mq.Message) error {
		var msg Message
		if err := json.Unmarshal(m.Data, &msg); err != nil {
			logger.WithError(err).WithField("message_id", m.ID).Error("dropping undecodable mail message")
			return nil
		}
		if err := next.Send(ctx, msg); err != nil {
			logger.WithError(err).WithField("message_id", m.ID).Warn("mail delivery failed")
			return err
		}
		logger.WithField("message_id", m.ID).Debug("mail delivered")
		return nil
	}
}
