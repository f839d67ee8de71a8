package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Archive stores rendered messages.
type Archive interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
}

// ArchivingNotifier keeps a copy of every message that next sent
// successfully. Archive failures are logged and never fail the send.
type ArchivingNotifier struct {
	next    Notifier
	archive Archive
	prefix  string
	logger  *logrus.Logger
	now     func() time.Time
}

func NewArchivingNotifier(next Notifier, archive Archive, prefix string, logger *logrus.Logger) *ArchivingNotifier {
	return &ArchivingNotifier{
		next:    next,
		archive: archive,
		prefix:  prefix,
		logger:  logger,
		now:     time.Now,
	}
}

func (n *ArchivingNotifier) Send(ctx context.Context, msg Message) error {
	if err := n.next.Send(ctx, msg); err != nil {
		return err
	}

	sentAt := n.now().UTC()
	key := n.key(sentAt)
	raw := msg.Render(sentAt)
	if err := n.archive.Put(ctx, key, bytes.NewReader(raw), int64(len(raw)), "message/rfc822"); err != nil {
		n.logger.WithError(err).WithField("key", key).Warn("failed to archive sent mail")
	}
	return nil
}

// key partitions by day so listings stay small: <prefix>2026/01/20/<unix-nano>-<uuid>.eml
func (n *ArchivingNotifier) key(t time.Time) string {
	return fmt.Sprintf("%s%s/%d-%s.eml", n.prefix, t.Format("2006/01/02"), t.UnixNano(), uuid.NewString())
}
