package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hackerloum/secureview/internal/app/model"
	apprepository "github.com/hackerloum/secureview/internal/app/repository"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// ViewConsumer consumes view events from NATS JetStream, appends audit rows
// and bumps the cumulative counter on the content record.
type ViewConsumer struct {
	js       nats.JetStreamContext
	logger   *zap.Logger
	views    apprepository.ViewEventRepository
	contents apprepository.ContentRepository
}

// NewViewConsumer creates a new view event consumer
func NewViewConsumer(js nats.JetStreamContext, logger *zap.Logger, views apprepository.ViewEventRepository, contents apprepository.ContentRepository) *ViewConsumer {
	return &ViewConsumer{js: js, logger: logger, views: views, contents: contents}
}

// Start begins consuming view events
func (c *ViewConsumer) Start() error {
	// Create stream if not exists
	_, err := c.js.StreamInfo(model.ViewStreamName)
	if err != nil {
		_, err = c.js.AddStream(&nats.StreamConfig{
			Name:     model.ViewStreamName,
			Subjects: []string{model.ViewStreamSubject},
			MaxBytes: model.ViewStreamMaxBytes,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}
	}

	// Create consumer if not exists
	_, err = c.js.ConsumerInfo(model.ViewStreamName, model.ViewConsumerName)
	if err != nil {
		_, err = c.js.AddConsumer(model.ViewStreamName, &nats.ConsumerConfig{
			Durable:   model.ViewConsumerName,
			AckPolicy: nats.AckExplicitPolicy,
		})
		if err != nil {
			return fmt.Errorf("failed to create consumer: %w", err)
		}
	}

	// Subscribe to consume messages
	sub, err := c.js.PullSubscribe(model.ViewStreamSubject, model.ViewConsumerName)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	go c.consume(sub)
	return nil
}

func (c *ViewConsumer) consume(sub *nats.Subscription) {
	ctx := context.Background()
	for {
		msgs, err := sub.Fetch(10, nats.MaxWait(5*time.Second))
		if err != nil && err != nats.ErrTimeout {
			c.logger.Error("failed to fetch messages", zap.Error(err))
			continue
		}

		for _, msg := range msgs {
			var event model.ViewEvent
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				c.logger.Error("failed to unmarshal view event", zap.Error(err))
				msg.Nak()
				continue
			}

			// Append the audit row first; the counter bump is best-effort and
			// repaired by the reconciler if it drifts.
			if err := c.views.Create(ctx, &event); err != nil {
				c.logger.Error("failed to store view event",
					zap.String("id", event.ID),
					zap.String("content_id", event.ContentID),
					zap.Error(err))
				msg.Nak()
				continue
			}

			if err := c.contents.IncrementViewCount(ctx, event.ContentID); err != nil {
				c.logger.Warn("failed to bump view counter",
					zap.String("content_id", event.ContentID),
					zap.Error(err))
			}

			c.logger.Debug("view event stored",
				zap.String("id", event.ID),
				zap.String("content_id", event.ContentID),
				zap.String("viewer_ip", event.ViewerIP),
				zap.Time("timestamp", event.Timestamp),
			)

			msg.Ack()
		}
	}
}
