package service

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hackerloum/secureview/internal/app/model"
	"github.com/hackerloum/secureview/internal/infra/metrics"
	"github.com/nats-io/nats.go"
)

// ViewPublisher publishes view audit events to NATS JetStream. Publishing is
// fire-and-forget: a failure must never block or reverse content disclosure.
type ViewPublisher struct {
	js nats.JetStreamContext
}

// NewViewPublisher creates a new view event publisher
func NewViewPublisher(js nats.JetStreamContext) *ViewPublisher {
	return &ViewPublisher{js: js}
}

// Publish publishes a view event to the stream
func (p *ViewPublisher) Publish(contentID, ownerID, ip, userAgent string) error {
	event := model.ViewEvent{
		ID:        uuid.New().String(),
		ContentID: contentID,
		OwnerID:   ownerID,
		ViewerIP:  ip,
		UserAgent: userAgent,
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if _, err := p.js.Publish(model.ViewStreamSubject, data); err != nil {
		return err
	}
	metrics.ViewEventsPublished.Inc()
	return nil
}
