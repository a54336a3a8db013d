package eventbus

import (
	"context"
	"time"

	"cinetix/internal/shared/constants"
	"cinetix/pkg/cache"
	"cinetix/pkg/logger"
)

// Publisher appends sales events to the Redis stream. Publishing is
// best-effort from the caller's point of view; the sale itself never waits
// on downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type streamPublisher struct {
	cache cache.Service
	log   *logger.Logger
}

func NewPublisher(cacheService cache.Service) Publisher {
	return &streamPublisher{
		cache: cacheService,
		log:   logger.GetDefault(),
	}
}

func (p *streamPublisher) Publish(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	id, err := p.cache.XAdd(ctx, constants.STREAM_EVENTS_SALES, event.toValues())
	if err != nil {
		p.log.WithError(err).Error("Failed to publish sales event",
			"type", event.Type,
			"function_id", event.FunctionID,
		)
		return err
	}

	p.log.Debug("Published sales event",
		"type", event.Type,
		"function_id", event.FunctionID,
		"stream_id", id,
	)
	return nil
}
