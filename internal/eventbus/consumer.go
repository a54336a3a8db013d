package eventbus

import (
	"context"
	"time"

	"cinetix/internal/shared/constants"
	"cinetix/pkg/cache"
	"cinetix/pkg/logger"
)

const (
	readBatchSize = 16
	readBlock     = 2 * time.Second
	errorBackoff  = time.Second

	// How often the startup drain retries one pending entry before moving
	// past it. Skipped entries stay pending for a later incarnation; they
	// must not stall delivery of new events behind them.
	maxDrainAttempts = 3
)

// Handler processes one event. A nil return acknowledges the entry; an
// error leaves it pending so it is redelivered on the next restart.
type Handler func(ctx context.Context, event Event) error

// Consumer drains one consumer group of the sales stream. Each group sees
// every event, so independent concerns (metrics, email) each run their own
// consumer.
type Consumer struct {
	cache   cache.Service
	stream  string
	group   string
	name    string
	handler Handler
	log     *logger.Logger
	done    chan struct{}
}

func NewConsumer(cacheService cache.Service, group, name string, handler Handler) *Consumer {
	return &Consumer{
		cache:   cacheService,
		stream:  constants.STREAM_EVENTS_SALES,
		group:   group,
		name:    name,
		handler: handler,
		log:     logger.GetDefault(),
		done:    make(chan struct{}),
	}
}

// Start creates the group if needed and begins the read loop.
func (c *Consumer) Start(ctx context.Context) error {
	if err := c.cache.XGroupCreateMkStream(ctx, c.stream, c.group); err != nil {
		return err
	}

	go c.run(ctx)

	c.log.Info("Event consumer started", "group", c.group, "consumer", c.name)
	return nil
}

func (c *Consumer) Stop() {
	close(c.done)
	c.log.Info("Event consumer stopped", "group", c.group, "consumer", c.name)
}

func (c *Consumer) run(ctx context.Context) {
	// Entries delivered before a crash are still pending for this consumer,
	// so drain those first, then switch to new entries.
	from := "0"
	drainAttempts := make(map[string]int)

	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		default:
		}

		messages, err := c.cache.XReadGroup(ctx, c.stream, c.group, c.name, from, readBatchSize, readBlock)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.WithError(err).Error("Event stream read failed", "group", c.group)
			c.sleep(ctx, errorBackoff)
			continue
		}

		if len(messages) == 0 {
			if from != ">" {
				from = ">"
				drainAttempts = nil
			}
			continue
		}

		failed := c.dispatch(ctx, messages)

		if from != ">" {
			from = c.advanceDrainCursor(from, messages, failed, drainAttempts)
		}
		if len(failed) > 0 {
			c.sleep(ctx, errorBackoff)
		}
	}
}

// advanceDrainCursor moves the pending-read cursor past every processed
// entry, stopping at the first failed one that still has retries left. An
// entry that keeps failing is skipped after maxDrainAttempts so a poison
// entry cannot block the switch to new events; it stays pending for the
// next consumer incarnation.
func (c *Consumer) advanceDrainCursor(from string, messages []cache.StreamMessage, failed map[string]bool, attempts map[string]int) string {
	cursor := from
	for _, msg := range messages {
		if failed[msg.ID] {
			attempts[msg.ID]++
			if attempts[msg.ID] < maxDrainAttempts {
				return cursor
			}
			c.log.Warn("Skipping unackable pending entry",
				"group", c.group,
				"stream_id", msg.ID,
				"attempts", attempts[msg.ID],
			)
		}
		cursor = msg.ID
	}
	return cursor
}

// dispatch runs the handler per entry and acks the ones that succeed.
// Returns the IDs of the entries that failed.
func (c *Consumer) dispatch(ctx context.Context, messages []cache.StreamMessage) map[string]bool {
	acked := make([]string, 0, len(messages))
	failed := make(map[string]bool)

	for _, msg := range messages {
		event := eventFromValues(msg.Values)
		if err := c.handler(ctx, event); err != nil {
			failed[msg.ID] = true
			c.log.WithError(err).Error("Event handler failed",
				"group", c.group,
				"type", event.Type,
				"stream_id", msg.ID,
			)
			continue
		}
		acked = append(acked, msg.ID)
	}

	if err := c.cache.XAck(ctx, c.stream, c.group, acked...); err != nil {
		c.log.WithError(err).Error("Event ack failed", "group", c.group)
	}
	return failed
}

func (c *Consumer) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-time.After(d):
	case <-c.done:
	case <-ctx.Done():
	}
}
