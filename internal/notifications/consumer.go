package notifications

import (
	"context"
	"fmt"
	"time"

	"cinetix/internal/shared/config"
	"cinetix/pkg/logger"

	"github.com/IBM/sarama"
)

// Consumer drains the email topic and hands each notification to the
// email service. Offsets are committed only after a successful send, so a
// crashed worker re-delivers rather than drops.
type Consumer struct {
	group  sarama.ConsumerGroup
	topic  string
	emails EmailService
	log    *logger.Logger
	cancel context.CancelFunc
	done   chan struct{}
}

func NewConsumer(cfg *config.Config, emails EmailService) (*Consumer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Consumer.Group.Session.Timeout = 30 * time.Second
	saramaConfig.Consumer.Group.Heartbeat.Interval = 3 * time.Second
	saramaConfig.Consumer.Return.Errors = true
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaConfig.Consumer.Offsets.AutoCommit.Enable = false

	group, err := sarama.NewConsumerGroup(cfg.Kafka.Brokers, cfg.Kafka.ConsumerGroup, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer group: %w", err)
	}

	return &Consumer{
		group:  group,
		topic:  cfg.Kafka.EmailTopic,
		emails: emails,
		log:    logger.GetDefault(),
		done:   make(chan struct{}),
	}, nil
}

// Start launches the consume loop. Consume returns on every rebalance, so
// the loop re-enters it until the context is cancelled.
func (c *Consumer) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)

	go func() {
		for err := range c.group.Errors() {
			c.log.WithError(err).Error("Email consumer group error")
		}
	}()

	go func() {
		defer close(c.done)
		handler := &emailGroupHandler{emails: c.emails, log: c.log}
		for {
			if err := c.group.Consume(ctx, []string{c.topic}, handler); err != nil {
				if ctx.Err() != nil {
					return
				}
				c.log.WithError(err).Error("Email consumer session failed")
				select {
				case <-time.After(time.Second):
				case <-ctx.Done():
					return
				}
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	c.log.Info("Email notification consumer started", "topic", c.topic)
}

func (c *Consumer) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	<-c.done
	return c.group.Close()
}

// emailGroupHandler implements sarama.ConsumerGroupHandler for one session.
type emailGroupHandler struct {
	emails EmailService
	log    *logger.Logger
}

func (h *emailGroupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *emailGroupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *emailGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		notification, err := FromJSON(message.Value)
		if err != nil {
			// A payload that cannot be decoded will never succeed; ack it
			// so the partition is not wedged.
			h.log.WithError(err).Error("Dropping undecodable email notification",
				"partition", message.Partition,
				"offset", message.Offset,
			)
			session.MarkMessage(message, "")
			continue
		}

		if err := h.emails.SendTicketConfirmation(session.Context(), notification); err != nil {
			h.log.WithError(err).Error("Failed to send confirmation email",
				"notification_id", notification.ID,
				"invoice", notification.Invoice,
			)
			// Leave the offset uncommitted; the next session retries.
			return err
		}

		session.MarkMessage(message, "")
		session.Commit()
	}
	return nil
}
