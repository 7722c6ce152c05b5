package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Consumer struct {
	reader *kafka.Reader
	log    *zap.SugaredLogger
}

func NewConsumer(brokers []string, topic, groupID string, log *zap.SugaredLogger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: groupID,
	})
	return &Consumer{reader: r, log: log}
}

// Run forwards sync requests to handle until ctx is done.
func (c *Consumer) Run(ctx context.Context, handle func(conversationKey string)) {
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Errorw("kafka read", "err", err)
			time.Sleep(1 * time.Second)
			continue
		}
		var ev syncEvent
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			c.log.Warnw("bad sync event", "err", err)
			continue
		}
		if ev.ConversationKey != "" {
			handle(ev.ConversationKey)
		}
	}
}

func (c *Consumer) Close() error { return c.reader.Close() }
