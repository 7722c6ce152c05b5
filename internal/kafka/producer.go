package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

type syncEvent struct {
	ConversationKey string    `json:"conversation_key"`
	RequestedAt     time.Time `json:"requested_at"`
}

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	w := kafka.NewWriter(kafka.WriterConfig{Brokers: brokers, Topic: topic, Balancer: &kafka.LeastBytes{}})
	return &Producer{writer: w}
}

// PublishSyncRequest tells peer instances that a conversation needs a
// resync. The conversation key doubles as the partition key so requests for
// one conversation stay ordered.
func (p *Producer) PublishSyncRequest(ctx context.Context, conversationKey string) error {
	b, _ := json.Marshal(syncEvent{ConversationKey: conversationKey, RequestedAt: time.Now().UTC()})
	msg := kafka.Message{Key: []byte(conversationKey), Value: b, Time: time.Now()}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *Producer) Close() error { return p.writer.Close() }
