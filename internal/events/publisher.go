package events

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const subjectMessageCreated = "message.created"

type Publisher struct {
	nc  *nats.Conn
	log *zap.SugaredLogger
}

func NewPublisher(natsURL string, log *zap.SugaredLogger) (*Publisher, error) {
	nc, err := nats.Connect(natsURL)
	if err != nil {
		return nil, err
	}
	return &Publisher{nc: nc, log: log}, nil
}

func (p *Publisher) PublishMessageCreated(conversationKey string, message any) {
	ev := struct {
		ConversationKey string `json:"conversation_key"`
		Message         any    `json:"message"`
	}{ConversationKey: conversationKey, Message: message}
	b, _ := json.Marshal(ev)
	if err := p.nc.Publish(subjectMessageCreated, b); err != nil {
		p.log.Warnw("publish message.created", "err", err)
	}
}

func (p *Publisher) Close() {
	p.nc.Close()
}
