package mq

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/assignment-tracker/apiserver/types"
)

const attrEventType = "event_type"

// TaskEventPublisher publishes task lifecycle events as JSON on one channel.
type TaskEventPublisher struct {
	mq      *MQ
	channel string
}

func NewTaskEventPublisher(m *MQ, channel string) *TaskEventPublisher {
	return &TaskEventPublisher{mq: m, channel: channel}
}

// PublishTaskEvent encodes and sends event.
func (p *TaskEventPublisher) PublishTaskEvent(ctx context.Context, event types.TaskEvent) error {
	if strings.TrimSpace(p.channel) == "" {
		return errors.New("task events channel is required")
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = p.mq.Publish(ctx, p.channel, data, map[string]string{attrEventType: event.Type})
	return err
}

// SubscribeTaskEvents decodes every message on the channel and hands it to
// fn. Messages that fail to decode are acked and dropped.
func (p *TaskEventPublisher) SubscribeTaskEvents(ctx context.Context, fn func(context.Context, types.TaskEvent) error) error {
	return p.mq.Subscribe(ctx, p.channel, func(ctx context.Context, msg Message) error {
		event, err := DecodeTaskEvent(msg)
		if err != nil {
			return nil
		}
		return fn(ctx, event)
	})
}

// DecodeTaskEvent parses a message produced by PublishTaskEvent.
func DecodeTaskEvent(msg Message) (types.TaskEvent, error) {
	var event types.TaskEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		return types.TaskEvent{}, err
	}
	if event.Type == "" {
		event.Type = msg.Attributes[attrEventType]
	}
	if event.Type == "" {
		return types.TaskEvent{}, errors.New("event type missing")
	}
	return event, nil
}
