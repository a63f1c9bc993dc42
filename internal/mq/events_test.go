package mq

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/assignment-tracker/apiserver/config"
	"github.com/assignment-tracker/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	published []Message
	channels  []string
	closed    bool
}

func (f *fakeBackend) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	f.channels = append(f.channels, channel)
	f.published = append(f.published, Message{ID: "m1", Data: data, Attributes: attrs})
	return "m1", nil
}

func (f *fakeBackend) Subscribe(ctx context.Context, channel string, handler Handler) error {
	for _, msg := range f.published {
		if err := handler(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeBackend) Close() error {
	f.closed = true
	return nil
}

func TestTaskEventPublisher_RoundTrip(t *testing.T) {
	backend := &fakeBackend{}
	pub := NewTaskEventPublisher(New(backend), "task-events")
	completed := true
	at := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	err := pub.PublishTaskEvent(context.Background(), types.TaskEvent{
		Type:      types.EventTaskToggled,
		Actor:     "laura",
		At:        at,
		TaskID:    "abc",
		Completed: &completed,
	})
	require.NoError(t, err)
	require.Len(t, backend.published, 1)
	assert.Equal(t, []string{"task-events"}, backend.channels)
	assert.Equal(t, types.EventTaskToggled, backend.published[0].Attributes[attrEventType])

	var got []types.TaskEvent
	err = pub.SubscribeTaskEvents(context.Background(), func(ctx context.Context, ev types.TaskEvent) error {
		got = append(got, ev)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "abc", got[0].TaskID)
	assert.True(t, at.Equal(got[0].At))
	require.NotNil(t, got[0].Completed)
	assert.True(t, *got[0].Completed)
}

func TestTaskEventPublisher_RequiresChannel(t *testing.T) {
	pub := NewTaskEventPublisher(New(&fakeBackend{}), " ")
	err := pub.PublishTaskEvent(context.Background(), types.TaskEvent{Type: types.EventTaskCreated})
	assert.Error(t, err)
}

func TestSubscribeTaskEvents_DropsUndecodable(t *testing.T) {
	backend := &fakeBackend{published: []Message{{Data: []byte("not json")}}}
	pub := NewTaskEventPublisher(New(backend), "task-events")

	called := false
	err := pub.SubscribeTaskEvents(context.Background(), func(ctx context.Context, ev types.TaskEvent) error {
		called = true
		return errors.New("unexpected")
	})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestDecodeTaskEvent_TypeFromAttributes(t *testing.T) {
	ev, err := DecodeTaskEvent(Message{
		Data:       []byte(`{"actor":"admin","count":3}`),
		Attributes: map[string]string{attrEventType: types.EventTasksSeeded},
	})
	require.NoError(t, err)
	assert.Equal(t, types.EventTasksSeeded, ev.Type)
	assert.EqualValues(t, 3, ev.Count)

	_, err = DecodeTaskEvent(Message{Data: []byte(`{}`)})
	assert.Error(t, err)
}

func TestOpen_NoBackend(t *testing.T) {
	m, err := Open(context.Background(), configWithBackend(""))
	require.NoError(t, err)
	assert.Nil(t, m)

	_, err = Open(context.Background(), configWithBackend("kafka"))
	assert.Error(t, err)
}

func configWithBackend(backend string) config.Config {
	var cfg config.Config
	cfg.MQ.Backend = backend
	return cfg
}
