package testutil

import (
	"context"
	"sync"

	"github.com/boxraffle/backend/pkg/pubsub"
)

// MockPublisher records every published pack in memory, safe for concurrent
// publishers. Set PublishFunc to override the behavior.
type MockPublisher struct {
	PublishFunc func(context.Context, string, *pubsub.Pack) error

	mutex     sync.Mutex
	Published []PublishedPack
}

type PublishedPack struct {
	Topic string
	Pack  *pubsub.Pack
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, pack *pubsub.Pack) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, topic, pack)
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.Published = append(m.Published, PublishedPack{Topic: topic, Pack: pack})
	return nil
}

func (m *MockPublisher) Stop(ctx context.Context) error {
	return nil
}
