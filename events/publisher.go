package events

import "context"

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error {
	return nil
}

var _ Publisher = (*NoopPublisher)(nil)
