package notifier

import "context"

type Message struct {
	To   string
	Text string
}

type Client interface {
	Send(ctx context.Context, msg Message) error
}
