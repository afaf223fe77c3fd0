package fake

import (
	"context"
	"sync"

	"github.com/tapango/cargotrack/internal/integrations/notifier"
)

// FakeClient - заглушка шлюза для локального запуска и тестов.
type FakeClient struct {
	mu   sync.Mutex
	sent []notifier.Message

	Err error
}

func New() *FakeClient { return &FakeClient{} }

func (f *FakeClient) Send(ctx context.Context, msg notifier.Message) error {
	if f.Err != nil {
		return f.Err
	}
	f.mu.Lock()
	f.sent = append(f.sent, msg)
	f.mu.Unlock()
	return nil
}

func (f *FakeClient) Sent() []notifier.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]notifier.Message, len(f.sent))
	copy(out, f.sent)
	return out
}
