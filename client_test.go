package console

import (
	"context"
	"sync"
)

// fakeClient scripts the transport side for registry, pump, and session
// tests.
type fakeClient struct {
	mu sync.Mutex

	subscribeErr   error
	unsubscribeErr error
	publishErr     error

	subscribes   []string
	unsubscribes []string
	publishes    []publishCall
	lastHeaders  map[string]string

	// receive is called for each Receive; nil means block on ctx.
	receive func(ctx context.Context) (*Message, error)
}

type publishCall struct {
	destination string
	body        string
	headers     map[string]string
}

func (f *fakeClient) Connect(ctx context.Context) error { return nil }

func (f *fakeClient) Disconnect() error { return nil }

func (f *fakeClient) Subscribe(destination string, headers map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscribeErr != nil {
		return f.subscribeErr
	}
	f.subscribes = append(f.subscribes, destination)
	f.lastHeaders = headers
	return nil
}

func (f *fakeClient) Unsubscribe(destination string, headers map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unsubscribeErr != nil {
		return f.unsubscribeErr
	}
	f.unsubscribes = append(f.unsubscribes, destination)
	f.lastHeaders = headers
	return nil
}

func (f *fakeClient) Publish(ctx context.Context, destination, body string, headers map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.publishes = append(f.publishes, publishCall{destination: destination, body: body, headers: headers})
	return nil
}

func (f *fakeClient) Receive(ctx context.Context) (*Message, error) {
	if f.receive != nil {
		return f.receive(ctx)
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (f *fakeClient) Address() string { return "fake:61613" }

func (f *fakeClient) String() string { return "fake" }
