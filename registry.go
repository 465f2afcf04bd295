package console

import (
	"fmt"
	"strconv"
	"sync"
)

// SubscriptionRegistry owns the destination → subscription-id mapping for a
// session. Ids are allocated registry-wide, starting at 0, strictly
// increasing, and never reused, even after unsubscribe. The registry mutates
// only after the underlying transport call succeeds, so its state always
// matches whichever side effect actually completed.
//
// Commands run one at a time; the lock guards the map against the receive
// loop reading List concurrently and is never held across a network call.
type SubscriptionRegistry struct {
	client Client

	mu     sync.Mutex
	subs   map[string]int
	order  []string
	nextID int
}

func NewSubscriptionRegistry(client Client) *SubscriptionRegistry {
	return &SubscriptionRegistry{
		client: client,
		subs:   make(map[string]int),
	}
}

// Subscribe registers dest, issuing the transport subscribe with the
// allocated id merged into headers. The id is consumed only on success.
func (r *SubscriptionRegistry) Subscribe(dest Destination, headers map[string]string) (int, error) {
	key := dest.String()

	r.mu.Lock()
	if _, ok := r.subs[key]; ok {
		r.mu.Unlock()
		return 0, fmt.Errorf("%w: %s", ErrAlreadySubscribed, key)
	}
	id := r.nextID
	r.mu.Unlock()

	if err := r.client.Subscribe(key, withID(headers, id)); err != nil {
		return 0, &TransportError{Op: "subscribe", Destination: key, Err: err}
	}

	r.mu.Lock()
	r.subs[key] = id
	r.order = append(r.order, key)
	r.nextID = id + 1
	r.mu.Unlock()
	return id, nil
}

// Unsubscribe removes dest, issuing the transport unsubscribe with the
// stored id merged into headers.
func (r *SubscriptionRegistry) Unsubscribe(dest Destination, headers map[string]string) error {
	key := dest.String()

	r.mu.Lock()
	id, ok := r.subs[key]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotSubscribed, key)
	}

	if err := r.client.Unsubscribe(key, withID(headers, id)); err != nil {
		return &TransportError{Op: "unsubscribe", Destination: key, Err: err}
	}

	r.mu.Lock()
	delete(r.subs, key)
	for i, d := range r.order {
		if d == key {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.mu.Unlock()
	return nil
}

// List returns a snapshot of the subscribed destinations in insertion order.
func (r *SubscriptionRegistry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// withID copies headers and sets the subscription id, which always wins over
// a caller-supplied value.
func withID(headers map[string]string, id int) map[string]string {
	merged := make(map[string]string, len(headers)+1)
	for k, v := range headers {
		merged[k] = v
	}
	merged["id"] = strconv.Itoa(id)
	return merged
}
