package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"notificationRelay/internal/modules/notifications/domain"
)

// register returns the channel of userID, creating it when absent.
func (r *SubscriptionRegistry) register(userID string) *Channel {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registerLocked(userID)
}

func (r *SubscriptionRegistry) lookup(userID string) (*Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.channels[userID]
	return ch, ok
}

func view(id string) domain.NotificationView {
	return domain.NotificationView{ID: id, Category: domain.CategoryOffer, Message: "m-" + id}
}

func receiveWithin(t *testing.T, sub *Subscription, d time.Duration) domain.NotificationView {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	v, err := sub.Receive(ctx)
	if err != nil {
		t.Fatalf("receive failed: %v", err)
	}
	return v
}

func subscribe(t *testing.T, r *SubscriptionRegistry, userID string) *Subscription {
	t.Helper()
	stream, err := r.Subscribe(userID)
	if err != nil {
		t.Fatalf("subscribe %s: %v", userID, err)
	}
	return stream.(*Subscription)
}

func TestPublishWithoutChannelIsNoop(t *testing.T) {
	t.Parallel()

	r := NewSubscriptionRegistry()
	if r.Publish("nobody", view("1")) {
		t.Fatal("expected publish without channel to report false")
	}
	if r.Len() != 0 {
		t.Fatalf("publish must not register channels, got %d", r.Len())
	}

	sub := subscribe(t, r, "nobody")
	items, err := sub.Drain()
	if err != nil || len(items) != 0 {
		t.Fatalf("dropped item resurfaced later: %v (%v)", items, err)
	}
}

func TestRegisterReusesChannel(t *testing.T) {
	t.Parallel()

	r := NewSubscriptionRegistry()
	first := r.register("U1")
	second := r.register("U1")
	if first != second {
		t.Fatal("expected the same channel on re-register")
	}

	r.Unregister("U1")
	if first.State() != ChannelClosed {
		t.Fatalf("expected closed channel, got %s", first.State())
	}
	third := r.register("U1")
	if third == first {
		t.Fatal("expected a fresh channel after unregister")
	}
	if third.State() != ChannelOpen {
		t.Fatalf("expected open channel, got %s", third.State())
	}
}

func TestUnregisterUnknownIsNoop(t *testing.T) {
	t.Parallel()

	r := NewSubscriptionRegistry()
	r.Unregister("ghost")
	if r.Len() != 0 {
		t.Fatalf("unexpected channels: %d", r.Len())
	}
}

func TestUnregisterCompletesReaders(t *testing.T) {
	t.Parallel()

	r := NewSubscriptionRegistry()
	sub := subscribe(t, r, "U1")
	r.Publish("U1", view("last"))
	r.Unregister("U1")

	if got := receiveWithin(t, sub, time.Second); got.ID != "last" {
		t.Fatalf("expected queued item before completion, got %s", got.ID)
	}
	if _, err := sub.Receive(context.Background()); !errors.Is(err, domain.ErrChannelClosed) {
		t.Fatalf("expected ErrChannelClosed, got %v", err)
	}
	if r.Publish("U1", view("after")) {
		t.Fatal("publish after unregister must be dropped")
	}
	if _, err := sub.Channel().Subscribe(); !errors.Is(err, domain.ErrChannelClosed) {
		t.Fatalf("closed channel must not accept readers, got %v", err)
	}
}

func TestPublishPreservesOrder(t *testing.T) {
	t.Parallel()

	r := NewSubscriptionRegistry()
	sub := subscribe(t, r, "U1")
	r.Publish("U1", view("a"))
	r.Publish("U1", view("b"))

	if got := receiveWithin(t, sub, time.Second); got.ID != "a" {
		t.Fatalf("expected a first, got %s", got.ID)
	}
	if got := receiveWithin(t, sub, time.Second); got.ID != "b" {
		t.Fatalf("expected b second, got %s", got.ID)
	}
}

func TestPublishBeforeFirstReaderIsBuffered(t *testing.T) {
	t.Parallel()

	r := NewSubscriptionRegistry()
	r.register("U1")
	for i := 0; i < 3; i++ {
		if !r.Publish("U1", view(fmt.Sprint(i))) {
			t.Fatalf("publish %d rejected", i)
		}
	}

	sub := subscribe(t, r, "U1")
	items, err := sub.Drain()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 3 || items[0].ID != "0" || items[2].ID != "2" {
		t.Fatalf("unexpected buffered items: %#v", items)
	}

	late := subscribe(t, r, "U1")
	if items, _ := late.Drain(); len(items) != 0 {
		t.Fatalf("buffer must only go to the first reader, got %#v", items)
	}
}

func TestMulticastToEveryReader(t *testing.T) {
	t.Parallel()

	r := NewSubscriptionRegistry()
	a := subscribe(t, r, "U1")
	b := subscribe(t, r, "U1")
	if a.Channel() != b.Channel() {
		t.Fatal("expected both readers on the same channel")
	}

	r.Publish("U1", view("x"))
	if got := receiveWithin(t, a, time.Second); got.ID != "x" {
		t.Fatalf("reader a got %s", got.ID)
	}
	if got := receiveWithin(t, b, time.Second); got.ID != "x" {
		t.Fatalf("reader b got %s", got.ID)
	}
}

func TestLeaveUnregistersAfterLastReader(t *testing.T) {
	t.Parallel()

	r := NewSubscriptionRegistry()
	a := subscribe(t, r, "U1")
	b := subscribe(t, r, "U1")
	ch := a.Channel()

	r.Leave(a)
	if _, ok := r.lookup("U1"); !ok {
		t.Fatal("channel must stay registered while a reader remains")
	}
	if _, err := a.Receive(context.Background()); !errors.Is(err, domain.ErrChannelClosed) {
		t.Fatalf("left reader must complete, got %v", err)
	}
	r.Publish("U1", view("still-live"))
	if got := receiveWithin(t, b, time.Second); got.ID != "still-live" {
		t.Fatalf("remaining reader got %s", got.ID)
	}

	r.Leave(b)
	r.Leave(b)
	if _, ok := r.lookup("U1"); ok {
		t.Fatal("channel must be unregistered after the last reader left")
	}
	if ch.State() != ChannelClosed {
		t.Fatalf("expected closed channel, got %s", ch.State())
	}
}

func TestStaleLeaveDoesNotCloseNewChannel(t *testing.T) {
	t.Parallel()

	r := NewSubscriptionRegistry()
	old := subscribe(t, r, "U1")
	r.Unregister("U1")
	fresh := subscribe(t, r, "U1")

	r.Leave(old)
	if ch, ok := r.lookup("U1"); !ok || ch != fresh.Channel() {
		t.Fatal("stale leave closed the fresh channel")
	}
}

func TestReceiveHonoursContext(t *testing.T) {
	t.Parallel()

	r := NewSubscriptionRegistry()
	sub := subscribe(t, r, "U1")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := sub.Receive(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}
}

func TestSubscribeRejectsBlankUser(t *testing.T) {
	t.Parallel()

	if _, err := NewSubscriptionRegistry().Subscribe("  "); !errors.Is(err, domain.ErrMissingReceiver) {
		t.Fatalf("expected ErrMissingReceiver, got %v", err)
	}
}

func TestConcurrentPublishersKeepPerProducerOrder(t *testing.T) {
	t.Parallel()

	const producers, perProducer = 8, 200
	r := NewSubscriptionRegistry()
	sub := subscribe(t, r, "U1")

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				r.Publish("U1", domain.NotificationView{ID: fmt.Sprintf("%d-%d", p, i), Message: fmt.Sprint(p)})
			}
		}(p)
	}
	wg.Wait()

	last := make(map[string]int)
	items, err := sub.Drain()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != producers*perProducer {
		t.Fatalf("expected %d items, got %d", producers*perProducer, len(items))
	}
	for _, item := range items {
		var p, i int
		if _, err := fmt.Sscanf(item.ID, "%d-%d", &p, &i); err != nil {
			t.Fatalf("bad id %s", item.ID)
		}
		key := fmt.Sprint(p)
		if prev, ok := last[key]; ok && i != prev+1 {
			t.Fatalf("producer %d out of order: %d after %d", p, i, prev)
		}
		last[key] = i
	}
}

func TestConcurrentRegisterUnregisterPublish(t *testing.T) {
	t.Parallel()

	r := NewSubscriptionRegistry()
	var wg sync.WaitGroup
	for w := 0; w < 16; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			user := fmt.Sprintf("U%d", w%4)
			for i := 0; i < 200; i++ {
				switch i % 4 {
				case 0:
					r.register(user)
				case 1:
					r.Publish(user, view("x"))
				case 2:
					if stream, err := r.Subscribe(user); err == nil {
						r.Leave(stream)
					}
				default:
					r.Unregister(user)
				}
			}
		}(w)
	}
	wg.Wait()

	for w := 0; w < 4; w++ {
		if ch, ok := r.lookup(fmt.Sprintf("U%d", w)); ok && ch.State() != ChannelOpen {
			t.Fatalf("registered channel for U%d is closed", w)
		}
	}
}

func TestCloseAllCompletesEveryReader(t *testing.T) {
	t.Parallel()

	r := NewSubscriptionRegistry()
	a := subscribe(t, r, "U1")
	b := subscribe(t, r, "U1")
	c := subscribe(t, r, "U2")

	if closed := r.CloseAll(); closed != 2 {
		t.Fatalf("expected two channels closed, got %d", closed)
	}
	if r.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", r.Len())
	}
	for _, sub := range []*Subscription{a, b, c} {
		if _, err := sub.Receive(context.Background()); !errors.Is(err, domain.ErrChannelClosed) {
			t.Fatalf("reader of %s must complete, got %v", sub.UserID(), err)
		}
	}
	if r.Publish("U1", view("late")) {
		t.Fatal("publish after CloseAll must be dropped")
	}
	if closed := r.CloseAll(); closed != 0 {
		t.Fatalf("expected no channels left, got %d", closed)
	}
}
