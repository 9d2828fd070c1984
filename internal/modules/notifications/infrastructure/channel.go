package infrastructure

import (
	"context"
	"sync"

	"notificationRelay/internal/modules/notifications/domain"
)

// ChannelState is the lifecycle state of a Channel. Closed is terminal.
type ChannelState int

const (
	ChannelOpen ChannelState = iota
	ChannelClosed
)

func (s ChannelState) String() string {
	if s == ChannelClosed {
		return "closed"
	}
	return "open"
}

// Channel is the live delivery queue of one user. Every attached reader gets
// its own unbounded queue, so a push never blocks the publisher. Items pushed
// before the first reader attaches are held and handed to that reader.
type Channel struct {
	userID   string
	mu       sync.Mutex
	state    ChannelState
	attached bool
	pending  []domain.NotificationView
	readers  map[*Subscription]struct{}
}

func newChannel(userID string) *Channel {
	return &Channel{
		userID:  userID,
		readers: make(map[*Subscription]struct{}),
	}
}

func (c *Channel) UserID() string { return c.userID }

func (c *Channel) State() ChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe attaches a new reader to the channel.
func (c *Channel) Subscribe() (*Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == ChannelClosed {
		return nil, domain.ErrChannelClosed
	}
	sub := &Subscription{channel: c, notify: make(chan struct{}, 1)}
	if !c.attached {
		sub.items = c.pending
		c.pending = nil
		c.attached = true
		if len(sub.items) > 0 {
			sub.signal()
		}
	}
	c.readers[sub] = struct{}{}
	return sub, nil
}

// push enqueues view for every reader. It reports false once the channel is closed.
func (c *Channel) push(view domain.NotificationView) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == ChannelClosed {
		return false
	}
	if !c.attached {
		c.pending = append(c.pending, view)
		return true
	}
	for sub := range c.readers {
		sub.enqueue(view)
	}
	return true
}

// detach removes sub and returns the readers left. ok is false when sub was
// not attached.
func (c *Channel) detach(sub *Subscription) (remaining int, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok = c.readers[sub]; ok {
		delete(c.readers, sub)
		sub.markClosed()
	}
	return len(c.readers), ok
}

// close moves the channel to Closed and completes every reader.
func (c *Channel) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == ChannelClosed {
		return
	}
	c.state = ChannelClosed
	c.pending = nil
	for sub := range c.readers {
		sub.markClosed()
	}
}

// Subscription is one reader of a Channel.
type Subscription struct {
	channel *Channel
	mu      sync.Mutex
	items   []domain.NotificationView
	closed  bool
	notify  chan struct{}
}

func (s *Subscription) UserID() string { return s.channel.userID }

// Channel returns the channel the reader is attached to.
func (s *Subscription) Channel() *Channel { return s.channel }

func (s *Subscription) enqueue(view domain.NotificationView) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.items = append(s.items, view)
	s.mu.Unlock()
	s.signal()
}

func (s *Subscription) markClosed() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.signal()
}

func (s *Subscription) signal() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Wait is signalled after new items are queued or the channel closes.
func (s *Subscription) Wait() <-chan struct{} { return s.notify }

// Drain returns every queued item in publish order. Items queued before the
// close are still returned; domain.ErrChannelClosed follows once empty.
func (s *Subscription) Drain() ([]domain.NotificationView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) > 0 {
		items := s.items
		s.items = nil
		return items, nil
	}
	if s.closed {
		return nil, domain.ErrChannelClosed
	}
	return nil, nil
}

// Receive blocks until the next item, the channel closing or ctx ending.
func (s *Subscription) Receive(ctx context.Context) (domain.NotificationView, error) {
	for {
		s.mu.Lock()
		if len(s.items) > 0 {
			view := s.items[0]
			s.items[0] = domain.NotificationView{}
			s.items = s.items[1:]
			s.mu.Unlock()
			return view, nil
		}
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return domain.NotificationView{}, domain.ErrChannelClosed
		}
		select {
		case <-s.notify:
		case <-ctx.Done():
			return domain.NotificationView{}, ctx.Err()
		}
	}
}
