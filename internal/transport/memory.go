package transport

import (
	"context"
	"sync"
)

// Memory is an in-process transport. Every topic keeps its full message
// log; consumer groups keep a fetch cursor and a committed cursor, so an
// unacked message can be handed out again with Redeliver.
type Memory struct {
	mu     sync.Mutex
	topics map[string]*memTopic
	closed bool
	done   chan struct{}
}

type memTopic struct {
	log    []Message
	groups map[string]*memGroup
	// notify is closed and replaced on every publish.
	notify chan struct{}
}

type memGroup struct {
	next      int
	committed int
}

// NewMemory creates an empty in-memory transport.
func NewMemory() *Memory {
	return &Memory{
		topics: make(map[string]*memTopic),
		done:   make(chan struct{}),
	}
}

func (m *Memory) topicLocked(name string) *memTopic {
	t, ok := m.topics[name]
	if !ok {
		t = &memTopic{groups: make(map[string]*memGroup), notify: make(chan struct{})}
		m.topics[name] = t
	}
	return t
}

// Ping implements Transport.
func (m *Memory) Ping(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	return nil
}

// Publish implements Transport.
func (m *Memory) Publish(_ context.Context, topic string, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	t := m.topicLocked(topic)
	msg.Value = append([]byte(nil), msg.Value...)
	t.log = append(t.log, msg)
	close(t.notify)
	t.notify = make(chan struct{})
	return nil
}

// Subscribe implements Transport. Subscribing again to an existing group
// resumes from that group's fetch cursor.
func (m *Memory) Subscribe(_ context.Context, topic string, opts SubscribeOptions) (Consumer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	t := m.topicLocked(topic)
	if _, ok := t.groups[opts.Group]; !ok {
		g := &memGroup{}
		if opts.Latest {
			g.next = len(t.log)
			g.committed = len(t.log)
		}
		t.groups[opts.Group] = g
	}
	return &memConsumer{bus: m, topic: topic, group: opts.Group}, nil
}

// Redeliver rewinds a consumer group to its last committed position, as
// if its consumer had crashed before acking.
func (m *Memory) Redeliver(topic, group string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.topics[topic]; ok {
		if g, ok := t.groups[group]; ok {
			g.next = g.committed
		}
	}
}

// Pending returns how many fetched or unfetched messages the group has
// not acked yet.
func (m *Memory) Pending(topic, group string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.topics[topic]
	if !ok {
		return 0
	}
	g, ok := t.groups[group]
	if !ok {
		return len(t.log)
	}
	return len(t.log) - g.committed
}

// Close implements Transport. Blocked fetches return ErrClosed.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.done)
	}
	return nil
}

type memConsumer struct {
	bus   *Memory
	topic string
	group string
}

func (c *memConsumer) Fetch(ctx context.Context) (Delivery, error) {
	for {
		c.bus.mu.Lock()
		if c.bus.closed {
			c.bus.mu.Unlock()
			return Delivery{}, ErrClosed
		}
		t := c.bus.topics[c.topic]
		g := t.groups[c.group]
		if g.next < len(t.log) {
			offset := g.next
			msg := t.log[offset]
			g.next++
			c.bus.mu.Unlock()
			return Delivery{
				Message: msg,
				Topic:   c.topic,
				ack:     func(context.Context) error { return c.commit(offset) },
			}, nil
		}
		notify := t.notify
		c.bus.mu.Unlock()

		select {
		case <-ctx.Done():
			return Delivery{}, ctx.Err()
		case <-c.bus.done:
			return Delivery{}, ErrClosed
		case <-notify:
		}
	}
}

func (c *memConsumer) commit(offset int) error {
	c.bus.mu.Lock()
	defer c.bus.mu.Unlock()
	if c.bus.closed {
		return ErrClosed
	}
	g := c.bus.topics[c.topic].groups[c.group]
	if offset+1 > g.committed {
		g.committed = offset + 1
	}
	return nil
}

func (c *memConsumer) Close() error { return nil }
