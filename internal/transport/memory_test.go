package transport

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fetch(t *testing.T, c Consumer) Delivery {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	d, err := c.Fetch(ctx)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	return d
}

func TestMemory_FIFOWithinTopic(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	c, _ := m.Subscribe(ctx, "t", SubscribeOptions{Group: "g"})

	for _, v := range []string{"a", "b", "c"} {
		if err := m.Publish(ctx, "t", Message{Value: []byte(v)}); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}
	for _, want := range []string{"a", "b", "c"} {
		d := fetch(t, c)
		if string(d.Value) != want {
			t.Errorf("got %s, want %s", d.Value, want)
		}
		_ = d.Ack(ctx)
	}
}

func TestMemory_GroupsFanOut(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	a, _ := m.Subscribe(ctx, "t", SubscribeOptions{Group: "a"})
	b, _ := m.Subscribe(ctx, "t", SubscribeOptions{Group: "b"})

	_ = m.Publish(ctx, "t", Message{Value: []byte("x")})

	if got := fetch(t, a); string(got.Value) != "x" {
		t.Errorf("group a got %s", got.Value)
	}
	if got := fetch(t, b); string(got.Value) != "x" {
		t.Errorf("group b got %s", got.Value)
	}
}

func TestMemory_LatestSkipsBacklog(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_ = m.Publish(ctx, "t", Message{Value: []byte("old")})

	c, _ := m.Subscribe(ctx, "t", SubscribeOptions{Group: "g", Latest: true})
	_ = m.Publish(ctx, "t", Message{Value: []byte("new")})

	if got := fetch(t, c); string(got.Value) != "new" {
		t.Errorf("got %s, want new", got.Value)
	}
}

func TestMemory_FetchBlocksUntilPublish(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	c, _ := m.Subscribe(ctx, "t", SubscribeOptions{Group: "g"})

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = m.Publish(ctx, "t", Message{Key: "k", Value: []byte("late")})
	}()

	d := fetch(t, c)
	if d.Key != "k" || string(d.Value) != "late" || d.Topic != "t" {
		t.Errorf("delivery = %+v", d)
	}
}

func TestMemory_RedeliverUnacked(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	c, _ := m.Subscribe(ctx, "t", SubscribeOptions{Group: "g"})
	_ = m.Publish(ctx, "t", Message{Value: []byte("1")})
	_ = m.Publish(ctx, "t", Message{Value: []byte("2")})

	first := fetch(t, c)
	_ = first.Ack(ctx)
	fetch(t, c) // "2" is never acked

	if got := m.Pending("t", "g"); got != 1 {
		t.Fatalf("Pending = %d, want 1", got)
	}
	m.Redeliver("t", "g")

	if got := fetch(t, c); string(got.Value) != "2" {
		t.Errorf("redelivered %s, want 2", got.Value)
	}
}

func TestMemory_CopiesPublishedValue(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	c, _ := m.Subscribe(ctx, "t", SubscribeOptions{Group: "g"})

	buf := []byte("abc")
	_ = m.Publish(ctx, "t", Message{Value: buf})
	buf[0] = 'z'

	if got := fetch(t, c); string(got.Value) != "abc" {
		t.Errorf("got %s, want abc", got.Value)
	}
}

func TestMemory_CloseUnblocksFetch(t *testing.T) {
	m := NewMemory()
	c, _ := m.Subscribe(context.Background(), "t", SubscribeOptions{Group: "g"})

	errc := make(chan error, 1)
	go func() {
		_, err := c.Fetch(context.Background())
		errc <- err
	}()
	time.Sleep(10 * time.Millisecond)
	_ = m.Close()

	select {
	case err := <-errc:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("error = %v, want ErrClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Fetch did not return after Close")
	}
	if err := m.Publish(context.Background(), "t", Message{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Publish after Close = %v, want ErrClosed", err)
	}
}

func TestMemory_FetchHonoursContext(t *testing.T) {
	m := NewMemory()
	c, _ := m.Subscribe(context.Background(), "t", SubscribeOptions{Group: "g"})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := c.Fetch(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want DeadlineExceeded", err)
	}
}

func TestOpen_Memory(t *testing.T) {
	tr, err := Open(context.Background(), Config{Kind: "memory"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer tr.Close()
	if _, ok := tr.(*Memory); !ok {
		t.Errorf("Open returned %T", tr)
	}
}

func TestOpen_UnknownKind(t *testing.T) {
	if _, err := Open(context.Background(), Config{Kind: "carrier-pigeon"}, nil); err == nil {
		t.Fatal("expected an error")
	}
}

func TestOpen_KafkaWithoutBrokersFails(t *testing.T) {
	if _, err := Open(context.Background(), Config{Kind: "kafka"}, nil); err == nil {
		t.Fatal("expected an error")
	}
}
