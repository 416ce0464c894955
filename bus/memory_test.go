package bus

import (
	"sync"
	"testing"
	"time"
)

func TestMemoryBus_PubSub(t *testing.T) {
	bus := NewMemoryBus(DefaultConfig())
	defer bus.Close()

	sub, err := bus.Subscribe("test.subject")
	if err != nil {
		t.Fatalf("Subscribe error: %v", err)
	}
	defer sub.Unsubscribe()

	if err := bus.Publish("test.subject", []byte("hello")); err != nil {
		t.Fatalf("Publish error: %v", err)
	}

	select {
	case msg := <-sub.Messages():
		if string(msg.Data) != "hello" {
			t.Errorf("data = %q, want %q", msg.Data, "hello")
		}
		if msg.Subject != "test.subject" {
			t.Errorf("subject = %q, want %q", msg.Subject, "test.subject")
		}
	case <-time.After(time.Second):
		t.Error("timeout waiting for message")
	}
}

func TestMemoryBus_FanOut(t *testing.T) {
	bus := NewMemoryBus(DefaultConfig())
	defer bus.Close()

	sub1, _ := bus.Subscribe("fanout")
	sub2, _ := bus.Subscribe("fanout")
	other, _ := bus.Subscribe("other")

	bus.Publish("fanout", []byte("x"))

	for i, sub := range []Subscription{sub1, sub2} {
		select {
		case <-sub.Messages():
		case <-time.After(time.Second):
			t.Errorf("subscriber %d did not receive message", i)
		}
	}
	select {
	case msg := <-other.Messages():
		t.Errorf("unrelated subscriber received %q", msg.Data)
	default:
	}
}

func TestMemoryBus_DropsWhenFull(t *testing.T) {
	bus := NewMemoryBus(Config{BufferSize: 2})
	defer bus.Close()

	sub, _ := bus.Subscribe("slow")
	for i := 0; i < 5; i++ {
		if err := bus.Publish("slow", []byte{byte(i)}); err != nil {
			t.Fatalf("Publish should not block or fail: %v", err)
		}
	}
	if got := len(sub.Messages()); got != 2 {
		t.Errorf("buffered = %d, want 2", got)
	}
}

func TestMemoryBus_Unsubscribe(t *testing.T) {
	bus := NewMemoryBus(DefaultConfig())
	defer bus.Close()

	sub, _ := bus.Subscribe("unsub")
	if bus.SubscriberCount("unsub") != 1 {
		t.Fatalf("SubscriberCount = %d", bus.SubscriberCount("unsub"))
	}
	if err := sub.Unsubscribe(); err != nil {
		t.Fatalf("Unsubscribe error: %v", err)
	}
	if err := sub.Unsubscribe(); err != nil {
		t.Errorf("second Unsubscribe should be a no-op: %v", err)
	}
	if bus.SubscriberCount("unsub") != 0 {
		t.Errorf("subscription should be removed")
	}
	if _, ok := <-sub.Messages(); ok {
		t.Error("channel should be closed after unsubscribe")
	}

	if err := bus.Publish("unsub", []byte("late")); err != nil {
		t.Errorf("Publish with no subscribers: %v", err)
	}
}

func TestMemoryBus_Close(t *testing.T) {
	bus := NewMemoryBus(DefaultConfig())
	sub, _ := bus.Subscribe("closing")

	if err := bus.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if _, ok := <-sub.Messages(); ok {
		t.Error("subscription channel should be closed")
	}
	if err := sub.Unsubscribe(); err != nil {
		t.Errorf("Unsubscribe after Close: %v", err)
	}
	if err := bus.Publish("closing", nil); err != ErrClosed {
		t.Errorf("Publish after Close = %v, want ErrClosed", err)
	}
	if _, err := bus.Subscribe("closing"); err != ErrClosed {
		t.Errorf("Subscribe after Close = %v, want ErrClosed", err)
	}
	if err := bus.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestMemoryBus_InvalidSubject(t *testing.T) {
	bus := NewMemoryBus(DefaultConfig())
	defer bus.Close()

	for _, subject := range []string{"", "has space"} {
		if err := bus.Publish(subject, nil); err != ErrInvalidSubject {
			t.Errorf("Publish(%q) = %v", subject, err)
		}
		if _, err := bus.Subscribe(subject); err != ErrInvalidSubject {
			t.Errorf("Subscribe(%q) = %v", subject, err)
		}
	}
}

func TestMemoryBus_ConcurrentUnsubscribeAndPublish(t *testing.T) {
	bus := NewMemoryBus(Config{BufferSize: 1})
	defer bus.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		sub, _ := bus.Subscribe("race")
		wg.Add(2)
		go func() {
			defer wg.Done()
			sub.Unsubscribe()
		}()
		go func() {
			defer wg.Done()
			bus.Publish("race", []byte("x"))
		}()
	}
	wg.Wait()
}
