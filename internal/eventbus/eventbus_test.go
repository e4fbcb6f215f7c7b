package eventbus

import (
	"sync"
	"testing"
	"time"
)

func TestBus_PublishFanOut(t *testing.T) {
	bus := New()
	a := bus.Subscribe()
	b := bus.Subscribe()
	defer a.Close()
	defer b.Close()

	if n := bus.Publish(LightChanged(true)); n != 2 {
		t.Fatalf("Publish() delivered to %d, want 2", n)
	}

	for name, sub := range map[string]*Subscription{"a": a, "b": b} {
		select {
		case ev := <-sub.C():
			if ev.Kind != KindLightChanged || !ev.On {
				t.Errorf("%s received %+v, want light on", name, ev)
			}
			if ev.At.IsZero() {
				t.Errorf("%s received event without timestamp", name)
			}
		case <-time.After(time.Second):
			t.Fatalf("%s did not receive event", name)
		}
	}
}

func TestBus_NoReplayForLateSubscriber(t *testing.T) {
	bus := New()
	bus.Publish(LightChanged(true))

	late := bus.Subscribe()
	defer late.Close()

	select {
	case ev := <-late.C():
		t.Fatalf("late subscriber received %+v", ev)
	default:
	}
}

func TestBus_FullSubscriberDropsWithoutBlocking(t *testing.T) {
	bus := New()
	slow := bus.SubscribeBuffer(1)
	defer slow.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			bus.Publish(LightChanged(i%2 == 0))
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}

	if got := len(slow.C()); got != 1 {
		t.Errorf("buffered events = %d, want 1", got)
	}
}

func TestSubscription_Close(t *testing.T) {
	bus := New()
	sub := bus.Subscribe()
	if bus.SubscriberCount() != 1 {
		t.Fatalf("SubscriberCount() = %d, want 1", bus.SubscriberCount())
	}

	sub.Close()
	sub.Close()

	if bus.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount() after Close = %d, want 0", bus.SubscriberCount())
	}
	if _, ok := <-sub.C(); ok {
		t.Error("channel still open after Close")
	}
	if n := bus.Publish(LightChanged(false)); n != 0 {
		t.Errorf("Publish() after Close delivered to %d, want 0", n)
	}
}

func TestBus_Close(t *testing.T) {
	bus := New()
	sub := bus.Subscribe()
	bus.Close()

	if _, ok := <-sub.C(); ok {
		t.Error("subscription open after bus Close")
	}
	sub.Close()

	after := bus.Subscribe()
	if _, ok := <-after.C(); ok {
		t.Error("subscription on closed bus should be closed")
	}
}

func TestBus_ConcurrentPublishAndSubscribe(t *testing.T) {
	bus := New()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				bus.Publish(LightChanged(j%2 == 0))
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				s := bus.Subscribe()
				s.Close()
			}
		}()
	}
	wg.Wait()

	if n := bus.SubscriberCount(); n != 0 {
		t.Errorf("SubscriberCount() = %d, want 0", n)
	}
}
