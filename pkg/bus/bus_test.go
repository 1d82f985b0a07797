package bus

import "testing"

func TestPublishDeliversToSubscriber(t *testing.T) {
	b := New()
	sub := b.Subscribe()
	defer sub.Unsubscribe()

	b.Publish(Event{Kind: KindNewTx, Payload: "hello"})

	select {
	case ev := <-sub.Events():
		if ev.Kind != KindNewTx || ev.Payload != "hello" {
			t.Fatalf("unexpected event: %+v", ev)
		}
	default:
		t.Fatal("expected a buffered event, got none")
	}
}

func TestPublishDropsOldestOnFullMailbox(t *testing.T) {
	b := New()
	sub := b.Subscribe()
	defer sub.Unsubscribe()

	for i := 0; i < DefaultQueueSize+5; i++ {
		b.Publish(Event{Kind: KindNewTx, Payload: i})
	}

	if lag := sub.Lag(); lag != 5 {
		t.Fatalf("expected lag of 5, got %d", lag)
	}

	first := <-sub.Events()
	if first.Payload != 5 {
		t.Fatalf("expected oldest surviving event to be payload 5, got %v", first.Payload)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	sub := b.Subscribe()
	sub.Unsubscribe()

	b.Publish(Event{Kind: KindPeerConnected})

	select {
	case ev := <-sub.Events():
		t.Fatalf("unexpected delivery after unsubscribe: %+v", ev)
	default:
	}
}

func TestIndependentSubscribersDoNotInterfere(t *testing.T) {
	b := New()
	a := b.Subscribe()
	c := b.Subscribe()
	defer a.Unsubscribe()
	defer c.Unsubscribe()

	b.Publish(Event{Kind: KindBlockCommitted})

	if len(a.Events()) != 1 || len(c.Events()) != 1 {
		t.Fatal("expected both subscribers to receive the event independently")
	}
}
