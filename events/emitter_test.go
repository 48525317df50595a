package events

import "testing"

func TestSubscribeReceivesMatchingEventType(t *testing.T) {
	e := NewEmitter()
	got := make(chan Event, 1)
	e.Subscribe(EventTransfer, func(ev Event) { got <- ev })

	e.Emit(Event{Type: EventTransfer, TxID: "abc", BatchHeight: 3})

	select {
	case ev := <-got:
		if ev.TxID != "abc" || ev.BatchHeight != 3 {
			t.Fatalf("Event = %+v", ev)
		}
	default:
		t.Fatalf("handler was not invoked")
	}
}

func TestEmitIgnoresNonMatchingSubscribers(t *testing.T) {
	e := NewEmitter()
	called := false
	e.Subscribe(EventAskPlaced, func(Event) { called = true })

	e.Emit(Event{Type: EventBidPlaced})

	if called {
		t.Fatalf("handler for EventAskPlaced was called for an EventBidPlaced emission")
	}
}

func TestEmitRecoversFromPanickingHandler(t *testing.T) {
	e := NewEmitter()
	secondCalled := false
	e.Subscribe(EventTxFailed, func(Event) { panic("boom") })
	e.Subscribe(EventTxFailed, func(Event) { secondCalled = true })

	e.Emit(Event{Type: EventTxFailed})

	if !secondCalled {
		t.Fatalf("second handler did not run after first handler panicked")
	}
}
