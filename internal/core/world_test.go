package core

import "testing"

func TestWorldStateSetEmitsChange(t *testing.T) {
	bus := NewEventBus(10)
	events := recordEvents(bus)
	w := NewWorldState(bus)

	w.Set(KeySelectedFloor, 3)

	changes := events.named(EventStateChanged)
	if len(changes) != 1 {
		t.Fatalf("expected 1 change event, got %d", len(changes))
	}
	data := changes[0].Data.(StateChangeData)
	if data.Key != KeySelectedFloor || data.NewValue != 3 || data.OldValue != nil {
		t.Errorf("unexpected change payload: %+v", data)
	}
	if got := w.Int(KeySelectedFloor); got != 3 {
		t.Errorf("expected selection=3, got %d", got)
	}
}

func TestWorldStateUnchangedValueIsSilent(t *testing.T) {
	bus := NewEventBus(10)
	events := recordEvents(bus)
	w := NewWorldState(bus)

	w.Set("gauge", map[string]int{"a": 1})
	w.Set("gauge", map[string]int{"a": 1})
	w.Set("gauge", map[string]int{"a": 2})

	if n := len(events.named(EventStateChanged)); n != 2 {
		t.Errorf("expected 2 change events, got %d", n)
	}
}

func TestWorldStateUpdate(t *testing.T) {
	w := NewWorldState(NewEventBus(10))

	inc := func(old interface{}) interface{} {
		n, _ := old.(int)
		return n + 1
	}
	w.Update("counter", inc)
	w.Update("counter", inc)

	if got := w.Int("counter"); got != 2 {
		t.Errorf("expected counter=2, got %d", got)
	}
}

func TestWorldStateHandlerMayWrite(t *testing.T) {
	bus := NewEventBus(10)
	w := NewWorldState(bus)

	bus.On(EventStateChanged, func(e Event) {
		if e.Data.(StateChangeData).Key == "source" {
			w.Set("mirror", w.Int("source"))
		}
	})

	w.Set("source", 7)

	if got := w.Int("mirror"); got != 7 {
		t.Errorf("expected mirror=7, got %d", got)
	}
	keys := w.Keys()
	if len(keys) != 2 || keys[0] != "mirror" || keys[1] != "source" {
		t.Errorf("expected sorted keys [mirror source], got %v", keys)
	}
}
