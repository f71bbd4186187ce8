package observability

import "context"

// MultiObserver delivers each event to a fixed list of observers, in order,
// on the emitting goroutine.
type MultiObserver struct {
	observers []Observer
}

// NewMultiObserver builds a MultiObserver. Nil and NoOpObserver entries are
// dropped and nested MultiObservers are flattened.
func NewMultiObserver(observers ...Observer) *MultiObserver {
	m := &MultiObserver{}
	for _, obs := range observers {
		m.add(obs)
	}
	return m
}

func (m *MultiObserver) add(obs Observer) {
	switch o := obs.(type) {
	case nil, NoOpObserver, *NoOpObserver:
	case *MultiObserver:
		for _, inner := range o.observers {
			m.add(inner)
		}
	default:
		m.observers = append(m.observers, obs)
	}
}

// Combine returns the cheapest Observer delivering to all of observers:
// NoOpObserver when none remain, the observer itself when one does, and a
// MultiObserver otherwise.
func Combine(observers ...Observer) Observer {
	m := NewMultiObserver(observers...)
	switch len(m.observers) {
	case 0:
		return NoOpObserver{}
	case 1:
		return m.observers[0]
	default:
		return m
	}
}

func (m *MultiObserver) OnEvent(ctx context.Context, event Event) {
	for _, obs := range m.observers {
		obs.OnEvent(ctx, event)
	}
}

// Len reports how many observers receive events.
func (m *MultiObserver) Len() int {
	return len(m.observers)
}
