package observability

import "context"

// MultiObserver fans one event out to several observers in order.
type MultiObserver []Observer

// NewMultiObserver combines observers into one. Nil entries are
// dropped and nested MultiObservers are flattened, so composing a
// combined observer with extras never stacks fan-out layers.
func NewMultiObserver(observers ...Observer) MultiObserver {
	combined := make(MultiObserver, 0, len(observers))
	for _, obs := range observers {
		switch o := obs.(type) {
		case nil:
			continue
		case MultiObserver:
			combined = append(combined, o...)
		default:
			combined = append(combined, o)
		}
	}
	return combined
}

func (m MultiObserver) OnEvent(ctx context.Context, event Event) {
	for _, obs := range m {
		obs.OnEvent(ctx, event)
	}
}
