package timeline

// Producer hands out pending events one at a time. Next reports false when
// nothing is pending; it never blocks.
type Producer[E any] interface {
	Next() (E, bool)
}

// ProducerFunc adapts a function to Producer.
type ProducerFunc[E any] func() (E, bool)

// Next calls f.
func (f ProducerFunc[E]) Next() (E, bool) { return f() }

// take pulls up to n events, stopping at the first absent one.
func take[E any](p Producer[E], n int) []E {
	events := make([]E, 0, n)
	for len(events) < n {
		e, ok := p.Next()
		if !ok {
			break
		}
		events = append(events, e)
	}
	return events
}

// drain pulls events until none is pending.
func drain[E any](p Producer[E]) []E {
	var events []E
	for {
		e, ok := p.Next()
		if !ok {
			return events
		}
		events = append(events, e)
	}
}

func boxed[E any](events []E) []any {
	out := make([]any, len(events))
	for i, e := range events {
		out[i] = e
	}
	return out
}
