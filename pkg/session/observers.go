package session

import "sync"

type subscriber[T any] struct {
	id int
	fn func(T)
}

// observers is a list of callbacks called in subscription order, outside of any lock.
type observers[T any] struct {
	mx   sync.Mutex
	next int
	subs []subscriber[T]
}

func (o *observers[T]) add(fn func(T)) func() {
	o.mx.Lock()
	defer o.mx.Unlock()

	o.next++
	id := o.next
	o.subs = append(o.subs, subscriber[T]{id: id, fn: fn})

	return func() {
		o.mx.Lock()
		defer o.mx.Unlock()

		for i, s := range o.subs {
			if s.id == id {
				o.subs = append(o.subs[:i:i], o.subs[i+1:]...)
				return
			}
		}
	}
}

func (o *observers[T]) notify(v T) {
	o.mx.Lock()
	subs := make([]subscriber[T], len(o.subs))
	copy(subs, o.subs)
	o.mx.Unlock()

	for _, s := range subs {
		s.fn(v)
	}
}
