package usecase

import "sync"

// Feed holds the latest state value and pushes every new value to its
// subscribers. A slow subscriber only ever sees the newest value: older ones
// waiting in its buffer are replaced.
type Feed[T any] struct {
	mu      sync.Mutex
	current T
	subs    map[chan T]struct{}
}

func NewFeed[T any](initial T) *Feed[T] {
	return &Feed[T]{
		current: initial,
		subs:    make(map[chan T]struct{}),
	}
}

func (that *Feed[T]) Current() T {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.current
}

func (that *Feed[T]) Publish(value T) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.current = value

	for ch := range that.subs {
		replaceLatest(ch, value)
	}
}

// Subscribe returns a channel primed with the current value and a function
// that unsubscribes and closes the channel.
func (that *Feed[T]) Subscribe() (<-chan T, func()) {
	ch := make(chan T, 1)

	that.mu.Lock()
	that.subs[ch] = struct{}{}
	ch <- that.current
	that.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			that.mu.Lock()
			delete(that.subs, ch)
			close(ch)
			that.mu.Unlock()
		})
	}

	return ch, unsubscribe
}

func replaceLatest[T any](ch chan T, value T) {
	select {
	case <-ch:
	default:
	}

	select {
	case ch <- value:
	default:
	}
}
