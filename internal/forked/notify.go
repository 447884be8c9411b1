package forked

import "sync"

// Change is emitted after every committed update or merge step. MergingFork
// is empty for a plain update and names the other side for a merge.
type Change struct {
	Fork        Fork
	Version     Version
	MergingFork Fork
}

// IsMerge reports whether the change came from a merge.
func (c Change) IsMerge() bool { return c.MergingFork != "" }

type subscription struct {
	id      uint64
	handler func(Change)
}

// broadcaster fans changes out to subscribers in subscription order.
// It has its own lock so a handler may cancel itself or others.
type broadcaster struct {
	mu     sync.Mutex
	nextID uint64
	subs   []subscription
}

func (b *broadcaster) subscribe(handler func(Change)) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, handler: handler})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *broadcaster) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

func (b *broadcaster) active(id uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.subs {
		if s.id == id {
			return true
		}
	}
	return false
}

func (b *broadcaster) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *broadcaster) publish(c Change) {
	b.mu.Lock()
	subs := append([]subscription(nil), b.subs...)
	b.mu.Unlock()

	for _, s := range subs {
		// skip handlers cancelled by an earlier handler in this round
		if !b.active(s.id) {
			continue
		}
		s.handler(c)
	}
}
