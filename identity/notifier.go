package identity

import (
	"sort"
	"sync"
)

type notification struct {
	// target is the listener id for an initial-state delivery, 0 for all.
	target   uint64
	identity *Identity
}

// notifier delivers change notifications from one goroutine so listeners
// observe them one at a time and in emission order.
type notifier struct {
	mu        sync.Mutex
	listeners map[uint64]Listener
	nextID    uint64
	queue     []notification
	closed    bool

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

func newNotifier() *notifier {
	n := &notifier{
		listeners: make(map[uint64]Listener),
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	n.wg.Add(1)
	go n.run()
	return n
}

// subscribe registers fn and queues current for it alone.
func (n *notifier) subscribe(fn Listener, current *Identity) (uint64, bool) {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return 0, false
	}
	n.nextID++
	id := n.nextID
	n.listeners[id] = fn
	n.queue = append(n.queue, notification{target: id, identity: current.clone()})
	n.mu.Unlock()

	n.signal()
	return id, true
}

func (n *notifier) unsubscribe(id uint64) {
	n.mu.Lock()
	delete(n.listeners, id)
	n.mu.Unlock()
}

func (n *notifier) publish(current *Identity) {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.queue = append(n.queue, notification{identity: current.clone()})
	n.mu.Unlock()

	n.signal()
}

func (n *notifier) signal() {
	select {
	case n.wake <- struct{}{}:
	default:
	}
}

func (n *notifier) run() {
	defer n.wg.Done()

	for {
		select {
		case <-n.wake:
			n.deliverPending()
		case <-n.done:
			return
		}
	}
}

func (n *notifier) deliverPending() {
	for {
		n.mu.Lock()
		if len(n.queue) == 0 || n.closed {
			n.mu.Unlock()
			return
		}
		next := n.queue[0]
		n.queue = n.queue[1:]
		targets := n.targetsLocked(next.target)
		n.mu.Unlock()

		for _, id := range targets {
			// skip listeners removed while earlier ones ran
			n.mu.Lock()
			fn, ok := n.listeners[id]
			n.mu.Unlock()
			if ok {
				fn(next.identity.clone())
			}
		}
	}
}

func (n *notifier) targetsLocked(target uint64) []uint64 {
	if target != 0 {
		if _, ok := n.listeners[target]; ok {
			return []uint64{target}
		}
		return nil
	}
	ids := make([]uint64, 0, len(n.listeners))
	for id := range n.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// close stops delivery and waits for an in-progress callback to return.
// It must not be called from a listener.
func (n *notifier) close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	n.listeners = map[uint64]Listener{}
	n.queue = nil
	n.mu.Unlock()

	close(n.done)
	n.wg.Wait()
}
