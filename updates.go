package gridview

import "sync"

// PageInfo describes the page carried by a Notification
type PageInfo struct {
	Number        int  `json:"number"`
	Size          int  `json:"size"`
	TotalElements int  `json:"totalElements"`
	First         bool `json:"first"`
	Last          bool `json:"last"`
}

// Notification pushes a fresh row collection to the grid bound to Path
type Notification struct {
	Path string   `json:"path"`
	Rows []Row    `json:"gridList"`
	Page PageInfo `json:"page"`
}

// UpdateSource delivers notifications. The returned cancel func must be
// safe to call more than once.
type UpdateSource interface {
	Subscribe(buffer int) (<-chan Notification, func())
}

// Broadcaster fans notifications out to every subscriber
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[uint64]chan Notification
	nextID uint64
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[uint64]chan Notification)}
}

func (b *Broadcaster) Subscribe(buffer int) (<-chan Notification, func()) {
	ch := make(chan Notification, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers n to every subscriber, blocking on full buffers.
func (b *Broadcaster) Publish(n Notification) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		ch <- n
	}
}
