package live

import (
	"sync"

	"github.com/labstack/gommon/log"
)

// subscriber buffer size. Patches received faster than a client drains
// them are dropped with a diagnostic; a reconnect restores the full view
// since the page is re-rendered from the live document.
const subscriberBuffer = 256

var logger = log.New("live")

// Hub fans a stream of patches out to every connected client. Publishing
// never blocks the binding side.
type Hub struct {
	mu   sync.Mutex
	subs map[chan []Patch]struct{}
	done <-chan struct{}
}

// NewHub returns a hub that stops accepting work when done closes.
func NewHub(done <-chan struct{}) *Hub {
	return &Hub{
		subs: make(map[chan []Patch]struct{}),
		done: done,
	}
}

// Publish delivers the patches to every subscriber.
func (h *Hub) Publish(patches ...Patch) {
	if len(patches) == 0 {
		return
	}
	select {
	case <-h.done:
		return
	default:
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- patches:
		default:
			logger.Warnf("dropping %d patches for a slow client", len(patches))
		}
	}
}

// Subscribe registers a new client stream. cancel releases the
// subscription; the channel is closed by the hub afterwards.
func (h *Hub) Subscribe() (updates <-chan []Patch, cancel func()) {
	ch := make(chan []Patch, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}
