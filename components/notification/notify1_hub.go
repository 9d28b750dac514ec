package notification

import (
	"sync"
	"time"

	"chatey/metrics"
	"chatey/utils"

	"github.com/go-logr/logr"
)

var Logger logr.Logger = logr.Discard()

const DefaultRecent = 20

// Hub fans notices out to subscribers and keeps the last few for screens
// that attach late.
type Hub struct {
	mu     sync.Mutex
	seq    uint64
	subs   map[uint64]func(Notice)
	recent []Notice
	max    int
}

func NewHub(max int) *Hub {
	if max <= 0 {
		max = DefaultRecent
	}
	return &Hub{subs: make(map[uint64]func(Notice)), max: max}
}

func (h *Hub) Publish(kind Kind, text string) Notice {
	n := Notice{ID: utils.GetRandomUUID(), Kind: kind, Text: text, At: time.Now()}

	h.mu.Lock()
	h.recent = append(h.recent, n)
	if len(h.recent) > h.max {
		h.recent = h.recent[len(h.recent)-h.max:]
	}
	subs := make([]func(Notice), 0, len(h.subs))
	for _, fn := range h.subs {
		subs = append(subs, fn)
	}
	h.mu.Unlock()

	metrics.Notices.WithLabelValues(string(kind)).Inc()
	Logger.V(1).Info("notice", "kind", kind, "text", text)

	for _, fn := range subs {
		fn(n)
	}
	return n
}

// Subscribe registers fn for every later notice. The returned func removes it.
func (h *Hub) Subscribe(fn func(Notice)) func() {
	h.mu.Lock()
	h.seq++
	id := h.seq
	h.subs[id] = fn
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
}

func (h *Hub) Recent() []Notice {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Notice(nil), h.recent...)
}

func (h *Hub) Clear() {
	h.mu.Lock()
	h.recent = nil
	h.mu.Unlock()
}
