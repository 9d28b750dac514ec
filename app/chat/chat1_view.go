package chat

import (
	"fmt"
	"sync"

	"chatey/components/message"
	"chatey/utils"
)

// views counts the clients looking at each conversation. Every viewer
// coming in makes sure the live query runs, the last one out stops it.
type views struct {
	mu   sync.Mutex
	open map[string]int
	sync *message.MessageSync
}

func newViews(sync *message.MessageSync) *views {
	return &views{open: make(map[string]int), sync: sync}
}

func (v *views) acquire(conversationID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.sync.LoadMessages(conversationID); err != nil {
		return err
	}
	v.open[conversationID]++
	utils.Log().V(2).Info(fmt.Sprintf("view %s opened, %d viewers", conversationID, v.open[conversationID]))
	return nil
}

func (v *views) release(conversationID string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	n := v.open[conversationID]
	if n == 0 {
		return
	}

	n--
	if n == 0 {
		delete(v.open, conversationID)
		v.sync.Cleanup(conversationID)
		utils.Log().V(2).Info(fmt.Sprintf("view %s closed", conversationID))
		return
	}
	v.open[conversationID] = n
}

func (v *views) count(conversationID string) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.open[conversationID]
}

// reset forgets every view without touching subscriptions; used after
// logout already tore them down.
func (v *views) reset() {
	v.mu.Lock()
	v.open = make(map[string]int)
	v.mu.Unlock()
}
