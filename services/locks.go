package services

import "sync"

const lockStripes = 64

// sessionLocks serializes all mutation of a session document. The whole
// competitor list is read-modify-written on every answer, so two concurrent
// writers to the same session would otherwise silently drop an update.
// Striping keeps the map unbounded-growth-free; unrelated sessions sharing a
// stripe only cost a little contention.
type sessionLocks struct {
	stripes [lockStripes]sync.Mutex
}

func (l *sessionLocks) lock(sessionID uint) func() {
	mu := &l.stripes[sessionID%lockStripes]
	mu.Lock()
	return mu.Unlock
}
