// Package notify implements the one-shot popup notification slot. The
// newest message overwrites any unconsumed one; Take hands a message to the
// presentation layer exactly once.
package notify

import "sync"

type Relay struct {
	mu      sync.Mutex
	msg     string
	pending bool
}

func NewRelay() *Relay {
	return &Relay{}
}

// Post stores msg as the current notification, replacing any unconsumed one.
func (r *Relay) Post(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msg = msg
	r.pending = true
}

// Take atomically consumes the pending notification. The second of two
// consecutive calls reports false.
func (r *Relay) Take() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.pending {
		return "", false
	}
	r.pending = false
	msg := r.msg
	r.msg = ""
	return msg, true
}
