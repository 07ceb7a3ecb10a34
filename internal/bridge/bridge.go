// Package bridge is the restricted channel between the widget and the page
// that embeds it. Both directions are gated by the allowed-origins list.
package bridge

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
)

// ErrOriginMismatch is returned by a Target when no parent matches the
// requested origin.
var ErrOriginMismatch = errors.New("target origin does not match parent")

// Target delivers envelopes to the hosting page.
type Target interface {
	// PostMessage delivers env only if the parent's origin equals targetOrigin.
	PostMessage(env Envelope, targetOrigin string) error
	// Framed reports whether the widget is embedded in a parent at all.
	Framed() bool
}

// Bridge fans envelopes out to every allowed origin and filters inbound
// commands.
type Bridge struct {
	target  Target
	origins []string

	mu     sync.RWMutex
	onOpen func()
}

// New creates a bridge posting through target for the given origins.
func New(target Target, origins []string) *Bridge {
	return &Bridge{target: target, origins: append([]string(nil), origins...)}
}

// OnOpen registers the callback run for an inbound open command.
func (b *Bridge) OnOpen(fn func()) {
	b.mu.Lock()
	b.onOpen = fn
	b.mu.Unlock()
}

// Allows reports whether origin is in the allow-list.
func (b *Bridge) Allows(origin string) bool {
	for _, allowed := range b.origins {
		if allowed == origin {
			return true
		}
	}
	return false
}

// Emit posts env once per allowed origin and returns how many posts were
// delivered. Mismatched origins fail silently. Nothing is posted when the
// widget is not framed.
func (b *Bridge) Emit(env Envelope) int {
	if b == nil || b.target == nil || !b.target.Framed() {
		return 0
	}

	delivered := 0
	for _, origin := range b.origins {
		if err := b.target.PostMessage(env, origin); err != nil {
			continue
		}
		delivered++
	}
	return delivered
}

// Handle processes one inbound message and reports whether it was acted on.
func (b *Bridge) Handle(origin string, raw []byte) bool {
	if !b.Allows(origin) {
		log.Printf("[bridge] ignored message from disallowed origin %q", origin)
		return false
	}

	var cmd Command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return false
	}
	if cmd.Action != ActionOpen {
		return false
	}

	b.mu.RLock()
	fn := b.onOpen
	b.mu.RUnlock()
	if fn != nil {
		fn()
	}
	return true
}
