package widget

import (
	"sync"
	"time"
)

// TypingIdle is how long input must stay quiet before typing:false is sent.
const TypingIdle = time.Second

// Timer is the subset of *time.Timer the typing notifier needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Typing turns raw input activity into typing:true/false edges.
type Typing struct {
	mu        sync.Mutex
	typing    bool
	timer     Timer
	gen       uint64
	idle      time.Duration
	afterFunc AfterFunc
	emit      func(isTyping bool)
}

// NewTyping reports edges through emit. A nil afterFunc uses time.AfterFunc.
func NewTyping(idle time.Duration, afterFunc AfterFunc, emit func(bool)) *Typing {
	if afterFunc == nil {
		afterFunc = realAfterFunc
	}
	return &Typing{idle: idle, afterFunc: afterFunc, emit: emit}
}

// Input records activity: emits typing:true on the rising edge and re-arms
// the idle timer.
func (t *Typing) Input() {
	t.mu.Lock()
	rising := !t.typing
	t.typing = true
	if t.timer != nil {
		t.timer.Stop()
	}
	t.gen++
	gen := t.gen
	t.timer = t.afterFunc(t.idle, func() { t.expire(gen) })
	t.mu.Unlock()

	if rising {
		t.emit(true)
	}
}

// Stop cancels the idle timer and emits typing:false if currently typing.
func (t *Typing) Stop() {
	t.mu.Lock()
	wasTyping := t.typing
	t.typing = false
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.gen++
	t.mu.Unlock()

	if wasTyping {
		t.emit(false)
	}
}

// Active reports whether the user is currently typing.
func (t *Typing) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.typing
}

func (t *Typing) expire(gen uint64) {
	t.mu.Lock()
	// A newer Input or Stop superseded this timer.
	if gen != t.gen || !t.typing {
		t.mu.Unlock()
		return
	}
	t.typing = false
	t.timer = nil
	t.mu.Unlock()

	t.emit(false)
}
