package record

import "sync"

// Session identifies the account a store operation acts for. It is passed
// explicitly into every service call rather than read from ambient state.
type Session struct {
	UserID string
}

// SessionBroker holds the current session and notifies subscribers when it
// changes (sign-in, sign-out, account switch).
type SessionBroker struct {
	mu      sync.Mutex
	current Session
	subs    map[int]func(Session)
	nextID  int
}

// NewSessionBroker creates a broker seeded with an initial session
func NewSessionBroker(initial Session) *SessionBroker {
	return &SessionBroker{
		current: initial,
		subs:    make(map[int]func(Session)),
	}
}

// Current returns the active session
func (b *SessionBroker) Current() Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Set replaces the active session and notifies subscribers
func (b *SessionBroker) Set(s Session) {
	b.mu.Lock()
	b.current = s
	subs := make([]func(Session), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.Unlock()

	for _, fn := range subs {
		fn(s)
	}
}

// OnChange registers a subscriber and returns a cancel function
func (b *SessionBroker) OnChange(fn func(Session)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}
