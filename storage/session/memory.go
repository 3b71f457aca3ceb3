package sessionstore

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/compass/core"
	"github.com/trezcool/compass/core/auth"
)

var nowFunc = time.Now // mockable

type flagEntry struct {
	value   string
	expires time.Time
}

// MemoryStore keeps flags, sessions and flash toasts in the process. It backs the tests and the demo mode.
type MemoryStore struct {
	mu       sync.Mutex
	flags    map[string]flagEntry
	sessions map[string]auth.Session
	flashes  map[string][]core.Toast
}

var (
	_ auth.FlagStore    = (*MemoryStore)(nil)
	_ auth.SessionStore = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		flags:    make(map[string]flagEntry),
		sessions: make(map[string]auth.Session),
		flashes:  make(map[string][]core.Toast),
	}
}

func expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return nowFunc().Add(ttl)
}

func (s *MemoryStore) GetFlag(_ context.Context, sid string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.flags[sid]
	if !ok {
		return "", nil
	}
	if !entry.expires.IsZero() && !nowFunc().Before(entry.expires) {
		delete(s.flags, sid)
		return "", nil
	}
	return entry.value, nil
}

func (s *MemoryStore) SetFlag(_ context.Context, sid, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[sid] = flagEntry{value: value, expires: expiry(ttl)}
	return nil
}

func (s *MemoryStore) DelFlag(_ context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flags, sid)
	return nil
}

func (s *MemoryStore) SaveSession(_ context.Context, sess auth.Session, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return nil
}

func (s *MemoryStore) GetSession(_ context.Context, sid string) (auth.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sid]
	if !ok {
		return auth.Session{}, auth.ErrNoSession
	}
	if sess.Expired(nowFunc()) {
		delete(s.sessions, sid)
		return auth.Session{}, auth.ErrNoSession
	}
	return sess, nil
}

func (s *MemoryStore) DeleteSession(_ context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sid)
	return nil
}

// PushToasts keeps toasts for the next page rendered for sid.
func (s *MemoryStore) PushToasts(_ context.Context, sid string, toasts ...core.Toast) error {
	if len(toasts) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flashes[sid] = append(s.flashes[sid], toasts...)
	return nil
}

// PopToasts returns and forgets the toasts kept for sid.
func (s *MemoryStore) PopToasts(_ context.Context, sid string) ([]core.Toast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	toasts := s.flashes[sid]
	delete(s.flashes, sid)
	return toasts, nil
}

// MemoryBroker fans session events out to in-process subscribers.
type MemoryBroker struct {
	mu   sync.Mutex
	subs map[string]map[*memorySubscription]struct{}
}

var _ auth.Broker = (*MemoryBroker)(nil)

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[string]map[*memorySubscription]struct{})}
}

func (b *MemoryBroker) Publish(_ context.Context, ev auth.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sub := range b.subs[ev.SessionID] {
		select {
		case sub.events <- ev:
		default: // slow subscriber, drop
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(_ context.Context, sid string) (auth.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &memorySubscription{broker: b, sid: sid, events: make(chan auth.Event, 8)}
	if b.subs[sid] == nil {
		b.subs[sid] = make(map[*memorySubscription]struct{})
	}
	b.subs[sid][sub] = struct{}{}
	return sub, nil
}

func (b *MemoryBroker) unsubscribe(sub *memorySubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subs[sub.sid]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(b.subs, sub.sid)
	}
	close(sub.events)
}

type memorySubscription struct {
	broker *MemoryBroker
	sid    string
	events chan auth.Event
}

func (s *memorySubscription) Events() <-chan auth.Event { return s.events }

func (s *memorySubscription) Close() error {
	s.broker.unsubscribe(s)
	return nil
}
