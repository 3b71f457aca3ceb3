package auth

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

type State int

const (
	Checking State = iota
	Authenticated
	Unauthenticated
)

func (s State) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return "checking"
	}
}

// Guard decides whether the browser session sid may see protected pages.
// It starts in Checking and settles on Authenticated or Unauthenticated.
type Guard struct {
	flags    FlagStore
	sessions *Sessions // optional remote session check
	sid      string

	mu      sync.Mutex
	state   State
	changes chan State
	sub     Subscription
	closed  bool
}

func NewGuard(flags FlagStore, sessions *Sessions, sid string) *Guard {
	return &Guard{
		flags:    flags,
		sessions: sessions,
		sid:      sid,
		state:    Checking,
		changes:  make(chan State, 4),
	}
}

func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Changes receives every state the guard moves to after Resolve. It is closed by Close.
func (g *Guard) Changes() <-chan State { return g.changes }

func (g *Guard) set(s State) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed || g.state == s {
		return
	}
	g.state = s
	select {
	case g.changes <- s:
	default: // nobody listens
	}
}

// Resolve reads the auth flag, then checks the remote session.
// A flag set to "true" authenticates before the remote check; a live session authenticates without the flag.
func (g *Guard) Resolve(ctx context.Context) State {
	if g.sid == "" {
		g.set(Unauthenticated)
		return g.State()
	}

	flag, err := g.flags.GetFlag(ctx, g.sid)
	flagged := err == nil && flag == FlagValue
	if flagged {
		g.set(Authenticated)
	}

	if g.sessions != nil {
		if _, err := g.sessions.Current(ctx, g.sid); err == nil {
			g.set(Authenticated)
		}
	}

	if g.State() == Checking {
		g.set(Unauthenticated)
	}
	return g.State()
}

// Watch follows the session events until Close: a sign out clears the flag and unauthenticates.
func (g *Guard) Watch(ctx context.Context) error {
	if g.sessions == nil {
		return errors.New("guard has no sessions to watch")
	}
	sub, err := g.sessions.Subscribe(ctx, g.sid)
	if err != nil {
		return errors.Wrap(err, "subscribing to session events")
	}

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return sub.Close()
	}
	g.sub = sub
	g.mu.Unlock()

	go g.watch(sub)
	return nil
}

func (g *Guard) watch(sub Subscription) {
	for ev := range sub.Events() {
		switch ev.Type {
		case SignedOut:
			_ = g.flags.DelFlag(context.Background(), g.sid)
			g.set(Unauthenticated)
		case SignedIn:
			g.set(Authenticated)
		}
	}
}

// Close releases the subscription. It is safe to call more than once.
func (g *Guard) Close() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	sub := g.sub
	close(g.changes)
	g.mu.Unlock()

	if sub != nil {
		return sub.Close()
	}
	return nil
}
