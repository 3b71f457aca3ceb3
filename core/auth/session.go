package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/compass/core/user"
)

// FlagValue is stored under the auth flag of a signed in browser.
const FlagValue = "true"

var (
	ErrNoSession = errors.New("no session")

	newSessionID = uuid.NewString // mockable
)

type EventType string

const (
	SignedIn  EventType = "signed_in"
	SignedOut EventType = "signed_out"
)

type (
	// Session is a signed in operator, identified by the id kept in the browser cookie.
	Session struct {
		ID        string    `json:"id"`
		UserID    string    `json:"user_id"`
		Email     string    `json:"email"`
		CreatedAt time.Time `json:"created_at"`
		ExpiresAt time.Time `json:"expires_at"`
	}

	// Event notifies a change of the session sid.
	Event struct {
		Type      EventType `json:"type"`
		SessionID string    `json:"session_id"`
	}

	// FlagStore persists the auth flag of a browser session. GetFlag returns "" when no flag is set.
	FlagStore interface {
		GetFlag(ctx context.Context, sid string) (string, error)
		SetFlag(ctx context.Context, sid, value string, ttl time.Duration) error
		DelFlag(ctx context.Context, sid string) error
	}

	// SessionStore persists sessions. GetSession returns ErrNoSession for unknown or expired sessions.
	SessionStore interface {
		SaveSession(ctx context.Context, sess Session, ttl time.Duration) error
		GetSession(ctx context.Context, sid string) (Session, error)
		DeleteSession(ctx context.Context, sid string) error
	}

	// Broker carries session events to the subscribers of a session.
	Broker interface {
		Publish(ctx context.Context, ev Event) error
		Subscribe(ctx context.Context, sid string) (Subscription, error)
	}

	Subscription interface {
		// Events is closed once the subscription is closed.
		Events() <-chan Event
		Close() error
	}
)

func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Sessions signs operators in and out, keeping the auth flag in sync with the session store.
type Sessions struct {
	flags  FlagStore
	store  SessionStore
	broker Broker
	ttl    time.Duration
}

func NewSessions(flags FlagStore, store SessionStore, broker Broker, ttl time.Duration) *Sessions {
	return &Sessions{flags: flags, store: store, broker: broker, ttl: ttl}
}

func (s *Sessions) Flags() FlagStore { return s.flags }

// SignIn opens a new session for usr.
func (s *Sessions) SignIn(ctx context.Context, usr user.User) (Session, error) {
	now := time.Now().UTC()
	sess := Session{
		ID:        newSessionID(),
		UserID:    usr.ID,
		Email:     usr.Email,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.SaveSession(ctx, sess, s.ttl); err != nil {
		return Session{}, errors.Wrap(err, "saving session")
	}
	if err := s.flags.SetFlag(ctx, sess.ID, FlagValue, s.ttl); err != nil {
		return Session{}, errors.Wrap(err, "setting auth flag")
	}
	if err := s.broker.Publish(ctx, Event{Type: SignedIn, SessionID: sess.ID}); err != nil {
		return Session{}, errors.Wrap(err, "publishing sign in")
	}
	return sess, nil
}

// SignOut ends the session sid and clears its flag. Unknown sessions are not an error.
func (s *Sessions) SignOut(ctx context.Context, sid string) error {
	if sid == "" {
		return nil
	}
	if err := s.store.DeleteSession(ctx, sid); err != nil {
		return errors.Wrap(err, "deleting session")
	}
	if err := s.flags.DelFlag(ctx, sid); err != nil {
		return errors.Wrap(err, "clearing auth flag")
	}
	return errors.Wrap(s.broker.Publish(ctx, Event{Type: SignedOut, SessionID: sid}), "publishing sign out")
}

// Current returns the live session sid or ErrNoSession.
func (s *Sessions) Current(ctx context.Context, sid string) (Session, error) {
	if sid == "" {
		return Session{}, ErrNoSession
	}
	sess, err := s.store.GetSession(ctx, sid)
	if err != nil {
		return Session{}, err
	}
	if sess.Expired(time.Now()) {
		return Session{}, ErrNoSession
	}
	return sess, nil
}

func (s *Sessions) Subscribe(ctx context.Context, sid string) (Subscription, error) {
	return s.broker.Subscribe(ctx, sid)
}
