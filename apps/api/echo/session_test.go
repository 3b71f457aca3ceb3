package echoapi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/compass/core/auth"
)

func TestPages_Guard(t *testing.T) {
	app := setup(t)
	ctx := context.Background()

	t.Run("no session", func(t *testing.T) {
		b := newBrowser(t, app)
		assertRedirect(t, b.get("/"), "/login")
		assertRedirect(t, b.get("/students"), "/login")
	})

	t.Run("unknown session", func(t *testing.T) {
		b := newBrowser(t, app)
		b.cookies["compass_session"] = &http.Cookie{Name: "compass_session", Value: "stale"}
		assertRedirect(t, b.get("/students"), "/login")
	})

	t.Run("flag only", func(t *testing.T) {
		require.NoError(t, store.SetFlag(ctx, "flagged", auth.FlagValue, time.Minute))
		b := newBrowser(t, app)
		b.cookies["compass_session"] = &http.Cookie{Name: "compass_session", Value: "flagged"}
		rec := b.get("/students")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "John Smith")
	})

	t.Run("signed in", func(t *testing.T) {
		b := loggedIn(t, app)
		assertRedirect(t, b.get("/"), "/students")
		rec := b.get("/students")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Login successful")
	})
}

func TestPages_SessionEvents(t *testing.T) {
	app := setup(t)
	b := loggedIn(t, app)
	sid := b.cookies["compass_session"].Value

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/session/events", nil).WithContext(ctx)
	req.AddCookie(b.cookies["compass_session"])
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		app.ServeHTTP(rec, req)
	}()

	// another instance signs the session out; publish until the stream has seen it
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
loop:
	for {
		select {
		case <-done:
			break loop
		case <-ctx.Done():
			t.Fatal("the event stream did not end")
		case <-ticker.C:
			_ = broker.Publish(context.Background(), auth.Event{Type: auth.SignedOut, SessionID: sid})
		}
	}

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "event: state\ndata: authenticated\n\n")
	assert.Contains(t, rec.Body.String(), "event: state\ndata: unauthenticated\n\n")

	flag, err := store.GetFlag(context.Background(), sid)
	require.NoError(t, err)
	assert.Empty(t, flag)
}

func TestPages_SessionEventsUnauthenticated(t *testing.T) {
	app := setup(t)
	b := newBrowser(t, app)
	assertRedirect(t, b.get("/session/events"), "/login")
}
