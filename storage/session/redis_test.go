package sessionstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/compass/core"
	"github.com/trezcool/compass/core/auth"
)

// redisClient connects to COMPASS_TEST_REDIS_ADDR, skipping the test when it is not set.
func redisClient(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("COMPASS_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("COMPASS_TEST_REDIS_ADDR is not set")
	}
	conf := core.NewTestConfig()
	conf.Redis.Addr = addr
	client, err := NewRedisClient(context.Background(), conf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisStore(t *testing.T) {
	client := redisClient(t)
	store := NewRedisStore(client)
	ctx := context.Background()
	sid := "test-" + time.Now().Format("150405.000000")

	flag, err := store.GetFlag(ctx, sid)
	require.NoError(t, err)
	assert.Empty(t, flag)
	require.NoError(t, store.SetFlag(ctx, sid, auth.FlagValue, time.Minute))
	flag, _ = store.GetFlag(ctx, sid)
	assert.Equal(t, auth.FlagValue, flag)
	require.NoError(t, store.DelFlag(ctx, sid))

	sess := auth.Session{ID: sid, UserID: "u1", Email: "op@example.com", CreatedAt: time.Now().UTC().Truncate(time.Second)}
	require.NoError(t, store.SaveSession(ctx, sess, time.Minute))
	got, err := store.GetSession(ctx, sid)
	require.NoError(t, err)
	assert.True(t, sess.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, sess.UserID, got.UserID)
	require.NoError(t, store.DeleteSession(ctx, sid))
	_, err = store.GetSession(ctx, sid)
	assert.Equal(t, auth.ErrNoSession, err)

	require.NoError(t, store.PushToasts(ctx, sid, core.SuccessToast("Success", "ok")))
	toasts, err := store.PopToasts(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, []core.Toast{core.SuccessToast("Success", "ok")}, toasts)
}

func TestRedisBroker(t *testing.T) {
	client := redisClient(t)
	broker := NewRedisBroker(client)
	ctx := context.Background()

	sub, err := broker.Subscribe(ctx, "sid")
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, broker.Publish(ctx, auth.Event{Type: auth.SignedOut, SessionID: "sid"}))
	select {
	case ev := <-sub.Events():
		assert.Equal(t, auth.SignedOut, ev.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}
