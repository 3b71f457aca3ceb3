package sessionstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/compass/core"
	"github.com/trezcool/compass/core/auth"
)

const keyPrefix = "compass:"

// NewRedisClient connects to the configured redis server and checks it answers.
func NewRedisClient(ctx context.Context, conf *core.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

func flagKey(sid string) string    { return keyPrefix + "flag:" + sid }
func sessionKey(sid string) string { return keyPrefix + "session:" + sid }
func flashKey(sid string) string   { return keyPrefix + "flash:" + sid }
func eventsChannel(sid string) string {
	return keyPrefix + "events:" + sid
}

// RedisStore keeps flags, sessions and flash toasts in redis so every server instance shares them.
type RedisStore struct {
	client redis.UniversalClient
}

var (
	_ auth.FlagStore    = (*RedisStore)(nil)
	_ auth.SessionStore = (*RedisStore)(nil)
)

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) GetFlag(ctx context.Context, sid string) (string, error) {
	val, err := s.client.Get(ctx, flagKey(sid)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", errors.Wrap(err, "getting auth flag")
	}
	return val, nil
}

func (s *RedisStore) SetFlag(ctx context.Context, sid, value string, ttl time.Duration) error {
	return errors.Wrap(s.client.Set(ctx, flagKey(sid), value, ttl).Err(), "setting auth flag")
}

func (s *RedisStore) DelFlag(ctx context.Context, sid string) error {
	return errors.Wrap(s.client.Del(ctx, flagKey(sid)).Err(), "deleting auth flag")
}

func (s *RedisStore) SaveSession(ctx context.Context, sess auth.Session, ttl time.Duration) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return errors.Wrap(err, "encoding session")
	}
	return errors.Wrap(s.client.Set(ctx, sessionKey(sess.ID), data, ttl).Err(), "saving session")
}

func (s *RedisStore) GetSession(ctx context.Context, sid string) (auth.Session, error) {
	data, err := s.client.Get(ctx, sessionKey(sid)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return auth.Session{}, auth.ErrNoSession
		}
		return auth.Session{}, errors.Wrap(err, "getting session")
	}
	var sess auth.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return auth.Session{}, errors.Wrap(err, "decoding session")
	}
	return sess, nil
}

func (s *RedisStore) DeleteSession(ctx context.Context, sid string) error {
	return errors.Wrap(s.client.Del(ctx, sessionKey(sid)).Err(), "deleting session")
}

// PushToasts keeps toasts for the next page rendered for sid. They expire after a minute.
func (s *RedisStore) PushToasts(ctx context.Context, sid string, toasts ...core.Toast) error {
	if len(toasts) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(toasts))
	for _, t := range toasts {
		data, err := json.Marshal(t)
		if err != nil {
			return errors.Wrap(err, "encoding toast")
		}
		values = append(values, data)
	}

	key := flashKey(sid)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		pipe.Expire(ctx, key, time.Minute)
		return nil
	})
	return errors.Wrap(err, "pushing toasts")
}

// PopToasts returns and forgets the toasts kept for sid.
func (s *RedisStore) PopToasts(ctx context.Context, sid string) ([]core.Toast, error) {
	key := flashKey(sid)
	var lrange *redis.StringSliceCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		lrange = pipe.LRange(ctx, key, 0, -1)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "popping toasts")
	}

	toasts := make([]core.Toast, 0, len(lrange.Val()))
	for _, raw := range lrange.Val() {
		var t core.Toast
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			return nil, errors.Wrap(err, "decoding toast")
		}
		toasts = append(toasts, t)
	}
	return toasts, nil
}

// RedisBroker publishes session events on one redis channel per session.
type RedisBroker struct {
	client redis.UniversalClient
}

var _ auth.Broker = (*RedisBroker)(nil)

func NewRedisBroker(client redis.UniversalClient) *RedisBroker {
	return &RedisBroker{client: client}
}

func (b *RedisBroker) Publish(ctx context.Context, ev auth.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "encoding event")
	}
	return errors.Wrap(b.client.Publish(ctx, eventsChannel(ev.SessionID), data).Err(), "publishing event")
}

func (b *RedisBroker) Subscribe(ctx context.Context, sid string) (auth.Subscription, error) {
	ps := b.client.Subscribe(ctx, eventsChannel(sid))
	// wait for the confirmation so that no event published after Subscribe returns is missed
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, errors.Wrap(err, "subscribing to session events")
	}

	sub := &redisSubscription{ps: ps, events: make(chan auth.Event, 8)}
	go sub.forward()
	return sub, nil
}

type redisSubscription struct {
	ps     *redis.PubSub
	events chan auth.Event
}

func (s *redisSubscription) forward() {
	defer close(s.events)
	for msg := range s.ps.Channel() {
		var ev auth.Event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			continue
		}
		s.events <- ev
	}
}

func (s *redisSubscription) Events() <-chan auth.Event { return s.events }

// Close stops the subscription; Events is closed once pending events are drained.
func (s *redisSubscription) Close() error {
	return s.ps.Close()
}
