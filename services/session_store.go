package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"insureflow/models"
)

var ErrSessionNotFound = errors.New("flow session not found")

// Abandoned sessions fall out of Redis on their own.
const sessionTTL = 24 * time.Hour

// SessionStore persists flow sessions between requests.
type SessionStore interface {
	Get(ctx context.Context, id string) (*models.FlowSession, error)
	Save(ctx context.Context, sess *models.FlowSession) error
	Delete(ctx context.Context, id string) error
}

// RedisSessionStore keeps flow sessions as JSON under flow_session_<id>.
type RedisSessionStore struct {
	rdb *redis.Client
}

func NewRedisSessionStore(rdb *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb}
}

func sessionKey(id string) string {
	return fmt.Sprintf("flow_session_%s", id)
}

func (s *RedisSessionStore) Get(ctx context.Context, id string) (*models.FlowSession, error) {
	val, err := s.rdb.Get(ctx, sessionKey(id)).Result()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	var sess models.FlowSession
	if err := json.Unmarshal([]byte(val), &sess); err != nil {
		return nil, fmt.Errorf("%w: corrupt session %s", ErrStoreUnavailable, id)
	}
	return &sess, nil
}

func (s *RedisSessionStore) Save(ctx context.Context, sess *models.FlowSession) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, sessionKey(sess.ID), data, sessionTTL).Err()
}

func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, sessionKey(id)).Err()
}
