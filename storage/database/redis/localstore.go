package redisdb

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/studentportal/core/session"
)

const keyPrefix = "portal:ls:"

// localStorage keeps the items of each client in one redis hash.
type localStorage struct {
	client redis.UniversalClient
}

var _ session.Storage = (*localStorage)(nil)

func NewLocalStorage(client redis.UniversalClient) session.Storage {
	return &localStorage{client: client}
}

func (s *localStorage) hashKey(clientID string) string {
	return keyPrefix + clientID
}

func (s *localStorage) GetItem(ctx context.Context, clientID, key string) (string, error) {
	val, err := s.client.HGet(ctx, s.hashKey(clientID), key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", session.ErrNoItem
		}
		return "", errors.Wrap(err, "redis HGET")
	}
	return val, nil
}

func (s *localStorage) SetItem(ctx context.Context, clientID, key, value string) error {
	if err := s.client.HSet(ctx, s.hashKey(clientID), key, value).Err(); err != nil {
		return errors.Wrap(err, "redis HSET")
	}
	return nil
}

func (s *localStorage) RemoveItem(ctx context.Context, clientID, key string) error {
	if err := s.client.HDel(ctx, s.hashKey(clientID), key).Err(); err != nil {
		return errors.Wrap(err, "redis HDEL")
	}
	return nil
}
