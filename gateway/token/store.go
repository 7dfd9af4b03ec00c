/*
 * Copyright 2024 caiflower Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/caiflower/regate/gateway/config"
	redisv1 "github.com/caiflower/regate/redis/v1"
	"github.com/patrickmn/go-cache"
)

const (
	keyPrefix       = "token:"
	cleanupInterval = time.Minute
)

type Info struct {
	Name     string    `json:"name"`
	IssuedAt time.Time `json:"issuedAt"`
}

// Store keeps issued tokens until their TTL runs out.
type Store interface {
	Save(ctx context.Context, token string, info Info, ttl time.Duration) error
	Lookup(ctx context.Context, token string) (Info, bool, error)
	Close()
}

// NewStore builds the store selected by c.Store.
func NewStore(c config.TokenConfig) (Store, error) {
	switch c.Store {
	case config.TokenStoreMemory, "":
		return NewMemoryStore(), nil
	case config.TokenStoreRedis:
		client, err := redisv1.NewRedisClient(c.Redis)
		if err != nil {
			return nil, err
		}
		return NewRedisStore(client), nil
	default:
		return nil, fmt.Errorf("unknown token store %q", c.Store)
	}
}

type memoryStore struct {
	cache *cache.Cache
}

// NewMemoryStore keeps tokens in process memory. Expired entries are swept
// once a minute.
func NewMemoryStore() Store {
	return &memoryStore{cache: cache.New(cache.NoExpiration, cleanupInterval)}
}

func (s *memoryStore) Save(_ context.Context, token string, info Info, ttl time.Duration) error {
	s.cache.Set(keyPrefix+token, info, ttl)
	return nil
}

func (s *memoryStore) Lookup(_ context.Context, token string) (Info, bool, error) {
	v, ok := s.cache.Get(keyPrefix + token)
	if !ok {
		return Info{}, false, nil
	}
	return v.(Info), true, nil
}

func (s *memoryStore) Close() {
	s.cache.Flush()
}

type redisStore struct {
	client redisv1.RedisClient
}

// NewRedisStore shares tokens between gateway instances through redis.
func NewRedisStore(client redisv1.RedisClient) Store {
	return &redisStore{client: client}
}

func (s *redisStore) Save(_ context.Context, token string, info Info, ttl time.Duration) error {
	return s.client.SetPeriod(keyPrefix+token, &info, ttl)
}

func (s *redisStore) Lookup(_ context.Context, token string) (Info, bool, error) {
	var info Info
	if err := s.client.Get(keyPrefix+token, &info); err != nil {
		if errors.Is(err, redisv1.ErrNil) {
			return Info{}, false, nil
		}
		return Info{}, false, err
	}
	return info, true, nil
}

func (s *redisStore) Close() {
	s.client.Close()
}
