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

package redisv1

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	golocalv1 "github.com/caiflower/regate/pkg/golocal/v1"
	"github.com/caiflower/regate/pkg/logger"
	"github.com/caiflower/regate/pkg/tools"
	"github.com/go-redis/redis/v8"
)

const (
	ClusterMode = "cluster"
)

// ErrNil is returned by the getters when the key does not exist.
var ErrNil = redis.Nil

type RedisClient interface {
	GetRedis() redis.Cmdable
	SetPeriod(k string, v interface{}, period time.Duration) error
	SetNXPeriod(k string, v interface{}, period time.Duration) (bool, error)
	Get(k string, v interface{}) error
	GetString(k string) (string, error)
	Del(k ...string) error
	Expire(k string, period time.Duration) (bool, error)
	Exist(k ...string) (bool, error)
	GetKey(k string) string // get key with keyPrefix
	Close()
}

type Config struct {
	Mode         string        `yaml:"mode" json:"mode"`
	Addrs        []string      `yaml:"addrs" json:"addrs"`
	Password     string        `yaml:"password" json:"-"`
	DB           int           `yaml:"db" json:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout" default:"5s" json:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout" default:"10s" json:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout" default:"20s" json:"writeTimeout"`
	PoolSize     int           `yaml:"poolSize" json:"poolSize"`
	MinIdleConns int           `yaml:"minIdleConns" default:"20" json:"minIdleConns"`
	MaxConnAge   time.Duration `yaml:"maxConnAge" default:"80s" json:"maxConnAge"`
	KeyPrefix    string        `yaml:"keyPrefix" default:"regate:" json:"keyPrefix"`
}

type redisClient struct {
	config        *Config
	client        *redis.Client
	clusterClient *redis.ClusterClient
}

// NewRedisClient connects and pings the configured server(s).
func NewRedisClient(config Config) (RedisClient, error) {
	_ = tools.SetDefaults(&config)
	if len(config.Addrs) == 0 {
		return nil, errors.New("redis: no address configured")
	}

	logger.Info("**** Create Redis Client **** \n Redis config: %v", tools.ToJson(config))
	c := &redisClient{
		config: &config,
	}
	switch config.Mode {
	case ClusterMode:
		c.clusterClient = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        config.Addrs,
			Password:     config.Password,
			DialTimeout:  config.DialTimeout,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			PoolSize:     config.PoolSize,
			MinIdleConns: config.MinIdleConns,
			MaxConnAge:   config.MaxConnAge,
		})
	default:
		c.client = redis.NewClient(&redis.Options{
			Addr:         config.Addrs[0],
			Password:     config.Password,
			DB:           config.DB,
			DialTimeout:  config.DialTimeout,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			PoolSize:     config.PoolSize,
			MinIdleConns: config.MinIdleConns,
			MaxConnAge:   config.MaxConnAge,
		})
	}

	if err := c.GetRedis().Ping(GetContext()).Err(); err != nil {
		c.Close()
		return nil, fmt.Errorf("connect redis failed: %w", err)
	}
	return c, nil
}

func encodingObject(v interface{}) interface{} {
	if v == nil {
		return v
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Struct, reflect.Ptr, reflect.Map, reflect.Slice:
		if b, ok := v.([]byte); ok {
			return b
		}
		bytes, _ := tools.Marshal(v)
		return string(bytes)
	default:
		return v
	}
}

func (c *redisClient) Close() {
	var err error
	switch c.config.Mode {
	case ClusterMode:
		err = c.clusterClient.Close()
	default:
		err = c.client.Close()
	}

	if err != nil {
		logger.Error("close redis client failed. err: %s", err.Error())
	}
}

func (c *redisClient) GetRedis() redis.Cmdable {
	switch c.config.Mode {
	case ClusterMode:
		return c.clusterClient
	default:
		return c.client
	}
}

func (c *redisClient) SetPeriod(k string, v interface{}, period time.Duration) error {
	return c.GetRedis().Set(GetContext(), c.GetKey(k), encodingObject(v), period).Err()
}

func (c *redisClient) SetNXPeriod(k string, v interface{}, period time.Duration) (bool, error) {
	return c.GetRedis().SetNX(GetContext(), c.GetKey(k), encodingObject(v), period).Result()
}

func (c *redisClient) Get(k string, v interface{}) error {
	if bytes, err := c.GetRedis().Get(GetContext(), c.GetKey(k)).Bytes(); err != nil {
		return err
	} else {
		return tools.Unmarshal(bytes, v)
	}
}

func (c *redisClient) GetString(k string) (string, error) {
	return c.GetRedis().Get(GetContext(), c.GetKey(k)).Result()
}

func (c *redisClient) Del(k ...string) error {
	var keys []string
	for _, t := range k {
		keys = append(keys, c.GetKey(t))
	}
	return c.GetRedis().Del(GetContext(), keys...).Err()
}

func (c *redisClient) Exist(k ...string) (bool, error) {
	var keys []string
	for _, t := range k {
		keys = append(keys, c.GetKey(t))
	}
	if v, err := c.GetRedis().Exists(GetContext(), keys...).Result(); err != nil {
		return false, err
	} else {
		return v == int64(len(keys)), nil
	}
}

func (c *redisClient) Expire(k string, period time.Duration) (bool, error) {
	return c.GetRedis().Expire(GetContext(), c.GetKey(k), period).Result()
}

func (c *redisClient) GetKey(origin string) string {
	if c.config.KeyPrefix != "" {
		return c.config.KeyPrefix + origin
	}
	return origin
}

type traceIDKey struct{}

// GetContext getContext with traceId
func GetContext() context.Context {
	return context.WithValue(golocalv1.GetContext(), traceIDKey{}, golocalv1.GetTraceID())
}
