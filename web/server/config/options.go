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

package config

import (
	"time"

	"github.com/caiflower/regate/pkg/tools"
)

type Option func(*Options) *Options

type Options struct {
	Name             string        `yaml:"name" default:"regate"`
	Addr             string        `yaml:"addr" default:"127.0.0.1:8080"`
	ReadTimeout      time.Duration `yaml:"readTimeout" default:"500ms"`         // 单次读等待时间
	WriteTimeout     time.Duration `yaml:"writeTimeout" default:"30s"`          // 单次写等待时间
	QueueSize        int           `yaml:"queueSize" default:"1024"`            // 已解析请求的排队上限
	MaxConnections   int           `yaml:"maxConnections" default:"256"`        // 同时处理中的连接上限
	Workers          int           `yaml:"workers" default:"1"`                 // Consume 使用的协程数
	ResponseProtocol string        `yaml:"responseProtocol" default:"HTTP/1.0"` // 响应状态行使用的版本
	EnableMetrics    bool          `yaml:"enableMetrics"`
}

func NewOptions(opts ...Option) *Options {
	options := &Options{}
	for _, opt := range opts {
		options = opt(options)
	}
	_ = tools.SetDefaults(options)
	return options
}

func WithName(name string) Option {
	return func(opts *Options) *Options {
		opts.Name = name
		return opts
	}
}

func WithAddr(addr string) Option {
	return func(opts *Options) *Options {
		opts.Addr = addr
		return opts
	}
}

func WithReadTimeout(readTimeout time.Duration) Option {
	return func(opts *Options) *Options {
		opts.ReadTimeout = readTimeout
		return opts
	}
}

func WithWriteTimeout(writeTimeout time.Duration) Option {
	return func(opts *Options) *Options {
		opts.WriteTimeout = writeTimeout
		return opts
	}
}

func WithQueueSize(size int) Option {
	return func(opts *Options) *Options {
		opts.QueueSize = size
		return opts
	}
}

func WithMaxConnections(n int) Option {
	return func(opts *Options) *Options {
		opts.MaxConnections = n
		return opts
	}
}

func WithWorkers(n int) Option {
	return func(opts *Options) *Options {
		opts.Workers = n
		return opts
	}
}

func WithEnableMetrics(enable bool) Option {
	return func(opts *Options) *Options {
		opts.EnableMetrics = enable
		return opts
	}
}
