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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewOptionsDefaults(t *testing.T) {
	opts := NewOptions()
	assert.Equal(t, "regate", opts.Name)
	assert.Equal(t, "127.0.0.1:8080", opts.Addr)
	assert.Equal(t, 500*time.Millisecond, opts.ReadTimeout)
	assert.Equal(t, 30*time.Second, opts.WriteTimeout)
	assert.Equal(t, 1024, opts.QueueSize)
	assert.Equal(t, 256, opts.MaxConnections)
	assert.Equal(t, 1, opts.Workers)
	assert.Equal(t, "HTTP/1.0", opts.ResponseProtocol)
	assert.False(t, opts.EnableMetrics)
}

func TestNewOptionsOverrides(t *testing.T) {
	opts := NewOptions(
		WithName("test"),
		WithAddr("127.0.0.1:0"),
		WithReadTimeout(time.Second),
		WithQueueSize(8),
		WithMaxConnections(2),
		WithWorkers(4),
		WithEnableMetrics(true),
	)
	assert.Equal(t, "test", opts.Name)
	assert.Equal(t, "127.0.0.1:0", opts.Addr)
	assert.Equal(t, time.Second, opts.ReadTimeout)
	assert.Equal(t, 8, opts.QueueSize)
	assert.Equal(t, 2, opts.MaxConnections)
	assert.Equal(t, 4, opts.Workers)
	assert.True(t, opts.EnableMetrics)
	assert.Equal(t, 30*time.Second, opts.WriteTimeout)
}
