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

package v1

import (
	"context"
	"sync"

	"github.com/modern-go/gls"
)

const (
	TraceIDKey    = "X-Request-ID"
	ExchangeIDKey = "Exchange-ID"
	contextKey    = "Go-Context"
)

// goroutine id -> *sync.Map
var locals sync.Map

func current(create bool) *sync.Map {
	id := gls.GoID()
	if v, ok := locals.Load(id); ok {
		return v.(*sync.Map)
	}
	if !create {
		return nil
	}
	m := &sync.Map{}
	actual, _ := locals.LoadOrStore(id, m)
	return actual.(*sync.Map)
}

func Put(key string, value interface{}) {
	current(true).Store(key, value)
}

func Get(key string) interface{} {
	m := current(false)
	if m == nil {
		return nil
	}
	v, _ := m.Load(key)
	return v
}

func PutTraceID(traceID string) {
	Put(TraceIDKey, traceID)
}

func GetTraceID() string {
	if v, ok := Get(TraceIDKey).(string); ok {
		return v
	}
	return ""
}

func PutContext(ctx context.Context) {
	Put(contextKey, ctx)
}

func GetContext() context.Context {
	if v, ok := Get(contextKey).(context.Context); ok {
		return v
	}
	return context.Background()
}

// Clean drops every value stored for the calling goroutine. Pooled goroutines
// must call it before picking up unrelated work.
func Clean() {
	locals.Delete(gls.GoID())
}
