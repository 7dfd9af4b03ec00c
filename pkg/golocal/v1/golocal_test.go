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
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTraceID(t *testing.T) {
	wg := sync.WaitGroup{}
	for i := 0; i < 1000; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer Clean()
			PutTraceID(strconv.Itoa(i))
			assert.Equal(t, strconv.Itoa(i), GetTraceID())
		}(i)
	}
	wg.Wait()
}

func TestPut(t *testing.T) {
	wg := sync.WaitGroup{}
	for i := 0; i < 1000; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer Clean()
			Put("test", i)
			assert.Equal(t, i, Get("test"))
		}(i)
	}
	wg.Wait()
}

func TestClean(t *testing.T) {
	PutTraceID("abc")
	PutContext(context.TODO())
	Clean()
	assert.Equal(t, "", GetTraceID())
	assert.Nil(t, Get(TraceIDKey))
	assert.Equal(t, context.Background(), GetContext())
}

func BenchmarkTraceID(b *testing.B) {
	for n := 0; n < b.N; n++ {
		PutTraceID(strconv.Itoa(n))
		_ = GetTraceID()
	}
	Clean()
}
