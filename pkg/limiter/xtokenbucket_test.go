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

package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestXTokenBucketNonBlock(t *testing.T) {
	bucket := NewXTokenBucket(1, 5)

	success := 0
	for i := 0; i < 100; i++ {
		if bucket.TakeTokenNonBlocking() {
			success++
		}
	}
	assert.Equal(t, 5, success)
}

func TestXTokenBucketWait(t *testing.T) {
	bucket := NewXTokenBucket(1, 1)
	assert.True(t, bucket.TakeTokenNonBlocking())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.NotNil(t, bucket.TakeToken(ctx))

	bucket = NewXTokenBucket(1000, 0)
	assert.Nil(t, bucket.TakeToken(context.Background()))
}

func TestUnlimited(t *testing.T) {
	var l Limiter = Unlimited{}
	for i := 0; i < 100; i++ {
		assert.True(t, l.TakeTokenNonBlocking())
	}
	assert.Nil(t, l.TakeToken(context.Background()))
}
