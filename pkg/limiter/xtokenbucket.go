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

	"golang.org/x/time/rate"
)

// XTokenBucket refills qps tokens per second up to burst.
type XTokenBucket struct {
	limiter *rate.Limiter
}

func NewXTokenBucket(qps, burst int) *XTokenBucket {
	if burst <= 0 {
		burst = qps
	}
	return &XTokenBucket{limiter: rate.NewLimiter(rate.Limit(qps), burst)}
}

func (x *XTokenBucket) TakeToken(ctx context.Context) error {
	return x.limiter.Wait(ctx)
}

func (x *XTokenBucket) TakeTokenNonBlocking() bool {
	return x.limiter.Allow()
}

// Unlimited never refuses a token.
type Unlimited struct{}

func (Unlimited) TakeToken(ctx context.Context) error {
	return ctx.Err()
}

func (Unlimited) TakeTokenNonBlocking() bool {
	return true
}
