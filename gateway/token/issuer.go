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
	"time"

	"github.com/caiflower/regate/pkg/limiter"
	"github.com/caiflower/regate/pkg/logger"
	"github.com/caiflower/regate/pkg/tools"
)

var ErrRateLimited = errors.New("token: issue rate exceeded")

// Issuer hands out opaque random tokens and records them in a Store.
type Issuer struct {
	store   Store
	limiter limiter.Limiter
	ttl     time.Duration
	now     func() time.Time
}

func NewIssuer(store Store, lim limiter.Limiter, ttl time.Duration) *Issuer {
	if lim == nil {
		lim = limiter.Unlimited{}
	}
	return &Issuer{store: store, limiter: lim, ttl: ttl, now: time.Now}
}

// Issue creates a token for name. It fails with ErrRateLimited without
// waiting when the issue rate is exhausted.
func (i *Issuer) Issue(ctx context.Context, name string) (string, error) {
	if !i.limiter.TakeTokenNonBlocking() {
		return "", ErrRateLimited
	}

	token, err := tools.RandomID(1)
	if err != nil {
		return "", err
	}
	if err = i.store.Save(ctx, token, Info{Name: name, IssuedAt: i.now()}, i.ttl); err != nil {
		return "", err
	}
	logger.Debug("[token] issued token for %q, ttl %s", name, i.ttl)
	return token, nil
}

// Verify reports whether token was issued and has not expired.
func (i *Issuer) Verify(ctx context.Context, token string) (Info, bool, error) {
	if token == "" {
		return Info{}, false, nil
	}
	return i.store.Lookup(ctx, token)
}

func (i *Issuer) Close() {
	i.store.Close()
}
