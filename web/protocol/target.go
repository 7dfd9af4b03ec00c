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

package protocol

import (
	"errors"
	"net/url"
	"strings"
)

type QueryPair struct {
	Key   string
	Value string
}

// Target is a request target resolved against the server's base authority.
type Target struct {
	url   url.URL
	pairs []QueryPair
}

// ParseBaseURL derives the base authority every request target is resolved
// against from a listen address such as "127.0.0.1:8080".
func ParseBaseURL(addr string) (*url.URL, error) {
	u, err := url.Parse("http://" + addr)
	if err != nil {
		return nil, err
	}
	if u.Path != "" || u.RawQuery != "" || u.User != nil {
		return nil, &url.Error{Op: "parse", URL: addr, Err: errNotAuthority}
	}
	return u, nil
}

var errNotAuthority = errors.New("address is not a host:port authority")

// ResolveTarget resolves raw (path plus optional query) against base. Query
// pairs keep their order and duplicates.
func ResolveTarget(base *url.URL, raw string) (Target, error) {
	ref, err := url.Parse(raw)
	if err != nil {
		return Target{}, err
	}
	resolved := base.ResolveReference(ref)
	return Target{url: *resolved, pairs: parseQueryPairs(resolved.RawQuery)}, nil
}

func parseQueryPairs(query string) []QueryPair {
	if query == "" {
		return nil
	}
	var pairs []QueryPair
	for _, part := range strings.Split(query, "&") {
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		pairs = append(pairs, QueryPair{Key: unescapeQuery(key), Value: unescapeQuery(value)})
	}
	return pairs
}

func unescapeQuery(s string) string {
	if u, err := url.QueryUnescape(s); err == nil {
		return u
	}
	return s
}

func (t *Target) Path() string {
	return t.url.Path
}

// RawQuery returns the query string without the leading '?'.
func (t *Target) RawQuery() (string, bool) {
	if t.url.RawQuery == "" && !t.url.ForceQuery {
		return "", false
	}
	return t.url.RawQuery, true
}

func (t *Target) QueryPairs() []QueryPair {
	pairs := make([]QueryPair, len(t.pairs))
	copy(pairs, t.pairs)
	return pairs
}

// QueryFirstValue returns the value of the first pair named key.
func (t *Target) QueryFirstValue(key string) (string, bool) {
	for _, p := range t.pairs {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// URL returns a copy of the absolute request URL.
func (t *Target) URL() *url.URL {
	u := t.url
	return &u
}
