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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupMethod(t *testing.T) {
	tests := []struct {
		line   string
		method Method
		skip   int
	}{
		{"GET /", MethodGet, 4},
		{"PUT /", MethodPut, 4},
		{"POST /", MethodPost, 5},
		{"DELETE /", MethodDelete, 7},
		{"OPTIONS *", MethodOptions, 8},
	}
	for _, tt := range tests {
		m, skip, ok := LookupMethod([]byte(tt.line))
		assert.True(t, ok, tt.line)
		assert.Equal(t, tt.method, m, tt.line)
		assert.Equal(t, tt.skip, skip, tt.line)
		assert.Equal(t, tt.line[:skip-1], m.String())
	}

	_, _, ok := LookupMethod([]byte("PATCH /"))
	assert.False(t, ok)
	_, _, ok = LookupMethod([]byte("GE"))
	assert.False(t, ok)
}

func TestParseProtocolVersion(t *testing.T) {
	v, ok := ParseProtocolVersion([]byte("HTTP/1.0"))
	assert.True(t, ok)
	assert.Equal(t, HTTP10, v)
	assert.Equal(t, "HTTP/1.0", v.String())

	v, ok = ParseProtocolVersion([]byte("HTTP/1.1"))
	assert.True(t, ok)
	assert.Equal(t, HTTP11, v)

	_, ok = ParseProtocolVersion([]byte("HTTP/2.0"))
	assert.False(t, ok)
	_, ok = ParseProtocolVersion([]byte("http/1.1"))
	assert.False(t, ok)
}
