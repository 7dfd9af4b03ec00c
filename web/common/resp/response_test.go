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

package resp

import (
	"errors"
	"io"
	"testing"

	"github.com/caiflower/regate/pkg/tools"
	"github.com/caiflower/regate/web/common/e"
	"github.com/caiflower/regate/web/protocol"
	"github.com/stretchr/testify/assert"
)

func TestJSON(t *testing.T) {
	r, err := JSON(protocol.StatusOK, map[string]string{"token": "abc"})
	assert.Nil(t, err)
	assert.Equal(t, protocol.StatusOK, r.Status())

	h := r.Headers()
	ct, _ := h.Get(protocol.HeaderContentType)
	assert.Equal(t, "application/json", string(ct))
	cl, _ := h.Get(protocol.HeaderContentLength)
	assert.Equal(t, "15", string(cl))

	body, _ := io.ReadAll(r.Body())
	assert.Equal(t, `{"token":"abc"}`, string(body))
}

func TestError(t *testing.T) {
	apiErr := e.NewApiError(e.InvalidArgument, "malformed token request", errors.New("unexpected EOF"))
	r := Error("req-1", apiErr)
	assert.Equal(t, protocol.StatusBadRequest, r.Status())

	body, _ := io.ReadAll(r.Body())
	var result struct {
		RequestId string
		Error     struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		}
	}
	assert.Nil(t, tools.Unmarshal(body, &result))
	assert.Equal(t, "req-1", result.RequestId)
	assert.Equal(t, "InvalidArgument", result.Error.Type)
	assert.Equal(t, "malformed token request", result.Error.Message)
	assert.NotContains(t, string(body), "unexpected EOF")
}
