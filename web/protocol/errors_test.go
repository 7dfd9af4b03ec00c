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
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusOf(t *testing.T) {
	assert.Equal(t, 400, StatusOf(BadRequest("line too long")))
	assert.Equal(t, 501, StatusOf(NewClientError(StatusNotImplemented, "unsupported method")))
	assert.Equal(t, 500, StatusOf(&ServerError{Reason: "inconsistent"}))
	assert.Equal(t, 0, StatusOf(&StreamError{Err: io.EOF}))
	assert.Equal(t, 400, StatusOf(fmt.Errorf("wrapped: %w", BadRequest("x"))))
}

func TestErrorTypes(t *testing.T) {
	bind := &BindError{Addr: "bad", Err: io.ErrUnexpectedEOF}
	assert.True(t, errors.Is(bind, io.ErrUnexpectedEOF))
	assert.Contains(t, bind.Error(), "bad")

	stream := &StreamError{Err: io.EOF}
	assert.True(t, errors.Is(stream, io.EOF))

	cv := &ContractViolation{Op: "SetHeaders", State: "awaiting status"}
	assert.True(t, IsContractViolation(cv))
	assert.False(t, IsContractViolation(BadRequest("x")))
	assert.Equal(t, "response writer: SetHeaders is not allowed while awaiting status", cv.Error())
	assert.Equal(t, "bad client request: 400 (line too long)", BadRequest("line too long").Error())
}

func TestStatusText(t *testing.T) {
	assert.Equal(t, "OK", StatusText(200))
	assert.Equal(t, "Not Found", StatusText(404))
	assert.Equal(t, "", StatusText(299))
}
