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
)

// BindError means the server could not derive its base authority from the
// listen address or could not bind/listen on it.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind %s: %s", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

// StreamError wraps an I/O failure, including read timeouts, met while reading a
// request. Nothing is written back for it.
type StreamError struct {
	Err error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("error reading request: %s", e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// ServerError is an internal parser inconsistency. It is reflected as a 500.
type ServerError struct {
	Reason string
}

func (e *ServerError) Error() string {
	return "server error: " + e.Reason
}

// ClientError is a malformed, oversized or unsupported request. It is reflected
// with Code and an empty body.
type ClientError struct {
	Code   int
	Reason string
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("bad client request: %d (%s)", e.Code, e.Reason)
}

// ContractViolation reports a response writer operation invoked out of order.
// The offending call writes nothing.
type ContractViolation struct {
	Op    string
	State string
}

func (e *ContractViolation) Error() string {
	return fmt.Sprintf("response writer: %s is not allowed while %s", e.Op, e.State)
}

func NewClientError(code int, reason string) error {
	return &ClientError{Code: code, Reason: reason}
}

func BadRequest(reason string) error {
	return &ClientError{Code: StatusBadRequest, Reason: reason}
}

// StatusOf returns the status code a parse error should be reflected with, or 0
// when no response must be attempted.
func StatusOf(err error) int {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Code
	}
	var se *ServerError
	if errors.As(err, &se) {
		return StatusInternalServerError
	}
	return 0
}

func IsContractViolation(err error) bool {
	var cv *ContractViolation
	return errors.As(err, &cv)
}
