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
	"io"
	"net/url"
)

// Request is a parsed request. It is produced by the parser and handed to
// exactly one consumer, which must Close it when done.
type Request struct {
	method  Method
	version ProtocolVersion
	target  Target
	headers Headers
	body    *BodyReader
}

func NewRequest(method Method, version ProtocolVersion, target Target, headers Headers, body *BodyReader) *Request {
	return &Request{
		method:  method,
		version: version,
		target:  target,
		headers: headers,
		body:    body,
	}
}

func (r *Request) Method() Method {
	return r.method
}

func (r *Request) Version() ProtocolVersion {
	return r.version
}

func (r *Request) Path() string {
	return r.target.Path()
}

func (r *Request) QueryString() (string, bool) {
	return r.target.RawQuery()
}

func (r *Request) QueryPairs() []QueryPair {
	return r.target.QueryPairs()
}

func (r *Request) QueryFirstValue(key string) (string, bool) {
	return r.target.QueryFirstValue(key)
}

func (r *Request) URL() *url.URL {
	return r.target.URL()
}

// Header returns the raw value stored under name.
func (r *Request) Header(name HeaderName) ([]byte, bool) {
	return r.headers.Get(name)
}

// Headers returns a copy of the request's header set.
func (r *Request) Headers() Headers {
	return r.headers.Clone()
}

func (r *Request) HasBody() bool {
	return r.body != nil
}

// TakeBody hands the lazy body reader to the caller, who becomes responsible for
// closing it. It returns nil when the request has no body or it was taken.
func (r *Request) TakeBody() io.ReadCloser {
	if r.body == nil {
		return nil
	}
	b := r.body
	r.body = nil
	return b
}

// ReadBody reads the whole body, or returns nil when there is none.
func (r *Request) ReadBody() ([]byte, error) {
	body := r.TakeBody()
	if body == nil {
		return nil, nil
	}
	defer body.Close()
	return io.ReadAll(body)
}

// Close drains any unread body bytes.
func (r *Request) Close() error {
	if r.body == nil {
		return nil
	}
	err := r.body.Close()
	r.body = nil
	return err
}
