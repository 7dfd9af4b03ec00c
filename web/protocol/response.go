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
	"bytes"
	"io"
	"os"
	"strconv"
)

// Response is an immutable status, header set and optional body source. It is
// consumed exactly once by a response writer.
type Response struct {
	status  int
	headers Headers
	body    io.Reader
}

func (r *Response) Status() int {
	return r.status
}

// Headers returns a copy of the response header set.
func (r *Response) Headers() Headers {
	return r.headers.Clone()
}

// Body returns the body source, or nil when the response has none.
func (r *Response) Body() io.Reader {
	return r.body
}

func Ok() *Response {
	return &Response{status: StatusOK}
}

// Err is a bare status response with no headers and no body.
func Err(code int) *Response {
	return &Response{status: code}
}

type ResponseBuilder struct {
	status  int
	headers Headers
	body    io.Reader
	err     error
}

func NewResponseBuilder(status int) *ResponseBuilder {
	return &ResponseBuilder{status: status}
}

func (b *ResponseBuilder) Header(name HeaderName, value string) *ResponseBuilder {
	b.headers.SetString(name, value)
	return b
}

func (b *ResponseBuilder) ContentType(contentType string) *ResponseBuilder {
	return b.Header(HeaderContentType, contentType)
}

// File uses f as the body and sets Content-Length to its size.
func (b *ResponseBuilder) File(f *os.File) *ResponseBuilder {
	info, err := f.Stat()
	if err != nil {
		if b.err == nil {
			b.err = err
		}
		return b
	}
	b.headers.SetString(HeaderContentLength, strconv.FormatInt(info.Size(), 10))
	b.body = f
	return b
}

// Body uses p as the body. Content-Length is derived from len(p) unless it was
// set explicitly before.
func (b *ResponseBuilder) Body(p []byte) *ResponseBuilder {
	if _, ok := b.headers.Get(HeaderContentLength); !ok {
		b.headers.SetString(HeaderContentLength, strconv.Itoa(len(p)))
	}
	b.body = bytes.NewReader(p)
	return b
}

func (b *ResponseBuilder) BodyString(s string) *ResponseBuilder {
	return b.Body([]byte(s))
}

// Stream uses r as the body without touching Content-Length.
func (b *ResponseBuilder) Stream(r io.Reader) *ResponseBuilder {
	b.body = r
	return b
}

// Build finalizes the response. It fails only if attaching a file failed.
func (b *ResponseBuilder) Build() (*Response, error) {
	if b.err != nil {
		return nil, b.err
	}
	return &Response{status: b.status, headers: b.headers.Clone(), body: b.body}, nil
}
