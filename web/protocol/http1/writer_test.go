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

package http1

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/caiflower/regate/web/protocol"
	"github.com/stretchr/testify/assert"
)

type sink struct {
	bytes.Buffer
	closed int
}

func (s *sink) Close() error {
	s.closed++
	return nil
}

func newTestWriter(version protocol.ProtocolVersion) (*ConnWriter, *sink) {
	s := &sink{}
	return NewConnWriter(s, version, nil), s
}

func TestSendResponseExactBytes(t *testing.T) {
	w, s := newTestWriter(protocol.HTTP10)
	resp, err := protocol.NewResponseBuilder(200).BodyString("Hello world").Build()
	assert.Nil(t, err)

	assert.Nil(t, w.SendResponse(resp))
	assert.Nil(t, w.Close())
	assert.Equal(t, "HTTP/1.0 200 OK\r\nContent-Length: 11\r\n\r\nHello world", s.String())
	assert.Equal(t, 1, s.closed)

	code, ok := w.Status()
	assert.True(t, ok)
	assert.Equal(t, 200, code)
}

func TestSendBareError(t *testing.T) {
	w, s := newTestWriter(protocol.HTTP11)
	assert.Nil(t, w.SendResponse(protocol.Err(404)))
	assert.Nil(t, w.Close())
	assert.Equal(t, "HTTP/1.1 404 Not Found\r\n\r\n", s.String())
}

func TestUnknownStatusHasNoReason(t *testing.T) {
	w, s := newTestWriter(protocol.HTTP10)
	assert.Nil(t, w.SetStatus(299))
	assert.Nil(t, w.Close())
	assert.Equal(t, "HTTP/1.0 299\r\n", s.String())
}

func TestStepByStep(t *testing.T) {
	w, s := newTestWriter(protocol.HTTP10)
	var h protocol.Headers
	h.SetString(protocol.HeaderContentType, "text/plain")
	h.SetString(protocol.OtherHeader("Connection"), "close")

	assert.Nil(t, w.SetStatus(201))
	assert.Nil(t, w.SetHeaders(h))
	assert.Nil(t, w.WriteBody([]byte("abc")))
	assert.Nil(t, w.StreamBody(strings.NewReader("def")))
	assert.Nil(t, w.Close())
	assert.Equal(t, "HTTP/1.0 201 Created\r\nContent-Type: text/plain\r\nConnection: close\r\n\r\nabcdef", s.String())
}

func TestImplicitHeaderTerminator(t *testing.T) {
	w, s := newTestWriter(protocol.HTTP10)
	assert.Nil(t, w.SetStatus(200))
	assert.Nil(t, w.WriteBody([]byte("x")))
	assert.Nil(t, w.Close())
	assert.Equal(t, "HTTP/1.0 200 OK\r\n\r\nx", s.String())
}

func TestContractViolations(t *testing.T) {
	w, s := newTestWriter(protocol.HTTP10)
	assert.True(t, protocol.IsContractViolation(w.WriteBody([]byte("x"))))
	assert.True(t, protocol.IsContractViolation(w.StreamBody(strings.NewReader("x"))))
	assert.True(t, protocol.IsContractViolation(w.SetHeaders(protocol.Headers{})))
	assert.True(t, protocol.IsContractViolation(w.SetStatus(42)))
	assert.True(t, protocol.IsContractViolation(w.SetStatus(1000)))

	assert.Nil(t, w.SetStatus(200))
	assert.True(t, protocol.IsContractViolation(w.SetStatus(200)))
	assert.True(t, protocol.IsContractViolation(w.SendResponse(protocol.Ok())))
	assert.Nil(t, w.SetHeaders(protocol.Headers{}))
	assert.True(t, protocol.IsContractViolation(w.SetHeaders(protocol.Headers{})))
	assert.Nil(t, w.Close())

	assert.Equal(t, "HTTP/1.0 200 OK\r\n\r\n", s.String())
}

func TestInvalidHeaderWritesNothing(t *testing.T) {
	w, s := newTestWriter(protocol.HTTP10)
	resp, _ := protocol.NewResponseBuilder(200).Header(protocol.OtherHeader("X-Bad"), "a\r\nInjected: yes").Build()
	assert.True(t, protocol.IsContractViolation(w.SendResponse(resp)))
	_, ok := w.Status()
	assert.False(t, ok)
	assert.Nil(t, w.Close())
	assert.Equal(t, "", s.String())
}

func TestRawWriter(t *testing.T) {
	w, s := newTestWriter(protocol.HTTP10)
	raw := w.RawWriter()
	_, err := io.WriteString(raw, "HTTP/1.0 200\r\nConnection: close\r\n")
	assert.Nil(t, err)
	assert.True(t, protocol.IsContractViolation(w.SetStatus(200)))
	assert.Nil(t, w.Close())
	assert.Equal(t, "HTTP/1.0 200\r\nConnection: close\r\n", s.String())

	_, ok := w.Status()
	assert.False(t, ok)
}

type closingReader struct {
	io.Reader
	closed bool
}

func (c *closingReader) Close() error {
	c.closed = true
	return nil
}

func TestSendResponseClosesBody(t *testing.T) {
	w, s := newTestWriter(protocol.HTTP10)
	body := &closingReader{Reader: strings.NewReader("file")}
	resp, _ := protocol.NewResponseBuilder(200).Stream(body).Build()
	assert.Nil(t, w.SendResponse(resp))
	assert.True(t, body.closed)
	assert.Nil(t, w.Close())
	assert.Equal(t, "HTTP/1.0 200 OK\r\n\r\nfile", s.String())
}

func TestCloseOnce(t *testing.T) {
	w, s := newTestWriter(protocol.HTTP10)
	calls := 0
	w.onClose = func(status int, ok bool) {
		calls++
		assert.False(t, ok)
	}
	assert.Nil(t, w.Close())
	assert.Nil(t, w.Close())
	assert.Equal(t, 1, s.closed)
	assert.Equal(t, 1, calls)
}

type brokenConn struct{}

func (brokenConn) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }
func (brokenConn) Close() error              { return nil }

func TestWriteErrorIsSticky(t *testing.T) {
	w := NewConnWriter(brokenConn{}, protocol.HTTP10, nil)
	big := bytes.Repeat([]byte("x"), 8192)
	assert.Nil(t, w.SetStatus(200))
	err := w.WriteBody(big)
	assert.NotNil(t, err)
	assert.False(t, protocol.IsContractViolation(err))
	assert.Equal(t, err, w.WriteBody([]byte("more")))
	assert.NotNil(t, w.Close())
}
