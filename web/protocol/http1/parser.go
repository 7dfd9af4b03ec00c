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
	"bufio"
	"bytes"
	"errors"
	"io"
	"math"
	"net/url"

	"github.com/caiflower/regate/web/protocol"
)

const (
	// MaxHeaderLineLength caps one header line, not counting its '\n'.
	MaxHeaderLineLength = 1000
	// MaxBodyLength is the largest Content-Length accepted.
	MaxBodyLength = 10000

	readBufferSize = 4096
)

// ParseRequest reads one request from conn. Target paths are resolved against
// base. The returned request's body, if any, keeps reading from conn.
//
// Errors are *protocol.ClientError, *protocol.ServerError or
// *protocol.StreamError.
func ParseRequest(base *url.URL, conn io.Reader) (*protocol.Request, error) {
	br := bufio.NewReaderSize(conn, readBufferSize)

	method, err := readMethod(br)
	if err != nil {
		return nil, err
	}

	rawTarget, err := readTarget(br)
	if err != nil {
		return nil, err
	}

	version, err := readVersion(br)
	if err != nil {
		return nil, err
	}

	headers, err := readHeaders(br)
	if err != nil {
		return nil, err
	}

	var body *protocol.BodyReader
	if raw, ok := headers.Get(protocol.HeaderContentLength); ok {
		if n, ok := parseContentLength(raw); ok {
			if n > MaxBodyLength {
				return nil, protocol.BadRequest("oversized entity body")
			}
			prefix, _ := br.Peek(br.Buffered())
			body = protocol.NewBodyReader(append([]byte(nil), prefix...), conn, n)
		}
	}

	target, err := protocol.ResolveTarget(base, rawTarget)
	if err != nil {
		return nil, protocol.BadRequest("invalid path")
	}

	return protocol.NewRequest(method, version, target, headers, body), nil
}

// readFailure classifies a read error: running out of input or buffer in the
// middle of a request is the client's fault, anything else is an I/O failure.
func readFailure(err error, reason string) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, bufio.ErrBufferFull) {
		return protocol.BadRequest(reason)
	}
	return &protocol.StreamError{Err: err}
}

func readMethod(br *bufio.Reader) (protocol.Method, error) {
	prefix, err := br.Peek(protocol.MethodPrefixLen)
	if err != nil {
		if len(prefix) == 0 && errors.Is(err, io.EOF) {
			return 0, &protocol.StreamError{Err: err}
		}
		return 0, readFailure(err, "truncated request line")
	}

	method, skip, ok := protocol.LookupMethod(prefix)
	if !ok {
		return 0, protocol.NewClientError(protocol.StatusNotImplemented, "unsupported method")
	}
	if _, err = br.Discard(skip); err != nil {
		return 0, readFailure(err, "truncated request line")
	}
	return method, nil
}

// readTarget reads up to the space that ends the target. A line end before it
// is rejected from the bytes at hand instead of waiting for more input.
func readTarget(br *bufio.Reader) (string, error) {
	var target []byte
	for {
		c, err := br.ReadByte()
		if err != nil {
			return "", readFailure(err, "missing request target")
		}
		switch c {
		case ' ':
			return string(target), nil
		case '\n':
			return "", protocol.BadRequest("missing request target")
		}
		if len(target) >= readBufferSize {
			return "", protocol.BadRequest("request target too long")
		}
		target = append(target, c)
	}
}

func readVersion(br *bufio.Reader) (protocol.ProtocolVersion, error) {
	token, err := br.Peek(protocol.VersionTokenLen)
	if err != nil {
		return 0, readFailure(err, "missing protocol version")
	}
	version, ok := protocol.ParseProtocolVersion(token)
	if !ok {
		return 0, protocol.BadRequest("unsupported protocol version")
	}
	if _, err = br.Discard(protocol.VersionTokenLen); err != nil {
		return 0, &protocol.ServerError{Reason: "version token lost after peek"}
	}

	// either "\r\n" or "\n" may end the request line
	for {
		c, err := br.ReadByte()
		if err != nil {
			return 0, readFailure(err, "unterminated request line")
		}
		switch c {
		case ' ', '\t', '\r':
			continue
		case '\n':
			return version, nil
		default:
			return 0, protocol.BadRequest("unsupported protocol version")
		}
	}
}

func readHeaders(br *bufio.Reader) (protocol.Headers, error) {
	var headers protocol.Headers
	for count := 0; ; count++ {
		line, err := readLine(br, MaxHeaderLineLength)
		if err != nil {
			return headers, err
		}
		if len(trimSpace(line)) == 0 {
			return headers, nil
		}
		if count >= protocol.MaxHeaders {
			return headers, protocol.BadRequest("too many headers")
		}

		name, value, err := splitHeaderLine(line)
		if err != nil {
			return headers, err
		}
		headers.Set(protocol.ParseHeaderName(name), value)
	}
}

// readLine returns one line without its '\n'. The result does not alias the
// reader's buffer.
func readLine(br *bufio.Reader, limit int) ([]byte, error) {
	var line []byte
	for {
		chunk, err := br.ReadSlice('\n')
		line = append(line, chunk...)
		if err == nil {
			line = line[:len(line)-1]
			if len(line) > limit {
				return nil, protocol.BadRequest("line too long")
			}
			return line, nil
		}
		if len(line) > limit {
			return nil, protocol.BadRequest("line too long")
		}
		if !errors.Is(err, bufio.ErrBufferFull) {
			return nil, readFailure(err, "unexpected end of headers")
		}
	}
}

func splitHeaderLine(line []byte) ([]byte, []byte, error) {
	colon := bytes.IndexByte(line, ':')
	if colon < 0 {
		return nil, nil, protocol.BadRequest("missing colon in header")
	}
	name := line[:colon]
	if len(name) == 0 {
		return nil, nil, protocol.BadRequest("empty header name")
	}
	for _, c := range name {
		if isSpace(c) {
			return nil, nil, protocol.BadRequest("whitespace in header name")
		}
	}
	value := trimSpace(line[colon+1:])
	if len(value) == 0 {
		return nil, nil, protocol.BadRequest("empty header value")
	}
	return name, value, nil
}

// parseContentLength accepts only plain decimal digits. Values too large for
// an int64 saturate at math.MaxInt64.
func parseContentLength(raw []byte) (int64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var n int64
	for _, c := range raw {
		if c < '0' || c > '9' {
			return 0, false
		}
		d := int64(c - '0')
		if n > (math.MaxInt64-d)/10 {
			n = math.MaxInt64
			continue
		}
		n = n*10 + d
	}
	return n, true
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\v' || c == '\f'
}

func trimSpace(b []byte) []byte {
	for len(b) > 0 && isSpace(b[0]) {
		b = b[1:]
	}
	for len(b) > 0 && isSpace(b[len(b)-1]) {
		b = b[:len(b)-1]
	}
	return b
}
