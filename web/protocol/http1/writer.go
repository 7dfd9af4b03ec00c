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
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/caiflower/regate/pkg/logger"
	"github.com/caiflower/regate/web/protocol"
)

// ResponseWriter produces exactly one response. Calls must follow the order
// SetStatus, SetHeaders, then any number of WriteBody/StreamBody. Out of order
// calls fail with *protocol.ContractViolation and write nothing.
type ResponseWriter interface {
	SetStatus(code int) error
	SetHeaders(headers protocol.Headers) error
	WriteBody(p []byte) error
	StreamBody(r io.Reader) error
	// SendResponse must be the first call on the writer.
	SendResponse(resp *protocol.Response) error
	// RawWriter hands out the underlying stream for callers that produce the
	// whole response themselves. The state machine is finished afterwards.
	RawWriter() io.Writer
	// Status returns the code written by SetStatus, if any.
	Status() (int, bool)
	// Close flushes and closes the connection. It is safe to call repeatedly.
	Close() error
}

type writerState uint8

const (
	stateAwaitingStatus writerState = iota
	stateAwaitingHeaders
	stateInBody
)

func (s writerState) String() string {
	switch s {
	case stateAwaitingStatus:
		return "awaiting status"
	case stateAwaitingHeaders:
		return "awaiting headers"
	default:
		return "in body"
	}
}

// ConnWriter is the socket-backed ResponseWriter.
type ConnWriter struct {
	conn    io.WriteCloser
	bw      *bufio.Writer
	version protocol.ProtocolVersion
	logger  logger.ILog

	state     writerState
	status    int
	hasStatus bool
	err       error

	closeOnce sync.Once
	closeErr  error
	onClose   func(status int, ok bool)
}

func NewConnWriter(conn io.WriteCloser, version protocol.ProtocolVersion, log logger.ILog) *ConnWriter {
	if log == nil {
		log = logger.DefaultLogger()
	}
	return &ConnWriter{
		conn:    conn,
		bw:      bufio.NewWriter(conn),
		version: version,
		logger:  log,
	}
}

func (w *ConnWriter) violation(op string) error {
	return &protocol.ContractViolation{Op: op, State: w.state.String()}
}

func (w *ConnWriter) SetStatus(code int) error {
	if w.state != stateAwaitingStatus {
		return w.violation("SetStatus")
	}
	if code < 100 || code > 999 {
		return &protocol.ContractViolation{Op: "SetStatus(" + strconv.Itoa(code) + ")", State: "status code out of range"}
	}

	line := w.version.String() + " " + strconv.Itoa(code)
	if reason := protocol.StatusText(code); reason != "" {
		line += " " + reason
	}
	w.status, w.hasStatus = code, true
	w.state = stateAwaitingHeaders
	return w.write([]byte(line + "\r\n"))
}

func (w *ConnWriter) SetHeaders(headers protocol.Headers) error {
	if w.state != stateAwaitingHeaders {
		return w.violation("SetHeaders")
	}
	block, err := renderHeaders(headers)
	if err != nil {
		return err
	}
	w.state = stateInBody
	return w.write(block)
}

// renderHeaders serializes the header block including its blank line.
func renderHeaders(headers protocol.Headers) ([]byte, error) {
	var buf bytes.Buffer
	var bad *protocol.ContractViolation
	headers.Range(func(name protocol.HeaderName, value []byte) bool {
		n := name.String()
		if n == "" || strings.ContainsAny(n, "\r\n: ") || bytes.ContainsAny(value, "\r\n") {
			bad = &protocol.ContractViolation{Op: "SetHeaders", State: "invalid header " + strconv.Quote(n)}
			return false
		}
		buf.WriteString(n)
		buf.WriteString(": ")
		buf.Write(value)
		buf.WriteString("\r\n")
		return true
	})
	if bad != nil {
		return nil, bad
	}
	buf.WriteString("\r\n")
	return buf.Bytes(), nil
}

// beginBody ends the header block if the caller never set headers.
func (w *ConnWriter) beginBody(op string) error {
	switch w.state {
	case stateInBody:
		return nil
	case stateAwaitingHeaders:
		w.state = stateInBody
		return w.write([]byte("\r\n"))
	default:
		return w.violation(op)
	}
}

func (w *ConnWriter) WriteBody(p []byte) error {
	if err := w.beginBody("WriteBody"); err != nil {
		return err
	}
	return w.write(p)
}

func (w *ConnWriter) StreamBody(r io.Reader) error {
	if err := w.beginBody("StreamBody"); err != nil {
		return err
	}
	if w.err != nil {
		return w.err
	}
	if _, err := io.Copy(w.bw, r); err != nil {
		w.err = err
		return err
	}
	return nil
}

func (w *ConnWriter) SendResponse(resp *protocol.Response) error {
	if w.state != stateAwaitingStatus {
		return w.violation("SendResponse")
	}
	body := resp.Body()
	if c, ok := body.(io.Closer); ok {
		defer c.Close()
	}

	block, err := renderHeaders(resp.Headers())
	if err != nil {
		return err
	}
	if err = w.SetStatus(resp.Status()); err != nil {
		return err
	}
	w.state = stateInBody
	if err = w.write(block); err != nil {
		return err
	}
	if body != nil {
		return w.StreamBody(body)
	}
	return nil
}

func (w *ConnWriter) RawWriter() io.Writer {
	w.state = stateInBody
	return w.bw
}

func (w *ConnWriter) Status() (int, bool) {
	return w.status, w.hasStatus
}

// write keeps the first I/O error; later writes are skipped.
func (w *ConnWriter) write(p []byte) error {
	if w.err != nil {
		return w.err
	}
	if _, err := w.bw.Write(p); err != nil {
		w.err = err
	}
	return w.err
}

func (w *ConnWriter) Close() error {
	w.closeOnce.Do(func() {
		flushErr := w.bw.Flush()
		closeErr := w.conn.Close()
		if flushErr != nil {
			w.closeErr = flushErr
		} else {
			w.closeErr = closeErr
		}

		if w.hasStatus {
			w.logger.Debug("[http1] response finished. status=%d", w.status)
		} else {
			w.logger.Debug("[http1] response finished. status=-")
		}
		if w.onClose != nil {
			w.onClose(w.status, w.hasStatus)
		}
	})
	return w.closeErr
}
