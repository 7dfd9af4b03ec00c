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
	"io"
	"net"
	"time"
)

// maxLingerBytes bounds how much unread input is discarded before closing a
// rejected connection.
const maxLingerBytes = 256 << 10

// timeoutConn pushes the read or write deadline forward before every call, so
// the timeouts bound inactivity rather than the whole exchange.
type timeoutConn struct {
	net.Conn
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func newTimeoutConn(conn net.Conn, readTimeout, writeTimeout time.Duration) *timeoutConn {
	return &timeoutConn{Conn: conn, readTimeout: readTimeout, writeTimeout: writeTimeout}
}

func (c *timeoutConn) Read(p []byte) (int, error) {
	if c.readTimeout > 0 {
		_ = c.Conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	}
	return c.Conn.Read(p)
}

func (c *timeoutConn) Write(p []byte) (int, error) {
	if c.writeTimeout > 0 {
		_ = c.Conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.Conn.Write(p)
}

// lingeringClose half-closes the connection and discards what the client is
// still sending, so the peer reads our response instead of a reset.
func (c *timeoutConn) lingeringClose() error {
	if cw, ok := c.Conn.(interface{ CloseWrite() error }); ok {
		_ = cw.CloseWrite()
		linger := c.readTimeout
		if linger <= 0 {
			linger = time.Second
		}
		_ = c.Conn.SetReadDeadline(time.Now().Add(linger))
		_, _ = io.CopyN(io.Discard, c.Conn, maxLingerBytes)
	}
	return c.Conn.Close()
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error {
	return nil
}
