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
	"io"
)

var ErrBodyClosed = errors.New("protocol: read on closed body")

// BodyReader yields exactly the declared entity length of a request. It first
// replays bytes the parser had already buffered past the header block, then
// reads the rest from the live connection. It cannot be rewound.
type BodyReader struct {
	prefix    []byte
	src       io.Reader
	remaining int64
	closed    bool
}

// NewBodyReader returns a reader over prefix followed by src, truncated to length
// bytes. prefix is owned by the reader afterwards.
func NewBodyReader(prefix []byte, src io.Reader, length int64) *BodyReader {
	if int64(len(prefix)) > length {
		prefix = prefix[:length]
	}
	return &BodyReader{prefix: prefix, src: src, remaining: length}
}

func (b *BodyReader) Read(p []byte) (int, error) {
	if b.closed {
		return 0, ErrBodyClosed
	}
	if b.remaining <= 0 {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}

	if len(b.prefix) > 0 {
		n := copy(p, b.prefix)
		b.prefix = b.prefix[n:]
		b.remaining -= int64(n)
		return n, nil
	}

	if int64(len(p)) > b.remaining {
		p = p[:b.remaining]
	}
	n, err := b.src.Read(p)
	b.remaining -= int64(n)
	if err == io.EOF && b.remaining > 0 {
		err = io.ErrUnexpectedEOF
	}
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}

// Remaining reports how many body bytes have not been read yet.
func (b *BodyReader) Remaining() int64 {
	return b.remaining
}

// Close discards whatever is left of the body so the connection is left at a
// message boundary. Calling Close more than once is a no-op.
func (b *BodyReader) Close() error {
	if b.closed {
		return nil
	}
	var err error
	if b.remaining > 0 {
		_, err = io.Copy(io.Discard, b)
	}
	b.closed = true
	b.prefix = nil
	return err
}
