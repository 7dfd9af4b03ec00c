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

// MaxHeaders is the largest number of header fields a request may carry.
const MaxHeaders = 100

type knownHeader uint8

const (
	otherHeader knownHeader = iota
	hostHeader
	userAgentHeader
	acceptHeader
	contentTypeHeader
	contentLengthHeader
	authorizationHeader
	cacheControlHeader
	knownHeaderEnd
)

var knownHeaderNames = [knownHeaderEnd]string{
	otherHeader:         "",
	hostHeader:          "Host",
	userAgentHeader:     "User-Agent",
	acceptHeader:        "Accept",
	contentTypeHeader:   "Content-Type",
	contentLengthHeader: "Content-Length",
	authorizationHeader: "Authorization",
	cacheControlHeader:  "Cache-Control",
}

// HeaderName identifies a header field. Well-known names compare equal no matter
// how they were spelled on the wire; any other name is kept byte for byte.
type HeaderName struct {
	known knownHeader
	raw   string
}

var (
	HeaderHost          = HeaderName{known: hostHeader}
	HeaderUserAgent     = HeaderName{known: userAgentHeader}
	HeaderAccept        = HeaderName{known: acceptHeader}
	HeaderContentType   = HeaderName{known: contentTypeHeader}
	HeaderContentLength = HeaderName{known: contentLengthHeader}
	HeaderAuthorization = HeaderName{known: authorizationHeader}
	HeaderCacheControl  = HeaderName{known: cacheControlHeader}
)

// ParseHeaderName matches raw against the well-known names ignoring ASCII case.
// Unmatched names fall back to an Other name holding raw verbatim.
func ParseHeaderName(raw []byte) HeaderName {
	for k := hostHeader; k < knownHeaderEnd; k++ {
		if equalFoldASCII(raw, knownHeaderNames[k]) {
			return HeaderName{known: k}
		}
	}
	return HeaderName{raw: string(raw)}
}

// OtherHeader builds a name outside the well-known set, e.g. for response-only
// fields such as "Connection". Well-known spellings are still folded.
func OtherHeader(name string) HeaderName {
	return ParseHeaderName([]byte(name))
}

func (n HeaderName) IsOther() bool {
	return n.known == otherHeader
}

// String returns the name as written on the wire.
func (n HeaderName) String() string {
	if n.known == otherHeader {
		return n.raw
	}
	return knownHeaderNames[n.known]
}

func equalFoldASCII(b []byte, s string) bool {
	if len(b) != len(s) {
		return false
	}
	for i := 0; i < len(b); i++ {
		if lowerASCII(b[i]) != lowerASCII(s[i]) {
			return false
		}
	}
	return true
}

func lowerASCII(c byte) byte {
	if 'A' <= c && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

type headerField struct {
	name  HeaderName
	value []byte
}

// Headers maps a HeaderName to a single raw value. The zero value is an empty
// set ready to use. Fields iterate in first-insertion order. A set holds at
// most MaxHeaders distinct names.
type Headers struct {
	fields []headerField
}

// Set stores value under name, replacing any previous value. It reports false
// when name is new and the set is already full.
func (h *Headers) Set(name HeaderName, value []byte) bool {
	for i := range h.fields {
		if h.fields[i].name == name {
			h.fields[i].value = value
			return true
		}
	}
	if len(h.fields) >= MaxHeaders {
		return false
	}
	h.fields = append(h.fields, headerField{name: name, value: value})
	return true
}

func (h *Headers) SetString(name HeaderName, value string) bool {
	return h.Set(name, []byte(value))
}

func (h Headers) Get(name HeaderName) ([]byte, bool) {
	for i := range h.fields {
		if h.fields[i].name == name {
			return h.fields[i].value, true
		}
	}
	return nil, false
}

func (h *Headers) Del(name HeaderName) {
	for i := range h.fields {
		if h.fields[i].name == name {
			h.fields = append(h.fields[:i], h.fields[i+1:]...)
			return
		}
	}
}

func (h Headers) Len() int {
	return len(h.fields)
}

// Range calls fn for every field until fn returns false.
func (h Headers) Range(fn func(name HeaderName, value []byte) bool) {
	for _, f := range h.fields {
		if !fn(f.name, f.value) {
			return
		}
	}
}

// Clone returns a deep copy.
func (h Headers) Clone() Headers {
	c := Headers{fields: make([]headerField, len(h.fields))}
	for i, f := range h.fields {
		c.fields[i] = headerField{name: f.name, value: append([]byte(nil), f.value...)}
	}
	return c
}
