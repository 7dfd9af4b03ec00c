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

type Method uint8

const (
	MethodGet Method = iota + 1
	MethodPut
	MethodDelete
	MethodPost
	MethodOptions
)

func (m Method) String() string {
	switch m {
	case MethodGet:
		return "GET"
	case MethodPut:
		return "PUT"
	case MethodDelete:
		return "DELETE"
	case MethodPost:
		return "POST"
	case MethodOptions:
		return "OPTIONS"
	default:
		return "UNKNOWN"
	}
}

// MethodPrefixLen is how many leading bytes of a request line identify its method.
const MethodPrefixLen = 3

type methodEntry struct {
	prefix string
	method Method
	skip   int
}

// skip covers the verb and the single space that follows it.
var methodTable = [...]methodEntry{
	{prefix: "GET", method: MethodGet, skip: len("GET ")},
	{prefix: "PUT", method: MethodPut, skip: len("PUT ")},
	{prefix: "POS", method: MethodPost, skip: len("POST ")},
	{prefix: "DEL", method: MethodDelete, skip: len("DELETE ")},
	{prefix: "OPT", method: MethodOptions, skip: len("OPTIONS ")},
}

// LookupMethod classifies a request line by its first MethodPrefixLen bytes and
// reports how many bytes to skip to reach the request target.
func LookupMethod(prefix []byte) (Method, int, bool) {
	if len(prefix) < MethodPrefixLen {
		return 0, 0, false
	}
	for _, e := range methodTable {
		if string(prefix[:MethodPrefixLen]) == e.prefix {
			return e.method, e.skip, true
		}
	}
	return 0, 0, false
}

type ProtocolVersion uint8

const (
	HTTP10 ProtocolVersion = iota + 1
	HTTP11
)

const (
	http10Token = "HTTP/1.0"
	http11Token = "HTTP/1.1"
)

// VersionTokenLen is the length of every accepted version token.
const VersionTokenLen = len(http10Token)

func (v ProtocolVersion) String() string {
	switch v {
	case HTTP10:
		return http10Token
	case HTTP11:
		return http11Token
	default:
		return ""
	}
}

// ParseProtocolVersion accepts exactly "HTTP/1.0" or "HTTP/1.1".
func ParseProtocolVersion(token []byte) (ProtocolVersion, bool) {
	switch string(token) {
	case http10Token:
		return HTTP10, true
	case http11Token:
		return HTTP11, true
	default:
		return 0, false
	}
}
