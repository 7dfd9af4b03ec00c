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

package gitcgi

import (
	"bytes"
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/caiflower/regate/gateway/config"
	"github.com/caiflower/regate/web/protocol"
	"github.com/caiflower/regate/web/protocol/http1"
	"github.com/stretchr/testify/assert"
)

// fakeGit stands in for `git http-backend`: it echoes its CGI environment and
// stdin, and fails or reports a status depending on PATH_INFO.
const fakeGit = `#!/bin/sh
[ "$1" = "http-backend" ] || exit 3
case "$PATH_INFO" in
  *fail*) echo "fatal: broken" >&2; exit 1 ;;
  *missing*) printf 'Status: 404 Not Found\r\nContent-Type: text/plain\r\n\r\nnot found\n'; exit 0 ;;
esac
printf 'Content-Type: text/plain\r\n\r\n'
echo "PATH_INFO=$PATH_INFO"
echo "QUERY_STRING=${QUERY_STRING-unset}"
echo "REQUEST_METHOD=$REQUEST_METHOD"
echo "GIT_PROJECT_ROOT=$GIT_PROJECT_ROOT"
echo "CONTENT_LENGTH=${CONTENT_LENGTH-unset}"
echo "CONTENT_TYPE=${CONTENT_TYPE-unset}"
echo "EXPORT_ALL=${GIT_HTTP_EXPORT_ALL-unset}"
printf 'BODY='
cat
`

type sink struct {
	bytes.Buffer
}

func (s *sink) Close() error {
	return nil
}

func newBridge(t *testing.T) *Bridge {
	dir := t.TempDir()
	script := filepath.Join(dir, "git")
	if err := os.WriteFile(script, []byte(fakeGit), 0755); err != nil {
		t.Fatalf("write fake git failed: %v", err)
	}
	repos := config.Repos{"crates": {Name: "crates"}}
	return NewBridge("/srv/git", config.GitConfig{Binary: script, Timeout: 10 * time.Second}, repos, nil)
}

func newRequest(t *testing.T, method protocol.Method, target string, headers protocol.Headers, body string) *protocol.Request {
	base, _ := url.Parse("http://127.0.0.1:8080")
	resolved, err := protocol.ResolveTarget(base, target)
	if err != nil {
		t.Fatalf("resolve target failed: %v", err)
	}
	var br *protocol.BodyReader
	if body != "" {
		br = protocol.NewBodyReader(nil, strings.NewReader(body), int64(len(body)))
	}
	return protocol.NewRequest(method, protocol.HTTP11, resolved, headers, br)
}

func serve(t *testing.T, b *Bridge, req *protocol.Request) (string, error) {
	out := &sink{}
	w := http1.NewConnWriter(out, protocol.HTTP10, nil)
	err := b.Handle(context.Background(), req, w)
	_ = w.Close()
	return out.String(), err
}

func TestCGIPath(t *testing.T) {
	name, pathInfo, ok := cgiPath("/repo/crates/index/info/refs")
	assert.True(t, ok)
	assert.Equal(t, "crates", name)
	assert.Equal(t, "/crates/.git/info/refs", pathInfo)

	_, pathInfo, ok = cgiPath("/repo/crates/index/")
	assert.True(t, ok)
	assert.Equal(t, "/crates/.git/", pathInfo)

	for _, path := range []string{"/repo/crates/index", "/repo/crates", "/repo//index/x", "/api/crates/index/x"} {
		_, _, ok = cgiPath(path)
		assert.False(t, ok, path)
	}
}

func TestHandleInfoRefs(t *testing.T) {
	b := newBridge(t)
	out, err := serve(t, b, newRequest(t, protocol.MethodGet, "/repo/crates/index/info/refs?service=git-upload-pack", protocol.Headers{}, ""))
	assert.Nil(t, err)

	assert.True(t, strings.HasPrefix(out, "HTTP/1.0 200\r\nConnection: close\r\nContent-Type: text/plain\r\n\r\n"), out)
	assert.Contains(t, out, "PATH_INFO=/crates/.git/info/refs\n")
	assert.Contains(t, out, "QUERY_STRING=service=git-upload-pack\n")
	assert.Contains(t, out, "REQUEST_METHOD=GET\n")
	assert.Contains(t, out, "GIT_PROJECT_ROOT=/srv/git\n")
	assert.Contains(t, out, "CONTENT_LENGTH=unset\n")
	assert.Contains(t, out, "EXPORT_ALL=unset\n")
	assert.True(t, strings.HasSuffix(out, "BODY="))
}

func TestHandleUploadPack(t *testing.T) {
	b := newBridge(t)
	var h protocol.Headers
	h.SetString(protocol.HeaderContentLength, "9")
	h.SetString(protocol.HeaderContentType, "application/x-git-upload-pack-request")

	out, err := serve(t, b, newRequest(t, protocol.MethodPost, "/repo/crates/index/git-upload-pack", h, "0000done\n"))
	assert.Nil(t, err)
	assert.Contains(t, out, "QUERY_STRING=unset\n")
	assert.Contains(t, out, "REQUEST_METHOD=POST\n")
	assert.Contains(t, out, "CONTENT_LENGTH=9\n")
	assert.Contains(t, out, "CONTENT_TYPE=application/x-git-upload-pack-request\n")
	assert.True(t, strings.HasSuffix(out, "BODY=0000done\n"))
}

func TestHandleExportAllIsNotInherited(t *testing.T) {
	old, had := os.LookupEnv("GIT_HTTP_EXPORT_ALL")
	_ = os.Setenv("GIT_HTTP_EXPORT_ALL", "1")
	defer func() {
		if had {
			_ = os.Setenv("GIT_HTTP_EXPORT_ALL", old)
		} else {
			_ = os.Unsetenv("GIT_HTTP_EXPORT_ALL")
		}
	}()

	out, err := serve(t, newBridge(t), newRequest(t, protocol.MethodGet, "/repo/crates/index/HEAD", protocol.Headers{}, ""))
	assert.Nil(t, err)
	assert.Contains(t, out, "EXPORT_ALL=unset\n")
}

func TestHandleCGIStatus(t *testing.T) {
	out, err := serve(t, newBridge(t), newRequest(t, protocol.MethodGet, "/repo/crates/index/missing", protocol.Headers{}, ""))
	assert.Nil(t, err)
	assert.Equal(t, "HTTP/1.0 404 Not Found\r\nConnection: close\r\nContent-Type: text/plain\r\n\r\nnot found\n", out)
}

func TestHandleRejections(t *testing.T) {
	b := newBridge(t)
	cases := []struct {
		target string
		want   string
	}{
		{"/repo/crates/index", "HTTP/1.0 404 Not Found\r\n\r\n"},
		{"/repo/unknown/index/info/refs", "HTTP/1.0 404 Not Found\r\n\r\n"},
		{"/repo/crates/index/info/refs?service=git-receive-pack", "HTTP/1.0 400 Bad Request\r\n\r\n"},
	}
	for _, c := range cases {
		out, err := serve(t, b, newRequest(t, protocol.MethodGet, c.target, protocol.Headers{}, ""))
		assert.Nil(t, err, c.target)
		assert.Equal(t, c.want, out, c.target)
	}

	var h protocol.Headers
	h.SetString(protocol.HeaderContentLength, "ten")
	out, err := serve(t, b, newRequest(t, protocol.MethodPost, "/repo/crates/index/git-upload-pack", h, ""))
	assert.Nil(t, err)
	assert.Equal(t, "HTTP/1.0 400 Bad Request\r\n\r\n", out)
}

func TestHandleBackendFailure(t *testing.T) {
	out, err := serve(t, newBridge(t), newRequest(t, protocol.MethodGet, "/repo/crates/index/fail", protocol.Headers{}, ""))
	assert.NotNil(t, err)
	assert.Equal(t, "HTTP/1.0 500 Internal Server Error\r\n\r\n", out)
}

func TestHandleMissingBinary(t *testing.T) {
	b := NewBridge("/srv/git", config.GitConfig{Binary: filepath.Join(t.TempDir(), "no-git")}, config.Repos{"crates": {Name: "crates"}}, nil)
	out, err := serve(t, b, newRequest(t, protocol.MethodGet, "/repo/crates/index/HEAD", protocol.Headers{}, ""))
	assert.NotNil(t, err)
	assert.Equal(t, "HTTP/1.0 500 Internal Server Error\r\n\r\n", out)
}

func TestSplitCGIStatus(t *testing.T) {
	status, rest := splitCGIStatus([]byte("Content-Type: a\r\n\r\nStatus: 500\r\n"))
	assert.Equal(t, "200", status)
	assert.Equal(t, "Content-Type: a\r\n\r\nStatus: 500\r\n", string(rest))

	status, rest = splitCGIStatus([]byte("Expires: 0\nstatus: 403 Forbidden\n\nbody"))
	assert.Equal(t, "403 Forbidden", status)
	assert.Equal(t, "Expires: 0\n\nbody", string(rest))

	status, _ = splitCGIStatus([]byte("Status: bogus\r\n\r\n"))
	assert.Equal(t, "200", status)
}
