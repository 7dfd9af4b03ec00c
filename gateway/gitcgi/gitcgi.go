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
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caiflower/regate/gateway/config"
	"github.com/caiflower/regate/pkg/logger"
	"github.com/caiflower/regate/pkg/shell"
	"github.com/caiflower/regate/web/protocol"
	"github.com/caiflower/regate/web/protocol/http1"
)

const (
	uploadPackService = "git-upload-pack"
	rawStatusPrefix   = "HTTP/1.0 "
	rawConnection     = "Connection: close\r\n"
)

// Bridge serves git's smart HTTP protocol for the configured repositories by
// running `git http-backend` as a CGI program.
type Bridge struct {
	root    string
	binary  string
	repos   config.Repos
	timeout time.Duration
	logger  logger.ILog
}

// NewBridge serves repos found under root, which should already be
// canonicalized.
func NewBridge(root string, git config.GitConfig, repos config.Repos, log logger.ILog) *Bridge {
	if log == nil {
		log = logger.DefaultLogger()
	}
	return &Bridge{
		root:    root,
		binary:  git.Binary,
		repos:   repos,
		timeout: git.Timeout,
		logger:  log,
	}
}

// cgiPath maps /repo/<name>/index/<rest> to <name> and /<name>/.git/<rest>.
func cgiPath(path string) (string, string, bool) {
	parts := strings.SplitN(path, "/", 5)
	if len(parts) < 5 || parts[1] != "repo" || parts[2] == "" || parts[3] != "index" {
		return "", "", false
	}
	name, rest := parts[2], parts[4]
	return name, "/" + name + "/.git/" + rest, true
}

// Handle answers one git request. Failures that happen before any output was
// produced are answered with a bare status; the returned error is for logging.
func (b *Bridge) Handle(ctx context.Context, req *protocol.Request, w http1.ResponseWriter) error {
	name, pathInfo, ok := cgiPath(req.Path())
	if !ok {
		b.logger.Debug("[gitcgi] bad path in git request: %s", req.Path())
		return w.SendResponse(protocol.Err(protocol.StatusNotFound))
	}
	if _, ok = b.repos[name]; !ok {
		b.logger.Debug("[gitcgi] repo not found: %s", name)
		return w.SendResponse(protocol.Err(protocol.StatusNotFound))
	}
	if service, ok := req.QueryFirstValue("service"); ok && service != uploadPackService {
		b.logger.Debug("[gitcgi] unsupported git service: %s", service)
		return w.SendResponse(protocol.Err(protocol.StatusBadRequest))
	}

	cgiEnv, ok := b.environ(req, pathInfo)
	if !ok {
		b.logger.Debug("[gitcgi] bad content-length")
		return w.SendResponse(protocol.Err(protocol.StatusBadRequest))
	}

	body := req.TakeBody()
	if body != nil {
		defer body.Close()
	}

	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}
	cmd := &shell.Command{
		Name:     b.binary,
		Args:     []string{"http-backend"},
		Env:      cgiEnv,
		ClearEnv: true,
		Stdin:    body,
	}
	result, err := cmd.Run(ctx)
	if err != nil {
		_ = w.SendResponse(protocol.Err(protocol.StatusInternalServerError))
		return fmt.Errorf("spawning git backend: %w", err)
	}
	if result.ExitCode != 0 {
		b.logger.Error("[gitcgi] error in git backend: %s", result.Errout.String())
		_ = w.SendResponse(protocol.Err(protocol.StatusInternalServerError))
		return fmt.Errorf("git backend exited with status %d", result.ExitCode)
	}
	if result.Errout.Len() > 0 {
		b.logger.Debug("[gitcgi] git stderr: %s", result.Errout.String())
	}

	status, output := splitCGIStatus(result.Stdout.Bytes())
	raw := w.RawWriter()
	if _, err = io.WriteString(raw, rawStatusPrefix+status+"\r\n"+rawConnection); err != nil {
		return err
	}
	_, err = raw.Write(output)
	return err
}

// environ builds the CGI environment. Only PATH and HOME are inherited so that
// a stray GIT_HTTP_EXPORT_ALL cannot expose unmarked repositories.
func (b *Bridge) environ(req *protocol.Request, pathInfo string) ([]string, bool) {
	var cgiEnv []string
	for _, key := range []string{"PATH", "HOME"} {
		if v, ok := os.LookupEnv(key); ok {
			cgiEnv = append(cgiEnv, key+"="+v)
		}
	}

	cgiEnv = append(cgiEnv,
		"GIT_PROJECT_ROOT="+b.root,
		"REQUEST_METHOD="+req.Method().String(),
		"PATH_INFO="+pathInfo,
	)
	if query, ok := req.QueryString(); ok {
		cgiEnv = append(cgiEnv, "QUERY_STRING="+query)
	}
	if raw, ok := req.Header(protocol.HeaderContentLength); ok {
		n, err := strconv.ParseUint(strings.TrimSpace(string(raw)), 10, 64)
		if err != nil {
			return nil, false
		}
		cgiEnv = append(cgiEnv, "CONTENT_LENGTH="+strconv.FormatUint(n, 10))
	}
	if contentType, ok := req.Header(protocol.HeaderContentType); ok {
		cgiEnv = append(cgiEnv, "CONTENT_TYPE="+string(contentType))
	}

	b.logger.Debug("[gitcgi] env: %v", cgiEnv)
	return cgiEnv, true
}

// splitCGIStatus pulls a "Status:" line out of the CGI header block. It returns
// "200" and the output unchanged when there is none.
func splitCGIStatus(out []byte) (string, []byte) {
	pos := 0
	for pos < len(out) {
		end := bytes.IndexByte(out[pos:], '\n')
		if end < 0 {
			break
		}
		line := bytes.TrimRight(out[pos:pos+end], "\r")
		if len(line) == 0 {
			break
		}
		if name, value, ok := bytes.Cut(line, []byte(":")); ok && strings.EqualFold(string(name), "Status") {
			status := string(bytes.TrimSpace(value))
			if !validStatus(status) {
				break
			}
			rest := make([]byte, 0, len(out)-end-1)
			rest = append(rest, out[:pos]...)
			rest = append(rest, out[pos+end+1:]...)
			return status, rest
		}
		pos += end + 1
	}
	return "200", out
}

func validStatus(status string) bool {
	if len(status) < 3 || (len(status) > 3 && status[3] != ' ') {
		return false
	}
	code, err := strconv.Atoi(status[:3])
	return err == nil && code >= 100
}
