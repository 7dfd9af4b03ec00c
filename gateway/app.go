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

package gateway

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/caiflower/regate/gateway/config"
	"github.com/caiflower/regate/gateway/gitcgi"
	"github.com/caiflower/regate/gateway/token"
	golocalv1 "github.com/caiflower/regate/pkg/golocal/v1"
	"github.com/caiflower/regate/pkg/logger"
	"github.com/caiflower/regate/pkg/tools"
	"github.com/caiflower/regate/web/common/e"
	"github.com/caiflower/regate/web/common/resp"
	"github.com/caiflower/regate/web/protocol"
	"github.com/caiflower/regate/web/protocol/http1"
	"github.com/prometheus/client_golang/prometheus"
)

type tokenRequest struct {
	Name string `json:"name"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// App routes exchanges to the token endpoint, the git bridge and the metrics
// page. Every failure is answered on the exchange's writer.
type App struct {
	bridge      *gitcgi.Bridge
	issuer      *token.Issuer
	metric      *gatewayMetric
	gatherer    prometheus.Gatherer
	metricsPath string
	logger      logger.ILog
}

func NewApp(c *config.Config, bridge *gitcgi.Bridge, issuer *token.Issuer) *App {
	a := &App{
		bridge: bridge,
		issuer: issuer,
		logger: logger.DefaultLogger(),
	}
	if c.Metrics.Enable {
		a.metric = getGatewayMetric()
		a.gatherer = prometheus.DefaultGatherer
		a.metricsPath = c.Metrics.Path
	}
	return a
}

func (a *App) route(method protocol.Method, path string) string {
	parts := strings.Split(path, "/")
	switch {
	case method == protocol.MethodPost && path == "/api/v1/token":
		return routeToken
	case len(parts) >= 4 && parts[0] == "" && parts[1] == "repo" && parts[3] == "index":
		return routeGit
	case a.gatherer != nil && method == protocol.MethodGet && path == a.metricsPath:
		return routeMetrics
	default:
		return routeUnknown
	}
}

// Handle serves one exchange. It is used as the engine's consumer handler.
func (a *App) Handle(ex *http1.Exchange) {
	begin := time.Now()
	req, w := ex.Request, ex.Writer
	route := a.route(req.Method(), req.Path())
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("[gateway] %s %s panic: %v", req.Method(), req.Path(), r)
			_ = w.SendResponse(protocol.Err(protocol.StatusInternalServerError))
		}
		code, ok := w.Status()
		a.metric.handled(route, code, ok, begin)
	}()

	var err error
	switch route {
	case routeToken:
		err = a.handleTokenCreate(ex)
	case routeGit:
		err = a.bridge.Handle(golocalv1.GetContext(), req, w)
	case routeMetrics:
		err = a.handleMetrics(w)
	default:
		err = w.SendResponse(protocol.Err(protocol.StatusNotFound))
	}
	if err != nil {
		a.logger.Warn("[gateway] %s %s failed. Error: %s", req.Method(), req.Path(), err.Error())
	}
}

func (a *App) handleTokenCreate(ex *http1.Exchange) error {
	a.logger.Debug("[gateway] token create request")

	var tr tokenRequest
	body, err := ex.Request.ReadBody()
	if err == nil && len(bytes.TrimSpace(body)) > 0 {
		err = tools.Unmarshal(body, &tr)
	}
	if err != nil {
		a.metric.issued("invalid")
		return ex.Writer.SendResponse(resp.Error(ex.ID, e.NewApiError(e.InvalidArgument, "malformed token request", err)))
	}

	t, err := a.issuer.Issue(context.Background(), tr.Name)
	if err != nil {
		if errors.Is(err, token.ErrRateLimited) {
			a.metric.issued("limited")
			return ex.Writer.SendResponse(resp.Error(ex.ID, e.NewApiError(e.TooManyRequests, "token issue rate exceeded", err)))
		}
		a.metric.issued("failed")
		a.logger.Error("[gateway] issue token failed. Error: %s", err.Error())
		return ex.Writer.SendResponse(resp.Error(ex.ID, e.NewApiError(e.Unavailable, "token store unavailable", err)))
	}
	a.metric.issued("ok")

	r, err := resp.JSON(protocol.StatusOK, &tokenResponse{Token: t})
	if err != nil {
		_ = ex.Writer.SendResponse(protocol.Err(protocol.StatusInternalServerError))
		return err
	}
	return ex.Writer.SendResponse(r)
}

func (a *App) handleMetrics(w http1.ResponseWriter) error {
	body, contentType, err := exposition(a.gatherer)
	if err != nil {
		_ = w.SendResponse(protocol.Err(protocol.StatusInternalServerError))
		return err
	}
	r, err := protocol.NewResponseBuilder(protocol.StatusOK).ContentType(contentType).Body(body).Build()
	if err != nil {
		return err
	}
	return w.SendResponse(r)
}
