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
	"context"
	"net"

	"github.com/caiflower/regate/gateway/bootstrap"
	"github.com/caiflower/regate/gateway/config"
	"github.com/caiflower/regate/gateway/gitcgi"
	"github.com/caiflower/regate/gateway/token"
	"github.com/caiflower/regate/pkg/limiter"
	"github.com/caiflower/regate/pkg/logger"
	"github.com/caiflower/regate/pkg/safego"
	"github.com/caiflower/regate/web/protocol/http1"
)

// Gateway owns the engine and the consumer that feeds exchanges to App.
type Gateway struct {
	config *config.Config
	root   string
	server *http1.Server
	app    *App
	issuer *token.Issuer

	cancel   context.CancelFunc
	consumed chan struct{}
}

// New prepares the repositories on disk and builds every component. Nothing
// listens until Start.
func New(c *config.Config) (*Gateway, error) {
	root, err := bootstrap.Prepare(context.Background(), c)
	if err != nil {
		return nil, err
	}

	store, err := token.NewStore(c.Token)
	if err != nil {
		return nil, err
	}
	var lim limiter.Limiter = limiter.Unlimited{}
	if c.Token.QPS > 0 {
		lim = limiter.NewXTokenBucket(c.Token.QPS, c.Token.Burst)
	}
	issuer := token.NewIssuer(store, lim, c.Token.TTL)

	options := c.Server
	options.EnableMetrics = options.EnableMetrics || c.Metrics.Enable

	return &Gateway{
		config: c,
		root:   root,
		server: http1.NewServer(options),
		app:    NewApp(c, gitcgi.NewBridge(root, c.Git, c.Repos, nil), issuer),
		issuer: issuer,
	}, nil
}

func (g *Gateway) Name() string {
	return "GATEWAY:" + g.server.Name()
}

// Root is the canonical git storage path.
func (g *Gateway) Root() string {
	return g.root
}

func (g *Gateway) Start() error {
	if err := g.server.Start(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	g.cancel = cancel
	g.consumed = make(chan struct{})
	safego.Go(func() {
		defer close(g.consumed)
		if err := g.server.Consume(ctx, g.app.Handle); err != nil && ctx.Err() == nil {
			logger.Error("[gateway] consumer stopped. Error: %s", err.Error())
		}
	})
	return nil
}

// Port is the bound TCP port, useful when the config asked for port 0.
func (g *Gateway) Port() int {
	if addr, ok := g.server.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}

func (g *Gateway) Close() {
	g.server.Close()
	if g.cancel != nil {
		g.cancel()
		<-g.consumed
	}
	g.issuer.Close()
}
