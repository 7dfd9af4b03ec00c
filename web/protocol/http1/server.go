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
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"runtime/debug"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	golocalv1 "github.com/caiflower/regate/pkg/golocal/v1"
	"github.com/caiflower/regate/pkg/logger"
	"github.com/caiflower/regate/pkg/tools"
	"github.com/caiflower/regate/web/protocol"
	"github.com/caiflower/regate/web/server/config"
)

var errAlreadyConsuming = errors.New("http1: server already has a consumer")

// Exchange pairs a parsed request with the writer for its connection. The
// consumer must Close it once the response is done.
type Exchange struct {
	ID      string
	Request *protocol.Request
	Writer  ResponseWriter

	once    sync.Once
	release func()
}

// Close drains any unread request body, flushes and closes the connection.
func (ex *Exchange) Close() error {
	var err error
	ex.once.Do(func() {
		_ = ex.Request.Close()
		err = ex.Writer.Close()
		if ex.release != nil {
			ex.release()
		}
	})
	return err
}

type Handler func(ex *Exchange)

type Server struct {
	options config.Options
	logger  logger.ILog
	metric  *httpMetric
	version protocol.ProtocolVersion

	base     *url.URL
	listener net.Listener

	queue        chan *Exchange
	slots        chan struct{}
	done         chan struct{}
	consumerDone chan struct{}
	consuming    int32

	wg        sync.WaitGroup
	closeOnce sync.Once
}

func NewServer(options config.Options) *Server {
	_ = tools.SetDefaults(&options)

	version, ok := protocol.ParseProtocolVersion([]byte(options.ResponseProtocol))
	if !ok {
		version = protocol.HTTP10
	}

	s := &Server{
		options:      options,
		logger:       logger.DefaultLogger(),
		version:      version,
		queue:        make(chan *Exchange, options.QueueSize),
		slots:        make(chan struct{}, options.MaxConnections),
		done:         make(chan struct{}),
		consumerDone: make(chan struct{}),
	}
	if options.EnableMetrics {
		s.metric = getHttpMetric()
	}
	return s
}

// Serve binds options.Addr and starts accepting. Bind failures are returned as
// *protocol.BindError.
func Serve(options config.Options) (*Server, error) {
	s := NewServer(options)
	if err := s.Start(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) Name() string {
	return fmt.Sprintf("HTTP1_SERVER:%s", s.options.Name)
}

func (s *Server) Start() error {
	base, err := protocol.ParseBaseURL(s.options.Addr)
	if err != nil {
		return &protocol.BindError{Addr: s.options.Addr, Err: err}
	}
	listener, err := net.Listen("tcp", base.Host)
	if err != nil {
		return &protocol.BindError{Addr: s.options.Addr, Err: err}
	}
	s.listener = listener

	// keep the base in step with the port the kernel picked for ":0"
	if addr, ok := listener.Addr().(*net.TCPAddr); ok && base.Port() == "0" {
		base.Host = net.JoinHostPort(base.Hostname(), strconv.Itoa(addr.Port))
	}
	s.base = base

	s.logger.Info(
		"\n***************************** http1 server startup ********************************************\n"+
			"************* web service [name:%s] [protocol:%s] listening on %s *********\n"+
			"*************************************************************************************************", s.options.Name, s.version, listener.Addr())

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Addr is the bound listener address.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// BaseURL returns a copy of the authority request targets are resolved against.
func (s *Server) BaseURL() *url.URL {
	if s.base == nil {
		return nil
	}
	u := *s.base
	return &u
}

// Exchanges exposes the handoff queue for callers that drive consumption
// themselves. Use either this or Consume, not both.
func (s *Server) Exchanges() <-chan *Exchange {
	return s.queue
}

// Consume runs handler for every published exchange on options.Workers
// goroutines until ctx is done or the server is closed. Each exchange is closed
// after its handler returns. Only one Consume call is allowed per server; once
// it returns, publishing further exchanges is a fatal error.
func (s *Server) Consume(ctx context.Context, handler Handler) error {
	if !atomic.CompareAndSwapInt32(&s.consuming, 0, 1) {
		return errAlreadyConsuming
	}
	defer close(s.consumerDone)

	var wg sync.WaitGroup
	for i := 0; i < s.options.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-s.done:
					return
				case ex := <-s.queue:
					s.metric.dequeued(s.options.Name)
					s.handle(ex, handler)
				}
			}
		}()
	}
	wg.Wait()

	select {
	case <-s.done:
		return nil
	default:
		return ctx.Err()
	}
}

func (s *Server) handle(ex *Exchange, handler Handler) {
	golocalv1.PutTraceID(ex.ID)
	defer golocalv1.Clean()
	defer ex.Close()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("[http1] handler panic: %v\n%s", r, debug.Stack())
			_ = ex.Writer.SendResponse(protocol.Err(protocol.StatusInternalServerError))
		}
	}()

	handler(ex)
}

func (s *Server) Close() {
	s.closeOnce.Do(func() {
		s.logger.Info("      **** http1 server shutdown ****")
		close(s.done)
		if s.listener != nil {
			_ = s.listener.Close()
		}
		s.wg.Wait()

		for {
			select {
			case ex := <-s.queue:
				s.metric.dequeued(s.options.Name)
				_ = ex.Close()
			default:
				return
			}
		}
	})
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		select {
		case s.slots <- struct{}{}:
		case <-s.done:
			return
		}

		conn, err := s.listener.Accept()
		if err != nil {
			<-s.slots
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Error("[http1] accept failed. Error: %s", err.Error())
			time.Sleep(10 * time.Millisecond)
			continue
		}

		s.wg.Add(1)
		go s.serveConn(conn)
	}
}

func (s *Server) serveConn(conn net.Conn) {
	defer s.wg.Done()

	begin := time.Now()
	id := tools.UUID()
	golocalv1.PutTraceID(id)
	defer golocalv1.Clean()

	s.metric.connOpened(s.options.Name)
	var released int32
	release := func() {
		if atomic.CompareAndSwapInt32(&released, 0, 1) {
			s.metric.connClosed(s.options.Name, begin)
			<-s.slots
		}
	}

	tc := newTimeoutConn(conn, s.options.ReadTimeout, s.options.WriteTimeout)
	req, err := ParseRequest(s.base, tc)
	if err != nil {
		s.reject(tc, err)
		release()
		return
	}
	s.logger.Debug("[http1] %s %s %s from %s", req.Method(), req.Path(), req.Version(), conn.RemoteAddr())

	w := NewConnWriter(tc, s.version, s.logger)
	w.onClose = func(status int, ok bool) {
		s.metric.responded(s.options.Name, status, ok)
	}
	s.publish(&Exchange{ID: id, Request: req, Writer: w, release: release}, req.Method())
}

// reject answers a failed parse. Client and server faults get a bare status
// response; stream failures get nothing.
func (s *Server) reject(conn *timeoutConn, err error) {
	code := protocol.StatusOf(err)
	s.metric.rejected(s.options.Name, code)

	if code == 0 {
		s.logger.Warn("[http1] dropped connection from %s. Error: %s", conn.RemoteAddr(), err.Error())
		_ = conn.Close()
		return
	}

	s.logger.Warn("[http1] rejected request from %s with %d. Error: %s", conn.RemoteAddr(), code, err.Error())
	w := NewConnWriter(nopCloser{conn}, s.version, s.logger)
	if werr := w.SendResponse(protocol.Err(code)); werr != nil {
		s.logger.Warn("[http1] write error response failed. Error: %s", werr.Error())
	}
	_ = w.Close()
	s.metric.responded(s.options.Name, code, true)
	_ = conn.lingeringClose()
}

// publish hands ex to the consumer. A consumer that has already returned can
// never drain the queue again, which the server treats as fatal.
func (s *Server) publish(ex *Exchange, method protocol.Method) {
	select {
	case <-s.consumerDone:
		s.failPublish(ex)
		return
	default:
	}

	select {
	case s.queue <- ex:
		s.metric.published(s.options.Name, method.String())
	case <-s.done:
		_ = ex.Close()
	case <-s.consumerDone:
		s.failPublish(ex)
	}
}

func (s *Server) failPublish(ex *Exchange) {
	select {
	case <-s.done:
		_ = ex.Close()
		return
	default:
	}
	_ = ex.Close()
	panic("http1: request consumer has terminated")
}
