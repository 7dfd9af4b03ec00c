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

package global

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"

	"github.com/caiflower/regate/pkg/logger"
)

// DefaultResourceManger
// 用于进程的优雅退出，如 HTTP server、cron、日志

type Resource interface {
	Close()
}

type DaemonResource interface {
	Resource
	Name() string
	Start() error
}

const (
	defaultResourceOrder = 1000000000
	defaultDaemonOrder   = 100000
)

type entry struct {
	resource Resource
	daemon   DaemonResource
	order    int
}

func (e *entry) name() string {
	if e.daemon != nil {
		return e.daemon.Name()
	}
	return fmt.Sprintf("%T", e.resource)
}

type resourceManger struct {
	lock    sync.Mutex
	entries []*entry
	started []*entry
	running bool
}

var DefaultResourceManger = NewResourceManger()

func NewResourceManger() *resourceManger {
	return &resourceManger{}
}

func (rm *resourceManger) contains(r Resource) bool {
	for _, e := range rm.entries {
		if e.resource == r {
			return true
		}
	}
	return false
}

// Add registers a resource that only needs closing.
func (rm *resourceManger) Add(resource Resource) {
	rm.AddWithOrder(resource, defaultResourceOrder)
}

func (rm *resourceManger) AddWithOrder(resource Resource, order int) {
	rm.lock.Lock()
	defer rm.lock.Unlock()
	if !rm.contains(resource) {
		rm.entries = append(rm.entries, &entry{resource: resource, order: order})
	}
}

func (rm *resourceManger) AddDaemon(daemon DaemonResource) {
	rm.AddDaemonWithOrder(daemon, defaultDaemonOrder)
}

// AddDaemonWithOrder registers a daemon. Higher orders start first and are
// closed first.
func (rm *resourceManger) AddDaemonWithOrder(daemon DaemonResource, order int) {
	rm.lock.Lock()
	defer rm.lock.Unlock()
	if !rm.contains(daemon) {
		rm.entries = append(rm.entries, &entry{resource: daemon, daemon: daemon, order: order})
	}
}

// Start starts every registered daemon. If one fails, the ones already started
// are closed again and the error is returned.
func (rm *resourceManger) Start() error {
	rm.lock.Lock()
	defer rm.lock.Unlock()
	if rm.running {
		return nil
	}

	sort.SliceStable(rm.entries, func(i, j int) bool {
		return rm.entries[i].order > rm.entries[j].order
	})
	rm.started = rm.started[:0]
	for _, e := range rm.entries {
		if e.daemon != nil {
			if err := e.daemon.Start(); err != nil {
				logger.Error("Start '%s' resource failed. Error: %s", e.name(), err.Error())
				rm.closeStarted()
				return fmt.Errorf("start %s: %w", e.name(), err)
			}
		}
		rm.started = append(rm.started, e)
	}
	rm.running = true
	return nil
}

// Signal starts all resources and blocks until the process receives
// SIGHUP, SIGINT, SIGTERM or SIGQUIT, then closes them.
func (rm *resourceManger) Signal() error {
	if err := rm.Start(); err != nil {
		return err
	}
	sign := make(chan os.Signal, 1)
	signal.Notify(sign, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(sign)

	s := <-sign
	logger.Info("Accept signal %s. The application is shutting down...", s)
	rm.Shutdown()
	return nil
}

// Shutdown closes every started resource once.
func (rm *resourceManger) Shutdown() {
	rm.lock.Lock()
	defer rm.lock.Unlock()
	if rm.running {
		rm.closeStarted()
		rm.running = false
	}
}

func (rm *resourceManger) closeStarted() {
	for _, e := range rm.started {
		e.resource.Close()
	}
	rm.started = rm.started[:0]
}
