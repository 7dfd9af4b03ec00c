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
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/caiflower/regate/gateway/config"
	"github.com/caiflower/regate/pkg/crontab"
	"github.com/caiflower/regate/pkg/logger"
	"github.com/caiflower/regate/pkg/pool"
	"github.com/caiflower/regate/pkg/shell"
	"github.com/robfig/cron/v3"
)

// Maintenance periodically refreshes the auxiliary files dumb git clients rely
// on by running `git update-server-info` in every repository.
type Maintenance struct {
	cron  *crontab.CronManger
	spec  string
	root  string
	git   config.GitConfig
	repos []string
	entry cron.EntryID

	parallel int
}

func NewMaintenance(root string, c *config.Config) *Maintenance {
	return &Maintenance{
		cron:  crontab.NewCronTabManger("maintenance"),
		spec:  c.Maintenance.Cron,
		root:  root,
		git:   c.Git,
		repos: c.Repos.Names(),

		parallel: c.Maintenance.Parallel,
	}
}

func (m *Maintenance) Name() string {
	return m.cron.Name()
}

func (m *Maintenance) Start() error {
	id, err := m.cron.AddFunc(m.spec, func(ctx context.Context) {
		if err := m.UpdateServerInfo(ctx); err != nil {
			logger.Error("[maintenance] %s", err.Error())
		}
	})
	if err != nil {
		return err
	}
	m.entry = id
	return m.cron.Start()
}

// Next reports when the job runs next. It is zero before Start.
func (m *Maintenance) Next() time.Time {
	if m.entry == 0 {
		return time.Time{}
	}
	return m.cron.Next(m.entry)
}

func (m *Maintenance) Close() {
	m.cron.Close()
}

// UpdateServerInfo runs over every repository and reports how many failed.
func (m *Maintenance) UpdateServerInfo(ctx context.Context) error {
	var failed int32
	_ = pool.DoFuncString(m.parallel, func(name string) {
		if err := m.updateRepo(ctx, name); err != nil {
			atomic.AddInt32(&failed, 1)
		}
	}, m.repos...)
	if failed > 0 {
		return fmt.Errorf("update-server-info failed for %d of %d repos", failed, len(m.repos))
	}
	return nil
}

func (m *Maintenance) updateRepo(ctx context.Context, name string) error {
	if m.git.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.git.Timeout)
		defer cancel()
	}
	cmd := &shell.Command{Name: m.git.Binary, Args: []string{"update-server-info"}, Dir: filepath.Join(m.root, name, ".git")}
	result, err := cmd.Run(ctx)
	if err == nil && result.ExitCode != 0 {
		err = fmt.Errorf("exit status %d: %s", result.ExitCode, result.Errout.String())
	}
	if err != nil {
		logger.Warn("[maintenance] update-server-info in %s failed. Error: %s", name, err.Error())
		return err
	}
	logger.Debug("[maintenance] update-server-info in %s done", name)
	return nil
}
