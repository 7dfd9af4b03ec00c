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

package crontab

import (
	"context"
	"time"

	"github.com/caiflower/regate/pkg/e"
	"github.com/caiflower/regate/pkg/logger"
	"github.com/robfig/cron/v3"
)

// CronManger schedules jobs with a six field (seconds first) spec.
type CronManger struct {
	name string
	cron *cron.Cron
}

func NewCronTabManger(name string) *CronManger {
	return &CronManger{name: name, cron: cron.New(cron.WithSeconds())}
}

func (c *CronManger) Name() string {
	return "CRONTAB:" + c.name
}

func (c *CronManger) Start() error {
	c.cron.Start()
	return nil
}

// Close stops scheduling and waits up to ten seconds for running jobs.
func (c *CronManger) Close() {
	ctx := c.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(10 * time.Second):
		logger.Warn("[Crontab] %s: running jobs did not finish in time", c.name)
	}
}

func (c *CronManger) AddCronJob(spec string, job cron.Job) (cron.EntryID, error) {
	eid, err := c.cron.AddJob(spec, job)
	if err != nil {
		logger.Error("[Crontab] Add crontab failed. spec=%s. err=%v", spec, err)
		return eid, err
	}
	logger.Info("[Crontab] Add crontab. spec=%s. jobId=%v", spec, eid)
	return eid, nil
}

// AddFunc schedules fn with a fresh context per run. A panic in fn is logged.
func (c *CronManger) AddFunc(spec string, fn func(ctx context.Context)) (cron.EntryID, error) {
	return c.AddCronJob(spec, cron.FuncJob(func() {
		defer e.OnError("crontab " + c.name)
		fn(context.Background())
	}))
}

// Next reports when the entry fires next.
func (c *CronManger) Next(id cron.EntryID) time.Time {
	return c.cron.Entry(id).Next
}
