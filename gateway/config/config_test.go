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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/caiflower/regate/global/env"
	"github.com/stretchr/testify/assert"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "regate.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config failed: %v", err)
	}
	return path
}

func TestLoadRepoList(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: 127.0.0.1:0
  readTimeout: 2s
git:
  path: /tmp/regate-git
repos:
  - crates
  - internal_io
token:
  ttl: 1h
`)
	c, err := Load(path)
	assert.Nil(t, err)
	assert.Equal(t, []string{"crates", "internal_io"}, c.Repos.Names())
	assert.Equal(t, "/tmp/regate-git", c.Git.Path)
	assert.Equal(t, "git", c.Git.Binary)
	assert.Equal(t, "regate <regate@localhost>", c.Git.Author())

	assert.Equal(t, "127.0.0.1:0", c.Server.Addr)
	assert.Equal(t, 2*time.Second, c.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, c.Server.WriteTimeout)
	assert.Equal(t, 1024, c.Server.QueueSize)

	assert.Equal(t, TokenStoreMemory, c.Token.Store)
	assert.Equal(t, time.Hour, c.Token.TTL)
	assert.Equal(t, 10, c.Token.QPS)
	assert.Equal(t, "0 0 * * * *", c.Maintenance.Cron)
	assert.True(t, c.MaintenanceEnabled())
	assert.False(t, c.Metrics.Enable)
	assert.Equal(t, "INFO", c.Logger.Level)
}

func TestLoadRepoMap(t *testing.T) {
	path := writeConfig(t, `
repos:
  crates: {}
  mirror:
maintenance:
  enable: false
metrics:
  enable: true
`)
	c, err := Load(path)
	assert.Nil(t, err)
	assert.Equal(t, []string{"crates", "mirror"}, c.Repos.Names())
	assert.Equal(t, Repo{Name: "crates"}, c.Repos["crates"])
	assert.False(t, c.MaintenanceEnabled())
	assert.True(t, c.Metrics.Enable)
	assert.Equal(t, "/metrics", c.Metrics.Path)
}

func TestLoadInvalid(t *testing.T) {
	_, err := Load(writeConfig(t, "repos: 3\n"))
	assert.NotNil(t, err)

	_, err = Load(writeConfig(t, "token:\n  store: etcd\n"))
	assert.NotNil(t, err)

	_, err = Load(writeConfig(t, "token:\n  store: redis\n"))
	assert.NotNil(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.NotNil(t, err)
}

func TestLoadDefaultPath(t *testing.T) {
	old := env.ConfigPath
	defer env.SetDefaultConfigPath(old)

	env.SetDefaultConfigPath(t.TempDir())
	c, err := Load("")
	assert.Nil(t, err)
	assert.Empty(t, c.Repos)
	assert.Equal(t, "regate-data/git", c.Git.Path)
	assert.Equal(t, "127.0.0.1:8080", c.Server.Addr)
}
