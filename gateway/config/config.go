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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/caiflower/regate/global/env"
	"github.com/caiflower/regate/pkg/logger"
	"github.com/caiflower/regate/pkg/tools"
	redisv1 "github.com/caiflower/regate/redis/v1"
	webconfig "github.com/caiflower/regate/web/server/config"
)

const (
	// DefaultFileName is looked up under env.ConfigPath when no file is given.
	DefaultFileName = "regate.yaml"

	TokenStoreMemory = "memory"
	TokenStoreRedis  = "redis"
)

type Config struct {
	Server      webconfig.Options `yaml:"server"`
	Logger      logger.Config     `yaml:"logger"`
	PublicURL   string            `yaml:"publicUrl" default:"http://localhost:8080"` // 写入索引 config.json 的对外地址
	Git         GitConfig         `yaml:"git"`
	Repos       Repos             `yaml:"repos"`
	Token       TokenConfig       `yaml:"token"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

type GitConfig struct {
	Path        string        `yaml:"path" default:"regate-data/git"`
	Binary      string        `yaml:"binary" default:"git"`
	AuthorName  string        `yaml:"authorName" default:"regate"`
	AuthorEmail string        `yaml:"authorEmail" default:"regate@localhost"`
	Timeout     time.Duration `yaml:"timeout" default:"60s"` // 单次 git 子进程的最长运行时间
}

// Author renders the identity in the "name <email>" form git expects.
func (g GitConfig) Author() string {
	return fmt.Sprintf("%s <%s>", g.AuthorName, g.AuthorEmail)
}

type TokenConfig struct {
	Store string         `yaml:"store" default:"memory"` // memory | redis
	TTL   time.Duration  `yaml:"ttl" default:"24h"`
	QPS   int            `yaml:"qps" default:"10"` // 签发速率，<0 不限流
	Burst int            `yaml:"burst" default:"20"`
	Redis redisv1.Config `yaml:"redis"`
}

type MaintenanceConfig struct {
	Enable   *bool  `yaml:"enable" default:"true"`
	Cron     string `yaml:"cron" default:"0 0 * * * *"`
	Parallel int    `yaml:"parallel" default:"4"` // 同时刷新的仓库数
}

type MetricsConfig struct {
	Enable bool   `yaml:"enable"`
	Path   string `yaml:"path" default:"/metrics"`
}

type Repo struct {
	Name string
}

// Repos is keyed by repository name. In yaml it may be written either as a list
// of names or as a map whose values are ignored.
type Repos map[string]Repo

func (r *Repos) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var names []string
	if err := unmarshal(&names); err == nil {
		repos := make(Repos, len(names))
		for _, name := range names {
			repos[name] = Repo{Name: name}
		}
		*r = repos
		return nil
	}

	var table map[string]interface{}
	if err := unmarshal(&table); err != nil {
		return errors.New("repos must be either a map or a list of repository names")
	}
	repos := make(Repos, len(table))
	for name := range table {
		repos[name] = Repo{Name: name}
	}
	*r = repos
	return nil
}

// Names returns the repository names in sorted order.
func (r Repos) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Default is the configuration used when no file is present.
func Default() *Config {
	c := &Config{}
	_ = tools.SetDefaults(c)
	return c
}

// Load reads filename, or <CONFIG_PATH>/regate.yaml when filename is empty.
// A missing default file is not an error; a missing explicit file is.
func Load(filename string) (*Config, error) {
	explicit := filename != ""
	if !explicit {
		filename = filepath.Join(env.ConfigPath, DefaultFileName)
	}

	if _, err := os.Stat(filename); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("unable to find configuration file at %s: %w", filename, err)
	}

	c := &Config{}
	if err := tools.LoadConfig(filename, c); err != nil {
		return nil, fmt.Errorf("invalid configuration file %s: %w", filename, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	if c.Git.Path == "" {
		return errors.New("invalid configuration: git storage path not specified")
	}
	switch c.Token.Store {
	case TokenStoreMemory:
	case TokenStoreRedis:
		if len(c.Token.Redis.Addrs) == 0 {
			return errors.New("invalid configuration: token.redis.addrs is required for the redis token store")
		}
	default:
		return fmt.Errorf("invalid configuration: unknown token store %q", c.Token.Store)
	}
	return nil
}

// MaintenanceEnabled reports whether the periodic repository job should run.
func (c *Config) MaintenanceEnabled() bool {
	return c.Maintenance.Enable == nil || *c.Maintenance.Enable
}
