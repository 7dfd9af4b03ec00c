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

package tools

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type TestConfig struct {
	Name    string        `yaml:"name" default:"test"`
	Age     int           `yaml:"age" default:"30"`
	Small   int8          `yaml:"small" default:"1"`
	Count   uint32        `yaml:"count" default:"7"`
	Money   float64       `yaml:"money" default:"1.5"`
	Timeout time.Duration `yaml:"timeout" default:"500ms"`
	Enable  bool          `yaml:"enable" default:"true"`
	Nested  TestConfig1   `yaml:"nested"`
	Ptr     *TestConfig1  `yaml:"ptr"`
	PtrInt  *int          `yaml:"ptrInt" default:"3"`
	NoTag   *int          `yaml:"noTag"`
	hidden  string        `default:"hidden"`
}

type TestConfig1 struct {
	Name string `yaml:"name" default:"nested"`
	Age  int    `yaml:"age" default:"5"`
}

func TestSetDefaults(t *testing.T) {
	c := TestConfig{Age: 40}
	assert.Nil(t, SetDefaults(&c))

	assert.Equal(t, "test", c.Name)
	assert.Equal(t, 40, c.Age)
	assert.Equal(t, int8(1), c.Small)
	assert.Equal(t, uint32(7), c.Count)
	assert.Equal(t, 1.5, c.Money)
	assert.Equal(t, 500*time.Millisecond, c.Timeout)
	assert.True(t, c.Enable)
	assert.Equal(t, TestConfig1{Name: "nested", Age: 5}, c.Nested)
	assert.Equal(t, &TestConfig1{Name: "nested", Age: 5}, c.Ptr)
	assert.Equal(t, 3, *c.PtrInt)
	assert.Nil(t, c.NoTag)
	assert.Equal(t, "", c.hidden)
}

func TestSetDefaultsRejectsNonStruct(t *testing.T) {
	n := 1
	assert.NotNil(t, SetDefaults(&n))
	assert.Nil(t, SetDefaults(nil))
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.yaml")
	content := "name: regate\ntimeout: 2s\nnested:\n  age: 9\n"
	assert.Nil(t, os.WriteFile(path, []byte(content), 0644))

	c := &TestConfig{}
	assert.Nil(t, LoadConfig(path, c))
	assert.Equal(t, "regate", c.Name)
	assert.Equal(t, 2*time.Second, c.Timeout)
	assert.Equal(t, 9, c.Nested.Age)
	assert.Equal(t, "nested", c.Nested.Name)
	assert.Equal(t, 30, c.Age)

	assert.NotNil(t, LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), c))
}
